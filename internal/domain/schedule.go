package domain

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Consultation hours: two disjoint periods on a fixed daily template.
// Slots are 30 minutes long with a 5-minute gap between consecutive
// slots, so start times step by 35 minutes. The morning walk stops
// once a slot would spill past 12:00; the afternoon walk emits any
// slot that starts before 18:00, even one that nominally runs past it.
const (
	morningStartMin   = 8 * 60
	morningEndMin     = 12 * 60
	afternoonStartMin = 13 * 60
	afternoonEndMin   = 18 * 60

	slotMinutes = 30
	slotGapMin  = 5
)

// DayCapacity is the booking capacity the month calendar counts
// against. The value is fixed by the daily template.
const DayCapacity = 18

type TimeSlot struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Available bool   `json:"available"`
}

type CalendarDayStatus string

const (
	DayAvailable   CalendarDayStatus = "available"
	DayPartial     CalendarDayStatus = "partial"
	DayUnavailable CalendarDayStatus = "unavailable"
)

type CalendarDay struct {
	Date        string            `json:"date"`
	DayOfMonth  int               `json:"day"`
	Status      CalendarDayStatus `json:"status"`
	BookedCount int               `json:"booked"`
	Capacity    int               `json:"total"`
}

// TemplateSlots builds the canonical ordered slot sequence for one
// calendar day. The template is global: it does not vary by date or
// doctor, and every slot starts available. Recomputed on each call.
func TemplateSlots() []TimeSlot {
	slots := make([]TimeSlot, 0, 16)
	for t := morningStartMin; t+slotMinutes <= morningEndMin; t += slotMinutes + slotGapMin {
		slots = append(slots, TimeSlot{
			Start:     minutesToClock(t),
			End:       minutesToClock(t + slotMinutes),
			Available: true,
		})
	}
	for t := afternoonStartMin; t < afternoonEndMin; t += slotMinutes + slotGapMin {
		slots = append(slots, TimeSlot{
			Start:     minutesToClock(t),
			End:       minutesToClock(t + slotMinutes),
			Available: true,
		})
	}
	return slots
}

func minutesToClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// WithinConsultationHours reports whether a booking time falls inside
// one of the template periods and sits on the 5-minute grid.
func WithinConsultationHours(hour, minute int) bool {
	if minute%5 != 0 {
		return false
	}
	if hour >= 8 && hour < 12 {
		return true
	}
	return hour >= 13 && hour < 18
}

func ParseDate(date string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, date, time.Local)
}

func ParseTimeOfDay(tod string) (hour, minute int, err error) {
	t, err := time.Parse(TimeLayout, tod)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

// CombineDateTime resolves a date and a time-of-day into an instant in
// the scheduler's local zone.
func CombineDateTime(date, tod string) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+tod, time.Local)
}
