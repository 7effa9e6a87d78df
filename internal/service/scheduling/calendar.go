package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"carebook/backend/internal/domain"
	"carebook/backend/internal/store"
)

type DaySchedule struct {
	Date       string            `json:"date"`
	DoctorID   uuid.UUID         `json:"doctorId"`
	DoctorName string            `json:"doctorName"`
	Slots      []domain.TimeSlot `json:"slots"`
}

type MonthCalendar struct {
	DoctorID   uuid.UUID            `json:"doctorId"`
	DoctorName string               `json:"doctorName"`
	Year       int                  `json:"year"`
	Month      int                  `json:"month"`
	Days       []domain.CalendarDay `json:"calendar"`
}

// DayAvailability lays the day's booked times over the slot template.
// An appointment occupies its slot in any status, including cancelled.
func (s *Service) DayAvailability(ctx context.Context, doctorID uuid.UUID, date string) (DaySchedule, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return DaySchedule{}, ErrMalformedDateTime
	}

	doctor, err := s.directory.GetDoctor(ctx, doctorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return DaySchedule{}, ErrDoctorNotFound
		}
		return DaySchedule{}, fmt.Errorf("load doctor: %w", err)
	}

	times, err := s.appts.BookedTimes(ctx, doctorID, date)
	if err != nil {
		return DaySchedule{}, fmt.Errorf("list booked times: %w", err)
	}
	booked := make(map[string]struct{}, len(times))
	for _, t := range times {
		booked[t] = struct{}{}
	}

	slots := domain.TemplateSlots()
	for i := range slots {
		if _, ok := booked[slots[i].Start]; ok {
			slots[i].Available = false
		}
	}

	return DaySchedule{
		Date:       date,
		DoctorID:   doctor.ID,
		DoctorName: doctor.Name,
		Slots:      slots,
	}, nil
}

// MonthCalendar summarizes booking density for every day of the month.
// Read-only; appointments of any status count toward bookedCount.
func (s *Service) MonthCalendar(ctx context.Context, doctorID uuid.UUID, year, month int) (MonthCalendar, error) {
	if year < 1 || month < 1 || month > 12 {
		return MonthCalendar{}, ErrMalformedDateTime
	}

	doctor, err := s.directory.GetDoctor(ctx, doctorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return MonthCalendar{}, ErrDoctorNotFound
		}
		return MonthCalendar{}, fmt.Errorf("load doctor: %w", err)
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	last := first.AddDate(0, 1, -1)

	counts, err := s.appts.CountPerDay(ctx, doctorID, first.Format(domain.DateLayout), last.Format(domain.DateLayout))
	if err != nil {
		return MonthCalendar{}, fmt.Errorf("count bookings: %w", err)
	}

	days := make([]domain.CalendarDay, 0, last.Day())
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		date := d.Format(domain.DateLayout)
		booked := counts[date]

		status := domain.DayAvailable
		switch {
		case booked >= domain.DayCapacity:
			status = domain.DayUnavailable
		case booked > 0:
			status = domain.DayPartial
		}

		days = append(days, domain.CalendarDay{
			Date:        date,
			DayOfMonth:  d.Day(),
			Status:      status,
			BookedCount: booked,
			Capacity:    domain.DayCapacity,
		})
	}

	return MonthCalendar{
		DoctorID:   doctor.ID,
		DoctorName: doctor.Name,
		Year:       year,
		Month:      month,
		Days:       days,
	}, nil
}
