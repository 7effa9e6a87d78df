package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"carebook/backend/internal/domain"
	"carebook/backend/internal/store"
)

const DefaultInterval = time.Hour

// Dispatcher periodically scans for confirmed appointments starting
// roughly 24 hours out and writes one reminder notification per
// appointment. Duplicate suppression is backed by the notifications
// table's (appointment_id, kind) uniqueness, so concurrent dispatchers
// cannot double-send.
type Dispatcher struct {
	appts    store.AppointmentRepository
	notifs   store.NotificationRepository
	log      *slog.Logger
	interval time.Duration
	now      func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDispatcher(appts store.AppointmentRepository, notifs store.NotificationRepository, interval time.Duration, logger *slog.Logger) *Dispatcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Dispatcher{
		appts:    appts,
		notifs:   notifs,
		log:      logger.With("component", "reminder"),
		interval: interval,
		now:      time.Now,
	}
}

// Start launches the scan loop. It runs one scan immediately, then on
// every tick until Stop is called.
func (d *Dispatcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.log.Info("reminder dispatcher started", "interval", d.interval)

		if err := d.RunOnce(ctx); err != nil {
			d.log.Error("reminder scan failed", "error", err)
		}

		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				d.log.Info("reminder dispatcher stopped")
				return
			case <-ticker.C:
				if err := d.RunOnce(ctx); err != nil {
					d.log.Error("reminder scan failed", "error", err)
				}
			}
		}
	}()
}

// Stop cancels the loop and waits for any in-flight scan to finish.
func (d *Dispatcher) Stop() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	d.wg.Wait()
}

// RunOnce scans the [now+24h, now+25h] window, bounds inclusive. The
// window is wider than the scan interval so an appointment cannot slip
// between ticks.
func (d *Dispatcher) RunOnce(ctx context.Context) error {
	now := d.now()
	windowStart := now.Add(24 * time.Hour)
	windowEnd := now.Add(25 * time.Hour)

	candidates, err := d.appts.ListConfirmedBetween(ctx,
		windowStart.Format(domain.DateLayout),
		windowEnd.Format(domain.DateLayout))
	if err != nil {
		return fmt.Errorf("list upcoming appointments: %w", err)
	}

	var sent int
	for _, appt := range candidates {
		startsAt, err := appt.StartsAt()
		if err != nil {
			d.log.Warn("skipping appointment with unparseable schedule",
				"appointment_id", appt.ID, "date", appt.Date, "time", appt.Time)
			continue
		}
		if startsAt.Before(windowStart) || startsAt.After(windowEnd) {
			continue
		}

		ok, err := d.remind(ctx, appt)
		if err != nil {
			d.log.Error("reminder send failed", "appointment_id", appt.ID, "error", err)
			continue
		}
		if ok {
			sent++
		}
	}

	d.log.Info("reminder scan complete", "candidates", len(candidates), "sent", sent)
	return nil
}

func (d *Dispatcher) remind(ctx context.Context, appt domain.Appointment) (bool, error) {
	exists, err := d.notifs.ReminderExists(ctx, appt.ID, domain.KindReminder24h)
	if err != nil {
		return false, fmt.Errorf("check reminder: %w", err)
	}
	if exists {
		return false, nil
	}

	apptID := appt.ID
	n := domain.Notification{
		UserID:        appt.PatientID,
		Title:         "Appointment reminder",
		Message:       fmt.Sprintf("Reminder: your appointment with %s on %s at %s is tomorrow.", appt.DoctorName, appt.Date, appt.Time),
		AppointmentID: &apptID,
		Kind:          domain.KindReminder24h,
	}
	if _, err := d.notifs.Insert(ctx, n); err != nil {
		// Another dispatcher won the race; the reminder is out.
		if errors.Is(err, store.ErrConflict) {
			return false, nil
		}
		return false, fmt.Errorf("insert reminder: %w", err)
	}
	return true, nil
}
