package store

import (
	"context"

	"github.com/google/uuid"

	"carebook/backend/internal/domain"
)

// AppointmentRepository is the engine's only write path for bookings.
// Create returns ErrConflict when an appointment already occupies the
// doctor's (date, time) slot, in any status.
type AppointmentRepository interface {
	Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	ExistsForSlot(ctx context.Context, doctorID uuid.UUID, date, tod string) (bool, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]domain.Appointment, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]domain.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AppointmentStatus) error
	UpdateSchedule(ctx context.Context, id uuid.UUID, date, tod string) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Calendar reads.
	BookedTimes(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error)
	CountPerDay(ctx context.Context, doctorID uuid.UUID, fromDate, toDate string) (map[string]int, error)

	// Reminder scan: confirmed appointments whose date falls in the
	// inclusive [fromDate, toDate] range. Date-coarse; callers refine
	// to minute precision.
	ListConfirmedBetween(ctx context.Context, fromDate, toDate string) ([]domain.Appointment, error)
}

// NotificationRepository persists the engine's outbound notifications.
// Insert returns ErrConflict when a notification with the same
// (appointment_id, kind) pair already exists, which is what makes
// reminder sends idempotent.
type NotificationRepository interface {
	Insert(ctx context.Context, n domain.Notification) (domain.Notification, error)
	ReminderExists(ctx context.Context, appointmentID uuid.UUID, kind domain.NotificationKind) (bool, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Notification, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Notification, error)
	SetRead(ctx context.Context, id uuid.UUID, read bool) error
}

// DirectoryRepository resolves doctor and patient identities. Profile
// management itself lives outside the engine.
type DirectoryRepository interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (domain.Doctor, error)
	GetPatient(ctx context.Context, id uuid.UUID) (domain.Patient, error)
}
