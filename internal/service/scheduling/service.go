package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"carebook/backend/internal/domain"
	"carebook/backend/internal/notify"
	"carebook/backend/internal/redislock"
	"carebook/backend/internal/store"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrPastDateTime        = errors.New("date/time must be in the future")
	ErrInvalidTimeSlot     = errors.New("time is outside consultation hours or off the 5-minute grid")
	ErrMalformedDateTime   = errors.New("malformed date/time")
	ErrSlotAlreadyBooked   = errors.New("slot is already booked")
	ErrSlotContended       = errors.New("slot is being booked by another request, retry")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrAccessDenied        = errors.New("access denied")
	ErrInvalidStatus       = errors.New("invalid status")
)

type Service struct {
	appts     store.AppointmentRepository
	directory store.DirectoryRepository
	notifier  notify.Sink
	locker    redislock.SlotLocker
	log       *slog.Logger
	now       func() time.Time
}

func NewService(appts store.AppointmentRepository, directory store.DirectoryRepository, notifier notify.Sink, locker redislock.SlotLocker, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		appts:     appts,
		directory: directory,
		notifier:  notifier,
		locker:    locker,
		log:       log.With(slog.String("component", "scheduling")),
		now:       time.Now,
	}
}

type CreateBookingInput struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Date      string
	Time      string
}

// CreateBooking validates a booking request and inserts the
// appointment. The existence check and the insert run under a per-slot
// lock, and the store's uniqueness constraint backstops the lock, so a
// slot can never be double-booked. Names are snapshots taken here and
// never updated afterwards.
func (s *Service) CreateBooking(ctx context.Context, in CreateBookingInput) (domain.Appointment, error) {
	doctor, err := s.directory.GetDoctor(ctx, in.DoctorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Appointment{}, ErrDoctorNotFound
		}
		return domain.Appointment{}, fmt.Errorf("load doctor: %w", err)
	}

	patient, err := s.directory.GetPatient(ctx, in.PatientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Appointment{}, ErrPatientNotFound
		}
		return domain.Appointment{}, fmt.Errorf("load patient: %w", err)
	}

	startsAt, err := domain.CombineDateTime(in.Date, in.Time)
	if err != nil {
		return domain.Appointment{}, ErrMalformedDateTime
	}
	// Only strictly earlier instants are rejected: a booking for exactly
	// the current minute is accepted.
	if startsAt.Before(s.now()) {
		return domain.Appointment{}, ErrPastDateTime
	}
	if !domain.WithinConsultationHours(startsAt.Hour(), startsAt.Minute()) {
		return domain.Appointment{}, ErrInvalidTimeSlot
	}

	var created domain.Appointment
	err = s.locker.WithSlotLock(ctx, in.DoctorID, in.Date, in.Time, func(ctx context.Context) error {
		exists, err := s.appts.ExistsForSlot(ctx, in.DoctorID, in.Date, in.Time)
		if err != nil {
			return fmt.Errorf("check slot: %w", err)
		}
		if exists {
			return ErrSlotAlreadyBooked
		}

		created, err = s.appts.Create(ctx, domain.Appointment{
			PatientID:   patient.ID,
			PatientName: patient.Name,
			DoctorID:    doctor.ID,
			DoctorName:  doctor.Name,
			Date:        in.Date,
			Time:        in.Time,
			Status:      domain.StatusPending,
		})
		if errors.Is(err, store.ErrConflict) {
			return ErrSlotAlreadyBooked
		}
		return err
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotAcquired) {
			return domain.Appointment{}, ErrSlotContended
		}
		return domain.Appointment{}, err
	}

	s.send(ctx, doctor.ID, "New appointment",
		fmt.Sprintf("An appointment was booked by %s for %s at %s.", patient.Name, in.Date, in.Time))
	s.send(ctx, patient.ID, "Appointment pending",
		fmt.Sprintf("Your appointment with %s on %s at %s is pending confirmation.", doctor.Name, in.Date, in.Time))

	s.log.Info("booking created",
		slog.String("appointment_id", created.ID.String()),
		slog.String("doctor_id", doctor.ID.String()),
		slog.String("date", in.Date),
		slog.String("time", in.Time),
	)

	return created, nil
}

// UpdateStatus reassigns an appointment's status. Only the owning
// doctor may do so; legal transitions are otherwise unrestricted.
func (s *Service) UpdateStatus(ctx context.Context, appointmentID uuid.UUID, status domain.AppointmentStatus, callerDoctorID uuid.UUID) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}

	appt, err := s.getAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	if appt.DoctorID != callerDoctorID {
		return ErrAccessDenied
	}

	if err := s.appts.UpdateStatus(ctx, appointmentID, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAppointmentNotFound
		}
		return fmt.Errorf("update status: %w", err)
	}

	s.send(ctx, appt.PatientID, "Appointment "+string(status),
		fmt.Sprintf("Your appointment with %s on %s at %s has been %s.", appt.DoctorName, appt.Date, appt.Time, status))

	s.log.Info("appointment status updated",
		slog.String("appointment_id", appointmentID.String()),
		slog.String("status", string(status)),
	)
	return nil
}

// Reschedule moves an appointment to a new date and time. Only the
// owning patient may do so. The move deliberately skips the slot
// validation that CreateBooking runs.
func (s *Service) Reschedule(ctx context.Context, appointmentID uuid.UUID, date, tod string, callerPatientID uuid.UUID) error {
	if date == "" || tod == "" {
		return ErrMalformedDateTime
	}

	appt, err := s.getAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	if appt.PatientID != callerPatientID {
		return ErrAccessDenied
	}

	if err := s.appts.UpdateSchedule(ctx, appointmentID, date, tod); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAppointmentNotFound
		}
		return fmt.Errorf("update schedule: %w", err)
	}

	s.send(ctx, appt.DoctorID, "Appointment rescheduled",
		fmt.Sprintf("The appointment with %s has been moved to %s at %s.", appt.PatientName, date, tod))

	s.log.Info("appointment rescheduled",
		slog.String("appointment_id", appointmentID.String()),
		slog.String("date", date),
		slog.String("time", tod),
	)
	return nil
}

// Delete removes an appointment. Either owner may delete it, in any
// status; a doctor-initiated delete tells the patient.
func (s *Service) Delete(ctx context.Context, appointmentID, callerID uuid.UUID) error {
	appt, err := s.getAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	if callerID != appt.PatientID && callerID != appt.DoctorID {
		return ErrAccessDenied
	}

	if callerID == appt.DoctorID {
		s.send(ctx, appt.PatientID, "Appointment cancelled",
			fmt.Sprintf("Your appointment with %s on %s at %s has been cancelled.", appt.DoctorName, appt.Date, appt.Time))
	}

	if err := s.appts.Delete(ctx, appointmentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAppointmentNotFound
		}
		return fmt.Errorf("delete appointment: %w", err)
	}

	s.log.Info("appointment deleted", slog.String("appointment_id", appointmentID.String()))
	return nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]domain.Appointment, error) {
	return s.appts.ListByPatient(ctx, patientID)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]domain.Appointment, error) {
	return s.appts.ListByDoctor(ctx, doctorID)
}

func (s *Service) getAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	appt, err := s.appts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Appointment{}, ErrAppointmentNotFound
		}
		return domain.Appointment{}, fmt.Errorf("load appointment: %w", err)
	}
	return appt, nil
}

// Notification failures never fail the operation that produced them;
// the booking or update is already committed.
func (s *Service) send(ctx context.Context, userID uuid.UUID, title, message string) {
	if err := s.notifier.Send(ctx, userID, title, message); err != nil {
		s.log.Warn("notification send failed",
			slog.Any("err", err),
			slog.String("user_id", userID.String()),
			slog.String("title", title),
		)
	}
}
