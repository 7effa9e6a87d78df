package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"carebook/backend/internal/domain"
	"carebook/backend/internal/service/scheduling"
)

// SchedulingService is the engine surface the router exposes.
type SchedulingService interface {
	DayAvailability(ctx context.Context, doctorID uuid.UUID, date string) (scheduling.DaySchedule, error)
	MonthCalendar(ctx context.Context, doctorID uuid.UUID, year, month int) (scheduling.MonthCalendar, error)
	CreateBooking(ctx context.Context, in scheduling.CreateBookingInput) (domain.Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]domain.Appointment, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]domain.Appointment, error)
	UpdateStatus(ctx context.Context, appointmentID uuid.UUID, status domain.AppointmentStatus, callerDoctorID uuid.UUID) error
	Reschedule(ctx context.Context, appointmentID uuid.UUID, date, tod string, callerPatientID uuid.UUID) error
	Delete(ctx context.Context, appointmentID, callerID uuid.UUID) error
}

// NotificationStore is the slice of the notification repository the
// inbox endpoints need.
type NotificationStore interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Notification, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Notification, error)
	SetRead(ctx context.Context, id uuid.UUID, read bool) error
}

type RouterConfig struct {
	Service       SchedulingService
	Notifications NotificationStore
	DB            *bun.DB
	Redis         *redis.Client
	Logger        *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.DB, cfg.Redis)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Get("/doctors/{doctorID}/availability", dayAvailabilityHandler(cfg.Service))
	r.Get("/doctors/{doctorID}/calendar", monthCalendarHandler(cfg.Service))

	r.Post("/appointments", createAppointmentHandler(cfg.Service))
	r.Get("/appointments", listAppointmentsHandler(cfg.Service))
	r.Put("/appointments/{id}/status", updateStatusHandler(cfg.Service))
	r.Put("/appointments/{id}", rescheduleHandler(cfg.Service))
	r.Delete("/appointments/{id}", deleteAppointmentHandler(cfg.Service))

	r.Get("/notifications", listNotificationsHandler(cfg.Notifications))
	r.Put("/notifications/{id}/read", markNotificationReadHandler(cfg.Notifications))

	return r
}
