package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"carebook/backend/internal/domain"
	"carebook/backend/internal/store"
)

type NotificationRepo struct {
	db *bun.DB
}

func NewNotificationRepo(db *bun.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

func (r *NotificationRepo) Insert(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	m := n
	_, err := r.db.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Notification{}, store.ErrConflict
		}
		return domain.Notification{}, err
	}
	return m, nil
}

func (r *NotificationRepo) ReminderExists(ctx context.Context, appointmentID uuid.UUID, kind domain.NotificationKind) (bool, error) {
	return r.db.NewSelect().
		Model((*domain.Notification)(nil)).
		Where("appointment_id = ?", appointmentID).
		Where("kind = ?", kind).
		Exists(ctx)
}

func (r *NotificationRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Notification, error) {
	var rows []domain.Notification
	err := r.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		OrderExpr("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *NotificationRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Notification, error) {
	var m domain.Notification
	err := r.db.NewSelect().
		Model(&m).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Notification{}, store.ErrNotFound
		}
		return domain.Notification{}, err
	}
	return m, nil
}

func (r *NotificationRepo) SetRead(ctx context.Context, id uuid.UUID, read bool) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Notification)(nil)).
		Set("read = ?", read).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
