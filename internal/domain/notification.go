package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type NotificationKind string

const (
	// KindReminder24h marks the single day-before reminder for an
	// appointment; together with the appointment id it forms the
	// dedup key for the reminder dispatcher.
	KindReminder24h NotificationKind = "reminder_24h"
)

type Notification struct {
	bun.BaseModel `bun:"table:notifications"`

	ID            uuid.UUID        `bun:"id,pk,type:uuid"`
	UserID        uuid.UUID        `bun:"user_id,notnull,type:uuid"`
	Title         string           `bun:"title,notnull"`
	Message       string           `bun:"message,notnull"`
	Read          bool             `bun:"read,notnull"`
	AppointmentID *uuid.UUID       `bun:"appointment_id,type:uuid"`
	Kind          NotificationKind `bun:"kind,nullzero"`
	CreatedAt     time.Time        `bun:"created_at,notnull"`
}

func (n *Notification) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if n.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		n.ID = id
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	return nil
}
