// Package notify queues transactional emails in the outbound_emails table and
// delivers them from a background worker.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Kyz7/blogaccount/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Dispatcher enqueues emails. Enqueueing never talks to the mail provider, so
// a provider outage cannot fail or roll back the request that triggered it.
type Dispatcher struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDispatcher(db *gorm.DB, now func() time.Time) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{db: db, now: now}
}

// Enqueue stores msg for delivery. When tx is non-nil the row joins that transaction.
func (d *Dispatcher) Enqueue(ctx context.Context, tx *gorm.DB, kind string, msg Message, meta map[string]interface{}) error {
	db := tx
	if db == nil {
		db = d.db
	}

	var metadata datatypes.JSON
	if len(meta) > 0 {
		raw, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal email metadata: %w", err)
		}
		metadata = datatypes.JSON(raw)
	}

	email := models.OutboundEmail{
		Recipient:     msg.To,
		Subject:       msg.Subject,
		BodyHTML:      msg.HTML,
		Kind:          kind,
		Metadata:      metadata,
		Status:        models.EmailStatusPending,
		NextAttemptAt: d.now(),
	}
	if err := db.WithContext(ctx).Create(&email).Error; err != nil {
		return fmt.Errorf("enqueue %s email: %w", kind, err)
	}
	return nil
}

// ResetRequested queues the email carrying the reset link, which stays valid for validFor.
func (d *Dispatcher) ResetRequested(ctx context.Context, tx *gorm.DB, user *models.User, link string, validFor time.Duration) error {
	msg, err := ResetRequestedEmail(user.Email, user.Name, link, FormatValidity(validFor))
	if err != nil {
		return err
	}
	return d.Enqueue(ctx, tx, KindResetRequested, msg, map[string]interface{}{"user_id": user.ID})
}

// ResetCompleted queues the confirmation sent after a successful reset.
func (d *Dispatcher) ResetCompleted(ctx context.Context, user *models.User) error {
	msg, err := ResetCompletedEmail(user.Email, user.Name)
	if err != nil {
		return err
	}
	return d.Enqueue(ctx, nil, KindResetCompleted, msg, map[string]interface{}{"user_id": user.ID})
}
