package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	EmailStatusPending = "pending"
	EmailStatusSent    = "sent"
	EmailStatusFailed  = "failed"
)

// OutboundEmail is a queued transactional email awaiting delivery.
type OutboundEmail struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Recipient     string         `gorm:"size:255;not null" json:"recipient"`
	Subject       string         `gorm:"size:255;not null" json:"subject"`
	BodyHTML      string         `gorm:"type:text;not null" json:"-"`
	Kind          string         `gorm:"size:50;index" json:"kind"`
	Metadata      datatypes.JSON `json:"metadata,omitempty"`
	Status        string         `gorm:"size:20;not null;default:'pending';index:idx_outbound_due" json:"status"`
	Attempts      int            `gorm:"not null;default:0" json:"attempts"`
	LastError     string         `gorm:"type:text" json:"last_error,omitempty"`
	NextAttemptAt time.Time      `gorm:"index:idx_outbound_due" json:"next_attempt_at"`
	SentAt        *time.Time     `json:"sent_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
