package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ProviderCredentials = "credentials"
	ProviderGoogle      = "google"
)

type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"size:100" json:"name"`
	Email        string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password     string         `gorm:"size:255" json:"-"`
	Provider     string         `gorm:"size:50;default:'credentials'" json:"provider"`
	Image        string         `gorm:"size:500" json:"image,omitempty"`
	Introduction string         `gorm:"type:text" json:"introduction,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	PasswordResetTokens []PasswordResetToken `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// HasPassword is false for accounts created through a federated login.
func (u *User) HasPassword() bool {
	return u.Password != ""
}
