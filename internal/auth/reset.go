package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kyz7/blogaccount/internal/apperror"
	"github.com/Kyz7/blogaccount/internal/logger"
	"github.com/Kyz7/blogaccount/internal/models"
	"github.com/Kyz7/blogaccount/internal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultResetTokenTTL  = 24 * time.Hour
	DefaultResetThrottle  = time.Hour
	invalidResetTokenText = "invalid or expired reset token"
)

// Notifier queues the emails of the reset workflow. ResetRequested runs inside
// the transaction that stores the token.
type Notifier interface {
	ResetRequested(ctx context.Context, tx *gorm.DB, user *models.User, link string, validFor time.Duration) error
	ResetCompleted(ctx context.Context, user *models.User) error
}

// ResetManager issues, validates and consumes password reset tokens.
type ResetManager struct {
	db       *gorm.DB
	notifier Notifier
	baseURL  string
	now      func() time.Time
	tokenTTL time.Duration
	throttle time.Duration
}

type ResetOption func(*ResetManager)

func WithResetClock(now func() time.Time) ResetOption {
	return func(m *ResetManager) { m.now = now }
}

// WithResetWindows overrides the token lifetime and the per-user throttle window.
func WithResetWindows(tokenTTL, throttle time.Duration) ResetOption {
	return func(m *ResetManager) {
		m.tokenTTL = tokenTTL
		m.throttle = throttle
	}
}

func NewResetManager(db *gorm.DB, notifier Notifier, baseURL string, opts ...ResetOption) *ResetManager {
	m := &ResetManager{
		db:       db,
		notifier: notifier,
		baseURL:  baseURL,
		now:      time.Now,
		tokenTTL: DefaultResetTokenTTL,
		throttle: DefaultResetThrottle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RequestReset issues a token for the account registered under email and
// queues the email carrying the link. A user gets at most one token per
// throttle window.
func (m *ResetManager) RequestReset(ctx context.Context, email string) error {
	var u models.User
	err := m.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.InvalidRequest("no account found for this email")
	}
	if err != nil {
		return apperror.Internal(fmt.Errorf("find user: %w", err))
	}

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialises concurrent requests for the same user.
		var locked models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, u.ID).Error; err != nil {
			return apperror.Internal(fmt.Errorf("lock user: %w", err))
		}

		now := m.now()
		var recent int64
		if err := tx.Model(&models.PasswordResetToken{}).
			Where("user_id = ? AND expires_at > ? AND created_at > ?", u.ID, now, now.Add(-m.throttle)).
			Count(&recent).Error; err != nil {
			return apperror.Internal(fmt.Errorf("check recent tokens: %w", err))
		}
		if recent > 0 {
			return apperror.InvalidRequest("a reset link was already sent recently, please check your email")
		}

		token, hash, err := utils.GenerateResetToken()
		if err != nil {
			return apperror.Internal(err)
		}

		rt := models.PasswordResetToken{
			UserID:    u.ID,
			TokenHash: hash,
			ExpiresAt: now.Add(m.tokenTTL),
			CreatedAt: now,
		}
		if err := tx.Create(&rt).Error; err != nil {
			return apperror.Internal(fmt.Errorf("store reset token: %w", err))
		}

		if err := m.notifier.ResetRequested(ctx, tx, &locked, m.link(token), m.tokenTTL); err != nil {
			return apperror.Internal(fmt.Errorf("queue reset email: %w", err))
		}

		logger.Log.Infow("password reset requested", "user_id", u.ID, "expires_at", rt.ExpiresAt)
		return nil
	})
}

// CheckValidity reports whether token exists and has not expired. It never
// modifies anything.
func (m *ResetManager) CheckValidity(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	rt, err := m.find(ctx, token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperror.Internal(fmt.Errorf("find reset token: %w", err))
	}
	return rt.ValidAt(m.now()), nil
}

// Consume sets a new password using token and invalidates every reset token
// the user holds.
func (m *ResetManager) Consume(ctx context.Context, token, newPassword string) error {
	rt, err := m.find(ctx, token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.InvalidRequest(invalidResetTokenText)
	}
	if err != nil {
		return apperror.Internal(fmt.Errorf("find reset token: %w", err))
	}
	if !rt.ValidAt(m.now()) {
		return apperror.InvalidRequest("reset token has expired")
	}

	var u models.User
	err = m.db.WithContext(ctx).First(&u, rt.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.InvalidRequest(invalidResetTokenText)
	}
	if err != nil {
		return apperror.Internal(fmt.Errorf("find user: %w", err))
	}

	if u.HasPassword() && utils.CheckPasswordHash(newPassword, u.Password) {
		return apperror.InvalidRequest("new password must be different from the current password")
	}

	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		if utils.IsPasswordTooLong(err) {
			return apperror.InvalidRequest("password is too long")
		}
		return apperror.Internal(err)
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A concurrent consume of the same token loses here.
		res := tx.Where("id = ?", rt.ID).Delete(&models.PasswordResetToken{})
		if res.Error != nil {
			return apperror.Internal(fmt.Errorf("delete reset token: %w", res.Error))
		}
		if res.RowsAffected == 0 {
			return apperror.InvalidRequest(invalidResetTokenText)
		}

		if err := tx.Model(&u).Update("password", hashed).Error; err != nil {
			return apperror.Internal(fmt.Errorf("update password: %w", err))
		}
		if err := tx.Where("user_id = ?", u.ID).Delete(&models.PasswordResetToken{}).Error; err != nil {
			return apperror.Internal(fmt.Errorf("delete reset tokens: %w", err))
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := m.notifier.ResetCompleted(ctx, &u); err != nil {
		logger.Log.Warnw("failed to queue reset confirmation", "user_id", u.ID, "err", err)
	}
	return nil
}

func (m *ResetManager) find(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	var rt models.PasswordResetToken
	if err := m.db.WithContext(ctx).Where("token_hash = ?", utils.HashToken(token)).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

func (m *ResetManager) link(token string) string {
	return fmt.Sprintf("%s/reset-password/%s", m.baseURL, token)
}
