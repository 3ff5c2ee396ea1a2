// Package session issues the JWT access tokens and rotating refresh tokens
// handed out after a successful login.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Kyz7/blogaccount/internal/models"
	"github.com/Kyz7/blogaccount/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour

	refreshTokenLength = 64
)

var (
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)

type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type Manager struct {
	db         *gorm.DB
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithTTL(access, refresh time.Duration) Option {
	return func(m *Manager) {
		m.accessTTL = access
		m.refreshTTL = refresh
	}
}

func NewManager(db *gorm.DB, secret string, opts ...Option) *Manager {
	m := &Manager{
		db:         db,
		key:        []byte(secret),
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue creates a fresh access/refresh pair for userID.
func (m *Manager) Issue(ctx context.Context, userID uint) (*Pair, error) {
	access, err := m.signAccess(userID)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := m.createRefresh(m.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(m.accessTTL.Seconds()),
	}, nil
}

// ParseAccess returns the user id carried by a valid access token.
func (m *Manager) ParseAccess(tokenStr string) (uint, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		return m.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return 0, ErrInvalidToken
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

// Refresh spends a refresh token and returns a new pair. Each refresh token works once.
func (m *Manager) Refresh(ctx context.Context, userID uint, rawToken string) (*Pair, error) {
	var pair *Pair
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.RefreshToken{}).
			Where("user_id = ? AND token_hash = ? AND revoked = ? AND expires_at > ?",
				userID, utils.HashToken(rawToken), false, m.now()).
			Update("revoked", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return ErrInvalidRefreshToken
		}

		access, err := m.signAccess(userID)
		if err != nil {
			return fmt.Errorf("sign access token: %w", err)
		}
		refresh, err := m.createRefresh(tx, userID)
		if err != nil {
			return err
		}

		pair = &Pair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int(m.accessTTL.Seconds())}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// RevokeAll invalidates every outstanding refresh token of userID.
func (m *Manager) RevokeAll(ctx context.Context, userID uint) error {
	return m.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}

// PurgeExpired hard-deletes expired or revoked refresh tokens.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	result := m.db.WithContext(ctx).Unscoped().
		Where("expires_at < ? OR revoked = ?", m.now(), true).
		Delete(&models.RefreshToken{})
	return result.RowsAffected, result.Error
}

func (m *Manager) signAccess(userID uint) (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
}

func (m *Manager) createRefresh(db *gorm.DB, userID uint) (string, error) {
	raw, err := utils.RandomString(refreshTokenLength)
	if err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}

	rt := models.RefreshToken{
		UserID:    userID,
		TokenHash: utils.HashToken(raw),
		ExpiresAt: m.now().Add(m.refreshTTL),
		CreatedAt: m.now(),
	}
	if err := db.Create(&rt).Error; err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	return raw, nil
}
