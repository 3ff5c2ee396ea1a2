package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Kyz7/blogaccount/internal/apperror"
	"github.com/Kyz7/blogaccount/internal/models"
	"github.com/Kyz7/blogaccount/internal/utils"

	"gorm.io/gorm"
)

const invalidCredentials = "invalid email or password"

// Identity is what a federated provider tells us about the person logging in.
type Identity struct {
	Email    string
	Verified bool
	Name     string
	Picture  string
}

// Service verifies credentials and manages password hashes.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Signup creates a credentials user. The email must not be taken.
func (s *Service) Signup(ctx context.Context, name, email, password string) (*models.User, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) = LOWER(?)", email).
		Count(&count).Error; err != nil {
		return nil, apperror.Internal(fmt.Errorf("check email: %w", err))
	}
	if count > 0 {
		return nil, apperror.InvalidRequest("email already registered")
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		if utils.IsPasswordTooLong(err) {
			return nil, apperror.InvalidRequest("password is too long")
		}
		return nil, apperror.Internal(err)
	}

	u := models.User{
		Name:     name,
		Email:    strings.TrimSpace(email),
		Password: hashed,
		Provider: models.ProviderCredentials,
	}
	if err := s.createUser(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// createUser inserts u. The unique LOWER(email) index settles races between
// concurrent check-then-insert callers.
func (s *Service) createUser(ctx context.Context, u *models.User) error {
	err := s.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.InvalidRequest("email already registered")
	}
	if err != nil {
		return apperror.Internal(fmt.Errorf("create user: %w", err))
	}
	return nil
}

// Authorize returns the user owning email when password matches its hash.
// The email is matched exactly. Every failure looks the same to the caller.
func (s *Service) Authorize(ctx context.Context, email, password string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Unauthenticated(invalidCredentials)
	}
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("find user: %w", err))
	}

	if !u.HasPassword() || !utils.CheckPasswordHash(password, u.Password) {
		return nil, apperror.Unauthenticated(invalidCredentials)
	}
	return &u, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.InvalidRequest("user not found")
	}
	if err != nil {
		return apperror.Internal(fmt.Errorf("find user: %w", err))
	}

	if !u.HasPassword() {
		return apperror.InvalidRequest("account has no password set")
	}
	if !utils.CheckPasswordHash(current, u.Password) {
		return apperror.InvalidRequest("current password is incorrect")
	}
	if utils.CheckPasswordHash(next, u.Password) {
		return apperror.InvalidRequest("new password must be different from the current password")
	}

	hashed, err := utils.HashPassword(next)
	if err != nil {
		if utils.IsPasswordTooLong(err) {
			return apperror.InvalidRequest("password is too long")
		}
		return apperror.Internal(err)
	}

	if err := s.db.WithContext(ctx).Model(&u).Update("password", hashed).Error; err != nil {
		return apperror.Internal(fmt.Errorf("update password: %w", err))
	}
	return nil
}

// LoginWithIdentity finds the user for a federated identity, creating one on
// first login. Only verified addresses are accepted, and an account registered
// with a password is never taken over by a federated login.
func (s *Service) LoginWithIdentity(ctx context.Context, id Identity) (*models.User, error) {
	if id.Email == "" {
		return nil, apperror.InvalidRequest("provider did not return an email address")
	}
	if !id.Verified {
		return nil, apperror.InvalidRequest("email address is not verified by the provider")
	}

	u, err := s.federatedUser(ctx, id.Email)
	if err != nil || u != nil {
		return u, err
	}

	name := id.Name
	if name == "" {
		name = strings.Split(id.Email, "@")[0]
	}
	created := models.User{
		Name:     name,
		Email:    id.Email,
		Provider: models.ProviderGoogle,
		Image:    id.Picture,
	}
	err = s.createUser(ctx, &created)
	if apperror.Is(err, apperror.KindInvalidRequest) {
		// Lost a race with another first login for the same address.
		u, err = s.federatedUser(ctx, id.Email)
		if err == nil && u == nil {
			err = apperror.Internal(fmt.Errorf("user %s vanished after duplicate insert", id.Email))
		}
		return u, err
	}
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// federatedUser returns the existing federated account for email, or nil when
// there is none.
func (s *Service) federatedUser(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("find user: %w", err))
	}
	if u.Provider != models.ProviderGoogle {
		return nil, apperror.InvalidRequest("this email is registered with a password, sign in with email and password")
	}
	return &u, nil
}

func (s *Service) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Unauthenticated("user not found")
	}
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("find user: %w", err))
	}
	return &u, nil
}
