package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Kyz7/blogaccount/internal/apperror"
	"github.com/Kyz7/blogaccount/internal/models"

	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

// AvatarReplacer swaps the stored avatar and returns the new URL, or "" when
// no image was given.
type AvatarReplacer interface {
	ReplaceAvatar(ctx context.Context, userID uint, encoded string) (string, error)
}

// ProfileInput is a profile edit. A nil Introduction leaves it unchanged and
// an empty Image keeps the current avatar.
type ProfileInput struct {
	Name         string
	Introduction *string
	Image        string
}

type Service struct {
	db      *gorm.DB
	avatars AvatarReplacer
	strict  *bluemonday.Policy
	ugc     *bluemonday.Policy
}

func NewService(db *gorm.DB, avatars AvatarReplacer) *Service {
	return &Service{
		db:      db,
		avatars: avatars,
		strict:  bluemonday.StrictPolicy(),
		ugc:     bluemonday.UGCPolicy(),
	}
}

func (s *Service) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.InvalidRequest("user not found")
	}
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("find user: %w", err))
	}
	return &u, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*models.User, error) {
	name := strings.TrimSpace(s.strict.Sanitize(in.Name))
	if name == "" {
		return nil, apperror.InvalidRequest("name is required")
	}

	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"name": name}
	if in.Introduction != nil {
		updates["introduction"] = strings.TrimSpace(s.ugc.Sanitize(*in.Introduction))
	}

	url, err := s.avatars.ReplaceAvatar(ctx, userID, in.Image)
	if err != nil {
		return nil, err
	}
	if url != "" {
		updates["image"] = url
	}

	if err := s.db.WithContext(ctx).Model(u).Updates(updates).Error; err != nil {
		return nil, apperror.Internal(fmt.Errorf("update profile: %w", err))
	}
	return s.GetProfile(ctx, userID)
}
