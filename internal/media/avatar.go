package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Kyz7/blogaccount/internal/apperror"
	"github.com/Kyz7/blogaccount/internal/logger"
	"github.com/Kyz7/blogaccount/internal/models"

	"gorm.io/gorm"
)

// AvatarManager swaps a user's profile picture on the image store.
type AvatarManager struct {
	db       *gorm.DB
	store    ImageStore
	folder   string
	maxBytes int
}

func NewAvatarManager(db *gorm.DB, store ImageStore, folder string) *AvatarManager {
	return &AvatarManager{db: db, store: store, folder: folder, maxBytes: DefaultMaxImageBytes}
}

// ReplaceAvatar uploads encoded as the new avatar of userID and returns its URL.
// The previous avatar is removed on a best-effort basis. An empty image is a no-op
// and returns "".
func (m *AvatarManager) ReplaceAvatar(ctx context.Context, userID uint, encoded string) (string, error) {
	if strings.TrimSpace(encoded) == "" {
		return "", nil
	}

	data, contentType, err := DecodeImage(encoded, m.maxBytes)
	if err != nil {
		return "", apperror.InvalidRequest(err.Error())
	}

	var u models.User
	err = m.db.WithContext(ctx).First(&u, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperror.InvalidRequest("user not found")
	}
	if err != nil {
		return "", apperror.Internal(fmt.Errorf("find user: %w", err))
	}

	m.removeOld(ctx, &u)

	url, err := m.store.Upload(ctx, m.folder, data, contentType)
	if err != nil {
		return "", apperror.Internal(fmt.Errorf("upload avatar: %w", err))
	}
	return url, nil
}

func (m *AvatarManager) removeOld(ctx context.Context, u *models.User) {
	if u.Image == "" {
		return
	}

	key, ok := m.store.KeyFromURL(u.Image)
	if !ok {
		logger.Log.Debugw("previous avatar not hosted by image store", "user_id", u.ID, "url", u.Image)
		return
	}
	if err := m.store.Delete(ctx, key); err != nil {
		logger.Log.Warnw("failed to delete previous avatar", "user_id", u.ID, "key", key, "err", err)
	}
}
