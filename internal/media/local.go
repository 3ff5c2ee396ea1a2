package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalStore writes images below root and serves them under urlPrefix.
type LocalStore struct {
	root      string
	urlPrefix string
	now       func() time.Time
}

func NewLocalStore(root, urlPrefix string) *LocalStore {
	return &LocalStore{
		root:      root,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
		now:       time.Now,
	}
}

func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Upload(_ context.Context, folder string, data []byte, contentType string) (string, error) {
	dir := filepath.Join(s.root, filepath.FromSlash(folder))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	filename := fmt.Sprintf("%s-%s%s",
		s.now().Format("20060102-150405"),
		uuid.New().String()[:8],
		extensionFor(contentType),
	)

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return s.urlPrefix + "/" + strings.Trim(folder, "/") + "/" + filename, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	baseAbs, err := filepath.Abs(s.root)
	if err != nil {
		return fmt.Errorf("invalid base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil {
		return fmt.Errorf("invalid file path: %w", err)
	}
	if !strings.HasPrefix(absPath, baseAbs+string(filepath.Separator)) {
		return fmt.Errorf("file path outside uploads directory")
	}

	if err := os.Remove(absPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", key)
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalStore) KeyFromURL(url string) (string, bool) {
	key := strings.TrimPrefix(url, s.urlPrefix+"/")
	if key == url || key == "" {
		return "", false
	}
	return key, true
}
