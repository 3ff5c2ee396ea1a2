// Package media stores user avatars on S3 or on local disk.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"
)

//go:generate mockgen -destination=mock_store_test.go -package=media_test github.com/Kyz7/blogaccount/internal/media ImageStore

// ImageStore is an external image host addressed by key.
type ImageStore interface {
	// Upload stores data under folder and returns its public URL.
	Upload(ctx context.Context, folder string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	// KeyFromURL derives the storage key of a URL this store produced.
	KeyFromURL(url string) (string, bool)
}

const DefaultMaxImageBytes = 5 * 1024 * 1024

var (
	ErrInvalidImage     = errors.New("image is not valid base64 image data")
	ErrUnsupportedImage = errors.New("image must be a PNG, JPEG or GIF")
	ErrImageTooLarge    = errors.New("image is too large")
)

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
}

// DecodeImage accepts raw base64 or a data URL and returns the bytes and their
// sniffed content type.
func DecodeImage(encoded string, maxBytes int) ([]byte, string, error) {
	payload := strings.TrimSpace(encoded)
	if strings.HasPrefix(payload, "data:") {
		i := strings.Index(payload, ",")
		if i < 0 {
			return nil, "", ErrInvalidImage
		}
		payload = payload[i+1:]
	}

	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(payload)) > maxBytes+2 {
		return nil, "", ErrImageTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(payload)
	}
	if err != nil || len(data) == 0 {
		return nil, "", ErrInvalidImage
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return nil, "", ErrImageTooLarge
	}

	contentType := http.DetectContentType(data)
	if _, ok := imageExtensions[contentType]; !ok {
		return nil, "", ErrUnsupportedImage
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, "", ErrInvalidImage
	}
	return data, contentType, nil
}

func extensionFor(contentType string) string {
	if ext, ok := imageExtensions[contentType]; ok {
		return ext
	}
	return ""
}
