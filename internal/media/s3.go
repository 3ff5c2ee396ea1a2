package media

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
)

// S3Store serves images from a bucket, optionally behind CloudFront.
type S3Store struct {
	client  s3iface.S3API
	bucket  string
	baseURL string
	now     func() time.Time
}

func NewS3Store(bucket, region, cloudFrontURL string) (*S3Store, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return NewS3StoreWithClient(s3.New(sess), bucket, region, cloudFrontURL), nil
}

func NewS3StoreWithClient(client s3iface.S3API, bucket, region, cloudFrontURL string) *S3Store {
	baseURL := strings.TrimRight(cloudFrontURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &S3Store{client: client, bucket: bucket, baseURL: baseURL, now: time.Now}
}

func (s *S3Store) Upload(ctx context.Context, folder string, data []byte, contentType string) (string, error) {
	key := path.Join(folder, s.now().Format("2006/01"), uuid.New().String()+extensionFor(contentType))

	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         aws.String("public-read"),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	return s.baseURL + "/" + key, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// KeyFromURL accepts URLs under the configured base URL and plain bucket URLs,
// e.g. https://bucket.s3.region.amazonaws.com/avatars/2024/01/uuid.jpg -> avatars/2024/01/uuid.jpg.
func (s *S3Store) KeyFromURL(raw string) (string, bool) {
	if key := strings.TrimPrefix(raw, s.baseURL+"/"); key != raw {
		return key, key != ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	if !strings.HasPrefix(u.Host, s.bucket+".s3.") || !strings.HasSuffix(u.Host, ".amazonaws.com") {
		return "", false
	}
	key := strings.TrimPrefix(u.Path, "/")
	return key, key != ""
}
