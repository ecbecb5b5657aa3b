// Package media stores chat attachments in S3-compatible object storage.
package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const prefix = "chat-media"

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the base used to build links handed to WhatsApp. Defaults
	// to the endpoint.
	PublicURL string
}

type Uploader struct {
	client    *minio.Client
	bucket    string
	publicURL string
	now       func() time.Time
}

func New(cfg Config) (*Uploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("media: init client: %w", err)
	}
	public := cfg.PublicURL
	if public == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		public = scheme + "://" + cfg.Endpoint
	}
	return &Uploader{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(public, "/"),
		now:       time.Now,
	}, nil
}

// EnsureBucket creates the bucket when missing.
func (u *Uploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("media: check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("media: create bucket: %w", err)
	}
	return nil
}

// ObjectName places an upload under chat-media/ keeping only the original
// extension.
func ObjectName(at time.Time, filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s/chat_%d.%s", prefix, at.UnixMilli(), ext)
}

// Kind maps a MIME type to the media type names the messaging API expects.
func Kind(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	case strings.HasPrefix(contentType, "audio/"):
		return "audio"
	}
	return "document"
}

// Upload stores r and returns its public URL.
func (u *Uploader) Upload(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error) {
	name := ObjectName(u.now(), filename)
	if _, err := u.client.PutObject(ctx, u.bucket, name, r, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("media: upload %s: %w", name, err)
	}
	return u.URL(name), nil
}

func (u *Uploader) URL(object string) string {
	return u.publicURL + "/" + u.bucket + "/" + object
}
