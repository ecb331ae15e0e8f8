// Package storage persists uploaded images (post covers and author avatars)
// in S3-compatible object storage.
//
// WHY OBJECT STORAGE INSTEAD OF THE DATABASE?
// Images are large, immutable blobs served straight to browsers. Keeping
// them out of SQLite keeps the database small and the backup story simple;
// the database only ever stores the resulting public URL.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/xid"
)

// ObjectStore uploads an image under a logical prefix ("covers", "avatars")
// and returns its public URL.
type ObjectStore interface {
	Upload(ctx context.Context, prefix, fileName string, r io.Reader, size int64) (string, error)
	Delete(ctx context.Context, objectName string) error
}

// Options configures the MinIO-backed store.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinIOStore implements ObjectStore against any S3-compatible endpoint
// (MinIO in dev/compose, S3 or a compatible service in production).
type MinIOStore struct {
	client *minio.Client
	bucket string
	// baseURL is the scheme+endpoint prefix for public links.
	baseURL string
}

var _ ObjectStore = (*MinIOStore)(nil)

// NewMinIO connects to the object store and ensures the bucket exists.
func NewMinIO(ctx context.Context, opts Options) (*MinIOStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: creating minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("storage: checking bucket %q: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("storage: creating bucket %q: %w", opts.Bucket, err)
		}
	}

	scheme := "http"
	if opts.UseSSL {
		scheme = "https"
	}

	return &MinIOStore{
		client:  client,
		bucket:  opts.Bucket,
		baseURL: fmt.Sprintf("%s://%s", scheme, opts.Endpoint),
	}, nil
}

// Upload stores the image under prefix/YYYY/MM/<id><ext> and returns the
// public URL. Object names never reuse the client's file name — a random id
// avoids collisions and path tricks in user-supplied names.
func (s *MinIOStore) Upload(ctx context.Context, prefix, fileName string, r io.Reader, size int64) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		ext = ".jpg"
	}

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	now := time.Now()
	objectName := fmt.Sprintf("%s/%d/%02d/%s%s",
		prefix, now.Year(), now.Month(), xid.New().String(), ext)

	_, err := s.client.PutObject(ctx, s.bucket, objectName, r, size,
		minio.PutObjectOptions{
			ContentType: contentType,
			UserMetadata: map[string]string{
				"original-filename": fileName,
				"uploaded-at":       now.Format(time.RFC3339),
			},
		})
	if err != nil {
		return "", fmt.Errorf("storage: uploading %s: %w", objectName, err)
	}

	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, objectName), nil
}

// Delete removes an object by name.
func (s *MinIOStore) Delete(ctx context.Context, objectName string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("storage: deleting %s: %w", objectName, err)
	}
	return nil
}
