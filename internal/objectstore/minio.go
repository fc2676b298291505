// Package objectstore keeps catch photos in a MinIO (S3 compatible) bucket.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// PhotoStore implements ports.PhotoStore.
type PhotoStore struct {
	client *minio.Client
	bucket string
}

func New(cfg Config) (*PhotoStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &PhotoStore{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *PhotoStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Delete removes the object a photo URL points to. Missing objects are not an
// error.
func (s *PhotoStore) Delete(ctx context.Context, photoURL string) error {
	key, err := ObjectKey(photoURL, s.bucket)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

// ObjectKey extracts the object key of bucket from a photo reference. Full
// URLs must contain the bucket as a path segment (path-style MinIO URLs and
// public storage URLs both do); anything else is taken as a bare key.
func ObjectKey(photoURL, bucket string) (string, error) {
	ref := strings.TrimSpace(photoURL)
	if ref == "" {
		return "", errors.New("empty photo url")
	}

	if !strings.Contains(ref, "://") {
		key := strings.TrimPrefix(strings.TrimPrefix(ref, "/"), bucket+"/")
		if key == "" {
			return "", fmt.Errorf("photo url %q has no object key", photoURL)
		}
		return key, nil
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse photo url: %w", err)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if seg == bucket && i+1 < len(segments) {
			key, err := url.PathUnescape(strings.Join(segments[i+1:], "/"))
			if err != nil {
				return "", fmt.Errorf("unescape object key: %w", err)
			}
			return key, nil
		}
	}
	return "", fmt.Errorf("photo url %q is not in bucket %s", photoURL, bucket)
}
