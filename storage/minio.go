package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/anuragpy07/Sausico/config"
	"github.com/anuragpy07/Sausico/logger"
)

// presignExpiry bounds how long a derived playback handle stays valid.
const presignExpiry = 6 * time.Hour

// MinioStore is the MinIO-backed ContentStore.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to MinIO and ensures the bucket exists.
func NewMinioStore(cfg *config.Config) (*MinioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		err = client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{
			Region: cfg.MinioRegion,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("created content bucket", logger.String("bucket", cfg.MinioBucket))
	}

	return &MinioStore{client: client, bucket: cfg.MinioBucket}, nil
}

// Put uploads the full payload in one object write.
func (s *MinioStore) Put(ctx context.Context, id string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	_, err := s.client.PutObject(ctx, s.bucket, id, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to store object %s: %w", id, err)
	}
	return nil
}

// Get downloads the object and its content type.
func (s *MinioStore) Get(ctx context.Context, id string) ([]byte, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, id, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("failed to open object %s: %w", id, err)
	}
	defer obj.Close()

	// GetObject is lazy; errors (including missing keys) surface on read.
	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to read object %s: %w", id, err)
	}

	stat, err := obj.Stat()
	if err != nil {
		if isNoSuchKey(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to stat object %s: %w", id, err)
	}

	return data, stat.ContentType, nil
}

// Exists checks object presence without downloading it.
func (s *MinioStore) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, id, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object %s: %w", id, err)
	}
	return true, nil
}

// Delete removes the object. MinIO treats removing a missing key as success.
func (s *MinioStore) Delete(ctx context.Context, id string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, id, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", id, err)
	}
	return nil
}

// ListKeys returns all object keys in the bucket.
func (s *MinioStore) ListKeys(ctx context.Context) ([]string, error) {
	keys := make([]string, 0)
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		keys = append(keys, object.Key)
	}
	return keys, nil
}

// Clear removes every object in the bucket.
func (s *MinioStore) Clear(ctx context.Context) error {
	keys, err := s.ListKeys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// URL presigns a fresh GET handle for the object.
func (s *MinioStore) URL(ctx context.Context, id string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, id, presignExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %w", id, err)
	}
	return u.String(), nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
