package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/garyjia/expense-claims/internal/application/port"
)

// S3Config configures an S3-compatible bucket
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// S3FileStorage implements port.FileStorage on an S3/MinIO bucket.
// Relative paths are used as object keys.
type S3FileStorage struct {
	client *minio.Client
	bucket string
	region string
	logger *zap.Logger
}

// NewS3FileStorage creates a MinIO client for the configured bucket
func NewS3FileStorage(cfg S3Config, logger *zap.Logger) (*S3FileStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init minio client: %w", err)
	}
	return &S3FileStorage{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		logger: logger,
	}, nil
}

// EnsureBucket creates the bucket if it does not exist yet
func (s *S3FileStorage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("failed to make bucket %s: %w", s.bucket, err)
	}
	s.logger.Info("Created storage bucket", zap.String("bucket", s.bucket))
	return nil
}

// Save uploads content under the object key path
func (s *S3FileStorage) Save(ctx context.Context, path string, content []byte, contentType string) error {
	key, err := objectKey(path)
	if err != nil {
		return err
	}

	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(content), int64(len(content)), opts); err != nil {
		s.logger.Error("Failed to upload object",
			zap.String("bucket", s.bucket),
			zap.String("key", key),
			zap.Error(err))
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// Open returns a reader for the object. The object is stat'ed first so a
// missing key surfaces as port.ErrFileNotFound instead of a failed read.
func (s *S3FileStorage) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	key, err := objectKey(path)
	if err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if isNoSuchKey(err) {
			return nil, port.ErrFileNotFound
		}
		s.logger.Error("Failed to stat object", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}
	return obj, nil
}

// Exists reports whether the object exists
func (s *S3FileStorage) Exists(ctx context.Context, path string) bool {
	key, err := objectKey(path)
	if err != nil {
		return false
	}
	_, err = s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	return err == nil
}

// Delete removes the object; removing a missing key succeeds
func (s *S3FileStorage) Delete(ctx context.Context, path string) error {
	key, err := objectKey(path)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return nil
		}
		s.logger.Error("Failed to remove object", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to remove object: %w", err)
	}
	return nil
}

// List returns every object whose key starts with prefix
func (s *S3FileStorage) List(ctx context.Context, prefix string) ([]port.StoredFile, error) {
	var files []port.StoredFile
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    strings.TrimPrefix(prefix, "/"),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		files = append(files, port.StoredFile{
			Path:    obj.Key,
			Size:    obj.Size,
			ModTime: obj.LastModified,
		})
	}
	return files, nil
}

func objectKey(path string) (string, error) {
	key := strings.TrimPrefix(path, "/")
	if key == "" {
		return "", fmt.Errorf("empty object key")
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", fmt.Errorf("path escapes bucket: %s", path)
		}
	}
	return key, nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

// Verify interface compliance
var _ port.FileStorage = (*S3FileStorage)(nil)
