// Package storage provides the CV blob store.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	stderrors "jobtrack/internal/common/errors"
)

// FileStore is the blob-store contract the workflows depend on.
// Delete is idempotent: removing a path that does not exist is success.
type FileStore interface {
	Store(ctx context.Context, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, path string) error
}

// S3API is the subset of the S3 client used here, split out for mocking.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store stores CV files in an S3 bucket.
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

func NewS3Store(ctx context.Context, region, bucket, prefix string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &S3Store{client: s3.NewFromConfig(cfg), bucket: bucket, prefix: prefix}, nil
}

// NewS3StoreWithClient injects an S3 client, used by tests.
func NewS3StoreWithClient(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

// Store uploads data under a fresh collision-resistant key and returns it.
func (s *S3Store) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	key := fmt.Sprintf("%s/%d_%s%s", s.prefix, time.Now().Unix(), uuid.New().String(), extensionFor(contentType))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", stderrors.NewStorageError(fmt.Errorf("put object %s: %w", key, err))
	}

	return key, nil
}

// Delete removes the object at path. S3 DeleteObject succeeds for missing
// keys, which gives us the idempotency the callers rely on.
func (s *S3Store) Delete(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return stderrors.NewStorageError(fmt.Errorf("delete object %s: %w", path, err))
	}

	return nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "application/pdf":
		return ".pdf"
	default:
		return ""
	}
}
