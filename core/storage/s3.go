package storage

import (
	"context"
	"fmt"
	"time"

	"tripfluence-api/core/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Storage resolves media object keys into presigned URLs so provider
// adapters can hand external platforms a fetchable image URL without the
// bucket being public.
type Storage struct {
	bucket    string
	presigner *s3.PresignClient
	ttl       time.Duration
}

type StorageConfig struct {
	Bucket     string
	Region     string
	AccessKey  string
	SecretKey  string
	PresignTTL time.Duration
}

func NewStorage(config StorageConfig) *Storage {
	client := s3.New(s3.Options{
		Region: config.Region,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(config.AccessKey, config.SecretKey, ""),
		),
	})

	logger.Info("Storage initialized", "bucket", config.Bucket, "region", config.Region)

	return &Storage{
		bucket:    config.Bucket,
		presigner: s3.NewPresignClient(client),
		ttl:       config.PresignTTL,
	}
}

// PresignMediaURL returns a time-limited GET URL for an object key.
func (s *Storage) PresignMediaURL(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign media url for %s: %w", key, err)
	}
	return req.URL, nil
}
