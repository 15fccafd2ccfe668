package media

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/authcove/authcove/services/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appconfig "github.com/authcove/authcove/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Service stores avatar and cover images in an S3-compatible bucket.
type Service struct {
	config *appconfig.StorageConfig
	client *s3.Client
	logger *logging.Service
}

func NewService(cfg *appconfig.Config, logger *logging.Service) (*Service, error) {
	storageCfg := &cfg.Storage

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(storageCfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			storageCfg.AccessKey,
			storageCfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load storage credentials: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if storageCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(storageCfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info("media storage initialized",
		zap.String("bucket", storageCfg.Bucket),
		zap.String("region", storageCfg.Region))

	return &Service{
		config: storageCfg,
		client: client,
		logger: logger,
	}, nil
}

// StorageKey builds a date-partitioned random object key under the given
// folder, e.g. avatars/2026/8/31/<uuid>.
func StorageKey(folder string) string {
	d := time.Now()
	return fmt.Sprintf("%s/%d/%d/%d/%v", folder, d.Year(), int(d.Month()), d.Day(), uuid.New())
}

// Upload writes the object and returns its key and public URL.
func (s *Service) Upload(ctx context.Context, folder, contentType string, body io.Reader) (string, string, error) {
	key := StorageKey(folder)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.logger.Error("failed to upload object",
			zap.Error(err),
			zap.String("key", key))
		return "", "", fmt.Errorf("failed to upload object: %w", err)
	}

	s.logger.Info("object uploaded", zap.String("key", key))
	return key, s.PublicURL(key), nil
}

// Delete removes an uploaded object. Used for compensating cleanup when
// registration fails after images were already stored.
func (s *Service) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.logger.Error("failed to delete object",
			zap.Error(err),
			zap.String("key", key))
		return fmt.Errorf("failed to delete object: %w", err)
	}

	s.logger.Info("object deleted", zap.String("key", key))
	return nil
}

func (s *Service) PublicURL(key string) string {
	if s.config.PublicURL != "" {
		return strings.TrimSuffix(s.config.PublicURL, "/") + "/" + key
	}
	if s.config.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.config.Endpoint, "/"), s.config.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.config.Bucket, s.config.Region, key)
}
