package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/voicebridge/voicebridge/internal/config"
	"github.com/voicebridge/voicebridge/pkg/logger"
)

// S3Uploader stores recordings in an S3 bucket under
// recordings/<owner>/<filename>.
type S3Uploader struct {
	client *s3.Client
	bucket string
	region string
	logger logger.Logger
}

// NewS3Uploader resolves AWS credentials and builds the S3 client. When the
// access keys are empty the SDK's default provider chain applies.
func NewS3Uploader(ctx context.Context, cfg config.StorageConfig, log logger.Logger) (*S3Uploader, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("storage not configured: bucket and region are required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &S3Uploader{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		region: cfg.Region,
		logger: log,
	}, nil
}

// Upload puts the file at localPath into the bucket.
func (u *S3Uploader) Upload(ctx context.Context, localPath, ownerID string) (string, string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	key := fmt.Sprintf("recordings/%s/%s", ownerID, filepath.Base(localPath))
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("audio/wav"),
	})
	if err != nil {
		return "", "", fmt.Errorf("put s3://%s/%s: %w", u.bucket, key, err)
	}

	url := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key)
	u.logger.Debugf("[upload] put object key=%s bucket=%s", key, u.bucket)
	return url, key, nil
}
