package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"vesflix/internal/storage"
)

// DefaultConfig provides default configuration values
var DefaultConfig = storage.Config{
	BucketName:  "vesflix-video-storage",
	Region:      "us-east-1",
	VideoPrefix: "videos/",
}

// NewS3Client builds the SDK client, honouring a custom endpoint for
// S3-compatible servers.
func NewS3Client(cfg aws.Config, config storage.Config) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
		o.UsePathStyle = config.UsePathStyle
	})
}

// NewClient creates a new S3 blob store and verifies the bucket is reachable.
func NewClient(ctx context.Context, cfg aws.Config, opts ...func(*storage.Config)) (*Store, error) {
	config := DefaultConfig
	if cfg.Region != "" {
		config.Region = cfg.Region
	}
	for _, opt := range opts {
		opt(&config)
	}

	client := NewS3Client(cfg, config)

	// Verify bucket exists and is accessible
	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(config.BucketName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %s: %w", config.BucketName, err)
	}

	return New(client, config), nil
}

// WithBucket sets the bucket name.
func WithBucket(bucket string) func(*storage.Config) {
	return func(c *storage.Config) {
		if bucket != "" {
			c.BucketName = bucket
		}
	}
}

// WithPrefix sets the key prefix for video blobs.
func WithPrefix(video string) func(*storage.Config) {
	return func(c *storage.Config) {
		if video != "" {
			c.VideoPrefix = video
		}
	}
}

// WithEndpoint targets an S3-compatible server (MinIO, LocalStack).
func WithEndpoint(endpoint string, pathStyle bool) func(*storage.Config) {
	return func(c *storage.Config) {
		c.Endpoint = endpoint
		c.UsePathStyle = pathStyle
	}
}
