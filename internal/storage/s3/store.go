package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"vesflix/internal/core/ports"
	"vesflix/internal/storage"
)

// API is the subset of the S3 client the store uses.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

type Store struct {
	client API
	config storage.Config

	partSize    int
	concurrency int
	retryDelay  func(attempt int) time.Duration
}

var _ ports.BlobStore = (*Store)(nil)

func New(client API, config storage.Config) *Store {
	return &Store{
		client:      client,
		config:      config,
		partSize:    DefaultPartSize,
		concurrency: DefaultConcurrency,
		retryDelay:  quadraticBackoff,
	}
}

func (s *Store) key(blobPath string) string {
	return path.Join(s.config.VideoPrefix, blobPath)
}

// Open streams the object body. The caller closes it.
func (s *Store) Open(ctx context.Context, blobPath string) (io.ReadCloser, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.BucketName),
		Key:    aws.String(s.key(blobPath)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrBlobNotFound, blobPath)
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return result.Body, nil
}

// Put uploads the blob, streaming large bodies as a multipart upload.
func (s *Store) Put(ctx context.Context, blobPath string, r io.Reader) error {
	return s.upload(ctx, s.key(blobPath), r)
}

func (s *Store) Size(ctx context.Context, blobPath string) (int64, error) {
	result, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.config.BucketName),
		Key:    aws.String(s.key(blobPath)),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("%w: %s", storage.ErrBlobNotFound, blobPath)
		}
		return 0, fmt.Errorf("failed to head video: %w", err)
	}
	return aws.ToInt64(result.ContentLength), nil
}

func (s *Store) Delete(ctx context.Context, blobPath string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.BucketName),
		Key:    aws.String(s.key(blobPath)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	return nil
}

// GetConfig returns the store configuration
func (s *Store) GetConfig() storage.Config {
	return s.config
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}
