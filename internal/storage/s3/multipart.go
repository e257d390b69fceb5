package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"
)

const (
	// S3 requires at least 5MB for every part but the last
	DefaultPartSize = 10 * 1024 * 1024
	// Parts in flight at once; each holds one part buffer
	DefaultConcurrency = 5
	// Maximum attempts per part
	maxRetries = 3
)

// upload streams r to key. Bodies that fit in one part go up with a single
// PutObject; larger ones use a multipart upload with parts sent concurrently.
func (s *Store) upload(ctx context.Context, key string, r io.Reader) error {
	first, eof, err := readPart(r, s.partSize)
	if err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}
	if eof {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.config.BucketName),
			Key:         aws.String(key),
			Body:        bytes.NewReader(first),
			ContentType: aws.String("application/octet-stream"),
		})
		if err != nil {
			return fmt.Errorf("failed to store video: %w", err)
		}
		return nil
	}

	createResp, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(s.config.BucketName),
		Key:         aws.String(key),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("failed to create multipart upload: %w", err)
	}
	uploadID := aws.ToString(createResp.UploadId)

	parts, err := s.uploadParts(ctx, key, uploadID, first, r)
	if err != nil {
		// Abort with a fresh context so a cancelled request still cleans up.
		abortCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_, abortErr := s.client.AbortMultipartUpload(abortCtx, &s3.AbortMultipartUploadInput{
			Bucket:   aws.String(s.config.BucketName),
			Key:      aws.String(key),
			UploadId: aws.String(uploadID),
		})
		return errors.Join(err, abortErr)
	}

	_, err = s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.config.BucketName),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: parts,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to complete multipart upload: %w", err)
	}
	return nil
}

func (s *Store) uploadParts(ctx context.Context, key, uploadID string, first []byte, r io.Reader) ([]types.CompletedPart, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	var (
		mu    sync.Mutex
		parts []types.CompletedPart
	)

	upload := func(num int32, body []byte) {
		g.Go(func() error {
			part, err := s.uploadPart(gctx, key, uploadID, num, body)
			if err != nil {
				return err
			}
			mu.Lock()
			parts = append(parts, *part)
			mu.Unlock()
			return nil
		})
	}

	data, eof := first, false
	for partNumber := int32(1); ; partNumber++ {
		if len(data) > 0 {
			upload(partNumber, data)
		}
		if eof || gctx.Err() != nil {
			break
		}

		var err error
		data, eof, err = readPart(r, s.partSize)
		if err != nil {
			_ = g.Wait()
			return nil, fmt.Errorf("failed to read upload: %w", err)
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(parts, func(i, j int) bool {
		return aws.ToInt32(parts[i].PartNumber) < aws.ToInt32(parts[j].PartNumber)
	})
	return parts, nil
}

// uploadPart handles the upload of a single part with retries
func (s *Store) uploadPart(ctx context.Context, key, uploadID string, partNumber int32, data []byte) (*types.CompletedPart, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.retryDelay(attempt)):
			}
		}

		response, err := s.client.UploadPart(ctx, &s3.UploadPartInput{
			Bucket:     aws.String(s.config.BucketName),
			Key:        aws.String(key),
			PartNumber: aws.Int32(partNumber),
			UploadId:   aws.String(uploadID),
			Body:       bytes.NewReader(data),
		})
		if err == nil {
			return &types.CompletedPart{
				ETag:       response.ETag,
				PartNumber: aws.Int32(partNumber),
			}, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to upload part %d after %d attempts: %w", partNumber, maxRetries, lastErr)
}

// readPart reads up to size bytes. eof reports that r is exhausted.
func readPart(r io.Reader, size int) ([]byte, bool, error) {
	buf := make([]byte, size)
	n, err := io.ReadFull(r, buf)
	switch {
	case err == nil:
		return buf, false, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return buf[:n], true, nil
	default:
		return nil, false, err
	}
}

// quadraticBackoff waits attempt² seconds.
func quadraticBackoff(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * time.Second
}
