package storage

import "errors"

// ErrBlobNotFound is returned by blob stores when the object does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// Config holds configuration for blob storage backends
type Config struct {
	BucketName   string
	Region       string
	VideoPrefix  string
	Endpoint     string // optional S3-compatible endpoint (MinIO, LocalStack)
	UsePathStyle bool
	LocalRoot    string // root directory for the local backend
}
