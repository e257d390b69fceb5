package service

import (
	"context"
	"io"

	"vesflix/internal/core/domain"
	"vesflix/internal/core/ports"
)

const (
	Algorithm = "AES-256-CBC"

	// DefaultChunkSize is the pump buffer size. It must stay a multiple of
	// the AES block size.
	DefaultChunkSize = 64 * 1024
)

type Service interface {
	Encrypt(ctx context.Context, input domain.EncryptionInput) (*domain.EncryptionOutput, error)
	Decrypt(ctx context.Context, encryptedData io.Reader, hexKey string) (io.ReadCloser, error)
}

type EncryptionService struct {
	encryptor ports.Encryptor
	chunkSize int
}

var _ ports.CipherStream = (*EncryptionService)(nil)

func NewService(encryptor ports.Encryptor) Service {
	return &EncryptionService{
		encryptor: encryptor,
		chunkSize: DefaultChunkSize,
	}
}
