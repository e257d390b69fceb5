package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"vesflix/internal/core/domain"
	"vesflix/internal/pkg/crypto/aes"
)

// Encrypt streams input.Reader through AES-256-CBC. The returned reader yields
// the blob layout [IV][ciphertext]; the IV is generated per call.
func (s *EncryptionService) Encrypt(ctx context.Context, input domain.EncryptionInput) (*domain.EncryptionOutput, error) {
	var key []byte
	var err error
	if input.Key == "" {
		key, err = s.encryptor.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate key: %w", err)
		}
	} else {
		key, err = aes.ParseHexKey(input.Key)
		if err != nil {
			return nil, domain.NewCryptoError("encrypt", err)
		}
	}

	iv, err := s.encryptor.GenerateIV()
	if err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	mode, err := s.encryptor.NewEncrypter(key, iv)
	if err != nil {
		return nil, domain.NewCryptoError("encrypt", err)
	}

	chunkSize := alignedChunkSize(input.Options.ChunkSize, s.chunkSize)

	// Create a pipe for streaming encrypted data
	pr, pw := io.Pipe()

	go func() {
		if _, err := pw.Write(iv); err != nil {
			pw.CloseWithError(fmt.Errorf("failed to write IV: %w", err))
			return
		}

		buffer := make([]byte, chunkSize)
		for {
			select {
			case <-ctx.Done():
				pw.CloseWithError(ctx.Err())
				return
			default:
			}

			n, err := io.ReadFull(input.Reader, buffer)
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				// Final (possibly empty) tail gets PKCS#7 padding.
				final := aes.Pad(buffer[:n:n])
				mode.CryptBlocks(final, final)
				if _, err := pw.Write(final); err != nil {
					pw.CloseWithError(fmt.Errorf("failed to write final block: %w", err))
					return
				}
				pw.Close()
				return
			}
			if err != nil {
				pw.CloseWithError(domain.NewStreamIOError("read plaintext", err))
				return
			}

			mode.CryptBlocks(buffer, buffer)
			if _, err := pw.Write(buffer); err != nil {
				pw.CloseWithError(fmt.Errorf("failed to write encrypted data: %w", err))
				return
			}
		}
	}()

	return &domain.EncryptionOutput{
		EncryptedReader: pr,
		Key:             hex.EncodeToString(key),
		IV:              iv,
		Algorithm:       Algorithm,
		CreatedAt:       time.Now().UTC(),
	}, nil
}
