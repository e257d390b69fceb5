package service

import (
	"context"
	"fmt"
	"io"

	"vesflix/internal/core/domain"
	"vesflix/internal/pkg/crypto/aes"
)

// Decrypt reads the IV prefix synchronously so that a short source or a bad
// key fails before any plaintext is produced, then decrypts the remainder in a
// goroutine. Errors after that point surface from the returned reader.
// Closing the reader stops the goroutine.
func (s *EncryptionService) Decrypt(ctx context.Context, encryptedData io.Reader, hexKey string) (io.ReadCloser, error) {
	key, err := aes.ParseHexKey(hexKey)
	if err != nil {
		return nil, domain.NewCryptoError("decrypt", err)
	}

	iv := make([]byte, aes.IVSize)
	if _, err := io.ReadFull(encryptedData, iv); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, domain.NewCryptoError("decrypt", fmt.Errorf("source shorter than %d-byte IV", aes.IVSize))
		}
		return nil, domain.NewStreamIOError("read IV", err)
	}

	mode, err := s.encryptor.NewDecrypter(key, iv)
	if err != nil {
		return nil, domain.NewCryptoError("decrypt", err)
	}

	pr, pw := io.Pipe()

	go func() {
		buffer := make([]byte, s.chunkSize)
		// The last block is held back until EOF because it carries the padding.
		held := make([]byte, 0, aes.BlockSize)

		for {
			select {
			case <-ctx.Done():
				pw.CloseWithError(ctx.Err())
				return
			default:
			}

			n, err := io.ReadFull(encryptedData, buffer)
			if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
				pw.CloseWithError(domain.NewStreamIOError("read ciphertext", err))
				return
			}
			if n > 0 {
				if n%aes.BlockSize != 0 {
					pw.CloseWithError(domain.NewCryptoError("decrypt", fmt.Errorf("ciphertext is not a multiple of the block size")))
					return
				}
				chunk := buffer[:n]
				mode.CryptBlocks(chunk, chunk)

				if len(held) > 0 {
					if _, werr := pw.Write(held); werr != nil {
						pw.CloseWithError(werr)
						return
					}
				}
				if _, werr := pw.Write(chunk[:n-aes.BlockSize]); werr != nil {
					pw.CloseWithError(werr)
					return
				}
				held = append(held[:0], chunk[n-aes.BlockSize:]...)
			}
			if err != nil {
				break
			}
		}

		if len(held) == 0 {
			pw.CloseWithError(domain.NewCryptoError("decrypt", fmt.Errorf("empty ciphertext")))
			return
		}
		tail, err := aes.Unpad(held)
		if err != nil {
			pw.CloseWithError(domain.NewCryptoError("decrypt", err))
			return
		}
		if _, err := pw.Write(tail); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.Close()
	}()

	return pr, nil
}
