// vesflix/internal/core/ports/encryption.go
package ports

import (
	"context"
	"crypto/cipher"
	"io"

	"vesflix/internal/core/domain"
)

// CipherStream encrypts and decrypts whole blobs as streams. There is no
// range-aware decrypt: CBC output has to be produced from the first block.
type CipherStream interface {
	Encrypt(ctx context.Context, input domain.EncryptionInput) (*domain.EncryptionOutput, error)
	Decrypt(ctx context.Context, encryptedData io.Reader, hexKey string) (io.ReadCloser, error)
}

type Encryptor interface {
	GenerateKey() ([]byte, error)
	GenerateIV() ([]byte, error)
	NewEncrypter(key []byte, iv []byte) (cipher.BlockMode, error)
	NewDecrypter(key []byte, iv []byte) (cipher.BlockMode, error)
}
