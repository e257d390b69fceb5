// vesflix/internal/pkg/crypto/aes/aes.go
package aes

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	KeySize   = 32 // AES-256
	BlockSize = aes.BlockSize
	IVSize    = aes.BlockSize
)

var (
	ErrInvalidPadding = errors.New("invalid PKCS#7 padding")
	ErrInvalidKey     = errors.New("invalid key")
)

type AESEncryptor struct {
	keySize int
}

func NewAESEncryptor(keySize int) *AESEncryptor {
	return &AESEncryptor{
		keySize: keySize,
	}
}

func (e *AESEncryptor) GenerateKey() ([]byte, error) {
	key := make([]byte, e.keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// GenerateIV returns a fresh random IV. Every blob gets its own.
func (e *AESEncryptor) GenerateIV() ([]byte, error) {
	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}
	return iv, nil
}

func (e *AESEncryptor) NewEncrypter(key []byte, iv []byte) (cipher.BlockMode, error) {
	block, err := e.block(key, iv)
	if err != nil {
		return nil, err
	}
	return cipher.NewCBCEncrypter(block, iv), nil
}

func (e *AESEncryptor) NewDecrypter(key []byte, iv []byte) (cipher.BlockMode, error) {
	block, err := e.block(key, iv)
	if err != nil {
		return nil, err
	}
	return cipher.NewCBCDecrypter(block, iv), nil
}

func (e *AESEncryptor) block(key []byte, iv []byte) (cipher.Block, error) {
	// Validate inputs
	if len(key) != e.keySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, e.keySize, len(key))
	}

	if len(iv) != IVSize {
		return nil, fmt.Errorf("invalid IV size: expected %d, got %d", IVSize, len(iv))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return block, nil
}

// ParseHexKey decodes a hex key and checks that it is exactly KeySize bytes.
func ParseHexKey(hexKey string) ([]byte, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: not hex encoded", ErrInvalidKey)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, KeySize, len(key))
	}
	return key, nil
}

// Pad appends PKCS#7 padding. The result is always at least one block longer
// than the unpadded tail.
func Pad(data []byte) []byte {
	n := BlockSize - len(data)%BlockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

// Unpad strips PKCS#7 padding from the final plaintext block(s).
func Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%BlockSize != 0 {
		return nil, ErrInvalidPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > BlockSize || n > len(data) {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-n], nil
}
