package mocks

import (
	"bytes"
	"crypto/cipher"

	"vesflix/internal/pkg/crypto/aes"
)

// MockEncryptor delegates to a real AES-CBC encryptor unless a func field is
// overridden. Keys and IVs are deterministic.
type MockEncryptor struct {
	GenerateKeyFunc  func() ([]byte, error)
	GenerateIVFunc   func() ([]byte, error)
	NewEncrypterFunc func(key []byte, iv []byte) (cipher.BlockMode, error)
	NewDecrypterFunc func(key []byte, iv []byte) (cipher.BlockMode, error)

	IVCalls int
}

func NewMockEncryptor() *MockEncryptor {
	impl := aes.NewAESEncryptor(aes.KeySize)
	m := &MockEncryptor{
		GenerateKeyFunc: func() ([]byte, error) {
			return bytes.Repeat([]byte{1}, aes.KeySize), nil
		},
		NewEncrypterFunc: impl.NewEncrypter,
		NewDecrypterFunc: impl.NewDecrypter,
	}
	m.GenerateIVFunc = func() ([]byte, error) {
		return bytes.Repeat([]byte{byte(m.IVCalls)}, aes.IVSize), nil
	}
	return m
}

func (m *MockEncryptor) GenerateKey() ([]byte, error) {
	return m.GenerateKeyFunc()
}

func (m *MockEncryptor) GenerateIV() ([]byte, error) {
	m.IVCalls++
	return m.GenerateIVFunc()
}

func (m *MockEncryptor) NewEncrypter(key []byte, iv []byte) (cipher.BlockMode, error) {
	return m.NewEncrypterFunc(key, iv)
}

func (m *MockEncryptor) NewDecrypter(key []byte, iv []byte) (cipher.BlockMode, error) {
	return m.NewDecrypterFunc(key, iv)
}
