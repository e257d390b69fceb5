// vesflix/internal/pkg/crypto/aes/aes_test.go
package aes

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func TestAESEncryption(t *testing.T) {
	tests := []struct {
		name      string
		inputData []byte
	}{
		{
			name:      "Basic encryption/decryption",
			inputData: []byte("Hello, this is a test message!"),
		},
		{
			name:      "Empty data",
			inputData: []byte(""),
		},
		{
			name:      "Exact block",
			inputData: bytes.Repeat([]byte{7}, BlockSize),
		},
		{
			name:      "Large data",
			inputData: bytes.Repeat([]byte("Large data test "), 1000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encryptor := NewAESEncryptor(KeySize)

			key, err := encryptor.GenerateKey()
			if err != nil {
				t.Fatalf("Failed to generate key: %v", err)
			}
			iv, err := encryptor.GenerateIV()
			if err != nil {
				t.Fatalf("Failed to generate IV: %v", err)
			}

			enc, err := encryptor.NewEncrypter(key, iv)
			if err != nil {
				t.Fatalf("NewEncrypter() error = %v", err)
			}
			padded := Pad(append([]byte(nil), tt.inputData...))
			ciphertext := make([]byte, len(padded))
			enc.CryptBlocks(ciphertext, padded)

			if len(tt.inputData) > 0 && bytes.Contains(ciphertext, tt.inputData) {
				t.Error("Ciphertext contains the plaintext")
			}

			dec, err := encryptor.NewDecrypter(key, iv)
			if err != nil {
				t.Fatalf("NewDecrypter() error = %v", err)
			}
			plain := make([]byte, len(ciphertext))
			dec.CryptBlocks(plain, ciphertext)

			got, err := Unpad(plain)
			if err != nil {
				t.Fatalf("Unpad() error = %v", err)
			}
			if !bytes.Equal(got, tt.inputData) {
				t.Errorf("Decrypted data doesn't match original")
			}
		})
	}
}

func TestGenerateIVIsUnique(t *testing.T) {
	encryptor := NewAESEncryptor(KeySize)
	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		iv, err := encryptor.GenerateIV()
		if err != nil {
			t.Fatalf("GenerateIV() error = %v", err)
		}
		if len(iv) != IVSize {
			t.Fatalf("IV size = %d, want %d", len(iv), IVSize)
		}
		if seen[string(iv)] {
			t.Fatal("GenerateIV() returned a repeated IV")
		}
		seen[string(iv)] = true
	}
}

func TestInvalidKeyAndIV(t *testing.T) {
	encryptor := NewAESEncryptor(KeySize)

	if _, err := encryptor.NewEncrypter(make([]byte, 16), make([]byte, IVSize)); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("short key error = %v, want ErrInvalidKey", err)
	}
	if _, err := encryptor.NewDecrypter(make([]byte, KeySize), make([]byte, 12)); err == nil ||
		!strings.Contains(err.Error(), "invalid IV size") {
		t.Errorf("short IV error = %v", err)
	}
}

func TestParseHexKey(t *testing.T) {
	valid := hex.EncodeToString(bytes.Repeat([]byte{0xab}, KeySize))

	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "valid", in: valid},
		{name: "not hex", in: strings.Repeat("zz", KeySize), wantErr: true},
		{name: "too short", in: valid[:32], wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ParseHexKey(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHexKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidKey) {
				t.Errorf("error %v is not ErrInvalidKey", err)
			}
			if !tt.wantErr && len(key) != KeySize {
				t.Errorf("key length = %d", len(key))
			}
		})
	}
}

func TestUnpadRejectsCorruptPadding(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{name: "empty", in: nil},
		{name: "not aligned", in: make([]byte, 15)},
		{name: "zero pad byte", in: make([]byte, BlockSize)},
		{name: "pad larger than block", in: append(make([]byte, BlockSize-1), 17)},
		{name: "inconsistent pad", in: append(bytes.Repeat([]byte{1}, BlockSize-2), 3, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Unpad(tt.in); !errors.Is(err, ErrInvalidPadding) {
				t.Errorf("Unpad() error = %v, want ErrInvalidPadding", err)
			}
		})
	}
}
