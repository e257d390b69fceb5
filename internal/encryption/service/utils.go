package service

import "vesflix/internal/pkg/crypto/aes"

// alignedChunkSize picks the requested chunk size, falling back to def, and
// rounds it down to a whole number of AES blocks.
func alignedChunkSize(requested, def int) int {
	size := requested
	if size <= 0 {
		size = def
	}
	size -= size % aes.BlockSize
	if size < aes.BlockSize {
		size = aes.BlockSize
	}
	return size
}
