package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// ImageRef derives the content-addressed reference for an image: hex SHA-256
// over the raw bytes. The same derivation produces conversation history
// markers and receipt_id values, so an image uploaded in chat and the receipt
// extracted from it share one key. Two distinct receipts with byte-identical
// images would collide; that is accepted as a design invariant rather than
// silently resolved by overwrite (the second store is rejected as a duplicate).
func ImageRef(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// IsImageRef reports whether s looks like a content-addressed reference
// (64 lowercase hex characters).
func IsImageRef(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
