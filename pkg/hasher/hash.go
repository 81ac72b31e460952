// Package hasher produces hex encoded SHA-256 digests, used to store refresh tokens.
package hasher

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

func Hash(s string) string {
	return SumBytes([]byte(s))
}

// Verify compares in constant time.
func Verify(s, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(Hash(s)), []byte(hash)) == 1
}

func SumBytes(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
