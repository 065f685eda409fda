package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

const qrTokenBytes = 32

// HashToken hashes the raw QR token using the same strategy as token creation.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// NewToken returns a fresh single-use secret and the hash stored in its place.
func NewToken() (string, string, error) {
	secret := make([]byte, qrTokenBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", "", err
	}
	plain := base64.RawURLEncoding.EncodeToString(secret)
	return plain, HashToken(plain), nil
}
