package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// DefaultOpaqueSize gives 256 bits of entropy.
const DefaultOpaqueSize = 32

// Opaque returns size random bytes from crypto/rand, base64url encoded.
// Sizes below 16 bytes (128 bits) are raised to 16.
func Opaque(size int) (string, error) {
	size = max(size, 16)
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hasher derives the at-rest form of opaque tokens. The keyed hash lets the
// store index tokens without keeping anything that can be redeemed.
type Hasher struct {
	secret []byte
}

// NewHasher keys an HMAC-SHA256 with secret. An empty secret is rejected.
func NewHasher(secret string) (*Hasher, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Hasher{secret: []byte(secret)}, nil
}

// Hash returns HMAC-SHA256(secret, token).
func (h *Hasher) Hash(token string) []byte {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(token))
	return mac.Sum(nil)
}

// Matches compares token against a stored hash in constant time.
func (h *Hasher) Matches(token string, stored []byte) bool {
	return subtle.ConstantTimeCompare(h.Hash(token), stored) == 1
}
