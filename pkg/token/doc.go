// Package token creates the secrets the platform hands out.
//
// Two kinds exist:
//
//   - Opaque tokens are random, URL-safe strings. Only a keyed hash of them
//     is ever stored (see Hasher), so a leaked table cannot be replayed.
//     Invitation tokens are opaque.
//   - Signed tokens carry a JSON payload followed by an HMAC-SHA256
//     signature. They need no storage and are used for sessions.
//
// # Usage
//
//	tok, err := token.Opaque(token.DefaultOpaqueSize)
//	hasher, err := token.NewHasher(secret)
//	stored := hasher.Hash(tok)
//	ok := hasher.Matches(presented, stored)
//
//	signed, err := token.GenerateToken(claims, secret)
//	claims, err := token.ParseToken[sessionClaims](signed, secret)
//
// Signatures and hashes are compared in constant time.
//
// # Errors
//
// ParseToken returns ErrInvalidToken for malformed input and
// ErrSignatureInvalid when the signature does not match. An empty secret
// is rejected everywhere with ErrEmptySecret.
package token
