package token_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xamu/xamu/pkg/token"
)

type claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
}

func TestGenerateAndParseToken(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		tok, err := token.GenerateToken(claims{UserID: "u1", Role: "teacher"}, "secret")
		require.NoError(t, err)
		assert.Len(t, strings.Split(tok, "."), 2)

		got, err := token.ParseToken[claims](tok, "secret")
		require.NoError(t, err)
		assert.Equal(t, claims{UserID: "u1", Role: "teacher"}, got)
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()

		tok, err := token.GenerateToken(claims{UserID: "u1"}, "secret")
		require.NoError(t, err)

		_, err = token.ParseToken[claims](tok, "other")
		assert.ErrorIs(t, err, token.ErrSignatureInvalid)
	})

	t.Run("tampered payload", func(t *testing.T) {
		t.Parallel()

		tok, err := token.GenerateToken(claims{UserID: "u1", Role: "teacher"}, "secret")
		require.NoError(t, err)
		_, sig, _ := strings.Cut(tok, ".")
		forged := base64.RawURLEncoding.EncodeToString([]byte(`{"uid":"u1","role":"platform-admin"}`)) + "." + sig

		_, err = token.ParseToken[claims](forged, "secret")
		assert.ErrorIs(t, err, token.ErrSignatureInvalid)
	})

	t.Run("malformed", func(t *testing.T) {
		t.Parallel()

		for _, bad := range []string{"", "abc", "a.b.c", "!!.??"} {
			_, err := token.ParseToken[claims](bad, "secret")
			assert.ErrorIs(t, err, token.ErrInvalidToken, bad)
		}
	})

	t.Run("empty secret refused", func(t *testing.T) {
		t.Parallel()

		_, err := token.GenerateToken(claims{}, "")
		assert.ErrorIs(t, err, token.ErrEmptySecret)
		_, err = token.ParseToken[claims]("a.b", "")
		assert.ErrorIs(t, err, token.ErrEmptySecret)
	})
}

func TestOpaque(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for range 1000 {
		tok, err := token.Opaque(token.DefaultOpaqueSize)
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(tok)
		require.NoError(t, err)
		require.Len(t, raw, token.DefaultOpaqueSize)

		_, dup := seen[tok]
		require.False(t, dup)
		seen[tok] = struct{}{}
	}

	short, err := token.Opaque(4)
	require.NoError(t, err)
	raw, _ := base64.RawURLEncoding.DecodeString(short)
	assert.Len(t, raw, 16)
}

func TestHasher(t *testing.T) {
	t.Parallel()

	_, err := token.NewHasher("")
	require.ErrorIs(t, err, token.ErrEmptySecret)

	h, err := token.NewHasher("pepper")
	require.NoError(t, err)

	stored := h.Hash("tok-1")
	assert.Len(t, stored, 32)
	assert.Equal(t, stored, h.Hash("tok-1"))
	assert.True(t, h.Matches("tok-1", stored))
	assert.False(t, h.Matches("tok-2", stored))

	other, _ := token.NewHasher("salt")
	assert.False(t, other.Matches("tok-1", stored))
}
