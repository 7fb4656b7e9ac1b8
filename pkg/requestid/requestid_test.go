package requestid_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xamu/xamu/pkg/requestid"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	serve := func(header string) (string, string) {
		var seen string
		h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = requestid.FromContext(r.Context())
		}))
		req := httptest.NewRequest("GET", "/", nil)
		if header != "" {
			req.Header.Set(requestid.Header, header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return seen, rec.Header().Get(requestid.Header)
	}

	t.Run("keeps valid inbound id", func(t *testing.T) {
		t.Parallel()

		seen, echoed := serve("abc-123_X")
		assert.Equal(t, "abc-123_X", seen)
		assert.Equal(t, seen, echoed)
	})

	t.Run("generates when missing", func(t *testing.T) {
		t.Parallel()

		seen, echoed := serve("")
		_, err := uuid.Parse(seen)
		require.NoError(t, err)
		assert.Equal(t, seen, echoed)
	})

	t.Run("replaces malformed or oversized ids", func(t *testing.T) {
		t.Parallel()

		for _, bad := range []string{"a b", "<script>", strings.Repeat("a", 129)} {
			seen, _ := serve(bad)
			assert.NotEqual(t, bad, seen)
			_, err := uuid.Parse(seen)
			assert.NoError(t, err)
		}
	})
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	_, ok := requestid.LoggerExtractor()(context.Background())
	assert.False(t, ok)

	attr, ok := requestid.LoggerExtractor()(requestid.WithContext(context.Background(), "r1"))
	require.True(t, ok)
	assert.Equal(t, "r1", attr.Value.String())
}
