package environment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xamu/xamu/pkg/environment"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := map[string]environment.Environment{
		"development": environment.Development,
		"DEV":         environment.Development,
		"test":        environment.Development,
		"stage":       environment.Staging,
		"production":  environment.Production,
		"":            environment.Production,
		"whatever":    environment.Production,
	}
	for in, want := range tests {
		assert.Equal(t, want, environment.Parse(in), in)
	}
}

func TestContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Equal(t, environment.Environment(""), environment.FromContext(ctx))
	assert.False(t, environment.IsDevelopment(ctx))
	assert.False(t, environment.IsProduction(ctx))

	dev := environment.WithContext(ctx, environment.Development)
	assert.True(t, environment.IsDevelopment(dev))

	attr, ok := environment.LoggerExtractor()(dev)
	assert.True(t, ok)
	assert.Equal(t, "development", attr.Value.String())
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	var got environment.Environment
	h := environment.Middleware(environment.Production)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = environment.FromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, environment.Production, got)
}
