package tenant_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xamu/xamu/pkg/tenant"
)

func TestNormalizeCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"lower case", "etb001", "etb001", false},
		{"upper case folded", "ETB001", "etb001", false},
		{"trimmed", "  etb-001 ", "etb-001", false},
		{"empty", "", "", true},
		{"leading hyphen", "-etb", "", true},
		{"underscore", "etb_001", "", true},
		{"dot", "etb.001", "", true},
		{"injection", "etb';DROP TABLE", "", true},
		{"too long", strings.Repeat("a", tenant.MaxCodeLength+1), "", true},
		{"max length", strings.Repeat("a", tenant.MaxCodeLength), strings.Repeat("a", tenant.MaxCodeLength), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tenant.NormalizeCode(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, tenant.ErrInvalidIdentifier)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDomain(t *testing.T) {
	t.Parallel()

	got, err := tenant.NormalizeDomain(" Lycee-Hugo.FR. ")
	require.NoError(t, err)
	assert.Equal(t, "lycee-hugo.fr", got)

	got, err = tenant.NormalizeDomain("school.example.org:8443")
	require.NoError(t, err)
	assert.Equal(t, "school.example.org", got)

	for _, bad := range []string{"", "localhost", "bad_label.org", "-x.org", "a..b"} {
		_, err := tenant.NormalizeDomain(bad)
		assert.ErrorIs(t, err, tenant.ErrInvalidIdentifier, bad)
	}
}

func TestPathResolver(t *testing.T) {
	t.Parallel()

	resolve := tenant.PathResolver(1)

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"first segment", "/etb001/dashboard", "etb001", false},
		{"normalized", "/ETB001/", "etb001", false},
		{"root", "/", "", false},
		{"invalid segment", "/etb%20001/x", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest("GET", "http://xamu.fr"+tt.path, nil)
			got, err := resolve(req)
			if tt.wantErr {
				require.ErrorIs(t, err, tenant.ErrInvalidIdentifier)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("invalid position", func(t *testing.T) {
		t.Parallel()

		_, err := tenant.PathResolver(0)(httptest.NewRequest("GET", "/etb001", nil))
		require.Error(t, err)
	})
}

func TestSubdomainResolver(t *testing.T) {
	t.Parallel()

	resolve := tenant.SubdomainResolver(".xamu.fr")

	tests := []struct {
		name    string
		host    string
		want    string
		wantErr bool
	}{
		{"subdomain", "etb001.xamu.fr", "etb001", false},
		{"with port", "etb001.xamu.fr:8080", "etb001", false},
		{"upper case", "ETB001.Xamu.fr", "etb001", false},
		{"www prefix", "www.etb001.xamu.fr", "etb001", false},
		{"base domain", "xamu.fr", "", false},
		{"www only", "www.xamu.fr", "", false},
		{"foreign host", "etb001.other.fr", "", false},
		{"nested", "a.b.xamu.fr", "", true},
		{"invalid label", "etb_1.xamu.fr", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest("GET", "/", nil)
			req.Host = tt.host
			got, err := resolve(req)
			if tt.wantErr {
				require.ErrorIs(t, err, tenant.ErrInvalidIdentifier)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHostResolver(t *testing.T) {
	t.Parallel()

	resolve := tenant.HostResolver("xamu.fr")

	req := httptest.NewRequest("GET", "/", nil)
	req.Host = "Lycee-Hugo.fr:443"
	got, err := resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "lycee-hugo.fr", got)

	for _, host := range []string{"xamu.fr", "etb001.xamu.fr", "localhost", "127.0.0.1"} {
		req := httptest.NewRequest("GET", "/", nil)
		req.Host = host
		got, err := resolve(req)
		require.NoError(t, err, host)
		assert.Empty(t, got, host)
	}
}

func TestHeaderResolver(t *testing.T) {
	t.Parallel()

	resolve := tenant.HeaderResolver("")

	req := httptest.NewRequest("GET", "/", nil)
	got, err := resolve(req)
	require.NoError(t, err)
	assert.Empty(t, got)

	req.Header.Set("X-Tenant-Code", " Etb001 ")
	got, err = resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "etb001", got)

	req.Header.Set("X-Tenant-Code", "etb 001")
	_, err = resolve(req)
	assert.ErrorIs(t, err, tenant.ErrInvalidIdentifier)
}

func TestCompositeResolver(t *testing.T) {
	t.Parallel()

	resolve := tenant.CompositeResolver(
		tenant.HeaderResolver(""),
		tenant.PathResolver(1),
	)

	t.Run("first non-empty wins", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/etb002/x", nil)
		req.Header.Set("X-Tenant-Code", "etb001")
		got, err := resolve(req)
		require.NoError(t, err)
		assert.Equal(t, "etb001", got)
	})

	t.Run("falls through", func(t *testing.T) {
		t.Parallel()

		got, err := resolve(httptest.NewRequest("GET", "/etb002/x", nil))
		require.NoError(t, err)
		assert.Equal(t, "etb002", got)
	})

	t.Run("errors are joined when nothing resolves", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Tenant-Code", "bad code")
		_, err := resolve(req)
		assert.ErrorIs(t, err, tenant.ErrInvalidIdentifier)
	})
}
