package rbac_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xamu/xamu/pkg/rbac"
)

const policy = `
roles:
  guardian:
    permissions: [absences.read_own]
  teacher:
    permissions: [students.read, absences.create]
  supervisor:
    inherits: [teacher]
    permissions: [students.manage]
  admin:
    inherits: [supervisor]
    permissions: [users.*]
  root:
    permissions: ["*"]
`

func newAuthorizer(t *testing.T) *rbac.Authorizer {
	t.Helper()
	a, err := rbac.NewAuthorizer(context.Background(), rbac.NewYAMLRoleSource([]byte(policy)))
	require.NoError(t, err)
	return a
}

func TestAuthorizer_Can(t *testing.T) {
	t.Parallel()

	a := newAuthorizer(t)

	tests := []struct {
		role       string
		permission string
		want       error
	}{
		{"teacher", "students.read", nil},
		{"teacher", "students.manage", rbac.ErrInsufficientPermissions},
		{"supervisor", "students.read", nil},
		{"admin", "absences.create", nil},
		{"admin", "users.manage", nil},
		{"admin", "users", rbac.ErrInsufficientPermissions},
		{"admin", "usersx.manage", rbac.ErrInsufficientPermissions},
		{"guardian", "students.read", rbac.ErrInsufficientPermissions},
		{"root", "anything.at.all", nil},
		{"ghost", "students.read", rbac.ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.permission, func(t *testing.T) {
			t.Parallel()

			err := a.Can(tt.role, tt.permission)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthorizer_Helpers(t *testing.T) {
	t.Parallel()

	a := newAuthorizer(t)

	assert.NoError(t, a.CanAll("supervisor", "students.read", "students.manage"))
	assert.ErrorIs(t, a.CanAll("teacher", "students.read", "students.manage"), rbac.ErrInsufficientPermissions)
	assert.NoError(t, a.VerifyRole("guardian"))
	assert.ErrorIs(t, a.VerifyRole("ghost"), rbac.ErrInvalidRole)
	assert.Equal(t, []string{"absences.create", "students.manage", "students.read"}, a.Permissions("supervisor"))
}

func TestNewAuthorizer_Errors(t *testing.T) {
	t.Parallel()

	t.Run("circular inheritance", func(t *testing.T) {
		t.Parallel()

		_, err := rbac.NewAuthorizer(context.Background(), rbac.NewInMemRoleSource(map[string]rbac.Role{
			"a": {Inherits: []string{"b"}},
			"b": {Inherits: []string{"a"}},
		}))
		assert.ErrorIs(t, err, rbac.ErrCircularInheritance)
	})

	t.Run("unknown parent", func(t *testing.T) {
		t.Parallel()

		_, err := rbac.NewAuthorizer(context.Background(), rbac.NewInMemRoleSource(map[string]rbac.Role{
			"a": {Inherits: []string{"missing"}},
		}))
		assert.ErrorIs(t, err, rbac.ErrUnknownParent)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()

		src, err := rbac.NewYAMLRoleSourceFromReader(strings.NewReader("roles: ["))
		require.NoError(t, err)
		_, err = rbac.NewAuthorizer(context.Background(), src)
		assert.Error(t, err)
	})
}
