package account_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/xamu/xamu/pkg/audit"
	"github.com/xamu/xamu/pkg/environment"
	"github.com/xamu/xamu/pkg/tenant"
	"github.com/xamu/xamu/svc/access"
	"github.com/xamu/xamu/svc/account"
	"github.com/xamu/xamu/svc/scoped"
)

func newStore(t *testing.T) (*account.Store, *audit.MemoryStorage) {
	t.Helper()
	events := audit.NewMemoryStorage()
	return account.NewStore(account.NewMemoryBackend(), audit.NewLogger(events),
		account.WithBcryptCost(bcrypt.MinCost)), events
}

func inTenant(code string) (context.Context, *tenant.Tenant) {
	t := &tenant.Tenant{ID: uuid.New(), Code: code, Active: true}
	ctx := environment.WithContext(context.Background(), environment.Production)
	return tenant.WithTenant(ctx, t), t
}

func user(email string, role access.Role) account.NewUser {
	return account.NewUser{Email: email, Name: "Ada", Password: "correct horse", Role: role}
}

func TestCreateStampsAmbientTenant(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)
	ctx, nord := inTenant("nord")

	// Create a user inside the nord tenant
	u, err := store.Create(ctx, user(" Ada@Example.com ", access.RoleTeacher))
	require.NoError(t, err)
	assert.Equal(t, nord.ID, u.TenantID)
	assert.Equal(t, "Ada@Example.com", u.Email)
	assert.Equal(t, "ada@example.com", u.EmailKey)
	// The password is stored hashed
	assert.NotEqual(t, []byte("correct horse"), u.PasswordHash)
}

func TestCreateValidatesInput(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)
	ctx, _ := inTenant("nord")

	tests := []struct {
		name string
		in   account.NewUser
		want error
	}{
		{"invalid email", user("not-an-email", access.RoleTeacher), account.ErrInvalidEmail},
		{"display name form", user("Ada <ada@example.com>", access.RoleTeacher), account.ErrInvalidEmail},
		{"no domain dot", user("ada@localhost", access.RoleTeacher), account.ErrInvalidEmail},
		{"short password", account.NewUser{Email: "a@example.com", Password: "short", Role: access.RoleTeacher}, account.ErrWeakPassword},
		{"platform role", user("a@example.com", access.RolePlatformAdmin), access.ErrInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Create(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEmailIsUniquePerTenantIgnoringCase(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)
	nordCtx, _ := inTenant("nord")
	sudCtx, _ := inTenant("sud")

	_, err := store.Create(nordCtx, user("ada@example.com", access.RoleTeacher))
	require.NoError(t, err)

	// Same address with different case
	_, err = store.Create(nordCtx, user("ADA@example.COM", access.RoleGuardian))
	assert.ErrorIs(t, err, account.ErrDuplicateEmail)

	// Same address in another tenant
	_, err = store.Create(sudCtx, user("ada@example.com", access.RoleTeacher))
	assert.NoError(t, err, "the same address may belong to another tenant")

	// Sharp s does not fold to ss
	_, err = store.Create(nordCtx, user("straße@example.com", access.RoleTeacher))
	require.NoError(t, err)
	_, err = store.Create(nordCtx, user("strasse@example.com", access.RoleTeacher))
	assert.NoError(t, err, "distinct local parts are distinct logins")
}

func TestSingleTenantAdmin(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)
	ctx, _ := inTenant("nord")

	_, err := store.Create(ctx, user("admin@example.com", access.RoleTenantAdmin))
	require.NoError(t, err)
	// A second admin is refused
	_, err = store.Create(ctx, user("second@example.com", access.RoleTenantAdmin))
	assert.ErrorIs(t, err, account.ErrDuplicateTenantAdmin)

	// Promotion is refused too
	teacher, err := store.Create(ctx, user("teacher@example.com", access.RoleTeacher))
	require.NoError(t, err)
	_, err = store.ChangeRole(ctx, teacher.ID, access.RoleTenantAdmin)
	assert.ErrorIs(t, err, account.ErrDuplicateTenantAdmin)

	// Role is unchanged
	got, err := store.Get(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, access.RoleTeacher, got.Role)
}

func TestUsersAreInvisibleAcrossTenants(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)
	nordCtx, _ := inTenant("nord")
	sudCtx, _ := inTenant("sud")

	u, err := store.Create(nordCtx, user("ada@example.com", access.RoleTeacher))
	require.NoError(t, err)

	// Every operation from sud behaves as if the user does not exist
	_, err = store.Get(sudCtx, u.ID)
	assert.ErrorIs(t, err, account.ErrUserNotFound)
	_, err = store.GetByEmail(sudCtx, "ada@example.com")
	assert.ErrorIs(t, err, account.ErrUserNotFound)
	_, err = store.Rename(sudCtx, u.ID, "Eve")
	assert.ErrorIs(t, err, account.ErrUserNotFound)
	assert.ErrorIs(t, store.Delete(sudCtx, u.ID), account.ErrUserNotFound)
	_, err = store.Authenticate(sudCtx, "ada@example.com", "correct horse")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)

	// Listing shows nothing
	list, err := store.List(sudCtx, account.UserQuery{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStoreFailsClosedWithoutTenant(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)
	ctx := environment.WithContext(context.Background(), environment.Production)

	// No tenant in context
	_, err := store.Create(ctx, user("ada@example.com", access.RoleTeacher))
	assert.ErrorIs(t, err, scoped.ErrMissingAmbientContext)
	_, err = store.List(ctx, account.UserQuery{})
	assert.ErrorIs(t, err, scoped.ErrMissingAmbientContext)
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)
	ctx, _ := inTenant("nord")
	created, err := store.Create(ctx, user("ada@example.com", access.RoleTeacher))
	require.NoError(t, err)

	// Email is trimmed and folded
	u, err := store.Authenticate(ctx, "  ADA@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)

	// Wrong password and unknown email look the same
	_, err = store.Authenticate(ctx, "ada@example.com", "wrong password")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)
	_, err = store.Authenticate(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)
}

func TestRenameAndDelete(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)
	ctx, _ := inTenant("nord")
	u, err := store.Create(ctx, user("ada@example.com", access.RoleTeacher))
	require.NoError(t, err)

	// Name is trimmed
	renamed, err := store.Rename(ctx, u.ID, "  Ada Lovelace ")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", renamed.Name)

	// Deleted users are gone
	require.NoError(t, store.Delete(ctx, u.ID))
	_, err = store.Get(ctx, u.ID)
	assert.ErrorIs(t, err, account.ErrUserNotFound)
}

func TestPlatformAdmin(t *testing.T) {
	t.Parallel()

	store, events := newStore(t)
	ctx := environment.WithContext(context.Background(), environment.Production)
	capability := access.SystemCrossTenant("cli", "bootstrap")

	// Create the platform admin outside any tenant
	admin, err := store.CreatePlatformAdmin(ctx, capability, user("root@example.com", access.RoleTeacher))
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, admin.TenantID)
	assert.Equal(t, access.RolePlatformAdmin, admin.Role)
	principal := admin.Principal()
	assert.True(t, principal.IsPlatformAdmin())

	// Email is unique among platform admins
	_, err = store.CreatePlatformAdmin(ctx, capability, user("ROOT@example.com", access.RoleTeacher))
	assert.ErrorIs(t, err, account.ErrDuplicateEmail)

	// Sign in on the platform surface
	u, err := store.AuthenticatePlatformAdmin(ctx, "root@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, u.ID)
	_, err = store.AuthenticatePlatformAdmin(ctx, "root@example.com", "nope nope nope")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)

	// Tenant sign-in does not see platform admins
	tenantCtx, _ := inTenant("nord")
	_, err = store.Authenticate(tenantCtx, "root@example.com", "correct horse")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials, "platform admins have no tenant login")

	// Cross-tenant access was audited
	recorded, err := events.Find(ctx, audit.Filter{Action: "scoped.all_tenants"})
	require.NoError(t, err)
	assert.NotEmpty(t, recorded)
}

func TestListAllTenantsNeedsCapability(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)
	nordCtx, _ := inTenant("nord")
	sudCtx, _ := inTenant("sud")
	_, err := store.Create(nordCtx, user("a@example.com", access.RoleTeacher))
	require.NoError(t, err)
	_, err = store.Create(sudCtx, user("b@example.com", access.RoleTeacher))
	require.NoError(t, err)

	// Zero capability is refused
	_, err = store.ListAllTenants(context.Background(), access.CrossTenant{}, account.UserQuery{})
	assert.True(t, errors.Is(err, access.ErrCrossTenantForbidden))

	// System capability sees both tenants
	all, err := store.ListAllTenants(context.Background(), access.SystemCrossTenant("ops", "report"), account.UserQuery{Role: access.RoleTeacher})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestEmailKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ada@example.com", account.EmailKey("  Ada@Example.COM "))
	assert.Equal(t, account.EmailKey("ÉLISE@example.com"), account.EmailKey("élise@Example.com"))
	assert.NotEqual(t, account.EmailKey("straße@example.com"), account.EmailKey("strasse@example.com"))
}

func TestCurrentPrincipal(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)
	nordCtx, _ := inTenant("nord")
	bare := environment.WithContext(context.Background(), environment.Production)

	u, err := store.Create(nordCtx, user("ada@example.com", access.RoleTenantAdmin))
	require.NoError(t, err)
	claimed := u.Principal()

	// Demote after the session was issued
	_, err = store.ChangeRole(nordCtx, u.ID, access.RoleGuardian)
	require.NoError(t, err)
	p, err := store.CurrentPrincipal(bare, claimed)
	require.NoError(t, err)
	assert.Equal(t, access.RoleGuardian, p.Role)
	assert.Equal(t, claimed.TenantID, p.TenantID)

	// A claim for another tenant does not match
	forged := claimed
	forged.TenantID = uuid.New()
	_, err = store.CurrentPrincipal(bare, forged)
	assert.ErrorIs(t, err, account.ErrUserNotFound)

	// Deleted users lose their session
	require.NoError(t, store.Delete(nordCtx, u.ID))
	_, err = store.CurrentPrincipal(bare, claimed)
	assert.ErrorIs(t, err, account.ErrUserNotFound)

	// Platform admins reload without a tenant
	admin, err := store.CreatePlatformAdmin(bare, access.SystemCrossTenant("test", "seed"), user("root@example.com", access.RoleTeacher))
	require.NoError(t, err)
	p, err = store.CurrentPrincipal(bare, admin.Principal())
	require.NoError(t, err)
	assert.True(t, p.IsPlatformAdmin())
}
