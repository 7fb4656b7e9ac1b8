package directory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xamu/xamu/pkg/audit"
	"github.com/xamu/xamu/pkg/memtx"
	"github.com/xamu/xamu/pkg/tenant"
	"github.com/xamu/xamu/pkg/validator"
	"github.com/xamu/xamu/svc/directory"
)

type fixture struct {
	svc    *directory.Service
	store  *directory.MemoryStore
	lookup *tenant.Lookup
	events *audit.MemoryStorage
}

func newFixture(t *testing.T, opts ...directory.Option) fixture {
	t.Helper()
	store := directory.NewMemoryStore()
	lookup := tenant.NewLookup(directory.NewProvider(store),
		tenant.WithCache(tenant.NewMemoryCache(100, time.Hour)),
		tenant.WithCacheTTL(time.Hour),
	)
	events := audit.NewMemoryStorage()
	opts = append([]directory.Option{
		directory.WithInvalidator(lookup),
		directory.WithTransactor(memtx.NewTransactor()),
		directory.WithAudit(audit.NewLogger(events)),
	}, opts...)
	return fixture{svc: directory.NewService(store, opts...), store: store, lookup: lookup, events: events}
}

func TestCreate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	// Input is normalized on create
	created, err := f.svc.Create(ctx, directory.NewTenant{Code: " Nord ", Domain: "Nord.Example.com.", Name: " Lycée du Nord "})
	require.NoError(t, err)
	assert.Equal(t, "nord", created.Code)
	assert.Equal(t, "nord.example.com", created.Domain)
	assert.Equal(t, "Lycée du Nord", created.Name)
	assert.True(t, created.Active)

	// New tenant resolves by code and by domain
	byCode, err := f.lookup.Resolve(ctx, "NORD")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byCode.ID)
	byDomain, err := f.lookup.Resolve(ctx, "nord.example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byDomain.ID)

	// Creation is audited
	events, err := f.events.Find(ctx, audit.Filter{Action: "tenant.created"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, created.ID.String(), events[0].TenantID)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tests := []struct {
		name  string
		in    directory.NewTenant
		field string
	}{
		{"bad code", directory.NewTenant{Code: "no_underscores", Name: "X"}, "code"},
		{"bad domain", directory.NewTenant{Code: "ok", Domain: "not a domain", Name: "X"}, "domain"},
		{"missing name", directory.NewTenant{Code: "ok"}, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tt.in)
			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs), "got %v", err)
			assert.True(t, verrs.Has(tt.field))
		})
	}
}

func TestCreateDerivesCodeFromName(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	// Accents are folded into the slug
	created, err := f.svc.Create(ctx, directory.NewTenant{Name: "Lycée Émile Zola"})
	require.NoError(t, err)
	assert.Equal(t, "lycee-emile-zola", created.Code)

	// Another name with the same slug collides
	_, err = f.svc.Create(ctx, directory.NewTenant{Name: "Lycee Emile-Zola"})
	assert.ErrorIs(t, err, directory.ErrDuplicateTenant)

	// Nothing left to slug
	_, err = f.svc.Create(ctx, directory.NewTenant{Name: "Школа"})
	assert.ErrorIs(t, err, tenant.ErrInvalidIdentifier)
}

func TestCreateRejectsDuplicates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, directory.NewTenant{Code: "nord", Domain: "nord.example.com", Name: "Nord"})
	require.NoError(t, err)

	// Taken code, then taken domain
	_, err = f.svc.Create(ctx, directory.NewTenant{Code: "nord", Name: "Other"})
	assert.ErrorIs(t, err, directory.ErrDuplicateTenant)
	_, err = f.svc.Create(ctx, directory.NewTenant{Code: "sud", Domain: "nord.example.com", Name: "Sud"})
	assert.ErrorIs(t, err, directory.ErrDuplicateDomain)
}

func TestDeactivateInvalidatesCache(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, directory.NewTenant{Code: "nord", Name: "Nord"})
	require.NoError(t, err)

	// Warm the cache
	cached, err := f.lookup.Resolve(ctx, "nord")
	require.NoError(t, err)
	require.True(t, cached.Active)

	// Deactivation must not be served from the cache
	_, err = f.svc.Deactivate(ctx, created.ID)
	require.NoError(t, err)

	after, err := f.lookup.Resolve(ctx, "nord")
	require.NoError(t, err, "inactive tenants still resolve")
	assert.False(t, after.Active)

	// Same for reactivation
	_, err = f.svc.Activate(ctx, created.ID)
	require.NoError(t, err)
	again, err := f.lookup.Resolve(ctx, "nord")
	require.NoError(t, err)
	assert.True(t, again.Active)
}

func TestDeactivationHooks(t *testing.T) {
	t.Parallel()

	t.Run("run once per deactivation", func(t *testing.T) {
		t.Parallel()

		var calls []uuid.UUID
		f := newFixture(t, directory.WithDeactivationHook(func(_ context.Context, tn *tenant.Tenant) error {
			assert.False(t, tn.Active)
			calls = append(calls, tn.ID)
			return nil
		}))
		ctx := context.Background()
		created, err := f.svc.Create(ctx, directory.NewTenant{Code: "nord", Name: "Nord"})
		require.NoError(t, err)

		_, err = f.svc.Deactivate(ctx, created.ID)
		require.NoError(t, err)
		_, err = f.svc.Deactivate(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{created.ID}, calls)
	})

	t.Run("failure keeps tenant active", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		f := newFixture(t)
		f.svc.OnDeactivate(func(context.Context, *tenant.Tenant) error { return boom })
		ctx := context.Background()
		created, err := f.svc.Create(ctx, directory.NewTenant{Code: "nord", Name: "Nord"})
		require.NoError(t, err)

		_, err = f.svc.Deactivate(ctx, created.ID)
		require.ErrorIs(t, err, boom)

		got, err := f.svc.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, got.Active)
	})
}

func TestChangeDomain(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, directory.NewTenant{Code: "nord", Domain: "old.example.com", Name: "Nord"})
	require.NoError(t, err)
	_, err = f.lookup.Resolve(ctx, "old.example.com")
	require.NoError(t, err)

	// Switch to a new domain
	updated, err := f.svc.ChangeDomain(ctx, created.ID, "New.Example.com")
	require.NoError(t, err)
	assert.Equal(t, "new.example.com", updated.Domain)

	// The old domain no longer resolves
	_, err = f.lookup.Resolve(ctx, "old.example.com")
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	got, err := f.lookup.Resolve(ctx, "new.example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	// Empty clears the domain
	cleared, err := f.svc.ChangeDomain(ctx, created.ID, "")
	require.NoError(t, err)
	assert.Empty(t, cleared.Domain)

	_, err = f.svc.ChangeDomain(ctx, created.ID, "bad domain")
	assert.ErrorIs(t, err, tenant.ErrInvalidIdentifier)
}

func TestRenameKeepsCode(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, directory.NewTenant{Code: "nord", Name: "Nord"})
	require.NoError(t, err)

	renamed, err := f.svc.Rename(ctx, created.ID, "Collège Nord")
	require.NoError(t, err)
	assert.Equal(t, "Collège Nord", renamed.Name)
	assert.Equal(t, "nord", renamed.Code)

	// Blank names and unknown ids fail
	_, err = f.svc.Rename(ctx, created.ID, "  ")
	assert.ErrorIs(t, err, directory.ErrInvalidName)
	_, err = f.svc.Rename(ctx, uuid.New(), "x")
	assert.True(t, directory.IsNotFound(err))
}

func TestList(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	for _, code := range []string{"sud", "nord", "est"} {
		_, err := f.svc.Create(ctx, directory.NewTenant{Code: code, Name: code})
		require.NoError(t, err)
	}
	// Deactivate one of them
	est, err := f.svc.GetByCode(ctx, "EST")
	require.NoError(t, err)
	_, err = f.svc.Deactivate(ctx, est.ID)
	require.NoError(t, err)

	// Ordered by code
	all, err := f.svc.List(ctx, directory.ListQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "est", all[0].Code)

	// Filter and limit
	active := true
	onlyActive, err := f.svc.List(ctx, directory.ListQuery{Active: &active})
	require.NoError(t, err)
	assert.Len(t, onlyActive, 2)

	limited, err := f.svc.List(ctx, directory.ListQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
