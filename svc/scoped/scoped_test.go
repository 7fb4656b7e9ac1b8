package scoped_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xamu/xamu/pkg/audit"
	"github.com/xamu/xamu/pkg/environment"
	"github.com/xamu/xamu/pkg/memtx"
	"github.com/xamu/xamu/pkg/tenant"
	"github.com/xamu/xamu/svc/access"
	"github.com/xamu/xamu/svc/scoped"
)

type note struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Title    string
}

func (n *note) EntityID() uuid.UUID         { return n.ID }
func (n *note) OwnerTenant() uuid.UUID      { return n.TenantID }
func (n *note) SetOwnerTenant(id uuid.UUID) { n.TenantID = id }
func cloneNote(n *note) *note               { c := *n; return &c }
func matchNote(n *note, prefix string) bool { return strings.HasPrefix(n.Title, prefix) }
func newNote(title string) *note            { return &note{ID: uuid.New(), Title: title} }
func cmpNote(a, b *note) int                { return strings.Compare(a.Title, b.Title) }

var errDuplicateTitle = errors.New("duplicate title")

func uniqueTitle(existing, candidate *note) error {
	if existing.TenantID == candidate.TenantID && existing.Title == candidate.Title {
		return errDuplicateTitle
	}
	return nil
}

func newRepo(opts ...scoped.Option) (*scoped.Repo[*note, string], *scoped.MemoryBackend[*note, string]) {
	backend := scoped.NewMemoryBackend(matchNote, cloneNote,
		scoped.WithOrder(cmpNote),
		scoped.WithConstraint(uniqueTitle),
	)
	return scoped.NewRepo[*note, string](backend, opts...), backend
}

func inTenant(t *tenant.Tenant) context.Context {
	return tenant.WithTenant(context.Background(), t)
}

func newTenant(code string) *tenant.Tenant {
	return &tenant.Tenant{ID: uuid.New(), Code: code, Active: true}
}

func TestRepoFailsClosedWithoutTenant(t *testing.T) {
	t.Parallel()

	repo, _ := newRepo()
	ctx := environment.WithContext(context.Background(), environment.Production)

	// Every operation refuses
	_, err := repo.Find(ctx, "")
	assert.ErrorIs(t, err, scoped.ErrMissingAmbientContext)
	_, err = repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, scoped.ErrMissingAmbientContext)
	assert.ErrorIs(t, repo.Insert(ctx, newNote("x")), scoped.ErrMissingAmbientContext)
	assert.ErrorIs(t, repo.Update(ctx, newNote("x")), scoped.ErrMissingAmbientContext)
	assert.ErrorIs(t, repo.Delete(ctx, uuid.New()), scoped.ErrMissingAmbientContext)

	// A masked tenant counts as none
	masked := tenant.Without(inTenant(newTenant("nord")))
	_, err = repo.Find(masked, "")
	assert.ErrorIs(t, err, scoped.ErrMissingAmbientContext)
}

func TestRepoPanicsWithoutTenantInDevelopment(t *testing.T) {
	t.Parallel()

	repo, _ := newRepo()
	ctx := environment.WithContext(context.Background(), environment.Development)
	assert.Panics(t, func() { _, _ = repo.Find(ctx, "") })
}

func TestRepoScoping(t *testing.T) {
	t.Parallel()

	repo, _ := newRepo()
	nord, sud := newTenant("nord"), newTenant("sud")

	n := newNote("agenda")
	require.NoError(t, repo.Insert(inTenant(nord), n))
	assert.Equal(t, nord.ID, n.TenantID, "insert stamps the ambient tenant")

	// Invisible from sud
	_, err := repo.Get(inTenant(sud), n.ID)
	assert.ErrorIs(t, err, scoped.ErrNotFound)

	got, err := repo.Get(inTenant(nord), n.ID)
	require.NoError(t, err)
	assert.Equal(t, "agenda", got.Title)

	// Rows cannot change owner
	moved := cloneNote(n)
	moved.TenantID = sud.ID
	assert.ErrorIs(t, repo.Update(inTenant(nord), moved), scoped.ErrTenantReassignment)
	assert.ErrorIs(t, repo.Update(inTenant(sud), moved), scoped.ErrNotFound)

	// Insert with a foreign owner
	foreign := newNote("forged")
	foreign.TenantID = sud.ID
	assert.ErrorIs(t, repo.Insert(inTenant(nord), foreign), scoped.ErrTenantReassignment)

	// Only the owner deletes
	assert.ErrorIs(t, repo.Delete(inTenant(sud), n.ID), scoped.ErrNotFound)
	require.NoError(t, repo.Delete(inTenant(nord), n.ID))

	// Constraints
	require.NoError(t, repo.Insert(inTenant(nord), newNote("dup")))
	require.NoError(t, repo.Insert(inTenant(sud), newNote("dup")), "constraint is per tenant")
	assert.ErrorIs(t, repo.Insert(inTenant(nord), newNote("dup")), errDuplicateTitle)
}

func TestRepoRollback(t *testing.T) {
	t.Parallel()

	repo, _ := newRepo()
	nord := newTenant("nord")
	tx := memtx.NewTransactor()
	boom := errors.New("boom")

	keep := newNote("keep")
	require.NoError(t, repo.Insert(inTenant(nord), keep))

	// Insert and update, then fail
	err := tx.InTx(inTenant(nord), func(ctx context.Context) error {
		require.NoError(t, repo.Insert(ctx, newNote("temp")))
		edited := cloneNote(keep)
		edited.Title = "edited"
		require.NoError(t, repo.Update(ctx, edited))
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Only the original row is left
	rows, err := repo.Find(inTenant(nord), "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "keep", rows[0].Title)
}

func TestAllTenants(t *testing.T) {
	t.Parallel()

	store := audit.NewMemoryStorage()
	repo, _ := newRepo(scoped.WithAudit(audit.NewLogger(store)), scoped.WithResource("note"))
	nord, sud := newTenant("nord"), newTenant("sud")
	require.NoError(t, repo.Insert(inTenant(nord), newNote("a")))
	require.NoError(t, repo.Insert(inTenant(sud), newNote("b")))

	// Zero capability is refused
	_, err := repo.AllTenants(context.Background(), access.CrossTenant{})
	assert.ErrorIs(t, err, access.ErrCrossTenantForbidden)

	all, err := repo.AllTenants(context.Background(), access.SystemCrossTenant("test", "inventory"))
	require.NoError(t, err)
	rows, err := all.Find(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	// One audit event with actor and reason
	events, err := store.Find(context.Background(), audit.Filter{Action: "scoped.all_tenants"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "note", events[0].Resource)
	assert.Equal(t, "inventory", events[0].Metadata["reason"])
	assert.Equal(t, "system:test", events[0].Metadata["actor"])
}

// Random operations across several tenants never observe another tenant's rows.
func TestNoCrossTenantLeakage(t *testing.T) {
	t.Parallel()

	repo, _ := newRepo()
	rng := rand.New(rand.NewPCG(7, 11))

	tenants := make([]*tenant.Tenant, 6)
	for i := range tenants {
		tenants[i] = newTenant("t" + string(rune('a'+i)))
	}
	var ids []uuid.UUID
	titles := []string{"abs", "abc", "stud", "cls", "x"}

	for range 2000 {
		tn := tenants[rng.IntN(len(tenants))]
		ctx := inTenant(tn)

		switch rng.IntN(5) {
		case 0:
			n := newNote(titles[rng.IntN(len(titles))] + uuid.NewString()[:4])
			if err := repo.Insert(ctx, n); err == nil {
				ids = append(ids, n.ID)
			}
		case 1:
			rows, err := repo.Find(ctx, titles[rng.IntN(len(titles))][:1])
			require.NoError(t, err)
			for _, r := range rows {
				require.Equal(t, tn.ID, r.TenantID)
			}
		case 2:
			if len(ids) == 0 {
				continue
			}
			if r, err := repo.Get(ctx, ids[rng.IntN(len(ids))]); err == nil {
				require.Equal(t, tn.ID, r.TenantID)
			}
		case 3:
			if len(ids) == 0 {
				continue
			}
			id := ids[rng.IntN(len(ids))]
			before := snapshot(t, repo, tenants, tn)
			_ = repo.Delete(ctx, id)
			after := snapshot(t, repo, tenants, tn)
			require.Equal(t, before, after, "delete touched another tenant")
		case 4:
			if len(ids) == 0 {
				continue
			}
			victim := &note{ID: ids[rng.IntN(len(ids))], TenantID: tn.ID, Title: "overwrite"}
			before := snapshot(t, repo, tenants, tn)
			_ = repo.Update(ctx, victim)
			after := snapshot(t, repo, tenants, tn)
			require.Equal(t, before, after, "update touched another tenant")
		}
	}
}

// snapshot returns every tenant's rows except skip's.
func snapshot(t *testing.T, repo *scoped.Repo[*note, string], tenants []*tenant.Tenant, skip *tenant.Tenant) map[uuid.UUID][]note {
	t.Helper()
	out := make(map[uuid.UUID][]note)
	for _, tn := range tenants {
		if tn.ID == skip.ID {
			continue
		}
		rows, err := repo.Find(inTenant(tn), "")
		require.NoError(t, err)
		for _, r := range rows {
			out[tn.ID] = append(out[tn.ID], *r)
		}
	}
	return out
}
