package invitation_test

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/xamu/xamu/pkg/audit"
	"github.com/xamu/xamu/pkg/logger"
	"github.com/xamu/xamu/pkg/pg"
	"github.com/xamu/xamu/svc/account"
	"github.com/xamu/xamu/svc/directory"
	"github.com/xamu/xamu/svc/invitation"
)

// pgPool connects to PG_CONN_URL and applies the migrations. Tests using it
// are skipped when the variable is unset.
func pgPool(t *testing.T) (*pgxpool.Pool, pg.Config) {
	t.Helper()
	url := os.Getenv("PG_CONN_URL")
	if url == "" {
		t.Skip("PG_CONN_URL not set")
	}
	cfg := pg.Config{
		ConnectionString: url,
		MaxOpenConns:     8,
		MaxIdleConns:     1,
		RetryAttempts:    1,
		RetryInterval:    time.Second,
		MigrationsTable:  "schema_migrations",
		EnforceRLS:       true,
	}
	ctx := context.Background()
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pg.Migrate(ctx, pool, cfg, pg.MigrateUp, logger.Discard()))
	return pool, cfg
}

func TestPgRedemption(t *testing.T) {
	pool, cfg := pgPool(t)
	ctx := context.Background()

	tx := pg.NewTransactor(pool, cfg)
	auditLog := audit.NewLogger(audit.NewMemoryStorage())
	dir := directory.NewService(directory.NewPgStore(pool), directory.WithTransactor(tx))
	accounts := account.NewStore(account.NewPgBackend(pool), auditLog, account.WithBcryptCost(bcrypt.MinCost))
	svc, err := invitation.NewService(
		invitation.Config{Secret: "pg-secret", BaseURL: "https://app.example.com"},
		invitation.NewPgStore(pool), dir, accounts,
		invitation.WithTransactor(tx),
	)
	require.NoError(t, err)
	dir.OnDeactivate(svc.RevokeForTenant)

	code := "pg-" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")
	nord, err := dir.Create(ctx, directory.NewTenant{Code: code, Name: "Integration"})
	require.NoError(t, err)

	t.Run("concurrent redemption creates one admin", func(t *testing.T) {
		issued, err := svc.Issue(ctx, nord.ID, "head@"+code+".example", uuid.Nil)
		require.NoError(t, err)

		const n = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.Redeem(ctx, code, issued.Token, invitation.Redemption{
					Name: "Head", Email: "head@" + code + ".example", Password: "long enough password",
				})
				if err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)

		invs, err := svc.List(ctx, nord.ID)
		require.NoError(t, err)
		require.Len(t, invs, 1)
		assert.Equal(t, invitation.StatusAccepted, invs[0].Status)
		assert.NotEqual(t, uuid.Nil, invs[0].UserID)
	})

	t.Run("failed account creation leaves the invitation pending", func(t *testing.T) {
		issued, err := svc.Issue(ctx, nord.ID, "second@"+code+".example", uuid.Nil)
		require.NoError(t, err)

		_, err = svc.Redeem(ctx, code, issued.Token, invitation.Redemption{
			Name: "Second", Email: "second@" + code + ".example", Password: "long enough password",
		})
		require.ErrorIs(t, err, account.ErrDuplicateTenantAdmin)

		inv, err := svc.Validate(ctx, code, issued.Token)
		require.NoError(t, err)
		assert.Equal(t, invitation.StatusPending, inv.Status)
	})

	t.Run("deactivation revokes pending", func(t *testing.T) {
		issued, err := svc.Issue(ctx, nord.ID, "third@"+code+".example", uuid.Nil)
		require.NoError(t, err)

		_, err = dir.Deactivate(ctx, nord.ID)
		require.NoError(t, err)
		_, err = dir.Activate(ctx, nord.ID)
		require.NoError(t, err)

		_, err = svc.Validate(ctx, code, issued.Token)
		assert.ErrorIs(t, err, invitation.ErrRevoked)
	})
}
