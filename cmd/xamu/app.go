package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xamu/xamu/pkg/audit"
	"github.com/xamu/xamu/pkg/clientip"
	"github.com/xamu/xamu/pkg/config"
	"github.com/xamu/xamu/pkg/email"
	"github.com/xamu/xamu/pkg/environment"
	"github.com/xamu/xamu/pkg/httpserver"
	"github.com/xamu/xamu/pkg/logger"
	"github.com/xamu/xamu/pkg/metrics"
	"github.com/xamu/xamu/pkg/mongo"
	"github.com/xamu/xamu/pkg/pg"
	"github.com/xamu/xamu/pkg/redis"
	"github.com/xamu/xamu/pkg/requestid"
	"github.com/xamu/xamu/pkg/tenant"
	"github.com/xamu/xamu/svc/access"
	"github.com/xamu/xamu/svc/account"
	"github.com/xamu/xamu/svc/directory"
	"github.com/xamu/xamu/svc/invitation"
)

const serviceName = "xamu"

// Config is shared by every command that touches tenant data.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`

	// TenantCache selects "memory" or "redis".
	TenantCache     string        `env:"TENANT_CACHE" envDefault:"memory"`
	TenantCacheSize int           `env:"TENANT_CACHE_SIZE" envDefault:"1024"` // TenantCacheSize bounds the in-memory cache.
	TenantCacheTTL  time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`    // TenantCacheTTL is how long a resolved tenant is cached.

	Postgres   pg.Config
	Redis      redis.Config
	Mongo      mongo.Config
	Email      email.Config
	Invitation invitation.Config
}

var errUnknownCache = errors.New("unknown TENANT_CACHE, want memory or redis")

// app holds the wired services. close releases connections in reverse order.
type app struct {
	env         environment.Environment
	log         *slog.Logger
	pool        *pgxpool.Pool
	redis       *goredis.Client // nil unless TENANT_CACHE=redis
	metrics     *metrics.Metrics
	audit       *audit.Logger
	lookup      *tenant.Lookup
	directory   *directory.Service
	accounts    *account.Store
	invitations *invitation.Service
	checks      map[string]httpserver.Check

	closers []func()
}

// newLogger tags every record with whatever request, client, environment,
// tenant and principal the context carries.
func newLogger(env environment.Environment) *slog.Logger {
	return logger.New(
		logger.WithEnvironment(string(env), serviceName),
		logger.WithContextExtractors(
			requestid.LoggerExtractor(),
			clientip.LoggerExtractor(),
			environment.LoggerExtractor(),
			tenant.LoggerExtractor(),
			access.LoggerExtractor(),
		),
	)
}

// newApp loads Config from the environment and connects every backend.
func newApp(ctx context.Context) (*app, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}

	a := &app{
		env:     environment.Parse(cfg.AppEnv),
		metrics: metrics.New(),
		checks:  map[string]httpserver.Check{},
	}
	a.log = newLogger(a.env)

	if err := a.wire(ctx, cfg); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// wire connects the stores in dependency order. Closers registered before a
// failure still run.
func (a *app) wire(ctx context.Context, cfg Config) error {
	pool, err := pg.Connect(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	a.pool = pool
	a.closers = append(a.closers, pool.Close)
	a.checks["postgres"] = pg.Healthcheck(pool)

	storage, err := a.auditStorage(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	a.audit = audit.NewLogger(storage,
		audit.WithTenantIDExtractor(func(ctx context.Context) (string, bool) {
			id, ok := tenant.IDFromContext(ctx)
			return id.String(), ok
		}),
		audit.WithActorIDExtractor(access.ActorID),
		audit.WithRequestIDExtractor(func(ctx context.Context) (string, bool) {
			id := requestid.FromContext(ctx)
			return id, id != ""
		}),
	)

	cache, err := a.tenantCache(ctx, cfg)
	if err != nil {
		return err
	}

	tx := pg.NewTransactor(pool, cfg.Postgres)
	dirStore := directory.NewPgStore(pool)
	a.lookup = tenant.NewLookup(directory.NewProvider(dirStore),
		tenant.WithCache(cache),
		tenant.WithCacheTTL(cfg.TenantCacheTTL),
		tenant.WithLookupLogger(a.log),
		tenant.WithObserver(func(r tenant.LookupResult) { a.metrics.TenantLookup(string(r)) }),
	)
	a.directory = directory.NewService(dirStore,
		directory.WithInvalidator(a.lookup),
		directory.WithTransactor(tx),
		directory.WithAudit(a.audit),
		directory.WithLogger(a.log),
	)
	a.accounts = account.NewStore(account.NewPgBackend(pool), a.audit, account.WithLogger(a.log))

	sender, err := email.NewSender(cfg.Email)
	if err != nil {
		return fmt.Errorf("email sender: %w", err)
	}
	a.invitations, err = invitation.NewService(cfg.Invitation,
		invitation.NewPgStore(pool), a.directory, a.accounts,
		invitation.WithTransactor(tx),
		invitation.WithNotifier(invitation.NewEmailNotifier(sender, a.log)),
		invitation.WithMetrics(a.metrics),
		invitation.WithAudit(a.audit),
		invitation.WithLogger(a.log),
	)
	if err != nil {
		return err
	}
	a.directory.OnDeactivate(a.invitations.RevokeForTenant)
	return nil
}

// auditStorage keeps the trail in MongoDB when configured and in the log
// otherwise.
func (a *app) auditStorage(ctx context.Context, cfg mongo.Config) (audit.Storage, error) {
	if !cfg.Enabled() {
		a.log.WarnContext(ctx, "MONGODB_URL not set, audit events go to the log only")
		return audit.NewLogStorage(a.log), nil
	}
	db, err := mongo.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.Client().Disconnect(ctx)
	})
	a.checks["mongo"] = mongo.Healthcheck(db)

	storage := audit.NewMongoStorage(db, "audit_events")
	if err := storage.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("audit indexes: %w", err)
	}
	return storage, nil
}

// tenantCache also opens the Redis client when the cache lives there. The
// rate limiter reuses it.
func (a *app) tenantCache(ctx context.Context, cfg Config) (tenant.Cache, error) {
	switch cfg.TenantCache {
	case "", "memory":
		return tenant.NewMemoryCache(cfg.TenantCacheSize, cfg.TenantCacheTTL), nil
	case "redis":
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.redis = client
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.checks["redis"] = redis.Healthcheck(client)
		return tenant.NewRedisCache(client, cfg.Redis.KeyPrefix, a.log), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownCache, cfg.TenantCache)
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
