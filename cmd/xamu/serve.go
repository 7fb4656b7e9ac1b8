package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/xamu/xamu/modules/establishment"
	"github.com/xamu/xamu/pkg/clientip"
	"github.com/xamu/xamu/pkg/config"
	"github.com/xamu/xamu/pkg/httpserver"
	"github.com/xamu/xamu/pkg/logger"
	"github.com/xamu/xamu/pkg/ratelimiter"
	"github.com/xamu/xamu/svc/access"
	"github.com/xamu/xamu/svc/jobs"
)

// serveConfig holds the settings only the server needs.
type serveConfig struct {
	HTTP        httpserver.Config
	Session     access.SessionConfig
	Jobs        jobs.Config
	RateLimit   ratelimiter.Config
	JobsEnabled bool `env:"JOBS_ENABLED" envDefault:"true"`
	// ClientIPHeaders lists proxy headers trusted for the client address.
	// Leave empty unless a proxy in front of the server overwrites them.
	ClientIPHeaders  []string `env:"CLIENT_IP_HEADERS" envSeparator:","`
	RateLimitEnabled bool     `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the background jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cfg serveConfig
			if err := config.Load(&cfg); err != nil {
				return err
			}
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			return serve(cmd.Context(), a, cfg)
		},
	}
}

// serve wires the request-scoped parts on top of a and blocks until ctx is
// done. Jobs stop after the server has drained.
func serve(ctx context.Context, a *app, cfg serveConfig) error {
	sessions, err := access.NewSessions(cfg.Session, access.WithPrincipalLoader(a.accounts))
	if err != nil {
		return err
	}
	policy, err := access.LoadPolicy(ctx)
	if err != nil {
		return err
	}
	guard := access.NewGuard(policy,
		access.WithGuardLogger(a.log),
		access.WithDecisionObserver(func(d access.Decision) {
			a.metrics.AccessDecision(d.Allowed, string(d.Reason))
		}),
	)

	if cfg.JobsEnabled {
		scheduler := jobs.NewScheduler(jobs.WithLogger(a.log))
		if err := jobs.RegisterInvitationJobs(scheduler, cfg.Jobs, a.invitations, a.directory); err != nil {
			return err
		}
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			if err := scheduler.Stop(stopCtx); err != nil {
				a.log.WarnContext(stopCtx, "jobs did not stop in time", logger.Error(err))
			}
		}()
	}

	var limiter *ratelimiter.Bucket
	if cfg.RateLimitEnabled {
		var store ratelimiter.Store
		if a.redis != nil {
			store = ratelimiter.NewRedisStore(a.redis, ratelimiter.DefaultRedisPrefix)
		} else {
			mem := ratelimiter.NewMemoryStore()
			defer mem.Close()
			store = mem
		}
		if limiter, err = ratelimiter.NewBucket(store, cfg.RateLimit); err != nil {
			return err
		}
	}

	router := establishment.Router(establishment.Deps{
		Directory:    a.directory,
		Accounts:     a.accounts,
		Invitations:  a.invitations,
		Sessions:     sessions,
		Guard:        guard,
		Lookup:       a.lookup,
		Metrics:      a.metrics,
		Environment:  a.env,
		ClientIP:     clientip.New(cfg.ClientIPHeaders...),
		Limiter:      limiter,
		HealthChecks: a.checks,
		Logger:       a.log,
	})

	a.log.InfoContext(ctx, "starting server", slog.String("addr", cfg.HTTP.Addr), slog.String("env", string(a.env)))
	return httpserver.New(cfg.HTTP, httpserver.WithLogger(a.log)).Run(ctx, router)
}
