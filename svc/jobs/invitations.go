package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/xamu/xamu/pkg/tenant"
)

// Config holds the schedules of the invitation jobs.
type Config struct {
	ExpirySchedule   string        `env:"JOBS_INVITATION_EXPIRY" envDefault:"@every 15m"`   // ExpirySchedule is the cron schedule of the expiry sweep.
	ReminderSchedule string        `env:"JOBS_INVITATION_REMINDER" envDefault:"@hourly"`    // ReminderSchedule is the cron schedule of the reminder pass.
	ReminderWindow   time.Duration `env:"JOBS_INVITATION_REMINDER_WINDOW" envDefault:"24h"` // ReminderWindow selects invitations expiring within it.
}

// Invitations is the part of the invitation service the jobs drive.
type Invitations interface {
	ExpireStale(ctx context.Context) (int, error)
	RemindExpiring(ctx context.Context, within time.Duration) (int, error)
}

// ExpireInvitations stores the expired status of stale invitations.
func ExpireInvitations(inv Invitations) Job {
	return func(ctx context.Context) error {
		_, err := inv.ExpireStale(ctx)
		return err
	}
}

// RemindInvitations sends reminders tenant by tenant.
func RemindInvitations(inv Invitations, tenants TenantLister, window time.Duration, log *slog.Logger) Job {
	return func(ctx context.Context) error {
		return ForEachTenant(ctx, tenants, func(ctx context.Context) error {
			n, err := inv.RemindExpiring(ctx, window)
			if n > 0 {
				t, _ := tenant.FromContext(ctx)
				log.InfoContext(ctx, "invitation reminders sent", slog.String("tenant_code", t.Code), slog.Int("count", n))
			}
			return err
		})
	}
}

// RegisterInvitationJobs schedules the expiry sweep and the reminders.
func RegisterInvitationJobs(s *Scheduler, cfg Config, inv Invitations, tenants TenantLister) error {
	if cfg.ReminderWindow <= 0 {
		cfg.ReminderWindow = 24 * time.Hour
	}
	if err := s.Add("invitation-expiry", cfg.ExpirySchedule, ExpireInvitations(inv)); err != nil {
		return err
	}
	return s.Add("invitation-reminders", cfg.ReminderSchedule, RemindInvitations(inv, tenants, cfg.ReminderWindow, s.log))
}
