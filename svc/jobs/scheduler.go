// Package jobs runs background work on cron schedules. Jobs that touch
// tenant data establish the tenant explicitly with ForEachTenant; they never
// inherit one.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/xamu/xamu/pkg/logger"
)

var ErrSchedulerRunning = errors.New("jobs: scheduler already running")

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler runs Jobs on cron schedules. A run never overlaps the previous
// run of the same job.
type Scheduler struct {
	cron    *cron.Cron
	log     *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	base    context.Context
	cancel  context.CancelFunc
	running bool
}

type Option func(*Scheduler)

func WithLogger(l *slog.Logger) Option { return func(s *Scheduler) { s.log = l } }

// WithJobTimeout bounds every run. The default is five minutes.
func WithJobTimeout(d time.Duration) Option { return func(s *Scheduler) { s.timeout = d } }

// NewScheduler returns a stopped scheduler.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{log: logger.Discard(), timeout: 5 * time.Minute}
	for _, opt := range opts {
		opt(s)
	}
	cl := cronLogger{log: s.log}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s.base, s.cancel = context.WithCancel(context.Background())
	return s
}

// Add registers job under name. schedule is a cron expression or a descriptor
// such as "@hourly" or "@every 15m".
func (s *Scheduler) Add(name, schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.log.Info("job scheduled", slog.String("job", name), slog.String("schedule", schedule))
	return nil
}

func (s *Scheduler) run(name string, job Job) {
	s.mu.Lock()
	base := s.base
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(base, s.timeout)
	defer cancel()

	start := time.Now()
	log := s.log.With(slog.String("job", name))
	if err := job(ctx); err != nil {
		log.ErrorContext(ctx, "job failed", logger.Error(err), slog.Duration("took", time.Since(start)))
		return
	}
	log.DebugContext(ctx, "job finished", slog.Duration("took", time.Since(start)))
}

// RunNow runs a registered job body once, synchronously. Used by the CLI.
func (s *Scheduler) RunNow(ctx context.Context, job Job) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return job(ctx)
}

// Start begins running jobs. Cancelling ctx cancels running jobs.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSchedulerRunning
	}
	s.running = true
	s.base, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.cancel()
		s.mu.Unlock()
	}()
	s.cron.Start()
	return nil
}

// Stop prevents new runs and waits for running ones until ctx is done, at
// which point they are cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		cancel()
		return nil
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append([]any{logger.Error(err)}, keysAndValues...)...)
}
