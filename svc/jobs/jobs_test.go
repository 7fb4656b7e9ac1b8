package jobs_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xamu/xamu/pkg/logger"
	"github.com/xamu/xamu/pkg/tenant"
	"github.com/xamu/xamu/svc/directory"
	"github.com/xamu/xamu/svc/jobs"
)

type mockInvitations struct {
	mock.Mock
}

func (m *mockInvitations) ExpireStale(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockInvitations) RemindExpiring(ctx context.Context, within time.Duration) (int, error) {
	args := m.Called(ctx, within)
	return args.Int(0), args.Error(1)
}

func newDirectory(t *testing.T, codes ...string) *directory.Service {
	t.Helper()
	dir := directory.NewService(directory.NewMemoryStore())
	for _, code := range codes {
		_, err := dir.Create(context.Background(), directory.NewTenant{Code: code, Name: code})
		require.NoError(t, err)
	}
	return dir
}

func TestForEachTenant(t *testing.T) {
	t.Parallel()

	dir := newDirectory(t, "nord", "sud", "est")
	est, err := dir.GetByCode(context.Background(), "est")
	require.NoError(t, err)
	_, err = dir.Deactivate(context.Background(), est.ID)
	require.NoError(t, err)

	var seen []string
	boom := errors.New("boom")
	err = jobs.ForEachTenant(context.Background(), dir, func(ctx context.Context) error {
		tn := tenant.MustFromContext(ctx)
		seen = append(seen, tn.Code)
		if tn.Code == "nord" {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"nord", "sud"}, seen, "inactive tenants are skipped and failures do not stop the loop")
}

func TestForEachTenantDoesNotLeakTenant(t *testing.T) {
	t.Parallel()

	dir := newDirectory(t, "nord")
	ctx := context.Background()
	require.NoError(t, jobs.ForEachTenant(ctx, dir, func(context.Context) error { return nil }))
	_, ok := tenant.FromContext(ctx)
	assert.False(t, ok)
}

func TestRemindInvitationsRunsPerTenant(t *testing.T) {
	t.Parallel()

	dir := newDirectory(t, "nord", "sud")
	inv := &mockInvitations{}
	inv.On("RemindExpiring", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := tenant.FromContext(ctx)
		return ok
	}), 6*time.Hour).Return(1, nil).Twice()

	job := jobs.RemindInvitations(inv, dir, 6*time.Hour, logger.Discard())
	require.NoError(t, job(context.Background()))
	inv.AssertExpectations(t)
}

func TestExpireInvitations(t *testing.T) {
	t.Parallel()

	inv := &mockInvitations{}
	inv.On("ExpireStale", mock.Anything).Return(3, nil).Once()
	require.NoError(t, jobs.ExpireInvitations(inv)(context.Background()))
	inv.AssertExpectations(t)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	t.Parallel()

	s := jobs.NewScheduler()
	err := s.Add("broken", "not a schedule", func(context.Context) error { return nil })
	assert.Error(t, err)

	err = jobs.RegisterInvitationJobs(s, jobs.Config{ExpirySchedule: "nope", ReminderSchedule: "@hourly"}, &mockInvitations{}, newDirectory(t))
	assert.Error(t, err)
}

func TestSchedulerRunsJobs(t *testing.T) {
	t.Parallel()

	s := jobs.NewScheduler()
	var runs atomic.Int32
	require.NoError(t, s.Add("tick", "@every 1s", func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("failures are logged, not fatal")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	assert.ErrorIs(t, s.Start(ctx), jobs.ErrSchedulerRunning)

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, s.Stop(stopCtx))
}
