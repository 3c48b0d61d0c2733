package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/finders-backend/internal/usecase/contract"
	"github.com/ignatzorin/finders-backend/internal/usecase/token"
)

type fakeLocker struct {
	ok       bool
	err      error
	released atomic.Int32
}

func (l *fakeLocker) TryLock(context.Context, string) (func(context.Context) error, bool, error) {
	if l.err != nil || !l.ok {
		return nil, false, l.err
	}
	return func(context.Context) error {
		l.released.Add(1)
		return nil
	}, true, nil
}

type mockDistributor struct{ mock.Mock }

func (d *mockDistributor) Run(ctx context.Context, now time.Time) (token.DistributionReport, error) {
	args := d.Called(ctx, now)
	return args.Get(0).(token.DistributionReport), args.Error(1)
}

type countingSweep struct{ calls atomic.Int32 }

func (s *countingSweep) Run(context.Context, time.Time) (contract.SweepReport, error) {
	s.calls.Add(1)
	return contract.SweepReport{}, nil
}

type expirer struct{ at time.Time }

func (e *expirer) ExpireDue(_ context.Context, now time.Time) (int, error) {
	e.at = now
	return 0, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRunNow_UnknownJob(t *testing.T) {
	s := NewSupervisor(nil)
	_, err := s.RunNow(context.Background(), "missing")
	assert.Error(t, err)
}

func TestMonthlyTokenJob_OnlyOnFirstDay(t *testing.T) {
	firstDay := time.Date(2026, time.April, 1, 0, 30, 0, 0, time.UTC)
	d := &mockDistributor{}
	d.On("Run", mock.Anything, firstDay).Return(token.DistributionReport{Granted: 3}, nil).Once()

	s := NewSupervisor(nil)
	s.Register(MonthlyTokenJob(d, time.Hour))

	s.now = fixedClock(time.Date(2026, time.April, 2, 10, 0, 0, 0, time.UTC))
	ran, err := s.RunNow(context.Background(), JobMonthlyTokenGrant)
	require.NoError(t, err)
	assert.True(t, ran)
	d.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)

	s.now = fixedClock(firstDay)
	_, err = s.RunNow(context.Background(), JobMonthlyTokenGrant)
	require.NoError(t, err)
	d.AssertExpectations(t)
}

func TestStrikeExpiryJob_PassesClock(t *testing.T) {
	e := &expirer{}
	s := NewSupervisor(nil)
	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
	s.now = fixedClock(now)
	s.Register(StrikeExpiryJob(e, time.Hour))

	_, err := s.RunNow(context.Background(), JobStrikeExpiry)
	require.NoError(t, err)
	assert.Equal(t, now, e.at)
}

func TestExecute_SkipsWhileRunning(t *testing.T) {
	started := make(chan struct{})
	unblock := make(chan struct{})
	var calls atomic.Int32

	s := NewSupervisor(nil)
	s.Register(Job{Name: "slow", Run: func(context.Context, time.Time) error {
		calls.Add(1)
		close(started)
		<-unblock
		return nil
	}})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.RunNow(context.Background(), "slow")
	}()
	<-started

	ran, err := s.RunNow(context.Background(), "slow")
	require.NoError(t, err)
	assert.False(t, ran)

	close(unblock)
	<-done
	assert.Equal(t, int32(1), calls.Load())
}

func TestExecute_RespectsLocker(t *testing.T) {
	sweep := &countingSweep{}

	busy := &fakeLocker{ok: false}
	s := NewSupervisor(busy)
	s.Register(SettlementJob(sweep, time.Hour))
	ran, err := s.RunNow(context.Background(), JobSettlement)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Zero(t, sweep.calls.Load())

	broken := &fakeLocker{err: errors.New("redis down")}
	s = NewSupervisor(broken)
	s.Register(SettlementJob(sweep, time.Hour))
	_, err = s.RunNow(context.Background(), JobSettlement)
	assert.Error(t, err)
	assert.Zero(t, sweep.calls.Load())

	free := &fakeLocker{ok: true}
	s = NewSupervisor(free)
	s.Register(SettlementJob(sweep, time.Hour))
	ran, err = s.RunNow(context.Background(), JobSettlement)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, int32(1), sweep.calls.Load())
	assert.Equal(t, int32(1), free.released.Load())
}

func TestExecute_RecoversPanic(t *testing.T) {
	s := NewSupervisor(nil)
	s.Register(Job{Name: "boom", Run: func(context.Context, time.Time) error { panic("boom") }})

	ran, err := s.RunNow(context.Background(), "boom")
	require.NoError(t, err)
	assert.True(t, ran)

	// флаг выполнения снят, следующий запуск возможен
	ran, _ = s.RunNow(context.Background(), "boom")
	assert.True(t, ran)
}

func TestExecute_ReturnsJobError(t *testing.T) {
	s := NewSupervisor(nil)
	s.Register(Job{Name: "fail", Run: func(context.Context, time.Time) error { return errors.New("db down") }})

	ran, err := s.RunNow(context.Background(), "fail")
	assert.True(t, ran)
	assert.EqualError(t, err, "db down")
}

func TestStartStop_RunsOnStart(t *testing.T) {
	sweep := &countingSweep{}
	s := NewSupervisor(nil)
	s.Register(SettlementJob(sweep, time.Hour))

	s.Start(context.Background())
	require.Eventually(t, func() bool { return sweep.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	s.Stop()

	assert.Equal(t, int32(1), sweep.calls.Load())
}
