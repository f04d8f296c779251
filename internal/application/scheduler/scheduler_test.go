package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/hsewatch/internal/domain"
)

type runnerFunc func(ctx context.Context) (domain.BatchResult, error)

func (f runnerFunc) RunDaily(ctx context.Context) (domain.BatchResult, error) {
	return f(ctx)
}

func TestNew_InvalidSchedule(t *testing.T) {
	_, err := New(runnerFunc(nil), WithSchedule("not a cron"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")
}

func TestNext_DefaultScheduleInLocation(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	s, err := New(runnerFunc(nil), WithLocation(jakarta))
	require.NoError(t, err)

	// 08:00 local has passed today's 07:00 slot.
	after := time.Date(2025, 6, 1, 8, 0, 0, 0, jakarta)
	next := s.Next(after)

	assert.Equal(t, time.Date(2025, 6, 2, 7, 0, 0, 0, jakarta), next)
}

func TestNext_CustomSchedule(t *testing.T) {
	s, err := New(runnerFunc(nil), WithSchedule("30 6 * * 1-5"))
	require.NoError(t, err)

	// Saturday morning rolls over to Monday.
	after := time.Date(2025, 6, 7, 5, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 9, 6, 30, 0, 0, time.UTC), s.Next(after))
}

func TestRunOnce_RunInProgressIsNotAnError(t *testing.T) {
	s, err := New(runnerFunc(func(context.Context) (domain.BatchResult, error) {
		return domain.BatchResult{}, domain.ErrRunInProgress
	}))
	require.NoError(t, err)

	assert.NoError(t, s.RunOnce(context.Background()))
}

func TestRunOnce_PropagatesFailure(t *testing.T) {
	storeErr := errors.New("store unreachable")
	s, err := New(runnerFunc(func(context.Context) (domain.BatchResult, error) {
		return domain.BatchResult{}, storeErr
	}))
	require.NoError(t, err)

	assert.ErrorIs(t, s.RunOnce(context.Background()), storeErr)
}

func TestRunOnce_AppliesOperationTimeout(t *testing.T) {
	s, err := New(runnerFunc(func(ctx context.Context) (domain.BatchResult, error) {
		<-ctx.Done()
		return domain.BatchResult{}, ctx.Err()
	}), WithOperationTimeout(20*time.Millisecond))
	require.NoError(t, err)

	err = s.RunOnce(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStart_RunOnStartAndGracefulStop(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	s, err := New(runnerFunc(func(context.Context) (domain.BatchResult, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		return domain.BatchResult{Total: 1, Sent: 1}, nil
	}), WithRunOnStart(true), WithSchedule("0 0 1 1 *"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("run on start did not happen")
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestStart_WaitsForInFlightRun(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var finished atomic.Bool

	s, err := New(runnerFunc(func(context.Context) (domain.BatchResult, error) {
		close(started)
		<-release
		finished.Store(true)
		return domain.BatchResult{}, nil
	}), WithRunOnStart(true), WithSchedule("0 0 1 1 *"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	<-started
	cancel()

	select {
	case <-done:
		t.Fatal("Start returned before the in-flight run finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-done)
	assert.True(t, finished.Load())
}
