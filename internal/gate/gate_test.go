package gate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestComputeWaitBoundary(t *testing.T) {
	g := Gate{Hour: 8, Log: zap.NewNop()}
	target := time.Date(2026, time.June, 15, 8, 0, 0, 0, Location())

	require.Equal(t, time.Duration(0), g.ComputeWait(target))
	require.Equal(t, time.Second, g.ComputeWait(target.Add(-time.Second)))
	require.Equal(t, time.Duration(0), g.ComputeWait(target.Add(time.Second)), "never negative")
}

func TestComputeWaitAcrossZones(t *testing.T) {
	g := Gate{Hour: 8, Log: zap.NewNop()}

	// 07:00 Eastern expressed as UTC must still be one hour out.
	target := time.Date(2026, time.June, 15, 7, 0, 0, 0, Location())
	require.Equal(t, time.Hour, g.ComputeWait(target.UTC()))
}

func TestComputeWaitFullDaySpread(t *testing.T) {
	g := Gate{Hour: 8, Log: zap.NewNop()}
	midnight := time.Date(2026, time.January, 2, 0, 0, 0, 0, Location())

	require.Equal(t, 8*time.Hour, g.ComputeWait(midnight))
	require.Equal(t, time.Duration(0), g.ComputeWait(midnight.Add(23*time.Hour)))
}

func TestWaitImmediateWhenPast(t *testing.T) {
	// An hour that is always in the past of any given day.
	g := Gate{Hour: 0, Log: zap.NewNop()}

	done := make(chan error, 1)
	go func() { done <- g.Wait(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("gate did not release immediately for a past instant")
	}
}

func TestWaitHonorsCancellation(t *testing.T) {
	// Hour 23 is in the future for almost the entire day; when it is not,
	// ComputeWait returns zero and Wait exits without blocking, which still
	// satisfies the assertion below.
	g := Gate{Hour: 23, Log: zap.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Wait(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			require.ErrorIs(t, err, context.Canceled)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("gate ignored cancellation")
	}
}

func TestDateString(t *testing.T) {
	require.Equal(t, Now().Format("2006-01-02"), DateString(0))
	require.Equal(t, Now().AddDate(0, 0, 3).Format("2006-01-02"), DateString(3))
}
