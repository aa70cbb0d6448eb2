// Package gate implements the release-time barrier. The permit site releases
// new slots at a fixed local hour in US Eastern time, so all wall-clock math
// here is pinned to that zone regardless of where the process runs.
package gate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var eastern *time.Location

func init() {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic(fmt.Sprintf("load America/New_York: %v", err))
	}
	eastern = loc
}

// Location returns the reference timezone.
func Location() *time.Location { return eastern }

// Now returns the current time in the reference timezone.
func Now() time.Time { return time.Now().In(eastern) }

// DateString formats today+offset as YYYY-MM-DD in the reference timezone.
func DateString(daysOffset int) string {
	return Now().AddDate(0, 0, daysOffset).Format("2006-01-02")
}

// Gate suspends a booking run until the release instant.
type Gate struct {
	Hour int
	Log  *zap.Logger
}

// ComputeWait returns how long to suspend before today's release instant
// (Hour:00:00 Eastern). Zero when now is at or past the instant.
func (g Gate) ComputeWait(now time.Time) time.Duration {
	now = now.In(eastern)
	target := time.Date(now.Year(), now.Month(), now.Day(), g.Hour, 0, 0, 0, eastern)
	if !now.Before(target) {
		return 0
	}
	return target.Sub(now)
}

// Wait blocks the calling goroutine until the release instant, or returns
// early with the context error if the run is cancelled. Proceeds immediately
// when the instant has already passed.
func (g Gate) Wait(ctx context.Context) error {
	d := g.ComputeWait(time.Now())
	if d == 0 {
		g.Log.Info("past release time, proceeding immediately", zap.Int("release_hour", g.Hour))
		return nil
	}
	g.Log.Info("waiting for release time",
		zap.Int("release_hour", g.Hour),
		zap.Duration("wait", d))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
