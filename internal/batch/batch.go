// Package batch runs a configured list of booking requests with bounded
// parallelism and collects per-request outcomes. It never lets an error or
// panic escape its boundary; everything becomes a failure outcome.
package batch

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/example/courtsched/internal/booking"
	"github.com/example/courtsched/internal/catalog"
)

// Entry is one schedule-file booking line.
type Entry struct {
	Time     int    `mapstructure:"time"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	Days     int    `mapstructure:"days"`
	Court    string `mapstructure:"court"`
}

// LoadSchedule reads the booking list from a YAML schedule file and resolves
// every entry into a request. Unknown courts and bad slots fail here, before
// any browser is touched; entries may omit credentials, which the caller
// fills from the default account and validates afterwards.
func LoadSchedule(path string) ([]booking.Request, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read schedule %s: %w", path, err)
	}
	var entries []Entry
	if err := v.UnmarshalKey("bookings", &entries); err != nil {
		return nil, fmt.Errorf("parse schedule %s: %w", path, err)
	}

	reqs := make([]booking.Request, 0, len(entries))
	for i, e := range entries {
		req := booking.Request{
			Hour:      e.Time,
			Email:     e.Email,
			Password:  e.Password,
			DayOffset: e.Days,
		}
		if e.Court != "" {
			c, err := catalog.Resolve(e.Court)
			if err != nil {
				return nil, fmt.Errorf("schedule entry %d: %w", i+1, err)
			}
			req.Court = &c
		}
		if err := req.ValidateSlot(); err != nil {
			return nil, fmt.Errorf("schedule entry %d: %w", i+1, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// Runner executes one booking request to its terminal outcome.
type Runner func(ctx context.Context, req booking.Request) booking.Outcome

type Result struct {
	Request booking.Request
	Outcome booking.Outcome
}

type Summary struct {
	Succeeded int
	Failed    int
}

type Orchestrator struct {
	Run         Runner
	MaxParallel int
	Log         *zap.Logger
}

// RunAll executes every request, at most MaxParallel at a time, and returns
// the per-request results in input order with a success/failure summary.
func (o *Orchestrator) RunAll(ctx context.Context, reqs []booking.Request) ([]Result, Summary) {
	limit := int64(o.MaxParallel)
	if limit < 1 {
		limit = 1
	}
	sem := semaphore.NewWeighted(limit)
	results := make([]Result, len(reqs))

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req booking.Request) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = Result{Request: req, Outcome: booking.Outcome{
					Message: fmt.Sprintf("An error occurred during execution: %v", err),
				}}
				return
			}
			defer sem.Release(1)
			defer func() {
				if r := recover(); r != nil {
					o.Log.Error("booking run panicked",
						zap.String("account", req.Email), zap.Any("panic", r))
					results[i] = Result{Request: req, Outcome: booking.Outcome{
						Message: fmt.Sprintf("An error occurred during execution: %v", r),
					}}
				}
			}()
			results[i] = Result{Request: req, Outcome: o.Run(ctx, req)}
		}(i, req)
	}
	wg.Wait()

	var sum Summary
	for _, r := range results {
		if r.Outcome.Success {
			sum.Succeeded++
		} else {
			sum.Failed++
		}
	}
	o.Log.Info("batch finished",
		zap.Int("requests", len(reqs)),
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed))
	return results, sum
}

// RenderPlan prints the planned bookings without running anything. Passwords
// never appear; emails are shown as-is since the operator configured them.
func RenderPlan(w io.Writer, reqs []booking.Request) {
	fmt.Fprintln(w, "Planned bookings (dry-run):")
	fmt.Fprintln(w)
	for _, req := range reqs {
		court := req.Court
		if court == nil {
			first := catalog.PriorityOrder(req.Hour)[0]
			court = &first
		}
		fmt.Fprintf(w, "- %s time=%d days=%d court=%s (site_id=%s) password=%s\n",
			req.Email, req.Hour, req.DayOffset, court.Name, court.SiteID, Mask(req.Password))
	}
}

// Mask hides all but the first two characters of a secret.
func Mask(s string) string {
	if len(s) <= 2 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-2)
}
