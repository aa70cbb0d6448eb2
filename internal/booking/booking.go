// Package booking drives one reservation attempt end to end: authenticate,
// open the permit form, pre-select a court, wait for the release instant, set
// date and time, confirm, and on a conflict walk the hour's fallback order
// until a court is accepted or the order is exhausted.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/courtsched/internal/catalog"
	"github.com/example/courtsched/internal/config"
	"github.com/example/courtsched/internal/session"
)

// ErrAuthentication marks a login failure, fatal for the attempt.
var ErrAuthentication = errors.New("authentication failed")

// Request describes one booking to perform.
type Request struct {
	Hour      int
	Email     string
	Password  string
	DayOffset int

	// Court pins the first attempt; when nil the head of the hour's
	// priority order is used.
	Court *catalog.Court
}

// ValidateSlot checks the time fields only. Credentials are exempt so a
// schedule entry can be checked before the default account is filled in.
func (r Request) ValidateSlot() error {
	if r.Hour < 0 || r.Hour > 23 {
		return fmt.Errorf("hour %d out of range", r.Hour)
	}
	if r.DayOffset < 0 {
		return fmt.Errorf("day offset %d must be >= 0", r.DayOffset)
	}
	return nil
}

func (r Request) Validate() error {
	if err := r.ValidateSlot(); err != nil {
		return err
	}
	if r.Email == "" || r.Password == "" {
		return fmt.Errorf("credentials required")
	}
	return nil
}

// Outcome is the terminal result of one run. Court is the court actually
// accepted by the site, nil when nothing was booked.
type Outcome struct {
	Court   *catalog.Court
	Success bool
	Message string
}

// Driver is the interaction surface the state machine needs from a browser
// session. Reliable methods poll up to their timeout; Fast methods attempt
// direct script injection and report failure instead of raising, so callers
// can chain to the reliable path.
type Driver interface {
	Navigate(url string) error
	AwaitVisible(sel string, timeout time.Duration) bool
	AwaitClickable(sel string, timeout time.Duration) bool
	AwaitGone(sel string, timeout time.Duration) bool
	WaitTextChanged(sel, initial string, timeout time.Duration) bool
	Click(sel string, timeout time.Duration) error
	SendKeys(sel, value string, timeout time.Duration) error
	SelectValue(sel, value string, timeout time.Duration) error
	Text(sel string, timeout time.Duration) (string, error)
	FastClick(sel string) bool
	FastSetValue(sel, value string) bool
	FastEval(js string) bool
	Sleep(d time.Duration)
}

var _ Driver = (*session.Session)(nil)

// Book performs one complete booking attempt with its own browser session.
// The session is released on every exit path.
func Book(ctx context.Context, cfg *config.Config, log *zap.Logger, req Request) Outcome {
	if err := req.Validate(); err != nil {
		return Outcome{Message: fmt.Sprintf("invalid booking request: %v", err)}
	}
	sess, err := session.Acquire(ctx, cfg, cfg.Headless, log)
	if err != nil {
		return Outcome{Message: fmt.Sprintf("An error occurred during driver initialization: %v", err)}
	}
	return run(ctx, sess, sess.Release, cfg, log, req)
}

func run(ctx context.Context, drv Driver, release func(), cfg *config.Config, log *zap.Logger, req Request) Outcome {
	defer release()
	return NewMachine(drv, cfg, log).Run(ctx, req)
}
