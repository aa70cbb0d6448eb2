// Package session wraps one chromedp browser session. A Session is owned by
// exactly one booking run: acquired at the start, released on every exit path,
// never shared. It exposes two capability levels for each interaction — a
// fast script-injection path that reports failure instead of raising, and a
// reliable polled path bounded by a timeout.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/example/courtsched/internal/config"
)

// fastTimeout bounds the CDP round trip for the script-injection paths. The
// scripts themselves do not wait for elements; failure comes back immediately.
const fastTimeout = 2 * time.Second

const pollInterval = 100 * time.Millisecond

type Session struct {
	ctx      context.Context
	cancels  []context.CancelFunc
	cfg      *config.Config
	log      *zap.Logger
	released bool
}

// Acquire launches a configured browser and returns the live session. The
// caller must arrange for Release to run on every exit path.
func Acquire(parent context.Context, cfg *config.Config, headless bool, log *zap.Logger) (*Session, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", headless),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(cfg.UserAgent),
	)
	for _, f := range cfg.ChromeFlags {
		if name, value, found := strings.Cut(f, "="); found {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(f, true))
		}
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx:     browserCtx,
		cancels: []context.CancelFunc{cancelBrowser, cancelAlloc},
		cfg:     cfg,
		log:     log,
	}

	// Start the browser now so acquisition failures surface here, not on the
	// first interaction.
	if err := chromedp.Run(browserCtx); err != nil {
		s.Release()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	log.Info("browser session acquired", zap.Bool("headless", headless))
	return s, nil
}

// Release closes the browser and frees the allocator. Safe to call more than
// once; failures are logged and never propagated so they cannot mask the
// outcome of the run that owned the session.
func (s *Session) Release() {
	if s.released {
		return
	}
	s.released = true
	if err := chromedp.Cancel(s.ctx); err != nil {
		s.log.Warn("browser shutdown reported an error", zap.Error(err))
	}
	for _, cancel := range s.cancels {
		cancel()
	}
	s.log.Info("browser session released")
}

// Navigate loads url, bounded by the configured page-load timeout.
func (s *Session) Navigate(url string) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.PageLoadTimeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// AwaitVisible polls until the element is visible or the timeout elapses.
func (s *Session) AwaitVisible(sel string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.WaitVisible(sel, byOpt(sel))); err != nil {
		s.log.Debug("element not visible within timeout", zap.String("sel", sel), zap.Duration("timeout", timeout))
		return false
	}
	return true
}

// AwaitClickable polls until the element is visible and enabled.
func (s *Session) AwaitClickable(sel string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	err := chromedp.Run(ctx,
		chromedp.WaitVisible(sel, byOpt(sel)),
		chromedp.WaitEnabled(sel, byOpt(sel)),
	)
	if err != nil {
		s.log.Debug("element not clickable within timeout", zap.String("sel", sel), zap.Duration("timeout", timeout))
		return false
	}
	return true
}

// AwaitGone polls until the element is absent from the DOM or hidden. Used to
// detect the confirm control disappearing after an accepted booking.
func (s *Session) AwaitGone(sel string, timeout time.Duration) bool {
	js := fmt.Sprintf(`(function(){
		var el = %s;
		return !el || el.offsetParent === null;
	})()`, jsLocator(sel))
	return s.pollUntil(js, timeout)
}

// WaitTextChanged polls until the element's text differs from initial.
func (s *Session) WaitTextChanged(sel, initial string, timeout time.Duration) bool {
	js := fmt.Sprintf(`(function(){
		var el = %s;
		return !!el && el.textContent !== %q;
	})()`, jsLocator(sel), initial)
	return s.pollUntil(js, timeout)
}

// Click waits for the element to be clickable, then clicks it.
func (s *Session) Click(sel string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.Click(sel, byOpt(sel))); err != nil {
		return fmt.Errorf("click %s: %w", sel, err)
	}
	return nil
}

// SendKeys clears the element and types value into it.
func (s *Session) SendKeys(sel, value string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	err := chromedp.Run(ctx,
		chromedp.Clear(sel, byOpt(sel)),
		chromedp.SendKeys(sel, value, byOpt(sel)),
	)
	if err != nil {
		return fmt.Errorf("send keys to %s: %w", sel, err)
	}
	return nil
}

// SelectValue waits for a select control, sets its value and dispatches a
// change event so dependent fields refresh, as a real selection would.
func (s *Session) SelectValue(sel, value string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	js := fmt.Sprintf(`(function(){
		var el = %s;
		if (!el) return false;
		el.value = %q;
		el.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	})()`, jsLocator(sel), value)
	var ok bool
	err := chromedp.Run(ctx,
		chromedp.WaitVisible(sel, byOpt(sel)),
		chromedp.Evaluate(js, &ok),
	)
	if err != nil {
		return fmt.Errorf("select %q on %s: %w", value, sel, err)
	}
	if !ok {
		return fmt.Errorf("select %q on %s: element not found", value, sel)
	}
	return nil
}

// Text returns the element's visible text.
func (s *Session) Text(sel string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	var out string
	if err := chromedp.Run(ctx, chromedp.Text(sel, &out, byOpt(sel))); err != nil {
		return "", fmt.Errorf("read text of %s: %w", sel, err)
	}
	return out, nil
}

// FastClick clicks via direct script injection. Returns false when the element
// cannot be resolved this way; the caller then uses the reliable path.
func (s *Session) FastClick(sel string) bool {
	js := fmt.Sprintf(`(function(){
		var el = %s;
		if (!el) return false;
		el.click();
		return true;
	})()`, jsLocator(sel))
	return s.FastEval(js)
}

// FastSetValue sets an input's value via script injection, firing input and
// change events. Returns false when the element cannot be resolved.
func (s *Session) FastSetValue(sel, value string) bool {
	js := fmt.Sprintf(`(function(){
		var el = %s;
		if (!el) return false;
		el.value = %q;
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	})()`, jsLocator(sel), value)
	return s.FastEval(js)
}

// FastEval evaluates a script expected to yield a boolean, awaiting it when it
// yields a promise. Any evaluation error reads as false.
func (s *Session) FastEval(js string) bool {
	ctx, cancel := context.WithTimeout(s.ctx, fastTimeout)
	defer cancel()
	var ok bool
	err := chromedp.Run(ctx, chromedp.Evaluate(js, &ok,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
	if err != nil {
		s.log.Debug("fast path script failed", zap.Error(err))
		return false
	}
	return ok
}

// Sleep pauses the run, for fixed settle delays after injected scripts.
func (s *Session) Sleep(d time.Duration) {
	ctx, cancel := context.WithTimeout(s.ctx, d+time.Second)
	defer cancel()
	_ = chromedp.Run(ctx, chromedp.Sleep(d))
}

// pollUntil evaluates a boolean predicate script every pollInterval until it
// reports true or the timeout elapses.
func (s *Session) pollUntil(js string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		var ok bool
		if err := chromedp.Run(ctx, chromedp.Evaluate(js, &ok)); err == nil && ok {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// byOpt picks the chromedp query strategy: XPath expressions go through the
// DOM search API, everything else is treated as a CSS selector.
func byOpt(sel string) chromedp.QueryOption {
	if strings.HasPrefix(sel, "//") || strings.HasPrefix(sel, "(") {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// jsLocator builds a script fragment resolving sel to an element or null.
func jsLocator(sel string) string {
	if strings.HasPrefix(sel, "//") || strings.HasPrefix(sel, "(") {
		return fmt.Sprintf(`document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue`, sel)
	}
	return fmt.Sprintf(`document.querySelector(%q)`, sel)
}
