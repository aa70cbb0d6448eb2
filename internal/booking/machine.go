package booking

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/courtsched/internal/catalog"
	"github.com/example/courtsched/internal/config"
	"github.com/example/courtsched/internal/gate"
	"github.com/example/courtsched/internal/retry"
)

// datepickerMonthCap bounds the slow date-picker walk; the site never offers
// dates more than a few months out.
const datepickerMonthCap = 24

// Machine sequences the booking states against one Driver. Every interaction
// point tries the fast injected path first and falls back to the reliable
// polled path when the fast path reports failure.
type Machine struct {
	drv Driver
	cfg *config.Config
	log *zap.Logger

	gate interface {
		Wait(ctx context.Context) error
	}
	now func() time.Time
}

func NewMachine(drv Driver, cfg *config.Config, log *zap.Logger) *Machine {
	return &Machine{
		drv:  drv,
		cfg:  cfg,
		log:  log,
		gate: gate.Gate{Hour: cfg.ReleaseHour, Log: log},
		now:  gate.Now,
	}
}

// Run executes one booking attempt to its terminal outcome. Errors at any
// state produce a failure outcome; they are never propagated.
func (m *Machine) Run(ctx context.Context, req Request) Outcome {
	log := m.log.With(
		zap.String("account", req.Email),
		zap.Int("hour", req.Hour),
		zap.Int("day_offset", req.DayOffset),
	)
	start := time.Now()

	court := req.Court
	if court == nil {
		first := catalog.PriorityOrder(req.Hour)[0]
		court = &first
	}
	log.Info("starting booking run", zap.String("court", court.Name))

	fail := func(err error) Outcome {
		log.Error("booking run failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return Outcome{Message: fmt.Sprintf("An error occurred during execution: %v", err)}
	}

	// Login is the one step safe to retry wholesale.
	err := retry.Do(ctx, m.cfg.MaxLoginAttempts, m.cfg.RetryDelay, log, func() error {
		return m.login(req.Email, req.Password)
	})
	if err != nil {
		return fail(err)
	}

	if err := m.navigateToForm(); err != nil {
		return fail(err)
	}

	if err := m.selectCourt(*court); err != nil {
		return fail(err)
	}

	// Barrier: everything above is safe to do early; the date/time entry and
	// confirm must not land before the site releases the slots.
	if err := m.gate.Wait(ctx); err != nil {
		return fail(err)
	}

	if err := m.selectDateTime(req.Hour, req.DayOffset); err != nil {
		return fail(err)
	}

	if err := m.drv.Click(selConfirmButton, m.cfg.ElementTimeout); err != nil {
		return fail(fmt.Errorf("confirm booking: %w", err))
	}

	booked := court
	if m.conflictShown() {
		log.Warn("court unavailable, walking fallback order", zap.String("court", court.Name))
		if alt, ok := m.tryAlternates(req.Hour, *court); ok {
			booked = &alt
			log.Info("fallback court accepted", zap.String("court", alt.Name))
		} else {
			booked = nil
			log.Warn("fallback order exhausted")
		}
	}

	// The form is filled and submitted even when no court was accepted,
	// matching the long-observed behavior of the system this replaces. A
	// policy call to revisit, not a bug to fix quietly here.
	m.fillDetails()
	if err := m.drv.Click(selSubmitButton, m.cfg.ElementTimeout); err != nil && booked != nil {
		return fail(fmt.Errorf("submit form: %w", err))
	}

	if booked == nil {
		msg := fmt.Sprintf("Booking failed under account %s for time %d on day %d.", req.Email, req.Hour, req.DayOffset)
		log.Warn("booking run finished without a court", zap.Duration("elapsed", time.Since(start)))
		return Outcome{Message: msg}
	}
	msg := fmt.Sprintf("Booking successful for %s under account %s for time %d on day %d.", booked.Name, req.Email, req.Hour, req.DayOffset)
	log.Info("booking run finished",
		zap.String("court", booked.Name),
		zap.Duration("elapsed", time.Since(start)))
	return Outcome{Court: booked, Success: true, Message: msg}
}

// login submits credentials via the fast path; the first fast sub-step that
// fails demotes the remainder of authentication to the reliable path.
func (m *Machine) login(email, password string) error {
	if err := m.drv.Navigate(m.cfg.LoginURL); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	if !m.drv.FastSetValue(selLoginEmail, email) {
		return m.reliableLogin(email, password)
	}
	if !m.drv.FastSetValue(selLoginPassword, password) {
		return m.reliableLogin(email, password)
	}
	if !m.drv.FastClick(selLoginButton) {
		return m.reliableLogin(email, password)
	}
	m.log.Info("logged in via fast path", zap.String("account", email))
	return nil
}

func (m *Machine) reliableLogin(email, password string) error {
	if err := m.drv.SendKeys(selLoginEmail, email, m.cfg.LoginTimeout); err != nil {
		return fmt.Errorf("%w: enter email: %v", ErrAuthentication, err)
	}
	if err := m.drv.SendKeys(selLoginPassword, password, m.cfg.LoginTimeout); err != nil {
		return fmt.Errorf("%w: enter password: %v", ErrAuthentication, err)
	}
	if err := m.drv.Click(selLoginButton, m.cfg.LoginTimeout); err != nil {
		return fmt.Errorf("%w: submit login: %v", ErrAuthentication, err)
	}
	m.log.Info("logged in via reliable path", zap.String("account", email))
	return nil
}

func (m *Machine) navigateToForm() error {
	if m.drv.FastClick(selNewPermitLink) {
		return nil
	}
	if err := m.drv.Click(selNewPermitLink, m.cfg.ElementTimeout); err != nil {
		return fmt.Errorf("open permit request form: %w", err)
	}
	return nil
}

// selectCourt pre-selects the court: site dropdown, add-facility control,
// court checkbox. The fast path runs all three inside one injected script and
// settles briefly; the reliable path performs them step by step, keyed on the
// site description refreshing after the dropdown change.
func (m *Machine) selectCourt(c catalog.Court) error {
	if m.drv.FastEval(fastSelectCourtScript(c.SiteID, c.CheckboxID)) {
		m.drv.Sleep(m.cfg.SettleDelay)
		m.log.Info("court pre-selected via fast path", zap.String("court", c.Name))
		return nil
	}

	if err := m.drv.SelectValue(selSite, c.SiteID, m.cfg.ElementTimeout); err != nil {
		return fmt.Errorf("select court %s: %w", c.Name, err)
	}
	initial, _ := m.drv.Text(selSiteDescription, m.cfg.ShortTimeout)
	if !m.drv.WaitTextChanged(selSiteDescription, initial, m.cfg.ElementTimeout) {
		return fmt.Errorf("select court %s: site description never refreshed", c.Name)
	}
	if err := m.drv.Click(selAddFacilitySet, m.cfg.ElementTimeout); err != nil {
		return fmt.Errorf("add facility set: %w", err)
	}
	if err := m.drv.Click(byID(c.CheckboxID), m.cfg.ElementTimeout); err != nil {
		return fmt.Errorf("check facility %s: %w", c.Name, err)
	}
	m.log.Info("court pre-selected via reliable path", zap.String("court", c.Name))
	return nil
}

// selectDateTime sets the target date and the one-hour window starting at
// hour. Fast path injects the values; the fallback walks the date picker
// month by month and sets the two hour selects.
func (m *Machine) selectDateTime(hour, dayOffset int) error {
	target := m.now().AddDate(0, 0, dayOffset)
	startVal := strconv.Itoa(hour)
	endVal := strconv.Itoa((hour + 1) % 24)

	if m.drv.FastEval(fastDateTimeScript(target.Format("01/02/2006"), startVal, endVal)) {
		m.log.Info("date/time set via fast path", zap.String("date", target.Format("2006-01-02")))
		return nil
	}

	if err := m.drv.Click(selDateInput, m.cfg.ElementTimeout); err != nil {
		return fmt.Errorf("open date picker: %w", err)
	}
	if !m.drv.AwaitVisible(selDatepicker, m.cfg.ElementTimeout) {
		return fmt.Errorf("date picker did not appear")
	}
	if err := m.walkDatepicker(target); err != nil {
		return err
	}
	if err := m.drv.SelectValue(selStartHour, startVal, m.cfg.ElementTimeout); err != nil {
		return fmt.Errorf("set start hour: %w", err)
	}
	if err := m.drv.SelectValue(selEndHour, endVal, m.cfg.ElementTimeout); err != nil {
		return fmt.Errorf("set end hour: %w", err)
	}
	m.log.Info("date/time set via reliable path", zap.String("date", target.Format("2006-01-02")))
	return nil
}

func (m *Machine) walkDatepicker(target time.Time) error {
	wantMonth := target.Month().String()
	wantYear := strconv.Itoa(target.Year())
	dayLink := fmt.Sprintf(`//a[text()="%d"]`, target.Day())

	for i := 0; i < datepickerMonthCap; i++ {
		title, err := m.drv.Text(selDatepickerTitle, m.cfg.ShortTimeout)
		if err != nil {
			return fmt.Errorf("read date picker header: %w", err)
		}
		fields := strings.Fields(title)
		if len(fields) == 2 && fields[0] == wantMonth && fields[1] == wantYear {
			if err := m.drv.Click(dayLink, m.cfg.ElementTimeout); err != nil {
				return fmt.Errorf("pick day %d: %w", target.Day(), err)
			}
			return nil
		}
		if err := m.drv.Click(selDatepickerNext, m.cfg.ElementTimeout); err != nil {
			return fmt.Errorf("advance date picker: %w", err)
		}
		if !m.drv.WaitTextChanged(selDatepickerTitle, title, m.cfg.ElementTimeout) {
			return fmt.Errorf("date picker stuck on %q", title)
		}
	}
	return fmt.Errorf("date %s not reachable in date picker", target.Format("2006-01-02"))
}

// conflictShown polls briefly for the site's unavailability label.
func (m *Machine) conflictShown() bool {
	return m.drv.AwaitVisible(selConflictLabel, m.cfg.ShortTimeout)
}

// tryAlternates walks the hour's priority order, skipping the court already
// tried. A candidate wins when the confirm control disappears after clicking
// it, which is how the site signals acceptance. Short timeouts throughout;
// every failure just moves to the next candidate.
func (m *Machine) tryAlternates(hour int, tried catalog.Court) (catalog.Court, bool) {
	for _, c := range catalog.PriorityOrder(hour) {
		if c.SiteID == tried.SiteID {
			continue
		}
		m.log.Info("trying fallback court", zap.String("court", c.Name))

		if err := m.drv.SelectValue(selSite, c.SiteID, m.cfg.ElementTimeout); err != nil {
			m.log.Warn("fallback select failed", zap.String("court", c.Name), zap.Error(err))
			continue
		}
		if err := m.drv.Click(byID(c.CheckboxID), m.cfg.ShortTimeout); err != nil {
			m.log.Warn("fallback checkbox failed", zap.String("court", c.Name), zap.Error(err))
			continue
		}
		if err := m.drv.Click(selConfirmButton, m.cfg.ShortTimeout); err != nil {
			m.log.Warn("fallback confirm failed", zap.String("court", c.Name), zap.Error(err))
			continue
		}
		if m.drv.AwaitGone(selConfirmButton, m.cfg.ConfirmTimeout) {
			return c, true
		}
	}
	return catalog.Court{}, false
}

// fillDetails completes the auxiliary permit fields and the terms checkbox.
// Failures here are logged, not fatal; the submit click decides the run.
func (m *Machine) fillDetails() {
	if m.drv.FastEval(fastFillDetailsScript()) {
		m.log.Info("details filled via fast path")
		return
	}
	for id, value := range auxInputs {
		if err := m.drv.SendKeys(byID(id), value, m.cfg.ElementTimeout); err != nil {
			m.log.Warn("could not fill input", zap.String("field", id), zap.Error(err))
		}
	}
	for id, value := range auxSelects {
		if err := m.drv.SelectValue(byID(id), value, m.cfg.ElementTimeout); err != nil {
			m.log.Warn("could not set select", zap.String("field", id), zap.Error(err))
		}
	}
	if err := m.drv.Click(selAcceptTerms, m.cfg.ElementTimeout); err != nil {
		m.log.Warn("could not accept terms", zap.Error(err))
	}
	m.log.Info("details filled via reliable path")
}
