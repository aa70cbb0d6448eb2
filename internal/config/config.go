// Package config builds the immutable process configuration. Values come from
// an optional courtsched.yaml plus environment variables; every component
// receives the resulting Config by reference and nothing reads the environment
// after startup.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Remote endpoints.
	LoginURL         string
	ConflictCheckURL string
	UserAgent        string

	// Bookable start hours, inclusive of BookingStartHour and exclusive of
	// BookingEndHour.
	BookingStartHour int
	BookingEndHour   int

	// Hour of day (US Eastern) at which the site releases new slots.
	ReleaseHour int

	// Login retry policy. Applies to authentication only; submission is
	// never retried.
	MaxLoginAttempts int
	RetryDelay       time.Duration

	// Interaction timeouts.
	LoginTimeout    time.Duration
	ElementTimeout  time.Duration
	ShortTimeout    time.Duration
	ConfirmTimeout  time.Duration
	PageLoadTimeout time.Duration
	SettleDelay     time.Duration

	// Browser.
	Headless    bool
	ChromeFlags []string

	// Default account, overridable per booking request.
	Email    string
	Password string

	// Batch orchestration.
	MaxParallel  int
	SchedulePath string

	Debug bool
}

// JavaScript stays on, everything decorative is off.
var defaultChromeFlags = []string{
	"disable-gpu",
	"disable-dev-shm-usage",
	"no-sandbox",
	"disable-extensions",
	"disable-background-timer-throttling",
	"disable-renderer-backgrounding",
	"disable-backgrounding-occluded-windows",
	"disable-default-apps",
	"disable-sync",
	"disable-blink-features=AutomationControlled",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("courtsched")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("LOGIN_URL", "https://rioc.civicpermits.com/Account/Login?ReturnUrl=%2f")
	v.SetDefault("CONFLICT_CHECK_URL", "https://rioc.civicpermits.com/Permits/ConflictCheck")
	v.SetDefault("USER_AGENT", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36")
	v.SetDefault("BOOKING_START_HOUR", 8)
	v.SetDefault("BOOKING_END_HOUR", 22)
	v.SetDefault("RELEASE_HOUR", 8)
	v.SetDefault("MAX_LOGIN_ATTEMPTS", 3)
	v.SetDefault("RETRY_DELAY", "2s")
	v.SetDefault("LOGIN_TIMEOUT", "5s")
	v.SetDefault("ELEMENT_TIMEOUT", "8s")
	v.SetDefault("SHORT_TIMEOUT", "3s")
	v.SetDefault("CONFIRM_TIMEOUT", "2s")
	v.SetDefault("PAGE_LOAD_TIMEOUT", "15s")
	v.SetDefault("SETTLE_DELAY", "2s")
	v.SetDefault("HEADLESS", false)
	v.SetDefault("MAX_PARALLEL", 2)
	v.SetDefault("SCHEDULE_PATH", "bookings.yaml")
	v.SetDefault("DEBUG", false)
	v.SetDefault("BOOKING_EMAIL", "")
	v.SetDefault("BOOKING_PASSWORD", "")
	v.SetDefault("TENNIS_EMAIL", "")
	v.SetDefault("TENNIS_PASSWORD", "")

	// Config file is optional; env-only deployments are the common case.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		LoginURL:         v.GetString("LOGIN_URL"),
		ConflictCheckURL: v.GetString("CONFLICT_CHECK_URL"),
		UserAgent:        v.GetString("USER_AGENT"),
		BookingStartHour: v.GetInt("BOOKING_START_HOUR"),
		BookingEndHour:   v.GetInt("BOOKING_END_HOUR"),
		ReleaseHour:      v.GetInt("RELEASE_HOUR"),
		MaxLoginAttempts: v.GetInt("MAX_LOGIN_ATTEMPTS"),
		RetryDelay:       v.GetDuration("RETRY_DELAY"),
		LoginTimeout:     v.GetDuration("LOGIN_TIMEOUT"),
		ElementTimeout:   v.GetDuration("ELEMENT_TIMEOUT"),
		ShortTimeout:     v.GetDuration("SHORT_TIMEOUT"),
		ConfirmTimeout:   v.GetDuration("CONFIRM_TIMEOUT"),
		PageLoadTimeout:  v.GetDuration("PAGE_LOAD_TIMEOUT"),
		SettleDelay:      v.GetDuration("SETTLE_DELAY"),
		Headless:         v.GetBool("HEADLESS"),
		ChromeFlags:      defaultChromeFlags,
		MaxParallel:      v.GetInt("MAX_PARALLEL"),
		SchedulePath:     v.GetString("SCHEDULE_PATH"),
		Debug:            v.GetBool("DEBUG"),
	}

	// TENNIS_* wins over BOOKING_* for the default account.
	cfg.Email = firstNonEmpty(v.GetString("TENNIS_EMAIL"), v.GetString("BOOKING_EMAIL"))
	cfg.Password = firstNonEmpty(v.GetString("TENNIS_PASSWORD"), v.GetString("BOOKING_PASSWORD"))

	// End hour caps at 23: the scanner's probe for start hour H spans
	// H:00..H+1:00 on the same date, and the remote API has no hour 24.
	if cfg.BookingStartHour < 0 || cfg.BookingEndHour > 23 || cfg.BookingStartHour >= cfg.BookingEndHour {
		return nil, fmt.Errorf("invalid booking hour window %d..%d", cfg.BookingStartHour, cfg.BookingEndHour)
	}
	if cfg.ReleaseHour < 0 || cfg.ReleaseHour > 23 {
		return nil, fmt.Errorf("invalid RELEASE_HOUR %d", cfg.ReleaseHour)
	}
	if cfg.MaxParallel < 1 {
		return nil, fmt.Errorf("MAX_PARALLEL must be >= 1")
	}
	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, s := range vals {
		if s != "" {
			return s
		}
	}
	return ""
}
