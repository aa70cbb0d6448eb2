package cmd

import (
	"github.com/spf13/pflag"

	"github.com/example/courtsched/internal/config"
)

// applyHeadless overrides the configured HEADLESS toggle only when the flag
// was given on the command line; an unset flag must not clobber the
// environment value.
func applyHeadless(cfg *config.Config, flags *pflag.FlagSet, value bool) {
	if flags.Changed("headless") {
		cfg.Headless = value
	}
}
