package cmd

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/example/courtsched/internal/config"
)

func TestApplyHeadless(t *testing.T) {
	tests := []struct {
		name string
		env  bool
		args []string
		want bool
	}{
		{name: "environment toggle survives an absent flag", env: true, args: nil, want: true},
		{name: "explicit flag disables", env: true, args: []string{"--headless=false"}, want: false},
		{name: "explicit flag enables", env: false, args: []string{"--headless"}, want: true},
		{name: "both off", env: false, args: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
			var headless bool
			flags.BoolVar(&headless, "headless", false, "run the browser headless")
			require.NoError(t, flags.Parse(tt.args))

			cfg := &config.Config{Headless: tt.env}
			applyHeadless(cfg, flags, headless)
			require.Equal(t, tt.want, cfg.Headless)
		})
	}
}
