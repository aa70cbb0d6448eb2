package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/courtsched/internal/config"
	"github.com/example/courtsched/internal/gate"
	"github.com/example/courtsched/internal/logging"
	"github.com/example/courtsched/internal/scanner"
)

func newScanCmd() *cobra.Command {
	var (
		email    string
		password string
		days     int
	)

	c := &cobra.Command{
		Use:   "scan",
		Short: "Report which courts are free at which hours over the coming days",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.Debug)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := scanner.New(cfg, log)
			if err != nil {
				return err
			}
			if err := client.Login(ctx, firstNonEmpty(email, cfg.Email), firstNonEmpty(password, cfg.Password)); err != nil {
				return err
			}

			reports := client.ScanWindow(ctx, days, gate.DateString)
			scanner.Render(os.Stdout, reports, cfg.BookingStartHour, cfg.BookingEndHour)
			return nil
		},
	}

	c.Flags().StringVar(&email, "email", "", "account email (defaults to TENNIS_EMAIL)")
	c.Flags().StringVar(&password, "password", "", "account password (defaults to TENNIS_PASSWORD)")
	c.Flags().IntVar(&days, "days", 0, "scan today through today+N")
	return c
}
