package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/courtsched/internal/booking"
	"github.com/example/courtsched/internal/catalog"
	"github.com/example/courtsched/internal/config"
	"github.com/example/courtsched/internal/logging"
)

func newBookCmd() *cobra.Command {
	var (
		hour     int
		email    string
		password string
		days     int
		court    string
		headless bool
	)

	c := &cobra.Command{
		Use:   "book",
		Short: "Book one court slot, waiting for the release instant if it has not passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyHeadless(cfg, cmd.Flags(), headless)

			log, err := logging.New(cfg.Debug)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			req := booking.Request{
				Hour:      hour,
				Email:     firstNonEmpty(email, cfg.Email),
				Password:  firstNonEmpty(password, cfg.Password),
				DayOffset: days,
			}
			if court != "" {
				c, err := catalog.Resolve(court)
				if err != nil {
					return err
				}
				req.Court = &c
			}
			if err := req.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := booking.Book(ctx, cfg, log, req)
			fmt.Fprintln(os.Stdout, out.Message)
			if !out.Success {
				cmd.SilenceUsage = true
				return fmt.Errorf("booking failed")
			}
			return nil
		},
	}

	c.Flags().IntVar(&hour, "time", 0, "start hour to book (0-23)")
	c.Flags().StringVar(&email, "email", "", "account email (defaults to TENNIS_EMAIL)")
	c.Flags().StringVar(&password, "password", "", "account password (defaults to TENNIS_PASSWORD)")
	c.Flags().IntVar(&days, "days", 0, "days from today to book")
	c.Flags().StringVar(&court, "court", "", "pin a court by name or site id (defaults to the hour's priority order)")
	c.Flags().BoolVar(&headless, "headless", false, "run the browser headless")

	_ = c.MarkFlagRequired("time")
	return c
}

func firstNonEmpty(vals ...string) string {
	for _, s := range vals {
		if s != "" {
			return s
		}
	}
	return ""
}
