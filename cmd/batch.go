package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/courtsched/internal/batch"
	"github.com/example/courtsched/internal/booking"
	"github.com/example/courtsched/internal/config"
	"github.com/example/courtsched/internal/logging"
)

func newBatchCmd() *cobra.Command {
	var (
		schedule    string
		dryRun      bool
		maxParallel int
		headless    bool
	)

	c := &cobra.Command{
		Use:   "batch",
		Short: "Run every booking in a schedule file with bounded parallelism",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyHeadless(cfg, cmd.Flags(), headless)
			if maxParallel > 0 {
				cfg.MaxParallel = maxParallel
			}

			log, err := logging.New(cfg.Debug)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			if schedule == "" {
				schedule = cfg.SchedulePath
			}
			reqs, err := batch.LoadSchedule(schedule)
			if err != nil {
				return err
			}
			// Schedule entries without credentials fall back to the default
			// account; full validation happens after the fill.
			for i := range reqs {
				reqs[i].Email = firstNonEmpty(reqs[i].Email, cfg.Email)
				reqs[i].Password = firstNonEmpty(reqs[i].Password, cfg.Password)
				if err := reqs[i].Validate(); err != nil {
					return fmt.Errorf("schedule entry %d: %w", i+1, err)
				}
			}

			if dryRun {
				batch.RenderPlan(os.Stdout, reqs)
				return nil
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			o := &batch.Orchestrator{
				MaxParallel: cfg.MaxParallel,
				Log:         log,
				Run: func(ctx context.Context, req booking.Request) booking.Outcome {
					return booking.Book(ctx, cfg, log, req)
				},
			}
			results, sum := o.RunAll(ctx, reqs)

			for _, r := range results {
				fmt.Fprintln(os.Stdout, r.Outcome.Message)
			}
			fmt.Fprintf(os.Stdout, "\n%d succeeded, %d failed\n", sum.Succeeded, sum.Failed)
			if sum.Failed > 0 {
				cmd.SilenceUsage = true
				return fmt.Errorf("%d booking(s) failed", sum.Failed)
			}
			return nil
		},
	}

	c.Flags().StringVar(&schedule, "schedule", "", "schedule file path (defaults to SCHEDULE_PATH)")
	c.Flags().BoolVar(&dryRun, "dry-run", false, "print the plan without booking")
	c.Flags().IntVar(&maxParallel, "max-parallel", 0, "max concurrent bookings (defaults to MAX_PARALLEL)")
	c.Flags().BoolVar(&headless, "headless", false, "run the browsers headless")
	return c
}
