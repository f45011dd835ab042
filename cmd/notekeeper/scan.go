package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thebtf/notekeeper/internal/assistant"
	"github.com/thebtf/notekeeper/internal/clock"
	"github.com/thebtf/notekeeper/internal/metrics"
	"github.com/thebtf/notekeeper/internal/scheduler"
	"github.com/thebtf/notekeeper/internal/telegram"
)

var scanDryRun bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Deliver every due reminder once and exit",
	Long: `scan runs a single due-reminder pass: each reminder due now is sent to its
owner and deleted. With --dry-run the due reminders are only listed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateStorage(); err != nil {
			return err
		}
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		loc, err := cfg.Location()
		if err != nil {
			return err
		}

		if scanDryRun {
			due, err := store.FindRemindersDue(ctx, clock.System{}.Now())
			if err != nil {
				return err
			}
			for _, r := range due {
				fmt.Fprintf(out, "%d\t%s\t%s\n", r.OwnerID, r.DueAt.In(loc).Format(assistant.DisplayLayout), r.Body)
			}
			fmt.Fprintf(out, "%d due\n", len(due))
			return nil
		}

		if cfg.TelegramToken == "" {
			return fmt.Errorf("scan needs a bot token to deliver; use --dry-run to list only")
		}
		api, err := telegram.Connect(cfg.TelegramToken, cfg.TelegramDebug)
		if err != nil {
			return err
		}
		m := metrics.NewNoop()
		bot := telegram.New(api, nil, telegram.Config{SendRate: float64(cfg.SendRate)}, m)
		sched := scheduler.New(scheduler.Config{Interval: cfg.ScanInterval}, store, bot, clock.System{}, m)

		report := sched.Scan(ctx)
		if report.Err != nil {
			return report.Err
		}
		fmt.Fprintf(out, "due: %d delivered: %d failed: %d delete failed: %d\n",
			report.Due, report.Delivered, report.Failed, report.DeleteFailed)
		return nil
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanDryRun, "dry-run", false, "List due reminders without sending or deleting them")
	rootCmd.AddCommand(scanCmd)
}
