package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"simplebudget/internal/amqp"
	"simplebudget/internal/cli"
	"simplebudget/internal/events"
	"simplebudget/internal/sheets"
	"simplebudget/internal/sheets/memory"
)

func exportCmd(r *runner) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the selected month's overview to Google Sheets",
		Long: `Write the month overview (one row per category plus totals) to the
configured spreadsheet. Requires GOOGLE_SPREADSHEET_ID and service account
credentials. --dry-run prints the table as CSV instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := r.store().Snapshot()
			b, ok := st.ActiveBudget()
			if !ok {
				return errNoBudget
			}

			var writer sheets.MonthWriter
			var preview *memory.Store
			if dryRun {
				preview = memory.New(r.app.Config.GoogleSheetName)
				writer = preview
			} else {
				if !r.app.Config.HasSheets() {
					return errors.New("GOOGLE_SPREADSHEET_ID is not set; use --dry-run to preview")
				}
				w, err := cli.NewMonthWriter(cmd.Context(), r.app.Config, r.app.Logger)
				if err != nil {
					return err
				}
				writer = w
			}

			ref, err := writer.WriteMonth(cmd.Context(), b.Name, st.Period, st.Categories.Overview())
			if err != nil {
				return fmt.Errorf("export %s: %w", st.Period.Label(), err)
			}
			if preview != nil {
				w := csv.NewWriter(r.out)
				if err := w.WriteAll(preview.Table(r.app.Config.GoogleSheetName)); err != nil {
					return err
				}
				return nil
			}
			fmt.Fprintf(r.out, "Exported %s to %s\n", st.Period.Label(), ref)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the table instead of writing it")
	return cmd
}

func eventsCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow mutation events published on AMQP",
	}
	var kinds string
	watch := &cobra.Command{
		Use:   "watch",
		Short: "Print mutation events as they arrive (Ctrl-C to stop)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := r.app.Config
			if !cfg.HasAMQP() {
				return errors.New("AMQP_URL is not set")
			}
			selected := events.AllKinds()
			if kinds != "" {
				selected = splitNames(kinds)
			}

			client := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, r.app.Logger)
			defer client.Close()
			if err := client.Connect(cmd.Context(), 3); err != nil {
				return err
			}

			fmt.Fprintf(r.out, "Watching %s on exchange %q\n", strings.Join(selected, ", "), cfg.AMQPExchange)
			err := client.Consume(cmd.Context(), selected, func(m events.Mutation) error {
				fmt.Fprintf(r.out, "%s  %-20s budget=%s target=%s period=%d-%02d\n",
					m.Timestamp.Format("2006-01-02 15:04:05"), m.Kind, m.BudgetID, m.TargetID, m.Year, m.Month)
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	watch.Flags().StringVar(&kinds, "kinds", "", "Comma-separated kinds to follow (default: all)")
	cmd.AddCommand(watch)
	return cmd
}
