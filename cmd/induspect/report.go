package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dofliu/InduSpect/internal/app"
	"github.com/spf13/cobra"
)

var resetYes bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the summary report of the confirmed records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkflow(cmd, func(ctx context.Context, a *app.App) error {
			stop := startSpinner("Writing report...")
			err := a.Workflow.GenerateReport(ctx)
			stop()
			if err != nil {
				return err
			}
			printReport(os.Stdout, a.Workflow.Snapshot())
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkflow(cmd, func(ctx context.Context, a *app.App) error {
			s := a.Workflow.Snapshot()
			if s.Mode.IsQuick() {
				showQuick(ctx, a)
				return nil
			}
			showSession(ctx, a)
			return nil
		})
	},
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new inspection, keeping confirmed records and the report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkflow(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Workflow.StartNewInspection(ctx); err != nil {
				return err
			}
			showSession(ctx, a)
			return nil
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the whole session, including confirmed records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetYes {
			return errors.New("reset deletes every record and photo; run again with --yes to confirm")
		}
		return withWorkflow(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Workflow.ResetAll(ctx); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, "Session cleared.")
			return nil
		})
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "Confirm the reset")
}
