package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dofliu/InduSpect/internal/app"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract <form-image>",
	Short: "Read the inspection tasks from a photographed form",
	Long: `Sends the form photo to the vision model and starts a new checklist
with one item per task. Confirmed records and the report of the previous
inspection are cleared.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read form: %w", err)
		}
		return withWorkflow(cmd, func(ctx context.Context, a *app.App) error {
			stop := startSpinner("Extracting tasks...")
			err := a.Workflow.SubmitForm(ctx, data)
			stop()
			if err != nil {
				return err
			}
			showSession(ctx, a)
			return nil
		})
	},
}

var captureCmd = &cobra.Command{
	Use:   "capture <id> <photo>",
	Short: "Attach a photo to a checklist item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		photo, err := readPhoto(args[1])
		if err != nil {
			return err
		}
		return withWorkflow(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Workflow.CapturePhoto(ctx, args[0], photo); err != nil {
				printNotice(os.Stderr, a.Workflow.Snapshot())
				return err
			}
			showSession(ctx, a)
			return nil
		})
	},
}
