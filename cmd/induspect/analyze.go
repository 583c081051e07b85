package main

import (
	"context"
	"os"

	"github.com/dofliu/InduSpect/internal/analysis"
	"github.com/dofliu/InduSpect/internal/app"
	"github.com/spf13/cobra"
)

var reanalyzeHint string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyse every captured item",
	Long: `Dispatches all captured items to the vision model at once and waits
until each has settled. Items that fail keep their error for review. When
the service is unreachable the items stay captured and can be analysed
again later.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkflow(cmd, func(ctx context.Context, a *app.App) error {
			sum, err := a.Workflow.StartBatch(ctx, &analysis.TextEmitter{W: os.Stderr})
			if err != nil {
				return err
			}
			printSummary(os.Stderr, sum)
			showSession(ctx, a)
			return nil
		})
	},
}

var reanalyzeCmd = &cobra.Command{
	Use:   "reanalyze <id>",
	Short: "Analyse one reviewed item again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkflow(cmd, func(ctx context.Context, a *app.App) error {
			if _, err := a.Workflow.Reanalyze(ctx, args[0], reanalyzeHint, &analysis.TextEmitter{W: os.Stderr}); err != nil {
				return err
			}
			showSession(ctx, a)
			return nil
		})
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry <id> <photo>",
	Short: "Replace the photo of a failed item and analyse it again",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		photo, err := readPhoto(args[1])
		if err != nil {
			return err
		}
		return withWorkflow(cmd, func(ctx context.Context, a *app.App) error {
			if _, err := a.Workflow.RetryWithPhoto(ctx, args[0], photo, &analysis.TextEmitter{W: os.Stderr}); err != nil {
				printNotice(os.Stderr, a.Workflow.Snapshot())
				return err
			}
			showSession(ctx, a)
			return nil
		})
	},
}

func init() {
	reanalyzeCmd.Flags().StringVar(&reanalyzeHint, "hint", "", "Extra instruction for the model, e.g. \"read the outer scale\"")
}
