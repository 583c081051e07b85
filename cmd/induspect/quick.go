package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dofliu/InduSpect/internal/analysis"
	"github.com/dofliu/InduSpect/internal/app"
	"github.com/dofliu/InduSpect/internal/checklist"
	"github.com/dofliu/InduSpect/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var quickFlags struct {
	hint  string
	retry int
	save  bool
}

var errNothingToSave = errors.New("quick result is not analysed, nothing to save")

var quickCmd = &cobra.Command{
	Use:   "quick <photo>",
	Short: "Analyse a single photo outside the checklist",
	Long: `Quick analysis works without a form. The photo is analysed straight
away and the result printed. A failed analysis is sent again up to --retry
times. With --save the result is kept as a confirmed record, otherwise it
is discarded when the command exits.

Examples:
  induspect quick gauge.jpg
  induspect quick gauge.jpg --hint "read the outer scale" --retry 2 --save`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if quickFlags.retry < 0 {
			return fmt.Errorf("--retry must not be negative")
		}
		photo, err := readPhoto(args[0])
		if err != nil {
			return err
		}
		return withWorkflow(cmd, func(ctx context.Context, a *app.App) error {
			return runQuick(ctx, a, photo)
		})
	},
}

// runQuick drives one quick analysis from start to exit. The quick item
// does not outlive the process, so the session is always returned to the
// main flow before saving.
func runQuick(ctx context.Context, a *app.App, photo session.Photo) error {
	wf := a.Workflow
	if wf.Snapshot().Mode == session.ModeIdle {
		if err := wf.StartQuick(); err != nil {
			return err
		}
	}
	defer func() {
		if err := wf.BackToMain(ctx); err != nil {
			a.Logger.Warn("failed to leave quick analysis", zap.Error(err))
		}
	}()

	emitter := &analysis.TextEmitter{W: os.Stderr}
	sum, err := wf.QuickAnalyze(ctx, photo, quickFlags.hint, emitter)
	if err != nil {
		printNotice(os.Stderr, wf.Snapshot())
		return err
	}
	for i := 0; i < quickFlags.retry && quickStatus(wf) == checklist.StatusError; i++ {
		if sum, err = wf.RetryQuick(ctx, quickFlags.hint, emitter); err != nil {
			return err
		}
	}
	printSummary(os.Stderr, sum)
	showQuick(ctx, a)

	if !quickFlags.save {
		return nil
	}
	if quickStatus(wf) != checklist.StatusSuccess {
		return errNothingToSave
	}
	if err := wf.SaveQuick(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Saved, %d confirmed records\n", len(wf.Snapshot().ConfirmedRecords))
	return nil
}

func quickStatus(wf *session.Workflow) checklist.Status {
	s := wf.Snapshot()
	if s.Quick == nil {
		return ""
	}
	return s.Quick.Status()
}

func showQuick(ctx context.Context, a *app.App) {
	s := a.Workflow.Snapshot()
	printNotice(os.Stderr, s)
	printQuick(os.Stdout, s, a.Workflow.Online(ctx))
}

func init() {
	f := quickCmd.Flags()
	f.StringVar(&quickFlags.hint, "hint", "", "Extra instruction for the model")
	f.IntVar(&quickFlags.retry, "retry", 0, "Send a failed analysis again up to N times")
	f.BoolVar(&quickFlags.save, "save", false, "Keep the result as a confirmed record")
}
