// Command induspect drives an inspection session from the terminal. Every
// invocation restores the persisted session, applies one operation and
// saves the result.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/dofliu/InduSpect/internal/app"
	"github.com/dofliu/InduSpect/internal/config"
	"github.com/dofliu/InduSpect/internal/logging"
	"github.com/dofliu/InduSpect/internal/session"
	"github.com/spf13/cobra"
)

var (
	configPath string
	offline    bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "induspect",
	Short: "AI-assisted industrial equipment inspection",
	Long: `InduSpect turns a photographed inspection form into a checklist,
analyses a photo of each piece of equipment with a vision model and writes
a summary report of the confirmed findings.

Typical session:
  induspect extract ./form.jpg
  induspect capture <id> ./pump.jpg
  induspect analyze
  induspect confirm --all
  induspect report`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Treat the analysis service as unreachable")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(extractCmd, captureCmd)
	rootCmd.AddCommand(analyzeCmd, reanalyzeCmd, retryCmd)
	rootCmd.AddCommand(editCmd, measureCmd, confirmCmd)
	rootCmd.AddCommand(quickCmd)
	rootCmd.AddCommand(reportCmd, statusCmd, newCmd, resetCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if rootCmd.ExecuteContext(ctx) != nil {
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if v := os.Getenv("INDUSPECT_CONFIG"); v != "" {
		return v
	}
	return "induspect.yaml"
}

// withWorkflow loads the persisted session, runs fn against it and saves
// the session afterwards, also when fn fails.
// appOptions builds the App options from the global flags. Tests replace it
// to inject a model service.
var appOptions = func() app.Options {
	return app.Options{Offline: offline}
}

func withWorkflow(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logCfg := cfg.Log
	logCfg.Level = "warn"
	if verbose {
		logCfg.Level = "debug"
	}
	if logCfg.Format == "" {
		logCfg.Format = "console"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.New(ctx, cfg, logger, appOptions())
	if err != nil {
		return err
	}
	defer a.Close()

	runErr := fn(ctx, a)
	if err := a.Workflow.Save(ctx); err != nil && runErr == nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return runErr
}

// showSession prints the session after a command and any notice it left.
func showSession(ctx context.Context, a *app.App) {
	s := a.Workflow.Snapshot()
	printNotice(os.Stderr, s)
	printStatus(os.Stdout, s, a.Workflow.Online(ctx))
}

func readPhoto(path string) (session.Photo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return session.Photo{}, fmt.Errorf("failed to read photo: %w", err)
	}
	return session.Photo{Data: data, Name: baseName(path)}, nil
}
