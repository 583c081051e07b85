// Package app builds a session workflow and its collaborators from the
// configuration.
package app

import (
	"context"
	"fmt"

	"github.com/dofliu/InduSpect/internal/analysis"
	"github.com/dofliu/InduSpect/internal/config"
	"github.com/dofliu/InduSpect/internal/connectivity"
	"github.com/dofliu/InduSpect/internal/images"
	"github.com/dofliu/InduSpect/internal/llm"
	"github.com/dofliu/InduSpect/internal/metrics"
	"github.com/dofliu/InduSpect/internal/session"
	"github.com/dofliu/InduSpect/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// App holds a loaded workflow and everything it was built from.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	KV           store.KV
	Images       images.Store
	Connectivity connectivity.Checker
	Workflow     *session.Workflow

	closers []func()
}

// Options adjust how the App is built.
type Options struct {
	// Offline forces the offline connectivity signal.
	Offline bool
	// Registerer receives the metrics collectors. Nil disables metrics.
	Registerer prometheus.Registerer
	// Service replaces the configured LLM provider, mainly for tests.
	Service llm.Service
}

// New wires the configured backends and restores the persisted session.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	kv, err := a.openKV(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.KV = kv

	imgs, err := openImages(ctx, cfg.Images)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Images = imgs

	a.Connectivity = newChecker(cfg.Connectivity, opts.Offline)

	svc := opts.Service
	if svc == nil {
		svc, err = llm.New(llm.Options{
			Provider:    llm.Provider(cfg.Provider),
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			ReportModel: cfg.ReportModel,
			Timeout:     cfg.Analysis.Timeout,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	var rec *metrics.Recorder
	if opts.Registerer != nil {
		rec = metrics.New(opts.Registerer)
	}

	orch := analysis.New(svc, imgs, a.Connectivity,
		analysis.WithConcurrency(cfg.Analysis.Concurrency),
		analysis.WithRateLimit(cfg.Analysis.RatePerSec, cfg.Analysis.Burst),
		analysis.WithMetrics(rec),
		analysis.WithLogger(logger.Named("analysis")),
	)

	state := session.Load(ctx, kv, logger.Named("store"))
	a.Workflow = session.New(state, session.Deps{
		Extractor:    svc,
		Reporter:     svc,
		Orchestrator: orch,
		Images:       imgs,
		KV:           kv,
		Metrics:      rec,
		Logger:       logger.Named("session"),
	})
	return a, nil
}

// Close releases backend connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) openKV(ctx context.Context) (store.KV, error) {
	cfg := a.Config.Store
	switch cfg.Backend {
	case "memory":
		return store.NewMemory(), nil
	case "file":
		kv, err := store.NewFile(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		return kv, nil
	case "postgres":
		if err := store.Migrate(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("migration failed: %w", err)
		}
		kv, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, kv.Close)
		return kv, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func openImages(ctx context.Context, cfg config.ImagesConfig) (images.Store, error) {
	switch cfg.Backend {
	case "file":
		s, err := images.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open image store: %w", err)
		}
		return s, nil
	case "minio":
		s, err := images.NewMinioStore(ctx, cfg.Minio)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return images.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown images backend %q", cfg.Backend)
	}
}

func newChecker(cfg config.ConnectivityConfig, offline bool) connectivity.Checker {
	if offline {
		return connectivity.NewStatic(false)
	}
	switch cfg.Mode {
	case "online":
		return connectivity.NewStatic(true)
	case "offline":
		return connectivity.NewStatic(false)
	default:
		return connectivity.Probe{Addr: cfg.ProbeAddr, Timeout: cfg.ProbeTimeout}
	}
}
