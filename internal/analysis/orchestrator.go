// Package analysis dispatches photo analysis calls for checklist items and
// merges their outcomes back by item id.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dofliu/InduSpect/internal/connectivity"
	"github.com/dofliu/InduSpect/internal/images"
	"github.com/dofliu/InduSpect/internal/metrics"
	"github.com/dofliu/InduSpect/pkg/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ErrEmptyResult is reported when the analyzer returns neither a result nor
// an error.
var ErrEmptyResult = errors.New("analysis returned no result")

// Analyzer is the photo analysis capability.
type Analyzer interface {
	Analyze(ctx context.Context, img models.Image, task, hint string) (*models.AnalysisResult, error)
}

// Job is one dispatched item. Attempt is the item's attempt number after
// it was moved to loading.
type Job struct {
	ID      string
	Attempt int
	Image   models.ImageRef
	Task    string
	Hint    string
}

// Completion is the outcome of one job. Exactly one of Result, Err and
// Deferred is set.
type Completion struct {
	ID       string
	Attempt  int
	Result   *models.AnalysisResult
	Err      error
	Deferred bool
}

// Sink merges a completion into the owning session. It is only ever called
// from the goroutine running Run, one completion at a time.
type Sink func(Completion) error

// Summary counts the outcomes of a run.
type Summary struct {
	Dispatched  int      `json:"dispatched"`
	Succeeded   int      `json:"succeeded"`
	Failed      int      `json:"failed"`
	Deferred    int      `json:"deferred"`
	DeferredIDs []string `json:"deferred_ids,omitempty"`
}

// Settled reports the number of terminal outcomes in the run.
func (s Summary) Settled() int { return s.Succeeded + s.Failed }

// Orchestrator runs analysis jobs concurrently.
type Orchestrator struct {
	analyzer     Analyzer
	images       images.Store
	connectivity connectivity.Checker
	limiter      *rate.Limiter
	concurrency  int
	metrics      *metrics.Recorder
	logger       *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency caps the number of calls in flight. n <= 0 means no cap.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) { o.concurrency = n }
}

// WithRateLimit throttles dispatches to perSec calls per second.
func WithRateLimit(perSec float64, burst int) Option {
	return func(o *Orchestrator) {
		if perSec <= 0 {
			o.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
}

// WithMetrics records call outcomes.
func WithMetrics(r *metrics.Recorder) Option {
	return func(o *Orchestrator) { o.metrics = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an orchestrator.
func New(analyzer Analyzer, store images.Store, conn connectivity.Checker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		analyzer:     analyzer,
		images:       store,
		connectivity: conn,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Online reports the connectivity signal.
func (o *Orchestrator) Online(ctx context.Context) bool {
	return o.connectivity == nil || o.connectivity.Online(ctx)
}

// Run dispatches every job and blocks until all of them have completed.
// Completions are passed to sink in the order they arrive, as soon as they
// arrive. A sink error drops that completion and does not affect others.
func (o *Orchestrator) Run(ctx context.Context, jobs []Job, sink Sink, emitter ProgressEmitter) Summary {
	total := len(jobs)
	sum := Summary{Dispatched: total}
	o.metrics.Batch(total)

	for _, j := range jobs {
		emit(emitter, ProgressEvent{Type: EventDispatch, ItemID: j.ID, Task: j.Task, Attempt: j.Attempt, Total: total})
	}

	completions := make(chan Completion, total)
	go func() {
		var g errgroup.Group
		if o.concurrency > 0 {
			g.SetLimit(o.concurrency)
		}
		for _, j := range jobs {
			g.Go(func() error {
				completions <- o.run(ctx, j)
				return nil
			})
		}
		_ = g.Wait()
		close(completions)
	}()

	settled := 0
	for c := range completions {
		settled++
		ev := ProgressEvent{ItemID: c.ID, Attempt: c.Attempt, Settled: settled, Total: total}
		switch {
		case c.Deferred:
			sum.Deferred++
			sum.DeferredIDs = append(sum.DeferredIDs, c.ID)
			ev.Type = EventDeferred
			ev.Message = "offline"
		case c.Err != nil:
			sum.Failed++
			ev.Type = EventError
			ev.Message = c.Err.Error()
		default:
			sum.Succeeded++
			ev.Type = EventResult
			ev.Analysis = c.Result
		}
		if sink != nil {
			if err := sink(c); err != nil {
				o.logger.Debug("completion dropped",
					zap.String("item_id", c.ID),
					zap.Int("attempt", c.Attempt),
					zap.Error(err))
			}
		}
		emit(emitter, ev)
	}

	emit(emitter, ProgressEvent{Type: EventDone, Settled: settled, Total: total, Summary: &sum})
	return sum
}

func (o *Orchestrator) run(ctx context.Context, j Job) Completion {
	c := Completion{ID: j.ID, Attempt: j.Attempt}

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			c.Err = fmt.Errorf("dispatch cancelled: %w", err)
			return c
		}
	}

	// checked here, not when the batch was started
	if !o.Online(ctx) {
		o.metrics.Deferred()
		o.logger.Warn("offline, analysis deferred", zap.String("item_id", j.ID), zap.Int("attempt", j.Attempt))
		c.Deferred = true
		return c
	}

	img, err := o.images.Get(ctx, j.Image)
	if err != nil {
		c.Err = fmt.Errorf("failed to load image: %w", err)
		o.logFailure(j, c.Err)
		return c
	}

	start := time.Now()
	res, err := o.analyzer.Analyze(ctx, img, j.Task, j.Hint)
	o.metrics.Call(metrics.OpAnalyze, err, time.Since(start))
	switch {
	case err != nil:
		c.Err = err
	case res == nil:
		c.Err = ErrEmptyResult
	default:
		c.Result = res
		return c
	}
	o.logFailure(j, c.Err)
	return c
}

func (o *Orchestrator) logFailure(j Job, err error) {
	o.logger.Info("analysis failed",
		zap.String("item_id", j.ID),
		zap.Int("attempt", j.Attempt),
		zap.Error(err))
}
