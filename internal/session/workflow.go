package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dofliu/InduSpect/internal/analysis"
	"github.com/dofliu/InduSpect/internal/checklist"
	"github.com/dofliu/InduSpect/internal/images"
	"github.com/dofliu/InduSpect/internal/metrics"
	"github.com/dofliu/InduSpect/internal/store"
	"github.com/dofliu/InduSpect/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidMode        = errors.New("operation not allowed in the current mode")
	ErrNotAllCaptured     = errors.New("not every checklist item has a photo")
	ErrNoTasks            = errors.New("no inspection tasks found on the form")
	ErrOffline            = errors.New("offline: the analysis service is unreachable")
	ErrNoConfirmedRecords = errors.New("no confirmed records to report on")
	ErrReportInProgress   = errors.New("report generation already in progress")
	ErrNoQuickItem        = errors.New("no quick-analysis item")
	ErrInvalidEdit        = errors.New("invalid result edit")
)

// Extractor reads the list of inspection tasks off a form photo.
type Extractor interface {
	ExtractTasks(ctx context.Context, form models.Image) ([]string, error)
}

// Reporter writes the summary report for confirmed records.
type Reporter interface {
	GenerateReport(ctx context.Context, records []models.ReportRecord) (string, error)
}

// Deps are the collaborators of a Workflow.
type Deps struct {
	Extractor    Extractor
	Reporter     Reporter
	Orchestrator *analysis.Orchestrator
	Images       images.Store
	KV           store.KV
	Metrics      *metrics.Recorder
	Logger       *zap.Logger
}

// Workflow drives one session. All state changes go through a single mutex
// and replace the whole state, so completions that resolve concurrently
// always build on the latest state.
type Workflow struct {
	mu    sync.Mutex
	state State

	extractor    Extractor
	reporter     Reporter
	orchestrator *analysis.Orchestrator
	images       images.Store
	kv           store.KV
	metrics      *metrics.Recorder
	logger       *zap.Logger

	newID   func() string
	batches uint64 // guarded by mu
}

// New creates a workflow starting from initial, typically the result of
// Load.
func New(initial State, deps Deps) *Workflow {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if initial.Mode == "" {
		initial.Mode = ModeIdle
	}
	if initial.ReportStatus == "" {
		initial.ReportStatus = ReportIdle
	}
	return &Workflow{
		state:        initial.clone(),
		extractor:    deps.Extractor,
		reporter:     deps.Reporter,
		orchestrator: deps.Orchestrator,
		images:       deps.Images,
		kv:           deps.KV,
		metrics:      deps.Metrics,
		logger:       logger,
		newID:        uuid.NewString,
	}
}

// Snapshot returns a copy of the current state.
func (w *Workflow) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.clone()
}

// Save persists the current state to the workflow's store.
func (w *Workflow) Save(ctx context.Context) error {
	if w.kv == nil {
		return nil
	}
	return Save(ctx, w.kv, w.Snapshot())
}

// Online reports the connectivity signal.
func (w *Workflow) Online(ctx context.Context) bool {
	return w.orchestrator == nil || w.orchestrator.Online(ctx)
}

// update runs fn on a copy of the state and commits it if fn succeeds.
func (w *Workflow) update(fn func(s *State) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	next := w.state.clone()
	if err := fn(&next); err != nil {
		return err
	}
	w.state = next
	return nil
}

// beginBatch hands s a fresh batch token. It must be called from inside
// update.
func (w *Workflow) beginBatch(s *State) uint64 {
	w.batches++
	s.batch = w.batches
	return s.batch
}

// settle leaves the analyzing mode for next if the run with token still
// owns it. It reports whether it did.
func settle(s *State, token uint64, analyzing, next Mode) bool {
	if s.Mode != analyzing || s.batch != token {
		return false
	}
	s.Mode = next
	s.batch = 0
	return true
}

func requireMode(s *State, allowed ...Mode) error {
	for _, m := range allowed {
		if s.Mode == m {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidMode, s.Mode)
}

// apply merges an analysis completion into the item it belongs to.
func (w *Workflow) apply(c analysis.Completion) error {
	return w.update(func(s *State) error {
		return s.modifyItem(c.ID, func(it checklist.Item) (checklist.Item, error) {
			switch {
			case c.Deferred:
				return it.Defer(c.Attempt)
			case c.Err != nil:
				return it.Reject(c.Attempt, c.Err.Error())
			default:
				return it.Resolve(c.Attempt, *c.Result)
			}
		})
	})
}

var (
	errNoOrchestrator = errors.New("workflow has no analysis orchestrator")
	errNoReporter     = errors.New("workflow has no report generator")
	errNoExtractor    = errors.New("workflow has no form extractor")
	errNoImageStore   = errors.New("workflow has no image store")
)

func (w *Workflow) run(ctx context.Context, jobs []analysis.Job, emitter analysis.ProgressEmitter) analysis.Summary {
	return w.orchestrator.Run(ctx, jobs, w.apply, emitter)
}

func jobFor(it checklist.Item, hint string) analysis.Job {
	return analysis.Job{ID: it.ID, Attempt: it.Attempt, Image: *it.Image, Task: it.Task, Hint: hint}
}

func deferredNotice(s State, ids []string) string {
	tasks := make([]string, 0, len(ids))
	for _, id := range ids {
		if it, ok := s.item(id); ok {
			tasks = append(tasks, it.Task)
		}
	}
	return fmt.Sprintf("offline: analysis deferred for %s; retry when back online", strings.Join(tasks, ", "))
}

// discardImages deletes the photos of items that are leaving the session.
func (w *Workflow) discardImages(ctx context.Context, items ...checklist.Item) {
	if w.images == nil {
		return
	}
	for _, it := range items {
		if it.Image == nil {
			continue
		}
		if err := w.images.Delete(ctx, *it.Image); err != nil {
			w.logger.Warn("failed to delete image", zap.String("item_id", it.ID), zap.String("key", it.Image.Key), zap.Error(err))
		}
	}
}
