package session

import (
	"context"
	"fmt"

	"github.com/dofliu/InduSpect/internal/analysis"
	"github.com/dofliu/InduSpect/internal/checklist"
	"go.uber.org/zap"
)

// StartBatch analyses every captured item. It is allowed from CAPTURE once
// every item has a photo, and from REVIEW to re-send items left captured
// by an offline dispatch. The eligible items are moved to loading in one
// step before any call is made. StartBatch returns when every dispatched
// call has settled; the session is then in REVIEW regardless of outcome.
func (w *Workflow) StartBatch(ctx context.Context, emitter analysis.ProgressEmitter) (analysis.Summary, error) {
	if w.orchestrator == nil {
		return analysis.Summary{}, errNoOrchestrator
	}

	var (
		jobs  []analysis.Job
		token uint64
	)
	err := w.update(func(s *State) error {
		if err := requireMode(s, ModeCapture, ModeReview); err != nil {
			return err
		}
		if len(s.Checklist) == 0 {
			return fmt.Errorf("%w: checklist is empty", ErrNotAllCaptured)
		}
		for _, it := range s.Checklist {
			if !it.HasImage() || it.Status() == checklist.StatusCapturing {
				return fmt.Errorf("%w: %q", ErrNotAllCaptured, it.Task)
			}
		}

		eligible := checklist.Filter(s.Checklist, checklist.StatusCaptured)
		if len(eligible) == 0 {
			return fmt.Errorf("%w: no captured items to analyse", checklist.ErrInvalidTransition)
		}
		for _, it := range eligible {
			items, err := checklist.Update(s.Checklist, it.ID, checklist.Item.Dispatch)
			if err != nil {
				return err
			}
			s.Checklist = items
			next, _ := checklist.Find(items, it.ID)
			jobs = append(jobs, jobFor(next, ""))
		}
		s.Mode = ModeAnalyzing
		token = w.beginBatch(s)
		s.Notice = ""
		return nil
	})
	if err != nil {
		return analysis.Summary{}, err
	}

	w.logger.Info("batch analysis started", zap.Int("items", len(jobs)))
	sum := w.run(ctx, jobs, emitter)

	_ = w.update(func(s *State) error {
		if !settle(s, token, ModeAnalyzing, ModeReview) {
			w.logger.Info("batch superseded before it settled", zap.Int("items", len(jobs)))
			return nil
		}
		if sum.Deferred > 0 {
			s.Notice = deferredNotice(*s, sum.DeferredIDs)
		}
		return nil
	})
	w.logger.Info("batch analysis finished",
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
		zap.Int("deferred", sum.Deferred))
	return sum, nil
}

// Reanalyze sends one item for analysis again, optionally with an extra
// instruction for the model. The mode does not change.
func (w *Workflow) Reanalyze(ctx context.Context, id, hint string, emitter analysis.ProgressEmitter) (analysis.Summary, error) {
	if w.orchestrator == nil {
		return analysis.Summary{}, errNoOrchestrator
	}
	return w.dispatchOne(ctx, id, hint, emitter, func(s *State) error {
		return requireMode(s, ModeReview)
	})
}

// dispatchOne moves a single item to loading and runs it alone. check, if
// set, is evaluated in the same step as the transition.
func (w *Workflow) dispatchOne(ctx context.Context, id, hint string, emitter analysis.ProgressEmitter, check func(*State) error) (analysis.Summary, error) {
	var job analysis.Job
	err := w.update(func(s *State) error {
		if check != nil {
			if err := check(s); err != nil {
				return err
			}
		}
		if err := s.modifyItem(id, checklist.Item.Dispatch); err != nil {
			return err
		}
		it, _ := s.item(id)
		job = jobFor(it, hint)
		s.Notice = ""
		return nil
	})
	if err != nil {
		return analysis.Summary{}, err
	}

	sum := w.run(ctx, []analysis.Job{job}, emitter)
	if sum.Deferred > 0 {
		_ = w.update(func(s *State) error {
			s.Notice = deferredNotice(*s, sum.DeferredIDs)
			return nil
		})
	}
	return sum, nil
}
