package session

import (
	"context"
	"fmt"

	"github.com/dofliu/InduSpect/internal/analysis"
	"github.com/dofliu/InduSpect/internal/checklist"
)

// QuickIDPrefix marks ids of quick-analysis items.
const QuickIDPrefix = "quick-"

// StartQuick enters quick-analysis mode.
func (w *Workflow) StartQuick() error {
	return w.update(func(s *State) error {
		if err := requireMode(s, ModeIdle); err != nil {
			return err
		}
		s.Mode = ModeQuickCapture
		s.Error = ""
		s.Notice = ""
		return nil
	})
}

// QuickAnalyze captures a single photo outside the checklist and analyses
// it immediately. The session ends in QUICK_REVIEW, or back in
// QUICK_CAPTURE with a notice if the dispatch was deferred while offline.
func (w *Workflow) QuickAnalyze(ctx context.Context, photo Photo, hint string, emitter analysis.ProgressEmitter) (analysis.Summary, error) {
	if w.orchestrator == nil {
		return analysis.Summary{}, errNoOrchestrator
	}
	name := photo.Name
	if name == "" {
		name = "photo"
	}
	it := checklist.New(QuickIDPrefix+w.newID(), "Quick analysis: "+name)
	it, err := it.BeginCapture()
	if err != nil {
		return analysis.Summary{}, err
	}

	var previous *checklist.Item
	err = w.update(func(s *State) error {
		if err := requireMode(s, ModeQuickCapture); err != nil {
			return err
		}
		previous = s.Quick
		s.Quick = &it
		s.Notice = ""
		return nil
	})
	if err != nil {
		return analysis.Summary{}, err
	}
	if previous != nil {
		w.discardImages(ctx, *previous)
	}

	if err := w.capture(ctx, it.ID, photo); err != nil {
		_ = w.update(func(s *State) error {
			if s.Quick != nil && s.Quick.ID == it.ID {
				s.Quick = nil
			}
			return nil
		})
		return analysis.Summary{}, err
	}
	return w.runQuick(ctx, it.ID, hint, emitter, ModeQuickCapture)
}

// RetryQuick sends the quick item for analysis again.
func (w *Workflow) RetryQuick(ctx context.Context, hint string, emitter analysis.ProgressEmitter) (analysis.Summary, error) {
	if w.orchestrator == nil {
		return analysis.Summary{}, errNoOrchestrator
	}
	var id string
	err := w.update(func(s *State) error {
		if s.Quick == nil {
			return ErrNoQuickItem
		}
		id = s.Quick.ID
		return nil
	})
	if err != nil {
		return analysis.Summary{}, err
	}
	return w.runQuick(ctx, id, hint, emitter, ModeQuickReview, ModeQuickCapture)
}

func (w *Workflow) runQuick(ctx context.Context, id, hint string, emitter analysis.ProgressEmitter, from ...Mode) (analysis.Summary, error) {
	var token uint64
	sum, err := w.dispatchOne(ctx, id, hint, emitter, func(s *State) error {
		if err := requireMode(s, from...); err != nil {
			return err
		}
		if s.Quick == nil || s.Quick.ID != id {
			return ErrNoQuickItem
		}
		s.Mode = ModeQuickAnalyzing
		token = w.beginBatch(s)
		return nil
	})
	if err != nil {
		return sum, err
	}

	_ = w.update(func(s *State) error {
		next := ModeQuickReview
		if sum.Deferred > 0 {
			next = ModeQuickCapture
		}
		if settle(s, token, ModeQuickAnalyzing, next) && sum.Deferred > 0 {
			s.Notice = deferredNotice(*s, sum.DeferredIDs)
		}
		return nil
	})
	return sum, nil
}

// SaveQuick appends the analysed quick item to the confirmed records and
// returns to QUICK_CAPTURE for the next photo.
func (w *Workflow) SaveQuick() error {
	return w.update(func(s *State) error {
		if err := requireMode(s, ModeQuickReview); err != nil {
			return err
		}
		if s.Quick == nil {
			return ErrNoQuickItem
		}
		done, err := s.Quick.Confirm()
		if err != nil {
			return err
		}
		if !s.IsConfirmed(done.ID) {
			s.ConfirmedRecords = append(s.ConfirmedRecords, done)
		}
		s.Quick = nil
		s.Mode = ModeQuickCapture
		return nil
	})
}

// BackToMain leaves quick-analysis mode, discarding an unsaved quick item.
func (w *Workflow) BackToMain(ctx context.Context) error {
	var discarded *checklist.Item
	err := w.update(func(s *State) error {
		if !s.Mode.IsQuick() {
			return fmt.Errorf("%w: %s", ErrInvalidMode, s.Mode)
		}
		discarded = s.Quick
		s.Quick = nil
		s.Mode = ModeIdle
		s.batch = 0
		s.Notice = ""
		return nil
	})
	if err != nil {
		return err
	}
	if discarded != nil {
		w.discardImages(ctx, *discarded)
	}
	return nil
}
