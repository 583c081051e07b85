package session

import (
	"context"
	"fmt"
	"time"

	"github.com/dofliu/InduSpect/internal/checklist"
	"github.com/dofliu/InduSpect/internal/images"
	"github.com/dofliu/InduSpect/internal/metrics"
	"github.com/dofliu/InduSpect/pkg/models"
	"go.uber.org/zap"
)

// SubmitForm extracts the checklist from a photographed form. On success
// the session moves to CAPTURE with one pending item per task, and the
// previous confirmed records, report and quick item are cleared. On any
// failure the session returns to IDLE with the error surfaced and the
// checklist untouched.
func (w *Workflow) SubmitForm(ctx context.Context, data []byte) error {
	if w.extractor == nil {
		return errNoExtractor
	}
	err := w.update(func(s *State) error {
		if err := requireMode(s, ModeIdle); err != nil {
			return err
		}
		s.Mode = ModeExtracting
		s.Error = ""
		s.Notice = ""
		return nil
	})
	if err != nil {
		return err
	}

	tasks, err := w.extract(ctx, data)
	if err != nil {
		w.logger.Info("form extraction failed", zap.Error(err))
		_ = w.update(func(s *State) error {
			if s.Mode == ModeExtracting {
				s.Mode = ModeIdle
			}
			s.Error = err.Error()
			return nil
		})
		return err
	}

	items := make([]checklist.Item, len(tasks))
	for i, t := range tasks {
		items[i] = checklist.New(w.newID(), t)
	}

	var discarded []checklist.Item
	err = w.update(func(s *State) error {
		if s.Mode != ModeExtracting {
			return fmt.Errorf("%w: extraction superseded (%s)", ErrInvalidMode, s.Mode)
		}
		discarded = append(discarded, s.Checklist...)
		discarded = append(discarded, s.ConfirmedRecords...)
		if s.Quick != nil {
			discarded = append(discarded, *s.Quick)
		}
		s.Checklist = items
		s.ConfirmedRecords = nil
		s.Quick = nil
		s.Report = nil
		s.ReportStatus = ReportIdle
		s.ReportError = ""
		s.Mode = ModeCapture
		return nil
	})
	if err != nil {
		return err
	}
	w.discardImages(ctx, discarded...)
	w.logger.Info("checklist extracted", zap.Int("tasks", len(items)))
	return nil
}

func (w *Workflow) extract(ctx context.Context, data []byte) ([]string, error) {
	info, err := images.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read form image: %w", err)
	}
	if !w.Online(ctx) {
		return nil, ErrOffline
	}

	start := time.Now()
	tasks, err := w.extractor.ExtractTasks(ctx, models.Image{Data: data, MIMEType: info.MIMEType})
	w.metrics.Call(metrics.OpExtract, err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("form extraction failed: %w", err)
	}
	if len(tasks) == 0 {
		return nil, ErrNoTasks
	}
	return tasks, nil
}
