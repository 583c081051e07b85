package session

import (
	"context"
	"fmt"
	"time"

	"github.com/dofliu/InduSpect/internal/checklist"
	"github.com/dofliu/InduSpect/internal/metrics"
	"github.com/dofliu/InduSpect/pkg/models"
	"go.uber.org/zap"
)

// ReportRecords shapes the confirmed records for report generation.
func (s State) ReportRecords() []models.ReportRecord {
	out := make([]models.ReportRecord, 0, len(s.ConfirmedRecords))
	for _, it := range s.ConfirmedRecords {
		if r, ok := it.Result(); ok {
			out = append(out, models.NewReportRecord(it.Task, r))
		}
	}
	return out
}

// GenerateReport writes a summary report for the confirmed records. The
// previous report is cleared when generation starts. Failures set the
// report status to error and keep the message; confirmed records are
// never touched.
func (w *Workflow) GenerateReport(ctx context.Context) error {
	var records []models.ReportRecord
	err := w.update(func(s *State) error {
		if s.ReportStatus == ReportGenerating {
			return ErrReportInProgress
		}
		records = s.ReportRecords()
		s.Report = nil
		if len(records) == 0 {
			s.ReportStatus = ReportError
			s.ReportError = ErrNoConfirmedRecords.Error()
			return nil
		}
		s.ReportStatus = ReportGenerating
		s.ReportError = ""
		return nil
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return ErrNoConfirmedRecords
	}

	report, err := w.report(ctx, records)
	_ = w.update(func(s *State) error {
		if s.ReportStatus != ReportGenerating {
			return nil
		}
		if err != nil {
			s.ReportStatus = ReportError
			s.ReportError = err.Error()
			return nil
		}
		s.Report = &report
		s.ReportStatus = ReportIdle
		return nil
	})
	if err != nil {
		w.logger.Info("report generation failed", zap.Error(err))
	}
	return err
}

func (w *Workflow) report(ctx context.Context, records []models.ReportRecord) (string, error) {
	if w.reporter == nil {
		return "", errNoReporter
	}
	if !w.Online(ctx) {
		return "", ErrOffline
	}
	start := time.Now()
	text, err := w.reporter.GenerateReport(ctx, records)
	w.metrics.Call(metrics.OpReport, err, time.Since(start))
	return text, err
}

// StartNewInspection discards the working checklist and any quick item and
// returns to IDLE. Confirmed records and the report are kept.
func (w *Workflow) StartNewInspection(ctx context.Context) error {
	var discarded []checklist.Item
	err := w.update(func(s *State) error {
		if s.Mode == ModeIdle && len(s.Checklist) == 0 && s.Quick == nil {
			return ErrInvalidMode
		}
		discarded = append(discarded, s.Checklist...)
		if s.Quick != nil {
			discarded = append(discarded, *s.Quick)
		}
		s.Checklist = nil
		s.Quick = nil
		s.Mode = ModeIdle
		s.batch = 0
		s.Error = ""
		s.Notice = ""
		return nil
	})
	if err != nil {
		return err
	}
	w.discardImages(ctx, discarded...)
	return nil
}

// ResetAll clears every persisted value and starts over with no confirmed
// records.
func (w *Workflow) ResetAll(ctx context.Context) error {
	var discarded []checklist.Item
	_ = w.update(func(s *State) error {
		discarded = append(discarded, s.Checklist...)
		discarded = append(discarded, s.ConfirmedRecords...)
		if s.Quick != nil {
			discarded = append(discarded, *s.Quick)
		}
		*s = NewState()
		return nil
	})
	w.discardImages(ctx, discarded...)
	if w.kv != nil {
		if err := w.kv.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear session store: %w", err)
		}
	}
	return nil
}
