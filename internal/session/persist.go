package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dofliu/InduSpect/internal/checklist"
	"github.com/dofliu/InduSpect/internal/store"
	"go.uber.org/zap"
)

// Persisted keys.
const (
	KeyMode             = "mode"
	KeyChecklist        = "checklist"
	KeyConfirmedRecords = "confirmedRecords"
	KeyReport           = "report"
	KeyReportStatus     = "reportStatus"
)

// Load restores the session from kv. Missing, unreadable or corrupt values
// fall back to their defaults and are logged; Load itself never fails. A
// quick-analysis mode comes back as IDLE and an in-progress report as idle,
// since neither can resume across a restart.
func Load(ctx context.Context, kv store.KV, logger *zap.Logger) State {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := NewState()

	var mode Mode
	if read(ctx, kv, logger, KeyMode, &mode) {
		switch {
		case !mode.Valid():
			logger.Warn("unknown persisted mode, using default", zap.String("mode", string(mode)))
		case mode.IsQuick():
			logger.Info("quick-analysis mode not restorable, returning to idle", zap.String("mode", string(mode)))
		default:
			s.Mode = mode
		}
	}

	var items []checklist.Item
	if read(ctx, kv, logger, KeyChecklist, &items) {
		s.Checklist = items
	}
	var records []checklist.Item
	if read(ctx, kv, logger, KeyConfirmedRecords, &records) {
		s.ConfirmedRecords = records
	}

	var report *string
	if read(ctx, kv, logger, KeyReport, &report) {
		s.Report = report
	}

	var status ReportStatus
	if read(ctx, kv, logger, KeyReportStatus, &status) {
		switch {
		case !status.Valid():
			logger.Warn("unknown persisted report status, using default", zap.String("status", string(status)))
		case status == ReportGenerating:
			logger.Info("report generation interrupted, resetting status")
		default:
			s.ReportStatus = status
		}
	}
	return s
}

// read decodes key into v and reports whether a usable value was found.
func read(ctx context.Context, kv store.KV, logger *zap.Logger, key string, v any) bool {
	data, ok, err := kv.Get(ctx, key)
	if err != nil {
		logger.Warn("failed to read persisted value", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		logger.Warn("corrupt persisted value, using default", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Save writes every persisted field of s.
func Save(ctx context.Context, kv store.KV, s State) error {
	values := []struct {
		key string
		v   any
	}{
		{KeyMode, s.Mode},
		{KeyChecklist, s.Checklist},
		{KeyConfirmedRecords, s.ConfirmedRecords},
		{KeyReport, s.Report},
		{KeyReportStatus, s.ReportStatus},
	}
	for _, f := range values {
		data, err := json.Marshal(f.v)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", f.key, err)
		}
		if err := kv.Set(ctx, f.key, data); err != nil {
			return fmt.Errorf("failed to save %s: %w", f.key, err)
		}
	}
	return nil
}
