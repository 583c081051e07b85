package analysis

import (
	"fmt"
	"io"

	"github.com/dofliu/InduSpect/pkg/models"
)

// Event types.
const (
	EventDispatch = "dispatch"
	EventResult   = "result"
	EventError    = "error"
	EventDeferred = "deferred"
	EventDone     = "done"
)

// ProgressEvent represents a single progress update during a batch.
type ProgressEvent struct {
	Type     string                 `json:"type"`
	ItemID   string                 `json:"item_id,omitempty"`
	Task     string                 `json:"task,omitempty"`
	Attempt  int                    `json:"attempt,omitempty"`
	Settled  int                    `json:"settled,omitempty"` // completions merged so far
	Total    int                    `json:"total,omitempty"`
	Message  string                 `json:"message,omitempty"`
	Analysis *models.AnalysisResult `json:"analysis,omitempty"`
	Summary  *Summary               `json:"summary,omitempty"` // set on "done"
}

// ProgressEmitter receives progress events. Events for one run are emitted
// from a single goroutine.
type ProgressEmitter interface {
	Emit(event ProgressEvent)
}

// TextEmitter formats progress events as human-readable text for CLI output.
type TextEmitter struct {
	W io.Writer
}

// Emit writes a formatted progress line to the underlying writer.
func (e *TextEmitter) Emit(ev ProgressEvent) {
	switch ev.Type {
	case EventDispatch:
		fmt.Fprintf(e.W, "[%d/%d] dispatch %s: %s\n", ev.Settled, ev.Total, ev.ItemID, ev.Task)
	case EventResult:
		msg := ""
		if ev.Analysis != nil {
			msg = ev.Analysis.EquipmentType
			if ev.Analysis.IsAnomaly {
				msg += " (anomaly)"
			}
		}
		fmt.Fprintf(e.W, "[%d/%d] done %s: %s\n", ev.Settled, ev.Total, ev.ItemID, msg)
	case EventError:
		fmt.Fprintf(e.W, "[%d/%d] failed %s: %s\n", ev.Settled, ev.Total, ev.ItemID, ev.Message)
	case EventDeferred:
		fmt.Fprintf(e.W, "[%d/%d] offline, deferred %s\n", ev.Settled, ev.Total, ev.ItemID)
	case EventDone:
		if ev.Summary != nil {
			fmt.Fprintf(e.W, "Batch finished: %d succeeded, %d failed, %d deferred\n",
				ev.Summary.Succeeded, ev.Summary.Failed, ev.Summary.Deferred)
		}
	}
}

// Emitters fans events out to several emitters. Nil entries are skipped.
type Emitters []ProgressEmitter

func (es Emitters) Emit(ev ProgressEvent) {
	for _, e := range es {
		if e != nil {
			e.Emit(ev)
		}
	}
}

func emit(e ProgressEmitter, ev ProgressEvent) {
	if e != nil {
		e.Emit(ev)
	}
}
