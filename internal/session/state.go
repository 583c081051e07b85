// Package session owns the inspection session: the workflow mode, the
// working checklist, confirmed records, the quick-analysis item and the
// report.
package session

import (
	"fmt"
	"strings"

	"github.com/dofliu/InduSpect/internal/checklist"
)

// Mode is the top-level workflow mode.
type Mode string

const (
	ModeIdle           Mode = "IDLE"
	ModeExtracting     Mode = "EXTRACTING"
	ModeCapture        Mode = "CAPTURE"
	ModeAnalyzing      Mode = "ANALYZING"
	ModeReview         Mode = "REVIEW"
	ModeQuickCapture   Mode = "QUICK_CAPTURE"
	ModeQuickAnalyzing Mode = "QUICK_ANALYZING"
	ModeQuickReview    Mode = "QUICK_REVIEW"
)

var modes = map[Mode]bool{
	ModeIdle: true, ModeExtracting: true, ModeCapture: true, ModeAnalyzing: true,
	ModeReview: true, ModeQuickCapture: true, ModeQuickAnalyzing: true, ModeQuickReview: true,
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return modes[m] }

// IsQuick reports whether m belongs to the quick-analysis family.
func (m Mode) IsQuick() bool { return strings.HasPrefix(string(m), "QUICK_") }

// ReportStatus tracks report generation.
type ReportStatus string

const (
	ReportIdle       ReportStatus = "idle"
	ReportGenerating ReportStatus = "generating"
	ReportError      ReportStatus = "error"
)

// Valid reports whether s is a known report status.
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportIdle, ReportGenerating, ReportError:
		return true
	}
	return false
}

// State is a snapshot of the session. Confirmed records are append-only:
// an entry is never modified after it is added.
type State struct {
	Mode             Mode             `json:"mode"`
	Checklist        []checklist.Item `json:"checklist"`
	ConfirmedRecords []checklist.Item `json:"confirmedRecords"`
	Quick            *checklist.Item  `json:"quickItem"`
	Report           *string          `json:"report"`
	ReportStatus     ReportStatus     `json:"reportStatus"`
	ReportError      string           `json:"reportError,omitempty"`
	// Error is the surfaced session-level error, e.g. a failed extraction.
	Error string `json:"error,omitempty"`
	// Notice is a transient message such as deferred offline dispatches.
	Notice string `json:"notice,omitempty"`

	// batch identifies the run that owns ANALYZING or QUICK_ANALYZING.
	// Zero means no run does.
	batch uint64
}

// NewState returns the initial session state.
func NewState() State {
	return State{Mode: ModeIdle, ReportStatus: ReportIdle}
}

func (s State) clone() State {
	out := s
	out.Checklist = checklist.Clone(s.Checklist)
	out.ConfirmedRecords = checklist.Clone(s.ConfirmedRecords)
	if s.Quick != nil {
		q := *s.Quick
		out.Quick = &q
	}
	if s.Report != nil {
		r := *s.Report
		out.Report = &r
	}
	return out
}

// modifyItem applies fn to the working checklist item or quick item with id.
func (s *State) modifyItem(id string, fn func(checklist.Item) (checklist.Item, error)) error {
	if s.Quick != nil && s.Quick.ID == id {
		next, err := fn(*s.Quick)
		if err != nil {
			return err
		}
		s.Quick = &next
		return nil
	}
	items, err := checklist.Update(s.Checklist, id, fn)
	if err != nil {
		return err
	}
	s.Checklist = items
	return nil
}

func (s State) item(id string) (checklist.Item, bool) {
	if s.Quick != nil && s.Quick.ID == id {
		return *s.Quick, true
	}
	return checklist.Find(s.Checklist, id)
}

// IsConfirmed reports whether id is among the confirmed records.
func (s State) IsConfirmed(id string) bool {
	return checklist.Index(s.ConfirmedRecords, id) >= 0
}

// Progress summarises the working checklist.
type Progress struct {
	Total       int  `json:"total"`
	Captured    int  `json:"captured"`
	Analyzed    int  `json:"analyzed"`
	Success     int  `json:"success"`
	Error       int  `json:"error"`
	Pending     int  `json:"pending"`
	AllCaptured bool `json:"allCaptured"`
	AllAnalyzed bool `json:"allAnalyzed"`
	HasSuccess  bool `json:"hasSuccess"`
	HasPending  bool `json:"hasPending"`
}

// Progress counts the working checklist by status.
func (s State) Progress() Progress {
	var p Progress
	for _, it := range s.Checklist {
		p.Total++
		if it.HasImage() {
			p.Captured++
		}
		switch it.Status() {
		case checklist.StatusSuccess:
			p.Success++
		case checklist.StatusError:
			p.Error++
		case checklist.StatusPending:
			p.Pending++
		}
	}
	p.Analyzed = p.Success + p.Error
	p.AllCaptured = p.Total > 0 && p.Captured == p.Total
	p.AllAnalyzed = p.Total > 0 && p.Analyzed == p.Total
	p.HasSuccess = p.Success > 0
	p.HasPending = p.Pending > 0
	return p
}

// Step returns the stepper position shown to the operator.
func (p Progress) Step() string {
	return fmt.Sprintf("%d/%d captured, %d/%d analyzed", p.Captured, p.Total, p.Analyzed, p.Total)
}
