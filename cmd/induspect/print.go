package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dofliu/InduSpect/internal/analysis"
	"github.com/dofliu/InduSpect/internal/checklist"
	"github.com/dofliu/InduSpect/internal/measure"
	"github.com/dofliu/InduSpect/internal/session"
	"github.com/dofliu/InduSpect/pkg/geometry"
	"github.com/dofliu/InduSpect/pkg/models"
	"github.com/fatih/color"
)

func printNotice(w io.Writer, s session.State) {
	if s.Error != "" {
		_, _ = color.New(color.FgRed).Fprintf(w, "Error: %s\n", s.Error)
	}
	if s.Notice != "" {
		_, _ = color.New(color.FgYellow).Fprintf(w, "Notice: %s\n", s.Notice)
	}
}

func printOnline(w io.Writer, online bool) {
	if online {
		_, _ = color.New(color.FgGreen).Fprintln(w, "● online")
		return
	}
	_, _ = color.New(color.FgRed).Fprintln(w, "○ offline")
}

func printStatus(w io.Writer, s session.State, online bool) {
	bold := color.New(color.Bold)
	dim := color.New(color.FgHiBlack)

	_, _ = bold.Fprintf(w, "Mode: %s  ", s.Mode)
	printOnline(w, online)

	if len(s.Checklist) > 0 {
		p := s.Progress()
		_, _ = dim.Fprintln(w, "  "+p.Step())
		fmt.Fprintln(w)
		for _, it := range s.Checklist {
			printItem(w, it)
		}
	}

	if n := len(s.ConfirmedRecords); n > 0 {
		fmt.Fprintln(w)
		_, _ = bold.Fprintf(w, "Confirmed records: %d\n", n)
		for _, it := range s.ConfirmedRecords {
			fmt.Fprintf(w, "  %s  %s\n", it.Task, resultLine(it))
		}
	}

	if s.Report != nil {
		fmt.Fprintln(w)
		_, _ = dim.Fprintln(w, `Report available, run "induspect report" to regenerate.`)
	}
	if s.ReportStatus == session.ReportError && s.ReportError != "" {
		_, _ = color.New(color.FgRed).Fprintf(w, "Report failed: %s\n", s.ReportError)
	}
}

func printQuick(w io.Writer, s session.State, online bool) {
	bold := color.New(color.Bold)
	_, _ = bold.Fprintf(w, "Mode: %s  ", s.Mode)
	printOnline(w, online)
	if s.Quick != nil {
		fmt.Fprintln(w)
		printItem(w, *s.Quick)
		if r, ok := s.Quick.Result(); ok {
			printResult(w, r)
		}
	}
	if n := len(s.ConfirmedRecords); n > 0 {
		fmt.Fprintf(w, "\n%d confirmed records\n", n)
	}
}

func statusColor(st checklist.Status) *color.Color {
	switch st {
	case checklist.StatusSuccess, checklist.StatusConfirmed:
		return color.New(color.FgGreen)
	case checklist.StatusError:
		return color.New(color.FgRed)
	case checklist.StatusLoading, checklist.StatusCapturing:
		return color.New(color.FgYellow)
	case checklist.StatusCaptured:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgHiBlack)
	}
}

func printItem(w io.Writer, it checklist.Item) {
	st := it.Status()
	_, _ = statusColor(st).Fprintf(w, "  [%-9s] ", st)
	fmt.Fprintf(w, "%s  %s\n", it.ID, it.Task)

	switch st {
	case checklist.StatusSuccess:
		fmt.Fprintf(w, "              %s\n", resultLine(it))
	case checklist.StatusError:
		if reason, ok := it.Failure(); ok {
			_, _ = color.New(color.FgRed).Fprintf(w, "              %s\n", reason)
		}
	}
}

// resultLine is the one-line digest of an analysed item.
func resultLine(it checklist.Item) string {
	r, ok := it.Result()
	if !ok {
		return ""
	}
	parts := []string{r.EquipmentType}
	if len(r.Readings) > 0 {
		parts = append(parts, formatReading(r.Readings[0]))
	}
	if r.ConditionAssessment != "" {
		parts = append(parts, r.ConditionAssessment)
	}
	line := strings.Join(parts, " | ")
	if r.IsAnomaly {
		line = color.New(color.FgRed, color.Bold).Sprint("ANOMALY ") + line
	}
	return line
}

func formatReading(rd models.Reading) string {
	var b strings.Builder
	b.WriteString(rd.Label)
	b.WriteString(": ")
	if rd.Value == nil {
		b.WriteString("n/a")
	} else {
		b.WriteString(strconv.FormatFloat(*rd.Value, 'f', -1, 64))
	}
	if rd.Unit != nil && *rd.Unit != "" {
		b.WriteString(" ")
		b.WriteString(*rd.Unit)
	}
	return b.String()
}

func printResult(w io.Writer, r models.AnalysisResult) {
	bold := color.New(color.Bold)
	fmt.Fprintln(w)
	_, _ = bold.Fprintln(w, "EQUIPMENT")
	fmt.Fprintln(w, r.EquipmentType)
	if len(r.Readings) > 0 {
		_, _ = bold.Fprintln(w, "READINGS")
		for i, rd := range r.Readings {
			fmt.Fprintf(w, "%d. %s\n", i, formatReading(rd))
		}
	}
	_, _ = bold.Fprintln(w, "CONDITION")
	fmt.Fprintln(w, r.ConditionAssessment)
	if r.IsAnomaly {
		_, _ = color.New(color.FgRed, color.Bold).Fprintln(w, "Anomaly detected")
	}
	if r.Summary != "" {
		_, _ = bold.Fprintln(w, "SUMMARY")
		fmt.Fprintln(w, r.Summary)
	}
}

// printSummary prints the outcome counts of a finished run.
func printSummary(w io.Writer, sum analysis.Summary) {
	line := fmt.Sprintf("%d of %d settled", sum.Settled(), sum.Dispatched)
	if sum.Failed > 0 {
		line += fmt.Sprintf(", %d failed", sum.Failed)
	}
	if sum.Deferred > 0 {
		line += fmt.Sprintf(", %d deferred until online", sum.Deferred)
	}
	_, _ = color.New(color.FgHiBlack).Fprintln(w, line)
}

func printMeasurement(w io.Writer, res measure.Result) {
	unit := ""
	if res.Dimension.Unit != nil {
		unit = " " + *res.Dimension.Unit
	}
	fmt.Fprintf(w, "Measured: %s%s\n", strconv.FormatFloat(res.Value(), 'f', -1, 64), unit)
	if l := res.Lines.Ref; l != nil {
		fmt.Fprintf(w, "  reference %s\n", formatLine(*l))
	}
	if l := res.Lines.Target; l != nil {
		fmt.Fprintf(w, "  target    %s\n", formatLine(*l))
	}
}

// formatLine prints a native-space line with its pixel length.
func formatLine(l geometry.Line) string {
	return fmt.Sprintf("(%.0f,%.0f)-(%.0f,%.0f) %.1f px", l.P1.X, l.P1.Y, l.P2.X, l.P2.Y, l.Length())
}

func printReport(w io.Writer, s session.State) {
	if s.Report == nil {
		return
	}
	dim := color.New(color.FgHiBlack)
	_, _ = dim.Fprintf(w, "Report on %d confirmed records\n", len(s.ConfirmedRecords))
	_, _ = dim.Fprintln(w, strings.Repeat("━", 50))
	fmt.Fprintln(w, *s.Report)
}
