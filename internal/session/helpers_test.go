package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dofliu/InduSpect/internal/analysis"
	"github.com/dofliu/InduSpect/internal/connectivity"
	"github.com/dofliu/InduSpect/internal/images"
	"github.com/dofliu/InduSpect/internal/store"
	"github.com/dofliu/InduSpect/pkg/models"
	"github.com/stretchr/testify/require"
)

func pngPhoto(t *testing.T, name string, w, h int) Photo {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return Photo{Data: buf.Bytes(), Name: name}
}

type fakeExtractor struct {
	tasks []string
	err   error
	calls atomic.Int32
}

func (f *fakeExtractor) ExtractTasks(context.Context, models.Image) ([]string, error) {
	f.calls.Add(1)
	return f.tasks, f.err
}

type fakeReporter struct {
	mu      sync.Mutex
	report  string
	err     error
	records []models.ReportRecord
}

func (f *fakeReporter) GenerateReport(_ context.Context, records []models.ReportRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
	return f.report, f.err
}

// fakeAnalyzer fails tasks containing "broken". When gate is set each call
// waits for it to close; gates holds per-task gates that take precedence.
type fakeAnalyzer struct {
	gate  chan struct{}
	gates map[string]chan struct{}
	mu    sync.Mutex
	hints []string
	calls atomic.Int32
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, img models.Image, task, hint string) (*models.AnalysisResult, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.hints = append(f.hints, hint)
	f.mu.Unlock()
	gate := f.gate
	if g, ok := f.gates[task]; ok {
		gate = g
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if strings.Contains(task, "broken") {
		return nil, errors.New("reading not visible")
	}
	return &models.AnalysisResult{
		EquipmentType:       "gauge",
		Readings:            []models.Reading{{Label: "pressure", Value: models.Ptr(4.2), Unit: models.Ptr("bar")}},
		ConditionAssessment: "normal for " + task,
		Summary:             fmt.Sprintf("analysed %s (%d bytes)", task, len(img.Data)),
	}, nil
}

type fixture struct {
	wf        *Workflow
	kv        *store.MemoryKV
	images    *images.MemoryStore
	conn      *connectivity.Static
	extractor *fakeExtractor
	reporter  *fakeReporter
	analyzer  *fakeAnalyzer
}

func newFixture(t *testing.T, tasks ...string) *fixture {
	t.Helper()
	f := &fixture{
		kv:        store.NewMemory(),
		images:    images.NewMemoryStore(),
		conn:      connectivity.NewStatic(true),
		extractor: &fakeExtractor{tasks: tasks},
		reporter:  &fakeReporter{report: "## Report\nall fine"},
		analyzer:  &fakeAnalyzer{},
	}
	f.wf = New(NewState(), Deps{
		Extractor:    f.extractor,
		Reporter:     f.reporter,
		Orchestrator: analysis.New(f.analyzer, f.images, f.conn),
		Images:       f.images,
		KV:           f.kv,
	})
	return f
}

// extracted submits a form and returns the new checklist.
func (f *fixture) extracted(t *testing.T) State {
	t.Helper()
	require.NoError(t, f.wf.SubmitForm(context.Background(), pngPhoto(t, "form.png", 10, 10).Data))
	return f.wf.Snapshot()
}

// captured extracts the checklist and photographs every item.
func (f *fixture) captured(t *testing.T) State {
	t.Helper()
	s := f.extracted(t)
	for _, it := range s.Checklist {
		require.NoError(t, f.wf.CapturePhoto(context.Background(), it.ID, pngPhoto(t, it.Task+".png", 400, 300)))
	}
	return f.wf.Snapshot()
}

// reviewed runs the batch over a fully captured checklist.
func (f *fixture) reviewed(t *testing.T) State {
	t.Helper()
	f.captured(t)
	_, err := f.wf.StartBatch(context.Background(), nil)
	require.NoError(t, err)
	return f.wf.Snapshot()
}
