package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dofliu/InduSpect/internal/analysis"
	"github.com/dofliu/InduSpect/internal/checklist"
	"github.com/dofliu/InduSpect/internal/connectivity"
	"github.com/dofliu/InduSpect/internal/images"
	"github.com/dofliu/InduSpect/internal/metrics"
	"github.com/dofliu/InduSpect/internal/session"
	"github.com/dofliu/InduSpect/internal/store"
	"github.com/dofliu/InduSpect/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct{}

func (fakeService) Analyze(_ context.Context, _ models.Image, task, _ string) (*models.AnalysisResult, error) {
	if strings.Contains(task, "broken") {
		return nil, errors.New("gauge face not visible")
	}
	return &models.AnalysisResult{EquipmentType: "gauge", ConditionAssessment: "ok", Summary: task}, nil
}

func (fakeService) ExtractTasks(context.Context, models.Image) ([]string, error) {
	return []string{"Check pump A", "broken meter B"}, nil
}

func (fakeService) GenerateReport(_ context.Context, records []models.ReportRecord) (string, error) {
	return fmt.Sprintf("%d records", len(records)), nil
}

// gatedService holds every analysis until gate closes and fails if the
// call's context ends first.
type gatedService struct {
	fakeService
	gate  chan struct{}
	calls atomic.Int32
}

func (g *gatedService) Analyze(ctx context.Context, img models.Image, task, hint string) (*models.AnalysisResult, error) {
	g.calls.Add(1)
	select {
	case <-g.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.fakeService.Analyze(ctx, img, task, hint)
}

type testEnv struct {
	srv     *httptest.Server
	handler *Server
	wf      *session.Workflow
	kv      *store.MemoryKV
	conn    *connectivity.Static
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, fakeService{})
}

func newTestEnvWith(t *testing.T, analyzer analysis.Analyzer) *testEnv {
	t.Helper()
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	imgs := images.NewMemoryStore()
	env := &testEnv{kv: store.NewMemory(), conn: connectivity.NewStatic(true)}
	svc := fakeService{}
	env.wf = session.New(session.NewState(), session.Deps{
		Extractor:    svc,
		Reporter:     svc,
		Orchestrator: analysis.New(analyzer, imgs, env.conn, analysis.WithMetrics(rec)),
		Images:       imgs,
		KV:           env.kv,
		Metrics:      rec,
	})
	env.handler = NewServer(Config{Workflow: env.wf, Gatherer: reg})
	env.srv = httptest.NewServer(env.handler)
	t.Cleanup(env.srv.Close)
	return env
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 400, 300))))
	return buf.Bytes()
}

func multipartPhoto(t *testing.T, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("photo", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

type sessionBody struct {
	Mode      string `json:"mode"`
	Checklist []struct {
		ID     string                 `json:"id"`
		Task   string                 `json:"task"`
		Status string                 `json:"status"`
		Error  *string                `json:"error"`
		Result *models.AnalysisResult `json:"result"`
	} `json:"checklist"`
	ConfirmedRecords []json.RawMessage `json:"confirmedRecords"`
	Report           *string           `json:"report"`
	ReportStatus     string            `json:"reportStatus"`
	Notice           string            `json:"notice"`
	Error            string            `json:"error"`
	Progress         session.Progress  `json:"progress"`
	Online           bool              `json:"online"`
}

func (e *testEnv) do(t *testing.T, method, path, contentType string, body *bytes.Buffer) (*http.Response, []byte) {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func (e *testEnv) session(t *testing.T, method, path, contentType string, body *bytes.Buffer) sessionBody {
	t.Helper()
	resp, raw := e.do(t, method, path, contentType, body)
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", raw)
	var s sessionBody
	require.NoError(t, json.Unmarshal(raw, &s))
	return s
}

func (e *testEnv) capturedAll(t *testing.T) sessionBody {
	t.Helper()
	s := e.session(t, "POST", "/api/form", "image/png", bytes.NewBuffer(pngBytes(t)))
	for _, it := range s.Checklist {
		body, ct := multipartPhoto(t, it.Task+".png", pngBytes(t))
		s = e.session(t, "POST", "/api/items/"+it.ID+"/photo", ct, body)
	}
	return s
}

type sseEvent struct {
	Type    string            `json:"type"`
	ItemID  string            `json:"item_id"`
	Message string            `json:"message"`
	Summary *analysis.Summary `json:"summary"`
	Session *sessionBody      `json:"session"`
}

func readSSEEvents(t *testing.T, raw []byte) []sseEvent {
	t.Helper()
	var events []sseEvent
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		var ev sseEvent
		require.NoError(t, json.Unmarshal([]byte(payload), &ev), "raw: %s", payload)
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, raw := env.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))
}

func TestGetSession_Initial(t *testing.T) {
	env := newTestEnv(t)
	s := env.session(t, "GET", "/api/session", "", nil)
	assert.Equal(t, "IDLE", s.Mode)
	assert.Equal(t, "idle", s.ReportStatus)
	assert.True(t, s.Online)
}

func TestFormAndCapture(t *testing.T) {
	env := newTestEnv(t)
	s := env.capturedAll(t)

	assert.Equal(t, "CAPTURE", s.Mode)
	require.Len(t, s.Checklist, 2)
	for _, it := range s.Checklist {
		assert.Equal(t, "captured", it.Status)
	}
	assert.True(t, s.Progress.AllCaptured)

	// persisted after every change
	data, ok, err := env.kv.Get(context.Background(), session.KeyMode)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"CAPTURE"`, string(data))
}

func TestCapture_BadPhoto(t *testing.T) {
	env := newTestEnv(t)
	s := env.session(t, "POST", "/api/form", "image/png", bytes.NewBuffer(pngBytes(t)))

	resp, _ := env.do(t, "POST", "/api/items/"+s.Checklist[0].ID+"/photo", "image/jpeg", bytes.NewBufferString("nope"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, "POST", "/api/items/missing/photo", "image/png", bytes.NewBuffer(pngBytes(t)))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAnalyze_BeforeCaptureIsConflict(t *testing.T) {
	env := newTestEnv(t)
	env.session(t, "POST", "/api/form", "image/png", bytes.NewBuffer(pngBytes(t)))

	resp, raw := env.do(t, "POST", "/api/analyze", "", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
	assert.Contains(t, string(raw), "not every checklist item has a photo")
}

func TestAnalyze_StreamsEvents(t *testing.T) {
	env := newTestEnv(t)
	env.capturedAll(t)

	resp, raw := env.do(t, "POST", "/api/analyze", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readSSEEvents(t, raw)
	counts := map[string]int{}
	for _, ev := range events {
		counts[ev.Type]++
	}
	assert.Equal(t, 2, counts[analysis.EventDispatch])
	assert.Equal(t, 1, counts[analysis.EventResult])
	assert.Equal(t, 1, counts[analysis.EventError])
	assert.Equal(t, 1, counts[analysis.EventDone])

	last := events[len(events)-1]
	require.Equal(t, "session", last.Type)
	require.NotNil(t, last.Session)
	assert.Equal(t, "REVIEW", last.Session.Mode)
	assert.Equal(t, 2, last.Session.Progress.Analyzed)
}

func TestAnalyze_ClientDisconnectDoesNotCancelCalls(t *testing.T) {
	svc := &gatedService{gate: make(chan struct{})}
	env := newTestEnvWith(t, svc)
	env.capturedAll(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("POST", "/api/analyze", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		env.handler.ServeHTTP(rec, req)
	}()

	require.Eventually(t, func() bool { return svc.calls.Load() == 2 }, 5*time.Second, time.Millisecond)
	cancel()
	close(svc.gate)
	<-done

	s := env.wf.Snapshot()
	assert.Equal(t, session.ModeReview, s.Mode)
	for _, it := range s.Checklist {
		if strings.Contains(it.Task, "broken") {
			reason, _ := it.Failure()
			assert.Equal(t, "gauge face not visible", reason)
			continue
		}
		assert.Equal(t, checklist.StatusSuccess, it.Status(), it.Task)
	}

	data, ok, err := env.kv.Get(context.Background(), session.KeyMode)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"REVIEW"`, string(data))
}

func TestReviewConfirmAndReport(t *testing.T) {
	env := newTestEnv(t)
	env.capturedAll(t)
	env.do(t, "POST", "/api/analyze", "", nil)

	s := env.session(t, "GET", "/api/session", "", nil)
	var okID, badID string
	for _, it := range s.Checklist {
		if it.Status == "success" {
			okID = it.ID
		} else {
			badID = it.ID
			require.NotNil(t, it.Error)
			assert.Equal(t, "gauge face not visible", *it.Error)
		}
	}

	s = env.session(t, "PATCH", "/api/items/"+okID+"/result", "application/json", bytes.NewBufferString(`{"summary":"edited by operator"}`))
	for _, it := range s.Checklist {
		if it.ID == okID {
			assert.Equal(t, "edited by operator", it.Result.Summary)
		}
	}

	resp, _ := env.do(t, "POST", "/api/items/"+badID+"/confirm", "", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	s = env.session(t, "POST", "/api/items/"+okID+"/confirm", "", nil)
	assert.Len(t, s.ConfirmedRecords, 1)
	s = env.session(t, "POST", "/api/items/"+okID+"/confirm", "", nil)
	assert.Len(t, s.ConfirmedRecords, 1)

	s = env.session(t, "POST", "/api/report", "", nil)
	require.NotNil(t, s.Report)
	assert.Equal(t, "1 records", *s.Report)

	s = env.session(t, "POST", "/api/new", "", nil)
	assert.Equal(t, "IDLE", s.Mode)
	assert.Empty(t, s.Checklist)
	assert.Len(t, s.ConfirmedRecords, 1)
	assert.NotNil(t, s.Report)

	s = env.session(t, "POST", "/api/reset", "", nil)
	assert.Empty(t, s.ConfirmedRecords)
	assert.Nil(t, s.Report)
}

func TestMeasure(t *testing.T) {
	env := newTestEnv(t)
	env.capturedAll(t)
	env.do(t, "POST", "/api/analyze", "", nil)
	s := env.session(t, "GET", "/api/session", "", nil)
	var id string
	for _, it := range s.Checklist {
		if it.Status == "success" {
			id = it.ID
		}
	}

	body := `{"viewport":{"width":800,"height":600},
		"reference":{"p1":{"x":0,"y":0},"p2":{"x":400,"y":0}},
		"target":{"p1":{"x":0,"y":0},"p2":{"x":0,"y":100}}}`
	resp, raw := env.do(t, "POST", "/api/items/"+id+"/measure", "application/json", bytes.NewBufferString(body))
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", raw)

	var out struct {
		Measurement struct {
			Dimension models.Dimension `json:"dimension"`
		} `json:"measurement"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.NotNil(t, out.Measurement.Dimension.Value)
	assert.Equal(t, 21.4, *out.Measurement.Dimension.Value)

	bad := strings.Replace(body, `"target"`, `"reference_length":"abc","target"`, 1)
	resp, _ = env.do(t, "POST", "/api/items/"+id+"/measure", "application/json", bytes.NewBufferString(bad))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQuickFlow(t *testing.T) {
	env := newTestEnv(t)

	s := env.session(t, "POST", "/api/quick", "", nil)
	assert.Equal(t, "QUICK_CAPTURE", s.Mode)

	body, ct := multipartPhoto(t, "tank.png", pngBytes(t))
	s = env.session(t, "POST", "/api/quick/photo", ct, body)
	assert.Equal(t, "QUICK_REVIEW", s.Mode)

	s = env.session(t, "POST", "/api/quick/retry", "application/json", bytes.NewBufferString(`{"hint":"check the level"}`))
	assert.Equal(t, "QUICK_REVIEW", s.Mode)

	s = env.session(t, "POST", "/api/quick/save", "", nil)
	assert.Equal(t, "QUICK_CAPTURE", s.Mode)
	assert.Len(t, s.ConfirmedRecords, 1)

	s = env.session(t, "POST", "/api/quick/back", "", nil)
	assert.Equal(t, "IDLE", s.Mode)
}

func TestQuickPhoto_Offline(t *testing.T) {
	env := newTestEnv(t)
	env.session(t, "POST", "/api/quick", "", nil)
	env.conn.Set(false)

	s := env.session(t, "POST", "/api/quick/photo?name=tank.png", "image/png", bytes.NewBuffer(pngBytes(t)))
	assert.Equal(t, "QUICK_CAPTURE", s.Mode)
	assert.False(t, s.Online)
	assert.Contains(t, s.Notice, "offline")
}

func TestReport_NoRecords(t *testing.T) {
	env := newTestEnv(t)
	resp, raw := env.do(t, "POST", "/api/report", "", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(raw), "no confirmed records to report on")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.capturedAll(t)
	env.do(t, "POST", "/api/analyze", "", nil)

	resp, raw := env.do(t, "GET", "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := string(raw)
	assert.Contains(t, out, `induspect_analysis_calls_total{operation="analyze",outcome="error"} 1`)
	assert.Contains(t, out, `induspect_analysis_calls_total{operation="analyze",outcome="success"} 1`)
	assert.Contains(t, out, `induspect_analysis_calls_total{operation="extract",outcome="success"} 1`)
	assert.Contains(t, out, "induspect_batch_size")
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{session.ErrInvalidMode, http.StatusConflict},
		{fmt.Errorf("wrapped: %w", session.ErrNoQuickItem), http.StatusNotFound},
		{session.ErrNoTasks, http.StatusUnprocessableEntity},
		{session.ErrOffline, http.StatusServiceUnavailable},
		{errors.New("model exploded"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorStatus(tt.err), tt.err.Error())
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.do(t, "OPTIONS", "/api/session", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
