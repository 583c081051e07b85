package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dofliu/InduSpect/internal/connectivity"
	"github.com/dofliu/InduSpect/internal/images"
	"github.com/dofliu/InduSpect/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedAnalyzer blocks each call until its task's gate is released. Tasks
// starting with "fail" return an error.
type gatedAnalyzer struct {
	mu       sync.Mutex
	gates    map[string]chan struct{}
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func newGatedAnalyzer(tasks ...string) *gatedAnalyzer {
	a := &gatedAnalyzer{gates: make(map[string]chan struct{})}
	for _, t := range tasks {
		a.gates[t] = make(chan struct{})
	}
	return a
}

func (a *gatedAnalyzer) release(task string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	close(a.gates[task])
}

func (a *gatedAnalyzer) Analyze(ctx context.Context, img models.Image, task, hint string) (*models.AnalysisResult, error) {
	a.calls.Add(1)
	n := a.inFlight.Add(1)
	defer a.inFlight.Add(-1)
	for {
		m := a.maxSeen.Load()
		if n <= m || a.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}

	a.mu.Lock()
	gate := a.gates[task]
	a.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if len(task) >= 4 && task[:4] == "fail" {
		return nil, fmt.Errorf("could not read gauge for %s", task)
	}
	return &models.AnalysisResult{EquipmentType: "gauge " + task, Summary: hint}, nil
}

type funcAnalyzer func(ctx context.Context, img models.Image, task, hint string) (*models.AnalysisResult, error)

func (f funcAnalyzer) Analyze(ctx context.Context, img models.Image, task, hint string) (*models.AnalysisResult, error) {
	return f(ctx, img, task, hint)
}

type recordingEmitter struct {
	events []ProgressEvent
}

func (r *recordingEmitter) Emit(ev ProgressEvent) { r.events = append(r.events, ev) }

func storeWith(t *testing.T, ids ...string) *images.MemoryStore {
	t.Helper()
	s := images.NewMemoryStore()
	for _, id := range ids {
		_, err := s.Put(context.Background(), id, []byte("photo-"+id), "image/jpeg")
		require.NoError(t, err)
	}
	return s
}

func jobsFor(tasks ...string) []Job {
	jobs := make([]Job, len(tasks))
	for i, t := range tasks {
		jobs[i] = Job{ID: "id-" + t, Attempt: 1, Image: models.ImageRef{Key: "id-" + t, MIMEType: "image/jpeg"}, Task: t}
	}
	return jobs
}

func permutations(xs []string) [][]string {
	if len(xs) <= 1 {
		return [][]string{append([]string(nil), xs...)}
	}
	var out [][]string
	for i := range xs {
		rest := make([]string, 0, len(xs)-1)
		rest = append(rest, xs[:i]...)
		rest = append(rest, xs[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]string{xs[i]}, p...))
		}
	}
	return out
}

func TestRun_AllCompletionOrders(t *testing.T) {
	tasks := []string{"a", "fail-b", "c", "fail-d"}

	var baseline map[string]string
	for _, order := range permutations(tasks) {
		t.Run(fmt.Sprint(order), func(t *testing.T) {
			an := newGatedAnalyzer(tasks...)
			o := New(an, storeWith(t, "id-a", "id-fail-b", "id-c", "id-fail-d"), connectivity.NewStatic(true))

			merged := make(chan string, len(tasks))
			outcomes := map[string]string{}
			var arrival []string
			sink := func(c Completion) error {
				arrival = append(arrival, c.ID)
				if c.Err != nil {
					outcomes[c.ID] = "error: " + c.Err.Error()
				} else {
					outcomes[c.ID] = "success: " + c.Result.EquipmentType
				}
				merged <- c.ID
				return nil
			}

			done := make(chan Summary, 1)
			go func() { done <- o.Run(context.Background(), jobsFor(tasks...), sink, nil) }()

			for i, task := range order {
				an.release(task)
				select {
				case id := <-merged:
					assert.Equal(t, "id-"+task, id)
				case <-time.After(5 * time.Second):
					t.Fatalf("completion for %s not merged", task)
				}
				if i < len(order)-1 {
					select {
					case <-done:
						t.Fatal("run returned before every job settled")
					default:
					}
				}
			}

			sum := <-done
			assert.Equal(t, 4, sum.Dispatched)
			assert.Equal(t, 2, sum.Succeeded)
			assert.Equal(t, 2, sum.Failed)
			assert.Equal(t, 4, sum.Settled())
			assert.Len(t, arrival, 4)

			if baseline == nil {
				baseline = outcomes
			} else {
				assert.Equal(t, baseline, outcomes)
			}
		})
	}
}

func TestRun_FailureIsIsolated(t *testing.T) {
	an := funcAnalyzer(func(ctx context.Context, img models.Image, task, hint string) (*models.AnalysisResult, error) {
		if task == "bad" {
			return nil, errors.New("model timeout")
		}
		return &models.AnalysisResult{EquipmentType: task}, nil
	})
	o := New(an, storeWith(t, "id-good", "id-bad"), connectivity.NewStatic(true))

	got := map[string]Completion{}
	sum := o.Run(context.Background(), jobsFor("good", "bad"), func(c Completion) error {
		got[c.ID] = c
		return nil
	}, nil)

	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	require.NotNil(t, got["id-good"].Result)
	assert.Equal(t, "good", got["id-good"].Result.EquipmentType)
	assert.EqualError(t, got["id-bad"].Err, "model timeout")
}

func TestRun_OfflineDefersWithoutCalling(t *testing.T) {
	an := newGatedAnalyzer()
	o := New(an, storeWith(t, "id-a", "id-b"), connectivity.NewStatic(false))

	var deferred []string
	sum := o.Run(context.Background(), jobsFor("a", "b"), func(c Completion) error {
		assert.True(t, c.Deferred)
		assert.Nil(t, c.Result)
		assert.NoError(t, c.Err)
		deferred = append(deferred, c.ID)
		return nil
	}, nil)

	assert.Equal(t, int32(0), an.calls.Load())
	assert.Equal(t, 2, sum.Deferred)
	assert.Equal(t, 0, sum.Settled())
	assert.ElementsMatch(t, []string{"id-a", "id-b"}, sum.DeferredIDs)
	assert.ElementsMatch(t, deferred, sum.DeferredIDs)
}

func TestRun_ConnectivityCheckedAtDispatch(t *testing.T) {
	conn := connectivity.NewStatic(true)
	var calls atomic.Int32
	an := funcAnalyzer(func(ctx context.Context, img models.Image, task, hint string) (*models.AnalysisResult, error) {
		calls.Add(1)
		conn.Set(false)
		return &models.AnalysisResult{}, nil
	})
	o := New(an, storeWith(t, "id-a", "id-b"), conn, WithConcurrency(1))

	sum := o.Run(context.Background(), jobsFor("a", "b"), nil, nil)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 1, sum.Deferred)
}

func TestRun_MissingImageIsItemFailure(t *testing.T) {
	an := newGatedAnalyzer()
	o := New(an, images.NewMemoryStore(), connectivity.NewStatic(true))

	var got Completion
	o.Run(context.Background(), jobsFor("a"), func(c Completion) error {
		got = c
		return nil
	}, nil)

	require.Error(t, got.Err)
	assert.ErrorIs(t, got.Err, images.ErrNotFound)
	assert.Equal(t, int32(0), an.calls.Load())
}

func TestRun_NilResultIsFailure(t *testing.T) {
	an := funcAnalyzer(func(context.Context, models.Image, string, string) (*models.AnalysisResult, error) {
		return nil, nil
	})
	o := New(an, storeWith(t, "id-a"), nil)

	var got Completion
	o.Run(context.Background(), jobsFor("a"), func(c Completion) error {
		got = c
		return nil
	}, nil)

	assert.ErrorIs(t, got.Err, ErrEmptyResult)
}

func TestRun_ConcurrencyLimit(t *testing.T) {
	tasks := []string{"a", "b", "c", "d", "e"}
	an := newGatedAnalyzer()
	var slow funcAnalyzer = func(ctx context.Context, img models.Image, task, hint string) (*models.AnalysisResult, error) {
		time.Sleep(10 * time.Millisecond)
		return an.Analyze(ctx, img, task, hint)
	}
	o := New(slow, storeWith(t, "id-a", "id-b", "id-c", "id-d", "id-e"), nil, WithConcurrency(2))

	sum := o.Run(context.Background(), jobsFor(tasks...), nil, nil)

	assert.Equal(t, 5, sum.Succeeded)
	assert.LessOrEqual(t, an.maxSeen.Load(), int32(2))
}

func TestRun_SinkErrorDropsOnlyThatCompletion(t *testing.T) {
	an := newGatedAnalyzer()
	o := New(an, storeWith(t, "id-a", "id-b"), nil)

	var applied []string
	sum := o.Run(context.Background(), jobsFor("a", "b"), func(c Completion) error {
		if c.ID == "id-a" {
			return errors.New("stale")
		}
		applied = append(applied, c.ID)
		return nil
	}, nil)

	assert.Equal(t, []string{"id-b"}, applied)
	assert.Equal(t, 2, sum.Succeeded)
}

func TestRun_EmitsEvents(t *testing.T) {
	an := newGatedAnalyzer()
	o := New(an, storeWith(t, "id-a", "id-fail"), nil)
	rec := &recordingEmitter{}

	o.Run(context.Background(), jobsFor("a", "fail"), nil, rec)

	require.Len(t, rec.events, 5)
	assert.Equal(t, EventDispatch, rec.events[0].Type)
	assert.Equal(t, EventDispatch, rec.events[1].Type)
	types := []string{rec.events[2].Type, rec.events[3].Type}
	assert.ElementsMatch(t, []string{EventResult, EventError}, types)
	last := rec.events[4]
	assert.Equal(t, EventDone, last.Type)
	assert.Equal(t, 2, last.Settled)
	require.NotNil(t, last.Summary)
	assert.Equal(t, 1, last.Summary.Failed)
}

func TestRun_Empty(t *testing.T) {
	o := New(newGatedAnalyzer(), images.NewMemoryStore(), nil)
	sum := o.Run(context.Background(), nil, nil, nil)
	assert.Equal(t, Summary{}, sum)
}

func TestRun_RateLimitCancelled(t *testing.T) {
	o := New(newGatedAnalyzer(), storeWith(t, "id-a", "id-b"), nil, WithRateLimit(0.001, 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum := o.Run(ctx, jobsFor("a", "b"), nil, nil)
	assert.Equal(t, 2, sum.Failed)
}

func TestTextEmitter(t *testing.T) {
	var buf bytes.Buffer
	e := &TextEmitter{W: &buf}

	e.Emit(ProgressEvent{Type: EventDispatch, ItemID: "x", Task: "Pump", Total: 2})
	e.Emit(ProgressEvent{Type: EventResult, ItemID: "x", Settled: 1, Total: 2, Analysis: &models.AnalysisResult{EquipmentType: "pump", IsAnomaly: true}})
	e.Emit(ProgressEvent{Type: EventError, ItemID: "y", Settled: 2, Total: 2, Message: "boom"})
	e.Emit(ProgressEvent{Type: EventDone, Summary: &Summary{Succeeded: 1, Failed: 1}})

	out := buf.String()
	assert.Contains(t, out, "[0/2] dispatch x: Pump")
	assert.Contains(t, out, "[1/2] done x: pump (anomaly)")
	assert.Contains(t, out, "[2/2] failed y: boom")
	assert.Contains(t, out, "1 succeeded, 1 failed, 0 deferred")
}
