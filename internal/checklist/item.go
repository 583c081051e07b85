package checklist

import (
	"errors"
	"fmt"

	"github.com/dofliu/InduSpect/pkg/geometry"
	"github.com/dofliu/InduSpect/pkg/models"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStaleCompletion   = errors.New("completion does not match the live dispatch")
	ErrNoImage           = errors.New("item has no image")
	ErrNotFound          = errors.New("item not found")
)

// Item is one checklist entry. Items are values: every transition returns
// a new Item and leaves the receiver untouched.
type Item struct {
	ID         string
	Task       string
	Image      *models.ImageRef
	Dimensions *geometry.Size
	// Attempt counts dispatches. A completion is only accepted for the
	// attempt that is currently loading.
	Attempt int
	State   State
}

// New creates a pending item.
func New(id, task string) Item {
	return Item{ID: id, Task: task, State: Pending{}}
}

// Status returns the item's current status.
func (it Item) Status() Status {
	if it.State == nil {
		return StatusPending
	}
	return it.State.Status()
}

// HasImage reports whether a photo has been captured for the item.
func (it Item) HasImage() bool {
	return it.Image != nil
}

// Result returns a copy of the analysis result for success and confirmed
// items.
func (it Item) Result() (models.AnalysisResult, bool) {
	switch s := it.State.(type) {
	case Succeeded:
		return s.Result.Clone(), true
	case Confirmed:
		return s.Result.Clone(), true
	}
	return models.AnalysisResult{}, false
}

// Failure returns the failure reason for items in the error state.
func (it Item) Failure() (string, bool) {
	if s, ok := it.State.(Failed); ok {
		return s.Reason, true
	}
	return "", false
}

func (it Item) invalid(to Status) error {
	return fmt.Errorf("%w: %s -> %s (item %s)", ErrInvalidTransition, it.Status(), to, it.ID)
}

// BeginCapture marks the item as decoding a new photo. Pending, captured
// (retake) and failed (retry with new photo) items may be captured.
func (it Item) BeginCapture() (Item, error) {
	switch it.State.(type) {
	case Pending, Captured, Failed:
	default:
		return it, it.invalid(StatusCapturing)
	}
	prev := it.State
	it.State = Capturing{Prev: prev}
	return it, nil
}

// FinishCapture stores the decoded photo.
func (it Item) FinishCapture(ref models.ImageRef, size geometry.Size) (Item, error) {
	if _, ok := it.State.(Capturing); !ok {
		return it, it.invalid(StatusCaptured)
	}
	it.Image = &ref
	it.Dimensions = &size
	it.State = Captured{}
	return it, nil
}

// AbortCapture restores the state the item had before capture began.
func (it Item) AbortCapture() (Item, error) {
	c, ok := it.State.(Capturing)
	if !ok {
		return it, it.invalid(StatusPending)
	}
	it.State = c.Prev
	return it, nil
}

// Dispatch moves the item into loading and starts a new attempt. Captured,
// failed and success (re-analysis) items with a photo may be dispatched.
func (it Item) Dispatch() (Item, error) {
	if !it.HasImage() {
		return it, fmt.Errorf("%w: %s", ErrNoImage, it.ID)
	}
	switch it.State.(type) {
	case Captured, Failed, Succeeded:
	default:
		return it, it.invalid(StatusLoading)
	}
	prev := it.State
	it.State = Loading{Prev: prev}
	it.Attempt++
	return it, nil
}

func (it Item) live(attempt int) (Loading, error) {
	l, ok := it.State.(Loading)
	if !ok || it.Attempt != attempt {
		return Loading{}, fmt.Errorf("%w: item %s attempt %d (live %d, %s)",
			ErrStaleCompletion, it.ID, attempt, it.Attempt, it.Status())
	}
	return l, nil
}

// Resolve records a successful analysis for the given attempt.
func (it Item) Resolve(attempt int, result models.AnalysisResult) (Item, error) {
	if _, err := it.live(attempt); err != nil {
		return it, err
	}
	it.State = Succeeded{Result: result.Clone()}
	return it, nil
}

// Reject records a failed analysis for the given attempt.
func (it Item) Reject(attempt int, reason string) (Item, error) {
	if _, err := it.live(attempt); err != nil {
		return it, err
	}
	it.State = Failed{Reason: reason}
	return it, nil
}

// Defer undoes a dispatch that was never sent, restoring the previous state.
func (it Item) Defer(attempt int) (Item, error) {
	l, err := it.live(attempt)
	if err != nil {
		return it, err
	}
	it.State = l.Prev
	return it, nil
}

// Edit applies fn to a copy of the result of a success item. The status
// never changes.
func (it Item) Edit(fn func(r *models.AnalysisResult)) (Item, error) {
	s, ok := it.State.(Succeeded)
	if !ok {
		return it, it.invalid(StatusSuccess)
	}
	r := s.Result.Clone()
	fn(&r)
	it.State = Succeeded{Result: r}
	return it, nil
}

// ApplyMeasurement merges a manual measurement into the result, leaving
// every other field as it was.
func (it Item) ApplyMeasurement(dim models.Dimension, lines models.MeasurementLines) (Item, error) {
	return it.Edit(func(r *models.AnalysisResult) {
		r.Dimensions = &dim
		r.MeasurementLines = &lines
	})
}

// Confirm finalises a success item.
func (it Item) Confirm() (Item, error) {
	s, ok := it.State.(Succeeded)
	if !ok {
		return it, it.invalid(StatusConfirmed)
	}
	it.State = Confirmed{Result: s.Result}
	return it, nil
}
