package checklist

import (
	"encoding/json"
	"fmt"

	"github.com/dofliu/InduSpect/pkg/geometry"
	"github.com/dofliu/InduSpect/pkg/models"
)

type wireItem struct {
	ID         string                 `json:"id"`
	Task       string                 `json:"task"`
	Image      *models.ImageRef       `json:"imageData"`
	Dimensions *geometry.Size         `json:"imageDimensions"`
	Status     Status                 `json:"status"`
	Result     *models.AnalysisResult `json:"result"`
	Error      *string                `json:"error"`
	Attempt    int                    `json:"attempt,omitempty"`
}

// MarshalJSON flattens the state into status/result/error fields.
func (it Item) MarshalJSON() ([]byte, error) {
	w := wireItem{
		ID:         it.ID,
		Task:       it.Task,
		Image:      it.Image,
		Dimensions: it.Dimensions,
		Status:     it.Status(),
		Attempt:    it.Attempt,
	}
	if r, ok := it.Result(); ok {
		w.Result = &r
	}
	if reason, ok := it.Failure(); ok {
		w.Error = &reason
	}
	return json.Marshal(w)
}

// UnmarshalJSON rebuilds the state from its flattened form. Combinations
// that no state can hold are rejected.
func (it *Item) UnmarshalJSON(data []byte) error {
	var w wireItem
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.ID == "" {
		return fmt.Errorf("checklist item without id")
	}

	var st State
	switch w.Status {
	case StatusPending, "":
		st = Pending{}
	case StatusCapturing:
		st = Capturing{Prev: Pending{}}
		if w.Image != nil {
			st = Capturing{Prev: Captured{}}
		}
	case StatusCaptured:
		if w.Image == nil {
			return fmt.Errorf("item %s: captured without image", w.ID)
		}
		st = Captured{}
	case StatusLoading:
		if w.Image == nil {
			return fmt.Errorf("item %s: loading without image", w.ID)
		}
		st = Loading{Prev: Captured{}}
	case StatusSuccess:
		if w.Result == nil {
			return fmt.Errorf("item %s: success without result", w.ID)
		}
		st = Succeeded{Result: *w.Result}
	case StatusError:
		reason := ""
		if w.Error != nil {
			reason = *w.Error
		}
		st = Failed{Reason: reason}
	case StatusConfirmed:
		if w.Result == nil {
			return fmt.Errorf("item %s: confirmed without result", w.ID)
		}
		st = Confirmed{Result: *w.Result}
	default:
		return fmt.Errorf("item %s: unknown status %q", w.ID, w.Status)
	}

	*it = Item{
		ID:         w.ID,
		Task:       w.Task,
		Image:      w.Image,
		Dimensions: w.Dimensions,
		Attempt:    w.Attempt,
		State:      st,
	}
	return nil
}
