package session

import (
	"context"
	"fmt"

	"github.com/dofliu/InduSpect/internal/analysis"
	"github.com/dofliu/InduSpect/internal/checklist"
	"github.com/dofliu/InduSpect/internal/images"
	"go.uber.org/zap"
)

// Photo is a captured image as received from the operator.
type Photo struct {
	Data []byte
	Name string
}

// CapturePhoto stores the photo for a checklist item during CAPTURE. A
// photo that cannot be decoded leaves the item in its previous status.
func (w *Workflow) CapturePhoto(ctx context.Context, id string, photo Photo) error {
	err := w.update(func(s *State) error {
		if err := requireMode(s, ModeCapture); err != nil {
			return err
		}
		return s.modifyItem(id, checklist.Item.BeginCapture)
	})
	if err != nil {
		return err
	}
	return w.capture(ctx, id, photo)
}

// RetryWithPhoto replaces the photo of a failed item and dispatches it
// again straight away. Offline, the item is left captured with a notice.
func (w *Workflow) RetryWithPhoto(ctx context.Context, id string, photo Photo, emitter analysis.ProgressEmitter) (analysis.Summary, error) {
	if w.orchestrator == nil {
		return analysis.Summary{}, errNoOrchestrator
	}
	err := w.update(func(s *State) error {
		if err := requireMode(s, ModeReview); err != nil {
			return err
		}
		it, ok := s.item(id)
		if !ok {
			return fmt.Errorf("%w: %s", checklist.ErrNotFound, id)
		}
		if it.Status() != checklist.StatusError {
			return fmt.Errorf("%w: retry needs a failed item, %s is %s", checklist.ErrInvalidTransition, id, it.Status())
		}
		return s.modifyItem(id, checklist.Item.BeginCapture)
	})
	if err != nil {
		return analysis.Summary{}, err
	}
	if err := w.capture(ctx, id, photo); err != nil {
		return analysis.Summary{}, err
	}
	return w.dispatchOne(ctx, id, "", emitter, nil)
}

// capture decodes and stores a photo for an item already marked capturing.
func (w *Workflow) capture(ctx context.Context, id string, photo Photo) error {
	info, err := images.Decode(photo.Data)
	if err != nil {
		return w.abortCapture(id, fmt.Errorf("failed to read photo: %w", err))
	}
	if w.images == nil {
		return w.abortCapture(id, errNoImageStore)
	}
	ref, err := w.images.Put(ctx, id+"-"+w.newID(), photo.Data, info.MIMEType)
	if err != nil {
		return w.abortCapture(id, fmt.Errorf("failed to store photo: %w", err))
	}
	ref.Name = photo.Name

	var replaced *checklist.Item
	err = w.update(func(s *State) error {
		return s.modifyItem(id, func(it checklist.Item) (checklist.Item, error) {
			old := it
			next, err := it.FinishCapture(ref, info.Size)
			if err == nil && old.Image != nil {
				replaced = &old
			}
			return next, err
		})
	})
	if err != nil {
		// the item went away while the photo was being decoded
		if delErr := w.images.Delete(ctx, ref); delErr != nil {
			w.logger.Warn("failed to delete orphaned image", zap.String("key", ref.Key), zap.Error(delErr))
		}
		return err
	}
	if replaced != nil {
		w.discardImages(ctx, *replaced)
	}
	return nil
}

func (w *Workflow) abortCapture(id string, cause error) error {
	w.logger.Info("photo capture failed", zap.String("item_id", id), zap.Error(cause))
	_ = w.update(func(s *State) error {
		if err := s.modifyItem(id, checklist.Item.AbortCapture); err != nil {
			return err
		}
		task := id
		if it, ok := s.item(id); ok {
			task = it.Task
		}
		s.Notice = fmt.Sprintf("photo for %q could not be used: %v", task, cause)
		return nil
	})
	return cause
}
