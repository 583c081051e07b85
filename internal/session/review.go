package session

import (
	"fmt"

	"github.com/dofliu/InduSpect/internal/checklist"
	"github.com/dofliu/InduSpect/internal/measure"
	"github.com/dofliu/InduSpect/pkg/models"
)

// ReadingEdit changes one reading by index. Index equal to the number of
// readings appends a new one.
type ReadingEdit struct {
	Index int      `json:"index"`
	Label *string  `json:"label,omitempty"`
	Value *float64 `json:"value,omitempty"`
	Unit  *string  `json:"unit,omitempty"`
}

// DimensionEdit changes sub-fields of the dimensions.
type DimensionEdit struct {
	ObjectName *string  `json:"object_name,omitempty"`
	Value      *float64 `json:"value,omitempty"`
	Unit       *string  `json:"unit,omitempty"`
}

// ResultEdit is a manual correction of an analysis result. Nil fields are
// left as they are.
type ResultEdit struct {
	EquipmentType       *string        `json:"equipment_type,omitempty"`
	ConditionAssessment *string        `json:"condition_assessment,omitempty"`
	Summary             *string        `json:"summary,omitempty"`
	IsAnomaly           *bool          `json:"is_anomaly,omitempty"`
	Readings            []ReadingEdit  `json:"readings,omitempty"`
	Dimensions          *DimensionEdit `json:"dimensions,omitempty"`
}

func (e ResultEdit) validate(r models.AnalysisResult) error {
	n := len(r.Readings)
	for _, re := range e.Readings {
		if re.Index < 0 || re.Index > n {
			return fmt.Errorf("%w: reading index %d out of range", ErrInvalidEdit, re.Index)
		}
		if re.Index == n {
			n++
		}
	}
	return nil
}

func (e ResultEdit) apply(r *models.AnalysisResult) {
	if e.EquipmentType != nil {
		r.EquipmentType = *e.EquipmentType
	}
	if e.ConditionAssessment != nil {
		r.ConditionAssessment = *e.ConditionAssessment
	}
	if e.Summary != nil {
		r.Summary = *e.Summary
	}
	if e.IsAnomaly != nil {
		r.IsAnomaly = *e.IsAnomaly
	}
	for _, re := range e.Readings {
		if re.Index == len(r.Readings) {
			r.Readings = append(r.Readings, models.Reading{})
		}
		rd := &r.Readings[re.Index]
		if re.Label != nil {
			rd.Label = *re.Label
		}
		if re.Value != nil {
			rd.Value = models.Ptr(*re.Value)
		}
		if re.Unit != nil {
			rd.Unit = models.Ptr(*re.Unit)
		}
	}
	if d := e.Dimensions; d != nil {
		if r.Dimensions == nil {
			r.Dimensions = &models.Dimension{}
		}
		if d.ObjectName != nil {
			r.Dimensions.ObjectName = models.Ptr(*d.ObjectName)
		}
		if d.Value != nil {
			r.Dimensions.Value = models.Ptr(*d.Value)
		}
		if d.Unit != nil {
			r.Dimensions.Unit = models.Ptr(*d.Unit)
		}
	}
}

// EditResult applies a manual correction to a success item. The item's
// status does not change.
func (w *Workflow) EditResult(id string, edit ResultEdit) error {
	return w.update(func(s *State) error {
		return s.modifyItem(id, func(it checklist.Item) (checklist.Item, error) {
			r, ok := it.Result()
			if !ok || it.Status() != checklist.StatusSuccess {
				return it, fmt.Errorf("%w: only analysed items can be edited, %s is %s", checklist.ErrInvalidTransition, id, it.Status())
			}
			if err := edit.validate(r); err != nil {
				return it, err
			}
			return it.Edit(edit.apply)
		})
	})
}

// ApplyMeasurement runs a manual calibration measurement against the
// item's photo and merges the resulting dimensions and lines into its
// result. A rejected measurement changes nothing.
func (w *Workflow) ApplyMeasurement(id string, req measure.Request) (measure.Result, error) {
	var res measure.Result
	err := w.update(func(s *State) error {
		return s.modifyItem(id, func(it checklist.Item) (checklist.Item, error) {
			if it.Dimensions == nil {
				return it, fmt.Errorf("%w: %s", checklist.ErrNoImage, id)
			}
			if it.Status() != checklist.StatusSuccess {
				return it, fmt.Errorf("%w: only analysed items can be measured, %s is %s", checklist.ErrInvalidTransition, id, it.Status())
			}
			r, err := measure.Run(*it.Dimensions, req)
			if err != nil {
				return it, err
			}
			res = r
			return it.ApplyMeasurement(r.Dimension, r.Lines)
		})
	})
	return res, err
}

// Confirm finalises a success item and moves it from the checklist to the
// confirmed records. Confirming an item that is already confirmed does
// nothing.
func (w *Workflow) Confirm(id string) error {
	return w.update(func(s *State) error {
		if s.IsConfirmed(id) {
			return nil
		}
		return s.confirm(id)
	})
}

func (s *State) confirm(id string) error {
	it, ok := checklist.Find(s.Checklist, id)
	if !ok {
		return fmt.Errorf("%w: %s", checklist.ErrNotFound, id)
	}
	done, err := it.Confirm()
	if err != nil {
		return err
	}
	s.Checklist = checklist.Remove(s.Checklist, id)
	s.ConfirmedRecords = append(s.ConfirmedRecords, done)
	return nil
}

// ConfirmAll confirms every success item in checklist order and returns
// how many were confirmed.
func (w *Workflow) ConfirmAll() (int, error) {
	n := 0
	err := w.update(func(s *State) error {
		for _, it := range checklist.Filter(s.Checklist, checklist.StatusSuccess) {
			if err := s.confirm(it.ID); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
