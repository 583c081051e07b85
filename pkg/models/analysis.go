package models

import "github.com/dofliu/InduSpect/pkg/geometry"

// Reading is one gauge or meter value read from a photo.
type Reading struct {
	Label string   `json:"label"`
	Value *float64 `json:"value"`
	Unit  *string  `json:"unit"`
}

// Dimension is a physical measurement, either estimated by the analysis
// service or derived by the measurement tool.
type Dimension struct {
	ObjectName *string  `json:"object_name"`
	Value      *float64 `json:"value"`
	Unit       *string  `json:"unit"`
}

// MeasurementLines holds the calibration inputs in native pixel space.
type MeasurementLines struct {
	Ref    *geometry.Line `json:"ref"`
	Target *geometry.Line `json:"target"`
}

// AnalysisResult is the structured outcome of analysing one photo.
type AnalysisResult struct {
	EquipmentType       string            `json:"equipment_type"`
	Readings            []Reading         `json:"readings"`
	ConditionAssessment string            `json:"condition_assessment"`
	IsAnomaly           bool              `json:"is_anomaly"`
	Summary             string            `json:"summary"`
	Dimensions          *Dimension        `json:"dimensions"`
	MeasurementLines    *MeasurementLines `json:"measurementLines"`
}

// Clone returns a deep copy so callers can edit without aliasing.
func (r AnalysisResult) Clone() AnalysisResult {
	out := r
	if r.Readings != nil {
		out.Readings = make([]Reading, len(r.Readings))
		for i, rd := range r.Readings {
			out.Readings[i] = Reading{Label: rd.Label, Value: clonePtr(rd.Value), Unit: clonePtr(rd.Unit)}
		}
	}
	if r.Dimensions != nil {
		d := *r.Dimensions
		d.ObjectName = clonePtr(d.ObjectName)
		d.Value = clonePtr(d.Value)
		d.Unit = clonePtr(d.Unit)
		out.Dimensions = &d
	}
	if r.MeasurementLines != nil {
		out.MeasurementLines = &MeasurementLines{
			Ref:    clonePtr(r.MeasurementLines.Ref),
			Target: clonePtr(r.MeasurementLines.Target),
		}
	}
	return out
}

// PrimaryReading returns the first reading, if any.
func (r AnalysisResult) PrimaryReading() *Reading {
	if len(r.Readings) == 0 {
		return nil
	}
	rd := r.Readings[0]
	return &rd
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
