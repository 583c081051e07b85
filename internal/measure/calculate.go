// Package measure implements the interactive two-line calibration tool: a
// reference line over an object of known length and a target line over the
// feature to measure, both drawn in display space and mapped into the
// image's native pixel space.
package measure

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/dofliu/InduSpect/pkg/geometry"
	"github.com/dofliu/InduSpect/pkg/models"
)

const (
	// DefaultReferenceLength is the long side of an ISO/IEC 7810 ID-1 card.
	DefaultReferenceLength = 85.6
	DefaultUnit            = "mm"
	// ObjectName labels dimensions produced by manual measurement.
	ObjectName = "Manual crack measurement"
)

var (
	ErrZeroReference          = errors.New("reference line has zero length")
	ErrInvalidReferenceLength = errors.New("reference length must be a finite positive number")
)

// Result is a finished measurement ready to merge into an item's result.
type Result struct {
	Dimension models.Dimension        `json:"dimension"`
	Lines     models.MeasurementLines `json:"measurementLines"`
}

// Value returns the measured length.
func (r Result) Value() float64 {
	if r.Dimension.Value == nil {
		return 0
	}
	return *r.Dimension.Value
}

// ParseLength parses an operator-entered reference length.
func ParseLength(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !validLength(v) {
		return 0, ErrInvalidReferenceLength
	}
	return v, nil
}

func validLength(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Calculate converts the target line into real units using the reference
// line and its known length. Both lines are in native pixel space. The
// value is rounded to two decimals.
func Calculate(ref, target geometry.Line, refLength float64, unit string) (Result, error) {
	refPixels := ref.Length()
	if refPixels == 0 {
		return Result{}, ErrZeroReference
	}
	if !validLength(refLength) {
		return Result{}, ErrInvalidReferenceLength
	}

	scale := geometry.ScaleFactor(refPixels, refLength)
	value := geometry.Round2(geometry.ToRealLength(target.Length(), scale))

	return Result{
		Dimension: models.Dimension{
			ObjectName: models.Ptr(ObjectName),
			Value:      models.Ptr(value),
			Unit:       models.Ptr(unit),
		},
		Lines: models.MeasurementLines{Ref: &ref, Target: &target},
	}, nil
}
