package measure

import (
	"errors"
	"strconv"

	"github.com/dofliu/InduSpect/pkg/geometry"
	"github.com/dofliu/InduSpect/pkg/models"
)

// Stage is where the operator is in the measurement flow.
type Stage string

const (
	StageDrawReference  Stage = "draw_reference"
	StageEnterReference Stage = "enter_reference"
	StageDrawTarget     Stage = "draw_target"
	StageDone           Stage = "done"
)

var ErrWrongStage = errors.New("operation not valid in the current stage")

// Tool is the interactive measurement state machine for one image. Pointer
// events arrive in display coordinates and are mapped into native pixels
// using the most recent viewport.
type Tool struct {
	native geometry.Size
	view   geometry.Viewport

	stage  Stage
	ref    *geometry.Line
	target *geometry.Line

	start  *geometry.Point
	cursor *geometry.Point

	refLength string
	unit      string
}

// NewTool creates a tool for an image with the given native size.
func NewTool(native geometry.Size) *Tool {
	return &Tool{
		native:    native,
		view:      geometry.Viewport{Width: native.Width, Height: native.Height},
		stage:     StageDrawReference,
		refLength: strconv.FormatFloat(DefaultReferenceLength, 'f', -1, 64),
		unit:      DefaultUnit,
	}
}

// SetViewport records where the image is currently drawn on screen.
func (t *Tool) SetViewport(v geometry.Viewport) {
	t.view = v
}

// Stage returns the current stage.
func (t *Tool) Stage() Stage { return t.stage }

// Reference returns the entered reference length text and unit.
func (t *Tool) Reference() (length, unit string) { return t.refLength, t.unit }

// Lines returns the lines drawn so far.
func (t *Tool) Lines() models.MeasurementLines {
	return models.MeasurementLines{Ref: t.ref, Target: t.target}
}

// Preview returns the line being dragged, if any.
func (t *Tool) Preview() (geometry.Line, bool) {
	if t.start == nil || t.cursor == nil {
		return geometry.Line{}, false
	}
	return geometry.Line{P1: *t.start, P2: *t.cursor}, true
}

func (t *Tool) drawing() bool {
	return t.stage == StageDrawReference || t.stage == StageDrawTarget
}

func (t *Tool) toNative(p geometry.Point) (geometry.Point, bool) {
	np, err := geometry.DisplayToNative(p, t.view, t.native)
	return np, err == nil
}

// PointerDown starts a line. It is ignored outside the drawing stages.
func (t *Tool) PointerDown(p geometry.Point) {
	if !t.drawing() {
		return
	}
	np, ok := t.toNative(p)
	if !ok {
		return
	}
	t.start = &np
	t.cursor = nil
}

// PointerMove updates the line being dragged.
func (t *Tool) PointerMove(p geometry.Point) {
	if t.start == nil {
		return
	}
	if np, ok := t.toNative(p); ok {
		t.cursor = &np
	}
}

// PointerUp completes the line being dragged and advances the stage.
func (t *Tool) PointerUp(p geometry.Point) {
	if t.start == nil {
		return
	}
	end, ok := t.toNative(p)
	if !ok {
		t.start, t.cursor = nil, nil
		return
	}
	line := geometry.Line{P1: *t.start, P2: end}
	switch t.stage {
	case StageDrawReference:
		t.ref = &line
		t.stage = StageEnterReference
	case StageDrawTarget:
		t.target = &line
		t.stage = StageDone
	}
	t.start, t.cursor = nil, nil
}

// SetReference updates the reference length text and unit.
func (t *Tool) SetReference(length, unit string) {
	t.refLength = length
	t.unit = unit
}

// ConfirmReference moves on to drawing the target line.
func (t *Tool) ConfirmReference() error {
	if t.stage != StageEnterReference {
		return ErrWrongStage
	}
	t.stage = StageDrawTarget
	return nil
}

// Calculate finishes the measurement. On any error the tool stays in its
// current stage so the operator can correct the input.
func (t *Tool) Calculate() (Result, error) {
	lines := t.Lines()
	if t.stage != StageDone || lines.Ref == nil || lines.Target == nil {
		return Result{}, ErrWrongStage
	}
	length, err := ParseLength(t.refLength)
	if err != nil {
		return Result{}, err
	}
	return Calculate(*lines.Ref, *lines.Target, length, t.unit)
}

// Reset discards both lines and returns to drawing the reference.
func (t *Tool) Reset() {
	t.ref, t.target = nil, nil
	t.start, t.cursor = nil, nil
	t.stage = StageDrawReference
}
