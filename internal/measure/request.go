package measure

import (
	"fmt"

	"github.com/dofliu/InduSpect/pkg/geometry"
)

// Request describes a complete measurement as drawn on screen. It is what
// the CLI and HTTP surfaces submit.
type Request struct {
	Viewport        geometry.Viewport `json:"viewport"`
	Reference       geometry.Line     `json:"reference"`
	Target          geometry.Line     `json:"target"`
	ReferenceLength string            `json:"reference_length"`
	Unit            string            `json:"unit"`
}

// Run replays a request through a Tool as press/drag/release gestures and
// returns the calculated result.
func Run(native geometry.Size, req Request) (Result, error) {
	if !native.Valid() {
		return Result{}, fmt.Errorf("image has no native dimensions: %w", geometry.ErrDegenerateViewport)
	}
	if !req.Viewport.Size().Valid() {
		return Result{}, geometry.ErrDegenerateViewport
	}

	t := NewTool(native)
	t.SetViewport(req.Viewport)

	if err := drag(t, req.Reference); err != nil {
		return Result{}, err
	}
	if t.Stage() != StageEnterReference {
		return Result{}, ErrWrongStage
	}

	length, unit := t.Reference()
	if req.ReferenceLength != "" {
		length = req.ReferenceLength
	}
	if req.Unit != "" {
		unit = req.Unit
	}
	t.SetReference(length, unit)
	if err := t.ConfirmReference(); err != nil {
		return Result{}, err
	}

	if err := drag(t, req.Target); err != nil {
		return Result{}, err
	}
	return t.Calculate()
}

// drag draws l as one press, move and release. A zero-length reference is
// rejected from the preview before it is committed.
func drag(t *Tool, l geometry.Line) error {
	t.PointerDown(l.P1)
	t.PointerMove(l.P2)
	if p, ok := t.Preview(); ok && t.Stage() == StageDrawReference && p.Length() == 0 {
		t.Reset()
		return ErrZeroReference
	}
	t.PointerUp(l.P2)
	return nil
}
