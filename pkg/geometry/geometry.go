// Package geometry holds the pixel-space math used by the measurement tool:
// distances, display-to-native coordinate mapping and length calibration.
package geometry

import (
	"errors"
	"math"
)

// ErrDegenerateViewport is returned when a viewport or image has no area.
var ErrDegenerateViewport = errors.New("viewport has zero or negative size")

// Point is a position in the native pixel space of one image.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Line is a segment between two points.
type Line struct {
	P1 Point `json:"p1"`
	P2 Point `json:"p2"`
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether both sides are strictly positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Viewport describes where an image is drawn on screen: its top-left
// offset and its displayed size, both in display coordinates.
type Viewport struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Size returns the displayed size of the viewport.
func (v Viewport) Size() Size {
	return Size{Width: v.Width, Height: v.Height}
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Length returns the Euclidean length of the line.
func (l Line) Length() float64 {
	return Distance(l.P1, l.P2)
}

// IsZero reports whether both endpoints coincide.
func (l Line) IsZero() bool {
	return l.P1 == l.P2
}

// DisplayToNative maps a display-space point into the native pixel space of
// an image of the given size. Each axis is scaled independently by
// native/displayed, so non-uniform stretching is handled too.
func DisplayToNative(p Point, view Viewport, native Size) (Point, error) {
	if !view.Size().Valid() || !native.Valid() {
		return Point{}, ErrDegenerateViewport
	}
	sx := native.Width / view.Width
	sy := native.Height / view.Height
	return Point{
		X: (p.X - view.Left) * sx,
		Y: (p.Y - view.Top) * sy,
	}, nil
}

// DisplayLineToNative maps both endpoints of a display-space line.
func DisplayLineToNative(l Line, view Viewport, native Size) (Line, error) {
	p1, err := DisplayToNative(l.P1, view, native)
	if err != nil {
		return Line{}, err
	}
	p2, err := DisplayToNative(l.P2, view, native)
	if err != nil {
		return Line{}, err
	}
	return Line{P1: p1, P2: p2}, nil
}

// ScaleFactor returns pixels per real-world unit for a reference segment of
// refPixels pixels that is known to measure refLength units.
func ScaleFactor(refPixels, refLength float64) float64 {
	return refPixels / refLength
}

// ToRealLength converts a pixel length into real units using scale
// (pixels per unit).
func ToRealLength(pixels, scale float64) float64 {
	return pixels / scale
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
