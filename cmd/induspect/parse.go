package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dofliu/InduSpect/internal/session"
	"github.com/dofliu/InduSpect/pkg/geometry"
)

func baseName(path string) string {
	return filepath.Base(path)
}

// parseReading parses "i:label=value unit". Every part after the index is
// optional: "0:=4.2" changes only the value, "1:Outlet" only the label.
func parseReading(s string) (session.ReadingEdit, error) {
	idx, rest, ok := strings.Cut(s, ":")
	if !ok {
		return session.ReadingEdit{}, fmt.Errorf("invalid reading %q: expected i:label=value unit", s)
	}
	i, err := strconv.Atoi(strings.TrimSpace(idx))
	if err != nil || i < 0 {
		return session.ReadingEdit{}, fmt.Errorf("invalid reading index %q", idx)
	}
	edit := session.ReadingEdit{Index: i}

	label, measured, hasValue := strings.Cut(rest, "=")
	if label = strings.TrimSpace(label); label != "" {
		edit.Label = &label
	}
	if !hasValue {
		return edit, nil
	}

	fields := strings.Fields(measured)
	if len(fields) == 0 {
		return edit, nil
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return session.ReadingEdit{}, fmt.Errorf("invalid reading value %q", fields[0])
	}
	edit.Value = &v
	if len(fields) > 1 {
		unit := strings.Join(fields[1:], " ")
		edit.Unit = &unit
	}
	return edit, nil
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma-separated numbers, got %q", n, s)
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", p)
		}
		out[i] = v
	}
	return out, nil
}

// parseViewport accepts "WIDTHxHEIGHT" or "left,top,width,height".
func parseViewport(s string) (geometry.Viewport, error) {
	if w, h, ok := strings.Cut(s, "x"); ok {
		v, err := parseFloats(w+","+h, 2)
		if err != nil {
			return geometry.Viewport{}, fmt.Errorf("invalid viewport: %w", err)
		}
		return geometry.Viewport{Width: v[0], Height: v[1]}, nil
	}
	v, err := parseFloats(s, 4)
	if err != nil {
		return geometry.Viewport{}, fmt.Errorf("invalid viewport: %w", err)
	}
	return geometry.Viewport{Left: v[0], Top: v[1], Width: v[2], Height: v[3]}, nil
}

// parseLine accepts "x1,y1,x2,y2" in viewport coordinates.
func parseLine(s string) (geometry.Line, error) {
	v, err := parseFloats(s, 4)
	if err != nil {
		return geometry.Line{}, fmt.Errorf("invalid line: %w", err)
	}
	return geometry.Line{
		P1: geometry.Point{X: v[0], Y: v[1]},
		P2: geometry.Point{X: v[2], Y: v[3]},
	}, nil
}
