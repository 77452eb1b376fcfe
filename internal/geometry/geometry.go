// Package geometry provides the bounding-box derived measurements used by
// the tracking and crossing-detection pipeline.
package geometry

import "math"

// Point represents a 2D pixel coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point) Distance(other Point) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Rect is an axis-aligned bounding box in pixel coordinates, stored as the
// two corners (X1,Y1)-(X2,Y2) the way detectors report them.
type Rect struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// NewRect creates a Rect from corner coordinates.
func NewRect(x1, y1, x2, y2 float64) Rect {
	return Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Center returns the geometric center of the box.
func (r Rect) Center() Point {
	return Point{X: (r.X1 + r.X2) / 2, Y: (r.Y1 + r.Y2) / 2}
}

// FootPoint returns the midpoint of the bottom edge. For a person detection
// this approximates where they stand, which is what line crossing compares
// against.
func (r Rect) FootPoint() Point {
	return Point{X: (r.X1 + r.X2) / 2, Y: r.Y2}
}

// Height returns the pixel height of the box.
func (r Rect) Height() float64 {
	return r.Y2 - r.Y1
}

// Width returns the pixel width of the box.
func (r Rect) Width() float64 {
	return r.X2 - r.X1
}

// Valid reports whether the box has positive area. Detections that fail
// this are excluded at the pipeline boundary.
func (r Rect) Valid() bool {
	return r.X2 > r.X1 && r.Y2 > r.Y1
}
