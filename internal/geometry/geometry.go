// Package geometry reconstructs vector primitives from the compact vertex
// encodings used by drawing zones and composes the affine transforms of
// grouped objects.
//
// Coordinates are in points with y growing downward, the convention of the
// source applications.
package geometry

import "math"

// Point represents a 2D point
type Point struct {
	X, Y float64
}

// Add returns p translated by q
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p - q
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Near reports whether two points coincide within eps on both axes.
func (p Point) Near(q Point, eps float64) bool {
	return math.Abs(p.X-q.X) <= eps && math.Abs(p.Y-q.Y) <= eps
}

// Rect is an axis-aligned box given by two corners. Min is the top-left
// corner once the rectangle is canonical.
type Rect struct {
	Min, Max Point
}

// NewRect builds a canonical rectangle from any two corners.
func NewRect(x0, y0, x1, y1 float64) Rect {
	return Rect{
		Min: Point{X: math.Min(x0, x1), Y: math.Min(y0, y1)},
		Max: Point{X: math.Max(x0, x1), Y: math.Max(y0, y1)},
	}
}

// Width returns the horizontal extent
func (r Rect) Width() float64 {
	return r.Max.X - r.Min.X
}

// Height returns the vertical extent
func (r Rect) Height() float64 {
	return r.Max.Y - r.Min.Y
}

// Center returns the center point
func (r Rect) Center() Point {
	return Point{X: (r.Min.X + r.Max.X) / 2, Y: (r.Min.Y + r.Max.Y) / 2}
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Canon returns r with Min and Max ordered.
func (r Rect) Canon() Rect {
	return NewRect(r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
}

// Union returns the smallest rectangle covering r and o. A zero rectangle
// is treated as absent so unions can start from Rect{}.
func (r Rect) Union(o Rect) Rect {
	if r == (Rect{}) {
		return o
	}
	if o == (Rect{}) {
		return r
	}
	return Rect{
		Min: Point{X: math.Min(r.Min.X, o.Min.X), Y: math.Min(r.Min.Y, o.Min.Y)},
		Max: Point{X: math.Max(r.Max.X, o.Max.X), Y: math.Max(r.Max.Y, o.Max.Y)},
	}
}

// Translate moves the rectangle by d
func (r Rect) Translate(d Point) Rect {
	return Rect{Min: r.Min.Add(d), Max: r.Max.Add(d)}
}

// Corners returns the four corners clockwise from Min.
func (r Rect) Corners() [4]Point {
	return [4]Point{
		r.Min,
		{X: r.Max.X, Y: r.Min.Y},
		r.Max,
		{X: r.Min.X, Y: r.Max.Y},
	}
}

// Transform returns the bounding box of r's corners mapped through m.
func (r Rect) Transform(m Matrix) Rect {
	var out Rect
	for i, c := range r.Corners() {
		p := m.Transform(c)
		if i == 0 {
			out = Rect{Min: p, Max: p}
			continue
		}
		out.Min.X = math.Min(out.Min.X, p.X)
		out.Min.Y = math.Min(out.Min.Y, p.Y)
		out.Max.X = math.Max(out.Max.X, p.X)
		out.Max.Y = math.Max(out.Max.Y, p.Y)
	}
	return out
}
