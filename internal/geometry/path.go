package geometry

import (
	"fmt"
	"math"
)

// Node is one vertex of an encoded path: the control point leading into
// the anchor, the anchor itself and the control point leaving it.
type Node struct {
	Before Point
	Anchor Point
	After  Point
}

// Corner returns a node whose controls collapse onto the anchor.
func Corner(x, y float64) Node {
	p := Point{X: x, Y: y}
	return Node{Before: p, Anchor: p, After: p}
}

// SegmentKind defines the type of path segment
type SegmentKind int

const (
	// MoveTo starts a new subpath
	MoveTo SegmentKind = iota
	// LineTo draws a line to a point
	LineTo
	// CurveTo draws a cubic Bézier curve
	CurveTo
	// Close closes the current subpath
	Close
)

func (k SegmentKind) String() string {
	switch k {
	case MoveTo:
		return "M"
	case LineTo:
		return "L"
	case CurveTo:
		return "C"
	case Close:
		return "Z"
	}
	return fmt.Sprintf("SegmentKind(%d)", int(k))
}

// Segment represents a single segment of a path
type Segment struct {
	Kind SegmentKind

	// MoveTo and LineTo: the end point.
	// CurveTo: control point 1, control point 2, end point.
	// Close: none.
	Points []Point `json:",omitempty"`
}

// Path is an assembled outline ready for a sink.
type Path struct {
	Segments []Segment
	Closed   bool
}

// anchorEps is the tolerance for treating two encoded coordinates as the
// same point. Source coordinates are 16.16 fixed point.
const anchorEps = 1.0 / 65536

// AssemblePath converts vertex triples into path segments.
//
// A straight segment joins two nodes when the trailing control of the
// first and the leading control of the second both sit on their anchors;
// otherwise a cubic segment uses those two controls. When the first and
// last anchors coincide the path is closed: a final straight segment is
// replaced by the close segment, a final curve is kept and followed by it.
// Fewer than two nodes give a zero-length line at the only anchor, or at
// fallback when there are no nodes at all.
func AssemblePath(nodes []Node, fallback Point) Path {
	switch len(nodes) {
	case 0:
		return degeneratePath(fallback)
	case 1:
		return degeneratePath(nodes[0].Anchor)
	}

	closed := nodes[0].Anchor.Near(nodes[len(nodes)-1].Anchor, anchorEps)
	p := Path{
		Segments: make([]Segment, 0, len(nodes)+1),
		Closed:   closed,
	}
	p.Segments = append(p.Segments, Segment{Kind: MoveTo, Points: []Point{nodes[0].Anchor}})

	for i := 0; i+1 < len(nodes); i++ {
		from, to := nodes[i], nodes[i+1]
		last := i+2 == len(nodes)
		straight := from.After.Near(from.Anchor, anchorEps) && to.Before.Near(to.Anchor, anchorEps)
		if straight {
			if last && closed {
				break
			}
			p.Segments = append(p.Segments, Segment{Kind: LineTo, Points: []Point{to.Anchor}})
			continue
		}
		p.Segments = append(p.Segments, Segment{
			Kind:   CurveTo,
			Points: []Point{from.After, to.Before, to.Anchor},
		})
	}

	if closed {
		p.Segments = append(p.Segments, Segment{Kind: Close})
	}
	return p
}

func degeneratePath(at Point) Path {
	return Path{Segments: []Segment{
		{Kind: MoveTo, Points: []Point{at}},
		{Kind: LineTo, Points: []Point{at}},
	}}
}

// Transform returns a copy of p with every point mapped through m.
func (p Path) Transform(m Matrix) Path {
	out := Path{Segments: make([]Segment, len(p.Segments)), Closed: p.Closed}
	for i, s := range p.Segments {
		pts := make([]Point, len(s.Points))
		for j, pt := range s.Points {
			pts[j] = m.Transform(pt)
		}
		out.Segments[i] = Segment{Kind: s.Kind, Points: pts}
	}
	return out
}

// Bounds returns the bounding box of every point including curve controls.
func (p Path) Bounds() Rect {
	first := true
	var r Rect
	for _, s := range p.Segments {
		for _, pt := range s.Points {
			if first {
				r = Rect{Min: pt, Max: pt}
				first = false
				continue
			}
			r.Min.X = math.Min(r.Min.X, pt.X)
			r.Min.Y = math.Min(r.Min.Y, pt.Y)
			r.Max.X = math.Max(r.Max.X, pt.X)
			r.Max.Y = math.Max(r.Max.Y, pt.Y)
		}
	}
	return r
}

// Line returns the two-point path from a to b.
func Line(a, b Point) Path {
	return Path{Segments: []Segment{
		{Kind: MoveTo, Points: []Point{a}},
		{Kind: LineTo, Points: []Point{b}},
	}}
}
