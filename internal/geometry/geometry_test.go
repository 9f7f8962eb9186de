package geometry

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestAssemblePathOpenLine(t *testing.T) {
	nodes := []Node{Corner(0, 0), Corner(10, 0)}

	p := AssemblePath(nodes, Point{})
	if p.Closed {
		t.Fatalf("Closed = true, want false")
	}
	if len(p.Segments) != 2 {
		t.Fatalf("Got %d segments, want 2: %+v", len(p.Segments), p.Segments)
	}
	if p.Segments[0].Kind != MoveTo || p.Segments[0].Points[0] != (Point{0, 0}) {
		t.Errorf("Segment 0 = %+v, want M(0,0)", p.Segments[0])
	}
	if p.Segments[1].Kind != LineTo || p.Segments[1].Points[0] != (Point{10, 0}) {
		t.Errorf("Segment 1 = %+v, want L(10,0)", p.Segments[1])
	}
}

func TestAssemblePathClosed(t *testing.T) {
	tests := []struct {
		name  string
		nodes []Node
		kinds []SegmentKind
	}{
		{
			name:  "two nodes on one anchor",
			nodes: []Node{Corner(0, 0), Corner(0, 0)},
			kinds: []SegmentKind{MoveTo, Close},
		},
		{
			name:  "triangle",
			nodes: []Node{Corner(0, 0), Corner(10, 0), Corner(5, 8), Corner(0, 0)},
			kinds: []SegmentKind{MoveTo, LineTo, LineTo, Close},
		},
		{
			name: "curve into start",
			nodes: []Node{
				Corner(0, 0),
				Corner(10, 0),
				{Before: Point{10, 10}, Anchor: Point{0, 0}, After: Point{0, 0}},
			},
			kinds: []SegmentKind{MoveTo, LineTo, CurveTo, Close},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := AssemblePath(tt.nodes, Point{})
			if !p.Closed {
				t.Errorf("Closed = false, want true")
			}
			if len(p.Segments) != len(tt.kinds) {
				t.Fatalf("Got %d segments, want %d: %+v", len(p.Segments), len(tt.kinds), p.Segments)
			}
			for i, k := range tt.kinds {
				if p.Segments[i].Kind != k {
					t.Errorf("Segment %d kind = %v, want %v", i, p.Segments[i].Kind, k)
				}
			}
		})
	}
}

func TestAssemblePathCurve(t *testing.T) {
	nodes := []Node{
		{Before: Point{0, 0}, Anchor: Point{0, 0}, After: Point{3, -5}},
		{Before: Point{7, -5}, Anchor: Point{10, 0}, After: Point{10, 0}},
	}
	p := AssemblePath(nodes, Point{})
	if len(p.Segments) != 2 || p.Segments[1].Kind != CurveTo {
		t.Fatalf("Segments = %+v, want M then C", p.Segments)
	}
	want := []Point{{3, -5}, {7, -5}, {10, 0}}
	for i, pt := range p.Segments[1].Points {
		if pt != want[i] {
			t.Errorf("Curve point %d = %v, want %v", i, pt, want[i])
		}
	}
}

func TestAssemblePathDegenerate(t *testing.T) {
	p := AssemblePath([]Node{Corner(4, 5)}, Point{})
	if len(p.Segments) != 2 || p.Segments[1].Points[0] != (Point{4, 5}) {
		t.Errorf("single node path = %+v, want zero-length line at (4,5)", p.Segments)
	}

	p = AssemblePath(nil, Point{X: 1, Y: 2})
	if len(p.Segments) != 2 || p.Segments[0].Points[0] != (Point{1, 2}) {
		t.Errorf("empty path = %+v, want zero-length line at fallback", p.Segments)
	}
}

func TestDecomposeQuarterTurn(t *testing.T) {
	m := Matrix{0, 1, -1, 0, 0, 0}

	deg, residual := Decompose(m, Point{})
	if math.Abs(deg-90) > 1e-9 {
		t.Errorf("angle = %v, want 90", deg)
	}
	if !residual.Near(Identity(), 1e-9) {
		t.Errorf("residual = %v, want identity", residual)
	}
}

func TestDecomposeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		angle := (rng.Float64()*2 - 1) * math.Pi * 0.99
		pivot := Point{X: rng.Float64() * 100, Y: rng.Float64() * 100}
		m := Scale(1+rng.Float64(), 1+rng.Float64()).
			Multiply(Translate(rng.Float64()*50, rng.Float64()*50)).
			Multiply(RotateAbout(angle, pivot))

		deg, residual := Decompose(m, pivot)
		if math.Abs(Radians(deg)-angle) > 1e-9 {
			t.Fatalf("case %d: angle = %v, want %v", i, Radians(deg), angle)
		}
		back := residual.Multiply(RotateAbout(Radians(deg), pivot))
		if !back.Near(m, 1e-9) {
			t.Fatalf("case %d: residual does not recompose: %v vs %v", i, back, m)
		}
		if math.Abs(residual[1]) > 1e-9 || math.Abs(residual[2]) > 1e-9 {
			t.Fatalf("case %d: residual %v still rotates", i, residual)
		}
	}
}

func TestMatrixCompose(t *testing.T) {
	inner := Translate(10, 0)
	outer := Scale(2, 2)

	world := inner.Multiply(outer)
	got := world.Transform(Point{1, 1})
	if got != (Point{22, 2}) {
		t.Errorf("Transform = %v, want (22,2)", got)
	}
}

func TestRectTransform(t *testing.T) {
	r := NewRect(10, 0, 0, 20)
	if r.Min != (Point{0, 0}) || r.Max != (Point{10, 20}) {
		t.Fatalf("NewRect not canonical: %+v", r)
	}
	got := r.Transform(Rotate(math.Pi / 2))
	if math.Abs(got.Width()-20) > 1e-9 || math.Abs(got.Height()-10) > 1e-9 {
		t.Errorf("rotated box %gx%g, want 20x10", got.Width(), got.Height())
	}
}

type fixedSlice struct {
	words []int32
	err   error
}

func (f *fixedSlice) I32() int32 {
	if len(f.words) == 0 {
		f.err = errors.New("eof")
		return 0
	}
	w := f.words[0]
	f.words = f.words[1:]
	return w
}

func (f *fixedSlice) Err() error { return f.err }

func TestReadNodes(t *testing.T) {
	fx := func(v float64) int32 { return ToFixed(v) }
	words := []int32{
		fx(0), fx(0), fx(0), fx(0), fx(0), fx(0),
		fx(10), fx(0), fx(10), fx(0), fx(10), fx(0),
		EndMarker,
	}

	nodes, err := ReadNodes(&fixedSlice{words: words}, 0)
	if err != nil {
		t.Fatalf("ReadNodes failed: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("Got %d nodes, want 2", len(nodes))
	}
	if nodes[1].Anchor != (Point{10, 0}) {
		t.Errorf("Node 1 anchor = %v, want (10,0)", nodes[1].Anchor)
	}

	_, err = ReadNodes(&fixedSlice{words: words[:8]}, 2)
	if err == nil {
		t.Errorf("ReadNodes on short input succeeded, want error")
	}
}
