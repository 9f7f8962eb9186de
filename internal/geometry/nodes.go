package geometry

import "fmt"

// EndMarker is the raw x coordinate terminating a marker-delimited vertex
// list.
const EndMarker = int32(-0x80000000)

// maxNodes bounds marker-terminated lists so a missing marker cannot make
// the reader walk the rest of the zone as vertices.
const maxNodes = 1 << 14

// FixedSource yields signed 16.16 fixed point words. *binary.Reader
// satisfies it.
type FixedSource interface {
	I32() int32
	Err() error
}

// FromFixed converts a signed 16.16 word to float64.
func FromFixed(v int32) float64 {
	return float64(v) / 65536
}

// ToFixed converts to signed 16.16, rounding to the nearest step.
func ToFixed(v float64) int32 {
	if v < 0 {
		return int32(v*65536 - 0.5)
	}
	return int32(v*65536 + 0.5)
}

// ReadNodes decodes vertex triples. With count > 0 exactly count nodes are
// read; with count == 0 nodes are read until a node whose leading x equals
// EndMarker.
func ReadNodes(src FixedSource, count int) ([]Node, error) {
	limit := count
	if count == 0 {
		limit = maxNodes
	}
	nodes := make([]Node, 0, min(limit, 64))
	for i := 0; i < limit; i++ {
		bx := src.I32()
		if err := src.Err(); err != nil {
			return nodes, fmt.Errorf("read node %d: %w", i, err)
		}
		if count == 0 && bx == EndMarker {
			return nodes, nil
		}
		var raw [5]int32
		for j := range raw {
			raw[j] = src.I32()
		}
		if err := src.Err(); err != nil {
			return nodes, fmt.Errorf("read node %d: %w", i, err)
		}
		nodes = append(nodes, Node{
			Before: Point{X: FromFixed(bx), Y: FromFixed(raw[0])},
			Anchor: Point{X: FromFixed(raw[1]), Y: FromFixed(raw[2])},
			After:  Point{X: FromFixed(raw[3]), Y: FromFixed(raw[4])},
		})
	}
	if count == 0 {
		return nodes, fmt.Errorf("vertex list not terminated after %d nodes", maxNodes)
	}
	return nodes, nil
}
