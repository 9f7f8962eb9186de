package codec

import (
	"fmt"
	"sort"

	"github.com/dyuri/zoneconv/internal/model"
)

// LeafFlag marks a branch descriptor as a leaf; the low byte is the symbol.
// Without it the descriptor is the zero-based index of a child node.
const LeafFlag = 0x8000

// maxTreeNodes bounds a declared node table; a byte alphabet never needs
// more than 255 internal nodes.
const maxTreeNodes = 255

// Tree is a prefix-code tree stored as node records. Node 0 is the root;
// bit 0 follows branch 0.
type Tree struct {
	nodes [][2]uint16
}

// BuildTree validates node records and builds a tree. Every child index
// must be in range and referenced at most once, and the root may not be
// anyone's child, so the records always form a tree.
func BuildTree(records [][2]uint16) (*Tree, error) {
	n := len(records)
	if n == 0 || n > maxTreeNodes {
		return nil, fmt.Errorf("tree of %d nodes: %w", n, model.ErrMalformed)
	}
	assigned := make([]bool, n)
	assigned[0] = true // root has no parent
	for i, rec := range records {
		for side, b := range rec {
			if b&LeafFlag != 0 {
				continue
			}
			idx := int(b)
			if idx >= n {
				return nil, fmt.Errorf("node %d branch %d points to node %d of %d: %w", i, side, idx, n, model.ErrMalformed)
			}
			if assigned[idx] {
				return nil, fmt.Errorf("node %d branch %d reuses node %d: %w", i, side, idx, model.ErrMalformed)
			}
			assigned[idx] = true
		}
	}
	nodes := make([][2]uint16, n)
	copy(nodes, records)
	return &Tree{nodes: nodes}, nil
}

// Records returns the node table in storage order
func (t *Tree) Records() [][2]uint16 {
	out := make([][2]uint16, len(t.nodes))
	copy(out, t.nodes)
	return out
}

// Decode walks from the root to a leaf, one bit per edge.
func (t *Tree) Decode(br *BitReader) (byte, error) {
	n := 0
	for {
		bit, err := br.ReadBit()
		if err != nil {
			return 0, err
		}
		b := t.nodes[n][bit]
		if b&LeafFlag != 0 {
			return byte(b), nil
		}
		n = int(b)
	}
}

// DecodeN decodes count symbols
func (t *Tree) DecodeN(br *BitReader, count int) ([]byte, error) {
	out := make([]byte, count)
	for i := range out {
		sym, err := t.Decode(br)
		if err != nil {
			return out[:i], fmt.Errorf("symbol %d of %d: %w", i, count, err)
		}
		out[i] = sym
	}
	return out, nil
}

// Codes returns the bit path of every symbol reachable in the tree.
func (t *Tree) Codes() map[byte][]int {
	codes := make(map[byte][]int)
	var walk func(n int, prefix []int)
	walk = func(n int, prefix []int) {
		for bit, b := range t.nodes[n] {
			path := append(append([]int(nil), prefix...), bit)
			if b&LeafFlag != 0 {
				if _, ok := codes[byte(b)]; !ok {
					codes[byte(b)] = path
				}
				continue
			}
			walk(int(b), path)
		}
	}
	walk(0, nil)
	return codes
}

// Encode packs data with the tree's codes
func (t *Tree) Encode(data []byte) ([]byte, error) {
	codes := t.Codes()
	var bw BitWriter
	for i, sym := range data {
		code, ok := codes[sym]
		if !ok {
			return nil, fmt.Errorf("byte %d: symbol 0x%02x not in tree: %w", i, sym, model.ErrMalformed)
		}
		for _, bit := range code {
			bw.WriteBit(bit)
		}
	}
	return bw.Bytes(), nil
}

type buildNode struct {
	weight      int
	seq         int
	sym         byte
	left, right *buildNode
}

// NewTree builds a Huffman tree for the symbol frequencies of data.
func NewTree(data []byte) *Tree {
	var freq [256]int
	for _, b := range data {
		freq[b]++
	}
	var pool []*buildNode
	for s, f := range freq {
		if f > 0 {
			pool = append(pool, &buildNode{weight: f, seq: len(pool), sym: byte(s)})
		}
	}
	switch len(pool) {
	case 0:
		return &Tree{nodes: [][2]uint16{{LeafFlag, LeafFlag}}}
	case 1:
		leaf := LeafFlag | uint16(pool[0].sym)
		return &Tree{nodes: [][2]uint16{{leaf, leaf}}}
	}

	seq := len(pool)
	for len(pool) > 1 {
		sort.Slice(pool, func(i, j int) bool {
			if pool[i].weight != pool[j].weight {
				return pool[i].weight < pool[j].weight
			}
			return pool[i].seq < pool[j].seq
		})
		merged := &buildNode{
			weight: pool[0].weight + pool[1].weight,
			seq:    seq,
			left:   pool[0],
			right:  pool[1],
		}
		seq++
		pool = append([]*buildNode{merged}, pool[2:]...)
	}

	// Number internal nodes breadth-first so the root lands at 0
	var nodes [][2]uint16
	queue := []*buildNode{pool[0]}
	index := map[*buildNode]int{pool[0]: 0}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		var rec [2]uint16
		for side, c := range [2]*buildNode{n.left, n.right} {
			if c.left == nil {
				rec[side] = LeafFlag | uint16(c.sym)
				continue
			}
			index[c] = len(index)
			rec[side] = uint16(index[c])
			queue = append(queue, c)
		}
		nodes = append(nodes, rec)
	}
	return &Tree{nodes: nodes}
}
