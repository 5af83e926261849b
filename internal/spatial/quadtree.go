// Package spatial indexes agent bounds for neighbour queries. The tree is an
// arena of index-addressed nodes with a depth fixed at construction; it is
// cleared and refilled every tick instead of being updated in place.
package spatial

import (
	"math"

	"github.com/jakecoffman/cp"

	"github.com/rtsnav/navsim/internal/core/ecs"
)

// Object is one indexed item.
type Object struct {
	ID     ecs.EntityID
	Bounds cp.BB
}

type node struct {
	bounds   cp.BB
	children [4]int32 // -1 at leaf depth
	objects  []int32  // indices into Quadtree.objects
}

type Quadtree struct {
	nodes   []node
	objects []Object
	depth   int
	stack   []int32
}

// New builds the node arena for bounds. Subdivision stops once a quadrant
// would be smaller than minCellSize on its longer side.
func New(bounds cp.BB, minCellSize float64) *Quadtree {
	size := math.Max(bounds.R-bounds.L, bounds.T-bounds.B)
	depth := 0
	if minCellSize > 0 {
		for size/2 >= minCellSize {
			size /= 2
			depth++
		}
	}
	q := &Quadtree{depth: depth}
	q.build(bounds, depth)
	return q
}

func (q *Quadtree) build(bounds cp.BB, depth int) int32 {
	idx := int32(len(q.nodes))
	q.nodes = append(q.nodes, node{bounds: bounds, children: [4]int32{-1, -1, -1, -1}})
	if depth == 0 {
		return idx
	}
	mx := (bounds.L + bounds.R) / 2
	my := (bounds.B + bounds.T) / 2
	quads := [4]cp.BB{
		{L: bounds.L, B: bounds.B, R: mx, T: my},
		{L: mx, B: bounds.B, R: bounds.R, T: my},
		{L: bounds.L, B: my, R: mx, T: bounds.T},
		{L: mx, B: my, R: bounds.R, T: bounds.T},
	}
	for i, b := range quads {
		child := q.build(b, depth-1)
		q.nodes[idx].children[i] = child
	}
	return idx
}

func (q *Quadtree) Depth() int     { return q.depth }
func (q *Quadtree) NodeCount() int { return len(q.nodes) }
func (q *Quadtree) Len() int       { return len(q.objects) }
func (q *Quadtree) Bounds() cp.BB  { return q.nodes[0].bounds }

// Clear drops every object but keeps the arena and list capacity.
func (q *Quadtree) Clear() {
	for i := range q.nodes {
		q.nodes[i].objects = q.nodes[i].objects[:0]
	}
	q.objects = q.objects[:0]
}

// Insert stores o in the deepest node whose bounds fully contain it. Objects
// that straddle a split line stay at the parent; objects outside the tree
// bounds are kept at the root.
func (q *Quadtree) Insert(o Object) {
	oi := int32(len(q.objects))
	q.objects = append(q.objects, o)

	n := int32(0)
	if q.nodes[0].bounds.Contains(o.Bounds) {
	descend:
		for {
			for _, c := range q.nodes[n].children {
				if c < 0 {
					break descend
				}
				if q.nodes[c].bounds.Contains(o.Bounds) {
					n = c
					continue descend
				}
			}
			break
		}
	}
	q.nodes[n].objects = append(q.nodes[n].objects, oi)
}

// Query appends to dst every object whose bounds intersect rect. Bounds that
// merely touch count as intersecting.
func (q *Quadtree) Query(rect cp.BB, dst []Object) []Object {
	q.stack = append(q.stack[:0], 0)
	for len(q.stack) > 0 {
		n := q.stack[len(q.stack)-1]
		q.stack = q.stack[:len(q.stack)-1]
		nd := &q.nodes[n]
		// the root also holds out-of-bounds objects, so it is always scanned
		if n != 0 && !nd.bounds.Intersects(rect) {
			continue
		}
		for _, oi := range nd.objects {
			if q.objects[oi].Bounds.Intersects(rect) {
				dst = append(dst, q.objects[oi])
			}
		}
		for i := len(nd.children) - 1; i >= 0; i-- {
			if c := nd.children[i]; c >= 0 {
				q.stack = append(q.stack, c)
			}
		}
	}
	return dst
}

// QueryRadius queries the square enclosing the circle at center.
func (q *Quadtree) QueryRadius(center cp.Vector, radius float64, dst []Object) []Object {
	return q.Query(cp.NewBBForCircle(center, radius), dst)
}
