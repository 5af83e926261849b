// Package path implements the global grid search used to seed local
// flow-field planning: jump point search over an 8-connected grid where a
// diagonal step is only legal when both orthogonal neighbours are walkable.
package path

import (
	"container/heap"

	"github.com/rtsnav/navsim/internal/world"
)

// Walkable is the part of the map a search needs. The grid must not change
// while a search runs.
type Walkable interface {
	PathAvailable(x, y int) bool
}

type node struct {
	cell    world.Cell
	parent  int32 // index into Searcher.nodes, -1 for the start node
	g, f, h float64
	heapIdx int // position in the open list, -1 when not queued
	opened  bool
	closed  bool
}

// Searcher runs jump point searches and keeps its node storage between calls.
// A Searcher is not safe for concurrent use.
type Searcher struct {
	nodes  []node
	lookup map[world.Cell]int32
	open   openList

	// Expanded counts nodes popped from the open list by the last search.
	Expanded int
}

func NewSearcher() *Searcher {
	return &Searcher{
		nodes:  make([]node, 0, 256),
		lookup: make(map[world.Cell]int32, 256),
	}
}

// Find is a convenience wrapper that runs a one-off search.
func Find(grid Walkable, start, goal world.Cell) (bool, []world.Cell) {
	return NewSearcher().Find(grid, start, goal)
}

// Find searches for a shortest path from start to goal. On success it returns
// the jump points from start to goal inclusive; consecutive waypoints are
// always joined by a straight or a 45° diagonal run. On failure it returns
// false and nil. An unreachable goal is an ordinary outcome.
// The start cell itself does not need to be walkable.
func (s *Searcher) Find(grid Walkable, start, goal world.Cell) (bool, []world.Cell) {
	s.reset()
	if !grid.PathAvailable(goal.X, goal.Y) {
		return false, nil
	}
	if start == goal {
		return true, []world.Cell{start}
	}

	si := s.nodeAt(start)
	sn := &s.nodes[si]
	sn.h = world.Octile(start, goal)
	sn.f = sn.h
	sn.opened = true
	heap.Push(&s.open, openEntry{s: s, idx: si})

	var nb [8]world.Cell
	for s.open.Len() > 0 {
		ci := heap.Pop(&s.open).(openEntry).idx
		s.nodes[ci].closed = true
		s.Expanded++
		cur := s.nodes[ci].cell
		if cur == goal {
			return true, s.trace(ci)
		}

		for _, n := range s.neighbors(grid, ci, nb[:0]) {
			jp, ok := jump(grid, n.X, n.Y, n.X-cur.X, n.Y-cur.Y, goal)
			if !ok {
				continue
			}
			ji := s.nodeAt(jp)
			jn := &s.nodes[ji]
			if jn.closed {
				continue
			}
			ng := s.nodes[ci].g + world.Octile(cur, jp)
			if jn.opened && ng >= jn.g {
				continue
			}
			jn.g = ng
			jn.h = world.Octile(jp, goal)
			jn.f = ng + jn.h
			jn.parent = ci
			if !jn.opened {
				jn.opened = true
				heap.Push(&s.open, openEntry{s: s, idx: ji})
			} else {
				heap.Fix(&s.open, jn.heapIdx)
			}
		}
	}
	return false, nil
}

func (s *Searcher) reset() {
	s.nodes = s.nodes[:0]
	clear(s.lookup)
	s.open = s.open[:0]
	s.Expanded = 0
}

func (s *Searcher) nodeAt(c world.Cell) int32 {
	if i, ok := s.lookup[c]; ok {
		return i
	}
	i := int32(len(s.nodes))
	s.nodes = append(s.nodes, node{cell: c, parent: -1, heapIdx: -1})
	s.lookup[c] = i
	return i
}

func (s *Searcher) trace(i int32) []world.Cell {
	n := 0
	for j := i; j >= 0; j = s.nodes[j].parent {
		n++
	}
	out := make([]world.Cell, n)
	for j := i; j >= 0; j = s.nodes[j].parent {
		n--
		out[n] = s.nodes[j].cell
	}
	return out
}

// neighbors returns the pruned successor candidates of node i.
func (s *Searcher) neighbors(grid Walkable, i int32, out []world.Cell) []world.Cell {
	nd := &s.nodes[i]
	x, y := nd.cell.X, nd.cell.Y
	walk := grid.PathAvailable

	if nd.parent < 0 {
		for d := world.Direction(0); d < world.DirCount; d++ {
			dx, dy := d.Delta()
			if !walk(x+dx, y+dy) {
				continue
			}
			if d.Diagonal() && !(walk(x+dx, y) && walk(x, y+dy)) {
				continue
			}
			out = append(out, world.Cell{X: x + dx, Y: y + dy})
		}
		return out
	}

	p := s.nodes[nd.parent].cell
	dx, dy := sign(x-p.X), sign(y-p.Y)
	switch {
	case dx != 0 && dy != 0:
		vert := walk(x, y+dy)
		horiz := walk(x+dx, y)
		if vert {
			out = append(out, world.Cell{X: x, Y: y + dy})
		}
		if horiz {
			out = append(out, world.Cell{X: x + dx, Y: y})
		}
		if vert && horiz {
			out = append(out, world.Cell{X: x + dx, Y: y + dy})
		}
	case dx != 0:
		next := walk(x+dx, y)
		down := walk(x, y+1)
		up := walk(x, y-1)
		if next {
			out = append(out, world.Cell{X: x + dx, Y: y})
			if down {
				out = append(out, world.Cell{X: x + dx, Y: y + 1})
			}
			if up {
				out = append(out, world.Cell{X: x + dx, Y: y - 1})
			}
		}
		if down {
			out = append(out, world.Cell{X: x, Y: y + 1})
		}
		if up {
			out = append(out, world.Cell{X: x, Y: y - 1})
		}
	default:
		next := walk(x, y+dy)
		right := walk(x+1, y)
		left := walk(x-1, y)
		if next {
			out = append(out, world.Cell{X: x, Y: y + dy})
			if right {
				out = append(out, world.Cell{X: x + 1, Y: y + dy})
			}
			if left {
				out = append(out, world.Cell{X: x - 1, Y: y + dy})
			}
		}
		if right {
			out = append(out, world.Cell{X: x + 1, Y: y})
		}
		if left {
			out = append(out, world.Cell{X: x - 1, Y: y})
		}
	}
	return out
}

// jump walks from (x,y) in direction (dx,dy) until it hits the goal, a cell
// with a forced neighbour, or an obstacle.
func jump(grid Walkable, x, y, dx, dy int, goal world.Cell) (world.Cell, bool) {
	walk := grid.PathAvailable
	for {
		if !walk(x, y) {
			return world.Cell{}, false
		}
		if x == goal.X && y == goal.Y {
			return goal, true
		}
		switch {
		case dx != 0 && dy != 0:
			// a diagonal cell is a jump point when a straight scan from it finds one
			if _, ok := jump(grid, x+dx, y, dx, 0, goal); ok {
				return world.Cell{X: x, Y: y}, true
			}
			if _, ok := jump(grid, x, y+dy, 0, dy, goal); ok {
				return world.Cell{X: x, Y: y}, true
			}
		case dx != 0:
			if (walk(x, y-1) && !walk(x-dx, y-1)) || (walk(x, y+1) && !walk(x-dx, y+1)) {
				return world.Cell{X: x, Y: y}, true
			}
		default:
			if (walk(x-1, y) && !walk(x-1, y-dy)) || (walk(x+1, y) && !walk(x+1, y-dy)) {
				return world.Cell{X: x, Y: y}, true
			}
		}
		// the next step needs both orthogonals open (a no-op check for straight runs)
		if !walk(x+dx, y) || !walk(x, y+dy) {
			return world.Cell{}, false
		}
		x += dx
		y += dy
	}
}

type openEntry struct {
	s   *Searcher
	idx int32
}

// openList orders nodes by f, then by h so ties favour nodes nearer the goal.
type openList []openEntry

func (h openList) Len() int { return len(h) }
func (h openList) Less(i, j int) bool {
	a, b := &h[i].s.nodes[h[i].idx], &h[j].s.nodes[h[j].idx]
	if a.f != b.f {
		return a.f < b.f
	}
	return a.h < b.h
}
func (h openList) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].s.nodes[h[i].idx].heapIdx = i
	h[j].s.nodes[h[j].idx].heapIdx = j
}
func (h *openList) Push(x any) {
	e := x.(openEntry)
	e.s.nodes[e.idx].heapIdx = len(*h)
	*h = append(*h, e)
}
func (h *openList) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	e.s.nodes[e.idx].heapIdx = -1
	return e
}

func sign(v int) int {
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return 0
}
