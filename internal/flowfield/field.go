// Package flowfield builds breadth-first cost and direction fields over a
// bounded window of the grid.
package flowfield

import (
	"math"

	"github.com/rtsnav/navsim/internal/world"
)

// Unreached marks cells the flood fill never visited.
const Unreached = math.MaxUint16

// Walkable is the map view the builder floods over.
type Walkable interface {
	PathAvailable(x, y int) bool
}

// Neighborhood selects the propagation pattern of the flood fill.
type Neighborhood uint8

const (
	// Octile, the default, floods over all eight neighbours, diagonals only
	// when both orthogonal neighbours are walkable. Following Dir from any
	// reached cell arrives at the target in exactly Cost steps.
	Octile Neighborhood = iota
	// Cardinal floods over the four orthogonal neighbours only; the direction
	// pass still considers diagonals.
	Cardinal
)

func (n Neighborhood) String() string {
	switch n {
	case Octile:
		return "octile"
	case Cardinal:
		return "cardinal"
	}
	return "unknown"
}

// ParseNeighborhood maps a config name to a Neighborhood.
func ParseNeighborhood(s string) (Neighborhood, bool) {
	switch s {
	case "", "octile":
		return Octile, true
	case "cardinal":
		return Cardinal, true
	}
	return Octile, false
}

// Field holds the cost and direction of every cell in Rect, row-major.
// Buffers are reused across builds.
type Field struct {
	Rect   Rect
	Target world.Cell
	Cost   []uint16
	Dir    []world.Direction

	neighborhood Neighborhood
	queue        []world.Cell
}

func New(n Neighborhood) *Field {
	return &Field{neighborhood: n}
}

func (f *Field) Neighborhood() Neighborhood { return f.neighborhood }

func (f *Field) index(c world.Cell) int {
	return (c.Y-f.Rect.Y)*f.Rect.W + (c.X - f.Rect.X)
}

// CostAt returns the step count from c to the target, Unreached when c is
// outside the window or was never reached.
func (f *Field) CostAt(c world.Cell) uint16 {
	if !f.Rect.Contains(c) {
		return Unreached
	}
	return f.Cost[f.index(c)]
}

// DirAt returns the heading to follow from c, DirTarget on the target and
// DirNone for blocked, unreached or out-of-window cells.
func (f *Field) DirAt(c world.Cell) world.Direction {
	if !f.Rect.Contains(c) {
		return world.DirNone
	}
	return f.Dir[f.index(c)]
}

func (f *Field) Reached(c world.Cell) bool { return f.CostAt(c) != Unreached }

// Build floods rect from target and derives directions. It reports false,
// leaving every cell unreached, when the target lies outside rect.
func (f *Field) Build(grid Walkable, rect Rect, target world.Cell) bool {
	f.Rect = rect
	f.Target = target
	n := rect.Area()
	if n < 0 {
		n = 0
	}
	if cap(f.Cost) < n {
		f.Cost = make([]uint16, n)
		f.Dir = make([]world.Direction, n)
	}
	f.Cost = f.Cost[:n]
	f.Dir = f.Dir[:n]
	for i := range f.Cost {
		f.Cost[i] = Unreached
		f.Dir[i] = world.DirNone
	}
	if !rect.Contains(target) {
		return false
	}

	f.flood(grid)
	f.directions(grid)
	return true
}

func (f *Field) flood(grid Walkable) {
	f.queue = append(f.queue[:0], f.Target)
	f.Cost[f.index(f.Target)] = 0
	step := world.Direction(1)
	if f.neighborhood == Cardinal {
		step = 2
	}
	for head := 0; head < len(f.queue); head++ {
		cur := f.queue[head]
		next := f.Cost[f.index(cur)] + 1
		for d := world.DirN; d < world.DirCount; d += step {
			nb := cur.Add(d)
			if !f.Rect.Contains(nb) || !legal(grid, cur, d) {
				continue
			}
			i := f.index(nb)
			if f.Cost[i] != Unreached {
				continue
			}
			f.Cost[i] = next
			f.queue = append(f.queue, nb)
		}
	}
}

func (f *Field) directions(grid Walkable) {
	for y := f.Rect.Y; y < f.Rect.Y+f.Rect.H; y++ {
		for x := f.Rect.X; x < f.Rect.X+f.Rect.W; x++ {
			c := world.Cell{X: x, Y: y}
			i := f.index(c)
			own := f.Cost[i]
			if own == 0 {
				f.Dir[i] = world.DirTarget
				continue
			}
			if own == Unreached || !grid.PathAvailable(x, y) {
				continue
			}
			best, bestCost := world.DirNone, own
			for d := world.DirN; d < world.DirCount; d++ {
				nb := c.Add(d)
				if !f.Rect.Contains(nb) || !legal(grid, c, d) {
					continue
				}
				if nc := f.Cost[f.index(nb)]; nc < bestCost {
					best, bestCost = d, nc
				}
			}
			f.Dir[i] = best
		}
	}
}

// legal reports whether one step from c in direction d is allowed: the
// destination is walkable and a diagonal does not cut a blocked corner.
func legal(grid Walkable, c world.Cell, d world.Direction) bool {
	dx, dy := d.Delta()
	if !grid.PathAvailable(c.X+dx, c.Y+dy) {
		return false
	}
	if d.Diagonal() {
		return grid.PathAvailable(c.X+dx, c.Y) && grid.PathAvailable(c.X, c.Y+dy)
	}
	return true
}
