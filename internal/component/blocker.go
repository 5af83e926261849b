package component

import "github.com/rtsnav/navsim/internal/world"

// Blocker is a building or blocking decor covering W×H cells from Origin.
// Blockers are stamped into the dynamic layer every tick.
type Blocker struct {
	Origin world.Cell
	W, H   int
}

// Covers reports whether c lies under the blocker.
func (b *Blocker) Covers(c world.Cell) bool {
	return c.X >= b.Origin.X && c.Y >= b.Origin.Y && c.X < b.Origin.X+b.W && c.Y < b.Origin.Y+b.H
}
