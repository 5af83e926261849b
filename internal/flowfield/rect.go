package flowfield

import "github.com/rtsnav/navsim/internal/world"

// Rect is a window of grid cells: [X, X+W) × [Y, Y+H).
type Rect struct {
	X, Y, W, H int
}

// Sector returns the size×size window centred on c. For even sizes the extra
// column and row fall on the low side.
func Sector(c world.Cell, size int) Rect {
	return Rect{X: c.X - size/2, Y: c.Y - size/2, W: size, H: size}
}

// Clip intersects r with a width×height grid.
func (r Rect) Clip(width, height int) Rect {
	x0, y0 := max(r.X, 0), max(r.Y, 0)
	x1, y1 := min(r.X+r.W, width), min(r.Y+r.H, height)
	if x1 <= x0 || y1 <= y0 {
		return Rect{X: x0, Y: y0}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func (r Rect) Contains(c world.Cell) bool {
	return c.X >= r.X && c.Y >= r.Y && c.X < r.X+r.W && c.Y < r.Y+r.H
}

// OnEdge reports whether c is inside r and touches its border.
func (r Rect) OnEdge(c world.Cell) bool {
	if !r.Contains(c) {
		return false
	}
	return c.X == r.X || c.Y == r.Y || c.X == r.X+r.W-1 || c.Y == r.Y+r.H-1
}

func (r Rect) Area() int { return r.W * r.H }

func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }
