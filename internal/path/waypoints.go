package path

import "github.com/rtsnav/navsim/internal/world"

// Expand interpolates jump-point waypoints into the full cell sequence,
// start and goal included.
func Expand(waypoints []world.Cell) []world.Cell {
	if len(waypoints) == 0 {
		return nil
	}
	out := make([]world.Cell, 0, len(waypoints)*4)
	out = append(out, waypoints[0])
	for i := 1; i < len(waypoints); i++ {
		cur := waypoints[i-1]
		to := waypoints[i]
		dx, dy := sign(to.X-cur.X), sign(to.Y-cur.Y)
		for cur != to {
			cur = world.Cell{X: cur.X + dx, Y: cur.Y + dy}
			out = append(out, cur)
		}
	}
	return out
}

// Length returns the octile length of a waypoint list.
func Length(waypoints []world.Cell) float64 {
	var l float64
	for i := 1; i < len(waypoints); i++ {
		l += world.Octile(waypoints[i-1], waypoints[i])
	}
	return l
}
