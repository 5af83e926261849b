package world

import "math"

// Cell is a discrete grid coordinate.
type Cell struct {
	X, Y int
}

func (c Cell) Add(d Direction) Cell {
	if !d.Valid() {
		return c
	}
	return Cell{X: c.X + headingDX[d], Y: c.Y + headingDY[d]}
}

// Chebyshev returns the king-move distance between two cells.
func Chebyshev(a, b Cell) int {
	dx := absInt(a.X - b.X)
	dy := absInt(a.Y - b.Y)
	if dy > dx {
		return dy
	}
	return dx
}

// Octile returns the 8-connected path length between two cells on an open
// grid: diagonal steps cost sqrt(2), straight steps cost 1.
func Octile(a, b Cell) float64 {
	dx := absInt(a.X - b.X)
	dy := absInt(a.Y - b.Y)
	lo, hi := dx, dy
	if lo > hi {
		lo, hi = hi, lo
	}
	return float64(hi-lo) + float64(lo)*math.Sqrt2
}

// Euclidean returns the straight-line distance between two cells.
func Euclidean(a, b Cell) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

// Direction is an 8-way compass heading: 0=N, 1=NE, 2=E, 3=SE, 4=S, 5=SW, 6=W, 7=NW.
// Grid Y grows southward.
type Direction int8

const (
	DirNone   Direction = -1 // blocked, unreachable or no movement intent
	DirTarget Direction = -2 // standing on the target cell
	DirN      Direction = 0
	DirNE     Direction = 1
	DirE      Direction = 2
	DirSE     Direction = 3
	DirS      Direction = 4
	DirSW     Direction = 5
	DirW      Direction = 6
	DirNW     Direction = 7
	DirCount            = 8
)

// heading direction deltas: 0=N, 1=NE, 2=E, 3=SE, 4=S, 5=SW, 6=W, 7=NW
var headingDX = [DirCount]int{0, 1, 1, 1, 0, -1, -1, -1}
var headingDY = [DirCount]int{-1, -1, 0, 1, 1, 1, 0, -1}

// Valid reports whether d is one of the eight compass headings.
func (d Direction) Valid() bool { return d >= 0 && d < DirCount }

// Delta returns the unit cell offset for d, or (0,0) for sentinels.
func (d Direction) Delta() (int, int) {
	if !d.Valid() {
		return 0, 0
	}
	return headingDX[d], headingDY[d]
}

// Diagonal reports whether d moves along both axes.
func (d Direction) Diagonal() bool { return d.Valid() && d%2 == 1 }

func (d Direction) String() string {
	switch d {
	case DirNone:
		return "none"
	case DirTarget:
		return "target"
	}
	if !d.Valid() {
		return "invalid"
	}
	return [DirCount]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}[d]
}

// HeadingTo returns the compass heading whose delta matches the sign of the
// offset from→to, or DirNone when the cells are equal.
func HeadingTo(from, to Cell) Direction {
	return HeadingFor(sign(to.X-from.X), sign(to.Y-from.Y))
}

// HeadingFor maps a unit offset (each component in -1..1) to its heading.
func HeadingFor(dx, dy int) Direction {
	for i := Direction(0); i < DirCount; i++ {
		if headingDX[i] == dx && headingDY[i] == dy {
			return i
		}
	}
	return DirNone
}

// HeadingForVector maps a continuous vector to the closest compass heading.
// Zero vectors map to DirNone.
func HeadingForVector(x, y float64) Direction {
	if x == 0 && y == 0 {
		return DirNone
	}
	// atan2 with Y pointing south; N is -Y.
	angle := math.Atan2(x, -y) // 0 = north, clockwise positive
	sector := int(math.Floor(angle/(math.Pi/4) + 0.5))
	sector = ((sector % DirCount) + DirCount) % DirCount
	return Direction(sector)
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

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
