package world

import (
	"fmt"

	"github.com/rtsnav/navsim/internal/core/ecs"
)

// Static tile flags. The dynamic layer and occupancy are tracked separately so
// that rebuilding them never touches terrain.
const (
	TileOpen    byte = 0x00
	TileBlocked byte = 0x01 // impassable terrain (water, cliffs)
	TileDecor   byte = 0x02 // static blocking decor baked into the map
	tileBlockMask     = TileBlocked | TileDecor
)

// Grid is the walkability view of one map: a static terrain layer, a dynamic
// layer of blocking entities (buildings, decor) rebuilt every tick, and an
// occupancy layer holding the agent standing on each cell.
// Accessed only from the tick goroutine, no locks.
type Grid struct {
	width     int
	height    int
	static    []byte         // flat array [y*width + x]
	dynamic   []ecs.EntityID // blocking entity per cell, 0 = clear
	occupancy []ecs.EntityID // agent per cell, 0 = free
}

// NewGrid creates an all-open grid. Dimensions never change afterwards.
func NewGrid(width, height int) *Grid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	n := width * height
	return &Grid{
		width:     width,
		height:    height,
		static:    make([]byte, n),
		dynamic:   make([]ecs.EntityID, n),
		occupancy: make([]ecs.EntityID, n),
	}
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

func (g *Grid) index(x, y int) int { return y*g.width + x }

// Bound checks if coordinates are inside the grid extents.
func (g *Grid) Bound(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.height
}

// PathAvailable reports whether both the static and dynamic layers are clear.
// Out-of-range coordinates are never available.
func (g *Grid) PathAvailable(x, y int) bool {
	if !g.Bound(x, y) {
		return false
	}
	i := g.index(x, y)
	return g.static[i]&tileBlockMask == 0 && g.dynamic[i] == 0
}

// PositionAvailable additionally requires that no agent occupies the cell.
func (g *Grid) PositionAvailable(x, y int) bool {
	return g.PathAvailable(x, y) && g.occupancy[g.index(x, y)] == 0
}

// Static returns the raw terrain flags at (x,y), or TileBlocked out of range.
func (g *Grid) Static(x, y int) byte {
	if !g.Bound(x, y) {
		return TileBlocked
	}
	return g.static[g.index(x, y)]
}

// SetStatic overwrites the terrain flags of one cell.
func (g *Grid) SetStatic(x, y int, flags byte) {
	if !g.Bound(x, y) {
		return
	}
	g.static[g.index(x, y)] = flags
}

// LoadStatic replaces the whole terrain layer. tiles is row-major [y*width+x]
// and must match the grid dimensions.
func (g *Grid) LoadStatic(tiles []byte) error {
	if len(tiles) != len(g.static) {
		return fmt.Errorf("static layer size %d does not match grid %dx%d", len(tiles), g.width, g.height)
	}
	copy(g.static, tiles)
	return nil
}

// ClearDynamic drops every blocking entity mark.
func (g *Grid) ClearDynamic() {
	for i := range g.dynamic {
		g.dynamic[i] = 0
	}
}

// SetDynamic marks (x,y) as blocked by entity id.
func (g *Grid) SetDynamic(x, y int, id ecs.EntityID) {
	if !g.Bound(x, y) {
		return
	}
	g.dynamic[g.index(x, y)] = id
}

// Blocker returns the blocking entity at (x,y), or 0.
func (g *Grid) Blocker(x, y int) ecs.EntityID {
	if !g.Bound(x, y) {
		return 0
	}
	return g.dynamic[g.index(x, y)]
}

// Occupant returns the agent standing on (x,y), or 0.
func (g *Grid) Occupant(x, y int) ecs.EntityID {
	if !g.Bound(x, y) {
		return 0
	}
	return g.occupancy[g.index(x, y)]
}

// SetOccupant marks (x,y) as occupied by id, replacing any previous mark.
func (g *Grid) SetOccupant(x, y int, id ecs.EntityID) {
	if !g.Bound(x, y) {
		return
	}
	g.occupancy[g.index(x, y)] = id
}

// ClearOccupant removes id's mark from (x,y). A mark owned by another agent
// is left alone.
func (g *Grid) ClearOccupant(x, y int, id ecs.EntityID) {
	if !g.Bound(x, y) {
		return
	}
	i := g.index(x, y)
	if g.occupancy[i] == id {
		g.occupancy[i] = 0
	}
}

// MoveOccupant vacates from and occupies to.
func (g *Grid) MoveOccupant(from, to Cell, id ecs.EntityID) {
	if from == to {
		g.SetOccupant(to.X, to.Y, id)
		return
	}
	g.ClearOccupant(from.X, from.Y, id)
	g.SetOccupant(to.X, to.Y, id)
}

// FirstAvailable scans square rings of growing radius around src, from
// minDist up to (excluding) maxDist, and returns the first position-available
// cell. Rings are scanned column by column, west to east, north to south
// inside each column. It returns src and false when nothing is free.
func (g *Grid) FirstAvailable(src Cell, minDist, maxDist int) (Cell, bool) {
	if minDist <= 0 {
		if g.PositionAvailable(src.X, src.Y) {
			return src, true
		}
		minDist = 1
	}
	for dist := minDist; dist < maxDist; dist++ {
		for w := -dist; w <= dist; w++ {
			for h := -dist; h <= dist; h++ {
				if w != -dist && w != dist && h != -dist && h != dist {
					continue
				}
				x, y := src.X+w, src.Y+h
				if g.PositionAvailable(x, y) {
					return Cell{X: x, Y: y}, true
				}
			}
		}
	}
	return src, false
}
