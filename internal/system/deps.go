package system

import (
	"math"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/rtsnav/navsim/internal/component"
	"github.com/rtsnav/navsim/internal/config"
	"github.com/rtsnav/navsim/internal/core/ecs"
	"github.com/rtsnav/navsim/internal/core/event"
	"github.com/rtsnav/navsim/internal/metrics"
	"github.com/rtsnav/navsim/internal/path"
	"github.com/rtsnav/navsim/internal/spatial"
	"github.com/rtsnav/navsim/internal/world"
)

// Deps bundles the state shared by the navigation systems. Everything in it
// is owned by the tick goroutine.
type Deps struct {
	World      *ecs.World
	Grid       *world.Grid
	Transforms *ecs.Store[component.Transform]
	Units      *ecs.Store[component.Unit]
	Blockers   *ecs.Store[component.Blocker]
	Index      *spatial.Quadtree
	Searcher   *path.Searcher
	Bus        *event.Bus
	Metrics    *metrics.Collector
	Config     *config.Config
	Log        *zap.Logger
}

// CellOf returns the grid cell under a pixel position.
func (d *Deps) CellOf(p cp.Vector) world.Cell {
	cs := d.Config.Simulation.CellSize
	return world.Cell{X: int(math.Floor(p.X / cs)), Y: int(math.Floor(p.Y / cs))}
}

// CellCenter returns the pixel centre of a cell.
func (d *Deps) CellCenter(c world.Cell) cp.Vector {
	cs := d.Config.Simulation.CellSize
	return cp.Vector{X: (float64(c.X) + 0.5) * cs, Y: (float64(c.Y) + 0.5) * cs}
}

// WorldBounds returns the pixel extent of the grid.
func (d *Deps) WorldBounds() cp.BB {
	cs := d.Config.Simulation.CellSize
	return cp.BB{L: 0, B: 0, R: float64(d.Grid.Width()) * cs, T: float64(d.Grid.Height()) * cs}
}

// relocate moves u's destination to the nearest position-available cell
// around the ordered cell, scanning rings from minDist outward. Anchoring on
// the ordered cell keeps a crowd packed around it instead of drifting.
func (d *Deps) relocate(id ecs.EntityID, u *component.Unit, reason string, minDist int) bool {
	to, ok := d.Grid.FirstAvailable(u.Ordered, minDist, d.Config.Navigation.RelocateRadius)
	if !ok || to == u.Dest {
		return false
	}
	from := u.Dest
	u.Dest = to
	u.PathUpdate = true
	event.Emit(d.Bus, event.DestinationRelocated{Entity: id, From: from, To: to})
	d.Metrics.Relocations.WithLabelValues(reason).Inc()
	d.Log.Debug("destination relocated",
		zap.Stringer("entity", id),
		zap.String("reason", reason),
		zap.Int("from_x", from.X), zap.Int("from_y", from.Y),
		zap.Int("to_x", to.X), zap.Int("to_y", to.Y),
	)
	return true
}
