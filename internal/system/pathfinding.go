package system

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/rtsnav/navsim/internal/component"
	"github.com/rtsnav/navsim/internal/core/ecs"
	"github.com/rtsnav/navsim/internal/core/event"
	coresys "github.com/rtsnav/navsim/internal/core/system"
	"github.com/rtsnav/navsim/internal/navigation"
	"github.com/rtsnav/navsim/internal/world"
)

// PathfindingSystem refreshes the path controller of every agent whose cell
// changed, whose order changed, or whose refresh interval elapsed, and
// escalates repeated search failures. Phase 3 (Pathfinding).
//
// Escalation:
//   - every failed global search is retried on the next tick
//   - after NoPathRelocate consecutive failures the destination moves to the
//     nearest position-available cell
//   - after NoPathCancel failures without any success the order is dropped
//     and the agent idles in place
type PathfindingSystem struct {
	deps *Deps
}

func NewPathfindingSystem(deps *Deps) *PathfindingSystem {
	return &PathfindingSystem{deps: deps}
}

func (s *PathfindingSystem) Phase() coresys.Phase { return coresys.PhasePathfinding }

func (s *PathfindingSystem) Update(_ time.Duration) {
	interval := s.deps.Config.Navigation.RefreshInterval
	ecs.Each2(s.deps.Units, s.deps.Transforms, func(id ecs.EntityID, u *component.Unit, tr *component.Transform) {
		s.separateSettled(id, u, tr)

		u.SinceRefresh++
		due := u.PathUpdate || (u.Commanded && interval > 0 && u.SinceRefresh >= interval)
		if !due {
			return
		}
		u.PathUpdate = false
		u.SinceRefresh = 0
		s.refresh(id, u, tr)
	})
}

// separateSettled sends an idle agent to the nearest free cell when another
// settled agent holds the occupancy mark of the cell it stands on. An agent
// that was only nudged next to its own destination walks back instead.
func (s *PathfindingSystem) separateSettled(id ecs.EntityID, u *component.Unit, tr *component.Transform) {
	if u.Commanded || u.Dest != tr.Cell && s.canReturn(id, u, tr.Cell) {
		return
	}
	owner := s.deps.Grid.Occupant(tr.Cell.X, tr.Cell.Y)
	if owner == 0 || owner == id || !s.settledAt(owner, tr.Cell) {
		return
	}
	u.Dest = tr.Cell
	u.Ordered = tr.Cell
	if s.deps.relocate(id, u, "occupied", 0) {
		u.Commanded = true
		u.NoPath = 0
		u.ReallyNoPath = 0
	}
}

// canReturn reports whether an idle agent pushed off its destination can
// step back onto it: the destination is next to cur, walkable, and no other
// agent has settled there. Agents merely passing through do not count.
func (s *PathfindingSystem) canReturn(id ecs.EntityID, u *component.Unit, cur world.Cell) bool {
	g := s.deps.Grid
	if world.Chebyshev(cur, u.Dest) > 1 || !g.PathAvailable(u.Dest.X, u.Dest.Y) {
		return false
	}
	owner := g.Occupant(u.Dest.X, u.Dest.Y)
	return owner == 0 || owner == id || !s.settledAt(owner, u.Dest)
}

// settledAt reports whether agent id stands on its own destination c.
func (s *PathfindingSystem) settledAt(id ecs.EntityID, c world.Cell) bool {
	ou, ok := s.deps.Units.Get(id)
	if !ok {
		return false
	}
	otr, ok := s.deps.Transforms.Get(id)
	return ok && otr.Cell == c && ou.Dest == c
}

func (s *PathfindingSystem) refresh(id ecs.EntityID, u *component.Unit, tr *component.Transform) {
	g := s.deps.Grid
	m := s.deps.Metrics
	cur := tr.Cell

	// mark pos immediately
	if g.Occupant(cur.X, cur.Y) == 0 {
		g.SetOccupant(cur.X, cur.Y, id)
	}
	if !u.Commanded && !s.canReturn(id, u, cur) {
		u.Dest = cur
	}

	if u.Commanded && cur != u.Dest {
		if owner := g.Occupant(u.Dest.X, u.Dest.Y); owner != 0 && owner != id && s.settledAt(owner, u.Dest) {
			s.deps.relocate(id, u, "occupied", 0)
		}
	}

	searches := u.Nav.Searches()
	found := u.Nav.Start(g, s.deps.Searcher, cur, u.Dest)
	m.PathSearches.Add(float64(u.Nav.Searches() - searches))
	if !found {
		if !u.Commanded {
			// settled agents never escalate
			u.Dest = cur
			u.Direction = world.DirNone
			u.NextCell = cur
			return
		}
		s.noPath(id, u, tr)
		return
	}

	builds := u.Nav.FieldBuilds()
	dir, err := u.Nav.Next(g, cur)
	m.FieldBuilds.Add(float64(u.Nav.FieldBuilds() - builds))

	switch {
	case errors.Is(err, navigation.ErrNoGlobalPath):
		// drifted out of the global path's reach: search again next tick
		u.Direction = world.DirNone
		u.NextCell = cur
		u.PathUpdate = true
	case errors.Is(err, navigation.ErrLocalStepUnavailable):
		u.Direction = world.DirNone
		u.NextCell = cur
		u.PathUpdate = true
		m.LocalMisses.Inc()
		s.deps.Log.Debug("local step unavailable", zap.Stringer("entity", id),
			zap.Int("x", cur.X), zap.Int("y", cur.Y))
	case err != nil:
		s.deps.Log.Error("path controller", zap.Stringer("entity", id), zap.Error(err))
	case !dir.Valid():
		u.Direction = world.DirNone
		u.NextCell = cur
		u.NoPath = 0
		u.ReallyNoPath = 0
		if u.Commanded {
			u.Commanded = false
			event.Emit(s.deps.Bus, event.Arrived{Entity: id, Cell: cur})
			m.Arrivals.Inc()
		}
	default:
		u.Direction = dir
		u.NextCell = cur.Add(dir)
		u.NoPath = 0
		u.ReallyNoPath = 0
	}
}

func (s *PathfindingSystem) noPath(id ecs.EntityID, u *component.Unit, tr *component.Transform) {
	cfg := s.deps.Config.Navigation
	cur := tr.Cell

	u.Direction = world.DirNone
	u.NextCell = cur
	u.NoPath++
	u.ReallyNoPath++
	u.PathUpdate = true
	s.deps.Metrics.PathFailures.Inc()
	event.Emit(s.deps.Bus, event.PathFailed{Entity: id, From: cur, Destination: u.Dest, Attempts: u.ReallyNoPath})
	s.deps.Log.Debug("no path found",
		zap.Stringer("entity", id),
		zap.Int("from_x", cur.X), zap.Int("from_y", cur.Y),
		zap.Int("dest_x", u.Dest.X), zap.Int("dest_y", u.Dest.Y),
		zap.Int("attempts", u.ReallyNoPath),
	)

	if u.ReallyNoPath >= cfg.NoPathCancel {
		event.Emit(s.deps.Bus, event.DestinationCancelled{Entity: id, Destination: u.Dest})
		s.deps.Metrics.Cancellations.Inc()
		s.deps.Log.Info("destination cancelled",
			zap.Stringer("entity", id),
			zap.Int("dest_x", u.Dest.X), zap.Int("dest_y", u.Dest.Y),
		)
		u.Dest = cur
		u.Commanded = false
		u.NoPath = 0
		u.ReallyNoPath = 0
		u.PathUpdate = false
		u.Nav.Reset()
		return
	}

	if u.NoPath >= cfg.NoPathRelocate {
		u.NoPath = 0
		// each relocation widens the ring around the ordered cell
		s.deps.relocate(id, u, "no_path", world.Chebyshev(u.Ordered, u.Dest)+1)
	}
}
