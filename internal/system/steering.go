package system

import (
	"math"
	"time"

	"github.com/jakecoffman/cp"

	"github.com/rtsnav/navsim/internal/component"
	"github.com/rtsnav/navsim/internal/core/ecs"
	coresys "github.com/rtsnav/navsim/internal/core/system"
	"github.com/rtsnav/navsim/internal/spatial"
	"github.com/rtsnav/navsim/internal/steering"
	"github.com/rtsnav/navsim/internal/world"
)

// SteeringSystem blends steering forces, integrates velocity and position,
// and keeps cells and occupancy marks in step with pixel positions.
// Phase 4 (Steering).
type SteeringSystem struct {
	deps      *Deps
	found     []spatial.Object
	neighbors []steering.Object
	obstacles []steering.Object
	forces    []steering.Weighted
}

func NewSteeringSystem(deps *Deps) *SteeringSystem {
	return &SteeringSystem{
		deps:      deps,
		found:     make([]spatial.Object, 0, 64),
		neighbors: make([]steering.Object, 0, 64),
		obstacles: make([]steering.Object, 0, 9),
		forces:    make([]steering.Weighted, 0, 5),
	}
}

func (s *SteeringSystem) Phase() coresys.Phase { return coresys.PhaseSteering }

func (s *SteeringSystem) Update(_ time.Duration) {
	ecs.Each2(s.deps.Units, s.deps.Transforms, s.steer)
}

func (s *SteeringSystem) steer(id ecs.EntityID, u *component.Unit, tr *component.Transform) {
	cfg := s.deps.Config.Steering
	g := s.deps.Grid
	if u.Engaged {
		// frozen in place; keep the cell claimed
		if g.Occupant(tr.Cell.X, tr.Cell.Y) == 0 {
			g.SetOccupant(tr.Cell.X, tr.Cell.Y, id)
		}
		u.State = component.StateEngaged
		return
	}
	cell := s.deps.CellOf(tr.Pos)

	ctx := steering.Context{
		Position:  tr.Pos,
		Velocity:  u.Velocity,
		MaxSpeed:  u.MaxSpeed,
		Neighbors: s.collectNeighbors(id, tr.Pos),
		Obstacles: s.collectObstacles(cell),
	}

	forces := s.forces[:0]
	buried := !g.PathAvailable(cell.X, cell.Y)
	if buried {
		forces = append(forces, s.escape(&ctx, cell, u)...)
	}
	forces = append(forces, steering.Weighted{Force: steering.AvoidObstacles(&ctx, cfg.AvoidRadius), Weight: cfg.AvoidWeight})
	switch {
	case !u.Direction.Valid():
		// arrived or holding: brake onto the cell centre
		if !buried {
			forces = append(forces, steering.Weighted{Force: steering.Arrive(&ctx, s.deps.CellCenter(cell), cfg.ArriveRadius), Weight: 1})
		}
	case cell == u.Dest && steering.NeighborMotion(&ctx) < cfg.NeighborIdleSpeed:
		forces = append(forces, steering.Weighted{Force: steering.Arrive(&ctx, s.deps.CellCenter(cell), cfg.ArriveRadius), Weight: 1})
	default:
		forces = append(forces, steering.Weighted{Force: steering.FollowFlowField(&ctx, u.Direction), Weight: cfg.FlowWeight})
	}
	forces = append(forces, steering.Weighted{Force: steering.Separate(&ctx, cfg.SeparationRadius), Weight: cfg.SeparationWeight})

	s.forces = forces
	u.Velocity = steering.Integrate(u.Velocity, steering.Blend(forces...), u.MaxSpeed, cfg.MinVelocity)
	tr.Pos = s.clamp(tr.Pos.Add(u.Velocity))

	next := s.deps.CellOf(tr.Pos)
	if next != u.PathCell {
		// mark map pos immediately
		g.MoveOccupant(u.PathCell, next, id)
		u.PathCell = next
		u.PathUpdate = true
	} else if g.Occupant(next.X, next.Y) == 0 {
		g.SetOccupant(next.X, next.Y, id)
	}
	tr.Cell = next

	u.AvgVelocity.Add(u.Velocity)
	avg := u.AvgVelocity.Value()
	speed := avg.Length()
	if speed < u.MaxSpeed*cfg.IdleRatio {
		u.State = component.StateIdle
		return
	}
	if speed >= u.MaxSpeed*0.5 {
		tr.Heading = world.HeadingForVector(avg.X, avg.Y)
	}
	u.State = component.StateMoving
}

func (s *SteeringSystem) collectNeighbors(self ecs.EntityID, pos cp.Vector) []steering.Object {
	s.found = s.deps.Index.QueryRadius(pos, s.deps.Config.Spatial.NeighborRadius, s.found[:0])
	s.neighbors = s.neighbors[:0]
	for _, o := range s.found {
		if o.ID == self {
			continue
		}
		otr, ok := s.deps.Transforms.Get(o.ID)
		if !ok {
			continue
		}
		ou, ok := s.deps.Units.Get(o.ID)
		if !ok {
			continue
		}
		s.neighbors = append(s.neighbors, steering.Object{Position: otr.Pos, Velocity: ou.Velocity})
	}
	return s.neighbors
}

// collectObstacles returns the centres of blocked or off-map cells around c.
func (s *SteeringSystem) collectObstacles(c world.Cell) []steering.Object {
	g := s.deps.Grid
	s.obstacles = s.obstacles[:0]
	for y := c.Y - 1; y <= c.Y+1; y++ {
		for x := c.X - 1; x <= c.X+1; x++ {
			if x == c.X && y == c.Y {
				continue
			}
			if !g.PathAvailable(x, y) {
				s.obstacles = append(s.obstacles, steering.Object{Position: s.deps.CellCenter(world.Cell{X: x, Y: y})})
			}
		}
	}
	return s.obstacles
}

// escape pulls an agent standing on a blocked cell toward the free
// neighbour closest to where it is heading, or toward the nearest free cell
// further out when every neighbour is blocked.
func (s *SteeringSystem) escape(ctx *steering.Context, cell world.Cell, u *component.Unit) []steering.Weighted {
	g := s.deps.Grid
	goal := u.Dest
	if lt, ok := u.Nav.LocalTarget(); ok {
		goal = lt
	}
	best, bestDist := cell, math.MaxFloat64
	for d := world.DirN; d < world.DirCount; d++ {
		n := cell.Add(d)
		if !g.PathAvailable(n.X, n.Y) {
			continue
		}
		if dist := world.Euclidean(n, goal); dist < bestDist {
			best, bestDist = n, dist
		}
	}
	if best == cell {
		if free, ok := g.FirstAvailable(cell, 2, s.deps.Config.Navigation.RelocateRadius); ok {
			best = free
		}
	}
	w := s.deps.Config.Steering.EscapeWeight
	own := s.deps.CellCenter(cell)
	if best == cell {
		return []steering.Weighted{{Force: steering.Flee(ctx, own), Weight: 1}}
	}
	return []steering.Weighted{
		{Force: steering.Seek(ctx, s.deps.CellCenter(best)), Weight: w},
		{Force: steering.Flee(ctx, own), Weight: 1},
	}
}

// clamp keeps a position inside the map.
func (s *SteeringSystem) clamp(p cp.Vector) cp.Vector {
	bb := s.deps.WorldBounds()
	const inset = 1e-6
	p.X = math.Min(math.Max(p.X, bb.L), bb.R-inset)
	p.Y = math.Min(math.Max(p.Y, bb.B), bb.T-inset)
	return p
}
