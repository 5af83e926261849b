package sim

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/rtsnav/navsim/internal/component"
	"github.com/rtsnav/navsim/internal/config"
	"github.com/rtsnav/navsim/internal/core/ecs"
	"github.com/rtsnav/navsim/internal/core/event"
	"github.com/rtsnav/navsim/internal/world"
)

// recorder captures navigation events in delivery order.
type recorder struct {
	arrived    []event.Arrived
	failed     []event.PathFailed
	relocated  []event.DestinationRelocated
	cancelled  []event.DestinationCancelled
	deliveries []string
}

func (r *recorder) attach(bus *event.Bus) {
	event.Subscribe(bus, func(e event.Arrived) {
		r.arrived = append(r.arrived, e)
		r.deliveries = append(r.deliveries, "arrived")
	})
	event.Subscribe(bus, func(e event.PathFailed) {
		r.failed = append(r.failed, e)
		r.deliveries = append(r.deliveries, "failed")
	})
	event.Subscribe(bus, func(e event.DestinationRelocated) {
		r.relocated = append(r.relocated, e)
		r.deliveries = append(r.deliveries, "relocated")
	})
	event.Subscribe(bus, func(e event.DestinationCancelled) {
		r.cancelled = append(r.cancelled, e)
		r.deliveries = append(r.deliveries, "cancelled")
	})
}

type SimSuite struct {
	suite.Suite
	cfg *config.Config
	rec *recorder
}

func (s *SimSuite) SetupTest() {
	s.cfg = config.Default()
	s.rec = &recorder{}
}

func (s *SimSuite) newSim(g *world.Grid) *Sim {
	sm, err := New(s.cfg, g, nil, nil)
	s.Require().NoError(err)
	s.rec.attach(sm.Bus())
	return sm
}

func (s *SimSuite) spawn(sm *Sim, c world.Cell, speed float64) ecs.EntityID {
	id, err := sm.Spawn(c, speed)
	s.Require().NoError(err)
	return id
}

func (s *SimSuite) view(sm *Sim, id ecs.EntityID) AgentView {
	v, ok := sm.View(id)
	s.Require().True(ok)
	return v
}

func gridFrom(rows ...string) *world.Grid {
	g := world.NewGrid(len(rows[0]), len(rows))
	for y, row := range rows {
		for x, ch := range row {
			if ch == '#' {
				g.SetStatic(x, y, world.TileBlocked)
			}
		}
	}
	return g
}

func (s *SimSuite) TestDiagonalAcrossOpenGrid() {
	sm := s.newSim(world.NewGrid(8, 8))
	// one diagonal cell per tick
	id := s.spawn(sm, world.Cell{X: 0, Y: 0}, 48)
	s.Require().NoError(sm.GoTo(id, world.Cell{X: 7, Y: 7}))

	for tick := 1; tick <= 7; tick++ {
		sm.Tick()
		v := s.view(sm, id)
		d := v.Cell.X - v.Cell.Y
		s.LessOrEqual(d, 1, "tick %d left the corridor at %v", tick, v.Cell)
		s.GreaterOrEqual(d, -1, "tick %d left the corridor at %v", tick, v.Cell)
	}
	v := s.view(sm, id)
	s.Equal(world.Cell{X: 7, Y: 7}, v.Cell)
	s.Equal(world.DirSE, v.Heading)

	sm.Run(20)
	v = s.view(sm, id)
	s.Equal(world.Cell{X: 7, Y: 7}, v.Cell)
	s.False(v.Commanded)
	s.Require().Len(s.rec.arrived, 1)
	s.Equal(event.Arrived{Entity: id, Cell: world.Cell{X: 7, Y: 7}}, s.rec.arrived[0])
	s.Empty(s.rec.failed)
}

func (s *SimSuite) TestDetourAroundWall() {
	g := gridFrom(
		"............",
		"............",
		"............",
		"............",
		".....###....",
		".....###....",
		".....###....",
		"............",
		"............",
		"............",
	)
	sm := s.newSim(g)
	id := s.spawn(sm, world.Cell{X: 2, Y: 5}, 6)
	dest := world.Cell{X: 10, Y: 5}
	s.Require().NoError(sm.GoTo(id, dest))

	for tick := 0; tick < 300; tick++ {
		sm.Tick()
		v := s.view(sm, id)
		s.Require().True(g.PathAvailable(v.Cell.X, v.Cell.Y), "tick %d: agent inside the wall at %v", tick, v.Cell)
		if v.Cell == dest && !v.Commanded {
			break
		}
	}
	s.Equal(dest, s.view(sm, id).Cell)
	s.Len(s.rec.arrived, 1)
}

func (s *SimSuite) TestTwoAgentsSameDestination() {
	sm := s.newSim(world.NewGrid(12, 12))
	a := s.spawn(sm, world.Cell{X: 1, Y: 6}, 8)
	b := s.spawn(sm, world.Cell{X: 3, Y: 6}, 8)
	dest := world.Cell{X: 9, Y: 6}
	s.Require().NoError(sm.GoTo(a, dest))
	s.Require().NoError(sm.GoTo(b, dest))

	sm.Run(300)
	va, vb := s.view(sm, a), s.view(sm, b)
	s.NotEqual(va.Cell, vb.Cell, "both agents settled on %v", va.Cell)
	atDest, other := va, vb
	if vb.Cell == dest {
		atDest, other = vb, va
	}
	s.Equal(dest, atDest.Cell)
	s.Equal(1, world.Chebyshev(other.Cell, dest), "the other agent stops next to the destination")
	s.NotEmpty(s.rec.relocated)
	s.Equal(a, sm.Grid().Occupant(va.Cell.X, va.Cell.Y))
	s.Equal(b, sm.Grid().Occupant(vb.Cell.X, vb.Cell.Y))
}

func (s *SimSuite) TestCrowdSettlesAroundOrderedCell() {
	sm := s.newSim(world.NewGrid(16, 16))
	ordered := world.Cell{X: 12, Y: 7}
	var ids []ecs.EntityID
	for y := 2; y <= 12; y += 2 {
		id := s.spawn(sm, world.Cell{X: 1, Y: y}, 8)
		s.Require().NoError(sm.GoTo(id, ordered))
		ids = append(ids, id)
	}
	sm.Run(800)

	seen := make(map[world.Cell]bool, len(ids))
	for _, id := range ids {
		v := s.view(sm, id)
		s.False(v.Commanded, "agent %v still walking at %v", id, v.Cell)
		s.LessOrEqual(world.Chebyshev(v.Cell, ordered), 2, "agent %v drifted to %v", id, v.Cell)
		s.False(seen[v.Cell], "two agents share %v", v.Cell)
		seen[v.Cell] = true
	}
	holder := sm.Grid().Occupant(ordered.X, ordered.Y)
	s.Require().NotZero(holder, "nobody holds the ordered cell")
	s.Equal(ordered, s.view(sm, holder).Cell)
	s.NotEmpty(s.rec.relocated)
}

func (s *SimSuite) TestDiagonalPairHoldsDestination() {
	sm := s.newSim(world.NewGrid(16, 16))
	a := s.spawn(sm, world.Cell{X: 2, Y: 2}, 8)
	b := s.spawn(sm, world.Cell{X: 3, Y: 2}, 8)
	dest := world.Cell{X: 12, Y: 12}
	s.Require().NoError(sm.GoTo(a, dest))
	s.Require().NoError(sm.GoTo(b, dest))

	sm.Run(300)
	before := []world.Cell{s.view(sm, a).Cell, s.view(sm, b).Cell}
	sm.Run(100)
	after := []AgentView{s.view(sm, a), s.view(sm, b)}
	for i, v := range after {
		s.Equal(before[i], v.Cell, "agent %v kept drifting", v.ID)
		s.False(v.Commanded)
		s.Equal(v.Cell, v.Dest)
	}
	holder, other := after[0], after[1]
	if other.Cell == dest {
		holder, other = other, holder
	}
	s.Equal(dest, holder.Cell)
	s.Equal(1, world.Chebyshev(other.Cell, dest))
}

func (s *SimSuite) TestEngagedAgentHoldsPosition() {
	sm := s.newSim(world.NewGrid(20, 4))
	id := s.spawn(sm, world.Cell{X: 0, Y: 1}, 8)
	dest := world.Cell{X: 19, Y: 1}
	s.Require().NoError(sm.GoTo(id, dest))
	sm.Run(10)

	s.Require().NoError(sm.SetEngaged(id, true))
	sm.Tick()
	held := s.view(sm, id)
	s.True(held.Engaged)
	s.Equal(component.StateEngaged, held.State)

	sm.Run(30)
	v := s.view(sm, id)
	s.Equal(held.X, v.X)
	s.Equal(held.Y, v.Y)
	s.True(v.Commanded, "the order survives")
	s.Equal(id, sm.Grid().Occupant(v.Cell.X, v.Cell.Y))

	s.Require().NoError(sm.SetEngaged(id, false))
	sm.Run(200)
	v = s.view(sm, id)
	s.Equal(dest, v.Cell)
	s.False(v.Engaged)
	s.False(v.Commanded)
	s.Len(s.rec.arrived, 1)
}

func (s *SimSuite) TestBuriedAgentEscapes() {
	sm := s.newSim(world.NewGrid(12, 12))
	id := s.spawn(sm, world.Cell{X: 3, Y: 3}, 8)
	_, err := sm.AddBlocker(world.Cell{X: 2, Y: 2}, 3, 3)
	s.Require().NoError(err)
	dest := world.Cell{X: 9, Y: 9}
	s.Require().NoError(sm.GoTo(id, dest))

	sm.Run(300)
	v := s.view(sm, id)
	s.True(sm.Grid().PathAvailable(v.Cell.X, v.Cell.Y), "still buried at %v", v.Cell)
	s.LessOrEqual(world.Chebyshev(v.Cell, dest), 1)
	s.False(v.Commanded)
	s.Empty(s.rec.cancelled)
}

func enclosure() *world.Grid {
	return gridFrom(
		"............",
		"............",
		"............",
		"............",
		"............",
		"............",
		"............",
		".......###..",
		".......#.#..",
		".......###..",
		"............",
		"............",
	)
}

func (s *SimSuite) TestEnclosedDestinationIsRelocated() {
	sm := s.newSim(enclosure())
	id := s.spawn(sm, world.Cell{X: 1, Y: 1}, 8)
	enclosed := world.Cell{X: 8, Y: 8}
	s.Require().NoError(sm.GoTo(id, enclosed))

	sm.Run(15)
	s.Len(s.rec.failed, 15)
	s.Empty(s.rec.relocated)
	s.Equal(world.Cell{X: 1, Y: 1}, s.view(sm, id).Cell, "no movement without a path")

	sm.Tick()
	s.Require().Len(s.rec.relocated, 1)
	s.Equal(event.DestinationRelocated{Entity: id, From: enclosed, To: world.Cell{X: 6, Y: 6}}, s.rec.relocated[0])
	s.Equal(16, s.rec.failed[15].Attempts)

	sm.Run(200)
	v := s.view(sm, id)
	s.Equal(world.Cell{X: 6, Y: 6}, v.Cell)
	s.False(v.Commanded)
	s.Require().Len(s.rec.arrived, 1)
	s.Equal(world.Cell{X: 6, Y: 6}, s.rec.arrived[0].Cell)
	s.Len(s.rec.failed, 16)
	s.Empty(s.rec.cancelled)
	s.Equal(1.0, testutil.ToFloat64(sm.Metrics().Relocations.WithLabelValues("no_path")))
}

func (s *SimSuite) TestUnreachableDestinationIsCancelled() {
	s.cfg.Navigation.RelocateRadius = 2 // ring 1 only, all blocked
	sm := s.newSim(enclosure())
	id := s.spawn(sm, world.Cell{X: 1, Y: 1}, 8)
	s.Require().NoError(sm.GoTo(id, world.Cell{X: 8, Y: 8}))

	sm.Run(63)
	s.Empty(s.rec.cancelled)
	sm.Tick()
	s.Require().Len(s.rec.cancelled, 1)
	s.Equal(world.Cell{X: 8, Y: 8}, s.rec.cancelled[0].Destination)

	v := s.view(sm, id)
	s.False(v.Commanded)
	s.Equal(v.Cell, v.Dest)
	s.Len(s.rec.failed, 64)

	sm.Run(10)
	s.Len(s.rec.failed, 64, "no retries after cancelling")
}

func (s *SimSuite) TestGoToOwnCellIsIdle() {
	sm := s.newSim(world.NewGrid(6, 6))
	id := s.spawn(sm, world.Cell{X: 2, Y: 2}, 8)
	s.Require().NoError(sm.GoTo(id, world.Cell{X: 2, Y: 2}))
	sm.Run(3)
	v := s.view(sm, id)
	s.Equal(world.Cell{X: 2, Y: 2}, v.Cell)
	s.Equal(world.DirNone, v.Direction)
	s.Equal(component.StateIdle, v.State)
	s.InDelta(80.0, v.X, 1e-9)
	s.InDelta(80.0, v.Y, 1e-9)
}

func (s *SimSuite) TestGoToOccupiedCellIsRelocated() {
	sm := s.newSim(world.NewGrid(10, 10))
	sitter := s.spawn(sm, world.Cell{X: 5, Y: 5}, 8)
	mover := s.spawn(sm, world.Cell{X: 0, Y: 5}, 8)
	s.Require().NoError(sm.GoTo(mover, world.Cell{X: 5, Y: 5}))
	sm.Tick()

	s.Require().Len(s.rec.relocated, 1)
	s.Equal(world.Cell{X: 4, Y: 4}, s.rec.relocated[0].To)
	s.Equal(world.Cell{X: 4, Y: 4}, s.view(sm, mover).Dest)

	sm.Run(150)
	s.Equal(world.Cell{X: 4, Y: 4}, s.view(sm, mover).Cell)
	s.Equal(world.Cell{X: 5, Y: 5}, s.view(sm, sitter).Cell)
}

func (s *SimSuite) TestStop() {
	sm := s.newSim(world.NewGrid(20, 4))
	id := s.spawn(sm, world.Cell{X: 0, Y: 1}, 8)
	s.Require().NoError(sm.GoTo(id, world.Cell{X: 19, Y: 1}))
	sm.Run(10)
	s.Require().Equal(component.StateMoving, s.view(sm, id).State)

	s.Require().NoError(sm.Stop(id))
	sm.Run(60)
	v := s.view(sm, id)
	s.False(v.Commanded)
	s.Equal(v.Cell, v.Dest)
	s.Less(v.Cell.X, 19)
	s.Equal(component.StateIdle, v.State)
	s.Empty(s.rec.arrived)
}

func (s *SimSuite) TestBlockersUpdateDynamicLayer() {
	sm := s.newSim(world.NewGrid(8, 8))
	b, err := sm.AddBlocker(world.Cell{X: 2, Y: 2}, 2, 3)
	s.Require().NoError(err)
	sm.Tick()
	g := sm.Grid()
	s.False(g.PathAvailable(3, 4))
	s.Equal(b, g.Blocker(2, 2))
	s.True(g.PathAvailable(4, 4))

	s.Require().NoError(sm.Remove(b))
	sm.Tick() // destroyed at the end of this tick
	sm.Tick() // layer rebuilt without it
	s.True(g.PathAvailable(3, 4))

	_, err = sm.AddBlocker(world.Cell{}, 0, 1)
	s.Error(err)
}

func (s *SimSuite) TestRemoveReleasesOccupancy() {
	sm := s.newSim(world.NewGrid(4, 4))
	id := s.spawn(sm, world.Cell{X: 1, Y: 1}, 4)
	s.Equal(id, sm.Grid().Occupant(1, 1))
	s.Require().NoError(sm.Remove(id))
	sm.Tick()
	s.Equal(ecs.EntityID(0), sm.Grid().Occupant(1, 1))
	_, ok := sm.View(id)
	s.False(ok)
	s.ErrorIs(sm.GoTo(id, world.Cell{}), ErrUnknownAgent)
	s.ErrorIs(sm.Remove(id), ErrUnknownAgent)
	s.Equal(0.0, testutil.ToFloat64(sm.Metrics().Agents))
}

func (s *SimSuite) TestCommandValidation() {
	sm := s.newSim(world.NewGrid(4, 4))
	id := s.spawn(sm, world.Cell{X: 0, Y: 0}, 4)
	s.Error(sm.GoTo(id, world.Cell{X: 4, Y: 0}))
	s.ErrorIs(sm.GoTo(ecs.NewEntityID(99, 0), world.Cell{}), ErrUnknownAgent)
	s.ErrorIs(sm.Stop(ecs.NewEntityID(99, 0)), ErrUnknownAgent)
	s.ErrorIs(sm.SetEngaged(ecs.NewEntityID(99, 0), true), ErrUnknownAgent)
	_, err := sm.Spawn(world.Cell{X: -1, Y: 0}, 4)
	s.Error(err)
	s.Equal([]ecs.EntityID{id}, sm.Agents())
}

func TestSimSuite(t *testing.T) {
	suite.Run(t, new(SimSuite))
}

func TestNewRejectsUnknownNeighborhood(t *testing.T) {
	cfg := config.Default()
	cfg.Navigation.Neighborhood = "hex"
	_, err := New(cfg, world.NewGrid(2, 2), nil, nil)
	require.Error(t, err)
}

func TestDeterministicReplay(t *testing.T) {
	run := func() []AgentView {
		sm, err := New(config.Default(), world.NewGrid(16, 16), nil, nil)
		require.NoError(t, err)
		var ids []ecs.EntityID
		for i := 0; i < 6; i++ {
			id, err := sm.Spawn(world.Cell{X: i, Y: i % 3}, 6)
			require.NoError(t, err)
			require.NoError(t, sm.GoTo(id, world.Cell{X: 12, Y: 12}))
			ids = append(ids, id)
		}
		sm.Run(120)
		out := make([]AgentView, 0, len(ids))
		for _, id := range ids {
			v, _ := sm.View(id)
			out = append(out, v)
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestPhaseMetrics(t *testing.T) {
	sm, err := New(nil, world.NewGrid(4, 4), nil, nil)
	require.NoError(t, err)
	sm.Run(3)
	m := sm.Metrics()
	assert.Equal(t, 7, testutil.CollectAndCount(m.PhaseDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(m.TickDuration))
	assert.Equal(t, uint64(3), sm.Ticks())
}
