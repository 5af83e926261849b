// Package sim assembles the navigation systems into a tick-driven
// simulation and exposes the command and query surface used by the CLI,
// scripts and tests.
package sim

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rtsnav/navsim/internal/component"
	"github.com/rtsnav/navsim/internal/config"
	"github.com/rtsnav/navsim/internal/core/ecs"
	"github.com/rtsnav/navsim/internal/core/event"
	coresys "github.com/rtsnav/navsim/internal/core/system"
	"github.com/rtsnav/navsim/internal/flowfield"
	"github.com/rtsnav/navsim/internal/metrics"
	"github.com/rtsnav/navsim/internal/navigation"
	"github.com/rtsnav/navsim/internal/path"
	"github.com/rtsnav/navsim/internal/spatial"
	"github.com/rtsnav/navsim/internal/steering"
	"github.com/rtsnav/navsim/internal/system"
	"github.com/rtsnav/navsim/internal/world"
)

// ErrUnknownAgent is returned for handles that are not live agents.
var ErrUnknownAgent = errors.New("sim: unknown agent")

// AgentView is the read-only state of one agent.
type AgentView struct {
	ID        ecs.EntityID
	X, Y      float64 // pixel position
	Cell      world.Cell
	Dest      world.Cell
	Heading   world.Direction
	Direction world.Direction // current flow direction
	State     component.MoveState
	Nav       navigation.State
	Commanded bool
	Engaged   bool
}

// Sim owns one grid and every agent on it. All methods must be called from
// the goroutine that calls Tick.
type Sim struct {
	deps     *system.Deps
	runner   *coresys.Runner
	commands *system.CommandSystem
	navCfg   navigation.Config
	dt       time.Duration
}

// New wires the systems around grid. A nil logger or collector is replaced
// by a no-op logger and a private collector.
func New(cfg *config.Config, grid *world.Grid, log *zap.Logger, m *metrics.Collector) (*Sim, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	hood, ok := flowfield.ParseNeighborhood(cfg.Navigation.Neighborhood)
	if !ok {
		return nil, fmt.Errorf("unknown neighborhood %q", cfg.Navigation.Neighborhood)
	}

	w := ecs.NewWorld()
	deps := &system.Deps{
		World:      w,
		Grid:       grid,
		Transforms: ecs.NewRegisteredStore[component.Transform](w),
		Units:      ecs.NewRegisteredStore[component.Unit](w),
		Blockers:   ecs.NewRegisteredStore[component.Blocker](w),
		Searcher:   path.NewSearcher(),
		Bus:        event.NewBus(),
		Metrics:    m,
		Config:     cfg,
		Log:        log,
	}
	deps.Index = spatial.New(deps.WorldBounds(), cfg.Spatial.MinCellSize)

	s := &Sim{
		deps:     deps,
		runner:   coresys.NewRunner(),
		commands: system.NewCommandSystem(deps),
		navCfg: navigation.Config{
			SectorSize:      cfg.Navigation.SectorSize,
			KeepLocalTarget: cfg.Navigation.KeepLocalTarget,
			Neighborhood:    hood,
		},
		dt: cfg.Simulation.TickRate,
	}
	s.runner.Observe(func(p coresys.Phase, d time.Duration) {
		m.ObservePhase(p.String(), d)
	})
	s.runner.Register(s.commands)
	s.runner.Register(system.NewLayerSystem(deps))
	s.runner.Register(system.NewSpatialIndexSystem(deps))
	s.runner.Register(system.NewPathfindingSystem(deps))
	s.runner.Register(system.NewSteeringSystem(deps))
	s.runner.Register(system.NewEventSystem(deps.Bus))
	s.runner.Register(system.NewCleanupSystem(deps))
	return s, nil
}

// Register adds an extra system. Input-phase systems registered here run
// after the command system, so their orders apply on the next tick.
func (s *Sim) Register(sys coresys.System) { s.runner.Register(sys) }

// Deps exposes the shared state for systems wired from outside the package.
func (s *Sim) Deps() *system.Deps { return s.deps }

func (s *Sim) Grid() *world.Grid           { return s.deps.Grid }
func (s *Sim) Bus() *event.Bus             { return s.deps.Bus }
func (s *Sim) Metrics() *metrics.Collector { return s.deps.Metrics }
func (s *Sim) Ticks() uint64               { return s.runner.Ticks() }
func (s *Sim) Config() *config.Config      { return s.deps.Config }

// Spawn creates an agent at the centre of cell. A non-positive speed uses the
// configured default.
func (s *Sim) Spawn(cell world.Cell, speed float64) (ecs.EntityID, error) {
	if !s.deps.Grid.Bound(cell.X, cell.Y) {
		return 0, fmt.Errorf("spawn at %v: outside the grid", cell)
	}
	if speed <= 0 {
		speed = s.deps.Config.Steering.MaxSpeed
	}
	id := s.deps.World.CreateEntity()
	s.deps.Transforms.Set(id, &component.Transform{
		Pos:     s.deps.CellCenter(cell),
		Cell:    cell,
		Heading: world.DirS,
	})
	s.deps.Units.Set(id, &component.Unit{
		AvgVelocity: steering.Average{Window: s.deps.Config.Steering.AverageWindow},
		MaxSpeed:    speed,
		Dest:        cell,
		Ordered:     cell,
		Direction:   world.DirNone,
		NextCell:    cell,
		PathCell:    cell,
		Nav:         navigation.NewController(s.navCfg),
	})
	s.deps.Grid.SetOccupant(cell.X, cell.Y, id)
	s.deps.Metrics.Agents.Inc()
	return id, nil
}

// AddBlocker places a building covering w×h cells from origin. It blocks
// paths from the next tick on.
func (s *Sim) AddBlocker(origin world.Cell, w, h int) (ecs.EntityID, error) {
	if w <= 0 || h <= 0 {
		return 0, fmt.Errorf("blocker at %v: invalid size %dx%d", origin, w, h)
	}
	id := s.deps.World.CreateEntity()
	s.deps.Blockers.Set(id, &component.Blocker{Origin: origin, W: w, H: h})
	return id, nil
}

// Remove destroys an agent or blocker at the end of the next tick.
func (s *Sim) Remove(id ecs.EntityID) error {
	if !s.deps.World.Alive(id) {
		return ErrUnknownAgent
	}
	if s.deps.World.MarkForDestruction(id) && s.deps.Units.Has(id) {
		s.deps.Metrics.Agents.Dec()
	}
	return nil
}

// GoTo orders an agent to cell. The order applies at the start of the next
// tick; an unavailable cell is replaced by the nearest available one.
func (s *Sim) GoTo(id ecs.EntityID, cell world.Cell) error {
	if !s.isAgent(id) {
		return ErrUnknownAgent
	}
	if !s.deps.Grid.Bound(cell.X, cell.Y) {
		return fmt.Errorf("go to %v: outside the grid", cell)
	}
	s.commands.Push(system.Command{Kind: system.CmdGoTo, Entity: id, Cell: cell})
	return nil
}

// Stop makes an agent drop its order and idle where it stands.
func (s *Sim) Stop(id ecs.EntityID) error {
	if !s.isAgent(id) {
		return ErrUnknownAgent
	}
	s.commands.Push(system.Command{Kind: system.CmdStop, Entity: id})
	return nil
}

// SetEngaged holds an agent in place while a collaborator (combat, work)
// owns it. Steering is skipped until it is released; its order is kept.
// Applies at the start of the next tick.
func (s *Sim) SetEngaged(id ecs.EntityID, engaged bool) error {
	if !s.isAgent(id) {
		return ErrUnknownAgent
	}
	kind := system.CmdRelease
	if engaged {
		kind = system.CmdEngage
	}
	s.commands.Push(system.Command{Kind: kind, Entity: id})
	return nil
}

func (s *Sim) isAgent(id ecs.EntityID) bool {
	return s.deps.World.Alive(id) && s.deps.Units.Has(id)
}

// Tick advances the simulation by one step.
func (s *Sim) Tick() {
	start := time.Now()
	s.runner.Tick(s.dt)
	s.deps.Metrics.ObserveTick(time.Since(start))
}

// Run advances the simulation by n ticks.
func (s *Sim) Run(n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
}

// View returns the state of an agent.
func (s *Sim) View(id ecs.EntityID) (AgentView, bool) {
	if !s.isAgent(id) {
		return AgentView{}, false
	}
	tr, _ := s.deps.Transforms.Get(id)
	u, _ := s.deps.Units.Get(id)
	return AgentView{
		ID:        id,
		X:         tr.Pos.X,
		Y:         tr.Pos.Y,
		Cell:      tr.Cell,
		Dest:      u.Dest,
		Heading:   tr.Heading,
		Direction: u.Direction,
		State:     u.State,
		Nav:       u.Nav.State(),
		Commanded: u.Commanded,
		Engaged:   u.Engaged,
	}, true
}

// Agents returns every live agent in spawn order.
func (s *Sim) Agents() []ecs.EntityID {
	ids := make([]ecs.EntityID, 0, s.deps.Units.Len())
	s.deps.Units.Each(func(id ecs.EntityID, _ *component.Unit) {
		ids = append(ids, id)
	})
	return ids
}
