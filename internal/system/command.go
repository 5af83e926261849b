package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/rtsnav/navsim/internal/core/ecs"
	coresys "github.com/rtsnav/navsim/internal/core/system"
	"github.com/rtsnav/navsim/internal/world"
)

type CommandKind uint8

const (
	CmdGoTo CommandKind = iota
	CmdStop
	CmdEngage
	CmdRelease
)

// Command is a movement order queued for the next input phase.
type Command struct {
	Kind   CommandKind
	Entity ecs.EntityID
	Cell   world.Cell
}

// CommandSystem applies queued movement orders. Phase 0 (Input).
type CommandSystem struct {
	deps  *Deps
	queue []Command
}

func NewCommandSystem(deps *Deps) *CommandSystem {
	return &CommandSystem{deps: deps, queue: make([]Command, 0, 32)}
}

func (s *CommandSystem) Phase() coresys.Phase { return coresys.PhaseInput }

// Push queues a command. Commands apply in push order.
func (s *CommandSystem) Push(c Command) {
	s.queue = append(s.queue, c)
}

// Pending reports how many commands wait for the next tick.
func (s *CommandSystem) Pending() int { return len(s.queue) }

func (s *CommandSystem) Update(_ time.Duration) {
	for _, c := range s.queue {
		switch c.Kind {
		case CmdGoTo:
			s.goTo(c.Entity, c.Cell)
		case CmdStop:
			s.stop(c.Entity)
		case CmdEngage, CmdRelease:
			s.engage(c.Entity, c.Kind == CmdEngage)
		}
	}
	s.queue = s.queue[:0]
}

func (s *CommandSystem) goTo(id ecs.EntityID, dest world.Cell) {
	u, ok := s.deps.Units.Get(id)
	if !ok || !s.deps.World.Alive(id) {
		s.deps.Log.Debug("go_to for unknown agent", zap.Stringer("entity", id))
		return
	}
	g := s.deps.Grid
	u.Dest = dest
	u.Ordered = dest
	u.Commanded = true
	u.PathUpdate = true
	u.NoPath = 0
	u.ReallyNoPath = 0
	u.AvgVelocity.Reset()
	if !g.PositionAvailable(dest.X, dest.Y) && g.Occupant(dest.X, dest.Y) != id {
		s.deps.relocate(id, u, "command", 0)
	}
}

func (s *CommandSystem) stop(id ecs.EntityID) {
	u, ok := s.deps.Units.Get(id)
	tr, ok2 := s.deps.Transforms.Get(id)
	if !ok || !ok2 {
		return
	}
	u.Dest = tr.Cell
	u.Ordered = tr.Cell
	u.Commanded = false
	u.PathUpdate = true
	u.NoPath = 0
	u.ReallyNoPath = 0
	u.Direction = world.DirNone
	u.NextCell = tr.Cell
	u.Nav.Reset()
}

func (s *CommandSystem) engage(id ecs.EntityID, on bool) {
	u, ok := s.deps.Units.Get(id)
	if !ok || !s.deps.World.Alive(id) {
		return
	}
	u.Engaged = on
	if !on {
		u.PathUpdate = true
	}
}
