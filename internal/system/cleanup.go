package system

import (
	"time"

	coresys "github.com/rtsnav/navsim/internal/core/system"
)

// CleanupSystem flushes the deferred entity destruction queue at tick end,
// releasing the occupancy marks of destroyed agents first.
// Phase 6 (Cleanup).
type CleanupSystem struct {
	deps *Deps
}

func NewCleanupSystem(deps *Deps) *CleanupSystem {
	return &CleanupSystem{deps: deps}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	for _, id := range s.deps.World.PendingDestruction() {
		if u, ok := s.deps.Units.Get(id); ok {
			s.deps.Grid.ClearOccupant(u.PathCell.X, u.PathCell.Y, id)
		}
	}
	s.deps.World.FlushDestroyQueue()
}
