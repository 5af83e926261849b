package system

import (
	"time"

	"github.com/jakecoffman/cp"

	"github.com/rtsnav/navsim/internal/component"
	"github.com/rtsnav/navsim/internal/core/ecs"
	coresys "github.com/rtsnav/navsim/internal/core/system"
	"github.com/rtsnav/navsim/internal/spatial"
)

// SpatialIndexSystem refills the quadtree with every agent's bounds.
// Phase 2 (Index).
type SpatialIndexSystem struct {
	deps *Deps
}

func NewSpatialIndexSystem(deps *Deps) *SpatialIndexSystem {
	return &SpatialIndexSystem{deps: deps}
}

func (s *SpatialIndexSystem) Phase() coresys.Phase { return coresys.PhaseIndex }

func (s *SpatialIndexSystem) Update(_ time.Duration) {
	q := s.deps.Index
	r := s.deps.Config.Steering.AgentRadius
	q.Clear()
	ecs.Each2(s.deps.Units, s.deps.Transforms, func(id ecs.EntityID, _ *component.Unit, tr *component.Transform) {
		q.Insert(spatial.Object{ID: id, Bounds: cp.NewBBForCircle(tr.Pos, r)})
	})
}
