package system

import (
	"time"

	"github.com/rtsnav/navsim/internal/component"
	"github.com/rtsnav/navsim/internal/core/ecs"
	coresys "github.com/rtsnav/navsim/internal/core/system"
)

// LayerSystem rebuilds the dynamic blocking layer from buildings and
// blocking decor. Phase 1 (Layers).
type LayerSystem struct {
	deps *Deps
}

func NewLayerSystem(deps *Deps) *LayerSystem {
	return &LayerSystem{deps: deps}
}

func (s *LayerSystem) Phase() coresys.Phase { return coresys.PhaseLayers }

func (s *LayerSystem) Update(_ time.Duration) {
	g := s.deps.Grid
	g.ClearDynamic()
	s.deps.Blockers.Each(func(id ecs.EntityID, b *component.Blocker) {
		for y := b.Origin.Y; y < b.Origin.Y+b.H; y++ {
			for x := b.Origin.X; x < b.Origin.X+b.W; x++ {
				g.SetDynamic(x, y, id)
			}
		}
	})
}
