package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/rtsnav/navsim/internal/component"
	"github.com/rtsnav/navsim/internal/core/ecs"
	coresys "github.com/rtsnav/navsim/internal/core/system"
)

// TileSource re-reads the static tiles of a map.
type TileSource interface {
	Reload(mapID int) ([]byte, error)
}

// StaticReloadSystem swaps in new terrain when the tile file of the running
// map changes on disk. Phase 0 (Input).
type StaticReloadSystem struct {
	deps    *Deps
	reloads <-chan int
	tiles   TileSource
	mapID   int
}

func NewStaticReloadSystem(deps *Deps, reloads <-chan int, tiles TileSource, mapID int) *StaticReloadSystem {
	return &StaticReloadSystem{deps: deps, reloads: reloads, tiles: tiles, mapID: mapID}
}

func (s *StaticReloadSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *StaticReloadSystem) Update(_ time.Duration) {
	changed := false
drain:
	for {
		select {
		case id, ok := <-s.reloads:
			if !ok {
				s.reloads = nil
				break drain
			}
			if id == s.mapID {
				changed = true
			}
		default:
			break drain
		}
	}
	if !changed {
		return
	}

	tiles, err := s.tiles.Reload(s.mapID)
	if err != nil {
		s.deps.Log.Warn("static layer reload failed", zap.Int("map", s.mapID), zap.Error(err))
		return
	}
	if err := s.deps.Grid.LoadStatic(tiles); err != nil {
		s.deps.Log.Warn("static layer reload rejected", zap.Int("map", s.mapID), zap.Error(err))
		return
	}

	// every plan may now cross new terrain
	replanned := 0
	s.deps.Units.Each(func(_ ecs.EntityID, u *component.Unit) {
		if !u.Commanded {
			return
		}
		u.Nav.Reset()
		u.PathUpdate = true
		replanned++
	})
	s.deps.Log.Info("static layer reloaded", zap.Int("map", s.mapID), zap.Int("replanned", replanned))
}
