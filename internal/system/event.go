package system

import (
	"time"

	"github.com/rtsnav/navsim/internal/core/event"
	coresys "github.com/rtsnav/navsim/internal/core/system"
)

// EventSystem delivers the navigation events emitted during this tick.
// Phase 5 (Events).
type EventSystem struct {
	bus *event.Bus
}

func NewEventSystem(bus *event.Bus) *EventSystem {
	return &EventSystem{bus: bus}
}

func (s *EventSystem) Phase() coresys.Phase { return coresys.PhaseEvents }

func (s *EventSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
