package system

import (
	"time"

	coresys "github.com/rtsnav/navsim/internal/core/system"
)

// TickHook is a per-tick callback. Orders it issues are queued behind this
// tick's commands and apply on the next tick.
type TickHook interface {
	OnTick(tick uint64)
}

// ScriptSystem drives a scenario script. Phase 0 (Input).
type ScriptSystem struct {
	hook TickHook
	tick uint64
}

func NewScriptSystem(hook TickHook) *ScriptSystem {
	return &ScriptSystem{hook: hook}
}

func (s *ScriptSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *ScriptSystem) Update(_ time.Duration) {
	s.tick++
	s.hook.OnTick(s.tick)
}
