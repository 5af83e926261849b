package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: commands, script hooks, static layer reloads
	PhaseLayers                  // 1: rebuild the dynamic blocking layer
	PhaseIndex                   // 2: rebuild the spatial index
	PhasePathfinding             // 3: flow-field path controllers
	PhaseSteering                // 4: steering, integration, occupancy
	PhaseEvents                  // 5: dispatch navigation events
	PhaseCleanup                 // 6: destroy queued entities

	phaseCount
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseLayers:
		return "layers"
	case PhaseIndex:
		return "index"
	case PhasePathfinding:
		return "pathfinding"
	case PhaseSteering:
		return "steering"
	case PhaseEvents:
		return "events"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
