package component

import (
	"github.com/jakecoffman/cp"

	"github.com/rtsnav/navsim/internal/navigation"
	"github.com/rtsnav/navsim/internal/steering"
	"github.com/rtsnav/navsim/internal/world"
)

// MoveState is the coarse movement state exposed to collaborators.
type MoveState uint8

const (
	StateIdle MoveState = iota
	StateMoving
	StateEngaged // held in place by a collaborator, steering skipped
)

func (s MoveState) String() string {
	switch s {
	case StateMoving:
		return "move"
	case StateEngaged:
		return "engaged"
	}
	return "idle"
}

// Unit stores the movement and navigation state of an agent.
type Unit struct {
	Velocity    cp.Vector
	AvgVelocity steering.Average
	MaxSpeed    float64 // pixels per tick
	State       MoveState

	Dest      world.Cell
	Ordered   world.Cell // cell named by the last order; relocations search around it
	Commanded bool       // false once the destination is reached or abandoned
	Engaged   bool       // set by collaborators (combat, work); freezes steering

	Direction world.Direction // flow direction chosen by the controller
	NextCell  world.Cell

	PathCell     world.Cell // cell currently marked in the occupancy layer
	PathUpdate   bool       // controller refresh due
	SinceRefresh int        // ticks since the last controller refresh

	NoPath       int // failures since the last relocation
	ReallyNoPath int // failures since the last success

	Nav *navigation.Controller
}
