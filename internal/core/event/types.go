package event

import (
	"github.com/rtsnav/navsim/internal/core/ecs"
	"github.com/rtsnav/navsim/internal/world"
)

// Arrived fires when an agent reaches its commanded destination.
type Arrived struct {
	Entity ecs.EntityID
	Cell   world.Cell
}

// PathFailed fires for every failed global search.
type PathFailed struct {
	Entity      ecs.EntityID
	From        world.Cell
	Destination world.Cell
	Attempts    int
}

// DestinationRelocated fires when a destination is replaced by the nearest
// available cell (repeated search failures or a settled occupant).
type DestinationRelocated struct {
	Entity ecs.EntityID
	From   world.Cell
	To     world.Cell
}

// DestinationCancelled fires when an agent gives up and idles in place.
type DestinationCancelled struct {
	Entity      ecs.EntityID
	Destination world.Cell
}
