package component

import (
	"github.com/jakecoffman/cp"

	"github.com/rtsnav/navsim/internal/world"
)

// Transform stores where an entity is.
// Pure data: all mutations happen in systems.
type Transform struct {
	Pos     cp.Vector       // pixel position of the body centre
	Cell    world.Cell      // trunc(Pos / cell size)
	Heading world.Direction // facing, derived from averaged velocity
}
