// Package navigation holds the per-agent path controller: a global jump point
// search seeds a sector-sized flow field that is re-planned as the agent moves.
package navigation

import (
	"errors"

	"github.com/rtsnav/navsim/internal/flowfield"
	"github.com/rtsnav/navsim/internal/path"
	"github.com/rtsnav/navsim/internal/world"
)

var (
	// ErrNoGlobalPath means the destination is unreachable, or the agent has
	// drifted away from its global path and must re-plan.
	ErrNoGlobalPath = errors.New("navigation: no global path")
	// ErrLocalStepUnavailable means the flow field has no direction at the
	// agent's current cell this tick.
	ErrLocalStepUnavailable = errors.New("navigation: local step unavailable")
)

// State is the controller's planning phase.
type State uint8

const (
	Idle State = iota
	GlobalPlanning
	LocalStepping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case GlobalPlanning:
		return "global_planning"
	case LocalStepping:
		return "local_stepping"
	}
	return "unknown"
}

// Grid is the map view the controller plans over.
type Grid interface {
	Width() int
	Height() int
	PathAvailable(x, y int) bool
}

// Searcher runs the global search. *path.Searcher satisfies it.
type Searcher interface {
	Find(grid path.Walkable, start, goal world.Cell) (bool, []world.Cell)
}

type Config struct {
	SectorSize      int                    // side of the square re-planning window
	KeepLocalTarget int                    // refreshes a boundary target survives before re-selection
	Neighborhood    flowfield.Neighborhood // flood pattern of the local fields
}

func DefaultConfig() Config {
	return Config{
		SectorSize:      12,
		KeepLocalTarget: 4,
		Neighborhood:    flowfield.Octile,
	}
}

// Controller is owned by one agent and driven from the pathfinding phase.
type Controller struct {
	cfg   Config
	state State

	dest    world.Cell
	hasDest bool
	direct  bool         // adjacent destination, stepped to without a search
	path    []world.Cell // expanded global path, nil when a re-plan is due

	local     world.Cell
	hasLocal  bool
	localUses int

	field *flowfield.Field // toward the local target
	reach *flowfield.Field // from the current cell, for reachability checks

	searches    int
	fieldBuilds int
}

func NewController(cfg Config) *Controller {
	if cfg.SectorSize < 3 {
		cfg.SectorSize = 3
	}
	if cfg.KeepLocalTarget < 0 {
		cfg.KeepLocalTarget = 0
	}
	return &Controller{
		cfg:   cfg,
		field: flowfield.New(cfg.Neighborhood),
		reach: flowfield.New(cfg.Neighborhood),
	}
}

func (c *Controller) State() State                    { return c.state }
func (c *Controller) Destination() (world.Cell, bool) { return c.dest, c.hasDest }
func (c *Controller) Path() []world.Cell              { return c.path }
func (c *Controller) Field() *flowfield.Field         { return c.field }

// LocalTarget returns the cell the current flow field leads to.
func (c *Controller) LocalTarget() (world.Cell, bool) { return c.local, c.hasLocal }

// Searches returns how many global searches the controller has run.
func (c *Controller) Searches() int { return c.searches }

// FieldBuilds returns how many local flow fields the controller has built.
func (c *Controller) FieldBuilds() int { return c.fieldBuilds }

// Reset forgets the destination and every derived plan.
func (c *Controller) Reset() {
	c.invalidate()
	c.hasDest = false
	c.state = Idle
}

func (c *Controller) invalidate() {
	c.direct = false
	c.path = nil
	c.hasLocal = false
	c.localUses = 0
}

// Start prepares a plan from cur to dest. A new destination discards the
// previous plan and runs the global search once; the same destination keeps
// its plan as long as dest stays walkable. It reports false when no global
// path exists.
func (c *Controller) Start(grid Grid, searcher Searcher, cur, dest world.Cell) bool {
	if !c.hasDest || dest != c.dest {
		c.invalidate()
		c.dest = dest
		c.hasDest = true
	}
	if cur == dest {
		c.invalidate()
		c.state = Idle
		return true
	}
	if !grid.PathAvailable(dest.X, dest.Y) {
		c.invalidate()
		c.state = GlobalPlanning
		return false
	}
	if c.direct || c.path != nil {
		c.state = LocalStepping
		return true
	}

	if world.Chebyshev(cur, dest) == 1 && stepLegal(grid, cur, world.HeadingTo(cur, dest)) {
		c.direct = true
		c.state = LocalStepping
		return true
	}

	c.state = GlobalPlanning
	c.searches++
	ok, waypoints := searcher.Find(grid, cur, dest)
	if !ok {
		return false
	}
	c.path = path.Expand(waypoints)
	c.state = LocalStepping
	return true
}

// Next returns the heading to take from cur. It reports DirNone with a nil
// error once cur is the destination.
func (c *Controller) Next(grid Grid, cur world.Cell) (world.Direction, error) {
	if !c.hasDest || cur == c.dest {
		c.invalidate()
		c.state = Idle
		return world.DirNone, nil
	}

	if c.direct {
		d := world.HeadingTo(cur, c.dest)
		if world.Chebyshev(cur, c.dest) == 1 && stepLegal(grid, cur, d) {
			return d, nil
		}
		c.direct = false
		c.state = GlobalPlanning
		return world.DirNone, ErrLocalStepUnavailable
	}

	if c.path == nil {
		c.state = GlobalPlanning
		return world.DirNone, ErrNoGlobalPath
	}

	sector := flowfield.Sector(cur, c.cfg.SectorSize).Clip(grid.Width(), grid.Height())
	c.reach.Build(grid, sector, cur)
	target, err := c.localTarget(grid, sector, cur)
	if err != nil {
		if errors.Is(err, ErrNoGlobalPath) {
			c.path = nil
			c.state = GlobalPlanning
		}
		return world.DirNone, err
	}

	c.field.Build(grid, sector, target)
	c.fieldBuilds++
	d := c.field.DirAt(cur)
	if !d.Valid() {
		c.hasLocal = false
		return world.DirNone, ErrLocalStepUnavailable
	}
	c.state = LocalStepping
	return d, nil
}

// localTarget picks the cell the sector's flow field should lead to.
func (c *Controller) localTarget(grid Grid, sector flowfield.Rect, cur world.Cell) (world.Cell, error) {
	if c.reach.Reached(c.dest) {
		c.setLocal(c.dest)
		return c.dest, nil
	}

	if c.hasLocal && c.local != cur && c.localUses < c.cfg.KeepLocalTarget && c.reach.Reached(c.local) {
		c.localUses++
		return c.local, nil
	}

	// furthest reachable global-path cell inside the sector
	inSector := false
	for i := len(c.path) - 1; i >= 0; i-- {
		p := c.path[i]
		if !sector.Contains(p) {
			continue
		}
		inSector = true
		if p != cur && c.reach.Reached(p) {
			c.setLocal(p)
			return p, nil
		}
	}
	if !inSector {
		return cur, ErrNoGlobalPath
	}

	// reachable edge cell closest to the destination
	best, bestDist, found := cur, 0.0, false
	for y := sector.Y; y < sector.Y+sector.H; y++ {
		for x := sector.X; x < sector.X+sector.W; x++ {
			e := world.Cell{X: x, Y: y}
			if e == cur || !sector.OnEdge(e) || !c.reach.Reached(e) || !grid.PathAvailable(x, y) {
				continue
			}
			if d := world.Euclidean(e, c.dest); !found || d < bestDist {
				best, bestDist, found = e, d, true
			}
		}
	}
	if !found {
		c.hasLocal = false
		return cur, ErrLocalStepUnavailable
	}
	c.setLocal(best)
	return best, nil
}

func (c *Controller) setLocal(t world.Cell) {
	c.local = t
	c.hasLocal = true
	c.localUses = 0
}

func stepLegal(grid Grid, from world.Cell, d world.Direction) bool {
	if !d.Valid() {
		return false
	}
	dx, dy := d.Delta()
	if !grid.PathAvailable(from.X+dx, from.Y+dy) {
		return false
	}
	if d.Diagonal() {
		return grid.PathAvailable(from.X+dx, from.Y) && grid.PathAvailable(from.X, from.Y+dy)
	}
	return true
}
