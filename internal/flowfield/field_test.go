package flowfield

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtsnav/navsim/internal/world"
)

func gridFrom(rows ...string) *world.Grid {
	g := world.NewGrid(len(rows[0]), len(rows))
	for y, row := range rows {
		for x, ch := range row {
			if ch == '#' {
				g.SetStatic(x, y, world.TileBlocked)
			}
		}
	}
	return g
}

func whole(g *world.Grid) Rect { return Rect{W: g.Width(), H: g.Height()} }

// checkField asserts the cost and direction invariants over every cell.
func checkField(t *testing.T, g *world.Grid, f *Field) {
	t.Helper()
	assert.Equal(t, uint16(0), f.CostAt(f.Target))
	assert.Equal(t, world.DirTarget, f.DirAt(f.Target))
	for y := f.Rect.Y; y < f.Rect.Y+f.Rect.H; y++ {
		for x := f.Rect.X; x < f.Rect.X+f.Rect.W; x++ {
			c := world.Cell{X: x, Y: y}
			if c == f.Target {
				continue
			}
			cost, dir := f.CostAt(c), f.DirAt(c)
			if !g.PathAvailable(x, y) || cost == Unreached {
				assert.Equal(t, world.DirNone, dir, "%v", c)
				continue
			}
			require.True(t, dir.Valid(), "reached cell %v has no direction", c)
			next := c.Add(dir)
			assert.Less(t, f.CostAt(next), cost, "%v points uphill", c)

			// walking the field reaches the target
			steps := 0
			for cur := c; cur != f.Target; steps++ {
				require.LessOrEqual(t, steps, int(cost), "walk from %v overruns its cost", c)
				d := f.DirAt(cur)
				require.True(t, d.Valid(), "walk from %v stalls at %v", c, cur)
				require.True(t, legal(g, cur, d))
				cur = cur.Add(d)
			}
			if f.Neighborhood() == Octile {
				assert.Equal(t, int(cost), steps, "%v", c)
			}
		}
	}
}

func TestBuildOpenGridOctile(t *testing.T) {
	g := world.NewGrid(8, 8)
	f := New(Octile)
	require.True(t, f.Build(g, whole(g), world.Cell{X: 7, Y: 7}))
	checkField(t, g, f)
	assert.Equal(t, uint16(7), f.CostAt(world.Cell{X: 0, Y: 0}))
	assert.Equal(t, world.DirSE, f.DirAt(world.Cell{X: 0, Y: 0}))
	assert.Equal(t, uint16(7), f.CostAt(world.Cell{X: 0, Y: 7}))
	assert.Equal(t, world.DirNE, f.DirAt(world.Cell{X: 0, Y: 7}), "first of the tied neighbours wins")
}

func TestBuildOpenGridCardinal(t *testing.T) {
	g := world.NewGrid(6, 6)
	f := New(Cardinal)
	target := world.Cell{X: 2, Y: 3}
	require.True(t, f.Build(g, whole(g), target))
	checkField(t, g, f)
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			manhattan := abs(x-target.X) + abs(y-target.Y)
			assert.Equal(t, uint16(manhattan), f.CostAt(world.Cell{X: x, Y: y}))
		}
	}
}

// Only the octile flood keeps "steps to the target == cost"; the cardinal
// flood still descends but diagonals skip cost units.
func TestDefaultNeighborhoodWalksInCostSteps(t *testing.T) {
	g := world.NewGrid(6, 6)
	target, start := world.Cell{X: 5, Y: 5}, world.Cell{}
	walk := func(f *Field) int {
		steps := 0
		for cur := start; cur != target; steps++ {
			cur = cur.Add(f.DirAt(cur))
		}
		return steps
	}

	def, _ := ParseNeighborhood("")
	f := New(def)
	require.True(t, f.Build(g, whole(g), target))
	assert.Equal(t, uint16(5), f.CostAt(start))
	assert.Equal(t, 5, walk(f))

	c := New(Cardinal)
	require.True(t, c.Build(g, whole(g), target))
	assert.Equal(t, uint16(10), c.CostAt(start))
	assert.Equal(t, 5, walk(c))
}

func TestBuildAroundWall(t *testing.T) {
	g := gridFrom(
		"........",
		"...#....",
		"...#....",
		"...#....",
		"........",
	)
	f := New(Octile)
	require.True(t, f.Build(g, whole(g), world.Cell{X: 6, Y: 2}))
	checkField(t, g, f)
	assert.Equal(t, world.DirNone, f.DirAt(world.Cell{X: 3, Y: 2}))
	assert.Equal(t, uint16(Unreached), f.CostAt(world.Cell{X: 3, Y: 2}))
	// (2,2) cannot step through the wall, so its cost exceeds the straight distance
	assert.Greater(t, f.CostAt(world.Cell{X: 2, Y: 2}), uint16(4))
}

func TestBuildLeavesDisconnectedCellsUnreached(t *testing.T) {
	g := gridFrom(
		".....",
		"###..",
		"..#..",
		"..#..",
	)
	f := New(Octile)
	require.True(t, f.Build(g, whole(g), world.Cell{X: 4, Y: 3}))
	checkField(t, g, f)
	for _, c := range []world.Cell{{X: 0, Y: 2}, {X: 1, Y: 2}, {X: 0, Y: 3}, {X: 1, Y: 3}} {
		assert.False(t, f.Reached(c), "%v", c)
		assert.Equal(t, world.DirNone, f.DirAt(c))
	}
}

func TestBuildRespectsWindow(t *testing.T) {
	g := world.NewGrid(20, 20)
	f := New(Octile)
	rect := Sector(world.Cell{X: 10, Y: 10}, 12).Clip(20, 20)
	assert.Equal(t, Rect{X: 4, Y: 4, W: 12, H: 12}, rect)
	require.True(t, f.Build(g, rect, world.Cell{X: 15, Y: 4}))
	checkField(t, g, f)
	assert.Len(t, f.Cost, 144)
	assert.False(t, f.Reached(world.Cell{X: 3, Y: 4}))
	assert.Equal(t, world.DirNone, f.DirAt(world.Cell{X: 16, Y: 4}))

	assert.False(t, f.Build(g, rect, world.Cell{X: 0, Y: 0}), "target outside window")
	for _, c := range f.Cost {
		assert.Equal(t, uint16(Unreached), c)
	}
}

func TestBuildRandomGridsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		g := world.NewGrid(12, 12)
		for i := 0; i < 40; i++ {
			g.SetStatic(rng.Intn(12), rng.Intn(12), world.TileBlocked)
		}
		target := world.Cell{X: rng.Intn(12), Y: rng.Intn(12)}
		g.SetStatic(target.X, target.Y, world.TileOpen)
		for _, n := range []Neighborhood{Octile, Cardinal} {
			f := New(n)
			require.True(t, f.Build(g, whole(g), target))
			checkField(t, g, f)
		}
	}
}

func TestSectorClip(t *testing.T) {
	r := Sector(world.Cell{X: 1, Y: 2}, 12).Clip(8, 8)
	assert.Equal(t, Rect{X: 0, Y: 0, W: 7, H: 8}, r)
	assert.True(t, r.OnEdge(world.Cell{X: 6, Y: 3}))
	assert.False(t, r.OnEdge(world.Cell{X: 3, Y: 3}))
	assert.True(t, Rect{X: 50, Y: 50, W: 4, H: 4}.Clip(8, 8).Empty())
}

func TestParseNeighborhood(t *testing.T) {
	n, ok := ParseNeighborhood("cardinal")
	assert.True(t, ok)
	assert.Equal(t, Cardinal, n)
	n, ok = ParseNeighborhood("")
	assert.True(t, ok)
	assert.Equal(t, Octile, n)
	_, ok = ParseNeighborhood("hex")
	assert.False(t, ok)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
