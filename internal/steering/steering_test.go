package steering

import (
	"math"
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/assert"

	"github.com/rtsnav/navsim/internal/world"
)

const eps = 1e-9

func TestSeekFromRest(t *testing.T) {
	ctx := &Context{Position: cp.Vector{X: 0, Y: 0}, MaxSpeed: 4}
	f := Seek(ctx, cp.Vector{X: 10, Y: 0})
	assert.InDelta(t, 4, f.X, eps)
	assert.InDelta(t, 0, f.Y, eps)

	ctx.Velocity = cp.Vector{X: 4, Y: 0}
	assert.InDelta(t, 0, Seek(ctx, cp.Vector{X: 10, Y: 0}).Length(), eps, "already at desired velocity")
}

func TestFleeIsOppositeOfSeek(t *testing.T) {
	ctx := &Context{Position: cp.Vector{X: 5, Y: 5}, MaxSpeed: 2}
	s := Seek(ctx, cp.Vector{X: 8, Y: 9})
	f := Flee(ctx, cp.Vector{X: 8, Y: 9})
	assert.InDelta(t, -s.X, f.X, eps)
	assert.InDelta(t, -s.Y, f.Y, eps)
	assert.Equal(t, cp.Vector{}, Flee(ctx, ctx.Position))
}

func TestArriveSlowsAndNeverOvershoots(t *testing.T) {
	ctx := &Context{Position: cp.Vector{X: 0, Y: 0}, MaxSpeed: 10}
	far := Arrive(ctx, cp.Vector{X: 100, Y: 0}, 32)
	assert.InDelta(t, 10, far.Length(), eps)

	near := Arrive(ctx, cp.Vector{X: 16, Y: 0}, 32)
	assert.InDelta(t, 5, near.X, eps)

	tiny := Arrive(ctx, cp.Vector{X: 0.5, Y: 0}, 0)
	assert.InDelta(t, 0.5, tiny.X, eps, "capped at the remaining distance")

	ctx.Velocity = cp.Vector{X: 3, Y: -1}
	stop := Arrive(ctx, ctx.Position, 32)
	assert.Equal(t, ctx.Velocity.Neg(), stop)
}

func TestSeparateIgnoresFarAndCoincidentNeighbours(t *testing.T) {
	ctx := &Context{
		Position: cp.Vector{X: 100, Y: 100},
		MaxSpeed: 1,
		Neighbors: []Object{
			{Position: cp.Vector{X: 90, Y: 100}},  // 10 px west, inside
			{Position: cp.Vector{X: 200, Y: 100}}, // outside
			{Position: cp.Vector{X: 100, Y: 100}}, // coincident
		},
	}
	f := Separate(ctx, 20)
	assert.InDelta(t, 0.5, f.X, eps)
	assert.InDelta(t, 0, f.Y, eps)
	assert.Equal(t, cp.Vector{}, Separate(ctx, 0))
}

func TestAvoidObstaclesSymmetricCancel(t *testing.T) {
	ctx := &Context{
		Position: cp.Vector{X: 48, Y: 48},
		MaxSpeed: 2,
		Obstacles: []Object{
			{Position: cp.Vector{X: 16, Y: 48}},
			{Position: cp.Vector{X: 80, Y: 48}},
		},
	}
	assert.InDelta(t, 0, AvoidObstacles(ctx, 40).Length(), eps)

	ctx.Obstacles = ctx.Obstacles[:1]
	assert.Greater(t, AvoidObstacles(ctx, 40).X, 0.0)
}

func TestFollowFlowField(t *testing.T) {
	ctx := &Context{MaxSpeed: math.Sqrt2}
	f := FollowFlowField(ctx, world.DirSE)
	assert.InDelta(t, 1, f.X, eps)
	assert.InDelta(t, 1, f.Y, eps)
	assert.Equal(t, cp.Vector{}, FollowFlowField(ctx, world.DirNone))
	assert.Equal(t, cp.Vector{}, FollowFlowField(ctx, world.DirTarget))

	h := Heading(world.DirN)
	assert.InDelta(t, -1, h.Y, eps)
}

func TestBlend(t *testing.T) {
	f := Blend(
		Weighted{Force: cp.Vector{X: 1, Y: 0}, Weight: 1.5},
		Weighted{Force: cp.Vector{X: 0, Y: 2}, Weight: 2},
		Weighted{Force: cp.Vector{X: 5, Y: 5}, Weight: 0},
	)
	assert.Equal(t, cp.Vector{X: 1.5, Y: 4}, f)
}

func TestIntegrateClampsAndZeroes(t *testing.T) {
	v := Integrate(cp.Vector{}, cp.Vector{X: 30, Y: 40}, 10, 0.01)
	assert.InDelta(t, 10, v.Length(), eps)

	v = Integrate(cp.Vector{X: 0.05, Y: 0}, cp.Vector{}, 10, 0.01)
	assert.Equal(t, cp.Vector{}, v, "below the minimum velocity")

	v = Integrate(cp.Vector{X: 3, Y: 0}, cp.Vector{X: 1, Y: 0}, 10, 0.01)
	assert.Equal(t, cp.Vector{X: 4, Y: 0}, v)
}

func TestNeighborMotion(t *testing.T) {
	ctx := &Context{Neighbors: []Object{
		{Velocity: cp.Vector{X: 1, Y: 0}},
		{Velocity: cp.Vector{X: -1, Y: 0}},
	}}
	assert.InDelta(t, 0, NeighborMotion(ctx), eps)
}

func TestAverageWindow(t *testing.T) {
	a := Average{Window: 2}
	assert.Equal(t, cp.Vector{}, a.Value())
	a.Add(cp.Vector{X: 2})
	a.Add(cp.Vector{X: 4})
	assert.Equal(t, cp.Vector{X: 3}, a.Value())
	a.Add(cp.Vector{X: 10})
	assert.Equal(t, cp.Vector{X: 10}, a.Value(), "restarts after the window")
	a.Reset()
	assert.Equal(t, cp.Vector{}, a.Value())
}
