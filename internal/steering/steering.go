// Package steering computes per-tick movement forces in pixel space. Every
// behaviour returns a velocity change (desired velocity minus current
// velocity, or a repulsion) that callers weight and sum with Blend.
package steering

import (
	"math"

	"github.com/jakecoffman/cp"

	"github.com/rtsnav/navsim/internal/world"
)

// Object is something near the agent: another agent, or the centre of a
// blocked cell.
type Object struct {
	Position cp.Vector
	Velocity cp.Vector
}

// Context is the agent's snapshot for one tick.
type Context struct {
	Position  cp.Vector
	Velocity  cp.Vector
	MaxSpeed  float64
	Neighbors []Object // other agents
	Obstacles []Object // blocked cell centres
}

// Weighted pairs a force with its blend weight.
type Weighted struct {
	Force  cp.Vector
	Weight float64
}

// Seek steers toward target at full speed.
func Seek(ctx *Context, target cp.Vector) cp.Vector {
	offset := target.Sub(ctx.Position)
	if offset.LengthSq() == 0 {
		return ctx.Velocity.Neg()
	}
	return offset.Normalize().Mult(ctx.MaxSpeed).Sub(ctx.Velocity)
}

// Arrive steers toward target, slowing down inside slowRadius and never
// asking for more than the remaining distance in one tick.
func Arrive(ctx *Context, target cp.Vector, slowRadius float64) cp.Vector {
	offset := target.Sub(ctx.Position)
	dist := offset.Length()
	if dist < 1e-6 {
		return ctx.Velocity.Neg()
	}
	speed := ctx.MaxSpeed
	if slowRadius > 0 && dist < slowRadius {
		speed *= dist / slowRadius
	}
	speed = math.Min(speed, dist)
	return offset.Mult(speed / dist).Sub(ctx.Velocity)
}

// Flee steers directly away from from.
func Flee(ctx *Context, from cp.Vector) cp.Vector {
	offset := ctx.Position.Sub(from)
	if offset.LengthSq() == 0 {
		return cp.Vector{}
	}
	return offset.Normalize().Mult(ctx.MaxSpeed).Sub(ctx.Velocity)
}

// Separate pushes away from neighbours closer than radius, each push scaled
// by how deep the neighbour sits inside the radius.
func Separate(ctx *Context, radius float64) cp.Vector {
	return repel(ctx.Position, ctx.Neighbors, radius).Mult(ctx.MaxSpeed)
}

// AvoidObstacles pushes away from blocked cell centres closer than radius.
func AvoidObstacles(ctx *Context, radius float64) cp.Vector {
	return repel(ctx.Position, ctx.Obstacles, radius).Mult(ctx.MaxSpeed)
}

func repel(pos cp.Vector, objs []Object, radius float64) cp.Vector {
	var sum cp.Vector
	if radius <= 0 {
		return sum
	}
	for i := range objs {
		away := pos.Sub(objs[i].Position)
		d := away.Length()
		if d >= radius || d < 1e-6 {
			// coincident bodies have no direction to push along
			continue
		}
		sum = sum.Add(away.Mult((radius - d) / (radius * d)))
	}
	return sum
}

// Heading returns the unit vector of an 8-way direction, zero for the
// sentinels.
func Heading(d world.Direction) cp.Vector {
	if !d.Valid() {
		return cp.Vector{}
	}
	dx, dy := d.Delta()
	return cp.Vector{X: float64(dx), Y: float64(dy)}.Normalize()
}

// FollowFlowField steers along a flow-field direction at full speed.
func FollowFlowField(ctx *Context, d world.Direction) cp.Vector {
	if !d.Valid() {
		return cp.Vector{}
	}
	return Heading(d).Mult(ctx.MaxSpeed).Sub(ctx.Velocity)
}

// Blend sums weighted forces.
func Blend(forces ...Weighted) cp.Vector {
	var sum cp.Vector
	for _, f := range forces {
		sum = sum.Add(f.Force.Mult(f.Weight))
	}
	return sum
}

// NeighborMotion returns the summed speed of the context's neighbours.
func NeighborMotion(ctx *Context) float64 {
	var sum cp.Vector
	for i := range ctx.Neighbors {
		sum = sum.Add(ctx.Neighbors[i].Velocity)
	}
	return sum.Length()
}

// Integrate applies force to velocity, clamps the result to maxSpeed and
// zeroes it when it falls under maxSpeed*minRatio.
func Integrate(velocity, force cp.Vector, maxSpeed, minRatio float64) cp.Vector {
	v := velocity.Add(force).Clamp(maxSpeed)
	if v.Length() < maxSpeed*minRatio {
		return cp.Vector{}
	}
	return v
}
