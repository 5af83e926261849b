package steering

import "github.com/jakecoffman/cp"

// Average is a running mean of recent velocities. It restarts from the latest
// sample once Window samples have been taken, so the mean tracks fresh
// motion instead of the whole history.
type Average struct {
	Window int
	sum    cp.Vector
	count  int
}

func (a *Average) Add(v cp.Vector) {
	if a.count >= max(a.Window, 1) {
		a.sum = v
		a.count = 1
		return
	}
	a.sum = a.sum.Add(v)
	a.count++
}

func (a *Average) Value() cp.Vector {
	if a.count == 0 {
		return cp.Vector{}
	}
	return a.sum.Mult(1 / float64(a.count))
}

func (a *Average) Reset() {
	a.sum = cp.Vector{}
	a.count = 0
}
