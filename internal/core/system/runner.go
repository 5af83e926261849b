package system

import (
	"time"
)

// PhaseObserver receives the wall time spent in each phase of a tick.
type PhaseObserver func(phase Phase, elapsed time.Duration)

// Runner executes systems phase by phase each tick. Systems sharing a phase
// keep their registration order.
type Runner struct {
	phases  [phaseCount][]System
	observe PhaseObserver
	ticks   uint64
}

func NewRunner() *Runner {
	return &Runner{}
}

func (r *Runner) Register(s System) {
	p := s.Phase()
	if p < 0 || p >= phaseCount {
		panic("system: phase out of range: " + p.String())
	}
	r.phases[p] = append(r.phases[p], s)
}

// Observe installs a per-phase timing callback. Phases with no systems are
// not reported.
func (r *Runner) Observe(fn PhaseObserver) { r.observe = fn }

// Len returns the number of registered systems.
func (r *Runner) Len() int {
	n := 0
	for _, group := range r.phases {
		n += len(group)
	}
	return n
}

func (r *Runner) Tick(dt time.Duration) {
	for p := Phase(0); p < phaseCount; p++ {
		r.runPhase(p, dt)
	}
	r.ticks++
}

// TickPhase runs only the systems registered for one phase. It does not
// advance the tick counter.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	if phase < 0 || phase >= phaseCount {
		return
	}
	r.runPhase(phase, dt)
}

func (r *Runner) runPhase(p Phase, dt time.Duration) {
	group := r.phases[p]
	if len(group) == 0 {
		return
	}
	var start time.Time
	if r.observe != nil {
		start = time.Now()
	}
	for _, s := range group {
		s.Update(dt)
	}
	if r.observe != nil {
		r.observe(p, time.Since(start))
	}
}

// Ticks returns the number of completed full ticks.
func (r *Runner) Ticks() uint64 { return r.ticks }
