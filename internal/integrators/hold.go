package integrators

import (
	"math"

	"github.com/san-kum/lumasim/internal/dynamo"
)

const (
	DefaultSubsteps  = 10
	DefaultTolerance = 1e-8
)

// Hold advances a plant across one sample interval with the input held
// constant, using a fixed number of equal sub-steps of an explicit stepper.
type Hold struct {
	stepper  dynamo.Integrator
	substeps int
}

func NewHold(stepper dynamo.Integrator, substeps int) *Hold {
	if substeps < 1 {
		substeps = 1
	}
	return &Hold{stepper: stepper, substeps: substeps}
}

func (h *Hold) Substeps() int { return h.substeps }

func (h *Hold) Advance(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	step := dt / float64(h.substeps)
	for k := 0; k < h.substeps; k++ {
		x = h.stepper.Step(dyn, x, u, t+float64(k)*step, step)
	}
	return x
}

// AdaptiveHold integrates one sample interval with Dormand-Prince step
// control, never stepping past the end of the interval.
type AdaptiveHold struct {
	rk       *RK45
	tol      float64
	minStep  float64
	maxSteps int
}

func NewAdaptiveHold(tol float64) *AdaptiveHold {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	return &AdaptiveHold{
		rk:       NewRK45(),
		tol:      tol,
		minStep:  1e-9,
		maxSteps: 10000,
	}
}

// Advance returns a NaN state if the interval cannot be covered within the
// step budget, so the caller treats it as a numerical failure.
func (a *AdaptiveHold) Advance(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	remaining := dt
	cur := t
	h := dt
	minStep := a.minStep * dt

	for i := 0; i < a.maxSteps; i++ {
		if remaining <= dt*1e-12 {
			return x
		}
		if h > remaining {
			h = remaining
		}

		next, suggested, ok := a.rk.StepAdaptive(dyn, x, u, cur, h, a.tol)
		if !next.IsValid() {
			return next
		}
		if ok || h <= minStep {
			x = next
			cur += h
			remaining -= h
		}
		h = math.Max(suggested, minStep)
	}

	nan := make(dynamo.State, len(x))
	for i := range nan {
		nan[i] = math.NaN()
	}
	return nan
}
