package physics

import (
	"math"

	"github.com/san-kum/lumasim/internal/dynamo"
)

// FirstOrderLag is the screen brightness process: a first-order lag
// driven by the actuator command. Dead time is applied upstream by the
// simulator, not here.
type FirstOrderLag struct {
	Gain         float64
	TimeConstant float64
}

func NewFirstOrderLag(p dynamo.PlantParams) *FirstOrderLag {
	return &FirstOrderLag{
		Gain:         p.Gain,
		TimeConstant: p.TimeConstant,
	}
}

func (f *FirstOrderLag) StateDim() int   { return 1 }
func (f *FirstOrderLag) ControlDim() int { return 1 }

func (f *FirstOrderLag) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	in := 0.0
	if len(u) > 0 {
		in = u[0]
	}
	return dynamo.State{Rate(x[0], in, f.Gain, f.TimeConstant)}
}

// Rate is dL/dt = (-L + Kp*u) / tauP.
func Rate(level, u, gain, timeConstant float64) float64 {
	return (-level + gain*u) / timeConstant
}

// StepResponse is the closed-form level after t under constant u from rest.
func (f *FirstOrderLag) StepResponse(u, t float64) float64 {
	return f.Gain * u * (1 - math.Exp(-t/f.TimeConstant))
}

func (f *FirstOrderLag) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp":   f.Gain,
		"tauP": f.TimeConstant,
	}
}
