package dynamo

import "math"

// Delay maps a simulation step to the index of the control sample that
// reaches the plant on that step.
type Delay interface {
	Index(step int) int
}

// TransportDelay is a pure dead time realized as a whole-sample shift.
type TransportDelay struct {
	Steps int
}

// NewTransportDelay rounds theta/dt up to whole samples. A relative slack of
// 1e-9 keeps exact multiples of dt from rounding one sample too far.
func NewTransportDelay(theta, dt float64) TransportDelay {
	return TransportDelay{Steps: delaySteps(theta, dt)}
}

// Index returns max(0, step-Steps), never beyond step itself.
func (d TransportDelay) Index(step int) int {
	j := step - d.Steps
	if j < 0 {
		return 0
	}
	if j > step {
		return step
	}
	return j
}

// EffectiveControlIndex is the functional form of TransportDelay.Index.
func EffectiveControlIndex(step int, theta, dt float64) int {
	return NewTransportDelay(theta, dt).Index(step)
}

func delaySteps(theta, dt float64) int {
	if theta <= 0 || dt <= 0 {
		return 0
	}
	r := theta / dt
	n := math.Ceil(r - 1e-9*math.Max(1, r))
	if n < 0 {
		return 0
	}
	return int(n)
}
