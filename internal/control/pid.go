package control

import "github.com/san-kum/lumasim/internal/dynamo"

type phase uint8

const (
	// awaitingFirst: no previous measurement and no bias yet.
	awaitingFirst phase = iota
	tracking
)

// PID is a positional PID in automatic mode with output clamping and
// anti-reset windup. Derivative action is on the measurement, and the
// error is formed against the disturbance-compensated measurement.
type PID struct {
	params dynamo.ControllerParams

	phase    phase
	integral float64
	prevPV   float64
	bias     float64
}

// NewPID validates params once; the controller never re-checks them.
func NewPID(params dynamo.ControllerParams) (*PID, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &PID{params: params}, nil
}

func (p *PID) Params() dynamo.ControllerParams { return p.params }

// Step computes one control sample. On the first call after Reset there is
// no previous measurement: the derivative and the integral increment are
// both zero, and the saturated output becomes the bias for every later step.
// A clipped output always takes e*dt back out of the accumulator, so a first
// step that saturates leaves it at -e*dt.
func (p *PID) Step(setpoint, measured, disturbance, dt float64) (float64, dynamo.Diagnostics) {
	e := setpoint - (measured - disturbance)

	var dpv, inc float64
	switch p.phase {
	case awaitingFirst:
		p.integral = 0
	case tracking:
		dpv = (measured - p.prevPV) / dt
		inc = e * dt
	}
	p.integral += inc

	kc := p.params.Gain
	prop := kc * e
	integ := kc / p.params.IntegralTime * p.integral
	deriv := -kc * p.params.DerivativeTime * dpv

	raw := p.bias + prop + integ + deriv
	out, clipped := p.params.Clamp(raw)
	if clipped {
		p.integral -= e * dt
	}

	if p.phase == awaitingFirst {
		p.bias = out
		p.phase = tracking
	}
	p.prevPV = measured

	return out, dynamo.Diagnostics{
		Error:         e,
		IntegralError: p.integral,
		DerivativePV:  dpv,
		Proportional:  prop,
		Integral:      integ,
		Derivative:    deriv,
		Raw:           raw,
		Saturated:     clipped,
	}
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.phase = awaitingFirst
	p.integral = 0
	p.prevPV = 0
	p.bias = 0
}

// Bias is the nominal output fixed by the first step, zero before it.
func (p *PID) Bias() float64 { return p.bias }

// GetParams returns the tuning for display and search
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"Kc":   p.params.Gain,
		"tauI": p.params.IntegralTime,
		"tauD": p.params.DerivativeTime,
		"OPlo": p.params.OutputLow,
		"OPhi": p.params.OutputHigh,
	}
}
