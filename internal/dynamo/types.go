package dynamo

import (
	"fmt"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

type Control []float64

// System is a continuous plant: dX/dt = f(X, u, t).
type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

// Integrator takes a single explicit step of length dt.
type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(dyn System, x State, u Control, t, dt, tol float64) (State, float64, bool)
}

// Advancer moves the plant across one whole sample interval with u held
// constant (zero-order hold).
type Advancer interface {
	Advance(dyn System, x State, u Control, t, dt float64) State
}

// Diagnostics is the per-step breakdown of a control decision.
type Diagnostics struct {
	Error         float64
	IntegralError float64
	DerivativePV  float64
	Proportional  float64
	Integral      float64
	Derivative    float64
	Raw           float64
	Saturated     bool
}

// Controller produces one control sample per step. Implementations carry
// state between calls; Reset returns them to their initial condition.
type Controller interface {
	Step(setpoint, measured, disturbance, dt float64) (float64, Diagnostics)
	Reset()
}

type Configurable interface {
	GetParams() map[string]float64
}

// PlantParams describes a first-order-lag-plus-dead-time process.
type PlantParams struct {
	Gain         float64 `json:"gain" yaml:"gain"`
	TimeConstant float64 `json:"time_constant" yaml:"time_constant"`
	DeadTime     float64 `json:"dead_time" yaml:"dead_time"`
}

func (p PlantParams) Validate() error {
	if !finite(p.Gain) || p.Gain <= 0 {
		return &ConfigError{Field: "plant.gain", Value: p.Gain, Reason: "must be positive"}
	}
	if !finite(p.TimeConstant) || p.TimeConstant <= 0 {
		return &ConfigError{Field: "plant.time_constant", Value: p.TimeConstant, Reason: "must be positive"}
	}
	if !finite(p.DeadTime) || p.DeadTime < 0 {
		return &ConfigError{Field: "plant.dead_time", Value: p.DeadTime, Reason: "must be non-negative"}
	}
	return nil
}

// ControllerParams holds PID tuning in the (Kc, tauI, tauD) form.
// An infinite IntegralTime disables integral action.
type ControllerParams struct {
	Gain           float64 `json:"kc" yaml:"kc"`
	IntegralTime   float64 `json:"tau_i" yaml:"tau_i"`
	DerivativeTime float64 `json:"tau_d" yaml:"tau_d"`
	OutputLow      float64 `json:"op_lo" yaml:"op_lo"`
	OutputHigh     float64 `json:"op_hi" yaml:"op_hi"`
}

func (c ControllerParams) Validate() error {
	if !finite(c.Gain) {
		return &ConfigError{Field: "pid.kc", Value: c.Gain, Reason: "must be finite"}
	}
	if math.IsNaN(c.IntegralTime) || c.IntegralTime <= 0 {
		return &ConfigError{Field: "pid.tau_i", Value: c.IntegralTime, Reason: "must be positive or +Inf"}
	}
	if !finite(c.DerivativeTime) || c.DerivativeTime < 0 {
		return &ConfigError{Field: "pid.tau_d", Value: c.DerivativeTime, Reason: "must be non-negative"}
	}
	if !finite(c.OutputLow) || !finite(c.OutputHigh) || c.OutputLow >= c.OutputHigh {
		return &ConfigError{Field: "pid.op_lo", Value: c.OutputLow, Reason: fmt.Sprintf("must be below op_hi=%g", c.OutputHigh)}
	}
	return nil
}

// Clamp limits v to the output bounds.
func (c ControllerParams) Clamp(v float64) (float64, bool) {
	switch {
	case v > c.OutputHigh:
		return c.OutputHigh, true
	case v < c.OutputLow:
		return c.OutputLow, true
	}
	return v, false
}

// Grid is a uniform time grid of Steps+1 points starting at zero.
type Grid struct {
	Dt    float64 `json:"dt" yaml:"dt"`
	Steps int     `json:"steps" yaml:"steps"`
}

func (g Grid) Len() int { return g.Steps + 1 }

func (g Grid) Time(i int) float64 { return float64(i) * g.Dt }

func (g Grid) Times() []float64 {
	t := make([]float64, g.Len())
	for i := range t {
		t[i] = g.Time(i)
	}
	return t
}

func (g Grid) Validate() error {
	if !finite(g.Dt) || g.Dt <= 0 {
		return &ConfigError{Field: "dt", Value: g.Dt, Reason: "must be positive"}
	}
	if g.Steps < 1 {
		return &ConfigError{Field: "steps", Value: float64(g.Steps), Reason: "must be at least 1"}
	}
	return nil
}

// Scenario carries the external signals for one run, aligned to Grid.
type Scenario struct {
	Grid        Grid
	Setpoint    []float64
	Disturbance []float64
	Initial     float64
}

func (s Scenario) Validate() error {
	if err := s.Grid.Validate(); err != nil {
		return err
	}
	n := s.Grid.Len()
	if len(s.Setpoint) != n {
		return &ConfigError{Field: "setpoint", Value: float64(len(s.Setpoint)), Reason: fmt.Sprintf("length must be %d", n)}
	}
	if len(s.Disturbance) != n {
		return &ConfigError{Field: "disturbance", Value: float64(len(s.Disturbance)), Reason: fmt.Sprintf("length must be %d", n)}
	}
	if !finite(s.Initial) {
		return &ConfigError{Field: "initial_state", Value: s.Initial, Reason: "must be finite"}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
