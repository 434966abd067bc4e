package control

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/lumasim/internal/dynamo"
)

var screenTuning = dynamo.ControllerParams{
	Gain:           2.0,
	IntegralTime:   5.0,
	DerivativeTime: 0.1,
	OutputLow:      0.0,
	OutputHigh:     1.0,
}

func newTestPID(t *testing.T, params dynamo.ControllerParams) *PID {
	t.Helper()
	p, err := NewPID(params)
	if err != nil {
		t.Fatalf("NewPID: %v", err)
	}
	return p
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-12 }

func TestPIDFirstStep(t *testing.T) {
	p := newTestPID(t, screenTuning)

	u, d := p.Step(0.2, 0, 0, 1)

	if !near(u, 0.4) {
		t.Errorf("expected output 0.4, got %f", u)
	}
	if d.DerivativePV != 0 || d.IntegralError != 0 {
		t.Errorf("first step must not differentiate or integrate, got dpv=%f ie=%f", d.DerivativePV, d.IntegralError)
	}
	if !near(p.Bias(), 0.4) {
		t.Errorf("expected bias fixed to first output, got %f", p.Bias())
	}
}

func TestPIDSecondStep(t *testing.T) {
	p := newTestPID(t, screenTuning)
	p.Step(0.2, 0, 0, 1)

	u, d := p.Step(0.2, 0.1, 0, 1)

	checks := []struct {
		name      string
		got, want float64
	}{
		{"error", d.Error, 0.1},
		{"dpv", d.DerivativePV, 0.1},
		{"ie", d.IntegralError, 0.1},
		{"P", d.Proportional, 0.2},
		{"I", d.Integral, 0.04},
		{"D", d.Derivative, -0.02},
		{"output", u, 0.62},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-12 {
			t.Errorf("%s: got %f, expected %f", c.name, c.got, c.want)
		}
	}
	if d.Saturated {
		t.Error("unexpected saturation")
	}
}

func TestPIDAntiWindup(t *testing.T) {
	p := newTestPID(t, screenTuning)

	u, d := p.Step(1, 0, 0, 1)
	if u != 1 || !d.Saturated {
		t.Fatalf("expected clip at op_hi, got u=%f saturated=%v", u, d.Saturated)
	}
	if !near(d.IntegralError, -1) {
		t.Errorf("clipped first step must take e*dt out of the accumulator, got %f", d.IntegralError)
	}

	before := d.IntegralError
	u, d = p.Step(1, 0, 0, 1)
	if u != 1 || !d.Saturated {
		t.Fatalf("expected clip at op_hi, got u=%f", u)
	}
	if d.IntegralError != before {
		t.Errorf("accumulator moved while pinned: %f -> %f", before, d.IntegralError)
	}
	if !near(d.Integral, 0) {
		t.Errorf("integral term is reported before the correction, got %f", d.Integral)
	}
	if !near(d.Raw, 3) {
		t.Errorf("expected raw 3, got %f", d.Raw)
	}
}

func TestPIDFirstStepSaturation(t *testing.T) {
	tests := []struct {
		name     string
		setpoint float64
		pv       float64
		dt       float64
		output   float64
	}{
		{"high", 0.8, 0, 1, 1},
		{"high short dt", 0.8, 0, 0.25, 1},
		{"low", 0, 0.5, 1, 0},
		{"low short dt", 0.2, 0.9, 0.5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPID(t, screenTuning)

			u, d := p.Step(tt.setpoint, tt.pv, 0, tt.dt)

			if u != tt.output || !d.Saturated {
				t.Fatalf("expected clip at %f, got u=%f saturated=%v", tt.output, u, d.Saturated)
			}
			e0 := tt.setpoint - tt.pv
			if !near(d.IntegralError, -e0*tt.dt) {
				t.Errorf("expected accumulator %f, got %f", -e0*tt.dt, d.IntegralError)
			}
			if !near(p.Bias(), tt.output) {
				t.Errorf("expected bias at the clipped output, got %f", p.Bias())
			}
		})
	}
}

func TestPIDLowerBound(t *testing.T) {
	p := newTestPID(t, screenTuning)

	u, d := p.Step(0, 0.5, 0, 1)
	if u != 0 || !d.Saturated {
		t.Errorf("expected clip at op_lo, got u=%f saturated=%v", u, d.Saturated)
	}
	if !near(d.IntegralError, 0.5) {
		t.Errorf("expected accumulator 0.5 after the clip, got %f", d.IntegralError)
	}

	u, d = p.Step(0, 0.5, 0, 1)
	if u != 0 || !near(d.IntegralError, 0.5) {
		t.Errorf("expected pinned output and frozen integral, got u=%f ie=%f", u, d.IntegralError)
	}
}

func TestPIDDisturbanceCompensation(t *testing.T) {
	p := newTestPID(t, screenTuning)

	_, d := p.Step(0.5, 0.6, 0.4, 1)
	if !near(d.Error, 0.3) {
		t.Errorf("expected error against pv - disturbance, got %f", d.Error)
	}
}

func TestPIDInfiniteIntegralTime(t *testing.T) {
	params := screenTuning
	params.IntegralTime = math.Inf(1)
	p := newTestPID(t, params)

	p.Step(0.2, 0, 0, 1)
	_, d := p.Step(0.2, 0, 0, 1)

	if d.Integral != 0 {
		t.Errorf("expected no integral action, got %f", d.Integral)
	}
	if !near(d.IntegralError, 0.2) {
		t.Errorf("accumulator still tracks the error, got %f", d.IntegralError)
	}
}

func TestPIDReset(t *testing.T) {
	p := newTestPID(t, screenTuning)
	first, _ := p.Step(0.2, 0, 0, 1)
	p.Step(0.2, 0.3, 0.1, 1)
	p.Step(0.3, 0.1, 0, 1)

	p.Reset()
	again, d := p.Step(0.2, 0, 0, 1)

	if again != first || d.IntegralError != 0 || d.DerivativePV != 0 {
		t.Errorf("reset did not restore the initial condition: u=%f ie=%f dpv=%f", again, d.IntegralError, d.DerivativePV)
	}
}

func TestPIDOutputBounds(t *testing.T) {
	p := newTestPID(t, screenTuning)
	pv := 0.0
	for i := 0; i < 200; i++ {
		sp := math.Sin(float64(i) / 7)
		u, _ := p.Step(sp, pv, 0, 0.5)
		if u < screenTuning.OutputLow || u > screenTuning.OutputHigh {
			t.Fatalf("step %d: output %f outside bounds", i, u)
		}
		pv += 0.5 * (u - pv)
	}
}

func TestNewPIDRejectsBadTuning(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dynamo.ControllerParams)
	}{
		{"zero tau_i", func(c *dynamo.ControllerParams) { c.IntegralTime = 0 }},
		{"negative tau_i", func(c *dynamo.ControllerParams) { c.IntegralTime = -1 }},
		{"negative tau_d", func(c *dynamo.ControllerParams) { c.DerivativeTime = -0.1 }},
		{"inverted bounds", func(c *dynamo.ControllerParams) { c.OutputLow, c.OutputHigh = 1, 0 }},
		{"equal bounds", func(c *dynamo.ControllerParams) { c.OutputLow = c.OutputHigh }},
		{"nan gain", func(c *dynamo.ControllerParams) { c.Gain = math.NaN() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := screenTuning
			tt.mutate(&params)
			if _, err := NewPID(params); !errors.Is(err, dynamo.ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestManualHoldsOutput(t *testing.T) {
	m := NewManual(0.7)
	for i := 0; i < 3; i++ {
		u, d := m.Step(0.5, float64(i), 0, 1)
		if u != 0.7 {
			t.Errorf("expected 0.7, got %f", u)
		}
		if d.Saturated {
			t.Error("manual output is never clipped")
		}
	}

	m.SetOutput(0.1)
	if u, _ := m.Step(0, 0, 0, 1); u != 0.1 {
		t.Errorf("expected 0.1 after SetOutput, got %f", u)
	}
}

func TestReferenceClampsOutput(t *testing.T) {
	r, err := NewReference(screenTuning)
	if err != nil {
		t.Fatalf("NewReference: %v", err)
	}

	for i := 0; i < 20; i++ {
		u, d := r.Step(1, 0, 0, 1)
		if u < 0 || u > 1 {
			t.Fatalf("output %f outside bounds", u)
		}
		if !d.Saturated {
			t.Errorf("step %d: a full-scale error should pin the output", i)
		}
	}
}
