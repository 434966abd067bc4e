package physics

import (
	"math"
	"testing"

	"github.com/san-kum/lumasim/internal/dynamo"
)

func TestFirstOrderLagEquilibrium(t *testing.T) {
	p := NewFirstOrderLag(dynamo.PlantParams{Gain: 2.0, TimeConstant: 5.0})

	dx := p.Derive(dynamo.State{1.0}, dynamo.Control{0.5}, 0)
	if math.Abs(dx[0]) > 1e-12 {
		t.Errorf("expected zero rate at L = Kp*u, got %f", dx[0])
	}
}

func TestFirstOrderLagRate(t *testing.T) {
	tests := []struct {
		level, u, gain, tau float64
		expected           float64
	}{
		{0, 1, 1, 5, 0.2},
		{1, 0, 1, 5, -0.2},
		{0.5, 0.5, 2, 0.5, 1.0},
		{-1, -1, 1, 1, 0},
	}

	for _, tt := range tests {
		got := Rate(tt.level, tt.u, tt.gain, tt.tau)
		if math.Abs(got-tt.expected) > 1e-12 {
			t.Errorf("Rate(%g, %g, %g, %g) = %g, expected %g", tt.level, tt.u, tt.gain, tt.tau, got, tt.expected)
		}
	}
}

func TestFirstOrderLagDimensions(t *testing.T) {
	p := NewFirstOrderLag(dynamo.PlantParams{Gain: 1, TimeConstant: 1})

	if p.StateDim() != 1 {
		t.Errorf("expected state dim 1, got %d", p.StateDim())
	}
	if p.ControlDim() != 1 {
		t.Errorf("expected control dim 1, got %d", p.ControlDim())
	}
}

func TestFirstOrderLagStepResponse(t *testing.T) {
	p := NewFirstOrderLag(dynamo.PlantParams{Gain: 1, TimeConstant: 5})

	if got := p.StepResponse(1, 5); math.Abs(got-(1-math.Exp(-1))) > 1e-12 {
		t.Errorf("expected one time constant to reach 63.2%%, got %f", got)
	}
	if got := p.StepResponse(1, 0); got != 0 {
		t.Errorf("expected zero at t=0, got %f", got)
	}
}
