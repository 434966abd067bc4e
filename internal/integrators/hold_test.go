package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/lumasim/internal/dynamo"
)

func exactLag(x0, u, tau, t float64) float64 {
	return u + (x0-u)*math.Exp(-t/tau)
}

func TestHoldMatchesExponential(t *testing.T) {
	tests := []struct {
		name     string
		adv      dynamo.Advancer
		tol      float64
		interval float64
	}{
		{"rk4 x1", NewHold(NewRK4(), 1), 1e-5, 1.0},
		{"rk4 x10", NewHold(NewRK4(), 10), 1e-9, 1.0},
		{"euler x100", NewHold(NewEuler(), 100), 5e-3, 1.0},
		{"adaptive", NewAdaptiveHold(1e-10), 1e-8, 1.0},
		{"adaptive long interval", NewAdaptiveHold(1e-10), 1e-8, 7.5},
	}

	dyn := &lag{tau: 5}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := dynamo.State{0.25}
			got := tt.adv.Advance(dyn, x, dynamo.Control{0.8}, 0, tt.interval)
			want := exactLag(0.25, 0.8, 5, tt.interval)

			if math.Abs(got[0]-want) > tt.tol {
				t.Errorf("got %.10f, expected %.10f", got[0], want)
			}
		})
	}
}

func TestHoldSubstepsClamped(t *testing.T) {
	h := NewHold(NewRK4(), 0)
	if h.Substeps() != 1 {
		t.Errorf("expected 1 substep, got %d", h.Substeps())
	}
}

func TestHoldZeroInputStaysAtRest(t *testing.T) {
	for _, adv := range []dynamo.Advancer{NewHold(NewRK4(), 4), NewAdaptiveHold(0)} {
		x := adv.Advance(&lag{tau: 5}, dynamo.State{0}, dynamo.Control{0}, 0, 1)
		if x[0] != 0 {
			t.Errorf("%T: expected exact zero, got %g", adv, x[0])
		}
	}
}

func TestRK45AdaptiveStep(t *testing.T) {
	integrator := NewRK45()
	x0 := dynamo.State{1.0, 0.0}

	x, newDt, ok := integrator.StepAdaptive(&harmonicOscillator{}, x0, nil, 0, 0.1, 1e-8)

	if !x.IsValid() {
		t.Error("StepAdaptive produced invalid state")
	}
	if newDt <= 0 {
		t.Errorf("StepAdaptive returned invalid dt: %f", newDt)
	}
	if ok && newDt < 0.1*0.2 {
		t.Errorf("accepted step should not shrink below min scale, got %f", newDt)
	}
}

func BenchmarkHoldRK4(b *testing.B) {
	h := NewHold(NewRK4(), DefaultSubsteps)
	dyn := &lag{tau: 5}
	x := dynamo.State{0}
	u := dynamo.Control{1}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = h.Advance(dyn, x, u, 0, 1)
	}
}

func BenchmarkAdaptiveHold(b *testing.B) {
	h := NewAdaptiveHold(DefaultTolerance)
	dyn := &lag{tau: 5}
	x := dynamo.State{0}
	u := dynamo.Control{1}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = h.Advance(dyn, x, u, 0, 1)
	}
}
