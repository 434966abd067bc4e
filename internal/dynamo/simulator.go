package dynamo

import (
	"fmt"

	"go.uber.org/zap"
)

type Simulator struct {
	plant      System
	advancer   Advancer
	controller Controller
	delay      Delay
	deadTime   float64
	observers  []Observer
	log        *zap.Logger
}

// Observer sees every processed step in time order.
type Observer interface {
	OnStep(s Sample)
}

type Option func(*Simulator)

func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.log = l
		}
	}
}

// WithDeadTime sets the transport delay; the step count is derived from the
// scenario's dt at run time.
func WithDeadTime(theta float64) Option {
	return func(s *Simulator) { s.deadTime = theta }
}

// WithDelay replaces the transport delay policy.
func WithDelay(d Delay) Option {
	return func(s *Simulator) { s.delay = d }
}

func WithObserver(o Observer) Option {
	return func(s *Simulator) { s.observers = append(s.observers, o) }
}

func New(plant System, adv Advancer, ctrl Controller, opts ...Option) *Simulator {
	s := &Simulator{
		plant:      plant,
		advancer:   adv,
		controller: ctrl,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one closed-loop run. The controller is reset first, so the
// returned trace depends only on sc and the simulator's components.
func (s *Simulator) Run(sc Scenario) (*Trace, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if s.plant.StateDim() != 1 || s.plant.ControlDim() != 1 {
		return nil, fmt.Errorf("plant must be SISO, got state=%d control=%d: %w",
			s.plant.StateDim(), s.plant.ControlDim(), ErrDimensionMismatch)
	}

	delay := s.delay
	if delay == nil {
		delay = NewTransportDelay(s.deadTime, sc.Grid.Dt)
	}

	dt := sc.Grid.Dt
	steps := sc.Grid.Steps
	tr := NewTrace(sc)
	s.controller.Reset()

	x := State{sc.Initial}
	tr.ProcessValue[0] = sc.Initial
	clipped := false

	s.log.Debug("run started",
		zap.Int("steps", steps),
		zap.Float64("dt", dt),
		zap.Float64("initial", sc.Initial))

	for i := 0; i < steps; i++ {
		out, diag := s.controller.Step(sc.Setpoint[i], tr.ProcessValue[i], sc.Disturbance[i], dt)
		tr.record(i, out, diag)

		if diag.Saturated != clipped {
			clipped = diag.Saturated
			s.log.Debug("saturation changed",
				zap.Int("step", i),
				zap.Bool("saturated", clipped),
				zap.Float64("raw", diag.Raw),
				zap.Float64("output", out))
		}

		u := tr.ControlOutput[delay.Index(i)]
		tr.Applied[i] = u

		t := sc.Grid.Time(i)
		next := s.advancer.Advance(s.plant, x, Control{u}, t, dt)
		if len(next) != 1 || !next.IsValid() {
			err := &SimulationError{Step: i, Time: t, State: next, Input: u, Wrapped: ErrNumerical}
			s.log.Warn("run aborted", zap.Error(err))
			return nil, err
		}
		x = next
		tr.ProcessValue[i+1] = x[0]

		for _, obs := range s.observers {
			obs.OnStep(tr.Sample(i))
		}
	}

	tr.backfill()
	s.log.Debug("run finished",
		zap.Int("saturated_steps", tr.SaturationCount()),
		zap.Float64("final_pv", tr.ProcessValue[steps]))
	return tr, nil
}
