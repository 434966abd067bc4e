package dynamo_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/lumasim/internal/dynamo"
)

// decay is dx/dt = u - x.
type decay struct{}

func (decay) StateDim() int   { return 1 }
func (decay) ControlDim() int { return 1 }
func (decay) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{u[0] - x[0]}
}

type twoState struct{ decay }

func (twoState) StateDim() int { return 2 }

type euler struct{}

func (euler) Advance(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	dx := dyn.Derive(x, u, t)
	return dynamo.State{x[0] + dt*dx[0]}
}

// blowUp returns NaN from step failAt onwards.
type blowUp struct {
	failAt int
	calls  int
}

func (b *blowUp) Advance(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	b.calls++
	if b.calls > b.failAt {
		return dynamo.State{math.Inf(1)}
	}
	return x.Clone()
}

// ramp emits 0, 1, 2, ... and flags every third step as saturated.
type ramp struct {
	n      int
	resets int
}

func (r *ramp) Step(setpoint, measured, disturbance, dt float64) (float64, dynamo.Diagnostics) {
	u := float64(r.n)
	r.n++
	return u, dynamo.Diagnostics{
		Error:         setpoint - (measured - disturbance),
		IntegralError: u * 10,
		Saturated:     int(u)%3 == 0,
	}
}

func (r *ramp) Reset() {
	r.n = 0
	r.resets++
}

type recorder struct{ steps []int }

func (r *recorder) OnStep(s dynamo.Sample) { r.steps = append(r.steps, s.Index) }

func scenarioOf(steps int, dt float64) dynamo.Scenario {
	g := dynamo.Grid{Dt: dt, Steps: steps}
	return dynamo.Scenario{
		Grid:        g,
		Setpoint:    make([]float64, g.Len()),
		Disturbance: make([]float64, g.Len()),
	}
}

var _ = Describe("Simulator", func() {
	var ctrl *ramp

	BeforeEach(func() {
		ctrl = &ramp{}
	})

	It("allocates every column at step_count+1", func() {
		tr, err := dynamo.New(decay{}, euler{}, ctrl).Run(scenarioOf(10, 0.1))
		Expect(err).NotTo(HaveOccurred())

		Expect(tr.Len()).To(Equal(11))
		Expect(tr.ProcessValue).To(HaveLen(11))
		Expect(tr.ControlOutput).To(HaveLen(11))
		Expect(tr.IntegralError).To(HaveLen(11))
		Expect(tr.Saturated).To(HaveLen(11))
		Expect(tr.Times[10]).To(BeNumerically("~", 1.0, 1e-12))
	})

	It("back-fills the final slot from the previous step", func() {
		tr, err := dynamo.New(decay{}, euler{}, ctrl).Run(scenarioOf(5, 1))
		Expect(err).NotTo(HaveOccurred())

		Expect(tr.ControlOutput).To(Equal([]float64{0, 1, 2, 3, 4, 4}))
		Expect(tr.IntegralError[5]).To(Equal(tr.IntegralError[4]))
		Expect(tr.Saturated[5]).To(Equal(tr.Saturated[4]))
		Expect(tr.Applied[5]).To(Equal(tr.Applied[4]))
	})

	It("drives the plant with the delayed control sample", func() {
		s := dynamo.New(decay{}, euler{}, ctrl, dynamo.WithDeadTime(2))
		tr, err := s.Run(scenarioOf(6, 1))
		Expect(err).NotTo(HaveOccurred())

		Expect(tr.Applied[:6]).To(Equal([]float64{0, 0, 0, 1, 2, 3}))
	})

	It("accepts a replacement delay policy", func() {
		s := dynamo.New(decay{}, euler{}, ctrl, dynamo.WithDelay(dynamo.TransportDelay{Steps: 1}), dynamo.WithDeadTime(10))
		tr, err := s.Run(scenarioOf(4, 1))
		Expect(err).NotTo(HaveOccurred())

		Expect(tr.Applied[:4]).To(Equal([]float64{0, 0, 1, 2}))
	})

	It("starts the plant at the initial state", func() {
		sc := scenarioOf(3, 1)
		sc.Initial = 0.75
		tr, err := dynamo.New(decay{}, euler{}, dynamo.Controller(&ramp{})).Run(sc)
		Expect(err).NotTo(HaveOccurred())

		Expect(tr.ProcessValue[0]).To(Equal(0.75))
		Expect(tr.Error[0]).To(Equal(-0.75))
	})

	It("resets the controller so repeated runs match", func() {
		s := dynamo.New(decay{}, euler{}, ctrl)
		a, err := s.Run(scenarioOf(8, 0.5))
		Expect(err).NotTo(HaveOccurred())
		b, err := s.Run(scenarioOf(8, 0.5))
		Expect(err).NotTo(HaveOccurred())

		Expect(ctrl.resets).To(Equal(2))
		Expect(b).To(Equal(a))
	})

	It("notifies observers in time order", func() {
		rec := &recorder{}
		_, err := dynamo.New(decay{}, euler{}, ctrl, dynamo.WithObserver(rec)).Run(scenarioOf(4, 1))
		Expect(err).NotTo(HaveOccurred())

		Expect(rec.steps).To(Equal([]int{0, 1, 2, 3}))
	})

	It("counts saturated control decisions", func() {
		tr, err := dynamo.New(decay{}, euler{}, ctrl).Run(scenarioOf(7, 1))
		Expect(err).NotTo(HaveOccurred())

		// outputs 0..6, saturated on 0, 3, 6
		Expect(tr.SaturationCount()).To(Equal(3))
	})

	Context("with a diverging integrator", func() {
		It("aborts at the offending step", func() {
			_, err := dynamo.New(decay{}, &blowUp{failAt: 3}, ctrl).Run(scenarioOf(10, 0.5))

			Expect(err).To(MatchError(dynamo.ErrNumerical))
			var simErr *dynamo.SimulationError
			Expect(errors.As(err, &simErr)).To(BeTrue())
			Expect(simErr.Step).To(Equal(3))
			Expect(simErr.Time).To(BeNumerically("~", 1.5, 1e-12))
			Expect(simErr.Input).To(Equal(3.0))
		})
	})

	Context("with invalid input", func() {
		It("rejects a non-SISO plant before stepping", func() {
			_, err := dynamo.New(twoState{}, euler{}, ctrl).Run(scenarioOf(3, 1))

			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
			Expect(ctrl.n).To(BeZero())
		})

		DescribeTable("rejects the scenario",
			func(mutate func(*dynamo.Scenario)) {
				sc := scenarioOf(5, 1)
				mutate(&sc)
				_, err := dynamo.New(decay{}, euler{}, ctrl).Run(sc)

				Expect(err).To(MatchError(dynamo.ErrConfiguration))
				Expect(ctrl.n).To(BeZero())
			},
			Entry("zero dt", func(s *dynamo.Scenario) { s.Grid.Dt = 0 }),
			Entry("negative dt", func(s *dynamo.Scenario) { s.Grid.Dt = -1 }),
			Entry("no steps", func(s *dynamo.Scenario) { s.Grid.Steps = 0 }),
			Entry("short set point", func(s *dynamo.Scenario) { s.Setpoint = s.Setpoint[:3] }),
			Entry("long disturbance", func(s *dynamo.Scenario) { s.Disturbance = append(s.Disturbance, 0) }),
			Entry("nan initial state", func(s *dynamo.Scenario) { s.Initial = math.NaN() }),
		)
	})
})

var _ = Describe("Parameter validation", func() {
	It("accepts the screen brightness plant", func() {
		Expect(dynamo.PlantParams{Gain: 1, TimeConstant: 5, DeadTime: 0.5}.Validate()).To(Succeed())
	})

	It("accepts an infinite integral time", func() {
		p := dynamo.ControllerParams{Gain: 2, IntegralTime: math.Inf(1), OutputHigh: 1}
		Expect(p.Validate()).To(Succeed())
	})

	It("names the offending field", func() {
		err := dynamo.PlantParams{Gain: 1, TimeConstant: 0}.Validate()

		var cfgErr *dynamo.ConfigError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
		Expect(cfgErr.Field).To(Equal("plant.time_constant"))
	})

	It("clamps into the output bounds", func() {
		p := dynamo.ControllerParams{OutputLow: -1, OutputHigh: 1}

		v, clipped := p.Clamp(2)
		Expect(v).To(Equal(1.0))
		Expect(clipped).To(BeTrue())

		v, clipped = p.Clamp(-3)
		Expect(v).To(Equal(-1.0))
		Expect(clipped).To(BeTrue())

		v, clipped = p.Clamp(0.5)
		Expect(v).To(Equal(0.5))
		Expect(clipped).To(BeFalse())
	})
})

var _ = Describe("Ensemble", func() {
	It("runs independent jobs and keeps their order", func() {
		jobs := make([]dynamo.Job, 4)
		for i := range jobs {
			sc := scenarioOf(5+i, 1)
			jobs[i] = dynamo.Job{Sim: dynamo.New(decay{}, euler{}, &ramp{}), Scenario: sc}
		}

		traces, err := dynamo.NewEnsemble(2).Run(context.Background(), jobs)
		Expect(err).NotTo(HaveOccurred())

		Expect(traces).To(HaveLen(4))
		for i, tr := range traces {
			Expect(tr.Len()).To(Equal(6 + i))
		}
	})

	It("returns the first failure", func() {
		jobs := []dynamo.Job{
			{Sim: dynamo.New(decay{}, euler{}, &ramp{}), Scenario: scenarioOf(5, 1)},
			{Sim: dynamo.New(decay{}, &blowUp{failAt: 1}, &ramp{}), Scenario: scenarioOf(5, 1)},
		}

		_, err := dynamo.NewEnsemble(0).Run(context.Background(), jobs)
		Expect(err).To(MatchError(dynamo.ErrNumerical))
	})
})
