package experiment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/lumasim/internal/dynamo"
	"github.com/san-kum/lumasim/internal/integrators"
	"github.com/san-kum/lumasim/internal/metrics"
	"github.com/san-kum/lumasim/internal/physics"
)

// Config fully describes one run. It is a value: copies share nothing but
// the scenario slices, which runs only read.
type Config struct {
	Name         string
	Integrator   string
	Substeps     int
	Tolerance    float64
	Controller   string
	ManualOutput float64
	Plant        dynamo.PlantParams
	PID          dynamo.ControllerParams
	Scenario     dynamo.Scenario
}

// Defaults fills the numerical settings left empty.
func (c Config) Defaults() Config {
	if c.Integrator == "" {
		c.Integrator = "rk4"
	}
	if c.Substeps <= 0 {
		c.Substeps = integrators.DefaultSubsteps
	}
	if c.Tolerance <= 0 {
		c.Tolerance = integrators.DefaultTolerance
	}
	if c.Controller == "" {
		c.Controller = "pid"
	}
	return c
}

type Result struct {
	Name    string
	Trace   *dynamo.Trace
	Metrics map[string]float64
	Summary metrics.Summary
}

type Experiment struct {
	cfg       Config
	registry  *Registry
	log       *zap.Logger
	simulator *dynamo.Simulator
}

func New(cfg Config, log *zap.Logger) *Experiment {
	if log == nil {
		log = zap.NewNop()
	}
	return &Experiment{
		cfg:      cfg.Defaults(),
		registry: NewRegistry(),
		log:      log,
	}
}

func (e *Experiment) Config() Config { return e.cfg }

// Setup validates the configuration and builds a fresh simulator. Nothing is
// stepped if it fails.
func (e *Experiment) Setup() error {
	if err := e.cfg.Plant.Validate(); err != nil {
		return err
	}
	if err := e.cfg.Scenario.Validate(); err != nil {
		return err
	}
	adv, err := e.registry.GetIntegrator(e.cfg)
	if err != nil {
		return err
	}
	ctrl, err := e.registry.GetController(e.cfg)
	if err != nil {
		return err
	}

	e.simulator = dynamo.New(
		physics.NewFirstOrderLag(e.cfg.Plant),
		adv,
		ctrl,
		dynamo.WithDeadTime(e.cfg.Plant.DeadTime),
		dynamo.WithLogger(e.log.With(zap.String("run", e.cfg.Name))),
	)
	return nil
}

func (e *Experiment) Run() (*Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	tr, err := e.simulator.Run(e.cfg.Scenario)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", e.cfg.Name, err)
	}

	return newResult(e.cfg.Name, tr), nil
}

func newResult(name string, tr *dynamo.Trace) *Result {
	return &Result{
		Name:    name,
		Trace:   tr,
		Metrics: metrics.Evaluate(tr, metrics.DefaultSet(tr.Grid.Dt)),
		Summary: metrics.Summarize(tr),
	}
}

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *dynamo.Simulator {
	return e.simulator
}

// Simulate runs the standard loop (PID, RK4 zero-order hold, transport
// delay) once. It keeps no state between calls.
func Simulate(grid dynamo.Grid, setpoint, disturbance []float64, plant dynamo.PlantParams, pid dynamo.ControllerParams, initial float64) (*dynamo.Trace, error) {
	e := New(Config{
		Name:  "simulate",
		Plant: plant,
		PID:   pid,
		Scenario: dynamo.Scenario{
			Grid:        grid,
			Setpoint:    setpoint,
			Disturbance: disturbance,
			Initial:     initial,
		},
	}, nil)
	if err := e.Setup(); err != nil {
		return nil, err
	}
	res, err := e.Run()
	if err != nil {
		return nil, err
	}
	return res.Trace, nil
}

// RunBatch runs independent configurations concurrently. Each gets its own
// simulator, controller and trace; results keep the input order.
func RunBatch(ctx context.Context, cfgs []Config, limit int, log *zap.Logger) ([]*Result, error) {
	exps := make([]*Experiment, len(cfgs))
	jobs := make([]dynamo.Job, len(cfgs))
	for i, cfg := range cfgs {
		exps[i] = New(cfg, log)
		if err := exps[i].Setup(); err != nil {
			return nil, fmt.Errorf("setup %s: %w", cfg.Name, err)
		}
		jobs[i] = dynamo.Job{Sim: exps[i].simulator, Scenario: exps[i].cfg.Scenario}
	}

	traces, err := dynamo.NewEnsemble(limit).Run(ctx, jobs)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, len(traces))
	for i, tr := range traces {
		results[i] = newResult(exps[i].cfg.Name, tr)
	}
	return results, nil
}
