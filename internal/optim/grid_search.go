// Package optim searches PID tunings against a scored closed-loop run.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/lumasim/internal/dynamo"
	"github.com/san-kum/lumasim/internal/experiment"
)

// Tunable parameter names.
const (
	ParamGain           = "kc"
	ParamIntegralTime   = "tau_i"
	ParamDerivativeTime = "tau_d"
)

// Apply sets the named tuning parameter on p.
func Apply(p dynamo.ControllerParams, name string, v float64) (dynamo.ControllerParams, error) {
	switch name {
	case ParamGain:
		p.Gain = v
	case ParamIntegralTime:
		p.IntegralTime = v
	case ParamDerivativeTime:
		p.DerivativeTime = v
	default:
		return p, fmt.Errorf("%w: unknown tuning parameter %q", dynamo.ErrConfiguration, name)
	}
	return p, nil
}

// Objective names the metric to optimize. Lower is better unless Maximize.
type Objective struct {
	Metric   string
	Maximize bool
}

func (o Objective) better(a, b float64) bool {
	if o.Maximize {
		return a > b
	}
	return a < b
}

type Candidate struct {
	Params map[string]float64
	Score  float64
}

type Outcome struct {
	Best       Candidate
	Candidates []Candidate
	Skipped    int
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	limit      int
	log        *zap.Logger
	run        func(experiment.Config) (*experiment.Result, error)
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	g := &GridSearch{paramNames: params, ranges: ranges, log: zap.NewNop()}
	g.run = g.runOne
	return g
}

func (g *GridSearch) runOne(cfg experiment.Config) (*experiment.Result, error) {
	e := experiment.New(cfg, g.log)
	if err := e.Setup(); err != nil {
		return nil, fmt.Errorf("setup %s: %w", cfg.Name, err)
	}
	return e.Run()
}

// WithLimit bounds the number of concurrent runs.
func (g *GridSearch) WithLimit(n int) *GridSearch {
	g.limit = n
	return g
}

func (g *GridSearch) WithLogger(l *zap.Logger) *GridSearch {
	if l != nil {
		g.log = l
	}
	return g
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search runs base once per grid point with the tuning overridden and
// returns the best point. Points whose tuning fails validation or whose run
// fails numerically are skipped; any other failure aborts the search.
// Candidates are sorted best first; ties keep grid order.
func (g *GridSearch) Search(ctx context.Context, base experiment.Config, obj Objective) (*Outcome, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, fmt.Errorf("%w: %d parameters but %d ranges", dynamo.ErrConfiguration, len(g.paramNames), len(g.ranges))
	}

	var points []map[string]float64
	g.searchRecursive(0, make(map[string]float64), &points)

	var cfgs []experiment.Config
	var kept []map[string]float64
	skipped := 0
	for i, p := range points {
		cfg := base
		cfg.Name = fmt.Sprintf("%s#%d", base.Name, i)
		for _, name := range g.paramNames {
			var err error
			if cfg.PID, err = Apply(cfg.PID, name, p[name]); err != nil {
				return nil, err
			}
		}
		if err := cfg.PID.Validate(); err != nil {
			g.log.Debug("skipping grid point", zap.Any("params", p), zap.Error(err))
			skipped++
			continue
		}
		cfgs = append(cfgs, cfg)
		kept = append(kept, p)
	}
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("%w: no valid grid points", dynamo.ErrConfiguration)
	}

	results := make([]*experiment.Result, len(cfgs))
	eg, ctx := errgroup.WithContext(ctx)
	if g.limit > 0 {
		eg.SetLimit(g.limit)
	}
	for i, cfg := range cfgs {
		i, cfg := i, cfg
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := g.run(cfg)
			if errors.Is(err, dynamo.ErrNumerical) {
				g.log.Debug("grid point diverged", zap.Any("params", kept[i]), zap.Error(err))
				return nil
			}
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := &Outcome{Skipped: skipped}
	for i, res := range results {
		if res == nil {
			out.Skipped++
			continue
		}
		score, ok := res.Metrics[obj.Metric]
		if !ok {
			return nil, fmt.Errorf("%w: unknown metric %q", dynamo.ErrConfiguration, obj.Metric)
		}
		if math.IsNaN(score) {
			score = math.Inf(1)
			if obj.Maximize {
				score = math.Inf(-1)
			}
		}
		out.Candidates = append(out.Candidates, Candidate{Params: kept[i], Score: score})
	}
	if len(out.Candidates) == 0 {
		return nil, fmt.Errorf("%w: every grid point diverged", dynamo.ErrNumerical)
	}

	sort.SliceStable(out.Candidates, func(i, j int) bool {
		return obj.better(out.Candidates[i].Score, out.Candidates[j].Score)
	})
	out.Best = out.Candidates[0]

	g.log.Info("grid search finished",
		zap.Int("points", len(points)),
		zap.Int("skipped", out.Skipped),
		zap.String("metric", obj.Metric),
		zap.Float64("best", out.Best.Score),
		zap.Any("params", out.Best.Params))
	return out, nil
}

func (g *GridSearch) searchRecursive(depth int, current map[string]float64, points *[]map[string]float64) {
	if depth == len(g.paramNames) {
		*points = append(*points, current)
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		g.searchRecursive(depth+1, newParams, points)
	}
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}
