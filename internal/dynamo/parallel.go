package dynamo

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Job pairs a simulator with the scenario it should run. Each job must own
// its simulator; runs share nothing.
type Job struct {
	Sim      *Simulator
	Scenario Scenario
}

// Ensemble runs independent jobs concurrently, at most limit at a time
// (limit <= 0 means unbounded). Results keep the order of jobs. The first
// failure cancels jobs that have not started yet.
type Ensemble struct {
	limit int
}

func NewEnsemble(limit int) *Ensemble {
	return &Ensemble{limit: limit}
}

func (e *Ensemble) Run(ctx context.Context, jobs []Job) ([]*Trace, error) {
	results := make([]*Trace, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tr, err := job.Sim.Run(job.Scenario)
			if err != nil {
				return err
			}
			results[i] = tr
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
