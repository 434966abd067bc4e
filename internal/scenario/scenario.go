// Package scenario builds the time-indexed set-point and disturbance
// signals that drive a run.
package scenario

import (
	"fmt"

	"github.com/san-kum/lumasim/internal/dynamo"
)

type Kind string

const (
	Step Kind = "step"
	Ramp Kind = "ramp"
)

// Segment sets the signal on the step range [Start, End). End <= 0 runs to
// the end of the grid. A step holds Value; a ramp goes linearly from From to
// To and reaches To on its last sample.
type Segment struct {
	Kind  Kind    `yaml:"kind" json:"kind"`
	Start int     `yaml:"start" json:"start"`
	End   int     `yaml:"end,omitempty" json:"end,omitempty"`
	Value float64 `yaml:"value,omitempty" json:"value,omitempty"`
	From  float64 `yaml:"from,omitempty" json:"from,omitempty"`
	To    float64 `yaml:"to,omitempty" json:"to,omitempty"`
}

func (s Segment) bounds(n int) (int, int) {
	end := s.End
	if end <= 0 || end > n {
		end = n
	}
	return s.Start, end
}

func (s Segment) Validate(n int) error {
	start, end := s.bounds(n)
	if start < 0 || start >= end {
		return &dynamo.ConfigError{Field: "segment.start", Value: float64(s.Start), Reason: fmt.Sprintf("must lie in [0, %d)", end)}
	}
	switch s.Kind {
	case Step, Ramp:
	default:
		return fmt.Errorf("%w: unknown segment kind %q", dynamo.ErrConfiguration, s.Kind)
	}
	return nil
}

// Build renders segments onto a fresh slice of grid.Len() samples, zero
// elsewhere. Later segments overwrite earlier ones.
func Build(grid dynamo.Grid, segments []Segment) ([]float64, error) {
	n := grid.Len()
	out := make([]float64, n)
	for i, seg := range segments {
		if err := seg.Validate(n); err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		start, end := seg.bounds(n)
		switch seg.Kind {
		case Step:
			for k := start; k < end; k++ {
				out[k] = seg.Value
			}
		case Ramp:
			span := end - start
			for k := start; k < end; k++ {
				if span == 1 {
					out[k] = seg.To
					continue
				}
				frac := float64(k-start) / float64(span-1)
				out[k] = seg.From + (seg.To-seg.From)*frac
			}
		}
	}
	return out, nil
}

// Constant is a signal holding v on every grid point.
func Constant(grid dynamo.Grid, v float64) []float64 {
	out := make([]float64, grid.Len())
	for i := range out {
		out[i] = v
	}
	return out
}
