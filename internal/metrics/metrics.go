// Package metrics scores closed-loop traces.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/lumasim/internal/dynamo"
)

// Metric is a streaming score fed one processed step at a time.
type Metric interface {
	Name() string
	Observe(s dynamo.Sample)
	Value() float64
	Reset()
}

// DefaultSet is the score card reported for every run.
func DefaultSet(dt float64) []Metric {
	return []Metric{
		NewIAE(dt),
		NewISE(dt),
		NewControlEffort(),
		NewSaturation(),
		NewTracking(0.02),
	}
}

// Evaluate feeds every control decision of tr (the back-filled final slot
// excluded) through ms and returns the values by name.
func Evaluate(tr *dynamo.Trace, ms []Metric) map[string]float64 {
	for _, m := range ms {
		m.Reset()
	}
	for i := 0; i < tr.Len()-1; i++ {
		s := tr.Sample(i)
		for _, m := range ms {
			m.Observe(s)
		}
	}
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}

// Summary describes the envelope of a run.
type Summary struct {
	MeanError      float64 `json:"mean_error"`
	StdError       float64 `json:"std_error"`
	PeakPV         float64 `json:"peak_pv"`
	PeakStep       int     `json:"peak_step"`
	FinalPV        float64 `json:"final_pv"`
	MinOutput      float64 `json:"min_output"`
	MaxOutput      float64 `json:"max_output"`
	Overshoot      float64 `json:"overshoot"`
	SaturatedSteps int     `json:"saturated_steps"`
}

// Summarize computes the envelope statistics of tr. Overshoot is the largest
// excess of the regulated (disturbance-compensated) value over the set
// point, relative to the largest set point; zero when the set point never
// rises above zero.
func Summarize(tr *dynamo.Trace) Summary {
	last := tr.Len() - 1
	errs := tr.Error[:last]
	mean, std := stat.MeanStdDev(errs, nil)

	peakStep := floats.MaxIdx(tr.ProcessValue)

	overshoot := 0.0
	if spMax := floats.Max(tr.Setpoint); spMax > 0 {
		excess := make([]float64, tr.Len())
		for i := range excess {
			excess[i] = tr.Relative(i) - tr.Setpoint[i]
		}
		if e := floats.Max(excess); e > 0 {
			overshoot = e / spMax
		}
	}

	return Summary{
		MeanError:      mean,
		StdError:       std,
		PeakPV:         tr.ProcessValue[peakStep],
		PeakStep:       peakStep,
		FinalPV:        tr.ProcessValue[last],
		MinOutput:      floats.Min(tr.ControlOutput),
		MaxOutput:      floats.Max(tr.ControlOutput),
		Overshoot:      overshoot,
		SaturatedSteps: tr.SaturationCount(),
	}
}

// Finite reports whether every field can be encoded as JSON. A one-step run
// has no sample deviation.
func (s Summary) Finite() bool {
	for _, v := range []float64{s.MeanError, s.StdError, s.PeakPV, s.FinalPV, s.MinOutput, s.MaxOutput, s.Overshoot} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
