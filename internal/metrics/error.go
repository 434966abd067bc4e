package metrics

import (
	"math"

	"github.com/san-kum/lumasim/internal/dynamo"
)

// IAE integrates |error| over time.
type IAE struct {
	dt  float64
	sum float64
}

func NewIAE(dt float64) *IAE { return &IAE{dt: dt} }

func (m *IAE) Name() string            { return "iae" }
func (m *IAE) Observe(s dynamo.Sample) { m.sum += math.Abs(s.Error) * m.dt }
func (m *IAE) Value() float64          { return m.sum }
func (m *IAE) Reset()                  { m.sum = 0 }

// ISE integrates error squared over time.
type ISE struct {
	dt  float64
	sum float64
}

func NewISE(dt float64) *ISE { return &ISE{dt: dt} }

func (m *ISE) Name() string            { return "ise" }
func (m *ISE) Observe(s dynamo.Sample) { m.sum += s.Error * s.Error * m.dt }
func (m *ISE) Value() float64          { return m.sum }
func (m *ISE) Reset()                  { m.sum = 0 }
