package metrics

import (
	"math"

	"github.com/san-kum/lumasim/internal/dynamo"
)

// Tracking is the fraction of steps whose error stays inside band.
type Tracking struct {
	name    string
	band    float64
	inside  int
	samples int
}

func NewTracking(band float64) *Tracking {
	return &Tracking{
		name: "tracking",
		band: band,
	}
}

func (s *Tracking) Name() string {
	return s.name
}

func (s *Tracking) Observe(x dynamo.Sample) {
	s.samples++
	if math.Abs(x.Error) <= s.band {
		s.inside++
	}
}

func (s *Tracking) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return float64(s.inside) / float64(s.samples)
}

func (s *Tracking) Reset() {
	s.inside = 0
	s.samples = 0
}

// Saturation is the fraction of steps with a clipped output.
type Saturation struct {
	clipped int
	samples int
}

func NewSaturation() *Saturation { return &Saturation{} }

func (s *Saturation) Name() string { return "saturation" }

func (s *Saturation) Observe(x dynamo.Sample) {
	s.samples++
	if x.Saturated {
		s.clipped++
	}
}

func (s *Saturation) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.clipped) / float64(s.samples)
}

func (s *Saturation) Reset() {
	s.clipped = 0
	s.samples = 0
}
