package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/lumasim/internal/dynamo"
)

var ErrTooShort = errors.New("analysis: need at least 8 samples")

// Peak is the strongest non-DC component of a signal.
type Peak struct {
	Frequency float64 `json:"frequency"`
	Period    float64 `json:"period"`
	Amplitude float64 `json:"amplitude"`
}

// Spectrum returns the one-sided amplitude spectrum of x sampled every dt,
// with the mean removed and a Hann window applied. A sinusoid that fits the
// record exactly shows its own amplitude at its bin.
func Spectrum(x []float64, dt float64) (freqs, amps []float64, err error) {
	n := len(x)
	if n < 8 {
		return nil, nil, ErrTooShort
	}

	buf := make([]float64, n)
	copy(buf, x)
	floats.AddConst(-stat.Mean(buf, nil), buf)

	w := window.Hann(n)
	gain := floats.Sum(w)
	floats.Mul(buf, w)

	coeffs := fft.FFTReal(buf)
	half := n/2 + 1
	freqs = make([]float64, half)
	amps = make([]float64, half)
	for k := 0; k < half; k++ {
		freqs[k] = float64(k) / (float64(n) * dt)
		amps[k] = 2 * cmplx.Abs(coeffs[k]) / gain
	}
	return freqs, amps, nil
}

// DominantPeak finds the largest bin above DC.
func DominantPeak(x []float64, dt float64) (Peak, error) {
	freqs, amps, err := Spectrum(x, dt)
	if err != nil {
		return Peak{}, err
	}
	k := 1 + floats.MaxIdx(amps[1:])
	return Peak{
		Frequency: freqs[k],
		Period:    1 / freqs[k],
		Amplitude: amps[k],
	}, nil
}

// Oscillation is the dominant peak of the control error over the last
// fraction of tr (0 < tail <= 1). The final back-filled slot is excluded.
func Oscillation(tr *dynamo.Trace, tail float64) (Peak, error) {
	if tail <= 0 || tail > 1 || math.IsNaN(tail) {
		tail = 1
	}
	last := tr.Len() - 1
	start := last - int(math.Round(tail*float64(last)))
	return DominantPeak(tr.Error[start:last], tr.Grid.Dt)
}

// Sustained reports whether the peak amplitude exceeds threshold, i.e. the
// loop is still cycling rather than settling.
func (p Peak) Sustained(threshold float64) bool {
	return p.Amplitude > threshold
}
