// Package actuator puts controller output on a CAN bus so a trace can drive
// a real or virtual brightness actuator.
package actuator

import (
	"fmt"
	"math"

	"go.einride.tech/can"

	"github.com/san-kum/lumasim/internal/dynamo"
)

// DefaultFrameID is the brightness command frame.
const DefaultFrameID uint32 = 0x210

// Frame layout, little endian:
//
//	bits  0-15  op, unsigned, scaled over [Low, High]
//	bits 16-31  pv, signed, 1e-4 per bit
//	bits 32-47  set point, signed, 1e-4 per bit
//	bit     48  saturated
//	bits 56-63  rolling counter
const (
	levelFactor = 1e-4
	frameLength = 8
)

// Command is the decoded content of one frame.
type Command struct {
	Output    float64
	PV        float64
	Setpoint  float64
	Saturated bool
	Counter   uint8
}

type Codec struct {
	ID   uint32
	Low  float64
	High float64
}

func NewCodec(id uint32, lo, hi float64) (Codec, error) {
	if !(lo < hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return Codec{}, fmt.Errorf("%w: output range [%g, %g]", dynamo.ErrConfiguration, lo, hi)
	}
	if id > can.MaxID {
		return Codec{}, fmt.Errorf("%w: frame id 0x%X exceeds standard range", dynamo.ErrConfiguration, id)
	}
	return Codec{ID: id, Low: lo, High: hi}, nil
}

func (c Codec) outputFactor() float64 {
	return (c.High - c.Low) / math.MaxUint16
}

// Encode packs s into a frame. Values outside the representable range are
// clamped.
func (c Codec) Encode(s dynamo.Sample, counter uint8) can.Frame {
	f := can.Frame{ID: c.ID, Length: frameLength}

	op := math.Round((s.ControlOutput - c.Low) / c.outputFactor())
	f.Data.SetUnsignedBitsLittleEndian(0, 16, uint64(clamp(op, 0, math.MaxUint16)))
	f.Data.SetSignedBitsLittleEndian(16, 16, level(s.ProcessValue))
	f.Data.SetSignedBitsLittleEndian(32, 16, level(s.Setpoint))
	f.Data.SetBit(48, s.Saturated)
	f.Data.SetUnsignedBitsLittleEndian(56, 8, uint64(counter))
	return f
}

func (c Codec) Decode(f can.Frame) (Command, error) {
	if f.ID != c.ID {
		return Command{}, fmt.Errorf("unexpected frame id 0x%X, want 0x%X", f.ID, c.ID)
	}
	if f.Length != frameLength {
		return Command{}, fmt.Errorf("frame 0x%X expects DLC %d, got %d", f.ID, frameLength, f.Length)
	}
	return Command{
		Output:    c.Low + float64(f.Data.UnsignedBitsLittleEndian(0, 16))*c.outputFactor(),
		PV:        float64(f.Data.SignedBitsLittleEndian(16, 16)) * levelFactor,
		Setpoint:  float64(f.Data.SignedBitsLittleEndian(32, 16)) * levelFactor,
		Saturated: f.Data.Bit(48),
		Counter:   uint8(f.Data.UnsignedBitsLittleEndian(56, 8)),
	}, nil
}

func level(v float64) int64 {
	return int64(clamp(math.Round(v/levelFactor), math.MinInt16, math.MaxInt16))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
