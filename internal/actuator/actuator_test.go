package actuator

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.einride.tech/can"

	"github.com/san-kum/lumasim/internal/dynamo"
)

type fakeTransmitter struct {
	frames []can.Frame
	failAt int
}

func (f *fakeTransmitter) TransmitFrame(ctx context.Context, frame can.Frame) error {
	if f.failAt > 0 && len(f.frames) == f.failAt {
		return errors.New("no buffer space")
	}
	f.frames = append(f.frames, frame)
	return nil
}

func mustCodec(t *testing.T) Codec {
	t.Helper()
	c, err := NewCodec(DefaultFrameID, 0, 1)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func TestCodecRoundTrip(t *testing.T) {
	c := mustCodec(t)

	tests := []struct {
		name string
		s    dynamo.Sample
	}{
		{"zero", dynamo.Sample{}},
		{"mid", dynamo.Sample{ControlOutput: 0.6321, ProcessValue: 0.5, Setpoint: 0.5}},
		{"upper bound saturated", dynamo.Sample{ControlOutput: 1, ProcessValue: 0.9, Setpoint: 0.5, Diagnostics: dynamo.Diagnostics{Saturated: true}}},
		{"negative pv", dynamo.Sample{ControlOutput: 0.1, ProcessValue: -0.25, Setpoint: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := c.Encode(tt.s, 7)
			if f.ID != DefaultFrameID || f.Length != 8 {
				t.Fatalf("unexpected frame header %v", f)
			}

			cmd, err := c.Decode(f)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if math.Abs(cmd.Output-tt.s.ControlOutput) > c.outputFactor() {
				t.Errorf("output %f, want %f", cmd.Output, tt.s.ControlOutput)
			}
			if math.Abs(cmd.PV-tt.s.ProcessValue) > levelFactor {
				t.Errorf("pv %f, want %f", cmd.PV, tt.s.ProcessValue)
			}
			if math.Abs(cmd.Setpoint-tt.s.Setpoint) > levelFactor {
				t.Errorf("setpoint %f, want %f", cmd.Setpoint, tt.s.Setpoint)
			}
			if cmd.Saturated != tt.s.Saturated {
				t.Errorf("saturated %v, want %v", cmd.Saturated, tt.s.Saturated)
			}
			if cmd.Counter != 7 {
				t.Errorf("counter %d, want 7", cmd.Counter)
			}
		})
	}
}

func TestCodecClampsOutOfRange(t *testing.T) {
	c := mustCodec(t)

	cmd, err := c.Decode(c.Encode(dynamo.Sample{ControlOutput: 2, ProcessValue: 10}, 0))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if math.Abs(cmd.Output-1) > 1e-12 {
		t.Errorf("expected output clamped to 1, got %f", cmd.Output)
	}
	if math.Abs(cmd.PV-math.MaxInt16*levelFactor) > 1e-12 {
		t.Errorf("expected pv clamped to %f, got %f", math.MaxInt16*levelFactor, cmd.PV)
	}

	cmd, _ = c.Decode(c.Encode(dynamo.Sample{ControlOutput: -1}, 0))
	if cmd.Output != 0 {
		t.Errorf("expected output clamped to 0, got %f", cmd.Output)
	}
}

func TestCodecRejects(t *testing.T) {
	if _, err := NewCodec(DefaultFrameID, 1, 1); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected configuration error for empty range, got %v", err)
	}
	if _, err := NewCodec(0x800, 0, 1); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected configuration error for extended id, got %v", err)
	}

	c := mustCodec(t)
	if _, err := c.Decode(can.Frame{ID: 0x100, Length: 8}); err == nil {
		t.Error("expected error for foreign frame id")
	}
	if _, err := c.Decode(can.Frame{ID: DefaultFrameID, Length: 4}); err == nil {
		t.Error("expected error for short frame")
	}
}

func TestBusCounterWraps(t *testing.T) {
	tx := &fakeTransmitter{}
	bus := NewBus(tx, mustCodec(t), nil)

	for i := 0; i < 300; i++ {
		if err := bus.Send(dynamo.Sample{Index: i}); err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
	}

	c := mustCodec(t)
	for _, i := range []int{0, 255, 256, 299} {
		cmd, err := c.Decode(tx.frames[i])
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if int(cmd.Counter) != i%256 {
			t.Errorf("frame %d counter %d, want %d", i, cmd.Counter, i%256)
		}
	}
}

func TestBusReplay(t *testing.T) {
	sc := dynamo.Scenario{
		Grid:        dynamo.Grid{Dt: 1, Steps: 4},
		Setpoint:    []float64{0, 0.5, 0.5, 0.5, 0.5},
		Disturbance: make([]float64, 5),
	}
	tr := dynamo.NewTrace(sc)
	copy(tr.ControlOutput, []float64{0, 1, 0.8, 0.6, 0.6})

	tx := &fakeTransmitter{}
	n, err := NewBus(tx, mustCodec(t), nil).Replay(context.Background(), tr, 0)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if n != 5 || len(tx.frames) != 5 {
		t.Fatalf("expected 5 frames, got %d (%d)", len(tx.frames), n)
	}

	cmd, _ := mustCodec(t).Decode(tx.frames[2])
	if math.Abs(cmd.Output-0.8) > 1e-4 || math.Abs(cmd.Setpoint-0.5) > 1e-12 {
		t.Errorf("unexpected third command %+v", cmd)
	}
}

func TestBusReplayStops(t *testing.T) {
	sc := dynamo.Scenario{
		Grid:        dynamo.Grid{Dt: 1, Steps: 9},
		Setpoint:    make([]float64, 10),
		Disturbance: make([]float64, 10),
	}
	tr := dynamo.NewTrace(sc)

	tx := &fakeTransmitter{failAt: 3}
	n, err := NewBus(tx, mustCodec(t), nil).Replay(context.Background(), tr, 0)
	if err == nil || n != 3 {
		t.Errorf("expected failure after 3 frames, got n=%d err=%v", n, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err = NewBus(&fakeTransmitter{}, mustCodec(t), nil).Replay(ctx, tr, time.Hour)
	if !errors.Is(err, context.Canceled) || n != 1 {
		t.Errorf("expected cancellation after first frame, got n=%d err=%v", n, err)
	}
}
