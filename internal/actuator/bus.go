package actuator

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
	"go.uber.org/zap"

	"github.com/san-kum/lumasim/internal/dynamo"
)

// FrameTransmitter is satisfied by *socketcan.Transmitter.
type FrameTransmitter interface {
	TransmitFrame(ctx context.Context, frame can.Frame) error
}

// Bus sends one command frame per sample.
type Bus struct {
	conn    net.Conn
	tx      FrameTransmitter
	codec   Codec
	counter uint8
	timeout time.Duration
	log     *zap.Logger
}

func NewBus(tx FrameTransmitter, codec Codec, log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{tx: tx, codec: codec, timeout: 100 * time.Millisecond, log: log}
}

// Dial opens a SocketCAN interface such as "vcan0".
func Dial(ctx context.Context, iface string, codec Codec, log *zap.Logger) (*Bus, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, fmt.Errorf("socketcan dial: %w", err)
	}
	b := NewBus(socketcan.NewTransmitter(conn), codec, log)
	b.conn = conn
	b.log.Info("can bus opened", zap.String("iface", iface), zap.Uint32("id", codec.ID))
	return b, nil
}

// Send encodes s and transmits it, bounded by the bus timeout.
func (b *Bus) Send(s dynamo.Sample) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	return b.SendContext(ctx, s)
}

func (b *Bus) SendContext(ctx context.Context, s dynamo.Sample) error {
	f := b.codec.Encode(s, b.counter)
	if err := b.tx.TransmitFrame(ctx, f); err != nil {
		b.log.Warn("transmit failed", zap.Int("step", s.Index), zap.Error(err))
		return fmt.Errorf("step %d: %w", s.Index, err)
	}
	b.counter++
	return nil
}

// Replay sends every sample of tr at the given period, or back to back
// when period is zero.
func (b *Bus) Replay(ctx context.Context, tr *dynamo.Trace, period time.Duration) (int, error) {
	var ticker *time.Ticker
	if period > 0 {
		ticker = time.NewTicker(period)
		defer ticker.Stop()
	}

	for i := 0; i < tr.Len(); i++ {
		if ticker != nil && i > 0 {
			select {
			case <-ctx.Done():
				return i, ctx.Err()
			case <-ticker.C:
			}
		}
		if err := b.SendContext(ctx, tr.Sample(i)); err != nil {
			return i, err
		}
	}
	return tr.Len(), nil
}

func (b *Bus) Close() error {
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
