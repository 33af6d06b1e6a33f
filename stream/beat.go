// Package stream implements the beat-level handshake channels the
// engine speaks on: fixed-width data words with a per-byte validity
// mask and an end-of-message flag, transferred only when both sides
// are ready. Bounded Go channels stand in for the valid/ready
// rendezvous: a blocked Send is a producer stalled on a consumer that
// withholds readiness, and an empty Recv is the converse.
package stream

import (
	"context"
	"fmt"
	"io"
)

// MaxWidth is the largest supported bus width in bytes; the Keep mask
// is a uint64 with one bit per byte lane.
const MaxWidth = 64

// Beat is one transferred word. Keep bit i set means Data[i] carries
// payload; cleared lanes are ignored on ingress. Last marks the final
// beat of a logical message.
type Beat struct {
	Data []byte
	Keep uint64
	Last bool
}

// ValidBytes returns the payload bytes of the beat in ascending lane
// order.
func (b Beat) ValidBytes() []byte {
	out := make([]byte, 0, len(b.Data))
	for i := range b.Data {
		if b.Keep>>uint(i)&1 == 1 {
			out = append(out, b.Data[i])
		}
	}
	return out
}

// KeepAll returns the mask with the low width lanes set.
func KeepAll(width int) uint64 {
	if width >= MaxWidth {
		return ^uint64(0)
	}
	return 1<<uint(width) - 1
}

// Port is one directed beat stream with a bounded depth. Depth is the
// backpressure budget: once full, the sender blocks, which is exactly
// the consumer holding ready low.
type Port struct {
	ch    chan Beat
	width int
}

// NewPort creates a port carrying width-byte beats with the given
// queue depth. Depth 0 gives a fully synchronous handshake.
func NewPort(width, depth int) (*Port, error) {
	if width < 1 || width > MaxWidth {
		return nil, fmt.Errorf("stream: bus width %d outside [1,%d]", width, MaxWidth)
	}
	if depth < 0 {
		return nil, fmt.Errorf("stream: negative port depth %d", depth)
	}
	return &Port{ch: make(chan Beat, depth), width: width}, nil
}

// Width returns the bus width in bytes.
func (p *Port) Width() int {
	return p.width
}

// Send transfers one beat, blocking until the consumer accepts it or
// the context is cancelled.
func (p *Port) Send(ctx context.Context, b Beat) error {
	if len(b.Data) != p.width {
		return fmt.Errorf("stream: beat carries %d bytes on a %d-byte bus", len(b.Data), p.width)
	}
	select {
	case p.ch <- b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv transfers one beat, blocking until the producer offers one or
// the context is cancelled. After Close it drains buffered beats and
// then reports io.EOF.
func (p *Port) Recv(ctx context.Context) (Beat, error) {
	select {
	case b, ok := <-p.ch:
		if !ok {
			return Beat{}, io.EOF
		}
		return b, nil
	case <-ctx.Done():
		return Beat{}, ctx.Err()
	}
}

// Close ends the stream. Only the producing side may call it.
func (p *Port) Close() {
	close(p.ch)
}
