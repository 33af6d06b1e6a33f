package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrTruncated reports a stream that closed in the middle of a
// message. It deliberately does not wrap io.EOF, so callers matching
// io.EOF for clean shutdown never mistake a partial message for one.
var ErrTruncated = errors.New("stream truncated mid-message")

// ByteReader flattens a port's beats into the ordered byte sequence
// they carry, using the Keep mask rather than lane position to decide
// which bytes exist. Each byte is reported with whether it closed a
// message (last valid byte of a Last beat).
type ByteReader struct {
	port *Port
	cur  []byte
	idx  int
	last bool
}

// NewByteReader wraps port.
func NewByteReader(port *Port) *ByteReader {
	return &ByteReader{port: port}
}

// ReadByte returns the next payload byte and whether it is the final
// byte of its message. Beats with an empty Keep mask are skipped; a
// closed port yields io.EOF.
func (r *ByteReader) ReadByte(ctx context.Context) (byte, bool, error) {
	for r.idx >= len(r.cur) {
		beat, err := r.port.Recv(ctx)
		if err != nil {
			return 0, false, err
		}
		r.cur = beat.ValidBytes()
		r.idx = 0
		r.last = beat.Last
	}
	b := r.cur[r.idx]
	r.idx++
	eom := r.last && r.idx == len(r.cur)
	return b, eom, nil
}

// ReadMessage accumulates bytes until an end-of-message flag and
// returns the whole message.
func (r *ByteReader) ReadMessage(ctx context.Context) ([]byte, error) {
	var msg []byte
	for {
		b, eom, err := r.ReadByte(ctx)
		if err != nil {
			if len(msg) > 0 && err == io.EOF {
				return nil, fmt.Errorf("%w after %d bytes", ErrTruncated, len(msg))
			}
			return nil, err
		}
		msg = append(msg, b)
		if eom {
			return msg, nil
		}
	}
}

// BeatWriter packs a byte sequence densely into bus-width beats,
// setting the Keep mask for a short final beat and the Last flag on
// the beat holding a message's final byte.
type BeatWriter struct {
	port *Port
	buf  []byte
}

// NewBeatWriter wraps port.
func NewBeatWriter(port *Port) *BeatWriter {
	return &BeatWriter{port: port}
}

// WriteBytes appends p to the current message. With last set, the
// message is sealed: all buffered bytes are flushed and the final
// beat carries the Last flag. Without it, only full beats are sent
// and the remainder stays buffered for the next call.
func (w *BeatWriter) WriteBytes(ctx context.Context, p []byte, last bool) error {
	w.buf = append(w.buf, p...)
	width := w.port.Width()
	// A full beat that might be the message's final beat is held back
	// until the caller says so, keeping the Last flag on the right beat
	// regardless of how the message was chunked.
	for len(w.buf) > width || (len(w.buf) == width && last) {
		final := last && len(w.buf) == width
		beat := Beat{Data: append([]byte(nil), w.buf[:width]...), Keep: KeepAll(width), Last: final}
		if err := w.port.Send(ctx, beat); err != nil {
			return err
		}
		w.buf = w.buf[width:]
	}
	if last && len(w.buf) > 0 {
		data := make([]byte, width)
		copy(data, w.buf)
		beat := Beat{Data: data, Keep: KeepAll(len(w.buf)), Last: true}
		if err := w.port.Send(ctx, beat); err != nil {
			return err
		}
		w.buf = w.buf[:0]
	}
	return nil
}

// WriteMessage sends one complete message.
func (w *BeatWriter) WriteMessage(ctx context.Context, msg []byte) error {
	if len(msg) == 0 {
		return fmt.Errorf("stream: empty message")
	}
	return w.WriteBytes(ctx, msg, true)
}
