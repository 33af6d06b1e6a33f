// Package codec decodes the binary configuration format: little-endian
// unsigned integers and bit-packed boolean vectors with byte-alignment
// padding. It operates on byte buffers; the stream package is
// responsible for delivering those bytes in order across beats.
package codec

import (
	"encoding/binary"
	"fmt"

	"bitnn/bitvec"
)

// Cursor walks a byte buffer, consuming typed values in order.
type Cursor struct {
	buf []byte
	off int
}

// NewCursor wraps buf. The cursor does not copy; callers must not
// mutate buf while decoding.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Remaining returns the number of unconsumed bytes.
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.off
}

// Bytes consumes and returns the next n bytes.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("codec: negative read length %d", n)
	}
	if c.Remaining() < n {
		return nil, fmt.Errorf("codec: need %d bytes, have %d", n, c.Remaining())
	}
	out := c.buf[c.off : c.off+n]
	c.off += n
	return out, nil
}

// U8 consumes one byte.
func (c *Cursor) U8() (uint8, error) {
	b, err := c.Bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 consumes two bytes as a little-endian unsigned integer.
func (c *Cursor) U16() (uint16, error) {
	b, err := c.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// U32 consumes four bytes as a little-endian unsigned integer.
func (c *Cursor) U32() (uint32, error) {
	b, err := c.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// BytesForBits returns the byte footprint of an n-bit packed vector.
func BytesForBits(n int) int {
	return (n + 7) / 8
}

// PackBits packs bits into bytes, logical bit p at byte p/8 bit p%8.
// Unused high bits of a partial final byte are padded with 1, never 0:
// the neuron match count treats padding as always-matching, so zero
// padding would silently skew counts.
func PackBits(bits []bool) []byte {
	out := make([]byte, BytesForBits(len(bits)))
	for i, b := range bits {
		if b {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	if r := len(bits) % 8; r != 0 {
		out[len(out)-1] |= byte(0xFF) << uint(r)
	}
	return out
}

// UnpackBits reads the first n logical bits of buf, discarding the pad
// bits of the final byte.
func UnpackBits(buf []byte, n int) (*bitvec.Vector, error) {
	if need := BytesForBits(n); len(buf) < need {
		return nil, fmt.Errorf("codec: %d-bit vector needs %d bytes, have %d", n, need, len(buf))
	}
	v := bitvec.New(n)
	for i := 0; i < n; i++ {
		if buf[i/8]>>uint(i%8)&1 == 1 {
			v.Set(i, true)
		}
	}
	return v, nil
}
