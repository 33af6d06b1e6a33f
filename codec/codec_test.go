package codec

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorLittleEndian(t *testing.T) {
	c := NewCursor([]byte{0x2A, 0x34, 0x12, 0x78, 0x56, 0x34, 0x12, 0xFF})

	u8, err := c.U8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x2A), u8)

	u16, err := c.U16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), u16)

	u32, err := c.U32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), u32)

	assert.Equal(t, 1, c.Remaining())
}

func TestCursorUnderrun(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02})
	_, err := c.U32()
	assert.Error(t, err)

	// A failed read must not advance the cursor.
	u16, err := c.U16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0201), u16)
	assert.Equal(t, 0, c.Remaining())
}

func TestPackBitsPadding(t *testing.T) {
	// Five zero bits: payload bits 0..4 are 0, pad bits 5..7 are 1.
	buf := PackBits(make([]bool, 5))
	require.Len(t, buf, 1)
	assert.Equal(t, byte(0xE0), buf[0])

	// A full byte carries no padding.
	buf = PackBits(make([]bool, 8))
	require.Len(t, buf, 1)
	assert.Equal(t, byte(0x00), buf[0])
}

func TestPackBitsLayout(t *testing.T) {
	// Logical bit p maps to byte p/8, bit p%8 (LSB first).
	bits := make([]bool, 10)
	bits[0] = true
	bits[9] = true
	buf := PackBits(bits)
	require.Len(t, buf, 2)
	assert.Equal(t, byte(0x01), buf[0])
	assert.Equal(t, byte(0xFC)|0x02, buf[1])
}

func TestPackUnpackRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for k := 1; k <= 70; k++ {
		bits := make([]bool, k)
		for i := range bits {
			bits[i] = rng.Intn(2) == 1
		}
		v, err := UnpackBits(PackBits(bits), k)
		require.NoError(t, err)
		assert.Equal(t, bits, v.Bools(), "length %d", k)
	}
}

func TestUnpackBitsShortBuffer(t *testing.T) {
	_, err := UnpackBits([]byte{0xFF}, 9)
	assert.Error(t, err)
}

func TestBytesForBits(t *testing.T) {
	assert.Equal(t, 0, BytesForBits(0))
	assert.Equal(t, 1, BytesForBits(1))
	assert.Equal(t, 1, BytesForBits(8))
	assert.Equal(t, 2, BytesForBits(9))
	assert.Equal(t, 98, BytesForBits(784))
}
