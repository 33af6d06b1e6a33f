package modelio

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitnn/bitvec"
	"bitnn/model"
)

// buildStore populates a small three-layer reference model.
func buildStore(t *testing.T) *model.Store {
	t.Helper()
	s, err := model.NewStore(model.Topology{4, 2, 2, 2})
	require.NoError(t, err)

	set := func(l, n int, bits []bool) {
		require.NoError(t, s.SetWeights(l, n, bitvec.FromBools(bits)))
	}
	set(0, 0, []bool{true, false, true, false})
	set(0, 1, []bool{false, true, false, true})
	set(1, 0, []bool{true, true})
	set(1, 1, []bool{false, false})
	set(2, 0, []bool{true, false})
	set(2, 1, []bool{false, true})

	require.NoError(t, s.SetThreshold(0, 0, 2))
	require.NoError(t, s.SetThreshold(0, 1, 2))
	require.NoError(t, s.SetThreshold(1, 0, 1))
	require.NoError(t, s.SetThreshold(1, 1, 1))
	return s
}

func TestModelFileRoundTrip(t *testing.T) {
	s := buildStore(t)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, SaveModel(path, s))

	loaded, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, s.Topology(), loaded.Topology())

	for l := 0; l < 3; l++ {
		for n := 0; n < 2; n++ {
			want, err := s.Weights(l, n)
			require.NoError(t, err)
			got, err := loaded.Weights(l, n)
			require.NoError(t, err)
			assert.Equal(t, want.Bools(), got.Bools())
			if l < 2 {
				wv, _ := s.Threshold(l, n)
				gv, _ := loaded.Threshold(l, n)
				assert.Equal(t, wv, gv)
			}
		}
	}
}

func TestLoadModelRejectsBadBitString(t *testing.T) {
	md := ModelData{
		Topology: []int{2, 1},
		Layers:   []LayerData{{Neurons: []string{"1x"}}},
	}
	_, err := md.ToStore()
	assert.Error(t, err)
}

func TestEncodeWeightsMessageLayout(t *testing.T) {
	w0 := bitvec.FromBools([]bool{true, false, true, false, true})
	w1 := bitvec.FromBools([]bool{false, false, false, false, false})
	msg, err := EncodeWeightsMessage(3, []*bitvec.Vector{w0, w1})
	require.NoError(t, err)
	require.Len(t, msg, HeaderSize+2)

	assert.Equal(t, byte(MsgWeights), msg[0])
	assert.Equal(t, byte(3), msg[1])
	assert.Equal(t, []byte{5, 0}, msg[2:4], "fan-in LE")
	assert.Equal(t, []byte{2, 0}, msg[4:6], "neuron count LE")
	assert.Equal(t, []byte{1, 0}, msg[6:8], "bytes per neuron LE")
	assert.Equal(t, []byte{2, 0, 0, 0}, msg[8:12], "payload bytes LE")
	assert.Equal(t, []byte{0, 0, 0, 0}, msg[12:16], "reserved")

	// 10101 packed LSB-first with 1-padding: 0b111_10101.
	assert.Equal(t, byte(0xF5), msg[16])
	// All-zero weights still carry 1-padding in the high bits.
	assert.Equal(t, byte(0xE0), msg[17])
}

func TestEncodeThresholdsMessageLayout(t *testing.T) {
	msg := EncodeThresholdsMessage(1, []int{2, 258})
	require.Len(t, msg, HeaderSize+8)
	assert.Equal(t, byte(MsgThresholds), msg[0])
	assert.Equal(t, byte(1), msg[1])
	assert.Equal(t, []byte{2, 0, 0, 0}, msg[16:20])
	assert.Equal(t, []byte{2, 1, 0, 0}, msg[20:24])
}

func TestEncodeModelMessageOrder(t *testing.T) {
	msgs, err := EncodeModel(buildStore(t))
	require.NoError(t, err)
	// Per layer: weights then thresholds; output layer has no
	// thresholds message.
	require.Len(t, msgs, 5)

	types := []byte{msgs[0][0], msgs[1][0], msgs[2][0], msgs[3][0], msgs[4][0]}
	assert.Equal(t, []byte{MsgWeights, MsgThresholds, MsgWeights, MsgThresholds, MsgWeights}, types)
	layers := []byte{msgs[0][1], msgs[1][1], msgs[2][1], msgs[3][1], msgs[4][1]}
	assert.Equal(t, []byte{0, 0, 1, 1, 2}, layers)
}
