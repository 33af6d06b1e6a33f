package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitnn/bitvec"
	"bitnn/model"
)

func TestBinarize(t *testing.T) {
	v := Binarize([]byte{0, 127, 128, 255, 200, 10})
	assert.Equal(t, []bool{false, false, true, true, true, false}, v.Bools())
}

// scenarioStore builds the reference model: topology [4 2 2 2],
// layer-0 weights {1010, 0101} thresholds {2,2}, layer-1 weights
// {11, 00} thresholds {1,1}, output weights {10, 01}.
func scenarioStore(t *testing.T) *model.Store {
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

// Pixels [200 10 200 10] binarize to 1010; layer 0 yields [1 0],
// layer 1 yields [1 1], the output counts are [1 1], and the tie
// breaks to category 0.
func TestClassifyReferenceScenario(t *testing.T) {
	seq := NewSequencer(scenarioStore(t))
	category, err := seq.Classify([]byte{200, 10, 200, 10})
	require.NoError(t, err)
	assert.Equal(t, 0, category)
}

func TestClassifyRepeatable(t *testing.T) {
	seq := NewSequencer(scenarioStore(t))

	images := [][]byte{
		{10, 200, 10, 200},
		{255, 255, 255, 255},
		{0, 0, 0, 0},
		{200, 10, 200, 10},
	}
	for _, img := range images {
		first, err := seq.Classify(img)
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			again, err := seq.Classify(img)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	}
}

func TestClassifyRejectsWrongPixelCount(t *testing.T) {
	seq := NewSequencer(scenarioStore(t))
	_, err := seq.Classify([]byte{200, 10, 200})
	assert.Error(t, err)
}

func TestClassifyUnconfiguredStore(t *testing.T) {
	s, err := model.NewStore(model.Topology{4, 2, 2})
	require.NoError(t, err)
	seq := NewSequencer(s)
	_, err = seq.Classify([]byte{1, 2, 3, 4})
	assert.Error(t, err)
}
