// Package engine drives one image at a time through the configured
// layer stack and wires the three stream ports into an end-to-end
// pipeline: configuration in, images in, category indices out.
package engine

import (
	"fmt"

	"bitnn/bitvec"
	"bitnn/compute"
	"bitnn/model"
)

// binarizeThreshold maps 8-bit pixels to single bits: values at or
// above it become 1.
const binarizeThreshold = 128

// Binarize builds the layer-0 activation vector from raw pixels.
func Binarize(pixels []byte) *bitvec.Vector {
	v := bitvec.New(len(pixels))
	for i, p := range pixels {
		if p >= binarizeThreshold {
			v.Set(i, true)
		}
	}
	return v
}

// Sequencer evaluates whole images against an immutable store. All
// activation buffers are local to one Classify call, so concurrent
// calls on the same store never alias each other's state.
type Sequencer struct {
	store *model.Store
}

// NewSequencer wraps store. The store must be fully configured and
// stay unmodified for the sequencer's lifetime.
func NewSequencer(store *model.Store) *Sequencer {
	return &Sequencer{store: store}
}

// Classify binarizes pixels, runs every layer in order, and returns
// the argmax category of the output layer's raw counts. The pixel
// count must match the configured input size; anything else is
// rejected rather than computed on garbage.
func (s *Sequencer) Classify(pixels []byte) (int, error) {
	topo := s.store.Topology()
	if len(pixels) != topo.InputSize() {
		return 0, fmt.Errorf("engine: image carries %d pixels, topology expects %d", len(pixels), topo.InputSize())
	}

	act := Binarize(pixels)
	var counts []int
	for l := 0; l < topo.Layers(); l++ {
		output := l == topo.Layers()-1
		next := make([]int, topo.LayerSize(l))
		for n := range next {
			w, err := s.store.Weights(l, n)
			if err != nil {
				return 0, err
			}
			threshold := 0
			if !output {
				threshold, err = s.store.Threshold(l, n)
				if err != nil {
					return 0, err
				}
			}
			next[n], err = compute.Evaluate(act, w, output, threshold)
			if err != nil {
				return 0, err
			}
		}
		if output {
			counts = next
			break
		}
		nextAct := bitvec.New(len(next))
		for i, v := range next {
			if v == 1 {
				nextAct.Set(i, true)
			}
		}
		act = nextAct
	}
	return compute.Argmax(counts), nil
}
