package model

import (
	"fmt"

	"bitnn/bitvec"
)

// Store owns all weights and thresholds for one loaded model, keyed by
// (layer, neuron). The configuration decoder is its only writer; once
// a load completes the store is read-only until an external reset
// replaces it wholesale.
type Store struct {
	topo       Topology
	weights    [][]*bitvec.Vector
	thresholds [][]int
	hasThresh  [][]bool
}

// NewStore allocates an empty store shaped by topo.
func NewStore(topo Topology) (*Store, error) {
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	s := &Store{
		topo:       append(Topology(nil), topo...),
		weights:    make([][]*bitvec.Vector, topo.Layers()),
		thresholds: make([][]int, topo.Layers()),
		hasThresh:  make([][]bool, topo.Layers()),
	}
	for l := 0; l < topo.Layers(); l++ {
		s.weights[l] = make([]*bitvec.Vector, topo.LayerSize(l))
		if l < topo.Layers()-1 {
			s.thresholds[l] = make([]int, topo.LayerSize(l))
			s.hasThresh[l] = make([]bool, topo.LayerSize(l))
		}
	}
	return s, nil
}

// Topology returns the configured shape.
func (s *Store) Topology() Topology {
	return s.topo
}

func (s *Store) checkNeuron(layer, neuron int) error {
	if layer < 0 || layer >= s.topo.Layers() {
		return fmt.Errorf("model: layer %d outside [0,%d)", layer, s.topo.Layers())
	}
	if neuron < 0 || neuron >= s.topo.LayerSize(layer) {
		return fmt.Errorf("model: neuron %d outside [0,%d) in layer %d", neuron, s.topo.LayerSize(layer), layer)
	}
	return nil
}

// SetWeights stores a neuron's weight vector. The vector length must
// equal the layer's fan-in; anything else is a configuration-format
// fault.
func (s *Store) SetWeights(layer, neuron int, w *bitvec.Vector) error {
	if err := s.checkNeuron(layer, neuron); err != nil {
		return err
	}
	if w.Len() != s.topo.FanIn(layer) {
		return fmt.Errorf("model: layer %d expects %d-bit weights, got %d bits", layer, s.topo.FanIn(layer), w.Len())
	}
	s.weights[layer][neuron] = w
	return nil
}

// SetThreshold stores a neuron's firing threshold. The output layer
// has no thresholds; writing one there is a fault.
func (s *Store) SetThreshold(layer, neuron, value int) error {
	if err := s.checkNeuron(layer, neuron); err != nil {
		return err
	}
	if layer == s.topo.Layers()-1 {
		return fmt.Errorf("model: output layer %d carries no thresholds", layer)
	}
	s.thresholds[layer][neuron] = value
	s.hasThresh[layer][neuron] = true
	return nil
}

// Weights returns a neuron's weight vector, or an error if it was
// never configured.
func (s *Store) Weights(layer, neuron int) (*bitvec.Vector, error) {
	if err := s.checkNeuron(layer, neuron); err != nil {
		return nil, err
	}
	w := s.weights[layer][neuron]
	if w == nil {
		return nil, fmt.Errorf("model: weights for layer %d neuron %d not configured", layer, neuron)
	}
	return w, nil
}

// Threshold returns a neuron's threshold, or an error for the output
// layer or an unconfigured neuron.
func (s *Store) Threshold(layer, neuron int) (int, error) {
	if err := s.checkNeuron(layer, neuron); err != nil {
		return 0, err
	}
	if layer == s.topo.Layers()-1 {
		return 0, fmt.Errorf("model: output layer %d carries no thresholds", layer)
	}
	if !s.hasThresh[layer][neuron] {
		return 0, fmt.Errorf("model: threshold for layer %d neuron %d not configured", layer, neuron)
	}
	return s.thresholds[layer][neuron], nil
}

// Configured reports whether every weight and every non-output-layer
// threshold has been written.
func (s *Store) Configured() bool {
	for l := 0; l < s.topo.Layers(); l++ {
		for n := 0; n < s.topo.LayerSize(l); n++ {
			if s.weights[l][n] == nil {
				return false
			}
			if l < s.topo.Layers()-1 && !s.hasThresh[l][n] {
				return false
			}
		}
	}
	return true
}
