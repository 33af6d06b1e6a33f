// Package model holds the configured network shape and the weight and
// threshold store the configuration channel populates.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Topology is the layer size sequence [inputs, hidden..., outputs].
// Index 0 is the pixel count; the last entry is the category count.
type Topology []int

// ParseTopology parses a space or comma separated size list, e.g.
// "784 256 256 10".
func ParseTopology(s string) (Topology, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
	topo := make(Topology, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("model: bad topology entry %q: %w", f, err)
		}
		topo[i] = n
	}
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	return topo, nil
}

// Validate checks the shape invariants: at least one neuron layer and
// strictly positive sizes throughout.
func (t Topology) Validate() error {
	if len(t) < 2 {
		return fmt.Errorf("model: topology needs at least input and output sizes, got %d entries", len(t))
	}
	for i, n := range t {
		if n <= 0 {
			return fmt.Errorf("model: topology entry %d is %d, must be positive", i, n)
		}
	}
	return nil
}

// Layers returns the number of neuron layers L.
func (t Topology) Layers() int {
	return len(t) - 1
}

// FanIn returns the input width of neuron layer l.
func (t Topology) FanIn(l int) int {
	return t[l]
}

// LayerSize returns the neuron count of layer l.
func (t Topology) LayerSize(l int) int {
	return t[l+1]
}

// InputSize returns the pixel count an image must carry.
func (t Topology) InputSize() int {
	return t[0]
}

// OutputSize returns the category count.
func (t Topology) OutputSize() int {
	return t[len(t)-1]
}

// String renders the topology in the ParseTopology format.
func (t Topology) String() string {
	parts := make([]string, len(t))
	for i, n := range t {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, " ")
}
