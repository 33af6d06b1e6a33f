// Package modelio serializes models: a JSON file format for storage
// and the canonical byte encodings of the configuration and image
// channels. The engine core never imports it; it exists for tooling
// and tests that sit on the harness side of the three streams.
package modelio

import (
	"encoding/json"
	"fmt"
	"os"

	"bitnn/bitvec"
	"bitnn/model"
)

// LayerData is one layer's parameters. Each neuron's weights are a
// bit string ("1010...", character i = logical bit i) of length equal
// to the layer fan-in. Thresholds are omitted for the output layer.
type LayerData struct {
	Neurons    []string `json:"neurons"`
	Thresholds []int    `json:"thresholds,omitempty"`
}

// ModelData is the on-disk model file.
type ModelData struct {
	Version  string      `json:"version"`
	Topology []int       `json:"topology"`
	Layers   []LayerData `json:"layers"`
}

// FromStore snapshots a fully configured store.
func FromStore(s *model.Store) (*ModelData, error) {
	topo := s.Topology()
	md := &ModelData{
		Version:  "1",
		Topology: append([]int(nil), topo...),
		Layers:   make([]LayerData, topo.Layers()),
	}
	for l := 0; l < topo.Layers(); l++ {
		ld := LayerData{Neurons: make([]string, topo.LayerSize(l))}
		output := l == topo.Layers()-1
		if !output {
			ld.Thresholds = make([]int, topo.LayerSize(l))
		}
		for n := 0; n < topo.LayerSize(l); n++ {
			w, err := s.Weights(l, n)
			if err != nil {
				return nil, err
			}
			ld.Neurons[n] = bitString(w)
			if !output {
				ld.Thresholds[n], err = s.Threshold(l, n)
				if err != nil {
					return nil, err
				}
			}
		}
		md.Layers[l] = ld
	}
	return md, nil
}

// ToStore materializes a store from file data.
func (md *ModelData) ToStore() (*model.Store, error) {
	topo := model.Topology(md.Topology)
	s, err := model.NewStore(topo)
	if err != nil {
		return nil, err
	}
	if len(md.Layers) != topo.Layers() {
		return nil, fmt.Errorf("modelio: %d layer blocks for a %d-layer topology", len(md.Layers), topo.Layers())
	}
	for l, ld := range md.Layers {
		output := l == topo.Layers()-1
		if len(ld.Neurons) != topo.LayerSize(l) {
			return nil, fmt.Errorf("modelio: layer %d has %d neurons, topology says %d", l, len(ld.Neurons), topo.LayerSize(l))
		}
		if !output && len(ld.Thresholds) != topo.LayerSize(l) {
			return nil, fmt.Errorf("modelio: layer %d has %d thresholds, topology says %d", l, len(ld.Thresholds), topo.LayerSize(l))
		}
		for n, bits := range ld.Neurons {
			w, err := parseBitString(bits)
			if err != nil {
				return nil, fmt.Errorf("modelio: layer %d neuron %d: %w", l, n, err)
			}
			if err := s.SetWeights(l, n, w); err != nil {
				return nil, err
			}
			if !output {
				if err := s.SetThreshold(l, n, ld.Thresholds[n]); err != nil {
					return nil, err
				}
			}
		}
	}
	return s, nil
}

// SaveModel writes a store to a JSON file.
func SaveModel(path string, s *model.Store) error {
	md, err := FromStore(s)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return fmt.Errorf("modelio: marshal model: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LoadModel reads a JSON model file into a store.
func LoadModel(path string) (*model.Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("modelio: read model file: %w", err)
	}
	var md ModelData
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("modelio: parse model file: %w", err)
	}
	return md.ToStore()
}

func bitString(v *bitvec.Vector) string {
	out := make([]byte, v.Len())
	for i := range out {
		if v.Get(i) {
			out[i] = '1'
		} else {
			out[i] = '0'
		}
	}
	return string(out)
}

func parseBitString(s string) (*bitvec.Vector, error) {
	bits := make([]bool, len(s))
	for i, c := range s {
		switch c {
		case '0':
		case '1':
			bits[i] = true
		default:
			return nil, fmt.Errorf("bit string contains %q", c)
		}
	}
	return bitvec.FromBools(bits), nil
}
