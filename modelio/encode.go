package modelio

import (
	"context"
	"encoding/binary"
	"fmt"

	"bitnn/bitvec"
	"bitnn/codec"
	"bitnn/model"
	"bitnn/stream"
)

// Header byte layout of the configuration channel: type, layer, then
// little-endian fan-in, neuron count, bytes per neuron, payload bytes,
// and four reserved bytes.
const (
	MsgWeights    = 0
	MsgThresholds = 1
	HeaderSize    = 16
)

// EncodeWeightsMessage frames one layer's weights: each neuron packed
// into its own byte-aligned group with 1-padding.
func EncodeWeightsMessage(layer int, neurons []*bitvec.Vector) ([]byte, error) {
	if len(neurons) == 0 {
		return nil, fmt.Errorf("modelio: layer %d has no neurons", layer)
	}
	fanIn := neurons[0].Len()
	bytesPerNeuron := codec.BytesForBits(fanIn)
	payload := len(neurons) * bytesPerNeuron

	msg := make([]byte, 0, HeaderSize+payload)
	msg = appendHeader(msg, MsgWeights, layer, fanIn, len(neurons), bytesPerNeuron, payload)
	for n, w := range neurons {
		if w.Len() != fanIn {
			return nil, fmt.Errorf("modelio: layer %d neuron %d has %d bits, neuron 0 has %d", layer, n, w.Len(), fanIn)
		}
		msg = append(msg, codec.PackBits(w.Bools())...)
	}
	return msg, nil
}

// EncodeThresholdsMessage frames one layer's thresholds as 4-byte
// little-endian values.
func EncodeThresholdsMessage(layer int, thresholds []int) []byte {
	payload := len(thresholds) * 4
	msg := make([]byte, 0, HeaderSize+payload)
	msg = appendHeader(msg, MsgThresholds, layer, 0, len(thresholds), 4, payload)
	for _, v := range thresholds {
		msg = binary.LittleEndian.AppendUint32(msg, uint32(v))
	}
	return msg
}

func appendHeader(msg []byte, msgType, layer, fanIn, neurons, bytesPerNeuron, payload int) []byte {
	msg = append(msg, byte(msgType), byte(layer))
	msg = binary.LittleEndian.AppendUint16(msg, uint16(fanIn))
	msg = binary.LittleEndian.AppendUint16(msg, uint16(neurons))
	msg = binary.LittleEndian.AppendUint16(msg, uint16(bytesPerNeuron))
	msg = binary.LittleEndian.AppendUint32(msg, uint32(payload))
	msg = append(msg, 0, 0, 0, 0) // reserved
	return msg
}

// EncodeModel renders a configured store as the configuration
// channel's message sequence: layer by layer, weights before
// thresholds, no thresholds for the output layer.
func EncodeModel(s *model.Store) ([][]byte, error) {
	topo := s.Topology()
	var msgs [][]byte
	for l := 0; l < topo.Layers(); l++ {
		neurons := make([]*bitvec.Vector, topo.LayerSize(l))
		for n := range neurons {
			w, err := s.Weights(l, n)
			if err != nil {
				return nil, err
			}
			neurons[n] = w
		}
		wm, err := EncodeWeightsMessage(l, neurons)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, wm)

		if l < topo.Layers()-1 {
			thresholds := make([]int, topo.LayerSize(l))
			for n := range thresholds {
				v, err := s.Threshold(l, n)
				if err != nil {
					return nil, err
				}
				thresholds[n] = v
			}
			msgs = append(msgs, EncodeThresholdsMessage(l, thresholds))
		}
	}
	return msgs, nil
}

// StreamMessages writes each message as one end-of-message framed
// unit and closes the port.
func StreamMessages(ctx context.Context, port *stream.Port, msgs [][]byte) error {
	w := stream.NewBeatWriter(port)
	for i, msg := range msgs {
		if err := w.WriteMessage(ctx, msg); err != nil {
			return fmt.Errorf("modelio: streaming message %d: %w", i, err)
		}
	}
	port.Close()
	return nil
}
