// Package loader decodes the configuration channel: a sequence of
// framed messages, each a 16-byte little-endian header followed by a
// bit-packed weights payload or a threshold table, written into the
// model store. One Decoder handles one model load; reconfiguration
// requires an external reset and a fresh Decoder.
package loader

import (
	"context"
	"errors"
	"fmt"

	"bitnn/codec"
	"bitnn/model"
	"bitnn/stream"
)

// ErrProtocol marks fatal configuration-stream faults: a declared
// payload length disagreeing with the observed end-of-message
// position, malformed headers, or content disagreeing with the
// configured topology. A load that hits one must abort before any
// classification proceeds.
var ErrProtocol = errors.New("configuration protocol fault")

// Message type codes, byte 0 of the header.
const (
	msgWeights    = 0
	msgThresholds = 1
)

const (
	headerSize     = 16
	thresholdBytes = 4
)

type header struct {
	msgType        int
	layerID        int
	fanIn          int
	neuronCount    int
	bytesPerNeuron int
	payloadBytes   int
}

// Decoder consumes configuration messages from a byte reader and
// populates a store. It tracks which (layer, kind) messages have
// arrived so completeness is an explicit decision, not an inference:
// the protocol has no end-of-model marker.
type Decoder struct {
	r     *stream.ByteReader
	store *model.Store

	seenWeights    []bool
	seenThresholds []bool
}

// NewDecoder builds a decoder writing into store.
func NewDecoder(r *stream.ByteReader, store *model.Store) *Decoder {
	layers := store.Topology().Layers()
	return &Decoder{
		r:              r,
		store:          store,
		seenWeights:    make([]bool, layers),
		seenThresholds: make([]bool, layers),
	}
}

// Complete reports whether every layer's weights and every non-output
// layer's thresholds have been consumed.
func (d *Decoder) Complete() bool {
	layers := d.store.Topology().Layers()
	for l := 0; l < layers; l++ {
		if !d.seenWeights[l] {
			return false
		}
		if l < layers-1 && !d.seenThresholds[l] {
			return false
		}
	}
	return true
}

// Load consumes messages until the model is complete or a fault is
// hit. The stream may keep stalling arbitrarily; Load blocks on the
// handshake and is bounded only by ctx.
func (d *Decoder) Load(ctx context.Context) error {
	for !d.Complete() {
		if err := d.readMessage(ctx); err != nil {
			return err
		}
	}
	return nil
}

// readMessage consumes one header and its payload.
func (d *Decoder) readMessage(ctx context.Context) error {
	hdrBytes := make([]byte, 0, headerSize)
	for len(hdrBytes) < headerSize {
		b, eom, err := d.r.ReadByte(ctx)
		if err != nil {
			return fmt.Errorf("loader: reading header byte %d: %w", len(hdrBytes), err)
		}
		hdrBytes = append(hdrBytes, b)
		if eom {
			return fmt.Errorf("%w: message ended inside header after %d bytes", ErrProtocol, len(hdrBytes))
		}
	}

	hdr, err := parseHeader(hdrBytes)
	if err != nil {
		return err
	}
	if err := d.validateHeader(hdr); err != nil {
		return err
	}

	payload := make([]byte, hdr.payloadBytes)
	for i := range payload {
		b, eom, err := d.r.ReadByte(ctx)
		if err != nil {
			return fmt.Errorf("loader: reading payload byte %d of %d: %w", i, hdr.payloadBytes, err)
		}
		payload[i] = b
		if eom != (i == hdr.payloadBytes-1) {
			return fmt.Errorf("%w: declared %d payload bytes but end-of-message at byte %d",
				ErrProtocol, hdr.payloadBytes, i+1)
		}
	}

	switch hdr.msgType {
	case msgWeights:
		err = d.applyWeights(hdr, payload)
	case msgThresholds:
		err = d.applyThresholds(hdr, payload)
	}
	if err != nil {
		return err
	}
	return nil
}

// parseHeader decodes the fixed 16-byte header. Bytes 12..15 are
// reserved and ignored.
func parseHeader(buf []byte) (header, error) {
	c := codec.NewCursor(buf)
	msgType, _ := c.U8()
	layerID, _ := c.U8()
	fanIn, _ := c.U16()
	neuronCount, _ := c.U16()
	bytesPerNeuron, _ := c.U16()
	payloadBytes, err := c.U32()
	if err != nil {
		return header{}, fmt.Errorf("%w: short header", ErrProtocol)
	}
	return header{
		msgType:        int(msgType),
		layerID:        int(layerID),
		fanIn:          int(fanIn),
		neuronCount:    int(neuronCount),
		bytesPerNeuron: int(bytesPerNeuron),
		payloadBytes:   int(payloadBytes),
	}, nil
}

func (d *Decoder) validateHeader(h header) error {
	topo := d.store.Topology()
	if h.layerID >= topo.Layers() {
		return fmt.Errorf("%w: layer id %d outside configured %d layers", ErrProtocol, h.layerID, topo.Layers())
	}
	switch h.msgType {
	case msgWeights:
		if d.seenWeights[h.layerID] {
			return fmt.Errorf("%w: duplicate weights message for layer %d", ErrProtocol, h.layerID)
		}
		if h.fanIn != topo.FanIn(h.layerID) {
			return fmt.Errorf("%w: layer %d declares fan-in %d, topology says %d",
				ErrProtocol, h.layerID, h.fanIn, topo.FanIn(h.layerID))
		}
		if h.neuronCount != topo.LayerSize(h.layerID) {
			return fmt.Errorf("%w: layer %d declares %d neurons, topology says %d",
				ErrProtocol, h.layerID, h.neuronCount, topo.LayerSize(h.layerID))
		}
		if h.bytesPerNeuron != codec.BytesForBits(h.fanIn) {
			return fmt.Errorf("%w: layer %d declares %d bytes per neuron for fan-in %d, want %d",
				ErrProtocol, h.layerID, h.bytesPerNeuron, h.fanIn, codec.BytesForBits(h.fanIn))
		}
		if h.payloadBytes != h.neuronCount*h.bytesPerNeuron {
			return fmt.Errorf("%w: weights payload %d bytes, want %d neurons x %d",
				ErrProtocol, h.payloadBytes, h.neuronCount, h.bytesPerNeuron)
		}
	case msgThresholds:
		// fanIn and bytesPerNeuron are ignored for threshold messages.
		if h.layerID == topo.Layers()-1 {
			return fmt.Errorf("%w: thresholds message for output layer %d", ErrProtocol, h.layerID)
		}
		if d.seenThresholds[h.layerID] {
			return fmt.Errorf("%w: duplicate thresholds message for layer %d", ErrProtocol, h.layerID)
		}
		if h.neuronCount != topo.LayerSize(h.layerID) {
			return fmt.Errorf("%w: layer %d declares %d neurons, topology says %d",
				ErrProtocol, h.layerID, h.neuronCount, topo.LayerSize(h.layerID))
		}
		if h.payloadBytes != h.neuronCount*thresholdBytes {
			return fmt.Errorf("%w: thresholds payload %d bytes, want %d neurons x %d",
				ErrProtocol, h.payloadBytes, h.neuronCount, thresholdBytes)
		}
	default:
		return fmt.Errorf("%w: unknown message type %d", ErrProtocol, h.msgType)
	}
	return nil
}

// applyWeights unpacks neuronCount byte-aligned bit groups and stores
// each neuron's weight vector, trailing pad bits discarded.
func (d *Decoder) applyWeights(h header, payload []byte) error {
	c := codec.NewCursor(payload)
	for n := 0; n < h.neuronCount; n++ {
		group, err := c.Bytes(h.bytesPerNeuron)
		if err != nil {
			return fmt.Errorf("%w: weights payload truncated at neuron %d", ErrProtocol, n)
		}
		w, err := codec.UnpackBits(group, h.fanIn)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrProtocol, err)
		}
		if err := d.store.SetWeights(h.layerID, n, w); err != nil {
			return fmt.Errorf("%w: %v", ErrProtocol, err)
		}
	}
	d.seenWeights[h.layerID] = true
	return nil
}

// applyThresholds decodes neuronCount 4-byte little-endian values.
func (d *Decoder) applyThresholds(h header, payload []byte) error {
	c := codec.NewCursor(payload)
	for n := 0; n < h.neuronCount; n++ {
		v, err := c.U32()
		if err != nil {
			return fmt.Errorf("%w: thresholds payload truncated at neuron %d", ErrProtocol, n)
		}
		if err := d.store.SetThreshold(h.layerID, n, int(v)); err != nil {
			return fmt.Errorf("%w: %v", ErrProtocol, err)
		}
	}
	d.seenThresholds[h.layerID] = true
	return nil
}
