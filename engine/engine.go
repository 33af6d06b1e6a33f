package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"bitnn/loader"
	"bitnn/model"
	"bitnn/stream"
)

// DefaultInFlight is the default bound on images buffered inside the
// pipeline before the image port stops being drained.
const DefaultInFlight = 2

// maxCategories is the widest output the single-byte result beat can
// express.
const maxCategories = 256

// Engine owns the full pipeline for one model lifetime: a load phase
// consuming the configuration port, then a classify phase moving
// images from the input port to category indices on the output port
// in strict FIFO order. Reconfiguration requires an external reset,
// i.e. a fresh Engine.
type Engine struct {
	store    *model.Store
	config   *stream.Port
	images   *stream.Port
	results  *stream.Port
	inFlight int
}

// New builds an engine around three already-created ports. inFlight
// bounds buffered images; values below 1 fall back to DefaultInFlight.
func New(topo model.Topology, config, images, results *stream.Port, inFlight int) (*Engine, error) {
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	if topo.OutputSize() > maxCategories {
		return nil, fmt.Errorf("engine: %d categories exceed the %d expressible in one result byte",
			topo.OutputSize(), maxCategories)
	}
	store, err := model.NewStore(topo)
	if err != nil {
		return nil, err
	}
	if inFlight < 1 {
		inFlight = DefaultInFlight
	}
	return &Engine{
		store:    store,
		config:   config,
		images:   images,
		results:  results,
		inFlight: inFlight,
	}, nil
}

// Store exposes the model store, e.g. for inspection after a load.
func (e *Engine) Store() *model.Store {
	return e.store
}

// Run loads the model and then classifies images until the image port
// closes or ctx is cancelled. A configuration protocol fault aborts
// before any classification happens. The results port is closed on
// return regardless, so a downstream consumer always unblocks.
func (e *Engine) Run(ctx context.Context) error {
	defer e.results.Close()

	dec := loader.NewDecoder(stream.NewByteReader(e.config), e.store)
	if err := dec.Load(ctx); err != nil {
		return fmt.Errorf("engine: model load: %w", err)
	}

	return e.classifyLoop(ctx)
}

// classifyLoop runs the classify phase: a reader goroutine accumulates
// each image's bytes and feeds a bounded channel; this goroutine
// evaluates and emits. A full channel means the reader stops draining
// the image port, which is the backpressure contract: data is never
// dropped, readiness is withheld.
func (e *Engine) classifyLoop(ctx context.Context) error {
	// The derived context unblocks the reader when this loop exits
	// early, whether it is parked on the port or on a full channel.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pending := make(chan []byte, e.inFlight)
	readErr := make(chan error, 1)

	go func() {
		defer close(pending)
		r := stream.NewByteReader(e.images)
		for {
			img, err := r.ReadMessage(ctx)
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- err
				}
				return
			}
			select {
			case pending <- img:
			case <-ctx.Done():
				readErr <- ctx.Err()
				return
			}
		}
	}()

	seq := NewSequencer(e.store)
	w := stream.NewBeatWriter(e.results)
	for img := range pending {
		category, err := seq.Classify(img)
		if err != nil {
			return fmt.Errorf("engine: classify: %w", err)
		}
		if err := w.WriteMessage(ctx, []byte{byte(category)}); err != nil {
			return fmt.Errorf("engine: emit result: %w", err)
		}
	}

	select {
	case err := <-readErr:
		return fmt.Errorf("engine: image stream: %w", err)
	default:
		return nil
	}
}
