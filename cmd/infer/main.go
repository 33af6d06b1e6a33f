// bitnn-infer: stream a saved model and raw images through the engine
// and print one category per image.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"bitnn/engine"
	"bitnn/modelio"
	"bitnn/stream"
)

var (
	modelFile  = flag.String("model", "", "Model JSON file")
	imagesFile = flag.String("images", "", "Raw pixel file, one image per input-size bytes")
	busWidth   = flag.Int("bus", 8, "Bus width in bytes for all three ports")
	portDepth  = flag.Int("depth", 4, "Port queue depth in beats")
	inFlight   = flag.Int("inflight", engine.DefaultInFlight, "Images buffered inside the pipeline")
	verbose    = flag.Bool("verbose", false, "Print throughput at the end")
)

func main() {
	flag.Parse()
	if *modelFile == "" || *imagesFile == "" {
		fmt.Fprintln(os.Stderr, "usage: bitnn-infer -model model.json -images pixels.bin")
		flag.PrintDefaults()
		os.Exit(2)
	}

	store, err := modelio.LoadModel(*modelFile)
	if err != nil {
		log.Fatalf("loading model: %v", err)
	}
	topo := store.Topology()
	fmt.Printf("Loaded model, topology %s\n", topo)

	pixels, err := os.ReadFile(*imagesFile)
	if err != nil {
		log.Fatalf("reading images: %v", err)
	}
	if len(pixels)%topo.InputSize() != 0 {
		log.Fatalf("image file holds %d bytes, not a multiple of input size %d", len(pixels), topo.InputSize())
	}
	count := len(pixels) / topo.InputSize()
	fmt.Printf("Classifying %d images\n", count)

	msgs, err := modelio.EncodeModel(store)
	if err != nil {
		log.Fatalf("encoding model stream: %v", err)
	}

	ctx := context.Background()
	ports := make([]*stream.Port, 3)
	for i := range ports {
		if ports[i], err = stream.NewPort(*busWidth, *portDepth); err != nil {
			log.Fatalf("creating port: %v", err)
		}
	}
	cfg, img, res := ports[0], ports[1], ports[2]

	eng, err := engine.New(topo, cfg, img, res, *inFlight)
	if err != nil {
		log.Fatalf("building engine: %v", err)
	}

	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(ctx) }()

	go func() {
		if err := modelio.StreamMessages(ctx, cfg, msgs); err != nil {
			log.Fatalf("streaming configuration: %v", err)
		}
	}()

	go func() {
		w := stream.NewBeatWriter(img)
		for i := 0; i < count; i++ {
			image := pixels[i*topo.InputSize() : (i+1)*topo.InputSize()]
			if err := w.WriteMessage(ctx, image); err != nil {
				log.Fatalf("streaming image %d: %v", i, err)
			}
		}
		img.Close()
	}()

	start := time.Now()
	r := stream.NewByteReader(res)
	for i := 0; ; i++ {
		msg, err := r.ReadMessage(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("reading result %d: %v", i, err)
		}
		fmt.Printf("image %d -> category %d\n", i, msg[0])
	}
	if err := <-runErr; err != nil {
		log.Fatalf("engine: %v", err)
	}
	if *verbose {
		elapsed := time.Since(start)
		fmt.Printf("Done in %v (%.1f images/s)\n", elapsed, float64(count)/elapsed.Seconds())
	}
}
