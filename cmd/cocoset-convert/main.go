// Command cocoset-convert batch-converts the segmentations of a COCO JSON
// dataset file and writes the converted dataset back out.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/cocoset/internal/coco"
	"github.com/banshee-data/cocoset/internal/mask"
)

func main() {
	input := flag.String("input", "", "Path to the input COCO JSON file")
	output := flag.String("output", "", "Path for the converted COCO JSON file")
	to := flag.String("to", "", "Target segmentation format: rle, encoded_rle or polygon")
	workers := flag.Int("workers", 4, "Conversion worker count")
	flag.Parse()

	if *input == "" || *output == "" || *to == "" {
		flag.Usage()
		os.Exit(2)
	}

	target, err := coco.ParseFormat(*to)
	if err != nil {
		log.Fatalf("invalid -to value: %v", err)
	}
	// polygon_rs is an internal form; files carry the size-less shape.
	if target == coco.FormatPolygonRS {
		log.Fatalf("invalid -to value: %q is not a file format", *to)
	}

	file, err := coco.LoadFile(*input)
	if err != nil {
		log.Fatalf("failed to load %s: %v", *input, err)
	}
	ds, err := coco.NewMemoryDataset(file)
	if err != nil {
		log.Fatalf("failed to index dataset: %v", err)
	}

	report, err := mask.ConvertDataset(context.Background(), ds, target, *workers)
	if err != nil {
		log.Fatalf("conversion failed: %v", err)
	}
	for _, failure := range report.Failures {
		fmt.Fprintf(os.Stderr, "annotation %d: %s\n", failure.AnnotationID, failure.Message)
	}
	log.Printf("converted %d/%d annotations to %s", report.Converted, report.Total, target)

	if err := ds.File().Write(*output); err != nil {
		log.Fatalf("failed to write %s: %v", *output, err)
	}
}
