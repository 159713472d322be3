package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/aplbrain/reconstruct2stack/pkg/config"
	"github.com/aplbrain/reconstruct2stack/pkg/jser"
	"github.com/aplbrain/reconstruct2stack/pkg/stack"
)

func main() {
	// Parse command line arguments
	inputFile := flag.String("input", "", "Path to the JSER annotation document")
	outputDir := flag.String("output", "image_stack", "Output directory for the mask stack")
	width := flag.Int("width", 0, "Output mask width in pixels")
	height := flag.Int("height", 0, "Output mask height in pixels")
	numCores := flag.Int("cores", runtime.NumCPU(), "Number of CPU cores to use (default: all available)")
	slicesArg := flag.String("slices", "", "Comma-separated slice indices to render (default: all)")
	configPath := flag.String("config", "", "Path to a YAML configuration file")
	progress := flag.Bool("progress", true, "Show a progress bar during rendering")
	flag.Parse()

	// Validate inputs
	if *inputFile == "" {
		flag.Usage()
		os.Exit(1)
	}

	// Load configuration and let explicit flags override it
	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if !set["width"] {
		*width = cfg.Canvas.Width
	}
	if !set["height"] {
		*height = cfg.Canvas.Height
	}
	if !set["cores"] {
		*numCores = cfg.Processing.NumCores
	}
	if !set["progress"] {
		*progress = cfg.Output.Progress
	}

	slices, err := parseSliceList(*slicesArg)
	if err != nil {
		log.Fatalf("Invalid -slices value: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("RECONSTRUCT2STACK - JSER ANNOTATIONS TO LABELED IMAGE STACK")
	fmt.Println("================================")

	// Ingest the document up front so ingest failures surface before any
	// output directories are created
	fmt.Println("Step 1: Ingesting JSER document...")
	doc, err := jser.Load(*inputFile)
	if err != nil {
		log.Fatalf("Ingest failed: %v", err)
	}
	fmt.Printf("Loaded document %q with %d slices\n", doc.Prefix(), doc.Len())

	opts := stack.Options{
		Width:    *width,
		Height:   *height,
		Workers:  *numCores,
		Progress: *progress,
		Slices:   slices,
	}

	writer := stack.NewDirWriter(*outputDir)
	writer.Ext = cfg.Output.Extension

	fmt.Println("Step 2: Rendering label masks...")
	startTime := time.Now()
	if err := stack.NewExporter(doc, writer, opts).Run(); err != nil {
		log.Fatalf("Conversion failed: %v", err)
	}
	processingTime := time.Since(startTime)

	fmt.Printf("\nConversion completed successfully in %.2f seconds!\n", processingTime.Seconds())
	fmt.Printf("Mask stack saved to: %s\n", *outputDir)
	fmt.Printf("- Used %d cores for rendering\n", *numCores)
	fmt.Printf("- Canvas size: %dx%d\n", *width, *height)
}

// parseSliceList parses a comma-separated index list like "0,3,12".
// An empty string means no restriction.
func parseSliceList(arg string) ([]int, error) {
	if arg == "" {
		return nil, nil
	}
	parts := strings.Split(arg, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		z, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%q is not a slice index", part)
		}
		out = append(out, z)
	}
	return out, nil
}
