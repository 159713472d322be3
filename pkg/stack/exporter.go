// Package stack drives the full JSER-to-image-stack conversion: build the
// name/label catalog from a whole-document scan, then render every slice's
// color groups into label masks and hand them to a writer.
package stack

import (
	"fmt"
	"runtime"
	"sort"

	"github.com/schollz/progressbar/v3"

	"github.com/aplbrain/reconstruct2stack/pkg/catalog"
	"github.com/aplbrain/reconstruct2stack/pkg/jser"
	"github.com/aplbrain/reconstruct2stack/pkg/raster"
)

// Options control a conversion run.
type Options struct {
	// Width and Height are the output canvas size in pixels
	Width  int
	Height int

	// Workers is the number of slice rendering goroutines. Zero means
	// one per CPU. The catalog scan always runs first, single-threaded;
	// only rendering is parallel.
	Workers int

	// Progress enables a progress bar on stderr during rendering
	Progress bool

	// Slices optionally restricts the run to the given slice indices.
	// Indices in the document but not in the list are skipped entirely;
	// indices in the list but not in the document are ignored.
	Slices []int
}

// Exporter converts one document into a mask stack through a MaskWriter.
type Exporter struct {
	doc    *jser.Document
	writer MaskWriter
	opts   Options
}

// NewExporter creates an exporter for doc that hands finished masks to
// writer.
func NewExporter(doc *jser.Document, writer MaskWriter, opts Options) *Exporter {
	return &Exporter{doc: doc, writer: writer, opts: opts}
}

// Run performs the conversion. The catalog scan is a barrier: it must
// finish before any rendering starts, since every slice needs the same
// name-to-label mapping. Rendering then fans out across workers; slices
// are independent and the catalog and document are read-only.
//
// Any ingest, render or write failure aborts the run.
func (e *Exporter) Run() error {
	if e.opts.Width <= 0 || e.opts.Height <= 0 {
		return fmt.Errorf("stack: canvas size %dx%d is not positive", e.opts.Width, e.opts.Height)
	}

	counts, err := e.doc.CountNames()
	if err != nil {
		return fmt.Errorf("stack: scanning structure names: %w", err)
	}
	cat := catalog.Build(counts)

	zs := e.selectSlices()
	if len(zs) == 0 {
		return nil
	}

	workers := e.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(zs) {
		workers = len(zs)
	}

	var bar *progressbar.ProgressBar
	if e.opts.Progress {
		bar = progressbar.Default(int64(len(zs)), "rendering slices")
	}

	type sliceResult struct {
		z   int
		err error
	}

	jobs := make(chan int)
	results := make(chan sliceResult)

	for w := 0; w < workers; w++ {
		go func() {
			// one renderer per worker, rasterization buffers are not shared
			renderer := raster.NewRenderer(e.opts.Width, e.opts.Height, cat)
			for z := range jobs {
				results <- sliceResult{z: z, err: e.exportSlice(renderer, z)}
			}
		}()
	}

	go func() {
		for _, z := range zs {
			jobs <- z
		}
		close(jobs)
	}()

	var firstErr error
	for range zs {
		res := <-results
		if res.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stack: slice %d: %w", res.z, res.err)
		}
		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		bar.Finish()
	}
	return firstErr
}

// exportSlice renders one slice's color groups and writes every produced
// mask.
func (e *Exporter) exportSlice(renderer *raster.Renderer, z int) error {
	contours, err := e.doc.Contours(z, nil)
	if err != nil {
		return err
	}
	masks, err := renderer.RenderSlice(contours)
	if err != nil {
		return err
	}

	// deterministic write order within the slice
	keys := make([]string, 0, len(masks))
	for key := range masks {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := e.writer.WriteMask(key, z, masks[key]); err != nil {
			return err
		}
	}
	return nil
}

// selectSlices returns the slice indices to render, ascending, honoring
// the optional restriction list.
func (e *Exporter) selectSlices() []int {
	keys := e.doc.Keys()
	if e.opts.Slices == nil {
		return keys
	}
	wanted := make(map[int]bool, len(e.opts.Slices))
	for _, z := range e.opts.Slices {
		wanted[z] = true
	}
	var out []int
	for _, z := range keys {
		if wanted[z] {
			out = append(out, z)
		}
	}
	return out
}

// Convert runs the full pipeline for an already-parsed document, writing
// PNG masks under outputDir as <color>/<z>.png.
func Convert(doc *jser.Document, outputDir string, opts Options) error {
	return NewExporter(doc, NewDirWriter(outputDir), opts).Run()
}

// ConvertFile is Convert for a JSER document on disk.
func ConvertFile(jserPath, outputDir string, opts Options) error {
	doc, err := jser.Load(jserPath)
	if err != nil {
		return err
	}
	return Convert(doc, outputDir, opts)
}
