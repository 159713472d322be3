// Package jser ingests JSER annotation documents: JSON trees keyed by
// "<prefix>.<index>" with one "<prefix>.ser" metadata entry, each slice
// record holding named contour groups plus the capture calibration
// (magnification and a 6-coefficient affine transform).
package jser

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/aplbrain/reconstruct2stack/internal/models"
	"github.com/aplbrain/reconstruct2stack/pkg/contour"
)

// IngestError reports a document that cannot be read or parsed, or a slice
// missing the calibration data required to produce calibrated contours.
// Ingest failures are fatal for the conversion run; there is no implicit
// identity-calibration fallback.
type IngestError struct {
	// Slice is the slice index the error refers to, or -1 for
	// document-level failures
	Slice int
	Msg   string
	Err   error
}

func (e *IngestError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Slice >= 0 {
		return fmt.Sprintf("jser: slice %d: %s", e.Slice, msg)
	}
	return "jser: " + msg
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// Document is a parsed JSER document. The slice index is typed and built
// once at construction; the document is read-only afterwards, so it can be
// shared across rendering workers without synchronization.
type Document struct {
	prefix string
	slices map[int]models.RawSlice
	keys   []int
	meta   json.RawMessage
}

// Load reads and parses a JSER document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IngestError{Slice: -1, Msg: fmt.Sprintf("reading %s", path), Err: err}
	}
	return Parse(data)
}

// Parse builds a Document from raw JSER bytes.
func Parse(data []byte) (*Document, error) {
	var tree map[string]json.RawMessage
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, &IngestError{Slice: -1, Msg: "malformed document", Err: err}
	}
	return FromTree(tree)
}

// FromTree builds a Document from an already-parsed top-level JSON
// mapping. The key prefix is discovered once and assumed constant across
// the whole document.
func FromTree(tree map[string]json.RawMessage) (*Document, error) {
	doc := &Document{slices: make(map[int]models.RawSlice)}

	for key, raw := range tree {
		if strings.HasSuffix(key, ".ser") {
			doc.meta = raw
			continue
		}

		dot := strings.LastIndex(key, ".")
		if dot < 0 {
			return nil, &IngestError{Slice: -1, Msg: fmt.Sprintf("key %q has no slice index", key)}
		}
		z, err := strconv.Atoi(key[dot+1:])
		if err != nil {
			return nil, &IngestError{Slice: -1, Msg: fmt.Sprintf("key %q has a non-integer slice index", key), Err: err}
		}
		if doc.prefix == "" {
			doc.prefix = key[:dot]
		}

		var rec models.RawSlice
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, &IngestError{Slice: z, Msg: "malformed slice record", Err: err}
		}
		doc.slices[z] = rec
		doc.keys = append(doc.keys, z)
	}

	if len(doc.slices) == 0 {
		return nil, &IngestError{Slice: -1, Msg: "document contains no slice records"}
	}
	sort.Ints(doc.keys)
	return doc, nil
}

// Meta returns the raw document-level metadata record (the ".ser" entry),
// or nil if the document has none.
func (d *Document) Meta() json.RawMessage {
	return d.meta
}

// Prefix returns the document's key prefix (the part before ".<index>").
func (d *Document) Prefix() string {
	return d.prefix
}

// Len returns the number of slice records in the document.
func (d *Document) Len() int {
	return len(d.slices)
}

// Keys returns the slice indices present in the document in ascending
// order, excluding the metadata entry.
func (d *Document) Keys() []int {
	out := make([]int, len(d.keys))
	copy(out, d.keys)
	return out
}

// Slice returns the raw record for slice z.
func (d *Document) Slice(z int) (models.RawSlice, error) {
	rec, ok := d.slices[z]
	if !ok {
		return models.RawSlice{}, &IngestError{Slice: z, Msg: "no such slice"}
	}
	return rec, nil
}

// calibration returns the magnification and default affine coefficients
// for slice z. Either being missing or invalid is fatal for the slice.
func (d *Document) calibration(z int) (float64, [6]float64, error) {
	var tf [6]float64

	rec, ok := d.slices[z]
	if !ok {
		return 0, tf, &IngestError{Slice: z, Msg: "no such slice"}
	}
	if rec.Mag == nil {
		return 0, tf, &IngestError{Slice: z, Msg: "missing mag"}
	}
	if *rec.Mag <= 0 {
		return 0, tf, &IngestError{Slice: z, Msg: fmt.Sprintf("mag must be > 0, got %v", *rec.Mag)}
	}
	coeffs, ok := rec.Tforms["default"]
	if !ok {
		return 0, tf, &IngestError{Slice: z, Msg: "missing tforms.default"}
	}
	if len(coeffs) != 6 {
		return 0, tf, &IngestError{Slice: z, Msg: fmt.Sprintf("tforms.default has %d coefficients, want 6", len(coeffs))}
	}
	copy(tf[:], coeffs)
	return *rec.Mag, tf, nil
}

// RawContours flattens the named contour groups of slice z into a single
// list, stamping each contour with its group's structure name. No
// calibration is applied.
func (d *Document) RawContours(z int) ([]*contour.Contour, error) {
	rec, ok := d.slices[z]
	if !ok {
		return nil, &IngestError{Slice: z, Msg: "no such slice"}
	}

	// Iterate group names in sorted order so flattening is deterministic
	names := make([]string, 0, len(rec.Contours))
	for name := range rec.Contours {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []*contour.Contour
	for _, name := range names {
		for i, raw := range rec.Contours[name] {
			c, err := contour.FromRaw(raw, name)
			if err != nil {
				return nil, fmt.Errorf("slice %d, %q contour %d: %w", z, name, i, err)
			}
			out = append(out, c)
		}
	}
	return out, nil
}

// Contours returns the calibrated contours of slice z: each raw contour
// scaled by 1/mag and then passed through the slice's default affine
// transform. Scaling must come first; the affine coefficients are
// calibrated in pre-scaled units.
//
// If filterColors is non-nil, only contours whose color matches one of the
// given tuples (compared as integers) are returned. No match is an empty
// result, not an error.
func (d *Document) Contours(z int, filterColors [][]float64) ([]*contour.Contour, error) {
	raw, err := d.RawContours(z)
	if err != nil {
		return nil, err
	}
	mag, tforms, err := d.calibration(z)
	if err != nil {
		return nil, err
	}

	out := make([]*contour.Contour, 0, len(raw))
	for _, c := range raw {
		if filterColors != nil && !matchesAny(c.Color, filterColors) {
			continue
		}
		out = append(out, c.WithMag(1/mag).WithTforms(tforms))
	}
	return out, nil
}

func matchesAny(color []float64, filters [][]float64) bool {
	for _, f := range filters {
		if contour.SameColor(color, f) {
			return true
		}
	}
	return false
}

// UniqueColors returns the distinct contour colors of slice z in order of
// first appearance.
func (d *Document) UniqueColors(z int) ([][]float64, error) {
	cs, err := d.RawContours(z)
	if err != nil {
		return nil, err
	}
	return collectColors(nil, cs), nil
}

// AllUniqueColors returns the distinct contour colors across the whole
// document in order of first appearance.
func (d *Document) AllUniqueColors() ([][]float64, error) {
	var colors [][]float64
	for _, z := range d.keys {
		cs, err := d.RawContours(z)
		if err != nil {
			return nil, err
		}
		colors = collectColors(colors, cs)
	}
	return colors, nil
}

func collectColors(colors [][]float64, cs []*contour.Contour) [][]float64 {
	for _, c := range cs {
		seen := false
		for _, col := range colors {
			if contour.SameColor(c.Color, col) {
				seen = true
				break
			}
		}
		if !seen {
			colors = append(colors, c.Color)
		}
	}
	return colors
}

// CountNames scans every slice's calibrated contours and returns how many
// times each structure name occurs. Catalog construction uses the result
// to derive the document-wide name ordering.
func (d *Document) CountNames() (map[string]int, error) {
	counts := make(map[string]int)
	for _, z := range d.keys {
		cs, err := d.Contours(z, nil)
		if err != nil {
			return nil, err
		}
		for _, c := range cs {
			counts[c.Name]++
		}
	}
	return counts, nil
}
