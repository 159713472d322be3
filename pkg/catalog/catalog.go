// Package catalog derives the document-wide mapping from structure names
// to integer raster labels. The mapping is computed once per conversion
// run, before any rendering starts, so the same structure gets the same
// label on every slice.
package catalog

import (
	"sort"
	"strings"
)

// Catalog assigns each structure name a stable integer label. Labels
// depend only on the set of names: all distinct names are sorted
// lexicographically descending and the label is the 0-based position in
// that order, so repeated runs over the same document always agree.
type Catalog struct {
	names  []string
	labels map[string]int
}

// Build constructs a Catalog from the name frequencies reported by a
// document scan. The counts themselves only matter for reporting; the
// label order uses the key set alone.
func Build(counts map[string]int) *Catalog {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	labels := make(map[string]int, len(names))
	for i, name := range names {
		labels[name] = i
	}
	return &Catalog{names: names, labels: labels}
}

// Label returns the raster label for name, and whether the name is known.
func (c *Catalog) Label(name string) (int, bool) {
	label, ok := c.labels[name]
	return label, ok
}

// Names returns all catalogued names in label order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len returns the number of catalogued names.
func (c *Catalog) Len() int {
	return len(c.names)
}

// IsLocationMarker reports whether a structure name denotes a location
// marker rather than a real structure. Marker contours are still counted
// during the document scan but are excluded from rasterization.
func IsLocationMarker(name string) bool {
	return strings.Contains(strings.ToLower(name), "loc")
}
