// Package raster renders calibrated contours into per-color label masks.
// The polygon scan conversion itself is done by golang.org/x/image/vector;
// this package groups contours by color, filters out markers and
// degenerate geometry, and thresholds the coverage output into integer
// structure labels.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/vector"

	"github.com/aplbrain/reconstruct2stack/pkg/catalog"
	"github.com/aplbrain/reconstruct2stack/pkg/contour"
)

// Renderer rasterizes the contours of one slice into single-channel label
// masks, one mask per distinct contour color. A Renderer reuses its
// rasterization buffers between slices and is not safe for concurrent
// use; rendering workers each own one.
type Renderer struct {
	width  int
	height int
	cat    *catalog.Catalog

	ras   *vector.Rasterizer
	cover *image.Alpha
}

// NewRenderer creates a renderer for the given canvas size and label
// catalog.
func NewRenderer(width, height int, cat *catalog.Catalog) *Renderer {
	return &Renderer{
		width:  width,
		height: height,
		cat:    cat,
		ras:    vector.NewRasterizer(width, height),
		cover:  image.NewAlpha(image.Rect(0, 0, width, height)),
	}
}

// RenderSlice renders all qualifying contours of one slice, grouped by
// color. The returned map is keyed by ColorKey of each group's color
// tuple. Contours named as location markers and contours with fewer than
// 3 points are skipped; a color whose contours are all skipped produces
// no mask at all rather than an empty one.
//
// Within a group, contours are filled in order with their structure's
// catalog label; overlapping pixels are overwritten, last write wins.
func (r *Renderer) RenderSlice(contours []*contour.Contour) (map[string]*image.Gray, error) {
	masks := make(map[string]*image.Gray)

	for _, group := range groupByColor(contours) {
		var mask *image.Gray
		for _, c := range group.contours {
			if catalog.IsLocationMarker(c.Name) {
				continue
			}
			if c.Len() < 3 {
				// degenerate annotation artifact, nothing to fill
				continue
			}
			label, ok := r.cat.Label(c.Name)
			if !ok {
				return nil, fmt.Errorf("raster: structure %q is not in the catalog", c.Name)
			}
			if label > 255 {
				return nil, fmt.Errorf("raster: label %d for %q exceeds the 8-bit mask range", label, c.Name)
			}
			if mask == nil {
				mask = image.NewGray(image.Rect(0, 0, r.width, r.height))
			}
			r.fill(mask, c, uint8(label))
		}
		if mask != nil {
			masks[ColorKey(group.color)] = mask
		}
	}
	return masks, nil
}

// fill scan-converts one polygon and writes label into every mask pixel
// whose coverage is at least one half.
func (r *Renderer) fill(mask *image.Gray, c *contour.Contour, label uint8) {
	r.ras.Reset(r.width, r.height)
	r.ras.MoveTo(float32(c.Points[0].X), float32(c.Points[0].Y))
	for _, p := range c.Points[1:] {
		r.ras.LineTo(float32(p.X), float32(p.Y))
	}
	r.ras.ClosePath()

	pix := r.cover.Pix
	for i := range pix {
		pix[i] = 0
	}
	r.ras.Draw(r.cover, r.cover.Bounds(), image.NewUniform(color.Alpha{A: 0xff}), image.Point{})

	for i, a := range pix {
		if a >= 0x80 {
			mask.Pix[i] = label
		}
	}
}

type colorGroup struct {
	color    []float64
	contours []*contour.Contour
}

// groupByColor buckets contours by color tuple, preserving first-seen
// color order and contour order within each bucket.
func groupByColor(contours []*contour.Contour) []colorGroup {
	var groups []colorGroup
next:
	for _, c := range contours {
		for i := range groups {
			if contour.SameColor(groups[i].color, c.Color) {
				groups[i].contours = append(groups[i].contours, c)
				continue next
			}
		}
		groups = append(groups, colorGroup{color: c.Color, contours: []*contour.Contour{c}})
	}
	return groups
}

// ColorKey formats a color tuple as its components joined by underscores,
// for example "255_0_0". Integral components are formatted without a
// decimal point, matching the directory names downstream tooling expects.
func ColorKey(color []float64) string {
	parts := make([]string, len(color))
	for i, c := range color {
		parts[i] = strconv.FormatFloat(c, 'f', -1, 64)
	}
	return strings.Join(parts, "_")
}
