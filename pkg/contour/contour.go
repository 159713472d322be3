// Package contour provides the polygon annotation value object used
// throughout the conversion pipeline. A Contour is immutable by convention:
// every transform returns a fresh instance and never touches the original,
// so calibrated and raw views of the same annotation can coexist safely
// across worker goroutines.
package contour

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/aplbrain/reconstruct2stack/internal/models"
)

// Point is a single polygon vertex.
type Point struct {
	X, Y float64
}

// InvalidError reports a contour that cannot be constructed from the
// supplied data, typically a raw record missing coordinate arrays.
type InvalidError struct {
	Msg string
}

func (e *InvalidError) Error() string {
	return "invalid contour: " + e.Msg
}

// Contour is one polygon annotation with its metadata. Treat instances as
// read-only; use WithMag, WithTforms and WithUpdated to derive new ones.
type Contour struct {
	// Points are the polygon vertices, in order
	Points []Point

	// Color is the annotation color tuple; contours with the same color
	// (compared as integers) belong to the same raster channel
	Color []float64

	// Closed, Negative and Hidden describe topology and rendering intent.
	// They are carried through the pipeline unchanged.
	Closed   bool
	Negative bool
	Hidden   bool

	// Name is the structure this contour belongs to, stamped from its
	// containing group key during document flattening
	Name string

	// Mode, Tags and History are opaque passthrough metadata
	Mode    int
	Tags    []string
	History []string

	// OffsetXY is an optional construction-time translation. It is
	// preserved but plays no part in the calibration pipeline.
	OffsetXY *Point
}

// Fields is the constructor input for a Contour. Geometry can be supplied
// either as Points or as the X/Y coordinate pair; supplying neither, or
// only one of X/Y, or X/Y of different lengths, is an *InvalidError.
type Fields struct {
	Points   []Point
	X, Y     []float64
	Color    []float64
	Closed   bool
	Negative bool
	Hidden   bool
	Name     string
	Mode     int
	Tags     []string
	History  []string
	OffsetXY *Point
}

// New builds a Contour from the given fields. All construction paths,
// including the With* transforms, funnel through here so geometry is
// validated uniformly.
func New(f Fields) (*Contour, error) {
	var pts []Point
	switch {
	case f.Points != nil:
		pts = make([]Point, len(f.Points))
		copy(pts, f.Points)
	case f.X != nil && f.Y != nil:
		if len(f.X) != len(f.Y) {
			return nil, &InvalidError{Msg: fmt.Sprintf("x has %d coordinates but y has %d", len(f.X), len(f.Y))}
		}
		pts = make([]Point, len(f.X))
		for i := range f.X {
			pts[i] = Point{X: f.X[i], Y: f.Y[i]}
		}
	default:
		return nil, &InvalidError{Msg: "must provide either points or both x and y"}
	}

	c := &Contour{
		Points:   pts,
		Color:    f.Color,
		Closed:   f.Closed,
		Negative: f.Negative,
		Hidden:   f.Hidden,
		Name:     f.Name,
		Mode:     f.Mode,
		Tags:     f.Tags,
		History:  f.History,
	}
	if f.OffsetXY != nil {
		off := *f.OffsetXY
		c.OffsetXY = &off
		for i := range c.Points {
			c.Points[i].X += off.X
			c.Points[i].Y += off.Y
		}
	}
	return c, nil
}

// FromRaw builds a Contour from a wire-level record, stamping the structure
// name of the group the record was found under.
func FromRaw(raw models.RawContour, name string) (*Contour, error) {
	return New(Fields{
		X:        raw.X,
		Y:        raw.Y,
		Color:    raw.Color,
		Closed:   raw.Closed,
		Negative: raw.Negative,
		Hidden:   raw.Hidden,
		Name:     name,
		Mode:     raw.Mode,
		Tags:     raw.Tags,
		History:  raw.History,
	})
}

// ToRaw returns the wire-level representation of the contour. FromRaw on
// the result reproduces the same coordinates, color, flags and metadata.
func (c *Contour) ToRaw() models.RawContour {
	return models.RawContour{
		X:        c.X(),
		Y:        c.Y(),
		Color:    c.Color,
		Closed:   c.Closed,
		Negative: c.Negative,
		Hidden:   c.Hidden,
		Mode:     c.Mode,
		Tags:     c.Tags,
		History:  c.History,
	}
}

// X returns the x coordinates of all points, in order.
func (c *Contour) X() []float64 {
	xs := make([]float64, len(c.Points))
	for i, p := range c.Points {
		xs[i] = p.X
	}
	return xs
}

// Y returns the y coordinates of all points, in order.
func (c *Contour) Y() []float64 {
	ys := make([]float64, len(c.Points))
	for i, p := range c.Points {
		ys[i] = p.Y
	}
	return ys
}

// Len returns the number of points in the contour.
func (c *Contour) Len() int {
	return len(c.Points)
}

func (c *Contour) String() string {
	return fmt.Sprintf("<Contour %q (len=%d)>", c.Name, c.Len())
}

// fields returns the constructor view of the contour, with geometry
// expressed as the X/Y pair so updates can override either array.
func (c *Contour) fields() Fields {
	return Fields{
		X:        c.X(),
		Y:        c.Y(),
		Color:    c.Color,
		Closed:   c.Closed,
		Negative: c.Negative,
		Hidden:   c.Hidden,
		Name:     c.Name,
		Mode:     c.Mode,
		Tags:     c.Tags,
		History:  c.History,
		OffsetXY: c.OffsetXY,
	}
}

// WithUpdated returns a new Contour identical to c except for the changes
// made by update, re-validated through the standard constructor. Replacing
// X leaves the original Y in place, so swapping one coordinate array for
// one of a different length fails.
func (c *Contour) WithUpdated(update func(f *Fields)) (*Contour, error) {
	f := c.fields()
	f.OffsetXY = nil // already folded into the coordinates
	update(&f)
	out, err := New(f)
	if err != nil {
		return nil, err
	}
	if out.OffsetXY == nil {
		out.OffsetXY = c.OffsetXY
	}
	return out, nil
}

// WithMag returns a new Contour with every coordinate multiplied by mag.
// All non-geometric fields are copied unchanged. Calibration applies this
// with 1/mag before the slice's affine transform; that ordering is an
// invariant of the pipeline, not a local detail.
func (c *Contour) WithMag(mag float64) *Contour {
	pts := make([]Point, len(c.Points))
	for i, p := range c.Points {
		pts[i] = Point{X: p.X * mag, Y: p.Y * mag}
	}
	out := *c
	out.Points = pts
	return &out
}

// WithTforms returns a new Contour with the slice's 6-coefficient affine
// calibration applied. The coefficients are reshaped row-major into a 3x2
// matrix M, and the Nx2 point matrix is multiplied by M transposed; of the
// Nx3 product only the first two columns survive as the new coordinates.
//
// This layout is how the calibration data is stored. It is deliberately
// not the conventional 2x3 rotate-plus-translate arrangement; changing the
// shape or the multiplication order would silently recalibrate every
// document.
func (c *Contour) WithTforms(coeffs [6]float64) *Contour {
	if len(c.Points) == 0 {
		out := *c
		out.Points = []Point{}
		return &out
	}

	flat := make([]float64, 0, len(c.Points)*2)
	for _, p := range c.Points {
		flat = append(flat, p.X, p.Y)
	}
	points := mat.NewDense(len(c.Points), 2, flat)
	m := mat.NewDense(3, 2, coeffs[:])

	var product mat.Dense
	product.Mul(points, m.T())

	pts := make([]Point, len(c.Points))
	for i := range pts {
		pts[i] = Point{X: product.At(i, 0), Y: product.At(i, 1)}
	}
	out := *c
	out.Points = pts
	return &out
}

// SameColor reports whether two color tuples identify the same raster
// channel. Components are compared as integers, mirroring how colors are
// stored in annotation documents.
func SameColor(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if int(a[i]) != int(b[i]) {
			return false
		}
	}
	return true
}
