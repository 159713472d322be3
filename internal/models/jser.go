package models

// RawContour is a single contour entry exactly as it appears in a JSER
// document: parallel x/y coordinate arrays plus display metadata. The
// structure name is not stored here; it is the key of the containing
// contour group and gets stamped onto the contour during flattening.
type RawContour struct {
	// X and Y are the polygon vertex coordinates in the slice's raw
	// (uncalibrated) coordinate space
	X []float64 `json:"x"`
	Y []float64 `json:"y"`

	// Color is the annotation display color, observed as 3 components
	Color []float64 `json:"color"`

	// Closed indicates whether the polygon is a closed loop
	Closed bool `json:"closed"`

	// Negative marks the contour as a hole/subtraction region
	Negative bool `json:"negative"`

	// Hidden marks the contour as excluded from display in the
	// originating annotation tool
	Hidden bool `json:"hidden"`

	// Mode is an opaque tool-specific drawing mode
	Mode int `json:"mode"`

	// Tags and History are opaque annotation metadata, passed through
	Tags    []string `json:"tags"`
	History []string `json:"history"`
}

// RawSlice is one per-slice record of a JSER document: the contour groups
// keyed by structure name plus the calibration recorded at capture time.
type RawSlice struct {
	// Contours maps structure names to their contour lists
	Contours map[string][]RawContour `json:"contours"`

	// Mag is the capture magnification. It is a pointer so that a
	// missing field can be told apart from an explicit zero; both are
	// rejected when the slice is calibrated.
	Mag *float64 `json:"mag"`

	// Tforms holds named affine calibrations; only the "default" entry
	// (6 coefficients) is used by the conversion pipeline
	Tforms map[string][]float64 `json:"tforms"`
}
