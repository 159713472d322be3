package jser

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
)

// rawContour builds one wire-level contour entry for test documents
func rawContour(x, y, color []float64) map[string]any {
	return map[string]any{
		"x":        x,
		"y":        y,
		"color":    color,
		"closed":   true,
		"negative": false,
		"hidden":   false,
		"mode":     11,
		"tags":     []string{},
		"history":  []string{},
	}
}

// sliceRecord builds one per-slice record with default calibration
func sliceRecord(contours map[string]any, mag float64, tforms []float64) map[string]any {
	return map[string]any{
		"contours": contours,
		"mag":      mag,
		"tforms":   map[string]any{"default": tforms},
	}
}

func marshalDocument(t *testing.T, tree map[string]any) []byte {
	t.Helper()
	data, err := json.Marshal(tree)
	if err != nil {
		t.Fatalf("marshaling test document: %v", err)
	}
	return data
}

// testDocument is a two-slice document with mag 2 and a 0.5-scale default
// transform, so calibration halves raw coordinates twice over.
func testDocument(t *testing.T) *Document {
	t.Helper()
	identityish := []float64{0.5, 0, 0, 0.5, 0, 0}
	data := marshalDocument(t, map[string]any{
		"series.ser": map[string]any{"version": 3},
		"series.2": sliceRecord(map[string]any{
			"Soma": []any{rawContour([]float64{0, 4, 0}, []float64{0, 0, 4}, []float64{255, 0, 0})},
		}, 2.0, identityish),
		"series.0": sliceRecord(map[string]any{
			"Soma": []any{rawContour([]float64{0, 4, 0}, []float64{0, 0, 4}, []float64{255, 0, 0})},
			"Axon": []any{
				rawContour([]float64{8, 12, 8}, []float64{8, 8, 12}, []float64{0, 255, 0}),
				rawContour([]float64{1, 2, 1}, []float64{1, 1, 2}, []float64{0, 255, 0}),
			},
		}, 2.0, identityish),
	})
	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return doc
}

func TestParseKeys(t *testing.T) {
	doc := testDocument(t)

	if got := doc.Keys(); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("Keys() = %v, want [0 2]", got)
	}
	if doc.Len() != 2 {
		t.Errorf("Len() = %d, want 2", doc.Len())
	}
	if doc.Prefix() != "series" {
		t.Errorf("Prefix() = %q, want series", doc.Prefix())
	}
}

func TestParseMalformed(t *testing.T) {
	var ingest *IngestError

	_, err := Parse([]byte("{not json"))
	if !errors.As(err, &ingest) {
		t.Fatalf("expected *IngestError for malformed JSON, got %v", err)
	}

	_, err = Parse([]byte(`{"series.ser": {}}`))
	if !errors.As(err, &ingest) {
		t.Fatalf("expected *IngestError for a document with no slices, got %v", err)
	}

	_, err = Load("testdata/does-not-exist.jser")
	if !errors.As(err, &ingest) {
		t.Fatalf("expected *IngestError for a missing file, got %v", err)
	}
}

func TestRawContoursFlattening(t *testing.T) {
	doc := testDocument(t)

	cs, err := doc.RawContours(0)
	if err != nil {
		t.Fatalf("RawContours failed: %v", err)
	}
	if len(cs) != 3 {
		t.Fatalf("got %d contours, want 3", len(cs))
	}

	// each contour is stamped with its group name, geometry untouched
	byName := map[string]int{}
	for _, c := range cs {
		byName[c.Name]++
	}
	if byName["Soma"] != 1 || byName["Axon"] != 2 {
		t.Errorf("name stamping wrong: %v", byName)
	}
	for _, c := range cs {
		if c.Name == "Soma" && c.Points[1].X != 4 {
			t.Errorf("raw geometry was modified: %v", c.Points)
		}
	}
}

func TestContoursCalibration(t *testing.T) {
	doc := testDocument(t)

	cs, err := doc.Contours(2, nil)
	if err != nil {
		t.Fatalf("Contours failed: %v", err)
	}
	if len(cs) != 1 {
		t.Fatalf("got %d contours, want 1", len(cs))
	}

	// raw (4,0) scaled by 1/2 then by the 0.5 transform lands at (1,0)
	got := cs[0].Points
	want := [][2]float64{{0, 0}, {1, 0}, {0, 1}}
	for i := range want {
		if math.Abs(got[i].X-want[i][0]) > 1e-12 || math.Abs(got[i].Y-want[i][1]) > 1e-12 {
			t.Errorf("point %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestContoursColorFilter(t *testing.T) {
	doc := testDocument(t)

	cs, err := doc.Contours(0, [][]float64{{0, 255, 0}})
	if err != nil {
		t.Fatalf("Contours failed: %v", err)
	}
	if len(cs) != 2 {
		t.Fatalf("got %d contours, want the 2 green ones", len(cs))
	}
	for _, c := range cs {
		if c.Name != "Axon" {
			t.Errorf("unexpected contour %v in filtered result", c)
		}
	}

	// no match is an empty result, not an error
	cs, err = doc.Contours(0, [][]float64{{1, 2, 3}})
	if err != nil {
		t.Fatalf("Contours with unmatched filter failed: %v", err)
	}
	if len(cs) != 0 {
		t.Errorf("got %d contours, want 0", len(cs))
	}
}

func TestMissingCalibration(t *testing.T) {
	noMag := marshalDocument(t, map[string]any{
		"series.ser": map[string]any{},
		"series.0": map[string]any{
			"contours": map[string]any{
				"Soma": []any{rawContour([]float64{0}, []float64{0}, []float64{255, 0, 0})},
			},
			"tforms": map[string]any{"default": []float64{1, 0, 0, 1, 0, 0}},
		},
	})
	doc, err := Parse(noMag)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	// the raw view works without calibration
	if _, err := doc.RawContours(0); err != nil {
		t.Fatalf("RawContours failed: %v", err)
	}

	// the calibrated view does not
	var ingest *IngestError
	if _, err := doc.Contours(0, nil); !errors.As(err, &ingest) {
		t.Fatalf("expected *IngestError for missing mag, got %v", err)
	}
	if ingest.Slice != 0 {
		t.Errorf("error names slice %d, want 0", ingest.Slice)
	}

	noTforms := marshalDocument(t, map[string]any{
		"series.ser": map[string]any{},
		"series.0": map[string]any{
			"contours": map[string]any{
				"Soma": []any{rawContour([]float64{0}, []float64{0}, []float64{255, 0, 0})},
			},
			"mag": 2.0,
		},
	})
	doc, err = Parse(noTforms)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := doc.Contours(0, nil); !errors.As(err, &ingest) {
		t.Fatalf("expected *IngestError for missing tforms.default, got %v", err)
	}
}

func TestZeroMagRejected(t *testing.T) {
	data := marshalDocument(t, map[string]any{
		"series.ser": map[string]any{},
		"series.0": sliceRecord(map[string]any{
			"Soma": []any{rawContour([]float64{0}, []float64{0}, []float64{255, 0, 0})},
		}, 0.0, []float64{1, 0, 0, 1, 0, 0}),
	})
	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	var ingest *IngestError
	if _, err := doc.Contours(0, nil); !errors.As(err, &ingest) {
		t.Fatalf("expected *IngestError for mag = 0, got %v", err)
	}
}

func TestUniqueColors(t *testing.T) {
	doc := testDocument(t)

	colors, err := doc.UniqueColors(0)
	if err != nil {
		t.Fatalf("UniqueColors failed: %v", err)
	}
	if len(colors) != 2 {
		t.Fatalf("got %d colors, want 2", len(colors))
	}

	all, err := doc.AllUniqueColors()
	if err != nil {
		t.Fatalf("AllUniqueColors failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d colors across the document, want 2", len(all))
	}
}

func TestCountNames(t *testing.T) {
	doc := testDocument(t)

	counts, err := doc.CountNames()
	if err != nil {
		t.Fatalf("CountNames failed: %v", err)
	}
	want := map[string]int{"Soma": 2, "Axon": 2}
	if !reflect.DeepEqual(counts, want) {
		t.Errorf("CountNames() = %v, want %v", counts, want)
	}
}
