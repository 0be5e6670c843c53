package geo

import (
	"fmt"
	"strconv"
	"strings"
)

// World files carry an affine geotransform as six plain-text numbers, one
// per line, in the order A, D, B, E, C', F' where (C', F') is the world
// position of the CENTER of the upper-left cell. The in-memory Affine uses
// the upper-left corner, so encoding and decoding shift by half a cell.

// ParseWorldFile decodes world-file text into an Affine.
func ParseWorldFile(text string) (Affine, error) {
	var vals []float64
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return Affine{}, fmt.Errorf("geo: world file line %d: %q is not a number", i+1, line)
		}
		vals = append(vals, v)
	}
	if len(vals) != 6 {
		return Affine{}, fmt.Errorf("geo: world file has %d values, want 6", len(vals))
	}
	a := Affine{
		A: vals[0], D: vals[1], B: vals[2], E: vals[3],
	}
	// Shift the cell-center origin back to the cell corner.
	a.C = vals[4] - a.A/2 - a.B/2
	a.F = vals[5] - a.D/2 - a.E/2
	return a, nil
}

// FormatWorldFile encodes an Affine as world-file text.
func FormatWorldFile(a Affine) string {
	cx := a.C + a.A/2 + a.B/2
	cy := a.F + a.D/2 + a.E/2
	var b strings.Builder
	for _, v := range []float64{a.A, a.D, a.B, a.E, cx, cy} {
		fmt.Fprintf(&b, "%.10g\n", v)
	}
	return b.String()
}
