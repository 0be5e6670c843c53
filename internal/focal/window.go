// Package focal implements moving-window statistics and kernel
// cross-correlation over padded value planes. Callers assemble a plane with
// halo rows and columns around the region of interest; the functions here
// compute one output value per interior cell. NaN marks cells that carry no
// value (masked or beyond the data edge) and is skipped by every statistic.
package focal

import (
	"fmt"
	"math"
)

// Window is a boolean neighborhood footprint. Cells is row-major with
// length Rows*Cols; a true cell participates in the statistic.
type Window struct {
	Rows, Cols int
	Cells      []bool
}

// Rect returns a fully true window with the given dimensions.
func Rect(rows, cols int) (Window, error) {
	if rows < 1 || cols < 1 {
		return Window{}, fmt.Errorf("focal: window dimensions must be >= 1, got %dx%d", rows, cols)
	}
	w := Window{Rows: rows, Cols: cols, Cells: make([]bool, rows*cols)}
	for i := range w.Cells {
		w.Cells[i] = true
	}
	return w, nil
}

// Circle returns a circular window of the given radius. The window is
// square with side 2*radius-1 and a cell is true when its distance from
// the center does not exceed radius-1.
func Circle(radius int) (Window, error) {
	if radius < 1 {
		return Window{}, fmt.Errorf("focal: circle radius must be >= 1, got %d", radius)
	}
	side := (radius-1)*2 + 1
	r := float64(side-1) / 2
	w := Window{Rows: side, Cols: side, Cells: make([]bool, side*side)}
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			dx := float64(x) - r
			dy := float64(y) - r
			w.Cells[y*side+x] = math.Sqrt(dx*dx+dy*dy) <= r
		}
	}
	return w, nil
}

// Annulus returns a ring window: the circle of the outer radius with the
// centered inner circle removed. inner must be at least 1 and strictly
// less than outer. Annulus(1, r) equals Circle(r) minus its center cell.
func Annulus(inner, outer int) (Window, error) {
	if inner < 1 {
		return Window{}, fmt.Errorf("focal: annulus inner radius must be >= 1, got %d", inner)
	}
	if outer <= inner {
		return Window{}, fmt.Errorf("focal: annulus outer radius must exceed inner, got inner=%d outer=%d", inner, outer)
	}
	w, err := Circle(outer)
	if err != nil {
		return Window{}, err
	}
	in, err := Circle(inner)
	if err != nil {
		return Window{}, err
	}
	pad := outer - inner
	for y := 0; y < in.Rows; y++ {
		for x := 0; x < in.Cols; x++ {
			if in.Cells[y*in.Cols+x] {
				w.Cells[(y+pad)*w.Cols+(x+pad)] = false
			}
		}
	}
	return w, nil
}

// At reports whether the window cell at (r, c) participates.
func (w Window) At(r, c int) bool {
	return w.Cells[r*w.Cols+c]
}

// Count returns the number of participating cells.
func (w Window) Count() int {
	n := 0
	for _, b := range w.Cells {
		if b {
			n++
		}
	}
	return n
}

// Offsets returns the reach of the window around its anchor cell at
// ((Rows-1)/2, (Cols-1)/2). Even dimensions reach one cell further
// down and right than up and left.
func (w Window) Offsets() (top, bot, left, right int) {
	return (w.Rows - 1) / 2, w.Rows / 2, (w.Cols - 1) / 2, w.Cols / 2
}

// Boundary selects how coordinates beyond the data edge resolve during
// correlation.
type Boundary uint8

const (
	// BoundaryConstant substitutes a fixed fill value.
	BoundaryConstant Boundary = iota
	// BoundaryReflect mirrors the data across the edge, repeating the
	// edge sample: a b c | c b a.
	BoundaryReflect
	// BoundaryNearest clamps to the edge sample.
	BoundaryNearest
	// BoundaryWrap continues from the opposite edge.
	BoundaryWrap
)

var boundaryNames = map[Boundary]string{
	BoundaryConstant: "constant",
	BoundaryReflect:  "reflect",
	BoundaryNearest:  "nearest",
	BoundaryWrap:     "wrap",
}

func (b Boundary) String() string {
	if s, ok := boundaryNames[b]; ok {
		return s
	}
	return "unknown"
}

// ParseBoundary interprets a boundary mode name.
func ParseBoundary(s string) (Boundary, error) {
	switch s {
	case "constant":
		return BoundaryConstant, nil
	case "reflect":
		return BoundaryReflect, nil
	case "nearest":
		return BoundaryNearest, nil
	case "wrap", "periodic":
		return BoundaryWrap, nil
	}
	return BoundaryConstant, fmt.Errorf("focal: unknown boundary mode %q", s)
}

// MapIndex resolves an out-of-range index into [0, n) according to the
// boundary mode. BoundaryConstant returns -1; the caller substitutes the
// fill value. n must be positive.
func (b Boundary) MapIndex(i, n int) int {
	if i >= 0 && i < n {
		return i
	}
	switch b {
	case BoundaryReflect:
		// Repeated reflection handles reaches beyond one full span.
		for i < 0 || i >= n {
			if i < 0 {
				i = -i - 1
			}
			if i >= n {
				i = 2*n - i - 1
			}
		}
		return i
	case BoundaryNearest:
		if i < 0 {
			return 0
		}
		return n - 1
	case BoundaryWrap:
		i %= n
		if i < 0 {
			i += n
		}
		return i
	}
	return -1
}
