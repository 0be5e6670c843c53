// Package grid provides the chunked storage model shared by the raster
// evaluation engine: regular tilings of a band plane and the float64
// tile buffers that flow through lazy operations.
package grid

// Default tile dimensions. Chosen so a full tile (data + mask) stays well
// under typical L2 sizes while keeping scheduling overhead low.
const (
	DefaultTileRows = 256
	DefaultTileCols = 256
)

// Layout describes the regular tiling of a single band plane. Tiles are
// TileRows x TileCols except along the bottom and right edges, where they
// shrink to fit.
type Layout struct {
	Rows, Cols int // plane extent in cells
	TileRows   int
	TileCols   int
}

// NewLayout builds a layout for a rows x cols plane. Tile dimensions are
// clamped to the plane extent and never drop below 1.
func NewLayout(rows, cols, tileRows, tileCols int) Layout {
	if tileRows <= 0 {
		tileRows = DefaultTileRows
	}
	if tileCols <= 0 {
		tileCols = DefaultTileCols
	}
	if tileRows > rows && rows > 0 {
		tileRows = rows
	}
	if tileCols > cols && cols > 0 {
		tileCols = cols
	}
	return Layout{Rows: rows, Cols: cols, TileRows: tileRows, TileCols: tileCols}
}

// TilesDown returns the number of tile rows in the layout.
func (l Layout) TilesDown() int {
	if l.Rows == 0 || l.TileRows == 0 {
		return 0
	}
	return (l.Rows + l.TileRows - 1) / l.TileRows
}

// TilesAcross returns the number of tile columns in the layout.
func (l Layout) TilesAcross() int {
	if l.Cols == 0 || l.TileCols == 0 {
		return 0
	}
	return (l.Cols + l.TileCols - 1) / l.TileCols
}

// NumTiles returns the total tile count for one band plane.
func (l Layout) NumTiles() int {
	return l.TilesDown() * l.TilesAcross()
}

// Tile returns the spec of the tile at tile-grid position (tr, tc).
func (l Layout) Tile(tr, tc int) Spec {
	row0 := tr * l.TileRows
	col0 := tc * l.TileCols
	rows := l.TileRows
	if row0+rows > l.Rows {
		rows = l.Rows - row0
	}
	cols := l.TileCols
	if col0+cols > l.Cols {
		cols = l.Cols - col0
	}
	return Spec{TR: tr, TC: tc, Row0: row0, Col0: col0, Rows: rows, Cols: cols}
}

// TileContaining returns the tile-grid position of the tile holding cell
// (row, col).
func (l Layout) TileContaining(row, col int) (tr, tc int) {
	return row / l.TileRows, col / l.TileCols
}

// Spec locates one tile within a band plane.
type Spec struct {
	TR, TC     int // position in the tile grid
	Row0, Col0 int // origin cell in plane coordinates
	Rows, Cols int // extent; partial at the bottom/right edges
}

// Tile is the unit of lazy evaluation: a block of float64 values for one
// band, plus an optional validity mask. A nil Mask means every cell is
// valid. Data and Mask are row-major with stride Spec.Cols.
type Tile struct {
	Band int // 0-based band index
	Spec Spec
	Data []float64
	Mask []bool
}

// NewTile allocates a zeroed tile for the given band and spec.
func NewTile(band int, spec Spec) Tile {
	return Tile{Band: band, Spec: spec, Data: make([]float64, spec.Rows*spec.Cols)}
}

// EnsureMask allocates the mask lazily and returns it.
func (t *Tile) EnsureMask() []bool {
	if t.Mask == nil {
		t.Mask = make([]bool, t.Spec.Rows*t.Spec.Cols)
	}
	return t.Mask
}

// At returns the value at tile-relative (r, c).
func (t Tile) At(r, c int) float64 { return t.Data[r*t.Spec.Cols+c] }

// Set stores v at tile-relative (r, c).
func (t *Tile) Set(r, c int, v float64) { t.Data[r*t.Spec.Cols+c] = v }

// MaskedAt reports whether the cell at tile-relative (r, c) is masked.
func (t Tile) MaskedAt(r, c int) bool {
	return t.Mask != nil && t.Mask[r*t.Spec.Cols+c]
}

// AnyMasked reports whether any cell of the tile is masked.
func (t Tile) AnyMasked() bool {
	for _, m := range t.Mask {
		if m {
			return true
		}
	}
	return false
}

// Normalize drops an all-false mask so downstream code can use Mask == nil
// as the fast path.
func (t *Tile) Normalize() {
	if t.Mask != nil && !t.AnyMasked() {
		t.Mask = nil
	}
}

// Clone returns a deep copy of the tile.
func (t Tile) Clone() Tile {
	out := Tile{Band: t.Band, Spec: t.Spec}
	out.Data = make([]float64, len(t.Data))
	copy(out.Data, t.Data)
	if t.Mask != nil {
		out.Mask = make([]bool, len(t.Mask))
		copy(out.Mask, t.Mask)
	}
	return out
}

// CopyInto writes the tile into a destination plane buffer of the given
// width. The destination must cover the tile's full extent.
func (t Tile) CopyInto(dst []float64, dstMask []bool, planeCols int) {
	for r := 0; r < t.Spec.Rows; r++ {
		di := (t.Spec.Row0+r)*planeCols + t.Spec.Col0
		si := r * t.Spec.Cols
		copy(dst[di:di+t.Spec.Cols], t.Data[si:si+t.Spec.Cols])
		if dstMask != nil {
			if t.Mask != nil {
				copy(dstMask[di:di+t.Spec.Cols], t.Mask[si:si+t.Spec.Cols])
			} else {
				for c := 0; c < t.Spec.Cols; c++ {
					dstMask[di+c] = false
				}
			}
		}
	}
}

// FillFrom populates the tile from a plane buffer of the given width.
// Mask may be nil.
func (t *Tile) FillFrom(src []float64, srcMask []bool, planeCols int) {
	for r := 0; r < t.Spec.Rows; r++ {
		si := (t.Spec.Row0+r)*planeCols + t.Spec.Col0
		di := r * t.Spec.Cols
		copy(t.Data[di:di+t.Spec.Cols], src[si:si+t.Spec.Cols])
		if srcMask != nil {
			mask := t.EnsureMask()
			copy(mask[di:di+t.Spec.Cols], srcMask[si:si+t.Spec.Cols])
		}
	}
	t.Normalize()
}
