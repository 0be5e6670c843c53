package grid

import "testing"

func TestLayoutTileCounts(t *testing.T) {
	tests := []struct {
		name                 string
		rows, cols           int
		tileRows, tileCols   int
		wantDown, wantAcross int
	}{
		{"exact", 512, 512, 256, 256, 2, 2},
		{"partial edges", 300, 520, 256, 256, 2, 3},
		{"smaller than tile", 10, 10, 256, 256, 1, 1},
		{"single column", 1000, 1, 256, 256, 4, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLayout(tt.rows, tt.cols, tt.tileRows, tt.tileCols)
			if got := l.TilesDown(); got != tt.wantDown {
				t.Errorf("TilesDown() = %d, want %d", got, tt.wantDown)
			}
			if got := l.TilesAcross(); got != tt.wantAcross {
				t.Errorf("TilesAcross() = %d, want %d", got, tt.wantAcross)
			}
		})
	}
}

func TestLayoutTileSpecs(t *testing.T) {
	l := NewLayout(300, 520, 256, 256)

	nw := l.Tile(0, 0)
	if nw.Row0 != 0 || nw.Col0 != 0 || nw.Rows != 256 || nw.Cols != 256 {
		t.Errorf("tile (0,0) = %+v, want origin (0,0) extent 256x256", nw)
	}

	se := l.Tile(1, 2)
	if se.Row0 != 256 || se.Col0 != 512 {
		t.Errorf("tile (1,2) origin = (%d,%d), want (256,512)", se.Row0, se.Col0)
	}
	if se.Rows != 44 || se.Cols != 8 {
		t.Errorf("tile (1,2) extent = %dx%d, want 44x8", se.Rows, se.Cols)
	}

	// Every cell belongs to exactly one tile and the union covers the plane.
	total := 0
	for tr := 0; tr < l.TilesDown(); tr++ {
		for tc := 0; tc < l.TilesAcross(); tc++ {
			s := l.Tile(tr, tc)
			total += s.Rows * s.Cols
		}
	}
	if total != 300*520 {
		t.Errorf("tiles cover %d cells, want %d", total, 300*520)
	}
}

func TestTileContaining(t *testing.T) {
	l := NewLayout(300, 520, 256, 256)
	tr, tc := l.TileContaining(256, 511)
	if tr != 1 || tc != 1 {
		t.Errorf("TileContaining(256,511) = (%d,%d), want (1,1)", tr, tc)
	}
	tr, tc = l.TileContaining(0, 0)
	if tr != 0 || tc != 0 {
		t.Errorf("TileContaining(0,0) = (%d,%d), want (0,0)", tr, tc)
	}
}

func TestTileRoundTrip(t *testing.T) {
	plane := make([]float64, 8*10)
	mask := make([]bool, 8*10)
	for i := range plane {
		plane[i] = float64(i)
		mask[i] = i%7 == 0
	}

	l := NewLayout(8, 10, 3, 4)
	out := make([]float64, len(plane))
	outMask := make([]bool, len(mask))
	for tr := 0; tr < l.TilesDown(); tr++ {
		for tc := 0; tc < l.TilesAcross(); tc++ {
			tile := NewTile(0, l.Tile(tr, tc))
			tile.FillFrom(plane, mask, 10)
			tile.CopyInto(out, outMask, 10)
		}
	}
	for i := range plane {
		if out[i] != plane[i] {
			t.Fatalf("value %d = %v, want %v", i, out[i], plane[i])
		}
		if outMask[i] != mask[i] {
			t.Fatalf("mask %d = %v, want %v", i, outMask[i], mask[i])
		}
	}
}

func TestTileNormalize(t *testing.T) {
	tile := NewTile(0, Spec{Rows: 2, Cols: 2})
	tile.EnsureMask()
	tile.Normalize()
	if tile.Mask != nil {
		t.Error("all-false mask not dropped")
	}

	tile.EnsureMask()[3] = true
	tile.Normalize()
	if tile.Mask == nil {
		t.Error("mask with set bits dropped")
	}
	if !tile.MaskedAt(1, 1) {
		t.Error("MaskedAt(1,1) = false, want true")
	}
}
