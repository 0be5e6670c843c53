package rasterkit

import (
	"context"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// PointRecord is one cell extracted as a point feature. Band is 1-based;
// Point is the cell center in the raster CRS.
type PointRecord struct {
	Value float64
	Band  int
	Row   int
	Col   int
	Point orb.Point
}

// PolygonRecord is one connected region of equal-valued cells extracted as
// a polygon feature. Band is 1-based; the polygon rings trace cell edges in
// the raster CRS.
type PolygonRecord struct {
	Value   float64
	Band    int
	Polygon orb.Polygon
}

// ToPoints evaluates the raster and returns one record per non-null cell,
// in band-major, row-major order. Unmasked rasters yield a record for every
// cell.
func (r *Raster) ToPoints(ctx context.Context) ([]PointRecord, error) {
	cu, err := r.materialize(ctx)
	if err != nil {
		return nil, err
	}
	var out []PointRecord
	for b := 0; b < r.shape.Bands; b++ {
		for row := 0; row < r.shape.Rows; row++ {
			for col := 0; col < r.shape.Cols; col++ {
				if cu.maskedAt(b, row, col) {
					continue
				}
				x, y := r.XY(row, col, OffsetCenter)
				out = append(out, PointRecord{
					Value: cu.at(b, row, col),
					Band:  b + 1,
					Row:   row,
					Col:   col,
					Point: orb.Point{x, y},
				})
			}
		}
	}
	return out, nil
}

// ToPolygons evaluates the raster and merges connected cells of equal value
// into polygons, per band. connectivity selects 4- or 8-connected regions;
// with 8-connectivity diagonal neighbors join and rings cross at shared
// corners. Null and NaN cells separate regions and produce no feature.
// Exterior rings wind counterclockwise and holes clockwise in world
// coordinates.
func (r *Raster) ToPolygons(ctx context.Context, connectivity int) ([]PolygonRecord, error) {
	if connectivity != 4 && connectivity != 8 {
		return nil, fmt.Errorf("rasterkit: ToPolygons: connectivity must be 4 or 8, got %d", connectivity)
	}
	cu, err := r.materialize(ctx)
	if err != nil {
		return nil, err
	}
	var out []PolygonRecord
	for b := 0; b < r.shape.Bands; b++ {
		out = append(out, r.polygonizeBand(cu, b, connectivity == 8)...)
	}
	return out, nil
}

func (r *Raster) polygonizeBand(cu *cube, band int, diag bool) []PolygonRecord {
	rows, cols := r.shape.Rows, r.shape.Cols
	plane := cu.values[band*rows*cols : (band+1)*rows*cols]

	skip := make([]bool, rows*cols)
	for i, v := range plane {
		skip[i] = math.IsNaN(v)
	}
	if cu.mask != nil {
		for i, m := range cu.mask[band*rows*cols : (band+1)*rows*cols] {
			if m {
				skip[i] = true
			}
		}
	}

	uf := newUnionFind(rows * cols)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			i := row*cols + col
			if skip[i] {
				continue
			}
			if col > 0 && !skip[i-1] && plane[i-1] == plane[i] {
				uf.union(i, i-1)
			}
			if row > 0 {
				up := i - cols
				if !skip[up] && plane[up] == plane[i] {
					uf.union(i, up)
				}
				if diag {
					if col > 0 && !skip[up-1] && plane[up-1] == plane[i] {
						uf.union(i, up-1)
					}
					if col < cols-1 && !skip[up+1] && plane[up+1] == plane[i] {
						uf.union(i, up+1)
					}
				}
			}
		}
	}

	// Region ids in first-encounter order keep the output deterministic.
	regionOf := make(map[int]int)
	var regionCells [][]int
	for i := 0; i < rows*cols; i++ {
		if skip[i] {
			continue
		}
		root := uf.find(i)
		rid, ok := regionOf[root]
		if !ok {
			rid = len(regionCells)
			regionOf[root] = rid
			regionCells = append(regionCells, nil)
		}
		regionCells[rid] = append(regionCells[rid], i)
	}

	same := func(i, j int) bool {
		return !skip[j] && uf.find(j) == uf.find(i)
	}

	out := make([]PolygonRecord, 0, len(regionCells))
	for _, cells := range regionCells {
		// Directed boundary edges: the region interior stays on a
		// consistent side so the edges stitch into closed rings.
		var edges []boundaryEdge
		for _, i := range cells {
			row, col := i/cols, i%cols
			if row == 0 || !same(i, i-cols) {
				edges = append(edges, boundaryEdge{corner(row, col+1, cols), corner(row, col, cols), i})
			}
			if row == rows-1 || !same(i, i+cols) {
				edges = append(edges, boundaryEdge{corner(row+1, col, cols), corner(row+1, col+1, cols), i})
			}
			if col == 0 || !same(i, i-1) {
				edges = append(edges, boundaryEdge{corner(row, col, cols), corner(row+1, col, cols), i})
			}
			if col == cols-1 || !same(i, i+1) {
				edges = append(edges, boundaryEdge{corner(row+1, col+1, cols), corner(row, col+1, cols), i})
			}
		}
		rings := stitchRings(edges, cols)

		// The ring enclosing the largest grid area is the exterior; the
		// rest are holes.
		ext := 0
		best := int64(0)
		for k, ring := range rings {
			if a := gridArea2(ring); abs64(a) > best {
				best = abs64(a)
				ext = k
			}
		}
		poly := make(orb.Polygon, 0, len(rings))
		poly = append(poly, r.worldRing(rings[ext], orb.CCW))
		for k, ring := range rings {
			if k != ext {
				poly = append(poly, r.worldRing(ring, orb.CW))
			}
		}
		out = append(out, PolygonRecord{
			Value:   plane[cells[0]],
			Band:    band + 1,
			Polygon: poly,
		})
	}
	return out
}

// boundaryEdge is one directed cell edge between grid corners, tagged with
// the cell that produced it so ring stitching can resolve corner crossings.
type boundaryEdge struct {
	from, to int
	cell     int
}

func corner(row, col, cols int) int { return row*(cols+1) + col }

// stitchRings chains directed edges into closed rings of (row, col) grid
// corners. At a corner with two continuations the walk crosses to the edge
// of the other cell, keeping exterior and hole rings separate and joining
// diagonal regions at their shared corner.
func stitchRings(edges []boundaryEdge, cols int) [][][2]int {
	starts := make(map[int][]int, len(edges))
	for i, e := range edges {
		starts[e.from] = append(starts[e.from], i)
	}
	used := make([]bool, len(edges))

	var rings [][][2]int
	for i := range edges {
		if used[i] {
			continue
		}
		start := edges[i].from
		var ring [][2]int
		cur := i
		for {
			e := edges[cur]
			used[cur] = true
			ring = append(ring, [2]int{e.from / (cols + 1), e.from % (cols + 1)})

			next := -1
			for _, c := range starts[e.to] {
				if used[c] {
					continue
				}
				if next == -1 || edges[c].cell != e.cell {
					next = c
				}
			}
			if e.to == start && (next == -1 || edges[next].cell == e.cell) {
				break
			}
			cur = next
		}
		rings = append(rings, compressRing(ring))
	}
	return rings
}

// compressRing drops intermediate vertices along straight runs.
func compressRing(vs [][2]int) [][2]int {
	if len(vs) < 3 {
		return vs
	}
	out := make([][2]int, 0, len(vs))
	for _, v := range vs {
		n := len(out)
		if n >= 2 {
			a, b := out[n-2], out[n-1]
			d1 := [2]int{b[0] - a[0], b[1] - a[1]}
			d2 := [2]int{v[0] - b[0], v[1] - b[1]}
			if d1[0]*d2[1] == d1[1]*d2[0] && d1[0]*d2[0]+d1[1]*d2[1] > 0 {
				out[n-1] = v
				continue
			}
		}
		out = append(out, v)
	}
	return out
}

// gridArea2 returns twice the signed area of an open ring in grid space.
func gridArea2(vs [][2]int) int64 {
	var a int64
	n := len(vs)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		a += int64(vs[i][1])*int64(vs[j][0]) - int64(vs[j][1])*int64(vs[i][0])
	}
	return a
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// worldRing converts an open grid-corner ring to a closed world-coordinate
// ring with the requested winding.
func (r *Raster) worldRing(vs [][2]int, want orb.Orientation) orb.Ring {
	ring := make(orb.Ring, 0, len(vs)+1)
	for _, v := range vs {
		x, y := r.tf.Apply(float64(v[1]), float64(v[0]))
		ring = append(ring, orb.Point{x, y})
	}
	ring = append(ring, ring[0])
	if ring.Orientation() != want {
		ring.Reverse()
	}
	return ring
}

type unionFind []int

func newUnionFind(n int) unionFind {
	u := make(unionFind, n)
	for i := range u {
		u[i] = i
	}
	return u
}

func (u unionFind) find(i int) int {
	for u[i] != i {
		u[i] = u[u[i]]
		i = u[i]
	}
	return i
}

func (u unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u[ra] = rb
	}
}

// VectorResult holds extracted features and renders them as GeoJSON.
type VectorResult struct {
	points   []PointRecord
	polygons []PolygonRecord
}

// ToVector extracts the raster as vector features: polygons of connected
// equal-valued regions when asPolygons is set, otherwise one point per
// non-null cell. connectivity applies to polygons only.
func (r *Raster) ToVector(ctx context.Context, asPolygons bool, connectivity int) (*VectorResult, error) {
	if asPolygons {
		polys, err := r.ToPolygons(ctx, connectivity)
		if err != nil {
			return nil, err
		}
		return &VectorResult{polygons: polys}, nil
	}
	pts, err := r.ToPoints(ctx)
	if err != nil {
		return nil, err
	}
	return &VectorResult{points: pts}, nil
}

// Points returns the extracted point records, if any.
func (v *VectorResult) Points() []PointRecord { return v.points }

// Polygons returns the extracted polygon records, if any.
func (v *VectorResult) Polygons() []PolygonRecord { return v.polygons }

// GeoJSON returns the features as a FeatureCollection. Every feature
// carries value and band properties; points add row and col.
func (v *VectorResult) GeoJSON() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range v.points {
		f := geojson.NewFeature(p.Point)
		f.Properties["value"] = p.Value
		f.Properties["band"] = p.Band
		f.Properties["row"] = p.Row
		f.Properties["col"] = p.Col
		fc.Append(f)
	}
	for _, p := range v.polygons {
		f := geojson.NewFeature(p.Polygon)
		f.Properties["value"] = p.Value
		f.Properties["band"] = p.Band
		fc.Append(f)
	}
	return fc
}
