// Package colormap provides the color ramps used to render single band
// value planes. Maps interpolate linearly between anchor stops in sRGB.
package colormap

import (
	"fmt"
	"math"
	"sort"
)

// Stop is a color anchored at a position in [0, 1].
type Stop struct {
	Offset  float64
	R, G, B uint8
}

// Map is a named color ramp.
type Map struct {
	name  string
	stops []Stop
}

var gray = Map{name: "gray", stops: []Stop{
	{0, 0, 0, 0},
	{1, 255, 255, 255},
}}

// viridis anchors sample the matplotlib viridis ramp at ten evenly spaced
// positions.
var viridis = Map{name: "viridis", stops: []Stop{
	{0.0 / 9.0, 0x44, 0x01, 0x54},
	{1.0 / 9.0, 0x48, 0x28, 0x78},
	{2.0 / 9.0, 0x3e, 0x4a, 0x89},
	{3.0 / 9.0, 0x31, 0x68, 0x8e},
	{4.0 / 9.0, 0x26, 0x82, 0x8e},
	{5.0 / 9.0, 0x1f, 0x9e, 0x89},
	{6.0 / 9.0, 0x35, 0xb7, 0x79},
	{7.0 / 9.0, 0x6d, 0xcd, 0x59},
	{8.0 / 9.0, 0xb4, 0xde, 0x2c},
	{9.0 / 9.0, 0xfd, 0xe7, 0x25},
}}

// terrain runs deep blue through green and yellow to brown and white,
// matching the matplotlib ramp of the same name.
var terrain = Map{name: "terrain", stops: []Stop{
	{0.00, 51, 51, 153},
	{0.15, 0, 153, 255},
	{0.25, 0, 204, 102},
	{0.50, 255, 255, 153},
	{0.75, 128, 92, 84},
	{1.00, 255, 255, 255},
}}

var registry = map[string]Map{
	"gray":    gray,
	"viridis": viridis,
	"terrain": terrain,
}

// Get returns the named color map.
func Get(name string) (Map, error) {
	if m, ok := registry[name]; ok {
		return m, nil
	}
	return Map{}, fmt.Errorf("colormap: unknown colormap %q", name)
}

// Names lists the available color maps in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Name returns the map's registered name.
func (m Map) Name() string { return m.name }

// At returns the ramp color at position t, clamped to [0, 1].
func (m Map) At(t float64) (r, g, b uint8) {
	if math.IsNaN(t) || t <= 0 {
		s := m.stops[0]
		return s.R, s.G, s.B
	}
	if t >= 1 {
		s := m.stops[len(m.stops)-1]
		return s.R, s.G, s.B
	}
	hi := 1
	for hi < len(m.stops)-1 && m.stops[hi].Offset < t {
		hi++
	}
	lo := m.stops[hi-1]
	up := m.stops[hi]
	span := up.Offset - lo.Offset
	frac := 0.0
	if span > 0 {
		frac = (t - lo.Offset) / span
	}
	return lerpByte(lo.R, up.R, frac), lerpByte(lo.G, up.G, frac), lerpByte(lo.B, up.B, frac)
}

func lerpByte(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + t*(float64(b)-float64(a))))
}
