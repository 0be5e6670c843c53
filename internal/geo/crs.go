package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// crsKind enumerates the reference systems with built-in transform support.
type crsKind uint8

const (
	crsUnknown crsKind = iota
	crsGeographic
	crsWebMercator
	crsUTM
)

// CRS identifies a coordinate reference system. The zero value means
// "not georeferenced".
type CRS struct {
	kind     crsKind
	utmZone  int
	utmSouth bool
	raw      string // original user input, kept for round-tripping
}

// IsZero reports whether the CRS is unset.
func (c CRS) IsZero() bool { return c.kind == crsUnknown && c.raw == "" }

// IsGeographic reports whether coordinates are lon/lat degrees.
func (c CRS) IsGeographic() bool { return c.kind == crsGeographic }

// String returns the canonical authority code when known, otherwise the
// original input.
func (c CRS) String() string {
	switch c.kind {
	case crsGeographic:
		return "EPSG:4326"
	case crsWebMercator:
		return "EPSG:3857"
	case crsUTM:
		base := 32600
		if c.utmSouth {
			base = 32700
		}
		return fmt.Sprintf("EPSG:%d", base+c.utmZone)
	default:
		return c.raw
	}
}

// Equal reports whether two CRS values denote the same system.
func (c CRS) Equal(other CRS) bool {
	if c.kind != other.kind {
		return false
	}
	if c.kind == crsUTM {
		return c.utmZone == other.utmZone && c.utmSouth == other.utmSouth
	}
	if c.kind == crsUnknown {
		return strings.EqualFold(strings.TrimSpace(c.raw), strings.TrimSpace(other.raw))
	}
	return true
}

// Parse interprets a CRS definition. Accepted forms:
//
//   - authority codes: "EPSG:4326", "epsg:3857", bare "4326"
//   - UTM codes: "EPSG:326xx" (north), "EPSG:327xx" (south)
//   - proj strings: "+proj=longlat ...", "+proj=merc ..." (spherical
//     mercator), "+proj=utm +zone=xx [+south] ..."
//   - the aliases "WGS84" and "CRS84"
//
// An empty string parses to the zero CRS.
func Parse(s string) (CRS, error) {
	in := strings.TrimSpace(s)
	if in == "" {
		return CRS{}, nil
	}
	lower := strings.ToLower(in)

	switch lower {
	case "wgs84", "crs84", "wgs 84":
		return CRS{kind: crsGeographic, raw: in}, nil
	}

	if strings.HasPrefix(lower, "+proj=") || strings.Contains(lower, " +") {
		return parseProj(in)
	}

	code := lower
	code = strings.TrimPrefix(code, "epsg:")
	if n, err := strconv.Atoi(code); err == nil {
		return fromEPSG(n, in)
	}
	return CRS{}, fmt.Errorf("geo: unrecognized CRS %q", s)
}

func fromEPSG(code int, raw string) (CRS, error) {
	switch {
	case code == 4326:
		return CRS{kind: crsGeographic, raw: raw}, nil
	case code == 3857:
		return CRS{kind: crsWebMercator, raw: raw}, nil
	case code > 32600 && code <= 32660:
		return CRS{kind: crsUTM, utmZone: code - 32600, raw: raw}, nil
	case code > 32700 && code <= 32760:
		return CRS{kind: crsUTM, utmZone: code - 32700, utmSouth: true, raw: raw}, nil
	}
	return CRS{}, fmt.Errorf("geo: unsupported EPSG code %d", code)
}

func parseProj(s string) (CRS, error) {
	fields := strings.Fields(s)
	params := make(map[string]string, len(fields))
	for _, f := range fields {
		f = strings.TrimPrefix(f, "+")
		k, v, _ := strings.Cut(f, "=")
		params[strings.ToLower(k)] = v
	}
	switch params["proj"] {
	case "longlat", "latlong", "lonlat":
		return CRS{kind: crsGeographic, raw: s}, nil
	case "merc":
		return CRS{kind: crsWebMercator, raw: s}, nil
	case "utm":
		zone, err := strconv.Atoi(params["zone"])
		if err != nil || zone < 1 || zone > 60 {
			return CRS{}, fmt.Errorf("geo: invalid UTM zone in %q", s)
		}
		_, south := params["south"]
		return CRS{kind: crsUTM, utmZone: zone, utmSouth: south, raw: s}, nil
	}
	return CRS{}, fmt.Errorf("geo: unsupported projection %q", s)
}

// MustParse is Parse for known-good definitions; it panics on error.
func MustParse(s string) CRS {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// TransformFunc converts a coordinate pair between reference systems.
type TransformFunc func(x, y float64) (float64, float64)

// NewTransform returns the coordinate transform from src to dst. Transforms
// route through lon/lat, so any supported pair composes. Identical systems
// return a pass-through.
func NewTransform(src, dst CRS) (TransformFunc, error) {
	if src.IsZero() || dst.IsZero() {
		return nil, fmt.Errorf("geo: transform requires both CRS to be set")
	}
	if src.Equal(dst) {
		return func(x, y float64) (float64, float64) { return x, y }, nil
	}
	toLL, err := toLonLat(src)
	if err != nil {
		return nil, err
	}
	fromLL, err := fromLonLat(dst)
	if err != nil {
		return nil, err
	}
	return func(x, y float64) (float64, float64) {
		lon, lat := toLL(x, y)
		return fromLL(lon, lat)
	}, nil
}

func toLonLat(c CRS) (TransformFunc, error) {
	switch c.kind {
	case crsGeographic:
		return func(x, y float64) (float64, float64) { return x, y }, nil
	case crsWebMercator:
		return webMercatorInverse, nil
	case crsUTM:
		zone, south := c.utmZone, c.utmSouth
		return func(x, y float64) (float64, float64) {
			return utmInverse(x, y, zone, south)
		}, nil
	}
	return nil, fmt.Errorf("geo: no transform from %q", c.String())
}

func fromLonLat(c CRS) (TransformFunc, error) {
	switch c.kind {
	case crsGeographic:
		return func(x, y float64) (float64, float64) { return x, y }, nil
	case crsWebMercator:
		return webMercatorForward, nil
	case crsUTM:
		zone, south := c.utmZone, c.utmSouth
		return func(lon, lat float64) (float64, float64) {
			return utmForward(lon, lat, zone, south)
		}, nil
	}
	return nil, fmt.Errorf("geo: no transform to %q", c.String())
}

// Spherical web-mercator (EPSG:3857) on the WGS84 semi-major sphere.
const webMercatorRadius = 6378137.0

func webMercatorForward(lon, lat float64) (float64, float64) {
	// Clamp to the projection's valid latitude range.
	if lat > 85.06 {
		lat = 85.06
	} else if lat < -85.06 {
		lat = -85.06
	}
	x := webMercatorRadius * lon * math.Pi / 180
	y := webMercatorRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y
}

func webMercatorInverse(x, y float64) (float64, float64) {
	lon := x / webMercatorRadius * 180 / math.Pi
	lat := (2*math.Atan(math.Exp(y/webMercatorRadius)) - math.Pi/2) * 180 / math.Pi
	return lon, lat
}

// WGS84 ellipsoid constants for the UTM (transverse mercator) series.
const (
	wgsA  = 6378137.0
	wgsF  = 1 / 298.257223563
	utmK0 = 0.9996
	utmFE = 500000.0
	utmFN = 10000000.0
)

func utmCentralMeridian(zone int) float64 {
	return float64(-183 + 6*zone)
}

// utmForward projects lon/lat degrees to UTM easting/northing using the
// standard series expansion (Snyder, Map Projections, eqs. 8-9 to 8-15).
func utmForward(lon, lat float64, zone int, south bool) (float64, float64) {
	e2 := wgsF * (2 - wgsF)
	ep2 := e2 / (1 - e2)

	phi := lat * math.Pi / 180
	lam := lon * math.Pi / 180
	lam0 := utmCentralMeridian(zone) * math.Pi / 180

	sin := math.Sin(phi)
	cos := math.Cos(phi)
	tan := math.Tan(phi)

	n := wgsA / math.Sqrt(1-e2*sin*sin)
	t := tan * tan
	c := ep2 * cos * cos
	a := (lam - lam0) * cos

	m := wgsA * ((1-e2/4-3*e2*e2/64-5*e2*e2*e2/256)*phi -
		(3*e2/8+3*e2*e2/32+45*e2*e2*e2/1024)*math.Sin(2*phi) +
		(15*e2*e2/256+45*e2*e2*e2/1024)*math.Sin(4*phi) -
		(35*e2*e2*e2/3072)*math.Sin(6*phi))

	x := utmK0*n*(a+(1-t+c)*a*a*a/6+
		(5-18*t+t*t+72*c-58*ep2)*math.Pow(a, 5)/120) + utmFE
	y := utmK0 * (m + n*tan*(a*a/2+(5-t+9*c+4*c*c)*math.Pow(a, 4)/24+
		(61-58*t+t*t+600*c-330*ep2)*math.Pow(a, 6)/720))
	if south {
		y += utmFN
	}
	return x, y
}

// utmInverse converts UTM easting/northing to lon/lat degrees
// (Snyder eqs. 8-17 to 8-25).
func utmInverse(x, y float64, zone int, south bool) (float64, float64) {
	e2 := wgsF * (2 - wgsF)
	ep2 := e2 / (1 - e2)
	lam0 := utmCentralMeridian(zone) * math.Pi / 180

	if south {
		y -= utmFN
	}
	m := y / utmK0
	mu := m / (wgsA * (1 - e2/4 - 3*e2*e2/64 - 5*e2*e2*e2/256))

	e1 := (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))
	phi1 := mu +
		(3*e1/2-27*e1*e1*e1/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*math.Pow(e1, 4)/32)*math.Sin(4*mu) +
		(151*e1*e1*e1/96)*math.Sin(6*mu) +
		(1097*math.Pow(e1, 4)/512)*math.Sin(8*mu)

	sin1 := math.Sin(phi1)
	cos1 := math.Cos(phi1)
	tan1 := math.Tan(phi1)

	c1 := ep2 * cos1 * cos1
	t1 := tan1 * tan1
	n1 := wgsA / math.Sqrt(1-e2*sin1*sin1)
	r1 := wgsA * (1 - e2) / math.Pow(1-e2*sin1*sin1, 1.5)
	d := (x - utmFE) / (n1 * utmK0)

	phi := phi1 - (n1*tan1/r1)*(d*d/2-
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*math.Pow(d, 4)/24+
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*math.Pow(d, 6)/720)
	lam := lam0 + (d-(1+2*t1+c1)*d*d*d/6+
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*math.Pow(d, 5)/120)/cos1

	return lam * 180 / math.Pi, phi * 180 / math.Pi
}
