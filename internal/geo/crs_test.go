package geo

import (
	"math"
	"testing"
)

func TestParseCRS(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"EPSG:4326", "EPSG:4326"},
		{"epsg:4326", "EPSG:4326"},
		{"4326", "EPSG:4326"},
		{"WGS84", "EPSG:4326"},
		{"EPSG:3857", "EPSG:3857"},
		{"EPSG:32611", "EPSG:32611"},
		{"EPSG:32733", "EPSG:32733"},
		{"+proj=longlat +ellps=WGS84 +datum=WGS84 +no_defs", "EPSG:4326"},
		{"+proj=merc +a=6378137 +b=6378137 +units=m +no_defs", "EPSG:3857"},
		{"+proj=utm +zone=11 +datum=WGS84 +units=m +no_defs", "EPSG:32611"},
		{"+proj=utm +zone=33 +south +datum=WGS84", "EPSG:32733"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.in, err)
			}
			if got := c.String(); got != tt.want {
				t.Errorf("Parse(%q).String() = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseCRSEmpty(t *testing.T) {
	c, err := Parse("")
	if err != nil {
		t.Fatalf("Parse(\"\") error: %v", err)
	}
	if !c.IsZero() {
		t.Error("Parse(\"\") should produce the zero CRS")
	}
}

func TestParseCRSErrors(t *testing.T) {
	for _, in := range []string{"EPSG:99999", "not a crs", "+proj=sinu", "+proj=utm +zone=0"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) should fail", in)
		}
	}
}

func TestCRSEqual(t *testing.T) {
	a := MustParse("EPSG:4326")
	b := MustParse("+proj=longlat +datum=WGS84")
	if !a.Equal(b) {
		t.Error("EPSG:4326 should equal +proj=longlat")
	}
	if a.Equal(MustParse("EPSG:3857")) {
		t.Error("EPSG:4326 should not equal EPSG:3857")
	}
	if !MustParse("EPSG:32611").Equal(MustParse("+proj=utm +zone=11")) {
		t.Error("EPSG:32611 should equal +proj=utm +zone=11")
	}
	if MustParse("EPSG:32611").Equal(MustParse("EPSG:32711")) {
		t.Error("north and south UTM zones should differ")
	}
}

func TestWebMercatorKnownPoints(t *testing.T) {
	tr, err := NewTransform(MustParse("EPSG:4326"), MustParse("EPSG:3857"))
	if err != nil {
		t.Fatalf("NewTransform error: %v", err)
	}

	// Equator/prime meridian maps to the origin.
	x, y := tr(0, 0)
	if math.Abs(x) > 1e-6 || math.Abs(y) > 1e-6 {
		t.Errorf("(0,0) -> (%v, %v), want (0, 0)", x, y)
	}

	// 180°E maps to half the circumference.
	x, _ = tr(180, 0)
	want := webMercatorRadius * math.Pi
	if math.Abs(x-want) > 1e-3 {
		t.Errorf("x(180°) = %v, want %v", x, want)
	}

	// 45°N: y = R * ln(tan(pi/4 + phi/2)).
	_, y = tr(0, 45)
	wantY := webMercatorRadius * math.Log(math.Tan(math.Pi/4+45*math.Pi/360))
	if math.Abs(y-wantY) > 1e-3 {
		t.Errorf("y(45°) = %v, want %v", y, wantY)
	}
}

func TestWebMercatorRoundTrip(t *testing.T) {
	fwd, err := NewTransform(MustParse("EPSG:4326"), MustParse("EPSG:3857"))
	if err != nil {
		t.Fatal(err)
	}
	inv, err := NewTransform(MustParse("EPSG:3857"), MustParse("EPSG:4326"))
	if err != nil {
		t.Fatal(err)
	}

	for _, pt := range [][2]float64{{0, 0}, {-120.5, 38.3}, {15.25, -33.9}, {179, 80}} {
		x, y := fwd(pt[0], pt[1])
		lon, lat := inv(x, y)
		if math.Abs(lon-pt[0]) > 1e-9 || math.Abs(lat-pt[1]) > 1e-9 {
			t.Errorf("round trip of %v = (%v, %v)", pt, lon, lat)
		}
	}
}

func TestUTMCentralMeridian(t *testing.T) {
	fwd, err := NewTransform(MustParse("EPSG:4326"), MustParse("EPSG:32631"))
	if err != nil {
		t.Fatal(err)
	}

	// A point on the central meridian of zone 31 (3°E) at the equator
	// lands exactly on the false easting with zero northing.
	x, y := fwd(3, 0)
	if math.Abs(x-500000) > 1e-3 || math.Abs(y) > 1e-3 {
		t.Errorf("(3°E, 0°N) -> (%v, %v), want (500000, 0)", x, y)
	}
}

func TestUTMRoundTrip(t *testing.T) {
	tests := []struct {
		crs      string
		lon, lat float64
	}{
		{"EPSG:32611", -117.5, 34.2},
		{"EPSG:32631", 4.9, 52.4},
		{"EPSG:32733", 14.8, -22.6},
	}
	for _, tt := range tests {
		t.Run(tt.crs, func(t *testing.T) {
			fwd, err := NewTransform(MustParse("EPSG:4326"), MustParse(tt.crs))
			if err != nil {
				t.Fatal(err)
			}
			inv, err := NewTransform(MustParse(tt.crs), MustParse("EPSG:4326"))
			if err != nil {
				t.Fatal(err)
			}
			x, y := fwd(tt.lon, tt.lat)
			lon, lat := inv(x, y)
			if math.Abs(lon-tt.lon) > 1e-7 || math.Abs(lat-tt.lat) > 1e-7 {
				t.Errorf("round trip = (%v, %v), want (%v, %v)", lon, lat, tt.lon, tt.lat)
			}
		})
	}
}

func TestTransformSameCRS(t *testing.T) {
	tr, err := NewTransform(MustParse("EPSG:3857"), MustParse("epsg:3857"))
	if err != nil {
		t.Fatal(err)
	}
	x, y := tr(123.4, -567.8)
	if x != 123.4 || y != -567.8 {
		t.Errorf("same-CRS transform altered coordinates: (%v, %v)", x, y)
	}
}

func TestTransformUnsetCRS(t *testing.T) {
	if _, err := NewTransform(CRS{}, MustParse("EPSG:4326")); err == nil {
		t.Error("transform from zero CRS should fail")
	}
}
