package rasterkit

import (
	"math"
	"testing"
)

func TestParseDType(t *testing.T) {
	tests := []struct {
		in   string
		want DType
	}{
		{"bool", Bool},
		{"uint8", Uint8},
		{"u8", Uint8},
		{"byte", Uint8},
		{"int16", Int16},
		{"I16", Int16},
		{"uint32", Uint32},
		{"int64", Int64},
		{"float32", Float32},
		{"f32", Float32},
		{"float64", Float64},
		{" f64 ", Float64},
	}
	for _, tt := range tests {
		got, err := ParseDType(tt.in)
		if err != nil {
			t.Errorf("ParseDType(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseDType("complex128"); err == nil {
		t.Error("ParseDType(complex128) should fail")
	}
}

func TestDTypeRanges(t *testing.T) {
	tests := []struct {
		d        DType
		min, max float64
	}{
		{Bool, 0, 1},
		{Uint8, 0, 255},
		{Int8, -128, 127},
		{Uint16, 0, 65535},
		{Int16, -32768, 32767},
		{Uint32, 0, 4294967295},
		{Int32, -2147483648, 2147483647},
	}
	for _, tt := range tests {
		if got := tt.d.MinValue(); got != tt.min {
			t.Errorf("%v.MinValue() = %v, want %v", tt.d, got, tt.min)
		}
		if got := tt.d.MaxValue(); got != tt.max {
			t.Errorf("%v.MaxValue() = %v, want %v", tt.d, got, tt.max)
		}
	}
	if !math.IsInf(Float64.MaxValue(), 1) || !math.IsInf(Float64.MinValue(), -1) {
		t.Error("Float64 range should be infinite")
	}
}

func TestPromote(t *testing.T) {
	tests := []struct {
		a, b, want DType
	}{
		{Uint8, Uint8, Uint8},
		{Bool, Uint8, Uint8},
		{Bool, Float32, Float32},
		{Uint8, Int8, Int16},
		{Uint8, Uint16, Uint16},
		{Uint8, Int16, Int16},
		{Int16, Uint16, Int32},
		{Uint32, Int8, Int64},
		{Uint64, Int64, Float64},
		{Int32, Float32, Float64},
		{Int16, Float32, Float32},
		{Uint16, Float32, Float32},
		{Int64, Float32, Float64},
		{Float32, Float64, Float64},
		{Int8, Int32, Int32},
		{Uint8, Uint64, Uint64},
	}
	for _, tt := range tests {
		if got := Promote(tt.a, tt.b); got != tt.want {
			t.Errorf("Promote(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
		if got := Promote(tt.b, tt.a); got != tt.want {
			t.Errorf("Promote(%v, %v) = %v, want %v", tt.b, tt.a, got, tt.want)
		}
	}
}

func TestPromoteToFloat(t *testing.T) {
	tests := []struct {
		d, want DType
	}{
		{Bool, Float32},
		{Uint8, Float32},
		{Int16, Float32},
		{Uint16, Float32},
		{Int32, Float64},
		{Uint32, Float64},
		{Int64, Float64},
		{Float32, Float32},
		{Float64, Float64},
	}
	for _, tt := range tests {
		if got := PromoteToFloat(tt.d); got != tt.want {
			t.Errorf("PromoteToFloat(%v) = %v, want %v", tt.d, got, tt.want)
		}
	}
}

func TestPromoteForValue(t *testing.T) {
	tests := []struct {
		d    DType
		v    float64
		want DType
	}{
		{Uint8, 100, Uint8},
		{Uint8, 300, Uint16},
		{Uint8, -1, Int16},
		{Int8, 200, Int16},
		{Uint8, 0.5, Float32},
		{Int32, math.NaN(), Float64},
		{Uint16, 1e10, Uint32},
		{Int16, math.MaxInt64, Float64},
		{Float32, 1e300, Float64},
	}
	for _, tt := range tests {
		if got := PromoteForValue(tt.d, tt.v); got != tt.want {
			t.Errorf("PromoteForValue(%v, %v) = %v, want %v", tt.d, tt.v, got, tt.want)
		}
	}
}

func TestCanRepresent(t *testing.T) {
	if !Uint8.CanRepresent(255) {
		t.Error("Uint8 should represent 255")
	}
	if Uint8.CanRepresent(256) {
		t.Error("Uint8 should not represent 256")
	}
	if Uint8.CanRepresent(1.5) {
		t.Error("Uint8 should not represent 1.5")
	}
	if Int16.CanRepresent(math.NaN()) {
		t.Error("Int16 should not represent NaN")
	}
	if !Float32.CanRepresent(math.NaN()) {
		t.Error("Float32 should represent NaN")
	}
	if Float32.CanRepresent(1e300) {
		t.Error("Float32 should not represent 1e300")
	}
	if !Float64.CanRepresent(1e300) {
		t.Error("Float64 should represent 1e300")
	}
	if !Bool.CanRepresent(1) || Bool.CanRepresent(2) {
		t.Error("Bool should represent exactly 0 and 1")
	}
}

func TestDefaultNull(t *testing.T) {
	if !math.IsNaN(Float64.DefaultNull()) || !math.IsNaN(Float32.DefaultNull()) {
		t.Error("float default null should be NaN")
	}
	if got := Uint8.DefaultNull(); got != 255 {
		t.Errorf("Uint8.DefaultNull() = %v, want 255", got)
	}
	if got := Uint16.DefaultNull(); got != 65535 {
		t.Errorf("Uint16.DefaultNull() = %v, want 65535", got)
	}
	if got := Int16.DefaultNull(); got != -32768 {
		t.Errorf("Int16.DefaultNull() = %v, want -32768", got)
	}
	if got := Bool.DefaultNull(); got != 1 {
		t.Errorf("Bool.DefaultNull() = %v, want 1", got)
	}
}

func TestCastValue(t *testing.T) {
	tests := []struct {
		d    DType
		v    float64
		want float64
	}{
		{Uint8, 12.3, 12},
		{Uint8, 12.5, 12},  // round half to even
		{Uint8, 13.5, 14},  // round half to even
		{Uint8, -5, 0},     // clamp low
		{Uint8, 300, 255},  // clamp high
		{Int16, 1e9, 32767},
		{Uint8, math.NaN(), 0},
		{Bool, 7, 1},
		{Bool, 0, 0},
		{Bool, math.NaN(), 1},
		{Float64, math.Pi, math.Pi},
	}
	for _, tt := range tests {
		if got := CastValue(tt.d, tt.v); got != tt.want {
			t.Errorf("CastValue(%v, %v) = %v, want %v", tt.d, tt.v, got, tt.want)
		}
	}
	if v := CastValue(Float32, math.Pi); v == math.Pi || math.Abs(v-math.Pi) > 1e-6 {
		t.Errorf("CastValue(Float32, pi) = %v, want narrowed float32 value", v)
	}
}
