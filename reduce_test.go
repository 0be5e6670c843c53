package rasterkit

import (
	"context"
	"math"
	"testing"
)

func TestReductions(t *testing.T) {
	ctx := context.Background()
	r, _ := New([]float64{1, 2, 3, 4, 5, 6}, 1, 2, 3)

	tests := []struct {
		name string
		fn   func(context.Context) (float64, error)
		want float64
	}{
		{"sum", r.Sum, 21},
		{"prod", r.Prod, 720},
		{"mean", r.Mean, 3.5},
		{"min", r.Min, 1},
		{"max", r.Max, 6},
		{"var", r.Var, 35.0 / 12.0},
		{"std", r.Std, math.Sqrt(35.0 / 12.0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(ctx)
			if err != nil {
				t.Fatalf("%s: %v", tt.name, err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestReductionsSkipMasked(t *testing.T) {
	ctx := context.Background()
	r, _ := New([]float64{1, -9999, 3, -9999}, 1, 2, 2, WithNullValue(-9999))

	sum, err := r.Sum(ctx)
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	if sum != 4 {
		t.Errorf("Sum = %v, want 4", sum)
	}
	mean, err := r.Mean(ctx)
	if err != nil {
		t.Fatalf("Mean: %v", err)
	}
	if mean != 2 {
		t.Errorf("Mean = %v, want 2", mean)
	}
	min, err := r.Min(ctx)
	if err != nil {
		t.Fatalf("Min: %v", err)
	}
	if min != 1 {
		t.Errorf("Min = %v, want 1", min)
	}
}

func TestReductionsSkipNaN(t *testing.T) {
	ctx := context.Background()
	r, _ := New([]float64{1, math.NaN(), 3, 4}, 1, 2, 2)

	sum, err := r.Sum(ctx)
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	if sum != 8 {
		t.Errorf("Sum = %v, want 8", sum)
	}
	max, err := r.Max(ctx)
	if err != nil {
		t.Fatalf("Max: %v", err)
	}
	if max != 4 {
		t.Errorf("Max = %v, want 4", max)
	}

	// NaN is skipped numerically but still counts as truthy.
	all, err := r.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if !all {
		t.Error("All = false, want true")
	}
}

func TestReductionsEmpty(t *testing.T) {
	ctx := context.Background()
	r, _ := New([]float64{-1, -1}, 1, 1, 2, WithNullValue(-1))

	sum, err := r.Sum(ctx)
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	if sum != 0 {
		t.Errorf("Sum = %v, want 0", sum)
	}
	prod, err := r.Prod(ctx)
	if err != nil {
		t.Fatalf("Prod: %v", err)
	}
	if prod != 1 {
		t.Errorf("Prod = %v, want 1", prod)
	}
	for name, fn := range map[string]func(context.Context) (float64, error){
		"mean": r.Mean, "min": r.Min, "max": r.Max, "var": r.Var, "std": r.Std,
	} {
		got, err := fn(ctx)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !math.IsNaN(got) {
			t.Errorf("%s = %v, want NaN", name, got)
		}
	}
	all, err := r.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if !all {
		t.Error("All on an empty raster should be true")
	}
	any, err := r.Any(ctx)
	if err != nil {
		t.Fatalf("Any: %v", err)
	}
	if any {
		t.Error("Any on an empty raster should be false")
	}
}

func TestAllAny(t *testing.T) {
	ctx := context.Background()
	mixed, _ := New([]float64{1, 0, 3, 4}, 1, 2, 2)

	all, err := mixed.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if all {
		t.Error("All = true, want false")
	}
	any, err := mixed.Any(ctx)
	if err != nil {
		t.Fatalf("Any: %v", err)
	}
	if !any {
		t.Error("Any = false, want true")
	}

	zeros, _ := New([]float64{0, 0}, 1, 1, 2)
	any, err = zeros.Any(ctx)
	if err != nil {
		t.Fatalf("Any: %v", err)
	}
	if any {
		t.Error("Any over zeros = true, want false")
	}
}

func TestReductionsSpanBands(t *testing.T) {
	ctx := context.Background()
	r, _ := New([]float64{1, 2, 10, 20}, 2, 1, 2)
	sum, err := r.Sum(ctx)
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	if sum != 33 {
		t.Errorf("Sum = %v, want 33", sum)
	}
}

func TestReductionsAcrossChunks(t *testing.T) {
	ctx := context.Background()
	vals := make([]float64, 100)
	var want float64
	for i := range vals {
		vals[i] = float64(i)
		want += float64(i)
	}
	r, _ := New(vals, 1, 10, 10)
	r, err := r.Chunk(3, 4)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	sum, err := r.Sum(ctx)
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	if sum != want {
		t.Errorf("Sum = %v, want %v", sum, want)
	}
	v, err := r.Var(ctx)
	if err != nil {
		t.Fatalf("Var: %v", err)
	}
	// Variance of 0..99 is (n^2-1)/12.
	if math.Abs(v-833.25) > 1e-9 {
		t.Errorf("Var = %v, want 833.25", v)
	}
}

func TestReduceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, _ := New([]float64{1, 2, 3, 4}, 1, 2, 2)
	if _, err := r.Sum(ctx); err == nil {
		t.Error("Sum with a cancelled context should fail")
	}
}
