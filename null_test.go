package rasterkit

import (
	"context"
	"math"
	"testing"
)

func mustMask(t *testing.T, r *Raster) []bool {
	t.Helper()
	mask, err := r.NullMaskValues(context.Background())
	if err != nil {
		t.Fatalf("NullMaskValues: %v", err)
	}
	return mask
}

func wantMask(t *testing.T, r *Raster, want []bool) {
	t.Helper()
	got := mustMask(t, r)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("mask[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSetNullValue(t *testing.T) {
	r, _ := New([]float64{1, 2, 3, 2}, 1, 2, 2)
	out, err := r.SetNullValue(2)
	if err != nil {
		t.Fatalf("SetNullValue: %v", err)
	}
	if !out.Masked() {
		t.Fatal("raster should be masked")
	}
	null, _ := out.NullValue()
	if null != 2 {
		t.Errorf("NullValue() = %v, want 2", null)
	}
	wantMask(t, out, []bool{false, true, false, true})
}

func TestSetNullValueAddsToMask(t *testing.T) {
	r, _ := New([]float64{1, -9999, 3, 4}, 1, 2, 2, WithNullValue(-9999))
	out, err := r.SetNullValue(3)
	if err != nil {
		t.Fatalf("SetNullValue: %v", err)
	}
	// Previously masked cells stay masked under the new null value.
	wantMask(t, out, []bool{false, true, true, false})
}

func TestSetNullValuePromotes(t *testing.T) {
	r, _ := New([]float64{1, 2, 3, 4}, 1, 2, 2, WithDType(Uint8))
	out, err := r.SetNullValue(-1)
	if err != nil {
		t.Fatalf("SetNullValue: %v", err)
	}
	if out.DType() == Uint8 {
		t.Error("dtype should promote to hold null value -1")
	}
}

func TestClearNullValue(t *testing.T) {
	r, _ := New([]float64{1, -9999, 3, 4}, 1, 2, 2, WithNullValue(-9999))
	out := r.ClearNullValue()
	if out.Masked() {
		t.Error("ClearNullValue should drop the mask")
	}
	// The previously masked value becomes visible.
	wantValues(t, out, []float64{1, -9999, 3, 4})

	plain, _ := New([]float64{1, 2}, 1, 1, 2)
	if plain.ClearNullValue() != plain {
		t.Error("ClearNullValue on an unmasked raster should return the receiver")
	}
}

func TestBurnMask(t *testing.T) {
	r, _ := New([]float64{1, -9999, 3, 4}, 1, 2, 2, WithNullValue(-9999))
	burned := r.BurnMask()
	if !burned.Masked() {
		t.Error("BurnMask should keep the mask")
	}
	// After burning, dropping the mask still shows the null value.
	wantValues(t, burned.ClearNullValue(), []float64{1, -9999, 3, 4})
	wantMask(t, burned, []bool{false, true, false, false})
}

func TestToNullMask(t *testing.T) {
	r, _ := New([]float64{1, -9999, 3, -9999}, 1, 2, 2, WithNullValue(-9999))
	m := r.ToNullMask()
	if m.DType() != Bool {
		t.Errorf("ToNullMask dtype = %v, want bool", m.DType())
	}
	if m.Masked() {
		t.Error("the null mask raster itself should not be masked")
	}
	wantValues(t, m, []float64{0, 1, 0, 1})

	plain, _ := New([]float64{1, 2, 3, 4}, 1, 2, 2)
	wantValues(t, plain.ToNullMask(), []float64{0, 0, 0, 0})
}

func TestReplaceNull(t *testing.T) {
	r, _ := New([]float64{1, -9999, 3, 4}, 1, 2, 2, WithNullValue(-9999))
	out, err := r.ReplaceNull(0)
	if err != nil {
		t.Fatalf("ReplaceNull: %v", err)
	}
	if out.Masked() {
		t.Error("ReplaceNull should drop the mask")
	}
	wantValues(t, out, []float64{1, 0, 3, 4})

	plain, _ := New([]float64{1, 2}, 1, 1, 2)
	same, err := plain.ReplaceNull(0)
	if err != nil {
		t.Fatalf("ReplaceNull: %v", err)
	}
	if same != plain {
		t.Error("ReplaceNull on an unmasked raster should return the receiver")
	}
}

func TestReplaceNullPromotes(t *testing.T) {
	r, _ := New([]float64{1, 255, 3, 4}, 1, 2, 2, WithDType(Uint8), WithNullValue(255))
	out, err := r.ReplaceNull(-5)
	if err != nil {
		t.Fatalf("ReplaceNull: %v", err)
	}
	if out.DType() == Uint8 {
		t.Error("dtype should promote to hold fill value -5")
	}
	wantValues(t, out, []float64{1, -5, 3, 4})
}

func TestWhere(t *testing.T) {
	r, _ := New([]float64{1, 2, 3, 4}, 1, 2, 2)
	cond, err := r.Gt(2)
	if err != nil {
		t.Fatalf("Gt: %v", err)
	}

	out, err := r.Where(cond, 0)
	if err != nil {
		t.Fatalf("Where: %v", err)
	}
	wantValues(t, out, []float64{0, 0, 3, 4})

	other, _ := New([]float64{10, 20, 30, 40}, 1, 2, 2)
	out, err = r.Where(cond, other)
	if err != nil {
		t.Fatalf("Where: %v", err)
	}
	wantValues(t, out, []float64{10, 20, 3, 4})
}

func TestWhereValidation(t *testing.T) {
	r, _ := New([]float64{1, 2, 3, 4}, 1, 2, 2)
	f, _ := New([]float64{1, 0, 1, 0}, 1, 2, 2)

	if _, err := r.Where(nil, 0); err == nil {
		t.Error("Where should reject a nil condition")
	}
	if _, err := r.Where(f, 0); err == nil {
		t.Error("Where should reject a float condition")
	}
	small, _ := New([]float64{1, 0}, 1, 1, 2, WithDType(Bool))
	if _, err := r.Where(small, 0); err == nil {
		t.Error("Where should reject a condition with a different plane shape")
	}
}

func TestWhereMaskedCondition(t *testing.T) {
	r, _ := New([]float64{1, 2, 3, 4}, 1, 2, 2)
	cond, _ := New([]float64{1, -1, 0, 1}, 1, 2, 2, WithDType(Int8), WithNullValue(-1))

	out, err := r.Where(cond, 100)
	if err != nil {
		t.Fatalf("Where: %v", err)
	}
	if !out.Masked() {
		t.Fatal("result should be masked when the condition is masked")
	}
	wantMask(t, out, []bool{false, true, false, false})
	vals := mustValues(t, out)
	if vals[0] != 1 || vals[2] != 100 || vals[3] != 4 {
		t.Errorf("values = %v, want [1 _ 100 4]", vals)
	}
}

func TestNaNNullStaysNaNAware(t *testing.T) {
	r, _ := New([]float64{1, math.NaN(), 3, 4}, 1, 2, 2, WithNullValue(math.NaN()))
	sum, err := r.Sum(context.Background())
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	if sum != 8 {
		t.Errorf("Sum = %v, want 8", sum)
	}
}
