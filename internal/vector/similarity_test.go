package vector

import (
	"errors"
	"math"
	"testing"
)

func TestInnerProduct(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"identical", []float32{0.6, 0.8}, []float32{0.6, 0.8}, 1},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InnerProduct(tt.a, tt.b); math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("InnerProduct() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	in := []float32{3, 4}
	out, err := Normalize(in)
	if err != nil {
		t.Fatal(err)
	}
	if !IsNormalized(out) {
		t.Errorf("norm = %v, want 1", L2Norm(out))
	}
	if in[0] != 3 {
		t.Error("input must not be modified")
	}
	if math.Abs(float64(out[0])-0.6) > 1e-6 || math.Abs(float64(out[1])-0.8) > 1e-6 {
		t.Errorf("Normalize() = %v", out)
	}
}

func TestNormalize_Degenerate(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	for _, v := range [][]float32{{0, 0, 0}, {}, {nan, 1}, {inf, 1}} {
		_, err := Normalize(v)
		var de *DegenerateVectorError
		if !errors.As(err, &de) {
			t.Errorf("Normalize(%v) error = %v, want DegenerateVectorError", v, err)
		}
	}
}
