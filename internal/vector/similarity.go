// Package vector provides the on-disk vector record store and similarity helpers
// for unit-normalized embeddings.
package vector

import "math"

// normTolerance bounds how far a normalized vector's norm may drift from 1.
const normTolerance = 1e-6

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
// Accumulation is done in float64. Vectors of different length yield 0.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of v. A zero, NaN or infinite norm yields a
// *DegenerateVectorError; the input is never modified.
func Normalize(v []float32) ([]float32, error) {
	norm := L2Norm(v)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, &DegenerateVectorError{Norm: norm, Dimension: len(v)}
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}

// IsNormalized reports whether v has unit length within tolerance.
func IsNormalized(v []float32) bool {
	return math.Abs(L2Norm(v)-1) <= normTolerance
}
