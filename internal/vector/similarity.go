// Package vector provides sparse feature vectors and the distance helpers used by clustering.
package vector

import "math"

// Sparse is a feature vector stored as sorted column indices and their values.
type Sparse struct {
	Indices []int
	Values  []float64
}

// Len returns the number of non-zero entries.
func (s Sparse) Len() int {
	return len(s.Indices)
}

// SquaredNorm returns the squared L2 norm of s.
func (s Sparse) SquaredNorm() float64 {
	var sum float64
	for _, v := range s.Values {
		sum += v * v
	}
	return sum
}

// InnerProduct returns the inner product of two sparse vectors (for normalized vectors equals cosine similarity).
// Both index lists must be sorted ascending.
func InnerProduct(a, b Sparse) float64 {
	var dot float64
	i, j := 0, 0
	for i < len(a.Indices) && j < len(b.Indices) {
		switch {
		case a.Indices[i] == b.Indices[j]:
			dot += a.Values[i] * b.Values[j]
			i++
			j++
		case a.Indices[i] < b.Indices[j]:
			i++
		default:
			j++
		}
	}
	return dot
}

// DenseInnerProduct returns the inner product of a sparse vector with a dense one.
func DenseInnerProduct(a Sparse, dense []float64) float64 {
	var dot float64
	for i, idx := range a.Indices {
		dot += a.Values[i] * dense[idx]
	}
	return dot
}

// L2Norm returns the L2 norm of a dense vector.
func L2Norm(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// SquaredDistance returns ||a-b||^2 given precomputed squared norms. Rounding noise is clamped to zero.
func SquaredDistance(a, b Sparse, normA, normB float64) float64 {
	d := normA + normB - 2*InnerProduct(a, b)
	if d < 0 {
		return 0
	}
	return d
}

// NormalizeL2 normalizes the slice in place to unit L2 norm.
// If the norm is zero, the slice is unchanged.
func NormalizeL2(x []float64) {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := 1.0 / math.Sqrt(sum)
	for i := range x {
		x[i] *= norm
	}
}
