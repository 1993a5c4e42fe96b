package similarity

import "math"

// SparseVector is a row of the term-weight matrix. Indices are strictly increasing.
type SparseVector struct {
	Indices []int
	Values  []float64
}

// IsZero reports whether the vector has no non-zero entries.
func (v SparseVector) IsZero() bool {
	return len(v.Indices) == 0
}

// Dot returns the inner product of two sparse vectors (for L2-normalised vectors equals cosine similarity).
func Dot(a, b SparseVector) float64 {
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

// L2Norm returns the L2 norm of a vector.
func L2Norm(v SparseVector) float64 {
	var sum float64
	for _, x := range v.Values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// NormalizeL2 scales v in place to unit L2 norm. A zero vector is left unchanged.
func NormalizeL2(v SparseVector) {
	norm := L2Norm(v)
	if norm == 0 {
		return
	}
	for i := range v.Values {
		v.Values[i] /= norm
	}
}

// cosineDistance returns 1 - cosine similarity of a and b given their L2 norms,
// clipped to [0, 2]. A zero vector is at distance 1 from everything.
func cosineDistance(a, b SparseVector, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 1
	}
	return math.Max(0, math.Min(2, 1-Dot(a, b)/(na*nb)))
}
