package similarity

import "sort"

// Neighbor is a single nearest-neighbour hit: a corpus row and its cosine distance to the query.
type Neighbor struct {
	Row      int     `json:"row"`
	Distance float64 `json:"distance"`
}

// Index is an exact nearest-neighbour index using brute-force cosine distance.
// Row i of the index is vector i passed to NewIndex. Suitable for small corpora.
type Index struct {
	vectors []SparseVector
	norms   []float64
}

// NewIndex builds an index over vectors. The slice is retained; callers must not modify it.
func NewIndex(vectors []SparseVector) *Index {
	norms := make([]float64, len(vectors))
	for i, v := range vectors {
		norms[i] = L2Norm(v)
	}
	return &Index{vectors: vectors, norms: norms}
}

// Size returns the number of vectors in the index.
func (ix *Index) Size() int {
	return len(ix.vectors)
}

// Search returns the min(k, Size()) rows nearest to query, nearest first.
// Rows at equal distance keep their index order.
func (ix *Index) Search(query SparseVector, k int) []Neighbor {
	if k <= 0 || len(ix.vectors) == 0 {
		return nil
	}
	scores := make([]Neighbor, len(ix.vectors))
	if query.IsZero() {
		// Nothing in common with any row; every distance is 1 and row order stands.
		for i := range scores {
			scores[i] = Neighbor{Row: i, Distance: 1}
		}
	} else {
		qNorm := L2Norm(query)
		for i, vec := range ix.vectors {
			scores[i] = Neighbor{Row: i, Distance: cosineDistance(query, vec, qNorm, ix.norms[i])}
		}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Distance < scores[j].Distance })
	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k:k]
}
