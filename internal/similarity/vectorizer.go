package similarity

import (
	"math"
	"sort"
)

// Vectorizer maps feature strings to L2-normalised TF-IDF vectors over a fixed vocabulary.
// Weights are raw term counts times the smoothed inverse document frequency
// idf(t) = ln((1+n)/(1+df(t))) + 1. A Vectorizer is immutable after fitting.
type Vectorizer struct {
	tokenizer  Tokenizer
	vocabulary map[string]int
	idf        []float64
}

// FitVectorizer learns the vocabulary and IDF weights of docs and returns the fitted
// vectorizer together with the vector of every doc, in input order.
func FitVectorizer(docs []string, tokenizer Tokenizer) (*Vectorizer, []SparseVector, error) {
	if len(docs) == 0 {
		return nil, nil, &FitError{Reason: "empty corpus", Documents: 0}
	}

	tokenized := make([][]string, len(docs))
	docFreq := make(map[string]int)
	for i, doc := range docs {
		terms := tokenizer.Tokenize(doc)
		tokenized[i] = terms
		seen := make(map[string]bool, len(terms))
		for _, term := range terms {
			if !seen[term] {
				seen[term] = true
				docFreq[term]++
			}
		}
	}
	if len(docFreq) == 0 {
		return nil, nil, &FitError{Reason: "no tokens in any document", Documents: len(docs)}
	}

	terms := make([]string, 0, len(docFreq))
	for term := range docFreq {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	v := &Vectorizer{
		tokenizer:  tokenizer,
		vocabulary: make(map[string]int, len(terms)),
		idf:        make([]float64, len(terms)),
	}
	n := float64(len(docs))
	for col, term := range terms {
		v.vocabulary[term] = col
		v.idf[col] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	vectors := make([]SparseVector, len(docs))
	for i, terms := range tokenized {
		vectors[i] = v.vectorize(terms)
	}
	return v, vectors, nil
}

// Transform vectorizes doc in the fitted space. Terms outside the vocabulary are ignored.
func (v *Vectorizer) Transform(doc string) SparseVector {
	return v.vectorize(v.tokenizer.Tokenize(doc))
}

// VocabularySize returns the number of distinct terms seen during fitting.
func (v *Vectorizer) VocabularySize() int {
	return len(v.vocabulary)
}

// column returns the column of term, if it is in the vocabulary.
func (v *Vectorizer) column(term string) (int, bool) {
	col, ok := v.vocabulary[term]
	return col, ok
}

func (v *Vectorizer) vectorize(terms []string) SparseVector {
	counts := make(map[int]int)
	for _, term := range terms {
		if col, ok := v.column(term); ok {
			counts[col]++
		}
	}
	vec := SparseVector{
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for col := range counts {
		vec.Indices = append(vec.Indices, col)
	}
	sort.Ints(vec.Indices)
	for _, col := range vec.Indices {
		vec.Values = append(vec.Values, float64(counts[col])*v.idf[col])
	}
	NormalizeL2(vec)
	return vec
}
