// Package similarity provides the content-based recommendation model: TF-IDF term weighting
// over ingredient feature strings and exact nearest-neighbour search under cosine distance.
package similarity

import (
	"strings"
	"time"
)

// DefaultK is the number of neighbours returned when a query does not ask for a count.
const DefaultK = 5

// Model is a fitted vector space together with the neighbour index built over it.
// The two are only ever created together and a Model is never mutated, so a query
// always sees a vectorizer and index from the same fit.
type Model struct {
	vectorizer *Vectorizer
	index      *Index
	fittedAt   time.Time
}

// Option configures Fit.
type Option func(*fitOptions)

type fitOptions struct {
	tokenizer Tokenizer
	now       func() time.Time
}

// WithTokenizer replaces the default word tokenizer.
func WithTokenizer(t Tokenizer) Option {
	return func(o *fitOptions) { o.tokenizer = t }
}

// WithClock sets the clock used to stamp the fit time.
func WithClock(now func() time.Time) Option {
	return func(o *fitOptions) { o.now = now }
}

// Fit builds a model over docs, one feature string per corpus row.
// It fails with a *FitError when docs is empty or contains no tokens at all.
func Fit(docs []string, opts ...Option) (*Model, error) {
	o := fitOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tokenizer == nil {
		o.tokenizer = NewWordTokenizer(DefaultMinTokenLength)
	}
	vectorizer, vectors, err := FitVectorizer(docs, o.tokenizer)
	if err != nil {
		return nil, err
	}
	return &Model{
		vectorizer: vectorizer,
		index:      NewIndex(vectors),
		fittedAt:   o.now(),
	}, nil
}

// Query returns the k corpus rows nearest to the given ingredient names, nearest first.
// Names are joined with whitespace exactly like corpus feature strings. k <= 0 means DefaultK;
// k larger than the corpus returns the whole corpus. Unknown ingredients contribute nothing.
func (m *Model) Query(names []string, k int) ([]Neighbor, error) {
	text := strings.Join(names, " ")
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = DefaultK
	}
	return m.index.Search(m.vectorizer.Transform(text), k), nil
}

// Size returns the number of corpus rows the model was fitted on.
func (m *Model) Size() int {
	return m.index.Size()
}

// VocabularySize returns the number of distinct ingredient terms in the model.
func (m *Model) VocabularySize() int {
	return m.vectorizer.VocabularySize()
}

// FittedAt returns when the model was fitted.
func (m *Model) FittedAt() time.Time {
	return m.fittedAt
}
