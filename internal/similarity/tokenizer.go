package similarity

import (
	"regexp"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	bleveregexp "github.com/blevesearch/bleve/v2/analysis/tokenizer/regexp"
)

// Tokenizer splits a feature string into terms.
type Tokenizer interface {
	Tokenize(text string) []string
}

// DefaultMinTokenLength drops one-character tokens such as the "s" in "baker's".
const DefaultMinTokenLength = 2

// wordPattern matches runs of letters, digits and underscores. Apostrophes, periods and
// hyphens split words, so "baker's" yields "baker" and "s".
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// WordTokenizer splits text into word-character runs and lowercases each one.
type WordTokenizer struct {
	tokenizer *bleveregexp.RegexpTokenizer
	lower     *lowercase.LowerCaseFilter
	minLength int
}

// NewWordTokenizer creates a tokenizer keeping words of at least minLength runes.
// minLength <= 0 means DefaultMinTokenLength.
func NewWordTokenizer(minLength int) *WordTokenizer {
	if minLength <= 0 {
		minLength = DefaultMinTokenLength
	}
	return &WordTokenizer{
		tokenizer: bleveregexp.NewRegexpTokenizer(wordPattern),
		lower:     lowercase.NewLowerCaseFilter(),
		minLength: minLength,
	}
}

// Tokenize returns the lowercased words of text in order, duplicates included.
func (t *WordTokenizer) Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	stream := t.lower.Filter(t.tokenizer.Tokenize([]byte(text)))
	terms := make([]string, 0, len(stream))
	for _, tok := range stream {
		if utf8.RuneCount(tok.Term) < t.minLength {
			continue
		}
		terms = append(terms, string(tok.Term))
	}
	return terms
}
