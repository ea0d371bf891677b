package tfidf

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var (
	// ErrEmptyCorpus is returned when there is nothing to fit a vocabulary on.
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrEmptyQuery is returned for a query with no term in the vocabulary: blank,
	// only stop words, or only words the corpus never uses.
	ErrEmptyQuery = errors.New("empty query")
)

// Vocabulary maps each corpus term to a stable index and its IDF weight.
// Indices follow order of first appearance across the corpus.
type Vocabulary struct {
	index map[string]int
	terms []string
	idf   []float64
}

// Size returns the number of distinct terms.
func (v *Vocabulary) Size() int { return len(v.terms) }

// Index returns the index of term and whether it is in the vocabulary.
func (v *Vocabulary) Index(term string) (int, bool) {
	i, ok := v.index[term]
	return i, ok
}

// Term returns the term at index i.
func (v *Vocabulary) Term(i int) string { return v.terms[i] }

// IDF returns the inverse document frequency of the term at index i.
func (v *Vocabulary) IDF(i int) float64 { return v.idf[i] }

// SmoothIDF is the smoothed inverse document frequency: ln((1+n)/(1+df)) + 1.
func SmoothIDF(n, df int) float64 {
	return math.Log(float64(1+n)/float64(1+df)) + 1
}

// Vectorizer is a TF-IDF model fitted on a corpus. It is immutable after Fit and
// safe for concurrent use.
type Vectorizer struct {
	analyzer Analyzer
	vocab    *Vocabulary
	docs     []Vector
}

// Fit builds the vocabulary and document vectors for texts, in order.
// A nil analyzer selects NewEnglishAnalyzer.
func Fit(texts []string, analyzer Analyzer) (*Vectorizer, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyCorpus
	}
	if analyzer == nil {
		a, err := NewEnglishAnalyzer()
		if err != nil {
			return nil, err
		}
		analyzer = a
	}

	vocab := &Vocabulary{index: make(map[string]int)}
	var df []int
	tokenized := make([][]string, len(texts))
	for i, text := range texts {
		terms := analyzer.Terms(text)
		tokenized[i] = terms
		seen := make(map[int]bool, len(terms))
		for _, term := range terms {
			idx, ok := vocab.index[term]
			if !ok {
				idx = len(vocab.terms)
				vocab.index[term] = idx
				vocab.terms = append(vocab.terms, term)
				df = append(df, 0)
			}
			if !seen[idx] {
				seen[idx] = true
				df[idx]++
			}
		}
	}
	if vocab.Size() == 0 {
		return nil, ErrEmptyCorpus
	}

	vocab.idf = make([]float64, len(df))
	for i, d := range df {
		vocab.idf[i] = SmoothIDF(len(texts), d)
	}

	v := &Vectorizer{analyzer: analyzer, vocab: vocab, docs: make([]Vector, len(texts))}
	for i, terms := range tokenized {
		v.docs[i] = v.weigh(terms)
	}
	return v, nil
}

// Vocabulary returns the fitted vocabulary.
func (v *Vectorizer) Vocabulary() *Vocabulary { return v.vocab }

// DocumentVectors returns one vector per fitted text, in corpus order.
// The slice is shared; callers must not modify it.
func (v *Vectorizer) DocumentVectors() []Vector { return v.docs }

// Transform vectorizes a query against the fitted vocabulary. Terms not in the
// vocabulary are dropped; a query left with no terms fails with ErrEmptyQuery.
func (v *Vectorizer) Transform(query string) (Vector, error) {
	if strings.TrimSpace(query) == "" {
		return Vector{}, ErrEmptyQuery
	}
	terms := v.analyzer.Terms(query)
	if len(terms) == 0 {
		return Vector{}, ErrEmptyQuery
	}
	vec := v.weigh(terms)
	if vec.IsZero() {
		return Vector{}, fmt.Errorf("%w: no query term occurs in the corpus", ErrEmptyQuery)
	}
	return vec, nil
}

// weigh builds the L2-normalized tf*idf vector for terms; unknown terms are skipped.
func (v *Vectorizer) weigh(terms []string) Vector {
	counts := make(map[int]int, len(terms))
	for _, term := range terms {
		if idx, ok := v.vocab.index[term]; ok {
			counts[idx]++
		}
	}
	vec := Vector{
		Indices: make([]int, 0, len(counts)),
		Weights: make([]float64, len(counts)),
	}
	for idx := range counts {
		vec.Indices = append(vec.Indices, idx)
	}
	sort.Ints(vec.Indices)
	for i, idx := range vec.Indices {
		vec.Weights[i] = float64(counts[idx]) * v.vocab.idf[idx]
	}
	vec.normalize()
	return vec
}
