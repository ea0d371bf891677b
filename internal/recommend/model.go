package recommend

import (
	"fmt"
	"slices"
	"time"

	"github.com/hyperjump/shinbun/internal/corpus"
	"github.com/hyperjump/shinbun/internal/tfidf"
)

// Model is a corpus with its fitted TF-IDF representation. It is never mutated after
// NewModel returns, so one Model can serve any number of concurrent queries.
type Model struct {
	corpus     *corpus.Corpus
	vectorizer *tfidf.Vectorizer
	builtAt    time.Time
}

// Result is the outcome of one recommendation.
type Result struct {
	Query      string   `json:"query"`
	Categories []string `json:"categories"`
	Matches    []Match  `json:"matches,omitempty"`
}

// clone returns a copy of r that shares no slices with it.
func (r *Result) clone() *Result {
	out := *r
	out.Categories = slices.Clone(r.Categories)
	out.Matches = slices.Clone(r.Matches)
	return &out
}

// Match describes one selected document.
type Match struct {
	Rank     int     `json:"rank"`
	Index    int     `json:"index"`
	Headline string  `json:"headline"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// NewModel fits a vectorizer on c. analyzer may be nil for the default English analyzer.
func NewModel(c *corpus.Corpus, analyzer tfidf.Analyzer) (*Model, error) {
	if c.Len() == 0 {
		return nil, tfidf.ErrEmptyCorpus
	}
	v, err := tfidf.Fit(c.Texts(), analyzer)
	if err != nil {
		return nil, fmt.Errorf("fit corpus %s: %w", c.Source, err)
	}
	return &Model{corpus: c, vectorizer: v, builtAt: time.Now()}, nil
}

// Documents returns the number of corpus documents.
func (m *Model) Documents() int { return m.corpus.Len() }

// VocabularySize returns the number of distinct terms.
func (m *Model) VocabularySize() int { return m.vectorizer.Vocabulary().Size() }

// BuiltAt returns when the model was fitted.
func (m *Model) BuiltAt() time.Time { return m.builtAt }

// Source returns the corpus source the model was built from.
func (m *Model) Source() string { return m.corpus.Source }

// Categories returns the distinct corpus categories in order of first appearance.
func (m *Model) Categories() []string { return m.corpus.Categories() }

// Recommend returns the categories of the k documents most similar to query.
func (m *Model) Recommend(query string, k int) (*Result, error) {
	qv, err := m.vectorizer.Transform(query)
	if err != nil {
		return nil, err
	}
	top, err := Rank(qv, m.vectorizer.DocumentVectors(), k)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Query:      query,
		Categories: make([]string, len(top)),
		Matches:    make([]Match, len(top)),
	}
	for i, s := range top {
		doc := m.corpus.Documents[s.Index]
		res.Categories[i] = doc.Category
		res.Matches[i] = Match{
			Rank:     i + 1,
			Index:    s.Index,
			Headline: doc.Headline,
			Category: doc.Category,
			Score:    s.Score,
		}
	}
	return res, nil
}

// Recommend runs the whole pipeline once, without caching: load the corpus at path,
// fit it, and rank query against it.
func Recommend(path, query string, k int) (*Result, error) {
	c, err := corpus.Load(path)
	if err != nil {
		return nil, err
	}
	m, err := NewModel(c, nil)
	if err != nil {
		return nil, err
	}
	return m.Recommend(query, k)
}
