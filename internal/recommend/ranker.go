// Package recommend ranks corpus documents against free-text queries and returns
// the categories of the most similar ones.
package recommend

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hyperjump/shinbun/internal/tfidf"
	"github.com/hyperjump/shinbun/pkg/utils"
)

// DefaultK is the number of categories returned per query.
const DefaultK = 3

var (
	// ErrInsufficientDocuments is returned when the corpus has fewer than K documents.
	ErrInsufficientDocuments = errors.New("insufficient documents")
	// ErrInvalidK is returned for K < 1.
	ErrInvalidK = errors.New("k must be at least 1")
)

// Scored is a corpus position with its similarity to the query.
type Scored struct {
	Index int
	Score float64
}

// Similarities returns the cosine similarity between query and each document, in [0, 1].
// Both sides are unit-normalized, so cosine is the plain dot product.
func Similarities(query tfidf.Vector, docs []tfidf.Vector) []float64 {
	scores := make([]float64, len(docs))
	for i, d := range docs {
		scores[i] = utils.Clamp01(query.Dot(d))
	}
	return scores
}

// Rank returns the k most similar documents, most similar first. Equal scores keep
// corpus order. The inputs are not modified.
func Rank(query tfidf.Vector, docs []tfidf.Vector, k int) ([]Scored, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	if len(docs) < k {
		return nil, fmt.Errorf("%w: corpus has %d, need %d", ErrInsufficientDocuments, len(docs), k)
	}
	scores := Similarities(query, docs)
	ranked := make([]Scored, len(scores))
	for i, s := range scores {
		ranked[i] = Scored{Index: i, Score: s}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked[:k], nil
}
