// Package keyword provides full-text search over stored news articles.
package keyword

import (
	"context"

	"github.com/hyperjump/shinbun/internal/models"
)

// SearchOptions are optional parameters for article search. Nil means use defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score of title matches. Values <= 0 mean the default (3).
	TitleBoost float64
	// Fuzziness is the maximum edit distance per term (0 disables fuzzy matching, max 2).
	Fuzziness int
}

// ArticleIndex defines article search operations.
type ArticleIndex interface {
	Index(ctx context.Context, article *models.Article) error
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) (*Results, error)
	Reindex(ctx context.Context, articles []*models.Article) error
	DocCount() (uint64, error)
	Close() error
}

// Hit is a single search hit.
type Hit struct {
	ID    int64
	Score float64
}

// Results holds the hits of one search, best first, and the total number of matches.
type Results struct {
	Hits  []Hit
	Total uint64
}
