package models

import (
	"fmt"
	"time"
)

// Article is a stored news article.
type Article struct {
	ID          int64     `json:"id" db:"id"`
	SourceName  string    `json:"source_name" db:"source_name"`
	Author      *string   `json:"author" db:"author"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description" db:"description"`
	URL         string    `json:"url" db:"url"`
	URLToImage  *string   `json:"url_to_image" db:"url_to_image"`
	PublishedAt time.Time `json:"published_at" db:"published_at"`
	Content     string    `json:"content" db:"content"`
}

// ArticleInput is the body of POST /articles.
type ArticleInput struct {
	SourceName  string    `json:"source_name" validate:"required,max=100"`
	Author      *string   `json:"author" validate:"omitempty,max=100"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description *string   `json:"description"`
	URL         string    `json:"url" validate:"required,url"`
	URLToImage  *string   `json:"url_to_image" validate:"omitempty,url"`
	PublishedAt time.Time `json:"published_at" validate:"required"`
	Content     string    `json:"content" validate:"required"`
}

// Article converts the input to an unsaved Article.
func (in *ArticleInput) Article() *Article {
	return &Article{
		SourceName:  in.SourceName,
		Author:      in.Author,
		Title:       in.Title,
		Description: in.Description,
		URL:         in.URL,
		URLToImage:  in.URLToImage,
		PublishedAt: in.PublishedAt.UTC(),
		Content:     in.Content,
	}
}

// ArticleCreated is the response of a successful POST /articles.
type ArticleCreated struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	NewsID  int64  `json:"news_id,omitempty"`
}

// ArticleSearchQuery is a keyword search over articles.
type ArticleSearchQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Validate ensures the query is non-empty and clamps the limit to [1, 100], defaulting to 10.
func (q *ArticleSearchQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// ArticleHit is one keyword search result.
type ArticleHit struct {
	Article *Article `json:"article"`
	Score   float64  `json:"score"`
	Rank    int      `json:"rank"`
}

// ArticleSearchResponse is the response of GET /articles/search.
type ArticleSearchResponse struct {
	Query     string        `json:"query"`
	Results   []*ArticleHit `json:"results"`
	Total     uint64        `json:"total"`
	QueryTime int64         `json:"query_time_ms"`
}
