package models

import (
	"testing"
	"time"
)

func TestArticleSearchQuery_Validate(t *testing.T) {
	tests := []struct {
		name      string
		query     *ArticleSearchQuery
		wantErr   bool
		wantLimit int
	}{
		{"empty query", &ArticleSearchQuery{Query: ""}, true, 0},
		{"sets default limit", &ArticleSearchQuery{Query: "x"}, false, 10},
		{"keeps limit", &ArticleSearchQuery{Query: "x", Limit: 25}, false, 25},
		{"caps limit at 100", &ArticleSearchQuery{Query: "x", Limit: 200}, false, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tt.query.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", tt.query.Limit, tt.wantLimit)
			}
		})
	}
}

func TestArticleInput_Article(t *testing.T) {
	loc := time.FixedZone("JST", 9*60*60)
	published := time.Date(2024, 3, 1, 9, 0, 0, 0, loc)
	author := "Jane"
	in := &ArticleInput{
		SourceName:  "Wire",
		Author:      &author,
		Title:       "Stocks rally",
		URL:         "https://example.com/a",
		PublishedAt: published,
		Content:     "Markets up today",
	}
	a := in.Article()
	if a.ID != 0 {
		t.Errorf("new article should have no id, got %d", a.ID)
	}
	if !a.PublishedAt.Equal(published) || a.PublishedAt.Location() != time.UTC {
		t.Errorf("PublishedAt = %v, want %v in UTC", a.PublishedAt, published)
	}
	if a.Author == nil || *a.Author != "Jane" || a.Title != in.Title {
		t.Errorf("fields not copied: %+v", a)
	}
}
