package keyword

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/shinbun/internal/models"
)

const (
	defaultTitleBoost = 3.0
	reindexBatchSize  = 500
)

// articleDoc is the indexed projection of an article.
type articleDoc struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	SourceName  string `json:"source_name"`
	Author      string `json:"author"`
}

func toDoc(a *models.Article) articleDoc {
	d := articleDoc{Title: a.Title, Content: a.Content, SourceName: a.SourceName}
	if a.Description != nil {
		d.Description = *a.Description
	}
	if a.Author != nil {
		d.Author = *a.Author
	}
	return d
}

// BleveIndex implements ArticleIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An existing index is reused;
// if the mapping changes, remove the directory to rebuild it from the database.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	index, err := bleve.New(path, articleMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// NewMemoryIndex creates an in-memory index.
func NewMemoryIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(articleMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// articleMapping uses the standard analyzer (lowercase, no stemming) for all text fields.
func articleMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	for _, field := range []string{"title", "description", "content", "author"} {
		docMapping.AddFieldMappingsAt(field, text)
	}
	source := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("source_name", source)

	im.AddDocumentMapping("article", docMapping)
	im.DefaultType = "article"
	im.DefaultMapping = docMapping
	return im
}

func docID(id int64) string { return strconv.FormatInt(id, 10) }

// Index adds or replaces an article.
func (b *BleveIndex) Index(ctx context.Context, article *models.Article) error {
	return b.index.Index(docID(article.ID), toDoc(article))
}

// Delete removes an article. Deleting an unknown id is not an error.
func (b *BleveIndex) Delete(ctx context.Context, id int64) error {
	return b.index.Delete(docID(id))
}

// Reindex indexes articles in batches.
func (b *BleveIndex) Reindex(ctx context.Context, articles []*models.Article) error {
	batch := b.index.NewBatch()
	for _, a := range articles {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := batch.Index(docID(a.ID), toDoc(a)); err != nil {
			return fmt.Errorf("index article %d: %w", a.ID, err)
		}
		if batch.Size() >= reindexBatchSize {
			if err := b.index.Batch(batch); err != nil {
				return fmt.Errorf("Bleve batch failed: %w", err)
			}
			batch.Reset()
		}
	}
	if batch.Size() > 0 {
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("Bleve batch failed: %w", err)
		}
	}
	return nil
}

// Search matches query against the title, description, content and author fields and
// returns up to limit hits. Title matches are boosted.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) (*Results, error) {
	titleBoost := defaultTitleBoost
	fuzziness := 0
	if opts != nil {
		if opts.TitleBoost > 0 {
			titleBoost = opts.TitleBoost
		}
		if opts.Fuzziness > 0 {
			fuzziness = min(opts.Fuzziness, 2)
		}
	}

	fields := []struct {
		name  string
		boost float64
	}{
		{"title", titleBoost},
		{"description", 1},
		{"content", 1},
		{"author", 1},
	}
	queries := make([]blevequery.Query, 0, len(fields))
	for _, f := range fields {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(f.name)
		mq.SetBoost(f.boost)
		if fuzziness > 0 {
			mq.SetFuzziness(fuzziness)
		}
		queries = append(queries, mq)
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(queries...), limit, 0, false)
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	out := &Results{Hits: make([]Hit, 0, len(results.Hits)), Total: results.Total}
	for _, hit := range results.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		out.Hits = append(out.Hits, Hit{ID: id, Score: hit.Score})
	}
	return out, nil
}

// DocCount returns the number of indexed articles.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
