package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hyperjump/shinbun/internal/models"
)

const articleColumns = `id, source_name, author, title, description, url, url_to_image, published_at, content`

// CreateArticle inserts an article and sets its ID.
func (s *SQLiteStorage) CreateArticle(ctx context.Context, a *models.Article) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO articles (source_name, author, title, description, url, url_to_image, published_at, content)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.SourceName, nullString(a.Author), a.Title, nullString(a.Description),
		a.URL, nullString(a.URLToImage), a.PublishedAt.UTC(), a.Content,
	)
	if err != nil {
		return translate(err, "article")
	}
	a.ID, err = res.LastInsertId()
	return err
}

// GetArticle returns an article by ID.
func (s *SQLiteStorage) GetArticle(ctx context.Context, id int64) (*models.Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("article", id)
	}
	return a, err
}

// ListArticles returns articles newest first. A non-positive limit returns all articles.
func (s *SQLiteStorage) ListArticles(ctx context.Context, offset, limit int) ([]*models.Article, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles
		 ORDER BY published_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	articles := []*models.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// DeleteArticle removes an article. Stored news and shares referencing it are removed too.
func (s *SQLiteStorage) DeleteArticle(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return notFound("article", id)
	}
	return nil
}

func scanArticle(r rowScanner) (*models.Article, error) {
	var a models.Article
	var author, description, image sql.NullString
	if err := r.Scan(&a.ID, &a.SourceName, &author, &a.Title, &description,
		&a.URL, &image, &a.PublishedAt, &a.Content); err != nil {
		return nil, err
	}
	a.Author = stringPtr(author)
	a.Description = stringPtr(description)
	a.URLToImage = stringPtr(image)
	return &a, nil
}

// nullArticle scans the article side of a LEFT JOIN.
type nullArticle struct {
	id          sql.NullInt64
	sourceName  sql.NullString
	author      sql.NullString
	title       sql.NullString
	description sql.NullString
	url         sql.NullString
	image       sql.NullString
	publishedAt sql.NullTime
	content     sql.NullString
}

func (n *nullArticle) dest() []any {
	return []any{&n.id, &n.sourceName, &n.author, &n.title, &n.description,
		&n.url, &n.image, &n.publishedAt, &n.content}
}

func (n *nullArticle) article() *models.Article {
	if !n.id.Valid {
		return nil
	}
	return &models.Article{
		ID:          n.id.Int64,
		SourceName:  n.sourceName.String,
		Author:      stringPtr(n.author),
		Title:       n.title.String,
		Description: stringPtr(n.description),
		URL:         n.url.String,
		URLToImage:  stringPtr(n.image),
		PublishedAt: n.publishedAt.Time,
		Content:     n.content.String,
	}
}
