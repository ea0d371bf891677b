package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hyperjump/shinbun/internal/models"
)

const storedNewsSelect = `
	SELECT n.id, n.user_id, u.first_name, n.news_id, n.liked, n.bookmarked,
	       a.id, a.source_name, a.author, a.title, a.description, a.url, a.url_to_image, a.published_at, a.content
	FROM stored_news n
	JOIN users u ON u.id = n.user_id
	LEFT JOIN articles a ON a.id = n.news_id`

// CreateStoredNews inserts liked/bookmarked state and fills in the read-only fields.
func (s *SQLiteStorage) CreateStoredNews(ctx context.Context, n *models.StoredNews) error {
	var newsID sql.NullInt64
	if n.NewsID != nil {
		newsID = sql.NullInt64{Int64: *n.NewsID, Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO stored_news (user_id, news_id, liked, bookmarked) VALUES (?, ?, ?, ?)`,
		n.UserID, newsID, n.Liked, n.Bookmarked,
	)
	if err != nil {
		return translate(err, "stored news")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := s.queryStoredNews(ctx, ` WHERE n.id = ?`, id)
	if err != nil {
		return err
	}
	if len(got) == 1 {
		*n = *got[0]
	}
	return nil
}

// ListStoredNews returns every liked/bookmarked entry.
func (s *SQLiteStorage) ListStoredNews(ctx context.Context) ([]*models.StoredNews, error) {
	return s.queryStoredNews(ctx, ` ORDER BY n.id`)
}

// ListLikesForArticle returns the liked entries for an article.
func (s *SQLiteStorage) ListLikesForArticle(ctx context.Context, newsID int64) ([]*models.StoredNews, error) {
	return s.queryStoredNews(ctx, ` WHERE n.news_id = ? AND n.liked = 1 ORDER BY n.id`, newsID)
}

// ListBookmarked returns the user's bookmarked entries.
func (s *SQLiteStorage) ListBookmarked(ctx context.Context, userID int64) ([]*models.StoredNews, error) {
	return s.queryStoredNews(ctx, ` WHERE n.user_id = ? AND n.bookmarked = 1 ORDER BY n.id`, userID)
}

// ListLiked returns the user's liked entries.
func (s *SQLiteStorage) ListLiked(ctx context.Context, userID int64) ([]*models.StoredNews, error) {
	return s.queryStoredNews(ctx, ` WHERE n.user_id = ? AND n.liked = 1 ORDER BY n.id`, userID)
}

// GetBookmarked returns the user's bookmark of an article.
func (s *SQLiteStorage) GetBookmarked(ctx context.Context, userID, newsID int64) (*models.StoredNews, error) {
	return s.getFlagged(ctx, "bookmarked", userID, newsID)
}

// GetLiked returns the user's like of an article.
func (s *SQLiteStorage) GetLiked(ctx context.Context, userID, newsID int64) (*models.StoredNews, error) {
	return s.getFlagged(ctx, "liked", userID, newsID)
}

// DeleteBookmarked clears the user's bookmark of an article. Entries left with neither
// flag set are removed.
func (s *SQLiteStorage) DeleteBookmarked(ctx context.Context, userID, newsID int64) error {
	return s.clearFlag(ctx, "bookmarked", userID, newsID)
}

// DeleteLiked clears the user's like of an article. Entries left with neither flag set
// are removed.
func (s *SQLiteStorage) DeleteLiked(ctx context.Context, userID, newsID int64) error {
	return s.clearFlag(ctx, "liked", userID, newsID)
}

// flag is always one of the two literal column names above.
func (s *SQLiteStorage) getFlagged(ctx context.Context, flag string, userID, newsID int64) (*models.StoredNews, error) {
	got, err := s.queryStoredNews(ctx,
		` WHERE n.user_id = ? AND n.news_id = ? AND n.`+flag+` = 1 ORDER BY n.id LIMIT 1`, userID, newsID)
	if err != nil {
		return nil, err
	}
	if len(got) == 0 {
		return nil, notFound(flag+" news", fmt.Sprintf("%d/%d", userID, newsID))
	}
	return got[0], nil
}

func (s *SQLiteStorage) clearFlag(ctx context.Context, flag string, userID, newsID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE stored_news SET `+flag+` = 0 WHERE user_id = ? AND news_id = ? AND `+flag+` = 1`,
		userID, newsID)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return notFound(flag+" news", fmt.Sprintf("%d/%d", userID, newsID))
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM stored_news WHERE user_id = ? AND news_id = ? AND liked = 0 AND bookmarked = 0`,
		userID, newsID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStorage) queryStoredNews(ctx context.Context, where string, args ...any) ([]*models.StoredNews, error) {
	rows, err := s.db.QueryContext(ctx, storedNewsSelect+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.StoredNews{}
	for rows.Next() {
		var n models.StoredNews
		var newsID sql.NullInt64
		var art nullArticle
		dest := append([]any{&n.ID, &n.UserID, &n.UserName, &newsID, &n.Liked, &n.Bookmarked}, art.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if newsID.Valid {
			id := newsID.Int64
			n.NewsID = &id
		}
		n.News = art.article()
		if n.News != nil {
			n.NewsTopic = n.News.Title
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

const shareSelect = `
	SELECT s.id, s.news_id, s.source, u.first_name, u.profile_pic, s.destination,
	       a.id, a.source_name, a.author, a.title, a.description, a.url, a.url_to_image, a.published_at, a.content
	FROM shares s
	JOIN users u ON u.id = s.source
	LEFT JOIN articles a ON a.id = s.news_id`

// CreateShare inserts a share and fills in the read-only fields.
func (s *SQLiteStorage) CreateShare(ctx context.Context, share *models.Share) error {
	if share.Source == share.Destination {
		return fmt.Errorf("share to self: %w", ErrInvalid)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO shares (news_id, source, destination) VALUES (?, ?, ?)`,
		share.NewsID, share.Source, share.Destination,
	)
	if err != nil {
		return translate(err, "share")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := s.queryShares(ctx, ` WHERE s.id = ?`, id)
	if err != nil {
		return err
	}
	if len(got) == 1 {
		*share = *got[0]
	}
	return nil
}

// ListShares returns every share.
func (s *SQLiteStorage) ListShares(ctx context.Context) ([]*models.Share, error) {
	return s.queryShares(ctx, ` ORDER BY s.id`)
}

// ListSharesTo returns the shares received by destination, optionally only those from source.
func (s *SQLiteStorage) ListSharesTo(ctx context.Context, destination int64, source *int64) ([]*models.Share, error) {
	if source != nil {
		return s.queryShares(ctx, ` WHERE s.destination = ? AND s.source = ? ORDER BY s.id`, destination, *source)
	}
	return s.queryShares(ctx, ` WHERE s.destination = ? ORDER BY s.id`, destination)
}

func (s *SQLiteStorage) queryShares(ctx context.Context, where string, args ...any) ([]*models.Share, error) {
	rows, err := s.db.QueryContext(ctx, shareSelect+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.Share{}
	for rows.Next() {
		var sh models.Share
		var art nullArticle
		dest := append([]any{&sh.ID, &sh.NewsID, &sh.Source, &sh.SourceName, &sh.SourceProfile, &sh.Destination}, art.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		sh.News = art.article()
		out = append(out, &sh)
	}
	return out, rows.Err()
}

// CreateFollow inserts a follower edge. A duplicate pair returns ErrConflict; following
// oneself or an unknown user returns ErrInvalid.
func (s *SQLiteStorage) CreateFollow(ctx context.Context, f *models.Follow) error {
	if f.Follower == f.Following {
		return fmt.Errorf("user %d cannot follow themself: %w", f.Follower, ErrInvalid)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO follows (follower, following) VALUES (?, ?)`, f.Follower, f.Following)
	if err != nil {
		return translate(err, fmt.Sprintf("follow %d->%d", f.Follower, f.Following))
	}
	f.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}
	return s.attachFollowed(ctx, f)
}

// ListFollows returns follow edges, filtered by follower and/or following when non-nil.
func (s *SQLiteStorage) ListFollows(ctx context.Context, follower, following *int64) ([]*models.Follow, error) {
	query := `SELECT id, follower, following FROM follows`
	var conds []string
	var args []any
	if follower != nil {
		conds = append(conds, "follower = ?")
		args = append(args, *follower)
	}
	if following != nil {
		conds = append(conds, "following = ?")
		args = append(args, *following)
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	follows := []*models.Follow{}
	for rows.Next() {
		var f models.Follow
		if err := rows.Scan(&f.ID, &f.Follower, &f.Following); err != nil {
			rows.Close()
			return nil, err
		}
		follows = append(follows, &f)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, f := range follows {
		if err := s.attachFollowed(ctx, f); err != nil {
			return nil, err
		}
	}
	return follows, nil
}

// GetFollow returns the edge follower -> following.
func (s *SQLiteStorage) GetFollow(ctx context.Context, follower, following int64) (*models.Follow, error) {
	var f models.Follow
	err := s.db.QueryRowContext(ctx,
		`SELECT id, follower, following FROM follows WHERE follower = ? AND following = ?`,
		follower, following,
	).Scan(&f.ID, &f.Follower, &f.Following)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("follow", fmt.Sprintf("%d->%d", follower, following))
	}
	if err != nil {
		return nil, err
	}
	if err := s.attachFollowed(ctx, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// DeleteFollow removes the edge follower -> following.
func (s *SQLiteStorage) DeleteFollow(ctx context.Context, follower, following int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower = ? AND following = ?`, follower, following)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return notFound("follow", fmt.Sprintf("%d->%d", follower, following))
	}
	return nil
}

func (s *SQLiteStorage) attachFollowed(ctx context.Context, f *models.Follow) error {
	u, err := s.GetUser(ctx, f.Following)
	if err != nil {
		return err
	}
	f.FollowedUser = u
	return nil
}
