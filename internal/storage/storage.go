// Package storage defines the persistence interface for users, articles and the social graph.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hyperjump/shinbun/internal/models"
)

var (
	// ErrNotFound is returned when a looked-up entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("already exists")
	// ErrInvalid is returned when a write references a missing entity or breaks a rule
	// such as a user following themself.
	ErrInvalid = errors.New("invalid reference")
)

// Storage defines persistence operations.
type Storage interface {
	// Topic operations
	ListTopics(ctx context.Context) ([]*models.Topic, error)
	GetOrCreateTopic(ctx context.Context, name string) (*models.Topic, error)

	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context, search string) ([]*models.User, error)
	UpdateUser(ctx context.Context, user *models.User, addTopics []string) error
	TouchLastLogin(ctx context.Context, userID int64, at time.Time) error

	// Article operations
	CreateArticle(ctx context.Context, article *models.Article) error
	GetArticle(ctx context.Context, id int64) (*models.Article, error)
	ListArticles(ctx context.Context, offset, limit int) ([]*models.Article, error)
	DeleteArticle(ctx context.Context, id int64) error

	// Liked and bookmarked state
	CreateStoredNews(ctx context.Context, n *models.StoredNews) error
	ListStoredNews(ctx context.Context) ([]*models.StoredNews, error)
	ListLikesForArticle(ctx context.Context, newsID int64) ([]*models.StoredNews, error)
	ListBookmarked(ctx context.Context, userID int64) ([]*models.StoredNews, error)
	ListLiked(ctx context.Context, userID int64) ([]*models.StoredNews, error)
	GetBookmarked(ctx context.Context, userID, newsID int64) (*models.StoredNews, error)
	GetLiked(ctx context.Context, userID, newsID int64) (*models.StoredNews, error)
	DeleteBookmarked(ctx context.Context, userID, newsID int64) error
	DeleteLiked(ctx context.Context, userID, newsID int64) error

	// Share operations
	CreateShare(ctx context.Context, share *models.Share) error
	ListShares(ctx context.Context) ([]*models.Share, error)
	ListSharesTo(ctx context.Context, destination int64, source *int64) ([]*models.Share, error)

	// Follow operations
	CreateFollow(ctx context.Context, follow *models.Follow) error
	ListFollows(ctx context.Context, follower, following *int64) ([]*models.Follow, error)
	GetFollow(ctx context.Context, follower, following int64) (*models.Follow, error)
	DeleteFollow(ctx context.Context, follower, following int64) error

	// Stats
	CountUsers(ctx context.Context) (int64, error)
	CountArticles(ctx context.Context) (int64, error)

	Close() error
}
