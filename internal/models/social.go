package models

// StoredNews is a user's liked and bookmarked state for one article.
// UserName is the user's first name and NewsTopic the article title; News nests the
// article when it still exists.
type StoredNews struct {
	ID         int64    `json:"id" db:"id"`
	UserID     int64    `json:"user_id" db:"user_id"`
	UserName   string   `json:"user_name" db:"-"`
	NewsID     *int64   `json:"news_id" db:"news_id"`
	NewsTopic  string   `json:"news_topic,omitempty" db:"-"`
	Liked      bool     `json:"liked" db:"liked"`
	Bookmarked bool     `json:"bookmarked" db:"bookmarked"`
	News       *Article `json:"news,omitempty" db:"-"`
}

// StoredNewsInput is the body of POST /stored.
type StoredNewsInput struct {
	UserID     int64  `json:"user_id" validate:"required,gt=0"`
	NewsID     *int64 `json:"news_id" validate:"omitempty,gt=0"`
	Liked      bool   `json:"liked"`
	Bookmarked bool   `json:"bookmarked"`
}

// Share is an article sent from one user to another.
type Share struct {
	ID            int64    `json:"id" db:"id"`
	NewsID        int64    `json:"-" db:"news_id"`
	News          *Article `json:"news_id" db:"-"`
	Source        int64    `json:"source" db:"source"`
	SourceName    string   `json:"source_name" db:"-"`
	SourceProfile string   `json:"source_profile" db:"-"`
	Destination   int64    `json:"destination" db:"destination"`
}

// ShareInput is the body of POST /shared.
type ShareInput struct {
	NewsID      int64 `json:"news_id" validate:"required,gt=0"`
	Source      int64 `json:"source" validate:"required,gt=0"`
	Destination int64 `json:"destination" validate:"required,gt=0,nefield=Source"`
}

// Follow is an edge of the follower graph.
type Follow struct {
	ID           int64 `json:"id" db:"id"`
	Follower     int64 `json:"follower" db:"follower"`
	Following    int64 `json:"following" db:"following"`
	FollowedUser *User `json:"followed_user,omitempty" db:"-"`
}

// FollowInput is the body of POST /follow/{follower}.
type FollowInput struct {
	Following int64 `json:"following" validate:"required,gt=0"`
}
