// Package models defines the persisted entities and the request and response bodies of the API.
package models

import "time"

// DefaultProfilePic is assigned to users who never set one.
const DefaultProfilePic = "https://res.cloudinary.com/do5keslgr/image/upload/v1711704802/images_rc9qpp.png"

// Topic is a named interest a user can select.
type Topic struct {
	ID    int64  `json:"id" db:"id"`
	Topic string `json:"topic" db:"topic"`
}

// User is an account. PasswordHash is never serialized.
type User struct {
	ID             int64      `json:"id" db:"id"`
	Username       string     `json:"username" db:"username"`
	FirstName      string     `json:"first_name" db:"first_name"`
	LastName       string     `json:"last_name" db:"last_name"`
	Email          string     `json:"email" db:"email"`
	PasswordHash   string     `json:"-" db:"password_hash"`
	ProfilePic     string     `json:"profile_pic" db:"profile_pic"`
	TopicsSelected []Topic    `json:"topics_selected"`
	LastLogin      *time.Time `json:"last_login" db:"last_login"`
	DateJoined     time.Time  `json:"date_joined" db:"date_joined"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=150,alphanumunicode"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Email     string `json:"email" validate:"omitempty,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
}

// TokenRequest is the body of POST /auth/token.
type TokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the body of POST /auth/token/refresh.
type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// TokenPair is returned on login. Refresh is omitted when only the access token is renewed.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// TopicInput names a topic to add to a user's selection.
type TopicInput struct {
	Topic string `json:"topic" validate:"required,max=1000"`
}

// UserUpdate is the body of PUT /users/{id}. Nil fields are left unchanged; topics are
// added to the existing selection, creating unknown topics.
type UserUpdate struct {
	FirstName      *string      `json:"first_name" validate:"omitempty,max=150"`
	LastName       *string      `json:"last_name" validate:"omitempty,max=150"`
	Email          *string      `json:"email" validate:"omitempty,email"`
	ProfilePic     *string      `json:"profile_pic" validate:"omitempty,url,max=255"`
	TopicsSelected []TopicInput `json:"topics_selected" validate:"dive"`
}
