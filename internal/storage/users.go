package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/shinbun/internal/models"
)

const userColumns = `id, username, first_name, last_name, email, password_hash, profile_pic, last_login, date_joined`

// ListTopics returns all topics ordered by id.
func (s *SQLiteStorage) ListTopics(ctx context.Context) ([]*models.Topic, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, topic FROM topics ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	topics := []*models.Topic{}
	for rows.Next() {
		var t models.Topic
		if err := rows.Scan(&t.ID, &t.Topic); err != nil {
			return nil, err
		}
		topics = append(topics, &t)
	}
	return topics, rows.Err()
}

// GetOrCreateTopic returns the topic named name, creating it if needed.
func (s *SQLiteStorage) GetOrCreateTopic(ctx context.Context, name string) (*models.Topic, error) {
	return getOrCreateTopic(ctx, s.db, name)
}

type execQueryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getOrCreateTopic(ctx context.Context, q execQueryer, name string) (*models.Topic, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("topic name is empty: %w", ErrInvalid)
	}
	if _, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO topics (topic) VALUES (?)`, name); err != nil {
		return nil, err
	}
	t := &models.Topic{}
	if err := q.QueryRowContext(ctx, `SELECT id, topic FROM topics WHERE topic = ?`, name).Scan(&t.ID, &t.Topic); err != nil {
		return nil, err
	}
	return t, nil
}

// CreateUser inserts a user and sets its ID and join date. An empty ProfilePic gets the default.
func (s *SQLiteStorage) CreateUser(ctx context.Context, user *models.User) error {
	if user.ProfilePic == "" {
		user.ProfilePic = models.DefaultProfilePic
	}
	user.DateJoined = time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, first_name, last_name, email, password_hash, profile_pic, date_joined)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.Username, user.FirstName, user.LastName, user.Email, user.PasswordHash, user.ProfilePic, user.DateJoined,
	)
	if err != nil {
		return translate(err, "user "+user.Username)
	}
	user.ID, err = res.LastInsertId()
	if user.TopicsSelected == nil {
		user.TopicsSelected = []models.Topic{}
	}
	return err
}

// GetUser returns a user by ID with its selected topics.
func (s *SQLiteStorage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("user", id)
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadTopics(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByUsername returns a user by username with its selected topics.
func (s *SQLiteStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("user", username)
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadTopics(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ListUsers returns users whose username contains search (case-insensitive); all users when
// search is empty.
func (s *SQLiteStorage) ListUsers(ctx context.Context, search string) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if search != "" {
		query += ` WHERE username LIKE '%' || ? || '%' ESCAPE '\'`
		args = append(args, likeEscape(search))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, u := range users {
		if err := s.loadTopics(ctx, u); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// UpdateUser updates the profile fields of an existing user and adds addTopics to the
// user's selection, creating unknown topics. Topics already selected are kept. Either
// everything is applied or nothing is.
func (s *SQLiteStorage) UpdateUser(ctx context.Context, user *models.User, addTopics []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE users SET first_name = ?, last_name = ?, email = ?, profile_pic = ? WHERE id = ?`,
		user.FirstName, user.LastName, user.Email, user.ProfilePic, user.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return notFound("user", user.ID)
	}

	for _, name := range addTopics {
		t, err := getOrCreateTopic(ctx, tx, name)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO user_topics (user_id, topic_id) VALUES (?, ?)`, user.ID, t.ID,
		); err != nil {
			return translate(err, fmt.Sprintf("user %d", user.ID))
		}
	}
	return tx.Commit()
}

// TouchLastLogin records a successful login.
func (s *SQLiteStorage) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, at.UTC(), userID)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return notFound("user", userID)
	}
	return nil
}

func (s *SQLiteStorage) loadTopics(ctx context.Context, u *models.User) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.topic FROM topics t
		 JOIN user_topics ut ON ut.topic_id = t.id
		 WHERE ut.user_id = ? ORDER BY t.id`, u.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	u.TopicsSelected = []models.Topic{}
	for rows.Next() {
		var t models.Topic
		if err := rows.Scan(&t.ID, &t.Topic); err != nil {
			return err
		}
		u.TopicsSelected = append(u.TopicsSelected, t)
	}
	return rows.Err()
}

func scanUser(r rowScanner) (*models.User, error) {
	var u models.User
	var lastLogin sql.NullTime
	if err := r.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email,
		&u.PasswordHash, &u.ProfilePic, &lastLogin, &u.DateJoined); err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}
