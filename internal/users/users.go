// internal/users/users.go
//
// Player accounts.
// Responsibilities:
//   - Username/password validation.
//   - bcrypt hashing and verification.
//   - CRUD on the users table, including the editable display name.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameTaken      = errors.New("username taken")
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// MaxDisplayName is the longest display name accepted, in characters.
const MaxDisplayName = 32

// ValidationError describes a rejected signup or profile update.
type ValidationError struct{ Reason string }

func (e *ValidationError) Error() string { return e.Reason }

type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	DisplayName  string    `json:"displayName,omitempty" db:"display_name"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// Store reads and writes the users table.
type Store struct{ db *sqlx.DB }

func NewStore(db *sqlx.DB) *Store { return &Store{db: db} }

// normalizeUsername trims whitespace; usernames compare case-insensitively.
func normalizeUsername(u string) string {
	return strings.TrimSpace(u)
}

// Validate enforces basic username/password rules.
func Validate(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return &ValidationError{"username must be 3–24 chars"}
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return &ValidationError{"username: letters, numbers, underscore only"}
		}
	}
	if len(p) < 8 || len(p) > 72 {
		return &ValidationError{"password must be 8–72 chars"}
	}
	return nil
}

// Create validates input, checks uniqueness, hashes the password and inserts
// the user.
func (s *Store) Create(ctx context.Context, username, pw string) (*User, error) {
	username = normalizeUsername(username)
	if err := Validate(username, pw); err != nil {
		return nil, err
	}
	if _, err := s.ByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &User{
		ID:           gonanoid.Must(),
		Username:     username,
		PasswordHash: string(h),
		CreatedAt:    time.Now().UTC(),
	}
	_, err = s.db.NamedExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at)
		 VALUES (:id, :username, :password_hash, :created_at)`, u)
	if err != nil {
		// unique index on lower(username) catches a concurrent signup
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// Authenticate returns the user when pw matches.
func (s *Store) Authenticate(ctx context.Context, username, pw string) (*User, error) {
	u, err := s.ByUsername(ctx, normalizeUsername(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(pw)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Store) ByUsername(ctx context.Context, username string) (*User, error) {
	return s.get(ctx, `SELECT id, username, password_hash, display_name, created_at FROM users WHERE lower(username) = lower(?)`, username)
}

func (s *Store) ByID(ctx context.Context, id string) (*User, error) {
	return s.get(ctx, `SELECT id, username, password_hash, display_name, created_at FROM users WHERE id = ?`, id)
}

// ValidateDisplayName trims name and checks it. An empty result is allowed
// and clears the display name.
func ValidateDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxDisplayName {
		return "", &ValidationError{fmt.Sprintf("display name must be at most %d chars", MaxDisplayName)}
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", &ValidationError{"display name: no control characters"}
		}
	}
	return name, nil
}

// UpdateProfile sets the display name of user id and returns the updated
// user.
func (s *Store) UpdateProfile(ctx context.Context, id, displayName string) (*User, error) {
	name, err := ValidateDisplayName(displayName)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET display_name = ? WHERE id = ?`, name, id)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return s.ByID(ctx, id)
}

func (s *Store) get(ctx context.Context, q string, arg string) (*User, error) {
	var u User
	if err := s.db.GetContext(ctx, &u, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}
