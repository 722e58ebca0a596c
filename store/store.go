package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when creating a user whose email is already taken.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrUnsupportedURL is returned by Open for unknown database schemes.
	ErrUnsupportedURL = errors.New("unsupported database url")
)

// User is the persisted account record.
type User struct {
	ID                   string     `json:"id"`
	Email                string     `json:"email"`
	PasswordHash         string     `json:"password_hash"`
	ResetToken           string     `json:"reset_token,omitempty"`
	ResetTokenExpiration *time.Time `json:"reset_token_expiration,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

func (u *User) String() string {
	return fmt.Sprintf("<User %s>", u.Email)
}

// Store persists user accounts.
type Store interface {
	// Migrate prepares the backing storage (tables, indexes).
	Migrate(ctx context.Context) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	// RevokeSession marks a session id as ended until the given time, after
	// which the session would have expired on its own.
	RevokeSession(ctx context.Context, sessionID string, until time.Time) error
	SessionRevoked(ctx context.Context, sessionID string) (bool, error)
	Close() error
}

// NormalizeEmail is the canonical form used for lookups and uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Open selects a Store implementation from the database URL scheme.
// An empty URL or the memory:// scheme yields an in-process store.
func Open(ctx context.Context, rawURL string) (Store, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return NewMemory(), nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}

	switch parsed.Scheme {
	case "memory":
		return NewMemory(), nil
	case "postgres", "postgresql":
		return NewPostgres(ctx, rawURL)
	case "redis", "rediss":
		return NewRedisFromURL(rawURL)
	default:
		return nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, parsed.Scheme)
	}
}

func cloneUser(u *User) *User {
	if u == nil {
		return nil
	}
	copied := *u
	if u.ResetTokenExpiration != nil {
		exp := *u.ResetTokenExpiration
		copied.ResetTokenExpiration = &exp
	}
	return &copied
}
