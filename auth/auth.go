package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials covers both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrMissingCredentials is returned when email or password is blank.
	ErrMissingCredentials = errors.New("email and password are required")
	// ErrProviderUnavailable wraps transport failures talking to an identity provider.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// Identity is the authenticated principal handed to the session layer.
type Identity struct {
	UserID string
	Email  string
}

// Authenticator validates a login attempt.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*Identity, error)
}

// HashPassword returns a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPasswordHash reports whether the password matches the bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
