package auth

import (
	"context"
	"errors"

	"github.com/hsowda/SillySopapillaAccess-2/store"
)

const (
	SeedEmail    = "test@example.com"
	SeedPassword = "password123"
)

// Seed creates the test account when it is missing. It reports whether a
// user was created.
func Seed(ctx context.Context, users store.Store) (bool, error) {
	_, err := users.FindByEmail(ctx, SeedEmail)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	hash, err := HashPassword(SeedPassword)
	if err != nil {
		return false, err
	}
	if err := users.Create(ctx, &store.User{Email: SeedEmail, PasswordHash: hash}); err != nil {
		return false, err
	}
	return true, nil
}
