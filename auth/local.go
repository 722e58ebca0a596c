package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/hsowda/SillySopapillaAccess-2/store"
)

// Local authenticates against the user store with bcrypt hashes.
type Local struct {
	users  store.Store
	logger *zap.Logger
}

// NewLocal builds a store-backed authenticator.
func NewLocal(users store.Store, logger *zap.Logger) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{users: users, logger: logger}
}

func (l *Local) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	email = store.NormalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, ErrMissingCredentials
	}

	log := l.logger.With(zap.String("email", email))
	log.Debug("login attempt")

	user, err := l.users.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		log.Debug("user not found")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !CheckPasswordHash(password, user.PasswordHash) {
		log.Debug("password hash check failed")
		return nil, ErrInvalidCredentials
	}

	log.Debug("password hash check passed", zap.String("user_id", user.ID))
	return &Identity{UserID: user.ID, Email: user.Email}, nil
}
