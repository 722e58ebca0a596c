package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/hsowda/SillySopapillaAccess-2/store"
)

// DefaultResetTTL is how long a password reset token stays valid.
const DefaultResetTTL = 10 * time.Minute

const resetClaim = "reset_password"

// ErrInvalidResetToken is returned for any unusable reset token: bad
// signature, expired, unknown user, or a token superseded by a newer one.
var ErrInvalidResetToken = errors.New("invalid or expired reset token")

// ResetTokens issues and verifies HS256 password reset tokens. The latest
// token is stored on the user so that older tokens stop working.
type ResetTokens struct {
	users  store.Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewResetTokens builds a token issuer. A non-positive ttl uses DefaultResetTTL.
func NewResetTokens(users store.Store, secret []byte, ttl time.Duration) *ResetTokens {
	if ttl <= 0 {
		ttl = DefaultResetTTL
	}
	return &ResetTokens{users: users, secret: secret, ttl: ttl, now: time.Now}
}

// Issue signs a new token for the user and persists it.
func (r *ResetTokens) Issue(ctx context.Context, user *store.User) (string, error) {
	now := r.now()
	exp := now.Add(r.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		resetClaim: user.ID,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	})
	signed, err := token.SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("sign reset token: %w", err)
	}

	expUTC := exp.UTC()
	user.ResetToken = signed
	user.ResetTokenExpiration = &expUTC
	if err := r.users.Update(ctx, user); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}
	return signed, nil
}

// Verify returns the user the token was issued for.
func (r *ResetTokens) Verify(ctx context.Context, raw string) (*store.User, error) {
	// Expiry is checked against r.now below rather than jwt's global clock.
	parser := jwt.Parser{
		ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
		SkipClaimsValidation: true,
	}
	claims := jwt.MapClaims{}

	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return r.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResetToken, err)
	}
	if !claims.VerifyExpiresAt(r.now().Unix(), true) {
		return nil, fmt.Errorf("%w: token expired", ErrInvalidResetToken)
	}

	userID, ok := claims[resetClaim].(string)
	if !ok || userID == "" {
		return nil, ErrInvalidResetToken
	}

	user, err := r.users.FindByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidResetToken
	}
	if err != nil {
		return nil, err
	}

	if user.ResetToken == "" || user.ResetToken != raw {
		return nil, ErrInvalidResetToken
	}
	if user.ResetTokenExpiration == nil || r.now().After(*user.ResetTokenExpiration) {
		return nil, ErrInvalidResetToken
	}
	return user, nil
}

// ResetPassword verifies the token, stores the new hash and clears the token.
func (r *ResetTokens) ResetPassword(ctx context.Context, raw, newPassword string) error {
	if newPassword == "" {
		return ErrMissingCredentials
	}
	user, err := r.Verify(ctx, raw)
	if err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.ResetToken = ""
	user.ResetTokenExpiration = nil
	return r.users.Update(ctx, user)
}
