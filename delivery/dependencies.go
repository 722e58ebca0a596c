package delivery

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/hsowda/SillySopapillaAccess-2/auth"
	"github.com/hsowda/SillySopapillaAccess-2/embed"
	"github.com/hsowda/SillySopapillaAccess-2/session"
)

// AppDependencies defines the contract that the delivery layer (HTTP handlers)
// expects from the core application layer.
type AppDependencies interface {
	// Middleware.
	RequestLogger(next http.Handler) http.Handler
	SessionMiddleware(next http.Handler) http.Handler
	RequireLogin(next http.Handler) http.Handler
	JWTMiddleware(next http.Handler) http.Handler

	GetSessionFromContext(ctx context.Context) (*session.Session, bool)
	GetClaimsFromContext(ctx context.Context) (jwt.MapClaims, bool)

	Authenticate(ctx context.Context, email, password string) (*auth.Identity, error)
	IssueAccessToken(id *auth.Identity, sessionID string) (string, error)
	// RevokeSession ends sess server-side so its cookie and bearer tokens
	// are refused even if replayed.
	RevokeSession(ctx context.Context, sess *session.Session) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error

	// RedirectURL is where a logged-in user is sent.
	RedirectURL() string
	JWKS() ([]byte, error)
	EmbedChecker() embed.Checker
	Now() time.Time
	Logger(ctx context.Context) *zap.Logger
}
