package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/hsowda/SillySopapillaAccess-2/auth"
	"github.com/hsowda/SillySopapillaAccess-2/delivery"
	"github.com/hsowda/SillySopapillaAccess-2/embed"
	"github.com/hsowda/SillySopapillaAccess-2/session"
	"github.com/hsowda/SillySopapillaAccess-2/store"
)

// App holds the application's dependencies and state.
type App struct {
	cfg           Config
	logger        *zap.Logger
	users         store.Store
	authenticator auth.Authenticator
	resets        *auth.ResetTokens
	sessions      *session.Manager
	signer        Signer
	prober        embed.Checker
	now           func() time.Time

	Router http.Handler
}

// Option customises an App.
type Option func(*App)

// WithStore replaces the store opened from DatabaseURL.
func WithStore(s store.Store) Option {
	return func(a *App) { a.users = s }
}

// WithEmbedChecker replaces the network prober behind /api/embed-check.
func WithEmbedChecker(c embed.Checker) Option {
	return func(a *App) { a.prober = c }
}

// WithClock overrides the time source used for sessions and tokens.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// New creates a new App instance, configures dependencies, and sets up the router.
func New(ctx context.Context, cfg Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}

	if cfg.GeneratedSecret() {
		logger.Warn("SECRET_KEY not set, generated a random key; sessions and reset tokens will not survive a restart")
	}

	if a.users == nil {
		users, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.users = users
	}

	if cfg.KratosURL != "" {
		a.authenticator = auth.NewKratos(cfg.KratosURL, logger.Named("kratos"))
		logger.Info("authenticating against Ory Kratos", zap.String("url", cfg.KratosURL))
	} else {
		a.authenticator = auth.NewLocal(a.users, logger.Named("auth"))
	}

	a.resets = auth.NewResetTokens(a.users, cfg.deriveKey("reset", 32), cfg.ResetTokenTTL)

	sessions, err := session.NewManager(session.Config{
		HashKey:          cfg.deriveKey("session-hash", 64),
		BlockKey:         cfg.deriveKey("session-block", 32),
		CookieSecure:     cfg.Session.CookieSecure,
		Lifetime:         cfg.Session.Lifetime,
		RememberLifetime: cfg.Session.RememberFor,
		IdleTimeout:      cfg.Session.IdleTimeout,
		Now:              a.now,
	})
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}
	a.sessions = sessions

	signer, err := NewJWTSigner(cfg.JWKSFile, logger)
	if err != nil {
		return nil, err
	}
	a.signer = signer

	if a.prober == nil {
		a.prober = embed.NewProber(cfg.PublicURL, nil)
	}

	if err := delivery.ParseAllTemplates(); err != nil {
		return nil, err
	}
	a.Router = delivery.NewRouter(a)

	return a, nil
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	a.logger.Info("server listening", zap.String("addr", a.cfg.HTTPAddr), zap.String("env", a.cfg.Env))

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.users.Close()
}

// Migrate creates the store schema.
func (a *App) Migrate(ctx context.Context) error {
	if err := a.users.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// InitDB creates the schema and seeds the test user.
func (a *App) InitDB(ctx context.Context) error {
	if err := a.Migrate(ctx); err != nil {
		return err
	}
	created, err := auth.Seed(ctx, a.users)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if created {
		a.logger.Info("test user created", zap.String("email", auth.SeedEmail))
	} else {
		a.logger.Info("test user already exists", zap.String("email", auth.SeedEmail))
	}
	return nil
}

func (a *App) Authenticate(ctx context.Context, email, password string) (*auth.Identity, error) {
	return a.authenticator.Authenticate(ctx, email, password)
}

// IssueAccessToken signs a bearer token bound to the login session.
func (a *App) IssueAccessToken(id *auth.Identity, sessionID string) (string, error) {
	return a.signer.Sign(accessClaims(a.cfg.PublicURL, id.UserID, id.Email, sessionID, a.now(), a.cfg.AccessTokenTTL))
}

// RevokeSession records the session id until neither the cookie nor an
// access token issued for it could still be valid.
func (a *App) RevokeSession(ctx context.Context, sess *session.Session) error {
	until := sess.ExpiresAt()
	if tokenExpiry := a.now().Add(a.cfg.AccessTokenTTL); tokenExpiry.After(until) {
		until = tokenExpiry
	}
	return a.users.RevokeSession(ctx, sess.ID(), until)
}

func (a *App) RedirectURL() string { return a.cfg.RedirectURL }

func (a *App) JWKS() ([]byte, error) { return publicJWKS(a.signer) }

func (a *App) EmbedChecker() embed.Checker { return a.prober }

func (a *App) Now() time.Time { return a.now() }

func (a *App) Logger(ctx context.Context) *zap.Logger {
	if l := LoggerFromContext(ctx); l != noopLogger {
		return l
	}
	return a.logger
}

// RequestPasswordReset issues a reset token for a known email. Unknown
// addresses succeed silently. No mail is sent; the reset link is logged.
func (a *App) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := a.users.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		a.Logger(ctx).Debug("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	token, err := a.resets.Issue(ctx, user)
	if err != nil {
		return err
	}
	link := a.cfg.PublicURL + "/password/reset?" + url.Values{"token": {token}}.Encode()
	a.Logger(ctx).Info("password reset token issued",
		zap.String("user_id", user.ID),
		zap.String("reset_url", link),
	)
	return nil
}

func (a *App) ResetPassword(ctx context.Context, token, password string) error {
	return a.resets.ResetPassword(ctx, strings.TrimSpace(token), password)
}

// GetSessionFromContext returns the cookie session loaded by SessionMiddleware.
func (a *App) GetSessionFromContext(ctx context.Context) (*session.Session, bool) {
	return session.FromContext(ctx)
}

// GetClaimsFromContext returns the access token claims set by JWTMiddleware.
func (a *App) GetClaimsFromContext(ctx context.Context) (jwt.MapClaims, bool) {
	claims, ok := ctx.Value(userClaimsKey).(jwt.MapClaims)
	return claims, ok
}
