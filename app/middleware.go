package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hsowda/SillySopapillaAccess-2/session"
)

type contextKey string

// userClaimsKey is the key used to store the user claims in the request context.
const userClaimsKey contextKey = "user_claims"

// RequestLogger attaches a request-scoped zap logger and logs one line per request.
func (a *App) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := a.logger.With(
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(WithLogger(r.Context(), logger)))

		logger.Info("request completed",
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// SessionMiddleware loads the cookie session into the request context and
// writes it back before the response header goes out.
func (a *App) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := a.sessions.Load(r)
		if errors.Is(err, session.ErrExpired) {
			LoggerFromContext(r.Context()).Debug("session expired")
			sess = a.sessions.New()
			sess.Destroy()
		} else if err != nil {
			LoggerFromContext(r.Context()).Error("failed to load session", zap.Error(err))
			sess = a.sessions.New()
		} else if sess.Authenticated() {
			revoked, err := a.users.SessionRevoked(r.Context(), sess.ID())
			switch {
			case err != nil:
				LoggerFromContext(r.Context()).Error("failed to check session revocation", zap.Error(err))
				sess = a.sessions.New()
			case revoked:
				LoggerFromContext(r.Context()).Info("revoked session presented", zap.String("user_id", sess.UserID()))
				sess = a.sessions.New()
				sess.Destroy()
			}
		}

		sw := &sessionWriter{ResponseWriter: w}
		sw.save = func() {
			if err := a.sessions.Save(w, sess); err != nil {
				LoggerFromContext(r.Context()).Error("failed to save session", zap.Error(err))
			}
		}

		next.ServeHTTP(sw, r.WithContext(session.NewContext(r.Context(), sess)))
		sw.flushSession()
	})
}

// sessionWriter saves the session on the first header write so the cookie
// is part of the response.
type sessionWriter struct {
	http.ResponseWriter
	save  func()
	saved bool
}

func (w *sessionWriter) flushSession() {
	if w.saved {
		return
	}
	w.saved = true
	w.save()
}

func (w *sessionWriter) WriteHeader(code int) {
	w.flushSession()
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.flushSession()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// RequireLogin rejects anonymous sessions: pages redirect to /login, API
// routes get a 401 JSON body.
func (a *App) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session.FromContext(r.Context())
		if ok && sess.Authenticated() {
			next.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			writeJSONError(w, http.StatusUnauthorized, "Login required")
			return
		}
		http.Redirect(w, r, "/login", http.StatusFound)
	})
}

// JWTMiddleware validates a bearer access token and stores its claims.
func (a *App) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSONError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			writeJSONError(w, http.StatusUnauthorized, "Bearer token required")
			return
		}

		claims, err := a.signer.Verify(r.Context(), tokenString)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		if sid, _ := claims["sid"].(string); sid != "" {
			revoked, err := a.users.SessionRevoked(r.Context(), sid)
			if err != nil {
				LoggerFromContext(r.Context()).Error("failed to check session revocation", zap.Error(err))
				writeJSONError(w, http.StatusServiceUnavailable, "Session check unavailable")
				return
			}
			if revoked {
				writeJSONError(w, http.StatusUnauthorized, "Session has ended")
				return
			}
		}

		ctx := context.WithValue(r.Context(), userClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeJSONError is a helper to standardize JSON error responses.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
