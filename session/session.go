package session

import (
	"context"
	"time"
)

// Session is the per-request view of the cookie payload.
type Session struct {
	data      Data
	destroyed bool
	cfg       *Config
}

func (s *Session) ID() string           { return s.data.ID }
func (s *Session) UserID() string       { return s.data.UserID }
func (s *Session) Email() string        { return s.data.Email }
func (s *Session) Remember() bool       { return s.data.Remember }
func (s *Session) ExpiresAt() time.Time { return s.data.ExpiresAt }
func (s *Session) Destroyed() bool      { return s.destroyed }

// Authenticated reports whether a user is logged in on this session.
func (s *Session) Authenticated() bool {
	return s != nil && !s.destroyed && s.data.UserID != ""
}

// Login binds the user to the session. The session id is rotated and the
// expiry recomputed from the remember flag.
func (s *Session) Login(userID, email string, remember bool, now time.Time) {
	now = now.UTC()
	s.data = Data{
		ID:         generateID(),
		UserID:     userID,
		Email:      email,
		Remember:   remember,
		CreatedAt:  now,
		LastActive: now,
	}
	lifetime := s.cfg.Lifetime
	if remember {
		lifetime = s.cfg.RememberLifetime
	}
	s.data.ExpiresAt = now.Add(lifetime)
	s.destroyed = false
}

// Destroy marks the session to be cleared when saved.
func (s *Session) Destroy() {
	s.destroyed = true
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying sess.
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the session stored by NewContext.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(contextKey{}).(*Session)
	return sess, ok && sess != nil
}
