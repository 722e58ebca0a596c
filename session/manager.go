package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	defaultCookieName       = "sopapilla_session"
	defaultLifetime         = 12 * time.Hour
	defaultRememberLifetime = 30 * 24 * time.Hour
	defaultIdleTimeout      = 2 * time.Hour
)

var (
	// ErrExpired indicates an idle or absolute timeout.
	ErrExpired = errors.New("session expired")
	// ErrInvalidConfig is returned by NewManager when required keys are missing.
	ErrInvalidConfig = errors.New("session: invalid config")
)

// Data is the payload encoded into the cookie.
type Data struct {
	ID         string    `json:"id"`
	UserID     string    `json:"uid,omitempty"`
	Email      string    `json:"email,omitempty"`
	Remember   bool      `json:"remember"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Config controls cookie encoding and lifetimes.
type Config struct {
	CookieName   string
	HashKey      []byte
	BlockKey     []byte
	CookieSecure bool

	// Lifetime bounds sessions without remember-me; such cookies are also
	// browser-session cookies.
	Lifetime         time.Duration
	RememberLifetime time.Duration
	IdleTimeout      time.Duration
	Now              func() time.Time
}

// Manager reads and writes signed, encrypted session cookies.
type Manager struct {
	cfg   Config
	codec *securecookie.SecureCookie
	now   func() time.Time
}

// NewManager validates cfg and fills defaults.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.HashKey) == 0 {
		return nil, fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	}
	switch len(cfg.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = defaultLifetime
	}
	if cfg.RememberLifetime <= 0 {
		cfg.RememberLifetime = defaultRememberLifetime
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(cfg.RememberLifetime.Seconds()))

	return &Manager{cfg: cfg, codec: codec, now: now}, nil
}

// Load decodes the request cookie. A missing or undecodable cookie yields a
// fresh anonymous session; an expired one yields ErrExpired.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return m.New(), nil
	}

	var data Data
	if err := m.codec.Decode(m.cfg.CookieName, cookie.Value, &data); err != nil || data.ID == "" {
		return m.New(), nil
	}

	now := m.now().UTC()
	if now.After(data.ExpiresAt) {
		return nil, ErrExpired
	}
	if !data.Remember && now.Sub(data.LastActive) > m.cfg.IdleTimeout {
		return nil, ErrExpired
	}
	return &Session{data: data, cfg: &m.cfg}, nil
}

// New returns an anonymous session.
func (m *Manager) New() *Session {
	now := m.now().UTC()
	return &Session{
		data: Data{
			ID:         generateID(),
			CreatedAt:  now,
			LastActive: now,
			ExpiresAt:  now.Add(m.cfg.Lifetime),
		},
		cfg: &m.cfg,
	}
}

// Save writes authenticated sessions back as a cookie and clears destroyed
// ones. Anonymous sessions are not persisted.
func (m *Manager) Save(w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return errors.New("session: nil session")
	}
	if sess.destroyed {
		m.Destroy(w)
		return nil
	}
	if !sess.Authenticated() {
		return nil
	}

	sess.data.LastActive = m.now().UTC()
	encoded, err := m.codec.Encode(m.cfg.CookieName, sess.data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	cookie := &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    encoded,
		Path:     "/",
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if sess.data.Remember {
		cookie.Expires = sess.data.ExpiresAt
		cookie.MaxAge = int(sess.data.ExpiresAt.Sub(m.now()).Round(time.Second).Seconds())
	}
	http.SetCookie(w, cookie)
	return nil
}

// Destroy clears the session cookie.
func (m *Manager) Destroy(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func generateID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Errorf("generate session id: %w", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
