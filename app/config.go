package app

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = ":8000"
	defaultPublicURL       = "http://127.0.0.1:8000"
	defaultRedirectURL     = "https://silly-sopapillas-b41c68.netlify.app"
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultResetTokenTTL   = 10 * time.Minute
	defaultSessionLifetime = 12 * time.Hour
	defaultRememberFor     = 30 * 24 * time.Hour
	defaultIdleTimeout     = 2 * time.Hour
)

// Config is the runtime configuration. Values come from an optional YAML file
// and are overridden by environment variables.
type Config struct {
	Env       string `yaml:"env"`
	LogLevel  string `yaml:"log_level"`
	HTTPAddr  string `yaml:"http_addr"`
	PublicURL string `yaml:"public_url"`

	// DatabaseURL selects the user store: postgres://, redis://, memory:// or empty.
	DatabaseURL string `yaml:"database_url"`
	// SecretKey seeds the session and reset-token keys.
	SecretKey string `yaml:"secret_key"`
	// RedirectURL is the external site a logged-in user is sent to.
	RedirectURL string `yaml:"redirect_url"`
	// KratosURL switches authentication to an Ory Kratos public API.
	KratosURL string `yaml:"kratos_url"`
	// JWKSFile holds private signing keys; a key is generated when empty.
	JWKSFile string `yaml:"jwks_file"`

	AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
	ResetTokenTTL  time.Duration `yaml:"reset_token_ttl"`
	Session        SessionConfig `yaml:"session"`

	// generatedSecret records that SecretKey was randomised at startup.
	generatedSecret bool
}

// SessionConfig controls the login cookie.
type SessionConfig struct {
	Lifetime     time.Duration `yaml:"lifetime"`
	RememberFor  time.Duration `yaml:"remember_for"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	CookieSecure bool          `yaml:"cookie_secure"`
}

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the invalid field list.
func (e *ValidationError) Fields() []string {
	return append([]string(nil), e.fields...)
}

// LoadConfig reads path (if non-empty), applies environment overrides,
// fills defaults, and validates.
func LoadConfig(path string) (Config, error) {
	return loadConfig(path, os.LookupEnv)
}

func loadConfig(path string, lookup func(string) (string, bool)) (Config, error) {
	var cfg Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	var errs []error
	setString := func(dst *string, key string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	setDuration := func(dst *time.Duration, key string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	setBool := func(dst *bool, key string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	setString(&cfg.Env, "APP_ENV")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.HTTPAddr, "HTTP_ADDR")
	setString(&cfg.PublicURL, "PUBLIC_URL")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.SecretKey, "SECRET_KEY")
	setString(&cfg.RedirectURL, "REDIRECT_URL")
	setString(&cfg.KratosURL, "KRATOS_PUBLIC_URL")
	setString(&cfg.JWKSFile, "JWKS_FILE")
	setDuration(&cfg.AccessTokenTTL, "ACCESS_TOKEN_TTL")
	setDuration(&cfg.ResetTokenTTL, "RESET_TOKEN_TTL")
	setDuration(&cfg.Session.Lifetime, "SESSION_LIFETIME")
	setDuration(&cfg.Session.RememberFor, "SESSION_REMEMBER_FOR")
	setDuration(&cfg.Session.IdleTimeout, "SESSION_IDLE_TIMEOUT")
	setBool(&cfg.Session.CookieSecure, "SESSION_COOKIE_SECURE")
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "local"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = defaultHTTPAddr
	}
	if c.PublicURL == "" {
		c.PublicURL = defaultPublicURL
	}
	c.PublicURL = strings.TrimRight(c.PublicURL, "/")
	if c.RedirectURL == "" {
		c.RedirectURL = defaultRedirectURL
	}
	if c.AccessTokenTTL <= 0 {
		c.AccessTokenTTL = defaultAccessTokenTTL
	}
	if c.ResetTokenTTL <= 0 {
		c.ResetTokenTTL = defaultResetTokenTTL
	}
	if c.Session.Lifetime <= 0 {
		c.Session.Lifetime = defaultSessionLifetime
	}
	if c.Session.RememberFor <= 0 {
		c.Session.RememberFor = defaultRememberFor
	}
	if c.Session.IdleTimeout <= 0 {
		c.Session.IdleTimeout = defaultIdleTimeout
	}
	if c.SecretKey == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			panic(fmt.Errorf("generate secret key: %w", err))
		}
		c.SecretKey = fmt.Sprintf("%x", buf)
		c.generatedSecret = true
	}
}

func (c *Config) validate() error {
	var invalid []string
	if !isAbsoluteHTTPURL(c.PublicURL) {
		invalid = append(invalid, "public_url")
	}
	if !isAbsoluteHTTPURL(c.RedirectURL) {
		invalid = append(invalid, "redirect_url")
	}
	if c.KratosURL != "" && !isAbsoluteHTTPURL(c.KratosURL) {
		invalid = append(invalid, "kratos_url")
	}
	if len(c.SecretKey) < 16 {
		invalid = append(invalid, "secret_key")
	}
	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

// GeneratedSecret reports whether the secret key was randomised, which means
// sessions and reset tokens do not survive a restart.
func (c Config) GeneratedSecret() bool { return c.generatedSecret }

// IsLocal reports whether the app runs in the local environment.
func (c Config) IsLocal() bool { return c.Env == "local" }

// deriveKey expands the secret into a purpose-bound key.
func (c Config) deriveKey(purpose string, size int) []byte {
	r := hkdf.New(sha256.New, []byte(c.SecretKey), nil, []byte("sillysopapilla/"+purpose))
	key := make([]byte, size)
	if _, err := io.ReadFull(r, key); err != nil {
		panic(fmt.Errorf("derive %s key: %w", purpose, err))
	}
	return key
}

func isAbsoluteHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
