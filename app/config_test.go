package app

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mapLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("", mapLookup(nil))
	require.NoError(t, err)

	require.Equal(t, "local", cfg.Env)
	require.Equal(t, ":8000", cfg.HTTPAddr)
	require.Equal(t, defaultRedirectURL, cfg.RedirectURL)
	require.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, 10*time.Minute, cfg.ResetTokenTTL)
	require.Equal(t, 12*time.Hour, cfg.Session.Lifetime)
	require.Equal(t, 30*24*time.Hour, cfg.Session.RememberFor)
	require.True(t, cfg.GeneratedSecret())
	require.Len(t, cfg.SecretKey, 64)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: production
http_addr: ":9000"
public_url: https://portal.example.com/
secret_key: file-secret-0123456789
session:
  lifetime: 1h
  cookie_secure: true
`), 0o600))

	cfg, err := loadConfig(path, mapLookup(map[string]string{
		"HTTP_ADDR":        ":9100",
		"RESET_TOKEN_TTL":  "5m",
		"DATABASE_URL":     "redis://localhost:6379/0",
		"SESSION_LIFETIME": "",
	}))
	require.NoError(t, err)

	require.Equal(t, "production", cfg.Env)
	require.Equal(t, ":9100", cfg.HTTPAddr, "env overrides file")
	require.Equal(t, "https://portal.example.com", cfg.PublicURL)
	require.Equal(t, "file-secret-0123456789", cfg.SecretKey)
	require.False(t, cfg.GeneratedSecret())
	require.Equal(t, time.Hour, cfg.Session.Lifetime, "blank env keeps file value")
	require.True(t, cfg.Session.CookieSecure)
	require.Equal(t, 5*time.Minute, cfg.ResetTokenTTL)
	require.Equal(t, "redis://localhost:6379/0", cfg.DatabaseURL)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := loadConfig("", mapLookup(map[string]string{"ACCESS_TOKEN_TTL": "soon"}))
	require.ErrorContains(t, err, "ACCESS_TOKEN_TTL")

	_, err = loadConfig("", mapLookup(map[string]string{"SESSION_COOKIE_SECURE": "maybe"}))
	require.ErrorContains(t, err, "SESSION_COOKIE_SECURE")

	_, err = loadConfig("", mapLookup(map[string]string{
		"REDIRECT_URL":      "not a url",
		"KRATOS_PUBLIC_URL": "ftp://kratos",
		"SECRET_KEY":        "short",
	}))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.ElementsMatch(t, []string{"redirect_url", "kratos_url", "secret_key"}, verr.Fields())

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), mapLookup(nil))
	require.ErrorContains(t, err, "read config")
}

func TestDeriveKey(t *testing.T) {
	cfg := Config{SecretKey: "0123456789abcdef0123456789abcdef"}

	a := cfg.deriveKey("session-hash", 64)
	b := cfg.deriveKey("session-hash", 64)
	c := cfg.deriveKey("reset", 64)

	require.Len(t, a, 64)
	require.Equal(t, a, b)
	require.False(t, bytes.Equal(a, c))
}
