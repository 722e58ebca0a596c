package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loginFlow() map[string]any {
	return map[string]any{
		"id":          "flow-1",
		"type":        "api",
		"expires_at":  "2030-01-01T00:00:00Z",
		"issued_at":   "2025-01-01T00:00:00Z",
		"request_url": "http://kratos/self-service/login/api",
		"state":       "choose_method",
		"ui": map[string]any{
			"action": "http://kratos/self-service/login?flow=flow-1",
			"method": "POST",
			"nodes":  []any{},
		},
	}
}

// fakeKratos serves the native login flow. A non-zero failStatus makes the
// flow submission fail with that status and a generic error body.
func fakeKratos(t *testing.T, password string, failStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/self-service/login/api", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(loginFlow())
	})
	mux.HandleFunc("/self-service/login", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "flow-1", r.URL.Query().Get("flow"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		if failStatus != 0 {
			w.WriteHeader(failStatus)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": failStatus, "message": "upstream failure"}})
			return
		}
		if body["password"] != password {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(loginFlow())
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"session": map[string]any{
				"id": "sess-1",
				"identity": map[string]any{
					"id":         "identity-1",
					"schema_id":  "default",
					"schema_url": "http://kratos/schemas/default",
					"traits":     map[string]any{"email": "kratos@example.com"},
				},
			},
			"session_token": "st-1",
		})
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestKratosAuthenticate(t *testing.T) {
	ts := fakeKratos(t, "s3cret", 0)
	k := NewKratos(ts.URL, nil)
	ctx := context.Background()

	id, err := k.Authenticate(ctx, "kratos@example.com", "s3cret")
	require.NoError(t, err)
	require.Equal(t, "identity-1", id.UserID)
	require.Equal(t, "kratos@example.com", id.Email)

	_, err = k.Authenticate(ctx, "kratos@example.com", "nope")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = k.Authenticate(ctx, "", "s3cret")
	require.ErrorIs(t, err, ErrMissingCredentials)
}

func TestKratosAuthenticate_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := NewKratos(url, nil).Authenticate(context.Background(), "a@example.com", "pw")
	require.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestKratosAuthenticate_ProviderErrors(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusServiceUnavailable, http.StatusGone} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			ts := fakeKratos(t, "s3cret", status)
			_, err := NewKratos(ts.URL, nil).Authenticate(context.Background(), "kratos@example.com", "s3cret")
			require.ErrorIs(t, err, ErrProviderUnavailable)
			require.NotErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestKratosAuthenticate_BadRequestWithoutFlow(t *testing.T) {
	ts := fakeKratos(t, "s3cret", http.StatusBadRequest)
	_, err := NewKratos(ts.URL, nil).Authenticate(context.Background(), "kratos@example.com", "s3cret")
	require.ErrorIs(t, err, ErrProviderUnavailable)
}
