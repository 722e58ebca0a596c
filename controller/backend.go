package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hsowda/SillySopapillaAccess-2/embed"
)

// LoginResponse is the JSON body of POST /login.
type LoginResponse struct {
	Success     bool   `json:"success"`
	RedirectURL string `json:"redirect_url,omitempty"`
	Message     string `json:"message,omitempty"`
	// Token is a bearer access token for API clients; browsers ignore it.
	Token string `json:"token,omitempty"`
}

// Backend is the authentication service the controller calls.
type Backend interface {
	Login(ctx context.Context, creds Credentials) (*LoginResponse, error)
	Logout(ctx context.Context) error
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d (%s %s)", e.Code, e.Method, e.URL)
}

// HTTPBackend talks to the portal over HTTP, keeping the session cookie in a jar.
type HTTPBackend struct {
	baseURL    *url.URL
	client     *http.Client
	loginPath  string
	logoutPath string
}

// NewHTTPBackend builds a backend rooted at baseURL. A nil client gets a
// cookie jar and no timeout beyond the transport defaults.
func NewHTTPBackend(baseURL string, client *http.Client) (*HTTPBackend, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("controller: invalid backend url %q", baseURL)
	}
	if client == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		client = &http.Client{Jar: jar, Timeout: 30 * time.Second}
	}
	return &HTTPBackend{
		baseURL:    parsed,
		client:     client,
		loginPath:  "/login",
		logoutPath: "/logout",
	}, nil
}

func (b *HTTPBackend) endpoint(path string) string {
	return b.baseURL.ResolveReference(&url.URL{Path: path}).String()
}

func (b *HTTPBackend) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	form := url.Values{}
	form.Set("email", creds.Email)
	form.Set("password", creds.Password)
	form.Set("remember", strconv.FormatBool(creds.Remember))

	endpoint := b.endpoint(b.loginPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Method: http.MethodPost, URL: endpoint, Code: resp.StatusCode}
	}

	var out LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	return &out, nil
}

func (b *HTTPBackend) Logout(ctx context.Context) error {
	endpoint := b.endpoint(b.logoutPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: http.MethodGet, URL: endpoint, Code: resp.StatusCode}
	}
	return nil
}

type embedCheckResponse struct {
	URL        string `json:"url"`
	Embeddable bool   `json:"embeddable"`
	Reason     string `json:"reason"`
}

// TryEmbed asks the portal's embed-check endpoint whether target can be
// framed. It needs a logged-in session, so call it after Login.
func (b *HTTPBackend) TryEmbed(ctx context.Context, target string) (embed.Result, error) {
	endpoint := b.baseURL.ResolveReference(&url.URL{
		Path:     "/api/embed-check",
		RawQuery: url.Values{"url": {target}}.Encode(),
	}).String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return embed.Result{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return embed.Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return embed.Result{}, &StatusError{Method: http.MethodGet, URL: endpoint, Code: resp.StatusCode}
	}

	var out embedCheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return embed.Result{}, fmt.Errorf("decode embed check: %w", err)
	}
	res := embed.Result{URL: out.URL, Status: embed.Blocked, Reason: out.Reason}
	if out.Embeddable {
		res.Status = embed.Embedded
	}
	return res, nil
}
