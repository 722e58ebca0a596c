package delivery

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/hsowda/SillySopapillaAccess-2/auth"
	"github.com/hsowda/SillySopapillaAccess-2/delivery/model"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgMissingFields      = "Email and password are required"
	msgLoginUnavailable   = "Login is temporarily unavailable. Please try again."
	webmailURL            = "https://gmail.com"
)

// A struct to hold data for the login template.
type loginPageData struct {
	Email       string
	Message     string
	Level       string
	RedirectURL string
	WebmailURL  string
}

// loginHandler renders the login page. Users who are already logged in are
// sent straight to the external site.
func (h *HTTPEndpoint) loginHandler(w http.ResponseWriter, r *http.Request) {
	if sess, ok := h.app.GetSessionFromContext(r.Context()); ok && sess.Authenticated() {
		http.Redirect(w, r, h.app.RedirectURL(), http.StatusFound)
		return
	}

	data := loginPageData{
		Email:       r.URL.Query().Get("email"),
		RedirectURL: h.app.RedirectURL(),
		WebmailURL:  webmailURL,
	}
	switch r.URL.Query().Get("notice") {
	case "reset":
		data.Message, data.Level = "Your password has been updated. Please log in.", "success"
	case "expired":
		data.Message, data.Level = "Your session has expired. Please log in again.", "danger"
	}
	h.render(w, r, http.StatusOK, loginTemplate, data)
}

// loginSubmitHandler validates the credentials and answers with the JSON
// login contract. Bad credentials are a 200 with success=false.
func (h *HTTPEndpoint) loginSubmitHandler(w http.ResponseWriter, r *http.Request) {
	logger := h.app.Logger(r.Context())

	sess, ok := h.app.GetSessionFromContext(r.Context())
	if !ok {
		logger.Error("session not found in context")
		writeJSON(w, http.StatusInternalServerError, model.LoginResponse{Success: false, Message: msgLoginUnavailable})
		return
	}

	req, err := decodeLoginRequest(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, model.LoginResponse{Success: false, Message: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, model.LoginResponse{Success: false, Message: msgMissingFields})
		return
	}

	identity, err := h.app.Authenticate(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrMissingCredentials):
		writeJSON(w, http.StatusOK, model.LoginResponse{Success: false, Message: msgInvalidCredentials})
		return
	case err != nil:
		logger.Error("login failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, model.LoginResponse{Success: false, Message: msgLoginUnavailable})
		return
	}

	sess.Login(identity.UserID, identity.Email, req.Remember, h.app.Now())

	token, err := h.app.IssueAccessToken(identity, sess.ID())
	if err != nil {
		logger.Error("failed to issue access token", zap.Error(err))
	}

	logger.Info("user logged in",
		zap.String("user_id", identity.UserID),
		zap.Bool("remember", req.Remember),
	)
	writeJSON(w, http.StatusOK, model.LoginResponse{
		Success:     true,
		RedirectURL: h.app.RedirectURL(),
		Token:       token,
	})
}

// decodeLoginRequest accepts a form post or a JSON body.
func decodeLoginRequest(w http.ResponseWriter, r *http.Request) (model.LoginRequest, error) {
	var req model.LoginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	}

	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.Email = r.PostForm.Get("email")
	req.Password = r.PostForm.Get("password")
	req.Remember = parseCheckbox(r.PostForm.Get("remember"))
	return req, nil
}

func parseCheckbox(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "on", "true", "yes":
		return true
	}
	return false
}
