package delivery

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/hsowda/SillySopapillaAccess-2/auth"
	"github.com/hsowda/SillySopapillaAccess-2/delivery/model"
)

const msgResetIssued = "If that account exists, a reset link has been issued."

type resetPageData struct {
	Token string
}

// forgotPasswordHandler always answers 202 so that the response does not
// reveal whether the email is registered.
func (h *HTTPEndpoint) forgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ResetResponse{Success: false, Message: "Invalid request body"})
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	if email == "" {
		writeJSON(w, http.StatusBadRequest, model.ResetResponse{Success: false, Message: "Email is required"})
		return
	}

	if err := h.app.RequestPasswordReset(r.Context(), email); err != nil {
		h.app.Logger(r.Context()).Error("password reset request failed", zap.Error(err))
	}
	writeJSON(w, http.StatusAccepted, model.ResetResponse{Success: true, Message: msgResetIssued})
}

func (h *HTTPEndpoint) resetPasswordPageHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	h.render(w, r, http.StatusOK, resetTemplate, resetPageData{Token: token})
}

func (h *HTTPEndpoint) resetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ResetResponse{Success: false, Message: "Invalid request body"})
		return
	}

	err := h.app.ResetPassword(r.Context(), r.PostForm.Get("token"), r.PostForm.Get("password"))
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		writeJSON(w, http.StatusBadRequest, model.ResetResponse{Success: false, Message: "Password is required"})
	case errors.Is(err, auth.ErrInvalidResetToken):
		writeJSON(w, http.StatusBadRequest, model.ResetResponse{Success: false, Message: "Invalid or expired reset token"})
	case err != nil:
		h.app.Logger(r.Context()).Error("password reset failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, model.ResetResponse{Success: false, Message: "An error occurred. Please try again."})
	default:
		h.app.Logger(r.Context()).Info("password reset completed")
		writeJSON(w, http.StatusOK, model.ResetResponse{Success: true, Message: "Password updated", RedirectURL: "/login?notice=reset"})
	}
}
