package delivery

import (
	"net/http"

	"go.uber.org/zap"
)

// logoutHandler clears the cookie session and returns to the login page.
func (h *HTTPEndpoint) logoutHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.app.GetSessionFromContext(r.Context())
	if ok {
		logger := h.app.Logger(r.Context())
		if err := h.app.RevokeSession(r.Context(), sess); err != nil {
			logger.Error("failed to revoke session", zap.String("user_id", sess.UserID()), zap.Error(err))
		}
		logger.Info("user logged out", zap.String("user_id", sess.UserID()))
		sess.Destroy()
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}
