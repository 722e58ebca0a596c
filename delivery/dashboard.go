package delivery

import (
	"net/http"
	"time"
)

// dashboardPageData holds the data that will be passed to the dashboard template.
type dashboardPageData struct {
	Email       string
	ExpiresAt   string
	RedirectURL string
}

func (h *HTTPEndpoint) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := h.app.GetSessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	data := dashboardPageData{
		Email:       session.Email(),
		ExpiresAt:   session.ExpiresAt().Format(time.RFC1123),
		RedirectURL: h.app.RedirectURL(),
	}
	h.render(w, r, http.StatusOK, dashboardTemplate, data)
}
