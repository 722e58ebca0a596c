package delivery

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// HTTPEndpoint holds a reference to the core application.
type HTTPEndpoint struct {
	app AppDependencies
}

type errorPageData struct {
	Error struct {
		ID     string
		Reason string
	}
}

func (h *HTTPEndpoint) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errorHandler renders the error page with an optional reason.
func (h *HTTPEndpoint) errorHandler(w http.ResponseWriter, r *http.Request) {
	data := errorPageData{}
	data.Error.ID = r.URL.Query().Get("id")
	data.Error.Reason = r.URL.Query().Get("reason")
	if data.Error.Reason == "" {
		data.Error.Reason = "An unexpected error occurred."
	}
	h.renderError(w, r, http.StatusInternalServerError, data)
}

func (h *HTTPEndpoint) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	data := errorPageData{}
	data.Error.ID = middleware.GetReqID(r.Context())
	data.Error.Reason = "Page not found."
	h.renderError(w, r, http.StatusNotFound, data)
}

func (h *HTTPEndpoint) renderError(w http.ResponseWriter, r *http.Request, status int, data errorPageData) {
	h.render(w, r, status, errorTemplate, data)
}

// render executes a page template into a buffer so a failure can still
// produce a clean 500.
func (h *HTTPEndpoint) render(w http.ResponseWriter, r *http.Request, status int, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.app.Logger(r.Context()).Error("failed to execute template", zap.String("template", tmpl.Name()), zap.Error(err))
		http.Error(w, "Failed to render the page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError is a helper to standardize JSON error responses.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
