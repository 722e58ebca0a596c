package delivery

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hsowda/SillySopapillaAccess-2/delivery/model"
	"github.com/hsowda/SillySopapillaAccess-2/embed"
)

// jwksHandler serves the public signing keys.
func (h *HTTPEndpoint) jwksHandler(w http.ResponseWriter, r *http.Request) {
	body, err := h.app.JWKS()
	if err != nil {
		h.app.Logger(r.Context()).Error("failed to encode JWKS", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "failed to encode key set")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(body)
}

// embedCheckHandler reports whether a URL can be shown in a frame on this site.
func (h *HTTPEndpoint) embedCheckHandler(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeJSONError(w, http.StatusBadRequest, "url is required")
		return
	}

	res, err := h.app.EmbedChecker().TryEmbed(r.Context(), target)
	if errors.Is(err, embed.ErrInvalidURL) {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.app.Logger(r.Context()).Error("embed check failed", zap.String("url", target), zap.Error(err))
		writeJSONError(w, http.StatusBadGateway, "embed check failed")
		return
	}

	writeJSON(w, http.StatusOK, model.EmbedCheckResponse{
		URL:        res.URL,
		Status:     res.Status.String(),
		Embeddable: res.Embeddable(),
		Reason:     res.Reason,
	})
}

// meHandler echoes the identity carried by a bearer access token.
func (h *HTTPEndpoint) meHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.app.GetClaimsFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "claims not found in context")
		return
	}

	resp := model.MeResponse{}
	resp.UserID, _ = claims["sub"].(string)
	resp.Email, _ = claims["email"].(string)
	resp.SessionID, _ = claims["sid"].(string)
	if exp, ok := claims["exp"].(float64); ok {
		resp.ExpiresAt = int64(exp)
	}
	writeJSON(w, http.StatusOK, resp)
}
