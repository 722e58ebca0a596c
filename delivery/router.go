package delivery

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the HTTP surface onto the application dependencies.
func NewRouter(deps AppDependencies) http.Handler {
	r := chi.NewRouter()

	h := &HTTPEndpoint{
		app: deps,
	}

	// --- Global Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(deps.RequestLogger)
	r.Use(middleware.Recoverer)

	// --- Public Routes ---
	r.Get("/healthz", h.healthHandler)
	r.Get("/.well-known/jwks.json", h.jwksHandler)
	r.Get("/error", h.errorHandler)

	// --- Cookie session routes ---
	r.Group(func(r chi.Router) {
		r.Use(deps.SessionMiddleware)

		r.Get("/", h.loginHandler)
		r.Get("/login", h.loginHandler)
		r.Post("/login", h.loginSubmitHandler)
		r.Post("/password/forgot", h.forgotPasswordHandler)
		r.Get("/password/reset", h.resetPasswordPageHandler)
		r.Post("/password/reset", h.resetPasswordHandler)

		r.Group(func(r chi.Router) {
			r.Use(deps.RequireLogin)
			r.Get("/logout", h.logoutHandler)
			r.Get("/dashboard", h.dashboardHandler)
			r.Get("/api/embed-check", h.embedCheckHandler)
		})
	})

	// --- Bearer token routes ---
	r.Group(func(r chi.Router) {
		r.Use(deps.JWTMiddleware)
		r.Get("/api/me", h.meHandler)
	})

	r.NotFound(h.notFoundHandler)

	return r
}
