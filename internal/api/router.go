package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/perthro/internal/investigation"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *investigation.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Case operations.
	r.Get("/indicators", h.ListIndicators)
	r.Post("/search", h.Search)
	r.Get("/artifacts", h.ListArtifacts)

	// Classifier.
	r.Post("/classify", h.Classify)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
