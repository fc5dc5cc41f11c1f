package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, ah *AssetHandler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Posts CRUD.
	r.Get("/posts", h.ListPosts)
	r.Post("/posts", h.GeneratePost)
	r.Get("/posts/*", h.GetPost)
	r.Put("/posts/*", h.UpdatePost)
	r.Delete("/posts/*", h.DeletePost)

	// Search.
	r.Get("/search", h.Search)

	// Authors.
	r.Get("/authors", h.Authors)

	// Keyword suggestions.
	r.Post("/keywords", h.Keywords)

	// External editor.
	r.Post("/editor/open", h.EditorOpen)

	// Asset upload (auth-protected).
	r.Post("/assets", ah.Upload)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
