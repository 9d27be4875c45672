package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marwick/shoebox/internal/itemservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *itemservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	fh := NewFileHandler(svc.Store())

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Browsing.
	r.Get("/partitions", h.ListPartitions)
	r.Get("/partitions/{date}/items", h.ListItems)
	r.Get("/tags/{tag}/items", h.ListItemsByTag)

	// Items.
	r.Get("/items/*", h.GetItem)
	r.Put("/items/*", h.EditItem)
	r.Delete("/items/*", h.DeleteItem)

	// Capture endpoints (hotkey and quick-note stand-ins).
	r.Post("/captures/text", h.CaptureText)
	r.Post("/captures/file", h.CaptureFile)
	r.Post("/captures/clipboard", h.CaptureClipboard)

	// Search.
	r.Get("/search", h.Search)

	// Raw file access.
	r.Get("/files/*", fh.ServeFile)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
