package api

import (
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/marwick/shoebox/internal/store"
)

// FileHandler serves raw capture bytes (PNGs, markdown) straight from the
// store, for clients that want the file instead of the JSON representation.
type FileHandler struct {
	store *store.Store
}

// NewFileHandler creates a handler backed by the capture store.
func NewFileHandler(st *store.Store) *FileHandler {
	return &FileHandler{store: st}
}

// ServeFile handles GET /api/files/*.
func (h *FileHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	rel, err := url.PathUnescape(raw)
	if err != nil {
		rel = raw
	}
	if rel == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}

	abs, err := h.store.Abs(rel)
	if err != nil {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	info, statErr := os.Stat(abs)
	if statErr != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}
