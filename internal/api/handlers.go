package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/marwick/shoebox/internal/apperr"
	"github.com/marwick/shoebox/internal/itemservice"
	"github.com/marwick/shoebox/internal/models"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *itemservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *itemservice.Service) *Handler {
	return &Handler{svc: svc}
}

// itemPath extracts the item path from the URL (everything after /api/items/).
// Supports encoded slashes from API clients (e.g. 2025-01-02%2F03-04-05-678.md).
func itemPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListPartitions handles GET /api/partitions.
func (h *Handler) ListPartitions(w http.ResponseWriter, r *http.Request) {
	folders, err := h.svc.Partitions(r.Context())
	if err != nil {
		slog.Error("list partitions failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	out := make([]PartitionInfo, 0, len(folders))
	for _, f := range folders {
		out = append(out, PartitionInfo{Date: f.PartitionName(), ItemCount: f.ItemCount})
	}
	writeJSON(w, http.StatusOK, PartitionListResponse{Partitions: out})
}

// ListItems handles GET /api/partitions/{date}/items.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	items, err := h.svc.Items(r.Context(), date)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("partition not found"))
		} else {
			slog.Error("list items failed", slog.String("partition", date), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, ItemListResponse{Items: items, Total: len(items)})
}

// ListItemsByTag handles GET /api/tags/{tag}/items.
func (h *Handler) ListItemsByTag(w http.ResponseWriter, r *http.Request) {
	tag, err := url.PathUnescape(chi.URLParam(r, "tag"))
	if err != nil || tag == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("tag is required"))
		return
	}
	items, svcErr := h.svc.ItemsByTag(r.Context(), tag)
	if svcErr != nil {
		slog.Error("list items by tag failed", slog.String("tag", tag), slog.String("error", svcErr.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, ItemListResponse{Items: items, Total: len(items)})
}

// GetItem handles GET /api/items/*.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	path := itemPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	item, err := h.svc.GetItem(r.Context(), path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get item failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// EditItem handles PUT /api/items/*.
func (h *Handler) EditItem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	path := itemPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	var req EditItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	ifMatch := r.Header.Get("If-Match")
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch = strings.Trim(ifMatch, `"`)

	item, err := h.svc.EditItem(r.Context(), path, req.Content, ifMatch)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
		default:
			slog.Error("edit item failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// DeleteItem handles DELETE /api/items/*.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	path := itemPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteItem(r.Context(), path); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		slog.Error("delete item failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CaptureText handles POST /api/captures/text.
func (h *Handler) CaptureText(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CaptureTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	method := models.MethodQuickNote
	if req.Method != "" {
		method = models.ParseCaptureMethod(req.Method)
	}
	source := sourceApp(req.SourceApp, req.BundleID, req.WindowTitle)
	tab := models.TabInfo{URL: req.TabURL}
	tabOK := req.TabURL != ""

	item, err := h.svc.CaptureText(r.Context(), req.Content, method, source, tab, tabOK)
	if err != nil {
		slog.Error("capture text failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// CaptureClipboard handles POST /api/captures/clipboard. An empty body is
// accepted; the method defaults to hotkey.
func (h *Handler) CaptureClipboard(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CaptureClipboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	method := models.MethodHotkey
	if req.Method != "" {
		method = models.ParseCaptureMethod(req.Method)
	}
	source := sourceApp(req.SourceApp, req.BundleID, req.WindowTitle)
	tab := models.TabInfo{URL: req.TabURL}
	tabOK := req.TabURL != ""

	item, err := h.svc.CaptureClipboard(r.Context(), method, source, tab, tabOK)
	if err != nil {
		if errors.Is(err, apperr.ErrEmptyClipboard) {
			writeJSON(w, http.StatusUnprocessableEntity, errorBody("clipboard is empty"))
			return
		}
		slog.Error("capture clipboard failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// CaptureFile handles POST /api/captures/file (multipart/form-data, field
// "file"). The upload is staged to a temp file and ingested through the same
// path as a dropped file.
func (h *Handler) CaptureFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	// Stage the upload with the original extension so type detection works.
	tmp, err := os.CreateTemp("", "shoebox-upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if err := tmp.Close(); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	item, err := h.svc.CaptureFile(r.Context(), tmpPath)
	if err != nil {
		slog.Error("capture file failed", slog.String("filename", header.Filename), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorBody("unsupported file content"))
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}
