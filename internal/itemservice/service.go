// Package itemservice coordinates the capture pipeline: analysis and
// persistence through the store, the derived search index, and item-event
// notification. Dependencies are passed in explicitly; mutations return
// the resulting item directly and additionally invoke the event callback.
package itemservice

import (
	"context"
	"errors"
	"image"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/marwick/shoebox/internal/apperr"
	"github.com/marwick/shoebox/internal/checksum"
	"github.com/marwick/shoebox/internal/index"
	"github.com/marwick/shoebox/internal/models"
	"github.com/marwick/shoebox/internal/store"
)

// Clipboard is the read side of the system clipboard. Implementations
// report ok=false when the clipboard holds nothing of that kind.
type Clipboard interface {
	ReadText() (string, bool)
	ReadImage() (image.Image, bool)
}

// EventCallback is invoked after every successful mutation.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind, path string)

// ItemDetail is the full representation of a captured item.
type ItemDetail struct {
	ID          string                   `json:"id"`
	Type        models.ItemType          `json:"type"`
	Path        string                   `json:"path"`
	Timestamp   time.Time                `json:"timestamp"`
	Body        string                   `json:"body,omitempty"`
	Checksum    string                   `json:"checksum"`
	Metadata    *models.CaptureMetadata  `json:"metadata,omitempty"`
	DisplayTags []models.DisplayTag      `json:"display_tags"`
}

// ItemSummary is a lightweight item in a list response.
type ItemSummary struct {
	ID          string              `json:"id"`
	Type        models.ItemType     `json:"type"`
	Path        string              `json:"path"`
	Timestamp   time.Time           `json:"timestamp"`
	Preview     string              `json:"preview,omitempty"`
	DisplayTags []models.DisplayTag `json:"display_tags"`
}

const previewRunes = 120

// Service coordinates store, index, and event notification.
type Service struct {
	store   *store.Store
	db      *index.DB
	clip    Clipboard
	onEvent EventCallback
}

// New creates an item service. clip may be nil when no system clipboard is
// available; onEvent may be nil.
func New(st *store.Store, db *index.DB, clip Clipboard, onEvent EventCallback) *Service {
	return &Service{store: st, db: db, clip: clip, onEvent: onEvent}
}

// Store exposes the underlying store for collaborators that need raw file
// access (file serving, watchers).
func (s *Service) Store() *store.Store { return s.store }

// CaptureText saves a text capture and indexes it.
func (s *Service) CaptureText(_ context.Context, text string, method models.CaptureMethod, source *models.SourceApp, tab models.TabInfo, tabOK bool) (*ItemDetail, error) {
	item, err := s.store.SaveText(text, method, source, tab, tabOK)
	if err != nil {
		return nil, err
	}
	return s.finishCapture(item)
}

// CaptureImage saves an image capture (PNG + sidecar) and indexes it.
func (s *Service) CaptureImage(_ context.Context, img image.Image, method models.CaptureMethod, source *models.SourceApp) (*ItemDetail, error) {
	item, err := s.store.SaveImage(img, method, source)
	if err != nil {
		return nil, err
	}
	return s.finishCapture(item)
}

// CaptureFile ingests an external file through the drop path.
func (s *Service) CaptureFile(_ context.Context, srcPath string) (*ItemDetail, error) {
	item, err := s.store.SaveFromFile(srcPath)
	if err != nil {
		return nil, err
	}
	return s.finishCapture(item)
}

// CaptureClipboard reads the system clipboard, text first, else image.
// Returns apperr.ErrEmptyClipboard when the clipboard holds neither.
func (s *Service) CaptureClipboard(ctx context.Context, method models.CaptureMethod, source *models.SourceApp, tab models.TabInfo, tabOK bool) (*ItemDetail, error) {
	if s.clip == nil {
		return nil, apperr.ErrEmptyClipboard
	}
	if text, ok := s.clip.ReadText(); ok && strings.TrimSpace(text) != "" {
		return s.CaptureText(ctx, text, method, source, tab, tabOK)
	}
	if img, ok := s.clip.ReadImage(); ok {
		return s.CaptureImage(ctx, img, method, source)
	}
	return nil, apperr.ErrEmptyClipboard
}

// Partitions lists date folders, newest first.
func (s *Service) Partitions(_ context.Context) ([]models.DateFolder, error) {
	return s.store.LoadDateFolders()
}

// Items lists the items of one partition, newest first.
func (s *Service) Items(_ context.Context, partition string) ([]ItemSummary, error) {
	folder, err := s.store.Folder(partition)
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	items, err := s.store.LoadItems(folder)
	if err != nil {
		return nil, err
	}
	return s.summaries(items), nil
}

// ItemsByTag lists items across all partitions whose derived tag set
// contains tag.
func (s *Service) ItemsByTag(_ context.Context, tag string) ([]ItemSummary, error) {
	items, err := s.store.LoadItemsByTag(tag)
	if err != nil {
		return nil, err
	}
	return s.summaries(items), nil
}

// GetItem loads one item with full content and metadata.
func (s *Service) GetItem(_ context.Context, path string) (*ItemDetail, error) {
	item, err := s.store.Item(path)
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	return s.buildDetail(item)
}

// EditItem replaces a text item's body with optimistic concurrency: when
// ifMatch is non-empty it must equal the current file checksum.
func (s *Service) EditItem(_ context.Context, path, newBody, ifMatch string) (*ItemDetail, error) {
	item, err := s.store.Item(path)
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	if ifMatch != "" {
		current, err := s.store.ReadRaw(item.Path)
		if err != nil {
			return nil, apperr.ErrNotFound
		}
		if checksum.Sum(current) != ifMatch {
			return nil, apperr.ErrConflict
		}
	}
	if err := s.store.EditText(item, newBody); err != nil {
		return nil, err
	}
	if err := index.IndexPath(s.db, s.store, item.Path); err != nil {
		return nil, err
	}
	s.emit("updated", item.Path)
	return s.buildDetail(item)
}

// DeleteItem removes an item (and its sidecar, for images) from disk and
// from the index.
func (s *Service) DeleteItem(_ context.Context, path string) error {
	item, err := s.store.Item(path)
	if err != nil {
		return apperr.ErrNotFound
	}
	if err := s.store.DeleteItem(item); err != nil {
		return err
	}
	if err := s.db.DeleteItem(item.Path); err != nil {
		return err
	}
	s.emit("deleted", item.Path)
	return nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

func (s *Service) finishCapture(item *models.CapturedItem) (*ItemDetail, error) {
	if err := index.IndexPath(s.db, s.store, item.Path); err != nil {
		return nil, err
	}
	s.emit("created", item.Path)
	return s.buildDetail(item)
}

func (s *Service) buildDetail(item *models.CapturedItem) (*ItemDetail, error) {
	data, err := s.store.ReadRaw(item.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	detail := &ItemDetail{
		ID:        item.ID,
		Type:      item.Type,
		Path:      item.Path,
		Timestamp: item.Timestamp,
		Checksum:  checksum.Sum(data),
	}
	if item.Type == models.ItemText {
		_, body, err := s.store.ReadText(item)
		if err != nil {
			return nil, err
		}
		detail.Body = body
	}
	if meta, ok := s.store.Metadata(item); ok {
		detail.Metadata = meta
		detail.DisplayTags = meta.DisplayTags()
	}
	if detail.DisplayTags == nil {
		detail.DisplayTags = []models.DisplayTag{}
	}
	return detail, nil
}

func (s *Service) summaries(items []models.CapturedItem) []ItemSummary {
	out := make([]ItemSummary, 0, len(items))
	for i := range items {
		item := items[i]
		sum := ItemSummary{
			ID:          item.ID,
			Type:        item.Type,
			Path:        item.Path,
			Timestamp:   item.Timestamp,
			DisplayTags: []models.DisplayTag{},
		}
		if meta, ok := s.store.Metadata(&item); ok {
			sum.DisplayTags = meta.DisplayTags()
		}
		if item.Type == models.ItemText {
			if _, body, err := s.store.ReadText(&item); err == nil {
				sum.Preview = preview(body)
			}
		}
		out = append(out, sum)
	}
	return out
}

// preview returns the first line of body, truncated to a fixed rune count.
func preview(body string) string {
	line := body
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if utf8.RuneCountInString(line) <= previewRunes {
		return line
	}
	runes := []rune(line)
	return string(runes[:previewRunes]) + "…"
}

func (s *Service) emit(kind, path string) {
	if s.onEvent != nil {
		s.onEvent(kind, path)
	}
}
