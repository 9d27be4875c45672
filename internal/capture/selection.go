package capture

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/marwick/shoebox/internal/models"
)

// SelectionSource reads the current text selection of the foreground
// application. Implementations report ok=false when nothing is selected
// or the selection cannot be read.
type SelectionSource interface {
	ReadSelection() (text string, source *models.SourceApp, ok bool)
}

// SelectionWatcher polls the selection source and captures a selection
// once it has held steady for the debounce window. Short selections and
// repeats of the last captured text are skipped.
type SelectionWatcher struct {
	src       SelectionSource
	sink      Sink
	interval  time.Duration
	debounce  time.Duration
	minLength int
	logger    *slog.Logger
}

// NewSelectionWatcher creates a watcher. Non-positive interval, debounce,
// or minLength fall back to defaults (500ms, 1s, 3 runes).
func NewSelectionWatcher(src SelectionSource, sink Sink, interval, debounce time.Duration, minLength int, logger *slog.Logger) *SelectionWatcher {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if debounce <= 0 {
		debounce = time.Second
	}
	if minLength <= 0 {
		minLength = 3
	}
	return &SelectionWatcher{
		src:       src,
		sink:      sink,
		interval:  interval,
		debounce:  debounce,
		minLength: minLength,
		logger:    logger,
	}
}

// Run polls until ctx is cancelled.
func (w *SelectionWatcher) Run(ctx context.Context) error {
	w.logger.Info("selection watcher: started",
		slog.Duration("interval", w.interval),
		slog.Duration("debounce", w.debounce))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var (
		pending      string
		pendingSrc   *models.SourceApp
		pendingSince time.Time
		lastCaptured string
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("selection watcher: stopped")
			return nil

		case now := <-ticker.C:
			text, source, ok := w.src.ReadSelection()
			if !ok || strings.TrimSpace(text) == "" {
				pending = ""
				continue
			}
			if text != pending {
				pending = text
				pendingSrc = source
				pendingSince = now
				continue
			}
			if now.Sub(pendingSince) < w.debounce {
				continue
			}
			if text == lastCaptured || utf8.RuneCountInString(strings.TrimSpace(text)) < w.minLength {
				continue
			}

			item, err := w.sink.CaptureText(ctx, text, models.MethodSelection, pendingSrc, models.TabInfo{}, false)
			if err != nil {
				w.logger.Warn("selection watcher: capture failed", slog.String("error", err.Error()))
				continue
			}
			lastCaptured = text
			w.logger.Debug("selection watcher: captured", slog.String("path", item.Path))
		}
	}
}
