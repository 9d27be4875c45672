package capture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

// InboxIngestor watches a drop directory. Every file that lands there is
// ingested through the regular file-capture path and then removed from
// the inbox. Files still being written are retried until their size holds
// steady.
type InboxIngestor struct {
	dir    string
	sink   Sink
	logger *slog.Logger
}

const (
	inboxSettleDelay = 150 * time.Millisecond
	inboxSettleTries = 10
)

// NewInboxIngestor creates an ingestor for dir, creating it if needed.
func NewInboxIngestor(dir string, sink Sink, logger *slog.Logger) (*InboxIngestor, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("inbox: resolve dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("inbox: create dir: %w", err)
	}
	return &InboxIngestor{dir: abs, sink: sink, logger: logger}, nil
}

// Run ingests files already in the inbox, then watches for new ones until
// ctx is cancelled.
func (in *InboxIngestor) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("inbox: watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(in.dir); err != nil {
		return fmt.Errorf("inbox: watch %s: %w", in.dir, err)
	}

	in.logger.Info("inbox: started", slog.String("dir", in.dir))
	in.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			in.logger.Info("inbox: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			in.ingest(ctx, ev.Name)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			in.logger.Error("inbox: watch error", slog.String("error", watchErr.Error()))
		}
	}
}

// sweep ingests files present before the watch started.
func (in *InboxIngestor) sweep(ctx context.Context) {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		in.logger.Warn("inbox: sweep failed", slog.String("error", err.Error()))
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		in.ingest(ctx, filepath.Join(in.dir, e.Name()))
	}
}

func (in *InboxIngestor) ingest(ctx context.Context, path string) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	if !in.waitSettled(ctx, path) {
		return
	}

	// Stage a copy so a re-drop of the same name during ingestion cannot
	// race with us.
	staged, err := in.stage(path)
	if err != nil {
		in.logger.Warn("inbox: stage failed", slog.String("file", name), slog.String("error", err.Error()))
		return
	}
	defer os.Remove(staged)

	item, err := in.sink.CaptureFile(ctx, staged)
	if err != nil {
		in.logger.Warn("inbox: ingest failed", slog.String("file", name), slog.String("error", err.Error()))
		return
	}
	if err := os.Remove(path); err != nil {
		in.logger.Warn("inbox: remove failed", slog.String("file", name), slog.String("error", err.Error()))
	}
	in.logger.Info("inbox: ingested", slog.String("file", name), slog.String("path", item.Path))
}

// waitSettled waits until the file size stops changing. Returns false when
// the file keeps growing past the retry budget or disappears.
func (in *InboxIngestor) waitSettled(ctx context.Context, path string) bool {
	var lastSize int64 = -1
	for i := 0; i < inboxSettleTries; i++ {
		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		if info.Size() == lastSize {
			return true
		}
		lastSize = info.Size()

		select {
		case <-ctx.Done():
			return false
		case <-time.After(inboxSettleDelay):
		}
	}
	return false
}

// stage copies the dropped file to a temp location, keeping the original
// extension so type detection works downstream.
func (in *InboxIngestor) stage(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	staged := filepath.Join(os.TempDir(), "shoebox-inbox-"+uuid.NewString()+filepath.Ext(path))
	dst, err := os.Create(staged)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(staged)
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(staged)
		return "", err
	}
	return staged, nil
}
