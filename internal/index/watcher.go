package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/marwick/shoebox/internal/checksum"
	"github.com/marwick/shoebox/internal/store"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the store root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after
// each successful index mutation.
//
// New partition directories created at runtime are automatically added to
// the watch list. Rename events trigger a debounced reconciliation pass
// that removes stale index entries whose files no longer exist on disk.
func Watch(ctx context.Context, db *DB, st *store.Store, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := st.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, st, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// New partition directory: watch it and index its contents.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					indexNewDir(db, st, root, absPath, logger, cb)
					continue
				}
			}

			rel, target, ok := itemPath(root, absPath)
			if !ok {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if idxErr := IndexPath(db, st, target); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("path", target), slog.String("error", idxErr.Error()))
					continue
				}
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 && rel == target {
					kind = "created"
				}
				logger.Debug("watcher: indexed", slog.String("path", target), slog.String("op", kind))
				if cb != nil {
					cb(kind, target)
				}

			case ev.Op&fsnotify.Remove != 0:
				if rel != target {
					// Sidecar removed; the owning item stays indexed.
					continue
				}
				if delErr := db.DeleteItem(target); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", target), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", target))
				if cb != nil {
					cb("deleted", target)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only; the new
				// path arrives as a separate Create. Drop the old entry
				// now and reconcile shortly after for stragglers.
				if rel == target {
					if delErr := db.DeleteItem(target); delErr == nil {
						logger.Debug("watcher: rename old deleted", slog.String("path", target))
						if cb != nil {
							cb("deleted", target)
						}
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// itemPath maps an absolute event path to (rel, target item path). Sidecar
// files resolve to their owning PNG; unrelated files report ok=false.
func itemPath(root, absPath string) (rel, target string, ok bool) {
	rel, err := filepath.Rel(root, absPath)
	if err != nil {
		return "", "", false
	}
	name := filepath.Base(rel)
	if strings.HasPrefix(name, ".") {
		return "", "", false
	}
	switch {
	case strings.HasSuffix(name, ".meta.yaml"):
		return rel, strings.TrimSuffix(rel, ".meta.yaml") + ".png", true
	case strings.HasSuffix(name, ".md"), strings.HasSuffix(name, ".png"):
		return rel, rel, true
	}
	return "", "", false
}

// reconcile does a lightweight sync using batch lookups: index entries
// without a file on disk are removed, and on-disk items that are missing
// or stale in the index are re-indexed.
func reconcile(db *DB, st *store.Store, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	folders, err := st.LoadDateFolders()
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string)
	for _, folder := range folders {
		items, err := st.LoadItems(folder)
		if err != nil {
			continue
		}
		for _, item := range items {
			data, readErr := st.ReadRaw(item.Path)
			if readErr != nil {
				continue
			}
			disk[item.Path] = checksum.Sum(data)
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if delErr := db.DeleteItem(p); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("path", p))
				if cb != nil {
					cb("deleted", p)
				}
			}
		}
	}

	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		if idxErr := IndexPath(db, st, p); idxErr == nil {
			logger.Debug("reconcile: indexed new", slog.String("path", p))
			if cb != nil {
				cb("created", p)
			}
		}
	}
}

// indexNewDir indexes any items found in a newly created directory.
func indexNewDir(db *DB, st *store.Store, root, dirPath string, logger *slog.Logger, cb EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, target, ok := itemPath(root, path)
		if !ok || rel != target {
			return nil
		}
		if idxErr := IndexPath(db, st, target); idxErr == nil {
			logger.Debug("watcher: indexed from new dir", slog.String("path", target))
			if cb != nil {
				cb("created", target)
			}
		}
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
