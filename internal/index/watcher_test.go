package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/marwick/shoebox/internal/models"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	db := testDB(t)
	st := testStore(t)
	logger := quietLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, st, logger, func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	// A new partition dir plus an item inside it.
	partition := filepath.Join(st.Root(), "2025-06-01")
	if err := os.MkdirAll(partition, 0o755); err != nil {
		t.Fatal(err)
	}
	rel := filepath.Join("2025-06-01", "10-20-30-000.md")
	if err := os.WriteFile(filepath.Join(st.Root(), rel), []byte("dropped in from outside"), 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum(rel)
		return cs != ""
	}, "new file not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:"+rel {
				return true
			}
		}
		return false
	}, "expected created callback for new file")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	db := testDB(t)
	st := testStore(t)
	logger := quietLogger()

	item, err := st.SaveText("delete me", models.MethodClipboard, nil, models.TabInfo{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := Sync(db, st, logger); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, st, logger, nil)

	time.Sleep(100 * time.Millisecond)

	if err := os.Remove(filepath.Join(st.Root(), item.Path)); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum(item.Path)
		return cs == ""
	}, "removed file still indexed")
}

func TestWatcher_WriteReindexes(t *testing.T) {
	db := testDB(t)
	st := testStore(t)
	logger := quietLogger()

	item, err := st.SaveText("original watched body", models.MethodClipboard, nil, models.TabInfo{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := Sync(db, st, logger); err != nil {
		t.Fatal(err)
	}
	before, _ := db.GetChecksum(item.Path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, st, logger, nil)

	time.Sleep(100 * time.Millisecond)

	if err := st.EditText(item, "edited watched body"); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum(item.Path)
		return cs != "" && cs != before
	}, "edited file not reindexed")
}

func TestItemPath_Mapping(t *testing.T) {
	root := "/store"

	rel, target, ok := itemPath(root, "/store/2025-01-02/03-04-05-000.md")
	if !ok || rel != target || rel != filepath.Join("2025-01-02", "03-04-05-000.md") {
		t.Errorf("md mapping = (%q, %q, %v)", rel, target, ok)
	}

	// Sidecar events resolve to the owning PNG.
	rel, target, ok = itemPath(root, "/store/2025-01-02/03-04-05-000.meta.yaml")
	if !ok {
		t.Fatal("sidecar should map")
	}
	if target != filepath.Join("2025-01-02", "03-04-05-000.png") {
		t.Errorf("sidecar target = %q", target)
	}
	if rel == target {
		t.Error("sidecar rel should differ from target")
	}

	if _, _, ok := itemPath(root, "/store/2025-01-02/.hidden.md"); ok {
		t.Error("dotfiles should not map")
	}
	if _, _, ok := itemPath(root, "/store/2025-01-02/notes.txt"); ok {
		t.Error("unrelated extensions should not map")
	}
}
