package itemservice

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync"
	"testing"

	"github.com/marwick/shoebox/internal/apperr"
	"github.com/marwick/shoebox/internal/models"
	"github.com/marwick/shoebox/internal/testutil"
)

type stubClipboard struct {
	text string
	img  image.Image
}

func (c stubClipboard) ReadText() (string, bool) { return c.text, c.text != "" }
func (c stubClipboard) ReadImage() (image.Image, bool) {
	if c.img == nil {
		return nil, false
	}
	return c.img, true
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) record(kind, path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, kind+":"+path)
}

func (l *eventLog) has(kind, path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e == kind+":"+path {
			return true
		}
	}
	return false
}

func testService(t *testing.T, clip Clipboard) (*Service, *eventLog) {
	t.Helper()
	log := &eventLog{}
	svc := New(testutil.TestStore(t), testutil.TestDB(t), clip, log.record)
	return svc, log
}

func TestCaptureText_DetailAndEvent(t *testing.T) {
	svc, log := testService(t, nil)
	ctx := context.Background()

	detail, err := svc.CaptureText(ctx, "hello capture\nmore", models.MethodQuickNote, nil, models.TabInfo{}, false)
	if err != nil {
		t.Fatalf("CaptureText: %v", err)
	}
	if detail.Body != "hello capture\nmore" {
		t.Errorf("body = %q", detail.Body)
	}
	if detail.Checksum == "" {
		t.Error("checksum missing")
	}
	if detail.Metadata == nil || detail.Metadata.WordCount != 3 {
		t.Errorf("metadata = %+v", detail.Metadata)
	}
	if len(detail.DisplayTags) == 0 {
		t.Error("display tags missing")
	}
	if !log.has("created", detail.Path) {
		t.Errorf("created event not emitted, got %v", log.events)
	}

	// The capture is searchable straight away.
	results, err := svc.Search(ctx, "hello", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != detail.Path {
		t.Errorf("search = %+v", results)
	}
}

func TestCaptureClipboard_PrefersText(t *testing.T) {
	svc, _ := testService(t, stubClipboard{text: "text wins", img: image.NewRGBA(image.Rect(0, 0, 2, 2))})

	detail, err := svc.CaptureClipboard(context.Background(), models.MethodHotkey, nil, models.TabInfo{}, false)
	if err != nil {
		t.Fatalf("CaptureClipboard: %v", err)
	}
	if detail.Type != models.ItemText || detail.Body != "text wins" {
		t.Errorf("detail = %+v", detail)
	}
}

func TestCaptureClipboard_ImageFallback(t *testing.T) {
	svc, log := testService(t, stubClipboard{img: image.NewRGBA(image.Rect(0, 0, 8, 8))})

	detail, err := svc.CaptureClipboard(context.Background(), models.MethodHotkey, nil, models.TabInfo{}, false)
	if err != nil {
		t.Fatalf("CaptureClipboard: %v", err)
	}
	if detail.Type != models.ItemImage {
		t.Errorf("type = %q, want image", detail.Type)
	}
	if detail.Metadata == nil || detail.Metadata.ImageWidth != 8 {
		t.Errorf("image metadata = %+v", detail.Metadata)
	}
	if !log.has("created", detail.Path) {
		t.Error("created event not emitted for image")
	}
}

func TestCaptureClipboard_Empty(t *testing.T) {
	svc, _ := testService(t, stubClipboard{})
	_, err := svc.CaptureClipboard(context.Background(), models.MethodHotkey, nil, models.TabInfo{}, false)
	if !errors.Is(err, apperr.ErrEmptyClipboard) {
		t.Errorf("err = %v, want ErrEmptyClipboard", err)
	}
}

func TestEditItem_ConflictAndEvent(t *testing.T) {
	svc, log := testService(t, nil)
	ctx := context.Background()

	created, err := svc.CaptureText(ctx, "v1", models.MethodQuickNote, nil, models.TabInfo{}, false)
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.EditItem(ctx, created.Path, "v2", created.Checksum)
	if err != nil {
		t.Fatalf("EditItem: %v", err)
	}
	if updated.Body != "v2" {
		t.Errorf("body = %q", updated.Body)
	}
	if !log.has("updated", created.Path) {
		t.Error("updated event not emitted")
	}

	// Stale checksum now conflicts.
	if _, err := svc.EditItem(ctx, created.Path, "v3", created.Checksum); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale edit err = %v, want ErrConflict", err)
	}

	// Metadata block survives the edit.
	if updated.Metadata == nil || updated.Metadata.Method != string(models.MethodQuickNote) {
		t.Errorf("metadata lost on edit: %+v", updated.Metadata)
	}
}

func TestDeleteItem_RemovesEverywhere(t *testing.T) {
	svc, log := testService(t, nil)
	ctx := context.Background()

	created, err := svc.CaptureText(ctx, "short-lived deletable", models.MethodQuickNote, nil, models.TabInfo{}, false)
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteItem(ctx, created.Path); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if !log.has("deleted", created.Path) {
		t.Error("deleted event not emitted")
	}
	if _, err := svc.GetItem(ctx, created.Path); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete err = %v, want ErrNotFound", err)
	}
	results, _ := svc.Search(ctx, "deletable", 10)
	if len(results) != 0 {
		t.Errorf("deleted item still searchable: %+v", results)
	}
}

func TestItems_SummariesWithPreview(t *testing.T) {
	svc, _ := testService(t, nil)
	ctx := context.Background()

	long := strings.Repeat("x", 200)
	if _, err := svc.CaptureText(ctx, "first line\nrest", models.MethodQuickNote, nil, models.TabInfo{}, false); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CaptureText(ctx, long, models.MethodQuickNote, nil, models.TabInfo{}, false); err != nil {
		t.Fatal(err)
	}

	parts, err := svc.Partitions(ctx)
	if err != nil || len(parts) != 1 {
		t.Fatalf("partitions = %v, err = %v", parts, err)
	}

	items, err := svc.Items(ctx, parts[0].PartitionName())
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	for _, it := range items {
		switch {
		case it.Preview == "first line":
		case strings.HasSuffix(it.Preview, "…") && len([]rune(it.Preview)) == previewRunes+1:
		default:
			t.Errorf("unexpected preview %q", it.Preview)
		}
		if len(it.DisplayTags) == 0 {
			t.Error("summary missing display tags")
		}
	}
}

func TestItems_UnknownPartition(t *testing.T) {
	svc, _ := testService(t, nil)
	if _, err := svc.Items(context.Background(), "1999-12-31"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestItemsByTag(t *testing.T) {
	svc, _ := testService(t, nil)
	ctx := context.Background()

	if _, err := svc.CaptureText(ctx, "tagged capture", models.MethodQuickNote,
		&models.SourceApp{Name: "Notes", BundleID: "com.apple.Notes"}, models.TabInfo{}, false); err != nil {
		t.Fatal(err)
	}

	items, err := svc.ItemsByTag(ctx, "Notes")
	if err != nil {
		t.Fatalf("ItemsByTag: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("tagged items = %d, want 1", len(items))
	}

	items, err = svc.ItemsByTag(ctx, "no-such-tag")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("unexpected hits for unknown tag: %d", len(items))
	}
}
