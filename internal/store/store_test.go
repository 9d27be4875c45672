package store

import (
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/marwick/shoebox/internal/analyze"
	"github.com/marwick/shoebox/internal/frontmatter"
	"github.com/marwick/shoebox/internal/models"
)

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 678_000_000, time.Local)

func testStore(t *testing.T) *Store {
	t.Helper()
	analyzer := analyze.NewWithClock("testbox", "darwin/arm64", func() time.Time { return fixedNow })
	s, err := NewWithClock(t.TempDir(), analyzer, func() time.Time { return fixedNow })
	if err != nil {
		t.Fatalf("NewWithClock: %v", err)
	}
	return s
}

func TestSaveText_FileLayout(t *testing.T) {
	s := testStore(t)
	item, err := s.SaveText("hello https://a.com", models.MethodClipboard, nil, models.TabInfo{}, false)
	if err != nil {
		t.Fatalf("SaveText: %v", err)
	}
	if item.Type != models.ItemText {
		t.Errorf("type = %s", item.Type)
	}
	wantPath := filepath.Join("2025-01-02", "03-04-05-678.md")
	if item.Path != wantPath {
		t.Errorf("path = %q, want %q", item.Path, wantPath)
	}

	meta, body, err := s.ReadText(item)
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if body != "hello https://a.com" {
		t.Errorf("body = %q", body)
	}
	if meta == nil {
		t.Fatal("expected frontmatter metadata")
	}
	if meta.Method != "clipboard" {
		t.Errorf("method = %q", meta.Method)
	}
	if len(meta.DetectedURLs) != 1 || meta.DetectedURLs[0] != "https://a.com" {
		t.Errorf("detected urls = %v", meta.DetectedURLs)
	}
	if meta.Domain != "" {
		t.Errorf("domain should be absent without a browser source, got %q", meta.Domain)
	}
}

func TestSaveText_SameMillisecondSuffix(t *testing.T) {
	s := testStore(t)
	first, err := s.SaveText("one", models.MethodHotkey, nil, models.TabInfo{}, false)
	if err != nil {
		t.Fatalf("SaveText: %v", err)
	}
	second, err := s.SaveText("two", models.MethodHotkey, nil, models.TabInfo{}, false)
	if err != nil {
		t.Fatalf("SaveText: %v", err)
	}
	third, err := s.SaveText("three", models.MethodHotkey, nil, models.TabInfo{}, false)
	if err != nil {
		t.Fatalf("SaveText: %v", err)
	}

	if !strings.HasSuffix(second.Path, "03-04-05-678-1.md") {
		t.Errorf("second path = %q, want -1 suffix", second.Path)
	}
	if !strings.HasSuffix(third.Path, "03-04-05-678-2.md") {
		t.Errorf("third path = %q, want -2 suffix", third.Path)
	}

	// All three parse back with the same calendar date.
	for _, it := range []*models.CapturedItem{first, second, third} {
		loaded, err := s.Item(it.Path)
		if err != nil {
			t.Fatalf("Item(%s): %v", it.Path, err)
		}
		y, m, d := loaded.Timestamp.Date()
		if y != 2025 || m != time.January || d != 2 {
			t.Errorf("timestamp date = %v", loaded.Timestamp)
		}
	}
}

func TestSaveImage_SidecarAndTags(t *testing.T) {
	s := testStore(t)
	img := image.NewRGBA(image.Rect(0, 0, 1920, 1080))
	item, err := s.SaveImage(img, models.MethodScreenshotFull, nil)
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if item.Type != models.ItemImage {
		t.Errorf("type = %s", item.Type)
	}

	meta, ok := s.Metadata(item)
	if !ok {
		t.Fatal("expected sidecar metadata")
	}
	if meta.ImageWidth != 1920 || meta.ImageHeight != 1080 {
		t.Errorf("dims = %dx%d", meta.ImageWidth, meta.ImageHeight)
	}
	for _, want := range []string{"image", "hd"} {
		found := false
		for _, tag := range meta.Tags {
			if tag == want {
				found = true
			}
		}
		if !found {
			t.Errorf("tags = %v, want %q", meta.Tags, want)
		}
	}
}

func TestEditText_PreservesFrontmatter(t *testing.T) {
	s := testStore(t)
	item, err := s.SaveText("original body", models.MethodQuickNote, nil, models.TabInfo{}, false)
	if err != nil {
		t.Fatalf("SaveText: %v", err)
	}

	abs, _ := s.Abs(item.Path)
	before, _ := os.ReadFile(abs)
	blockBefore, _ := frontmatter.Split(before)

	if err := s.EditText(item, "replaced body"); err != nil {
		t.Fatalf("EditText: %v", err)
	}

	after, _ := os.ReadFile(abs)
	blockAfter, bodyAfter := frontmatter.Split(after)
	if string(blockAfter) != string(blockBefore) {
		t.Errorf("frontmatter changed:\nbefore %q\nafter  %q", blockBefore, blockAfter)
	}
	if bodyAfter != "replaced body" {
		t.Errorf("body = %q", bodyAfter)
	}
}

func TestEditText_NoFrontmatter(t *testing.T) {
	s := testStore(t)
	rel := filepath.Join("2025-01-02", "01-02-03-000.md")
	if err := s.writeAtomic(rel, []byte("bare content")); err != nil {
		t.Fatal(err)
	}
	item, err := s.Item(rel)
	if err != nil {
		t.Fatalf("Item: %v", err)
	}
	if err := s.EditText(item, "new bare content"); err != nil {
		t.Fatalf("EditText: %v", err)
	}
	abs, _ := s.Abs(rel)
	data, _ := os.ReadFile(abs)
	if string(data) != "new bare content" {
		t.Errorf("content = %q", data)
	}
}

func TestDeleteItem_Cascade(t *testing.T) {
	s := testStore(t)

	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	imgItem, err := s.SaveImage(img, models.MethodScreenshotPartial, nil)
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	txtItem, err := s.SaveText("text", models.MethodClipboard, nil, models.TabInfo{}, false)
	if err != nil {
		t.Fatalf("SaveText: %v", err)
	}

	if err := s.DeleteItem(imgItem); err != nil {
		t.Fatalf("DeleteItem(image): %v", err)
	}
	for _, rel := range []string{imgItem.Path, imgItem.SidecarPath()} {
		abs, _ := s.Abs(rel)
		if _, err := os.Stat(abs); !os.IsNotExist(err) {
			t.Errorf("%s still exists after delete", rel)
		}
	}

	if err := s.DeleteItem(txtItem); err != nil {
		t.Fatalf("DeleteItem(text): %v", err)
	}
	abs, _ := s.Abs(txtItem.Path)
	if _, err := os.Stat(abs); !os.IsNotExist(err) {
		t.Errorf("text file still exists after delete")
	}
}

func TestLoadDateFolders(t *testing.T) {
	s := testStore(t)
	_ = os.MkdirAll(filepath.Join(s.Root(), "2025-01-01"), 0o755)
	_ = s.writeAtomic(filepath.Join("2025-01-01", "10-00-00-000.md"), []byte("a"))
	_ = s.writeAtomic(filepath.Join("2025-01-02", "11-00-00-000.md"), []byte("b"))
	_ = s.writeAtomic(filepath.Join("2025-01-02", "11-00-00-000.meta.yaml"), []byte("sidecar"))
	_ = os.MkdirAll(filepath.Join(s.Root(), "not-a-date"), 0o755)
	_ = os.MkdirAll(filepath.Join(s.Root(), "2025-13-99"), 0o755)

	folders, err := s.LoadDateFolders()
	if err != nil {
		t.Fatalf("LoadDateFolders: %v", err)
	}
	if len(folders) != 2 {
		t.Fatalf("len = %d, want 2 (got %v)", len(folders), folders)
	}
	if folders[0].PartitionName() != "2025-01-02" || folders[1].PartitionName() != "2025-01-01" {
		t.Errorf("order = %s, %s", folders[0].PartitionName(), folders[1].PartitionName())
	}
	if folders[0].ItemCount != 1 {
		t.Errorf("sidecar counted as item: count = %d", folders[0].ItemCount)
	}
}

func TestLoadItems_PartitionOnlyAndOrder(t *testing.T) {
	s := testStore(t)
	_ = s.writeAtomic(filepath.Join("2025-01-02", "01-00-00-000.md"), []byte("old"))
	_ = s.writeAtomic(filepath.Join("2025-01-02", "02-00-00-000.md"), []byte("new"))
	_ = s.writeAtomic(filepath.Join("2025-01-01", "09-00-00-000.md"), []byte("other partition"))
	_ = s.writeAtomic(filepath.Join("2025-01-02", ".hidden.md"), []byte("dotfile"))

	// Push the "old" file's mod time forward so mod-time ordering, not
	// filename ordering, decides.
	oldAbs, _ := s.Abs(filepath.Join("2025-01-02", "01-00-00-000.md"))
	future := time.Now().Add(time.Hour)
	_ = os.Chtimes(oldAbs, future, future)

	folder, err := s.Folder("2025-01-02")
	if err != nil {
		t.Fatalf("Folder: %v", err)
	}
	items, err := s.LoadItems(folder)
	if err != nil {
		t.Fatalf("LoadItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if !strings.HasSuffix(items[0].Path, "01-00-00-000.md") {
		t.Errorf("mod-time ordering not honored: first = %s", items[0].Path)
	}
	for _, it := range items {
		if filepath.Dir(it.Path) != "2025-01-02" {
			t.Errorf("item from wrong partition: %s", it.Path)
		}
	}
}

func TestLoadItemsByTag(t *testing.T) {
	s := testStore(t)
	src := &models.SourceApp{Name: "Safari", BundleID: "com.apple.Safari"}
	_, err := s.SaveText("with links https://a.com", models.MethodHotkey, src, models.TabInfo{}, false)
	if err != nil {
		t.Fatalf("SaveText: %v", err)
	}
	_, err = s.SaveText("plain", models.MethodClipboard, nil, models.TabInfo{}, false)
	if err != nil {
		t.Fatalf("SaveText: %v", err)
	}

	byApp, err := s.LoadItemsByTag("Safari")
	if err != nil {
		t.Fatalf("LoadItemsByTag: %v", err)
	}
	if len(byApp) != 1 {
		t.Errorf("Safari items = %d, want 1", len(byApp))
	}

	byMethod, err := s.LoadItemsByTag("Clipboard")
	if err != nil {
		t.Fatalf("LoadItemsByTag: %v", err)
	}
	if len(byMethod) != 1 {
		t.Errorf("Clipboard items = %d, want 1", len(byMethod))
	}

	byLinks, err := s.LoadItemsByTag("links")
	if err != nil {
		t.Fatalf("LoadItemsByTag: %v", err)
	}
	if len(byLinks) != 1 {
		t.Errorf("links items = %d, want 1", len(byLinks))
	}
}

func TestSaveFromFile(t *testing.T) {
	s := testStore(t)
	srcDir := t.TempDir()

	textPath := filepath.Join(srcDir, "snippet.txt")
	_ = os.WriteFile(textPath, []byte("dropped text"), 0o644)
	item, err := s.SaveFromFile(textPath)
	if err != nil {
		t.Fatalf("SaveFromFile(text): %v", err)
	}
	meta, body, _ := s.ReadText(item)
	if body != "dropped text" {
		t.Errorf("body = %q", body)
	}
	if meta.Method != "drag-drop" {
		t.Errorf("method = %q, want drag-drop", meta.Method)
	}

	urlPath := filepath.Join(srcDir, "link.txt")
	_ = os.WriteFile(urlPath, []byte("https://www.example.com/page\n"), 0o644)
	item, err = s.SaveFromFile(urlPath)
	if err != nil {
		t.Fatalf("SaveFromFile(url): %v", err)
	}
	_, body, _ = s.ReadText(item)
	if body != "[example.com](https://www.example.com/page)" {
		t.Errorf("url body = %q", body)
	}

	binPath := filepath.Join(srcDir, "blob.dat")
	_ = os.WriteFile(binPath, []byte{0xff, 0xfe, 0x00, 0x80}, 0o644)
	if _, err := s.SaveFromFile(binPath); err == nil {
		t.Error("expected error for non-UTF-8 source")
	}
}

func TestItemTimestamp_FallbackChain(t *testing.T) {
	s := testStore(t)
	rel := filepath.Join("2025-01-02", "badname.md")
	_ = s.writeAtomic(rel, []byte("no parseable prefix"))

	item, err := s.Item(rel)
	if err != nil {
		t.Fatalf("Item: %v", err)
	}
	abs, _ := s.Abs(rel)
	info, _ := os.Stat(abs)
	if !item.Timestamp.Equal(info.ModTime()) {
		t.Errorf("timestamp = %v, want mod time %v", item.Timestamp, info.ModTime())
	}

	parsed, ok := parseNameTime(time.Date(2025, 1, 2, 0, 0, 0, 0, time.Local), "03-04-05-678.md")
	if !ok {
		t.Fatal("parseNameTime failed")
	}
	want := time.Date(2025, 1, 2, 3, 4, 5, 678_000_000, time.Local)
	if !parsed.Equal(want) {
		t.Errorf("parsed = %v, want %v", parsed, want)
	}

	if _, ok := parseNameTime(time.Now(), "25-99-99-000.md"); ok {
		t.Error("out-of-range time should not parse")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := testStore(t)
	for _, p := range []string{"../../etc/passwd", "/etc/shadow"} {
		if _, err := s.ReadRaw(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
	}
}
