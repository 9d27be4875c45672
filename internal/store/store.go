// Package store owns the on-disk representation of captures: a root
// directory of date partitions (yyyy-MM-dd) holding Markdown text captures
// with a frontmatter block, and PNG image captures with a .meta.yaml
// sidecar. In-memory items are read-only snapshots; every query re-reads
// the filesystem.
package store

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/marwick/shoebox/internal/analyze"
	"github.com/marwick/shoebox/internal/frontmatter"
	"github.com/marwick/shoebox/internal/models"
)

const partitionLayout = "2006-01-02"

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
}

// Store maps captures to files under a date-partitioned root.
type Store struct {
	root     string
	analyzer *analyze.Analyzer
	now      func() time.Time
}

// New creates a Store rooted at dir, creating it if needed.
func New(dir string, analyzer *analyze.Analyzer) (*Store, error) {
	return NewWithClock(dir, analyzer, time.Now)
}

// NewWithClock creates a Store with an injectable clock. The clock drives
// partition selection and filename generation, which makes same-millisecond
// collision behavior testable.
func NewWithClock(dir string, analyzer *analyze.Analyzer, now func() time.Time) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("store: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("store: create root: %w", err)
	}
	return &Store{root: abs, analyzer: analyzer, now: now}, nil
}

// Root returns the absolute store root directory.
func (s *Store) Root() string { return s.root }

// Abs resolves a store-relative path, rejecting traversal outside the root.
func (s *Store) Abs(rel string) (string, error) {
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("store: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(s.root, cleaned)
	if !strings.HasPrefix(joined, s.root+string(os.PathSeparator)) && joined != s.root {
		return "", fmt.Errorf("store: path escapes store root: %s", rel)
	}
	return joined, nil
}

// SaveText analyzes text and writes it as a Markdown capture in today's
// partition: frontmatter block, blank line, trimmed text.
func (s *Store) SaveText(text string, method models.CaptureMethod, source *models.SourceApp, tab models.TabInfo, tabOK bool) (*models.CapturedItem, error) {
	trimmed := strings.TrimSpace(text)
	meta := s.analyzer.AnalyzeText(trimmed, method, source, tab, tabOK)

	content := append(frontmatter.Serialize(meta), '\n')
	content = append(content, trimmed...)

	now := s.now()
	rel, err := s.reserveFilename(now, ".md")
	if err != nil {
		return nil, err
	}
	if err := s.writeAtomic(rel, content); err != nil {
		return nil, err
	}
	return &models.CapturedItem{ID: rel, Type: models.ItemText, Path: rel, Timestamp: now}, nil
}

// SaveImage encodes img as PNG and writes it with a metadata sidecar.
// Encoding failure aborts before anything touches disk; a sidecar write
// failure removes the already-written PNG so the pair stays consistent.
func (s *Store) SaveImage(img image.Image, method models.CaptureMethod, source *models.SourceApp) (*models.CapturedItem, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("store: encode png: %w", err)
	}
	meta := s.analyzer.AnalyzeImage(img, method, source)

	now := s.now()
	rel, err := s.reserveFilename(now, ".png")
	if err != nil {
		return nil, err
	}
	if err := s.writeAtomic(rel, buf.Bytes()); err != nil {
		return nil, err
	}

	sidecar := strings.TrimSuffix(rel, ".png") + ".meta.yaml"
	if err := s.writeAtomic(sidecar, frontmatter.Serialize(meta)); err != nil {
		abs, _ := s.Abs(rel)
		_ = os.Remove(abs)
		return nil, err
	}
	return &models.CapturedItem{ID: rel, Type: models.ItemImage, Path: rel, Timestamp: now}, nil
}

// SaveFromFile ingests an external file by extension: recognized image
// extensions are decoded and re-saved through the image path; everything
// else must read as UTF-8 text and goes through the text path with the
// drag-drop method. Single-line http(s)/file URLs become Markdown links.
func (s *Store) SaveFromFile(srcPath string) (*models.CapturedItem, error) {
	ext := strings.ToLower(filepath.Ext(srcPath))
	if imageExtensions[ext] {
		f, err := os.Open(srcPath)
		if err != nil {
			return nil, fmt.Errorf("store: open source: %w", err)
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("store: decode image %s: %w", srcPath, err)
		}
		return s.SaveImage(img, models.MethodDragDrop, nil)
	}

	data, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, fmt.Errorf("store: read source: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("store: %s is not valid UTF-8 text", srcPath)
	}
	text := string(data)
	if link, ok := markdownLink(text); ok {
		text = link
	}
	return s.SaveText(text, models.MethodDragDrop, nil, models.TabInfo{}, false)
}

// markdownLink reformats content that is a single absolute http(s)/file
// URL into a Markdown link.
func markdownLink(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.ContainsAny(trimmed, " \t\n") {
		return "", false
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || !parsed.IsAbs() {
		return "", false
	}
	switch parsed.Scheme {
	case "http", "https", "file":
	default:
		return "", false
	}
	label := strings.TrimPrefix(parsed.Hostname(), "www.")
	if label == "" {
		label = trimmed
	}
	return fmt.Sprintf("[%s](%s)", label, trimmed), true
}

// LoadDateFolders scans the root's immediate subdirectories, keeps those
// whose names parse as yyyy-MM-dd, counts valid items, and sorts
// descending by date.
func (s *Store) LoadDateFolders() ([]models.DateFolder, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("store: read root: %w", err)
	}
	var out []models.DateFolder
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		date, err := time.ParseInLocation(partitionLayout, e.Name(), time.Local)
		if err != nil {
			continue
		}
		folder := models.DateFolder{Date: date, Path: filepath.Join(s.root, e.Name())}
		items, err := s.LoadItems(folder)
		if err != nil {
			continue
		}
		folder.ItemCount = len(items)
		out = append(out, folder)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// Folder resolves a partition by its yyyy-MM-dd name.
func (s *Store) Folder(name string) (models.DateFolder, error) {
	date, err := time.ParseInLocation(partitionLayout, name, time.Local)
	if err != nil {
		return models.DateFolder{}, fmt.Errorf("store: %q is not a partition name: %w", name, err)
	}
	dir := filepath.Join(s.root, name)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return models.DateFolder{}, fmt.Errorf("store: partition %s: %w", name, os.ErrNotExist)
	}
	return models.DateFolder{Date: date, Path: dir}, nil
}

// LoadItems returns the items directly inside one partition, ordered by
// file modification time descending. Mod time is the authoritative
// tiebreaker: filename-derived timestamps in the legacy naming scheme only
// carry second precision.
func (s *Store) LoadItems(folder models.DateFolder) ([]models.CapturedItem, error) {
	entries, err := os.ReadDir(folder.Path)
	if err != nil {
		return nil, fmt.Errorf("store: read partition: %w", err)
	}

	type sortable struct {
		item models.CapturedItem
		mod  time.Time
	}
	var rows []sortable
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		item, ok := s.itemFromEntry(folder, e.Name())
		if !ok {
			continue
		}
		mod := item.Timestamp
		if info, err := e.Info(); err == nil {
			mod = info.ModTime()
		}
		rows = append(rows, sortable{item: item, mod: mod})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].mod.After(rows[j].mod) })

	out := make([]models.CapturedItem, len(rows))
	for i, r := range rows {
		out[i] = r.item
	}
	return out, nil
}

// LoadItemsByTag scans every partition and keeps items whose derived tag
// set contains tag.
func (s *Store) LoadItemsByTag(tag string) ([]models.CapturedItem, error) {
	folders, err := s.LoadDateFolders()
	if err != nil {
		return nil, err
	}
	var out []models.CapturedItem
	for _, folder := range folders {
		items, err := s.LoadItems(folder)
		if err != nil {
			continue
		}
		for _, item := range items {
			meta, ok := s.Metadata(&item)
			if !ok {
				continue
			}
			if _, match := meta.TagSet()[tag]; match {
				out = append(out, item)
			}
		}
	}
	return out, nil
}

// Item reconstructs a typed item from a store-relative path.
func (s *Store) Item(rel string) (*models.CapturedItem, error) {
	abs, err := s.Abs(rel)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("store: %s: %w", rel, os.ErrNotExist)
	}
	partition := filepath.Base(filepath.Dir(abs))
	date, err := time.ParseInLocation(partitionLayout, partition, time.Local)
	if err != nil {
		return nil, fmt.Errorf("store: %s is not inside a partition", rel)
	}
	folder := models.DateFolder{Date: date, Path: filepath.Dir(abs)}
	item, ok := s.itemFromEntry(folder, filepath.Base(abs))
	if !ok {
		return nil, fmt.Errorf("store: %s is not a captured item", rel)
	}
	return &item, nil
}

// ReadText returns a text item's metadata (absent when it has no
// frontmatter) and its body.
func (s *Store) ReadText(item *models.CapturedItem) (*models.CaptureMetadata, string, error) {
	if item.Type != models.ItemText {
		return nil, "", fmt.Errorf("store: %s is not a text item", item.Path)
	}
	abs, err := s.Abs(item.Path)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, "", fmt.Errorf("store: read %s: %w", item.Path, err)
	}
	meta, _ := frontmatter.Deserialize(data)
	_, body := frontmatter.Split(data)
	return meta, body, nil
}

// Metadata loads the metadata record for any item type: frontmatter for
// text, the sidecar for images. ok is false when no parseable metadata
// exists.
func (s *Store) Metadata(item *models.CapturedItem) (*models.CaptureMetadata, bool) {
	path := item.Path
	if item.Type == models.ItemImage {
		path = item.SidecarPath()
	}
	abs, err := s.Abs(path)
	if err != nil {
		return nil, false
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, false
	}
	return frontmatter.Deserialize(data)
}

// ReadRaw returns the raw bytes of an item's backing file.
func (s *Store) ReadRaw(rel string) ([]byte, error) {
	abs, err := s.Abs(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", rel, err)
	}
	return data, nil
}

// EditText replaces a text item's body, preserving the original
// frontmatter block verbatim. Metadata is not recomputed on edit.
func (s *Store) EditText(item *models.CapturedItem, newText string) error {
	if item.Type != models.ItemText {
		return fmt.Errorf("store: cannot edit %s item %s", item.Type, item.Path)
	}
	abs, err := s.Abs(item.Path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("store: read %s: %w", item.Path, err)
	}
	block, _ := frontmatter.Split(data)

	var content []byte
	if block != nil {
		content = append(append(block, '\n'), newText...)
	} else {
		content = []byte(newText)
	}
	return s.writeAtomic(item.Path, content)
}

// DeleteItem removes an item's backing file; for images the sidecar is
// removed as well, best-effort.
func (s *Store) DeleteItem(item *models.CapturedItem) error {
	abs, err := s.Abs(item.Path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("store: delete %s: %w", item.Path, err)
	}
	if sidecar := item.SidecarPath(); sidecar != "" {
		if sAbs, err := s.Abs(sidecar); err == nil {
			_ = os.Remove(sAbs)
		}
	}
	return nil
}

// itemFromEntry converts a directory entry to a typed item, excluding
// dotfiles, sidecar files, and unknown extensions.
func (s *Store) itemFromEntry(folder models.DateFolder, name string) (models.CapturedItem, bool) {
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".meta.yaml") {
		return models.CapturedItem{}, false
	}
	var typ models.ItemType
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md":
		typ = models.ItemText
	case ".png":
		typ = models.ItemImage
	default:
		return models.CapturedItem{}, false
	}
	rel := filepath.Join(folder.PartitionName(), name)
	return models.CapturedItem{
		ID:        rel,
		Type:      typ,
		Path:      rel,
		Timestamp: s.itemTimestamp(folder, name),
	}, true
}

// itemTimestamp reconstructs an item's timestamp from its filename prefix
// combined with the partition date. The fallback chain is fixed: filename
// parse failure falls back to the file's modification time, and an
// unavailable modification time falls back to the current time at load.
func (s *Store) itemTimestamp(folder models.DateFolder, name string) time.Time {
	if ts, ok := parseNameTime(folder.Date, name); ok {
		return ts
	}
	if info, err := os.Stat(filepath.Join(folder.Path, name)); err == nil {
		return info.ModTime()
	}
	return s.now()
}

// parseNameTime parses the HH-mm-ss[-mmm[-n]] filename prefix.
func parseNameTime(date time.Time, name string) (time.Time, bool) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(base, "-")
	if len(parts) < 3 {
		return time.Time{}, false
	}
	hour, err1 := strconv.Atoi(parts[0])
	min, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 || sec < 0 || sec > 59 {
		return time.Time{}, false
	}
	msec := 0
	if len(parts) >= 4 && len(parts[3]) == 3 {
		if v, err := strconv.Atoi(parts[3]); err == nil {
			msec = v
		}
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, min, sec, msec*int(time.Millisecond), time.Local), true
}

// reserveFilename picks a collision-free store-relative filename in
// today's partition: HH-mm-ss-mmm plus a numeric suffix when several
// captures land in the same millisecond.
func (s *Store) reserveFilename(now time.Time, ext string) (string, error) {
	partition := now.Format(partitionLayout)
	dir := filepath.Join(s.root, partition)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("store: create partition: %w", err)
	}

	base := fmt.Sprintf("%s-%03d", now.Format("15-04-05"), now.Nanosecond()/int(time.Millisecond))
	name := base + ext
	for n := 1; s.nameTaken(dir, strings.TrimSuffix(name, ext)); n++ {
		name = fmt.Sprintf("%s-%d%s", base, n, ext)
	}
	return filepath.Join(partition, name), nil
}

// nameTaken reports whether any capture already claims this base name.
// The PNG sidecar shares the base, so checking the base covers both.
func (s *Store) nameTaken(dir, base string) bool {
	for _, ext := range []string{".md", ".png"} {
		if _, err := os.Stat(filepath.Join(dir, base+ext)); err == nil {
			return true
		}
	}
	return false
}

// writeAtomic writes content to a store-relative path: tmp file → fsync →
// rename.
func (s *Store) writeAtomic(rel string, content []byte) error {
	abs, err := s.Abs(rel)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".shoebox-tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("store: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("store: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("store: rename: %w", err)
	}
	success = true
	return nil
}
