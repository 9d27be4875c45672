package index

import (
	"log/slog"
	"sort"

	"github.com/marwick/shoebox/internal/checksum"
	"github.com/marwick/shoebox/internal/frontmatter"
	"github.com/marwick/shoebox/internal/models"
	"github.com/marwick/shoebox/internal/store"
)

// Sync walks the capture store and brings the index up to date:
//   - new/changed items are re-read and upserted
//   - items removed from disk are deleted from the index
func Sync(db *DB, st *store.Store, logger *slog.Logger) error {
	folders, err := st.LoadDateFolders()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{})
	for _, folder := range folders {
		items, err := st.LoadItems(folder)
		if err != nil {
			logger.Warn("sync: list partition failed",
				slog.String("partition", folder.PartitionName()),
				slog.String("error", err.Error()))
			continue
		}
		for i := range items {
			item := items[i]
			disk[item.Path] = struct{}{}

			data, err := st.ReadRaw(item.Path)
			if err != nil {
				logger.Warn("sync: read failed", slog.String("path", item.Path), slog.String("error", err.Error()))
				continue
			}
			if checksums[item.Path] == checksum.Sum(data) {
				continue
			}
			if err := indexItem(db, st, &item, data); err != nil {
				logger.Warn("sync: index failed", slog.String("path", item.Path), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: indexed", slog.String("path", item.Path))
			}
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteItem(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexItem upserts one item using already-read primary file bytes.
func indexItem(db *DB, st *store.Store, item *models.CapturedItem, data []byte) error {
	var body string
	if item.Type == models.ItemText {
		_, body = frontmatter.Split(data)
	}

	row := ItemRow{
		Path:      item.Path,
		Partition: item.Timestamp.Format("2006-01-02"),
		Type:      string(item.Type),
		Checksum:  checksum.Sum(data),
	}
	if meta, ok := st.Metadata(item); ok {
		row.Method = meta.Method
		row.SourceApp = meta.SourceApp
		row.Domain = meta.Domain
		row.CapturedAt = meta.CapturedAt
		for tag := range meta.TagSet() {
			row.Tags = append(row.Tags, tag)
		}
		sort.Strings(row.Tags)
	}
	return db.UpsertItem(row, body)
}

// IndexPath re-reads one store path and upserts it. Exported for the
// watcher and the service layer.
func IndexPath(db *DB, st *store.Store, rel string) error {
	item, err := st.Item(rel)
	if err != nil {
		return err
	}
	data, err := st.ReadRaw(rel)
	if err != nil {
		return err
	}
	return indexItem(db, st, item, data)
}
