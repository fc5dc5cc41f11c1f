package index

import (
	"log/slog"
	"time"

	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/frontmatter"
	"github.com/starford/ansuz/internal/storage"
)

// Sync walks the posts directory and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, postsDir string, logger *slog.Logger) error {
	metas, err := store.List(postsDir)
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeletePost(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexFile parses post data and upserts it into the DB.
func indexFile(db *DB, path string, data []byte) error {
	doc := frontmatter.Parse(data)
	f := doc.Fields

	row := PostRow{
		Path:       path,
		Title:      f.Title,
		Date:       f.Date,
		Categories: f.Categories(),
		Tags:       f.Tags,
		Author:     f.Author,
		Checksum:   checksum.Sum(data),
		UpdatedAt:  time.Now(),
	}
	return db.UpsertPost(row, doc.Body)
}
