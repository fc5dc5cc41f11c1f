package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PostRow represents a row in the posts table.
type PostRow struct {
	Path       string
	Title      string
	Date       time.Time
	Categories []string
	Tags       []string
	Author     string
	Checksum   string
	UpdatedAt  time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertPost inserts or replaces a post row and its FTS entry within a
// transaction.
func (db *DB) UpsertPost(p PostRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	catsJSON, _ := json.Marshal(nonNil(p.Categories))
	tagsJSON, _ := json.Marshal(nonNil(p.Tags))

	var date any
	if !p.Date.IsZero() {
		date = p.Date.UTC()
	}

	_, err = tx.Exec(`
		INSERT INTO posts (path, title, date, categories, tags, author, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			date       = excluded.date,
			categories = excluded.categories,
			tags       = excluded.tags,
			author     = excluded.author,
			checksum   = excluded.checksum,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, p.Path, p.Title, date, string(catsJSON), string(tagsJSON), p.Author, p.Checksum, body, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert post: %w", err)
	}

	// FTS upsert (no-op when the FTS5 tag is absent).
	if err := ftsUpsert(tx, p.Path, p.Title, body, p.Tags); err != nil {
		return err
	}

	return tx.Commit()
}

// DeletePost removes a post and its FTS entry.
func (db *DB) DeletePost(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM posts WHERE path = ?`, path)

	return tx.Commit()
}

// GetPost returns a single post row, or nil when not indexed.
func (db *DB) GetPost(path string) (*PostRow, error) {
	row := db.conn.QueryRow(`
		SELECT path, title, date, categories, tags, author, checksum, updated_at
		FROM posts WHERE path = ?`, path)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get post: %w", err)
	}
	return p, nil
}

// ListPosts returns a date-descending page of posts with optional category
// and tag filters, plus the total matching count.
func (db *DB) ListPosts(limit, offset int, category, tag string) ([]PostRow, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := `WHERE 1=1`
	var args []any
	if category != "" {
		where += ` AND categories LIKE '%"' || ? || '"%'`
		args = append(args, category)
	}
	if tag != "" {
		where += ` AND tags LIKE '%"' || ? || '"%'`
		args = append(args, tag)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM posts `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count posts: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT path, title, date, categories, tags, author, checksum, updated_at
		FROM posts `+where+`
		ORDER BY date DESC, path DESC
		LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list posts: %w", err)
	}
	defer rows.Close()

	var out []PostRow
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

// AllChecksums returns path → checksum for every indexed post.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(r rowScanner) (*PostRow, error) {
	var p PostRow
	var date sql.NullTime
	var cats, tags string
	if err := r.Scan(&p.Path, &p.Title, &date, &cats, &tags, &p.Author, &p.Checksum, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if date.Valid {
		p.Date = date.Time
	}
	_ = json.Unmarshal([]byte(cats), &p.Categories)
	_ = json.Unmarshal([]byte(tags), &p.Tags)
	return &p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
