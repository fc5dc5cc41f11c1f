// Package postservice implements the generate/open/update actions over
// Jekyll post files. Every operation is a pure request/response exchange;
// a failed action leaves both the files and the caller's form state intact.
package postservice

import (
	"context"
	"errors"
	"os"
	"path"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/frontmatter"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/storage"
)

// DefaultPostsDir is the Jekyll posts directory relative to the project root.
const DefaultPostsDir = "_posts"

// PostDetail is the full representation of a post.
type PostDetail struct {
	Path      string             `json:"path"`
	Fields    frontmatter.Fields `json:"fields"`
	Body      string             `json:"body"`
	Checksum  string             `json:"checksum"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// PostListItem is a lightweight item in a list response.
type PostListItem struct {
	Path       string    `json:"path"`
	Title      string    `json:"title"`
	Date       time.Time `json:"date"`
	Categories []string  `json:"categories"`
	Tags       []string  `json:"tags"`
	Checksum   string    `json:"checksum"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Service coordinates storage and index operations.
type Service struct {
	store    storage.Provider
	db       *index.DB
	postsDir string
}

// NewService creates a new post service.
func NewService(store storage.Provider, db *index.DB, postsDir string) *Service {
	if postsDir == "" {
		postsDir = DefaultPostsDir
	}
	return &Service{store: store, db: db, postsDir: postsDir}
}

// PostsDir returns the posts directory relative to the project root.
func (s *Service) PostsDir() string { return s.postsDir }

// Generate derives the canonical filename from date and title and writes a
// new post consisting of the serialized front matter and an empty body.
// An existing file at the derived path is never overwritten.
func (s *Service) Generate(_ context.Context, f frontmatter.Fields) (*PostDetail, error) {
	f.Title = strings.TrimSpace(f.Title)
	if f.Title == "" {
		return nil, apperr.ErrInvalidTitle
	}
	name, err := frontmatter.Filename(f.Date, f.Title)
	if err != nil {
		return nil, err
	}
	rel := path.Join(s.postsDir, name)
	if s.store.Exists(rel) {
		return nil, apperr.ErrAlreadyExists
	}

	content := frontmatter.Compose(f, "")
	if err := s.store.Write(rel, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(rel, content); err != nil {
		return nil, err
	}
	return buildDetail(rel, content), nil
}

// Get reads a post and parses it into form-ready fields plus body.
func (s *Service) Get(_ context.Context, rel string) (*PostDetail, error) {
	data, err := s.store.Read(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return buildDetail(rel, data), nil
}

// Update regenerates the front matter from fields and reattaches the
// existing body byte-for-byte, with optimistic concurrency via ifMatch.
func (s *Service) Update(_ context.Context, rel string, f frontmatter.Fields, ifMatch string) (*PostDetail, error) {
	f.Title = strings.TrimSpace(f.Title)
	if f.Title == "" {
		return nil, apperr.ErrInvalidTitle
	}
	existing, err := s.store.Read(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}

	doc := frontmatter.Parse(existing)
	content := frontmatter.Compose(f, doc.Body)
	if err := s.store.Write(rel, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(rel, content); err != nil {
		return nil, err
	}
	return buildDetail(rel, content), nil
}

// Delete removes a post from storage and index.
func (s *Service) Delete(_ context.Context, rel string) error {
	if err := s.store.Delete(rel); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	return s.db.DeletePost(rel)
}

// List returns paginated posts, newest first, with optional category and
// tag filters.
func (s *Service) List(_ context.Context, limit, offset int, category, tag string) ([]PostListItem, int, error) {
	rows, total, err := s.db.ListPosts(limit, offset, category, tag)
	if err != nil {
		return nil, 0, err
	}
	items := make([]PostListItem, len(rows))
	for i, r := range rows {
		items[i] = PostListItem{
			Path:       r.Path,
			Title:      r.Title,
			Date:       r.Date,
			Categories: nonNilSlice(r.Categories),
			Tags:       nonNilSlice(r.Tags),
			Checksum:   r.Checksum,
			UpdatedAt:  r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// IndexFile parses data and upserts it into the index.
// Exported so that callers indexing out-of-band writes can reuse it.
func (s *Service) IndexFile(rel string, data []byte) error {
	doc := frontmatter.Parse(data)
	f := doc.Fields
	return s.db.UpsertPost(index.PostRow{
		Path:       rel,
		Title:      f.Title,
		Date:       f.Date,
		Categories: f.Categories(),
		Tags:       f.Tags,
		Author:     f.Author,
		Checksum:   checksum.Sum(data),
		UpdatedAt:  time.Now(),
	}, doc.Body)
}

// buildDetail constructs a PostDetail from raw data without re-reading the file.
func buildDetail(rel string, data []byte) *PostDetail {
	doc := frontmatter.Parse(data)
	return &PostDetail{
		Path:      rel,
		Fields:    doc.Fields,
		Body:      doc.Body,
		Checksum:  checksum.Sum(data),
		UpdatedAt: time.Now(),
	}
}

func nonNilSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
