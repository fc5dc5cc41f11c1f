package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/authors"
	"github.com/starford/ansuz/internal/editor"
	"github.com/starford/ansuz/internal/frontmatter"
	"github.com/starford/ansuz/internal/keywords"
	"github.com/starford/ansuz/internal/postservice"
	"github.com/starford/ansuz/internal/storage"
)

// Handler holds API route handlers.
type Handler struct {
	svc         *postservice.Service
	store       storage.Provider
	suggester   *keywords.Suggester
	launcher    *editor.Launcher
	authorsPath string
	projectRoot string
	loc         *time.Location
}

// NewHandler creates a new Handler. loc is the timezone applied to posts
// created without an explicit date; nil means time.Local.
func NewHandler(svc *postservice.Service, store storage.Provider, suggester *keywords.Suggester, launcher *editor.Launcher, authorsPath, projectRoot string, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		svc:         svc,
		store:       store,
		suggester:   suggester,
		launcher:    launcher,
		authorsPath: authorsPath,
		projectRoot: projectRoot,
		loc:         loc,
	}
}

// postPath extracts the post path from the URL (everything after /api/posts/).
// Supports encoded slashes from OpenAPI clients (e.g. _posts%2F2024-01-15-hello.md).
func postPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// fields converts a request payload into typed front matter. An empty date
// falls back to fallback (zero means now in the handler's timezone).
func (h *Handler) fields(req PostRequest, fallback time.Time) (frontmatter.Fields, error) {
	f := frontmatter.Fields{
		Title:        req.Title,
		MainCategory: req.MainCategory,
		SubCategory:  req.SubCategory,
		Tags:         frontmatter.SplitTags(req.Tags),
		Author:       req.Author,
		Description:  req.Description,
	}
	switch {
	case req.Date != "":
		t, ok := frontmatter.ParseDate(req.Date)
		if !ok {
			return frontmatter.Fields{}, errors.New("unrecognized date format")
		}
		f.Date = t
	case !fallback.IsZero():
		f.Date = fallback
	default:
		f.Date = time.Now().In(h.loc)
	}
	return f, nil
}

// ListPosts handles GET /api/posts.
//
//	@Summary		List posts with optional pagination and filtering
//	@Tags			posts
//	@Produce		json
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Param			category	query		string	false	"Filter by category"
//	@Param			tag			query		string	false	"Filter by tag"
//	@Success		200			{object}	PostListResponse
//	@Security		BearerAuth
//	@Router			/posts [get]
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	category := q.Get("category")
	tag := q.Get("tag")

	items, total, err := h.svc.List(r.Context(), limit, offset, category, tag)
	if err != nil {
		slog.Error("list posts failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"posts": items,
		"total": total,
	})
}

// GetPost handles GET /api/posts/*.
//
//	@Summary		Get a single post by path
//	@Tags			posts
//	@Produce		json
//	@Param			path	path		string	true	"Post path"
//	@Success		200		{object}	PostDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/posts/{path} [get]
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	path := postPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	post, err := h.svc.Get(r.Context(), path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get post failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// GeneratePost handles POST /api/posts.
//
//	@Summary		Generate a new post from front matter fields
//	@Tags			posts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PostRequest	true	"Front matter fields"
//	@Success		201		{object}	PostDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/posts [post]
func (h *Handler) GeneratePost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	f, err := h.fields(req, time.Time{})
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	post, err := h.svc.Generate(r.Context(), f)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrInvalidTitle):
			writeJSON(w, http.StatusBadRequest, errorBody("title yields an empty slug"))
		case errors.Is(err, apperr.ErrAlreadyExists):
			writeJSON(w, http.StatusConflict, errorBody("post already exists"))
		default:
			slog.Error("generate post failed", slog.String("title", req.Title), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// UpdatePost handles PUT /api/posts/*.
//
//	@Summary		Update a post's front matter with optimistic concurrency
//	@Tags			posts
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string		true	"Post path"
//	@Param			If-Match	header	string		false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	PostRequest	true	"Updated front matter fields"
//	@Success		200			{object}	PostDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/posts/{path} [put]
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	path := postPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	// An omitted date keeps the stored one rather than resetting to now.
	var fallback time.Time
	if req.Date == "" {
		current, err := h.svc.Get(r.Context(), path)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, errorBody("not found"))
			} else {
				slog.Error("update post failed", slog.String("path", path), slog.String("error", err.Error()))
				writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			}
			return
		}
		fallback = current.Fields.Date
	}

	f, err := h.fields(req, fallback)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	ifMatch := r.Header.Get("If-Match")
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch = strings.Trim(ifMatch, `"`)

	post, err := h.svc.Update(r.Context(), path, f, ifMatch)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
		case errors.Is(err, apperr.ErrInvalidTitle):
			writeJSON(w, http.StatusBadRequest, errorBody("title yields an empty slug"))
		default:
			slog.Error("update post failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// DeletePost handles DELETE /api/posts/*.
//
//	@Summary		Delete a post
//	@Tags			posts
//	@Param			path	path	string	true	"Post path"
//	@Success		204		"Post deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/posts/{path} [delete]
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	path := postPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.Delete(r.Context(), path); err != nil {
		slog.Error("delete post failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across posts
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// Authors handles GET /api/authors.
//
//	@Summary		List authors from _data/authors.yml in file order
//	@Tags			authors
//	@Produce		json
//	@Success		200	{object}	AuthorsResponse
//	@Security		BearerAuth
//	@Router			/authors [get]
func (h *Handler) Authors(w http.ResponseWriter, r *http.Request) {
	// Re-read per request so edits to the file show up without a restart.
	list, err := authors.Load(h.authorsPath)
	if err != nil {
		slog.Error("load authors failed", slog.String("path", h.authorsPath), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if list == nil {
		list = []authors.Author{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authors": list,
	})
}

// Keywords handles POST /api/keywords.
//
//	@Summary		Suggest tag keywords for a post body
//	@Tags			keywords
//	@Accept			json
//	@Produce		json
//	@Param			body	body		KeywordsRequest	true	"Body text to analyze"
//	@Success		200		{object}	KeywordsResponse
//	@Failure		400		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/keywords [post]
func (h *Handler) Keywords(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req KeywordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("body is required"))
		return
	}
	kws, err := h.suggester.Suggest(r.Context(), req.Body, req.Max)
	if err != nil {
		if errors.Is(err, apperr.ErrKeywordsDisabled) {
			writeJSON(w, http.StatusServiceUnavailable, errorBody("keyword suggestions are disabled (no API key)"))
		} else {
			slog.Error("keyword suggestion failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	if kws == nil {
		kws = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"keywords": kws,
	})
}

// EditorOpen handles POST /api/editor/open.
//
//	@Summary		Open a post in the external editor
//	@Tags			editor
//	@Accept			json
//	@Param			body	body	EditorOpenRequest	true	"Post to open"
//	@Success		204		"Editor launched"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/editor/open [post]
func (h *Handler) EditorOpen(w http.ResponseWriter, r *http.Request) {
	var req EditorOpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if _, err := h.svc.Get(r.Context(), req.Path); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("editor open failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	abs, err := h.store.Abs(req.Path)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid path"))
		return
	}
	if err := h.launcher.Open(h.projectRoot, abs); err != nil {
		if errors.Is(err, apperr.ErrEditorNotFound) {
			writeJSON(w, http.StatusInternalServerError, errorBody("editor command not found: "+h.launcher.Command()))
		} else {
			slog.Error("editor open failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
