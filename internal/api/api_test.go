package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/starford/ansuz/internal/editor"
	"github.com/starford/ansuz/internal/keywords"
	"github.com/starford/ansuz/internal/postservice"
	"github.com/starford/ansuz/internal/testutil"
)

// testEnv sets up a temp project, SQLite DB, service, and router for testing.
// authEnabled=false means disabled mode; authEnabled=true with non-empty token means token mode.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()
	router, _ := testEnvFull(t, authToken != "", authToken, nil, "true")
	return router
}

func testEnvFull(t *testing.T, authEnabled bool, authToken string, suggester *keywords.Suggester, editorCmd string) (http.Handler, string) {
	t.Helper()

	projectDir, store := testutil.TestProject(t)
	db := testutil.TestDB(t)
	svc := postservice.NewService(store, db, "")

	if suggester == nil {
		suggester = keywords.NewSuggester("", "", "")
	}
	h := NewHandler(svc, store, suggester, editor.NewLauncher(editorCmd),
		filepath.Join(projectDir, "_data", "authors.yml"), projectDir,
		time.FixedZone("", 8*3600))
	router := NewRouter(h, NewAssetHandler(projectDir), authEnabled, authToken, nil)
	return router, projectDir
}

func generatePost(t *testing.T, router http.Handler, req PostRequest) PostDetail {
	t.Helper()
	body, _ := json.Marshal(req)
	r := httptest.NewRequest(http.MethodPost, "/posts", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("generate status = %d, body = %s", w.Code, w.Body.String())
	}
	var detail PostDetail
	_ = json.Unmarshal(w.Body.Bytes(), &detail)
	return detail
}

func TestGenerateAndGetPost(t *testing.T) {
	router := testEnv(t, "")

	detail := generatePost(t, router, PostRequest{
		Title:        "Hello World",
		Date:         "2024-1-15 08:30:00 +0800",
		MainCategory: "Development",
		SubCategory:  "Go",
		Tags:         "go jekyll",
		Author:       "alice",
	})
	if detail.Path != "_posts/2024-01-15-Hello-World.md" {
		t.Errorf("path = %q", detail.Path)
	}

	req := httptest.NewRequest(http.MethodGet, "/posts/"+detail.Path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got PostDetail
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Fields.Title != "Hello World" {
		t.Errorf("title = %q, want Hello World", got.Fields.Title)
	}
	if len(got.Fields.Tags) != 2 {
		t.Errorf("tags = %v, want 2 entries", got.Fields.Tags)
	}
}

func TestGenerateDuplicate(t *testing.T) {
	router := testEnv(t, "")

	req := PostRequest{Title: "Dup", Date: "2024-2-1 10:00:00 +0800"}
	generatePost(t, router, req)

	// Second generate for the same title and day should 409.
	body, _ := json.Marshal(req)
	r := httptest.NewRequest(http.MethodPost, "/posts", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate generate = %d, want 409", w.Code)
	}
}

func TestGenerateInvalidTitle(t *testing.T) {
	router := testEnv(t, "")

	body, _ := json.Marshal(PostRequest{Title: "!!!"})
	r := httptest.NewRequest(http.MethodPost, "/posts", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid title = %d, want 400", w.Code)
	}
}

func TestGenerateBadDate(t *testing.T) {
	router := testEnv(t, "")

	body, _ := json.Marshal(PostRequest{Title: "Dated", Date: "next tuesday"})
	r := httptest.NewRequest(http.MethodPost, "/posts", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad date = %d, want 400", w.Code)
	}
}

func TestGenerateDefaultsDateToNow(t *testing.T) {
	router := testEnv(t, "")

	detail := generatePost(t, router, PostRequest{Title: "No Date"})
	if detail.Fields.Date.IsZero() {
		t.Error("date should default to now")
	}
	wantPrefix := "_posts/" + time.Now().In(time.FixedZone("", 8*3600)).Format("2006-01-02")
	if len(detail.Path) < len(wantPrefix) || detail.Path[:len(wantPrefix)] != wantPrefix {
		t.Errorf("path = %q, want prefix %q", detail.Path, wantPrefix)
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	router := testEnv(t, "")

	created := generatePost(t, router, PostRequest{Title: "Lock", Date: "2024-3-2 09:00:00 +0800"})

	// Update with correct checksum.
	updateBody, _ := json.Marshal(PostRequest{Title: "Lock", Date: "2024-3-2 09:00:00 +0800", Tags: "locked"})
	req := httptest.NewRequest(http.MethodPut, "/posts/"+created.Path, bytes.NewReader(updateBody))
	req.Header.Set("If-Match", created.Checksum)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update with correct checksum = %d, body = %s", w.Code, w.Body.String())
	}

	// Update with stale checksum → 409.
	req = httptest.NewRequest(http.MethodPut, "/posts/"+created.Path, bytes.NewReader(updateBody))
	req.Header.Set("If-Match", created.Checksum) // stale now
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("update with stale checksum = %d, want 409", w.Code)
	}
}

func TestUpdateKeepsDateWhenOmitted(t *testing.T) {
	router := testEnv(t, "")

	created := generatePost(t, router, PostRequest{Title: "Keep Date", Date: "2024-4-5 12:00:00 +0800"})

	updateBody, _ := json.Marshal(PostRequest{Title: "Keep Date", Description: "now with text"})
	req := httptest.NewRequest(http.MethodPut, "/posts/"+created.Path, bytes.NewReader(updateBody))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}
	var updated PostDetail
	_ = json.Unmarshal(w.Body.Bytes(), &updated)
	if !updated.Fields.Date.Equal(created.Fields.Date) {
		t.Errorf("date = %v, want %v", updated.Fields.Date, created.Fields.Date)
	}
	if updated.Fields.Description != "now with text" {
		t.Errorf("description = %q", updated.Fields.Description)
	}
}

func TestUpdatePost_NotFound(t *testing.T) {
	router := testEnv(t, "")

	body, _ := json.Marshal(PostRequest{Title: "Ghost"})
	req := httptest.NewRequest(http.MethodPut, "/posts/_posts/ghost.md", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
}

func TestDeletePost(t *testing.T) {
	router := testEnv(t, "")

	created := generatePost(t, router, PostRequest{Title: "Bye", Date: "2024-5-1 08:00:00 +0800"})

	req := httptest.NewRequest(http.MethodDelete, "/posts/"+created.Path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", w.Code)
	}

	// GET should now 404.
	req = httptest.NewRequest(http.MethodGet, "/posts/"+created.Path, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestListPosts(t *testing.T) {
	router := testEnv(t, "")

	for i, title := range []string{"First Post", "Second Post"} {
		generatePost(t, router, PostRequest{
			Title: title,
			Date:  fmt.Sprintf("2024-6-%d 09:00:00 +0800", i+1),
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/posts?limit=10", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	posts := resp["posts"].([]any)
	if len(posts) != 2 {
		t.Errorf("len(posts) = %d, want 2", len(posts))
	}
	if resp["total"].(float64) != 2 {
		t.Errorf("total = %v, want 2", resp["total"])
	}
}

func TestSearchEndpoint(t *testing.T) {
	router := testEnv(t, "")

	generatePost(t, router, PostRequest{Title: "Uniquetoken Findme", Date: "2024-7-1 09:00:00 +0800"})

	req := httptest.NewRequest(http.MethodGet, "/search?q=Uniquetoken", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d, body = %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	results := resp["results"].([]any)
	if len(results) != 1 {
		t.Errorf("search results = %d, want 1", len(results))
	}
}

func TestSearchMissingQuery(t *testing.T) {
	router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestAuthorsEndpoint(t *testing.T) {
	router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/authors", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("authors = %d", w.Code)
	}
	var resp AuthorsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Authors) != 2 {
		t.Fatalf("authors = %d, want 2", len(resp.Authors))
	}
	// File order preserved.
	if resp.Authors[0].ID != "alice" || resp.Authors[1].ID != "bob" {
		t.Errorf("order = %v", resp.Authors)
	}
	if resp.Authors[0].Name != "Alice A" {
		t.Errorf("name = %q", resp.Authors[0].Name)
	}
}

func TestKeywordsDisabled(t *testing.T) {
	router := testEnv(t, "")

	body, _ := json.Marshal(KeywordsRequest{Body: "some text"})
	req := httptest.NewRequest(http.MethodPost, "/keywords", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("keywords without API key = %d, want 503", w.Code)
	}
}

func TestKeywordsEndpoint(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"go, jekyll, blogging"}}]}`))
	}))
	defer upstream.Close()

	sugg := keywords.NewSuggester("test-key", upstream.URL, "")
	router, _ := testEnvFull(t, false, "", sugg, "true")

	body, _ := json.Marshal(KeywordsRequest{Body: "A post about Go and Jekyll.", Max: 3})
	req := httptest.NewRequest(http.MethodPost, "/keywords", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("keywords = %d, body = %s", w.Code, w.Body.String())
	}
	var resp KeywordsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Keywords) != 3 {
		t.Errorf("keywords = %v, want 3", resp.Keywords)
	}
}

func TestKeywordsEmptyBody(t *testing.T) {
	router := testEnv(t, "")

	body, _ := json.Marshal(KeywordsRequest{Body: "   "})
	req := httptest.NewRequest(http.MethodPost, "/keywords", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty body = %d, want 400", w.Code)
	}
}

func TestEditorOpen(t *testing.T) {
	router := testEnv(t, "")

	created := generatePost(t, router, PostRequest{Title: "Edit Me", Date: "2024-8-1 09:00:00 +0800"})

	body, _ := json.Marshal(EditorOpenRequest{Path: created.Path})
	req := httptest.NewRequest(http.MethodPost, "/editor/open", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("editor open = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestEditorOpen_PostNotFound(t *testing.T) {
	router := testEnv(t, "")

	body, _ := json.Marshal(EditorOpenRequest{Path: "_posts/nope.md"})
	req := httptest.NewRequest(http.MethodPost, "/editor/open", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("editor open missing post = %d, want 404", w.Code)
	}
}

func TestEditorOpen_CommandNotFound(t *testing.T) {
	router, _ := testEnvFull(t, false, "", nil, "definitely-not-a-real-editor-binary")

	created := generatePost(t, router, PostRequest{Title: "No Editor", Date: "2024-8-2 09:00:00 +0800"})

	body, _ := json.Marshal(EditorOpenRequest{Path: created.Path})
	req := httptest.NewRequest(http.MethodPost, "/editor/open", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("editor open with missing command = %d, want 500", w.Code)
	}
}

func TestEditorOpen_PathEscapeRejected(t *testing.T) {
	router := testEnv(t, "")

	body, _ := json.Marshal(EditorOpenRequest{Path: "../outside.md"})
	req := httptest.NewRequest(http.MethodPost, "/editor/open", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("editor open with escaping path = %d, want 500", w.Code)
	}
}

func TestGetPost_NotFound(t *testing.T) {
	router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/posts/_posts/nope.md", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing post = %d, want 404", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router := testEnv(t, "secret123")

	body, _ := json.Marshal(PostRequest{Title: "Authed", Date: "2024-9-1 09:00:00 +0800"})
	req := httptest.NewRequest(http.MethodPost, "/posts", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed generate = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()

	projectDir, store := testutil.TestProject(t)
	db := testutil.TestDB(t)
	svc := postservice.NewService(store, db, "")

	// Minimal SSE handler stub — writes headers and blocks until context done.
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})

	h := NewHandler(svc, store, keywords.NewSuggester("", "", ""), editor.NewLauncher("true"),
		filepath.Join(projectDir, "_data", "authors.yml"), projectDir, nil)
	return NewRouter(h, NewAssetHandler(projectDir), authEnabled, token, sseHandler)
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret")

	// No token → 401.
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

// Asset tests.

func uploadFile(t *testing.T, router http.Handler, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, bytes.NewReader(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/assets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadAndServeAsset(t *testing.T) {
	router, projectDir := testEnvFull(t, false, "", nil, "true")

	// Upload.
	w := uploadFile(t, router, "test.png", []byte("fake-png-data"))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["filename"] != "test.png" {
		t.Errorf("filename = %v", resp["filename"])
	}
	if resp["url"] != "/assets/img/test.png" {
		t.Errorf("url = %v", resp["url"])
	}

	// Verify file on disk.
	data, err := os.ReadFile(filepath.Join(projectDir, "assets", "img", "test.png"))
	if err != nil {
		t.Fatalf("file not on disk: %v", err)
	}
	if string(data) != "fake-png-data" {
		t.Errorf("content mismatch")
	}
}

func TestServeAsset_NotFound(t *testing.T) {
	ah := NewAssetHandler(t.TempDir())

	// chi URL params need a router context; test the handler directly with a
	// chi router to get proper URL param extraction.
	r := chi.NewRouter()
	r.Get("/assets/img/{filename}", ah.ServeFile)
	req := httptest.NewRequest(http.MethodGet, "/assets/img/nope.png", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing asset = %d, want 404", w.Code)
	}
}

func TestServeAsset_TraversalBlocked(t *testing.T) {
	ah := NewAssetHandler(t.TempDir())
	r := chi.NewRouter()
	r.Get("/assets/img/{filename}", ah.ServeFile)

	for _, name := range []string{"../secret.md", "../../etc/passwd"} {
		req := httptest.NewRequest(http.MethodGet, "/assets/img/"+name, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		// chi may not route the traversal paths at all (404), or our handler rejects (400).
		if w.Code == http.StatusOK {
			t.Errorf("traversal %q should not return 200", name)
		}
	}
}

func TestUploadAsset_AuthProtected(t *testing.T) {
	router, _ := testEnvFull(t, true, "secret", nil, "true")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "x.png")
	_, _ = part.Write([]byte("data"))
	mw.Close()

	// No token → 401.
	req := httptest.NewRequest(http.MethodPost, "/assets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("upload no auth = %d, want 401", w.Code)
	}
}

func TestUploadAsset_MissingFileField(t *testing.T) {
	router := testEnv(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("wrong", "data")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/assets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing field = %d, want 400", w.Code)
	}
}
