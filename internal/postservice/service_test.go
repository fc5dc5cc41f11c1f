package postservice

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/frontmatter"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/testutil"
)

func testService(t *testing.T) (*Service, storage.Provider) {
	t.Helper()
	_, store := testutil.TestProject(t)
	db := testutil.TestDB(t)
	return NewService(store, db, ""), store
}

func fields(title string) frontmatter.Fields {
	return frontmatter.Fields{
		Title: title,
		Date:  time.Date(2024, time.January, 15, 8, 30, 0, 0, time.FixedZone("", 8*3600)),
	}
}

func TestGenerate(t *testing.T) {
	svc, _ := testService(t)
	f := fields("Hello, World! 2024")
	f.Tags = []string{"go", "web"}
	f.MainCategory = "Tech"

	detail, err := svc.Generate(context.Background(), f)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if detail.Path != "_posts/2024-01-15-Hello-World-2024.md" {
		t.Errorf("path = %q", detail.Path)
	}
	if detail.Body != "" {
		t.Errorf("new post body = %q, want empty", detail.Body)
	}

	// The file round-trips through Get.
	got, err := svc.Get(context.Background(), detail.Path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Fields.Title != "Hello, World! 2024" {
		t.Errorf("title = %q", got.Fields.Title)
	}
	if got.Fields.MainCategory != "Tech" || len(got.Fields.Tags) != 2 {
		t.Errorf("fields = %+v", got.Fields)
	}

	// And lands in the index.
	items, total, err := svc.List(context.Background(), 10, 0, "", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || items[0].Title != "Hello, World! 2024" {
		t.Errorf("list = %v (total %d)", items, total)
	}
}

func TestGenerate_EmptyTitle(t *testing.T) {
	svc, _ := testService(t)
	for _, title := range []string{"", "   ", "!!!"} {
		_, err := svc.Generate(context.Background(), fields(title))
		if !errors.Is(err, apperr.ErrInvalidTitle) {
			t.Errorf("Generate(%q) err = %v, want ErrInvalidTitle", title, err)
		}
	}
}

func TestGenerate_RefusesOverwrite(t *testing.T) {
	svc, _ := testService(t)
	if _, err := svc.Generate(context.Background(), fields("Same Title")); err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	_, err := svc.Generate(context.Background(), fields("Same Title"))
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.Get(context.Background(), "_posts/none.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdate_PreservesBody(t *testing.T) {
	svc, store := testService(t)
	detail, err := svc.Generate(context.Background(), fields("Evolving Post"))
	if err != nil {
		t.Fatal(err)
	}

	// User writes a body out of band (e.g. in the external editor).
	body := "# Heading\n\nhand-written content\nwith --- inline\n"
	if err := store.Write(detail.Path, frontmatter.Compose(fields("Evolving Post"), body)); err != nil {
		t.Fatal(err)
	}

	updated := fields("Evolving Post")
	updated.Tags = []string{"edited"}
	updated.Description = "now with tags"
	got, err := svc.Update(context.Background(), detail.Path, updated, "")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(got.Fields.Tags) != 1 || got.Fields.Tags[0] != "edited" {
		t.Errorf("tags = %v", got.Fields.Tags)
	}
	if got.Body != body {
		t.Errorf("body = %q, want preserved byte-for-byte", got.Body)
	}

	// Re-reading from disk agrees.
	again, err := svc.Get(context.Background(), detail.Path)
	if err != nil {
		t.Fatal(err)
	}
	if again.Body != body {
		t.Errorf("on-disk body = %q", again.Body)
	}
}

func TestUpdate_ChecksumConflict(t *testing.T) {
	svc, _ := testService(t)
	detail, err := svc.Generate(context.Background(), fields("Contended"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = svc.Update(context.Background(), detail.Path, fields("Contended"), "stale-checksum")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestDelete(t *testing.T) {
	svc, _ := testService(t)
	detail, err := svc.Generate(context.Background(), fields("Short Lived"))
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(context.Background(), detail.Path); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), detail.Path); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(context.Background(), detail.Path); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("double delete err = %v, want ErrNotFound", err)
	}
}

func TestSearch(t *testing.T) {
	svc, _ := testService(t)
	f := fields("Findable Gopher Post")
	f.Tags = []string{"gopher"}
	if _, err := svc.Generate(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	results, err := svc.Search(context.Background(), "Gopher", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || !strings.Contains(results[0].Title, "Gopher") {
		t.Errorf("results = %v", results)
	}
}
