package content

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/redmaple/streamsync/internal/apperr"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndGet(t *testing.T) {
	db := testDB(t)

	if _, err := db.EnsureTag("news"); err != nil {
		t.Fatal(err)
	}
	id, err := db.Create(&Record{
		Title:      "Hello World",
		Body:       "<p>body</p>",
		AuthorID:   1,
		CategoryID: 2,
		Status:     StatusDraft,
		Tags:       []string{"news"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := db.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Hello World" || got.Status != StatusDraft || got.CategoryID != 2 {
		t.Errorf("record = %+v", got)
	}
	if got.Slug != "hello-world" {
		t.Errorf("slug = %q, want derived from title", got.Slug)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "news" {
		t.Errorf("tags = %v", got.Tags)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
}

func TestGetUnknownID(t *testing.T) {
	db := testDB(t)
	if _, err := db.Get(999); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateRejectsUnknownStatus(t *testing.T) {
	db := testDB(t)
	if _, err := db.Create(&Record{Title: "X", Status: Status("pending")}); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestFindByTitle(t *testing.T) {
	db := testDB(t)
	if _, err := db.Create(&Record{Title: "Unique Title", Status: StatusDraft}); err != nil {
		t.Fatal(err)
	}

	got, err := db.FindByTitle("Unique Title")
	if err != nil {
		t.Fatalf("FindByTitle: %v", err)
	}
	if got.Title != "Unique Title" {
		t.Errorf("record = %+v", got)
	}

	if _, err := db.FindByTitle("Missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFindByTitleIgnoresArchived(t *testing.T) {
	// An archived copy must not block re-import of the same title.
	db := testDB(t)
	if _, err := db.Create(&Record{Title: "Old News", Status: StatusArchived}); err != nil {
		t.Fatal(err)
	}

	if _, err := db.FindByTitle("Old News"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want archived record invisible to dedupe", err)
	}

	// After a live copy exists it is found again.
	if _, err := db.Create(&Record{Title: "Old News", Status: StatusPublished}); err != nil {
		t.Fatal(err)
	}
	got, err := db.FindByTitle("Old News")
	if err != nil {
		t.Fatalf("FindByTitle: %v", err)
	}
	if got.Status != StatusPublished {
		t.Errorf("status = %q", got.Status)
	}
}

func TestEnsureTagIdempotent(t *testing.T) {
	db := testDB(t)
	id1, err := db.EnsureTag("finance")
	if err != nil {
		t.Fatal(err)
	}
	id2, err := db.EnsureTag("finance")
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Errorf("ids differ: %d vs %d", id1, id2)
	}
}

func TestListNewestFirstWithTotal(t *testing.T) {
	db := testDB(t)
	for _, title := range []string{"One", "Two", "Three"} {
		if _, err := db.Create(&Record{Title: title, Status: StatusDraft}); err != nil {
			t.Fatal(err)
		}
	}

	recs, total, err := db.List(2, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d", total)
	}
	if len(recs) != 2 || recs[0].Title != "Three" || recs[1].Title != "Two" {
		t.Errorf("page = %+v", recs)
	}

	rest, _, err := db.List(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 1 || rest[0].Title != "One" {
		t.Errorf("second page = %+v", rest)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Hello World", "hello-world"},
		{"  Trim Me  ", "trim-me"},
		{"Q3: Profit & Loss!", "q3-profit-loss"},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
