package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/medhayu/grantha"
	"github.com/medhayu/grantha/internal/config"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(verse string) *ArticleRecord {
	return &ArticleRecord{
		BookID:    "charaka",
		ChapterID: "sutrasthana",
		Verse:     verse,
		Title:     "Verse " + verse,
		Blocks: []*grantha.ContentBlock{
			{ID: "b1", Type: grantha.Shloka, Sanskrit: "<p>text</p>"},
			{ID: "b2", Type: grantha.Bhashya, Sanskrit: "<p>commentary</p>",
				Commentary: &grantha.CommentaryInfo{Author: "Chakrapani", WorkName: "Ayurveda Dipika"}},
		},
		Tags: []string{"dosha", "nidana"},
	}
}

func TestSaveAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := testRecord("1.1")
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get(ctx, "charaka", "sutrasthana", "1.1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Verse 1.1" {
		t.Errorf("Title = %q", got.Title)
	}
	if len(got.Blocks) != 2 {
		t.Fatalf("got %d blocks", len(got.Blocks))
	}
	if got.Blocks[1].Commentary == nil || got.Blocks[1].Commentary.Author != "Chakrapani" {
		t.Errorf("commentary metadata lost: %+v", got.Blocks[1].Commentary)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "dosha" {
		t.Errorf("Tags = %v", got.Tags)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "charaka", "sutrasthana", "99.99")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}
}

func TestSaveOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := testRecord("1.1")
	if err := s.Save(ctx, rec); err != nil {
		t.Fatal(err)
	}

	rec.Title = "Revised"
	rec.Blocks = rec.Blocks[:1]
	rec.Tags = nil
	if err := s.Save(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, "charaka", "sutrasthana", "1.1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Revised" {
		t.Errorf("Title = %q, overwrite lost", got.Title)
	}
	if len(got.Blocks) != 1 {
		t.Errorf("got %d blocks, want 1", len(got.Blocks))
	}
	if len(got.Tags) != 0 {
		t.Errorf("Tags = %v, want empty", got.Tags)
	}
}

func TestListOrdersByVerse(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, v := range []string{"1.3", "1.1", "1.2"} {
		if err := s.Save(ctx, testRecord(v)); err != nil {
			t.Fatal(err)
		}
	}
	// A different chapter must not leak into the listing.
	other := testRecord("1.1")
	other.ChapterID = "nidanasthana"
	if err := s.Save(ctx, other); err != nil {
		t.Fatal(err)
	}

	recs, err := s.List(ctx, "charaka", "sutrasthana")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	for i, want := range []string{"1.1", "1.2", "1.3"} {
		if recs[i].Verse != want {
			t.Errorf("recs[%d].Verse = %q, want %q", i, recs[i].Verse, want)
		}
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, testRecord("1.1")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "charaka", "sutrasthana", "1.1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "charaka", "sutrasthana", "1.1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v", err)
	}
	if err := s.Delete(ctx, "charaka", "sutrasthana", "1.1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(config.StoreConfig{Type: "sqlite", DB: filepath.Join(dir, "a.db")})
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	st.Close()

	st, err = Open(config.StoreConfig{DB: filepath.Join(dir, "b.db")})
	if err != nil {
		t.Fatalf("Open default: %v", err)
	}
	st.Close()

	if _, err := Open(config.StoreConfig{Type: "cassandra"}); err == nil {
		t.Error("unknown backend accepted")
	}
}
