package database

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

func TestOpenAppliesConnectionPragmas(t *testing.T) {
	db := openTestDB(t)

	var journalMode string
	if err := db.conn.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("reading journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %q, want wal", journalMode)
	}

	var foreignKeys int
	if err := db.conn.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys); err != nil {
		t.Fatalf("reading foreign_keys: %v", err)
	}
	if foreignKeys != 1 {
		t.Errorf("foreign_keys = %d, want 1", foreignKeys)
	}
}

func TestInsertAndGetStory(t *testing.T) {
	db := openTestDB(t)

	id, err := db.InsertStory("aB3xY9kQ2w_G", "quiz", "Space Quiz",
		"https://cdn.test/generated-quiz_aB3xY9kQ2w_G.html", nil, 5)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if id == 0 {
		t.Error("expected non-zero id")
	}

	s, err := db.GetStory("aB3xY9kQ2w_G")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if s == nil {
		t.Fatal("expected story")
	}
	if s.Kind != "quiz" || s.Title != "Space Quiz" || s.SlideCount != 5 {
		t.Errorf("unexpected story: %+v", s)
	}
	if s.JSONURL != nil {
		t.Errorf("expected nil json url, got %v", *s.JSONURL)
	}
}

func TestGetStoryMissing(t *testing.T) {
	db := openTestDB(t)
	s, err := db.GetStory("nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != nil {
		t.Error("expected nil for missing slug")
	}
}

func TestInsertDuplicateSlugFails(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.InsertStory("dup_G", "quiz", "A", "https://x/a.html", nil, 4); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if _, err := db.InsertStory("dup_G", "quiz", "B", "https://x/b.html", nil, 4); err == nil {
		t.Error("expected unique constraint violation")
	}
}

func TestGetAllStoriesNewestFirst(t *testing.T) {
	db := openTestDB(t)
	db.InsertStory("one_G", "quiz", "First", "https://x/1.html", nil, 4)
	db.InsertStory("two_G", "summary", "Second", "https://x/2.html", ptr("https://x/2.json"), 5)

	stories, err := db.GetAllStories()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stories) != 2 {
		t.Fatalf("expected 2 stories, got %d", len(stories))
	}
	if stories[0].Slug != "two_G" {
		t.Errorf("expected newest first, got %q", stories[0].Slug)
	}
	if stories[0].JSONURL == nil || *stories[0].JSONURL != "https://x/2.json" {
		t.Error("expected sidecar URL on summary")
	}
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	db.InsertStory("q1_G", "quiz", "Q1", "https://x/q1.html", nil, 4)
	db.InsertStory("q2_G", "quiz", "Q2", "https://x/q2.html", nil, 5)
	db.InsertStory("s1_G", "summary", "S1", "https://x/s1.html", nil, 5)

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalStories != 3 || stats.Quizzes != 2 || stats.Summaries != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	db.InsertStory("x_G", "quiz", "X", "https://x/x.html", nil, 4)
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	s, err := db.GetStory("x_G")
	if err != nil || s == nil {
		t.Fatalf("expected story to survive reopen, got %v / %v", s, err)
	}
}
