package journal_test

import (
	"context"
	"path/filepath"
	"testing"

	"example.com/robot-missions/internal/journal"
)

func openTemp(t *testing.T) *journal.DB {
	t.Helper()
	db, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndRecent(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	transitions := []struct{ phase, status string }{
		{"AWAITING_ACCEPTANCE", ""},
		{"EXECUTING", ""},
		{"DONE", "SUCCESS"},
	}
	for _, tr := range transitions {
		if err := db.Record(ctx, "drive_out", "nav", tr.phase, tr.status); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	entries, err := db.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries: %d, want 3", len(entries))
	}
	// Most recent first.
	if entries[0].Phase != "DONE" || entries[0].Status != "SUCCESS" {
		t.Fatalf("newest entry: %+v", entries[0])
	}
	if entries[0].Node != "drive_out" || entries[0].Server != "nav" {
		t.Fatalf("identity columns: %+v", entries[0])
	}
	if entries[0].CreatedAt.IsZero() {
		t.Fatal("created_at not recorded")
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := db.Record(ctx, "drive_out", "nav", "EXECUTING", ""); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	entries, err := db.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries: %d, want 2", len(entries))
	}
}

func TestRecentOnEmptyJournal(t *testing.T) {
	db := openTemp(t)
	entries, err := db.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries: %d, want 0", len(entries))
	}
}
