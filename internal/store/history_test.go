package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func newTestHistory(t *testing.T, maxRows int) *HistoryStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	h, err := NewHistoryStore(path, maxRows, zap.NewNop())
	if err != nil {
		t.Fatalf("NewHistoryStore() error = %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func TestHistoryStore_RecordAndRecent(t *testing.T) {
	h := newTestHistory(t, 100)
	ctx := context.Background()

	if err := h.Record(ctx, "https://open.spotify.com/track/abc", "spotify", "abc"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := h.Record(ctx, "https://music.apple.com/us/album/x/1?i=2", "applemusic", "2"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	records, err := h.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	// Newest first.
	if records[0].TrackID != "2" {
		t.Errorf("records[0].TrackID = %q, want %q", records[0].TrackID, "2")
	}
	if records[1].Platform != "spotify" {
		t.Errorf("records[1].Platform = %q, want %q", records[1].Platform, "spotify")
	}
	if records[0].ScannedAt.IsZero() {
		t.Error("ScannedAt should be populated")
	}
}

func TestHistoryStore_TrimsToMaxRows(t *testing.T) {
	h := newTestHistory(t, 5)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		url := fmt.Sprintf("https://open.spotify.com/track/t%d", i)
		if err := h.Record(ctx, url, "spotify", fmt.Sprintf("t%d", i)); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	records, err := h.Recent(ctx, 100)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("len(records) = %d, want 5", len(records))
	}
	if records[0].TrackID != "t7" {
		t.Errorf("newest record = %q, want %q", records[0].TrackID, "t7")
	}
	if records[len(records)-1].TrackID != "t3" {
		t.Errorf("oldest surviving record = %q, want %q", records[len(records)-1].TrackID, "t3")
	}
}

func TestHistoryStore_InvalidMaxRows(t *testing.T) {
	_, err := NewHistoryStore(filepath.Join(t.TempDir(), "h.db"), 0, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for maxRows = 0")
	}
}
