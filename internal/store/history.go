package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS scans (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	url        TEXT NOT NULL,
	platform   TEXT NOT NULL,
	track_id   TEXT NOT NULL,
	scanned_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_scans_scanned_at ON scans(scanned_at);
`

// ScanRecord is one successfully classified URL.
type ScanRecord struct {
	ID        int64
	URL       string
	Platform  string
	TrackID   string
	ScannedAt time.Time
}

// HistoryStore persists scan history to sqlite. Writes are best-effort:
// callers log and continue on error rather than failing a request.
type HistoryStore struct {
	db      *sql.DB
	maxRows int
	logger  *zap.Logger
}

// NewHistoryStore opens (or creates) the sqlite database at path and
// applies the schema. maxRows bounds the retained history.
func NewHistoryStore(path string, maxRows int, logger *zap.Logger) (*HistoryStore, error) {
	if maxRows <= 0 {
		return nil, fmt.Errorf("maxRows must be positive, got %d", maxRows)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure history database: %w", err)
	}
	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply history schema: %w", err)
	}

	logger.Debug("History store opened",
		zap.String("path", path),
		zap.Int("max_rows", maxRows))

	return &HistoryStore{
		db:      db,
		maxRows: maxRows,
		logger:  logger,
	}, nil
}

// Record inserts a scan and trims the table back to maxRows.
func (h *HistoryStore) Record(ctx context.Context, url, platform, trackID string) error {
	_, err := h.db.ExecContext(ctx,
		"INSERT INTO scans (url, platform, track_id) VALUES (?, ?, ?)",
		url, platform, trackID)
	if err != nil {
		return fmt.Errorf("failed to record scan: %w", err)
	}

	// Trim in the same call so the table never grows past the bound
	// by more than one insert.
	_, err = h.db.ExecContext(ctx, `
		DELETE FROM scans WHERE id NOT IN (
			SELECT id FROM scans ORDER BY id DESC LIMIT ?
		)`, h.maxRows)
	if err != nil {
		return fmt.Errorf("failed to trim scan history: %w", err)
	}
	return nil
}

// Recent returns up to limit scans, newest first.
func (h *HistoryStore) Recent(ctx context.Context, limit int) ([]ScanRecord, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, url, platform, track_id, scanned_at
		FROM scans ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan history: %w", err)
	}
	defer rows.Close()

	var records []ScanRecord
	for rows.Next() {
		var r ScanRecord
		if err := rows.Scan(&r.ID, &r.URL, &r.Platform, &r.TrackID, &r.ScannedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (h *HistoryStore) Close() error {
	return h.db.Close()
}
