package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"credibility-stack/internal/models"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// History keeps a summary of every analysis run so consecutive runs for the
// same keyword can be compared.
type History struct {
	db     *sql.DB
	maxAge time.Duration
}

const createRunsSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	keyword TEXT NOT NULL,
	ran_at INTEGER NOT NULL,
	sentiment TEXT,
	positive INTEGER,
	neutral INTEGER,
	negative INTEGER,
	video_count INTEGER,
	avg_views REAL,
	avg_likes REAL,
	themes TEXT,
	aligned INTEGER,
	fetch_errors INTEGER
);

CREATE INDEX IF NOT EXISTS runs_keyword_ran_at ON runs (keyword, ran_at);
`

// NewHistory opens (or creates) history.db under dataDir. Runs older than
// maxAge are pruned on open; a zero maxAge keeps everything.
func NewHistory(dataDir string, maxAge time.Duration) (*History, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("storage: create data directory: %w", err)
	}
	return Open(filepath.Join(dataDir, "history.db"), maxAge)
}

// Open opens the database at dbPath directly.
func Open(dbPath string, maxAge time.Duration) (*History, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: set WAL mode: %w", err)
	}

	if _, err := db.Exec(createRunsSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: create tables: %w", err)
	}

	h := &History{db: db, maxAge: maxAge}
	if _, err := h.Prune(time.Now()); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

func (h *History) Close() error {
	return h.db.Close()
}

// SaveRun stores a run. An empty ID is filled with a new UUID and a zero
// RanAt with the current time; both are written back into rec.
func (h *History) SaveRun(rec *models.RunRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.RanAt.IsZero() {
		rec.RanAt = time.Now()
	}

	themes, err := json.Marshal(rec.Themes)
	if err != nil {
		return fmt.Errorf("storage: encode themes: %w", err)
	}

	_, err = h.db.Exec(
		`INSERT OR REPLACE INTO runs (id, keyword, ran_at, sentiment, positive, neutral, negative,
			video_count, avg_views, avg_likes, themes, aligned, fetch_errors)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Keyword, rec.RanAt.UnixNano(), rec.Sentiment, rec.Positive, rec.Neutral, rec.Negative,
		rec.VideoCount, rec.AvgViews, rec.AvgLikes, string(themes), rec.Aligned, rec.FetchErrors,
	)
	if err != nil {
		return fmt.Errorf("storage: save run %s: %w", rec.ID, err)
	}
	return nil
}

// LastRun returns the most recent run for keyword, or nil if there is none.
func (h *History) LastRun(keyword string) (*models.RunRecord, error) {
	rows, err := h.db.Query(selectRunsSQL+` WHERE keyword = ? ORDER BY ran_at DESC LIMIT 1`, keyword)
	if err != nil {
		return nil, fmt.Errorf("storage: last run for %q: %w", keyword, err)
	}
	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

// RecentRuns returns up to limit runs for keyword, newest first.
func (h *History) RecentRuns(keyword string, limit int) ([]*models.RunRecord, error) {
	rows, err := h.db.Query(selectRunsSQL+` WHERE keyword = ? ORDER BY ran_at DESC LIMIT ?`, keyword, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: recent runs for %q: %w", keyword, err)
	}
	return scanRuns(rows)
}

// Prune deletes runs older than the configured max age relative to now and
// returns how many were removed.
func (h *History) Prune(now time.Time) (int64, error) {
	if h.maxAge <= 0 {
		return 0, nil
	}
	res, err := h.db.Exec(`DELETE FROM runs WHERE ran_at < ?`, now.Add(-h.maxAge).UnixNano())
	if err != nil {
		return 0, fmt.Errorf("storage: prune runs: %w", err)
	}
	return res.RowsAffected()
}

const selectRunsSQL = `SELECT id, keyword, ran_at, sentiment, positive, neutral, negative,
	video_count, avg_views, avg_likes, themes, aligned, fetch_errors FROM runs`

func scanRuns(rows *sql.Rows) ([]*models.RunRecord, error) {
	defer rows.Close()

	var runs []*models.RunRecord
	for rows.Next() {
		var (
			rec    models.RunRecord
			ranAt  int64
			themes string
		)
		if err := rows.Scan(&rec.ID, &rec.Keyword, &ranAt, &rec.Sentiment, &rec.Positive, &rec.Neutral, &rec.Negative,
			&rec.VideoCount, &rec.AvgViews, &rec.AvgLikes, &themes, &rec.Aligned, &rec.FetchErrors); err != nil {
			return nil, fmt.Errorf("storage: scan run: %w", err)
		}
		rec.RanAt = time.Unix(0, ranAt)
		if err := json.Unmarshal([]byte(themes), &rec.Themes); err != nil {
			return nil, fmt.Errorf("storage: decode themes for run %s: %w", rec.ID, err)
		}
		runs = append(runs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate runs: %w", err)
	}
	return runs, nil
}
