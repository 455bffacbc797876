package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Kind labels which compression path produced a record.
const (
	KindCode     = "code"
	KindPrompt   = "prompt"
	KindCombined = "combined"
	KindPack     = "pack"
)

// Record is one compression request's outcome.
type Record struct {
	RequestID        string
	Kind             string
	OriginalTokens   int
	CompressedTokens int
	TokensSaved      int
	SavingsPercent   float64
	DurationMs       int64
	CreatedAt        time.Time
}

// Stats aggregates the history table.
type Stats struct {
	Requests         int64   `json:"requests"`
	OriginalTokens   int64   `json:"original_tokens"`
	CompressedTokens int64   `json:"compressed_tokens"`
	TokensSaved      int64   `json:"tokens_saved"`
	AvgSavingsPct    float64 `json:"avg_savings_percentage"`
}

// History persists compression outcomes to sqlite.
type History struct {
	db *sql.DB
}

// OpenHistory opens (creating if needed) the history database at path and
// applies the schema.
func OpenHistory(path string) (*History, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	h := &History{db: db}
	if err := h.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return h, nil
}

func (h *History) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS compressions (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id        TEXT NOT NULL,
		kind              TEXT NOT NULL,
		original_tokens   INTEGER NOT NULL,
		compressed_tokens INTEGER NOT NULL,
		tokens_saved      INTEGER NOT NULL,
		savings_pct       REAL NOT NULL,
		duration_ms       INTEGER NOT NULL DEFAULT 0,
		created_at        DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_compressions_kind ON compressions(kind);
	`
	_, err := h.db.Exec(schema)
	return err
}

// Record inserts one compression outcome.
func (h *History) Record(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO compressions
		 (request_id, kind, original_tokens, compressed_tokens, tokens_saved, savings_pct, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.Kind, rec.OriginalTokens, rec.CompressedTokens,
		rec.TokensSaved, rec.SavingsPercent, rec.DurationMs, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert compression record: %w", err)
	}
	return nil
}

// Stats aggregates all recorded compressions.
func (h *History) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	row := h.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(original_tokens), 0),
		        COALESCE(SUM(compressed_tokens), 0),
		        COALESCE(SUM(tokens_saved), 0),
		        COALESCE(AVG(savings_pct), 0)
		 FROM compressions`)
	if err := row.Scan(&s.Requests, &s.OriginalTokens, &s.CompressedTokens, &s.TokensSaved, &s.AvgSavingsPct); err != nil {
		return Stats{}, fmt.Errorf("aggregate history: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (h *History) Close() error {
	return h.db.Close()
}
