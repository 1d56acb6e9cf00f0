package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/crunchio/activityd/internal/model"

	_ "modernc.org/sqlite"
)

const createRequestsTable = `
CREATE TABLE IF NOT EXISTS requests (
    id          TEXT PRIMARY KEY,
    surface     TEXT NOT NULL,
    outcome     TEXT NOT NULL,
    detail      TEXT,
    duration_ms INTEGER NOT NULL,
    created_at  DATETIME NOT NULL
)`

// ErrNotFound is returned when a request record is not found.
var ErrNotFound = errors.New("request not found")

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createRequestsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create requests table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertRequest inserts a new request record.
func (s *SQLiteStore) InsertRequest(ctx context.Context, r *model.RequestRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO requests (id, surface, outcome, detail, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Surface, r.Outcome, r.Detail, r.DurationMS, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

// GetRequest retrieves a request record by ID.
func (s *SQLiteStore) GetRequest(ctx context.Context, id string) (*model.RequestRecord, error) {
	r := &model.RequestRecord{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, surface, outcome, detail, duration_ms, created_at
		FROM requests WHERE id = ?`, id,
	).Scan(&r.ID, &r.Surface, &r.Outcome, &r.Detail, &r.DurationMS, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	return r, nil
}

// ListRequests returns a paginated list of request records ordered by
// created_at DESC, along with the total count of all records.
func (s *SQLiteStore) ListRequests(ctx context.Context, limit, offset int) ([]*model.RequestRecord, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM requests").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, surface, outcome, detail, duration_ms, created_at
		FROM requests ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var records []*model.RequestRecord
	for rows.Next() {
		r := &model.RequestRecord{}
		if err := rows.Scan(&r.ID, &r.Surface, &r.Outcome, &r.Detail, &r.DurationMS, &r.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan request: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate requests: %w", err)
	}

	return records, total, nil
}

// GetRequestStats aggregates counts by surface and outcome plus the average
// request duration.
func (s *SQLiteStore) GetRequestStats(ctx context.Context) (*RequestStats, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	stats := &RequestStats{
		CountBySurface: make(map[string]int),
		CountByOutcome: make(map[string]int),
	}

	var avg sql.NullFloat64
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*), AVG(duration_ms) FROM requests",
	).Scan(&stats.Total, &avg); err != nil {
		return nil, fmt.Errorf("count requests: %w", err)
	}
	if avg.Valid {
		stats.AvgDurationMS = avg.Float64
	}

	surfaceRows, err := tx.QueryContext(ctx, "SELECT surface, COUNT(*) FROM requests GROUP BY surface")
	if err != nil {
		return nil, fmt.Errorf("count by surface: %w", err)
	}
	defer surfaceRows.Close()
	for surfaceRows.Next() {
		var surface string
		var count int
		if err := surfaceRows.Scan(&surface, &count); err != nil {
			return nil, fmt.Errorf("scan surface count: %w", err)
		}
		stats.CountBySurface[surface] = count
	}
	if err := surfaceRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate surface counts: %w", err)
	}

	outcomeRows, err := tx.QueryContext(ctx, "SELECT outcome, COUNT(*) FROM requests GROUP BY outcome")
	if err != nil {
		return nil, fmt.Errorf("count by outcome: %w", err)
	}
	defer outcomeRows.Close()
	for outcomeRows.Next() {
		var outcome string
		var count int
		if err := outcomeRows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan outcome count: %w", err)
		}
		stats.CountByOutcome[outcome] = count
	}
	if err := outcomeRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome counts: %w", err)
	}

	return stats, nil
}
