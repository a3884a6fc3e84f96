package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sandwich-alignment/alignment/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS submission (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    note TEXT NOT NULL DEFAULT '',
    source TEXT NOT NULL DEFAULT '',
    label_top TEXT NOT NULL DEFAULT '',
    label_bottom TEXT NOT NULL DEFAULT '',
    label_left TEXT NOT NULL DEFAULT '',
    label_right TEXT NOT NULL DEFAULT '',
    placement_count INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_submission_created_at ON submission(created_at);
CREATE INDEX IF NOT EXISTS idx_submission_source ON submission(source);

CREATE TABLE IF NOT EXISTS placement (
    submission_id TEXT NOT NULL REFERENCES submission(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    item_id TEXT NOT NULL,
    x REAL,
    y REAL,
    PRIMARY KEY (submission_id, position)
);

CREATE INDEX IF NOT EXISTS idx_placement_submission_id ON placement(submission_id);
`

// CreateSchema creates the submission tables.
// Safe to call multiple times.
func CreateSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SQLiteStore persists submissions in a SQLite database
type SQLiteStore struct {
	db *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// OpenSQLite opens the database at path and creates the schema
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := CreateSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Insert(ctx context.Context, sub models.Submission) (string, error) {
	sub, err := prepare(sub)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO submission (id, note, source, label_top, label_bottom, label_left, label_right, placement_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID,
		sub.Note,
		sub.Source,
		sub.AxisLabels.Top,
		sub.AxisLabels.Bottom,
		sub.AxisLabels.Left,
		sub.AxisLabels.Right,
		len(sub.Placements),
		toMillis(sub.SubmittedAt),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert submission: %w", err)
	}

	for i, p := range sub.Placements {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO placement (submission_id, position, item_id, x, y) VALUES (?, ?, ?, ?, ?)`,
			sub.ID, i, p.ItemID, nullFloat(p.X), nullFloat(p.Y),
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert placement %s: %w", p.ItemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit submission: %w", err)
	}
	return sub.ID, nil
}

// listFilter renders opts as a WHERE clause over the submission table aliased s
func listFilter(opts ListOptions) (string, []any) {
	where := ` WHERE s.placement_count >= ?`
	args := []any{opts.MinPlacements}
	if opts.Source != "" {
		where += ` AND s.source = ?`
		args = append(args, opts.Source)
	}
	return where, args
}

func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) ([]models.Submission, error) {
	where, args := listFilter(opts)
	query := `SELECT s.id, s.note, s.source, s.label_top, s.label_bottom, s.label_left, s.label_right, s.created_at
		FROM submission s` + where + ` ORDER BY s.created_at DESC, s.seq DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var result []models.Submission
	index := make(map[string]int)
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		index[sub.ID] = len(result)
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read submissions: %w", err)
	}
	rows.Close()

	if len(result) == 0 {
		return []models.Submission{}, nil
	}

	placements, err := s.db.QueryContext(ctx,
		`SELECT p.submission_id, p.item_id, p.x, p.y
		 FROM placement p JOIN submission s ON s.id = p.submission_id`+where+
			` ORDER BY p.submission_id, p.position`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query placements: %w", err)
	}
	defer placements.Close()

	for placements.Next() {
		var submissionID string
		var p models.SubmittedPlacement
		var x, y sql.NullFloat64
		if err := placements.Scan(&submissionID, &p.ItemID, &x, &y); err != nil {
			return nil, fmt.Errorf("failed to scan placement: %w", err)
		}
		i, ok := index[submissionID]
		if !ok {
			continue
		}
		p.X = floatPtr(x)
		p.Y = floatPtr(y)
		result[i].Placements = append(result[i].Placements, p)
	}
	if err := placements.Err(); err != nil {
		return nil, fmt.Errorf("failed to read placements: %w", err)
	}

	return result, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (models.Submission, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, note, source, label_top, label_bottom, label_left, label_right, created_at
		 FROM submission WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if err == sql.ErrNoRows {
		return models.Submission{}, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Submission{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, x, y FROM placement WHERE submission_id = ? ORDER BY position`, id)
	if err != nil {
		return models.Submission{}, fmt.Errorf("failed to query placements: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.SubmittedPlacement
		var x, y sql.NullFloat64
		if err := rows.Scan(&p.ItemID, &x, &y); err != nil {
			return models.Submission{}, fmt.Errorf("failed to scan placement: %w", err)
		}
		p.X = floatPtr(x)
		p.Y = floatPtr(y)
		sub.Placements = append(sub.Placements, p)
	}
	if err := rows.Err(); err != nil {
		return models.Submission{}, fmt.Errorf("failed to read placements: %w", err)
	}
	return sub, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM placement`); err != nil {
		return 0, fmt.Errorf("failed to delete placements: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM submission`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete submissions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted submissions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit clear: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner) (models.Submission, error) {
	var sub models.Submission
	var createdAt int64
	err := row.Scan(
		&sub.ID,
		&sub.Note,
		&sub.Source,
		&sub.AxisLabels.Top,
		&sub.AxisLabels.Bottom,
		&sub.AxisLabels.Left,
		&sub.AxisLabels.Right,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return sub, err
	}
	if err != nil {
		return sub, fmt.Errorf("failed to scan submission: %w", err)
	}
	sub.SubmittedAt = fromMillis(createdAt)
	return sub, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
