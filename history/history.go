package history

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS studies (
	id            TEXT PRIMARY KEY,
	test_name     TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	observable    TEXT NOT NULL,
	attempted     INTEGER NOT NULL,
	succeeded     INTEGER NOT NULL,
	expected_rate REAL NOT NULL,
	pass          INTEGER NOT NULL,
	degraded      INTEGER NOT NULL,
	reference     REAL,
	reference_kind TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS studies_created ON studies(created_at);
`

// Entry summarises one convergence study.
type Entry struct {
	ID            string
	TestName      string
	CreatedAt     time.Time
	Observable    string
	Attempted     int
	Succeeded     int
	ExpectedRate  float64
	Pass          bool
	Degraded      bool
	Reference     float64 // NaN when the study had no reference value
	ReferenceKind string
}

type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Record(ctx context.Context, e Entry) error {
	var ref sql.NullFloat64
	if !math.IsNaN(e.Reference) {
		ref = sql.NullFloat64{Float64: e.Reference, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO studies
		(id, test_name, created_at, observable, attempted, succeeded, expected_rate, pass, degraded, reference, reference_kind)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TestName, e.CreatedAt.UTC().Format(timeLayout), e.Observable,
		e.Attempted, e.Succeeded, e.ExpectedRate, e.Pass, e.Degraded, ref, e.ReferenceKind)
	if err != nil {
		return fmt.Errorf("record study %s: %w", e.ID, err)
	}
	return nil
}

// List returns the most recent studies first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) (entries []Entry, err error) {
	q := `SELECT id, test_name, created_at, observable, attempted, succeeded,
		expected_rate, pass, degraded, reference, reference_kind
		FROM studies ORDER BY created_at DESC`
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list studies: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			e       Entry
			created string
			ref     sql.NullFloat64
		)
		if err = rows.Scan(&e.ID, &e.TestName, &created, &e.Observable, &e.Attempted, &e.Succeeded,
			&e.ExpectedRate, &e.Pass, &e.Degraded, &ref, &e.ReferenceKind); err != nil {
			return nil, fmt.Errorf("scan study: %w", err)
		}
		if e.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", created, err)
		}
		e.Reference = math.NaN()
		if ref.Valid {
			e.Reference = ref.Float64
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
