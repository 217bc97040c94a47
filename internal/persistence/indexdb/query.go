package indexdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("indexdb: not found")

// Reader runs read-only queries against an index. Rows still queued in the
// writer are not visible until it commits.
type Reader struct {
	db    *sqlx.DB
	owned bool
}

func (s *SQLiteIndex) Reader() *Reader { return &Reader{db: s.db} }

// OpenReader opens an existing index file without starting a writer.
func OpenReader(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &Reader{db: db, owned: true}, nil
}

func (r *Reader) Close() error {
	if !r.owned {
		return nil
	}
	return r.db.Close()
}

func (r *Reader) Runs(ctx context.Context) ([]RunRow, error) {
	var out []RunRow
	err := r.db.SelectContext(ctx, &out, `SELECT run_id,seed,city_name,started_at FROM runs ORDER BY started_at`)
	return out, err
}

// Saves lists indexed saves, newest first.
func (r *Reader) Saves(ctx context.Context) ([]SaveRow, error) {
	var out []SaveRow
	err := r.db.SelectContext(ctx, &out, `SELECT * FROM saves ORDER BY recorded_at DESC, path`)
	return out, err
}

// StatsHistory returns the daily rows of a run between two days inclusive.
func (r *Reader) StatsHistory(ctx context.Context, runID string, fromDay, toDay int64) ([]StatsRow, error) {
	var out []StatsRow
	err := r.db.SelectContext(ctx, &out,
		`SELECT * FROM stats WHERE run_id=? AND day BETWEEN ? AND ? ORDER BY day`,
		runID, fromDay, toDay)
	return out, err
}

func (r *Reader) LastTick(ctx context.Context, runID string) (TickRow, error) {
	var t TickRow
	err := r.db.GetContext(ctx, &t, `SELECT * FROM ticks WHERE run_id=? ORDER BY tick DESC LIMIT 1`, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return t, fmt.Errorf("%w: ticks for run %s", ErrNotFound, runID)
	}
	return t, err
}

// ActionCounts tallies recorded actions by kind for a run.
func (r *Reader) ActionCounts(ctx context.Context, runID string) (map[string]int, error) {
	var rows []struct {
		Kind string `db:"kind"`
		N    int    `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT kind, COUNT(*) AS n FROM actions WHERE run_id=? GROUP BY kind`, runID); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Kind] = row.N
	}
	return out, nil
}

func (r *Reader) Years(ctx context.Context) ([]YearRow, error) {
	var out []YearRow
	err := r.db.SelectContext(ctx, &out, `SELECT * FROM years ORDER BY year`)
	return out, err
}

func (r *Reader) CatalogDigest(ctx context.Context, name string) (string, error) {
	var d string
	err := r.db.GetContext(ctx, &d, `SELECT digest FROM catalogs WHERE name=?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: catalog %s", ErrNotFound, name)
	}
	return d, err
}
