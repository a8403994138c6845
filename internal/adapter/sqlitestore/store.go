// Package sqlitestore persists monthly datasets as SQLite tables, one table
// per month, keyed on (mountain, date, elevation, time).
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/couchcryptid/mountain-forecast-etl/internal/domain"

	_ "modernc.org/sqlite" // SQLite driver
)

// Store reads and writes datasets in a SQLite database.
// It implements pipeline.DatasetStore.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection keeps the rewrite serialized.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// TableName returns the table holding a month's dataset, e.g. "mountain_forecasts_052024".
func TableName(cal domain.Calendar) string {
	return fmt.Sprintf("mountain_forecasts_%02d%d", int(cal.Month), cal.Year)
}

// Load reads the month's dataset in stored order. A missing table returns
// (nil, nil); unreadable rows are a *domain.MergeError.
func (s *Store) Load(ctx context.Context, cal domain.Calendar) (*domain.Dataset, error) {
	table := TableName(cal)

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
	if err != nil {
		return nil, fmt.Errorf("look up table %s: %w", table, err)
	}
	if n == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT mountain, date, elevation, time, summary, max_temperature, min_temperature
		 FROM %s ORDER BY seq`, table))
	if err != nil {
		return nil, &domain.MergeError{Source: table, Cause: err}
	}
	defer rows.Close()

	ds := &domain.Dataset{}
	for rows.Next() {
		var (
			r    domain.TimeSlotRecord
			date string
		)
		if err := rows.Scan(&r.Mountain, &date, &r.Elevation, &r.TimeOfDay, &r.Summary, &r.MaxTemperature, &r.MinTemperature); err != nil {
			return nil, &domain.MergeError{Source: table, Cause: err}
		}
		r.Date, err = domain.ParseDate(date)
		if err != nil {
			return nil, &domain.MergeError{Source: table, Cause: err}
		}
		r.DayOfWeek = domain.Weekday(r.Date)
		ds.Records = append(ds.Records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.MergeError{Source: table, Cause: err}
	}
	if err := ds.Validate(); err != nil {
		return nil, &domain.MergeError{Source: table, Cause: err}
	}
	return ds, nil
}

// Save replaces the month's table contents with ds in one transaction.
func (s *Store) Save(ctx context.Context, cal domain.Calendar, ds domain.Dataset) error {
	table := TableName(cal)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		seq             INTEGER NOT NULL,
		mountain        TEXT NOT NULL,
		date            TEXT NOT NULL,
		elevation       TEXT NOT NULL,
		time            TEXT NOT NULL,
		summary         TEXT NOT NULL,
		max_temperature TEXT NOT NULL,
		min_temperature TEXT NOT NULL,
		PRIMARY KEY (mountain, date, elevation, time)
	)`, table)); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
		return fmt.Errorf("clear table %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (seq, mountain, date, elevation, time, summary, max_temperature, min_temperature)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, table))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range ds.Records {
		k := r.Key()
		if _, err := stmt.ExecContext(ctx, i, k.Mountain, k.Date, k.Elevation, k.Time,
			r.Summary, r.MaxTemperature, r.MinTemperature); err != nil {
			return fmt.Errorf("insert %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit dataset: %w", err)
	}
	return nil
}
