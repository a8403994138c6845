// Package csvstore persists monthly datasets as CSV files named
// MMYYYY_mountain_forecasts.csv.
package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/couchcryptid/mountain-forecast-etl/internal/domain"
)

// Columns is the header row of a dataset file. The first four form the key.
var Columns = []string{"mountain", "date", "elevation", "time", "summary", "max_temperature", "min_temperature"}

// Store reads and writes dataset files in a directory.
// It implements pipeline.DatasetStore.
type Store struct {
	dir string
}

// New creates a Store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// FileName returns the dataset file name for a month, e.g. "052024_mountain_forecasts.csv".
func FileName(cal domain.Calendar) string {
	return fmt.Sprintf("%02d%d_mountain_forecasts.csv", int(cal.Month), cal.Year)
}

// Path returns the full path of the dataset file for a month.
func (s *Store) Path(cal domain.Calendar) string {
	return filepath.Join(s.dir, FileName(cal))
}

// Load reads the month's dataset. A missing file returns (nil, nil); any
// other read or format problem is a *domain.MergeError.
func (s *Store) Load(_ context.Context, cal domain.Calendar) (*domain.Dataset, error) {
	path := s.Path(cal)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.MergeError{Source: path, Cause: err}
	}
	defer f.Close()

	ds, err := Read(f)
	if err != nil {
		return nil, &domain.MergeError{Source: path, Cause: err}
	}
	return ds, nil
}

// Save writes the dataset to the month's file through a temp file and rename.
func (s *Store) Save(_ context.Context, cal domain.Calendar, ds domain.Dataset) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	path := s.Path(cal)
	tmp, err := os.CreateTemp(s.dir, "."+FileName(cal)+".*")
	if err != nil {
		return fmt.Errorf("create temp dataset: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if err := Write(tmp, ds); err != nil {
		tmp.Close()
		return fmt.Errorf("write dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp dataset: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace dataset: %w", err)
	}
	return nil
}

// Read parses a dataset from CSV. The header must match Columns exactly and
// keys must be unique.
func Read(r io.Reader) (*domain.Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Columns)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !slices.Equal(header, Columns) {
		return nil, fmt.Errorf("unexpected header %v", header)
	}

	ds := &domain.Dataset{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		date, err := domain.ParseDate(row[1])
		if err != nil {
			line, _ := cr.FieldPos(1)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ds.Records = append(ds.Records, domain.TimeSlotRecord{
			Mountain:       row[0],
			Date:           date,
			DayOfWeek:      domain.Weekday(date),
			Elevation:      row[2],
			TimeOfDay:      row[3],
			Summary:        row[4],
			MaxTemperature: row[5],
			MinTemperature: row[6],
		})
	}

	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// Write encodes a dataset as CSV with a header row.
func Write(w io.Writer, ds domain.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range ds.Records {
		k := r.Key()
		if err := cw.Write([]string{k.Mountain, k.Date, k.Elevation, k.Time, r.Summary, r.MaxTemperature, r.MinTemperature}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
