// Command validate checks the integrity of a stored monthly dataset: that it
// loads, that every record carries its key fields, that dates fall inside the
// forecast window of the month, and that temperatures are numeric.
//
// Usage:
//
//	go run ./cmd/validate -month 052024 [-data-dir .] [-backend csv|sqlite] [-sqlite mountain_forecasts.db]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/mountain-forecast-etl/internal/adapter/csvstore"
	"github.com/couchcryptid/mountain-forecast-etl/internal/adapter/sqlitestore"
	"github.com/couchcryptid/mountain-forecast-etl/internal/config"
	"github.com/couchcryptid/mountain-forecast-etl/internal/domain"
)

// maxLookahead bounds how far past month end a scrape on the last day can reach.
const maxLookahead = 14

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	month := flag.String("month", "", "month to validate as MMYYYY")
	dataDir := flag.String("data-dir", ".", "directory holding CSV datasets")
	backend := flag.String("backend", config.BackendCSV, "dataset backend: csv or sqlite")
	sqlitePath := flag.String("sqlite", "mountain_forecasts.db", "SQLite database path")
	flag.Parse()

	if *month == "" {
		flag.Usage()
		os.Exit(1)
	}
	t, err := time.Parse("012006", *month)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: month %q: want MMYYYY\n", *month)
		os.Exit(1)
	}
	cal := domain.Calendar{Year: t.Year(), Month: t.Month()}

	ds, err := load(context.Background(), *backend, *dataDir, *sqlitePath, cal)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load dataset: %v\n", err)
		os.Exit(1)
	}
	if ds == nil {
		fmt.Fprintf(os.Stderr, "FATAL: no dataset for %s\n", *month)
		os.Exit(1)
	}

	os.Exit(report(*ds, cal))
}

func load(ctx context.Context, backend, dataDir, sqlitePath string, cal domain.Calendar) (*domain.Dataset, error) {
	switch backend {
	case config.BackendCSV:
		return csvstore.New(dataDir).Load(ctx, cal)
	case config.BackendSQLite:
		s, err := sqlitestore.Open(ctx, sqlitePath)
		if err != nil {
			return nil, err
		}
		defer s.Close()
		return s.Load(ctx, cal)
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

// report prints the phase results and returns the process exit code.
func report(ds domain.Dataset, cal domain.Calendar) int {
	fmt.Println("=== Mountain Forecast Dataset Validation ===")
	fmt.Println()

	phases := []*phase{
		validateFields(ds),
		validateDates(ds, cal),
		validateTemperatures(ds),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d across %d mountain pages\n", ds.Len(), len(ds.Group()))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validateFields(ds domain.Dataset) *phase {
	p := &phase{name: "Key fields present"}
	for i, r := range ds.Records {
		if r.Mountain == "" || r.Elevation == "" || r.TimeOfDay == "" {
			p.errorf("record %d (%s): empty key field", i, r.Key())
		}
	}
	return p
}

func validateDates(ds domain.Dataset, cal domain.Calendar) *phase {
	p := &phase{name: "Dates within forecast window"}
	first := time.Date(cal.Year, cal.Month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, maxLookahead)
	for i, r := range ds.Records {
		if r.Date.Before(first) || !r.Date.Before(last) {
			p.errorf("record %d (%s): date outside %s..%s", i, r.Key(),
				first.Format(domain.DateLayout), last.Format(domain.DateLayout))
		}
	}
	return p
}

func validateTemperatures(ds domain.Dataset) *phase {
	p := &phase{name: "Temperatures numeric"}
	check := func(i int, r domain.TimeSlotRecord, field, v string) {
		if v == "" || v == "-" {
			return
		}
		if _, err := strconv.Atoi(v); err != nil {
			p.errorf("record %d (%s): %s %q is not a number", i, r.Key(), field, v)
		}
	}
	for i, r := range ds.Records {
		check(i, r, "max_temperature", r.MaxTemperature)
		check(i, r, "min_temperature", r.MinTemperature)
	}
	return p
}
