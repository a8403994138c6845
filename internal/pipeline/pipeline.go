package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/mountain-forecast-etl/internal/domain"
	"github.com/couchcryptid/mountain-forecast-etl/internal/observability"
	"github.com/google/uuid"
)

// PageSource lists the forecast pages to scrape and fetches their tables.
type PageSource interface {
	Pages(ctx context.Context) ([]domain.ForecastPage, error)
	FetchTable(ctx context.Context, page domain.ForecastPage) (domain.ForecastTable, error)
}

// DatasetStore persists one dataset per calendar month. Load returns
// (nil, nil) when the month has no dataset yet.
type DatasetStore interface {
	Load(ctx context.Context, cal domain.Calendar) (*domain.Dataset, error)
	Save(ctx context.Context, cal domain.Calendar, ds domain.Dataset) error
}

// Publisher forwards the records of a run downstream.
type Publisher interface {
	Publish(ctx context.Context, records []domain.TimeSlotRecord) error
}

// Options tune how a run treats calendar and page failures.
type Options struct {
	// ResolveMonths stamps the next month on headers that roll over instead
	// of failing the page with domain.ErrAmbiguousMonthBoundary.
	ResolveMonths bool
	// FailFast aborts the run on the first page that cannot be fetched or decoded.
	FailFast bool
}

// PageFailure records a page skipped during a run.
type PageFailure struct {
	Page  domain.ForecastPage `json:"page"`
	Error string              `json:"error"`
}

// Result summarizes one run.
type Result struct {
	RunID       string                    `json:"run_id"`
	StartedAt   time.Time                 `json:"started_at"`
	Duration    time.Duration             `json:"duration_ns"`
	Calendar    domain.Calendar           `json:"calendar"`
	Forecasts   []domain.MountainForecast `json:"forecasts"`
	Failures    []PageFailure             `json:"failures,omitempty"`
	Inserted    int                       `json:"inserted"`
	Updated     int                       `json:"updated"`
	DatasetSize int                       `json:"dataset_size"`
}

// Pipeline runs scrape, decode, merge and publish for the current month.
type Pipeline struct {
	source    PageSource
	store     DatasetStore
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	opts      Options

	ready atomic.Bool
	mu    sync.RWMutex
	last  *Result
}

// New creates a Pipeline. publisher may be nil.
func New(src PageSource, store DatasetStore, pub Publisher, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	return &Pipeline{
		source:    src,
		store:     store,
		publisher: pub,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
	}
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// Last returns the result of the most recent successful run.
func (p *Pipeline) Last() (Result, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return Result{}, false
	}
	return *p.last, true
}

// Run performs one complete scrape of every page and merges the records
// into the current month's dataset.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	res := Result{
		RunID:     uuid.NewString(),
		StartedAt: domain.Now(),
		Calendar:  domain.Today(),
	}
	logger := p.logger.With("run_id", res.RunID)
	logger.Info("run started", "month", res.Calendar.Month, "year", res.Calendar.Year)

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	if err := p.run(ctx, logger, &res); err != nil {
		p.metrics.RunsTotal.WithLabelValues("error").Inc()
		logger.Error("run failed", "error", err)
		return res, err
	}

	res.Duration = domain.Now().Sub(res.StartedAt)
	p.metrics.RunsTotal.WithLabelValues("success").Inc()
	p.metrics.RunDuration.Observe(res.Duration.Seconds())

	p.mu.Lock()
	p.last = &res
	p.mu.Unlock()
	p.ready.Store(true)

	logger.Info("run complete",
		"pages", len(res.Forecasts),
		"failed", len(res.Failures),
		"inserted", res.Inserted,
		"updated", res.Updated,
		"dataset_size", res.DatasetSize,
		"duration", res.Duration,
	)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, res *Result) error {
	pages, err := p.source.Pages(ctx)
	if err != nil {
		return fmt.Errorf("list pages: %w", err)
	}

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		records, err := p.scrape(ctx, page, res.Calendar)
		if err != nil {
			if p.opts.FailFast || ctx.Err() != nil {
				return err
			}
			logger.Warn("skipping page", "mountain", page.Mountain, "elevation", page.Elevation, "error", err)
			res.Failures = append(res.Failures, PageFailure{Page: page, Error: err.Error()})
			continue
		}
		res.Forecasts = append(res.Forecasts, domain.MountainForecast{
			Mountain:  page.Mountain,
			Elevation: page.Elevation,
			Records:   records,
		})
	}

	incoming := domain.Flatten(res.Forecasts)
	p.metrics.RecordsScraped.Add(float64(len(incoming)))

	existing, err := p.store.Load(ctx, res.Calendar)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	res.Inserted, res.Updated = countUpserts(existing, incoming)

	merged := domain.Merge(existing, incoming)
	if err := p.store.Save(ctx, res.Calendar, merged); err != nil {
		return fmt.Errorf("save dataset: %w", err)
	}
	res.DatasetSize = merged.Len()
	p.metrics.DatasetRecords.Set(float64(merged.Len()))
	p.metrics.RecordsUpserted.WithLabelValues("inserted").Add(float64(res.Inserted))
	p.metrics.RecordsUpserted.WithLabelValues("updated").Add(float64(res.Updated))

	if p.publisher != nil && len(incoming) > 0 {
		if err := p.publisher.Publish(ctx, incoming); err != nil {
			// The dataset is already saved; the next run republishes.
			logger.Warn("publish failed", "error", err, "records", len(incoming))
		} else {
			p.metrics.RecordsPublished.Add(float64(len(incoming)))
		}
	}
	return nil
}

// scrape fetches and decodes a single page.
func (p *Pipeline) scrape(ctx context.Context, page domain.ForecastPage, cal domain.Calendar) ([]domain.TimeSlotRecord, error) {
	table, err := p.source.FetchTable(ctx, page)
	if err != nil {
		p.metrics.PagesFetched.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%s (%s): %w", page.Mountain, page.Elevation, err)
	}
	p.metrics.PagesFetched.WithLabelValues("success").Inc()

	if p.opts.ResolveMonths {
		table.Days = domain.ResolveMonths(table.Days, cal)
	}
	records, err := domain.Decode(table, page.Mountain, page.Elevation, cal)
	if err != nil {
		p.metrics.DecodeErrors.WithLabelValues(decodeReason(err)).Inc()
		return nil, err
	}
	return records, nil
}

// countUpserts splits the distinct incoming keys into new and replaced ones.
func countUpserts(existing *domain.Dataset, incoming []domain.TimeSlotRecord) (inserted, updated int) {
	stored := make(map[domain.Key]struct{})
	if existing != nil {
		for _, r := range existing.Records {
			stored[r.Key()] = struct{}{}
		}
	}
	seen := make(map[domain.Key]struct{}, len(incoming))
	for _, r := range incoming {
		k := r.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := stored[k]; ok {
			updated++
		} else {
			inserted++
		}
	}
	return inserted, updated
}

func decodeReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMismatchedColumnCount):
		return "mismatched_columns"
	case errors.Is(err, domain.ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, domain.ErrAmbiguousMonthBoundary):
		return "ambiguous_month"
	case errors.Is(err, domain.ErrInvalidDayLabel):
		return "invalid_label"
	default:
		return "other"
	}
}
