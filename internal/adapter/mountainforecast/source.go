package mountainforecast

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/mountain-forecast-etl/internal/domain"
)

// Source lists forecast pages and turns them into parsed tables.
// It implements pipeline.PageSource.
type Source struct {
	client     *Client
	file       DirectoryFile
	peakPaths  []string
	elevations ElevationLister // nil: scrape only the configured page per mountain
	maxDays    int
	logger     *slog.Logger
}

// NewSource creates a Source. Pass a nil ElevationLister to skip elevation
// discovery.
func NewSource(client *Client, file DirectoryFile, peakPaths []string, elevations ElevationLister, maxDays int, logger *slog.Logger) *Source {
	return &Source{
		client:     client,
		file:       file,
		peakPaths:  peakPaths,
		elevations: elevations,
		maxDays:    maxDays,
		logger:     logger,
	}
}

// Pages returns one page per mountain, or one per elevation when discovery
// is enabled.
func (s *Source) Pages(ctx context.Context) ([]domain.ForecastPage, error) {
	dir, err := s.directory(ctx)
	if err != nil {
		return nil, err
	}

	var pages []domain.ForecastPage
	for _, e := range dir {
		urls := []string{e.URL}
		if s.elevations != nil {
			found, err := s.elevations.ElevationURLs(ctx, e.URL)
			switch {
			case err != nil:
				s.logger.Warn("elevation discovery failed, using default page",
					"mountain", e.Name, "url", e.URL, "error", err)
			case len(found) > 0:
				urls = found
			}
		}
		for _, u := range urls {
			pages = append(pages, domain.ForecastPage{
				Mountain:  e.Name,
				Elevation: ElevationOf(u),
				URL:       u,
			})
		}
	}
	return pages, nil
}

// FetchTable downloads a forecast page and extracts its table.
func (s *Source) FetchTable(ctx context.Context, page domain.ForecastPage) (domain.ForecastTable, error) {
	doc, err := s.client.Document(ctx, page.URL)
	if err != nil {
		return domain.ForecastTable{}, err
	}
	table, err := ParseForecastTable(doc, s.maxDays)
	if err != nil {
		return domain.ForecastTable{}, fmt.Errorf("%s: %w", page.URL, err)
	}
	return table, nil
}

// directory loads the saved URL directory, building and saving it when no
// file exists yet.
func (s *Source) directory(ctx context.Context) (Directory, error) {
	dir, err := s.file.Load()
	if err != nil {
		return nil, err
	}
	if dir != nil {
		return dir, nil
	}

	s.logger.Info("building url directory", "peaks", len(s.peakPaths), "path", s.file.Path)
	dir = make(Directory, 0, len(s.peakPaths))
	for _, p := range s.peakPaths {
		pageURL, err := s.client.Resolve(p)
		if err != nil {
			return nil, err
		}
		doc, err := s.client.Document(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("resolve mountain name: %w", err)
		}
		name := TitleName(doc)
		if name == "" {
			return nil, fmt.Errorf("resolve mountain name: no title on %s", pageURL)
		}
		dir = append(dir, Entry{Name: name, URL: pageURL})
	}

	if err := s.file.Save(dir); err != nil {
		return nil, err
	}
	s.logger.Info("url directory saved", "mountains", len(dir))
	return dir, nil
}
