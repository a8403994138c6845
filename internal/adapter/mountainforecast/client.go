package mountainforecast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/sony/gobreaker"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

// maxPageBytes caps how much of a page body is parsed.
const maxPageBytes = 4 << 20

// Transient failures are retried with exponential backoff: start at 500ms,
// double each retry, cap at 5s, at most three attempts per page.
const (
	defaultAttempts   = 3
	defaultBackoff    = 500 * time.Millisecond
	defaultMaxBackoff = 5 * time.Second
)

var errUnexpectedStatus = errors.New("unexpected status code")

// statusError is a non-200 response. It matches errUnexpectedStatus.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: %d", errUnexpectedStatus, e.code)
}

func (e *statusError) Unwrap() error { return errUnexpectedStatus }

// Client fetches and parses mountain-forecast.com pages. Requests are spaced
// by a rate limiter and guarded by a circuit breaker.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	userAgent  string
	limiter    *rate.Limiter
	circuit    *gobreaker.CircuitBreaker
	logger     *slog.Logger

	attempts   int
	backoff    time.Duration
	maxBackoff time.Duration
}

// NewClient creates a page client. delay is the minimum spacing between two
// requests; zero disables the spacing.
func NewClient(baseURL, userAgent string, timeout, delay time.Duration, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    base,
		userAgent:  userAgent,
		limiter:    rate.NewLimiter(limit, 1),
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "mountain-forecast",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     2 * time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		logger:     logger,
		attempts:   defaultAttempts,
		backoff:    defaultBackoff,
		maxBackoff: defaultMaxBackoff,
	}, nil
}

// Resolve turns a site-relative path such as "peaks/Yak-Peak/forecasts/2039"
// into an absolute URL.
func (c *Client) Resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse path %q: %w", path, err)
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

// Document fetches a page and parses it into an HTML tree. Server errors,
// 429s and transport failures are retried; other statuses and an open
// circuit fail at once.
func (c *Client) Document(ctx context.Context, pageURL string) (*html.Node, error) {
	backoff := c.backoff
	var err error
	for attempt := 1; ; attempt++ {
		var doc *html.Node
		doc, err = c.attempt(ctx, pageURL)
		if err == nil {
			return doc, nil
		}
		if attempt >= c.attempts || !retryable(ctx, err) {
			break
		}
		c.logger.Debug("page fetch failed, retrying",
			"url", pageURL, "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return nil, fmt.Errorf("fetch %s: %w", pageURL, ctx.Err())
		}
		backoff = retry.NextBackoff(backoff, c.maxBackoff)
	}
	return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
}

func (c *Client) attempt(ctx context.Context, pageURL string) (*html.Node, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := c.circuit.Execute(func() (interface{}, error) {
		return c.fetch(ctx, pageURL)
	})
	if err != nil {
		return nil, err
	}
	c.logger.Debug("page fetched", "url", pageURL, "duration", time.Since(start))

	doc, ok := result.(*html.Node)
	if !ok {
		return nil, errors.New("unexpected result type from circuit breaker")
	}
	return doc, nil
}

// retryable reports whether a failed attempt may succeed if repeated.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= http.StatusInternalServerError || se.code == http.StatusTooManyRequests
	}
	return true
}

// ElevationURLs lists the per-elevation forecast URLs linked from a page.
func (c *Client) ElevationURLs(ctx context.Context, pageURL string) ([]string, error) {
	doc, err := c.Document(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return ElevationLinks(doc, c.baseURL), nil
}

func (c *Client) fetch(ctx context.Context, pageURL string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &statusError{code: resp.StatusCode}
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}
