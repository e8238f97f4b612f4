package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jmallek/copycheck/internal/model"
	"github.com/jmallek/copycheck/internal/netutil"
)

const fetchMaxAttempts = 2

// fetchSleepFunc is the sleep function used between retries (injectable for tests)
var fetchSleepFunc = time.Sleep

// Fetcher retrieves reference pages and extracts their prose content.
// Multi-page fetches run on a bounded worker set; the per-domain rate
// limiter and robots cache are safe for concurrent use.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	workers    int
	limiter    *netutil.Limiter
	robots     *netutil.RobotsChecker // nil disables robots.txt checks
}

// NewFetcher creates a new Fetcher from HTTP configuration
func NewFetcher(cfg model.HTTPConfig) *Fetcher {
	workers := cfg.FetchWorkers
	if workers <= 0 {
		workers = 1
	}

	var robots *netutil.RobotsChecker
	if cfg.RespectRobots {
		robots = netutil.NewRobotsChecker(cfg.UserAgent, cfg.Timeout)
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: netutil.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBodyBytes,
		workers:   workers,
		limiter:   netutil.NewLimiter(cfg.RequestsPerSecond, workers),
		robots:    robots,
	}
}

// FetchAll fetches every URL concurrently (bounded by the worker count) and
// returns the successfully fetched documents in input order plus per-page
// failures. A partial result is not an error: the caller decides whether an
// empty document set is fatal.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) ([]model.SourceDocument, []model.PageFailure) {
	docs := make([]*model.SourceDocument, len(urls))
	ferrs := make([]*model.FetchError, len(urls))

	sem := make(chan struct{}, f.workers)
	var wg sync.WaitGroup

	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				ferrs[i] = &model.FetchError{URL: u, Kind: model.FetchTimeout, Err: ctx.Err()}
				return
			}

			doc, ferr := f.Fetch(ctx, u)
			if ferr != nil {
				ferrs[i] = ferr
				return
			}
			docs[i] = doc
		}(i, u)
	}

	wg.Wait()

	var fetched []model.SourceDocument
	var failures []model.PageFailure
	for i := range urls {
		if docs[i] != nil {
			fetched = append(fetched, *docs[i])
			continue
		}
		ferr := ferrs[i]
		failures = append(failures, model.PageFailure{
			URL:    ferr.URL,
			Kind:   string(ferr.Kind),
			Reason: ferr.Error(),
		})
	}

	return fetched, failures
}

// Fetch retrieves a single page, retrying transient failures once
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*model.SourceDocument, *model.FetchError) {
	if f.robots != nil {
		allowed, err := f.robots.CanFetch(ctx, rawURL)
		if err == nil && !allowed {
			return nil, &model.FetchError{URL: rawURL, Kind: model.FetchBlocked, Err: errors.New("disallowed by robots.txt")}
		}
	}

	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return nil, &model.FetchError{URL: rawURL, Kind: model.FetchTimeout, Err: err}
	}

	var lastErr error
	for attempt := 1; attempt <= fetchMaxAttempts; attempt++ {
		doc, err := f.doFetch(ctx, rawURL)
		if err == nil {
			return doc, nil
		}
		lastErr = err

		if attempt < fetchMaxAttempts && isRetryableFetchError(err) && ctx.Err() == nil {
			fetchSleepFunc(time.Duration(attempt) * 200 * time.Millisecond)
			continue
		}
		break
	}

	return nil, classifyFetchError(rawURL, lastErr)
}

// statusError carries the HTTP status for error classification
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status: %s", e.status)
}

func (f *Fetcher) doFetch(ctx context.Context, rawURL string) (*model.SourceDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode, status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	text, err := ExtractText(string(body))
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	return &model.SourceDocument{
		URL:       resp.Request.URL.String(),
		Text:      text,
		FetchedAt: time.Now().UTC(),
		Meta: model.FetchMeta{
			StatusCode:  resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Bytes:       int64(len(body)),
		},
	}, nil
}

// isRetryableFetchError reports whether the failure is transient
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}

	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}

	// Network-level errors (refused, reset) are worth one retry;
	// request construction and extraction failures are not.
	if strings.HasPrefix(err.Error(), "fetch:") {
		return !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled)
	}
	return false
}

// classifyFetchError maps a raw failure onto the FetchError taxonomy
func classifyFetchError(rawURL string, err error) *model.FetchError {
	kind := model.FetchTimeout

	var se *statusError
	switch {
	case errors.As(err, &se):
		switch {
		case se.code == http.StatusUnauthorized || se.code == http.StatusForbidden:
			kind = model.FetchBlocked
		case se.code == http.StatusTooManyRequests:
			kind = model.FetchBlocked
		default:
			kind = model.FetchNotFound
		}
	case errors.Is(err, ErrNoProse):
		kind = model.FetchParseFailure
	case err != nil && strings.HasPrefix(err.Error(), "extract:"):
		kind = model.FetchParseFailure
	case err != nil && strings.HasPrefix(err.Error(), "create request:"):
		kind = model.FetchParseFailure
	}

	return &model.FetchError{URL: rawURL, Kind: kind, Err: err}
}
