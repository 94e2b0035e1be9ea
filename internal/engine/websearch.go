package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// ErrSearchTimeout marks a web search that hit the hard deadline, so callers
// can offer "try again" instead of a generic failure.
var ErrSearchTimeout = errors.New("web search timed out")

// SearchOptions controls a single web search call.
type SearchOptions struct {
	MaxResults  int    // 0 = server default
	SearchDepth string // "basic" (default) or "advanced"
}

// SearchResult is one web search hit.
type SearchResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"publishedDate,omitempty"`
}

type searchResponse struct {
	Results []SearchResult `json:"results"`
}

// searchLimiter throttles outbound search calls; rebuilt on Init.
var searchLimiter *rate.Limiter

func initSearchLimiter() {
	rps := cfg.SearchRPS
	if rps <= 0 {
		rps = 2
	}
	searchLimiter = rate.NewLimiter(rate.Limit(rps), 1)
}

// SearchWeb queries the configured search endpoint with a hard timeout.
// A deadline hit is reported as ErrSearchTimeout; other failures pass through.
func SearchWeb(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	if cfg.SearchURL == "" {
		return nil, errors.New("web search: not configured")
	}

	timeout := cfg.SearchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := searchLimiter.Wait(ctx); err != nil {
		return nil, classifySearchErr(err)
	}

	u, err := url.Parse(cfg.SearchURL + "/search")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	if opts.MaxResults > 0 {
		q.Set("max_results", strconv.Itoa(opts.MaxResults))
	}
	if opts.SearchDepth != "" {
		q.Set("depth", opts.SearchDepth)
	}
	u.RawQuery = q.Encode()

	Incr(MetricSearchRequests)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := RetryHTTP(ctx, DefaultRetryConfig, func() (*http.Response, error) {
		return cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return nil, classifySearchErr(err)
	}
	defer resp.Body.Close()

	var data searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, classifySearchErr(err)
	}

	results := data.Results
	if opts.MaxResults > 0 && len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	return results, nil
}

// classifySearchErr maps deadline expiry onto ErrSearchTimeout.
func classifySearchErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		Incr(MetricSearchTimeouts)
		return ErrSearchTimeout
	}
	return err
}
