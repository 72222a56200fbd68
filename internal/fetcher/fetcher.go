package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/news-recommender/backend/internal/config"
	"github.com/news-recommender/backend/internal/news"
	"github.com/news-recommender/backend/internal/politeness"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 100
)

var (
	ErrMissingAPIKey = errors.New("NEWS_API_KEY not set")
	ErrCircuitOpen   = errors.New("news api temporarily unavailable")
)

// UpstreamError is a non-200 answer from the news API
type UpstreamError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("news api returned status %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("news api returned status %d", e.StatusCode)
}

// HeadlinesQuery selects top headlines
type HeadlinesQuery struct {
	Country  string
	Category string
	Query    string
	PageSize int
}

// EverythingQuery searches the full article archive
type EverythingQuery struct {
	Query    string
	PageSize int
}

// Fetcher is a client for the NewsAPI v2 endpoints
type Fetcher struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	userAgent string
	pageSize  int
	limiter   *politeness.Limiter
	breaker   *gobreaker.CircuitBreaker[*news.Response]
	logger    *logrus.Entry
}

func NewFetcher(cfg config.NewsAPIConfig, limiter *politeness.Limiter, logger *logrus.Entry) *Fetcher {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if limiter == nil {
		limiter = politeness.NewLimiter(politeness.Config{
			MinDelay:       cfg.MinDelay,
			MaxConcurrency: cfg.MaxConcurrency,
		}, logger)
	}
	log := logger.WithField("component", "fetcher")

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	breaker := gobreaker.NewCircuitBreaker[*news.Response](gobreaker.Settings{
		Name:        "newsapi",
		MaxRequests: 1,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// client mistakes such as a bad query do not count against the upstream
		IsSuccessful: func(err error) bool {
			var upstream *UpstreamError
			if errors.As(err, &upstream) {
				return upstream.StatusCode < 500 && upstream.StatusCode != http.StatusTooManyRequests
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("Circuit breaker state changed")
		},
	})

	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		userAgent: cfg.UserAgent,
		pageSize:  ClampPageSize(cfg.PageSize),
		limiter:   limiter,
		breaker:   breaker,
		logger:    log,
	}
}

// HasAPIKey reports whether requests can be authenticated
func (f *Fetcher) HasAPIKey() bool {
	return f.apiKey != ""
}

// BreakerState reports the circuit breaker state ("closed", "open", "half-open")
func (f *Fetcher) BreakerState() string {
	return f.breaker.State().String()
}

// LimiterStats exposes the politeness counters
func (f *Fetcher) LimiterStats() politeness.Statistics {
	return f.limiter.GetStatistics()
}

// TopHeadlines fetches /top-headlines
func (f *Fetcher) TopHeadlines(ctx context.Context, q HeadlinesQuery) (*news.Response, error) {
	params := url.Values{}
	if q.Country != "" {
		params.Set("country", q.Country)
	}
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	if q.Query != "" {
		params.Set("q", q.Query)
	}
	params.Set("pageSize", strconv.Itoa(f.resolvePageSize(q.PageSize)))
	return f.get(ctx, "/top-headlines", params)
}

// Everything fetches /everything
func (f *Fetcher) Everything(ctx context.Context, q EverythingQuery) (*news.Response, error) {
	params := url.Values{}
	if q.Query != "" {
		params.Set("q", q.Query)
	}
	params.Set("pageSize", strconv.Itoa(f.resolvePageSize(q.PageSize)))
	return f.get(ctx, "/everything", params)
}

// ClampPageSize maps a requested page size into the range the API accepts
func ClampPageSize(n int) int {
	if n <= 0 {
		return DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// resolvePageSize falls back to the configured page size when none is requested
func (f *Fetcher) resolvePageSize(n int) int {
	if n <= 0 {
		return f.pageSize
	}
	return ClampPageSize(n)
}

func (f *Fetcher) get(ctx context.Context, path string, params url.Values) (*news.Response, error) {
	if f.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	resp, err := f.breaker.Execute(func() (*news.Response, error) {
		release, err := f.limiter.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := f.do(ctx, path, params)
		release(err)
		return resp, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	if err != nil {
		f.logger.WithError(err).WithField("path", path).Warn("News API request failed")
		return nil, err
	}
	return resp, nil
}

func (f *Fetcher) do(ctx context.Context, path string, params url.Values) (*news.Response, error) {
	endpoint := f.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", f.apiKey)
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	httpResp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result news.Response
	if err := json.Unmarshal(body, &result); err != nil {
		if httpResp.StatusCode != http.StatusOK {
			return nil, &UpstreamError{StatusCode: httpResp.StatusCode}
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK || result.Status == "error" {
		return nil, &UpstreamError{StatusCode: httpResp.StatusCode, Code: result.Code, Message: result.Message}
	}

	for i := range result.Articles {
		result.Articles[i].Description = CleanText(result.Articles[i].Description)
		result.Articles[i].Content = CleanText(result.Articles[i].Content)
	}
	f.logger.WithFields(logrus.Fields{"path": path, "articles": len(result.Articles)}).Debug("Fetched articles")
	return &result, nil
}
