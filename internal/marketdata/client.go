// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package marketdata fetches and normalizes chart-ready market series.
//
// The client talks to a chart-data HTTP API, validates parameters
// before any I/O, throttles outbound calls with a token bucket, and
// maps transport failures onto a small error taxonomy. An optional
// sqlite cache sits in front of the network; cache failures are silent
// and fall through to a fetch.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Configuration constants for the chart-data API.
const (
	// DefaultBaseURL is the base URL for the chart-data API.
	DefaultBaseURL = "https://query1.finance.yahoo.com"

	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 15 * time.Second

	// MaxResponseSize caps response bodies to bound memory use.
	MaxResponseSize = 4 * 1024 * 1024 // 4MB
)

// =============================================================================
// ERRORS
// =============================================================================

// Error variables for the chart-data client.
var (
	// ErrInvalidParameter indicates a bad ticker, period, or statement type.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrAuthFailure indicates the API rejected our credentials (HTTP 401).
	ErrAuthFailure = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made (HTTP 429).
	ErrRateLimited = errors.New("rate limited")

	// ErrServerError indicates an upstream failure (HTTP 5xx).
	ErrServerError = errors.New("server error")

	// ErrUnknown indicates an unclassified non-success response.
	ErrUnknown = errors.New("unknown API error")
)

// APIError carries the HTTP status behind one of the sentinel errors.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("chart API error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("chart API error (HTTP %d)", e.Status)
}

// Unwrap maps the status onto the sentinel taxonomy so callers can use
// errors.Is against the package variables.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized:
		return ErrAuthFailure
	case e.Status == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.Status >= 500:
		return ErrServerError
	default:
		return ErrUnknown
	}
}

// IsAuthFailure reports whether err is an authentication failure.
func IsAuthFailure(err error) bool { return errors.Is(err, ErrAuthFailure) }

// IsRateLimited reports whether err is a rate-limit rejection.
func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }

// =============================================================================
// CLIENT
// =============================================================================

// Client is a chart-data API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	throttler  *Throttler
	cache      *Cache
}

// NewClient creates a chart-data client with default settings.
func NewClient() *Client {
	return &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		throttler: NewThrottler(nil),
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimSuffix(u, "/")
	return c
}

// WithAPIKey sets the bearer token sent with requests.
func (c *Client) WithAPIKey(key string) *Client {
	c.apiKey = strings.TrimSpace(key)
	return c
}

// WithTimeout sets the request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithThrottler replaces the default token-bucket throttler.
func (c *Client) WithThrottler(t *Throttler) *Client {
	c.throttler = t
	return c
}

// WithCache attaches a series cache. A nil cache disables caching.
func (c *Client) WithCache(cache *Cache) *Client {
	c.cache = cache
	return c
}

// =============================================================================
// WIRE SHAPES
// =============================================================================

// stockSeriesResponse is the chart endpoint's wire shape.
type stockSeriesResponse struct {
	Ticker string          `json:"ticker"`
	Points []rawStockPoint `json:"points"`
}

// statementSeriesResponse is the statements endpoint's wire shape.
type statementSeriesResponse struct {
	Ticker string         `json:"ticker"`
	Rows   []StatementRow `json:"rows"`
}

// =============================================================================
// FETCH OPERATIONS
// =============================================================================

// FetchStockSeries fetches the OHLCV series for ticker over period.
// Validation errors surface before any I/O; transport failures map to
// the sentinel taxonomy. An empty series is a valid result, not an
// error.
func (c *Client) FetchStockSeries(ctx context.Context, ticker string, period Period) ([]StockPoint, error) {
	ticker, err := cleanTicker(ticker)
	if err != nil {
		return nil, err
	}
	if !ValidPeriod(period) {
		return nil, fmt.Errorf("%w: unrecognized period %q", ErrInvalidParameter, period)
	}

	cacheKey := "stock|" + ticker + "|" + string(period)
	if payload, ok := c.cacheGet(cacheKey); ok {
		var points []StockPoint
		if json.Unmarshal(payload, &points) == nil {
			return points, nil
		}
	}

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s",
		c.baseURL, url.PathEscape(ticker), url.QueryEscape(string(period)))

	var resp stockSeriesResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	points := normalizeStockSeries(resp.Points)
	c.cachePut(cacheKey, points)
	return points, nil
}

// FetchStatementSeries fetches financial-statement rows for ticker.
func (c *Client) FetchStatementSeries(ctx context.Context, ticker string, stmt StatementType) ([]StatementRow, error) {
	ticker, err := cleanTicker(ticker)
	if err != nil {
		return nil, err
	}
	if !ValidStatementType(stmt) {
		return nil, fmt.Errorf("%w: unrecognized statement type %q", ErrInvalidParameter, stmt)
	}

	cacheKey := "stmt|" + ticker + "|" + string(stmt)
	if payload, ok := c.cacheGet(cacheKey); ok {
		var rows []StatementRow
		if json.Unmarshal(payload, &rows) == nil {
			return rows, nil
		}
	}

	endpoint := fmt.Sprintf("%s/v1/finance/statements/%s?type=%s",
		c.baseURL, url.PathEscape(ticker), url.QueryEscape(string(stmt)))

	var resp statementSeriesResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	c.cachePut(cacheKey, resp.Rows)
	return resp.Rows, nil
}

// =============================================================================
// HTTP PLUMBING
// =============================================================================

// getJSON performs a throttled GET and decodes the response body.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	if c.throttler != nil {
		if err := c.throttler.Wait(ctx, "chartdata"); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "marketlens/0.1")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnknown, err)
	}
	defer resp.Body.Close()
	log.Printf("chart API: %s %s -> %d (%v)", req.Method, req.URL.Path, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUnknown, err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnknown, err)
	}
	return nil
}

// errorMessage pulls a human-readable message out of an error body,
// tolerating non-JSON payloads.
func errorMessage(body []byte) string {
	var wrapper struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &wrapper) == nil && wrapper.Error.Message != "" {
		return wrapper.Error.Message
	}
	return ""
}

// cleanTicker trims and validates a ticker symbol. The shape rules
// match the upstream API's: 1-10 chars of letters, digits, dot, hyphen
// or underscore, not starting or ending with a separator.
func cleanTicker(ticker string) (string, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return "", fmt.Errorf("%w: empty ticker", ErrInvalidParameter)
	}
	if len(ticker) > 10 {
		return "", fmt.Errorf("%w: ticker too long (%d chars)", ErrInvalidParameter, len(ticker))
	}
	for i := 0; i < len(ticker); i++ {
		c := ticker[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '-', c == '_':
		default:
			return "", fmt.Errorf("%w: ticker contains invalid character %q", ErrInvalidParameter, c)
		}
	}
	if isSeparator(ticker[0]) || isSeparator(ticker[len(ticker)-1]) {
		return "", fmt.Errorf("%w: ticker starts or ends with a separator", ErrInvalidParameter)
	}
	return ticker, nil
}

func isSeparator(c byte) bool {
	return c == '.' || c == '-' || c == '_'
}

// cacheGet reads a cached payload; all cache errors read as a miss.
func (c *Client) cacheGet(key string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Get(key)
}

// cachePut stores a payload; failures are logged and otherwise ignored.
func (c *Client) cachePut(key string, v any) {
	if c.cache == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cache.Put(key, payload); err != nil {
		log.Printf("series cache: put %s failed: %v", key, err)
	}
}
