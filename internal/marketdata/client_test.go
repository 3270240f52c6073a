// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"
)

// newTestClient points a client at a stub server with throttling wide
// open so tests never block on the bucket.
func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := NewClient().
		WithBaseURL(srv.URL).
		WithThrottler(NewThrottler(map[string]float64{"chartdata": 1000}))
	return c, srv
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestFetchStockSeries_ValidationBeforeIO(t *testing.T) {
	called := false
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	tests := []struct {
		name   string
		ticker string
		period Period
	}{
		{"empty ticker", "", Period1Mo},
		{"whitespace ticker", "   ", Period1Mo},
		{"bad period", "MSFT", Period("7w")},
		{"ticker too long", "ABCDEFGHIJK", Period1Mo},
		{"bad characters", "MS FT", Period1Mo},
		{"leading separator", ".MSFT", Period1Mo},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.FetchStockSeries(context.Background(), tc.ticker, tc.period)
			if !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("err = %v, want ErrInvalidParameter", err)
			}
		})
	}

	if called {
		t.Error("validation errors must not reach the network")
	}
}

func TestFetchStatementSeries_BadStatementType(t *testing.T) {
	c, srv := newTestClient(http.NotFoundHandler())
	defer srv.Close()

	_, err := c.FetchStatementSeries(context.Background(), "MSFT", StatementType("quarterly"))
	if !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("err = %v, want ErrInvalidParameter", err)
	}
}

// =============================================================================
// STATUS MAPPING TESTS
// =============================================================================

func TestFetchStockSeries_StatusTaxonomy(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrAuthFailure},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusInternalServerError, ErrServerError},
		{http.StatusBadGateway, ErrServerError},
		{http.StatusNotFound, ErrUnknown},
		{http.StatusForbidden, ErrUnknown},
	}

	for _, tc := range tests {
		c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))

		_, err := c.FetchStockSeries(context.Background(), "MSFT", Period1Mo)
		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: err = %v, want %v", tc.status, err, tc.want)
		}

		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Status != tc.status {
			t.Errorf("status %d: expected APIError carrying the status, got %v", tc.status, err)
		}
		srv.Close()
	}
}

// =============================================================================
// NORMALIZATION TESTS
// =============================================================================

func TestFetchStockSeries_FillsOHLCFromClose(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ticker":"AAPL","points":[{"date":"2024-01-15","close":154.0}]}`))
	}))
	defer srv.Close()

	points, err := c.FetchStockSeries(context.Background(), "AAPL", Period1Mo)
	if err != nil {
		t.Fatalf("FetchStockSeries: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("len(points) = %d, want 1", len(points))
	}

	p := points[0]
	if p.Date != "2024-01-15" {
		t.Errorf("Date = %q, want 2024-01-15", p.Date)
	}
	for name, got := range map[string]float64{"Open": p.Open, "High": p.High, "Low": p.Low, "Close": p.Close} {
		if got != 154.0 {
			t.Errorf("%s = %v, want 154.0", name, got)
		}
	}
	if p.Volume != nil {
		t.Errorf("Volume = %v, want nil", *p.Volume)
	}
}

func TestFetchStockSeries_EmptySeriesIsNotAnError(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ticker":"MSFT","points":[]}`))
	}))
	defer srv.Close()

	points, err := c.FetchStockSeries(context.Background(), "MSFT", Period1Y)
	if err != nil {
		t.Fatalf("empty series must not error, got %v", err)
	}
	if len(points) != 0 {
		t.Errorf("len(points) = %d, want 0", len(points))
	}
}

func TestFetchStatementSeries_Rows(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("type"); got != "balance" {
			t.Errorf("type query = %q, want balance", got)
		}
		w.Write([]byte(`{"ticker":"MSFT","rows":[
			{"label":"Total Assets","value":512000000000,"category":"assets"},
			{"label":"Total Liabilities","value":198000000000,"category":"liabilities"}
		]}`))
	}))
	defer srv.Close()

	rows, err := c.FetchStatementSeries(context.Background(), "msft", StatementBalance)
	if err != nil {
		t.Fatalf("FetchStatementSeries: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].Label != "Total Assets" || rows[0].Category != "assets" {
		t.Errorf("rows[0] = %+v", rows[0])
	}
}

// =============================================================================
// CACHE INTEGRATION TESTS
// =============================================================================

func TestFetchStockSeries_SecondCallServedFromCache(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "series.db"), time.Hour)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer cache.Close()

	hits := 0
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"ticker":"MSFT","points":[{"date":"2024-02-01","close":410.5}]}`))
	}))
	defer srv.Close()
	c.WithCache(cache)

	for i := 0; i < 2; i++ {
		points, err := c.FetchStockSeries(context.Background(), "MSFT", Period5D)
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if len(points) != 1 || points[0].Close != 410.5 {
			t.Fatalf("fetch %d: unexpected points %+v", i, points)
		}
	}

	if hits != 1 {
		t.Errorf("server hits = %d, want 1 (second call cached)", hits)
	}
}
