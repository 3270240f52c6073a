// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package marketdata

// =============================================================================
// PERIODS AND STATEMENT TYPES
// =============================================================================

// Period is the lookback range for a stock series request.
type Period string

const (
	Period1D  Period = "1d"
	Period5D  Period = "5d"
	Period1Mo Period = "1mo"
	Period3Mo Period = "3mo"
	Period6Mo Period = "6mo"
	Period1Y  Period = "1y"
	Period2Y  Period = "2y"
	Period5Y  Period = "5y"
	Period10Y Period = "10y"
	PeriodYTD Period = "ytd"
	PeriodMax Period = "max"
)

// validPeriods is the closed set of accepted lookback ranges.
var validPeriods = map[Period]bool{
	Period1D: true, Period5D: true, Period1Mo: true, Period3Mo: true,
	Period6Mo: true, Period1Y: true, Period2Y: true, Period5Y: true,
	Period10Y: true, PeriodYTD: true, PeriodMax: true,
}

// ValidPeriod reports whether p is a recognized lookback range.
func ValidPeriod(p Period) bool {
	return validPeriods[p]
}

// StatementType selects which financial statement to fetch.
type StatementType string

const (
	StatementIncome   StatementType = "income"
	StatementBalance  StatementType = "balance"
	StatementCashFlow StatementType = "cash_flow"
)

// ValidStatementType reports whether s is a recognized statement type.
func ValidStatementType(s StatementType) bool {
	switch s {
	case StatementIncome, StatementBalance, StatementCashFlow:
		return true
	}
	return false
}

// =============================================================================
// SERIES TYPES
// =============================================================================

// StockPoint is one normalized bar of a stock series. Open, High and
// Low are always populated after normalization; Volume stays nil when
// the upstream bar carried none.
type StockPoint struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume *int64  `json:"volume,omitempty"`
}

// StatementRow is one line item of a financial statement.
type StatementRow struct {
	Label    string  `json:"label"`
	Value    float64 `json:"value"`
	Category string  `json:"category"`
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// rawStockPoint is the wire shape of a bar: only Close is required.
type rawStockPoint struct {
	Date   string   `json:"date"`
	Open   *float64 `json:"open"`
	High   *float64 `json:"high"`
	Low    *float64 `json:"low"`
	Close  float64  `json:"close"`
	Volume *int64   `json:"volume"`
}

// normalizeStockPoint fills missing OHLC fields from Close, so a
// close-only bar renders as a flat candle rather than being dropped.
func normalizeStockPoint(raw rawStockPoint) StockPoint {
	p := StockPoint{
		Date:   raw.Date,
		Close:  raw.Close,
		Volume: raw.Volume,
	}
	p.Open = valueOr(raw.Open, raw.Close)
	p.High = valueOr(raw.High, raw.Close)
	p.Low = valueOr(raw.Low, raw.Close)
	return p
}

// normalizeStockSeries normalizes every bar, preserving order.
func normalizeStockSeries(raw []rawStockPoint) []StockPoint {
	if len(raw) == 0 {
		return nil
	}
	out := make([]StockPoint, len(raw))
	for i, r := range raw {
		out[i] = normalizeStockPoint(r)
	}
	return out
}

func valueOr(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}
