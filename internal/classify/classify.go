// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package classify detects financial-query intent in conversation text.
//
// Classification is pure and deterministic: a message either names a
// stock-price question, a financial-statement question, or nothing at
// all. A keyword gate runs first so generic prose never produces a
// match, then candidate tickers are extracted as uppercase runs.
package classify

import "strings"

// =============================================================================
// QUERY KINDS
// =============================================================================

// Kind identifies the type of detected financial query.
type Kind string

const (
	KindStockPrice         Kind = "stock_price"
	KindFinancialStatement Kind = "financial_statement"
)

// StatementType identifies which financial statement was requested.
type StatementType string

const (
	StatementIncome   StatementType = "income"
	StatementBalance  StatementType = "balance"
	StatementCashFlow StatementType = "cash_flow"
)

// Query is a detected financial query. It is derived and ephemeral:
// consumed once per message, never persisted.
type Query struct {
	Kind          Kind
	Ticker        string
	StatementType StatementType // set only for KindFinancialStatement
}

// =============================================================================
// KEYWORD SETS
// =============================================================================

// stockKeywords gate stock-price classification. A message without any
// of these never classifies, regardless of uppercase tokens it contains.
var stockKeywords = []string{
	"stock",
	"share price",
	"ticker",
	"quote",
	"chart",
	"price of",
	"trading at",
	"candlestick",
	"ohlc",
}

// statementKeywords gate financial-statement classification. Disjoint
// from stockKeywords so the two gates never both fire on the same term.
var statementKeywords = []string{
	"balance sheet",
	"income statement",
	"cash flow",
	"financial statement",
	"financials",
	"earnings report",
	"revenue breakdown",
}

// stopWords are uppercase runs that look like tickers but almost never
// are. Known limitation: acronyms outside this list (CEO of a company
// named in caps, shouted words) can still be misread as tickers.
var stopWords = map[string]bool{
	"THE": true, "AND": true, "FOR": true, "WITH": true, "FROM": true,
	"THIS": true, "THAT": true, "WHAT": true, "SHOW": true, "GIVE": true,
	"CAN": true, "YOU": true, "ME": true, "MY": true, "OF": true,
	"IS": true, "ARE": true, "HOW": true, "ETF": true, "USD": true,
	"USA": true, "CEO": true, "CFO": true, "IPO": true, "API": true,
	"OHLC": true, "YTD": true, "AM": true, "PM": true, "OK": true,
	"VS": true, "PLEASE": true,
}

// =============================================================================
// CLASSIFIERS
// =============================================================================

// StockQuery is the result of a successful stock-price classification.
type StockQuery struct {
	// Tickers holds surviving candidates in first-seen order.
	Tickers []string
}

// StatementQuery is the result of a successful financial-statement
// classification.
type StatementQuery struct {
	Ticker        string
	StatementType StatementType
}

// ClassifyStockQuery reports whether text asks about a stock price and,
// if so, which candidate tickers it names. The boolean is false when no
// stock keyword is present or when no candidate survives extraction.
func ClassifyStockQuery(text string) (StockQuery, bool) {
	if !containsAny(text, stockKeywords) {
		return StockQuery{}, false
	}
	tickers := ExtractTickerCandidates(text)
	if len(tickers) == 0 {
		return StockQuery{}, false
	}
	return StockQuery{Tickers: tickers}, true
}

// ClassifyFinancialStatementQuery reports whether text asks for a
// financial statement. The statement type resolves by substring match;
// anything gated but unnamed defaults to the income statement.
func ClassifyFinancialStatementQuery(text string) (StatementQuery, bool) {
	if !containsAny(text, statementKeywords) {
		return StatementQuery{}, false
	}
	tickers := ExtractTickerCandidates(text)
	if len(tickers) == 0 {
		return StatementQuery{}, false
	}

	lower := strings.ToLower(text)
	stmt := StatementIncome
	switch {
	case strings.Contains(lower, "balance sheet"):
		stmt = StatementBalance
	case strings.Contains(lower, "cash flow"):
		stmt = StatementCashFlow
	}

	return StatementQuery{Ticker: tickers[0], StatementType: stmt}, true
}

// Classify applies both classifiers with the fixed tie-break: a
// financial-statement match wins over a stock-price match, and a
// message is never classified as both.
func Classify(text string) (Query, bool) {
	if sq, ok := ClassifyFinancialStatementQuery(text); ok {
		return Query{
			Kind:          KindFinancialStatement,
			Ticker:        sq.Ticker,
			StatementType: sq.StatementType,
		}, true
	}
	if sq, ok := ClassifyStockQuery(text); ok {
		return Query{
			Kind:   KindStockPrice,
			Ticker: sq.Tickers[0],
		}, true
	}
	return Query{}, false
}

// =============================================================================
// TICKER EXTRACTION
// =============================================================================

// ExtractTickerCandidates returns uppercase runs of length 2-5 in
// first-seen order, de-duplicated, with stop words removed. A run is
// bounded by any non-uppercase-letter byte, so "MSFT," and "(AAPL)"
// both yield candidates while single letters and six-letter runs are
// dropped.
func ExtractTickerCandidates(text string) []string {
	var out []string
	seen := make(map[string]bool)

	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		run := text[start:end]
		start = -1
		if len(run) < 2 || len(run) > 5 {
			return
		}
		if stopWords[run] || seen[run] {
			return
		}
		seen[run] = true
		out = append(out, run)
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c >= 'A' && c <= 'Z' {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(text))

	return out
}

// containsAny reports whether text contains any of the given keywords,
// matched case-insensitively as substrings.
func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
