// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chart implements the interactive chart widget injected under
// classified messages: a zoom/brush state machine shared by the stock
// and statement chart kinds, an all-or-nothing validity gate, terminal
// rendering, and client-local export.
package chart

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jeranaias/marketlens-tui/internal/marketdata"
)

// =============================================================================
// PHASES
// =============================================================================

// Phase is the display state of a chart.
type Phase int

const (
	// PhaseIdle shows the full fetched series.
	PhaseIdle Phase = iota

	// PhaseSelecting tracks an in-progress pointer drag. Only a
	// reference band moves; the data window is untouched.
	PhaseSelecting

	// PhaseZoomed shows a contiguous sub-range of the series.
	PhaseZoomed
)

// View selects how a stock series is drawn.
type View int

const (
	ViewLine View = iota
	ViewCandles
)

// minDragSpan is the exclusive drag threshold: a pointer drag must
// cover more than this many columns to zoom.
const minDragSpan = 1

// =============================================================================
// CHART
// =============================================================================

// Chart is one interactive chart instance. The fetched series is
// immutable once set; the displayed window is always a contiguous,
// order-preserving sub-range of it.
type Chart struct {
	ticker string
	label  string // period or statement type, for headers and exports

	stock []marketdata.StockPoint
	rows  []marketdata.StatementRow

	phase    Phase
	selStart int
	selEnd   int
	winStart int
	winEnd   int

	view    View
	width   int
	printer *message.Printer
}

// NewStockChart creates a chart over a fetched stock series.
func NewStockChart(ticker string, period marketdata.Period, points []marketdata.StockPoint) *Chart {
	return &Chart{
		ticker:  ticker,
		label:   string(period),
		stock:   points,
		width:   defaultWidth,
		printer: message.NewPrinter(language.English),
	}
}

// NewStatementChart creates a chart over financial-statement rows.
func NewStatementChart(ticker string, stmt marketdata.StatementType, rows []marketdata.StatementRow) *Chart {
	return &Chart{
		ticker:  ticker,
		label:   string(stmt),
		rows:    rows,
		width:   defaultWidth,
		printer: message.NewPrinter(language.English),
	}
}

// Phase returns the current display state.
func (c *Chart) Phase() Phase { return c.phase }

// SetWidth sets the render width in columns.
func (c *Chart) SetWidth(w int) {
	if w > 0 {
		c.width = w
	}
}

// seriesLen is the full fetched length for the active kind.
func (c *Chart) seriesLen() int {
	if c.stock != nil {
		return len(c.stock)
	}
	return len(c.rows)
}

// =============================================================================
// POINTER DRAG
// =============================================================================

// PointerDown begins a selection. Only accepted in Idle; while Zoomed
// the brush and ResetZoom are the ways to move the window.
func (c *Chart) PointerDown(index int) {
	if c.phase != PhaseIdle || c.seriesLen() == 0 {
		return
	}
	c.phase = PhaseSelecting
	c.selStart = c.clamp(index)
	c.selEnd = c.selStart
}

// PointerMove updates the provisional end of an in-progress selection.
// It drives the reference band only; no data is touched.
func (c *Chart) PointerMove(index int) {
	if c.phase != PhaseSelecting {
		return
	}
	c.selEnd = c.clamp(index)
}

// PointerUp completes a selection. A span of more than one column
// zooms to the closed [min,max] range; anything smaller returns to
// Idle with the display unchanged.
func (c *Chart) PointerUp(index int) {
	if c.phase != PhaseSelecting {
		return
	}
	end := c.clamp(index)
	start := c.selStart
	c.phase = PhaseIdle

	if abs(end-start) <= minDragSpan {
		return
	}
	c.winStart = min(start, end)
	c.winEnd = max(start, end)
	c.phase = PhaseZoomed
}

// =============================================================================
// BRUSH AND RESET
// =============================================================================

// SetBrush sets the zoom window directly. The brush and pointer drag
// write the same window; last writer wins.
func (c *Chart) SetBrush(start, end int) {
	if c.seriesLen() == 0 {
		return
	}
	start = c.clamp(start)
	end = c.clamp(end)
	if start > end {
		start, end = end, start
	}
	c.phase = PhaseZoomed
	c.winStart = start
	c.winEnd = end
}

// ResetZoom restores Idle with the full series.
func (c *Chart) ResetZoom() {
	c.phase = PhaseIdle
}

// CycleView switches the stock drawing mode. Display state resets to
// Idle; the fetched series is never discarded.
func (c *Chart) CycleView() {
	if c.stock == nil {
		return
	}
	if c.view == ViewLine {
		c.view = ViewCandles
	} else {
		c.view = ViewLine
	}
	c.phase = PhaseIdle
}

// =============================================================================
// WINDOW
// =============================================================================

// WindowBounds returns the displayed closed range [start,end] into the
// fetched series.
func (c *Chart) WindowBounds() (int, int) {
	n := c.seriesLen()
	if n == 0 {
		return 0, -1
	}
	if c.phase == PhaseZoomed {
		return c.winStart, c.winEnd
	}
	return 0, n - 1
}

// StockWindow returns the displayed stock points as a non-owning slice
// of the fetched series.
func (c *Chart) StockWindow() []marketdata.StockPoint {
	if c.stock == nil {
		return nil
	}
	start, end := c.WindowBounds()
	if end < start {
		return nil
	}
	return c.stock[start : end+1]
}

// StatementWindow returns the displayed statement rows.
func (c *Chart) StatementWindow() []marketdata.StatementRow {
	if c.rows == nil {
		return nil
	}
	start, end := c.WindowBounds()
	if end < start {
		return nil
	}
	return c.rows[start : end+1]
}

// =============================================================================
// VALIDITY GATE
// =============================================================================

// Valid evaluates the all-or-nothing gate over the WHOLE fetched
// series, independent of zoom: every point must carry a finite primary
// value and a non-empty label or date. One bad point routes the entire
// chart to the placeholder.
func (c *Chart) Valid() bool {
	if c.stock != nil {
		for _, p := range c.stock {
			if !finite(p.Close) || p.Date == "" {
				return false
			}
		}
		return len(c.stock) > 0
	}
	for _, r := range c.rows {
		if !finite(r.Value) || r.Label == "" {
			return false
		}
	}
	return len(c.rows) > 0
}

// =============================================================================
// HELPERS
// =============================================================================

func (c *Chart) clamp(i int) int {
	n := c.seriesLen()
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
