// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chart

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// =============================================================================
// RENDER STYLES
// =============================================================================

const (
	defaultWidth = 64
	plotHeight   = 8
	labelGutter  = 22
)

var (
	headerStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7aa2f7"))
	subHeaderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
	plotStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#7dcfff"))
	bandStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68"))
	axisStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
	upStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a"))
	downStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e"))
	placeholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#565f89")).
				Border(lipgloss.RoundedBorder()).
				Padding(1, 2)
)

// =============================================================================
// RENDER
// =============================================================================

// Render draws the chart for its current window and view. Invalid data
// renders the placeholder; that placeholder is the only user-visible
// failure the widget ever shows.
func (c *Chart) Render() string {
	if !c.Valid() {
		return placeholderStyle.Render(
			fmt.Sprintf("%s: invalid data", c.ticker))
	}
	if c.stock != nil {
		return c.renderStock()
	}
	return c.renderStatement()
}

func (c *Chart) renderStock() string {
	window := c.StockWindow()
	var b strings.Builder

	view := "line"
	if c.view == ViewCandles {
		view = "candles"
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s  %s", c.ticker, c.label)))
	b.WriteString(subHeaderStyle.Render(fmt.Sprintf("  %s  %d pts", view, len(window))))
	b.WriteByte('\n')

	lo, hi := window[0].Close, window[0].Close
	for _, p := range window {
		if p.Low < lo && c.view == ViewCandles {
			lo = p.Low
		}
		if p.Close < lo {
			lo = p.Close
		}
		if p.High > hi && c.view == ViewCandles {
			hi = p.High
		}
		if p.Close > hi {
			hi = p.Close
		}
	}
	if hi == lo {
		hi = lo + 1
	}

	cols := c.plotColumns(len(window))
	bandLo, bandHi := c.selectionColumns(cols, len(window))

	// One level per column, bucketed when the window is wider than the
	// plot area.
	levels := make([]int, cols)
	rising := make([]bool, cols)
	for j := 0; j < cols; j++ {
		p := window[j*len(window)/cols]
		levels[j] = int(float64(plotHeight-1) * (p.Close - lo) / (hi - lo))
		rising[j] = p.Close >= p.Open
	}

	valueWidth := 10
	for row := plotHeight - 1; row >= 0; row-- {
		if row == plotHeight-1 {
			b.WriteString(axisStyle.Render(pad(c.printer.Sprintf("%.2f", hi), valueWidth)))
		} else if row == 0 {
			b.WriteString(axisStyle.Render(pad(c.printer.Sprintf("%.2f", lo), valueWidth)))
		} else {
			b.WriteString(strings.Repeat(" ", valueWidth))
		}
		b.WriteByte(' ')
		for j := 0; j < cols; j++ {
			cell := " "
			switch {
			case c.view == ViewLine && levels[j] == row:
				cell = "█"
			case c.view == ViewCandles && levels[j] >= row:
				cell = "█"
			}
			style := plotStyle
			if c.view == ViewCandles {
				if rising[j] {
					style = upStyle
				} else {
					style = downStyle
				}
			}
			if c.phase == PhaseSelecting && j >= bandLo && j <= bandHi {
				if cell == " " {
					cell = "░"
				}
				style = bandStyle
			}
			if cell == " " {
				b.WriteByte(' ')
			} else {
				b.WriteString(style.Render(cell))
			}
		}
		b.WriteByte('\n')
	}

	b.WriteString(strings.Repeat(" ", valueWidth+1))
	b.WriteString(axisStyle.Render(window[0].Date))
	gap := cols - len(window[0].Date) - len(window[len(window)-1].Date)
	if gap > 0 {
		b.WriteString(strings.Repeat(" ", gap))
		b.WriteString(axisStyle.Render(window[len(window)-1].Date))
	}
	return b.String()
}

func (c *Chart) renderStatement() string {
	window := c.StatementWindow()
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("%s  %s", c.ticker, c.label)))
	b.WriteString(subHeaderStyle.Render(fmt.Sprintf("  %d rows", len(window))))
	b.WriteByte('\n')

	maxAbs := 0.0
	for _, r := range window {
		if v := absF(r.Value); v > maxAbs {
			maxAbs = v
		}
	}
	if maxAbs == 0 {
		maxAbs = 1
	}

	barWidth := c.width - labelGutter - 16
	if barWidth < 8 {
		barWidth = 8
	}
	for _, r := range window {
		b.WriteString(axisStyle.Render(padLabel(r.Label, labelGutter)))
		n := int(float64(barWidth) * absF(r.Value) / maxAbs)
		if n < 1 {
			n = 1
		}
		style := c.categoryStyle(r.Category)
		b.WriteString(style.Render(strings.Repeat("█", n)))
		b.WriteByte(' ')
		b.WriteString(c.printer.Sprintf("%.0f", r.Value))
		b.WriteByte('\n')
	}
	return b.String()
}

func (c *Chart) categoryStyle(category string) lipgloss.Style {
	switch category {
	case "assets", "revenue", "operating":
		return upStyle
	case "liabilities", "expenses", "financing":
		return downStyle
	default:
		return plotStyle
	}
}

// plotColumns is the drawable column count for a window of n points.
func (c *Chart) plotColumns(n int) int {
	cols := c.width - 12
	if cols < 8 {
		cols = 8
	}
	if n < cols {
		cols = n
	}
	return cols
}

// selectionColumns maps the in-progress selection onto plot columns.
func (c *Chart) selectionColumns(cols, n int) (int, int) {
	if c.phase != PhaseSelecting || n == 0 {
		return -1, -1
	}
	lo := min(c.selStart, c.selEnd) * cols / n
	hi := max(c.selStart, c.selEnd) * cols / n
	return lo, hi
}

func pad(s string, w int) string {
	if d := w - runewidth.StringWidth(s); d > 0 {
		return strings.Repeat(" ", d) + s
	}
	return s
}

func padLabel(s string, w int) string {
	s = runewidth.Truncate(s, w-1, "…")
	return s + strings.Repeat(" ", w-runewidth.StringWidth(s))
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
