// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chart

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
)

// =============================================================================
// EXPORTERS
// =============================================================================

var (
	// ErrInvalidChart is returned when exporting a chart that failed
	// the validity gate.
	ErrInvalidChart = errors.New("chart: invalid data")
)

// Exporter converts a chart to a client-local byte representation.
// Exports always cover the full fetched series regardless of zoom and
// never touch the network.
type Exporter interface {
	// Export converts the chart to the target format.
	Export(c *Chart) ([]byte, error)

	// FileExtension returns the extension without the dot.
	FileExtension() string

	// MimeType returns the MIME type of the exported content.
	MimeType() string
}

// =============================================================================
// DELIMITED EXPORT
// =============================================================================

// DelimitedExporter writes the full series as delimited text.
type DelimitedExporter struct {
	// Separator is the field delimiter. Zero means comma.
	Separator rune
}

// Export implements Exporter.
func (e *DelimitedExporter) Export(c *Chart) ([]byte, error) {
	if !c.Valid() {
		return nil, ErrInvalidChart
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if e.Separator != 0 {
		w.Comma = e.Separator
	}

	if c.stock != nil {
		if err := w.Write([]string{"date", "open", "high", "low", "close", "volume"}); err != nil {
			return nil, fmt.Errorf("chart: write header: %w", err)
		}
		for _, p := range c.stock {
			volume := ""
			if p.Volume != nil {
				volume = strconv.FormatInt(*p.Volume, 10)
			}
			record := []string{
				p.Date,
				formatFloat(p.Open),
				formatFloat(p.High),
				formatFloat(p.Low),
				formatFloat(p.Close),
				volume,
			}
			if err := w.Write(record); err != nil {
				return nil, fmt.Errorf("chart: write row: %w", err)
			}
		}
	} else {
		if err := w.Write([]string{"label", "value", "category"}); err != nil {
			return nil, fmt.Errorf("chart: write header: %w", err)
		}
		for _, r := range c.rows {
			record := []string{r.Label, formatFloat(r.Value), r.Category}
			if err := w.Write(record); err != nil {
				return nil, fmt.Errorf("chart: write row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("chart: flush: %w", err)
	}
	return buf.Bytes(), nil
}

// FileExtension implements Exporter.
func (e *DelimitedExporter) FileExtension() string { return "csv" }

// MimeType implements Exporter.
func (e *DelimitedExporter) MimeType() string { return "text/csv" }

// =============================================================================
// SNAPSHOT EXPORT
// =============================================================================

// SnapshotExporter rasterizes the full series to a PNG image.
type SnapshotExporter struct {
	// Width and Height are the image dimensions in pixels. Zero means
	// the defaults.
	Width  int
	Height int
}

const (
	snapshotWidth  = 640
	snapshotHeight = 320
	snapshotMargin = 16
)

var (
	snapshotBG   = color.RGBA{R: 0x1a, G: 0x1b, B: 0x26, A: 0xff}
	snapshotFG   = color.RGBA{R: 0x7d, G: 0xcf, B: 0xff, A: 0xff}
	snapshotUp   = color.RGBA{R: 0x9e, G: 0xce, B: 0x6a, A: 0xff}
	snapshotDown = color.RGBA{R: 0xf7, G: 0x76, B: 0x8e, A: 0xff}
)

// Export implements Exporter.
func (e *SnapshotExporter) Export(c *Chart) ([]byte, error) {
	if !c.Valid() {
		return nil, ErrInvalidChart
	}

	width, height := e.Width, e.Height
	if width <= 0 {
		width = snapshotWidth
	}
	if height <= 0 {
		height = snapshotHeight
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(snapshotBG), image.Point{}, draw.Src)

	if c.stock != nil {
		e.drawStock(img, c, width, height)
	} else {
		e.drawStatement(img, c, width, height)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("chart: encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// FileExtension implements Exporter.
func (e *SnapshotExporter) FileExtension() string { return "png" }

// MimeType implements Exporter.
func (e *SnapshotExporter) MimeType() string { return "image/png" }

func (e *SnapshotExporter) drawStock(img *image.RGBA, c *Chart, width, height int) {
	points := c.stock
	lo, hi := points[0].Close, points[0].Close
	for _, p := range points {
		if p.Close < lo {
			lo = p.Close
		}
		if p.Close > hi {
			hi = p.Close
		}
	}
	if hi == lo {
		hi = lo + 1
	}

	plotW := width - 2*snapshotMargin
	plotH := height - 2*snapshotMargin
	step := float64(plotW) / float64(len(points))
	for i, p := range points {
		x := snapshotMargin + int(float64(i)*step)
		y := snapshotMargin + plotH - int(float64(plotH)*(p.Close-lo)/(hi-lo))
		col := snapshotFG
		if p.Close < p.Open {
			col = snapshotDown
		} else if p.Close > p.Open {
			col = snapshotUp
		}
		fillRect(img, x, y, max(int(step), 1), snapshotMargin+plotH-y+1, col)
	}
}

func (e *SnapshotExporter) drawStatement(img *image.RGBA, c *Chart, width, height int) {
	rows := c.rows
	maxAbs := 0.0
	for _, r := range rows {
		if v := absF(r.Value); v > maxAbs {
			maxAbs = v
		}
	}
	if maxAbs == 0 {
		maxAbs = 1
	}

	plotW := width - 2*snapshotMargin
	rowH := (height - 2*snapshotMargin) / len(rows)
	for i, r := range rows {
		barW := int(float64(plotW) * absF(r.Value) / maxAbs)
		col := snapshotFG
		if r.Value < 0 {
			col = snapshotDown
		}
		fillRect(img, snapshotMargin, snapshotMargin+i*rowH, max(barW, 1), max(rowH-2, 1), col)
	}
}

func fillRect(img *image.RGBA, x, y, w, h int, c color.RGBA) {
	rect := image.Rect(x, y, x+w, y+h).Intersect(img.Bounds())
	draw.Draw(img, rect, image.NewUniform(c), image.Point{}, draw.Src)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
