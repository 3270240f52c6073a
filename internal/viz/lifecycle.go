// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package viz owns the lifecycle of injected chart visualizations: one
// mount per (message, query kind), created optimistically before data
// arrives, resolved asynchronously, and torn down exactly once.
package viz

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/jeranaias/marketlens-tui/internal/chart"
	"github.com/jeranaias/marketlens-tui/internal/classify"
	"github.com/jeranaias/marketlens-tui/internal/host"
	"github.com/jeranaias/marketlens-tui/internal/marketdata"
	"github.com/jeranaias/marketlens-tui/internal/runloop"
	"github.com/jeranaias/marketlens-tui/internal/util"
)

// =============================================================================
// MANAGER
// =============================================================================

// mountKey identifies one visualization slot. A message can host at
// most one chart per query kind.
type mountKey struct {
	messageID string
	kind      classify.Kind
}

// mount tracks one injected chart from container creation to removal.
type mount struct {
	node  host.Node
	block *host.Block
	chart *chart.Chart
}

// Manager creates, resolves, and destroys chart mounts. All methods
// must be called on the run loop; fetches leave the loop and re-enter
// it through Post, which drops them after teardown.
type Manager struct {
	loop      *runloop.Loop
	adapter   host.Adapter
	client    *marketdata.Client
	period    marketdata.Period
	exportDir string

	mounts map[mountKey]*mount
}

// NewManager creates a Manager fetching stock series over the given
// default lookback period.
func NewManager(loop *runloop.Loop, adapter host.Adapter, client *marketdata.Client, period marketdata.Period) *Manager {
	return &Manager{
		loop:    loop,
		adapter: adapter,
		client:  client,
		period:  period,
		mounts:  make(map[mountKey]*mount),
	}
}

// WithExportDir sets where chart exports are written. Empty means the
// current directory.
func (m *Manager) WithExportDir(dir string) *Manager {
	m.exportDir = dir
	return m
}

// Count returns the number of live mounts.
func (m *Manager) Count() int { return len(m.mounts) }

// PruneDead drops mounts whose message node the host has deleted.
// Detach on a dead node is a no-op in well-behaved hosts, but the call
// keeps the contract symmetric with DestroyAll.
func (m *Manager) PruneDead() {
	for key, mt := range m.mounts {
		if mt.node.Alive() {
			continue
		}
		mt.node.Detach(mt.block)
		delete(m.mounts, key)
	}
}

// =============================================================================
// MOUNT
// =============================================================================

// RequestMount injects a chart container under node for query q and
// starts the data fetch. A second request for the same (message, kind)
// is a no-op: the first mount wins, whatever state it is in.
func (m *Manager) RequestMount(node host.Node, messageID string, q classify.Query) {
	key := mountKey{messageID: messageID, kind: q.Kind}
	if _, exists := m.mounts[key]; exists {
		return
	}

	block := host.NewBlock(host.BlockChart)
	block.SetContent(fmt.Sprintf("%s · loading…", q.Ticker))
	if err := node.Attach(block); err != nil {
		log.Printf("viz: attach %s/%s: %v", messageID, q.Kind, err)
		return
	}

	mt := &mount{node: node, block: block}
	m.mounts[key] = mt

	go m.fetch(key, mt, q)
}

// fetch retrieves series data off the loop and posts the resolution
// back onto it. Posting after Close is dropped, so a torn-down engine
// never sees late results.
func (m *Manager) fetch(key mountKey, mt *mount, q classify.Query) {
	var (
		c   *chart.Chart
		err error
	)
	ctx := context.Background()
	switch q.Kind {
	case classify.KindStockPrice:
		var points []marketdata.StockPoint
		points, err = m.client.FetchStockSeries(ctx, q.Ticker, m.period)
		if err == nil && len(points) > 0 {
			c = chart.NewStockChart(q.Ticker, m.period, points)
		}
	case classify.KindFinancialStatement:
		var rows []marketdata.StatementRow
		stmt := marketdata.StatementType(q.StatementType)
		rows, err = m.client.FetchStatementSeries(ctx, q.Ticker, stmt)
		if err == nil && len(rows) > 0 {
			c = chart.NewStatementChart(q.Ticker, stmt, rows)
		}
	}

	m.loop.Post(func() {
		m.resolve(key, mt, c, err)
	})
}

// resolve finishes a fetch on the loop. Errors and empty series remove
// the container without any user-visible trace; the invalid-data
// placeholder inside a successful mount is the only failure a user can
// see.
func (m *Manager) resolve(key mountKey, mt *mount, c *chart.Chart, err error) {
	// Stale-handle guard: the slot may have been destroyed, or destroyed
	// and re-created, while the fetch was in flight.
	if current, ok := m.mounts[key]; !ok || current != mt {
		return
	}

	// The host may have deleted the message while the fetch was in
	// flight. Publishing into a detached block would leak the mount.
	if !mt.node.Alive() {
		mt.node.Detach(mt.block)
		delete(m.mounts, key)
		return
	}

	if err != nil || c == nil {
		switch {
		case err == nil:
		case marketdata.IsAuthFailure(err):
			log.Printf("viz: fetch %s/%s: check the configured API key: %v", key.messageID, key.kind, err)
		case marketdata.IsRateLimited(err):
			log.Printf("viz: fetch %s/%s: rate limited upstream: %v", key.messageID, key.kind, err)
		default:
			log.Printf("viz: fetch %s/%s: %v", key.messageID, key.kind, err)
		}
		mt.node.Detach(mt.block)
		delete(m.mounts, key)
		return
	}

	mt.chart = c
	mt.block.SetInteractionHandler(func(i host.Interaction) {
		m.loop.Post(func() { m.interact(mt, i) })
	})
	mt.block.SetContent(c.Render())
}

// interact applies one host gesture to a mounted chart and re-renders.
func (m *Manager) interact(mt *mount, i host.Interaction) {
	if mt.chart == nil {
		return
	}
	switch i.Kind {
	case host.PointerDown:
		mt.chart.PointerDown(i.Index)
	case host.PointerMove:
		mt.chart.PointerMove(i.Index)
	case host.PointerUp:
		mt.chart.PointerUp(i.Index)
	case host.BrushSet:
		mt.chart.SetBrush(i.Start, i.End)
	case host.ResetZoom:
		mt.chart.ResetZoom()
	case host.CycleView:
		mt.chart.CycleView()
	case host.ExportDelimited:
		m.export(mt.chart, &chart.DelimitedExporter{})
	case host.ExportSnapshot:
		m.export(mt.chart, &chart.SnapshotExporter{})
	}
	mt.block.SetContent(mt.chart.Render())
}

// export writes the full series to the export directory.
func (m *Manager) export(c *chart.Chart, e chart.Exporter) {
	dir := m.exportDir
	if dir == "" {
		dir = "."
	}
	data, err := e.Export(c)
	if err != nil {
		log.Printf("viz: export: %v", err)
		return
	}
	name := fmt.Sprintf("marketlens-%d.%s", time.Now().UnixNano(), e.FileExtension())
	path := filepath.Join(dir, name)
	if err := util.AtomicWriteFile(path, data, 0o644); err != nil {
		log.Printf("viz: write export %s: %v", path, err)
	}
}

// =============================================================================
// TEARDOWN
// =============================================================================

// DestroyAll unmounts every live chart, detaches its container, and
// clears the registry. In-flight fetches become stale: their mount is
// gone from the map by the time they resolve.
func (m *Manager) DestroyAll() {
	for key, mt := range m.mounts {
		mt.node.Detach(mt.block)
		delete(m.mounts, key)
	}
}
