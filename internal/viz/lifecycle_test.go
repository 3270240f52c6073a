// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package viz

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jeranaias/marketlens-tui/internal/classify"
	"github.com/jeranaias/marketlens-tui/internal/host"
	"github.com/jeranaias/marketlens-tui/internal/host/hosttest"
	"github.com/jeranaias/marketlens-tui/internal/marketdata"
	"github.com/jeranaias/marketlens-tui/internal/runloop"
)

const stockPayload = `{"ticker":"AAPL","points":[
	{"date":"2024-01-02","open":185.0,"high":186.0,"low":184.0,"close":185.5},
	{"date":"2024-01-03","open":185.5,"high":187.0,"low":185.0,"close":186.2},
	{"date":"2024-01-04","open":186.2,"high":188.0,"low":186.0,"close":187.9}
]}`

func newManager(t *testing.T, handler http.HandlerFunc) (*Manager, *runloop.Loop, *hosttest.Host) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	loop := runloop.New()
	loop.Start()
	t.Cleanup(loop.Close)

	h := hosttest.New()
	client := marketdata.NewClient().WithBaseURL(server.URL)
	return NewManager(loop, h, client, marketdata.Period1Mo), loop, h
}

// waitFor polls cond on the loop until it holds or the deadline hits.
func waitFor(t *testing.T, loop *runloop.Loop, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ok := false
		loop.Sync(func() { ok = cond() })
		if ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestRequestMountIsIdempotent(t *testing.T) {
	var hits atomic.Int32
	mgr, loop, h := newManager(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(stockPayload))
	})

	node := h.AddMessage("chart AAPL please")
	q := classify.Query{Kind: classify.KindStockPrice, Ticker: "AAPL"}

	loop.Sync(func() {
		mgr.RequestMount(node, "msg-1", q)
		mgr.RequestMount(node, "msg-1", q)
	})

	waitFor(t, loop, func() bool {
		blocks := node.Blocks()
		return len(blocks) == 1 && strings.Contains(blocks[0].Content(), "pts")
	})

	if got := hits.Load(); got != 1 {
		t.Errorf("fetch count = %d, want 1", got)
	}
	loop.Sync(func() {
		if got := mgr.Count(); got != 1 {
			t.Errorf("mount count = %d, want 1", got)
		}
	})
}

func TestSameMessageDifferentKindsMountSeparately(t *testing.T) {
	mgr, loop, h := newManager(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/statements/") {
			w.Write([]byte(`{"ticker":"AAPL","rows":[{"label":"Total Revenue","value":3.8e11,"category":"revenue"}]}`))
			return
		}
		w.Write([]byte(stockPayload))
	})

	node := h.AddMessage("chart and balance sheet for AAPL")
	loop.Sync(func() {
		mgr.RequestMount(node, "msg-1", classify.Query{Kind: classify.KindStockPrice, Ticker: "AAPL"})
		mgr.RequestMount(node, "msg-1", classify.Query{
			Kind: classify.KindFinancialStatement, Ticker: "AAPL",
			StatementType: classify.StatementBalance,
		})
	})

	waitFor(t, loop, func() bool { return mgr.Count() == 2 })
	if got := len(node.Blocks()); got != 2 {
		t.Errorf("attached blocks = %d, want 2", got)
	}
}

func TestFetchErrorRemovesContainerSilently(t *testing.T) {
	mgr, loop, h := newManager(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	node := h.AddMessage("chart AAPL")
	loop.Sync(func() {
		mgr.RequestMount(node, "msg-1", classify.Query{Kind: classify.KindStockPrice, Ticker: "AAPL"})
	})

	waitFor(t, loop, func() bool { return mgr.Count() == 0 })
	if got := len(node.Blocks()); got != 0 {
		t.Errorf("attached blocks after failed fetch = %d, want 0", got)
	}
}

func TestEmptySeriesRemovesContainer(t *testing.T) {
	mgr, loop, h := newManager(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ticker":"AAPL","points":[]}`))
	})

	node := h.AddMessage("chart AAPL")
	loop.Sync(func() {
		mgr.RequestMount(node, "msg-1", classify.Query{Kind: classify.KindStockPrice, Ticker: "AAPL"})
	})

	waitFor(t, loop, func() bool { return mgr.Count() == 0 && len(node.Blocks()) == 0 })
}

func TestDestroyAllDuringFetchIsImmune(t *testing.T) {
	release := make(chan struct{})
	mgr, loop, h := newManager(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(stockPayload))
	})

	node := h.AddMessage("chart AAPL")
	loop.Sync(func() {
		mgr.RequestMount(node, "msg-1", classify.Query{Kind: classify.KindStockPrice, Ticker: "AAPL"})
	})
	loop.Sync(func() { mgr.DestroyAll() })
	close(release)

	// The stale resolution must not resurrect the mount or re-attach.
	time.Sleep(100 * time.Millisecond)
	loop.Sync(func() {
		if got := mgr.Count(); got != 0 {
			t.Errorf("mount count = %d, want 0", got)
		}
	})
	if got := len(node.Blocks()); got != 0 {
		t.Errorf("attached blocks = %d, want 0", got)
	}
}

func TestNodeRemovedDuringFetchDropsMount(t *testing.T) {
	release := make(chan struct{})
	mgr, loop, h := newManager(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(stockPayload))
	})

	node := h.AddMessage("chart AAPL")
	loop.Sync(func() {
		mgr.RequestMount(node, "msg-1", classify.Query{Kind: classify.KindStockPrice, Ticker: "AAPL"})
	})
	h.RemoveMessage(node)
	close(release)

	// The resolution must notice the dead node and drop the handle
	// instead of publishing into a detached block.
	waitFor(t, loop, func() bool { return mgr.Count() == 0 })
}

func TestPruneDeadDropsRemovedNodes(t *testing.T) {
	mgr, loop, h := newManager(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(stockPayload))
	})

	kept := h.AddMessage("chart AAPL")
	doomed := h.AddMessage("chart AAPL again")
	loop.Sync(func() {
		mgr.RequestMount(kept, "msg-1", classify.Query{Kind: classify.KindStockPrice, Ticker: "AAPL"})
		mgr.RequestMount(doomed, "msg-2", classify.Query{Kind: classify.KindStockPrice, Ticker: "AAPL"})
	})
	waitFor(t, loop, func() bool { return mgr.Count() == 2 })

	h.RemoveMessage(doomed)
	loop.Sync(func() { mgr.PruneDead() })

	loop.Sync(func() {
		if got := mgr.Count(); got != 1 {
			t.Errorf("mount count after prune = %d, want 1", got)
		}
	})
	if got := len(kept.Blocks()); got != 1 {
		t.Errorf("surviving node blocks = %d, want 1", got)
	}
}

func TestRemountAfterDestroyResolvesFresh(t *testing.T) {
	var hits atomic.Int32
	mgr, loop, h := newManager(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(stockPayload))
	})

	node := h.AddMessage("chart AAPL")
	q := classify.Query{Kind: classify.KindStockPrice, Ticker: "AAPL"}

	loop.Sync(func() { mgr.RequestMount(node, "msg-1", q) })
	waitFor(t, loop, func() bool { return mgr.Count() == 1 })
	loop.Sync(func() {
		mgr.DestroyAll()
		mgr.RequestMount(node, "msg-1", q)
	})

	waitFor(t, loop, func() bool {
		blocks := node.Blocks()
		return mgr.Count() == 1 && len(blocks) == 1 &&
			strings.Contains(blocks[0].Content(), "pts")
	})
	if got := hits.Load(); got != 2 {
		t.Errorf("fetch count = %d, want 2", got)
	}
}

func TestExportDefaultsToCurrentDirectory(t *testing.T) {
	t.Chdir(t.TempDir())
	mgr, loop, h := newManager(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(stockPayload))
	})

	node := h.AddMessage("chart AAPL")
	loop.Sync(func() {
		mgr.RequestMount(node, "msg-1", classify.Query{Kind: classify.KindStockPrice, Ticker: "AAPL"})
	})
	waitFor(t, loop, func() bool {
		blocks := node.Blocks()
		return len(blocks) == 1 && strings.Contains(blocks[0].Content(), "pts")
	})

	node.Blocks()[0].Interact(host.Interaction{Kind: host.ExportDelimited})

	waitFor(t, loop, func() bool {
		matches, _ := filepath.Glob("marketlens-*.csv")
		return len(matches) == 1
	})
}

func TestInteractionsReachMountedChart(t *testing.T) {
	mgr, loop, h := newManager(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(stockPayload))
	})

	node := h.AddMessage("chart AAPL")
	loop.Sync(func() {
		mgr.RequestMount(node, "msg-1", classify.Query{Kind: classify.KindStockPrice, Ticker: "AAPL"})
	})
	waitFor(t, loop, func() bool {
		blocks := node.Blocks()
		return len(blocks) == 1 && strings.Contains(blocks[0].Content(), "pts")
	})

	block := node.Blocks()[0]
	before := block.Content()
	block.Interact(host.Interaction{Kind: host.BrushSet, Start: 0, End: 1})

	waitFor(t, loop, func() bool { return block.Content() != before })
	if !strings.Contains(block.Content(), "2 pts") {
		t.Errorf("content after brush = %q, want 2-point window", block.Content())
	}
}
