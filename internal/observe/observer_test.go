// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package observe

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jeranaias/marketlens-tui/internal/host/hosttest"
	"github.com/jeranaias/marketlens-tui/internal/marketdata"
	"github.com/jeranaias/marketlens-tui/internal/runloop"
	"github.com/jeranaias/marketlens-tui/internal/viz"
)

const stockPayload = `{"ticker":"AAPL","points":[
	{"date":"2024-01-02","close":185.5},
	{"date":"2024-01-03","close":186.2}
]}`

// fastOptions keeps test timing tight.
func fastOptions() Options {
	return Options{
		SettleDelay:      10 * time.Millisecond,
		SweepInterval:    25 * time.Millisecond,
		DiscoveryRetries: 3,
		DiscoveryDelay:   10 * time.Millisecond,
	}
}

func newObserver(t *testing.T) (*Observer, *viz.Manager, *runloop.Loop, *hosttest.Host, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(stockPayload))
	}))
	t.Cleanup(server.Close)

	loop := runloop.New()
	loop.Start()
	t.Cleanup(loop.Close)

	h := hosttest.New()
	client := marketdata.NewClient().WithBaseURL(server.URL)
	vm := viz.NewManager(loop, h, client, marketdata.Period1Mo)
	return New(loop, h, vm, fastOptions()), vm, loop, h, &hits
}

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

func TestMessageClassifiedExactlyOnce(t *testing.T) {
	obs, vm, loop, h, hits := newObserver(t)

	h.AddMessage("show me a chart of AAPL")
	obs.Start()

	waitFor(t, loop, func() bool { return vm.Count() == 1 })

	// Let several sweeps and mutation notifications pass over the same
	// node; the processed marker must hold.
	h.AddMessage("just chatting, nothing financial")
	time.Sleep(100 * time.Millisecond)

	loop.Sync(func() {
		if got := vm.Count(); got != 1 {
			t.Errorf("mount count = %d, want 1", got)
		}
	})
	if got := hits.Load(); got != 1 {
		t.Errorf("fetch count = %d, want 1", got)
	}
}

func TestNonMatchingMessageIsMarkedNotMounted(t *testing.T) {
	obs, vm, loop, h, _ := newObserver(t)
	node := h.AddMessage("what is the weather like")
	obs.Start()

	waitFor(t, loop, func() bool {
		_, done := node.Marker("marketlens-processed")
		return done
	})
	loop.Sync(func() {
		if got := vm.Count(); got != 0 {
			t.Errorf("mount count = %d, want 0", got)
		}
	})
}

func TestMessagesAddedAfterStartAreScanned(t *testing.T) {
	obs, vm, loop, h, _ := newObserver(t)
	obs.Start()
	waitFor(t, loop, func() bool { return true }) // settle

	time.Sleep(30 * time.Millisecond)
	h.AddMessage("what's the quote for MSFT")

	waitFor(t, loop, func() bool { return vm.Count() == 1 })
}

func TestReplacedNodeLosesIdentityAndIsSeenAgain(t *testing.T) {
	obs, vm, loop, h, hits := newObserver(t)
	node := h.AddMessage("chart AAPL for me")
	obs.Start()
	waitFor(t, loop, func() bool { return vm.Count() == 1 })

	// Host re-render replaces the node wholesale; markers go with it.
	h.ReplaceMessage(node)

	waitFor(t, loop, func() bool { return hits.Load() == 2 })

	// The fresh node is classified again; the dead node's mount is
	// pruned, so exactly one mount survives.
	waitFor(t, loop, func() bool { return vm.Count() == 1 })
}

func TestRemovedMessageMountIsPrunedBySweep(t *testing.T) {
	obs, vm, loop, h, _ := newObserver(t)
	node := h.AddMessage("chart AAPL")
	obs.Start()
	waitFor(t, loop, func() bool { return vm.Count() == 1 })

	h.RemoveMessage(node)

	waitFor(t, loop, func() bool { return vm.Count() == 0 })
}

func TestMissingTranscriptFailsOpenToSweep(t *testing.T) {
	obs, vm, loop, h, _ := newObserver(t)
	h.NoTranscript = true
	obs.Start()

	// Discovery exhausts its retries; the sweep must still pick up new
	// messages.
	time.Sleep(60 * time.Millisecond)
	h.AddMessage("show the stock chart for NVDA")

	waitFor(t, loop, func() bool { return vm.Count() == 1 })
}

func TestStopDestroysMountsAndIgnoresNewMessages(t *testing.T) {
	obs, vm, loop, h, _ := newObserver(t)
	node := h.AddMessage("chart AAPL")
	obs.Start()
	waitFor(t, loop, func() bool { return vm.Count() == 1 })

	obs.Stop()
	waitFor(t, loop, func() bool { return vm.Count() == 0 })
	if got := len(node.Blocks()); got != 0 {
		t.Errorf("attached blocks after stop = %d, want 0", got)
	}

	h.AddMessage("chart MSFT")
	time.Sleep(80 * time.Millisecond)
	loop.Sync(func() {
		if got := vm.Count(); got != 0 {
			t.Errorf("mount count after stop = %d, want 0", got)
		}
	})
}

func TestStopTwiceIsSafe(t *testing.T) {
	obs, _, loop, h, _ := newObserver(t)
	h.AddMessage("chart AAPL")
	obs.Start()

	obs.Stop()
	obs.Stop()
	loop.Sync(func() {})
}
