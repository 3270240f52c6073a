// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package runloop

import (
	"testing"
	"time"
)

func TestLoop_PostRunsInOrder(t *testing.T) {
	l := New()
	l.Start()
	defer l.Close()

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}

	if !l.Sync(func() {}) {
		t.Fatal("Sync failed on a live loop")
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("got = %v, want sequential order", got)
		}
	}
}

func TestLoop_PostAfterCloseIsDropped(t *testing.T) {
	l := New()
	l.Start()
	l.Close()

	if l.Post(func() { t.Error("task ran after Close") }) {
		t.Error("Post after Close reported true")
	}
	if !l.TornDown() {
		t.Error("TornDown = false after Close")
	}
}

func TestLoop_PostDelayedFires(t *testing.T) {
	l := New()
	l.Start()
	defer l.Close()

	fired := make(chan struct{})
	l.PostDelayed(time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("delayed task never fired")
	}
}

func TestLoop_PostDelayedAfterCloseDropped(t *testing.T) {
	l := New()
	l.Start()
	l.PostDelayed(50*time.Millisecond, func() { t.Error("delayed task ran after Close") })
	l.Close() // returns before the timer fires

	time.Sleep(100 * time.Millisecond)
}

func TestLoop_TaskAcceptedBeforeCloseStillRuns(t *testing.T) {
	l := New()
	l.Start()

	gate := make(chan struct{})
	l.Post(func() { <-gate })

	ran := make(chan struct{})
	if !l.Post(func() { close(ran) }) {
		t.Fatal("Post on a live loop reported false")
	}

	// Close while the second task is still queued behind the gate.
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(gate)
	}()
	l.Close()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("task accepted before Close was dropped")
	}
}

func TestLoop_CloseTwice(t *testing.T) {
	l := New()
	l.Start()
	l.Close()
	l.Close() // must not panic or hang
}

func TestFlag(t *testing.T) {
	var f Flag
	if f.Get() {
		t.Error("new flag should be clear")
	}
	f.Set()
	if !f.Get() {
		t.Error("flag should be set")
	}
	f.Clear()
	if f.Get() {
		t.Error("flag should be clear again")
	}
}
