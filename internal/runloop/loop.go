// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package runloop provides the engine's single logical thread.
//
// Every engine handler — mutation callbacks, sweep ticks, fetch
// continuations, overlay transitions, sender steps — executes on one
// loop goroutine, so component state never needs locks. Timers fire
// through PostDelayed with no guaranteed relative order across
// independently scheduled timers; handlers must check current state
// rather than assume ordering.
package runloop

import (
	"sync"
	"time"
)

// =============================================================================
// LOOP
// =============================================================================

// Loop is a serialized task queue driven by one goroutine.
type Loop struct {
	tasks chan func()
	quit  chan struct{}

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// New creates a loop. Call Start before posting.
func New() *Loop {
	return &Loop{
		tasks: make(chan func(), 256),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Start launches the loop goroutine.
func (l *Loop) Start() {
	go l.run()
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-l.quit:
			// Tasks accepted before Close still run: a true from Post
			// is a guarantee, not a hint.
			for {
				select {
				case fn := <-l.tasks:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Post enqueues fn for execution on the loop. It reports false when
// the loop is already torn down, in which case fn never runs; true
// means fn will run. The enqueue holds the teardown lock so Close
// cannot slip between the check and the send. Post may block when the
// queue is full and the loop was never started.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.tasks <- fn
	return true
}

// PostDelayed schedules fn to run on the loop after d. The returned
// timer may be stopped to cancel a not-yet-fired task; a fired task is
// still discarded if the loop tears down first.
func (l *Loop) PostDelayed(d time.Duration, fn func()) *time.Timer {
	return time.AfterFunc(d, func() {
		l.Post(fn)
	})
}

// TornDown reports whether Close has been called. Pending continuations
// check this before touching shared state.
func (l *Loop) TornDown() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Close tears the loop down. Tasks already accepted by Post run to
// completion first; Close returns once the loop goroutine has exited.
// Safe to call twice.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	close(l.quit)
	l.mu.Unlock()
	<-l.done
}

// Sync runs fn on the loop and waits for it to finish. It returns
// false without running fn when the loop is torn down. Must not be
// called from the loop goroutine itself.
func (l *Loop) Sync(fn func()) bool {
	ch := make(chan struct{})
	ok := l.Post(func() {
		fn()
		close(ch)
	})
	if !ok {
		return false
	}
	select {
	case <-ch:
		return true
	case <-l.done:
		return false
	}
}

// =============================================================================
// SYNTHETIC INTERACTION FLAG
// =============================================================================

// Flag is the shared "synthetic interaction in progress" marker. It is
// owned by the engine shell and handed to the overlay controller and
// the programmatic sender; the loop is its single writer, while hosts
// may read it from their own goroutines.
type Flag struct {
	mu  sync.Mutex
	set bool
}

// Set marks a synthetic interaction as in progress.
func (f *Flag) Set() {
	f.mu.Lock()
	f.set = true
	f.mu.Unlock()
}

// Clear marks the synthetic interaction as finished.
func (f *Flag) Clear() {
	f.mu.Lock()
	f.set = false
	f.mu.Unlock()
}

// Get reports whether a synthetic interaction is in progress.
func (f *Flag) Get() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.set
}
