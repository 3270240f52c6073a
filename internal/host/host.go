// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package host defines the boundary between the augmentation engine
// and the conversation UI it decorates. The engine never assumes a
// concrete host: it observes and mutates the transcript only through
// the Adapter interface, so production hosts and test fakes share one
// contract. The host owns its transcript and controls; the engine owns
// only the Blocks it injects.
package host

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoTranscript indicates the host's message container was not found.
	ErrNoTranscript = errors.New("host transcript not found")

	// ErrNoAnchor indicates no insertion anchor exists for an overlay.
	ErrNoAnchor = errors.New("host overlay anchor not found")
)

// =============================================================================
// ADAPTER INTERFACE
// =============================================================================

// Adapter is the engine's view of a host conversation UI.
//
// Node references should be re-queried rather than cached across long
// delays; the host may re-render at any time.
type Adapter interface {
	// MessageNodes returns the current message-like nodes in transcript
	// order.
	MessageNodes() []Node

	// InputControl locates the host's primary text input, in priority
	// order: multiline, single-line, editable region.
	InputControl() (Input, bool)

	// SubmitControl locates the host's send control.
	SubmitControl() (Control, bool)

	// SubscribeMutations registers fn to run after structural transcript
	// changes. It returns a cancel function, or ErrNoTranscript when the
	// message container does not exist yet.
	SubscribeMutations(fn func()) (cancel func(), err error)

	// InsertBeforeInput inserts b as a preceding sibling of the input's
	// nearest container, never as a child of it.
	InsertBeforeInput(b *Block) error

	// RemoveBlock removes an injected block wherever it is attached.
	// Removing an unknown block is a no-op.
	RemoveBlock(b *Block)

	// RequestSubmit asks the host to submit its input form when no
	// dedicated send control was found. Returns false if the host has no
	// submit path at all.
	RequestSubmit() bool

	// Events delivers host interaction signals (keystrokes, submits,
	// control clicks, message-sent notifications) to the engine.
	Events() <-chan Event
}

// Node is one message-like element of the transcript. Markers are
// engine-written annotations stored on the node itself; if the host
// replaces the node, markers are lost with it.
type Node interface {
	Text() string
	Marker(key string) (string, bool)
	SetMarker(key, value string)

	// Attach appends b as the last child of the node's subtree.
	Attach(b *Block) error

	// Detach removes a previously attached block. Unknown blocks are a
	// no-op.
	Detach(b *Block)

	// Alive reports whether the backing host element still exists.
	Alive() bool
}

// Input is the host's text entry control. SetValue must flow through
// the host's own change-detection path; NotifyChanged emits the host's
// input/change notifications afterwards.
type Input interface {
	SetValue(text string)
	NotifyChanged()
	Focused() bool
}

// Control is an activatable host element (a send button). Activate
// returns false when the element could not be activated.
type Control interface {
	Activate() bool
}

// =============================================================================
// EVENTS
// =============================================================================

// EventKind discriminates host interaction signals.
type EventKind int

const (
	// EventKeystroke is any keystroke in the host's input.
	EventKeystroke EventKind = iota

	// EventSubmit is a user-driven submit of the host's input.
	EventSubmit

	// EventMessageSent is the host's own "message sent" signal.
	EventMessageSent

	// EventControlClick is a click on some host control; Label carries
	// the control's visible text for heuristic matching.
	EventControlClick
)

// Event is one host interaction signal.
type Event struct {
	Kind  EventKind
	Label string
}

// =============================================================================
// INTERACTIONS
// =============================================================================

// InteractionKind discriminates pointer and control gestures the host
// forwards to an injected block.
type InteractionKind int

const (
	PointerDown InteractionKind = iota
	PointerMove
	PointerUp
	BrushSet
	ResetZoom
	CycleView
	ExportDelimited
	ExportSnapshot
)

// Interaction is one gesture on an injected block. Index is the data
// column under the pointer; Start/End carry a brush range.
type Interaction struct {
	Kind  InteractionKind
	Index int
	Start int
	End   int
}

// =============================================================================
// BLOCK
// =============================================================================

// BlockKind labels what an injected block renders.
type BlockKind string

const (
	BlockChart   BlockKind = "chart"
	BlockOverlay BlockKind = "overlay"
)

// Block is an engine-owned renderable region injected into the host.
// The engine writes content from its run loop while the host reads it
// from its render loop, so access is synchronized here rather than in
// either owner.
type Block struct {
	id   string
	kind BlockKind

	mu         sync.Mutex
	content    string
	entries    []string
	onActivate func(entry string) bool
	onInteract func(Interaction)
}

// NewBlock creates an empty block of the given kind.
func NewBlock(kind BlockKind) *Block {
	return &Block{
		id:   uuid.NewString(),
		kind: kind,
	}
}

// ID returns the block's unique identity.
func (b *Block) ID() string { return b.id }

// Kind returns what the block renders.
func (b *Block) Kind() BlockKind { return b.kind }

// Content returns the current rendered content.
func (b *Block) Content() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.content
}

// SetContent replaces the rendered content.
func (b *Block) SetContent(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.content = s
}

// Entries returns the activatable entries (overlay suggestions).
func (b *Block) Entries() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.entries))
	copy(out, b.entries)
	return out
}

// SetEntries replaces the activatable entries.
func (b *Block) SetEntries(entries []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append([]string(nil), entries...)
}

// SetActivateHandler installs the handler invoked when the host
// activates an entry (click, or Enter/Space while focused).
func (b *Block) SetActivateHandler(fn func(entry string) bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onActivate = fn
}

// Activate is called by the host when the user activates entry. It
// returns true when the engine consumed the interaction, in which case
// the host must suppress its own default handling.
func (b *Block) Activate(entry string) bool {
	b.mu.Lock()
	fn := b.onActivate
	b.mu.Unlock()
	if fn == nil {
		return false
	}
	return fn(entry)
}

// SetInteractionHandler installs the handler for pointer and control
// gestures on the block.
func (b *Block) SetInteractionHandler(fn func(Interaction)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onInteract = fn
}

// Interact is called by the host to forward a gesture.
func (b *Block) Interact(i Interaction) {
	b.mu.Lock()
	fn := b.onInteract
	b.mu.Unlock()
	if fn != nil {
		fn(i)
	}
}
