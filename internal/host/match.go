// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package host

import "strings"

// Heuristic matchers shared by production hosts and test fakes, so the
// engine behaves identically against both.

// newConversationLabels are substrings that identify a "start a new
// conversation" control by its visible text.
var newConversationLabels = []string{
	"new chat",
	"new conversation",
	"start new",
	"start over",
	"clear chat",
}

// submitLabels are substrings that identify a send control.
var submitLabels = []string{
	"send",
	"submit",
}

// IsNewConversationLabel reports whether a clicked control's label
// looks like a new-conversation action.
func IsNewConversationLabel(label string) bool {
	return matchesAny(label, newConversationLabels)
}

// IsSubmitLabel reports whether a control's label looks like a send
// action.
func IsSubmitLabel(label string) bool {
	return matchesAny(label, submitLabels)
}

func matchesAny(label string, patterns []string) bool {
	lower := strings.ToLower(strings.TrimSpace(label))
	if lower == "" {
		return false
	}
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// =============================================================================
// INPUT SELECTION
// =============================================================================

// InputClass ranks candidate inputs; lower values win.
type InputClass int

const (
	InputMultiline InputClass = iota
	InputSingleLine
	InputEditableRegion
)

// InputCandidate pairs a host input with its class for selection.
type InputCandidate struct {
	Class InputClass
	Input Input
}

// PickInput selects the primary input from candidates by priority:
// multiline, then single-line, then editable region. Ties go to the
// earlier candidate, matching document order.
func PickInput(candidates []InputCandidate) (Input, bool) {
	best := -1
	for i, c := range candidates {
		if c.Input == nil {
			continue
		}
		if best < 0 || c.Class < candidates[best].Class {
			best = i
		}
	}
	if best < 0 {
		return nil, false
	}
	return candidates[best].Input, true
}
