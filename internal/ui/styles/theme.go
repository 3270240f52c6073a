// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// CHAT STYLES
// =============================================================================

// UserMessage styles a user transcript entry.
var UserMessage = lipgloss.NewStyle().
	Foreground(UserBubbleFg).
	BorderStyle(lipgloss.NormalBorder()).
	BorderLeft(true).
	BorderForeground(UserBubbleBorder).
	PaddingLeft(1)

// AssistantMessage styles an assistant transcript entry.
var AssistantMessage = lipgloss.NewStyle().
	Foreground(AssistantBubbleFg).
	BorderStyle(lipgloss.NormalBorder()).
	BorderLeft(true).
	BorderForeground(AssistantBubbleBorder).
	PaddingLeft(1)

// InputBox frames the text input.
var InputBox = lipgloss.NewStyle().
	BorderStyle(lipgloss.RoundedBorder()).
	BorderForeground(Overlay).
	Padding(0, 1)

// InputBoxFocused frames the input while focused.
var InputBoxFocused = InputBox.Copy().
	BorderForeground(FocusRing)

// HelpBar styles the bottom key hints.
var HelpBar = lipgloss.NewStyle().
	Foreground(TextMuted)

// Header styles the top title bar.
var Header = lipgloss.NewStyle().
	Bold(true).
	Foreground(Cyan).
	Background(SurfaceDim).
	Padding(0, 1)

// =============================================================================
// OVERLAY STYLES
// =============================================================================

// SuggestionCard frames the suggestion overlay.
var SuggestionCard = lipgloss.NewStyle().
	BorderStyle(lipgloss.RoundedBorder()).
	BorderForeground(Purple).
	Padding(0, 1)

// SuggestionTitle styles the overlay heading.
var SuggestionTitle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Purple)

// SuggestionEntry styles one tappable example query.
var SuggestionEntry = lipgloss.NewStyle().
	Foreground(TextSecondary).
	PaddingLeft(2)

// =============================================================================
// CHART FRAME
// =============================================================================

// ChartFrame wraps an injected chart block inside the transcript.
var ChartFrame = lipgloss.NewStyle().
	BorderStyle(lipgloss.RoundedBorder()).
	BorderForeground(Overlay).
	Padding(0, 1).
	MarginLeft(2)
