// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the demo chat TUI that hosts the augmentation
// engine. It owns the transcript, input line, and key handling, and
// exposes the transcript to the engine through the Host adapter.
package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/marketlens-tui/internal/host"
	"github.com/jeranaias/marketlens-tui/internal/ui/styles"
	"github.com/jeranaias/marketlens-tui/internal/util"
)

// =============================================================================
// MESSAGES
// =============================================================================

// refreshMsg asks the model to rebuild the viewport from the
// transcript. The adapter sends it whenever the engine mutates blocks.
type refreshMsg struct{}

// setInputMsg replaces the input line's content. Sent by the adapter
// when the engine pre-fills a suggestion.
type setInputMsg struct {
	text string
}

// submitMsg submits whatever is in the input line, as if the user
// pressed enter.
type submitMsg struct{}

// assistantReplyMsg delivers the canned assistant response after a
// short think delay.
type assistantReplyMsg struct {
	text string
}

// =============================================================================
// MODEL
// =============================================================================

const replyDelay = 600 * time.Millisecond

// Model is the Bubble Tea model for the chat view.
type Model struct {
	host *Host

	// UI components
	viewport viewport.Model
	input    textinput.Model
	renderer *glamour.TermRenderer

	keyMap keyMap

	// Brush window driven by alt+arrow keys. The chart clamps both
	// edges, so a wide initial window means "everything".
	brushLo int
	brushHi int

	width  int
	height int
}

// New builds the chat model around the given adapter.
func New(h *Host) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about a ticker, e.g. \"AAPL stock price\""
	ti.Focus()
	ti.CharLimit = 512

	vp := viewport.New(80, 20)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(72),
	)
	if err != nil {
		renderer = nil // fall back to plain text
	}

	return Model{
		host:     h,
		viewport: vp,
		input:    ti,
		renderer: renderer,
		keyMap:   defaultKeyMap(),
		brushLo:  0,
		brushHi:  120,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-6, 4)
		m.input.Width = max(msg.Width-6, 20)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case setInputMsg:
		m.input.SetValue(msg.text)
		m.input.CursorEnd()
		m.host.input.sync(m.input.Value(), m.input.Focused())
		return m, nil

	case submitMsg:
		return m, m.submit()

	case refreshMsg:
		m.refresh()
		return m, nil

	case assistantReplyMsg:
		m.host.addMessage(RoleAssistant, msg.text)
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.NewChat):
		m.host.clearTranscript()
		m.host.emit(host.Event{Kind: host.EventControlClick, Label: "New Chat"})
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keyMap.Send):
		return m, m.submit()

	case key.Matches(msg, m.keyMap.ResetZoom):
		m.interactChart(host.Interaction{Kind: host.ResetZoom})
		return m, nil

	case key.Matches(msg, m.keyMap.CycleView):
		m.interactChart(host.Interaction{Kind: host.CycleView})
		return m, nil

	case key.Matches(msg, m.keyMap.ExportCSV):
		m.interactChart(host.Interaction{Kind: host.ExportDelimited})
		return m, nil

	case key.Matches(msg, m.keyMap.ExportPNG):
		m.interactChart(host.Interaction{Kind: host.ExportSnapshot})
		return m, nil

	case key.Matches(msg, m.keyMap.BrushLeft):
		if m.brushHi-m.brushLo > 4 {
			m.brushLo += 2
			m.brushHi -= 2
		}
		m.interactChart(host.Interaction{Kind: host.BrushSet, Start: m.brushLo, End: m.brushHi})
		return m, nil

	case key.Matches(msg, m.keyMap.BrushRight):
		m.brushLo = max(m.brushLo-2, 0)
		m.brushHi += 2
		m.interactChart(host.Interaction{Kind: host.BrushSet, Start: m.brushLo, End: m.brushHi})
		return m, nil

	case key.Matches(msg, m.keyMap.Suggest1):
		m.activateSuggestion(0)
		return m, nil
	case key.Matches(msg, m.keyMap.Suggest2):
		m.activateSuggestion(1)
		return m, nil
	case key.Matches(msg, m.keyMap.Suggest3):
		m.activateSuggestion(2)
		return m, nil
	case key.Matches(msg, m.keyMap.Suggest4):
		m.activateSuggestion(3)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.host.input.sync(m.input.Value(), m.input.Focused())
	m.host.emit(host.Event{Kind: host.EventKeystroke})
	return m, cmd
}

// submit posts the input line as a user message and schedules the
// canned assistant reply.
func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}
	m.input.Reset()
	m.host.input.sync(m.input.Value(), m.input.Focused())

	m.host.addMessage(RoleUser, text)
	m.host.emit(host.Event{Kind: host.EventSubmit})
	m.host.emit(host.Event{Kind: host.EventMessageSent})
	m.refresh()
	m.viewport.GotoBottom()

	reply := cannedReply(text)
	return tea.Tick(replyDelay, func(time.Time) tea.Msg {
		return assistantReplyMsg{text: reply}
	})
}

// interactChart forwards a gesture to the most recently injected
// chart, if any.
func (m *Model) interactChart(i host.Interaction) {
	if b := m.host.lastChartBlock(); b != nil {
		b.Interact(i)
	}
}

// activateSuggestion clicks the nth entry on the suggestion overlay.
func (m *Model) activateSuggestion(n int) {
	b := m.host.overlayBlock()
	if b == nil {
		return
	}
	entries := b.Entries()
	if n < 0 || n >= len(entries) {
		return
	}
	b.Activate(entries[n])
}

// cannedReply fakes the assistant side of the conversation. The demo
// host has no model behind it; the point is exercising the engine.
func cannedReply(prompt string) string {
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "price") || strings.Contains(lower, "stock"):
		return "Here's what I found. The chart below tracks recent trading — drag or use alt+arrows to zoom into a range."
	case strings.Contains(lower, "income") || strings.Contains(lower, "balance") || strings.Contains(lower, "cash"):
		return "I pulled the latest filings. The statement chart below breaks the figures down by line item."
	default:
		return "I can help with market questions. Try asking about a ticker's stock price or one of its financial statements."
	}
}

// =============================================================================
// VIEW
// =============================================================================

// refresh rebuilds the viewport from the transcript and any injected
// blocks.
func (m *Model) refresh() {
	var b strings.Builder
	for _, n := range m.host.messages() {
		switch n.Role() {
		case RoleUser:
			b.WriteString(styles.UserMessage.Render("you: " + n.Text()))
		case RoleAssistant:
			b.WriteString(styles.AssistantMessage.Render(m.renderMarkdown(n.Text())))
		}
		b.WriteString("\n")
		for _, blk := range n.Blocks() {
			if blk.Kind() == host.BlockChart {
				b.WriteString(styles.ChartFrame.Render(blk.Content()))
				b.WriteString("\n")
			}
		}
	}
	m.viewport.SetContent(b.String())
}

func (m *Model) renderMarkdown(text string) string {
	if m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// View implements tea.Model.
func (m Model) View() string {
	var sections []string

	sections = append(sections, styles.Header.Render("marketlens"))
	sections = append(sections, m.viewport.View())

	if card := m.suggestionView(); card != "" {
		sections = append(sections, card)
	}

	box := styles.InputBox
	if m.input.Focused() {
		box = styles.InputBoxFocused
	}
	sections = append(sections, box.Render(m.input.View()))

	sections = append(sections, styles.HelpBar.Render(
		"enter send · ctrl+n new chat · alt+1..4 suggestions · alt+r/v reset/view · alt+e/s export · alt+←/→ brush · ctrl+c quit",
	))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// suggestionView renders the engine's overlay card, if one is shown.
func (m Model) suggestionView() string {
	b := m.host.overlayBlock()
	if b == nil {
		return ""
	}
	var lines []string
	lines = append(lines, styles.SuggestionTitle.Render(b.Content()))
	for i, e := range b.Entries() {
		entry := util.TruncateRunes(e, 64)
		lines = append(lines, styles.SuggestionEntry.Render(fmt.Sprintf("alt+%d  %s", i+1, entry)))
	}
	return styles.SuggestionCard.Render(strings.Join(lines, "\n"))
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
