// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the chat keybindings. Chart keys act on the most
// recently injected chart.
type keyMap struct {
	Send       key.Binding
	NewChat    key.Binding
	Quit       key.Binding
	ResetZoom  key.Binding
	CycleView  key.Binding
	ExportCSV  key.Binding
	ExportPNG  key.Binding
	BrushLeft  key.Binding
	BrushRight key.Binding
	Suggest1   key.Binding
	Suggest2   key.Binding
	Suggest3   key.Binding
	Suggest4   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "new chat"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("ctrl+c", "quit"),
		),
		ResetZoom: key.NewBinding(
			key.WithKeys("alt+r"),
			key.WithHelp("alt+r", "reset zoom"),
		),
		CycleView: key.NewBinding(
			key.WithKeys("alt+v"),
			key.WithHelp("alt+v", "line/candles"),
		),
		ExportCSV: key.NewBinding(
			key.WithKeys("alt+e"),
			key.WithHelp("alt+e", "export csv"),
		),
		ExportPNG: key.NewBinding(
			key.WithKeys("alt+s"),
			key.WithHelp("alt+s", "export png"),
		),
		BrushLeft: key.NewBinding(
			key.WithKeys("alt+left"),
			key.WithHelp("alt+←", "brush in"),
		),
		BrushRight: key.NewBinding(
			key.WithKeys("alt+right"),
			key.WithHelp("alt+→", "brush out"),
		),
		Suggest1: key.NewBinding(key.WithKeys("alt+1")),
		Suggest2: key.NewBinding(key.WithKeys("alt+2")),
		Suggest3: key.NewBinding(key.WithKeys("alt+3")),
		Suggest4: key.NewBinding(key.WithKeys("alt+4")),
	}
}
