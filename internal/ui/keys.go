// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// This file defines the keyboard bindings for the TUI application.
// It maps keys to actions and provides descriptions for the help menu.

package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the application.
// These bindings are used throughout the TUI for navigation and actions.
type KeyMap struct {
	// Navigation keys
	Up     key.Binding // Move cursor up
	Down   key.Binding // Move cursor down
	PgUp   key.Binding // Page up in lists
	PgDown key.Binding // Page down in lists
	Home   key.Binding // Jump to top of list
	End    key.Binding // Jump to bottom of list

	// General UI control
	Quit   key.Binding // Exit the application
	Enter  key.Binding // Confirm selection
	Back   key.Binding // Go back to previous view
	Select key.Binding // Select an item

	// App management actions
	RunAction   key.Binding // Run the selected app(s) in the foreground (streamed)
	StartAction key.Binding // Start the selected app(s) detached
	StopAction  key.Binding // Stop the selected app(s)
	Reload      key.Binding // Rediscover apps
}

// DefaultKeyMap provides the default keybindings.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	PgUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "page up"),
	),
	PgDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "page down"),
	),
	Home: key.NewBinding(
		key.WithKeys("home"),
		key.WithHelp("home", "home"),
	),
	End: key.NewBinding(
		key.WithKeys("end"),
		key.WithHelp("end", "end"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q/ctrl+c", "quit"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "details"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "b"),
		key.WithHelp("esc/b", "back"),
	),
	Select: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "toggle select"),
	),

	RunAction: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "run app(s)"),
	),
	StartAction: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "start detached"),
	),
	StopAction: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "stop app(s)"),
	),
	Reload: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "rediscover"),
	),
}
