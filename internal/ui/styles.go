// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	stepStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	successStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	cursorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	statusUpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	statusDownStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	statusLoadingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	serverNameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Italic(true)
	identifierStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	// Footer / Status Bar Styles
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")) // Default light grey text
)
