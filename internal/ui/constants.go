// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package ui

// state represents the different views or modes of the TUI.
type state int

const (
	stateLoadingApps state = iota
	stateAppList
	stateRunningSequence
	stateSequenceError
	stateAppDetails
)

const (
	headerHeight              = 1 // Height reserved for the main title header (single line, JoinVertical adds newline).
	maxConcurrentStatusChecks = 4 // Limit concurrent app status checks via SSH.
)
