// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package ui's messages.go file defines the message types used in the Bubble Tea
// Model-View-Update architecture. These messages are sent between components
// to communicate state changes and trigger UI updates.

package ui

import (
	"comfy-launcher/internal/discovery"
	"comfy-launcher/internal/runner"
)

// --- Message Types ---
// These types define the events that drive the TUI's state updates.
// In the Bubble Tea framework, messages are sent to the Update method
// which then updates the model state accordingly.

// App discovery messages
type appDiscoveredMsg struct{ app discovery.App } // Sent when an app is found
type discoveryErrorMsg struct{ err error }        // Sent when an error occurs during discovery
type discoveryFinishedMsg struct{}                // Sent when all app discovery is complete

// Command execution messages
type outputLineMsg struct{ line runner.OutputLine } // Single chunk of command output
type stepFinishedMsg struct{ err error }            // Notification that a command step finished
type appStatusLoadedMsg struct {
	appIdentifier string                // Identifier of the app that was checked
	statusInfo    runner.AppRuntimeInfo // Status information for the app
}
type channelsAvailableMsg struct {
	outChan <-chan runner.OutputLine // Channel for receiving command output
	errChan <-chan error             // Channel for receiving command errors
}

// sequencePreparedMsg carries the resolved launch steps for one or more apps.
// Spec resolution (config load, interpreter probing) happens off the UI loop
// and can fail, so preparation is a command rather than a synchronous call.
type sequencePreparedMsg struct {
	steps []runner.CommandStep
	err   error
}

// detachedResultMsg is the outcome of a detached start or stop.
type detachedResultMsg struct {
	action        string // "start" or "stop"
	appIdentifier string
	pid           int
	err           error
}
