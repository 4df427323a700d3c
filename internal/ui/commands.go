// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package ui's commands.go file contains Bubble Tea commands that perform
// asynchronous operations in the TUI. These commands handle long-running tasks
// like discovering apps, resolving launch specs, and executing backend
// processes without blocking the UI.

package ui

import (
	"context"

	"comfy-launcher/internal/config"
	"comfy-launcher/internal/discovery"
	"comfy-launcher/internal/runner"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/semaphore"
)

// BubbleProgram is the running Bubble Tea program. Discovery streams results
// over channels, and goroutines push them into the update loop through it.
var BubbleProgram *tea.Program

// statusCheckSem bounds how many status probes run at once; remote checks
// each open an SSH session.
var statusCheckSem = semaphore.NewWeighted(maxConcurrentStatusChecks)

// --- Bubble Tea Commands ---
// These functions create tea.Cmds to perform asynchronous operations.
// Each command runs in its own goroutine and communicates back to the main
// UI loop by sending messages through the Bubble Tea program.

// findAppsCmd creates a command to discover all available apps.
// It handles both local and remote app discovery in the background.
func findAppsCmd() tea.Cmd {
	return func() tea.Msg {
		appChan, errorChan, doneChan := discovery.FindApps()

		go func() {
			for a := range appChan {
				if BubbleProgram != nil {
					BubbleProgram.Send(appDiscoveredMsg{app: a})
				}
			}
		}()

		go func() {
			for e := range errorChan {
				if BubbleProgram != nil {
					BubbleProgram.Send(discoveryErrorMsg{err: e})
				}
			}
		}()

		go func() {
			<-doneChan
			if BubbleProgram != nil {
				BubbleProgram.Send(discoveryFinishedMsg{})
			}
		}()

		return nil
	}
}

// fetchAppStatusCmd checks one app's backend status in the background.
func fetchAppStatusCmd(app discovery.App) tea.Cmd {
	return func() tea.Msg {
		if err := statusCheckSem.Acquire(context.Background(), 1); err != nil {
			return appStatusLoadedMsg{
				appIdentifier: app.Identifier(),
				statusInfo:    runner.AppRuntimeInfo{App: app, OverallStatus: runner.StatusError, Error: err},
			}
		}
		defer statusCheckSem.Release(1)

		return appStatusLoadedMsg{
			appIdentifier: app.Identifier(),
			statusInfo:    runner.GetAppStatus(app),
		}
	}
}

// prepareSequenceCmd resolves launch specs for the given apps and returns the
// combined command sequence.
func prepareSequenceCmd(apps []discovery.App) tea.Cmd {
	return func() tea.Msg {
		cfg, err := config.LoadConfig()
		if err != nil {
			return sequencePreparedMsg{err: err}
		}

		var steps []runner.CommandStep
		for _, app := range apps {
			spec, err := runner.BuildLaunchSpec(app, cfg)
			if err != nil {
				return sequencePreparedMsg{err: err}
			}
			steps = append(steps, runner.RunSequence(spec)...)
		}
		return sequencePreparedMsg{steps: steps}
	}
}

// startDetachedCmd resolves the app's launch spec and starts its backend
// detached from the TUI.
func startDetachedCmd(app discovery.App) tea.Cmd {
	return func() tea.Msg {
		result := detachedResultMsg{action: "start", appIdentifier: app.Identifier()}

		cfg, err := config.LoadConfig()
		if err != nil {
			result.err = err
			return result
		}
		spec, err := runner.BuildLaunchSpec(app, cfg)
		if err != nil {
			result.err = err
			return result
		}
		result.pid, result.err = runner.StartDetached(spec)
		return result
	}
}

// stopDetachedCmd stops an app's detached backend.
func stopDetachedCmd(app discovery.App) tea.Cmd {
	return func() tea.Msg {
		return detachedResultMsg{
			action:        "stop",
			appIdentifier: app.Identifier(),
			err:           runner.StopDetached(app),
		}
	}
}

// runStepCmd triggers the execution of an app-level command step in TUI mode.
func runStepCmd(step runner.CommandStep) tea.Cmd {
	return func() tea.Msg {
		// TUI always uses cliMode: false for channel-based output
		outChan, errChan := runner.StreamCommand(step, false)
		return channelsAvailableMsg{outChan: outChan, errChan: errChan}
	}
}

// waitForOutputCmd waits for the next chunk of output from a command's output channel.
func waitForOutputCmd(outChan <-chan runner.OutputLine) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-outChan
		if !ok {
			// Channel closed, no more output for this step
			return nil
		}
		return outputLineMsg{line}
	}
}

// waitForErrorCmd waits for the final error result from a command's error channel.
func waitForErrorCmd(errChan <-chan error) tea.Cmd {
	return func() tea.Msg {
		err := <-errChan // Blocks until the command finishes and sends an error (or nil)
		return stepFinishedMsg{err}
	}
}
