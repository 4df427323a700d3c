// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// --- Message Handlers ---
// These methods handle specific message types received by the model's Update function.

func handleWindowSizeMsg(m *model, msg tea.WindowSizeMsg) tea.Cmd {
	m.width = msg.Width
	m.height = msg.Height

	if !m.ready {
		m.viewport = viewport.New(m.width, 1) // Placeholder height, set per-frame in View
		m.detailsViewport = viewport.New(m.width, 1)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.detailsViewport.Width = m.width
		// Note: Height is set dynamically in the View() method based on available space
	}
	return nil
}

func handleAppDiscoveredMsg(m *model, msg appDiscoveredMsg) tea.Cmd {
	// If we were in the initial loading state, transition to the list view
	if m.currentState == stateLoadingApps {
		m.currentState = stateAppList
	}

	m.apps = append(m.apps, msg.app)

	// Fetch status for the newly discovered app if not already loading/loaded
	appID := msg.app.Identifier()
	if !m.loadingStatus[appID] {
		if _, loaded := m.appStatuses[appID]; !loaded {
			m.loadingStatus[appID] = true
			return fetchAppStatusCmd(msg.app)
		}
	}
	return nil
}

func handleDiscoveryErrorMsg(m *model, msg discoveryErrorMsg) tea.Cmd {
	m.discoveryErrors = append(m.discoveryErrors, msg.err)
	m.lastError = msg.err
	return nil
}

func handleDiscoveryFinishedMsg(m *model) tea.Cmd {
	m.isDiscovering = false

	// If we were loading apps, transition to the list state now.
	if m.currentState == stateLoadingApps {
		m.currentState = stateAppList
		if len(m.apps) == 0 {
			if len(m.discoveryErrors) == 0 {
				m.lastError = fmt.Errorf("no apps found")
			} else {
				m.lastError = fmt.Errorf("discovery finished with %d errors, no apps found", len(m.discoveryErrors))
			}
		} else {
			m.lastError = nil
			if len(m.discoveryErrors) > 0 {
				m.lastError = fmt.Errorf("discovery finished with errors")
			}
		}
		m.viewport.GotoTop()
	}
	return nil
}

func handleAppStatusLoadedMsg(m *model, msg appStatusLoadedMsg) tea.Cmd {
	m.loadingStatus[msg.appIdentifier] = false
	m.appStatuses[msg.appIdentifier] = msg.statusInfo
	// No state transition needed, View() will pick up the new status
	return nil
}

func handleSequencePreparedMsg(m *model, msg sequencePreparedMsg) tea.Cmd {
	if m.currentState != stateRunningSequence {
		return nil // Sequence was abandoned before preparation finished
	}
	if msg.err != nil {
		m.lastError = msg.err
		m.currentState = stateSequenceError
		m.outputContent += errorStyle.Render(fmt.Sprintf("\n--- LAUNCH PLAN FAILED: %v ---", msg.err)) + "\n"
		m.viewport.SetContent(m.outputContent)
		m.viewport.GotoBottom()
		return nil
	}
	m.currentSequence = msg.steps
	m.currentStepIndex = 0
	return m.startNextStepCmd()
}

func handleStepFinishedMsg(m *model, msg stepFinishedMsg) tea.Cmd {
	if m.currentState != stateRunningSequence {
		return nil
	}
	var cmds []tea.Cmd

	m.outputChan = nil // Stop listening for output/errors for this step
	m.errorChan = nil
	if msg.err != nil {
		// Step failed
		m.lastError = msg.err
		m.currentState = stateSequenceError
		m.outputContent += errorStyle.Render(fmt.Sprintf("\n--- STEP FAILED: %v ---", msg.err)) + "\n"
		m.viewport.SetContent(m.outputContent)
		m.viewport.GotoBottom()
	} else {
		// Step succeeded
		stepName := "Unknown Step"
		if m.currentSequence != nil && m.currentStepIndex < len(m.currentSequence) {
			stepName = m.currentSequence[m.currentStepIndex].Name
		}
		m.outputContent += successStyle.Render(fmt.Sprintf("\n--- Step '%s' Succeeded ---", stepName)) + "\n"
		m.currentStepIndex++

		if m.currentStepIndex >= len(m.currentSequence) {
			// Sequence finished successfully
			m.outputContent += successStyle.Render("\n--- Launch Sequence Completed ---") + "\n"
			m.viewport.SetContent(m.outputContent)
			m.viewport.GotoBottom()
			// Refresh status of involved apps after sequence completion
			for _, app := range m.appsInSequence {
				appID := app.Identifier()
				if !m.loadingStatus[appID] {
					m.loadingStatus[appID] = true
					cmds = append(cmds, fetchAppStatusCmd(app))
				}
			}
			// Note: We stay in stateRunningSequence view until user presses Back/Enter
		} else {
			cmds = append(cmds, m.startNextStepCmd())
		}
	}
	return tea.Batch(cmds...)
}

func handleChannelsAvailableMsg(m *model, msg channelsAvailableMsg) tea.Cmd {
	if m.currentState == stateRunningSequence {
		m.outputChan = msg.outChan
		m.errorChan = msg.errChan
		return tea.Batch(
			waitForOutputCmd(m.outputChan),
			waitForErrorCmd(m.errorChan),
		)
	}
	// If not in a state expecting channels, ignore the message
	return nil
}

func handleOutputLineMsg(m *model, msg outputLineMsg) tea.Cmd {
	if m.currentState == stateRunningSequence && m.outputChan != nil {
		// Append the raw chunk content. Lipgloss/terminal handles ANSI.
		m.outputContent += msg.line.Line
		m.viewport.SetContent(m.outputContent)
		m.viewport.GotoBottom()
		// Continue waiting for more output on the same channel
		return waitForOutputCmd(m.outputChan)
	}
	// Ignore if not in the right state or channel is closed
	return nil
}

func handleDetachedResultMsg(m *model, msg detachedResultMsg) tea.Cmd {
	if msg.err != nil {
		m.infoMessage = ""
		m.lastError = fmt.Errorf("%s failed for %s: %w", msg.action, msg.appIdentifier, msg.err)
		return nil
	}

	m.lastError = nil
	if msg.action == "start" {
		m.infoMessage = fmt.Sprintf("Started %s (pid %d)", msg.appIdentifier, msg.pid)
	} else {
		m.infoMessage = fmt.Sprintf("Stopped %s", msg.appIdentifier)
	}

	// Refresh the affected app's status
	for i := range m.apps {
		if m.apps[i].Identifier() == msg.appIdentifier {
			appID := msg.appIdentifier
			if !m.loadingStatus[appID] {
				m.loadingStatus[appID] = true
				return fetchAppStatusCmd(m.apps[i])
			}
			break
		}
	}
	return nil
}
