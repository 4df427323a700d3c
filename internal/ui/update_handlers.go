// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package ui

import (
	"fmt"

	"comfy-launcher/internal/discovery"
	"comfy-launcher/internal/runner"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// --- Update Handlers ---
// These methods handle key presses and logic for specific UI states.

func (m *model) handleAppListKeys(msg tea.KeyMsg) []tea.Cmd {
	var cmds []tea.Cmd
	var vpCmd tea.Cmd

	switch {
	case key.Matches(msg, m.keymap.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		// Update viewport regardless of cursor move to handle scrolling at boundaries
		m.viewport, vpCmd = m.viewport.Update(msg)
		cmds = append(cmds, vpCmd)
	case key.Matches(msg, m.keymap.Down):
		if m.cursor < len(m.apps)-1 {
			m.cursor++
		}
		m.viewport, vpCmd = m.viewport.Update(msg)
		cmds = append(cmds, vpCmd)
	case key.Matches(msg, m.keymap.Home):
		if m.cursor != 0 {
			m.cursor = 0
			m.viewport.GotoTop()
		}
	case key.Matches(msg, m.keymap.End):
		lastIdx := len(m.apps) - 1
		if lastIdx >= 0 && m.cursor != lastIdx {
			m.cursor = lastIdx
			m.viewport.GotoBottom()
		}
	case key.Matches(msg, m.keymap.PgUp):
		m.cursor -= m.viewport.Height
		if m.cursor < 0 {
			m.cursor = 0
		}
		m.viewport.ViewUp()
	case key.Matches(msg, m.keymap.PgDown):
		m.cursor += m.viewport.Height
		lastIdx := len(m.apps) - 1
		if lastIdx >= 0 && m.cursor > lastIdx {
			m.cursor = lastIdx
		}
		m.viewport.ViewDown()
	case key.Matches(msg, m.keymap.Select):
		if len(m.apps) > 0 && m.cursor >= 0 && m.cursor < len(m.apps) {
			if _, ok := m.selectedAppIdxs[m.cursor]; ok {
				delete(m.selectedAppIdxs, m.cursor)
			} else {
				m.selectedAppIdxs[m.cursor] = struct{}{}
			}
		}
	case key.Matches(msg, m.keymap.RunAction):
		cmds = append(cmds, m.runSequenceOnSelection()...)
	case key.Matches(msg, m.keymap.StartAction):
		for _, app := range m.targetedApps() {
			cmds = append(cmds, startDetachedCmd(app))
		}
		m.selectedAppIdxs = make(map[int]struct{})
	case key.Matches(msg, m.keymap.StopAction):
		for _, app := range m.targetedApps() {
			cmds = append(cmds, stopDetachedCmd(app))
		}
		m.selectedAppIdxs = make(map[int]struct{})
	case key.Matches(msg, m.keymap.Reload):
		m.currentState = stateLoadingApps
		m.isDiscovering = true
		m.apps = nil
		m.discoveryErrors = nil
		m.appStatuses = make(map[string]runner.AppRuntimeInfo)
		m.loadingStatus = make(map[string]bool)
		m.cursor = 0
		m.infoMessage = ""
		cmds = append(cmds, findAppsCmd())
	case key.Matches(msg, m.keymap.Enter):
		if len(m.apps) > 0 && m.cursor >= 0 && m.cursor < len(m.apps) {
			app := m.apps[m.cursor] // Get a copy
			m.detailedApp = &app
			m.currentState = stateAppDetails
			m.detailsViewport.GotoTop()
			appID := app.Identifier()
			if _, loaded := m.appStatuses[appID]; !loaded && !m.loadingStatus[appID] {
				m.loadingStatus[appID] = true
				cmds = append(cmds, fetchAppStatusCmd(app))
			}
		}
	}

	return cmds
}

func (m *model) handleDetailsKeys(msg tea.KeyMsg) []tea.Cmd {
	var cmds []tea.Cmd
	var vpCmd tea.Cmd

	switch {
	case key.Matches(msg, m.keymap.Back), key.Matches(msg, m.keymap.Enter):
		m.detailedApp = nil
		m.currentState = stateAppList
	default:
		m.detailsViewport, vpCmd = m.detailsViewport.Update(msg)
		cmds = append(cmds, vpCmd)
	}
	return cmds
}

func (m *model) handleOutputKeys(msg tea.KeyMsg) []tea.Cmd {
	var cmds []tea.Cmd
	var vpCmd tea.Cmd

	sequenceDone := m.currentSequence == nil ||
		m.currentStepIndex >= len(m.currentSequence) ||
		m.currentState == stateSequenceError

	switch {
	case sequenceDone && (key.Matches(msg, m.keymap.Back) || key.Matches(msg, m.keymap.Enter)):
		m.currentState = stateAppList
		m.currentSequence = nil
		m.currentStepIndex = 0
		m.sequenceApp = nil
		m.appsInSequence = nil
		m.outputContent = ""
		m.lastError = nil
	default:
		m.viewport, vpCmd = m.viewport.Update(msg)
		cmds = append(cmds, vpCmd)
	}
	return cmds
}

// targetedApps returns copies of the apps an action applies to: the
// multi-selection if any, otherwise the app under the cursor. Copies, not
// pointers into m.apps: discovery keeps appending to that slice and a
// reallocation would leave stored pointers on the stale backing array.
func (m *model) targetedApps() []discovery.App {
	var targets []discovery.App
	if len(m.selectedAppIdxs) > 0 {
		for idx := range m.selectedAppIdxs {
			if idx >= 0 && idx < len(m.apps) {
				targets = append(targets, m.apps[idx])
			}
		}
	} else if len(m.apps) > 0 && m.cursor >= 0 && m.cursor < len(m.apps) {
		targets = append(targets, m.apps[m.cursor])
	}
	return targets
}

// runSequenceOnSelection determines which apps to launch (selected or cursor)
// and kicks off spec resolution for them.
func (m *model) runSequenceOnSelection() []tea.Cmd {
	var cmds []tea.Cmd
	appsToRun := m.targetedApps()
	if len(appsToRun) == 0 {
		return cmds
	}
	m.selectedAppIdxs = make(map[int]struct{})

	m.appsInSequence = appsToRun
	first := appsToRun[0]
	m.sequenceApp = &first

	// Show the output view while specs resolve; the first step header
	// arrives with sequencePreparedMsg.
	m.currentState = stateRunningSequence
	m.currentSequence = nil
	m.currentStepIndex = 0
	m.outputContent = statusStyle.Render("Resolving launch plan...") + "\n"
	m.lastError = nil
	m.viewport.SetContent(m.outputContent)
	m.viewport.GotoTop()

	cmds = append(cmds, prepareSequenceCmd(appsToRun))
	return cmds
}

// startNextStepCmd prepares and returns the command to run the next step in the current sequence.
func (m *model) startNextStepCmd() tea.Cmd {
	if m.currentSequence == nil || m.currentStepIndex >= len(m.currentSequence) {
		return nil // No more steps or no sequence active
	}
	step := m.currentSequence[m.currentStepIndex]
	m.outputContent += stepStyle.Render(fmt.Sprintf("\n--- Starting Step: %s for %s ---", step.Name, step.App.Identifier())) + "\n"
	m.viewport.SetContent(m.outputContent)
	m.viewport.GotoBottom()
	return runStepCmd(step)
}
