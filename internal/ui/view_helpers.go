// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package ui

import (
	"fmt"
	"strings"

	"comfy-launcher/internal/runner"

	"github.com/charmbracelet/lipgloss"
)

// --- View Helpers ---

// renderAppStatusTag returns the short status tag for one app identifier.
func (m *model) renderAppStatusTag(appID string) string {
	if m.loadingStatus[appID] {
		return statusLoadingStyle.Render(" [loading...]")
	}
	statusInfo, loaded := m.appStatuses[appID]
	if !loaded {
		return statusLoadingStyle.Render(" [?]")
	}
	switch statusInfo.OverallStatus {
	case runner.StatusUp:
		tag := " [UP"
		if statusInfo.Pid > 0 {
			tag += fmt.Sprintf(" %d", statusInfo.Pid)
		}
		return statusUpStyle.Render(tag + "]")
	case runner.StatusDown:
		return statusDownStyle.Render(" [DOWN]")
	case runner.StatusError:
		return statusErrorStyle.Render(" [ERROR]")
	default:
		return statusLoadingStyle.Render(" [?]")
	}
}

// --- State-Specific View Renderers ---
// These functions generate the body and footer content for specific UI states.
// The main View() method combines these with the header and manages viewport heights.

func (m *model) renderLoadingView() (string, string) {
	body := statusStyle.Render("Discovering apps...")
	footer := "\n" + m.keymap.Quit.Help().Key + ": " + m.keymap.Quit.Help().Desc
	return body, footer
}

func (m *model) renderAppListView() (string, string) {
	bodyContent := strings.Builder{}
	bodyContent.WriteString("Select an app:\n")
	for i, app := range m.apps {
		cursor := "  "
		if m.cursor == i {
			cursor = cursorStyle.Render("> ")
		}

		checkbox := "[ ]"
		if _, selected := m.selectedAppIdxs[i]; selected {
			checkbox = successStyle.Render("[x]")
		}

		statusStr := m.renderAppStatusTag(app.Identifier())
		bodyContent.WriteString(fmt.Sprintf("%s%s %s (%s)%s\n", cursor, checkbox, app.Name, serverNameStyle.Render(app.ServerName), statusStr))
	}

	footerContent := strings.Builder{}
	footerContent.WriteString("\n")

	if m.isDiscovering {
		footerContent.WriteString(statusLoadingStyle.Render("Discovering remote apps...") + "\n")
	}
	if m.infoMessage != "" {
		footerContent.WriteString(successStyle.Render(m.infoMessage) + "\n")
	}
	if len(m.discoveryErrors) > 0 {
		footerContent.WriteString(errorStyle.Render("Discovery Errors:"))
		for _, err := range m.discoveryErrors {
			footerContent.WriteString("\n  " + errorStyle.Render(err.Error()))
		}
		footerContent.WriteString("\n")
	} else if m.lastError != nil {
		footerContent.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.lastError)) + "\n")
	}

	help := strings.Builder{}
	if len(m.selectedAppIdxs) > 0 {
		help.WriteString(fmt.Sprintf("(%d selected) ", len(m.selectedAppIdxs)))
	}
	help.WriteString(m.keymap.Up.Help().Key + "/" + m.keymap.Down.Help().Key + ": navigate | ")
	help.WriteString(m.keymap.Select.Help().Key + ": " + m.keymap.Select.Help().Desc + " | ")
	help.WriteString(m.keymap.Enter.Help().Key + ": details | ")
	help.WriteString(m.keymap.RunAction.Help().Key + ": run | ")
	help.WriteString(m.keymap.StartAction.Help().Key + ": start | ")
	help.WriteString(m.keymap.StopAction.Help().Key + ": stop | ")
	help.WriteString(m.keymap.Reload.Help().Key + ": " + m.keymap.Reload.Help().Desc + " | ")
	help.WriteString(m.keymap.Quit.Help().Key + ": " + m.keymap.Quit.Help().Desc)
	footerContent.WriteString(footerStyle.Width(m.width).Render(help.String()))

	return bodyContent.String(), footerContent.String()
}

func (m *model) renderRunningSequenceView() (string, string) {
	bodyStr := m.outputContent // Raw content for the viewport

	footerContent := strings.Builder{}
	footerContent.WriteString("\n")

	appIdentifier := ""
	if m.sequenceApp != nil {
		appIdentifier = fmt.Sprintf(" for %s", m.sequenceApp.Identifier())
	}
	if m.currentSequence != nil && m.currentStepIndex < len(m.currentSequence) {
		footerContent.WriteString(statusStyle.Render(fmt.Sprintf("Running step %d/%d%s: %s...", m.currentStepIndex+1, len(m.currentSequence), appIdentifier, m.currentSequence[m.currentStepIndex].Name)))
	} else if m.currentSequence != nil {
		footerContent.WriteString(successStyle.Render(fmt.Sprintf("Sequence finished successfully%s.", appIdentifier)))
	} else {
		footerContent.WriteString(statusStyle.Render("Preparing launch..."))
	}

	help := strings.Builder{}
	help.WriteString(m.keymap.Up.Help().Key + "/" + m.keymap.Down.Help().Key + "/" + m.keymap.PgUp.Help().Key + "/" + m.keymap.PgDown.Help().Key + ": scroll")
	if m.currentSequence == nil || m.currentStepIndex >= len(m.currentSequence) {
		help.WriteString(" | " + m.keymap.Back.Help().Key + "/" + m.keymap.Enter.Help().Key + ": back to list")
	}
	help.WriteString(" | ctrl+c: quit")
	footerContent.WriteString("\n" + footerStyle.Width(m.width).Render(help.String()))

	return bodyStr, footerContent.String()
}

func (m *model) renderSequenceErrorView() (string, string) {
	bodyStr := m.outputContent

	footerContent := strings.Builder{}
	footerContent.WriteString("\n")

	appIdentifier := ""
	if m.sequenceApp != nil {
		appIdentifier = fmt.Sprintf(" for %s", m.sequenceApp.Identifier())
	}
	footerContent.WriteString(errorStyle.Render(fmt.Sprintf("Sequence failed%s: %v", appIdentifier, m.lastError)))

	help := strings.Builder{}
	help.WriteString(m.keymap.Up.Help().Key + "/" + m.keymap.Down.Help().Key + ": scroll | ")
	help.WriteString(m.keymap.Back.Help().Key + "/" + m.keymap.Enter.Help().Key + ": back to list | ")
	help.WriteString(m.keymap.Quit.Help().Key + ": " + m.keymap.Quit.Help().Desc)
	footerContent.WriteString("\n" + footerStyle.Width(m.width).Render(help.String()))

	return bodyStr, footerContent.String()
}

func (m *model) renderAppDetailsView() (string, string) {
	bodyContent := strings.Builder{}

	if m.detailedApp == nil {
		bodyContent.WriteString(errorStyle.Render("No app selected."))
	} else {
		app := m.detailedApp
		bodyContent.WriteString(identifierStyle.Render(app.Name) + " (" + serverNameStyle.Render(app.ServerName) + ")\n\n")
		bodyContent.WriteString(fmt.Sprintf("Root:        %s\n", app.Root))
		if app.IsRemote {
			bodyContent.WriteString(fmt.Sprintf("Remote root: %s\n", app.AbsoluteRemoteRoot))
			if app.HostConfig != nil {
				bodyContent.WriteString(fmt.Sprintf("Host:        %s@%s\n", app.HostConfig.User, app.HostConfig.Hostname))
			}
		}
		bodyContent.WriteString(fmt.Sprintf("Entry point: %s\n", app.EntryPoint))

		appID := app.Identifier()
		bodyContent.WriteString(fmt.Sprintf("\nBackend status:%s\n", m.renderAppStatusTag(appID)))
		if statusInfo, ok := m.appStatuses[appID]; ok && statusInfo.Error != nil {
			bodyContent.WriteString(errorStyle.Render(fmt.Sprintf("  Error fetching status: %v", statusInfo.Error)) + "\n")
		}
	}

	footerContent := strings.Builder{}
	footerContent.WriteString("\n")
	help := strings.Builder{}
	help.WriteString(m.keymap.Back.Help().Key + "/" + m.keymap.Enter.Help().Key + ": back to list | ")
	help.WriteString(m.keymap.Quit.Help().Key + ": " + m.keymap.Quit.Help().Desc)
	footerContent.WriteString(footerStyle.Width(m.width).Render(help.String()))

	return bodyContent.String(), footerContent.String()
}

// View renders the full frame: title header, state body inside a viewport,
// and the state's footer.
func (m *model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := titleStyle.Render("Comfy Launcher")

	var body, footer string
	activeViewport := &m.viewport

	switch m.currentState {
	case stateLoadingApps:
		body, footer = m.renderLoadingView()
	case stateAppList:
		body, footer = m.renderAppListView()
	case stateRunningSequence:
		body, footer = m.renderRunningSequenceView()
	case stateSequenceError:
		body, footer = m.renderSequenceErrorView()
	case stateAppDetails:
		body, footer = m.renderAppDetailsView()
		activeViewport = &m.detailsViewport
	}

	footerHeight := lipgloss.Height(footer)
	bodyHeight := m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	activeViewport.Width = m.width
	activeViewport.Height = bodyHeight
	activeViewport.SetContent(body)

	return lipgloss.JoinVertical(lipgloss.Left, header, activeViewport.View(), footer)
}
