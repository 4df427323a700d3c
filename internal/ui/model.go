// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package ui implements the interactive terminal dashboard: a live list of
// discovered apps with their backend status, and streamed output for launch
// sequences run from the list.
package ui

import (
	"comfy-launcher/internal/discovery"
	"comfy-launcher/internal/runner"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

type model struct {
	// App list state
	apps            []discovery.App
	cursor          int
	selectedAppIdxs map[int]struct{}
	detailedApp     *discovery.App

	// Discovery state
	isDiscovering   bool
	discoveryErrors []error

	// Status tracking, keyed by app identifier
	appStatuses   map[string]runner.AppRuntimeInfo
	loadingStatus map[string]bool

	// Sequence execution state
	currentSequence  []runner.CommandStep
	currentStepIndex int
	appsInSequence   []discovery.App
	sequenceApp      *discovery.App
	outputContent    string
	outputChan       <-chan runner.OutputLine
	errorChan        <-chan error

	// Transient notification shown in the list footer (detached start/stop results)
	infoMessage string

	currentState state
	lastError    error

	keymap          KeyMap
	viewport        viewport.Model
	detailsViewport viewport.Model
	ready           bool
	width           int
	height          int
}

// InitialModel returns the model in its pre-discovery state.
func InitialModel() model {
	return model{
		currentState:    stateLoadingApps,
		isDiscovering:   true,
		selectedAppIdxs: make(map[int]struct{}),
		appStatuses:     make(map[string]runner.AppRuntimeInfo),
		loadingStatus:   make(map[string]bool),
		keymap:          DefaultKeyMap,
	}
}

func (m *model) Init() tea.Cmd {
	return findAppsCmd()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		cmds = append(cmds, handleWindowSizeMsg(m, msg))

	case tea.KeyMsg:
		// Quit works everywhere except mid-sequence, where only Ctrl+C is honored.
		if key.Matches(msg, m.keymap.Quit) {
			if m.currentState != stateRunningSequence || msg.Type == tea.KeyCtrlC {
				return m, tea.Quit
			}
		}

		switch m.currentState {
		case stateAppList:
			cmds = append(cmds, m.handleAppListKeys(msg)...)
		case stateAppDetails:
			cmds = append(cmds, m.handleDetailsKeys(msg)...)
		case stateRunningSequence, stateSequenceError:
			cmds = append(cmds, m.handleOutputKeys(msg)...)
		}

	case appDiscoveredMsg:
		cmds = append(cmds, handleAppDiscoveredMsg(m, msg))
	case discoveryErrorMsg:
		cmds = append(cmds, handleDiscoveryErrorMsg(m, msg))
	case discoveryFinishedMsg:
		cmds = append(cmds, handleDiscoveryFinishedMsg(m))
	case appStatusLoadedMsg:
		cmds = append(cmds, handleAppStatusLoadedMsg(m, msg))
	case sequencePreparedMsg:
		cmds = append(cmds, handleSequencePreparedMsg(m, msg))
	case channelsAvailableMsg:
		cmds = append(cmds, handleChannelsAvailableMsg(m, msg))
	case outputLineMsg:
		cmds = append(cmds, handleOutputLineMsg(m, msg))
	case stepFinishedMsg:
		cmds = append(cmds, handleStepFinishedMsg(m, msg))
	case detachedResultMsg:
		cmds = append(cmds, handleDetachedResultMsg(m, msg))
	}

	return m, tea.Batch(cmds...)
}
