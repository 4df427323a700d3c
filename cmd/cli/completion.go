// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"fmt"
	"strings"
	"sync"

	"comfy-launcher/internal/config"
	"comfy-launcher/internal/discovery"

	"github.com/spf13/cobra"
)

// discoverLocalAppsForCompletion performs local discovery for completion, ignoring "not found" errors.
func discoverLocalAppsForCompletion() ([]discovery.App, error) {
	localRootDir, err := discovery.GetAppsRootDirectory()
	if err != nil {
		if strings.Contains(err.Error(), "could not find") {
			return nil, nil
		}
		return nil, err
	}
	return discovery.FindLocalApps(localRootDir)
}

// discoverRemoteAppsForCompletion performs discovery on a specific remote host for completion.
func discoverRemoteAppsForCompletion(remoteName string) ([]discovery.App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config for remote completion: %w", err)
	}

	var targetHost *config.SSHHost
	for i := range cfg.SSHHosts {
		if cfg.SSHHosts[i].Name == remoteName {
			targetHost = &cfg.SSHHosts[i]
			break
		}
	}

	if targetHost == nil || targetHost.Disabled {
		return nil, nil // No apps for a non-existent or disabled remote during completion
	}

	// Ignore errors during discovery for completion purposes
	apps, _ := discovery.FindRemoteApps(targetHost)
	return apps, nil
}

// discoverAllRemoteAppsForCompletion performs discovery only on all configured remote hosts for completion.
func discoverAllRemoteAppsForCompletion() ([]discovery.App, []error) {
	var remoteApps []discovery.App
	var discoveryErrors []error

	cfg, configErr := config.LoadConfig()
	if configErr != nil {
		// Can't discover remotes if config fails
		return nil, []error{fmt.Errorf("failed to load config for remote completion: %w", configErr)}
	}
	if len(cfg.SSHHosts) == 0 {
		return nil, nil // No remotes configured
	}

	var wg sync.WaitGroup
	appChan := make(chan discovery.App, len(cfg.SSHHosts))
	errorChan := make(chan error, len(cfg.SSHHosts))
	wg.Add(len(cfg.SSHHosts))

	for i := range cfg.SSHHosts {
		hostConfig := cfg.SSHHosts[i]
		go func(hc config.SSHHost) {
			defer wg.Done()
			if hc.Disabled {
				return
			}
			apps, err := discovery.FindRemoteApps(&hc)
			if err != nil {
				// Still collect errors, even if ignored for suggestions
				errorChan <- fmt.Errorf("remote discovery failed for %s: %w", hc.Name, err)
				return
			}
			for _, a := range apps {
				appChan <- a
			}
		}(hostConfig)
	}

	go func() {
		wg.Wait()
		close(appChan)
		close(errorChan)
	}()

	var collectWg sync.WaitGroup
	collectWg.Add(2)

	go func() {
		defer collectWg.Done()
		for a := range appChan {
			remoteApps = append(remoteApps, a)
		}
	}()
	go func() {
		defer collectWg.Done()
		for e := range errorChan {
			discoveryErrors = append(discoveryErrors, e)
		}
	}()

	collectWg.Wait()

	// Errors are collected but typically ignored by the caller for completion
	return remoteApps, discoveryErrors
}

// appCompletionFunc provides dynamic completion for app identifiers.
func appCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	suggestionMap := make(map[string]struct{}) // Use map for deduplication
	var appsToSearch []discovery.App
	var discoveryErrors []error // Collect errors silently

	targetServer := ""
	targetApp := toComplete
	hasColon := strings.Contains(toComplete, ":")

	if hasColon {
		parts := strings.SplitN(toComplete, ":", 2)
		targetServer = parts[0]
		targetApp = parts[1] // Can be empty if completing server name (e.g., "remote:")
	}

	switch {
	case targetServer == "local":
		// "local:" prefix: Only suggest local apps
		appsToSearch, _ = discoverLocalAppsForCompletion()
	case targetServer != "":
		// "remote:" prefix: Only suggest apps from that specific remote
		appsToSearch, _ = discoverRemoteAppsForCompletion(targetServer)
	default:
		// No prefix or just "app": Suggest local first, then remotes if no local match
		var localApps []discovery.App
		localApps, _ = discoverLocalAppsForCompletion()
		appsToSearch = localApps

		localMatchFound := false
		for _, a := range localApps {
			if strings.HasPrefix(a.Name, targetApp) {
				suggestionMap[a.Name] = struct{}{}
				localMatchFound = true
			}
		}

		// If local matches were found, *only* return those plain names
		if localMatchFound {
			suggestions := make([]string, 0, len(suggestionMap))
			for suggestion := range suggestionMap {
				suggestions = append(suggestions, suggestion)
			}
			return suggestions, cobra.ShellCompDirectiveNoFileComp
		}

		// No local matches found, proceed to discover all remotes
		var remoteApps []discovery.App
		remoteApps, discoveryErrors = discoverAllRemoteAppsForCompletion()
		appsToSearch = append(appsToSearch, remoteApps...)
		// We collected remote discovery errors, but won't show them during completion
		_ = discoveryErrors
	}

	for _, a := range appsToSearch {
		identifier := a.Identifier() // e.g., "local:app" or "remote:app"
		name := a.Name

		// If completing a full identifier (e.g., "remote:co")
		if hasColon && strings.HasPrefix(identifier, toComplete) {
			suggestionMap[identifier] = struct{}{}
		}

		// If completing just a name (e.g., "co") or a server (e.g., "remote:")
		if !hasColon {
			if strings.HasPrefix(name, targetApp) {
				suggestionMap[name] = struct{}{}
			}
			// Also suggest the full identifier if the server part matches
			if targetServer == "" && strings.HasPrefix(identifier, toComplete) {
				suggestionMap[identifier] = struct{}{}
			}
		}

		// Special case: If user typed "remote:", suggest all apps for that remote
		if hasColon && targetApp == "" && a.ServerName == targetServer {
			suggestionMap[identifier] = struct{}{}
		}
	}

	suggestions := make([]string, 0, len(suggestionMap))
	for suggestion := range suggestionMap {
		suggestions = append(suggestions, suggestion)
	}

	return suggestions, cobra.ShellCompDirectiveNoFileComp
}
