// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"fmt"
	"strings"
	"sync"

	"comfy-launcher/internal/config"
	"comfy-launcher/internal/discovery"

	"github.com/briandowns/spinner"
)

// findAppByIdentifier finds a specific app based on its identifier.
// Identifier can be "appName" (implies local preference) or "serverName:appName".
// Returns an error if not found or if "appName" is ambiguous.
func findAppByIdentifier(apps []discovery.App, identifier string) (discovery.App, error) {
	identifier = strings.TrimSpace(identifier)
	targetName := identifier
	targetServer := "" // "" means user didn't specify, implies local preference unless ambiguous

	if parts := strings.SplitN(identifier, ":", 2); len(parts) == 2 {
		targetServer = strings.TrimSpace(parts[0])
		targetName = strings.TrimSpace(parts[1])
		if targetName == "" || targetServer == "" {
			return discovery.App{}, fmt.Errorf("invalid identifier format: '%s'. Use 'app' or 'remote:app'", identifier)
		}
	}

	var potentialMatches []discovery.App
	var exactMatch *discovery.App

	for i := range apps {
		a := apps[i]
		if a.Name == targetName {
			if targetServer != "" {
				if a.ServerName == targetServer {
					exactMatch = &a
					break
				}
			} else {
				potentialMatches = append(potentialMatches, a)
			}
		}
	}

	if targetServer != "" {
		if exactMatch != nil {
			return *exactMatch, nil
		}
		return discovery.App{}, fmt.Errorf("app '%s:%s' not found", targetServer, targetName)
	}

	if len(potentialMatches) == 0 {
		return discovery.App{}, fmt.Errorf("app '%s' not found", targetName)
	}

	if len(potentialMatches) == 1 {
		return potentialMatches[0], nil
	}

	// Ambiguous case: Multiple apps match the name, user didn't specify server.
	// Prefer a single local match if one exists.
	var localMatch *discovery.App
	localCount := 0
	for i := range potentialMatches {
		if !potentialMatches[i].IsRemote {
			localCount++
			localMatch = &potentialMatches[i]
		}
	}

	// If exactly one local match was found among potentials, return it.
	if localCount == 1 && localMatch != nil {
		return *localMatch, nil
	}

	// Ambiguous: Multiple matches (either all remote, multiple local, or mix)
	options := make([]string, 0, len(potentialMatches))
	for _, pm := range potentialMatches {
		options = append(options, pm.Identifier())
	}
	return discovery.App{}, fmt.Errorf("app name '%s' is ambiguous, please specify one of: %s", targetName, strings.Join(options, ", "))
}

// discoverTargetApps finds apps based on an identifier, handling local/remote discovery.
// identifier: The app identifier (e.g., "comfy", "gpu-box:comfy", "local:comfy").
//
//	Can also be "gpu-box:" to discover all apps on gpu-box (used by status).
//	If empty, discovers all apps.
//
// s: Optional spinner for feedback during remote discovery.
func discoverTargetApps(identifier string, s *spinner.Spinner) ([]discovery.App, []error) {
	var appsToCheck []discovery.App
	var collectedErrors []error
	targetAppName := ""
	targetServerName := "" // "local", specific remote name, or "" for ambiguous/all

	if identifier != "" {
		if strings.HasSuffix(identifier, ":") { // e.g., "gpu-box:"
			targetServerName = strings.TrimSuffix(identifier, ":")
			if targetServerName == "" {
				return nil, []error{fmt.Errorf("invalid identifier format: '%s'. Cannot be just ':'", identifier)}
			}
		} else if parts := strings.SplitN(identifier, ":", 2); len(parts) == 2 {
			targetServerName = strings.TrimSpace(parts[0])
			targetAppName = strings.TrimSpace(parts[1])
			if targetAppName == "" || targetServerName == "" {
				return nil, []error{fmt.Errorf("invalid identifier format: '%s'. Use 'app', 'remote:app', or 'remote:'", identifier)}
			}
		} else {
			targetAppName = identifier
		}
	}

	cfg, configErr := config.LoadConfig()

	scanAll := identifier == ""
	discoverLocal := targetServerName == "local" || targetServerName == ""
	discoverSpecificRemote := targetServerName != "local" && targetServerName != ""
	discoverAllRemotes := targetServerName == "" // Only if ambiguous and not found locally

	if discoverLocal {
		appsRootDir, err := discovery.GetAppsRootDirectory()
		if err == nil {
			localApps, err := discovery.FindLocalApps(appsRootDir)
			if err != nil {
				collectedErrors = append(collectedErrors, fmt.Errorf("local discovery failed: %w", err))
			} else {
				appsToCheck = append(appsToCheck, localApps...)
			}
		} else if !strings.Contains(err.Error(), "could not find") {
			collectedErrors = append(collectedErrors, fmt.Errorf("apps root check failed: %w", err))
		}
	}

	if discoverSpecificRemote {
		if configErr != nil {
			return nil, []error{fmt.Errorf("error loading config needed for remote discovery: %w", configErr)}
		}
		var targetHost *config.SSHHost
		for i := range cfg.SSHHosts {
			if cfg.SSHHosts[i].Name == targetServerName {
				targetHost = &cfg.SSHHosts[i]
				break
			}
		}
		if targetHost == nil {
			collectedErrors = append(collectedErrors, fmt.Errorf("remote host '%s' not found in configuration", targetServerName))
		} else if targetHost.Disabled {
			collectedErrors = append(collectedErrors, fmt.Errorf("remote host '%s' is disabled", targetServerName))
		} else {
			if s != nil {
				originalSuffix := s.Suffix
				s.Suffix = fmt.Sprintf(" Discovering on %s...", identifierColor.Sprint(targetServerName))
				defer func() { s.Suffix = originalSuffix }()
			}
			remoteApps, err := discovery.FindRemoteApps(targetHost)
			if err != nil {
				collectedErrors = append(collectedErrors, fmt.Errorf("remote discovery failed for %s: %w", targetHost.Name, err))
			} else {
				if targetAppName == "" {
					appsToCheck = append(appsToCheck, remoteApps...)
				} else {
					for _, ra := range remoteApps {
						if ra.Name == targetAppName {
							appsToCheck = append(appsToCheck, ra)
							break
						}
					}
				}
			}
		}
	}

	if discoverAllRemotes {
		foundLocally := false
		if targetAppName != "" {
			for _, a := range appsToCheck {
				if !a.IsRemote && a.Name == targetAppName {
					foundLocally = true
					break
				}
			}
		}

		if targetAppName != "" && !foundLocally {
			if configErr != nil {
				collectedErrors = append(collectedErrors, fmt.Errorf("app '%s' not found locally and remote discovery skipped due to config error: %w", targetAppName, configErr))
			} else if len(cfg.SSHHosts) > 0 {
				if s != nil {
					originalSuffix := s.Suffix
					s.Suffix = fmt.Sprintf(" Discovering %s on remotes...", identifierColor.Sprint(targetAppName))
					defer func() { s.Suffix = originalSuffix }()
				}

				var remoteWg sync.WaitGroup
				remoteAppChan := make(chan discovery.App, len(cfg.SSHHosts))
				remoteErrorChan := make(chan error, len(cfg.SSHHosts))
				remoteWg.Add(len(cfg.SSHHosts))

				for i := range cfg.SSHHosts {
					hostConfig := cfg.SSHHosts[i]
					go func(hc config.SSHHost) {
						defer remoteWg.Done()
						if hc.Disabled {
							return
						}
						remoteApps, err := discovery.FindRemoteApps(&hc)
						if err != nil {
							remoteErrorChan <- fmt.Errorf("remote discovery failed for %s: %w", hc.Name, err)
						} else {
							for _, ra := range remoteApps {
								if ra.Name == targetAppName {
									remoteAppChan <- ra
									break
								}
							}
						}
					}(hostConfig)
				}

				go func() {
					remoteWg.Wait()
					close(remoteAppChan)
					close(remoteErrorChan)
				}()

				for ra := range remoteAppChan {
					appsToCheck = append(appsToCheck, ra)
				}
				for err := range remoteErrorChan {
					collectedErrors = append(collectedErrors, err)
				}
			}
		} else if scanAll {
			if s != nil {
				originalSuffix := s.Suffix
				s.Suffix = " Discovering all apps..."
				defer func() { s.Suffix = originalSuffix }()
			}
			appsToCheck = nil
			appChan, errorChan, _ := discovery.FindApps()
			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				for a := range appChan {
					appsToCheck = append(appsToCheck, a)
				}
			}()
			go func() {
				defer wg.Done()
				for e := range errorChan {
					collectedErrors = append(collectedErrors, e)
				}
			}()
			wg.Wait()
		}
	}

	finalApps := []discovery.App{}
	if scanAll {
		finalApps = appsToCheck
	} else {
		// Filter appsToCheck based on targetAppName and targetServerName
		for _, a := range appsToCheck {
			nameMatch := (targetAppName == "" || a.Name == targetAppName)
			serverMatch := (targetServerName == "" || a.ServerName == targetServerName)

			if nameMatch && serverMatch {
				finalApps = append(finalApps, a)
			}
		}

		// Resolve ambiguity if needed
		if targetServerName == "" && targetAppName != "" && len(finalApps) > 1 {
			resolvedApp, resolveErr := findAppByIdentifier(finalApps, identifier)
			if resolveErr == nil {
				finalApps = []discovery.App{resolvedApp}
			} else {
				return nil, append(collectedErrors, resolveErr)
			}
		} else if len(finalApps) == 0 && len(collectedErrors) == 0 {
			_, notFoundErr := findAppByIdentifier(appsToCheck, identifier)
			if notFoundErr != nil {
				return nil, []error{notFoundErr}
			}
			return nil, []error{fmt.Errorf("no apps found matching identifier '%s'", identifier)}
		}
	}

	return finalApps, collectedErrors
}
