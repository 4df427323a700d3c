// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package discovery provides functionality for finding launchable backend
// applications in both local and remote environments. An app is a directory
// containing the entry module file (backend/main.py by default, or the
// module named in a per-app config override).
package discovery

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"comfy-launcher/internal/config"
	"comfy-launcher/internal/launch"
	"comfy-launcher/internal/logger"
	"comfy-launcher/internal/ssh"
	"comfy-launcher/internal/util"

	"golang.org/x/sync/semaphore"
)

// maxConcurrentDiscoveries limits the number of concurrent discovery
// operations to prevent overwhelming local or remote systems
const maxConcurrentDiscoveries = 8

// sshManager provides access to SSH connections for remote discovery operations
var sshManager *ssh.Manager

// InitSSHManager sets the package-level SSH manager instance.
// This must be called before performing any remote discovery operations.
func InitSSHManager(manager *ssh.Manager) {
	if sshManager != nil {
		return
	}
	sshManager = manager
}

// App represents a discovered backend application: a directory containing
// the entry module file. The App can be either local or on a remote SSH host.
type App struct {
	Name               string            // Name of the app (derived from directory name)
	Root               string            // Full local path OR path relative to AbsoluteRemoteRoot on SSH host
	ServerName         string            // "local" or the Name field from SSHHost config
	IsRemote           bool              // True if app is on a remote server, false if local
	HostConfig         *config.SSHHost   // SSH host configuration (nil if local)
	AbsoluteRemoteRoot string            // Root directory on remote host (empty if local)
	EntryPoint         launch.EntryPoint // Entry point invoked for this app
}

// Identifier returns the unique string representation (e.g., "local:comfy" or "gpu-box:comfy").
func (a App) Identifier() string {
	if !a.IsRemote {
		// Always return the explicit "local:" prefix for clarity and completion consistency
		return fmt.Sprintf("local:%s", a.Name)
	}
	return fmt.Sprintf("%s:%s", a.ServerName, a.Name)
}

// entryPointFor resolves the entry point for an app name from config
// overrides, falling back to backend.main:main.
func entryPointFor(cfg config.Config, appName string) launch.EntryPoint {
	override, ok := cfg.OverrideFor(appName)
	if !ok || override.EntryPoint == "" {
		return launch.DefaultEntryPoint()
	}
	ep, err := launch.ParseEntryPoint(override.EntryPoint)
	if err != nil {
		logger.Warn("Invalid entry_point override, using default",
			"app", appName, "entry_point", override.EntryPoint, "error", err)
		return launch.DefaultEntryPoint()
	}
	return ep
}

// GetAppsRootDirectory finds the root directory for local apps, checking the
// config override first, then defaults.
func GetAppsRootDirectory() (string, error) {
	logger.Debug("Determining apps root directory")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Warn("Could not load config to check apps_root", "error", err)
	} else if cfg.AppsRoot != "" {
		logger.Debug("Using configured apps root", "configured_path", cfg.AppsRoot)

		appsRootPath, resolveErr := config.ResolvePath(cfg.AppsRoot)
		if resolveErr != nil {
			logger.Warn("Could not resolve configured apps_root path",
				"configured_path", cfg.AppsRoot,
				"error", resolveErr)
			appsRootPath = cfg.AppsRoot // Use original path for Stat check
		}

		info, statErr := os.Stat(appsRootPath)
		if statErr == nil && info.IsDir() {
			logger.Info("Using configured apps root directory",
				"path", appsRootPath,
				"resolved_from", cfg.AppsRoot)
			return appsRootPath, nil
		}

		// If configured path is invalid, return an error. Do not fall back.
		if statErr != nil {
			logger.Error("Configured apps_root is invalid",
				"configured_path", cfg.AppsRoot,
				"resolved_path", appsRootPath,
				"error", statErr)
			return "", fmt.Errorf("configured apps_root '%s' is invalid: %w", cfg.AppsRoot, statErr)
		}
		logger.Error("Configured apps_root is not a directory",
			"configured_path", cfg.AppsRoot,
			"resolved_path", appsRootPath)
		return "", fmt.Errorf("configured apps_root '%s' is not a directory", cfg.AppsRoot)
	}

	logger.Debug("No apps root configured, checking default locations")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		logger.Error("Could not get user home directory for default lookup", "error", err)
		return "", fmt.Errorf("could not get user home directory for default lookup: %w", err)
	}

	possibleDirs := []string{
		filepath.Join(homeDir, "comfy-apps"),
		filepath.Join(homeDir, "apps"),
	}

	logger.Debug("Checking default directories", "candidates", possibleDirs)

	for _, dir := range possibleDirs {
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			logger.Info("Using default apps root directory", "path", dir)
			return dir, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Error checking default directory", "directory", dir, "error", err)
		}
	}

	// Last resort: the directory holding the launcher binary, so a binary
	// dropped next to its apps works with no configuration at all.
	if exeRoot, exeErr := launch.ExecutableRoot(); exeErr == nil && containsApps(exeRoot) {
		logger.Info("Using launcher executable directory as apps root", "path", exeRoot)
		return exeRoot, nil
	}

	logger.Error("No valid local apps root directory found",
		"checked_config", cfg.AppsRoot != "",
		"checked_defaults", possibleDirs)
	return "", fmt.Errorf("could not find a valid local apps root directory (checked config 'apps_root', defaults ~/comfy-apps and ~/apps, and the launcher directory)")
}

// containsApps reports whether dir has at least one immediate subdirectory
// with the default backend/main.py layout. Used to decide whether the
// launcher's own directory qualifies as an apps root.
func containsApps(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	moduleRel := launch.DefaultEntryPoint().ModuleFile()
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, entry.Name(), moduleRel)); err == nil {
			return true
		}
	}
	return false
}

// FindApps starts local and remote discovery and streams results. The done
// channel closes after both result channels are closed.
func FindApps() (<-chan App, <-chan error, <-chan struct{}) {
	logger.Info("Starting app discovery")

	appChan := make(chan App, 10)
	errorChan := make(chan error, 5)
	doneChan := make(chan struct{})
	var wg sync.WaitGroup

	cfg, configErr := config.LoadConfig()
	if configErr != nil {
		logger.Error("Failed to load configuration for app discovery", "error", configErr)
		// Buffered channel, safe to send before any reader exists.
		errorChan <- fmt.Errorf("config load failed: %w", configErr)
	}

	logger.Debug("Configuration loaded for discovery",
		"ssh_host_count", len(cfg.SSHHosts),
		"apps_root_configured", cfg.AppsRoot != "")

	numGoroutines := 1
	if configErr == nil {
		numGoroutines += len(cfg.SSHHosts)
	}
	wg.Add(numGoroutines)

	go func() {
		wg.Wait()
		close(appChan)
		close(errorChan)
		close(doneChan)
	}()

	go func() {
		defer wg.Done()
		logger.Debug("Starting local app discovery")

		appsRootDir, err := GetAppsRootDirectory()
		if err == nil {
			logger.Debug("Apps root directory found, searching for apps", "root_dir", appsRootDir)

			localApps, err := FindLocalApps(appsRootDir)
			if err != nil {
				logger.Error("Local app discovery failed", "root_dir", appsRootDir, "error", err)
				errorChan <- fmt.Errorf("local discovery failed: %w", err)
			} else {
				logger.Info("Local app discovery completed",
					"root_dir", appsRootDir,
					"app_count", len(localApps))
				for _, a := range localApps {
					logger.Debug("Local app found", "app_name", a.Name, "root", a.Root)
					appChan <- a
				}
			}
		} else if !strings.Contains(err.Error(), "could not find") {
			logger.Error("Apps root directory check failed", "error", err)
			errorChan <- fmt.Errorf("apps root check failed: %w", err)
		} else {
			logger.Debug("No apps root directory configured or found")
		}
	}()

	if configErr == nil && len(cfg.SSHHosts) > 0 {
		logger.Debug("Starting remote app discovery", "host_count", len(cfg.SSHHosts))

		sem := semaphore.NewWeighted(maxConcurrentDiscoveries)
		ctx := context.Background()

		for i := range cfg.SSHHosts {
			hostConfig := cfg.SSHHosts[i] // Create copy for the goroutine closure
			go func(hc config.SSHHost) {
				defer wg.Done()

				logger.Debug("Starting remote discovery for host",
					"host_name", hc.Name,
					"hostname", hc.Hostname,
					"remote_root", hc.RemoteRoot,
					"disabled", hc.Disabled)

				if hc.Disabled {
					logger.Debug("Skipping disabled host", "host_name", hc.Name)
					return
				}

				if err := sem.Acquire(ctx, 1); err != nil {
					logger.Error("Failed to acquire semaphore for remote discovery",
						"host_name", hc.Name, "error", err)
					errorChan <- fmt.Errorf("failed to acquire semaphore for %s: %w", hc.Name, err)
					return
				}
				defer sem.Release(1)

				remoteApps, err := FindRemoteApps(&hc)
				if err != nil {
					logger.Error("Remote app discovery failed",
						"host_name", hc.Name,
						"hostname", hc.Hostname,
						"error", err)
					errorChan <- fmt.Errorf("remote discovery failed for %s: %w", hc.Name, err)
				} else {
					logger.Info("Remote app discovery completed",
						"host_name", hc.Name,
						"hostname", hc.Hostname,
						"app_count", len(remoteApps))
					for _, a := range remoteApps {
						logger.Debug("Remote app found",
							"app_name", a.Name,
							"host_name", a.ServerName,
							"root", a.Root)
						appChan <- a
					}
				}
			}(hostConfig)
		}
	}

	return appChan, errorChan, doneChan
}

// FindLocalApps scans the immediate subdirectories of rootDir for apps. A
// directory qualifies when its entry module file exists (per-app override or
// backend/main.py).
func FindLocalApps(rootDir string) ([]App, error) {
	var apps []App

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Warn("Could not load config for entry point overrides", "error", err)
		cfg = config.Config{}
	}

	entries, err := os.ReadDir(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read apps root directory %s: %w", rootDir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		appName := entry.Name()
		appRoot := filepath.Join(rootDir, appName)
		ep := entryPointFor(cfg, appName)

		moduleFile := filepath.Join(appRoot, ep.ModuleFile())
		_, statErr := os.Stat(moduleFile)
		if statErr == nil {
			apps = append(apps, App{
				Name:       appName,
				Root:       appRoot,
				ServerName: "local",
				IsRemote:   false,
				HostConfig: nil,
				EntryPoint: ep,
				// AbsoluteRemoteRoot is empty for local apps
			})
		} else if !os.IsNotExist(statErr) {
			logger.Errorf("Warning: could not stat entry module in local app %s: %v", appRoot, statErr)
		}
	}

	return apps, nil
}

// FindRemoteApps discovers apps on a remote host over SSH. Only the default
// backend/main.py layout is detected remotely; entry point overrides from
// the local config still apply when launching.
func FindRemoteApps(hostConfig *config.SSHHost) ([]App, error) {
	var apps []App

	if sshManager == nil {
		return nil, fmt.Errorf("ssh manager not initialized for discovery on %s", hostConfig.Name)
	}

	client, err := sshManager.GetClient(*hostConfig)
	if err != nil {
		return nil, err // GetClient already provides context
	}

	cfg, cfgErr := config.LoadConfig()
	if cfgErr != nil {
		logger.Warn("Could not load config for entry point overrides", "error", cfgErr)
		cfg = config.Config{}
	}

	var targetRemoteRoot string
	var resolveErr error
	var pwdOutput []byte

	if hostConfig.RemoteRoot != "" {
		targetRemoteRoot = hostConfig.RemoteRoot
		session, err := client.NewSession()
		if err != nil {
			return nil, fmt.Errorf("failed to create ssh session for discovery on %s: %w", hostConfig.Name, err)
		}
		resolveCmd := fmt.Sprintf("cd %s && pwd", util.QuoteArgForShell(targetRemoteRoot))
		pwdOutput, resolveErr = session.CombinedOutput(resolveCmd)
		if err := session.Close(); err != nil {
			logger.Errorf("Error closing SSH session for %s (resolve path): %v", hostConfig.Name, err)
		}
		if resolveErr != nil {
			return nil, fmt.Errorf("failed to resolve configured remote root path '%s' on host %s: %w\nOutput: %s", targetRemoteRoot, hostConfig.Name, resolveErr, string(pwdOutput))
		}
	} else {
		// Configured root is empty, try fallbacks
		fallbacks := []string{"~/comfy-apps", "~/apps"}
		foundFallback := false
		for _, fallback := range fallbacks {
			session, err := client.NewSession()
			if err != nil {
				return nil, fmt.Errorf("failed to create ssh session for fallback discovery on %s: %w", hostConfig.Name, err)
			}
			resolveCmd := fmt.Sprintf("cd %s && pwd", util.QuoteArgForShell(fallback))
			pwdOutput, resolveErr = session.CombinedOutput(resolveCmd)

			if resolveErr == nil {
				targetRemoteRoot = fallback
				foundFallback = true
				break
			}
		}

		if !foundFallback {
			return nil, fmt.Errorf("remote_root not configured for host %s, and default fallbacks ('~/comfy-apps', '~/apps') could not be resolved", hostConfig.Name)
		}
	}

	absoluteRemoteRoot := strings.TrimSpace(string(pwdOutput))
	if absoluteRemoteRoot == "" {
		return nil, fmt.Errorf("resolved remote root path is empty (resolved from '%s') on host %s", targetRemoteRoot, hostConfig.Name)
	}

	findSession, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create second ssh session for discovery on %s: %w", hostConfig.Name, err)
	}
	// CombinedOutput handles the session lifecycle for findSession.

	// Find app roots: directories one level deep whose backend/main.py exists.
	remoteFindCmd := fmt.Sprintf(
		`find %s -mindepth 3 -maxdepth 3 -path '*/backend/main.py' -printf '%%h\n' | sort -u`,
		util.QuoteArgForShell(absoluteRemoteRoot),
	)

	output, err := findSession.CombinedOutput(remoteFindCmd)
	if err != nil {
		return nil, fmt.Errorf("remote find command failed for host %s: %w\nOutput: %s", hostConfig.Name, err, string(output))
	}

	scanner := bufio.NewScanner(bytes.NewReader(output))

	for scanner.Scan() {
		backendDir := scanner.Text()
		if backendDir == "" {
			continue
		}
		appPath := filepath.Dir(backendDir) // strip the trailing /backend

		relativePath, err := filepath.Rel(absoluteRemoteRoot, appPath)
		if err != nil {
			logger.Errorf("Warning: could not calculate relative path for '%s' from resolved root '%s' on host %s: %v", appPath, absoluteRemoteRoot, hostConfig.Name, err)
			continue
		}
		relativePath = filepath.ToSlash(relativePath) // Ensure forward slashes

		appName := filepath.Base(relativePath)
		if appName == "." || appName == "/" {
			continue
		}

		apps = append(apps, App{
			Name:               appName,
			Root:               relativePath,
			ServerName:         hostConfig.Name,
			IsRemote:           true,
			HostConfig:         hostConfig,
			AbsoluteRemoteRoot: absoluteRemoteRoot,
			EntryPoint:         entryPointFor(cfg, appName),
		})
	}
	if err := scanner.Err(); err != nil {
		return apps, fmt.Errorf("error reading ssh output for host %s: %w", hostConfig.Name, err)
	}

	return apps, nil
}
