// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package runner

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"comfy-launcher/internal/discovery"
	"comfy-launcher/internal/logger"
	"comfy-launcher/internal/util"

	gossh "golang.org/x/crypto/ssh"
)

// AppStatus is the overall runtime state of one app's backend process.
type AppStatus string

const (
	StatusUp      AppStatus = "UP"
	StatusDown    AppStatus = "DOWN"
	StatusError   AppStatus = "ERROR"
	StatusUnknown AppStatus = "UNKNOWN"
)

// AppRuntimeInfo holds the status information for an app.
type AppRuntimeInfo struct {
	App           discovery.App
	OverallStatus AppStatus
	Pid           int // pid of the detached backend, local apps only (0 if none)
	Error         error
}

// runStateDir returns the directory holding pidfiles and detached-process
// logs, based on XDG spec.
func runStateDir() (string, error) {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not get user home directory: %w", err)
		}
		stateDir = filepath.Join(homeDir, ".local", "state")
	}
	return filepath.Join(stateDir, "comfy-launcher", "run"), nil
}

func pidFilePath(appName string) (string, error) {
	dir, err := runStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName+".pid"), nil
}

func writePidFile(appName string, pid int) error {
	path, err := pidFilePath(appName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create run state directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0640); err != nil {
		return fmt.Errorf("failed to write pidfile for %s: %w", appName, err)
	}
	return nil
}

func readPidFile(appName string) (int, error) {
	path, err := pidFilePath(appName)
	if err != nil {
		return 0, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("pidfile for %s is corrupt: %w", appName, err)
	}
	return pid, nil
}

func removePidFile(appName string) {
	path, err := pidFilePath(appName)
	if err != nil {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Errorf("Error removing pidfile for %s: %v", appName, err)
	}
}

// processAlive reports whether pid refers to a live process (signal 0 probe).
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}

// StartDetached launches the backend in the background and records its pid.
// Output goes to a per-app log file under the run state directory. Local
// apps only; remote backends would not survive the SSH session teardown.
func StartDetached(spec LaunchSpec) (int, error) {
	if spec.App.IsRemote {
		return 0, fmt.Errorf("detached start is not supported for remote app %s", spec.App.Identifier())
	}

	if pid, err := readPidFile(spec.App.Name); err == nil && processAlive(pid) {
		return 0, fmt.Errorf("app %s already running with pid %d", spec.App.Identifier(), pid)
	}

	stateDir, err := runStateDir()
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(stateDir, 0750); err != nil {
		return 0, fmt.Errorf("failed to create run state directory: %w", err)
	}

	logPath := filepath.Join(stateDir, spec.App.Name+".log")
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return 0, fmt.Errorf("failed to open backend log file %s: %w", logPath, err)
	}
	defer logFile.Close()

	step := StartBackendStep(spec)
	cmd := exec.Command(step.Command, step.Args...)
	cmd.Dir = spec.App.Root
	cmd.Env = append(os.Environ(), step.Env...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	// New session so the backend is not torn down with the launcher.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start backend for %s: %w", spec.App.Identifier(), err)
	}

	pid := cmd.Process.Pid
	if err := writePidFile(spec.App.Name, pid); err != nil {
		logger.Errorf("Backend for %s started (pid %d) but pidfile write failed: %v", spec.App.Identifier(), pid, err)
	}
	if err := cmd.Process.Release(); err != nil {
		logger.Errorf("Error releasing backend process handle for %s: %v", spec.App.Identifier(), err)
	}

	logger.Info("Backend started detached",
		"app", spec.App.Identifier(), "pid", pid, "log", logPath)
	return pid, nil
}

// StopDetached terminates a detached backend via its recorded pid.
func StopDetached(app discovery.App) error {
	if app.IsRemote {
		return fmt.Errorf("stop is not supported for remote app %s", app.Identifier())
	}

	pid, err := readPidFile(app.Name)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("app %s has no recorded backend process", app.Identifier())
		}
		return err
	}

	if !processAlive(pid) {
		removePidFile(app.Name)
		return fmt.Errorf("app %s is not running (stale pidfile removed)", app.Identifier())
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal backend pid %d for %s: %w", pid, app.Identifier(), err)
	}
	removePidFile(app.Name)
	logger.Info("Backend stopped", "app", app.Identifier(), "pid", pid)
	return nil
}

// GetAppStatus reports whether an app's backend process is running. Local
// apps are checked via the recorded pid; remote apps via pgrep over SSH
// against the bootstrap statement.
func GetAppStatus(app discovery.App) AppRuntimeInfo {
	info := AppRuntimeInfo{App: app, OverallStatus: StatusUnknown}
	cmdDesc := fmt.Sprintf("status check for app %s", app.Identifier())

	if !app.IsRemote {
		pid, err := readPidFile(app.Name)
		if err != nil {
			if os.IsNotExist(err) {
				info.OverallStatus = StatusDown
				return info
			}
			info.OverallStatus = StatusError
			info.Error = fmt.Errorf("failed to read run state for %s: %w", cmdDesc, err)
			return info
		}

		if processAlive(pid) {
			info.OverallStatus = StatusUp
			info.Pid = pid
			return info
		}
		// Recorded process is gone; clean up so later checks are cheap.
		removePidFile(app.Name)
		info.OverallStatus = StatusDown
		return info
	}

	if app.HostConfig == nil {
		info.OverallStatus = StatusError
		info.Error = fmt.Errorf("internal error: HostConfig is nil for %s", cmdDesc)
		return info
	}

	ep := app.EntryPoint
	remoteCmd := fmt.Sprintf("pgrep -f %s", util.QuoteArgForShell(ep.BootstrapStatement()))
	output, err := runSSHProbe(*app.HostConfig, remoteCmd, cmdDesc)
	if err != nil {
		// pgrep exits 1 when nothing matches; that means DOWN, not failure.
		if exitErr, ok := err.(*gossh.ExitError); ok && exitErr.ExitStatus() == 1 {
			info.OverallStatus = StatusDown
			return info
		}
		info.OverallStatus = StatusError
		info.Error = fmt.Errorf("failed to run %s: %w", cmdDesc, err)
		return info
	}

	if strings.TrimSpace(string(output)) == "" {
		info.OverallStatus = StatusDown
		return info
	}
	info.OverallStatus = StatusUp
	return info
}
