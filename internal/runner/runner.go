// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package runner executes backend launch sequences: composing the
// interpreter invocation from an app's search path and entry point, then
// running it locally or over SSH with streamed output.
package runner

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"comfy-launcher/internal/config"
	"comfy-launcher/internal/discovery"
	"comfy-launcher/internal/launch"
	"comfy-launcher/internal/pyenv"
	"comfy-launcher/internal/ssh"
	"comfy-launcher/internal/util"
)

var sshManager *ssh.Manager

// InitSSHManager sets the package-level SSH manager instance.
func InitSSHManager(manager *ssh.Manager) {
	if sshManager != nil {
		return
	}
	sshManager = manager
}

// CommandStep is one command of a launch sequence, run in the app's root.
type CommandStep struct {
	Name    string
	Command string
	Args    []string
	Env     []string // extra KEY=VALUE entries appended to the inherited environment
	App     discovery.App
}

// OutputLine is a raw output chunk from a running step.
type OutputLine struct {
	Line    string
	IsError bool // True if the chunk came from stderr
}

// LaunchSpec is the fully resolved plan for launching one app: the
// interpreter, the composed module search path, and the entry point. The
// search path is composed before any invocation; the entry point is invoked
// exactly once per launch.
type LaunchSpec struct {
	App         discovery.App
	Interpreter string
	SearchPath  launch.SearchPath
	EntryPoint  launch.EntryPoint
	Env         []string // per-app extra environment from config
	InstallReqs bool
}

// absoluteAppRoot returns the app root as an absolute path usable on the
// machine the app runs on.
func absoluteAppRoot(app discovery.App) string {
	if app.IsRemote {
		return filepath.Join(app.AbsoluteRemoteRoot, app.Root)
	}
	return app.Root
}

// BuildLaunchSpec resolves everything needed to launch an app. The app's
// own root is prepended at the highest-priority search path position;
// configured extra entries follow it. An inherited PYTHONPATH is appended
// at composition time by PythonPathEnv, never ahead of the managed entries.
func BuildLaunchSpec(app discovery.App, cfg config.Config) (LaunchSpec, error) {
	spec := LaunchSpec{App: app, EntryPoint: app.EntryPoint}

	if spec.EntryPoint.Module == "" {
		spec.EntryPoint = launch.DefaultEntryPoint()
	}

	override, _ := cfg.OverrideFor(app.Name)
	spec.Env = override.Env
	spec.InstallReqs = override.InstallRequirements

	root := absoluteAppRoot(app)
	sp := launch.NewSearchPath()
	for _, extra := range cfg.SearchPath {
		resolved, err := config.ResolvePath(extra)
		if err != nil {
			return LaunchSpec{}, fmt.Errorf("could not resolve search path entry '%s': %w", extra, err)
		}
		sp.Append(resolved)
	}
	sp.Prepend(root)
	spec.SearchPath = sp

	if app.IsRemote {
		// Remote interpreters cannot be probed from here; trust the
		// configuration and fall back to python3 on the remote PATH.
		spec.Interpreter = override.Interpreter
		if spec.Interpreter == "" {
			spec.Interpreter = cfg.Interpreter
		}
		if spec.Interpreter == "" {
			spec.Interpreter = "python3"
		}
		return spec, nil
	}

	interpreter, err := pyenv.ResolveInterpreter(root, override.Interpreter, cfg.Interpreter)
	if err != nil {
		return LaunchSpec{}, fmt.Errorf("interpreter resolution failed for %s: %w", app.Identifier(), err)
	}
	spec.Interpreter = interpreter
	return spec, nil
}

// bootstrapEnv returns the extra environment for the backend process: the
// composed PYTHONPATH first, then any per-app entries.
func (s LaunchSpec) bootstrapEnv() []string {
	env := []string{s.SearchPath.PythonPathEnv(os.Getenv("PYTHONPATH"))}
	return append(env, s.Env...)
}

// StartBackendStep is the step that imports the entry module and invokes its
// callable. Any import or runtime failure propagates through the child's
// stderr and exit status, untranslated.
func StartBackendStep(spec LaunchSpec) CommandStep {
	return CommandStep{
		Name:    "Start Backend",
		Command: spec.Interpreter,
		Args:    spec.EntryPoint.BootstrapArgs(),
		Env:     spec.bootstrapEnv(),
		App:     spec.App,
	}
}

// InstallRequirementsStep installs the app's pinned dependencies ahead of
// the launch.
func InstallRequirementsStep(spec LaunchSpec) CommandStep {
	return CommandStep{
		Name:    "Install Requirements",
		Command: spec.Interpreter,
		Args:    []string{"-m", "pip", "install", "-r", "requirements.txt"},
		App:     spec.App,
	}
}

// RunSequence returns the steps for a foreground launch. The requirements
// step is included only when the app opts in and (for local apps) the file
// actually exists; remote apps that opt in always get the step since the
// file cannot be checked from here.
func RunSequence(spec LaunchSpec) []CommandStep {
	var steps []CommandStep
	if spec.InstallReqs {
		includeInstall := true
		if !spec.App.IsRemote {
			_, err := os.Stat(filepath.Join(spec.App.Root, "requirements.txt"))
			includeInstall = err == nil
		}
		if includeInstall {
			steps = append(steps, InstallRequirementsStep(spec))
		}
	}
	return append(steps, StartBackendStep(spec))
}

// remoteCommandString renders a step as a single shell command for SSH
// execution: cd into the app root, apply the environment, run the command.
func remoteCommandString(step CommandStep) (string, error) {
	if step.App.AbsoluteRemoteRoot == "" {
		return "", fmt.Errorf("internal error: AbsoluteRemoteRoot is empty for remote app %s", step.App.Identifier())
	}
	remoteAppRoot := filepath.Join(step.App.AbsoluteRemoteRoot, step.App.Root)

	parts := []string{"cd", util.QuoteArgForShell(remoteAppRoot), "&&"}
	for _, envEntry := range step.Env {
		key, value, found := strings.Cut(envEntry, "=")
		if !found {
			return "", fmt.Errorf("invalid environment entry '%s' for %s", envEntry, step.App.Identifier())
		}
		parts = append(parts, util.EnvAssignmentForShell(key, value))
	}
	parts = append(parts, step.Command)
	for _, arg := range step.Args {
		parts = append(parts, util.QuoteArgForShell(arg))
	}
	return strings.Join(parts, " "), nil
}

// StreamCommand executes one step of a launch sequence in the app's root
// directory. It streams output based on the cliMode.
// If cliMode is true, output goes directly to os.Stdout/Stderr.
// If cliMode is false, raw chunks are sent over outChan (TUI mode).
func StreamCommand(step CommandStep, cliMode bool) (<-chan OutputLine, <-chan error) {
	// Buffer channel slightly for TUI mode to prevent blocking on rapid output
	outChan := make(chan OutputLine, 10)
	errChan := make(chan error, 1)

	go func() {
		defer close(outChan)
		defer close(errChan)

		cmdDesc := fmt.Sprintf("step '%s' for app %s", step.Name, step.App.Identifier())

		if step.App.IsRemote {
			if step.App.HostConfig == nil {
				errChan <- fmt.Errorf("internal error: HostConfig is nil for remote app %s", step.App.Identifier())
				return
			}
			remoteCmdString, err := remoteCommandString(step)
			if err != nil {
				errChan <- err
				return
			}
			runSSHCommand(*step.App.HostConfig, remoteCmdString, cmdDesc, cliMode, outChan, errChan)
			return
		}

		cmd := exec.Command(step.Command, step.Args...)
		cmd.Dir = step.App.Root // Run in the app's directory
		if len(step.Env) > 0 {
			cmd.Env = append(os.Environ(), step.Env...)
		}
		runLocalCommand(cmd, fmt.Sprintf("local %s", cmdDesc), cliMode, outChan, errChan)
	}()

	return outChan, errChan
}

// streamPipe reads raw chunks from the pipe and sends them over the outChan.
// This is used for TUI mode where raw output (including control characters) is needed.
func streamPipe(pipe io.Reader, outChan chan<- OutputLine, doneChan chan<- struct{}, isError bool) {
	defer func() { doneChan <- struct{}{} }()
	buf := make([]byte, 1024) // Read in chunks
	for {
		n, err := pipe.Read(buf)
		if n > 0 {
			// Send the raw chunk as a string
			outChan <- OutputLine{Line: string(buf[:n]), IsError: isError}
		}
		if err != nil {
			if err != io.EOF {
				fmt.Fprintf(os.Stderr, "Pipe read error (%v): %v\n", isError, err)
			}
			break // Exit loop on EOF or other errors
		}
	}
}
