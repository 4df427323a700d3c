// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"fmt"
	"os"
	"sync"

	"comfy-launcher/internal/config"
	"comfy-launcher/internal/discovery"
	"comfy-launcher/internal/logger"
	"comfy-launcher/internal/runner"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <app-identifier>",
	Short: "Run an app's backend in the foreground",
	Long: `Runs the app's backend entry point in the foreground, streaming its
output. The launcher's exit status mirrors the backend's, so import errors
and runtime failures propagate untranslated.`,
	Example:           "  comfy-launcher run comfy\n  comfy-launcher run gpu-box:comfy",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: appCompletionFunc,
	Run: func(cmd *cobra.Command, args []string) {
		app, spec := locateAndPlan(args[0])

		statusColor.Printf("Launching backend for %s (%s)\n", app.Name, identifierColor.Sprint(app.ServerName))

		exitCode, err := runLaunchSequence(app, runner.RunSequence(spec))
		if err != nil {
			logger.Errorf("\nLaunch failed for %s (%s): %v", app.Name, app.ServerName, err)
			if exitCode > 0 {
				os.Exit(exitCode)
			}
			os.Exit(1)
		}
		successColor.Printf("Backend for %s (%s) exited cleanly.\n", app.Name, identifierColor.Sprint(app.ServerName))
	},
}

var startCmd = &cobra.Command{
	Use:   "start <app-identifier>",
	Short: "Start an app's backend detached from the terminal",
	Long: `Starts the backend in its own session, recording its pid so status
and stop can find it later. Output goes to a per-app log file under the
launcher's state directory. Local apps only.`,
	Example:           "  comfy-launcher start comfy",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: appCompletionFunc,
	Run: func(cmd *cobra.Command, args []string) {
		app, spec := locateAndPlan(args[0])

		pid, err := runner.StartDetached(spec)
		if err != nil {
			errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		successColor.Printf("Backend for %s started (pid %d).\n", identifierColor.Sprint(app.Identifier()), pid)
	},
}

var stopCmd = &cobra.Command{
	Use:               "stop <app-identifier>",
	Short:             "Stop a detached backend",
	Example:           "  comfy-launcher stop comfy",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: appCompletionFunc,
	Run: func(cmd *cobra.Command, args []string) {
		app := locateApp(args[0])

		if err := runner.StopDetached(app); err != nil {
			errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		successColor.Printf("Backend for %s stopped.\n", identifierColor.Sprint(app.Identifier()))
	},
}

// locateApp resolves a single app from an identifier or exits with an error.
func locateApp(identifier string) discovery.App {
	statusColor.Printf("Locating app '%s'...\n", identifier)

	appsToCheck, collectedErrors := discoverTargetApps(identifier, nil)
	if len(collectedErrors) > 0 {
		errorColor.Fprintln(os.Stderr, "\nErrors during app discovery:")
		for _, err := range collectedErrors {
			errorColor.Fprintf(os.Stderr, "- %v\n", err)
		}
		os.Exit(1)
	}

	app, err := findAppByIdentifier(appsToCheck, identifier)
	if err != nil {
		errorColor.Fprintf(os.Stderr, "\nError: %v\n", err)
		os.Exit(1)
	}
	return app
}

// locateAndPlan resolves an app and builds its launch spec, exiting on error.
func locateAndPlan(identifier string) (discovery.App, runner.LaunchSpec) {
	app := locateApp(identifier)

	cfg, err := config.LoadConfig()
	if err != nil {
		errorColor.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	spec, err := runner.BuildLaunchSpec(app, cfg)
	if err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return app, spec
}

// runLaunchSequence executes a series of command steps for a given app.
// Returns the failing step's exit code when one can be determined.
func runLaunchSequence(app discovery.App, sequence []runner.CommandStep) (int, error) {
	for _, step := range sequence {
		stepColor.Printf("\n--- Running Step: %s for %s (%s) ---\n", step.Name, app.Name, identifierColor.Sprint(app.ServerName))

		// CLI always uses cliMode: true for direct output
		outChan, errChan := runner.StreamCommand(step, true)

		var stepErr error
		var wg sync.WaitGroup

		if !step.App.IsRemote {
			stepErr = <-errChan
			fmt.Println()
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for outputLine := range outChan {
					fmt.Fprint(os.Stdout, outputLine.Line)
				}
			}()

			stepErr = <-errChan
			wg.Wait()
			fmt.Println()
		}

		if stepErr != nil {
			return runner.ExitCode(stepErr), fmt.Errorf("step '%s' failed: %w", step.Name, stepErr)
		}
		successColor.Printf("--- Step '%s' completed successfully for %s (%s) ---\n", step.Name, app.Name, identifierColor.Sprint(app.ServerName))
	}
	return 0, nil
}
