// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"fmt"
	"os"
	"sync"
	"time"

	"comfy-launcher/internal/config"
	"comfy-launcher/internal/discovery"
	"comfy-launcher/internal/logger"
	"comfy-launcher/internal/runner"
	"comfy-launcher/internal/ssh"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	sshManager      *ssh.Manager
	statusColor     = color.New(color.FgCyan)
	errorColor      = color.New(color.FgRed)
	stepColor       = color.New(color.FgYellow)
	successColor    = color.New(color.FgGreen)
	statusUpColor   = color.New(color.FgGreen)
	statusDownColor = color.New(color.FgRed)
	statusErrColor  = color.New(color.FgMagenta)
	identifierColor = color.New(color.FgBlue)
)

var rootCmd = &cobra.Command{
	Use:   "comfy-launcher",
	Short: "Comfy Launcher CLI",
	Long: `A command-line interface to discover and launch Python backend applications.

Discovers apps in standard local directories (~/comfy-apps, ~/apps) and on
remote hosts configured via SSH (~/.config/comfy-launcher/config.yaml). Each
app's root directory is placed at the front of the backend's module search
path, so launches behave the same from any working directory.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.EnsureConfigDir(); err != nil {
			return fmt.Errorf("failed to ensure config directory: %w", err)
		}
		sshManager = ssh.NewManager()
		discovery.InitSSHManager(sshManager)
		runner.InitSSHManager(sshManager)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if sshManager != nil {
			sshManager.CloseAll()
		}
		return nil
	},
}

func RunCLI() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(checkCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered backend apps (local and remote)",
	Run: func(cmd *cobra.Command, args []string) {
		statusColor.Println("Discovering apps...")
		appChan, errorChan, _ := discovery.FindApps()

		var collectedErrors []error
		var appsFound bool
		var wg sync.WaitGroup
		wg.Add(1)

		go func() {
			defer wg.Done()
			for err := range errorChan {
				collectedErrors = append(collectedErrors, err)
				errorColor.Fprintf(os.Stderr, "Error during discovery: %v\n", err)
			}
		}()

		fmt.Println("\nDiscovered apps:")

		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Color("cyan")
		s.Suffix = " Loading remote apps..."
		s.Start()

		for app := range appChan {
			s.Stop()
			appsFound = true
			fmt.Printf("- %s (%s) [%s]\n", app.Name, identifierColor.Sprint(app.ServerName), app.EntryPoint)
			s.Restart()
		}
		s.Stop()

		wg.Wait()

		if !appsFound && len(collectedErrors) == 0 {
			fmt.Println("\nNo backend apps found locally or on configured remote hosts.")
		} else if !appsFound && len(collectedErrors) > 0 {
			fmt.Println("\nNo apps discovered successfully.")
		}

		if len(collectedErrors) > 0 {
			os.Exit(1)
		}
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [app-identifier]",
	Short: "Show backend process status for one or all apps",
	Long: `Shows whether each app's backend process is running.
If an app identifier (e.g., comfy or gpu-box:comfy) is provided, shows status
for that specific app. Otherwise, shows status for all discovered apps.`,
	Example:           "  comfy-launcher status\n  comfy-launcher status comfy\n  comfy-launcher status gpu-box:comfy",
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: appCompletionFunc,
	Run: func(cmd *cobra.Command, args []string) {
		var collectedErrors []error
		scanAll := len(args) == 0

		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Color("cyan")

		discoveryIdentifier := ""
		if !scanAll {
			discoveryIdentifier = args[0]
			statusColor.Printf("Checking status for %s...\n", identifierColor.Sprint(discoveryIdentifier))
			s.Suffix = fmt.Sprintf(" Discovering %s...", identifierColor.Sprint(discoveryIdentifier))
		} else {
			statusColor.Println("Discovering all apps and checking status...")
			s.Suffix = " Discovering apps..."
		}
		s.Start()

		appsToProcess, collectedErrors := discoverTargetApps(discoveryIdentifier, s)
		s.Stop()

		if len(collectedErrors) > 0 {
			logger.Error("Errors during app discovery:")
			for _, err := range collectedErrors {
				logger.Errorf("- %v", err)
			}
			if len(appsToProcess) == 0 {
				os.Exit(1)
			}
			errorColor.Fprintln(os.Stderr, "Continuing with successfully discovered apps...")
		}

		if len(appsToProcess) == 0 {
			if scanAll {
				fmt.Println("\nNo backend apps found locally or on configured remote hosts.")
			}
			if len(collectedErrors) == 0 {
				os.Exit(1)
			}
		}

		if len(appsToProcess) > 0 {
			statusChan := make(chan runner.AppRuntimeInfo, len(appsToProcess))
			var statusWg sync.WaitGroup
			statusWg.Add(len(appsToProcess))

			s.Suffix = " Checking backend status..."
			s.Start()

			for _, app := range appsToProcess {
				go func(a discovery.App) {
					defer statusWg.Done()
					statusChan <- runner.GetAppStatus(a)
				}(app)
			}

			go func() {
				statusWg.Wait()
				close(statusChan)
			}()

			for statusInfo := range statusChan {
				s.Stop()

				fmt.Printf("\nApp: %s (%s) ", statusInfo.App.Name, identifierColor.Sprint(statusInfo.App.ServerName))
				switch statusInfo.OverallStatus {
				case runner.StatusUp:
					statusUpColor.Printf("[%s]", statusInfo.OverallStatus)
					if statusInfo.Pid > 0 {
						fmt.Printf(" pid %d", statusInfo.Pid)
					}
					fmt.Println()
				case runner.StatusDown:
					statusDownColor.Printf("[%s]\n", statusInfo.OverallStatus)
				case runner.StatusError:
					statusErrColor.Printf("[%s]\n", statusInfo.OverallStatus)
					err := fmt.Errorf("status check for %s failed: %w", statusInfo.App.Identifier(), statusInfo.Error)
					collectedErrors = append(collectedErrors, err)
					if statusInfo.Error != nil {
						logger.Errorf("  Error checking status: %v", statusInfo.Error)
					} else {
						logger.Error("  Unknown error checking status.")
					}
				default:
					fmt.Printf("[%s]\n", statusInfo.OverallStatus)
				}
				s.Restart()
			}
			s.Stop()
		}

		if len(collectedErrors) > 0 {
			os.Exit(1)
		}
	},
}
