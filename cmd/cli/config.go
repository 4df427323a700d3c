// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"comfy-launcher/internal/config"
	"comfy-launcher/internal/discovery"
	"comfy-launcher/internal/logger"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// dimColor is used for less important/secondary text in the CLI output
var dimColor = color.New(color.Faint)

// configCmd is the parent command for all configuration-related subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage comfy-launcher configuration",
	Long: `Provides subcommands to manage different aspects of the launcher configuration.
This includes SSH host configurations, the local apps root and the default
Python interpreter.`,
}

var configSetAppsRootCmd = &cobra.Command{
	Use:   "set-apps-root <path>",
	Short: "Set the custom root directory for local apps",
	Long: `Sets the root directory where comfy-launcher will look for local backend apps.
Use an absolute path or a path starting with '~/' (e.g., '~/my-apps').
If set, this overrides the default search paths (~/comfy-apps, ~/apps).
To revert to default behavior, set the path to an empty string: comfy-launcher config set-apps-root ""`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		appsRootPath := args[0]

		cfg, err := config.LoadConfig()
		if err != nil {
			logger.Errorf("Error loading configuration: %v", err)
			os.Exit(1)
		}

		if appsRootPath != "" && !strings.HasPrefix(appsRootPath, "/") && !strings.HasPrefix(appsRootPath, "~/") {
			logger.Error("Error: Path must be absolute or start with '~/'")
			os.Exit(1)
		}

		cfg.AppsRoot = appsRootPath

		err = config.SaveConfig(cfg)
		if err != nil {
			logger.Errorf("Error saving configuration: %v", err)
			os.Exit(1)
		}

		if appsRootPath == "" {
			successColor.Println("Apps root reset to default search paths (~/comfy-apps, ~/apps).")
		} else {
			successColor.Printf("Apps root set to: %s\n", appsRootPath)
		}
	},
}

var configGetAppsRootCmd = &cobra.Command{
	Use:   "get-apps-root",
	Short: "Show the currently configured local apps root directory",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			logger.Errorf("Error loading configuration: %v", err)
			os.Exit(1)
		}

		if cfg.AppsRoot != "" {
			fmt.Printf("Configured apps root: %s\n", identifierColor.Sprint(cfg.AppsRoot))
			resolvedPath, resolveErr := config.ResolvePath(cfg.AppsRoot)
			if resolveErr == nil {
				fmt.Printf("Resolved path:        %s\n", resolvedPath)
			} else {
				fmt.Printf("Warning: Could not resolve configured path: %v\n", resolveErr)
			}
		} else {
			fmt.Println("Apps root not explicitly configured.")
			fmt.Printf("Default search paths: %s, %s\n", identifierColor.Sprint("~/comfy-apps"), identifierColor.Sprint("~/apps"))
		}

		activePath, activeErr := discovery.GetAppsRootDirectory()
		if activeErr == nil {
			// Determine if the active path came from config or default
			resolvedConfigPath, _ := config.ResolvePath(cfg.AppsRoot) // Resolve even if empty
			homeDir, _ := os.UserHomeDir()
			defaultComfyApps := filepath.Join(homeDir, "comfy-apps")
			defaultApps := filepath.Join(homeDir, "apps")

			source := ""
			if cfg.AppsRoot != "" && activePath == resolvedConfigPath {
				source = "(from config)"
			} else if activePath == defaultComfyApps || activePath == defaultApps {
				source = "(default)"
			} else {
				source = "(unknown source)"
			}
			successColor.Printf("Effective path being used: %s %s\n", activePath, source)

		} else if strings.Contains(activeErr.Error(), "could not find") {
			if cfg.AppsRoot != "" {
				fmt.Printf("Warning: Configured path '%s' not found, and no default path exists.\n", cfg.AppsRoot)
			} else {
				fmt.Println("Warning: Neither default path exists.")
			}
		} else {
			logger.Errorf("Error determining effective path: %v", activeErr)
		}
	},
}

var configSetInterpreterCmd = &cobra.Command{
	Use:   "set-interpreter <path>",
	Short: "Set the default Python interpreter",
	Long: `Sets the default Python interpreter used to launch backends.
Per-app interpreter overrides and a detected venv/.venv still take precedence
for individual apps. To revert to automatic resolution, set the path to an
empty string: comfy-launcher config set-interpreter ""`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		interpreterPath := args[0]

		cfg, err := config.LoadConfig()
		if err != nil {
			logger.Errorf("Error loading configuration: %v", err)
			os.Exit(1)
		}

		cfg.Interpreter = interpreterPath

		err = config.SaveConfig(cfg)
		if err != nil {
			logger.Errorf("Error saving configuration: %v", err)
			os.Exit(1)
		}

		if interpreterPath == "" {
			successColor.Println("Default interpreter reset to automatic resolution (venv, then python3 on PATH).")
		} else {
			successColor.Printf("Default interpreter set to: %s\n", interpreterPath)
		}
	},
}

var configGetInterpreterCmd = &cobra.Command{
	Use:   "get-interpreter",
	Short: "Show the currently configured default Python interpreter",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			logger.Errorf("Error loading configuration: %v", err)
			os.Exit(1)
		}

		if cfg.Interpreter != "" {
			fmt.Printf("Default interpreter: %s\n", identifierColor.Sprint(cfg.Interpreter))
		} else {
			fmt.Printf("Default interpreter: %s\n", dimColor.Sprint("[automatic: app venv, then python3 on PATH]"))
		}
	},
}

func init() {
	configCmd.AddCommand(configSetAppsRootCmd)
	configCmd.AddCommand(configGetAppsRootCmd)

	configCmd.AddCommand(configSetInterpreterCmd)
	configCmd.AddCommand(configGetInterpreterCmd)

	// Add the config command to root
	rootCmd.AddCommand(configCmd)
}
