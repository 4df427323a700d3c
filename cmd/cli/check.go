// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"fmt"
	"os"

	"comfy-launcher/internal/runner"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <app-identifier>",
	Short: "Verify an app can be launched without launching it",
	Long: `Checks the launch contract for an app: the interpreter resolves and
the entry module is reachable on the composed search path with its callable
defined at top level. Nothing is executed.`,
	Example:           "  comfy-launcher check comfy\n  comfy-launcher check gpu-box:comfy",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: appCompletionFunc,
	Run: func(cmd *cobra.Command, args []string) {
		app, spec := locateAndPlan(args[0])

		statusColor.Printf("Checking %s (%s)...\n", app.Name, identifierColor.Sprint(app.ServerName))

		result, err := runner.Preflight(spec)
		if err != nil {
			errorColor.Fprintf(os.Stderr, "Check failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("  Interpreter: %s\n", result.Interpreter)
		fmt.Printf("  Entry point: %s (%s)\n", spec.EntryPoint, result.ModuleFile)
		fmt.Printf("  Search path: %s\n", spec.SearchPath)
		successColor.Printf("App %s is ready to launch.\n", identifierColor.Sprint(app.Identifier()))
	},
}
