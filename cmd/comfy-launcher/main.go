package main

import (
	"os"

	"comfy-launcher/cmd/cli"
	"comfy-launcher/cmd/tui"
	"comfy-launcher/internal/config"
	"comfy-launcher/internal/discovery"
	"comfy-launcher/internal/logger"
	"comfy-launcher/internal/runner"
	"comfy-launcher/internal/ssh"
)

func main() {
	// If no arguments (or just the program name) are provided, run the TUI.
	// Otherwise, run the CLI (which will handle the arguments).
	if len(os.Args) <= 1 {
		logger.InitLogger(true)
		if err := config.EnsureConfigDir(); err != nil {
			logger.Errorf("Failed to ensure config directory: %v", err)
			os.Exit(1)
		}
		sshManager := ssh.NewManager()
		discovery.InitSSHManager(sshManager)
		runner.InitSSHManager(sshManager)
		defer sshManager.CloseAll()

		tui.RunTUI()
	} else {
		logger.InitLogger(false)
		cli.RunCLI()
	}
}
