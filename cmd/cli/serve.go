// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"fmt"
	"log"
	"net/http"

	"comfy-launcher/internal/api"
	"comfy-launcher/internal/web"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server for Comfy Launcher",
	Long:  `Starts an HTTP server that serves the Comfy Launcher web UI and API`,
	Run: func(cmd *cobra.Command, args []string) {
		runWebServer()
	},
}

// runWebServer starts the HTTP server for the web UI.
func runWebServer() {
	// Note: SSH manager is already initialized in PersistentPreRunE of rootCmd

	router := mux.NewRouter()

	// Register API routes
	api.RegisterAppRoutes(router)
	api.RegisterSSHRoutes(router)
	api.RegisterRunnerRoutes(router)

	// Serve the embedded static dashboard.
	// Must be registered after API routes to avoid conflicts
	staticFileServer := http.FileServer(web.GetFileSystem())
	router.PathPrefix("/").Handler(staticFileServer)

	fmt.Printf("Starting web server on :%s\n", servePort)
	log.Fatal(http.ListenAndServe(":"+servePort, router))
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "8080", "port to listen on")
	rootCmd.AddCommand(serveCmd)
}
