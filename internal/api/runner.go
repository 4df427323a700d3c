// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package api

import (
	"fmt"
	"net/http"

	"comfy-launcher/internal/runner"

	"github.com/gorilla/mux"
)

// RegisterRunnerRoutes sets up the launch and stop endpoints.
func RegisterRunnerRoutes(router *mux.Router) {
	router.HandleFunc("/api/apps/{server}/{name}/launch", handleLaunchApp).Methods(http.MethodPost)
	router.HandleFunc("/api/apps/{server}/{name}/stop", handleStopApp).Methods(http.MethodPost)
}

// handleLaunchApp starts an app's backend detached and returns its pid.
// Only local apps can be launched through the API: a remote backend would
// not outlive its SSH session.
func handleLaunchApp(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	app, err := findAppByNameAndServer(vars["name"], vars["server"])
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err)
		return
	}
	if app.IsRemote {
		writeJSONError(w, http.StatusBadRequest,
			fmt.Errorf("remote app %s cannot be launched detached; use the CLI 'run' command", app.Identifier()))
		return
	}

	cfg, ok := loadConfigOr500(w)
	if !ok {
		return
	}

	spec, err := runner.BuildLaunchSpec(app, cfg)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}

	pid, err := runner.StartDetached(spec)
	if err != nil {
		writeJSONError(w, http.StatusConflict, err)
		return
	}

	writeJSONResponse(w, map[string]interface{}{
		"app":    app.Identifier(),
		"status": runner.StatusUp,
		"pid":    pid,
	})
}

func handleStopApp(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	app, err := findAppByNameAndServer(vars["name"], vars["server"])
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err)
		return
	}

	if err := runner.StopDetached(app); err != nil {
		writeJSONError(w, http.StatusConflict, err)
		return
	}

	writeJSONResponse(w, map[string]interface{}{
		"app":    app.Identifier(),
		"status": runner.StatusDown,
	})
}
