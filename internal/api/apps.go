// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package api implements the HTTP API endpoints for the launcher's web
// interface. It provides handlers for listing apps, launching and stopping
// backends, and managing SSH configurations through a RESTful API.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"comfy-launcher/internal/config"
	"comfy-launcher/internal/discovery"
	"comfy-launcher/internal/runner"

	"github.com/gorilla/mux"
)

// AppWithStatus combines App information with its runtime status for the
// web UI.
type AppWithStatus struct {
	discovery.App
	Status runner.AppStatus `json:"status"`
	Pid    int              `json:"pid,omitempty"`
}

// collectAppsWithStatus fetches the current status of each app in parallel.
func collectAppsWithStatus(apps []discovery.App) []AppWithStatus {
	appsWithStatus := make([]AppWithStatus, len(apps))
	var wg sync.WaitGroup
	wg.Add(len(apps))

	for i, app := range apps {
		go func(i int, a discovery.App) {
			defer wg.Done()
			statusInfo := runner.GetAppStatus(a)
			appsWithStatus[i] = AppWithStatus{
				App:    a,
				Status: statusInfo.OverallStatus,
				Pid:    statusInfo.Pid,
			}
		}(i, app)
	}

	wg.Wait()
	return appsWithStatus
}

// writeJSONResponse writes a JSON response with CORS headers
func writeJSONResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(data)
}

// writeJSONError writes an error payload with the given HTTP status.
func writeJSONError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// discoverAllApps drains the discovery channels into slices.
func discoverAllApps() ([]discovery.App, []error) {
	appChan, errorChan, _ := discovery.FindApps()

	var apps []discovery.App
	var errs []error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for a := range appChan {
			apps = append(apps, a)
		}
	}()
	go func() {
		defer wg.Done()
		for e := range errorChan {
			errs = append(errs, e)
		}
	}()

	wg.Wait()
	return apps, errs
}

// findAppByNameAndServer locates one discovered app by name and server.
func findAppByNameAndServer(name, serverName string) (discovery.App, error) {
	apps, errs := discoverAllApps()
	for _, a := range apps {
		if a.Name == name && a.ServerName == serverName {
			return a, nil
		}
	}
	if len(errs) > 0 {
		return discovery.App{}, fmt.Errorf("app %s:%s not found (discovery reported %d error(s))", serverName, name, len(errs))
	}
	return discovery.App{}, fmt.Errorf("app %s:%s not found", serverName, name)
}

// RegisterAppRoutes sets up the app listing and status endpoints.
func RegisterAppRoutes(router *mux.Router) {
	router.HandleFunc("/api/apps", handleListApps).Methods(http.MethodGet)
	router.HandleFunc("/api/apps/{server}/{name}/status", handleAppStatus).Methods(http.MethodGet)
}

func handleListApps(w http.ResponseWriter, r *http.Request) {
	apps, errs := discoverAllApps()
	if len(apps) == 0 && len(errs) > 0 {
		writeJSONError(w, http.StatusInternalServerError, fmt.Errorf("discovery failed: %v", errs[0]))
		return
	}
	writeJSONResponse(w, collectAppsWithStatus(apps))
}

func handleAppStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	app, err := findAppByNameAndServer(vars["name"], vars["server"])
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err)
		return
	}

	info := runner.GetAppStatus(app)
	if info.OverallStatus == runner.StatusError && info.Error != nil {
		writeJSONError(w, http.StatusBadGateway, info.Error)
		return
	}
	writeJSONResponse(w, AppWithStatus{App: app, Status: info.OverallStatus, Pid: info.Pid})
}

// loadConfigOr500 loads the configuration or reports the failure to the client.
func loadConfigOr500(w http.ResponseWriter) (config.Config, bool) {
	cfg, err := config.LoadConfig()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Errorf("error loading config: %w", err))
		return config.Config{}, false
	}
	return cfg, true
}
