// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"comfy-launcher/internal/config"

	"github.com/gorilla/mux"
)

// RegisterSSHRoutes sets up the SSH host management endpoints.
func RegisterSSHRoutes(router *mux.Router) {
	router.HandleFunc("/api/ssh-hosts", handleListSSHHosts).Methods(http.MethodGet)
	router.HandleFunc("/api/ssh-hosts", handleAddSSHHost).Methods(http.MethodPost)
	router.HandleFunc("/api/ssh-hosts/{name}", handleRemoveSSHHost).Methods(http.MethodDelete)
}

// sanitizedHost is an SSHHost without the password field, for responses.
type sanitizedHost struct {
	Name       string `json:"name"`
	Hostname   string `json:"hostname"`
	User       string `json:"user"`
	Port       int    `json:"port,omitempty"`
	KeyPath    string `json:"key_path,omitempty"`
	RemoteRoot string `json:"remote_root,omitempty"`
	Disabled   bool   `json:"disabled,omitempty"`
}

func sanitize(h config.SSHHost) sanitizedHost {
	return sanitizedHost{
		Name:       h.Name,
		Hostname:   h.Hostname,
		User:       h.User,
		Port:       h.Port,
		KeyPath:    h.KeyPath,
		RemoteRoot: h.RemoteRoot,
		Disabled:   h.Disabled,
	}
}

func handleListSSHHosts(w http.ResponseWriter, r *http.Request) {
	cfg, ok := loadConfigOr500(w)
	if !ok {
		return
	}

	hosts := make([]sanitizedHost, 0, len(cfg.SSHHosts))
	for _, h := range cfg.SSHHosts {
		hosts = append(hosts, sanitize(h))
	}
	writeJSONResponse(w, hosts)
}

func handleAddSSHHost(w http.ResponseWriter, r *http.Request) {
	var host config.SSHHost
	if err := json.NewDecoder(r.Body).Decode(&host); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Errorf("invalid host payload: %w", err))
		return
	}
	if host.Name == "" || host.Hostname == "" || host.User == "" {
		writeJSONError(w, http.StatusBadRequest, fmt.Errorf("name, hostname, and user are required"))
		return
	}

	cfg, ok := loadConfigOr500(w)
	if !ok {
		return
	}

	for _, existing := range cfg.SSHHosts {
		if existing.Name == host.Name {
			writeJSONError(w, http.StatusConflict, fmt.Errorf("host '%s' already exists", host.Name))
			return
		}
	}

	cfg.SSHHosts = append(cfg.SSHHosts, host)
	if err := config.SaveConfig(cfg); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sanitize(host))
}

func handleRemoveSSHHost(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	cfg, ok := loadConfigOr500(w)
	if !ok {
		return
	}

	kept := cfg.SSHHosts[:0]
	removed := false
	for _, h := range cfg.SSHHosts {
		if h.Name == name {
			removed = true
			continue
		}
		kept = append(kept, h)
	}
	if !removed {
		writeJSONError(w, http.StatusNotFound, fmt.Errorf("host '%s' not found", name))
		return
	}

	cfg.SSHHosts = kept
	if err := config.SaveConfig(cfg); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSONResponse(w, map[string]string{"removed": name})
}
