// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"comfy-launcher/internal/config"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	router := mux.NewRouter()
	RegisterSSHRoutes(router)
	return router
}

func doRequest(router *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSSHHostLifecycle(t *testing.T) {
	router := newTestRouter(t)

	// Empty to start.
	rec := doRequest(router, http.MethodGet, "/api/ssh-hosts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var hosts []sanitizedHost
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hosts))
	assert.Empty(t, hosts)

	// Add a host; the password must not be echoed back.
	rec = doRequest(router, http.MethodPost, "/api/ssh-hosts",
		`{"name":"gpu-box","hostname":"10.0.0.5","user":"comfy","password":"hunter2"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hunter2")

	// The host is persisted, password included.
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	require.Len(t, cfg.SSHHosts, 1)
	assert.Equal(t, "hunter2", cfg.SSHHosts[0].Password)

	// Duplicate names are rejected.
	rec = doRequest(router, http.MethodPost, "/api/ssh-hosts",
		`{"name":"gpu-box","hostname":"10.0.0.6","user":"other"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Remove it.
	rec = doRequest(router, http.MethodDelete, "/api/ssh-hosts/gpu-box", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodDelete, "/api/ssh-hosts/gpu-box", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddSSHHostValidation(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(router, http.MethodPost, "/api/ssh-hosts", `{"name":"incomplete"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, http.MethodPost, "/api/ssh-hosts", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
