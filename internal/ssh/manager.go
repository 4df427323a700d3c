// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package ssh provides functionality for establishing and managing SSH
// connections to the remote hosts that run backend applications. It handles
// authentication, connection pooling, and session creation for remote
// discovery and launches.
package ssh

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"comfy-launcher/internal/config"
	"comfy-launcher/internal/logger"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Manager handles SSH connections to remote hosts. It maintains a pool of
// connections keyed by host name and provides thread-safe access to them.
type Manager struct {
	clients map[string]*ssh.Client
	mu      sync.Mutex
}

// NewManager creates and initializes a new SSH connection manager
func NewManager() *Manager {
	return &Manager{
		clients: make(map[string]*ssh.Client),
	}
}

// GetClient returns an established SSH client for the specified host
// configuration. It reuses existing connections when possible, validating
// cached clients with a keepalive and reconnecting when they have gone stale.
func (m *Manager) GetClient(hostConfig config.SSHHost) (*ssh.Client, error) {
	m.mu.Lock()
	client, found := m.clients[hostConfig.Name]
	if found {
		// Keepalive probe detects stale connections without a full
		// reconnect attempt (not foolproof).
		_, _, err := client.SendRequest("keepalive@openssh.com", true, nil)
		if err == nil {
			m.mu.Unlock()
			return client, nil
		}
		if err := client.Close(); err != nil {
			logger.Errorf("Error closing existing SSH client for %s during reconnect: %v", hostConfig.Name, err)
		}
		delete(m.clients, hostConfig.Name)
	}
	m.mu.Unlock() // Unlock before potentially long Dial operation

	authMethods, err := m.getAuthMethods(hostConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare auth methods for %s: %w", hostConfig.Name, err)
	}
	if len(authMethods) == 0 {
		return nil, fmt.Errorf("no suitable authentication method found for %s (key, agent, or password required)", hostConfig.Name)
	}

	sshConfig := &ssh.ClientConfig{
		User:    hostConfig.User,
		Auth:    authMethods,
		Timeout: 10 * time.Second,
	}
	hostKeyCallback, khErr := createHostKeyCallback()
	if khErr != nil {
		logger.Warnf("Could not create known_hosts callback for %s: %v. Host key will not be verified.", hostConfig.Name, khErr)
		sshConfig.HostKeyCallback = ssh.InsecureIgnoreHostKey()
	} else {
		sshConfig.HostKeyCallback = hostKeyCallback
	}

	port := hostConfig.Port
	if port == 0 {
		port = 22
	}
	addr := fmt.Sprintf("%s:%d", hostConfig.Hostname, port)

	newClient, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ssh host %s (%s): %w", hostConfig.Name, addr, err)
	}

	m.mu.Lock()
	// Double-check if another goroutine created a client while we were dialing
	existingClient, found := m.clients[hostConfig.Name]
	if found {
		m.mu.Unlock()
		if err := newClient.Close(); err != nil {
			logger.Errorf("Error closing redundant SSH client for %s: %v", hostConfig.Name, err)
		}
		return existingClient, nil
	}
	m.clients[hostConfig.Name] = newClient
	m.mu.Unlock()

	return newClient, nil
}

// getAuthMethods prepares authentication methods for an SSH connection, in
// order: key file (if KeyPath is set), ssh-agent (if SSH_AUTH_SOCK is set),
// then password (if configured).
func (m *Manager) getAuthMethods(hostConfig config.SSHHost) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if hostConfig.KeyPath != "" {
		keyPath, resolveErr := config.ResolvePath(hostConfig.KeyPath)
		if resolveErr != nil {
			logger.Errorf("Warning: could not resolve key path '%s': %v", hostConfig.KeyPath, resolveErr)
			keyPath = hostConfig.KeyPath
		}

		key, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key file %s: %w", keyPath, err)
		}

		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			if _, ok := err.(*ssh.PassphraseMissingError); ok {
				// Encrypted keys need passphrase prompting, which is not
				// supported here; the agent or a password may still work.
				logger.Warnf("Private key file %s is encrypted and passphrase prompting is not supported here. Skipping key.", keyPath)
			} else {
				return nil, fmt.Errorf("failed to parse private key file %s: %w", keyPath, err)
			}
		} else {
			methods = append(methods, ssh.PublicKeys(signer))
		}
	}

	if socket := os.Getenv("SSH_AUTH_SOCK"); socket != "" {
		conn, err := net.Dial("unix", socket)
		if err == nil { // Silently ignore agent errors if key/password might work
			agentClient := agent.NewClient(conn)
			methods = append(methods, ssh.PublicKeysCallback(agentClient.Signers))
		}
	}

	if hostConfig.Password != "" {
		methods = append(methods, ssh.Password(hostConfig.Password))
	}

	return methods, nil
}

// CloseAll closes all active SSH connections managed by this Manager.
// Called when the launcher is shutting down.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, client := range m.clients {
		if err := client.Close(); err != nil {
			logger.Errorf("Error closing SSH client for %s: %v", name, err)
		}
		delete(m.clients, name)
	}
}

// Close closes a specific SSH connection by host name.
func (m *Manager) Close(hostName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if client, found := m.clients[hostName]; found {
		if err := client.Close(); err != nil {
			logger.Errorf("Error closing SSH client for %s: %v", hostName, err)
		}
		delete(m.clients, hostName)
	}
}

// createHostKeyCallback builds host key verification from the standard
// ~/.ssh/known_hosts file. If the file doesn't exist, a warning is logged
// and an insecure callback is returned as a fallback.
func createHostKeyCallback() (ssh.HostKeyCallback, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory for known_hosts: %w", err)
	}
	knownHostsPath := filepath.Join(homeDir, ".ssh", "known_hosts")

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warnf("known_hosts file (%s) not found. Will attempt connection without verification.", knownHostsPath)
			return ssh.InsecureIgnoreHostKey(), nil
		}
		return nil, fmt.Errorf("failed to load or parse known_hosts file %s: %w", knownHostsPath, err)
	}
	return callback, nil
}
