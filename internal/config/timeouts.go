package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds the time budgets for provider calls and remote execution.
type Timeouts struct {
	ServerCreate      time.Duration // creating one compute instance
	Delete            time.Duration // deleting one resource
	RemoteDial        time.Duration // establishing the SSH connection
	RemoteTask        time.Duration // one remote task on one host
	Bootstrap         time.Duration // the whole bootstrap-driver sequence
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
}

// LoadTimeouts loads timeout configuration from environment variables.
// Unset or invalid variables fall back to defaults.
//
// Environment variables:
//   - K3FORGE_TIMEOUT_SERVER_CREATE (default: 10m)
//   - K3FORGE_TIMEOUT_DELETE (default: 5m)
//   - K3FORGE_TIMEOUT_REMOTE_DIAL (default: 10s)
//   - K3FORGE_TIMEOUT_REMOTE_TASK (default: 15m)
//   - K3FORGE_TIMEOUT_BOOTSTRAP (default: 20m)
//   - K3FORGE_RETRY_MAX_ATTEMPTS (default: 5)
//   - K3FORGE_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		ServerCreate:      parseDuration("K3FORGE_TIMEOUT_SERVER_CREATE", 10*time.Minute),
		Delete:            parseDuration("K3FORGE_TIMEOUT_DELETE", 5*time.Minute),
		RemoteDial:        parseDuration("K3FORGE_TIMEOUT_REMOTE_DIAL", 10*time.Second),
		RemoteTask:        parseDuration("K3FORGE_TIMEOUT_REMOTE_TASK", 15*time.Minute),
		Bootstrap:         parseDuration("K3FORGE_TIMEOUT_BOOTSTRAP", 20*time.Minute),
		RetryMaxAttempts:  parseInt("K3FORGE_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay: parseDuration("K3FORGE_RETRY_INITIAL_DELAY", 1*time.Second),
	}
}

func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}
