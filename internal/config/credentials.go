package config

import (
	"fmt"
	"os"
)

// Environment variables carrying run-time secrets. CI injects these per job;
// they are never read from the configuration file.
const (
	EnvHCloudToken    = "HCLOUD_TOKEN"
	EnvRunnerToken    = "RUNNER_REGISTRATION_TOKEN" // #nosec G101 -- variable name, not a credential
	EnvStateAccessKey = "STATE_ACCESS_KEY"
	EnvStateSecretKey = "STATE_SECRET_KEY" // #nosec G101
)

// Credentials holds the secrets injected by the environment.
type Credentials struct {
	HCloudToken    string
	RunnerToken    string
	StateAccessKey string
	StateSecretKey string
}

// LoadCredentials reads all known secrets from the environment. Presence is
// validated at the point of use: not every command needs every secret.
func LoadCredentials() Credentials {
	return Credentials{
		HCloudToken:    os.Getenv(EnvHCloudToken),
		RunnerToken:    os.Getenv(EnvRunnerToken),
		StateAccessKey: os.Getenv(EnvStateAccessKey),
		StateSecretKey: os.Getenv(EnvStateSecretKey),
	}
}

// RequireHCloudToken returns the provider token or an error naming the
// missing variable.
func (c Credentials) RequireHCloudToken() (string, error) {
	if c.HCloudToken == "" {
		return "", fmt.Errorf("%s is not set", EnvHCloudToken)
	}
	return c.HCloudToken, nil
}

// RequireRunnerToken returns the single-use agent registration token or an
// error naming the missing variable.
func (c Credentials) RequireRunnerToken() (string, error) {
	if c.RunnerToken == "" {
		return "", fmt.Errorf("%s is not set", EnvRunnerToken)
	}
	return c.RunnerToken, nil
}
