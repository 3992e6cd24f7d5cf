package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCredentials_FromEnvironment(t *testing.T) {
	t.Setenv(EnvHCloudToken, "hcloud-token")
	t.Setenv(EnvRunnerToken, "runner-token")
	t.Setenv(EnvStateAccessKey, "access")
	t.Setenv(EnvStateSecretKey, "secret")

	creds := LoadCredentials()

	assert.Equal(t, "hcloud-token", creds.HCloudToken)
	assert.Equal(t, "runner-token", creds.RunnerToken)
	assert.Equal(t, "access", creds.StateAccessKey)
	assert.Equal(t, "secret", creds.StateSecretKey)
}

func TestRequireHCloudToken(t *testing.T) {
	t.Parallel()
	creds := Credentials{HCloudToken: "tok"}
	token, err := creds.RequireHCloudToken()
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	_, err = Credentials{}.RequireHCloudToken()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvHCloudToken)
}

func TestRequireRunnerToken(t *testing.T) {
	t.Parallel()
	creds := Credentials{RunnerToken: "tok"}
	token, err := creds.RequireRunnerToken()
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	_, err = Credentials{}.RequireRunnerToken()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvRunnerToken)
}
