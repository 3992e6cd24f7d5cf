package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "k3forge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `
cluster_name: demo
ssh:
  public_key: "ssh-rsa AAAA demo"
`

func TestLoadFile_AppliesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := LoadFile(writeConfig(t, minimalConfig))

	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.ClusterName)
	assert.Equal(t, "10.0.0.0/16", cfg.Network.CIDR)
	assert.Equal(t, "10.0.1.0/24", cfg.Network.PublicSubnet)
	assert.Equal(t, "10.0.2.0/24", cfg.Network.PrivateSubnet)
	assert.Equal(t, "eu-central", cfg.Network.Zone)
	assert.Equal(t, "nbg1", cfg.Location)
	assert.Equal(t, "debian-12", cfg.Image)
	assert.Equal(t, "cx22", cfg.ControlHost.Type)
	assert.Equal(t, "cx32", cfg.ControlPlane.Type)
	assert.Equal(t, 2, cfg.Workers.Count)
	assert.Equal(t, "root", cfg.SSH.User)
	assert.Equal(t, "demo-runner", cfg.Runner.Name)
	assert.Equal(t, "payload", cfg.Payload.Dir)
	assert.Equal(t, "/etc/k3forge", cfg.Payload.RemoteDir)
	assert.Equal(t, "file", cfg.State.Backend)
	assert.Equal(t, ".k3forge", cfg.State.Dir)
}

func TestLoadFile_ExplicitValues(t *testing.T) {
	t.Parallel()
	cfg, err := LoadFile(writeConfig(t, `
cluster_name: prod
network:
  cidr: 172.16.0.0/16
  public_subnet: 172.16.1.0/24
  private_subnet: 172.16.2.0/24
  ssh_source: 198.51.100.0/24
workers:
  type: cx42
  count: 5
ssh:
  public_key: "ssh-rsa AAAA prod"
state:
  backend: s3
  bucket: prod-state
  region: eu-central-1
`))

	require.NoError(t, err)
	assert.Equal(t, "172.16.0.0/16", cfg.Network.CIDR)
	assert.Equal(t, "198.51.100.0/24", cfg.Network.SSHSource)
	assert.Equal(t, 5, cfg.Workers.Count)
	assert.Equal(t, "cx42", cfg.Workers.Type)
	assert.Equal(t, "s3", cfg.State.Backend)
	assert.Equal(t, "prod-state", cfg.State.Bucket)
}

func TestLoadFile_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing cluster name", func(c *Config) { c.ClusterName = "" }, "cluster_name"},
		{"zero workers", func(c *Config) { c.Workers.Count = 0 }, "workers.count"},
		{"bad network cidr", func(c *Config) { c.Network.CIDR = "nope" }, "network.cidr"},
		{"bad subnet cidr", func(c *Config) { c.Network.PublicSubnet = "10.0.1.0" }, "network.public_subnet"},
		{"no ssh credential at all", func(c *Config) { c.SSH.PublicKey = "" }, "ssh.public_key"},
		{"private key file alone is enough", func(c *Config) {
			c.SSH.PublicKey = ""
			c.SSH.PrivateKeyFile = "/home/ci/.ssh/id_rsa"
		}, ""},
		{"s3 without bucket", func(c *Config) { c.State.Backend = "s3"; c.State.Bucket = "" }, "state.bucket"},
		{"unknown backend", func(c *Config) { c.State.Backend = "etcd" }, "unknown state backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := LoadFile(writeConfig(t, minimalConfig))
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
