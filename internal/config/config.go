// Package config loads and validates the cluster configuration. Credentials
// are never part of the file; they come from the environment so CI secret
// injection works unchanged (see credentials.go).
package config

import (
	"fmt"
	"net"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config holds the full cluster configuration.
type Config struct {
	ClusterName string `mapstructure:"cluster_name" yaml:"cluster_name"`

	Network      NetworkConfig `mapstructure:"network" yaml:"network"`
	Location     string        `mapstructure:"location" yaml:"location"`
	Image        string        `mapstructure:"image" yaml:"image"`
	ControlHost  MachineConfig `mapstructure:"control_host" yaml:"control_host"`
	ControlPlane MachineConfig `mapstructure:"control_plane" yaml:"control_plane"`
	Workers      WorkerConfig  `mapstructure:"workers" yaml:"workers"`
	SSH          SSHConfig     `mapstructure:"ssh" yaml:"ssh"`
	Runner       RunnerConfig  `mapstructure:"runner" yaml:"runner"`
	Payload      PayloadConfig `mapstructure:"payload" yaml:"payload"`
	State        StateConfig   `mapstructure:"state" yaml:"state"`
}

// NetworkConfig describes the private network layout.
type NetworkConfig struct {
	CIDR          string `mapstructure:"cidr" yaml:"cidr"`
	PublicSubnet  string `mapstructure:"public_subnet" yaml:"public_subnet"`
	PrivateSubnet string `mapstructure:"private_subnet" yaml:"private_subnet"`
	Zone          string `mapstructure:"zone" yaml:"zone"`
	SSHSource     string `mapstructure:"ssh_source" yaml:"ssh_source"`
}

// MachineConfig describes a single-instance role.
type MachineConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
}

// WorkerConfig describes the worker pool.
type WorkerConfig struct {
	Type  string `mapstructure:"type" yaml:"type"`
	Count int    `mapstructure:"count" yaml:"count"`
}

// SSHConfig describes the remote-execution credential.
type SSHConfig struct {
	User           string `mapstructure:"user" yaml:"user"`
	PublicKey      string `mapstructure:"public_key" yaml:"public_key"`
	PrivateKeyFile string `mapstructure:"private_key_file" yaml:"private_key_file"`
}

// RunnerConfig describes the CI execution agent registered on the control
// host. The registration token is a run-time secret and comes from the
// environment, not from this file.
type RunnerConfig struct {
	URL  string `mapstructure:"url" yaml:"url"`
	Name string `mapstructure:"name" yaml:"name"`
}

// PayloadConfig describes the configuration payload shipped to the control
// host: the task definitions plus the generated inventory.
type PayloadConfig struct {
	Dir       string `mapstructure:"dir" yaml:"dir"`
	RemoteDir string `mapstructure:"remote_dir" yaml:"remote_dir"`
}

// StateConfig selects the state backend.
type StateConfig struct {
	Backend  string `mapstructure:"backend" yaml:"backend"` // "file" or "s3"
	Dir      string `mapstructure:"dir" yaml:"dir"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Region   string `mapstructure:"region" yaml:"region"`
	Bucket   string `mapstructure:"bucket" yaml:"bucket"`
}

// LoadFile reads and parses the configuration from a YAML file.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var rawConfig map[string]interface{}
	if err := yaml.Unmarshal(data, &rawConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	var cfg Config
	if err := mapstructure.Decode(rawConfig, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Network.CIDR == "" {
		c.Network.CIDR = "10.0.0.0/16"
	}
	if c.Network.PublicSubnet == "" {
		c.Network.PublicSubnet = "10.0.1.0/24"
	}
	if c.Network.PrivateSubnet == "" {
		c.Network.PrivateSubnet = "10.0.2.0/24"
	}
	if c.Network.Zone == "" {
		c.Network.Zone = "eu-central"
	}
	if c.Location == "" {
		c.Location = "nbg1"
	}
	if c.Image == "" {
		c.Image = "debian-12"
	}
	if c.ControlHost.Type == "" {
		c.ControlHost.Type = "cx22"
	}
	if c.ControlPlane.Type == "" {
		c.ControlPlane.Type = "cx32"
	}
	if c.Workers.Type == "" {
		c.Workers.Type = "cx32"
	}
	if c.Workers.Count == 0 {
		c.Workers.Count = 2
	}
	if c.SSH.User == "" {
		c.SSH.User = "root"
	}
	if c.Runner.Name == "" {
		c.Runner.Name = c.ClusterName + "-runner"
	}
	if c.Payload.Dir == "" {
		c.Payload.Dir = "payload"
	}
	if c.Payload.RemoteDir == "" {
		c.Payload.RemoteDir = "/etc/k3forge"
	}
	if c.State.Backend == "" {
		c.State.Backend = "file"
	}
	if c.State.Dir == "" {
		c.State.Dir = ".k3forge"
	}
}

// Validate checks the configuration for structural errors.
func (c *Config) Validate() error {
	if c.ClusterName == "" {
		return fmt.Errorf("cluster_name is required")
	}
	if c.Workers.Count < 1 {
		return fmt.Errorf("workers.count must be at least 1, got %d", c.Workers.Count)
	}
	for field, cidr := range map[string]string{
		"network.cidr":           c.Network.CIDR,
		"network.public_subnet":  c.Network.PublicSubnet,
		"network.private_subnet": c.Network.PrivateSubnet,
	} {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return fmt.Errorf("invalid %s: %w", field, err)
		}
	}
	if c.SSH.PublicKey == "" && c.SSH.PrivateKeyFile == "" {
		return fmt.Errorf("one of ssh.public_key or ssh.private_key_file is required")
	}
	switch c.State.Backend {
	case "file":
	case "s3":
		if c.State.Bucket == "" {
			return fmt.Errorf("state.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown state backend %q", c.State.Backend)
	}
	return nil
}
