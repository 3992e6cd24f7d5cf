// Package handlers implements the business logic for CLI commands.
//
// Handlers are framework-agnostic and can be tested independently of the
// CLI framework. Collaborators are bound through package-level factory
// variables so tests can inject fakes.
package handlers

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cwagner/k3forge/internal/config"
	"github.com/cwagner/k3forge/internal/graph"
	"github.com/cwagner/k3forge/internal/observe"
	"github.com/cwagner/k3forge/internal/platform/hcloud"
	"github.com/cwagner/k3forge/internal/platform/ssh"
	"github.com/cwagner/k3forge/internal/state"
	"github.com/cwagner/k3forge/internal/util/keygen"
)

const (
	defaultConfigFile = "k3forge.yaml"
	inventoryFile     = "inventory.ini"
)

// Factory function variables - replaced in tests for dependency injection.
var (
	loadConfigFile  = config.LoadFile
	loadCredentials = config.LoadCredentials

	newInfraClient = func(token string) hcloud.InfrastructureManager {
		return hcloud.NewRealClient(token)
	}

	newObserver = func() observe.Observer {
		return observe.NewConsoleObserver()
	}

	newChannel = func(cfg *config.Config, host string) (channel, error) {
		return newSSHChannel(cfg, host)
	}

	newStore = func(ctx context.Context, cfg *config.Config, creds config.Credentials) (state.Store, error) {
		switch cfg.State.Backend {
		case "s3":
			return state.NewS3Store(ctx, state.S3Config{
				Endpoint:  cfg.State.Endpoint,
				Region:    cfg.State.Region,
				Bucket:    cfg.State.Bucket,
				AccessKey: creds.StateAccessKey,
				SecretKey: creds.StateSecretKey,
			})
		default:
			return state.NewFileStore(cfg.State.Dir), nil
		}
	}
)

// channel is the remote-execution surface handlers need from the SSH
// client.
type channel interface {
	Execute(ctx context.Context, command string) (string, error)
	Upload(ctx context.Context, localDir, remoteDir string) error
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		configPath = defaultConfigFile
	}
	return loadConfigFile(configPath)
}

// topologySpec maps the configuration onto the declared topology.
func topologySpec(cfg *config.Config) graph.TopologySpec {
	return graph.TopologySpec{
		ClusterName:       cfg.ClusterName,
		NetworkCIDR:       cfg.Network.CIDR,
		PublicSubnetCIDR:  cfg.Network.PublicSubnet,
		PrivateSubnetCIDR: cfg.Network.PrivateSubnet,
		NetworkZone:       cfg.Network.Zone,
		Location:          cfg.Location,
		Image:             cfg.Image,
		ControlHostType:   cfg.ControlHost.Type,
		ControlPlaneType:  cfg.ControlPlane.Type,
		WorkerType:        cfg.Workers.Type,
		WorkerCount:       cfg.Workers.Count,
		SSHPublicKey:      cfg.SSH.PublicKey,
		SSHSourceCIDR:     cfg.Network.SSHSource,
	}
}

// generatedKeyBits sizes the RSA key pair created when no SSH credential
// exists yet.
const generatedKeyBits = 4096

// ensureSSHKey fills in the SSH public key when the config does not carry
// one. An existing private key file yields its public half; a missing file
// is generated and written next to where the config expects it.
func ensureSSHKey(cfg *config.Config) error {
	if cfg.SSH.PublicKey != "" {
		return nil
	}
	if cfg.SSH.PrivateKeyFile == "" {
		return fmt.Errorf("one of ssh.public_key or ssh.private_key_file is required")
	}

	data, err := os.ReadFile(cfg.SSH.PrivateKeyFile) // #nosec G304
	switch {
	case err == nil:
		pub, deriveErr := keygen.PublicKeyFromPrivate(data)
		if deriveErr != nil {
			return fmt.Errorf("failed to derive public key from %s: %w", cfg.SSH.PrivateKeyFile, deriveErr)
		}
		cfg.SSH.PublicKey = strings.TrimSpace(string(pub))
		return nil
	case os.IsNotExist(err):
		pair, genErr := keygen.GenerateRSAKeyPair(generatedKeyBits)
		if genErr != nil {
			return fmt.Errorf("failed to generate SSH key pair: %w", genErr)
		}
		if writeErr := os.WriteFile(cfg.SSH.PrivateKeyFile, pair.PrivateKey, 0o600); writeErr != nil {
			return fmt.Errorf("failed to write %s: %w", cfg.SSH.PrivateKeyFile, writeErr)
		}
		cfg.SSH.PublicKey = strings.TrimSpace(string(pair.PublicKey))
		return nil
	default:
		return fmt.Errorf("failed to read SSH private key: %w", err)
	}
}

// inventoryPath is where the generated inventory lands inside the payload
// directory, so the bootstrap upload carries it to the control host.
func inventoryPath(cfg *config.Config) string {
	return filepath.Join(cfg.Payload.Dir, inventoryFile)
}

// remoteInventoryPath is the inventory location on the control host.
func remoteInventoryPath(cfg *config.Config) string {
	return path.Join(cfg.Payload.RemoteDir, inventoryFile)
}

// newSSHChannel builds the SSH client for the control host from the
// configured credential.
func newSSHChannel(cfg *config.Config, host string) (channel, error) {
	if cfg.SSH.PrivateKeyFile == "" {
		return nil, fmt.Errorf("ssh.private_key_file is required for remote operations")
	}
	key, err := os.ReadFile(cfg.SSH.PrivateKeyFile) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH private key: %w", err)
	}

	timeouts := config.LoadTimeouts()
	return ssh.NewClient(&ssh.Config{
		Host:        host,
		User:        cfg.SSH.User,
		PrivateKey:  key,
		DialTimeout: timeouts.RemoteDial,
	})
}
