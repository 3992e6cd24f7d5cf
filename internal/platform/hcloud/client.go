// Package hcloud provides a wrapper around the Hetzner Cloud API and the
// CloudProvider adapter the provisioning engine reconciles through.
package hcloud

import (
	"context"
	"net"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// ServerCreateOpts holds all parameters for creating a server.
type ServerCreateOpts struct {
	Name             string
	Image            string
	ServerType       string
	Location         string
	SSHKeyIDs        []int64
	FirewallIDs      []int64
	Labels           map[string]string
	NetworkID        int64
	PrivateIP        string
	EnablePublicIPv4 bool
}

// NetworkManager manages networks, subnets and routes.
type NetworkManager interface {
	EnsureNetwork(ctx context.Context, name, ipRange string, labels map[string]string) (*hcloud.Network, error)
	EnsureSubnet(ctx context.Context, network *hcloud.Network, ipRange, networkZone string) error
	EnsureRoute(ctx context.Context, network *hcloud.Network, destination string, gateway net.IP) error
	GetNetwork(ctx context.Context, name string) (*hcloud.Network, error)
	DeleteNetwork(ctx context.Context, name string) error
}

// FirewallManager manages firewalls.
type FirewallManager interface {
	EnsureFirewall(ctx context.Context, name string, rules []hcloud.FirewallRule, labels map[string]string) (*hcloud.Firewall, error)
	GetFirewall(ctx context.Context, name string) (*hcloud.Firewall, error)
	DeleteFirewall(ctx context.Context, name string) error
}

// ServerManager manages compute instances.
type ServerManager interface {
	CreateServer(ctx context.Context, opts ServerCreateOpts) (*hcloud.Server, error)
	GetServerByName(ctx context.Context, name string) (*hcloud.Server, error)
	ChangeServerType(ctx context.Context, server *hcloud.Server, serverType string) error
	DeleteServer(ctx context.Context, name string) error
}

// SSHKeyManager manages SSH key credentials.
type SSHKeyManager interface {
	EnsureSSHKey(ctx context.Context, name, publicKey string, labels map[string]string) (*hcloud.SSHKey, error)
	GetSSHKey(ctx context.Context, name string) (*hcloud.SSHKey, error)
	DeleteSSHKey(ctx context.Context, name string) error
}

// InfrastructureManager combines all infrastructure interfaces.
type InfrastructureManager interface {
	NetworkManager
	FirewallManager
	ServerManager
	SSHKeyManager
}
