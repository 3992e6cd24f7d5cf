package hcloud

import (
	"context"
	"fmt"
	"net"

	"github.com/cwagner/k3forge/internal/util/retry"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// CreateServer creates a new server and, when a private IP is requested,
// attaches it to the network at that address before powering it on.
func (c *RealClient) CreateServer(ctx context.Context, opts ServerCreateOpts) (*hcloud.Server, error) {
	if (opts.NetworkID != 0) != (opts.PrivateIP != "") {
		return nil, fmt.Errorf("network id and private ip must both be provided or both be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.ServerCreate)
	defer cancel()

	createOpts, err := c.buildServerCreateOpts(ctx, opts)
	if err != nil {
		return nil, err
	}

	result, err := c.createServerWithRetry(ctx, createOpts)
	if err != nil {
		return nil, err
	}

	if opts.NetworkID != 0 {
		if err := c.attachServerToNetwork(ctx, result.Server, opts.NetworkID, opts.PrivateIP); err != nil {
			return nil, err
		}
	}

	// Reread so private/public addresses are populated.
	server, _, err := c.client.Server.GetByID(ctx, result.Server.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reread server: %w", err)
	}
	return server, nil
}

func (c *RealClient) buildServerCreateOpts(ctx context.Context, opts ServerCreateOpts) (hcloud.ServerCreateOpts, error) {
	serverType, _, err := c.client.ServerType.Get(ctx, opts.ServerType)
	if err != nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to get server type: %w", err)
	}
	if serverType == nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("server type not found: %s", opts.ServerType)
	}

	image, _, err := c.client.Image.GetForArchitecture(ctx, opts.Image, serverType.Architecture)
	if err != nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to get image: %w", err)
	}
	if image == nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("image not found: %s", opts.Image)
	}

	location, _, err := c.client.Location.Get(ctx, opts.Location)
	if err != nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to get location: %w", err)
	}

	sshKeys := make([]*hcloud.SSHKey, 0, len(opts.SSHKeyIDs))
	for _, id := range opts.SSHKeyIDs {
		sshKeys = append(sshKeys, &hcloud.SSHKey{ID: id})
	}
	firewalls := make([]*hcloud.ServerCreateFirewall, 0, len(opts.FirewallIDs))
	for _, id := range opts.FirewallIDs {
		firewalls = append(firewalls, &hcloud.ServerCreateFirewall{
			Firewall: hcloud.Firewall{ID: id},
		})
	}

	// Servers joining the network after creation start powered off so the
	// private interface is up before first boot.
	var startAfterCreate *bool
	if opts.NetworkID != 0 {
		startAfterCreate = hcloud.Ptr(false)
	}

	return hcloud.ServerCreateOpts{
		Name:       opts.Name,
		ServerType: serverType,
		Image:      image,
		Location:   location,
		SSHKeys:    sshKeys,
		Firewalls:  firewalls,
		Labels:     opts.Labels,
		PublicNet: &hcloud.ServerCreatePublicNet{
			EnableIPv4: opts.EnablePublicIPv4,
			EnableIPv6: opts.EnablePublicIPv4,
		},
		StartAfterCreate: startAfterCreate,
	}, nil
}

func (c *RealClient) createServerWithRetry(ctx context.Context, opts hcloud.ServerCreateOpts) (hcloud.ServerCreateResult, error) {
	var result hcloud.ServerCreateResult

	err := retry.WithExponentialBackoff(ctx, func() error {
		res, _, err := c.client.Server.Create(ctx, opts)
		if err != nil {
			if isInvalidParameter(err) {
				return retry.Fatal(err)
			}
			return err
		}
		result = res
		return nil
	}, retry.WithMaxRetries(c.timeouts.RetryMaxAttempts), retry.WithInitialDelay(c.timeouts.RetryInitialDelay))

	if err != nil {
		return result, fmt.Errorf("failed to create server: %w", err)
	}

	if err := c.client.Action.WaitFor(ctx, result.Action); err != nil {
		return result, fmt.Errorf("failed to wait for server creation: %w", err)
	}
	return result, nil
}

func (c *RealClient) attachServerToNetwork(ctx context.Context, server *hcloud.Server, networkID int64, privateIP string) error {
	attachOpts := hcloud.ServerAttachToNetworkOpts{
		Network: &hcloud.Network{ID: networkID},
	}
	ip := net.ParseIP(privateIP)
	if ip == nil {
		return fmt.Errorf("invalid private ip: %s", privateIP)
	}
	attachOpts.IP = ip

	// The network may not accept attachments immediately after creation.
	err := retry.WithExponentialBackoff(ctx, func() error {
		action, _, err := c.client.Server.AttachToNetwork(ctx, server, attachOpts)
		if err != nil {
			return err
		}
		return c.client.Action.WaitFor(ctx, action)
	}, retry.WithMaxRetries(c.timeouts.RetryMaxAttempts), retry.WithInitialDelay(c.timeouts.RetryInitialDelay))
	if err != nil {
		return fmt.Errorf("failed to attach server to network: %w", err)
	}

	action, _, err := c.client.Server.Poweron(ctx, server)
	if err != nil {
		return fmt.Errorf("failed to power on server: %w", err)
	}
	if err := c.client.Action.WaitFor(ctx, action); err != nil {
		return fmt.Errorf("failed to wait for server power on: %w", err)
	}
	return nil
}

// GetServerByName returns the server with the given name, or nil if absent.
func (c *RealClient) GetServerByName(ctx context.Context, name string) (*hcloud.Server, error) {
	server, _, err := c.client.Server.Get(ctx, name)
	return server, err
}

// ChangeServerType resizes a server in place, keeping its disk. The server
// is powered off for the change and powered back on afterwards.
func (c *RealClient) ChangeServerType(ctx context.Context, server *hcloud.Server, serverType string) error {
	st, _, err := c.client.ServerType.Get(ctx, serverType)
	if err != nil {
		return fmt.Errorf("failed to get server type: %w", err)
	}
	if st == nil {
		return fmt.Errorf("server type not found: %s", serverType)
	}

	action, _, err := c.client.Server.Poweroff(ctx, server)
	if err != nil {
		return fmt.Errorf("failed to power off server: %w", err)
	}
	if err := c.client.Action.WaitFor(ctx, action); err != nil {
		return fmt.Errorf("failed to wait for power off: %w", err)
	}

	action, _, err = c.client.Server.ChangeType(ctx, server, hcloud.ServerChangeTypeOpts{
		ServerType:  st,
		UpgradeDisk: false,
	})
	if err != nil {
		return fmt.Errorf("failed to change server type: %w", err)
	}
	if err := c.client.Action.WaitFor(ctx, action); err != nil {
		return fmt.Errorf("failed to wait for type change: %w", err)
	}

	action, _, err = c.client.Server.Poweron(ctx, server)
	if err != nil {
		return fmt.Errorf("failed to power on server: %w", err)
	}
	if err := c.client.Action.WaitFor(ctx, action); err != nil {
		return fmt.Errorf("failed to wait for power on: %w", err)
	}
	return nil
}

// DeleteServer deletes the server with the given name.
func (c *RealClient) DeleteServer(ctx context.Context, name string) error {
	return (&DeleteOperation[*hcloud.Server]{
		Name:         name,
		ResourceType: "server",
		Get:          c.client.Server.Get,
		Delete: func(ctx context.Context, server *hcloud.Server) (*hcloud.Response, error) {
			_, resp, err := c.client.Server.DeleteWithResult(ctx, server)
			return resp, err
		},
	}).Execute(ctx, c)
}

// ServerIPv4 extracts the public IPv4 address from a server, or empty
// string if not set.
func ServerIPv4(s *hcloud.Server) string {
	if s != nil && s.PublicNet.IPv4.IP != nil {
		return s.PublicNet.IPv4.IP.String()
	}
	return ""
}

// ServerPrivateIP extracts the first private network address from a server,
// or empty string if the server is not attached to a network.
func ServerPrivateIP(s *hcloud.Server) string {
	if s != nil && len(s.PrivateNet) > 0 && s.PrivateNet[0].IP != nil {
		return s.PrivateNet[0].IP.String()
	}
	return ""
}
