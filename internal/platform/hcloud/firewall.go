package hcloud

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// EnsureFirewall ensures that a firewall exists. An existing firewall gets
// its rules reconciled to the desired set.
func (c *RealClient) EnsureFirewall(ctx context.Context, name string, rules []hcloud.FirewallRule, labels map[string]string) (*hcloud.Firewall, error) {
	fw, _, err := c.client.Firewall.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get firewall: %w", err)
	}

	if fw != nil {
		actions, _, err := c.client.Firewall.SetRules(ctx, fw, hcloud.FirewallSetRulesOpts{Rules: rules})
		if err != nil {
			return nil, fmt.Errorf("failed to set firewall rules: %w", err)
		}
		if len(actions) > 0 {
			if err := c.client.Action.WaitFor(ctx, actions...); err != nil {
				return nil, fmt.Errorf("failed to wait for firewall rules: %w", err)
			}
		}
		return fw, nil
	}

	res, _, err := c.client.Firewall.Create(ctx, hcloud.FirewallCreateOpts{
		Name:   name,
		Rules:  rules,
		Labels: labels,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create firewall: %w", err)
	}
	if len(res.Actions) > 0 {
		if err := c.client.Action.WaitFor(ctx, res.Actions...); err != nil {
			return nil, fmt.Errorf("failed to wait for firewall creation: %w", err)
		}
	}
	return res.Firewall, nil
}

// GetFirewall returns the firewall with the given name, or nil if absent.
func (c *RealClient) GetFirewall(ctx context.Context, name string) (*hcloud.Firewall, error) {
	fw, _, err := c.client.Firewall.Get(ctx, name)
	return fw, err
}

// DeleteFirewall deletes the firewall with the given name.
func (c *RealClient) DeleteFirewall(ctx context.Context, name string) error {
	return (&DeleteOperation[*hcloud.Firewall]{
		Name:         name,
		ResourceType: "firewall",
		Get:          c.client.Firewall.Get,
		Delete:       c.client.Firewall.Delete,
	}).Execute(ctx, c)
}
