package hcloud

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/cwagner/k3forge/internal/engine"
	"github.com/cwagner/k3forge/internal/graph"
	"github.com/cwagner/k3forge/internal/state"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// Provider adapts the Hetzner Cloud API to the provisioning engine's
// CloudProvider contract. It targets the fixed cluster topology: lookups
// that need the enclosing network resolve it through the stack's network
// name rather than through an arbitrary reference chain.
type Provider struct {
	infra InfrastructureManager
	stack string
}

// NewProvider creates a CloudProvider backed by the given infrastructure
// manager for one stack.
func NewProvider(infra InfrastructureManager, stack string) *Provider {
	return &Provider{infra: infra, stack: stack}
}

var _ engine.CloudProvider = (*Provider)(nil)

// ResourceName maps a logical node name to the provider-visible name for
// one stack.
func ResourceName(stack, logical string) string {
	return stack + "-" + logical
}

func (p *Provider) resourceName(logical string) string {
	return ResourceName(p.stack, logical)
}

func (p *Provider) labels() map[string]string {
	return map[string]string{
		"cluster":    p.stack,
		"managed-by": "k3forge",
	}
}

// Create implements engine.CloudProvider.
func (p *Provider) Create(ctx context.Context, node *graph.Node, deps map[string]state.Record) (engine.Observed, error) {
	switch node.Kind {
	case graph.KindKeyCredential:
		return p.createSSHKey(ctx, node)
	case graph.KindNetwork:
		return p.createNetwork(ctx, node)
	case graph.KindSubnet:
		return p.createSubnet(ctx, node)
	case graph.KindRouteTable:
		return p.createRouteTable(ctx)
	case graph.KindGateway:
		return p.createGateway(ctx, node, deps)
	case graph.KindSecurityRuleSet:
		return p.createRuleSet(ctx, node, deps)
	case graph.KindComputeInstance:
		return p.createServer(ctx, node, deps)
	default:
		return engine.Observed{}, fmt.Errorf("unsupported resource kind %q", node.Kind)
	}
}

// Read implements engine.CloudProvider. The current record supplies the
// attributes needed to locate sub-resources (subnet CIDRs, route
// destinations) that have no provider-side name of their own.
func (p *Provider) Read(ctx context.Context, name string, current state.Record) (engine.Observed, bool, error) {
	switch graph.Kind(current.Kind) {
	case graph.KindKeyCredential:
		key, err := p.infra.GetSSHKey(ctx, p.resourceName(name))
		if err != nil || key == nil {
			return engine.Observed{}, false, err
		}
		return engine.Observed{
			ID:    strconv.FormatInt(key.ID, 10),
			Attrs: map[string]string{graph.PropPublicKey: key.PublicKey},
		}, true, nil

	case graph.KindNetwork:
		network, err := p.infra.GetNetwork(ctx, p.resourceName(name))
		if err != nil || network == nil {
			return engine.Observed{}, false, err
		}
		return engine.Observed{
			ID:    strconv.FormatInt(network.ID, 10),
			Attrs: map[string]string{graph.PropCIDR: network.IPRange.String()},
		}, true, nil

	case graph.KindSubnet:
		return p.readSubnet(ctx, current)

	case graph.KindRouteTable:
		network, err := p.clusterNetwork(ctx)
		if err != nil {
			return engine.Observed{}, false, err
		}
		if network == nil {
			return engine.Observed{}, false, nil
		}
		return engine.Observed{ID: current.ID, Attrs: map[string]string{}}, true, nil

	case graph.KindGateway:
		return p.readGateway(ctx, current)

	case graph.KindSecurityRuleSet:
		fw, err := p.infra.GetFirewall(ctx, p.resourceName(graph.RuleSetName))
		if err != nil || fw == nil {
			return engine.Observed{}, false, err
		}
		return engine.Observed{
			ID:    strconv.FormatInt(fw.ID, 10),
			Attrs: map[string]string{graph.PropSSHSource: sshSourceFromRules(fw.Rules, current.Attrs[graph.PropSSHSource])},
		}, true, nil

	case graph.KindComputeInstance:
		server, err := p.infra.GetServerByName(ctx, p.resourceName(name))
		if err != nil || server == nil {
			return engine.Observed{}, false, err
		}
		return serverObserved(server, current), true, nil

	default:
		return engine.Observed{}, false, fmt.Errorf("unsupported resource kind %q", current.Kind)
	}
}

// Update implements engine.CloudProvider. Only mutable fields reach this
// path; everything else fails the plan with a conflict first.
func (p *Provider) Update(ctx context.Context, node *graph.Node, current state.Record, deps map[string]state.Record) (engine.Observed, error) {
	switch node.Kind {
	case graph.KindSecurityRuleSet:
		return p.createRuleSet(ctx, node, deps) // ensure reconciles rules in place
	case graph.KindComputeInstance:
		server, err := p.infra.GetServerByName(ctx, p.resourceName(node.Name))
		if err != nil {
			return engine.Observed{}, err
		}
		if server == nil {
			return engine.Observed{}, fmt.Errorf("server %s not found", node.Name)
		}
		if err := p.infra.ChangeServerType(ctx, server, node.Properties[graph.PropServerType]); err != nil {
			return engine.Observed{}, err
		}
		server, err = p.infra.GetServerByName(ctx, p.resourceName(node.Name))
		if err != nil {
			return engine.Observed{}, err
		}
		return serverObserved(server, current), nil
	default:
		return engine.Observed{}, fmt.Errorf("resource kind %q does not support in-place updates", node.Kind)
	}
}

func (p *Provider) createSSHKey(ctx context.Context, node *graph.Node) (engine.Observed, error) {
	key, err := p.infra.EnsureSSHKey(ctx, p.resourceName(node.Name), node.Properties[graph.PropPublicKey], p.labels())
	if err != nil {
		return engine.Observed{}, err
	}
	return engine.Observed{
		ID:    strconv.FormatInt(key.ID, 10),
		Attrs: map[string]string{graph.PropPublicKey: node.Properties[graph.PropPublicKey]},
	}, nil
}

func (p *Provider) createNetwork(ctx context.Context, node *graph.Node) (engine.Observed, error) {
	network, err := p.infra.EnsureNetwork(ctx, p.resourceName(node.Name), node.Properties[graph.PropCIDR], p.labels())
	if err != nil {
		return engine.Observed{}, err
	}
	return engine.Observed{
		ID:    strconv.FormatInt(network.ID, 10),
		Attrs: map[string]string{graph.PropCIDR: network.IPRange.String()},
	}, nil
}

func (p *Provider) createSubnet(ctx context.Context, node *graph.Node) (engine.Observed, error) {
	network, err := p.clusterNetwork(ctx)
	if err != nil {
		return engine.Observed{}, err
	}
	if network == nil {
		return engine.Observed{}, fmt.Errorf("network %s not found", graph.NetworkName)
	}
	cidr := node.Properties[graph.PropCIDR]
	if err := p.infra.EnsureSubnet(ctx, network, cidr, node.Properties[graph.PropZone]); err != nil {
		return engine.Observed{}, err
	}
	return engine.Observed{
		ID: fmt.Sprintf("%d/%s", network.ID, cidr),
		Attrs: map[string]string{
			graph.PropCIDR:       cidr,
			graph.PropZone:       node.Properties[graph.PropZone],
			graph.PropSubnetRole: node.Properties[graph.PropSubnetRole],
		},
	}, nil
}

func (p *Provider) createRouteTable(ctx context.Context) (engine.Observed, error) {
	// Routes attach directly to the network; the route table reconciles to
	// a marker tied to the network's lifetime.
	network, err := p.clusterNetwork(ctx)
	if err != nil {
		return engine.Observed{}, err
	}
	if network == nil {
		return engine.Observed{}, fmt.Errorf("network %s not found", graph.NetworkName)
	}
	return engine.Observed{
		ID:    fmt.Sprintf("rt-%d", network.ID),
		Attrs: map[string]string{},
	}, nil
}

func (p *Provider) createGateway(ctx context.Context, node *graph.Node, deps map[string]state.Record) (engine.Observed, error) {
	gatewayHost, ok := depOfKind(deps, graph.KindComputeInstance)
	if !ok {
		return engine.Observed{}, fmt.Errorf("gateway %s has no compute-instance dependency", node.Name)
	}
	gatewayIP := net.ParseIP(gatewayHost.Attrs[graph.PropPrivateIP])
	if gatewayIP == nil {
		return engine.Observed{}, fmt.Errorf("gateway host has no private address")
	}

	network, err := p.clusterNetwork(ctx)
	if err != nil {
		return engine.Observed{}, err
	}
	if network == nil {
		return engine.Observed{}, fmt.Errorf("network %s not found", graph.NetworkName)
	}

	destination := node.Properties[graph.PropDestination]
	if err := p.infra.EnsureRoute(ctx, network, destination, gatewayIP); err != nil {
		return engine.Observed{}, err
	}
	return engine.Observed{
		ID: fmt.Sprintf("route-%d-%s", network.ID, destination),
		Attrs: map[string]string{
			graph.PropDestination: destination,
			graph.AttrGatewayIP:   gatewayIP.String(),
		},
	}, nil
}

func (p *Provider) createRuleSet(ctx context.Context, node *graph.Node, deps map[string]state.Record) (engine.Observed, error) {
	networkRec, ok := depOfKind(deps, graph.KindNetwork)
	if !ok {
		return engine.Observed{}, fmt.Errorf("rule set %s has no network dependency", node.Name)
	}

	sshSource := node.Properties[graph.PropSSHSource]
	rules, err := buildFirewallRules(sshSource, networkRec.Attrs[graph.PropCIDR])
	if err != nil {
		return engine.Observed{}, err
	}

	fw, err := p.infra.EnsureFirewall(ctx, p.resourceName(node.Name), rules, p.labels())
	if err != nil {
		return engine.Observed{}, err
	}
	return engine.Observed{
		ID:    strconv.FormatInt(fw.ID, 10),
		Attrs: map[string]string{graph.PropSSHSource: sshSource},
	}, nil
}

func (p *Provider) createServer(ctx context.Context, node *graph.Node, deps map[string]state.Record) (engine.Observed, error) {
	network, err := p.clusterNetwork(ctx)
	if err != nil {
		return engine.Observed{}, err
	}
	if network == nil {
		return engine.Observed{}, fmt.Errorf("network %s not found", graph.NetworkName)
	}

	var sshKeyIDs, firewallIDs []int64
	for _, rec := range deps {
		id, err := strconv.ParseInt(rec.ID, 10, 64)
		if err != nil {
			continue
		}
		switch graph.Kind(rec.Kind) {
		case graph.KindKeyCredential:
			sshKeyIDs = append(sshKeyIDs, id)
		case graph.KindSecurityRuleSet:
			firewallIDs = append(firewallIDs, id)
		}
	}

	server, err := p.infra.CreateServer(ctx, ServerCreateOpts{
		Name:             p.resourceName(node.Name),
		Image:            node.Properties[graph.PropImage],
		ServerType:       node.Properties[graph.PropServerType],
		Location:         node.Properties[graph.PropLocation],
		SSHKeyIDs:        sshKeyIDs,
		FirewallIDs:      firewallIDs,
		Labels:           p.labels(),
		NetworkID:        network.ID,
		PrivateIP:        node.Properties[graph.PropPrivateIP],
		EnablePublicIPv4: node.Properties[graph.PropPublicIPv4] == "true",
	})
	if err != nil {
		return engine.Observed{}, err
	}
	return serverObservedFromDesired(server, node.Properties), nil
}

func (p *Provider) readSubnet(ctx context.Context, current state.Record) (engine.Observed, bool, error) {
	network, err := p.clusterNetwork(ctx)
	if err != nil {
		return engine.Observed{}, false, err
	}
	if network == nil {
		return engine.Observed{}, false, nil
	}
	cidr := current.Attrs[graph.PropCIDR]
	for _, subnet := range network.Subnets {
		if subnet.IPRange.String() == cidr {
			return engine.Observed{
				ID: fmt.Sprintf("%d/%s", network.ID, cidr),
				Attrs: map[string]string{
					graph.PropCIDR:       cidr,
					graph.PropZone:       string(subnet.NetworkZone),
					graph.PropSubnetRole: current.Attrs[graph.PropSubnetRole],
				},
			}, true, nil
		}
	}
	return engine.Observed{}, false, nil
}

func (p *Provider) readGateway(ctx context.Context, current state.Record) (engine.Observed, bool, error) {
	network, err := p.clusterNetwork(ctx)
	if err != nil {
		return engine.Observed{}, false, err
	}
	if network == nil {
		return engine.Observed{}, false, nil
	}
	destination := current.Attrs[graph.PropDestination]
	for _, route := range network.Routes {
		if route.Destination.String() == destination {
			return engine.Observed{
				ID: fmt.Sprintf("route-%d-%s", network.ID, destination),
				Attrs: map[string]string{
					graph.PropDestination: destination,
					graph.AttrGatewayIP:   route.Gateway.String(),
				},
			}, true, nil
		}
	}
	return engine.Observed{}, false, nil
}

func (p *Provider) clusterNetwork(ctx context.Context) (*hcloud.Network, error) {
	return p.infra.GetNetwork(ctx, p.resourceName(graph.NetworkName))
}

func depOfKind(deps map[string]state.Record, kind graph.Kind) (state.Record, bool) {
	for _, rec := range deps {
		if graph.Kind(rec.Kind) == kind {
			return rec, true
		}
	}
	return state.Record{}, false
}

// buildFirewallRules allows SSH from the operator source plus all traffic
// inside the cluster network. Hetzner firewalls default-deny inbound.
func buildFirewallRules(sshSource, networkCIDR string) ([]hcloud.FirewallRule, error) {
	_, sshNet, err := net.ParseCIDR(sshSource)
	if err != nil {
		return nil, fmt.Errorf("invalid ssh source %q: %w", sshSource, err)
	}
	_, clusterNet, err := net.ParseCIDR(networkCIDR)
	if err != nil {
		return nil, fmt.Errorf("invalid network CIDR %q: %w", networkCIDR, err)
	}

	return []hcloud.FirewallRule{
		{
			Direction: hcloud.FirewallRuleDirectionIn,
			Protocol:  hcloud.FirewallRuleProtocolTCP,
			SourceIPs: []net.IPNet{*sshNet},
			Port:      hcloud.Ptr("22"),
		},
		{
			Direction: hcloud.FirewallRuleDirectionIn,
			Protocol:  hcloud.FirewallRuleProtocolTCP,
			SourceIPs: []net.IPNet{*clusterNet},
			Port:      hcloud.Ptr("any"),
		},
		{
			Direction: hcloud.FirewallRuleDirectionIn,
			Protocol:  hcloud.FirewallRuleProtocolUDP,
			SourceIPs: []net.IPNet{*clusterNet},
			Port:      hcloud.Ptr("any"),
		},
	}, nil
}

// sshSourceFromRules recovers the declared SSH source from live firewall
// rules, falling back to the recorded value when the rule set was changed
// out of band.
func sshSourceFromRules(rules []hcloud.FirewallRule, recorded string) string {
	for _, rule := range rules {
		if rule.Port != nil && *rule.Port == "22" && len(rule.SourceIPs) > 0 {
			return rule.SourceIPs[0].String()
		}
	}
	return recorded
}

func serverObserved(server *hcloud.Server, current state.Record) engine.Observed {
	attrs := map[string]string{
		graph.PropServerType: server.ServerType.Name,
		graph.PropLocation:   server.Datacenter.Location.Name,
		graph.PropPrivateIP:  ServerPrivateIP(server),
		graph.AttrPublicIP:   ServerIPv4(server),
	}
	if ServerIPv4(server) != "" {
		attrs[graph.PropPublicIPv4] = "true"
	} else {
		attrs[graph.PropPublicIPv4] = "false"
	}
	// The source image is not always resolvable on a running server; keep
	// the recorded value rather than reporting spurious drift.
	if server.Image != nil && server.Image.Name != "" {
		attrs[graph.PropImage] = server.Image.Name
	} else {
		attrs[graph.PropImage] = current.Attrs[graph.PropImage]
	}
	return engine.Observed{ID: strconv.FormatInt(server.ID, 10), Attrs: attrs}
}

func serverObservedFromDesired(server *hcloud.Server, desired map[string]string) engine.Observed {
	attrs := map[string]string{
		graph.PropServerType: desired[graph.PropServerType],
		graph.PropImage:      desired[graph.PropImage],
		graph.PropLocation:   desired[graph.PropLocation],
		graph.PropPrivateIP:  desired[graph.PropPrivateIP],
		graph.PropPublicIPv4: desired[graph.PropPublicIPv4],
		graph.AttrPublicIP:   ServerIPv4(server),
	}
	return engine.Observed{ID: strconv.FormatInt(server.ID, 10), Attrs: attrs}
}
