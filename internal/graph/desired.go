package graph

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Logical names of the fixed cluster topology.
const (
	KeyCredentialName = "cluster-key"
	NetworkName       = "cluster-network"
	PublicSubnetName  = "subnet-public"
	PrivateSubnetName = "subnet-private"
	RouteTableName    = "route-table"
	GatewayName       = "nat-gateway"
	RuleSetName       = "cluster-rules"
	ControlHostName   = "control-host"
)

// Host address offsets within their subnets. The control host doubles as the
// NAT gateway, so its address must be stable for the default route.
const (
	controlHostOffset  = 2
	controlPlaneOffset = 10
	workerBaseOffset   = 20
)

// TopologySpec describes the parameters of the desired topology. Cluster
// size and shapes come from configuration, not from hard-coded values.
type TopologySpec struct {
	ClusterName       string
	NetworkCIDR       string
	PublicSubnetCIDR  string
	PrivateSubnetCIDR string
	NetworkZone       string
	Location          string
	Image             string
	ControlHostType   string
	ControlPlaneType  string
	WorkerType        string
	WorkerCount       int
	SSHPublicKey      string
	SSHSourceCIDR     string
}

// ControlPlaneName returns the logical name of the control-plane node.
// The topology has exactly one.
func ControlPlaneName() string {
	return "control-plane-0"
}

// WorkerName returns the logical name of the i-th worker node.
func WorkerName(i int) string {
	return fmt.Sprintf("worker-%d", i)
}

// Desired builds the resource graph for the standard private cluster
// topology: one network with a public and a private subnet, a publicly
// reachable control host acting as NAT gateway, one control-plane node and
// WorkerCount workers on the private subnet.
func Desired(spec TopologySpec) (*Graph, error) {
	if spec.WorkerCount < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", spec.WorkerCount)
	}

	controlHostIP, err := hostAddress(spec.PublicSubnetCIDR, controlHostOffset)
	if err != nil {
		return nil, fmt.Errorf("public subnet: %w", err)
	}
	controlPlaneIP, err := hostAddress(spec.PrivateSubnetCIDR, controlPlaneOffset)
	if err != nil {
		return nil, fmt.Errorf("private subnet: %w", err)
	}

	sshSource := spec.SSHSourceCIDR
	if sshSource == "" {
		sshSource = "0.0.0.0/0"
	}

	g := New()
	nodes := []*Node{
		{
			Kind: KindKeyCredential,
			Name: KeyCredentialName,
			Properties: map[string]string{
				PropPublicKey: spec.SSHPublicKey,
			},
		},
		{
			Kind: KindNetwork,
			Name: NetworkName,
			Properties: map[string]string{
				PropCIDR: spec.NetworkCIDR,
			},
		},
		{
			Kind: KindSubnet,
			Name: PublicSubnetName,
			Properties: map[string]string{
				PropCIDR:       spec.PublicSubnetCIDR,
				PropZone:       spec.NetworkZone,
				PropSubnetRole: "public",
			},
			DependsOn: []string{NetworkName},
		},
		{
			Kind: KindSubnet,
			Name: PrivateSubnetName,
			Properties: map[string]string{
				PropCIDR:       spec.PrivateSubnetCIDR,
				PropZone:       spec.NetworkZone,
				PropSubnetRole: "private",
			},
			DependsOn: []string{NetworkName},
		},
		{
			Kind: KindSecurityRuleSet,
			Name: RuleSetName,
			Properties: map[string]string{
				PropSSHSource: sshSource,
			},
			DependsOn: []string{NetworkName},
		},
		{
			Kind: KindComputeInstance,
			Name: ControlHostName,
			Properties: map[string]string{
				PropServerType: spec.ControlHostType,
				PropImage:      spec.Image,
				PropLocation:   spec.Location,
				PropPrivateIP:  controlHostIP,
				PropPublicIPv4: "true",
			},
			DependsOn: []string{PublicSubnetName, KeyCredentialName, RuleSetName},
		},
		{
			Kind:       KindRouteTable,
			Name:       RouteTableName,
			Properties: map[string]string{},
			DependsOn:  []string{NetworkName},
		},
		{
			Kind: KindGateway,
			Name: GatewayName,
			Properties: map[string]string{
				PropDestination: "0.0.0.0/0",
			},
			DependsOn: []string{RouteTableName, ControlHostName},
		},
		{
			Kind: KindComputeInstance,
			Name: ControlPlaneName(),
			Properties: map[string]string{
				PropServerType: spec.ControlPlaneType,
				PropImage:      spec.Image,
				PropLocation:   spec.Location,
				PropPrivateIP:  controlPlaneIP,
				PropPublicIPv4: "false",
			},
			DependsOn: []string{PrivateSubnetName, KeyCredentialName, RuleSetName},
		},
	}

	for i := range spec.WorkerCount {
		workerIP, err := hostAddress(spec.PrivateSubnetCIDR, workerBaseOffset+i)
		if err != nil {
			return nil, fmt.Errorf("private subnet: %w", err)
		}
		nodes = append(nodes, &Node{
			Kind: KindComputeInstance,
			Name: WorkerName(i),
			Properties: map[string]string{
				PropServerType: spec.WorkerType,
				PropImage:      spec.Image,
				PropLocation:   spec.Location,
				PropPrivateIP:  workerIP,
				PropPublicIPv4: "false",
			},
			DependsOn: []string{PrivateSubnetName, KeyCredentialName, RuleSetName},
		})
	}

	for _, n := range nodes {
		if err := g.Add(n); err != nil {
			return nil, err
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// hostAddress returns the IPv4 address at the given offset within the CIDR.
func hostAddress(cidr string, offset int) (string, error) {
	_, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return "", fmt.Errorf("invalid CIDR %q: %w", cidr, err)
	}
	ip4 := ipNet.IP.To4()
	if ip4 == nil {
		return "", fmt.Errorf("CIDR %q is not IPv4", cidr)
	}
	base := binary.BigEndian.Uint32(ip4)
	addr := make(net.IP, net.IPv4len)
	binary.BigEndian.PutUint32(addr, base+uint32(offset))
	if !ipNet.Contains(addr) {
		return "", fmt.Errorf("address offset %d outside %s", offset, cidr)
	}
	return addr.String(), nil
}
