package engine

import (
	"github.com/cwagner/k3forge/internal/graph"
)

// immutableFields lists, per resource kind, the declared properties the
// provider cannot change on a live resource. Changing any of these on an
// existing node is a conflict, never a recreate: compute instances and
// networks are stateful.
var immutableFields = map[graph.Kind]map[string]bool{
	graph.KindNetwork: {
		graph.PropCIDR: true,
	},
	graph.KindSubnet: {
		graph.PropCIDR:       true,
		graph.PropZone:       true,
		graph.PropSubnetRole: true,
	},
	graph.KindGateway: {
		graph.PropDestination: true,
	},
	graph.KindComputeInstance: {
		graph.PropImage:      true,
		graph.PropLocation:   true,
		graph.PropPrivateIP:  true,
		graph.PropPublicIPv4: true,
	},
	graph.KindKeyCredential: {
		graph.PropPublicKey: true,
	},
}

// isImmutable reports whether the given property of the given kind cannot be
// changed in place.
func isImmutable(kind graph.Kind, field string) bool {
	return immutableFields[kind][field]
}
