package cluster

import (
    "fmt"
)

// NodeID uniquely identifies one node of the cluster under verification.
type NodeID string

// Endpoints carries the reachable interfaces of a node: the search query
// endpoint, the administrative RPC endpoint and the queue-status endpoint.
// Addresses are host:port; the transport layer decides on scheme.
type Endpoints struct {
    Search string
    Admin  string
    Queue  string
}

// Node addresses one member of the cluster. Nodes carry no observed state;
// all state is queried live through probes.
type Node struct {
    ID        NodeID
    Endpoints Endpoints
}

// Cluster is an ordered, duplicate-free set of nodes. Membership is fixed for
// the duration of a verification call; joins and leaves are external events
// handled by whoever built the Cluster.
type Cluster struct {
    nodes []Node
}

// New builds a Cluster from the given nodes, rejecting duplicate IDs.
func New(nodes ...Node) (*Cluster, error) {
    seen := make(map[NodeID]struct{}, len(nodes))
    for _, n := range nodes {
        if n.ID == "" {
            return nil, fmt.Errorf("cluster: empty node ID")
        }
        if _, dup := seen[n.ID]; dup {
            return nil, fmt.Errorf("cluster: duplicate node %q", n.ID)
        }
        seen[n.ID] = struct{}{}
    }
    return &Cluster{nodes: append([]Node(nil), nodes...)}, nil
}

// Nodes returns the members in their defined order. The returned slice is a
// copy; callers may not mutate cluster membership through it.
func (c *Cluster) Nodes() []Node {
    return append([]Node(nil), c.nodes...)
}

// Size returns the number of member nodes.
func (c *Cluster) Size() int { return len(c.nodes) }

// ConnectionInfo resolves every member to its reachable endpoints.
func (c *Cluster) ConnectionInfo() map[NodeID]Endpoints {
    out := make(map[NodeID]Endpoints, len(c.nodes))
    for _, n := range c.nodes {
        out[n.ID] = n.Endpoints
    }
    return out
}
