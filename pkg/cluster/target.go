package cluster

// Target is the explicit node-or-cluster variant accepted by verification
// entry points. It is resolved to a node list exactly once, at the call
// boundary; cluster-wide operations are a plain fan-out over the single-node
// operation.
type Target struct {
    nodes []Node
}

// One targets a single node.
func One(n Node) Target {
    return Target{nodes: []Node{n}}
}

// All targets every member of the cluster, in cluster order.
func All(c *Cluster) Target {
    return Target{nodes: c.Nodes()}
}

// Of targets an explicit subset, preserving the given order.
func Of(nodes ...Node) Target {
    return Target{nodes: append([]Node(nil), nodes...)}
}

// Nodes returns the resolved node list.
func (t Target) Nodes() []Node { return t.nodes }
