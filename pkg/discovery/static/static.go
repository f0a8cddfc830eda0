package static

import (
    "context"
    "strings"

    "github.com/amirimatin/go-converge/pkg/cluster"
    "github.com/amirimatin/go-converge/pkg/discovery"
)

type staticNodes struct {
    nodes []cluster.Node
}

func (s *staticNodes) Resolve(ctx context.Context) (*cluster.Cluster, error) {
    return cluster.New(s.nodes...)
}

// New returns a Source that always resolves to the given nodes.
func New(nodes ...cluster.Node) discovery.Source {
    return &staticNodes{nodes: append([]cluster.Node(nil), nodes...)}
}

// Parse converts a comma-separated "id=host:port" list into nodes, using the
// same address for search, admin and queue endpoints. Entries without "=" are
// skipped; richer per-endpoint layouts belong in the config file.
func Parse(csv string) []cluster.Node {
    if csv == "" {
        return nil
    }
    parts := strings.Split(csv, ",")
    out := make([]cluster.Node, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        id, addr, ok := strings.Cut(p, "=")
        if !ok || id == "" || addr == "" {
            continue
        }
        out = append(out, cluster.Node{
            ID:        cluster.NodeID(id),
            Endpoints: cluster.Endpoints{Search: addr, Admin: addr, Queue: addr},
        })
    }
    return out
}
