// Package discovery resolves the membership of the cluster under
// verification into a cluster handle. Resolution happens once, before a
// verification call; the resulting membership is fixed for its duration.
package discovery

import (
    "context"

    "github.com/amirimatin/go-converge/pkg/cluster"
)

// Source produces the cluster handle the verifier operates on.
type Source interface {
    Resolve(ctx context.Context) (*cluster.Cluster, error)
}
