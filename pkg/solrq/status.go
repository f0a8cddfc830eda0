// Package solrq reads the admission-control state of the cluster's indexing
// queue workers. Each worker owns a set of per-index queues; when a queue
// falls behind, its fuse blows and writes for that index are pushed back
// until the fuse resets.
package solrq

import (
    "context"
    "encoding/json"
    "fmt"

    "github.com/amirimatin/go-converge/pkg/cluster"
    obsmetrics "github.com/amirimatin/go-converge/pkg/observability/metrics"
    "github.com/amirimatin/go-converge/pkg/transport"
)

// WorkerID names one queue worker on a node.
type WorkerID string

// IndexStatus is the admission-control snapshot for one index on one worker.
type IndexStatus struct {
    // FuseBlown reports whether backpressure is currently engaged.
    FuseBlown bool `json:"fuse_blown"`
    // Pending is the queue depth awaiting delivery to the search engine.
    Pending int `json:"pending"`
    // Drains counts completed queue drains since worker start.
    Drains uint64 `json:"drains"`
    // Retries counts delivery retries since worker start.
    Retries uint64 `json:"retries"`
}

// Reader fetches the full index→status mapping for one worker on one node.
// Implementations perform exactly one query with no side effect on the
// observed subsystem; retrying happens one layer up, in the poller.
type Reader interface {
    Read(ctx context.Context, n cluster.Node, w WorkerID) (map[string]IndexStatus, error)
}

// RPCReader reads queue status through the node's admin RPC surface.
type RPCReader struct {
    RPC transport.RPCClient
}

// Read invokes solrq:status(worker) and decodes the per-index snapshot.
func (r RPCReader) Read(ctx context.Context, n cluster.Node, w WorkerID) (map[string]IndexStatus, error) {
    res, err := r.RPC.Call(ctx, n.Endpoints.Queue, "solrq", "status", []any{string(w)})
    if err != nil { return nil, err }
    out := make(map[string]IndexStatus)
    if err := json.Unmarshal(res, &out); err != nil {
        return nil, fmt.Errorf("solrq: status decode for worker %s on %s: %w", w, n.ID, err)
    }
    for index, st := range out {
        g := obsmetrics.FusesBlownObserved.WithLabelValues(index)
        if st.FuseBlown { g.Set(1) } else { g.Set(0) }
    }
    return out, nil
}

var _ Reader = RPCReader{}
