package harness

import (
    "context"
    "fmt"

    "github.com/amirimatin/go-converge/pkg/cluster"
    "github.com/amirimatin/go-converge/pkg/internal/logutil"
    "github.com/amirimatin/go-converge/pkg/solrq"
)

// CreateIndex creates a search index through one node's admin surface. The
// cluster propagates it; pair with WaitForIndex to prove propagation.
func (h *Harness) CreateIndex(ctx context.Context, n cluster.Node, index string) error {
    logutil.Infof(h.logger, "harness: creating index %s via %s", index, n.ID)
    if _, err := h.rpc.Call(ctx, n.Endpoints.Admin, "index", "create", []any{index}); err != nil {
        return fmt.Errorf("harness: create index %s on %s: %w", index, n.ID, err)
    }
    return nil
}

// BlowFuse forces backpressure on for one index on the node's queue worker.
// Used to set up admission-control scenarios deterministically.
func (h *Harness) BlowFuse(ctx context.Context, n cluster.Node, worker solrq.WorkerID, index string) error {
    logutil.Infof(h.logger, "harness: blowing fuse for %s on %s/%s", index, n.ID, worker)
    if _, err := h.rpc.Call(ctx, n.Endpoints.Queue, "solrq", "blow_fuse", []any{string(worker), index}); err != nil {
        return fmt.Errorf("harness: blow fuse %s on %s: %w", index, n.ID, err)
    }
    return nil
}

// ResetFuse releases backpressure for one index on the node's queue worker.
func (h *Harness) ResetFuse(ctx context.Context, n cluster.Node, worker solrq.WorkerID, index string) error {
    logutil.Infof(h.logger, "harness: resetting fuse for %s on %s/%s", index, n.ID, worker)
    if _, err := h.rpc.Call(ctx, n.Endpoints.Queue, "solrq", "reset_fuse", []any{string(worker), index}); err != nil {
        return fmt.Errorf("harness: reset fuse %s on %s: %w", index, n.ID, err)
    }
    return nil
}
