// Package verify lifts the single-node poller to cluster scope: a wait
// succeeds only when every targeted node independently satisfies the
// condition within its own attempt budget.
package verify

import (
    "context"
    "log"
    "sync"

    "github.com/amirimatin/go-converge/pkg/cluster"
    "github.com/amirimatin/go-converge/pkg/condition"
    "github.com/amirimatin/go-converge/pkg/internal/logutil"
    obsmetrics "github.com/amirimatin/go-converge/pkg/observability/metrics"
    "github.com/amirimatin/go-converge/pkg/observability/tracing"
    "github.com/amirimatin/go-converge/pkg/poll"
)

// Verifier drives per-node polling loops over a target set and aggregates
// the result all-or-nothing.
type Verifier struct {
    Poller poll.Poller
    Logger *log.Logger
}

// WaitUntil polls cond on every node of the target until all converge.
// Each node gets its own attempt budget and its own goroutine: a slow node
// never delays proving convergence on the others, and no mutable state is
// shared between the loops. When any budget is exhausted the reported error
// names the first failing node in target order.
func (v Verifier) WaitUntil(ctx context.Context, t cluster.Target, cond condition.Condition) error {
    ctx, end := tracing.StartSpan(ctx, "verify.wait")
    defer end()
    nodes := t.Nodes()
    logutil.Infof(v.Logger, "verify: waiting on %d node(s): %s", len(nodes), cond.Describe())
    errs := make([]error, len(nodes))
    var wg sync.WaitGroup
    for i, n := range nodes {
        wg.Add(1)
        go func(i int, n cluster.Node) {
            defer wg.Done()
            errs[i] = v.Poller.Until(ctx, n, cond)
        }(i, n)
    }
    wg.Wait()
    for _, err := range errs {
        if err != nil {
            obsmetrics.WaitsTotal.WithLabelValues("failed").Inc()
            return err
        }
    }
    obsmetrics.WaitsTotal.WithLabelValues("converged").Inc()
    return nil
}
