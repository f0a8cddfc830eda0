// Package harness is the test-writing surface: it bundles the cluster
// handle, transports and the convergence verifier behind one facade, so a
// test drives actions and waits without wiring components itself.
package harness

import (
    "context"
    "errors"
    "log"
    "time"

    "github.com/amirimatin/go-converge/pkg/bench"
    "github.com/amirimatin/go-converge/pkg/cluster"
    "github.com/amirimatin/go-converge/pkg/condition"
    "github.com/amirimatin/go-converge/pkg/internal/logutil"
    obsmetrics "github.com/amirimatin/go-converge/pkg/observability/metrics"
    "github.com/amirimatin/go-converge/pkg/poll"
    "github.com/amirimatin/go-converge/pkg/probe"
    "github.com/amirimatin/go-converge/pkg/search"
    "github.com/amirimatin/go-converge/pkg/solrq"
    "github.com/amirimatin/go-converge/pkg/transport"
    "github.com/amirimatin/go-converge/pkg/verify"
)

// Options carries dependency-injected clients and poll budgets used to
// assemble the harness facade. Instances are typically produced from
// bootstrap.Config.
type Options struct {
    // RPC talks to the admin and queue endpoints (required).
    RPC transport.RPCClient
    // HTTP talks to the search and ingestion endpoints (required).
    HTTP transport.HTTPClient
    // Scheme for search-side URLs: "http" when empty.
    Scheme string
    // Attempts and Delay bound every wait. Zero values fall back to 20×1s.
    Attempts int
    Delay    time.Duration
    // Logger is optional.
    Logger *log.Logger
}

// Harness drives cluster-wide actions and convergence waits.
type Harness struct {
    c        *cluster.Cluster
    rpc      transport.RPCClient
    http     transport.HTTPClient
    verifier verify.Verifier
    queue    solrq.Reader
    exchange verify.ExchangeReader
    searcher search.Searcher
    writer   bench.Writer
    scheme   string
    logger   *log.Logger
}

// New assembles a harness for the given cluster.
func New(c *cluster.Cluster, opts Options) (*Harness, error) {
    if c == nil || c.Size() == 0 {
        return nil, errors.New("harness: empty cluster")
    }
    if opts.RPC == nil {
        return nil, errors.New("harness: nil RPC client")
    }
    if opts.HTTP == nil {
        return nil, errors.New("harness: nil HTTP client")
    }
    if opts.Attempts <= 0 { opts.Attempts = 20 }
    if opts.Delay <= 0 { opts.Delay = time.Second }
    if opts.Scheme == "" { opts.Scheme = "http" }
    obsmetrics.Register()
    return &Harness{
        c:    c,
        rpc:  opts.RPC,
        http: opts.HTTP,
        verifier: verify.Verifier{
            Poller: poll.Poller{Attempts: opts.Attempts, Delay: opts.Delay, Logger: opts.Logger},
            Logger: opts.Logger,
        },
        queue:    solrq.RPCReader{RPC: opts.RPC},
        exchange: verify.RPCExchangeReader{RPC: opts.RPC},
        searcher: search.Searcher{Client: opts.HTTP, Scheme: opts.Scheme, Logger: opts.Logger},
        writer:   bench.Writer{Client: opts.HTTP, Scheme: opts.Scheme, Logger: opts.Logger},
        scheme:   opts.Scheme,
        logger:   opts.Logger,
    }, nil
}

// Cluster returns the cluster handle the harness operates on.
func (h *Harness) Cluster() *cluster.Cluster { return h.c }

// All targets every member of the harness's cluster.
func (h *Harness) All() cluster.Target { return cluster.All(h.c) }

// WaitUntil polls cond on every node of the target until all converge or a
// node exhausts its budget.
func (h *Harness) WaitUntil(ctx context.Context, t cluster.Target, cond condition.Condition) error {
    return h.verifier.WaitUntil(ctx, t, cond)
}

// WaitForPing waits until every targeted node's admin surface answers ping.
func (h *Harness) WaitForPing(ctx context.Context, t cluster.Target) error {
    p := probe.Ping(h.http, h.scheme, "admin ping")
    return h.verifier.WaitUntil(ctx, t, condition.Converged(p))
}

// WaitForIndex waits until the index is known to every targeted node: schema
// and index metadata have propagated.
func (h *Harness) WaitForIndex(ctx context.Context, t cluster.Target, index string) error {
    p := probe.RPC(h.rpc, "index", "info", func(cluster.Node) []any {
        return []any{index}
    }, "index "+index+" present")
    return h.verifier.WaitUntil(ctx, t, condition.Converged(p))
}

// WaitForSearchCount polls the search surface until every targeted node
// returns exactly expected hits for field:term on index.
func (h *Harness) WaitForSearchCount(ctx context.Context, t cluster.Target, index, field, term string, expected int64) error {
    return h.verifier.WaitUntil(ctx, t, search.CountCondition(h.searcher, index, field, term, expected))
}

// WaitForFullExchangeRound waits until every targeted node completed a full
// anti-entropy exchange round after since. Capture since before the actions
// whose propagation the round should prove.
func (h *Harness) WaitForFullExchangeRound(ctx context.Context, t cluster.Target, since time.Time) error {
    return h.verifier.WaitForFullExchangeRound(ctx, t, h.exchange, since)
}

// WaitUntilFusesBlown waits until backpressure is engaged for every listed
// index on the worker, on every targeted node.
func (h *Harness) WaitUntilFusesBlown(ctx context.Context, t cluster.Target, worker solrq.WorkerID, indexes []string) error {
    return h.verifier.WaitUntilFusesBlown(ctx, t, h.queue, worker, indexes)
}

// WaitUntilFusesReset waits until backpressure has released for every listed
// index on the worker, on every targeted node.
func (h *Harness) WaitUntilFusesReset(ctx context.Context, t cluster.Target, worker solrq.WorkerID, indexes []string) error {
    return h.verifier.WaitUntilFusesReset(ctx, t, h.queue, worker, indexes)
}

// SearchExpect asserts the exact hit count immediately, with no retry. Use
// after a convergence wait; a mismatch is a correctness defect, not timing.
func (h *Harness) SearchExpect(ctx context.Context, n cluster.Node, index, field, term string, expected int64) error {
    return h.searcher.Expect(ctx, n.Endpoints.Search, index, field, term, expected)
}

// WriteObjects writes n documents carrying field=term into index, spread
// randomly across the cluster.
func (h *Harness) WriteObjects(ctx context.Context, index, field, term string, n int) error {
    return h.writer.WriteObjects(ctx, h.c, index, field, term, n)
}

// Commit commits the index on the given node.
func (h *Harness) Commit(ctx context.Context, n cluster.Node, index string) error {
    logutil.Infof(h.logger, "harness: committing %s on %s", index, n.ID)
    return h.writer.Commit(ctx, n, index)
}
