package cli

import (
    "context"
    "fmt"
    "log"
    "os"
    "os/signal"
    "strconv"
    "syscall"
    "time"

    "github.com/spf13/cobra"

    "github.com/amirimatin/go-converge/pkg/bootstrap"
    "github.com/amirimatin/go-converge/pkg/cluster"
    "github.com/amirimatin/go-converge/pkg/config"
    "github.com/amirimatin/go-converge/pkg/harness"
    "github.com/amirimatin/go-converge/pkg/internal/logutil"
    "github.com/amirimatin/go-converge/pkg/observability/tracing"
    "github.com/amirimatin/go-converge/pkg/solrq"
)

// AddAll attaches the verification subcommands to the provided root command.
func AddAll(root *cobra.Command) {
    root.AddCommand(NewWaitPingCmd())
    root.AddCommand(NewWaitIndexCmd())
    root.AddCommand(NewWaitFusesCmd())
    root.AddCommand(NewWaitExchangeCmd())
    root.AddCommand(NewSearchExpectCmd())
    root.AddCommand(NewWriteCmd())
}

// common carries the flags shared by every subcommand.
type common struct {
    configPath  string
    attempts    int
    delay       time.Duration
    traceEnable bool
    jsonLog     bool
}

func (c *common) register(cmd *cobra.Command) {
    cmd.Flags().StringVar(&c.configPath, "config", "converge.yaml", "harness config file")
    cmd.Flags().IntVar(&c.attempts, "attempts", 0, "override poll attempt budget")
    cmd.Flags().DurationVar(&c.delay, "delay", 0, "override poll delay")
    cmd.Flags().BoolVar(&c.traceEnable, "trace", false, "emit otel spans to stdout")
    cmd.Flags().BoolVar(&c.jsonLog, "log-json", false, "emit JSON logs")
}

// setup loads config, applies overrides and builds the harness. The returned
// cleanup must be deferred.
func (c *common) setup(ctx context.Context) (*harness.Harness, func(), error) {
    if c.jsonLog { logutil.SetJSON(true) }
    cleanup := func() {}
    if c.traceEnable {
        shutdown, err := tracing.Setup(true)
        if err != nil {
            log.Printf("tracing setup error: %v", err)
        } else {
            cleanup = func() { _ = shutdown(context.Background()) }
        }
    }
    cfg, err := config.Load(c.configPath)
    if err != nil { return nil, cleanup, err }
    if c.attempts > 0 { cfg.Poll.Attempts = c.attempts }
    if c.delay > 0 { cfg.Poll.Delay = config.Duration(c.delay) }
    h, err := bootstrap.Build(ctx, cfg, log.Default())
    if err != nil { return nil, cleanup, err }
    return h, cleanup, nil
}

func signalContext() (context.Context, context.CancelFunc) {
    return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// nodeByID finds a member by ID, or returns the first node when id is empty.
func nodeByID(h *harness.Harness, id string) (cluster.Node, error) {
    nodes := h.Cluster().Nodes()
    if id == "" {
        return nodes[0], nil
    }
    for _, n := range nodes {
        if n.ID == cluster.NodeID(id) {
            return n, nil
        }
    }
    return cluster.Node{}, fmt.Errorf("unknown node %q", id)
}

// NewWaitPingCmd waits until every node answers ping.
func NewWaitPingCmd() *cobra.Command {
    var c common
    cmd := &cobra.Command{
        Use:   "wait-ping",
        Short: "Wait until every cluster node answers ping",
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx, cancel := signalContext()
            defer cancel()
            h, cleanup, err := c.setup(ctx)
            defer cleanup()
            if err != nil { return err }
            if err := h.WaitForPing(ctx, h.All()); err != nil { return err }
            fmt.Println("converged: all nodes answering ping")
            return nil
        },
    }
    c.register(cmd)
    return cmd
}

// NewWaitIndexCmd waits until an index has propagated to every node.
func NewWaitIndexCmd() *cobra.Command {
    var c common
    var create bool
    cmd := &cobra.Command{
        Use:   "wait-index <index>",
        Short: "Wait until the index is visible on every node",
        Args:  cobra.ExactArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx, cancel := signalContext()
            defer cancel()
            h, cleanup, err := c.setup(ctx)
            defer cleanup()
            if err != nil { return err }
            if create {
                if err := h.CreateIndex(ctx, h.Cluster().Nodes()[0], args[0]); err != nil { return err }
            }
            if err := h.WaitForIndex(ctx, h.All(), args[0]); err != nil { return err }
            fmt.Printf("converged: index %s visible on all nodes\n", args[0])
            return nil
        },
    }
    c.register(cmd)
    cmd.Flags().BoolVar(&create, "create", false, "create the index first")
    return cmd
}

// NewWaitFusesCmd waits for fuse state across the cluster.
func NewWaitFusesCmd() *cobra.Command {
    var c common
    var worker string
    var indexes []string
    cmd := &cobra.Command{
        Use:   "wait-fuses <blown|reset>",
        Short: "Wait until the listed index fuses reach the wanted state on every node",
        Args:  cobra.ExactArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            if args[0] != "blown" && args[0] != "reset" {
                return fmt.Errorf("want blown or reset, got %q", args[0])
            }
            if len(indexes) == 0 { return fmt.Errorf("missing --index") }
            ctx, cancel := signalContext()
            defer cancel()
            h, cleanup, err := c.setup(ctx)
            defer cleanup()
            if err != nil { return err }
            w := solrq.WorkerID(worker)
            if args[0] == "blown" {
                err = h.WaitUntilFusesBlown(ctx, h.All(), w, indexes)
            } else {
                err = h.WaitUntilFusesReset(ctx, h.All(), w, indexes)
            }
            if err != nil { return err }
            fmt.Printf("converged: fuses %s for %v\n", args[0], indexes)
            return nil
        },
    }
    c.register(cmd)
    cmd.Flags().StringVar(&worker, "worker", "default", "queue worker identity")
    cmd.Flags().StringSliceVar(&indexes, "index", nil, "required index (repeatable)")
    return cmd
}

// NewWaitExchangeCmd waits for a full anti-entropy exchange round.
func NewWaitExchangeCmd() *cobra.Command {
    var c common
    var sinceRaw string
    cmd := &cobra.Command{
        Use:   "wait-exchange",
        Short: "Wait for a full anti-entropy exchange round on every node",
        RunE: func(cmd *cobra.Command, args []string) error {
            since := time.Now()
            if sinceRaw != "" {
                t, err := time.Parse(time.RFC3339, sinceRaw)
                if err != nil { return fmt.Errorf("bad --since: %w", err) }
                since = t
            }
            ctx, cancel := signalContext()
            defer cancel()
            h, cleanup, err := c.setup(ctx)
            defer cleanup()
            if err != nil { return err }
            if err := h.WaitForFullExchangeRound(ctx, h.All(), since); err != nil { return err }
            fmt.Printf("converged: full exchange round since %s\n", since.UTC().Format(time.RFC3339))
            return nil
        },
    }
    c.register(cmd)
    cmd.Flags().StringVar(&sinceRaw, "since", "", "RFC3339 reference time (default: now)")
    return cmd
}

// NewSearchExpectCmd asserts an exact search count, optionally after a
// convergence wait.
func NewSearchExpectCmd() *cobra.Command {
    var c common
    var nodeID string
    var wait bool
    cmd := &cobra.Command{
        Use:   "search-expect <index> <field> <term> <count>",
        Short: "Assert the exact hit count for field:term on an index",
        Args:  cobra.ExactArgs(4),
        RunE: func(cmd *cobra.Command, args []string) error {
            expected, err := strconv.ParseInt(args[3], 10, 64)
            if err != nil { return fmt.Errorf("bad count %q: %w", args[3], err) }
            ctx, cancel := signalContext()
            defer cancel()
            h, cleanup, err := c.setup(ctx)
            defer cleanup()
            if err != nil { return err }
            if wait {
                if err := h.WaitForSearchCount(ctx, h.All(), args[0], args[1], args[2], expected); err != nil {
                    return err
                }
            }
            n, err := nodeByID(h, nodeID)
            if err != nil { return err }
            if err := h.SearchExpect(ctx, n, args[0], args[1], args[2], expected); err != nil { return err }
            fmt.Printf("ok: %s %s:%s == %d\n", args[0], args[1], args[2], expected)
            return nil
        },
    }
    c.register(cmd)
    cmd.Flags().StringVar(&nodeID, "node", "", "node to query (default: first)")
    cmd.Flags().BoolVar(&wait, "wait", true, "poll for convergence before asserting")
    return cmd
}

// NewWriteCmd writes a batch of documents and optionally commits.
func NewWriteCmd() *cobra.Command {
    var c common
    var field, term string
    var commit bool
    cmd := &cobra.Command{
        Use:   "write <index> <count>",
        Short: "Write documents randomly across the cluster",
        Args:  cobra.ExactArgs(2),
        RunE: func(cmd *cobra.Command, args []string) error {
            n, err := strconv.Atoi(args[1])
            if err != nil || n < 0 { return fmt.Errorf("bad count %q", args[1]) }
            ctx, cancel := signalContext()
            defer cancel()
            h, cleanup, err := c.setup(ctx)
            defer cleanup()
            if err != nil { return err }
            if err := h.WriteObjects(ctx, args[0], field, term, n); err != nil { return err }
            if commit {
                if err := h.Commit(ctx, h.Cluster().Nodes()[0], args[0]); err != nil { return err }
            }
            fmt.Printf("wrote %d object(s) into %s\n", n, args[0])
            return nil
        },
    }
    c.register(cmd)
    cmd.Flags().StringVar(&field, "field", "body_t", "document field to populate")
    cmd.Flags().StringVar(&term, "term", "converge", "field value to write")
    cmd.Flags().BoolVar(&commit, "commit", true, "commit after writing")
    return cmd
}
