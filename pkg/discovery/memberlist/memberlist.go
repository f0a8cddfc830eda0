// Package memberlist resolves cluster membership by joining the cluster's
// gossip ring as a short-lived, non-voting observer and reading the live
// member view. Members advertise their search/admin/queue endpoints through
// gossip metadata; members without metadata fall back to conventional ports
// on their gossip address.
package memberlist

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "net"
    "os"
    "sort"
    "strconv"
    "time"

    "github.com/hashicorp/memberlist"

    "github.com/amirimatin/go-converge/pkg/cluster"
    "github.com/amirimatin/go-converge/pkg/discovery"
    "github.com/amirimatin/go-converge/pkg/internal/logutil"
)

// Conventional ports used when a member gossips no endpoint metadata.
const (
    defaultSearchPort = 8093
    defaultAdminPort  = 8098
)

// Options configures the observer.
type Options struct {
    // Bind is the observer's bind address in host:port form. ":0" picks a free port.
    Bind string
    // Seeds are gossip addresses of known cluster members.
    Seeds []string
    // SettleWait is how long to let the member view settle after joining.
    // Zero means one second.
    SettleWait time.Duration
    // Logger is optional.
    Logger *log.Logger
}

type source struct {
    opts Options
}

// New constructs a gossip-backed Source.
func New(opts Options) (discovery.Source, error) {
    if len(opts.Seeds) == 0 {
        return nil, fmt.Errorf("memberlist: no seeds")
    }
    if opts.Bind == "" {
        opts.Bind = ":0"
    }
    return &source{opts: opts}, nil
}

// endpointsMeta is the JSON document members gossip in their node meta.
type endpointsMeta struct {
    Search string `json:"search"`
    Admin  string `json:"admin"`
    Queue  string `json:"queue"`
}

func (s *source) Resolve(ctx context.Context) (*cluster.Cluster, error) {
    cfg := memberlist.DefaultLANConfig()
    cfg.Name = observerName()
    host, portStr, err := net.SplitHostPort(s.opts.Bind)
    if err != nil {
        return nil, fmt.Errorf("memberlist: invalid bind address %q: %w", s.opts.Bind, err)
    }
    port, err := strconv.Atoi(portStr)
    if err != nil {
        return nil, fmt.Errorf("memberlist: invalid bind port %q: %w", portStr, err)
    }
    if host != "" {
        cfg.BindAddr = host
    }
    cfg.BindPort = port

    ml, err := memberlist.Create(cfg)
    if err != nil {
        return nil, err
    }
    defer func() {
        _ = ml.Leave(time.Second)
        _ = ml.Shutdown()
    }()

    if _, err := ml.Join(s.opts.Seeds); err != nil {
        return nil, fmt.Errorf("memberlist: join %v: %w", s.opts.Seeds, err)
    }
    settle := s.opts.SettleWait
    if settle <= 0 { settle = time.Second }
    select {
    case <-time.After(settle):
    case <-ctx.Done():
        return nil, ctx.Err()
    }

    local := ml.LocalNode().Name
    nodes := make([]cluster.Node, 0, ml.NumMembers())
    for _, m := range ml.Members() {
        if m.Name == local {
            continue
        }
        nodes = append(nodes, memberNode(m))
    }
    sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
    logutil.Infof(s.opts.Logger, "memberlist: resolved %d member(s) via %v", len(nodes), s.opts.Seeds)
    return cluster.New(nodes...)
}

func memberNode(m *memberlist.Node) cluster.Node {
    var ep endpointsMeta
    if len(m.Meta) > 0 {
        _ = json.Unmarshal(m.Meta, &ep)
    }
    addr := m.Addr.String()
    if ep.Search == "" {
        ep.Search = net.JoinHostPort(addr, strconv.Itoa(defaultSearchPort))
    }
    if ep.Admin == "" {
        ep.Admin = net.JoinHostPort(addr, strconv.Itoa(defaultAdminPort))
    }
    if ep.Queue == "" {
        ep.Queue = ep.Admin
    }
    return cluster.Node{
        ID:        cluster.NodeID(m.Name),
        Endpoints: cluster.Endpoints{Search: ep.Search, Admin: ep.Admin, Queue: ep.Queue},
    }
}

func observerName() string {
    host, err := os.Hostname()
    if err != nil { host = "observer" }
    return fmt.Sprintf("converge-%s-%d", host, os.Getpid())
}
