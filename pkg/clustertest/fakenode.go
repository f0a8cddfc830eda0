// Package clustertest provides an in-process fake search cluster for harness
// tests: real HTTP servers speaking the admin, queue, ingestion and search
// surfaces, with knobs for softcommit delay, fuse state, exchange records and
// fault injection.
package clustertest

import (
    "encoding/json"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "sync"
    "time"

    "github.com/amirimatin/go-converge/pkg/cluster"
    "github.com/amirimatin/go-converge/pkg/solrq"
    "github.com/amirimatin/go-converge/pkg/transport"
    "github.com/amirimatin/go-converge/pkg/verify"
)

// dataStore holds the indexed documents. Nodes of one fake cluster share a
// store, modeling a cluster whose replication is instant while search
// visibility still waits for commit plus softcommit.
type dataStore struct {
    mu         sync.Mutex
    pending    map[string]int64 // written, not yet committed
    committed  map[string]int64 // committed, waiting out softcommit
    visible    map[string]int64 // answering searches
    commitAt   map[string]time.Time
    softcommit time.Duration
}

func newDataStore() *dataStore {
    return &dataStore{
        pending:   make(map[string]int64),
        committed: make(map[string]int64),
        visible:   make(map[string]int64),
        commitAt:  make(map[string]time.Time),
    }
}

func (d *dataStore) write(index string) {
    d.mu.Lock()
    d.pending[index]++
    d.mu.Unlock()
}

func (d *dataStore) commit(index string) {
    d.mu.Lock()
    d.committed[index] += d.pending[index]
    d.pending[index] = 0
    d.commitAt[index] = time.Now()
    d.mu.Unlock()
}

func (d *dataStore) count(index string) int64 {
    d.mu.Lock()
    defer d.mu.Unlock()
    if at, ok := d.commitAt[index]; ok && time.Since(at) >= d.softcommit {
        d.visible[index] += d.committed[index]
        d.committed[index] = 0
        delete(d.commitAt, index)
    }
    return d.visible[index]
}

// FakeNode simulates one cluster member. Handlers are safe for the
// verifier's concurrent per-node pollers.
type FakeNode struct {
    mu  sync.Mutex
    id  cluster.NodeID
    srv *httptest.Server
    data *dataStore

    indexes   map[string]struct{}
    fuses     map[solrq.WorkerID]map[string]solrq.IndexStatus
    exchanges []verify.ExchangeRecord

    faulty bool // engine fault: searches return zero forever
    down   bool // transport fault: every request 502s
}

// NewFakeNode starts a standalone node with its own data store. Close it
// when done.
func NewFakeNode(id string) *FakeNode {
    return newFakeNode(id, newDataStore())
}

func newFakeNode(id string, data *dataStore) *FakeNode {
    n := &FakeNode{
        id:      cluster.NodeID(id),
        data:    data,
        indexes: make(map[string]struct{}),
        fuses:   make(map[solrq.WorkerID]map[string]solrq.IndexStatus),
    }
    mux := http.NewServeMux()
    mux.HandleFunc("/ping", n.handlePing)
    mux.HandleFunc("/status", n.handleStatus)
    mux.HandleFunc("/rpc", n.handleRPC)
    mux.HandleFunc("/index/", n.handleIndex)
    mux.HandleFunc("/solr/", n.handleSearch)
    n.srv = httptest.NewServer(mux)
    return n
}

// FakeCluster is a set of fake nodes over one shared data store.
type FakeCluster struct {
    Nodes []*FakeNode
    data  *dataStore
}

// NewFakeCluster starts size nodes named n1..n{size}.
func NewFakeCluster(size int) *FakeCluster {
    data := newDataStore()
    fc := &FakeCluster{data: data}
    for i := 1; i <= size; i++ {
        fc.Nodes = append(fc.Nodes, newFakeNode(fmt.Sprintf("n%d", i), data))
    }
    return fc
}

// Close shuts every node down.
func (fc *FakeCluster) Close() {
    for _, n := range fc.Nodes { n.Close() }
}

// Cluster builds the cluster handle for the fake members.
func (fc *FakeCluster) Cluster() (*cluster.Cluster, error) {
    nodes := make([]cluster.Node, 0, len(fc.Nodes))
    for _, n := range fc.Nodes { nodes = append(nodes, n.Node()) }
    return cluster.New(nodes...)
}

// SetSoftcommit sets the delay between a commit and search visibility.
func (fc *FakeCluster) SetSoftcommit(d time.Duration) {
    fc.data.mu.Lock()
    fc.data.softcommit = d
    fc.data.mu.Unlock()
}

// Close shuts the node's server down.
func (n *FakeNode) Close() { n.srv.Close() }

// Addr returns the host:port the node listens on.
func (n *FakeNode) Addr() string { return n.srv.Listener.Addr().String() }

// Node returns the cluster handle entry for this fake, with every endpoint
// pointing at the one server.
func (n *FakeNode) Node() cluster.Node {
    addr := n.Addr()
    return cluster.Node{ID: n.id, Endpoints: cluster.Endpoints{Search: addr, Admin: addr, Queue: addr}}
}

// SetFaulty injects a permanent engine fault: searches return zero hits.
func (n *FakeNode) SetFaulty(v bool) {
    n.mu.Lock()
    n.faulty = v
    n.mu.Unlock()
}

// SetDown makes every request fail at the HTTP layer, simulating a node
// mid-restart.
func (n *FakeNode) SetDown(v bool) {
    n.mu.Lock()
    n.down = v
    n.mu.Unlock()
}

// AddIndex makes the index known to this node, as if propagation reached it.
func (n *FakeNode) AddIndex(index string) {
    n.mu.Lock()
    n.indexes[index] = struct{}{}
    n.mu.Unlock()
}

// SetFuse places one index's fuse on a worker into the given state.
func (n *FakeNode) SetFuse(w solrq.WorkerID, index string, blown bool, pendingDepth int) {
    n.mu.Lock()
    defer n.mu.Unlock()
    if n.fuses[w] == nil {
        n.fuses[w] = make(map[string]solrq.IndexStatus)
    }
    n.fuses[w][index] = solrq.IndexStatus{FuseBlown: blown, Pending: pendingDepth}
}

// SetExchangeRecords replaces the node's anti-entropy exchange view.
func (n *FakeNode) SetExchangeRecords(recs []verify.ExchangeRecord) {
    n.mu.Lock()
    n.exchanges = append([]verify.ExchangeRecord(nil), recs...)
    n.mu.Unlock()
}

func (n *FakeNode) unavailable(w http.ResponseWriter) bool {
    n.mu.Lock()
    down := n.down
    n.mu.Unlock()
    if down {
        http.Error(w, "node unavailable", http.StatusBadGateway)
    }
    return down
}

func (n *FakeNode) handlePing(w http.ResponseWriter, r *http.Request) {
    if n.unavailable(w) { return }
    w.WriteHeader(http.StatusOK)
    _, _ = w.Write([]byte("pong"))
}

func (n *FakeNode) handleStatus(w http.ResponseWriter, r *http.Request) {
    if n.unavailable(w) { return }
    n.mu.Lock()
    names := make([]string, 0, len(n.indexes))
    for name := range n.indexes { names = append(names, name) }
    n.mu.Unlock()
    w.Header().Set("Content-Type", "application/json")
    _ = json.NewEncoder(w).Encode(map[string]any{"id": n.id, "indexes": names})
}

func (n *FakeNode) handleRPC(w http.ResponseWriter, r *http.Request) {
    if n.unavailable(w) { return }
    if r.Method != http.MethodPost {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    var req transport.CallRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
        return
    }
    result, errMsg := n.dispatch(req)
    w.Header().Set("Content-Type", "application/json")
    if errMsg != "" {
        w.WriteHeader(http.StatusInternalServerError)
        _ = json.NewEncoder(w).Encode(transport.CallResponse{Error: errMsg})
        return
    }
    _ = json.NewEncoder(w).Encode(transport.CallResponse{Result: result})
}

func (n *FakeNode) dispatch(req transport.CallRequest) (json.RawMessage, string) {
    n.mu.Lock()
    defer n.mu.Unlock()
    arg := func(i int) string {
        if i < len(req.Args) {
            if s, ok := req.Args[i].(string); ok { return s }
        }
        return ""
    }
    switch req.Module + ":" + req.Function {
    case "index:create":
        n.indexes[arg(0)] = struct{}{}
        return mustJSON("ok"), ""
    case "index:info":
        if _, ok := n.indexes[arg(0)]; !ok {
            return nil, "" // null result: not yet propagated
        }
        return mustJSON(map[string]string{"name": arg(0)}), ""
    case "solrq:status":
        statuses := n.fuses[solrq.WorkerID(arg(0))]
        if statuses == nil { statuses = map[string]solrq.IndexStatus{} }
        return mustJSON(statuses), ""
    case "solrq:blow_fuse", "solrq:reset_fuse":
        w, index := solrq.WorkerID(arg(0)), arg(1)
        if n.fuses[w] == nil { n.fuses[w] = make(map[string]solrq.IndexStatus) }
        st := n.fuses[w][index]
        st.FuseBlown = req.Function == "blow_fuse"
        n.fuses[w][index] = st
        return mustJSON("ok"), ""
    case "entropy:exchange_info":
        return mustJSON(n.exchanges), ""
    default:
        return nil, fmt.Sprintf("unknown call %s:%s", req.Module, req.Function)
    }
}

// handleIndex covers POST /index/{index}/docs and /index/{index}/commit.
func (n *FakeNode) handleIndex(w http.ResponseWriter, r *http.Request) {
    if n.unavailable(w) { return }
    parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/index/"), "/")
    if len(parts) != 2 || r.Method != http.MethodPost {
        http.Error(w, "not found", http.StatusNotFound)
        return
    }
    index, op := parts[0], parts[1]
    switch op {
    case "docs":
        n.data.write(index)
    case "commit":
        n.data.commit(index)
    default:
        http.Error(w, "not found", http.StatusNotFound)
        return
    }
    w.WriteHeader(http.StatusOK)
    _, _ = w.Write([]byte(`{"ok":true}`))
}

// handleSearch answers GET /solr/{index}/select with the visible hit count.
func (n *FakeNode) handleSearch(w http.ResponseWriter, r *http.Request) {
    if n.unavailable(w) { return }
    index := strings.Split(strings.TrimPrefix(r.URL.Path, "/solr/"), "/")[0]
    count := n.data.count(index)
    n.mu.Lock()
    if n.faulty { count = 0 }
    n.mu.Unlock()
    w.Header().Set("Content-Type", "application/json")
    _, _ = fmt.Fprintf(w, `{"response":{"numFound":%d}}`, count)
}

func mustJSON(v any) json.RawMessage {
    b, err := json.Marshal(v)
    if err != nil { panic(err) }
    return b
}
