package bench

import (
    "context"
    "encoding/json"
    "math/rand"
    "net/http"
    "net/http/httptest"
    "sync"
    "testing"
    "time"

    "github.com/amirimatin/go-converge/pkg/cluster"
    "github.com/amirimatin/go-converge/pkg/transport/httpjson"
)

// ingestServer records documents posted to /index/{index}/docs.
type ingestServer struct {
    mu      sync.Mutex
    docs    []map[string]string
    commits int
    srv     *httptest.Server
}

func newIngestServer(t *testing.T) *ingestServer {
    t.Helper()
    s := &ingestServer{}
    s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        s.mu.Lock()
        defer s.mu.Unlock()
        switch {
        case r.Method == http.MethodPost && r.URL.Path == "/index/things/docs":
            var doc map[string]string
            if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
                http.Error(w, err.Error(), http.StatusBadRequest)
                return
            }
            s.docs = append(s.docs, doc)
            w.WriteHeader(http.StatusOK)
        case r.Method == http.MethodPost && r.URL.Path == "/index/things/commit":
            s.commits++
            w.WriteHeader(http.StatusOK)
        default:
            http.NotFound(w, r)
        }
    }))
    t.Cleanup(s.srv.Close)
    return s
}

func (s *ingestServer) node(id string) cluster.Node {
    addr := s.srv.Listener.Addr().String()
    return cluster.Node{ID: cluster.NodeID(id), Endpoints: cluster.Endpoints{Search: addr, Admin: addr, Queue: addr}}
}

func (s *ingestServer) count() int {
    s.mu.Lock()
    defer s.mu.Unlock()
    return len(s.docs)
}

func TestWriteObjects_SpreadsAcrossNodes(t *testing.T) {
    a, b := newIngestServer(t), newIngestServer(t)
    c, err := cluster.New(a.node("n1"), b.node("n2"))
    if err != nil {
        t.Fatalf("cluster: %v", err)
    }

    w := Writer{Client: httpjson.NewClient(time.Second), Rand: rand.New(rand.NewSource(1))}
    if err := w.WriteObjects(context.Background(), c, "things", "body_t", "converge", 100); err != nil {
        t.Fatalf("write: %v", err)
    }
    if got := a.count() + b.count(); got != 100 {
        t.Fatalf("wrote %d docs, want 100", got)
    }
    // uniform random choice over two nodes should touch both
    if a.count() == 0 || b.count() == 0 {
        t.Fatalf("writes not distributed: %d / %d", a.count(), b.count())
    }
}

func TestWriteObjects_DocumentShape(t *testing.T) {
    s := newIngestServer(t)
    c, err := cluster.New(s.node("n1"))
    if err != nil {
        t.Fatalf("cluster: %v", err)
    }

    w := Writer{Client: httpjson.NewClient(time.Second)}
    if err := w.WriteObjects(context.Background(), c, "things", "body_t", "converge", 3); err != nil {
        t.Fatalf("write: %v", err)
    }
    s.mu.Lock()
    defer s.mu.Unlock()
    ids := map[string]bool{}
    for _, doc := range s.docs {
        ids[doc["id"]] = true
        if doc["body_t"] != "converge" {
            t.Fatalf("field missing in %v", doc)
        }
    }
    for _, want := range []string{"obj-0", "obj-1", "obj-2"} {
        if !ids[want] {
            t.Fatalf("missing %s in %v", want, ids)
        }
    }
}

func TestWriteObjects_ErrorStatus(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        http.Error(w, "queue full", http.StatusServiceUnavailable)
    }))
    defer srv.Close()
    n := cluster.Node{ID: "n1", Endpoints: cluster.Endpoints{Search: srv.Listener.Addr().String()}}
    c, err := cluster.New(n)
    if err != nil {
        t.Fatalf("cluster: %v", err)
    }

    w := Writer{Client: httpjson.NewClient(time.Second)}
    if err := w.WriteObjects(context.Background(), c, "things", "f", "v", 1); err == nil {
        t.Fatal("expected status error")
    }
}

func TestCommit(t *testing.T) {
    s := newIngestServer(t)
    w := Writer{Client: httpjson.NewClient(time.Second)}
    if err := w.Commit(context.Background(), s.node("n1"), "things"); err != nil {
        t.Fatalf("commit: %v", err)
    }
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.commits != 1 {
        t.Fatalf("commits = %d", s.commits)
    }
}
