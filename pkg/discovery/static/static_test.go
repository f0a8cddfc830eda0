package static

import (
    "context"
    "testing"

    "github.com/amirimatin/go-converge/pkg/cluster"
)

func TestParse(t *testing.T) {
    nodes := Parse("n1=10.0.0.1:8093, n2=10.0.0.2:8093,broken,n3=10.0.0.3:8093")
    if len(nodes) != 3 {
        t.Fatalf("got %d nodes, want 3", len(nodes))
    }
    if nodes[1].ID != "n2" {
        t.Fatalf("unexpected id %q", nodes[1].ID)
    }
    ep := nodes[1].Endpoints
    if ep.Search != "10.0.0.2:8093" || ep.Admin != ep.Search || ep.Queue != ep.Search {
        t.Fatalf("endpoints not shared: %+v", ep)
    }
}

func TestParse_Empty(t *testing.T) {
    if nodes := Parse(""); nodes != nil {
        t.Fatalf("expected nil, got %v", nodes)
    }
}

func TestResolve(t *testing.T) {
    src := New(
        cluster.Node{ID: "n1", Endpoints: cluster.Endpoints{Search: "a:1", Admin: "a:1", Queue: "a:1"}},
        cluster.Node{ID: "n2", Endpoints: cluster.Endpoints{Search: "b:1", Admin: "b:1", Queue: "b:1"}},
    )
    c, err := src.Resolve(context.Background())
    if err != nil {
        t.Fatalf("resolve: %v", err)
    }
    if c.Size() != 2 {
        t.Fatalf("size %d", c.Size())
    }
}

func TestResolve_DuplicateIDs(t *testing.T) {
    src := New(
        cluster.Node{ID: "n1", Endpoints: cluster.Endpoints{Search: "a:1"}},
        cluster.Node{ID: "n1", Endpoints: cluster.Endpoints{Search: "b:1"}},
    )
    if _, err := src.Resolve(context.Background()); err == nil {
        t.Fatal("expected duplicate id error")
    }
}
