package config

import (
    "testing"
    "time"
)

func TestParse_FullConfig(t *testing.T) {
    c, err := Parse([]byte(`
nodes:
  - id: n1
    search: 127.0.0.1:8093
    admin: 127.0.0.1:8098
    queue: 127.0.0.1:8099
  - id: n2
    search: 127.0.0.2:8093
poll:
  attempts: 40
  delay: 250ms
admin_proto: grpc
timeout: 5s
tls:
  enable: true
  ca_file: /etc/converge/ca.pem
`))
    if err != nil {
        t.Fatalf("parse: %v", err)
    }
    if c.Poll.Attempts != 40 || c.Poll.Delay.Std() != 250*time.Millisecond {
        t.Fatalf("poll: %+v", c.Poll)
    }
    if c.AdminProto != "grpc" || c.Timeout.Std() != 5*time.Second {
        t.Fatalf("proto/timeout: %s / %v", c.AdminProto, c.Timeout.Std())
    }
    if !c.TLS.Enable || c.TLS.CAFile != "/etc/converge/ca.pem" {
        t.Fatalf("tls: %+v", c.TLS)
    }
    if c.Nodes[0].Admin != "127.0.0.1:8098" || c.Nodes[0].Queue != "127.0.0.1:8099" {
        t.Fatalf("explicit endpoints overwritten: %+v", c.Nodes[0])
    }
}

func TestParse_Defaults(t *testing.T) {
    c, err := Parse([]byte("nodes:\n  - id: n1\n    search: 127.0.0.1:8093\n"))
    if err != nil {
        t.Fatalf("parse: %v", err)
    }
    if c.Poll.Attempts != DefaultAttempts || c.Poll.Delay.Std() != DefaultDelay {
        t.Fatalf("poll defaults: %+v", c.Poll)
    }
    if c.AdminProto != "http" || c.Discovery.Kind != "static" {
        t.Fatalf("defaults: %s / %s", c.AdminProto, c.Discovery.Kind)
    }
    // admin falls back to search, queue falls back to admin
    if c.Nodes[0].Admin != "127.0.0.1:8093" || c.Nodes[0].Queue != "127.0.0.1:8093" {
        t.Fatalf("endpoint fallback: %+v", c.Nodes[0])
    }
}

func TestParse_Invalid(t *testing.T) {
    cases := []struct {
        name string
        yaml string
    }{
        {"no nodes for static", "poll:\n  attempts: 3\n"},
        {"node without id", "nodes:\n  - search: 127.0.0.1:8093\n"},
        {"node without search", "nodes:\n  - id: n1\n"},
        {"unknown discovery kind", "discovery:\n  kind: dns\nnodes:\n  - id: n1\n    search: a:1\n"},
        {"memberlist without seeds", "discovery:\n  kind: memberlist\n"},
        {"bad admin proto", "admin_proto: thrift\nnodes:\n  - id: n1\n    search: a:1\n"},
        {"bad duration", "timeout: fast\nnodes:\n  - id: n1\n    search: a:1\n"},
        {"bad yaml", ": :\n"},
    }
    for _, tc := range cases {
        if _, err := Parse([]byte(tc.yaml)); err == nil {
            t.Errorf("%s: expected error", tc.name)
        }
    }
}

func TestClusterNodes(t *testing.T) {
    c, err := Parse([]byte(`
nodes:
  - id: n1
    search: s1:8093
    admin: a1:8098
  - id: n2
    search: s2:8093
`))
    if err != nil {
        t.Fatalf("parse: %v", err)
    }
    nodes := c.ClusterNodes()
    if len(nodes) != 2 {
        t.Fatalf("got %d nodes", len(nodes))
    }
    if nodes[0].ID != "n1" || nodes[0].Endpoints.Admin != "a1:8098" || nodes[0].Endpoints.Queue != "a1:8098" {
        t.Fatalf("n1: %+v", nodes[0])
    }
    if nodes[1].Endpoints.Admin != "s2:8093" {
        t.Fatalf("n2 fallback: %+v", nodes[1])
    }
}
