//go:build integration

package integration

import (
    "log"
    "os"
    "testing"
    "time"

    "github.com/amirimatin/go-converge/pkg/cluster"
    "github.com/amirimatin/go-converge/pkg/discovery/static"
    "github.com/amirimatin/go-converge/pkg/harness"
    "github.com/amirimatin/go-converge/pkg/transport/httpjson"
)

// envHarness builds a harness for the cluster named in CONVERGE_NODES
// ("n1=host:port,n2=host:port,..."). Tests are skipped when unset.
func envHarness(t *testing.T) (*harness.Harness, []cluster.Node) {
    t.Helper()
    csv := os.Getenv("CONVERGE_NODES")
    if csv == "" {
        t.Skip("CONVERGE_NODES not set")
    }
    nodes := static.Parse(csv)
    if len(nodes) == 0 {
        t.Fatalf("CONVERGE_NODES unparseable: %q", csv)
    }
    c, err := cluster.New(nodes...)
    if err != nil { t.Fatalf("cluster: %v", err) }

    cli := httpjson.NewClient(3 * time.Second)
    h, err := harness.New(c, harness.Options{
        RPC:      cli,
        HTTP:     cli,
        Attempts: 60,
        Delay:    time.Second,
        Logger:   log.Default(),
    })
    if err != nil { t.Fatalf("harness: %v", err) }
    return h, nodes
}
