// Package bench generates write traffic for convergence scenarios: a batch
// of documents spread across the cluster, then a commit to start the
// softcommit clock. It is one-shot glue; verification of the outcome belongs
// to the verifier.
package bench

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "math/rand"
    "net/http"

    "github.com/amirimatin/go-converge/pkg/cluster"
    "github.com/amirimatin/go-converge/pkg/internal/logutil"
    obsmetrics "github.com/amirimatin/go-converge/pkg/observability/metrics"
    "github.com/amirimatin/go-converge/pkg/transport"
)

// Writer writes documents through the cluster's search ingestion surface.
type Writer struct {
    Client transport.HTTPClient
    // Scheme is "http" when empty.
    Scheme string
    Logger *log.Logger
    // Rand picks the node for each write. Nil seeds a default source.
    Rand *rand.Rand
}

func (w Writer) scheme() string {
    if w.Scheme == "" { return "http" }
    return w.Scheme
}

func (w Writer) rng() *rand.Rand {
    if w.Rand != nil { return w.Rand }
    return rand.New(rand.NewSource(rand.Int63()))
}

// WriteObjects writes n documents into index, each carrying field=term,
// distributing them across the cluster's nodes uniformly at random. IDs are
// obj-0 .. obj-{n-1}; rewriting a batch overwrites in place.
func (w Writer) WriteObjects(ctx context.Context, c *cluster.Cluster, index, field, term string, n int) error {
    nodes := c.Nodes()
    if len(nodes) == 0 {
        return fmt.Errorf("bench: empty cluster")
    }
    rng := w.rng()
    hdr := http.Header{"Content-Type": []string{"application/json"}}
    for i := 0; i < n; i++ {
        node := nodes[rng.Intn(len(nodes))]
        doc, err := json.Marshal(map[string]string{"id": fmt.Sprintf("obj-%d", i), field: term})
        if err != nil { return err }
        u := fmt.Sprintf("%s://%s/index/%s/docs", w.scheme(), node.Endpoints.Search, index)
        resp, err := w.Client.Do(ctx, http.MethodPost, u, hdr, doc)
        if err != nil {
            return fmt.Errorf("bench: write obj-%d to %s: %w", i, node.ID, err)
        }
        if resp.Status/100 != 2 {
            return fmt.Errorf("bench: write obj-%d to %s: status %d: %s", i, node.ID, resp.Status, string(resp.Body))
        }
        obsmetrics.BenchWritesTotal.Inc()
    }
    logutil.Infof(w.Logger, "bench: wrote %d object(s) into %s across %d node(s)", n, index, len(nodes))
    return nil
}

// Commit asks one node to commit the index, making prior writes eligible for
// search visibility after the engine's softcommit delay.
func (w Writer) Commit(ctx context.Context, n cluster.Node, index string) error {
    u := fmt.Sprintf("%s://%s/index/%s/commit", w.scheme(), n.Endpoints.Search, index)
    resp, err := w.Client.Do(ctx, http.MethodPost, u, nil, nil)
    if err != nil {
        return fmt.Errorf("bench: commit %s on %s: %w", index, n.ID, err)
    }
    if resp.Status/100 != 2 {
        return fmt.Errorf("bench: commit %s on %s: status %d", index, n.ID, resp.Status)
    }
    return nil
}
