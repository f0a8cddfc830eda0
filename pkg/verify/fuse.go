package verify

import (
    "context"
    "fmt"
    "sort"
    "strings"

    "github.com/amirimatin/go-converge/pkg/cluster"
    "github.com/amirimatin/go-converge/pkg/condition"
    "github.com/amirimatin/go-converge/pkg/solrq"
)

// FusesInState holds once every required index reports the wanted fuse state
// on the worker. Each attempt fetches the full status map and filters it;
// the test is subset containment, not equality, because fuse state of indexes
// outside the required set is irrelevant noise.
func FusesInState(reader solrq.Reader, worker solrq.WorkerID, indexes []string, blown bool) condition.Condition {
    want := "reset"
    if blown { want = "blown" }
    sorted := append([]string(nil), indexes...)
    sort.Strings(sorted)
    return condition.Func{
        Desc: fmt.Sprintf("fuses %s on worker %s for {%s}", want, worker, strings.Join(sorted, ",")),
        Fn: func(ctx context.Context, n cluster.Node) bool {
            statuses, err := reader.Read(ctx, n, worker)
            if err != nil {
                return false
            }
            matching := make(map[string]struct{}, len(statuses))
            for index, st := range statuses {
                if st.FuseBlown == blown {
                    matching[index] = struct{}{}
                }
            }
            for _, index := range indexes {
                if _, ok := matching[index]; !ok {
                    return false
                }
            }
            return true
        },
    }
}

// WaitUntilFusesBlown waits until backpressure is engaged for every listed
// index on the worker, on every targeted node.
func (v Verifier) WaitUntilFusesBlown(ctx context.Context, t cluster.Target, reader solrq.Reader, worker solrq.WorkerID, indexes []string) error {
    return v.WaitUntil(ctx, t, FusesInState(reader, worker, indexes, true))
}

// WaitUntilFusesReset waits until backpressure has released for every listed
// index on the worker, on every targeted node.
func (v Verifier) WaitUntilFusesReset(ctx context.Context, t cluster.Target, reader solrq.Reader, worker solrq.WorkerID, indexes []string) error {
    return v.WaitUntil(ctx, t, FusesInState(reader, worker, indexes, false))
}
