package search

import (
    "context"
    "fmt"

    "github.com/amirimatin/go-converge/pkg/cluster"
    "github.com/amirimatin/go-converge/pkg/condition"
)

// CountCondition holds once the node's search endpoint returns exactly
// expected hits for field:term. Query failures count as "not yet". This is
// the terminal condition for indexing-convergence waits.
func CountCondition(s Searcher, index, field, term string, expected int64) condition.Condition {
    return condition.Func{
        Desc: fmt.Sprintf("search %s %s:%s count == %d", index, field, term, expected),
        Fn: func(ctx context.Context, n cluster.Node) bool {
            raw, err := s.Query(ctx, n.Endpoints.Search, index, field, term)
            if err != nil {
                return false
            }
            ok, err := VerifyCount(expected, raw)
            return err == nil && ok
        },
    }
}
