package verify

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    "github.com/amirimatin/go-converge/pkg/cluster"
    "github.com/amirimatin/go-converge/pkg/condition"
    "github.com/amirimatin/go-converge/pkg/transport"
)

// RepairStats summarizes the repairs performed by one anti-entropy exchange.
type RepairStats struct {
    Repaired uint64 `json:"repaired"`
}

// ExchangeRecord describes the last anti-entropy exchange for one
// (partition, replica) pair. LastExchange is nil when the pair has never
// exchanged; per pair, timestamps only move forward across exchanges.
type ExchangeRecord struct {
    Partition    uint64      `json:"partition"`
    Replica      uint64      `json:"replica"`
    LastExchange *time.Time  `json:"last_exchange,omitempty"`
    Repairs      RepairStats `json:"repairs"`
}

// ExchangeReader fetches every exchange record known to one node.
type ExchangeReader interface {
    Read(ctx context.Context, n cluster.Node) ([]ExchangeRecord, error)
}

// RPCExchangeReader reads exchange records through the admin RPC surface.
type RPCExchangeReader struct {
    RPC transport.RPCClient
}

func (r RPCExchangeReader) Read(ctx context.Context, n cluster.Node) ([]ExchangeRecord, error) {
    res, err := r.RPC.Call(ctx, n.Endpoints.Admin, "entropy", "exchange_info", nil)
    if err != nil { return nil, err }
    var out []ExchangeRecord
    if err := json.Unmarshal(res, &out); err != nil {
        return nil, fmt.Errorf("verify: exchange info decode on %s: %w", n.ID, err)
    }
    return out, nil
}

var _ ExchangeReader = RPCExchangeReader{}

// ExchangeRoundSince holds once every (partition, replica) record on the
// node shows an exchange strictly after since. The reference time is fixed
// by the caller before polling starts and must not be re-sampled between
// attempts; a moving reference would never trigger. A never-exchanged pair
// (nil timestamp) keeps the condition false no matter how long we wait.
func ExchangeRoundSince(reader ExchangeReader, since time.Time) condition.Condition {
    return condition.Func{
        Desc: fmt.Sprintf("full exchange round since %s", since.UTC().Format(time.RFC3339)),
        Fn: func(ctx context.Context, n cluster.Node) bool {
            recs, err := reader.Read(ctx, n)
            if err != nil || len(recs) == 0 {
                return false
            }
            for _, rec := range recs {
                if rec.LastExchange == nil || !rec.LastExchange.After(since) {
                    return false
                }
            }
            return true
        },
    }
}

// WaitForFullExchangeRound waits until every targeted node has completed a
// full anti-entropy exchange round after since.
func (v Verifier) WaitForFullExchangeRound(ctx context.Context, t cluster.Target, reader ExchangeReader, since time.Time) error {
    return v.WaitUntil(ctx, t, ExchangeRoundSince(reader, since))
}
