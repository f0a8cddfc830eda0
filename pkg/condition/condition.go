package condition

import (
    "context"
    "encoding/json"
    "fmt"
    "strconv"

    "github.com/amirimatin/go-converge/pkg/cluster"
    "github.com/amirimatin/go-converge/pkg/probe"
)

// Condition is a side-effect-free predicate over one node's live state: "has
// this node reached the target state". A condition may itself probe the node,
// but it keeps no verification bookkeeping of its own.
type Condition interface {
    Holds(ctx context.Context, n cluster.Node) bool
    Describe() string
}

// Func adapts a plain predicate to the Condition interface.
type Func struct {
    Desc string
    Fn   func(ctx context.Context, n cluster.Node) bool
}

func (f Func) Holds(ctx context.Context, n cluster.Node) bool { return f.Fn(ctx, n) }
func (f Func) Describe() string                               { return f.Desc }

// FromProbe composes a probe with a predicate over its outcome. A transport
// error counts as "not yet satisfied" since the node may be mid-restart; it
// is left to the poller's attempt budget, never escalated from here.
func FromProbe(p probe.Probe, pred func(probe.Outcome) bool) Condition {
    return Func{Desc: p.Describe(), Fn: func(ctx context.Context, n cluster.Node) bool {
        o := p.Observe(ctx, n)
        if o.Kind == probe.KindTransportError {
            return false
        }
        return pred(o)
    }}
}

// Converged is satisfied by any value outcome, whatever it carries.
func Converged(p probe.Probe) Condition {
    return FromProbe(p, func(o probe.Outcome) bool { return o.Kind == probe.KindValue })
}

// CounterAtLeast reads a numeric counter through the probe and holds once it
// reaches min. Collaborators that want call-count assertions expose such a
// counter and increment it themselves; the verifier only ever reads it.
func CounterAtLeast(p probe.Probe, min uint64) Condition {
    return Func{
        Desc: fmt.Sprintf("%s >= %d", p.Describe(), min),
        Fn: func(ctx context.Context, n cluster.Node) bool {
            o := p.Observe(ctx, n)
            if o.Kind != probe.KindValue {
                return false
            }
            v, ok := counterValue(o)
            return ok && v >= min
        },
    }
}

func counterValue(o probe.Outcome) (uint64, bool) {
    var num json.Number
    if ok, err := probe.DecodeValue(o, &num); !ok || err != nil {
        return 0, false
    }
    v, err := strconv.ParseUint(num.String(), 10, 64)
    if err != nil { return 0, false }
    return v, true
}
