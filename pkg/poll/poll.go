package poll

import (
    "context"
    "errors"
    "fmt"
    "log"
    "time"

    "github.com/amirimatin/go-converge/pkg/cluster"
    "github.com/amirimatin/go-converge/pkg/condition"
    "github.com/amirimatin/go-converge/pkg/internal/logutil"
    obsmetrics "github.com/amirimatin/go-converge/pkg/observability/metrics"
)

// ErrTimedOut reports an exhausted attempt budget. Match with errors.Is; the
// concrete *TimeoutError carries the node and condition for the test report.
var ErrTimedOut = errors.New("poll: timed out")

// TimeoutError is the hard failure produced when a condition never held
// within the attempt budget. It is fatal to the calling test and is never
// retried at a higher layer.
type TimeoutError struct {
    Node      cluster.NodeID
    Condition string
    Attempts  int
}

func (e *TimeoutError) Error() string {
    return fmt.Sprintf("poll: node %s not converged after %d attempts: %s", e.Node, e.Attempts, e.Condition)
}

func (e *TimeoutError) Unwrap() error { return ErrTimedOut }

// Poller is the retry engine: it evaluates a condition against one node with
// a bounded number of attempts and a fixed inter-attempt delay. The interval
// is deliberately fixed rather than exponential: probes are cheap and the
// target system's convergence latency is roughly bounded, so the design
// favors returning as soon as the condition turns true.
type Poller struct {
    // Attempts is the evaluation budget. Values below 1 are treated as 1.
    Attempts int
    // Delay is slept between consecutive false evaluations, never after the
    // last one and never after a true one.
    Delay time.Duration
    // Logger is optional; nil falls back to log.Default().
    Logger *log.Logger
}

// Until evaluates cond against n until it holds or the budget runs out.
// It returns nil on convergence and a *TimeoutError on exhaustion. A false
// evaluation caused by a transport fault counts against the budget exactly
// like a plain "not yet"; the fault was already absorbed below.
func (p Poller) Until(ctx context.Context, n cluster.Node, cond condition.Condition) error {
    attempts := p.Attempts
    if attempts < 1 { attempts = 1 }
    for i := 0; i < attempts; i++ {
        obsmetrics.PollAttemptsTotal.Inc()
        if cond.Holds(ctx, n) {
            return nil
        }
        if i < attempts-1 {
            select {
            case <-time.After(p.Delay):
            case <-ctx.Done():
                // Context expiry bounds the probe calls, not the poll itself;
                // report it as the budget failure the caller expects.
                obsmetrics.PollTimeoutsTotal.Inc()
                logutil.Warnf(p.Logger, "poll: context done on node %s after %d attempts: %v", n.ID, i+1, ctx.Err())
                return &TimeoutError{Node: n.ID, Condition: cond.Describe(), Attempts: i + 1}
            }
        }
    }
    obsmetrics.PollTimeoutsTotal.Inc()
    logutil.Warnf(p.Logger, "poll: node %s exhausted %d attempts: %s", n.ID, attempts, cond.Describe())
    return &TimeoutError{Node: n.ID, Condition: cond.Describe(), Attempts: attempts}
}
