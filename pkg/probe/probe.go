package probe

import (
    "bytes"
    "context"
    "encoding/json"
    "net/http"

    "github.com/amirimatin/go-converge/pkg/cluster"
    obsmetrics "github.com/amirimatin/go-converge/pkg/observability/metrics"
    "github.com/amirimatin/go-converge/pkg/transport"
)

// Kind tags the three possible results of one observation.
type Kind int

const (
    // KindValue means the node answered with the awaited value.
    KindValue Kind = iota
    // KindNegative means the node is reachable but not yet converged
    // (missing resource, empty result, RPC returned nothing).
    KindNegative
    // KindTransportError means the collaborator failed: connection refused,
    // timeout, malformed response. Not a convergence signal.
    KindTransportError
)

// Outcome is the tagged result of probing one node once.
type Outcome struct {
    Kind Kind
    Data any
    Err  error
}

// Value wraps a successful observation carrying the awaited value.
func Value(data any) Outcome { return Outcome{Kind: KindValue, Data: data} }

// Negative marks a well-formed "not ready" observation.
func Negative() Outcome { return Outcome{Kind: KindNegative} }

// TransportError marks a collaborator failure.
func TransportError(err error) Outcome { return Outcome{Kind: KindTransportError, Err: err} }

func (o Outcome) record() Outcome {
    switch o.Kind {
    case KindValue:
        obsmetrics.ProbesTotal.WithLabelValues("value").Inc()
    case KindNegative:
        obsmetrics.ProbesTotal.WithLabelValues("negative").Inc()
    default:
        obsmetrics.ProbesTotal.WithLabelValues("transport_error").Inc()
    }
    return o
}

// Probe issues one observation against one node. Implementations never panic
// or return raw transport faults past their boundary; every failure mode is
// folded into the Outcome.
type Probe interface {
    Observe(ctx context.Context, n cluster.Node) Outcome
    Describe() string
}

// Func adapts a plain function to the Probe interface.
type Func struct {
    Desc string
    Fn   func(ctx context.Context, n cluster.Node) Outcome
}

func (f Func) Observe(ctx context.Context, n cluster.Node) Outcome {
    return f.Fn(ctx, n).record()
}

func (f Func) Describe() string { return f.Desc }

// Classifier maps a well-formed HTTP response to Value or Negative. It is
// never handed a transport fault; those short-circuit to TransportError.
type Classifier func(transport.Response) Outcome

// ClassifyDefault treats any 2xx response with a body as the awaited value,
// and 404 or an empty body as not yet converged. Other status codes are
// negative too: the node answered, the resource is not ready.
func ClassifyDefault(resp transport.Response) Outcome {
    if resp.Status >= 200 && resp.Status < 300 && len(bytes.TrimSpace(resp.Body)) > 0 {
        return Value(resp)
    }
    return Negative()
}

// HTTP builds a probe that issues one bounded HTTP request per observation.
// url resolves the node-specific URL; classify may be nil for ClassifyDefault.
func HTTP(c transport.HTTPClient, method string, url func(cluster.Node) string, classify Classifier, desc string) Probe {
    if classify == nil { classify = ClassifyDefault }
    return Func{Desc: desc, Fn: func(ctx context.Context, n cluster.Node) Outcome {
        resp, err := c.Do(ctx, method, url(n), nil, nil)
        if err != nil { return TransportError(err) }
        return classify(resp)
    }}
}

// RPC builds a probe that invokes module:function on the node's admin
// endpoint. A JSON null result means the remote returned nothing and maps to
// Negative; a call error maps to TransportError.
func RPC(c transport.RPCClient, module, function string, args func(cluster.Node) []any, desc string) Probe {
    return Func{Desc: desc, Fn: func(ctx context.Context, n cluster.Node) Outcome {
        var a []any
        if args != nil { a = args(n) }
        res, err := c.Call(ctx, n.Endpoints.Admin, module, function, a)
        if err != nil { return TransportError(err) }
        if len(res) == 0 || bytes.Equal(bytes.TrimSpace(res), []byte("null")) {
            return Negative()
        }
        return Value(res)
    }}
}

// Ping builds a probe that considers a node converged as soon as its admin
// surface answers GET /ping with 200.
func Ping(c transport.HTTPClient, scheme string, desc string) Probe {
    return HTTP(c, http.MethodGet, func(n cluster.Node) string {
        return scheme + "://" + n.Endpoints.Admin + "/ping"
    }, func(resp transport.Response) Outcome {
        if resp.Status == http.StatusOK { return Value(resp) }
        return Negative()
    }, desc)
}

// DecodeValue unmarshals a Value outcome carrying json.RawMessage or a
// transport.Response body into v. It reports false for non-value outcomes.
func DecodeValue(o Outcome, v any) (bool, error) {
    if o.Kind != KindValue { return false, nil }
    switch d := o.Data.(type) {
    case json.RawMessage:
        return true, json.Unmarshal(d, v)
    case []byte:
        return true, json.Unmarshal(d, v)
    case transport.Response:
        return true, json.Unmarshal(d.Body, v)
    default:
        return false, nil
    }
}
