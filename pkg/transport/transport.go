package transport

import (
    "context"
    "encoding/json"
    "net/http"
    "time"
)

// Response is the observable result of one HTTP request against a node:
// status code, headers and the raw body. Interpretation (converged or not)
// belongs to the probe layer, not here.
type Response struct {
    Status int
    Header http.Header
    Body   []byte
}

// HTTPClient performs one bounded HTTP request. Implementations must return
// an error only for transport-level faults (dial, timeout, malformed HTTP);
// any well-formed response, whatever its status code, is returned as a
// Response for the caller to classify.
type HTTPClient interface {
    Do(ctx context.Context, method, url string, header http.Header, body []byte) (Response, error)
}

// CallRequest is the wire form of one administrative RPC invocation against
// a node: a module/function pair plus positional JSON arguments.
type CallRequest struct {
    Module   string `json:"module"`
    Function string `json:"function"`
    Args     []any  `json:"args,omitempty"`
}

// CallResponse carries the RPC result. A JSON null Result with empty Error
// means the remote function returned nothing ("undefined"); the probe layer
// maps that to a negative observation.
type CallResponse struct {
    Result json.RawMessage `json:"result,omitempty"`
    Error  string          `json:"error,omitempty"`
}

// RPCClient performs administrative calls against a node's admin endpoint
// (index creation, exchange info, queue status, fuse mode). Implementations
// exist for HTTP/JSON and gRPC with a JSON codec.
type RPCClient interface {
    // Call invokes module:function(args...) on the node at addr and returns
    // the raw JSON result. A nil RawMessage with nil error means the remote
    // returned nothing.
    Call(ctx context.Context, addr, module, function string, args []any) (json.RawMessage, error)
    // GetStatus fetches the node's JSON status document.
    GetStatus(ctx context.Context, addr string) ([]byte, error)
}

// DefaultTimeout bounds a single request when the caller supplies none.
const DefaultTimeout = 3 * time.Second
