package httpjson

import (
    "bytes"
    "context"
    "crypto/tls"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "time"

    "github.com/amirimatin/go-converge/pkg/transport"
)

// Client is a thin HTTP client for a node's admin and search surfaces. It
// performs exactly one request per call; retrying a not-yet-converged
// observation is the poller's job, one layer up.
type Client struct {
    httpc     *http.Client
    transport *http.Transport
    isTLS     bool
}

// NewClient constructs a new Client with the given per-request timeout.
func NewClient(timeout time.Duration) *Client {
    if timeout <= 0 { timeout = transport.DefaultTimeout }
    tr := &http.Transport{}
    return &Client{httpc: &http.Client{Timeout: timeout, Transport: tr}, transport: tr}
}

// UseTLS sets the TLS config for the underlying HTTP client and switches the
// request scheme to https.
func (c *Client) UseTLS(cfg *tls.Config) *Client {
    if c.transport != nil { c.transport.TLSClientConfig = cfg }
    c.isTLS = cfg != nil
    return c
}

func (c *Client) scheme() string {
    if c.isTLS { return "https" }
    return "http"
}

// Do performs one bounded HTTP request and returns the full response. Any
// well-formed response is returned as-is regardless of status code; only
// transport faults produce an error.
func (c *Client) Do(ctx context.Context, method, url string, header http.Header, body []byte) (transport.Response, error) {
    var out transport.Response
    var rd io.Reader
    if len(body) > 0 { rd = bytes.NewReader(body) }
    req, err := http.NewRequestWithContext(ctx, method, url, rd)
    if err != nil { return out, err }
    for k, vs := range header {
        for _, v := range vs { req.Header.Add(k, v) }
    }
    resp, err := c.httpc.Do(req)
    if err != nil { return out, err }
    defer resp.Body.Close()
    b, err := io.ReadAll(resp.Body)
    if err != nil { return out, err }
    out.Status = resp.StatusCode
    out.Header = resp.Header
    out.Body = b
    return out, nil
}

// GetStatus fetches the node status document from addr (host:port).
func (c *Client) GetStatus(ctx context.Context, addr string) ([]byte, error) {
    url := fmt.Sprintf("%s://%s/status", c.scheme(), addr)
    resp, err := c.Do(ctx, http.MethodGet, url, nil, nil)
    if err != nil { return nil, err }
    if resp.Status != http.StatusOK {
        return nil, fmt.Errorf("status %d: %s", resp.Status, string(resp.Body))
    }
    return resp.Body, nil
}

// Call invokes module:function(args...) via POST /rpc on addr.
func (c *Client) Call(ctx context.Context, addr, module, function string, args []any) (json.RawMessage, error) {
    url := fmt.Sprintf("%s://%s/rpc", c.scheme(), addr)
    body, err := json.Marshal(transport.CallRequest{Module: module, Function: function, Args: args})
    if err != nil { return nil, err }
    hdr := http.Header{"Content-Type": []string{"application/json"}}
    resp, err := c.Do(ctx, http.MethodPost, url, hdr, body)
    if err != nil { return nil, err }
    var out transport.CallResponse
    if err := json.Unmarshal(resp.Body, &out); err != nil {
        return nil, fmt.Errorf("rpc %s:%s decode: %w", module, function, err)
    }
    if resp.Status != http.StatusOK || out.Error != "" {
        if out.Error == "" { out.Error = fmt.Sprintf("rpc status %d", resp.Status) }
        return nil, fmt.Errorf("rpc %s:%s: %s", module, function, out.Error)
    }
    return out.Result, nil
}

var _ transport.RPCClient = (*Client)(nil)
var _ transport.HTTPClient = (*Client)(nil)
