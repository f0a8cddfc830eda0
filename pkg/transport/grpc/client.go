package grpc

import (
    "context"
    "crypto/tls"
    "encoding/json"
    "fmt"
    "time"

    "google.golang.org/grpc"
    "google.golang.org/grpc/backoff"
    "google.golang.org/grpc/credentials"
    "google.golang.org/grpc/credentials/insecure"
    "google.golang.org/grpc/keepalive"

    "github.com/amirimatin/go-converge/pkg/transport"
)

// Client performs admin calls over gRPC using the JSON codec, for clusters
// whose admin surface speaks gRPC instead of HTTP.
type Client struct {
    timeout time.Duration
    tlsCfg  *tls.Config
    cm      *ConnManager
}

func NewClient(timeout time.Duration) *Client {
    if timeout <= 0 { timeout = transport.DefaultTimeout }
    return &Client{timeout: timeout}
}

// UseTLS sets TLS config for the client.
func (c *Client) UseTLS(cfg *tls.Config) *Client { c.tlsCfg = cfg; return c }

func (c *Client) dialCtx(ctx context.Context, target string) (*grpc.ClientConn, error) {
    // Use JSON codec and set content subtype accordingly.
    opts := []grpc.DialOption{
        grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{}), grpc.CallContentSubtype("json")),
        grpc.WithConnectParams(grpc.ConnectParams{Backoff: backoff.DefaultConfig, MinConnectTimeout: 500 * time.Millisecond}),
        grpc.WithKeepaliveParams(keepalive.ClientParameters{Time: 20 * time.Second, Timeout: 5 * time.Second, PermitWithoutStream: true}),
        grpc.WithBlock(),
    }
    if c.tlsCfg != nil {
        opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(c.tlsCfg)))
    } else {
        opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
    }
    return grpc.DialContext(ctx, target, opts...)
}

// getConn returns a managed connection, creating a manager if absent.
func (c *Client) getConn(ctx context.Context, addr string) (*grpc.ClientConn, func(), error) {
    if c.cm == nil {
        c.cm = NewConnManager(30*time.Second, c.dialCtx)
    }
    return c.cm.Get(ctx, addr)
}

// Close releases all cached connections.
func (c *Client) Close() {
    if c.cm != nil { c.cm.Close() }
}

type empty struct{}

type statusBlob struct {
    Data []byte `json:"data"`
}

// GetStatus fetches the node's JSON status document.
func (c *Client) GetStatus(ctx context.Context, addr string) ([]byte, error) {
    cctx, cancel := context.WithTimeout(ctx, c.timeout)
    defer cancel()
    cc, rel, err := c.getConn(cctx, addr)
    if err != nil { return nil, err }
    defer rel()
    out := new(statusBlob)
    if err := cc.Invoke(cctx, "/converge.v1.Admin/GetStatus", &empty{}, out); err != nil { return nil, err }
    return out.Data, nil
}

// Call invokes module:function(args...) on addr.
func (c *Client) Call(ctx context.Context, addr, module, function string, args []any) (json.RawMessage, error) {
    cctx, cancel := context.WithTimeout(ctx, c.timeout)
    defer cancel()
    cc, rel, err := c.getConn(cctx, addr)
    if err != nil { return nil, err }
    defer rel()
    req := transport.CallRequest{Module: module, Function: function, Args: args}
    var resp transport.CallResponse
    if err := cc.Invoke(cctx, "/converge.v1.Admin/Call", &req, &resp); err != nil { return nil, err }
    if resp.Error != "" {
        return nil, fmt.Errorf("rpc %s:%s: %s", module, function, resp.Error)
    }
    return resp.Result, nil
}

var _ transport.RPCClient = (*Client)(nil)
