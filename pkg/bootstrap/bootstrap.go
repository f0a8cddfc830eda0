// Package bootstrap assembles a ready-to-use harness from configuration:
// discovery, transports, TLS and poll budgets with sensible defaults.
package bootstrap

import (
    "context"
    "fmt"
    "log"

    "github.com/amirimatin/go-converge/pkg/config"
    "github.com/amirimatin/go-converge/pkg/discovery"
    dmember "github.com/amirimatin/go-converge/pkg/discovery/memberlist"
    dstatic "github.com/amirimatin/go-converge/pkg/discovery/static"
    "github.com/amirimatin/go-converge/pkg/harness"
    tlsx "github.com/amirimatin/go-converge/pkg/security/tlsconfig"
    "github.com/amirimatin/go-converge/pkg/transport"
    admingrpc "github.com/amirimatin/go-converge/pkg/transport/grpc"
    "github.com/amirimatin/go-converge/pkg/transport/httpjson"
)

// Build resolves the cluster and assembles the harness without touching it.
func Build(ctx context.Context, cfg config.Config, logger *log.Logger) (*harness.Harness, error) {
    if logger == nil { logger = log.Default() }

    tlsOpts := tlsx.Options{
        Enable:             cfg.TLS.Enable,
        CAFile:             cfg.TLS.CAFile,
        CertFile:           cfg.TLS.CertFile,
        KeyFile:            cfg.TLS.KeyFile,
        ServerName:         cfg.TLS.ServerName,
        InsecureSkipVerify: cfg.TLS.InsecureSkipVerify,
    }
    tlsCfg, err := tlsOpts.Client()
    if err != nil { return nil, err }

    timeout := cfg.Timeout.Std()
    if timeout <= 0 { timeout = transport.DefaultTimeout }

    httpc := httpjson.NewClient(timeout)
    scheme := "http"
    if tlsCfg != nil {
        httpc.UseTLS(tlsCfg)
        scheme = "https"
    }

    var rpcc transport.RPCClient = httpc
    if cfg.AdminProto == "grpc" {
        gc := admingrpc.NewClient(timeout)
        if tlsCfg != nil { gc.UseTLS(tlsCfg) }
        rpcc = gc
    }

    var src discovery.Source
    switch cfg.Discovery.Kind {
    case "memberlist":
        src, err = dmember.New(dmember.Options{
            Bind:   cfg.Discovery.Bind,
            Seeds:  cfg.Discovery.Seeds,
            Logger: logger,
        })
        if err != nil { return nil, err }
    default:
        src = dstatic.New(cfg.ClusterNodes()...)
    }

    c, err := src.Resolve(ctx)
    if err != nil {
        return nil, fmt.Errorf("bootstrap: resolve cluster: %w", err)
    }

    return harness.New(c, harness.Options{
        RPC:      rpcc,
        HTTP:     httpc,
        Scheme:   scheme,
        Attempts: cfg.Poll.Attempts,
        Delay:    cfg.Poll.Delay.Std(),
        Logger:   logger,
    })
}

// Run builds the harness and proves basic reachability: every node must
// answer ping within the configured budget.
func Run(ctx context.Context, cfg config.Config, logger *log.Logger) (*harness.Harness, error) {
    h, err := Build(ctx, cfg, logger)
    if err != nil { return nil, err }
    if err := h.WaitForPing(ctx, h.All()); err != nil {
        return nil, err
    }
    return h, nil
}
