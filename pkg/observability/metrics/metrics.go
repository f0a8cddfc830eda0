package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    ProbesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "go_converge",
        Name:      "probes_total",
        Help:      "Total node probes issued, by outcome (value, negative, transport_error)",
    }, []string{"outcome"})

    PollAttemptsTotal = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "go_converge",
        Name:      "poll_attempts_total",
        Help:      "Total condition evaluations performed by the poller",
    })

    PollTimeoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "go_converge",
        Name:      "poll_timeouts_total",
        Help:      "Total polls that exhausted their attempt budget",
    })

    WaitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "go_converge",
        Name:      "waits_total",
        Help:      "Total cluster convergence waits, by result (converged, failed)",
    }, []string{"result"})

    FusesBlownObserved = prometheus.NewGaugeVec(prometheus.GaugeOpts{
        Namespace: "go_converge",
        Name:      "fuses_blown_observed",
        Help:      "1 if the last queue status snapshot showed the index fuse blown, else 0",
    }, []string{"index"})

    SearchChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "go_converge",
        Name:      "search_checks_total",
        Help:      "Total search count verifications, by result (match, mismatch)",
    }, []string{"result"})

    BenchWritesTotal = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "go_converge",
        Subsystem: "bench",
        Name:      "writes_total",
        Help:      "Total objects written by the bench writer",
    })

    GRPCConnDials = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "go_converge",
        Subsystem: "grpc_conn",
        Name:      "dials_total",
        Help:      "Total number of new gRPC connections dialed",
    })
    GRPCConnReuse = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "go_converge",
        Subsystem: "grpc_conn",
        Name:      "reuse_total",
        Help:      "Total number of gRPC connection reuses from cache",
    })
    GRPCConnEvictions = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "go_converge",
        Subsystem: "grpc_conn",
        Name:      "evictions_total",
        Help:      "Total number of cached gRPC connections evicted",
    })
    GRPCConnActive = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "go_converge",
        Subsystem: "grpc_conn",
        Name:      "active",
        Help:      "Number of active cached gRPC connections",
    })
)

// Register registers metrics into the default Prometheus registry (idempotent).
func Register() {
    once.Do(func() {
        prometheus.MustRegister(ProbesTotal)
        prometheus.MustRegister(PollAttemptsTotal)
        prometheus.MustRegister(PollTimeoutsTotal)
        prometheus.MustRegister(WaitsTotal)
        prometheus.MustRegister(FusesBlownObserved)
        prometheus.MustRegister(SearchChecksTotal)
        prometheus.MustRegister(BenchWritesTotal)
        prometheus.MustRegister(GRPCConnDials)
        prometheus.MustRegister(GRPCConnReuse)
        prometheus.MustRegister(GRPCConnEvictions)
        prometheus.MustRegister(GRPCConnActive)
    })
}
