package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// RPCMetrics tracks the request flow of the JSON-RPC surface.
type RPCMetrics struct {
	Requests *prometheus.CounterVec
	Errors   *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

var (
	rpcOnce    sync.Once
	rpcMetrics *RPCMetrics
)

// RPC returns the process-wide RPC metrics, registering them on first use.
func RPC() *RPCMetrics {
	rpcOnce.Do(func() {
		rpcMetrics = &RPCMetrics{
			Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "promptledger",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "JSON-RPC requests by method.",
			}, []string{"method"}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "promptledger",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "JSON-RPC error responses by method and code.",
			}, []string{"method", "code"}),
			Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "promptledger",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "JSON-RPC handler latency by method.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
		}
		prometheus.MustRegister(rpcMetrics.Requests, rpcMetrics.Errors, rpcMetrics.Duration)
	})
	return rpcMetrics
}
