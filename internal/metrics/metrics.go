package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GenerationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aiu_generation_requests_total",
		Help: "Generation operations started, by operation.",
	}, []string{"operation"})

	GenerationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aiu_generation_failures_total",
		Help: "Generation operations failed, by operation and failure class.",
	}, []string{"operation", "class"})

	StreamChunks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aiu_stream_chunks_total",
		Help: "Text chunks received across all streaming sessions.",
	})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
