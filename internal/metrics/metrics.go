// Package metrics exposes Prometheus instrumentation for the fetch
// coordination layer.
package metrics

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notesync_document_cache_hits_total",
		Help: "Document lookups served from the local cache.",
	})
	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notesync_document_cache_misses_total",
		Help: "Document lookups that had to go to the backend.",
	})
	BatchesFlushed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notesync_batches_flushed_total",
		Help: "Bulk document calls sent to the backend.",
	})
	BatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "notesync_batch_size",
		Help:    "Number of documents per bulk call.",
		Buckets: prometheus.LinearBuckets(1, 1, 10),
	})
)

func init() {
	prometheus.MustRegister(CacheHits, CacheMisses, BatchesFlushed, BatchSize)
}

// ObserveBatch records one flushed batch of the given size.
func ObserveBatch(size int) {
	BatchesFlushed.Inc()
	BatchSize.Observe(float64(size))
}

// ServeMetrics serves /metrics on its own listener.
func ServeMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()
}
