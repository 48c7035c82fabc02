package scoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics contains statically-registered Prometheus metrics for the package.
var metrics = struct {
	oracleQueries  *prometheus.HistogramVec
	oracleFailures *prometheus.CounterVec
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	pairsScored    prometheus.Counter
	pairsAccepted  prometheus.Counter
	casesSelected  prometheus.Gauge
}{
	oracleQueries: promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ris",
		Subsystem: "oracle",
		Name:      "query_duration_seconds",
		Help:      "Graph oracle round trip time by operation, including retries.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"op"}),
	oracleFailures: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ris",
		Subsystem: "oracle",
		Name:      "failures_total",
		Help: `Oracle calls that failed after all retries.

Each failure is scored as "no match" for the rule or path involved.`,
	}, []string{"op"}),
	cacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ris",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Run cache hits by cache (paths, props).",
	}, []string{"cache"}),
	cacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ris",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Run cache misses by cache (paths, props).",
	}, []string{"cache"}),
	pairsScored: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ris",
		Subsystem: "engine",
		Name:      "pairs_scored_total",
		Help:      "Predicted pairs that received a score record.",
	}),
	pairsAccepted: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ris",
		Subsystem: "engine",
		Name:      "pairs_accepted_total",
		Help:      "Predicted pairs whose RIS exceeded the threshold.",
	}),
	casesSelected: promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ris",
		Subsystem: "engine",
		Name:      "top_cases",
		Help:      "Number of case pairs retained by the most recent case selection.",
	}),
}
