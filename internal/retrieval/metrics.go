package retrieval

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/54b3r/pdfrag-go/internal/rag"
)

// Metrics holds the Prometheus collectors owned by the retrieval service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// ingestionsTotal counts ingestions by outcome.
	ingestionsTotal *prometheus.CounterVec

	// ingestDurationSeconds records wall-clock ingestion time including
	// summary generation and index rebuild.
	ingestDurationSeconds prometheus.Histogram

	// chunksIndexed is the number of records in the live index.
	chunksIndexed prometheus.Gauge

	// queriesTotal counts queries by outcome.
	queriesTotal *prometheus.CounterVec

	// queryDurationSeconds records query latency.
	queryDurationSeconds prometheus.Histogram
}

// NewMetrics registers the retrieval collectors against reg. Tests pass a
// fresh prometheus.Registry to stay hermetic.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ingestionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pdfrag",
			Subsystem: "ingest",
			Name:      "total",
			Help:      "Total number of document ingestions, partitioned by outcome.",
		}, []string{"outcome"}),

		ingestDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pdfrag",
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of ingestions from chunking to index publication.",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		}),

		chunksIndexed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pdfrag",
			Subsystem: "index",
			Name:      "chunks",
			Help:      "Number of chunk records in the live vector index.",
		}),

		queriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pdfrag",
			Subsystem: "query",
			Name:      "total",
			Help:      "Total number of similarity queries, partitioned by outcome.",
		}, []string{"outcome"}),

		queryDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pdfrag",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Latency of similarity queries including query embedding.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) observeIngest(start time.Time, err error, indexed int) {
	if m == nil {
		return
	}
	m.ingestionsTotal.WithLabelValues(outcome(err)).Inc()
	m.ingestDurationSeconds.Observe(time.Since(start).Seconds())
	if err == nil {
		m.chunksIndexed.Set(float64(indexed))
	}
}

func (m *Metrics) observeQuery(start time.Time, err error) {
	if m == nil {
		return
	}
	m.queriesTotal.WithLabelValues(outcome(err)).Inc()
	m.queryDurationSeconds.Observe(time.Since(start).Seconds())
}

// outcome maps an error to a low-cardinality label value.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, rag.ErrValidation), errors.Is(err, rag.ErrConfiguration):
		return "invalid"
	case errors.Is(err, rag.ErrIndexNotReady):
		return "not_ready"
	case errors.Is(err, rag.ErrUpstream):
		return "upstream_error"
	default:
		return "error"
	}
}
