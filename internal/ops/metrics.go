package ops

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the worker's Prometheus collectors. It satisfies the worker's
// Metrics interface.
type Metrics struct {
	claimed   prometheus.Counter
	processed *prometheus.CounterVec
	batchTime prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		claimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "triage_jobs_claimed_total",
			Help: "Jobs claimed from the queue.",
		}),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_jobs_processed_total",
			Help: "Job executions by stage and outcome.",
		}, []string{"stage", "outcome"}),
		batchTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "triage_batch_duration_seconds",
			Help:    "Wall time spent processing one claimed batch.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
	reg.MustRegister(m.claimed, m.processed, m.batchTime)
	return m
}

func (m *Metrics) JobsClaimed(n int) {
	m.claimed.Add(float64(n))
}

func (m *Metrics) JobProcessed(stage int, outcome string) {
	m.processed.WithLabelValues(strconv.Itoa(stage), outcome).Inc()
}

func (m *Metrics) BatchDuration(d time.Duration) {
	m.batchTime.Observe(d.Seconds())
}
