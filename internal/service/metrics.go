package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the domain counters of the dispatcher and the download path.
// A nil *Metrics records nothing.
type Metrics struct {
	filesProcessed  *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	bytesSaved      prometheus.Counter
	cleanupFailures prometheus.Counter
	downloads       prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		filesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filemaster_files_processed_total",
			Help: "Process requests by tool and outcome.",
		}, []string{"tool", "outcome"}),
		processDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "filemaster_process_duration_seconds",
			Help:    "Wall time of a process request from validation to cleanup.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
		bytesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filemaster_bytes_saved_total",
			Help: "Bytes saved by completed transformations. Growth is not subtracted.",
		}),
		cleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filemaster_cleanup_failures_total",
			Help: "Temporary files that could not be removed.",
		}),
		downloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filemaster_downloads_total",
			Help: "Accounted downloads of processed files.",
		}),
	}
	for _, c := range []prometheus.Collector{m.filesProcessed, m.processDuration, m.bytesSaved, m.cleanupFailures, m.downloads} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeProcess(tool, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.filesProcessed.WithLabelValues(tool, outcome).Inc()
	m.processDuration.WithLabelValues(tool).Observe(seconds)
}

func (m *Metrics) addSaved(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesSaved.Add(float64(n))
}

func (m *Metrics) addCleanupFailures(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.cleanupFailures.Add(float64(n))
}

func (m *Metrics) incDownloads() {
	if m == nil {
		return
	}
	m.downloads.Inc()
}
