// Package metrics exposes Prometheus instrumentation for archive loads.
//
// All methods are safe to call on a nil *Metrics, which disables recording.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ptimport"

// Load results.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics holds the collectors updated while loading archives.
type Metrics struct {
	RecordsRead  prometheus.Counter
	BytesRead    prometheus.Counter
	StorageHits  prometheus.Counter
	StorageMiss  prometheus.Counter
	Loads        *prometheus.CounterVec
	LoadDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RecordsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_read_total",
			Help:      "Number of archive records fetched.",
		}),
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_bytes_read_total",
			Help:      "Payload bytes fetched from archive records.",
		}),
		StorageHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_cache_hits_total",
			Help:      "Tensor storages served from the deduplication cache.",
		}),
		StorageMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_cache_misses_total",
			Help:      "Tensor storages fetched from the archive.",
		}),
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Archive loads by result.",
		}, []string{"result"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Time spent deserializing an archive.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.RecordsRead, m.BytesRead, m.StorageHits, m.StorageMiss, m.Loads, m.LoadDuration)
	}
	return m
}

// ObserveRecord counts a fetched record of n bytes.
func (m *Metrics) ObserveRecord(n int) {
	if m == nil {
		return
	}
	m.RecordsRead.Inc()
	m.BytesRead.Add(float64(n))
}

// ObserveStorage counts a storage lookup.
func (m *Metrics) ObserveStorage(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.StorageHits.Inc()
	} else {
		m.StorageMiss.Inc()
	}
}

// ObserveLoad records the outcome and duration of a load.
func (m *Metrics) ObserveLoad(start time.Time, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	m.Loads.WithLabelValues(result).Inc()
	m.LoadDuration.Observe(time.Since(start).Seconds())
}
