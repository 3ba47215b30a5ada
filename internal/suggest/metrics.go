package suggest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	eventDeduplicated   = "deduplicated"
	eventShortCircuited = "short_circuited"
	eventQueried        = "queried"
	eventDiscarded      = "discarded"
	eventDegraded       = "degraded"
	eventDelivered      = "delivered"
)

// Metrics counts what the pipeline did with each input.
type Metrics struct {
	events        *prometheus.CounterVec
	queryDuration prometheus.Histogram
}

// NewMetrics creates the pipeline metrics and registers them with registry.
func NewMetrics(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "shoku",
				Subsystem: "suggest",
				Name:      "events_total",
				Help:      "Suggestion pipeline events by kind",
			},
			[]string{"event"},
		),
		queryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "shoku",
				Subsystem: "suggest",
				Name:      "query_duration_seconds",
				Help:      "Catalog suggestion query latency",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
		),
	}
	for _, c := range []prometheus.Collector{m.events, m.queryDuration} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) record(event string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(event).Inc()
}

func (m *Metrics) observeQuery(d time.Duration) {
	if m == nil {
		return
	}
	m.queryDuration.Observe(d.Seconds())
}
