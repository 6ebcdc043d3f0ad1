package metrics

import "github.com/prometheus/client_golang/prometheus"

// AvailabilityMetrics exposes counters/histograms for availability lookups.
type AvailabilityMetrics struct {
	providerCalls   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	queries         *prometheus.CounterVec
	slotsResolved   prometheus.Histogram
	diagnoses       *prometheus.CounterVec
	daysScanned     prometheus.Counter
}

func NewAvailabilityMetrics(reg prometheus.Registerer) *AvailabilityMetrics {
	m := &AvailabilityMetrics{
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "availability",
			Name:      "provider_calls_total",
			Help:      "Scheduling provider calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "salon",
			Subsystem: "availability",
			Name:      "provider_latency_seconds",
			Help:      "Latency of scheduling provider calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "availability",
			Name:      "queries_total",
			Help:      "Single-date availability queries by outcome",
		}, []string{"outcome"}),
		slotsResolved: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "salon",
			Subsystem: "availability",
			Name:      "slots_resolved",
			Help:      "Number of group slots found per query",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
		}),
		diagnoses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "availability",
			Name:      "diagnoses_total",
			Help:      "Explanations returned when a date has no group slot",
		}, []string{"reason"}),
		daysScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "availability",
			Name:      "search_days_scanned_total",
			Help:      "Dates evaluated by next-available-date searches",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.providerCalls, m.providerLatency, m.queries, m.slotsResolved, m.diagnoses, m.daysScanned)
	return m
}

func (m *AvailabilityMetrics) ObserveProviderCall(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.providerCalls.WithLabelValues(operation, outcome).Inc()
	m.providerLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *AvailabilityMetrics) ObserveQuery(outcome string, slots int) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(outcome).Inc()
	m.slotsResolved.Observe(float64(slots))
}

func (m *AvailabilityMetrics) ObserveDiagnosis(reason string) {
	if m == nil {
		return
	}
	m.diagnoses.WithLabelValues(reason).Inc()
}

func (m *AvailabilityMetrics) AddDaysScanned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.daysScanned.Add(float64(n))
}
