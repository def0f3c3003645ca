package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var HistogramBuckets = []float64{
	// --- Fast responses (0 - 500ms) ---
	25, 50, 75, 100, 150, 200, 300, 400, 500,

	// --- Medium responses around 700ms (500ms - 2s) ---
	750, 1000, 1250, 1500, 1750, 2000,

	// --- Slow responses (2s - 15s) ---
	2500, 3000, 4000, 5000, 7500, 10000, 15000,

	// --- Extended range: covers 60000ms+ (15s - 75s) ---
	20000,  // 20s
	30000,  // 30s
	45000,  // 45s
	60000,  // 60s
	75000,  // 75s
	90000,  // 90s
	120000, // 120s
}

// Metric is a definition for the name, description, type, ID, and
// prometheus.Collector type (i.e. CounterVec, Summary, etc) of each metric
type Metric struct {
	MetricCollector prometheus.Collector
	ID              string
	Name            string
	Description     string
	Type            string
	Args            []string
}

// NewMetric associates prometheus.Collector based on Metric.Type
func NewMetric(m *Metric, subsystem string) prometheus.Collector {
	var metric prometheus.Collector
	switch m.Type {
	case "counter_vec":
		metric = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
			},
			m.Args,
		)
	case "counter":
		metric = prometheus.NewCounter(
			prometheus.CounterOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
			},
		)
	case "gauge_vec":
		metric = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
			},
			m.Args,
		)
	case "gauge":
		metric = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
			},
		)
	case "histogram_vec":
		metric = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
				Buckets:   HistogramBuckets,
			},
			m.Args,
		)
	case "histogram":
		metric = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
				Buckets:   HistogramBuckets,
			},
		)
	case "summary_vec":
		metric = prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
			},
			m.Args,
		)
	case "summary":
		metric = prometheus.NewSummary(
			prometheus.SummaryOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
			},
		)
	}
	return metric
}

const (
	RefererKey = "X-Referer"
)

// Domain counters. Registered once at package init; services record through
// the Observe* helpers so they stay decoupled from prometheus types.
var (
	paymentTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "paygate",
			Name:      "payment_transitions_total",
			Help:      "Ledger transitions partitioned by edge and outcome.",
		},
		[]string{"from", "to", "outcome"},
	)
	webhookCallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "paygate",
			Name:      "webhook_callbacks_total",
			Help:      "Inbound provider callbacks partitioned by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)
	fulfillments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "paygate",
			Name:      "fulfillments_total",
			Help:      "Fulfillment attempts partitioned by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	sweeperCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Subsystem: "paygate",
			Name:      "sweeper_cycles_total",
			Help:      "Completed reconciliation sweeps.",
		},
	)
)

func init() {
	prometheus.MustRegister(paymentTransitions, webhookCallbacks, fulfillments, sweeperCycles)
}

func ObservePaymentTransition(from, to, outcome string) {
	paymentTransitions.WithLabelValues(from, to, outcome).Inc()
}

func ObserveWebhookCallback(provider, outcome string) {
	webhookCallbacks.WithLabelValues(provider, outcome).Inc()
}

func ObserveFulfillment(kind, outcome string) {
	fulfillments.WithLabelValues(kind, outcome).Inc()
}

func ObserveSweeperCycle() {
	sweeperCycles.Inc()
}
