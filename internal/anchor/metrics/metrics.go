package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers chain submission and reconciliation. Methods are nil-safe.
type Metrics struct {
	Submissions       *prometheus.CounterVec
	Reconciled        *prometheus.CounterVec
	ReconcileDuration prometheus.Histogram
	PendingRecords    prometheus.Gauge
	GasPriceGwei      prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aip_anchor_submissions_total",
			Help: "Notarization transactions submitted, by outcome",
		}, []string{"outcome"}),
		Reconciled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aip_anchor_reconciled_total",
			Help: "Reconciliation results per record, by result",
		}, []string{"result"}),
		ReconcileDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "aip_anchor_reconcile_duration_seconds",
			Help:    "Duration of one reconciliation pass",
			Buckets: prometheus.DefBuckets,
		}),
		PendingRecords: f.NewGauge(prometheus.GaugeOpts{
			Name: "aip_anchor_due_records",
			Help: "Pending records picked up by the last reconciliation pass",
		}),
		GasPriceGwei: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "aip_anchor_gas_price_gwei",
			Help:    "Effective gas price of mined notarization transactions",
			Buckets: []float64{1, 5, 10, 30, 50, 100, 200, 500},
		}),
	}
}

func (m *Metrics) IncrementSubmission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementReconciled(result string) {
	if m == nil {
		return
	}
	m.Reconciled.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveReconcile(start time.Time, due int) {
	if m == nil {
		return
	}
	m.ReconcileDuration.Observe(time.Since(start).Seconds())
	m.PendingRecords.Set(float64(due))
}

func (m *Metrics) ObserveGasPrice(gwei float64) {
	if m == nil {
		return
	}
	m.GasPriceGwei.Observe(gwei)
}
