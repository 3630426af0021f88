package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics provides observability for the verification workflow.
// Methods are nil-safe so services can run without metrics in tests.
type Metrics struct {
	RequestsOpened   prometheus.Counter
	Decisions        *prometheus.CounterVec
	DecisionConflict prometheus.Counter
	LevelAdvanced    *prometheus.CounterVec
	ChecksUpdated    *prometheus.CounterVec
	DecideDuration   prometheus.Histogram
	AnchorDispatch   *prometheus.CounterVec
}

// New registers the workflow metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		RequestsOpened: f.NewCounter(prometheus.CounterOpts{
			Name: "aip_verification_requests_opened_total",
			Help: "Total number of verification requests opened",
		}),
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aip_verification_decisions_total",
			Help: "Decisions recorded, by decision value",
		}, []string{"decision"}),
		DecisionConflict: f.NewCounter(prometheus.CounterOpts{
			Name: "aip_verification_decision_conflicts_total",
			Help: "Decisions rejected because the request was already decided",
		}),
		LevelAdvanced: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aip_project_level_advanced_total",
			Help: "Project trust level advances, by target level",
		}, []string{"to_level"}),
		ChecksUpdated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aip_verification_checks_updated_total",
			Help: "Check results recorded, by check type and status",
		}, []string{"check_type", "status"}),
		DecideDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "aip_verification_decide_duration_seconds",
			Help:    "Duration of Decide operations including the transaction",
			Buckets: durationBuckets,
		}),
		AnchorDispatch: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aip_verification_anchor_dispatch_total",
			Help: "Post-commit notarization attempts, by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncrementOpened() {
	if m == nil {
		return
	}
	m.RequestsOpened.Inc()
}

func (m *Metrics) IncrementDecision(decision string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) IncrementConflict() {
	if m == nil {
		return
	}
	m.DecisionConflict.Inc()
}

func (m *Metrics) IncrementLevelAdvanced(toLevel string) {
	if m == nil {
		return
	}
	m.LevelAdvanced.WithLabelValues(toLevel).Inc()
}

func (m *Metrics) IncrementCheckUpdated(checkType, status string) {
	if m == nil {
		return
	}
	m.ChecksUpdated.WithLabelValues(checkType, status).Inc()
}

// ObserveDecide records the duration of a Decide call started at start.
func (m *Metrics) ObserveDecide(start time.Time) {
	if m == nil {
		return
	}
	m.DecideDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementAnchorDispatch(outcome string) {
	if m == nil {
		return
	}
	m.AnchorDispatch.WithLabelValues(outcome).Inc()
}
