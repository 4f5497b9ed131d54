package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics exposes counters/histograms for the emotional pipeline.
type PipelineMetrics struct {
	requestsTotal      *prometheus.CounterVec
	classifierLatency  *prometheus.HistogramVec
	crisisTotal        *prometheus.CounterVec
	policyDecisions    *prometheus.CounterVec
	vaultOperations    *prometheus.CounterVec
	crisisLaneWaiting  prometheus.Gauge
	routineLaneWaiting prometheus.Gauge
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whisperleaf",
			Subsystem: "pipeline",
			Name:      "requests_total",
			Help:      "Total pipeline requests",
		}, []string{"action", "outcome"}),
		classifierLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "whisperleaf",
			Subsystem: "pipeline",
			Name:      "classifier_latency_seconds",
			Help:      "Latency of mood classification",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		crisisTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whisperleaf",
			Subsystem: "pipeline",
			Name:      "crisis_assessments_total",
			Help:      "Crisis assessments by resulting risk level",
		}, []string{"risk_level"}),
		policyDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whisperleaf",
			Subsystem: "pipeline",
			Name:      "policy_decisions_total",
			Help:      "Policy decisions by action and outcome",
		}, []string{"action", "allowed"}),
		vaultOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whisperleaf",
			Subsystem: "vault",
			Name:      "operations_total",
			Help:      "Vault operations by kind and status",
		}, []string{"operation", "status"}),
		crisisLaneWaiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "whisperleaf",
			Subsystem: "dispatcher",
			Name:      "crisis_lane_waiting",
			Help:      "Requests waiting in the crisis lane",
		}),
		routineLaneWaiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "whisperleaf",
			Subsystem: "dispatcher",
			Name:      "routine_lane_waiting",
			Help:      "Requests waiting in the routine lane",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.requestsTotal,
		m.classifierLatency,
		m.crisisTotal,
		m.policyDecisions,
		m.vaultOperations,
		m.crisisLaneWaiting,
		m.routineLaneWaiting,
	)
	return m
}

func (m *PipelineMetrics) ObserveRequest(action, outcome string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(action, outcome).Inc()
}

func (m *PipelineMetrics) ObserveClassifierLatency(status string, seconds float64) {
	if m == nil {
		return
	}
	m.classifierLatency.WithLabelValues(status).Observe(seconds)
}

func (m *PipelineMetrics) ObserveCrisisAssessment(riskLevel string) {
	if m == nil {
		return
	}
	m.crisisTotal.WithLabelValues(riskLevel).Inc()
}

func (m *PipelineMetrics) ObservePolicyDecision(action string, allowed bool) {
	if m == nil {
		return
	}
	label := "false"
	if allowed {
		label = "true"
	}
	m.policyDecisions.WithLabelValues(action, label).Inc()
}

func (m *PipelineMetrics) ObserveVaultOperation(operation, status string) {
	if m == nil {
		return
	}
	m.vaultOperations.WithLabelValues(operation, status).Inc()
}

func (m *PipelineMetrics) SetCrisisLaneWaiting(n int) {
	if m == nil {
		return
	}
	m.crisisLaneWaiting.Set(float64(n))
}

func (m *PipelineMetrics) SetRoutineLaneWaiting(n int) {
	if m == nil {
		return
	}
	m.routineLaneWaiting.Set(float64(n))
}
