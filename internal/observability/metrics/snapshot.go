package metrics

import (
	"math"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// ClassifierLatencySnapshot summarizes classifier latency for the health
// endpoint.
type ClassifierLatencySnapshot struct {
	SampleCount uint64  `json:"sample_count"`
	P50Seconds  float64 `json:"p50_seconds"`
	P95Seconds  float64 `json:"p95_seconds"`
}

// GatherClassifierLatency computes p50/p95 of successful classification
// latency from a prometheus gatherer. Returns a zero snapshot when no
// samples have been observed.
func GatherClassifierLatency(g prometheus.Gatherer) ClassifierLatencySnapshot {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	mfs, err := g.Gather()
	if err != nil {
		return ClassifierLatencySnapshot{}
	}

	var family *dto.MetricFamily
	for _, mf := range mfs {
		if mf != nil && mf.GetName() == "whisperleaf_pipeline_classifier_latency_seconds" {
			family = mf
			break
		}
	}
	if family == nil {
		return ClassifierLatencySnapshot{}
	}

	cumulativeByUpper := map[float64]uint64{}
	var sampleCount uint64

	for _, metric := range family.Metric {
		if metric == nil || !hasLabel(metric, "status", "ok") {
			continue
		}
		h := metric.GetHistogram()
		if h == nil {
			continue
		}
		sampleCount += h.GetSampleCount()
		for _, bucket := range h.Bucket {
			if bucket == nil {
				continue
			}
			cumulativeByUpper[bucket.GetUpperBound()] += bucket.GetCumulativeCount()
		}
	}

	uppers := make([]float64, 0, len(cumulativeByUpper))
	for upper := range cumulativeByUpper {
		uppers = append(uppers, upper)
	}
	sort.Float64s(uppers)

	return ClassifierLatencySnapshot{
		SampleCount: sampleCount,
		P50Seconds:  histogramQuantile(0.5, sampleCount, uppers, cumulativeByUpper),
		P95Seconds:  histogramQuantile(0.95, sampleCount, uppers, cumulativeByUpper),
	}
}

func hasLabel(metric *dto.Metric, name, value string) bool {
	for _, lp := range metric.Label {
		if lp == nil {
			continue
		}
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}

func histogramQuantile(q float64, total uint64, uppers []float64, cumulativeByUpper map[float64]uint64) float64 {
	if total == 0 || q <= 0 {
		return 0
	}
	if q >= 1 {
		for i := len(uppers) - 1; i >= 0; i-- {
			if !math.IsInf(uppers[i], 1) {
				return uppers[i]
			}
		}
		return 0
	}

	target := q * float64(total)
	for _, upper := range uppers {
		if float64(cumulativeByUpper[upper]) >= target {
			if math.IsInf(upper, 1) {
				continue
			}
			return upper
		}
	}
	return 0
}
