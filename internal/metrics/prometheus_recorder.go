package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "towerbuild"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	holders      *prom.GaugeVec
	acquisitions *prom.CounterVec
	wait         *prom.HistogramVec
	taskDuration prom.Histogram
	phaseDur     prom.Histogram
	phases       *prom.CounterVec
	sinkErrors   *prom.CounterVec
}

// workBuckets cover simulated work from a few milliseconds up to a couple
// of seconds, the range one task step occupies.
var workBuckets = prom.ExponentialBuckets(0.005, 2, 10)

// phaseBuckets span 0.5s to about four minutes; a floor waits on every
// apartment and on contended resources.
var phaseBuckets = prom.ExponentialBuckets(0.5, 2, 10)

// NewPrometheusRecorder constructs and registers the simulator metrics on reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		holders: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "resource_holders",
			Help:      "Current number of holders per shared resource",
		}, []string{"resource"}),
		acquisitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "resource_acquisitions_total",
			Help:      "Admissions granted per shared resource",
		}, []string{"resource"}),
		wait: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "resource_wait_seconds",
			Help:      "Time spent blocked before admission",
			Buckets:   prom.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"resource"}),
		taskDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Wall time of one apartment task",
			Buckets:   workBuckets,
		}),
		phaseDur: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Wall time of one floor",
			Buckets:   phaseBuckets,
		}),
		phases: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "phases_total",
			Help:      "Completed floors by outcome",
		}, []string{"outcome"}),
		sinkErrors: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "journal_sink_errors_total",
			Help:      "Event journal write failures per sink",
		}, []string{"sink"}),
	}
	reg.MustRegister(pr.holders, pr.acquisitions, pr.wait, pr.taskDuration, pr.phaseDur, pr.phases, pr.sinkErrors)
	return pr
}

// ObserveAcquire counts the admission and moves the holders gauge by one.
// The holders snapshot is not written to the gauge: concurrent callers may
// report it out of order.
func (p *PrometheusRecorder) ObserveAcquire(resource string, waited time.Duration, _ int) {
	if p == nil {
		return
	}
	p.acquisitions.WithLabelValues(resource).Inc()
	p.wait.WithLabelValues(resource).Observe(waited.Seconds())
	p.holders.WithLabelValues(resource).Inc()
}

func (p *PrometheusRecorder) ObserveRelease(resource string, _ int) {
	if p == nil {
		return
	}
	p.holders.WithLabelValues(resource).Dec()
}

func (p *PrometheusRecorder) ObserveTaskDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.taskDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObservePhase(d time.Duration, outcome PhaseOutcome) {
	if p == nil {
		return
	}
	p.phaseDur.Observe(d.Seconds())
	p.phases.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncSinkError(sink string) {
	if p == nil {
		return
	}
	p.sinkErrors.WithLabelValues(sink).Inc()
}
