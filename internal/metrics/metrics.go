// Package metrics provides Prometheus metrics for the filter classifier.
// It counts sweep steps and model fits, tracks the criterion values seen
// during model selection, and exports everything to a node-exporter
// textfile at the end of a run.
package metrics

import (
	"fmt"

	"filter-classifier/internal/selection"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "filter_classifier"

// Metrics holds all Prometheus metrics for a classifier run.
type Metrics struct {
	// Sweep metrics
	SweepSteps          prometheus.Counter   // Sweep steps evaluated, including skipped ones
	SkippedSteps        prometheus.Counter   // Steps skipped because their labels had one class
	StepFailures        prometheus.Counter   // Steps that aborted the sweep
	CriterionValue      *prometheus.GaugeVec // Criterion value of the latest scored step
	BestValue           prometheus.Gauge     // Criterion value of the selected model
	BestDiscardFraction prometheus.Gauge     // Discard fraction of the selected model
	PositiveFraction    prometheus.Histogram // Share of training rows labelled clean per step

	// Trainer metrics
	Fits        prometheus.Counter   // Successful classifier fits
	FitFailures prometheus.Counter   // Failed classifier fits
	FitDuration prometheus.Histogram // Duration of classifier fits

	// Output metrics
	RowsScored prometheus.Counter // Target rows written to the probability file
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		SweepSteps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_steps_total",
			Help:      "Total number of discard fractions evaluated",
		}),
		SkippedSteps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_skipped_steps_total",
			Help:      "Total number of sweep steps skipped for single-class labels",
		}),
		StepFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_step_failures_total",
			Help:      "Total number of sweep steps that failed",
		}),
		CriterionValue: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "criterion_value",
			Help:      "Criterion value of the most recently scored model",
		}, []string{"criterion"}),
		BestValue: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_criterion_value",
			Help:      "Criterion value of the selected model",
		}),
		BestDiscardFraction: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_discard_fraction",
			Help:      "Discard fraction of the selected model",
		}),
		PositiveFraction: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "positive_label_fraction",
			Help:      "Share of training rows labelled clean per sweep step",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		Fits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fits_total",
			Help:      "Total number of classifier fits",
		}),
		FitFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fit_failures_total",
			Help:      "Total number of failed classifier fits",
		}),
		FitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fit_duration_seconds",
			Help:      "Classifier fit duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		RowsScored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_scored_total",
			Help:      "Total number of target rows scored",
		}),
	}
}

// OnStep implements selection.Observer.
func (m *Metrics) OnStep(ev selection.StepEvent) {
	m.SweepSteps.Inc()

	switch {
	case ev.Skipped:
		m.SkippedSteps.Inc()
		return
	case ev.Err != nil:
		m.StepFailures.Inc()
		return
	}

	if ev.Rows > 0 {
		m.PositiveFraction.Observe(float64(ev.Positives) / float64(ev.Rows))
	}
	m.CriterionValue.WithLabelValues(ev.Criterion.String()).Set(ev.Value)
	if ev.Improved {
		m.BestValue.Set(ev.Value)
		m.BestDiscardFraction.Set(ev.DiscardFraction)
	}
}

// WriteTextfile dumps everything gathered by g to path in the Prometheus
// text format, for the node exporter's textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
