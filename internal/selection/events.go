package selection

import (
	"filter-classifier/internal/scoring"

	"github.com/rs/zerolog"
)

// StepEvent describes the outcome of one sweep step.
type StepEvent struct {
	Step            int
	Steps           int
	DiscardFraction float64
	Criterion       scoring.Criterion
	Value           float64
	Rows            int
	Positives       int
	Improved        bool
	Skipped         bool
	Err             error
}

// Observer receives step events in sweep order.
type Observer interface {
	OnStep(StepEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(StepEvent)

func (f ObserverFunc) OnStep(ev StepEvent) {
	f(ev)
}

// Recorder keeps every event it observes.
type Recorder struct {
	Events []StepEvent
}

func (r *Recorder) OnStep(ev StepEvent) {
	r.Events = append(r.Events, ev)
}

// LogObserver writes each step as a structured log line.
func LogObserver(logger zerolog.Logger) Observer {
	return ObserverFunc(func(ev StepEvent) {
		switch {
		case ev.Skipped:
			logger.Warn().
				Err(ev.Err).
				Int("step", ev.Step+1).
				Int("steps", ev.Steps).
				Float64("discard_fraction", ev.DiscardFraction).
				Msg("Skipping discard threshold")
		case ev.Err != nil:
			logger.Error().
				Err(ev.Err).
				Int("step", ev.Step+1).
				Int("steps", ev.Steps).
				Float64("discard_fraction", ev.DiscardFraction).
				Msg("Sweep step failed")
		default:
			logger.Info().
				Int("step", ev.Step+1).
				Int("steps", ev.Steps).
				Float64("discard_fraction", ev.DiscardFraction).
				Int("positives", ev.Positives).
				Int("rows", ev.Rows).
				Str("criterion", ev.Criterion.String()).
				Float64("value", ev.Value).
				Bool("improved", ev.Improved).
				Msg("Model trained")
		}
	})
}
