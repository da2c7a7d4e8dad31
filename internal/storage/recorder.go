package storage

import "filter-classifier/internal/selection"

// StepRecorder collects sweep steps for a Run. It implements
// selection.Observer.
type StepRecorder struct {
	Steps []Step
}

func (r *StepRecorder) OnStep(ev selection.StepEvent) {
	r.Steps = append(r.Steps, StepFromEvent(ev))
}

// StepFromEvent converts a sweep event to its persisted form.
func StepFromEvent(ev selection.StepEvent) Step {
	step := Step{
		Step:            ev.Step,
		DiscardFraction: ev.DiscardFraction,
		Value:           ev.Value,
		Rows:            ev.Rows,
		Positives:       ev.Positives,
		Improved:        ev.Improved,
		Skipped:         ev.Skipped,
	}
	if ev.Err != nil {
		step.Error = ev.Err.Error()
	}
	return step
}
