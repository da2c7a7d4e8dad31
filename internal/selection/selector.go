// Package selection sweeps discard fractions to find the classifier that
// best separates clean from noisy pairs.
//
// Each sweep step derives quantile cutoffs from the training table, turns
// them into pseudo-labels, fits a classifier and scores it. The best
// candidate under the chosen criterion is kept; on exact ties the earlier
// step wins. Progress is reported to Observers, one StepEvent per step.
package selection

import (
	"errors"
	"fmt"

	"filter-classifier/internal/cutoff"
	"filter-classifier/internal/dataset"
	"filter-classifier/internal/ml"
	"filter-classifier/internal/scoring"
	"filter-classifier/internal/stats"
)

// ErrNoCandidate is returned when the sweep produced no scored model,
// either because it was empty or because every step was skipped.
var ErrNoCandidate = errors.New("no candidate model")

// DegeneratePolicy decides what happens when a sweep step yields labels of
// a single class.
type DegeneratePolicy int

const (
	// SkipDegenerate reports the step as skipped and continues the sweep.
	SkipDegenerate DegeneratePolicy = iota
	// AbortDegenerate stops the sweep with the DegenerateLabelsError.
	AbortDegenerate
)

// ParseDegeneratePolicy maps a configuration name to a policy.
func ParseDegeneratePolicy(name string) (DegeneratePolicy, error) {
	switch name {
	case "skip", "":
		return SkipDegenerate, nil
	case "abort":
		return AbortDegenerate, nil
	default:
		return 0, fmt.Errorf("unknown degenerate policy %q", name)
	}
}

// Backend bundles the swappable numeric capabilities used by the sweep.
type Backend struct {
	Trainer   ml.Trainer
	Quantiler stats.Quantiler
	AUC       stats.AUCFunc
}

// Config describes one model selection.
type Config struct {
	Train            *dataset.Table
	HeldOut          *dataset.Table
	HeldOutLabels    []int
	DiscardFractions []float64
	Criterion        scoring.Criterion
	OnDegenerate     DegeneratePolicy
}

// Candidate is a scored model from one sweep step.
type Candidate struct {
	Model           ml.Classifier
	Value           float64
	DiscardFraction float64
}

// Selector runs the sweep. A Selector may be run more than once; every run
// starts from scratch.
type Selector struct {
	cfg       Config
	backend   Backend
	observers []Observer
}

// Option configures a Selector.
type Option func(*Selector)

// WithObserver registers an observer for step events.
func WithObserver(o Observer) Option {
	return func(s *Selector) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// New validates the configuration and returns a Selector. It fails with
// ErrMissingHeldOutData before any work is done when the ROC AUC criterion
// lacks usable held-out data.
func New(cfg Config, backend Backend, opts ...Option) (*Selector, error) {
	if cfg.Train == nil {
		return nil, errors.New("training table is required")
	}
	if backend.Trainer == nil {
		backend.Trainer = ml.NewLogisticRegression()
	}
	if backend.Quantiler == nil {
		backend.Quantiler = stats.Linear
	}
	if backend.AUC == nil {
		backend.AUC = stats.AUC
	}

	if cfg.Criterion == scoring.ROCAUC {
		heldOut, err := checkHeldOut(cfg)
		if err != nil {
			return nil, err
		}
		cfg.HeldOut = heldOut
	}

	s := &Selector{cfg: cfg, backend: backend}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func checkHeldOut(cfg Config) (*dataset.Table, error) {
	if cfg.HeldOut == nil {
		return nil, scoring.ErrMissingHeldOutData
	}
	if len(cfg.HeldOutLabels) != cfg.HeldOut.Len() {
		return nil, fmt.Errorf("%w: %d labels for %d held-out rows",
			scoring.ErrMissingHeldOutData, len(cfg.HeldOutLabels), cfg.HeldOut.Len())
	}
	if pos := cutoff.Positives(cfg.HeldOutLabels); pos == 0 || pos == len(cfg.HeldOutLabels) {
		return nil, fmt.Errorf("%w: held-out labels contain a single class", scoring.ErrMissingHeldOutData)
	}

	heldOut, err := cfg.HeldOut.Reorder(cfg.Train.Names)
	if err != nil {
		return nil, fmt.Errorf("held-out scores: %w", err)
	}
	return heldOut, nil
}

// Run performs the sweep and returns the best candidate.
func (s *Selector) Run() (Candidate, error) {
	var (
		best  Candidate
		found bool
	)

	for step, d := range s.cfg.DiscardFractions {
		ev := StepEvent{
			Step:            step,
			Steps:           len(s.cfg.DiscardFractions),
			DiscardFraction: d,
			Criterion:       s.cfg.Criterion,
		}

		cand, positives, err := s.evaluate(d)
		ev.Positives = positives
		ev.Rows = s.cfg.Train.Len()

		if err != nil {
			var dle *ml.DegenerateLabelsError
			if errors.As(err, &dle) && s.cfg.OnDegenerate == SkipDegenerate {
				ev.Skipped = true
				ev.Err = err
				s.emit(ev)
				continue
			}
			ev.Err = err
			s.emit(ev)
			return Candidate{}, fmt.Errorf("discard fraction %v: %w", d, err)
		}

		ev.Value = cand.Value
		if !found || s.cfg.Criterion.Better(cand.Value, best.Value) {
			best = cand
			found = true
			ev.Improved = true
		}
		s.emit(ev)
	}

	if !found {
		return Candidate{}, ErrNoCandidate
	}
	return best, nil
}

// evaluate runs cutoffs, labelling, fitting and scoring for one fraction.
func (s *Selector) evaluate(d float64) (Candidate, int, error) {
	cutoffs, err := cutoff.Compute(s.cfg.Train, d, s.backend.Quantiler)
	if err != nil {
		return Candidate{}, 0, err
	}
	labels, err := cutoff.Label(s.cfg.Train, cutoffs)
	if err != nil {
		return Candidate{}, 0, err
	}
	positives := cutoff.Positives(labels)

	model, err := s.backend.Trainer.Fit(s.cfg.Train, labels)
	if err != nil {
		return Candidate{}, positives, err
	}

	scorer := &scoring.Scorer{
		Criterion:     s.cfg.Criterion,
		Train:         s.cfg.Train,
		Labels:        labels,
		HeldOut:       s.cfg.HeldOut,
		HeldOutLabels: s.cfg.HeldOutLabels,
		AUC:           s.backend.AUC,
	}
	value, err := scorer.Score(model)
	if err != nil {
		return Candidate{}, positives, err
	}

	return Candidate{Model: model, Value: value, DiscardFraction: d}, positives, nil
}

func (s *Selector) emit(ev StepEvent) {
	for _, o := range s.observers {
		o.OnStep(ev)
	}
}
