// Package ml provides the binary classifiers used to separate clean from
// noisy sentence pairs. It defines the Trainer and Classifier capabilities
// consumed by the selection loop and ships an L2-regularised logistic
// regression fitted with gonum's optimizers.
package ml

import (
	"errors"
	"fmt"

	"filter-classifier/internal/dataset"
)

// ErrLabelLength is returned when a label vector is not aligned with its table.
var ErrLabelLength = errors.New("label count does not match row count")

// Classifier is a fitted binary model bound to the feature order it was
// trained on. Tables passed to it must have exactly that column order.
type Classifier interface {
	// Features returns the column order the model was trained with.
	Features() []string

	// PredictProba returns the positive-class probability of every row.
	PredictProba(t *dataset.Table) ([]float64, error)

	// Predict returns the predicted class (0 or 1) of every row.
	Predict(t *dataset.Table) ([]int, error)
}

// Trainer fits a Classifier on a table and index-aligned 0/1 labels.
type Trainer interface {
	Fit(t *dataset.Table, labels []int) (Classifier, error)
}

// TrainerFunc adapts a function to Trainer.
type TrainerFunc func(t *dataset.Table, labels []int) (Classifier, error)

func (f TrainerFunc) Fit(t *dataset.Table, labels []int) (Classifier, error) {
	return f(t, labels)
}

// MetricsInterface defines metrics methods needed by trainers
type MetricsInterface interface {
	FitsInc()
	FitFailuresInc()
	FitDurationObserve(float64)
}

// DegenerateLabelsError reports a label vector with a single class, on which
// no classifier can be fitted.
type DegenerateLabelsError struct {
	Class int
	Rows  int
}

func (e *DegenerateLabelsError) Error() string {
	if e.Rows == 0 {
		return "degenerate labels: no rows to train on"
	}
	return fmt.Sprintf("degenerate labels: all %d labels are %d", e.Rows, e.Class)
}

// CheckLabels validates a label vector against a table and reports a
// DegenerateLabelsError when it has fewer than two classes.
func CheckLabels(t *dataset.Table, labels []int) error {
	if len(labels) != t.Len() {
		return fmt.Errorf("%w: %d labels for %d rows", ErrLabelLength, len(labels), t.Len())
	}
	if len(labels) == 0 {
		return &DegenerateLabelsError{}
	}

	var pos int
	for i, l := range labels {
		switch l {
		case 0:
		case 1:
			pos++
		default:
			return fmt.Errorf("label %d at row %d is not 0 or 1", l, i)
		}
	}

	switch pos {
	case 0:
		return &DegenerateLabelsError{Class: 0, Rows: len(labels)}
	case len(labels):
		return &DegenerateLabelsError{Class: 1, Rows: len(labels)}
	}
	return nil
}
