// Package scoring implements the fitness criteria used to compare candidate
// classifiers: held-out ROC AUC, and two penalised-fit scores computed on
// the training table.
package scoring

import (
	"errors"
	"fmt"
	"math"

	"filter-classifier/internal/common"
	"filter-classifier/internal/dataset"
	"filter-classifier/internal/ml"
	"filter-classifier/internal/stats"
)

// SSEOffset is added to the sum of squared residuals so the logarithm in
// AIC and BIC stays finite for a perfect fit.
const SSEOffset = 0.01

// ErrMissingHeldOutData is returned when the ROC AUC criterion is used
// without a held-out table and labels.
var ErrMissingHeldOutData = errors.New("roc_auc criterion requires held-out scores with labels")

// Criterion selects how candidate models are compared.
type Criterion int

const (
	ROCAUC Criterion = iota
	AIC
	BIC
)

// ParseCriterion maps a configuration name to a Criterion.
func ParseCriterion(name string) (Criterion, error) {
	switch name {
	case common.CriterionROCAUC:
		return ROCAUC, nil
	case common.CriterionAIC:
		return AIC, nil
	case common.CriterionBIC:
		return BIC, nil
	default:
		return 0, fmt.Errorf("unknown criterion %q", name)
	}
}

func (c Criterion) String() string {
	switch c {
	case ROCAUC:
		return common.CriterionROCAUC
	case AIC:
		return common.CriterionAIC
	case BIC:
		return common.CriterionBIC
	default:
		return fmt.Sprintf("Criterion(%d)", int(c))
	}
}

// Maximize reports whether larger values of the criterion are better.
func (c Criterion) Maximize() bool {
	return c == ROCAUC
}

// Better reports whether candidate strictly improves on incumbent.
func (c Criterion) Better(candidate, incumbent float64) bool {
	if c.Maximize() {
		return candidate > incumbent
	}
	return candidate < incumbent
}

// Scorer evaluates a fitted classifier. Train and Labels are the training
// table and the pseudo-labels the classifier was fitted on; HeldOut and
// HeldOutLabels are only read by ROCAUC.
type Scorer struct {
	Criterion     Criterion
	Train         *dataset.Table
	Labels        []int
	HeldOut       *dataset.Table
	HeldOutLabels []int
	AUC           stats.AUCFunc
}

// Score computes the criterion value of model.
func (s *Scorer) Score(model ml.Classifier) (float64, error) {
	switch s.Criterion {
	case ROCAUC:
		return s.rocAUC(model)
	case AIC:
		sse, err := SSE(model, s.Train, s.Labels)
		if err != nil {
			return 0, err
		}
		return AICValue(s.Train.NumFeatures(), sse), nil
	case BIC:
		sse, err := SSE(model, s.Train, s.Labels)
		if err != nil {
			return 0, err
		}
		return BICValue(s.Train.Len(), s.Train.NumFeatures(), sse), nil
	default:
		return 0, fmt.Errorf("unknown criterion %v", s.Criterion)
	}
}

func (s *Scorer) rocAUC(model ml.Classifier) (float64, error) {
	if s.HeldOut == nil || s.HeldOutLabels == nil {
		return 0, ErrMissingHeldOutData
	}
	auc := s.AUC
	if auc == nil {
		auc = stats.AUC
	}

	probs, err := model.PredictProba(s.HeldOut)
	if err != nil {
		return 0, fmt.Errorf("predict held-out: %w", err)
	}
	return DiscriminationScore(s.HeldOutLabels, probs, auc)
}

// DiscriminationScore returns the larger of the AUC of the positive-class
// probabilities and the AUC of the negative-class probabilities.
func DiscriminationScore(labels []int, positive []float64, auc stats.AUCFunc) (float64, error) {
	negative := make([]float64, len(positive))
	for i, p := range positive {
		negative[i] = 1 - p
	}

	aucNeg, err := auc(labels, negative)
	if err != nil {
		return 0, fmt.Errorf("auc of negative class: %w", err)
	}
	aucPos, err := auc(labels, positive)
	if err != nil {
		return 0, fmt.Errorf("auc of positive class: %w", err)
	}
	return math.Max(aucNeg, aucPos), nil
}

// SSE is the sum of squared differences between the predicted class and
// the labels on t, plus SSEOffset.
func SSE(model ml.Classifier, t *dataset.Table, labels []int) (float64, error) {
	if len(labels) != t.Len() {
		return 0, fmt.Errorf("%w: %d labels for %d rows", ml.ErrLabelLength, len(labels), t.Len())
	}
	pred, err := model.Predict(t)
	if err != nil {
		return 0, fmt.Errorf("predict training: %w", err)
	}

	var sse float64
	for i, p := range pred {
		r := float64(labels[i] - p)
		sse += r * r
	}
	return sse + SSEOffset, nil
}

// AICValue is 2k − 2·ln(SSE) for k features.
func AICValue(k int, sse float64) float64 {
	return 2*float64(k) - 2*math.Log(sse)
}

// BICValue is ln(n)·k − 2·ln(SSE) for n rows and k features.
func BICValue(n, k int, sse float64) float64 {
	return math.Log(float64(n))*float64(k) - 2*math.Log(sse)
}
