// Package cutoff derives pseudo-labels for training rows from per-feature
// quantile cutoffs. A row is kept (label 1) only when every feature passes
// its cutoff; the classifier is then trained to approximate that gate.
package cutoff

import (
	"errors"
	"fmt"
	"math"

	"filter-classifier/internal/dataset"
	"filter-classifier/internal/stats"
)

// ErrInvalidFraction is returned for discard fractions outside [0, 1].
var ErrInvalidFraction = errors.New("discard fraction must be in [0, 1]")

// Map holds one threshold per feature name.
type Map map[string]float64

// Compute returns the cutoff of every feature for discard fraction d.
// HigherIsBetter features use the d-quantile; LowerIsBetter features use the
// (1-d)-quantile.
func Compute(t *dataset.Table, d float64, q stats.Quantiler) (Map, error) {
	if math.IsNaN(d) || d < 0 || d > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidFraction, d)
	}
	if q == nil {
		q = stats.Linear
	}

	cutoffs := make(Map, t.NumFeatures())
	for j, name := range t.Names {
		p := d
		if t.Polarity[j] == dataset.LowerIsBetter {
			p = 1 - d
		}
		v, err := q.Quantile(t.Column(j), p)
		if err != nil {
			return nil, fmt.Errorf("cutoff for %s: %w", name, err)
		}
		cutoffs[name] = v
	}
	return cutoffs, nil
}

// Passes reports whether value passes cutoff under the given polarity.
func Passes(value, cutoff float64, polarity dataset.Polarity) bool {
	if polarity == dataset.LowerIsBetter {
		return value <= cutoff
	}
	return value >= cutoff
}

// Label assigns 1 to every row passing all cutoffs and 0 otherwise. The
// result is index-aligned with t.Rows.
func Label(t *dataset.Table, cutoffs Map) ([]int, error) {
	thresholds := make([]float64, t.NumFeatures())
	for j, name := range t.Names {
		c, ok := cutoffs[name]
		if !ok {
			return nil, fmt.Errorf("no cutoff for feature %s", name)
		}
		thresholds[j] = c
	}

	labels := make([]int, t.Len())
	for i, row := range t.Rows {
		label := 1
		for j, v := range row {
			if !Passes(v, thresholds[j], t.Polarity[j]) {
				label = 0
				break
			}
		}
		labels[i] = label
	}
	return labels, nil
}

// Positives counts the rows labelled 1.
func Positives(labels []int) int {
	var n int
	for _, l := range labels {
		n += l
	}
	return n
}
