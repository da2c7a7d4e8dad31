package stats

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// ErrSingleClass is returned when an AUC is requested for labels that
// contain only one class.
var ErrSingleClass = errors.New("labels contain a single class")

// AUCFunc computes the area under the ROC curve of scores against 0/1 labels.
type AUCFunc func(labels []int, scores []float64) (float64, error)

// AUC computes the ROC AUC with gonum. Tied scores share one cutoff, so a
// tie between a positive and a negative counts as half a correct ordering.
func AUC(labels []int, scores []float64) (float64, error) {
	if len(labels) != len(scores) {
		return 0, fmt.Errorf("have %d labels and %d scores", len(labels), len(scores))
	}

	var pos, neg int
	classes := make([]bool, len(labels))
	for i, l := range labels {
		switch l {
		case 1:
			classes[i] = true
			pos++
		case 0:
			neg++
		default:
			return 0, fmt.Errorf("label %d at index %d is not 0 or 1", l, i)
		}
	}
	if pos == 0 || neg == 0 {
		return 0, ErrSingleClass
	}

	y := append([]float64(nil), scores...)
	stat.SortWeightedLabeled(y, classes, nil)

	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}
