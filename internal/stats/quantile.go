// Package stats provides the numeric capabilities the selection pipeline
// consumes: quantiles for cutoff derivation and ROC AUC for model scoring.
package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Quantiler computes the p-quantile of a sample. Implementations must not
// modify values.
type Quantiler interface {
	Quantile(values []float64, p float64) (float64, error)
}

// QuantileFunc adapts a function to Quantiler.
type QuantileFunc func(values []float64, p float64) (float64, error)

func (f QuantileFunc) Quantile(values []float64, p float64) (float64, error) {
	return f(values, p)
}

// Linear interpolates between the two closest ranks, h = (n-1)p. This is
// the default quantile of most dataframe libraries.
var Linear Quantiler = QuantileFunc(linearQuantile)

// Empirical is the inverse of the empirical CDF, via gonum.
var Empirical Quantiler = gonumQuantile{kind: stat.Empirical}

// LinInterp is gonum's piecewise linear interpolation of the empirical CDF.
var LinInterp Quantiler = gonumQuantile{kind: stat.LinInterp}

// QuantilerByName maps a configuration name to a Quantiler.
func QuantilerByName(name string) (Quantiler, error) {
	switch name {
	case "linear", "":
		return Linear, nil
	case "empirical":
		return Empirical, nil
	case "lininterp":
		return LinInterp, nil
	default:
		return nil, fmt.Errorf("unknown quantile method %q", name)
	}
}

func checkQuantileArgs(values []float64, p float64) error {
	if len(values) == 0 {
		return fmt.Errorf("quantile of empty sample")
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("quantile fraction must be in [0, 1], got %v", p)
	}
	return nil
}

func sortedCopy(values []float64) []float64 {
	x := append([]float64(nil), values...)
	sort.Float64s(x)
	return x
}

func linearQuantile(values []float64, p float64) (float64, error) {
	if err := checkQuantileArgs(values, p); err != nil {
		return 0, err
	}
	x := sortedCopy(values)

	h := float64(len(x)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i >= len(x)-1 {
		return x[len(x)-1], nil
	}
	return x[i] + (h-lo)*(x[i+1]-x[i]), nil
}

type gonumQuantile struct {
	kind stat.CumulantKind
}

func (g gonumQuantile) Quantile(values []float64, p float64) (float64, error) {
	if err := checkQuantileArgs(values, p); err != nil {
		return 0, err
	}
	return stat.Quantile(p, g.kind, sortedCopy(values), nil), nil
}
