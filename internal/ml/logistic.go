package ml

import (
	"errors"
	"fmt"
	"math"
	"time"

	"filter-classifier/internal/dataset"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Solver names the optimisation method used to fit a logistic regression.
type Solver string

const (
	SolverLBFGS  Solver = "lbfgs"
	SolverBFGS   Solver = "bfgs"
	SolverNewton Solver = "newton"
)

// ParseSolver maps a configuration name to a Solver.
func ParseSolver(name string) (Solver, error) {
	switch s := Solver(name); s {
	case SolverLBFGS, SolverBFGS, SolverNewton:
		return s, nil
	case "":
		return SolverLBFGS, nil
	default:
		return "", fmt.Errorf("unknown solver %q", name)
	}
}

func (s Solver) method() optimize.Method {
	switch s {
	case SolverBFGS:
		return &optimize.BFGS{}
	case SolverNewton:
		return &optimize.Newton{}
	default:
		return &optimize.LBFGS{}
	}
}

// LogisticRegression fits a binary logistic regression minimising
//
//	0.5·‖w‖² + C·Σ log(1 + exp(−yᵢ·(w·xᵢ + b)))
//
// with yᵢ ∈ {−1, +1}. The intercept b is a weight on a constant feature and
// is regularised together with w. Fitting starts from zero weights, so the
// result is deterministic for a given input and solver.
type LogisticRegression struct {
	C             float64
	Solver        Solver
	MaxIterations int
	Tolerance     float64
	Metrics       MetricsInterface
}

// NewLogisticRegression returns a trainer with C=1, L-BFGS, 100 iterations.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{
		C:             1,
		Solver:        SolverLBFGS,
		MaxIterations: 100,
		Tolerance:     1e-6,
	}
}

// Fit implements Trainer.
func (lr *LogisticRegression) Fit(t *dataset.Table, labels []int) (Classifier, error) {
	start := time.Now()
	model, err := lr.fit(t, labels)
	if lr.Metrics != nil {
		lr.Metrics.FitDurationObserve(time.Since(start).Seconds())
		if err != nil {
			lr.Metrics.FitFailuresInc()
		} else {
			lr.Metrics.FitsInc()
		}
	}
	if err != nil {
		return nil, err
	}
	return model, nil
}

func (lr *LogisticRegression) fit(t *dataset.Table, labels []int) (*LogisticModel, error) {
	if err := CheckLabels(t, labels); err != nil {
		return nil, err
	}
	if lr.C <= 0 {
		return nil, fmt.Errorf("regularization C must be positive, got %g", lr.C)
	}

	k := t.NumFeatures()
	loss := &logLoss{
		rows: t.Rows,
		y:    make([]float64, len(labels)),
		c:    lr.C,
		k:    k,
	}
	for i, l := range labels {
		loss.y[i] = float64(2*l - 1)
	}

	problem := optimize.Problem{
		Func: loss.Func,
		Grad: loss.Grad,
	}
	if lr.Solver == SolverNewton {
		problem.Hess = loss.Hess
	}

	settings := &optimize.Settings{
		GradientThreshold: lr.Tolerance,
		MajorIterations:   lr.MaxIterations,
	}

	result, err := optimize.Minimize(problem, make([]float64, k+1), settings, lr.Solver.method())
	if result == nil {
		return nil, fmt.Errorf("logistic regression: %w", err)
	}
	// Line searches can stall once the gradient is below float precision;
	// the returned location is still the best one found.
	if err != nil && !allFinite(result.X) {
		return nil, fmt.Errorf("logistic regression: %w", err)
	}
	if !allFinite(result.X) {
		return nil, errors.New("logistic regression: non-finite weights")
	}

	return &LogisticModel{
		names:      append([]string(nil), t.Names...),
		Weights:    append([]float64(nil), result.X[:k]...),
		Intercept:  result.X[k],
		Solver:     lr.Solver,
		Iterations: result.Stats.MajorIterations,
	}, nil
}

// logLoss is the regularised logistic objective over rows augmented with a
// constant 1 in position k.
type logLoss struct {
	rows [][]float64
	y    []float64
	c    float64
	k    int
}

func (l *logLoss) margin(w, row []float64) float64 {
	return floats.Dot(w[:l.k], row) + w[l.k]
}

func (l *logLoss) Func(w []float64) float64 {
	f := 0.5 * floats.Dot(w, w)
	for i, row := range l.rows {
		f += l.c * logOnePlusExpNeg(l.y[i]*l.margin(w, row))
	}
	return f
}

func (l *logLoss) Grad(grad, w []float64) {
	copy(grad, w)
	for i, row := range l.rows {
		m := l.y[i] * l.margin(w, row)
		coef := -l.c * l.y[i] * sigmoid(-m)
		floats.AddScaled(grad[:l.k], coef, row)
		grad[l.k] += coef
	}
}

func (l *logLoss) Hess(hess *mat.SymDense, w []float64) {
	n := l.k + 1
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			v := 0.0
			if a == b {
				v = 1
			}
			hess.SetSym(a, b, v)
		}
	}

	x := make([]float64, n)
	x[l.k] = 1
	for _, row := range l.rows {
		copy(x, row)
		p := sigmoid(l.margin(w, row))
		d := l.c * p * (1 - p)
		for a := 0; a < n; a++ {
			for b := a; b < n; b++ {
				hess.SetSym(a, b, hess.At(a, b)+d*x[a]*x[b])
			}
		}
	}
}

// logOnePlusExpNeg computes log(1 + exp(−m)) without overflow.
func logOnePlusExpNeg(m float64) float64 {
	if m > 0 {
		return math.Log1p(math.Exp(-m))
	}
	return -m + math.Log1p(math.Exp(m))
}

// sigmoid converts a score to a probability
func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1.0 + e)
}

func allFinite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// LogisticModel is a fitted logistic regression.
type LogisticModel struct {
	names      []string
	Weights    []float64
	Intercept  float64
	Solver     Solver
	Iterations int
}

// Features implements Classifier.
func (m *LogisticModel) Features() []string {
	return append([]string(nil), m.names...)
}

// PredictProba implements Classifier.
func (m *LogisticModel) PredictProba(t *dataset.Table) ([]float64, error) {
	if !t.SameShape(m.names) {
		return nil, fmt.Errorf("%w: model trained on %v, table has %v", dataset.ErrFeatureMismatch, m.names, t.Names)
	}

	probs := make([]float64, t.Len())
	for i, row := range t.Rows {
		probs[i] = sigmoid(floats.Dot(m.Weights, row) + m.Intercept)
	}
	return probs, nil
}

// Predict implements Classifier.
func (m *LogisticModel) Predict(t *dataset.Table) ([]int, error) {
	probs, err := m.PredictProba(t)
	if err != nil {
		return nil, err
	}

	classes := make([]int, len(probs))
	for i, p := range probs {
		if p > 0.5 {
			classes[i] = 1
		}
	}
	return classes, nil
}
