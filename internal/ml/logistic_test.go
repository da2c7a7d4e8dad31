package ml

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"

	"filter-classifier/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu          sync.Mutex
	fits        int
	failures    int
	durationSum float64
}

func (m *MockMetrics) FitsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fits++
}

func (m *MockMetrics) FitFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *MockMetrics) FitDurationObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durationSum += v
}

// separableTable builds rows where the label is 1 when x0 - x1 > 0, with
// some label noise so the optimum is finite.
func separableTable(t *testing.T, n int, seed int64) (*dataset.Table, []int) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	labels := make([]int, n)
	for i := range rows {
		x0, x1 := rng.Float64(), rng.Float64()
		rows[i] = []float64{x0, x1}
		if x0-x1 > 0 {
			labels[i] = 1
		}
		if rng.Float64() < 0.1 {
			labels[i] = 1 - labels[i]
		}
	}
	table, err := dataset.NewTable([]string{"x0", "x1"}, rows, nil)
	require.NoError(t, err)
	return table, labels
}

func TestLogisticRegression_LearnsDirection(t *testing.T) {
	table, labels := separableTable(t, 200, 1)

	for _, solver := range []Solver{SolverLBFGS, SolverBFGS, SolverNewton} {
		t.Run(string(solver), func(t *testing.T) {
			lr := NewLogisticRegression()
			lr.Solver = solver

			clf, err := lr.Fit(table, labels)
			require.NoError(t, err)

			model := clf.(*LogisticModel)
			assert.Greater(t, model.Weights[0], 0.0)
			assert.Less(t, model.Weights[1], 0.0)
			assert.Equal(t, []string{"x0", "x1"}, model.Features())

			pred, err := clf.Predict(table)
			require.NoError(t, err)
			var correct int
			for i := range pred {
				if pred[i] == labels[i] {
					correct++
				}
			}
			assert.Greater(t, float64(correct)/float64(len(pred)), 0.7)
		})
	}
}

func TestLogisticRegression_SolversAgree(t *testing.T) {
	table, labels := separableTable(t, 150, 2)

	var weights [][]float64
	for _, solver := range []Solver{SolverLBFGS, SolverBFGS, SolverNewton} {
		lr := NewLogisticRegression()
		lr.Solver = solver
		lr.Tolerance = 1e-8
		clf, err := lr.Fit(table, labels)
		require.NoError(t, err)
		m := clf.(*LogisticModel)
		weights = append(weights, append(append([]float64(nil), m.Weights...), m.Intercept))
	}

	for _, w := range weights[1:] {
		for j := range w {
			assert.InDelta(t, weights[0][j], w[j], 1e-3)
		}
	}
}

func TestLogisticRegression_Deterministic(t *testing.T) {
	table, labels := separableTable(t, 100, 3)

	a, err := NewLogisticRegression().Fit(table, labels)
	require.NoError(t, err)
	b, err := NewLogisticRegression().Fit(table, labels)
	require.NoError(t, err)

	pa, err := a.PredictProba(table)
	require.NoError(t, err)
	pb, err := b.PredictProba(table)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
}

func TestLogisticRegression_ProbabilitiesInRange(t *testing.T) {
	table, labels := separableTable(t, 100, 4)
	clf, err := NewLogisticRegression().Fit(table, labels)
	require.NoError(t, err)

	probs, err := clf.PredictProba(table)
	require.NoError(t, err)
	require.Len(t, probs, table.Len())
	for _, p := range probs {
		assert.True(t, p >= 0 && p <= 1, "probability %v out of range", p)
	}
}

func TestLogisticRegression_DegenerateLabels(t *testing.T) {
	table, _ := separableTable(t, 10, 5)
	metrics := &MockMetrics{}
	lr := NewLogisticRegression()
	lr.Metrics = metrics

	for _, class := range []int{0, 1} {
		labels := make([]int, table.Len())
		for i := range labels {
			labels[i] = class
		}
		_, err := lr.Fit(table, labels)

		var dle *DegenerateLabelsError
		require.True(t, errors.As(err, &dle), "expected DegenerateLabelsError, got %v", err)
		assert.Equal(t, class, dle.Class)
		assert.Equal(t, table.Len(), dle.Rows)
	}
	assert.Equal(t, 2, metrics.failures)
	assert.Equal(t, 0, metrics.fits)
}

func TestLogisticRegression_InvalidInput(t *testing.T) {
	table, labels := separableTable(t, 10, 6)

	_, err := NewLogisticRegression().Fit(table, labels[:5])
	assert.True(t, errors.Is(err, ErrLabelLength))

	bad := append([]int(nil), labels...)
	bad[0] = 2
	_, err = NewLogisticRegression().Fit(table, bad)
	assert.Error(t, err)

	lr := NewLogisticRegression()
	lr.C = 0
	labels[0], labels[1] = 0, 1
	_, err = lr.Fit(table, labels)
	assert.Error(t, err)

	empty, err := dataset.NewTable([]string{"x0"}, nil, nil)
	require.NoError(t, err)
	_, err = NewLogisticRegression().Fit(empty, nil)
	var dle *DegenerateLabelsError
	assert.True(t, errors.As(err, &dle))
}

func TestLogisticRegression_Metrics(t *testing.T) {
	table, labels := separableTable(t, 50, 7)
	metrics := &MockMetrics{}
	lr := NewLogisticRegression()
	lr.Metrics = metrics

	_, err := lr.Fit(table, labels)
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.fits)
	assert.GreaterOrEqual(t, metrics.durationSum, 0.0)
}

func TestLogisticModel_FeatureMismatch(t *testing.T) {
	table, labels := separableTable(t, 50, 8)
	clf, err := NewLogisticRegression().Fit(table, labels)
	require.NoError(t, err)

	swapped, err := table.Reorder([]string{"x1", "x0"})
	require.NoError(t, err)
	_, err = clf.PredictProba(swapped)
	assert.True(t, errors.Is(err, dataset.ErrFeatureMismatch))

	conformed, err := swapped.Reorder(clf.Features())
	require.NoError(t, err)
	_, err = clf.PredictProba(conformed)
	assert.NoError(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	table, labels := separableTable(t, 50, 9)
	clf, err := NewLogisticRegression().Fit(table, labels)
	require.NoError(t, err)
	model := clf.(*LogisticModel)

	restored, err := FromSnapshot(model.Snapshot())
	require.NoError(t, err)

	want, err := model.PredictProba(table)
	require.NoError(t, err)
	got, err := restored.PredictProba(table)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = FromSnapshot(Snapshot{Features: []string{"a"}, Weights: nil})
	assert.Error(t, err)
	_, err = FromSnapshot(Snapshot{Features: []string{"a"}, Weights: []float64{math.NaN()}})
	assert.Error(t, err)
}

func TestParseSolver(t *testing.T) {
	s, err := ParseSolver("")
	require.NoError(t, err)
	assert.Equal(t, SolverLBFGS, s)

	s, err = ParseSolver("newton")
	require.NoError(t, err)
	assert.Equal(t, SolverNewton, s)

	_, err = ParseSolver("sag")
	assert.Error(t, err)
}

func TestSigmoidStable(t *testing.T) {
	assert.InDelta(t, 0.5, sigmoid(0), 1e-15)
	assert.InDelta(t, 1.0, sigmoid(800), 1e-15)
	assert.InDelta(t, 0.0, sigmoid(-800), 1e-15)
	assert.False(t, math.IsNaN(logOnePlusExpNeg(-800)))
	assert.InDelta(t, math.Log(2), logOnePlusExpNeg(0), 1e-15)
}
