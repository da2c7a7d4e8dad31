package output

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"filter-classifier/internal/dataset"
	"filter-classifier/internal/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func model(t *testing.T, weights ...float64) *ml.LogisticModel {
	t.Helper()
	m, err := ml.FromSnapshot(ml.Snapshot{
		Features: []string{"f1", "f2"},
		Weights:  weights,
		Solver:   "lbfgs",
	})
	require.NoError(t, err)
	return m
}

func target(t *testing.T, names []string, n int) *dataset.Table {
	t.Helper()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = []float64{float64(i) / float64(n), 1 - float64(i)/float64(n)}
	}
	tbl, err := dataset.NewTable(names, rows, nil)
	require.NoError(t, err)
	return tbl
}

func TestWrite_Format(t *testing.T) {
	var buf bytes.Buffer
	n, err := Write(&buf, model(t, 2, -1), target(t, []string{"f1", "f2"}, 10))
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 10)
	for _, line := range lines {
		assert.Regexp(t, `^[01]\.\d{10}$`, line)
		v, err := strconv.ParseFloat(line, 64)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	assert.Equal(t, "0.2689414214", lines[0])
}

func TestWrite_Saturated(t *testing.T) {
	var buf bytes.Buffer
	_, err := Write(&buf, model(t, 1000, 0), target(t, []string{"f1", "f2"}, 2))
	require.NoError(t, err)
	assert.Equal(t, "0.5000000000\n1.0000000000\n", buf.String())
}

func TestWrite_FeatureMismatch(t *testing.T) {
	var buf bytes.Buffer
	_, err := Write(&buf, model(t, 1, 1), target(t, []string{"f2", "f1"}, 3))
	assert.True(t, errors.Is(err, dataset.ErrFeatureMismatch))
	assert.Zero(t, buf.Len())
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "target.jsonl.probabilities.txt")

	n, err := WriteFile(path, model(t, 2, -1), target(t, []string{"f1", "f2"}, 10))
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 10, strings.Count(string(data), "\n"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestWriteFile_NoPartialOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	_, err := WriteFile(path, model(t, 1, 1), target(t, []string{"other", "f1"}, 3))
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteFile_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0644))

	_, err := WriteFile(path, model(t, 0, 0), target(t, []string{"f1", "f2"}, 1))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0.5000000000\n", string(data))
}
