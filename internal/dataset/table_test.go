package dataset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkerRule(t *testing.T) {
	rule := MarkerRule("CrossEntropyFilter", "")

	assert.Equal(t, LowerIsBetter, rule("CrossEntropyFilter_f2"))
	assert.Equal(t, LowerIsBetter, rule("CrossEntropyFilter.0"))
	assert.Equal(t, HigherIsBetter, rule("f1"))
	assert.Equal(t, HigherIsBetter, MarkerRule()("CrossEntropyFilter"))
}

func TestPolarityString(t *testing.T) {
	assert.Equal(t, "higher-is-better", HigherIsBetter.String())
	assert.Equal(t, "lower-is-better", LowerIsBetter.String())
	assert.Equal(t, "Polarity(7)", Polarity(7).String())
}

func TestNewTable(t *testing.T) {
	table, err := NewTable([]string{"a", "b"}, [][]float64{{1, 2}, {3, 4}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, table.NumFeatures())
	assert.Equal(t, []Polarity{HigherIsBetter, HigherIsBetter}, table.Polarity)

	_, err = NewTable([]string{"a", "b"}, [][]float64{{1, 2}, {3}}, nil)
	assert.Error(t, err)

	_, err = NewTable([]string{"a", "a"}, nil, nil)
	assert.Error(t, err)
}

func TestTable_Reorder(t *testing.T) {
	table, err := NewTable([]string{"a", "CrossEntropyFilter"}, [][]float64{{1, 2}, {3, 4}}, MarkerRule("CrossEntropyFilter"))
	require.NoError(t, err)

	same, err := table.Reorder([]string{"a", "CrossEntropyFilter"})
	require.NoError(t, err)
	assert.Same(t, table, same)

	swapped, err := table.Reorder([]string{"CrossEntropyFilter", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{2, 1}, {4, 3}}, swapped.Rows)
	assert.Equal(t, []Polarity{LowerIsBetter, HigherIsBetter}, swapped.Polarity)
	// original untouched
	assert.Equal(t, []float64{1, 2}, table.Rows[0])

	_, err = table.Reorder([]string{"a", "b"})
	assert.True(t, errors.Is(err, ErrFeatureMismatch))

	_, err = table.Reorder([]string{"a"})
	assert.True(t, errors.Is(err, ErrFeatureMismatch))
}
