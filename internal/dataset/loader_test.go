package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_FlatRecords(t *testing.T) {
	input := `{"LengthRatioFilter": 0.9, "CrossEntropyFilter": 12.5}
{"LengthRatioFilter": 0.4, "CrossEntropyFilter": 30.1}

{"CrossEntropyFilter": 8.0, "LengthRatioFilter": 1.0}
`
	table, labels, err := Read(strings.NewReader(input), "train.jsonl", Options{
		LabelField: "label",
		Polarity:   MarkerRule("CrossEntropyFilter"),
	})
	require.NoError(t, err)

	assert.Nil(t, labels)
	assert.Equal(t, []string{"LengthRatioFilter", "CrossEntropyFilter"}, table.Names)
	assert.Equal(t, []Polarity{HigherIsBetter, LowerIsBetter}, table.Polarity)
	require.Equal(t, 3, table.Len())
	assert.Equal(t, []float64{0.9, 12.5}, table.Rows[0])
	// keys in a different order land in the first record's column order
	assert.Equal(t, []float64{1.0, 8.0}, table.Rows[2])
}

func TestRead_ExtractsLabels(t *testing.T) {
	input := `{"a": 1, "label": 1, "b": 2}
{"a": 3, "label": 0, "b": 4}
`
	table, labels, err := Read(strings.NewReader(input), "dev.jsonl", Options{LabelField: "label"})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 0}, labels)
	assert.Equal(t, []string{"a", "b"}, table.Names)
	assert.Equal(t, []float64{3, 4}, table.Rows[1])
}

func TestRead_FlattensNestedObjects(t *testing.T) {
	input := `{"LanguageIDFilter": {"src": 0.9, "tgt": 0.8}, "LengthFilter": 1}
{"LengthFilter": 0, "LanguageIDFilter": {"tgt": 0.1, "src": 0.2}}
`
	table, _, err := Read(strings.NewReader(input), "nested.jsonl", Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"LanguageIDFilter.src", "LanguageIDFilter.tgt", "LengthFilter"}, table.Names)
	assert.Equal(t, []float64{0.2, 0.1, 0}, table.Rows[1])
}

func TestRead_Malformed(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		line  int
	}{
		{"invalid json", "{\"a\": 1}\n{\"a\": }\n", 2},
		{"not an object", "[1, 2]\n", 1},
		{"string value", "{\"a\": \"x\"}\n", 1},
		{"array value", "{\"a\": [1, 2]}\n", 1},
		{"null value", "{\"a\": null}\n", 1},
		{"missing feature", "{\"a\": 1, \"b\": 2}\n{\"a\": 1}\n", 2},
		{"extra feature", "{\"a\": 1}\n{\"a\": 1, \"b\": 2}\n", 2},
		{"renamed feature", "{\"a\": 1, \"b\": 2}\n{\"a\": 1, \"c\": 2}\n", 2},
		{"duplicate feature", "{\"a\": 1, \"a\": 2}\n", 1},
		{"trailing data", "{\"a\": 1} {\"a\": 2}\n", 1},
		{"label not binary", "{\"a\": 1, \"label\": 2}\n", 1},
		{"label missing later", "{\"a\": 1, \"label\": 1}\n{\"a\": 2}\n", 2},
		{"truncated", "{\"a\": 1", 1},
		{"empty input", "\n\n", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Read(strings.NewReader(tc.input), "bad.jsonl", Options{LabelField: "label"})
			require.Error(t, err)

			var mre *MalformedRecordError
			require.True(t, errors.As(err, &mre), "expected MalformedRecordError, got %v", err)
			assert.Equal(t, tc.line, mre.Line)
			assert.Equal(t, "bad.jsonl", mre.Path)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"x\": 0.5}\n{\"x\": 0.25}\n"), 0o644))

	table, labels, err := Load(path, Options{LabelField: "label"})
	require.NoError(t, err)
	assert.Nil(t, labels)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []float64{0.5, 0.25}, table.Column(0))
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.jsonl"), Options{})
	assert.Error(t, err)
}
