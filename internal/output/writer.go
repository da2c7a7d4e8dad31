// Package output writes classifier probabilities, one fixed-point value per
// target row.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filter-classifier/internal/dataset"
	"filter-classifier/internal/ml"

	"github.com/rs/zerolog/log"
)

// Write scores t with model and writes one "%.10f" line per row, in row
// order. It returns the number of lines written.
func Write(w io.Writer, model ml.Classifier, t *dataset.Table) (int, error) {
	probs, err := model.PredictProba(t)
	if err != nil {
		return 0, fmt.Errorf("failed to predict probabilities: %w", err)
	}

	bw := bufio.NewWriter(w)
	for i, p := range probs {
		if _, err := fmt.Fprintf(bw, "%.10f\n", p); err != nil {
			return i, fmt.Errorf("failed to write probability %d: %w", i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("failed to flush probabilities: %w", err)
	}
	return len(probs), nil
}

// WriteFile writes the probabilities of t to path. The file appears only
// once every line has been written.
func WriteFile(path string, model ml.Classifier, t *dataset.Table) (int, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := Write(tmp, model, t)
	if err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close output file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return 0, fmt.Errorf("failed to set output file mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("failed to move output file into place: %w", err)
	}

	log.Info().Str("file", path).Int("rows", n).Msg("Probabilities written")
	return n, nil
}
