package ml

import "fmt"

// Snapshot is the serialisable form of a LogisticModel.
type Snapshot struct {
	Features  []string  `json:"features"`
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
	Solver    string    `json:"solver"`
}

// Snapshot captures the model's parameters.
func (m *LogisticModel) Snapshot() Snapshot {
	return Snapshot{
		Features:  m.Features(),
		Weights:   append([]float64(nil), m.Weights...),
		Intercept: m.Intercept,
		Solver:    string(m.Solver),
	}
}

// FromSnapshot rebuilds a model saved with Snapshot.
func FromSnapshot(s Snapshot) (*LogisticModel, error) {
	if len(s.Features) != len(s.Weights) {
		return nil, fmt.Errorf("snapshot has %d features and %d weights", len(s.Features), len(s.Weights))
	}
	if !allFinite(s.Weights) || !allFinite([]float64{s.Intercept}) {
		return nil, fmt.Errorf("snapshot has non-finite weights")
	}
	return &LogisticModel{
		names:     append([]string(nil), s.Features...),
		Weights:   append([]float64(nil), s.Weights...),
		Intercept: s.Intercept,
		Solver:    Solver(s.Solver),
	}, nil
}
