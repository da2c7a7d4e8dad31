package metrics

// MetricsWrapper exposes the trainer and writer metrics through the narrow
// interfaces those packages depend on.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) FitsInc() {
	w.m.Fits.Inc()
}

func (w *MetricsWrapper) FitFailuresInc() {
	w.m.FitFailures.Inc()
}

func (w *MetricsWrapper) FitDurationObserve(seconds float64) {
	w.m.FitDuration.Observe(seconds)
}

func (w *MetricsWrapper) RowsScoredAdd(n int) {
	w.m.RowsScored.Add(float64(n))
}
