package common

// Criterion names accepted in configuration
const (
	CriterionROCAUC = "roc_auc"
	CriterionAIC    = "AIC"
	CriterionBIC    = "BIC"
)

// Environment variable keys
const (
	EnvConfigFile        = "CONFIG_FILE"
	EnvTrainingScores    = "TRAINING_SCORES"
	EnvToBeClassified    = "TO_BE_CLASSIFIED"
	EnvDevScores         = "DEV_SCORES"
	EnvDiscardThresholds = "DISCARD_THRESHOLDS"
	EnvOutputFile        = "OUTPUT_FILE"
	EnvCriterion         = "CRITERION"
	EnvLabelField        = "LABEL_FIELD"
	EnvLowerIsBetter     = "LOWER_IS_BETTER"
	EnvQuantileMethod    = "QUANTILE_METHOD"
	EnvSolver            = "SOLVER"
	EnvRegularization    = "REGULARIZATION"
	EnvMaxIterations     = "MAX_ITERATIONS"
	EnvOnDegenerate      = "ON_DEGENERATE"
	EnvMetricsFile       = "METRICS_FILE"
	EnvStorePath         = "STORE_PATH"
	EnvLogLevel          = "LOG_LEVEL"
)

// Configuration defaults
const (
	DefaultCriterion           = CriterionROCAUC
	DefaultLabelField          = "label"
	DefaultCrossEntropyMarker  = "CrossEntropyFilter"
	DefaultQuantileMethod      = "linear"
	DefaultSolver              = "lbfgs"
	DefaultRegularization      = 1.0
	DefaultMaxIterations       = 100
	DefaultOnDegenerate        = "skip"
	DefaultLogLevel            = "info"
	DefaultOutputSuffix        = ".probabilities.txt"
	DefaultDiscardStartPercent = 5
	DefaultDiscardEndPercent   = 20
)

// DefaultDiscardThresholds returns the default sweep 0.05, 0.06, ..., 0.20.
func DefaultDiscardThresholds() []float64 {
	out := make([]float64, 0, DefaultDiscardEndPercent-DefaultDiscardStartPercent+1)
	for i := DefaultDiscardStartPercent; i <= DefaultDiscardEndPercent; i++ {
		out = append(out, float64(i)/100)
	}
	return out
}

// Validation constants
const (
	MinRegularization = 1e-6
	MaxRegularization = 1e6
	MaxIterationsCap  = 100000
)
