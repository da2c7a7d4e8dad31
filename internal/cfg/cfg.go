package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"filter-classifier/internal/common"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	TrainingScores    string
	ToBeClassified    string
	DevScores         string
	DiscardThresholds []float64
	OutputFile        string
	Criterion         string
	LabelField        string
	LowerIsBetter     []string
	QuantileMethod    string
	Solver            string
	Regularization    float64
	MaxIterations     int
	OnDegenerate      string
	MetricsFile       string
	StorePath         string
	LogLevel          string
}

type ConfigFile struct {
	TrainingScores    string    `yaml:"training_scores"`
	ToBeClassified    string    `yaml:"to_be_classified"`
	DevScores         string    `yaml:"dev_scores"`
	DiscardThresholds []float64 `yaml:"discard_thresholds"`
	OutputFile        string    `yaml:"output_file"`
	Criterion         string    `yaml:"criterion"`
	LabelField        string    `yaml:"label_field"`
	LowerIsBetter     []string  `yaml:"lower_is_better"`

	Model struct {
		Solver         string  `yaml:"solver"`
		Regularization float64 `yaml:"regularization"`
		MaxIterations  int     `yaml:"max_iterations"`
		Quantile       string  `yaml:"quantile"`
		OnDegenerate   string  `yaml:"on_degenerate"`
	} `yaml:"model"`

	System struct {
		MetricsFile string `yaml:"metrics_file"`
		StorePath   string `yaml:"store_path"`
		LogLevel    string `yaml:"log_level"`
	} `yaml:"system"`
}

// Load reads settings from the YAML file named by CONFIG_FILE, or from the
// environment alone when it is unset. The result is not validated: callers
// apply command line overrides first and then call Validate.
func Load() (Settings, error) {
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return LoadFile(configPath)
	}
	return loadFromEnv()
}

// LoadFile reads settings from a YAML file, with environment overrides.
func LoadFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	thresholds, err := getThresholdsFromEnvOrConfig(common.EnvDiscardThresholds, config.DiscardThresholds)
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		TrainingScores:    getEnvOrDefault(common.EnvTrainingScores, config.TrainingScores),
		ToBeClassified:    getEnvOrDefault(common.EnvToBeClassified, config.ToBeClassified),
		DevScores:         getEnvOrDefault(common.EnvDevScores, config.DevScores),
		DiscardThresholds: thresholds,
		OutputFile:        getEnvOrDefault(common.EnvOutputFile, config.OutputFile),
		Criterion:         getEnvOrDefault(common.EnvCriterion, orDefault(config.Criterion, common.DefaultCriterion)),
		LabelField:        getEnvOrDefault(common.EnvLabelField, orDefault(config.LabelField, common.DefaultLabelField)),
		LowerIsBetter:     getListFromEnvOrConfig(common.EnvLowerIsBetter, config.LowerIsBetter),
		QuantileMethod:    getEnvOrDefault(common.EnvQuantileMethod, orDefault(config.Model.Quantile, common.DefaultQuantileMethod)),
		Solver:            getEnvOrDefault(common.EnvSolver, orDefault(config.Model.Solver, common.DefaultSolver)),
		Regularization:    getFloatFromEnvOrConfig(common.EnvRegularization, config.Model.Regularization, common.DefaultRegularization),
		MaxIterations:     getIntFromEnvOrConfig(common.EnvMaxIterations, config.Model.MaxIterations, common.DefaultMaxIterations),
		OnDegenerate:      getEnvOrDefault(common.EnvOnDegenerate, orDefault(config.Model.OnDegenerate, common.DefaultOnDegenerate)),
		MetricsFile:       getEnvOrDefault(common.EnvMetricsFile, config.System.MetricsFile),
		StorePath:         getEnvOrDefault(common.EnvStorePath, config.System.StorePath),
		LogLevel:          getEnvOrDefault(common.EnvLogLevel, orDefault(config.System.LogLevel, common.DefaultLogLevel)),
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	thresholds, err := getThresholdsFromEnvOrConfig(common.EnvDiscardThresholds, nil)
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		TrainingScores:    os.Getenv(common.EnvTrainingScores),
		ToBeClassified:    os.Getenv(common.EnvToBeClassified),
		DevScores:         os.Getenv(common.EnvDevScores), // optional
		DiscardThresholds: thresholds,
		OutputFile:        os.Getenv(common.EnvOutputFile),
		Criterion:         getEnvOrDefault(common.EnvCriterion, common.DefaultCriterion),
		LabelField:        getEnvOrDefault(common.EnvLabelField, common.DefaultLabelField),
		LowerIsBetter:     getListFromEnvOrConfig(common.EnvLowerIsBetter, nil),
		QuantileMethod:    getEnvOrDefault(common.EnvQuantileMethod, common.DefaultQuantileMethod),
		Solver:            getEnvOrDefault(common.EnvSolver, common.DefaultSolver),
		Regularization:    getFloatOrDefault(common.EnvRegularization, common.DefaultRegularization),
		MaxIterations:     getIntOrDefault(common.EnvMaxIterations, common.DefaultMaxIterations),
		OnDegenerate:      getEnvOrDefault(common.EnvOnDegenerate, common.DefaultOnDegenerate),
		MetricsFile:       os.Getenv(common.EnvMetricsFile),
		StorePath:         os.Getenv(common.EnvStorePath),
		LogLevel:          getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
	}

	return settings, nil
}

// OutputPath returns the configured output file, or the default derived
// from the file being classified.
func (s *Settings) OutputPath() string {
	if s.OutputFile != "" {
		return s.OutputFile
	}
	return s.ToBeClassified + common.DefaultOutputSuffix
}

// Validate checks that the settings describe a runnable classification.
func (s *Settings) Validate() error {
	return validateSettings(s)
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orDefault(v, defaultValue string) string {
	if v != "" {
		return v
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getListFromEnvOrConfig(key string, configValue []string) []string {
	if env := os.Getenv(key); env != "" {
		return splitList(env)
	}
	if len(configValue) > 0 {
		return configValue
	}
	return []string{common.DefaultCrossEntropyMarker}
}

// getThresholdsFromEnvOrConfig returns an error for a malformed environment
// value instead of falling back.
func getThresholdsFromEnvOrConfig(key string, configValue []float64) ([]float64, error) {
	if env := os.Getenv(key); env != "" {
		thresholds, err := ParseThresholds(env)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		return thresholds, nil
	}
	if len(configValue) > 0 {
		return configValue, nil
	}
	return common.DefaultDiscardThresholds(), nil
}

// ParseThresholds parses a comma separated list of discard fractions.
func ParseThresholds(v string) ([]float64, error) {
	parts := splitList(v)
	if len(parts) == 0 {
		return nil, fmt.Errorf("no discard thresholds in %q", v)
	}
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("discard threshold %q: %w", p, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func splitList(v string) []string {
	var result []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}

// validateSettings performs validation of configuration values
func validateSettings(settings *Settings) error {
	// Validate input files
	if settings.TrainingScores == "" {
		return fmt.Errorf("training_scores is required")
	}
	if settings.ToBeClassified == "" {
		return fmt.Errorf("to_be_classified is required")
	}

	// Validate criterion
	switch settings.Criterion {
	case common.CriterionROCAUC:
		if settings.DevScores == "" {
			return fmt.Errorf("criterion %s requires dev_scores", settings.Criterion)
		}
	case common.CriterionAIC, common.CriterionBIC:
	default:
		return fmt.Errorf("criterion must be one of %s, %s, %s, got %q",
			common.CriterionROCAUC, common.CriterionAIC, common.CriterionBIC, settings.Criterion)
	}

	// Validate sweep
	for _, d := range settings.DiscardThresholds {
		if d < 0 || d > 1 {
			return fmt.Errorf("discard threshold must be between 0 and 1, got %f", d)
		}
	}

	if settings.LabelField == "" {
		return fmt.Errorf("label field cannot be empty")
	}

	// Validate model parameters
	switch settings.QuantileMethod {
	case "linear", "empirical", "lininterp":
	default:
		return fmt.Errorf("quantile method must be linear, empirical or lininterp, got %q", settings.QuantileMethod)
	}
	switch settings.Solver {
	case "lbfgs", "bfgs", "newton":
	default:
		return fmt.Errorf("solver must be lbfgs, bfgs or newton, got %q", settings.Solver)
	}
	if settings.Regularization < common.MinRegularization || settings.Regularization > common.MaxRegularization {
		return fmt.Errorf("regularization must be between %g and %g, got %g",
			common.MinRegularization, common.MaxRegularization, settings.Regularization)
	}
	if settings.MaxIterations <= 0 || settings.MaxIterations > common.MaxIterationsCap {
		return fmt.Errorf("max iterations must be between 1 and %d, got %d", common.MaxIterationsCap, settings.MaxIterations)
	}
	switch settings.OnDegenerate {
	case "skip", "abort":
	default:
		return fmt.Errorf("on_degenerate must be skip or abort, got %q", settings.OnDegenerate)
	}

	return nil
}
