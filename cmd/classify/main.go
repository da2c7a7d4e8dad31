// Command classify trains a noise-filter classifier on unlabeled score files
// and writes the probability that each target pair is clean.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"filter-classifier/internal/cfg"
	"filter-classifier/internal/common"
	"filter-classifier/internal/dataset"
	"filter-classifier/internal/metrics"
	"filter-classifier/internal/ml"
	"filter-classifier/internal/output"
	"filter-classifier/internal/scoring"
	"filter-classifier/internal/selection"
	"filter-classifier/internal/stats"
	"filter-classifier/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file (overrides CONFIG_FILE)")
		train       = flag.String("train", "", "Training scores (JSON lines)")
		target      = flag.String("target", "", "Scores to classify (JSON lines)")
		dev         = flag.String("dev", "", "Labelled held-out scores, required for roc_auc")
		outputFile  = flag.String("output", "", "Output file (default <target>.probabilities.txt)")
		criterion   = flag.String("criterion", "", "Selection criterion: roc_auc, AIC or BIC")
		thresholds  = flag.String("thresholds", "", "Comma-separated discard fractions")
		logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error")
		runID       = flag.String("run", "", "Score with the model of a stored run (ID or \"latest\") instead of training")
		storePath   = flag.String("store", "", "Directory of the run database")
		metricsFile = flag.String("metrics-file", "", "Write Prometheus metrics to this textfile")
	)
	flag.Parse()

	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
	}
	if *configPath != "" {
		os.Setenv(common.EnvConfigFile, *configPath)
	}

	settings, err := cfg.Load()
	if err != nil {
		setupLogging(common.DefaultLogLevel)
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	overrideString(&settings.TrainingScores, *train)
	overrideString(&settings.ToBeClassified, *target)
	overrideString(&settings.DevScores, *dev)
	overrideString(&settings.OutputFile, *outputFile)
	overrideString(&settings.Criterion, *criterion)
	overrideString(&settings.LogLevel, *logLevel)
	overrideString(&settings.StorePath, *storePath)
	overrideString(&settings.MetricsFile, *metricsFile)
	if *thresholds != "" {
		settings.DiscardThresholds, err = cfg.ParseThresholds(*thresholds)
		if err != nil {
			setupLogging(settings.LogLevel)
			log.Fatal().Err(err).Msg("Invalid -thresholds")
		}
	}

	setupLogging(settings.LogLevel)

	registry := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(registry)

	if *runID != "" {
		err = scoreWithStoredRun(settings, *runID, m)
	} else {
		err = run(settings, m)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Classification failed")
	}

	if settings.MetricsFile != "" {
		if err := metrics.WriteTextfile(settings.MetricsFile, registry); err != nil {
			log.Fatal().Err(err).Msg("Failed to export metrics")
		}
	}
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// run trains on the training scores, selects the best model and writes
// target probabilities.
func run(settings cfg.Settings, m *metrics.Metrics) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	opts := loadOptions(settings)
	trainTable, _, err := dataset.Load(settings.TrainingScores, opts)
	if err != nil {
		return err
	}
	targetTable, _, err := dataset.Load(settings.ToBeClassified, opts)
	if err != nil {
		return err
	}
	targetTable, err = targetTable.Reorder(trainTable.Names)
	if err != nil {
		return fmt.Errorf("target scores: %w", err)
	}

	crit, err := scoring.ParseCriterion(settings.Criterion)
	if err != nil {
		return err
	}
	policy, err := selection.ParseDegeneratePolicy(settings.OnDegenerate)
	if err != nil {
		return err
	}
	quantiler, err := stats.QuantilerByName(settings.QuantileMethod)
	if err != nil {
		return err
	}
	solver, err := ml.ParseSolver(settings.Solver)
	if err != nil {
		return err
	}

	selCfg := selection.Config{
		Train:            trainTable,
		DiscardFractions: settings.DiscardThresholds,
		Criterion:        crit,
		OnDegenerate:     policy,
	}
	if settings.DevScores != "" {
		selCfg.HeldOut, selCfg.HeldOutLabels, err = dataset.Load(settings.DevScores, opts)
		if err != nil {
			return err
		}
	}

	trainer := ml.NewLogisticRegression()
	trainer.C = settings.Regularization
	trainer.Solver = solver
	trainer.MaxIterations = settings.MaxIterations
	trainer.Metrics = metrics.NewWrapper(m)

	steps := &storage.StepRecorder{}
	selector, err := selection.New(selCfg, selection.Backend{
		Trainer:   trainer,
		Quantiler: quantiler,
	},
		selection.WithObserver(selection.LogObserver(log.Logger)),
		selection.WithObserver(m),
		selection.WithObserver(steps),
	)
	if err != nil {
		return err
	}

	createdAt := time.Now()
	best, err := selector.Run()
	if err != nil {
		return err
	}
	log.Info().
		Str("criterion", crit.String()).
		Float64("value", best.Value).
		Float64("discard_fraction", best.DiscardFraction).
		Msg("Model selected")

	n, err := output.WriteFile(settings.OutputPath(), best.Model, targetTable)
	if err != nil {
		return err
	}
	metrics.NewWrapper(m).RowsScoredAdd(n)

	if settings.StorePath == "" {
		return nil
	}
	lm, ok := best.Model.(*ml.LogisticModel)
	if !ok {
		return fmt.Errorf("cannot store model of type %T", best.Model)
	}
	return saveRun(settings.StorePath, &storage.Run{
		CreatedAt:       createdAt,
		TrainingScores:  settings.TrainingScores,
		Criterion:       crit.String(),
		DiscardFraction: best.DiscardFraction,
		Value:           best.Value,
		Model:           lm.Snapshot(),
		Steps:           steps.Steps,
	})
}

// scoreWithStoredRun writes target probabilities using a previously stored
// model, without training.
func scoreWithStoredRun(settings cfg.Settings, id string, m *metrics.Metrics) error {
	if settings.ToBeClassified == "" {
		return fmt.Errorf("to_be_classified is required")
	}
	if settings.StorePath == "" {
		return fmt.Errorf("-run requires a store path")
	}

	store, err := storage.New(settings.StorePath)
	if err != nil {
		return err
	}
	defer store.Close()

	var stored *storage.Run
	if id == "latest" {
		stored, err = store.LatestRun()
	} else {
		stored, err = store.GetRun(id)
	}
	if err != nil {
		return err
	}
	model, err := ml.FromSnapshot(stored.Model)
	if err != nil {
		return fmt.Errorf("run %s: %w", stored.ID, err)
	}

	targetTable, _, err := dataset.Load(settings.ToBeClassified, loadOptions(settings))
	if err != nil {
		return err
	}
	targetTable, err = targetTable.Reorder(model.Features())
	if err != nil {
		return fmt.Errorf("target scores: %w", err)
	}

	log.Info().Str("run", stored.ID).Str("criterion", stored.Criterion).Msg("Scoring with stored model")
	n, err := output.WriteFile(settings.OutputPath(), model, targetTable)
	if err != nil {
		return err
	}
	metrics.NewWrapper(m).RowsScoredAdd(n)
	return nil
}

func loadOptions(settings cfg.Settings) dataset.Options {
	return dataset.Options{
		LabelField: settings.LabelField,
		Polarity:   dataset.MarkerRule(settings.LowerIsBetter...),
	}
}

func saveRun(storePath string, run *storage.Run) error {
	if err := os.MkdirAll(filepath.Clean(storePath), 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	store, err := storage.New(storePath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SaveRun(run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	log.Info().Str("run", run.ID).Str("store", storePath).Msg("Run saved")
	return nil
}
