// train fits the win classifier on the training feature table, reports
// cross-validated and hold-out scores, and writes predictions for the test
// table.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pokewin/pokewin/config"
	"github.com/pokewin/pokewin/model"
	"github.com/pokewin/pokewin/store"
	"github.com/pokewin/pokewin/submission"
	"github.com/pokewin/pokewin/table"
)

const (
	TrainFeaturesFile = "train_features.csv"
	TestFeaturesFile  = "test_features.csv"
)

func main() {
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	exPath := filepath.Dir(ex)

	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.AdjustRelativePaths(exPath)

	var logger zerolog.Logger
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		logger = zerolog.New(os.Stderr).Level(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		logger = zerolog.New(os.Stderr).Level(zerolog.InfoLevel)
	}
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger.With().Timestamp().Logger()
	log.Debug().Msg("Debug logging is on")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("train-failed")
	}
}

// loadTables reads the feature tables from the store when one is
// configured, and from the CSVs in output-dir otherwise.
func loadTables(ctx context.Context, cfg *config.Config) (train, test *table.Table, err error) {
	if path := cfg.GetString(config.ConfigStorePath); path != "" {
		s, err := store.Open(path)
		if err != nil {
			return nil, nil, err
		}
		defer s.Close()
		if train, err = s.LoadTable(ctx, "train"); err != nil {
			return nil, nil, err
		}
		test, err = s.LoadTable(ctx, "test")
		if errors.Is(err, store.ErrNoTable) {
			return train, nil, nil
		}
		return train, test, err
	}
	dir := cfg.GetString(config.ConfigOutputDir)
	if train, err = readCSV(filepath.Join(dir, TrainFeaturesFile)); err != nil {
		return nil, nil, err
	}
	test, err = readCSV(filepath.Join(dir, TestFeaturesFile))
	if errors.Is(err, os.ErrNotExist) {
		return train, nil, nil
	}
	return train, test, err
}

func readCSV(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := table.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	train, test, err := loadTables(ctx, cfg)
	if err != nil {
		return err
	}
	if !train.HasLabel {
		return errors.New("training table has no player_won column")
	}
	l2 := cfg.GetFloat64(config.ConfigL2)
	maxIter := cfg.GetInt(config.ConfigMaxIterations)
	threshold := cfg.GetFloat64(config.ConfigDecisionThreshold)
	seed := uint64(cfg.GetInt64(config.ConfigSeed))
	factory := func() model.Classifier { return model.NewLogisticRegression(l2, maxIter) }

	X, y := train.Matrix(), train.Labels()
	log.Info().Int("rows", train.Len()).Int("columns", len(train.Columns)).Msg("training-table")

	report, err := model.CrossValidate(ctx, factory, X, y, cfg.GetInt(config.ConfigCVFolds), seed)
	if err != nil {
		return fmt.Errorf("cross-validation: %w", err)
	}
	log.Info().Msgf("Cross-validation: %s", report)

	trIdx, valIdx := model.TrainValidationSplit(y, cfg.GetFloat64(config.ConfigValidationFraction), seed)
	if len(valIdx) == 0 {
		log.Info().Msg("empty-validation-split-skipping-holdout")
	} else {
		Xtr, ytr := model.Subset(X, y, trIdx)
		Xval, yval := model.Subset(X, y, valIdx)
		holdout := factory()
		if err := holdout.Fit(Xtr, ytr); err != nil {
			return fmt.Errorf("hold-out fit: %w", err)
		}
		p, err := holdout.PredictProba(Xval)
		if err != nil {
			return err
		}
		log.Info().Msgf("Hold-out validation: %s", model.Evaluate(yval, p, threshold))
	}

	if test == nil {
		log.Info().Msg("no-test-table-skipping-submission")
		return nil
	}
	if err := table.CheckCompatible(train, test); err != nil {
		return err
	}
	final := factory()
	if err := final.Fit(X, y); err != nil {
		return fmt.Errorf("final fit: %w", err)
	}
	preds, err := model.Predict(final, test.Matrix(), threshold)
	if err != nil {
		return err
	}
	path := cfg.GetString(config.ConfigSubmissionPath)
	if err := submission.WriteFile(path, test.IDs(), preds); err != nil {
		return err
	}
	log.Info().Str("path", path).Int("rows", len(preds)).Msg("wrote-submission")
	return nil
}
