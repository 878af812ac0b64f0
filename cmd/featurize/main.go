// featurize reads the train and test battle corpora and writes one feature
// table for each.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/pokewin/pokewin/config"
	"github.com/pokewin/pokewin/features"
	"github.com/pokewin/pokewin/stats"
	"github.com/pokewin/pokewin/store"
	"github.com/pokewin/pokewin/table"
)

const (
	TrainFeaturesFile = "train_features.csv"
	TestFeaturesFile  = "test_features.csv"
	histogramBins     = 12
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
	log.Info().Msgf("Loaded config: %v", cfg.AllSettings())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("featurize-failed")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	groups, err := features.ParseSet(cfg.GetString(config.ConfigFeatureSet))
	if err != nil {
		return err
	}
	fctx, err := features.LoadContext(cfg)
	if err != nil {
		return fmt.Errorf("building extraction context: %w", err)
	}
	if unique := fctx.Usage.UniqueP2(); len(unique) > 0 {
		log.Info().Int("count", len(unique)).Strs("species", unique).
			Msg("p2-uses-species-p1-never-does")
	} else {
		log.Info().Msg("every-p2-species-also-appears-for-p1")
	}
	extractor := features.NewExtractor(fctx, groups)
	log.Info().Str("groups", groups.String()).Int("columns", extractor.Schema().Len()).
		Msg("feature-schema")

	trainTable, err := extract(ctx, cfg, extractor, cfg.GetString(config.ConfigTrainPath))
	if err != nil {
		return err
	}
	var testTable *table.Table
	if path := cfg.GetString(config.ConfigTestPath); path != "" {
		testTable, err = extract(ctx, cfg, extractor, path)
		if err != nil {
			return err
		}
		if err := table.CheckCompatible(trainTable, testTable); err != nil {
			return err
		}
	}

	outDir := cfg.GetString(config.ConfigOutputDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	if err := writeTable(filepath.Join(outDir, TrainFeaturesFile), trainTable); err != nil {
		return err
	}
	if testTable != nil {
		if err := writeTable(filepath.Join(outDir, TestFeaturesFile), testTable); err != nil {
			return err
		}
	}

	if path := cfg.GetString(config.ConfigStorePath); path != "" {
		if err := persist(ctx, path, trainTable, testTable); err != nil {
			return err
		}
	}
	if cfg.GetBool(config.ConfigSummary) {
		return summarize(trainTable)
	}
	return nil
}

func extract(ctx context.Context, cfg *config.Config, ex *features.Extractor, path string) (*table.Table, error) {
	battles, err := features.LoadCorpus(cfg, path)
	if err != nil {
		return nil, err
	}
	res, err := features.ExtractAll(ctx, ex, battles, cfg.GetInt(config.ConfigWorkers))
	if err != nil {
		return nil, err
	}
	if res.Skipped > 0 {
		log.Info().Str("path", path).Int("skipped", res.Skipped).
			Msg("skipped-battles-with-empty-timeline")
	}
	t, err := table.FromResult(res)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if n := t.FillMissing(); n > 0 {
		log.Debug().Str("path", path).Int("cells", n).Msg("zero-filled-missing-cells")
	}
	return t, nil
}

func writeTable(path string, t *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	log.Info().Str("path", path).Int("rows", t.Len()).Msg("wrote-feature-table")
	return f.Close()
}

func persist(ctx context.Context, path string, train, test *table.Table) error {
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.SaveTable(ctx, "train", train); err != nil {
		return err
	}
	if test != nil {
		return s.SaveTable(ctx, "test", test)
	}
	return nil
}

func summarize(t *table.Table) error {
	rows := lo.Map(t.Rows, func(r table.Row, _ int) []float64 { return r.Values })
	for _, s := range stats.Summarize(t.Columns, rows) {
		fmt.Println(s)
	}
	for _, name := range t.Columns {
		col, _ := t.Column(name)
		if err := stats.FeatureHistogram(os.Stdout, name, col, histogramBins); err != nil {
			return err
		}
	}
	return nil
}
