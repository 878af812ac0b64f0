package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigDebug              = "debug"
	ConfigConfigFile         = "config"
	ConfigTrainPath          = "train-path"
	ConfigTestPath           = "test-path"
	ConfigOutputDir          = "output-dir"
	ConfigTurnCutoff         = "turn-cutoff"
	ConfigWorkers            = "workers"
	ConfigFeatureSet         = "feature-set"
	ConfigTypeChartPath      = "type-chart-path"
	ConfigStorePath          = "store-path"
	ConfigFallbackRosterSize = "fallback-roster-size"
	ConfigMemoryFractionWarn = "memory-fraction-warn"
	ConfigSummary            = "summary"
	ConfigSeed               = "seed"
	ConfigCVFolds            = "cv-folds"
	ConfigValidationFraction = "validation-fraction"
	ConfigL2                 = "l2"
	ConfigMaxIterations      = "max-iterations"
	ConfigDecisionThreshold  = "decision-threshold"
	ConfigSubmissionPath     = "submission-path"
)

// inputPathKeys are re-rooted by AdjustRelativePaths. Output paths are
// always relative to the working directory.
var inputPathKeys = []string{ConfigTrainPath, ConfigTestPath, ConfigTypeChartPath}

type Config struct {
	*viper.Viper
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		ConfigDebug:              false,
		ConfigConfigFile:         "",
		ConfigTrainPath:          "./data/train.jsonl",
		ConfigTestPath:           "./data/test.jsonl",
		ConfigOutputDir:          "./out",
		ConfigTurnCutoff:         30,
		ConfigWorkers:            runtime.NumCPU(),
		ConfigFeatureSet:         "full",
		ConfigTypeChartPath:      "",
		ConfigStorePath:          "",
		ConfigFallbackRosterSize: 6,
		ConfigMemoryFractionWarn: 0.5,
		ConfigSummary:            false,
		ConfigSeed:               42,
		ConfigCVFolds:            5,
		ConfigValidationFraction: 0.2,
		ConfigL2:                 1.0,
		ConfigMaxIterations:      500,
		ConfigDecisionThreshold:  0.5,
		ConfigSubmissionPath:     "./out/submission.csv",
	}
}

// DefaultConfig is a config with every default set and nothing else read.
func DefaultConfig() *Config {
	c := &Config{Viper: viper.New()}
	for k, v := range defaults() {
		c.SetDefault(k, v)
	}
	return c
}

// flagSet declares one flag per setting, typed after its default.
func flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("pokewin", pflag.ContinueOnError)
	for k, v := range defaults() {
		switch d := v.(type) {
		case bool:
			fs.Bool(k, d, "")
		case int:
			fs.Int(k, d, "")
		case float64:
			fs.Float64(k, d, "")
		case string:
			fs.String(k, d, "")
		}
	}
	return fs
}

// Load layers, lowest priority first: defaults, an optional YAML config
// file, POKEWIN_* environment variables, and command-line flags.
func (c *Config) Load(args []string) error {
	c.Viper = DefaultConfig().Viper
	c.SetEnvPrefix("pokewin")
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()

	fs := flagSet()
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	if err := c.BindPFlags(fs); err != nil {
		return err
	}
	if cfgFile := c.GetString(ConfigConfigFile); cfgFile != "" {
		c.SetConfigFile(cfgFile)
		if err := c.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
	}
	return c.validate()
}

func (c *Config) validate() error {
	if c.GetInt(ConfigTurnCutoff) <= 0 {
		return fmt.Errorf("%s must be positive", ConfigTurnCutoff)
	}
	if c.GetInt(ConfigCVFolds) < 2 {
		return fmt.Errorf("%s must be at least 2", ConfigCVFolds)
	}
	if f := c.GetFloat64(ConfigValidationFraction); f <= 0 || f >= 1 {
		return fmt.Errorf("%s must be in (0, 1)", ConfigValidationFraction)
	}
	if c.GetInt(ConfigWorkers) <= 0 {
		c.Set(ConfigWorkers, runtime.NumCPU())
	}
	return nil
}

// AdjustRelativePaths re-roots relative path settings at basePath (the
// directory of the executable), unless they already exist relative to the
// working directory.
func (c *Config) AdjustRelativePaths(basePath string) {
	for _, k := range inputPathKeys {
		p := c.GetString(k)
		if p == "" || filepath.IsAbs(p) {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			continue
		}
		c.Set(k, filepath.Join(basePath, p))
	}
}
