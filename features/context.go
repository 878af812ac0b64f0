// Package features turns one battle record into one fixed-schema row of
// numbers, and a corpus of battles into a table of such rows.
package features

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/pokewin/pokewin/battle"
	"github.com/pokewin/pokewin/cache"
	"github.com/pokewin/pokewin/config"
	"github.com/pokewin/pokewin/lookup"
	"github.com/pokewin/pokewin/typechart"
)

// DefaultFallbackRosterSize is how many globally seen player 2 species stand
// in for a roster the battle itself does not reveal.
const DefaultFallbackRosterSize = 6

// Context is the read-only data shared by every extraction: the chart and
// the tables built from the training corpus. It is passed explicitly so
// that extracting one battle never touches mutable state.
type Context struct {
	Chart              *typechart.Chart
	Species            *lookup.SpeciesIndex
	Usage              *lookup.Usage
	Cutoff             int
	FallbackRosterSize int
	// Strategies resolves player 2's roster, in order.
	Strategies []RosterStrategy
}

// NewContext builds the shared tables from the training corpus only. Test
// battles are never used to build them.
func NewContext(chart *typechart.Chart, train []*battle.Battle, cutoff int) *Context {
	if cutoff <= 0 {
		cutoff = battle.DefaultCutoff
	}
	if chart == nil {
		chart = typechart.Default()
	}
	ctx := &Context{
		Chart:              chart,
		Species:            lookup.BuildSpeciesIndex(train),
		Usage:              lookup.AnalyzeUsage(train, cutoff),
		Cutoff:             cutoff,
		FallbackRosterSize: DefaultFallbackRosterSize,
		Strategies:         DefaultStrategies(),
	}
	log.Debug().Int("species", ctx.Species.Len()).
		Int("p1-species", len(ctx.Usage.P1)).
		Int("p2-species", len(ctx.Usage.P2)).
		Bool("p2-has-unique", ctx.Usage.HasUniqueP2).
		Msg("built-extraction-context")
	return ctx
}

// LoadCorpus reads a corpus through the object cache, so the training
// corpus is read once whether it is wanted for building the context or for
// extraction.
func LoadCorpus(cfg *config.Config, path string) ([]*battle.Battle, error) {
	obj, err := cache.Load(cfg, "corpus:"+path, corpusLoadFunc)
	if err != nil {
		return nil, err
	}
	battles, ok := obj.([]*battle.Battle)
	if !ok {
		return nil, fmt.Errorf("cache key corpus:%s holds %T, not a corpus", path, obj)
	}
	return battles, nil
}

func corpusLoadFunc(cfg *config.Config, key string) (interface{}, error) {
	path, ok := strings.CutPrefix(key, "corpus:")
	if !ok {
		return nil, fmt.Errorf("corpusLoadFunc - bad cache key: %s", key)
	}
	return battle.LoadFile(path, cfg.GetFloat64(config.ConfigMemoryFractionWarn))
}

// LoadContext builds (or fetches from the object cache) the context for the
// configured training corpus, chart and cutoff.
func LoadContext(cfg *config.Config) (*Context, error) {
	key := strings.Join([]string{"context", cfg.GetString(config.ConfigTrainPath),
		cfg.GetString(config.ConfigTypeChartPath),
		strconv.Itoa(cfg.GetInt(config.ConfigTurnCutoff))}, ":")
	obj, err := cache.Load(cfg, key, contextLoadFunc)
	if err != nil {
		return nil, err
	}
	cached, ok := obj.(*Context)
	if !ok {
		return nil, fmt.Errorf("cache key %s holds %T, not a context", key, obj)
	}
	// The cached context is shared; settings that are cheap to vary go on a copy.
	ctx := *cached
	ctx.FallbackRosterSize = cfg.GetInt(config.ConfigFallbackRosterSize)
	return &ctx, nil
}

func contextLoadFunc(cfg *config.Config, key string) (interface{}, error) {
	if !strings.HasPrefix(key, "context:") {
		return nil, fmt.Errorf("contextLoadFunc - bad cache key: %s", key)
	}
	chart, err := typechart.LoadFile(cfg.GetString(config.ConfigTypeChartPath))
	if err != nil {
		return nil, err
	}
	train, err := LoadCorpus(cfg, cfg.GetString(config.ConfigTrainPath))
	if err != nil {
		return nil, err
	}
	return NewContext(chart, train, cfg.GetInt(config.ConfigTurnCutoff)), nil
}
