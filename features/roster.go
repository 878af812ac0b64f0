package features

import (
	"sort"

	"github.com/pokewin/pokewin/battle"
	"github.com/pokewin/pokewin/lookup"
)

// RosterStrategy is one source of evidence about player 2's team. A
// strategy reports ok=false when it has no evidence at all for the battle,
// which hands the decision to the next strategy. A strategy that has
// evidence claims the battle even if none of the species it names can be
// resolved to stats.
type RosterStrategy interface {
	Name() string
	Resolve(b *battle.Battle, ctx *Context) (roster []lookup.Species, ok bool)
}

// DefaultStrategies: the explicit roster, then what the timeline shows,
// then the corpus-wide fallback.
func DefaultStrategies() []RosterStrategy {
	return []RosterStrategy{ExplicitRoster{}, TimelineRoster{}, GlobalUsageRoster{}}
}

// NoRoster is the tier reported when no strategy had evidence.
const NoRoster = "none"

// ResolveP2Roster tries each strategy in order and stops at the first one
// with evidence.
func ResolveP2Roster(b *battle.Battle, ctx *Context) ([]lookup.Species, string) {
	for _, s := range ctx.Strategies {
		if roster, ok := s.Resolve(b, ctx); ok {
			return roster, s.Name()
		}
	}
	return nil, NoRoster
}

// ExplicitRoster uses p2_team_details when the record has it.
type ExplicitRoster struct{}

func (ExplicitRoster) Name() string { return "explicit" }

func (ExplicitRoster) Resolve(b *battle.Battle, _ *Context) ([]lookup.Species, bool) {
	if !b.HasP2Team() {
		return nil, false
	}
	roster := make([]lookup.Species, 0, len(b.P2Team))
	for _, p := range b.P2Team {
		roster = append(roster, lookup.Species{
			Name:    lookup.NormalizeName(p.Name),
			BaseHP:  p.BaseHP,
			BaseAtk: p.BaseAtk,
			BaseDef: p.BaseDef,
			BaseSpe: p.BaseSpe,
		})
	}
	return roster, true
}

// TimelineRoster uses the species player 2 showed within the cutoff,
// resolved through the species index.
type TimelineRoster struct{}

func (TimelineRoster) Name() string { return "timeline" }

func (TimelineRoster) Resolve(b *battle.Battle, ctx *Context) ([]lookup.Species, bool) {
	seen := make(map[string]struct{})
	for _, t := range b.Window(ctx.Cutoff) {
		if t.P2State == nil {
			continue
		}
		if name := lookup.NormalizeName(t.P2State.Name); name != "" {
			seen[name] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil, false
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return resolveNames(ctx, names), true
}

// GlobalUsageRoster stands in the first few species player 2 was seen with
// anywhere in the training corpus.
type GlobalUsageRoster struct{}

func (GlobalUsageRoster) Name() string { return "global-usage" }

func (GlobalUsageRoster) Resolve(_ *battle.Battle, ctx *Context) ([]lookup.Species, bool) {
	names := ctx.Usage.FallbackRoster(ctx.FallbackRosterSize)
	if len(names) == 0 {
		return nil, false
	}
	return resolveNames(ctx, names), true
}

func resolveNames(ctx *Context, names []string) []lookup.Species {
	roster := make([]lookup.Species, 0, len(names))
	for _, name := range names {
		if s, ok := ctx.Species.Stats(name); ok {
			roster = append(roster, s)
		}
	}
	return roster
}
