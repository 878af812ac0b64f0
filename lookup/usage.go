package lookup

import (
	"sort"

	"github.com/samber/lo"

	"github.com/pokewin/pokewin/battle"
)

// Usage records which species each side was ever seen with across a corpus.
type Usage struct {
	P1 map[string]struct{}
	P2 map[string]struct{}
	// HasUniqueP2 is true when player 2 used at least one species player 1
	// never did.
	HasUniqueP2 bool
}

// AnalyzeUsage collects player 1 species from the rosters and player 2
// species from the first cutoff turns of every timeline.
func AnalyzeUsage(battles []*battle.Battle, cutoff int) *Usage {
	u := &Usage{
		P1: make(map[string]struct{}),
		P2: make(map[string]struct{}),
	}
	for _, b := range battles {
		for _, p := range b.P1Team {
			if name := NormalizeName(p.Name); name != "" {
				u.P1[name] = struct{}{}
			}
		}
		for _, t := range b.Window(cutoff) {
			if t.P2State == nil {
				continue
			}
			if name := NormalizeName(t.P2State.Name); name != "" {
				u.P2[name] = struct{}{}
			}
		}
	}
	u.HasUniqueP2 = len(u.UniqueP2()) > 0
	return u
}

// UniqueP2 lists, sorted, the player 2 species player 1 never used.
func (u *Usage) UniqueP2() []string {
	if u == nil {
		return nil
	}
	unique := lo.Filter(lo.Keys(u.P2), func(name string, _ int) bool {
		_, ok := u.P1[name]
		return !ok
	})
	sort.Strings(unique)
	return unique
}

// FallbackRoster is a stand-in player 2 team for battles that reveal none:
// the first n player 2 species in sorted order.
func (u *Usage) FallbackRoster(n int) []string {
	if u == nil || n <= 0 {
		return nil
	}
	names := lo.Keys(u.P2)
	sort.Strings(names)
	if len(names) > n {
		names = names[:n]
	}
	return names
}
