// Package lookup builds the corpus-wide tables the feature extractor shares
// across battles: what each species is (types and base stats) and which
// species each side has been seen using.
package lookup

import (
	"sort"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pokewin/pokewin/battle"
	"github.com/pokewin/pokewin/typechart"
)

// NormalizeName is the key every species is stored and looked up under.
// A Caser keeps state, so each call gets its own.
func NormalizeName(name string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(name))
}

// Species is what the corpus says about one species.
type Species struct {
	Name    string
	Types   []string
	BaseHP  float64
	BaseAtk float64
	BaseDef float64
	BaseSpe float64
}

// SpeciesIndex maps a normalized species name to its types and base stats.
// It is built once from the training corpus and only read afterwards.
type SpeciesIndex struct {
	species map[string]Species
}

// BuildSpeciesIndex scans every player 1 roster, the only side whose full
// team is known. Entries without a name or without any real type are
// ignored; when a species appears more than once the last entry wins.
func BuildSpeciesIndex(battles []*battle.Battle) *SpeciesIndex {
	idx := &SpeciesIndex{species: make(map[string]Species)}
	for _, b := range battles {
		for _, p := range b.P1Team {
			idx.add(p)
		}
	}
	return idx
}

// NewSpeciesIndex builds an index directly from roster entries.
func NewSpeciesIndex(entries ...battle.Pokemon) *SpeciesIndex {
	idx := &SpeciesIndex{species: make(map[string]Species)}
	for _, p := range entries {
		idx.add(p)
	}
	return idx
}

func (idx *SpeciesIndex) add(p battle.Pokemon) {
	name := NormalizeName(p.Name)
	types := typechart.FilterTypes(p.Types)
	if name == "" || len(types) == 0 {
		return
	}
	idx.species[name] = Species{
		Name:    name,
		Types:   types,
		BaseHP:  p.BaseHP,
		BaseAtk: p.BaseAtk,
		BaseDef: p.BaseDef,
		BaseSpe: p.BaseSpe,
	}
}

// Types returns the known types of a species, or an empty list.
func (idx *SpeciesIndex) Types(name string) []string {
	if idx == nil {
		return []string{}
	}
	s, ok := idx.species[NormalizeName(name)]
	if !ok {
		return []string{}
	}
	return s.Types
}

// Stats returns everything known about a species.
func (idx *SpeciesIndex) Stats(name string) (Species, bool) {
	if idx == nil {
		return Species{}, false
	}
	s, ok := idx.species[NormalizeName(name)]
	return s, ok
}

func (idx *SpeciesIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.species)
}

// Names lists the indexed species in sorted order.
func (idx *SpeciesIndex) Names() []string {
	if idx == nil {
		return nil
	}
	names := lo.Keys(idx.species)
	sort.Strings(names)
	return names
}

// Equal reports whether two indexes hold the same species with the same data.
func (idx *SpeciesIndex) Equal(other *SpeciesIndex) bool {
	if idx.Len() != other.Len() {
		return false
	}
	if idx.Len() == 0 {
		return true
	}
	for name, s := range idx.species {
		o, ok := other.species[name]
		if !ok {
			return false
		}
		if o.BaseHP != s.BaseHP || o.BaseAtk != s.BaseAtk ||
			o.BaseDef != s.BaseDef || o.BaseSpe != s.BaseSpe {
			return false
		}
		if len(o.Types) != len(s.Types) {
			return false
		}
		for i := range s.Types {
			if s.Types[i] != o.Types[i] {
				return false
			}
		}
	}
	return true
}
