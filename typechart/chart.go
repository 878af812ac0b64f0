// Package typechart holds the elemental type matchup table and the lookups
// derived from it.
package typechart

import (
	"sort"
	"strings"
)

// Neutral is the multiplier for any attack/defend pair the chart does not list.
const Neutral = 1.0

// NoType marks the empty second slot of a single-typed species.
const NoType = "notype"

// Chart maps an attacking type to the multipliers it deals to defending types.
// Only non-neutral entries need to be present. A Chart is never mutated after
// construction, so it can be shared by any number of goroutines.
type Chart struct {
	entries map[string]map[string]float64
}

// gen1 is the generation 1 chart. It keeps the gen 1 quirks: ghost does
// nothing to psychic, bug and poison are super effective against each other,
// and ice is neutral against fire.
var gen1 = map[string]map[string]float64{
	"normal": {"rock": 0.5, "ghost": 0},
	"fire": {
		"fire": 0.5, "water": 0.5, "grass": 2, "ice": 2, "bug": 2, "rock": 0.5, "dragon": 0.5,
	},
	"water": {
		"fire": 2, "water": 0.5, "grass": 0.5, "ground": 2, "rock": 2, "dragon": 0.5,
	},
	"electric": {
		"water": 2, "electric": 0.5, "grass": 0.5, "ground": 0, "flying": 2, "dragon": 0.5,
	},
	"grass": {
		"fire": 0.5, "water": 2, "grass": 0.5, "poison": 0.5, "ground": 2, "flying": 0.5,
		"bug": 0.5, "rock": 2, "dragon": 0.5,
	},
	"ice": {
		"water": 0.5, "grass": 2, "ice": 0.5, "ground": 2, "flying": 2, "dragon": 2,
	},
	"fighting": {
		"normal": 2, "ice": 2, "poison": 0.5, "flying": 0.5, "psychic": 0.5, "bug": 0.5,
		"rock": 2, "ghost": 0,
	},
	"poison": {
		"grass": 2, "poison": 0.5, "ground": 0.5, "bug": 2, "rock": 0.5, "ghost": 0.5,
	},
	"ground": {
		"fire": 2, "electric": 2, "grass": 0.5, "poison": 2, "flying": 0, "bug": 0.5, "rock": 2,
	},
	"flying": {
		"electric": 0.5, "grass": 2, "fighting": 2, "bug": 2, "rock": 0.5,
	},
	"psychic": {"fighting": 2, "poison": 2, "psychic": 0.5},
	"bug": {
		"fire": 0.5, "grass": 2, "fighting": 0.5, "poison": 2, "flying": 0.5, "psychic": 2,
		"ghost": 0.5,
	},
	"rock": {
		"fire": 2, "ice": 2, "fighting": 0.5, "ground": 0.5, "flying": 2, "bug": 2,
	},
	"ghost":  {"normal": 0, "psychic": 0, "ghost": 2},
	"dragon": {"dragon": 2},
}

// Default returns the generation 1 chart.
func Default() *Chart {
	return New(gen1)
}

// New builds a chart from the given entries. Keys are lower-cased and the
// input maps are copied.
func New(entries map[string]map[string]float64) *Chart {
	c := &Chart{entries: make(map[string]map[string]float64, len(entries))}
	for atk, row := range entries {
		atk = normalize(atk)
		if atk == "" {
			continue
		}
		dst, ok := c.entries[atk]
		if !ok {
			dst = make(map[string]float64, len(row))
			c.entries[atk] = dst
		}
		for def, v := range row {
			def = normalize(def)
			if def == "" {
				continue
			}
			dst[def] = v
		}
	}
	return c
}

func normalize(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// Effectiveness is the multiplier an attack of type attack deals to a
// defender of type defend. Lookups are case-insensitive; anything not in
// the chart is neutral.
func (c *Chart) Effectiveness(attack, defend string) float64 {
	if c == nil {
		return Neutral
	}
	row, ok := c.entries[normalize(attack)]
	if !ok {
		return Neutral
	}
	v, ok := row[normalize(defend)]
	if !ok {
		return Neutral
	}
	return v
}

// MeanEffectiveness averages Effectiveness over every attack type x defend
// type pair. With nothing to compare on either side it is neutral.
func (c *Chart) MeanEffectiveness(attack, defend []string) float64 {
	if len(attack) == 0 || len(defend) == 0 {
		return Neutral
	}
	total := 0.0
	for _, a := range attack {
		for _, d := range defend {
			total += c.Effectiveness(a, d)
		}
	}
	return total / float64(len(attack)*len(defend))
}

// CompoundEffectiveness is the multiplier a single attack deals to a target
// with all of the given types, i.e. the product over the target's types.
func (c *Chart) CompoundEffectiveness(attack string, defend []string) float64 {
	eff := Neutral
	for _, d := range defend {
		eff *= c.Effectiveness(attack, d)
	}
	return eff
}

// Row returns the non-neutral multipliers of one attacking type. The
// returned map must not be modified.
func (c *Chart) Row(attack string) map[string]float64 {
	if c == nil {
		return nil
	}
	return c.entries[normalize(attack)]
}

// Types lists the attacking types of the chart in sorted order.
func (c *Chart) Types() []string {
	if c == nil {
		return nil
	}
	ts := make([]string, 0, len(c.entries))
	for t := range c.entries {
		ts = append(ts, t)
	}
	sort.Strings(ts)
	return ts
}

// FilterTypes lower-cases a raw type list and drops the placeholders used
// for a missing type ("", "notype", "none").
func FilterTypes(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		t = normalize(t)
		switch t {
		case "", NoType, "none":
			continue
		}
		out = append(out, t)
	}
	return out
}
