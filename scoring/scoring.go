// Package scoring turns type information into single numbers: how a set of
// types fares against the whole chart, and how two rosters of survivors
// match up once their remaining health is taken into account.
package scoring

import (
	"github.com/pokewin/pokewin/lookup"
	"github.com/pokewin/pokewin/typechart"
)

// TypeResilience sums, over each type, the number of chart entries in its
// attack row above neutral minus those below neutral, then divides by the
// number of types. No types means no information: 0.
func TypeResilience(chart *typechart.Chart, types []string) float64 {
	if len(types) == 0 {
		return 0
	}
	score := 0
	for _, t := range types {
		for _, v := range chart.Row(t) {
			switch {
			case v > typechart.Neutral:
				score++
			case v < typechart.Neutral:
				score--
			}
		}
	}
	return float64(score) / float64(len(types))
}

// TypeHPMatch averages, over every (p1 survivor, p2 survivor) pair, the mean
// effectiveness of p1's types against p2's types weighted by how much more
// health p1's survivor has left. Types come from the species index; a
// survivor missing from an hp map counts as full health. With no pairs the
// score is 0.
func TypeHPMatch(chart *typechart.Chart, idx *lookup.SpeciesIndex,
	p1Alive, p2Alive []string, p1HP, p2HP map[string]float64) float64 {

	if len(p1Alive) == 0 || len(p2Alive) == 0 {
		return 0
	}
	sum := 0.0
	for _, a := range p1Alive {
		aTypes := idx.Types(a)
		aHP := hpOf(p1HP, a)
		for _, d := range p2Alive {
			eff := chart.MeanEffectiveness(aTypes, idx.Types(d))
			sum += eff * (aHP - hpOf(p2HP, d))
		}
	}
	return sum / float64(len(p1Alive)*len(p2Alive))
}

func hpOf(hp map[string]float64, name string) float64 {
	if v, ok := hp[name]; ok {
		return v
	}
	return 1.0
}
