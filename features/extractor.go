package features

import (
	"math"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/pokewin/pokewin/battle"
	"github.com/pokewin/pokewin/lookup"
	"github.com/pokewin/pokewin/scoring"
	"github.com/pokewin/pokewin/typechart"
)

// Statuses that do not count as an affliction.
var benignStatuses = map[string]struct{}{
	"nostatus": {}, "noeffect": {}, "": {}, "fnt": {}, "none": {},
}

var boostedStats = []string{"atk", "def", "spa", "spd", "spe"}

const fainted = "fnt"

// Row is the feature row of one battle. Values line up with Schema.
type Row struct {
	BattleID string
	HasLabel bool
	Label    int
	Values   []float64
	Schema   *Schema
	// RosterTier names the strategy that resolved player 2's team.
	RosterTier string
}

// Get returns the value of a column, and false if the row has no such column.
func (r Row) Get(name string) (float64, bool) {
	if r.Schema == nil {
		return 0, false
	}
	i, ok := r.Schema.Index(name)
	if !ok {
		return 0, false
	}
	return r.Values[i], true
}

// Extractor computes feature rows. It holds nothing but read-only data, so
// one Extractor can serve any number of goroutines.
type Extractor struct {
	ctx    *Context
	groups Group
	schema *Schema
}

func NewExtractor(ctx *Context, groups Group) *Extractor {
	return &Extractor{ctx: ctx, groups: groups, schema: NewSchema(groups)}
}

func (ex *Extractor) Schema() *Schema { return ex.schema }
func (ex *Extractor) Groups() Group   { return ex.groups }

// rowBuilder writes values by column name, ignoring columns outside the
// schema.
type rowBuilder struct {
	schema *Schema
	values []float64
}

func (rb *rowBuilder) set(name string, v float64) {
	if i, ok := rb.schema.Index(name); ok {
		rb.values[i] = v
	}
}

// Extract builds the row for one battle. A battle with an empty timeline has
// nothing to measure and yields ok=false.
func (ex *Extractor) Extract(b *battle.Battle) (Row, bool) {
	window := b.Window(ex.ctx.Cutoff)
	if len(window) == 0 {
		return Row{}, false
	}
	rb := &rowBuilder{schema: ex.schema, values: make([]float64, ex.schema.Len())}
	for i := range rb.values {
		rb.values[i] = math.NaN()
	}
	row := Row{
		BattleID: b.ID,
		HasLabel: b.HasLabel(),
		Label:    b.Label(),
		Schema:   ex.schema,
	}

	if ex.groups.Has(TeamBaselines) {
		row.RosterTier = ex.teamBaselines(rb, b)
	}
	if ex.groups.Has(LeadBaselines) {
		leadBaselines(rb, b)
	}
	if ex.groups.Has(KnockOuts) {
		knockOuts(rb, window)
	}
	if ex.groups.Has(Status) {
		statusCounts(rb, window)
	}
	if ex.groups.Has(HPRemaining) {
		hpRemaining(rb, b, window)
	}
	if ex.groups.Has(Vulnerability) {
		ex.vulnerability(rb, b, window)
	}
	if ex.groups.Has(Tempo) {
		ex.tempo(rb, window)
	}
	if ex.groups.Has(Boosts) {
		boostPressure(rb, window)
	}
	if ex.groups.Has(MoveActivity) {
		moveActivity(rb, window)
	}
	if ex.groups.Has(Survivors) {
		ex.survivors(rb, b, window)
	}
	row.Values = rb.values
	return row, true
}

type baseline struct{ hp, atk, def, spe float64 }

func meanBaseline(roster []lookup.Species) baseline {
	if len(roster) == 0 {
		return baseline{}
	}
	var m baseline
	for _, s := range roster {
		m.hp += s.BaseHP
		m.atk += s.BaseAtk
		m.def += s.BaseDef
		m.spe += s.BaseSpe
	}
	n := float64(len(roster))
	return baseline{m.hp / n, m.atk / n, m.def / n, m.spe / n}
}

func (ex *Extractor) teamBaselines(rb *rowBuilder, b *battle.Battle) string {
	p1 := meanBaseline(lo.Map(b.P1Team, func(p battle.Pokemon, _ int) lookup.Species {
		return lookup.Species{BaseHP: p.BaseHP, BaseAtk: p.BaseAtk, BaseDef: p.BaseDef, BaseSpe: p.BaseSpe}
	}))
	roster, tier := ResolveP2Roster(b, ex.ctx)
	p2 := meanBaseline(roster)

	rb.set("p1_mean_hp", p1.hp)
	rb.set("p1_mean_atk", p1.atk)
	rb.set("p1_mean_def", p1.def)
	rb.set("p1_mean_spe", p1.spe)
	rb.set("p2_mean_hp", p2.hp)
	rb.set("p2_mean_atk", p2.atk)
	rb.set("p2_mean_def", p2.def)
	rb.set("p2_mean_spe", p2.spe)
	rb.set("hp_team_diff", p1.hp-p2.hp)
	rb.set("atk_team_diff", p1.atk-p2.atk)
	rb.set("def_team_diff", p1.def-p2.def)
	rb.set("spe_team_diff", p1.spe-p2.spe)
	return tier
}

func leadBaselines(rb *rowBuilder, b *battle.Battle) {
	var lead battle.Pokemon
	if b.P2Lead != nil {
		lead = *b.P2Lead
	}
	rb.set("p2_lead_hp", lead.BaseHP)
	rb.set("p2_lead_atk", lead.BaseAtk)
	rb.set("p2_lead_def", lead.BaseDef)
	rb.set("p2_lead_spe", lead.BaseSpe)
}

func isFainted(status string) bool {
	return strings.Contains(strings.ToLower(status), fainted)
}

func knockOuts(rb *rowBuilder, window []battle.Turn) {
	ko := [2]map[string]struct{}{{}, {}}
	for _, t := range window {
		for _, side := range []battle.Side{battle.P1, battle.P2} {
			s := t.State(side)
			if s == nil {
				continue
			}
			name := lookup.NormalizeName(s.Name)
			if name == "" {
				continue
			}
			hp, hasHP := s.HP()
			if isFainted(s.Status) || (hasHP && hp == 0) {
				ko[side][name] = struct{}{}
			}
		}
	}
	p1, p2 := float64(len(ko[battle.P1])), float64(len(ko[battle.P2]))
	rb.set("p1_num_KO", p1)
	rb.set("p2_num_KO", p2)
	rb.set("ko_diff", p2-p1)
}

// statusCounts counts turn observations, not species: a pokemon asleep for
// three turns counts three times.
func statusCounts(rb *rowBuilder, window []battle.Turn) {
	var n [2]float64
	for _, t := range window {
		for _, side := range []battle.Side{battle.P1, battle.P2} {
			s := t.State(side)
			if s == nil {
				continue
			}
			if _, ok := benignStatuses[strings.ToLower(s.Status)]; !ok {
				n[side]++
			}
		}
	}
	rb.set("p1_num_status", n[battle.P1])
	rb.set("p2_num_status", n[battle.P2])
	rb.set("status_diff", n[battle.P2]-n[battle.P1])
}

// lastSeenHP maps each species observed for a side to its last numeric hp.
func lastSeenHP(window []battle.Turn, side battle.Side) map[string]float64 {
	last := make(map[string]float64)
	for _, t := range window {
		s := t.State(side)
		if s == nil {
			continue
		}
		name := lookup.NormalizeName(s.Name)
		hp, ok := s.HP()
		if name == "" || !ok {
			continue
		}
		last[name] = hp
	}
	return last
}

// meanHP sums in name order so the result doesn't depend on map order.
func meanHP(hp map[string]float64) float64 {
	if len(hp) == 0 {
		return 1.0
	}
	names := lo.Keys(hp)
	sort.Strings(names)
	return lo.SumBy(names, func(n string) float64 { return hp[n] }) / float64(len(hp))
}

func hpRemaining(rb *rowBuilder, b *battle.Battle, window []battle.Turn) {
	p1 := lastSeenHP(window, battle.P1)
	p2 := lastSeenHP(window, battle.P2)

	// Known members that never showed up are at full health.
	for _, p := range b.P1Team {
		name := lookup.NormalizeName(p.Name)
		if _, ok := p1[name]; !ok {
			p1[name] = 1.0
		}
	}
	if b.HasP2Team() {
		for _, p := range b.P2Team {
			name := lookup.NormalizeName(p.Name)
			if _, ok := p2[name]; !ok {
				p2[name] = 1.0
			}
		}
	} else if b.P2Lead != nil {
		name := lookup.NormalizeName(b.P2Lead.Name)
		if _, ok := p2[name]; name != "" && !ok {
			p2[name] = 1.0
		}
	}

	m1, m2 := meanHP(p1), meanHP(p2)
	rb.set("p1_mean_hp_remaining", m1)
	rb.set("p2_mean_hp_remaining", m2)
	rb.set("hp_remaining_diff", m2-m1)
}

// vulnerability is how hard, on average, the attacks player 2 used would
// hit each member of player 1's team.
func (ex *Extractor) vulnerability(rb *rowBuilder, b *battle.Battle, window []battle.Turn) {
	var attacks []string
	for _, t := range window {
		if t.P2Move == nil {
			continue
		}
		if ts := typechart.FilterTypes([]string{t.P2Move.Type}); len(ts) == 1 {
			attacks = append(attacks, ts[0])
		}
	}
	total, count := 0.0, 0
	for _, atk := range attacks {
		for _, p := range b.P1Team {
			def := typechart.FilterTypes(p.Types)
			if len(def) == 0 {
				continue
			}
			total += ex.ctx.Chart.CompoundEffectiveness(atk, def)
			count++
		}
	}
	v := 1.0
	if count > 0 {
		v = total / float64(count)
	}
	rb.set("p1_type_vulnerability", v)
}

// tempo counts the turns each side ends with more hp on its active pokemon.
// The ratios are over the full cutoff, so a short battle has low ratios.
func (ex *Extractor) tempo(rb *rowBuilder, window []battle.Turn) {
	var p1Adv, p2Adv int
	for _, t := range window {
		p1 := t.P1State.HPOr(1.0)
		p2 := t.P2State.HPOr(1.0)
		switch {
		case p1 > p2:
			p1Adv++
		case p2 > p1:
			p2Adv++
		}
	}
	cutoff := float64(ex.ctx.Cutoff)
	r1, r2 := float64(p1Adv)/cutoff, float64(p2Adv)/cutoff
	rb.set("p1_advantage_ratio", r1)
	rb.set("p2_advantage_ratio", r2)
	rb.set("tempo_balance", r1-r2)
}

func boostPressure(rb *rowBuilder, window []battle.Turn) {
	var sum, turns [2]float64
	for _, t := range window {
		for _, side := range []battle.Side{battle.P1, battle.P2} {
			s := t.State(side)
			if s == nil || len(s.Boosts) == 0 {
				continue
			}
			for _, stat := range boostedStats {
				sum[side] += s.Boosts[stat]
			}
			turns[side]++
		}
	}
	var mean [2]float64
	for side := range mean {
		if turns[side] > 0 {
			mean[side] = sum[side] / turns[side]
		}
	}
	rb.set("p1_mean_boosts", mean[battle.P1])
	rb.set("p2_mean_boosts", mean[battle.P2])
	rb.set("boost_diff", mean[battle.P2]-mean[battle.P1])
}

func moveActivity(rb *rowBuilder, window []battle.Turn) {
	var n [2]float64
	for _, t := range window {
		for _, side := range []battle.Side{battle.P1, battle.P2} {
			if t.Move(side) != nil {
				n[side]++
			}
		}
	}
	var r [2]float64
	if len(window) > 0 {
		r[0] = n[0] / float64(len(window))
		r[1] = n[1] / float64(len(window))
	}
	rb.set("p1_move_activity", r[battle.P1])
	rb.set("p2_move_activity", r[battle.P2])
	rb.set("move_activity_diff", r[battle.P1]-r[battle.P2])
}

type survivorSet struct {
	names []string // first-seen order, distinct
	hp    map[string]float64
	types []string
}

func (s *survivorSet) mark(name string, hp float64) {
	if _, ok := s.hp[name]; !ok {
		s.names = append(s.names, name)
	}
	s.hp[name] = hp
}

// p1Survivors judges every known player 1 member by its last observation in
// the window; a member never observed is a healthy survivor. Observations
// with an unreadable hp are skipped.
func p1Survivors(b *battle.Battle, window []battle.Turn) *survivorSet {
	set := &survivorSet{hp: make(map[string]float64)}
	for _, p := range b.P1Team {
		name := lookup.NormalizeName(p.Name)
		if name == "" {
			continue
		}
		if _, dup := set.hp[name]; dup {
			continue
		}
		var last *battle.PokemonState
		for i := len(window) - 1; i >= 0; i-- {
			s := window[i].P1State
			if s == nil || s.HPMalformed() {
				continue
			}
			if lookup.NormalizeName(s.Name) == name {
				last = s
				break
			}
		}
		hp, status := 1.0, "nostatus"
		if last != nil {
			hp = last.HPOr(1.0)
			status = last.Status
		}
		if hp > 0 && !isFainted(status) {
			set.mark(name, hp)
			set.types = append(set.types, typechart.FilterTypes(p.Types)...)
		}
	}
	return set
}

// p2Survivors marks every species player 2 was ever seen healthy with. Only
// the lead's types are known; other members contribute no type data.
func p2Survivors(b *battle.Battle, window []battle.Turn) *survivorSet {
	set := &survivorSet{hp: make(map[string]float64)}
	lead := ""
	if b.P2Lead != nil {
		lead = lookup.NormalizeName(b.P2Lead.Name)
	}
	leadTyped := false
	for _, t := range window {
		s := t.P2State
		if s == nil || s.HPMalformed() {
			continue
		}
		name := lookup.NormalizeName(s.Name)
		hp := s.HPOr(1.0)
		if name == "" || hp <= 0 || isFainted(s.Status) {
			continue
		}
		set.mark(name, hp)
		if name == lead && !leadTyped {
			set.types = append(set.types, typechart.FilterTypes(b.P2Lead.Types)...)
			leadTyped = true
		}
	}
	return set
}

func (ex *Extractor) survivors(rb *rowBuilder, b *battle.Battle, window []battle.Turn) {
	p1 := p1Survivors(b, window)
	p2 := p2Survivors(b, window)

	n1, n2 := float64(len(p1.names)), float64(len(p2.names))
	s1 := scoring.TypeResilience(ex.ctx.Chart, p1.types)
	s2 := scoring.TypeResilience(ex.ctx.Chart, p2.types)

	rb.set("p1_alive_count", n1)
	rb.set("p2_alive_count", n2)
	rb.set("alive_diff", n1-n2)
	rb.set("p1_alive_type_score", s1)
	rb.set("p2_alive_type_score", s2)
	rb.set("type_alive_diff", s1-s2)
	rb.set("type_hp_match_score", scoring.TypeHPMatch(ex.ctx.Chart, ex.ctx.Species,
		p1.names, p2.names, p1.hp, p2.hp))
}
