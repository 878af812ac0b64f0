package features

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/matryer/is"

	"github.com/pokewin/pokewin/battle"
	"github.com/pokewin/pokewin/cache"
	"github.com/pokewin/pokewin/config"
	"github.com/pokewin/pokewin/testhelpers"
	"github.com/pokewin/pokewin/typechart"
)

const eps = 1e-9

func approx(a, b float64) bool { return math.Abs(a-b) < eps }

func get(t *testing.T, r Row, col string) float64 {
	t.Helper()
	v, ok := r.Get(col)
	if !ok {
		t.Fatalf("row has no column %s", col)
	}
	return v
}

// trainCorpus: player 1 brings tauros, ghosty and drago; player 2 shows
// tauros and chansey.
func trainCorpus() []*battle.Battle {
	b := &battle.Battle{
		ID: "t1",
		P1Team: []battle.Pokemon{
			{Name: "Tauros", Types: []string{"normal"}, BaseHP: 75, BaseAtk: 100, BaseDef: 95, BaseSpe: 110},
			{Name: "Ghosty", Types: []string{"ghost"}, BaseHP: 40},
			{Name: "Drago", Types: []string{"dragon"}, BaseHP: 90},
		},
		Timeline: []battle.Turn{
			{P2State: battle.NewPokemonState("Chansey", 1, "")},
			{P2State: battle.NewPokemonState("Tauros", 1, "")},
		},
	}
	b.SetLabel(true)
	return []*battle.Battle{b}
}

func TestKnockoutScenario(t *testing.T) {
	is := is.New(t)
	ctx := NewContext(typechart.Default(), nil, 30)
	ex := NewExtractor(ctx, SetFull)
	b := &battle.Battle{
		ID:     "ko",
		P1Team: []battle.Pokemon{{Name: "X", BaseHP: 100}},
		Timeline: []battle.Turn{{
			P1State: battle.NewPokemonState("X", 0, "fnt"),
			P2State: battle.NewPokemonState("Y", 1, ""),
		}},
	}
	row, ok := ex.Extract(b)
	is.True(ok)
	is.Equal(row.BattleID, "ko")
	is.True(!row.HasLabel)

	is.Equal(get(t, row, "p1_num_KO"), 1.0)
	is.Equal(get(t, row, "p2_num_KO"), 0.0)
	is.Equal(get(t, row, "ko_diff"), -1.0)
	is.Equal(get(t, row, "p1_mean_hp_remaining"), 0.0)
	is.Equal(get(t, row, "p2_mean_hp_remaining"), 1.0)
	is.Equal(get(t, row, "hp_remaining_diff"), 1.0)
	is.Equal(get(t, row, "p1_advantage_ratio"), 0.0)
	is.True(approx(get(t, row, "p2_advantage_ratio"), 1.0/30))
	is.True(approx(get(t, row, "tempo_balance"), -1.0/30))
	is.Equal(get(t, row, "p1_mean_hp"), 100.0)
	is.Equal(get(t, row, "hp_team_diff"), 100.0)
	is.Equal(get(t, row, "p1_alive_count"), 0.0)
	is.Equal(get(t, row, "p2_alive_count"), 1.0)
	is.Equal(get(t, row, "alive_diff"), -1.0)
	// a fainted pokemon is not an affliction
	is.Equal(get(t, row, "p1_num_status"), 0.0)
	// the timeline tier claims the battle even though y has no stats
	is.Equal(row.RosterTier, "timeline")
	is.Equal(get(t, row, "p2_mean_hp"), 0.0)
}

func TestBoostScenario(t *testing.T) {
	is := is.New(t)
	ex := NewExtractor(NewContext(nil, nil, 30), SetFull)
	s := battle.NewPokemonState("X", 1, "")
	s.Boosts = map[string]float64{"atk": 2, "def": -1, "accuracy": 6}
	b := &battle.Battle{ID: "boost", Timeline: []battle.Turn{{P1State: s}, {}}}

	row, ok := ex.Extract(b)
	is.True(ok)
	is.Equal(get(t, row, "p1_mean_boosts"), 1.0)
	is.Equal(get(t, row, "p2_mean_boosts"), 0.0)
	is.Equal(get(t, row, "boost_diff"), -1.0)
}

func TestNoTimelineYieldsNoRow(t *testing.T) {
	is := is.New(t)
	ex := NewExtractor(NewContext(nil, nil, 30), SetFull)
	_, ok := ex.Extract(&battle.Battle{ID: "empty", P1Team: []battle.Pokemon{{Name: "X"}}})
	is.True(!ok)

	res, err := ExtractAll(context.Background(), ex, []*battle.Battle{{ID: "empty"}}, 2)
	is.NoErr(err)
	is.Equal(len(res.Rows), 0)
	is.Equal(res.Skipped, 1)
}

func TestStatusCountsObservations(t *testing.T) {
	is := is.New(t)
	ex := NewExtractor(NewContext(nil, nil, 30), Status)
	b := &battle.Battle{ID: "s", Timeline: []battle.Turn{
		{P1State: battle.NewPokemonState("a", 1, "par"), P2State: battle.NewPokemonState("b", 1, "nostatus")},
		{P1State: battle.NewPokemonState("a", 1, "par"), P2State: battle.NewPokemonState("b", 1, "slp")},
		{P1State: battle.NewPokemonState("a", 0, "fnt")},
	}}
	row, ok := ex.Extract(b)
	is.True(ok)
	is.Equal(row.Values, []float64{2, 1, -1})
}

func TestVulnerability(t *testing.T) {
	is := is.New(t)
	ex := NewExtractor(NewContext(nil, nil, 30), Vulnerability)
	team := []battle.Pokemon{
		{Name: "W", Types: []string{"Water"}},
		{Name: "G", Types: []string{"grass", "notype"}},
		{Name: "N", Types: []string{"notype"}},
	}
	b := &battle.Battle{ID: "v", P1Team: team, Timeline: []battle.Turn{
		{P2Move: &battle.MoveDetails{Name: "thunderbolt", Type: "ELECTRIC"}},
		{P2Move: &battle.MoveDetails{Name: "wrap"}},
	}}
	row, _ := ex.Extract(b)
	is.Equal(row.Values[0], 1.25)

	b.Timeline = []battle.Turn{{}}
	row, _ = ex.Extract(b)
	is.Equal(row.Values[0], 1.0)
}

func TestTempoMissingHPIsFull(t *testing.T) {
	is := is.New(t)
	ex := NewExtractor(NewContext(nil, nil, 10), Tempo)
	b := &battle.Battle{ID: "t", Timeline: []battle.Turn{
		{P2State: battle.NewPokemonState("b", 0.5, "")},
		{P1State: battle.NewPokemonState("a", 0.2, ""), P2State: &battle.PokemonState{Name: "b"}},
		{},
	}}
	row, _ := ex.Extract(b)
	is.True(approx(row.Values[0], 0.1))
	is.True(approx(row.Values[1], 0.1))
	is.True(approx(row.Values[2], 0))
}

func TestMoveActivity(t *testing.T) {
	is := is.New(t)
	ex := NewExtractor(NewContext(nil, nil, 30), MoveActivity)
	mv := &battle.MoveDetails{Name: "tackle", Type: "normal"}
	b := &battle.Battle{ID: "m", Timeline: []battle.Turn{
		{P1Move: mv, P2Move: mv}, {P1Move: mv}, {}, {P1Move: mv},
	}}
	row, _ := ex.Extract(b)
	is.Equal(row.Values, []float64{0.75, 0.25, 0.5})
}

func TestRosterTiers(t *testing.T) {
	ctx := NewContext(typechart.Default(), trainCorpus(), 30)
	ex := NewExtractor(ctx, TeamBaselines)
	p1Only := []battle.Turn{{P1State: battle.NewPokemonState("tauros", 1, "")}}

	tests := []struct {
		name   string
		b      *battle.Battle
		tier   string
		p2Mean float64
	}{
		{"explicit", &battle.Battle{ID: "e",
			P2Team:   []battle.Pokemon{{Name: "Jynx", BaseHP: 65}, {Name: "Lapras", BaseHP: 131}},
			Timeline: []battle.Turn{{P2State: battle.NewPokemonState("tauros", 1, "")}}},
			"explicit", 98},
		{"timeline", &battle.Battle{ID: "t",
			Timeline: []battle.Turn{{P2State: battle.NewPokemonState("TAUROS", 1, "")}}},
			"timeline", 75},
		// chansey and tauros were seen; only tauros has stats
		{"global-usage", &battle.Battle{ID: "g", Timeline: p1Only}, "global-usage", 75},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			is := is.New(t)
			row, ok := ex.Extract(tc.b)
			is.True(ok)
			is.Equal(row.RosterTier, tc.tier)
			is.Equal(get(t, row, "p2_mean_hp"), tc.p2Mean)
		})
	}

	t.Run("none", func(t *testing.T) {
		is := is.New(t)
		ex := NewExtractor(NewContext(nil, nil, 30), TeamBaselines)
		row, ok := ex.Extract(&battle.Battle{ID: "n", Timeline: p1Only})
		is.True(ok)
		is.Equal(row.RosterTier, NoRoster)
		is.Equal(get(t, row, "p2_mean_hp"), 0.0)
	})
}

func TestFallbackRosterSize(t *testing.T) {
	is := is.New(t)
	ctx := NewContext(nil, trainCorpus(), 30)
	ctx.FallbackRosterSize = 1
	roster, tier := ResolveP2Roster(&battle.Battle{}, ctx)
	is.Equal(tier, "global-usage")
	// chansey sorts first and has no stats
	is.Equal(len(roster), 0)
}

func TestSurvivors(t *testing.T) {
	is := is.New(t)
	ctx := NewContext(typechart.Default(), trainCorpus(), 30)
	ex := NewExtractor(ctx, Survivors)
	b := &battle.Battle{
		ID:     "surv",
		P1Team: []battle.Pokemon{{Name: "Ghosty", Types: []string{"ghost"}}},
		P2Lead: &battle.Pokemon{Name: "Drago", Types: []string{"dragon"}},
		Timeline: []battle.Turn{
			{P2State: battle.NewPokemonState("drago", 0.5, "")},
			{P2State: battle.NewPokemonState("drago", 0.5, "par")},
		},
	}
	row, ok := ex.Extract(b)
	is.True(ok)
	is.Equal(get(t, row, "p1_alive_count"), 1.0)
	is.Equal(get(t, row, "p2_alive_count"), 1.0)
	is.Equal(get(t, row, "alive_diff"), 0.0)
	// ghost: +1 on ghost, -1 each on normal and psychic
	is.Equal(get(t, row, "p1_alive_type_score"), -1.0)
	// the lead's types are counted once however often it is seen
	is.Equal(get(t, row, "p2_alive_type_score"), 1.0)
	is.Equal(get(t, row, "type_alive_diff"), -2.0)
	is.Equal(get(t, row, "type_hp_match_score"), 0.5)
}

func TestUnseenMembersAreAtFullHP(t *testing.T) {
	ex := NewExtractor(NewContext(nil, nil, 30), HPRemaining)
	tests := []struct {
		name   string
		b      *battle.Battle
		p1, p2 float64
	}{
		{"roster", &battle.Battle{ID: "r",
			P1Team: []battle.Pokemon{{Name: "X"}, {Name: "Z"}},
			P2Team: []battle.Pokemon{{Name: "A"}, {Name: "B"}, {Name: "C"}},
			Timeline: []battle.Turn{
				{P1State: battle.NewPokemonState("x", 0.4, ""), P2State: battle.NewPokemonState("a", 0.1, "")},
			}}, 0.7, 0.7},
		// without a player 2 roster only the lead is known
		{"lead", &battle.Battle{ID: "l",
			P1Team: []battle.Pokemon{{Name: "X"}},
			P2Lead: &battle.Pokemon{Name: "A"},
			Timeline: []battle.Turn{
				{P2State: battle.NewPokemonState("b", 0.2, "")},
			}}, 1.0, 0.6},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			is := is.New(t)
			row, ok := ex.Extract(tc.b)
			is.True(ok)
			is.True(approx(get(t, row, "p1_mean_hp_remaining"), tc.p1))
			is.True(approx(get(t, row, "p2_mean_hp_remaining"), tc.p2))
			is.True(approx(get(t, row, "hp_remaining_diff"), tc.p2-tc.p1))
		})
	}
}

func TestUnreadableHPDoesNotRevive(t *testing.T) {
	is := is.New(t)
	corpus, err := battle.Load(strings.NewReader(`{"battle_id": "bad-hp", ` +
		`"p1_team_details": [{"name": "X", "types": ["normal"]}], ` +
		`"battle_timeline": [` +
		`{"turn": 1, "p1_pokemon_state": {"name": "X", "hp_pct": 0, "status": "fnt"}, "p2_pokemon_state": {"name": "Y", "hp_pct": "bad"}}, ` +
		`{"turn": 2, "p1_pokemon_state": {"name": "X", "hp_pct": "bad"}, "p2_pokemon_state": {"name": "Y", "hp_pct": "bad"}}]}`))
	is.NoErr(err)
	is.Equal(len(corpus), 1)

	ex := NewExtractor(NewContext(typechart.Default(), nil, 30), SetFull)
	row, ok := ex.Extract(corpus[0])
	is.True(ok)
	is.Equal(get(t, row, "p1_mean_hp_remaining"), 0.0)
	is.Equal(get(t, row, "p1_alive_count"), 0.0)
	is.Equal(get(t, row, "p2_alive_count"), 0.0)
	is.Equal(get(t, row, "alive_diff"), 0.0)

	// a state with no hp_pct at all still counts as healthy
	b := &battle.Battle{ID: "no-hp", P1Team: []battle.Pokemon{{Name: "X"}},
		Timeline: []battle.Turn{{P2State: &battle.PokemonState{Name: "Y"}}}}
	row, ok = ex.Extract(b)
	is.True(ok)
	is.Equal(get(t, row, "p1_alive_count"), 1.0)
	is.Equal(get(t, row, "p2_alive_count"), 1.0)
}

func TestNoNaNInFullRow(t *testing.T) {
	is := is.New(t)
	ex := NewExtractor(NewContext(nil, trainCorpus(), 30), SetFull)
	row, ok := ex.Extract(&battle.Battle{ID: "x", Timeline: []battle.Turn{{}}})
	is.True(ok)
	for _, v := range row.Values {
		is.True(!math.IsNaN(v))
	}
}

func TestFeatureSetsAreSupersets(t *testing.T) {
	is := is.New(t)
	basic, matchup, full := NewSchema(SetBasic), NewSchema(SetMatchup), NewSchema(SetFull)
	is.True(basic.Len() < matchup.Len())
	is.True(matchup.Len() < full.Len())
	for _, n := range basic.Names() {
		_, ok := matchup.Index(n)
		is.True(ok)
	}
	for _, n := range matchup.Names() {
		_, ok := full.Index(n)
		is.True(ok)
	}

	// shared columns hold the same values whichever set computed them
	ctx := NewContext(nil, trainCorpus(), 30)
	b := synthBattle(3)
	rb, _ := NewExtractor(ctx, SetBasic).Extract(b)
	rf, _ := NewExtractor(ctx, SetFull).Extract(b)
	for _, n := range basic.Names() {
		is.Equal(get(t, rb, n), get(t, rf, n))
	}
}

func TestParseSet(t *testing.T) {
	is := is.New(t)
	g, err := ParseSet("Matchup")
	is.NoErr(err)
	is.Equal(g, SetMatchup)
	g, err = ParseSet("")
	is.NoErr(err)
	is.Equal(g, SetFull)
	g, err = ParseSet("tempo, boosts")
	is.NoErr(err)
	is.Equal(g, Tempo|Boosts)
	is.Equal(g.String(), "tempo,boosts")
	_, err = ParseSet("tempo,bogus")
	is.True(err != nil)
}

func synthBattle(i int) *battle.Battle {
	names := []string{"tauros", "chansey", "ghosty", "drago"}
	b := &battle.Battle{
		ID: fmt.Sprintf("b%d", i),
		P1Team: []battle.Pokemon{
			{Name: "Tauros", Types: []string{"normal"}, BaseHP: 75, BaseSpe: 110},
			{Name: "Ghosty", Types: []string{"ghost"}, BaseHP: 40},
		},
		P2Lead: &battle.Pokemon{Name: names[i%4], Types: []string{"normal"}, BaseHP: 50},
	}
	for turn := 0; turn < i%40; turn++ {
		p1 := battle.NewPokemonState(names[turn%2*2], float64(40-turn)/40, "")
		p2 := battle.NewPokemonState(names[(i+turn)%4], float64(turn%5)/4, []string{"", "par", "fnt"}[turn%3])
		if turn%4 == 0 {
			p2.Boosts = map[string]float64{"spe": float64(turn % 3)}
		}
		b.Timeline = append(b.Timeline, battle.Turn{
			Number:  turn + 1,
			P1State: p1,
			P2State: p2,
			P2Move:  &battle.MoveDetails{Type: []string{"electric", "ice", "ghost"}[turn%3]},
		})
	}
	b.SetLabel(i%2 == 0)
	return b
}

func TestExtractAllMatchesSequential(t *testing.T) {
	is := is.New(t)
	ex := NewExtractor(NewContext(nil, trainCorpus(), 30), SetFull)
	var battles []*battle.Battle
	for i := 0; i < 200; i++ {
		battles = append(battles, synthBattle(i))
	}
	var want []Row
	for _, b := range battles {
		if row, ok := ex.Extract(b); ok {
			want = append(want, row)
		}
	}

	res, err := ExtractAll(context.Background(), ex, battles, 7)
	is.NoErr(err)
	is.Equal(len(res.Rows), len(want))
	// every 40th battle has an empty timeline
	is.Equal(res.Skipped, 5)
	for i := range want {
		is.Equal(res.Rows[i].BattleID, want[i].BattleID)
		is.Equal(res.Rows[i].Label, want[i].Label)
		is.Equal(res.Rows[i].Values, want[i].Values)
	}
}

func TestExtractAllCancelled(t *testing.T) {
	is := is.New(t)
	ex := NewExtractor(NewContext(nil, nil, 30), SetFull)
	var battles []*battle.Battle
	for i := 0; i < 2000; i++ {
		battles = append(battles, synthBattle(i))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ExtractAll(ctx, ex, battles, 2)
	is.True(err != nil)
}

func TestLoadContextCopiesCachedContext(t *testing.T) {
	is := is.New(t)
	train := testhelpers.WriteCorpus(t, "train.jsonl", testhelpers.TrainRecords...)

	cfg := config.DefaultConfig()
	cfg.Set(config.ConfigTrainPath, train)
	cfg.Set(config.ConfigFallbackRosterSize, 3)
	defer cache.Forget("corpus:" + train)
	defer cache.Forget("context:" + train + "::30")

	a, err := LoadContext(cfg)
	is.NoErr(err)
	cfg.Set(config.ConfigFallbackRosterSize, 1)
	b, err := LoadContext(cfg)
	is.NoErr(err)

	is.Equal(a.FallbackRosterSize, 3)
	is.Equal(b.FallbackRosterSize, 1)
	is.True(a.Species == b.Species) // built once
	is.Equal(a.Species.Names(), []string{"starmie", "tauros"})
	is.Equal(a.Usage.UniqueP2(), []string{"chansey"})

	corpus, err := LoadCorpus(cfg, train)
	is.NoErr(err)
	is.Equal(len(corpus), 3)
	is.Equal(corpus[0].ID, "1")

	res, err := ExtractAll(context.Background(), NewExtractor(a, SetFull), corpus, 2)
	is.NoErr(err)
	is.Equal(len(res.Rows), 2)
	is.Equal(res.Skipped, 1)
	is.Equal(res.Rows[0].RosterTier, "timeline")
	is.Equal(res.Rows[1].Label, 0)
	is.True(res.Rows[1].HasLabel)
}

func TestSignConventions(t *testing.T) {
	ex := NewExtractor(NewContext(nil, trainCorpus(), 30), SetFull)
	p2MinusP1 := map[string][2]string{
		"ko_diff":           {"p2_num_KO", "p1_num_KO"},
		"status_diff":       {"p2_num_status", "p1_num_status"},
		"hp_remaining_diff": {"p2_mean_hp_remaining", "p1_mean_hp_remaining"},
		"boost_diff":        {"p2_mean_boosts", "p1_mean_boosts"},
	}
	p1MinusP2 := map[string][2]string{
		"hp_team_diff":       {"p1_mean_hp", "p2_mean_hp"},
		"atk_team_diff":      {"p1_mean_atk", "p2_mean_atk"},
		"def_team_diff":      {"p1_mean_def", "p2_mean_def"},
		"spe_team_diff":      {"p1_mean_spe", "p2_mean_spe"},
		"tempo_balance":      {"p1_advantage_ratio", "p2_advantage_ratio"},
		"move_activity_diff": {"p1_move_activity", "p2_move_activity"},
		"alive_diff":         {"p1_alive_count", "p2_alive_count"},
		"type_alive_diff":    {"p1_alive_type_score", "p2_alive_type_score"},
	}
	for i := 1; i < 40; i++ {
		row, ok := ex.Extract(synthBattle(i))
		if !ok {
			t.Fatalf("battle %d yielded no row", i)
		}
		for _, pairs := range []map[string][2]string{p2MinusP1, p1MinusP2} {
			for diff, ab := range pairs {
				want := get(t, row, ab[0]) - get(t, row, ab[1])
				if !approx(get(t, row, diff), want) {
					t.Errorf("battle %d: %s = %v, want %s - %s = %v", i, diff,
						get(t, row, diff), ab[0], ab[1], want)
				}
			}
		}
	}
}
