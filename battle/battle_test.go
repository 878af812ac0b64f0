package battle

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/matryer/is"
)

const sampleRecord = `{
  "battle_id": 7,
  "player_won": true,
  "p1_team_details": [
    {"name": "Starmie", "level": 100, "types": ["psychic", "water"], "base_hp": 60, "base_atk": 75, "base_def": 85, "base_spa": 100, "base_spd": 100, "base_spe": 115},
    {"name": "Snorlax", "types": ["normal", "notype"], "base_hp": 160, "base_atk": 110, "base_def": 65, "base_spe": 30},
    "garbage"
  ],
  "p2_lead_details": {"name": "Jynx", "types": ["ice", "psychic"], "base_hp": 65, "base_atk": 50, "base_def": 35, "base_spe": 95},
  "battle_timeline": [
    {
      "turn": 1,
      "p1_pokemon_state": {"name": "starmie", "hp_pct": 0.75, "status": "nostatus", "boosts": {"atk": 0, "spe": 1}, "effects": ["noeffect"]},
      "p1_move_details": {"name": "psychic", "type": "PSYCHIC", "category": "SPECIAL", "base_power": 90, "accuracy": 1.0, "priority": 0},
      "p2_pokemon_state": {"name": "jynx", "hp_pct": "n/a", "status": "frz", "boosts": {}},
      "p2_move_details": null
    },
    {
      "turn": 2,
      "p1_pokemon_state": "oops",
      "p2_pokemon_state": {"name": "jynx", "hp_pct": 0.5, "status": null, "boosts": {"atk": "x"}},
      "p2_move_details": {}
    },
    17
  ]
}`

func TestDecodeRecord(t *testing.T) {
	is := is.New(t)
	b := &Battle{}
	is.NoErr(json.Unmarshal([]byte(sampleRecord), b))

	is.Equal(b.ID, "7")
	is.True(b.HasLabel())
	is.Equal(b.Label(), 1)

	is.Equal(len(b.P1Team), 2)
	is.Equal(b.P1Team[0].Name, "Starmie")
	is.Equal(b.P1Team[0].BaseSpe, 115.0)
	is.Equal(b.P1Team[0].Level, 100)
	is.Equal(b.P1Team[1].Types, []string{"normal", "notype"})

	is.True(b.P2Lead != nil)
	is.Equal(b.P2Lead.Name, "Jynx")
	is.True(!b.HasP2Team())

	is.Equal(len(b.Timeline), 3)
	t1 := b.Timeline[0]
	is.Equal(t1.Number, 1)
	hp, ok := t1.P1State.HP()
	is.True(ok)
	is.Equal(hp, 0.75)
	is.Equal(t1.P1State.Boosts, map[string]float64{"atk": 0, "spe": 1})
	is.Equal(t1.P1State.Effects, []string{"noeffect"})
	is.Equal(t1.P1Move.Type, "PSYCHIC")
	is.Equal(t1.P1Move.BasePower, 90.0)

	// non-numeric hp is missing, empty boosts are nil
	_, ok = t1.P2State.HP()
	is.True(!ok)
	is.Equal(t1.P2State.HPOr(1.0), 1.0)
	is.True(t1.P2State.HPMalformed())
	is.True(!t1.P1State.HPMalformed())
	is.True(t1.P2State.Boosts == nil)
	is.True(t1.P2Move == nil)

	t2 := b.Timeline[1]
	is.True(t2.P1State == nil)
	is.Equal(t2.P2State.Status, "")
	is.True(t2.P2State.Boosts == nil)
	is.True(t2.P2Move == nil)

	// a non-object turn keeps its slot
	is.Equal(b.Timeline[2].Number, 3)
	is.True(b.Timeline[2].P1State == nil)
}

func TestDecodeLabelVariants(t *testing.T) {
	is := is.New(t)
	cases := []struct {
		raw      string
		label    int
		hasLabel bool
	}{
		{`{"battle_id": "a"}`, 0, false},
		{`{"battle_id": "a", "player_won": null}`, 0, false},
		{`{"battle_id": "a", "player_won": false}`, 0, true},
		{`{"battle_id": "a", "player_won": 1}`, 1, true},
		{`{"battle_id": "a", "player_won": 0}`, 0, true},
		{`{"battle_id": "a", "player_won": "1"}`, 1, true},
		{`{"battle_id": "a", "player_won": "True"}`, 1, true},
		{`{"battle_id": "a", "player_won": [1]}`, 0, false},
	}
	for _, c := range cases {
		b := &Battle{}
		is.NoErr(json.Unmarshal([]byte(c.raw), b))
		is.Equal(b.HasLabel(), c.hasLabel)
		is.Equal(b.Label(), c.label)
	}
}

func TestDecodeMissingTimeline(t *testing.T) {
	is := is.New(t)
	b := &Battle{}
	is.NoErr(json.Unmarshal([]byte(`{"battle_id": "x", "p1_team_details": []}`), b))
	is.Equal(len(b.Timeline), 0)
	is.True(b.P2Lead == nil)
	is.Equal(len(b.Window(DefaultCutoff)), 0)
}

func TestDecodeRejectsNonObject(t *testing.T) {
	is := is.New(t)
	b := &Battle{}
	is.True(json.Unmarshal([]byte(`[1,2,3]`), b) != nil)
}

func TestWindow(t *testing.T) {
	is := is.New(t)
	b := &Battle{Timeline: make([]Turn, 45)}
	is.Equal(len(b.Window(30)), 30)
	is.Equal(len(b.Window(50)), 45)
	is.Equal(len(b.Window(-1)), 45)
}

func TestScanner(t *testing.T) {
	is := is.New(t)
	input := `{"battle_id": 1, "battle_timeline": [{}]}

{"battle_id": 2, "player_won": 0}
`
	battles, err := Load(strings.NewReader(input))
	is.NoErr(err)
	is.Equal(len(battles), 2)
	is.Equal(battles[0].ID, "1")
	is.Equal(len(battles[0].Timeline), 1)
	is.Equal(battles[1].ID, "2")
	is.True(battles[1].HasLabel())
}

func TestScannerReportsLine(t *testing.T) {
	is := is.New(t)
	input := "{\"battle_id\": 1}\n\"nope\"\n"
	sc := NewScanner(strings.NewReader(input))
	is.True(sc.Scan())
	is.True(!sc.Scan())
	is.True(sc.Err() != nil)
	is.True(strings.Contains(sc.Err().Error(), "line 2"))
}

func TestSideAccessors(t *testing.T) {
	is := is.New(t)
	turn := Turn{
		P1State: NewPokemonState("a", 1, ""),
		P2State: NewPokemonState("b", 0.5, ""),
		P2Move:  &MoveDetails{Type: "fire"},
	}
	is.Equal(turn.State(P1).Name, "a")
	is.Equal(turn.State(P2).Name, "b")
	is.True(turn.Move(P1) == nil)
	is.Equal(turn.Move(P2).Type, "fire")
	is.Equal(P1.String(), "p1")
	is.Equal(P2.String(), "p2")
}
