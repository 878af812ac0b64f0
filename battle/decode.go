package battle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Records come from scraped logs and are not uniform: a per-turn state can be
// null, a string, or an object with a non-numeric hp_pct. Everything below
// decodes what it can and treats the rest as absent rather than failing the
// whole battle.

type object map[string]json.RawMessage

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func asObject(raw json.RawMessage) (object, bool) {
	if isNull(raw) {
		return nil, false
	}
	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, false
	}
	return o, true
}

func asArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	if isNull(raw) {
		return nil, false
	}
	var a []json.RawMessage
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, false
	}
	return a, true
}

func asString(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

// asFloat accepts JSON numbers only. Strings, booleans and NaN-producing
// values are reported as missing.
func asFloat(raw json.RawMessage) (float64, bool) {
	if isNull(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func asFloatOr(raw json.RawMessage, def float64) float64 {
	if f, ok := asFloat(raw); ok {
		return f
	}
	return def
}

func asStrings(raw json.RawMessage) []string {
	arr, ok := asArray(raw)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, el := range arr {
		var s string
		if err := json.Unmarshal(el, &s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

// textOf renders an id that may be a string or a number.
func textOf(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		return n.String()
	}
	return strings.TrimSpace(string(raw))
}

func decodePokemon(raw json.RawMessage) (Pokemon, bool) {
	o, ok := asObject(raw)
	if !ok {
		return Pokemon{}, false
	}
	return Pokemon{
		Name:    asString(o["name"]),
		Level:   int(asFloatOr(o["level"], 0)),
		Types:   asStrings(o["types"]),
		BaseHP:  asFloatOr(o["base_hp"], 0),
		BaseAtk: asFloatOr(o["base_atk"], 0),
		BaseDef: asFloatOr(o["base_def"], 0),
		BaseSpa: asFloatOr(o["base_spa"], 0),
		BaseSpd: asFloatOr(o["base_spd"], 0),
		BaseSpe: asFloatOr(o["base_spe"], 0),
	}, true
}

func decodeTeam(raw json.RawMessage) []Pokemon {
	arr, ok := asArray(raw)
	if !ok {
		return nil
	}
	team := make([]Pokemon, 0, len(arr))
	for _, el := range arr {
		if p, ok := decodePokemon(el); ok {
			team = append(team, p)
		}
	}
	return team
}

func decodeBoosts(raw json.RawMessage) map[string]float64 {
	o, ok := asObject(raw)
	if !ok || len(o) == 0 {
		return nil
	}
	boosts := make(map[string]float64, len(o))
	for stat, v := range o {
		if f, ok := asFloat(v); ok {
			boosts[stat] = f
		}
	}
	if len(boosts) == 0 {
		return nil
	}
	return boosts
}

func decodeState(raw json.RawMessage) *PokemonState {
	o, ok := asObject(raw)
	if !ok {
		return nil
	}
	s := &PokemonState{
		Name:    asString(o["name"]),
		Status:  asString(o["status"]),
		Boosts:  decodeBoosts(o["boosts"]),
		Effects: asStrings(o["effects"]),
	}
	if raw, present := o["hp_pct"]; present {
		if hp, ok := asFloat(raw); ok {
			s.SetHP(hp)
		} else if !isNull(raw) {
			s.badHP = true
		}
	}
	return s
}

func decodeMove(raw json.RawMessage) *MoveDetails {
	o, ok := asObject(raw)
	if !ok || len(o) == 0 {
		return nil
	}
	return &MoveDetails{
		Name:      asString(o["name"]),
		Type:      asString(o["type"]),
		Category:  asString(o["category"]),
		BasePower: asFloatOr(o["base_power"], 0),
		Accuracy:  asFloatOr(o["accuracy"], 0),
		Priority:  int(asFloatOr(o["priority"], 0)),
	}
}

func decodeTimeline(raw json.RawMessage) []Turn {
	arr, ok := asArray(raw)
	if !ok {
		return nil
	}
	turns := make([]Turn, 0, len(arr))
	for i, el := range arr {
		t := Turn{Number: i + 1}
		if o, ok := asObject(el); ok {
			t.Number = int(asFloatOr(o["turn"], float64(i+1)))
			t.P1State = decodeState(o["p1_pokemon_state"])
			t.P2State = decodeState(o["p2_pokemon_state"])
			t.P1Move = decodeMove(o["p1_move_details"])
			t.P2Move = decodeMove(o["p2_move_details"])
		}
		// A turn that is not an object still occupies its slot in the
		// timeline; it just contributes nothing.
		turns = append(turns, t)
	}
	return turns
}

// decodeLabel coerces player_won to 0/1. Booleans, numbers and numeric
// strings are accepted; anything else counts as absent.
func decodeLabel(raw json.RawMessage) (int, bool) {
	if isNull(raw) {
		return 0, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return 1, true
		}
		return 0, true
	}
	if f, ok := asFloat(raw); ok {
		if f != 0 {
			return 1, true
		}
		return 0, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(strings.ToLower(s))
		switch s {
		case "true":
			return 1, true
		case "false":
			return 0, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if f != 0 {
				return 1, true
			}
			return 0, true
		}
	}
	return 0, false
}

// UnmarshalJSON decodes one battle record. Only a record that is not a JSON
// object at all is an error.
func (b *Battle) UnmarshalJSON(data []byte) error {
	var o object
	if err := json.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("battle record is not an object: %w", err)
	}
	*b = Battle{
		ID:       textOf(o["battle_id"]),
		P1Team:   decodeTeam(o["p1_team_details"]),
		P2Team:   decodeTeam(o["p2_team_details"]),
		Timeline: decodeTimeline(o["battle_timeline"]),
	}
	if lead, ok := decodePokemon(o["p2_lead_details"]); ok {
		b.P2Lead = &lead
	}
	b.playerWon, b.hasPlayerWon = decodeLabel(o["player_won"])
	return nil
}
