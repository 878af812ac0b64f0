// Package testhelpers has fixtures shared by the package tests.
package testhelpers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// A small labelled corpus in the raw record format. Player 2 shows tauros
// and chansey; the last record has no timeline.
var TrainRecords = []string{
	`{"battle_id": 1, "player_won": true, ` +
		`"p1_team_details": [{"name": "Tauros", "types": ["normal"], "base_hp": 75, "base_atk": 100, "base_def": 95, "base_spe": 110}], ` +
		`"p2_lead_details": {"name": "Chansey", "types": ["normal"], "base_hp": 250}, ` +
		`"battle_timeline": [{"turn": 1, "p1_pokemon_state": {"name": "tauros", "hp_pct": 1.0, "status": "nostatus"}, ` +
		`"p2_pokemon_state": {"name": "chansey", "hp_pct": 0.4, "status": "par"}, ` +
		`"p1_move_details": {"name": "bodyslam", "type": "NORMAL"}}]}`,
	`{"battle_id": 2, "player_won": 0, ` +
		`"p1_team_details": [{"name": "Starmie", "types": ["psychic", "water"], "base_hp": 60, "base_spe": 115}], ` +
		`"battle_timeline": [{"turn": 1, "p1_pokemon_state": {"name": "starmie", "hp_pct": 0.1}, ` +
		`"p2_pokemon_state": {"name": "tauros", "hp_pct": 0.9}, ` +
		`"p2_move_details": {"name": "thunderbolt", "type": "ELECTRIC"}}]}`,
	`{"battle_id": 3, "player_won": 1, "p1_team_details": [], "battle_timeline": []}`,
}

// WriteCorpus writes records as a JSONL file in a temporary directory and
// returns its path.
func WriteCorpus(t testing.TB, name string, records ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(strings.Join(records, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
