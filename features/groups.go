package features

import (
	"fmt"
	"strings"
)

// Group is one independent family of features. Groups never read each
// other's output, only the battle itself and the shared Context.
type Group uint16

const (
	TeamBaselines Group = 1 << iota
	LeadBaselines
	KnockOuts
	Status
	HPRemaining
	Vulnerability
	Tempo
	Boosts
	MoveActivity
	Survivors
)

// The feature set grew over time; each set contains the previous one.
const (
	SetBasic   = TeamBaselines | LeadBaselines | KnockOuts | Status | HPRemaining |
		Vulnerability | Tempo | Boosts
	SetMatchup = SetBasic | Survivors
	SetFull    = SetMatchup | MoveActivity
)

// groupOrder fixes the column order of a schema.
var groupOrder = []Group{
	TeamBaselines, LeadBaselines, KnockOuts, Status, HPRemaining,
	Vulnerability, Tempo, Boosts, MoveActivity, Survivors,
}

var groupNames = map[Group]string{
	TeamBaselines: "team-baselines",
	LeadBaselines: "lead-baselines",
	KnockOuts:     "knockouts",
	Status:        "status",
	HPRemaining:   "hp-remaining",
	Vulnerability: "vulnerability",
	Tempo:         "tempo",
	Boosts:        "boosts",
	MoveActivity:  "move-activity",
	Survivors:     "survivors",
}

var groupColumns = map[Group][]string{
	TeamBaselines: {
		"p1_mean_hp", "p1_mean_atk", "p1_mean_def", "p1_mean_spe",
		"p2_mean_hp", "p2_mean_atk", "p2_mean_def", "p2_mean_spe",
		"hp_team_diff", "atk_team_diff", "def_team_diff", "spe_team_diff",
	},
	LeadBaselines: {"p2_lead_hp", "p2_lead_atk", "p2_lead_def", "p2_lead_spe"},
	KnockOuts:     {"p1_num_KO", "p2_num_KO", "ko_diff"},
	Status:        {"p1_num_status", "p2_num_status", "status_diff"},
	HPRemaining:   {"p1_mean_hp_remaining", "p2_mean_hp_remaining", "hp_remaining_diff"},
	Vulnerability: {"p1_type_vulnerability"},
	Tempo:         {"p1_advantage_ratio", "p2_advantage_ratio", "tempo_balance"},
	Boosts:        {"p1_mean_boosts", "p2_mean_boosts", "boost_diff"},
	MoveActivity:  {"p1_move_activity", "p2_move_activity", "move_activity_diff"},
	Survivors: {
		"p1_alive_count", "p2_alive_count", "alive_diff",
		"p1_alive_type_score", "p2_alive_type_score", "type_alive_diff",
		"type_hp_match_score",
	},
}

func (g Group) Has(other Group) bool {
	return g&other == other
}

func (g Group) String() string {
	var names []string
	for _, grp := range groupOrder {
		if g.Has(grp) {
			names = append(names, groupNames[grp])
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// ParseSet accepts a named set (basic, matchup, full) or a comma separated
// list of group names.
func ParseSet(s string) (Group, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full":
		return SetFull, nil
	case "matchup":
		return SetMatchup, nil
	case "basic":
		return SetBasic, nil
	}
	var g Group
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		found := false
		for grp, name := range groupNames {
			if name == part {
				g |= grp
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown feature group %q", part)
		}
	}
	return g, nil
}

// Schema is the fixed, ordered column list of a feature row.
type Schema struct {
	names []string
	index map[string]int
}

// NewSchema lays out the columns of the given groups.
func NewSchema(groups Group) *Schema {
	s := &Schema{index: make(map[string]int)}
	for _, grp := range groupOrder {
		if !groups.Has(grp) {
			continue
		}
		for _, col := range groupColumns[grp] {
			s.index[col] = len(s.names)
			s.names = append(s.names, col)
		}
	}
	return s
}

// Names returns the column names. The slice must not be modified.
func (s *Schema) Names() []string { return s.names }
func (s *Schema) Len() int        { return len(s.names) }

func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}
