// Package battle holds the battle record types and their tolerant decoding
// from newline-delimited JSON.
package battle

// DefaultCutoff is the number of timeline turns the features look at.
const DefaultCutoff = 30

// Pokemon is one roster entry: a species with its base stats.
type Pokemon struct {
	Name    string
	Level   int
	Types   []string
	BaseHP  float64
	BaseAtk float64
	BaseDef float64
	BaseSpa float64
	BaseSpd float64
	BaseSpe float64
}

// PokemonState is the observed state of a player's active pokemon at the end
// of one turn.
type PokemonState struct {
	Name   string
	Status string
	// Boosts maps a stat name (atk, def, spa, spd, spe, ...) to its stage.
	// Nil when the turn carried no boost record or an empty one.
	Boosts  map[string]float64
	Effects []string

	hp    float64
	hasHP bool
	// badHP is set when the record carried an hp_pct that was not a number.
	badHP bool
}

// NewPokemonState is a convenience for building states in code.
func NewPokemonState(name string, hp float64, status string) *PokemonState {
	return &PokemonState{Name: name, Status: status, hp: hp, hasHP: true}
}

// HP returns the hp fraction and whether it was present and numeric.
func (s *PokemonState) HP() (float64, bool) {
	if s == nil {
		return 0, false
	}
	return s.hp, s.hasHP
}

// HPMalformed reports whether the record carried an hp_pct that could not be
// read. A state with no hp_pct at all is not malformed.
func (s *PokemonState) HPMalformed() bool {
	return s != nil && s.badHP
}

// HPOr returns the hp fraction, or def when it is missing.
func (s *PokemonState) HPOr(def float64) float64 {
	if hp, ok := s.HP(); ok {
		return hp
	}
	return def
}

// SetHP sets the hp fraction.
func (s *PokemonState) SetHP(hp float64) {
	s.hp = hp
	s.hasHP = true
	s.badHP = false
}

// MoveDetails describes the move a side used on a turn.
type MoveDetails struct {
	Name      string
	Type      string
	Category  string
	BasePower float64
	Accuracy  float64
	Priority  int
}

// Turn is one step of the battle timeline. Any field may be nil when the
// record did not carry it, or carried something that was not an object.
type Turn struct {
	Number  int
	P1State *PokemonState
	P2State *PokemonState
	P1Move  *MoveDetails
	P2Move  *MoveDetails
}

// Side selects player 1 or player 2.
type Side int

const (
	P1 Side = iota
	P2
)

func (s Side) String() string {
	if s == P1 {
		return "p1"
	}
	return "p2"
}

// State returns the state for the given side.
func (t *Turn) State(s Side) *PokemonState {
	if s == P1 {
		return t.P1State
	}
	return t.P2State
}

// Move returns the move details for the given side.
func (t *Turn) Move(s Side) *MoveDetails {
	if s == P1 {
		return t.P1Move
	}
	return t.P2Move
}

// Battle is one match record.
type Battle struct {
	ID     string
	P1Team []Pokemon
	// P2Lead is nil when the record had no lead details.
	P2Lead *Pokemon
	// P2Team is only present in some data variants.
	P2Team   []Pokemon
	Timeline []Turn

	playerWon    int
	hasPlayerWon bool
}

// HasP2Team reports whether the record carried a non-empty player 2 roster.
func (b *Battle) HasP2Team() bool {
	return len(b.P2Team) > 0
}

// HasLabel reports whether the record carried player_won. Training records
// do, test records don't.
func (b *Battle) HasLabel() bool {
	return b.hasPlayerWon
}

// Label returns player_won coerced to 0 or 1. It is 0 when HasLabel is false.
func (b *Battle) Label() int {
	return b.playerWon
}

// SetLabel marks the battle as labelled.
func (b *Battle) SetLabel(won bool) {
	b.hasPlayerWon = true
	b.playerWon = 0
	if won {
		b.playerWon = 1
	}
}

// Window returns the first min(cutoff, len(timeline)) turns.
func (b *Battle) Window(cutoff int) []Turn {
	if cutoff < 0 || cutoff > len(b.Timeline) {
		return b.Timeline
	}
	return b.Timeline[:cutoff]
}
