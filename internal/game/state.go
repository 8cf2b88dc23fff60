package game

import (
	"sort"
	"time"

	"github.com/verlyn13/dicee-server/internal/score"
)

// Scorecard holds the thirteen slots. A nil slot is unscored; each slot is
// written at most once per game.
type Scorecard map[score.Category]*int

// NewScorecard returns an empty scorecard with every slot open.
func NewScorecard() Scorecard {
	return make(Scorecard, len(score.Categories))
}

// Filled reports whether the slot has been written.
func (sc Scorecard) Filled(c score.Category) bool {
	v, ok := sc[c]
	return ok && v != nil
}

// Complete reports whether every slot has been written.
func (sc Scorecard) Complete() bool {
	for _, c := range score.Categories {
		if !sc.Filled(c) {
			return false
		}
	}
	return true
}

// FirstOpen returns the first unwritten slot in canonical order.
func (sc Scorecard) FirstOpen() (score.Category, bool) {
	for _, c := range score.Categories {
		if !sc.Filled(c) {
			return c, true
		}
	}
	return "", false
}

// UpperSum totals the ones-through-sixes slots.
func (sc Scorecard) UpperSum() int {
	total := 0
	for _, c := range score.Categories {
		if score.IsUpper(c) && sc.Filled(c) {
			total += *sc[c]
		}
	}
	return total
}

// UpperBonus returns 35 once the upper section reaches the threshold.
func (sc Scorecard) UpperBonus() int {
	if sc.UpperSum() >= score.UpperBonusThreshold {
		return score.UpperBonusScore
	}
	return 0
}

// PlayerGameState is one player's per-game state.
type PlayerGameState struct {
	Scorecard      Scorecard `json:"scorecard"`
	DiceeBonus     int       `json:"diceeBonus"`
	CurrentDice    *[5]int   `json:"currentDice,omitempty"`
	KeptDice       *[5]bool  `json:"keptDice,omitempty"`
	RollsRemaining int       `json:"rollsRemaining"`
	TotalScore     int       `json:"totalScore"`
}

// NewPlayerGameState returns a fresh per-player state.
func NewPlayerGameState() *PlayerGameState {
	return &PlayerGameState{Scorecard: NewScorecard()}
}

// RecomputeTotal refreshes TotalScore from the scorecard and bonuses.
func (p *PlayerGameState) RecomputeTotal() {
	total := 0
	for _, c := range score.Categories {
		if p.Scorecard.Filled(c) {
			total += *p.Scorecard[c]
		}
	}
	total += p.Scorecard.UpperBonus()
	total += p.DiceeBonus
	p.TotalScore = total
}

// DiceeCount counts scored dicees, bonus instances included. Used as the
// second ranking key.
func (p *PlayerGameState) DiceeCount() int {
	n := 0
	if p.Scorecard.Filled(score.Dicee) && *p.Scorecard[score.Dicee] == score.DiceeScore {
		n++
	}
	n += p.DiceeBonus / score.DiceeBonusScore
	return n
}

// Ranking is one row of the final standings.
type Ranking struct {
	Rank       int    `json:"rank"`
	UserID     string `json:"userId"`
	TotalScore int    `json:"totalScore"`
	DiceeCount int    `json:"diceeCount"`
}

// State is the persisted game record for a room.
type State struct {
	Phase              Phase                       `json:"phase"`
	PlayerOrder        []string                    `json:"playerOrder"`
	CurrentPlayerIndex int                         `json:"currentPlayerIndex"`
	TurnNumber         int                         `json:"turnNumber"`
	RoundNumber        int                         `json:"roundNumber"`
	Players            map[string]*PlayerGameState `json:"players"`
	TurnStartedAt      *time.Time                  `json:"turnStartedAt,omitempty"`
	GameStartedAt      *time.Time                  `json:"gameStartedAt,omitempty"`
	GameCompletedAt    *time.Time                  `json:"gameCompletedAt,omitempty"`
	Rankings           []Ranking                   `json:"rankings,omitempty"`
}

// NewState returns an idle game in the waiting phase.
func NewState() *State {
	return &State{
		Phase:   PhaseWaiting,
		Players: make(map[string]*PlayerGameState),
	}
}

// CurrentPlayer returns the userId whose turn it is, or "" outside a turn.
func (s *State) CurrentPlayer() string {
	if !s.Phase.InTurn() || len(s.PlayerOrder) == 0 {
		return ""
	}
	return s.PlayerOrder[s.CurrentPlayerIndex]
}

// AllComplete reports whether every player's scorecard is full.
func (s *State) AllComplete() bool {
	if len(s.PlayerOrder) == 0 {
		return false
	}
	for _, uid := range s.PlayerOrder {
		p, ok := s.Players[uid]
		if !ok || !p.Scorecard.Complete() {
			return false
		}
	}
	return true
}

// ComputeRankings sorts players by total score, then dicee count, then userId.
func (s *State) ComputeRankings() []Ranking {
	rankings := make([]Ranking, 0, len(s.PlayerOrder))
	for _, uid := range s.PlayerOrder {
		p := s.Players[uid]
		rankings = append(rankings, Ranking{
			UserID:     uid,
			TotalScore: p.TotalScore,
			DiceeCount: p.DiceeCount(),
		})
	}
	sort.Slice(rankings, func(i, j int) bool {
		a, b := rankings[i], rankings[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if a.DiceeCount != b.DiceeCount {
			return a.DiceeCount > b.DiceeCount
		}
		return a.UserID < b.UserID
	})
	for i := range rankings {
		rankings[i].Rank = i + 1
	}
	return rankings
}
