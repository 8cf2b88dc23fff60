package game

import (
	"fmt"
	"sort"
	"time"

	"github.com/verlyn13/dicee-server/internal/score"
)

// MinPlayers is the fewest connected seats a game can start with.
const MinPlayers = 2

// CountdownSeconds is the delay between start_game and the first turn.
const CountdownSeconds = 3

// Manager drives the turn state machine. It mutates RoomState and State in
// place and never touches storage or sockets; the room actor owns those.
type Manager struct{}

// transition moves the phase along a legal edge or fails with INVALID_PHASE.
func (Manager) transition(st *State, next Phase) error {
	if !st.Phase.CanTransitionTo(next) {
		return NewError(CodeInvalidPhase, fmt.Sprintf("cannot move from %s to %s", st.Phase, next))
	}
	st.Phase = next
	return nil
}

// RollResult describes a completed dice roll.
type RollResult struct {
	PlayerID       string
	Dice           [5]int
	RollsRemaining int
}

// ScoreResult describes a scored category and the turn advance that followed.
type ScoreResult struct {
	PlayerID     string
	Category     score.Category
	Points       int
	TotalScore   int
	IsDiceeBonus bool

	GameOver bool
	Rankings []Ranking
	Duration time.Duration

	NextPlayerID string
	TurnNumber   int
	RoundNumber  int
}

// SkipResult describes an AFK auto-score.
type SkipResult struct {
	PlayerID string
	Score    ScoreResult
}

// StartGame validates the start command, fixes the player order from the
// currently-connected seats, and enters the starting countdown. The returned
// RNG is seeded from the room code and start time; the caller persists it.
func (m Manager) StartGame(room *RoomState, st *State, seats []*Seat, callerID string, now time.Time) (*RNG, error) {
	if st.Phase != PhaseWaiting {
		return nil, NewError(CodeGameInProgress, "game has already started")
	}
	caller := findSeat(seats, callerID)
	if caller == nil || !caller.IsHost {
		return nil, NewError(CodeNotHost, "only the host can start the game")
	}

	connected := make([]*Seat, 0, len(seats))
	for _, s := range seats {
		if s.IsConnected {
			connected = append(connected, s)
		}
	}
	if len(connected) < MinPlayers {
		return nil, NewError(CodeNotEnoughPlayers, fmt.Sprintf("need at least %d connected players", MinPlayers))
	}

	// Stable base order by join time, then shuffled by the seeded RNG so the
	// order is reproducible from (roomCode, gameStartedAt).
	sort.Slice(connected, func(i, j int) bool {
		return connected[i].JoinedAt.Before(connected[j].JoinedAt)
	})
	order := make([]string, len(connected))
	for i, s := range connected {
		order[i] = s.UserID
	}

	rng := NewRNG(room.RoomCode, now)
	rng.Shuffle(order)

	if err := m.transition(st, PhaseStarting); err != nil {
		return nil, err
	}

	start := now
	st.PlayerOrder = order
	st.GameStartedAt = &start
	st.Players = make(map[string]*PlayerGameState, len(order))
	for _, uid := range order {
		st.Players[uid] = NewPlayerGameState()
	}
	room.Status = StatusStarting
	room.PlayerOrder = order
	return rng, nil
}

// BeginFirstTurn ends the countdown and opens the first turn.
func (m Manager) BeginFirstTurn(room *RoomState, st *State, now time.Time) error {
	if err := m.transition(st, PhaseTurnRoll); err != nil {
		return err
	}
	st.CurrentPlayerIndex = 0
	st.TurnNumber = 1
	st.RoundNumber = 1
	st.TurnStartedAt = &now
	st.Players[st.PlayerOrder[0]].RollsRemaining = 3
	room.Status = StatusPlaying
	return nil
}

// Roll resamples the non-kept dice for the current player.
func (m Manager) Roll(st *State, callerID string, kept [5]bool, rng *RNG) (*RollResult, error) {
	if st.Phase != PhaseTurnRoll && st.Phase != PhaseTurnDecide {
		return nil, NewError(CodeInvalidPhase, "no roll is allowed right now")
	}
	if st.CurrentPlayer() != callerID {
		return nil, NewError(CodeNotYourTurn, "it is not your turn")
	}
	p := st.Players[callerID]
	if p.RollsRemaining <= 0 {
		return nil, NewError(CodeNoRollsRemaining, "no rolls remaining this turn")
	}

	var dice [5]int
	for i := 0; i < 5; i++ {
		if kept[i] && p.CurrentDice != nil {
			dice[i] = p.CurrentDice[i]
		} else {
			dice[i] = rng.RollDie()
		}
	}

	if st.Phase == PhaseTurnRoll {
		if err := m.transition(st, PhaseTurnDecide); err != nil {
			return nil, err
		}
	}
	p.CurrentDice = &dice
	p.KeptDice = &kept
	p.RollsRemaining--

	return &RollResult{PlayerID: callerID, Dice: dice, RollsRemaining: p.RollsRemaining}, nil
}

// Keep records which dice the current player is holding. Pure UI hint.
func (m Manager) Keep(st *State, callerID string, indices []int) (*[5]bool, error) {
	if st.Phase != PhaseTurnDecide {
		return nil, NewError(CodeInvalidPhase, "nothing to keep right now")
	}
	if st.CurrentPlayer() != callerID {
		return nil, NewError(CodeNotYourTurn, "it is not your turn")
	}
	var kept [5]bool
	for _, idx := range indices {
		if idx < 0 || idx > 4 {
			return nil, NewError(CodeInvalidMessage, "kept index out of range")
		}
		kept[idx] = true
	}
	st.Players[callerID].KeptDice = &kept
	return &kept, nil
}

// ScoreCategory writes the current dice into an open slot and advances the
// turn, ending the game when every scorecard is complete.
func (m Manager) ScoreCategory(room *RoomState, st *State, callerID string, cat score.Category, now time.Time) (*ScoreResult, error) {
	if st.Phase != PhaseTurnDecide {
		return nil, NewError(CodeInvalidPhase, "scoring is only allowed after rolling")
	}
	if st.CurrentPlayer() != callerID {
		return nil, NewError(CodeNotYourTurn, "it is not your turn")
	}
	if !score.Valid(cat) {
		return nil, NewError(CodeInvalidMessage, "unknown category")
	}
	p := st.Players[callerID]
	if p.RollsRemaining >= 3 || p.CurrentDice == nil {
		return nil, NewError(CodeInvalidPhase, "roll before scoring")
	}
	if p.Scorecard.Filled(cat) {
		return nil, NewError(CodeCategoryAlreadyScored, "that category is already scored")
	}

	res, err := m.writeScore(st, callerID, cat, *p.CurrentDice)
	if err != nil {
		return nil, err
	}
	if err := m.transition(st, PhaseTurnScore); err != nil {
		return nil, err
	}
	m.advance(room, st, res, now)
	return res, nil
}

// AutoScore is the AFK path: score the first open category against the
// current dice, defaulting to all ones if the player never rolled.
func (m Manager) AutoScore(room *RoomState, st *State, now time.Time) (*SkipResult, error) {
	if st.Phase != PhaseTurnRoll && st.Phase != PhaseTurnDecide {
		return nil, NewError(CodeInvalidPhase, "no active turn to skip")
	}
	playerID := st.CurrentPlayer()
	p := st.Players[playerID]

	cat, ok := p.Scorecard.FirstOpen()
	if !ok {
		return nil, NewError(CodeInternal, "no open category on an active turn")
	}
	dice := [5]int{1, 1, 1, 1, 1}
	if p.CurrentDice != nil {
		dice = *p.CurrentDice
	}

	res, err := m.writeScore(st, playerID, cat, dice)
	if err != nil {
		return nil, err
	}
	if err := m.transition(st, PhaseTurnScore); err != nil {
		return nil, err
	}
	m.advance(room, st, res, now)
	return &SkipResult{PlayerID: playerID, Score: *res}, nil
}

// writeScore fills the slot and applies dicee and upper bonuses.
func (m Manager) writeScore(st *State, playerID string, cat score.Category, dice [5]int) (*ScoreResult, error) {
	p := st.Players[playerID]
	if p.Scorecard.Filled(cat) {
		return nil, NewError(CodeCategoryAlreadyScored, "that category is already scored")
	}

	points := score.Score(dice, cat)
	p.Scorecard[cat] = &points

	// A further five-of-a-kind earns the +100 bonus only once the dicee slot
	// holds the full 50; a zeroed dicee slot forfeits all future bonuses.
	isBonus := false
	if cat != score.Dicee && score.IsFiveOfAKind(dice) &&
		p.Scorecard.Filled(score.Dicee) && *p.Scorecard[score.Dicee] == score.DiceeScore {
		p.DiceeBonus += score.DiceeBonusScore
		isBonus = true
	}
	p.RecomputeTotal()

	return &ScoreResult{
		PlayerID:     playerID,
		Category:     cat,
		Points:       points,
		TotalScore:   p.TotalScore,
		IsDiceeBonus: isBonus,
	}, nil
}

// advance moves to the next player's turn or ends the game. The caller has
// already transitioned to turn_score.
func (m Manager) advance(room *RoomState, st *State, res *ScoreResult, now time.Time) {
	if st.AllComplete() {
		st.Phase = PhaseGameOver
		done := now
		st.GameCompletedAt = &done
		st.Rankings = st.ComputeRankings()
		st.TurnStartedAt = nil
		room.Status = StatusCompleted

		res.GameOver = true
		res.Rankings = st.Rankings
		if st.GameStartedAt != nil {
			res.Duration = done.Sub(*st.GameStartedAt)
		}
		return
	}

	n := len(st.PlayerOrder)
	st.CurrentPlayerIndex = (st.CurrentPlayerIndex + 1) % n
	st.TurnNumber++
	if st.CurrentPlayerIndex == 0 {
		st.RoundNumber++
	}
	st.Phase = PhaseTurnRoll
	start := now
	st.TurnStartedAt = &start

	next := st.Players[st.PlayerOrder[st.CurrentPlayerIndex]]
	next.RollsRemaining = 3
	next.CurrentDice = nil
	next.KeptDice = nil

	res.NextPlayerID = st.PlayerOrder[st.CurrentPlayerIndex]
	res.TurnNumber = st.TurnNumber
	res.RoundNumber = st.RoundNumber
}

// Rematch resets per-player state and returns the room to waiting. Seats
// survive; the player order is cleared, and the next start_game rebuilds it
// from the connected seats and reshuffles it.
func (m Manager) Rematch(room *RoomState, st *State, seats []*Seat, callerID string) error {
	if st.Phase != PhaseGameOver {
		return NewError(CodeInvalidPhase, "rematch is only possible after the game ends")
	}
	caller := findSeat(seats, callerID)
	if caller == nil || !caller.IsHost {
		return NewError(CodeNotHost, "only the host can start a rematch")
	}
	if err := m.transition(st, PhaseWaiting); err != nil {
		return err
	}
	st.Players = make(map[string]*PlayerGameState)
	st.PlayerOrder = nil
	st.CurrentPlayerIndex = 0
	st.TurnNumber = 0
	st.RoundNumber = 0
	st.TurnStartedAt = nil
	st.GameStartedAt = nil
	st.GameCompletedAt = nil
	st.Rankings = nil
	room.Status = StatusWaiting
	room.PlayerOrder = nil
	return nil
}

func findSeat(seats []*Seat, userID string) *Seat {
	for _, s := range seats {
		if s.UserID == userID {
			return s
		}
	}
	return nil
}
