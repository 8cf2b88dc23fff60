package room

import (
	"github.com/verlyn13/dicee-server/internal/game"
	"github.com/verlyn13/dicee-server/internal/score"
)

// prediction is a spectator's guess at which category the current player
// will score this turn.
type prediction struct {
	target   string
	category score.Category
}

// predictionLedger is the spectator side-game: one guess per spectator per
// turn, tallied when the turn's score lands. Best-effort and in-memory; a
// passivated room forgets the running tally.
type predictionLedger struct {
	current map[string]prediction
	correct map[string]int
}

func newPredictionLedger() *predictionLedger {
	return &predictionLedger{
		current: make(map[string]prediction),
		correct: make(map[string]int),
	}
}

func (p *predictionLedger) place(userID, target string, category score.Category) {
	p.current[userID] = prediction{target: target, category: category}
}

// settle credits every spectator who called the scored category.
func (p *predictionLedger) settle(playerID string, category score.Category) {
	for userID, guess := range p.current {
		if guess.target == playerID && guess.category == category {
			p.correct[userID]++
		}
	}
}

func (p *predictionLedger) clearTurn() {
	p.current = make(map[string]prediction)
}

func (p *predictionLedger) drop(userID string) {
	delete(p.current, userID)
	delete(p.correct, userID)
}

func (p *predictionLedger) correctCounts() map[string]int {
	if len(p.correct) == 0 {
		return nil
	}
	out := make(map[string]int, len(p.correct))
	for k, v := range p.correct {
		out[k] = v
	}
	return out
}

// handlePredict records a spectator's guess for the active turn.
func (a *Actor) handlePredict(c *Conn, rc *roomCtx, cmd *game.Command) *game.Error {
	if c.attachment.Role != RoleSpectator {
		return game.NewError(game.CodeUnknownCommand, "only spectators can predict")
	}
	if !rc.st.Phase.InTurn() {
		return game.NewError(game.CodeInvalidPhase, "no turn to predict")
	}
	if cmd.TargetUserID != rc.st.CurrentPlayer() {
		return game.NewError(game.CodeInvalidMessage, "prediction must target the current player")
	}
	a.predictions.place(c.attachment.UserID, cmd.TargetUserID, cmd.Category)
	return nil
}
