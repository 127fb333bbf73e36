package llm

import (
	"jainn/internal/domain/models/chat"
)

// SelectWinner designates the winning model for a multi-response turn.
//
// The selection state machine has two states: unselected and selected.
// Selected is terminal per turn, so calling this against a turn that
// already has a winner is a no-op regardless of which model is passed -
// the first selection is final. Selection only applies to multi turns;
// other kinds are returned unchanged.
//
// The function is pure with respect to the rest of the conversation: it
// returns a modified copy and never touches any other turn.
func SelectWinner(turn *chat.Turn, model chat.ModelIdentity) *chat.Turn {
	if turn.Kind != chat.TurnMulti || turn.WinnerSelected() {
		return turn
	}

	updated := *turn
	updated.SelectedWinner = &model
	return &updated
}
