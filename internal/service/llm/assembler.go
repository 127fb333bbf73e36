package llm

import (
	"time"

	"github.com/google/uuid"

	"jainn/internal/domain/models/chat"
)

// Turn assembly shapes orchestrator and adapter output into the Turn
// variants the history layer stores. No policy checks happen here (they
// already did) and no I/O: assembly is pure construction.

// AssembleUser builds the turn recording the user's own prompt.
func AssembleUser(chatID string, prompt chat.Prompt) *chat.Turn {
	return &chat.Turn{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Kind:      chat.TurnUser,
		Content:   prompt.Text,
		CreatedAt: time.Now(),
	}
}

// AssembleSingle builds a single-response turn from one settled result.
// A failed result still assembles: the turn carries the user-visible
// failure text in place of a completion.
func AssembleSingle(chatID string, result chat.AgentResult) *chat.Turn {
	turn := &chat.Turn{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Kind:      chat.TurnSingle,
		Result:    &result,
		CreatedAt: time.Now(),
	}
	if result.Succeeded() {
		turn.Content = result.Text
	} else {
		turn.Content = result.Error.Message()
	}
	return turn
}

// AssembleMulti builds a multi-response turn from a settled aggregate.
// The winner starts unselected.
func AssembleMulti(chatID string, agg chat.AggregateResponse) *chat.Turn {
	return &chat.Turn{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Kind:      chat.TurnMulti,
		Aggregate: &agg,
		CreatedAt: time.Now(),
	}
}

// AssembleImage builds an image turn around the generated data URL.
func AssembleImage(chatID, imageURL string) *chat.Turn {
	return &chat.Turn{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Kind:      chat.TurnImage,
		ImageURL:  imageURL,
		CreatedAt: time.Now(),
	}
}
