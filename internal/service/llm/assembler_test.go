package llm

import (
	"testing"
	"time"

	"jainn/internal/domain/models/chat"
)

func TestAssembleSingle(t *testing.T) {
	tests := []struct {
		name        string
		result      chat.AgentResult
		wantContent string
	}{
		{
			name: "success carries the response text",
			result: chat.AgentResult{
				Model:  chat.ModelGemini,
				Status: chat.ResultSuccess,
				Text:   "a goroutine is a lightweight thread",
			},
			wantContent: "a goroutine is a lightweight thread",
		},
		{
			name: "failure carries the user-visible message",
			result: chat.AgentResult{
				Model:  chat.ModelLlama,
				Status: chat.ResultFailure,
				Error:  chat.ErrRateLimited,
			},
			wantContent: chat.ErrRateLimited.Message(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turn := AssembleSingle("chat-1", tt.result)

			if turn.ID == "" {
				t.Error("turn must get an identifier")
			}
			if turn.Kind != chat.TurnSingle {
				t.Errorf("kind = %q, want single", turn.Kind)
			}
			if turn.Content != tt.wantContent {
				t.Errorf("content = %q, want %q", turn.Content, tt.wantContent)
			}
			if turn.Result == nil || turn.Result.Model != tt.result.Model {
				t.Error("turn must retain the settled result")
			}
		})
	}
}

func TestAssembleMultiStartsUnselected(t *testing.T) {
	agg := multiAggregate(nil)
	turn := AssembleMulti("chat-1", agg)

	if turn.Kind != chat.TurnMulti {
		t.Fatalf("kind = %q, want multi", turn.Kind)
	}
	if turn.WinnerSelected() {
		t.Error("assembly must not pick a winner")
	}
	if len(turn.Aggregate.Results) != len(agg.Results) {
		t.Errorf("aggregate entries = %d, want %d", len(turn.Aggregate.Results), len(agg.Results))
	}
}

func TestAssembleUserAndImage(t *testing.T) {
	user := AssembleUser("chat-1", chat.Prompt{Text: "hello"})
	if user.Kind != chat.TurnUser || user.Content != "hello" {
		t.Errorf("user turn = %+v", user)
	}
	if user.CreatedAt.IsZero() || time.Since(user.CreatedAt) > time.Minute {
		t.Error("user turn should be stamped with the current time")
	}

	img := AssembleImage("chat-1", "data:image/jpeg;base64,Zm9v")
	if img.Kind != chat.TurnImage {
		t.Errorf("kind = %q, want image", img.Kind)
	}
	if img.ImageURL != "data:image/jpeg;base64,Zm9v" {
		t.Errorf("image URL = %q", img.ImageURL)
	}
}

func TestAssembledTurnsGetDistinctIDs(t *testing.T) {
	a := AssembleUser("chat-1", chat.Prompt{Text: "x"})
	b := AssembleUser("chat-1", chat.Prompt{Text: "x"})
	if a.ID == b.ID {
		t.Error("two assembled turns must not share an identifier")
	}
}
