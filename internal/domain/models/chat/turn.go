package chat

import (
	"time"
)

// ResultStatus is the outcome of one model call inside a fan-out.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultFailure ResultStatus = "failure"
)

// AgentResult is one model's settled outcome for one prompt. It is
// created by the orchestrator when the underlying call resolves or fails
// and is immutable afterwards.
type AgentResult struct {
	Model   ModelIdentity `json:"model"`
	Status  ResultStatus  `json:"status"`
	Text    string        `json:"text,omitempty"`
	Error   ErrorKind     `json:"error,omitempty"`
	Latency time.Duration `json:"latency_ms"`
}

// Succeeded reports whether this entry carries usable text.
func (r AgentResult) Succeeded() bool {
	return r.Status == ResultSuccess
}

// AggregateResponse is the fan-out output for one prompt: exactly one
// AgentResult per requested model, in request order. A timed-out or
// failed call still yields a Failure entry, never a missing one.
type AggregateResponse struct {
	Results []AgentResult `json:"results"`
}

// Successful returns the entries that carry usable text, preserving
// request order.
func (a AggregateResponse) Successful() []AgentResult {
	out := make([]AgentResult, 0, len(a.Results))
	for _, r := range a.Results {
		if r.Succeeded() {
			out = append(out, r)
		}
	}
	return out
}

// AllFailed reports whether no model produced text for this prompt.
func (a AggregateResponse) AllFailed() bool {
	return len(a.Successful()) == 0
}

// TurnKind discriminates the Turn variants the history layer stores.
type TurnKind string

const (
	TurnUser   TurnKind = "user"
	TurnSingle TurnKind = "single"
	TurnMulti  TurnKind = "multi"
	TurnImage  TurnKind = "image"
)

// Turn is one unit of conversation history: either the user's prompt or
// the response(s) it produced. Once assembled it is handed to the history
// store and becomes that store's responsibility.
type Turn struct {
	ID        string    `json:"id" db:"id"`
	ChatID    string    `json:"chat_id" db:"chat_id"`
	Kind      TurnKind  `json:"kind" db:"kind"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// User turn
	Content string `json:"content,omitempty" db:"content"`

	// Single-response turn: exactly one result (success or failure).
	Result *AgentResult `json:"result,omitempty"`

	// Multi-response turn
	Aggregate      *AggregateResponse `json:"aggregate,omitempty"`
	SelectedWinner *ModelIdentity     `json:"selected_winner,omitempty" db:"selected_winner"`

	// Image turn: a data URL produced by the image backend.
	ImageURL string `json:"image_url,omitempty" db:"image_url"`
}

// WinnerSelected reports whether a winner has been designated for a
// multi-response turn.
func (t *Turn) WinnerSelected() bool {
	return t.SelectedWinner != nil
}

// VerdictStatus tracks whether the referee managed to produce a judgment.
type VerdictStatus string

const (
	VerdictComplete    VerdictStatus = "complete"
	VerdictUnavailable VerdictStatus = "unavailable"
)

// RefereeVerdict is the arbiter's best-effort comparison of a
// multi-response turn. It may arrive after the turn rendered, or never;
// it is advisory text and never forces a winner selection.
type RefereeVerdict struct {
	TurnID    string        `json:"turn_id" db:"turn_id"`
	Status    VerdictStatus `json:"status" db:"status"`
	Verdict   string        `json:"verdict" db:"verdict"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// Chat is a conversation session: a titled, ordered list of turns owned
// by one user.
type Chat struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Mode      Mode      `json:"mode" db:"mode"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Computed field (not stored in the chats row)
	Turns []Turn `json:"turns,omitempty"`
}
