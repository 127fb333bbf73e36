package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"jainn/internal/domain/models/chat"
	"jainn/internal/domain/repositories"
	llmSvc "jainn/internal/domain/services/llm"
)

const unavailableVerdict = "Referee system offline."

// Referee asks the arbiter model to compare the successful responses of
// a multi-agent turn. It runs entirely off the turn-rendering path: the
// caller kicks it into the task group and moves on; the verdict lands in
// the verdict store whenever (and if) it arrives.
type Referee struct {
	registry *ProviderRegistry
	verdicts repositories.VerdictRepository
	tasks    *TaskGroup
	timeout  time.Duration
	logger   *slog.Logger
}

// NewReferee creates a referee evaluator.
func NewReferee(
	registry *ProviderRegistry,
	verdicts repositories.VerdictRepository,
	tasks *TaskGroup,
	timeout time.Duration,
	logger *slog.Logger,
) *Referee {
	return &Referee{
		registry: registry,
		verdicts: verdicts,
		tasks:    tasks,
		timeout:  timeout,
		logger:   logger,
	}
}

// EvaluateAsync launches a background evaluation of the aggregate
// attached to turnID. It returns immediately. Turns with no successful
// responses produce no arbiter call at all.
func (r *Referee) EvaluateAsync(turnID string, prompt chat.Prompt, agg chat.AggregateResponse) {
	successful := agg.Successful()
	if len(successful) == 0 {
		r.logger.Debug("referee skipped: no successful responses", "turn_id", turnID)
		return
	}

	r.tasks.Go("referee:"+turnID, func(ctx context.Context) {
		evalCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		verdict := r.evaluate(evalCtx, turnID, prompt, successful)
		r.store(verdict)
	})
}

// evaluate runs the arbiter call and always produces a verdict: backend
// failures degrade to an inert "unavailable" verdict instead of an error.
func (r *Referee) evaluate(ctx context.Context, turnID string, prompt chat.Prompt, successful []chat.AgentResult) *chat.RefereeVerdict {
	verdict := &chat.RefereeVerdict{
		TurnID:    turnID,
		Status:    chat.VerdictUnavailable,
		Verdict:   unavailableVerdict,
		CreatedAt: time.Now(),
	}

	arbiter, err := r.registry.ProviderFor(chat.ModelGemini)
	if err != nil {
		r.logger.Warn("referee unavailable: no arbiter provider", "turn_id", turnID, "error", err)
		return verdict
	}

	resp, err := arbiter.Generate(ctx, &llmSvc.GenerateRequest{
		Model:  chat.ModelGemini,
		Prompt: chat.Prompt{Text: buildRefereePrompt(prompt.Text, successful)},
	})
	if err != nil {
		r.logger.Warn("referee evaluation failed",
			"turn_id", turnID,
			"error_kind", llmSvc.KindOf(err),
			"error", err,
		)
		return verdict
	}

	verdict.Status = chat.VerdictComplete
	verdict.Verdict = resp.Text

	r.logger.Info("referee verdict ready",
		"turn_id", turnID,
		"responses_compared", len(successful),
	)

	return verdict
}

// store persists the verdict; storage failure is logged and swallowed
// because a verdict carries no obligation.
func (r *Referee) store(v *chat.RefereeVerdict) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.verdicts.SaveVerdict(ctx, v); err != nil {
		r.logger.Warn("failed to store referee verdict", "turn_id", v.TurnID, "error", err)
	}
}

// buildRefereePrompt renders the comparison request sent to the arbiter.
func buildRefereePrompt(query string, responses []chat.AgentResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Analyze the following responses to the user query: %q\n\nResponses:\n", query)
	for _, r := range responses {
		fmt.Fprintf(&sb, "[%s]: %s\n\n", strings.ToUpper(string(r.Model)), r.Text)
	}

	sb.WriteString(`Task:
1. Select the best response based on accuracy, completeness, and clarity.
2. Explain why it is the best in 1-2 sentences.
3. Point out one improvement for the other responses.

Keep it brief and constructive.`)

	return sb.String()
}
