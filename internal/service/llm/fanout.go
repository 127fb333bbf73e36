package llm

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"jainn/internal/domain/models/chat"
	llmSvc "jainn/internal/domain/services/llm"
)

// Orchestrator fans one prompt out to a set of model slots concurrently
// and gathers every outcome into a single aggregate. It is a join-all,
// not a race: the aggregate is produced only after every call has
// settled, and a failing or slow model degrades to a failure entry
// instead of sinking the turn.
type Orchestrator struct {
	registry    *ProviderRegistry
	callTimeout time.Duration
	logger      *slog.Logger
}

// NewOrchestrator creates a fan-out orchestrator. callTimeout bounds
// each individual model call; a hung backend becomes a failed panel
// rather than holding the join open forever.
func NewOrchestrator(registry *ProviderRegistry, callTimeout time.Duration, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		registry:    registry,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// Dispatch invokes every target concurrently and returns one AgentResult
// per target, in target order. It never returns an error: per-model
// failures are embedded at their slot, and an all-failure aggregate is
// still an aggregate.
func (o *Orchestrator) Dispatch(ctx context.Context, prompt chat.Prompt, targets []chat.ModelIdentity) chat.AggregateResponse {
	results := make([]chat.AgentResult, len(targets))

	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target chat.ModelIdentity) {
			defer wg.Done()
			// Each goroutine owns exactly one slot; entry order stays
			// equal to target order no matter which call settles first.
			results[i] = o.invoke(ctx, prompt, target)
		}(i, target)
	}
	wg.Wait()

	o.logger.Info("fan-out settled",
		"targets", len(targets),
		"succeeded", len(chat.AggregateResponse{Results: results}.Successful()),
	)

	return chat.AggregateResponse{Results: results}
}

// invoke runs a single model call under the per-call timeout and settles
// it into an AgentResult. Each goroutine writes only its own slot, so the
// results slice needs no lock.
func (o *Orchestrator) invoke(ctx context.Context, prompt chat.Prompt, target chat.ModelIdentity) chat.AgentResult {
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	start := time.Now()

	provider, err := o.registry.ProviderFor(target)
	if err != nil {
		return chat.AgentResult{
			Model:   target,
			Status:  chat.ResultFailure,
			Error:   chat.ErrUnknown,
			Latency: time.Since(start),
		}
	}

	resp, err := provider.Generate(callCtx, &llmSvc.GenerateRequest{
		Model:  target,
		Prompt: prompt,
	})
	latency := time.Since(start)

	if err != nil {
		kind := llmSvc.KindOf(err)
		if callCtx.Err() == context.DeadlineExceeded {
			kind = chat.ErrUnavailable
		}

		o.logger.Warn("model call failed",
			"model", target,
			"error_kind", kind,
			"latency_ms", latency.Milliseconds(),
			"error", err,
		)

		return chat.AgentResult{
			Model:   target,
			Status:  chat.ResultFailure,
			Error:   kind,
			Latency: latency,
		}
	}

	o.logger.Debug("model call succeeded",
		"model", target,
		"latency_ms", latency.Milliseconds(),
	)

	return chat.AgentResult{
		Model:   target,
		Status:  chat.ResultSuccess,
		Text:    resp.Text,
		Latency: latency,
	}
}
