package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"jainn/internal/domain/models/chat"
	llmSvc "jainn/internal/domain/services/llm"
)

// stubProvider serves a configurable set of slots with per-slot delay,
// response text and failure kind.
type stubProvider struct {
	delays   map[chat.ModelIdentity]time.Duration
	replies  map[chat.ModelIdentity]string
	failures map[chat.ModelIdentity]chat.ErrorKind
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) SupportsModel(model chat.ModelIdentity) bool { return true }

func (s *stubProvider) Generate(ctx context.Context, req *llmSvc.GenerateRequest) (*llmSvc.GenerateResponse, error) {
	if d, ok := s.delays[req.Model]; ok && d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, llmSvc.NewBackendError(chat.ErrUnavailable, req.Model, ctx.Err())
		}
	}

	if kind, ok := s.failures[req.Model]; ok {
		return nil, llmSvc.NewBackendError(kind, req.Model, fmt.Errorf("stub failure"))
	}

	return &llmSvc.GenerateResponse{Text: s.replies[req.Model]}, nil
}

func (s *stubProvider) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if kind, ok := s.failures[chat.ModelGemini]; ok {
		return "", llmSvc.NewBackendError(kind, chat.ModelGemini, fmt.Errorf("stub image failure"))
	}
	return "data:image/jpeg;base64,dGVzdC1pbWFnZQ==", nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(p llmSvc.Provider, timeout time.Duration) *Orchestrator {
	return NewOrchestrator(NewProviderRegistry(p), timeout, testLogger())
}

func TestDispatchPreservesRequestOrder(t *testing.T) {
	// Completion order is deliberately scrambled: gemini settles last,
	// llama first, mistral fails in between. Entry order must still be
	// the request order.
	stub := &stubProvider{
		delays: map[chat.ModelIdentity]time.Duration{
			chat.ModelGemini:  300 * time.Millisecond,
			chat.ModelLlama:   10 * time.Millisecond,
			chat.ModelMistral: 50 * time.Millisecond,
		},
		replies: map[chat.ModelIdentity]string{
			chat.ModelGemini: "gemini answer",
			chat.ModelLlama:  "llama answer",
		},
		failures: map[chat.ModelIdentity]chat.ErrorKind{
			chat.ModelMistral: chat.ErrUnavailable,
		},
	}

	o := newTestOrchestrator(stub, 5*time.Second)
	targets := []chat.ModelIdentity{chat.ModelGemini, chat.ModelLlama, chat.ModelMistral}

	agg := o.Dispatch(context.Background(), chat.Prompt{Text: "explain TCP"}, targets)

	if len(agg.Results) != len(targets) {
		t.Fatalf("got %d results, want %d", len(agg.Results), len(targets))
	}
	for i, target := range targets {
		if agg.Results[i].Model != target {
			t.Errorf("entry %d has model %q, want %q", i, agg.Results[i].Model, target)
		}
	}

	if agg.Results[0].Status != chat.ResultSuccess || agg.Results[0].Text != "gemini answer" {
		t.Errorf("gemini entry = %+v, want success with text", agg.Results[0])
	}
	if agg.Results[1].Status != chat.ResultSuccess || agg.Results[1].Text != "llama answer" {
		t.Errorf("llama entry = %+v, want success with text", agg.Results[1])
	}
	if agg.Results[2].Status != chat.ResultFailure || agg.Results[2].Error != chat.ErrUnavailable {
		t.Errorf("mistral entry = %+v, want unavailable failure", agg.Results[2])
	}
}

func TestDispatchPartialFailure(t *testing.T) {
	tests := []struct {
		name     string
		failures map[chat.ModelIdentity]chat.ErrorKind
		wantOK   int
	}{
		{
			name:     "one failure",
			failures: map[chat.ModelIdentity]chat.ErrorKind{chat.ModelLlama: chat.ErrRateLimited},
			wantOK:   2,
		},
		{
			name: "two failures",
			failures: map[chat.ModelIdentity]chat.ErrorKind{
				chat.ModelLlama:   chat.ErrUnauthenticated,
				chat.ModelMistral: chat.ErrInvalidResponse,
			},
			wantOK: 1,
		},
		{
			name: "all fail",
			failures: map[chat.ModelIdentity]chat.ErrorKind{
				chat.ModelGemini:  chat.ErrUnavailable,
				chat.ModelLlama:   chat.ErrUnavailable,
				chat.ModelMistral: chat.ErrUnavailable,
			},
			wantOK: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubProvider{
				replies: map[chat.ModelIdentity]string{
					chat.ModelGemini:  "a",
					chat.ModelLlama:   "b",
					chat.ModelMistral: "c",
				},
				failures: tt.failures,
			}

			o := newTestOrchestrator(stub, time.Second)
			agg := o.Dispatch(context.Background(), chat.Prompt{Text: "q"}, chat.AllModels())

			if len(agg.Results) != 3 {
				t.Fatalf("got %d results, want 3: a failed call must still yield an entry", len(agg.Results))
			}
			if got := len(agg.Successful()); got != tt.wantOK {
				t.Errorf("successful = %d, want %d", got, tt.wantOK)
			}

			for _, r := range agg.Results {
				wantKind, shouldFail := tt.failures[r.Model]
				if shouldFail {
					if r.Status != chat.ResultFailure {
						t.Errorf("%s should be a failure entry", r.Model)
					}
					if r.Error != wantKind {
						t.Errorf("%s error = %q, want %q", r.Model, r.Error, wantKind)
					}
				} else if r.Status != chat.ResultSuccess {
					t.Errorf("%s should be a success entry", r.Model)
				}
			}

			if tt.wantOK == 0 && !agg.AllFailed() {
				t.Error("AllFailed should report true for an all-failure aggregate")
			}
		})
	}
}

func TestDispatchTimeoutBecomesFailureEntry(t *testing.T) {
	stub := &stubProvider{
		delays: map[chat.ModelIdentity]time.Duration{
			chat.ModelGemini: 5 * time.Second, // past the per-call ceiling
		},
		replies: map[chat.ModelIdentity]string{
			chat.ModelLlama:   "fast answer",
			chat.ModelMistral: "another answer",
		},
	}

	o := newTestOrchestrator(stub, 50*time.Millisecond)

	start := time.Now()
	agg := o.Dispatch(context.Background(), chat.Prompt{Text: "q"}, chat.AllModels())
	elapsed := time.Since(start)

	if elapsed > 2*time.Second {
		t.Fatalf("dispatch took %v; the timeout should have cut the hung call", elapsed)
	}

	if len(agg.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(agg.Results))
	}
	if agg.Results[0].Status != chat.ResultFailure {
		t.Error("hung gemini call should settle as a failure entry")
	}
	if agg.Results[0].Error != chat.ErrUnavailable {
		t.Errorf("timeout error kind = %q, want %q", agg.Results[0].Error, chat.ErrUnavailable)
	}
	if agg.Results[1].Status != chat.ResultSuccess || agg.Results[2].Status != chat.ResultSuccess {
		t.Error("siblings of a timed-out call must still succeed")
	}
}

func TestDispatchRecordsLatency(t *testing.T) {
	stub := &stubProvider{
		delays: map[chat.ModelIdentity]time.Duration{
			chat.ModelGemini: 30 * time.Millisecond,
		},
		replies: map[chat.ModelIdentity]string{chat.ModelGemini: "x"},
	}

	o := newTestOrchestrator(stub, time.Second)
	agg := o.Dispatch(context.Background(), chat.Prompt{Text: "q"}, []chat.ModelIdentity{chat.ModelGemini})

	if agg.Results[0].Latency < 30*time.Millisecond {
		t.Errorf("latency = %v, want at least the stub delay", agg.Results[0].Latency)
	}
}
