package llm

import (
	"context"
	"log/slog"
	"sync"
)

// TaskGroup supervises background work that the request path does not
// wait on. Unlike a bare go statement, every task is tracked, so the
// process can drain in-flight work at shutdown instead of abandoning it.
type TaskGroup struct {
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// NewTaskGroup creates a supervisor. Tasks receive a context that is
// cancelled when the group shuts down.
func NewTaskGroup(logger *slog.Logger) *TaskGroup {
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskGroup{ctx: ctx, cancel: cancel, logger: logger}
}

// Go launches fn as a tracked background task. Panics are contained so a
// misbehaving task cannot take the process down.
func (g *TaskGroup) Go(name string, fn func(ctx context.Context)) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				g.logger.Error("background task panicked", "task", name, "panic", r)
			}
		}()
		fn(g.ctx)
	}()
}

// Shutdown cancels outstanding tasks and waits for them to finish, or
// for ctx to expire, whichever comes first.
func (g *TaskGroup) Shutdown(ctx context.Context) error {
	g.cancel()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
