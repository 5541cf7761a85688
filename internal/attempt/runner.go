package attempt

import (
	"context"
	"time"
)

// Runner drives the engine's one-second countdown tick. Ticks against a
// non-Active engine are no-ops, so a single runner can span many attempts.
type Runner struct {
	engine   *Engine
	interval time.Duration
	// Completed receives the result of each attempt a tick finishes
	// (timer expiry auto-submits). Unbuffered sends are skipped if the
	// host is not listening.
	Completed chan *Result
}

// NewRunner creates a runner ticking once per second.
func NewRunner(engine *Engine) *Runner {
	return &Runner{
		engine:    engine,
		interval:  time.Second,
		Completed: make(chan *Result, 1),
	}
}

// Run ticks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := r.engine.HandleTick(ctx)
			if err != nil || result == nil {
				continue
			}
			select {
			case r.Completed <- result:
			default:
			}
		}
	}
}
