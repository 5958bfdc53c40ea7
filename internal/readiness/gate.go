// Package readiness tracks whether the completion backend has finished
// loading and may accept requests.
package readiness

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultPollInterval matches how often the backend is probed while loading
const DefaultPollInterval = 100 * time.Millisecond

// Gate is a one-way readiness flag. Once ready it stays ready.
type Gate struct {
	ready atomic.Bool

	mu    sync.Mutex
	hooks []func()
}

// NewGate creates a Gate that is not ready
func NewGate() *Gate {
	return &Gate{}
}

// IsReady reports whether the backend has finished loading
func (g *Gate) IsReady() bool {
	return g.ready.Load()
}

// OnReady registers fn to be called once the gate becomes ready.
// If the gate is already ready fn is called right away.
func (g *Gate) OnReady(fn func()) {
	g.mu.Lock()
	if !g.ready.Load() {
		g.hooks = append(g.hooks, fn)
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()
	fn()
}

// MarkReady flips the gate to ready and runs the registered hooks.
// Calling it again has no effect.
func (g *Gate) MarkReady() {
	g.mu.Lock()
	if !g.ready.CompareAndSwap(false, true) {
		g.mu.Unlock()
		return
	}
	hooks := g.hooks
	g.hooks = nil
	g.mu.Unlock()

	slog.Info("completion backend is ready")
	for _, fn := range hooks {
		fn()
	}
}

// Poll calls probe every interval until it returns true, then marks the gate
// ready. It returns ctx.Err() if ctx ends first.
func (g *Gate) Poll(ctx context.Context, interval time.Duration, probe func() bool) error {
	if g.IsReady() {
		return nil
	}
	if probe() {
		g.MarkReady()
		return nil
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if probe() {
				g.MarkReady()
				return nil
			}
		}
	}
}
