package possync

import (
	"context"
	"errors"
	"sync"
)

// ErrSyncInProgress is returned when a run is requested for a tenant
// whose previous run has not finished.
var ErrSyncInProgress = errors.New("sync already in progress for this tenant")

// Runner serializes runs per tenant. The engine's item upsert is a
// look-up-then-write, so two concurrent runs for one tenant could
// create duplicate rows; the runner rejects the second trigger instead.
type Runner struct {
	Engine *Engine

	mu     sync.Mutex
	active map[int64]bool
}

// NewRunner creates a runner for the engine.
func NewRunner(engine *Engine) *Runner {
	return &Runner{Engine: engine, active: make(map[int64]bool)}
}

// Run executes one reconciliation run unless one is already active for
// the tenant. Different tenants run independently.
func (r *Runner) Run(ctx context.Context, tenantID int64) (*Result, error) {
	r.mu.Lock()
	if r.active[tenantID] {
		r.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	r.active[tenantID] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.active, tenantID)
		r.mu.Unlock()
	}()

	return r.Engine.Run(ctx, tenantID)
}
