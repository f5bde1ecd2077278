// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package accelerator manages the capacity node pool: parallel pool
// synthesis, screened app-to-node assignment, and the periodic
// compliance evolution cycle.
package accelerator

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/picore-systems/supercore/pkg/logging"
	"github.com/picore-systems/supercore/services/compliance"
)

// DefaultPoolSize is the node count used when no size is configured.
const DefaultPoolSize = 1000

// evolutionStep is the compliance-rate gain per evolution cycle.
const evolutionStep = 0.01

// Accelerator owns the capacity pool. All pool mutations happen under
// one mutex; reads hand out copies.
type Accelerator struct {
	gate     *compliance.Gate
	state    *compliance.State
	enforcer *compliance.Enforcer
	poolSize int
	log      *logging.Logger

	mu            sync.Mutex
	nodes         []Node
	assignCounter int
	metrics       Metrics
}

// New builds an Accelerator over an empty pool. A poolSize of zero or
// less selects DefaultPoolSize; a nil logger falls back to the default.
func New(gate *compliance.Gate, state *compliance.State, enforcer *compliance.Enforcer, poolSize int, log *logging.Logger) *Accelerator {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	if log == nil {
		log = logging.Default()
	}
	return &Accelerator{
		gate:     gate,
		state:    state,
		enforcer: enforcer,
		poolSize: poolSize,
		log:      log.With("component", "accelerator"),
	}
}

// Accelerate synthesizes the node pool. Nodes are built concurrently
// into a private slice; the pool and the progress metric are published
// in a single critical section, so readers never observe a partial
// pool. Refuses to run once the integration is halted.
func (a *Accelerator) Accelerate(ctx context.Context) error {
	if a.state.Snapshot().ExternalIntegrationHalted {
		return ErrHalted
	}

	nodes := make([]Node, a.poolSize)
	g, ctx := errgroup.WithContext(ctx)
	for i := range nodes {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			nodes[i] = Node{
				ID:     fmt.Sprintf("node-%04d", i),
				Status: Active,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("pool synthesis aborted: %w", err)
	}

	a.mu.Lock()
	a.nodes = nodes
	a.metrics.NetworkProgress = 1.0
	a.mu.Unlock()

	a.log.Info("capacity pool synthesized", "nodes", len(nodes))
	return nil
}

// AssignApps distributes app IDs across the pool round-robin. Every ID
// is screened before any assignment happens: one rejected ID fails the
// whole batch and leaves the pool untouched.
func (a *Accelerator) AssignApps(appIDs []string) error {
	if a.state.Snapshot().ExternalIntegrationHalted {
		return ErrHalted
	}

	for _, id := range appIDs {
		if _, _, err := a.gate.Classify(id); err != nil {
			return fmt.Errorf("app %q refused assignment: %w", id, err)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.nodes) == 0 {
		return ErrNoNodes
	}
	for _, id := range appIDs {
		node := &a.nodes[a.assignCounter%len(a.nodes)]
		node.AssignedApps = append(node.AssignedApps, id)
		a.assignCounter++
	}
	a.metrics.AppsProcessed += len(appIDs)
	a.metrics.ComplianceRate = 0.99

	a.log.Info("apps assigned", "count", len(appIDs))
	return nil
}

// Evolve advances the compliance rate by one step, capped at 1.0, then
// re-checks the external compliance source. The enforcement call runs
// outside the pool lock.
func (a *Accelerator) Evolve(ctx context.Context) error {
	a.mu.Lock()
	a.metrics.ComplianceRate += evolutionStep
	if a.metrics.ComplianceRate > 1.0 {
		a.metrics.ComplianceRate = 1.0
	}
	rate := a.metrics.ComplianceRate
	a.mu.Unlock()

	a.log.Debug("evolution cycle", "compliance_rate", rate)
	return a.enforcer.Enforce(ctx)
}

// Metrics returns a copy of the current pool metrics.
func (a *Accelerator) Metrics() Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.metrics
}

// Nodes returns a deep copy of the pool.
func (a *Accelerator) Nodes() []Node {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Node, len(a.nodes))
	for i, n := range a.nodes {
		out[i] = Node{
			ID:           n.ID,
			Status:       n.Status,
			AssignedApps: append([]string(nil), n.AssignedApps...),
		}
	}
	return out
}
