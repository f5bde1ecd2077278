// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package apps manages the deployed application fleet: screened
// deployment onto the capacity pool, the parallel processing sweep, and
// per-app halts.
package apps

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/picore-systems/supercore/pkg/logging"
	"github.com/picore-systems/supercore/pkg/sealing"
	"github.com/picore-systems/supercore/services/accelerator"
	"github.com/picore-systems/supercore/services/compliance"
	"github.com/picore-systems/supercore/services/shield"
)

// Orchestrator owns the app fleet. Deployments screen both the
// developer name and the submitted code before anything is recorded.
type Orchestrator struct {
	gate   *compliance.Gate
	shield *shield.Shield
	sealer *sealing.Sealer
	accel  *accelerator.Accelerator
	log    *logging.Logger

	mu   sync.Mutex
	apps []App
}

// New wires the orchestrator to its screening and capacity layers.
// A nil logger falls back to the default.
func New(gate *compliance.Gate, sh *shield.Shield, sealer *sealing.Sealer, accel *accelerator.Accelerator, log *logging.Logger) *Orchestrator {
	if log == nil {
		log = logging.Default()
	}
	return &Orchestrator{
		gate:   gate,
		shield: sh,
		sealer: sealer,
		accel:  accel,
		log:    log.With("component", "apps"),
	}
}

// Deploy screens and registers a new app, then assigns it to the
// capacity pool. The fleet is only mutated after every fallible step
// has succeeded, so a failed deployment leaves no trace.
func (o *Orchestrator) Deploy(developer, code string) (App, error) {
	if _, err := o.shield.Process(code); err != nil {
		return App{}, fmt.Errorf("app code refused: %w", err)
	}
	if _, _, err := o.gate.Classify(developer); err != nil {
		return App{}, fmt.Errorf("developer %q refused: %w", developer, err)
	}

	app := App{
		ID:            uuid.NewString(),
		Developer:     developer,
		CodeHash:      o.sealer.Hash(code),
		Status:        Running,
		ResourceUsage: appUnitCost,
	}

	if err := o.accel.AssignApps([]string{app.ID}); err != nil {
		return App{}, fmt.Errorf("capacity assignment failed: %w", err)
	}

	o.mu.Lock()
	o.apps = append(o.apps, app)
	o.mu.Unlock()

	o.log.Info("app deployed", "app_id", app.ID, "developer", developer)
	return app, nil
}

// RunAll processes the whole fleet snapshot concurrently, halted apps
// included, then advances the pool's evolution cycle. The returned
// reports are index-aligned with the snapshot.
func (o *Orchestrator) RunAll(ctx context.Context) ([]string, error) {
	o.mu.Lock()
	fleet := make([]App, len(o.apps))
	copy(fleet, o.apps)
	o.mu.Unlock()

	reports := make([]string, len(fleet))
	g, ctx := errgroup.WithContext(ctx)
	for i, app := range fleet {
		i, app := i, app
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reports[i] = fmt.Sprintf("app %s processed for %s", app.ID, app.Developer)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("processing sweep aborted: %w", err)
	}

	if err := o.accel.Evolve(ctx); err != nil {
		return reports, fmt.Errorf("evolution cycle failed: %w", err)
	}
	o.log.Info("processing sweep complete", "apps", len(fleet))
	return reports, nil
}

// Halt marks a single app halted. Its booked resource usage remains.
func (o *Orchestrator) Halt(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.apps {
		if o.apps[i].ID == id {
			o.apps[i].Status = Halted
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrAppNotFound, id)
}

// Get returns a single app by ID.
func (o *Orchestrator) Get(id string) (App, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, app := range o.apps {
		if app.ID == id {
			return app, nil
		}
	}
	return App{}, fmt.Errorf("%w: %s", ErrAppNotFound, id)
}

// Apps returns a snapshot of the fleet in deployment order.
func (o *Orchestrator) Apps() []App {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]App, len(o.apps))
	copy(out, o.apps)
	return out
}

// Metrics derives fleet metrics from the current snapshot. UptimeRate
// is the running fraction of the fleet, 1.0 for an empty fleet.
func (o *Orchestrator) Metrics() Metrics {
	o.mu.Lock()
	defer o.mu.Unlock()

	m := Metrics{AppsManaged: len(o.apps), UptimeRate: 1.0}
	if len(o.apps) == 0 {
		return m
	}
	running := 0
	for _, app := range o.apps {
		m.ResourceConsumedTotal += app.ResourceUsage
		if app.Status == Running {
			running++
		}
	}
	m.UptimeRate = float64(running) / float64(len(o.apps))
	return m
}
