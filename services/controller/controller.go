// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package controller implements the supervisory layer: it boots the
// subsystems, runs the periodic supervision loop, dispatches external
// commands and keeps the event journal behind the dashboard.
package controller

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/picore-systems/supercore/pkg/logging"
	"github.com/picore-systems/supercore/services/accelerator"
	"github.com/picore-systems/supercore/services/apps"
	"github.com/picore-systems/supercore/services/compliance"
	"github.com/picore-systems/supercore/services/controller/observability"
	"github.com/picore-systems/supercore/services/ledger"
	"github.com/picore-systems/supercore/services/shield"
)

// DefaultSupervisionInterval is the tick period of the supervision loop.
const DefaultSupervisionInterval = 10 * time.Second

// maxJournalEvents bounds the in-memory event journal. Older events
// fall off the front.
const maxJournalEvents = 100

// dashboardEvents is how many recent events the dashboard exposes.
const dashboardEvents = 5

// Status is the controller lifecycle state.
type Status string

const (
	Active Status = "active"
	Halted Status = "halted"
)

// Event is one entry in the supervision journal.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

// Dashboard is the operator-facing summary.
type Dashboard struct {
	Status      Status                    `json:"status"`
	Compliance  compliance.StateSnapshot  `json:"compliance"`
	Pool        accelerator.Metrics       `json:"pool"`
	Fleet       apps.Metrics              `json:"fleet"`
	Committed   int                       `json:"transactions_committed"`
	Quarantined []shield.QuarantineRecord `json:"quarantined,omitempty"`
	Events      []Event                   `json:"events"`
}

// Controller supervises the whole pipeline.
type Controller struct {
	state    *compliance.State
	enforcer *compliance.Enforcer
	shield   *shield.Shield
	stream   *shield.Stream
	ledger   *ledger.Engine
	accel    *accelerator.Accelerator
	apps     *apps.Orchestrator
	metrics  *observability.Metrics
	interval time.Duration
	log      *logging.Logger

	mu     sync.Mutex
	status Status
	events []Event
}

// Config collects the controller's collaborators. Every field except
// Interval and Log is required.
type Config struct {
	State    *compliance.State
	Enforcer *compliance.Enforcer
	Shield   *shield.Shield
	Ledger   *ledger.Engine
	Accel    *accelerator.Accelerator
	Apps     *apps.Orchestrator
	Metrics  *observability.Metrics
	Interval time.Duration
	Log      *logging.Logger
}

// New assembles a Controller. A zero interval selects the default; a
// nil logger falls back to the default logger.
func New(cfg Config) *Controller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSupervisionInterval
	}
	if cfg.Log == nil {
		cfg.Log = logging.Default()
	}
	return &Controller{
		state:    cfg.State,
		enforcer: cfg.Enforcer,
		shield:   cfg.Shield,
		stream:   cfg.Shield.NewStream(),
		ledger:   cfg.Ledger,
		accel:    cfg.Accel,
		apps:     cfg.Apps,
		metrics:  cfg.Metrics,
		interval: cfg.Interval,
		log:      cfg.Log.With("component", "controller"),
		status:   Active,
	}
}

// Run boots the subsystems and drives the supervision loop until ctx
// is cancelled or a compliance breach halts the pipeline. The ledger
// commit loop and the isolation stream run for the whole lifetime of
// the call.
func (c *Controller) Run(ctx context.Context) error {
	// Background loops must wind down when the supervision loop exits,
	// not only when the caller's context does.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var background sync.WaitGroup
	background.Add(2)
	go func() {
		defer background.Done()
		c.ledger.Run(ctx)
	}()
	go func() {
		defer background.Done()
		c.stream.Run(ctx, nil)
	}()
	defer background.Wait()

	if err := c.enforcer.Enforce(ctx); err != nil {
		c.log.Warn("initial compliance check failed", "error", err)
	}
	if err := c.accel.Accelerate(ctx); err != nil {
		c.halt(fmt.Sprintf("startup aborted: %v", err))
		return err
	}
	if _, err := c.apps.RunAll(ctx); err != nil {
		c.log.Warn("initial processing sweep failed", "error", err)
	}
	c.recordEvent("controller_init", "supervision started")
	c.log.Info("supervision started", "interval", c.interval.String())

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if done := c.superviseOnce(ctx); done {
				return nil
			}
		}
	}
}

// superviseOnce runs one supervision cycle. It reports true when the
// pipeline has halted and the loop must stop.
func (c *Controller) superviseOnce(ctx context.Context) bool {
	if c.metrics != nil {
		c.metrics.SupervisionCyclesTotal.Inc()
	}

	if c.state.Snapshot().ExternalIntegrationHalted {
		c.halt("ecosystem non-compliant")
		return true
	}

	if err := c.accel.Evolve(ctx); err != nil {
		c.log.Warn("evolution cycle failed", "error", err)
	}

	// Evolve re-checks the source, so a breach can surface mid-cycle.
	if c.state.Snapshot().ExternalIntegrationHalted {
		c.halt("ecosystem non-compliant")
		return true
	}

	c.recordEvent("evolution_cycle", fmt.Sprintf("compliance rate %.2f", c.accel.Metrics().ComplianceRate))
	c.refreshGauges()
	return false
}

// halt transitions the controller to Halted and journals the breach.
// The transition is terminal.
func (c *Controller) halt(reason string) {
	c.mu.Lock()
	already := c.status == Halted
	c.status = Halted
	c.mu.Unlock()
	if already {
		return
	}
	c.recordEvent("compliance_breach", reason)
	if c.metrics != nil {
		c.metrics.ComplianceHalted.Set(1)
	}
	c.log.Error("pipeline halted", "reason", reason)
}

// refreshGauges publishes subsystem state. Only the supervision loop
// calls this, so gauge writes have a single writer.
func (c *Controller) refreshGauges() {
	if c.metrics == nil {
		return
	}
	c.metrics.AppsManaged.Set(float64(c.apps.Metrics().AppsManaged))
	c.metrics.NetworkProgress.Set(c.accel.Metrics().NetworkProgress)
}

func (c *Controller) recordEvent(eventType, details string) {
	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
	c.mu.Lock()
	c.events = append(c.events, event)
	if len(c.events) > maxJournalEvents {
		c.events = c.events[len(c.events)-maxJournalEvents:]
	}
	c.mu.Unlock()
}

// Status returns the current lifecycle state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Execute dispatches one external command. Parameters are positional:
//
//	deploy_app          params: developer, code
//	process_transaction params: sender, receiver, amount, kind, proof
//	isolate_data        params: payload
//
// The result payload depends on the command. Unknown commands and
// missing parameters fail without side effects.
func (c *Controller) Execute(ctx context.Context, command string, params []string) (any, error) {
	ctx, span := otel.Tracer("supercore/controller").Start(ctx, "execute_command")
	span.SetAttributes(attribute.String("command", command))
	defer span.End()

	result, err := c.dispatch(ctx, command, params)
	if c.metrics != nil {
		c.metrics.RecordCommand(command, err)
	}
	if err != nil {
		c.log.Warn("command failed", "command", command, "error", err)
		return nil, err
	}
	c.recordEvent("command_executed", command)
	return result, nil
}

func (c *Controller) dispatch(ctx context.Context, command string, params []string) (any, error) {
	switch command {
	case "deploy_app":
		developer, err := arg(params, 0, "developer")
		if err != nil {
			return nil, err
		}
		code, err := arg(params, 1, "code")
		if err != nil {
			return nil, err
		}
		return c.apps.Deploy(developer, code)

	case "process_transaction":
		sender, err := arg(params, 0, "sender")
		if err != nil {
			return nil, err
		}
		receiver, err := arg(params, 1, "receiver")
		if err != nil {
			return nil, err
		}
		rawAmount, err := arg(params, 2, "amount")
		if err != nil {
			return nil, err
		}
		amount, err := strconv.ParseFloat(rawAmount, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", rawAmount, err)
		}
		rawKind, err := arg(params, 3, "kind")
		if err != nil {
			return nil, err
		}
		kind, err := ledger.ParseKind(rawKind)
		if err != nil {
			return nil, err
		}
		proof, err := arg(params, 4, "proof")
		if err != nil {
			return nil, err
		}
		return c.ledger.Submit(ledger.Transaction{
			Sender:      sender,
			Receiver:    receiver,
			Amount:      amount,
			Kind:        kind,
			SourceProof: proof,
		})

	case "isolate_data":
		payload, err := arg(params, 0, "payload")
		if err != nil {
			return nil, err
		}
		sealed, err := c.shield.Process(payload)
		if err != nil {
			return nil, err
		}
		return map[string]string{"sealed": sealed}, nil

	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

// arg fetches the positional parameter at index i. The name only
// decorates the error; callers address parameters by position.
func arg(params []string, i int, name string) (string, error) {
	if i >= len(params) || params[i] == "" {
		return "", fmt.Errorf("missing parameter %d (%s)", i, name)
	}
	return params[i], nil
}

// Snapshot assembles the operator dashboard: current status, subsystem
// metrics and the most recent journal events, newest last.
func (c *Controller) Snapshot() Dashboard {
	c.mu.Lock()
	status := c.status
	start := len(c.events) - dashboardEvents
	if start < 0 {
		start = 0
	}
	events := make([]Event, len(c.events)-start)
	copy(events, c.events[start:])
	c.mu.Unlock()

	return Dashboard{
		Status:      status,
		Compliance:  c.state.Snapshot(),
		Pool:        c.accel.Metrics(),
		Fleet:       c.apps.Metrics(),
		Committed:   c.ledger.Committed(),
		Quarantined: c.shield.Records(),
		Events:      events,
	}
}

// Isolate admits a payload to the asynchronous isolation stream.
func (c *Controller) Isolate(payload string) error {
	return c.stream.Enqueue(payload)
}

// History exposes the committed transaction log.
func (c *Controller) History() []ledger.Transaction {
	return c.ledger.History()
}

// QuarantineRecords exposes the shield's quarantine journal.
func (c *Controller) QuarantineRecords() []shield.QuarantineRecord {
	return c.shield.Records()
}
