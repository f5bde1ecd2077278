// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package controller

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/picore-systems/supercore/pkg/sealing"
	"github.com/picore-systems/supercore/services/accelerator"
	"github.com/picore-systems/supercore/services/apps"
	"github.com/picore-systems/supercore/services/compliance"
	"github.com/picore-systems/supercore/services/controller/observability"
	"github.com/picore-systems/supercore/services/ledger"
	"github.com/picore-systems/supercore/services/shield"
)

// flipSource is a compliance source whose verdict can change mid-test.
type flipSource struct {
	compliant atomic.Bool
}

func (f *flipSource) Check(context.Context) (bool, error) {
	return f.compliant.Load(), nil
}

type fixture struct {
	ctrl   *Controller
	ledger *ledger.Engine
	accel  *accelerator.Accelerator
	state  *compliance.State
	source *flipSource
}

func newFixture(t *testing.T, interval time.Duration) *fixture {
	t.Helper()

	source := &flipSource{}
	source.compliant.Store(true)

	state := compliance.NewState()
	gate := compliance.NewGate(nil)
	sealer := sealing.New("test-seal-key")
	enforcer := compliance.NewEnforcer(state, source, nil)
	accel := accelerator.New(gate, state, enforcer, 4, nil)

	sh, err := shield.New(gate, sealer, nil)
	require.NoError(t, err)

	engine := ledger.NewEngine(gate, sealer, nil, nil)
	orchestrator := apps.New(gate, sh, sealer, accel, nil)
	metrics := observability.New(prometheus.NewRegistry())

	ctrl := New(Config{
		State:    state,
		Enforcer: enforcer,
		Shield:   sh,
		Ledger:   engine,
		Accel:    accel,
		Apps:     orchestrator,
		Metrics:  metrics,
		Interval: interval,
	})
	return &fixture{ctrl: ctrl, ledger: engine, accel: accel, state: state, source: source}
}

// start runs the controller loop and registers cleanup that stops it.
func (f *fixture) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.ctrl.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestRunInitializesPipeline(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.start(t)

	require.Eventually(t, func() bool {
		snap := f.ctrl.Snapshot()
		return len(snap.Events) > 0 && snap.Events[0].Type == "controller_init"
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, Active, f.ctrl.Status())
	require.Len(t, f.accel.Nodes(), 4)
	require.Equal(t, 1.0, f.ctrl.Snapshot().Pool.NetworkProgress)
}

func TestRunHaltsOnComplianceBreach(t *testing.T) {
	f := newFixture(t, 10*time.Millisecond)
	f.start(t)

	require.Eventually(t, func() bool {
		return f.ctrl.Status() == Active && len(f.ctrl.Snapshot().Events) > 0
	}, 2*time.Second, 5*time.Millisecond)

	f.source.compliant.Store(false)

	require.Eventually(t, func() bool {
		return f.ctrl.Status() == Halted
	}, 2*time.Second, 5*time.Millisecond)

	snap := f.ctrl.Snapshot()
	require.True(t, snap.Compliance.ExternalIntegrationHalted)

	var sawBreach bool
	for _, e := range snap.Events {
		if e.Type == "compliance_breach" {
			sawBreach = true
		}
	}
	require.True(t, sawBreach, "breach must be journaled")

	// Mutating operations are refused after the halt.
	_, err := f.ctrl.Execute(context.Background(), "deploy_app",
		[]string{"alice", "code"})
	require.Error(t, err)
}

func TestExecuteDeployApp(t *testing.T) {
	f := newFixture(t, time.Hour)
	require.NoError(t, f.accel.Accelerate(context.Background()))

	result, err := f.ctrl.Execute(context.Background(), "deploy_app",
		[]string{"alice", "fn main() {}"})
	require.NoError(t, err)

	app, ok := result.(apps.App)
	require.True(t, ok)
	require.Equal(t, "alice", app.Developer)
	require.Equal(t, apps.Running, app.Status)
}

func TestExecuteProcessTransaction(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.start(t)

	proof := f.ledger.SourceProof(ledger.MiningReward, "treasury")
	result, err := f.ctrl.Execute(context.Background(), "process_transaction",
		[]string{"treasury", "alice", "500", "mining_reward", proof})
	require.NoError(t, err)

	tx, ok := result.(ledger.Transaction)
	require.True(t, ok)
	require.Equal(t, 500.0, tx.Amount)

	require.Eventually(t, func() bool {
		return f.ctrl.Snapshot().Committed == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestExecuteProcessTransactionBadAmount(t *testing.T) {
	f := newFixture(t, time.Hour)

	_, err := f.ctrl.Execute(context.Background(), "process_transaction",
		[]string{"treasury", "alice", "not-a-number", "mining_reward", "x"})
	require.Error(t, err)
	require.Zero(t, f.ctrl.Snapshot().Committed)
}

func TestExecuteIsolateData(t *testing.T) {
	f := newFixture(t, time.Hour)

	result, err := f.ctrl.Execute(context.Background(), "isolate_data",
		[]string{"routine status digest"})
	require.NoError(t, err)

	sealed, ok := result.(map[string]string)
	require.True(t, ok)
	require.NotEmpty(t, sealed["sealed"])
}

func TestExecuteIsolateDataQuarantines(t *testing.T) {
	f := newFixture(t, time.Hour)

	_, err := f.ctrl.Execute(context.Background(), "isolate_data",
		[]string{"mentions bitcoin and ethereum"})

	var qe *shield.QuarantineError
	require.ErrorAs(t, err, &qe)
	require.Len(t, f.ctrl.QuarantineRecords(), 1)
}

func TestExecuteUnknownCommand(t *testing.T) {
	f := newFixture(t, time.Hour)
	_, err := f.ctrl.Execute(context.Background(), "self_destruct", nil)
	require.Error(t, err)
}

func TestExecuteMissingParameter(t *testing.T) {
	f := newFixture(t, time.Hour)

	tests := []struct {
		name    string
		command string
		params  []string
	}{
		{"deploy_app short sequence", "deploy_app", []string{"alice"}},
		{"deploy_app empty position", "deploy_app", []string{"alice", ""}},
		{"process_transaction short sequence", "process_transaction",
			[]string{"treasury", "alice", "500", "mining_reward"}},
		{"isolate_data no params", "isolate_data", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ctrl.Execute(context.Background(), tc.command, tc.params)
			require.Error(t, err)
			require.Contains(t, err.Error(), "missing parameter")
		})
	}
}

func TestDashboardShowsLastFiveEvents(t *testing.T) {
	f := newFixture(t, time.Hour)

	for i := 0; i < 8; i++ {
		f.ctrl.recordEvent("test_event", fmt.Sprintf("event %d", i))
	}

	snap := f.ctrl.Snapshot()
	require.Len(t, snap.Events, 5)
	require.Equal(t, "event 3", snap.Events[0].Details)
	require.Equal(t, "event 7", snap.Events[4].Details)
}

func TestJournalIsBounded(t *testing.T) {
	f := newFixture(t, time.Hour)

	for i := 0; i < maxJournalEvents+50; i++ {
		f.ctrl.recordEvent("test_event", fmt.Sprintf("event %d", i))
	}

	f.ctrl.mu.Lock()
	defer f.ctrl.mu.Unlock()
	require.Len(t, f.ctrl.events, maxJournalEvents)
}

func TestIsolateFeedsStream(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.start(t)

	require.NoError(t, f.ctrl.Isolate("mentions bitcoin and ethereum"))

	require.Eventually(t, func() bool {
		return len(f.ctrl.QuarantineRecords()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
