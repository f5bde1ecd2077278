// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the supervisory
// controller.
//
// Metrics are exposed via the /metrics endpoint. All metric operations
// are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "supercore"

const controllerSubsystem = "controller"

// Metrics holds all Prometheus metrics for the supervisory controller.
//
// Counters are incremented from the components that own the underlying
// event; gauges are refreshed only by the supervision loop, which is
// the single writer.
type Metrics struct {
	// CommandsTotal counts executed commands.
	// Labels: command (deploy_app, process_transaction, isolate_data), status (success, error)
	CommandsTotal *prometheus.CounterVec

	// SupervisionCyclesTotal counts completed supervision ticks.
	SupervisionCyclesTotal prometheus.Counter

	// TransactionsCommittedTotal counts ledger commits.
	TransactionsCommittedTotal prometheus.Counter

	// QuarantineEventsTotal counts payloads quarantined by the shield.
	QuarantineEventsTotal prometheus.Counter

	// AppsManaged tracks the current size of the app fleet.
	AppsManaged prometheus.Gauge

	// NetworkProgress tracks the capacity pool synthesis progress [0,1].
	NetworkProgress prometheus.Gauge

	// ComplianceHalted is 1 once the external integration has halted.
	ComplianceHalted prometheus.Gauge
}

// New creates and registers the controller metrics on the given
// registerer. Call once per registry; duplicate registration panics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CommandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: controllerSubsystem,
				Name:      "commands_total",
				Help:      "Total executed commands by command and status",
			},
			[]string{"command", "status"},
		),
		SupervisionCyclesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: controllerSubsystem,
				Name:      "supervision_cycles_total",
				Help:      "Total completed supervision cycles",
			},
		),
		TransactionsCommittedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: controllerSubsystem,
				Name:      "transactions_committed_total",
				Help:      "Total transactions committed to the ledger",
			},
		),
		QuarantineEventsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: controllerSubsystem,
				Name:      "quarantine_events_total",
				Help:      "Total payloads quarantined by the isolation shield",
			},
		),
		AppsManaged: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: controllerSubsystem,
				Name:      "apps_managed",
				Help:      "Current number of managed apps",
			},
		),
		NetworkProgress: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: controllerSubsystem,
				Name:      "network_progress",
				Help:      "Capacity pool synthesis progress (0 to 1)",
			},
		),
		ComplianceHalted: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: controllerSubsystem,
				Name:      "compliance_halted",
				Help:      "1 when the external integration has been halted",
			},
		),
	}
}

// Default creates metrics on the default Prometheus registry.
func Default() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

// RecordCommand records one executed command.
func (m *Metrics) RecordCommand(command string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.CommandsTotal.WithLabelValues(command, status).Inc()
}
