// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package accelerator

import "errors"

// NodeStatus is the lifecycle state of a pool node.
type NodeStatus string

const (
	Syncing NodeStatus = "syncing"
	Active  NodeStatus = "active"
	Halted  NodeStatus = "halted"
)

// Node is a single member of the capacity pool.
type Node struct {
	ID           string     `json:"id"`
	Status       NodeStatus `json:"status"`
	AssignedApps []string   `json:"assigned_apps,omitempty"`
}

// Metrics is a point-in-time view of pool health.
type Metrics struct {
	NetworkProgress float64 `json:"network_progress"`
	AppsProcessed   int     `json:"apps_processed"`
	ComplianceRate  float64 `json:"compliance_rate"`
}

var (
	// ErrHalted reports that the pool refused an operation because the
	// external integration has been halted.
	ErrHalted = errors.New("capacity pool halted: ecosystem non-compliant")

	// ErrNoNodes reports an assignment attempted before acceleration.
	ErrNoNodes = errors.New("capacity pool empty: accelerate first")
)
