// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package apps

import "errors"

// appUnitCost is the resource charge booked for every deployed app.
const appUnitCost = 100.0

// AppStatus is the lifecycle state of a managed app.
type AppStatus string

const (
	Building AppStatus = "building"
	Running  AppStatus = "running"
	Halted   AppStatus = "halted"
)

// App is a managed application. CodeHash is a keyed digest of the
// deployed code; the code itself is not retained.
type App struct {
	ID            string    `json:"id"`
	Developer     string    `json:"developer"`
	CodeHash      string    `json:"code_hash"`
	Status        AppStatus `json:"status"`
	ResourceUsage float64   `json:"resource_usage"`
}

// Metrics is a point-in-time view of the managed fleet.
type Metrics struct {
	AppsManaged           int     `json:"apps_managed"`
	ResourceConsumedTotal float64 `json:"resource_consumed_total"`
	UptimeRate            float64 `json:"uptime_rate"`
}

// ErrAppNotFound reports a lookup for an unknown app ID.
var ErrAppNotFound = errors.New("app not found")
