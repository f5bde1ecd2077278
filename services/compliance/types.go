// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package compliance

import (
	"fmt"
	"sync"
)

// RejectionError reports that the gate classified a payload as volatile.
// It is a policy rejection: the submission is discarded and the caller
// may not retry the same payload successfully.
type RejectionError struct {
	// Score is the volatility score that exceeded AcceptThreshold.
	Score float64
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("volatile payload rejected: volatility score %.2f", e.Score)
}

// StateSnapshot is a point-in-time copy of the process-wide compliance
// flags.
type StateSnapshot struct {
	Compliant                 bool `json:"compliant"`
	ExternalIntegrationHalted bool `json:"external_integration_halted"`
}

// State is the process-wide compliance flag pair. One instance is
// constructed at startup and injected into every component; it is the
// only piece of state in the system mutated from more than one
// component, so all writers share this single mutex domain.
//
// The lifecycle is monotonic: {compliant:true, halted:false} at start,
// {compliant:false, halted:true} permanently once a non-compliance
// signal is observed. No API clears the halt.
type State struct {
	mu        sync.Mutex
	compliant bool
	halted    bool
}

// NewState returns the initial compliant, non-halted state.
func NewState() *State {
	return &State{compliant: true}
}

// Snapshot returns a consistent copy of both flags.
func (s *State) Snapshot() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StateSnapshot{
		Compliant:                 s.compliant,
		ExternalIntegrationHalted: s.halted,
	}
}

// Halt performs the terminal non-compliance transition. Idempotent.
func (s *State) Halt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compliant = false
	s.halted = true
}
