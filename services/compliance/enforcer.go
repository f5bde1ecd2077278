// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package compliance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/picore-systems/supercore/pkg/logging"
)

// Source answers whether the ecosystem is currently compliant. The call
// is an I/O boundary and may fail with a transport or parse error.
type Source interface {
	Check(ctx context.Context) (compliant bool, err error)
}

// HTTPSource polls a network endpoint returning {"compliant": bool}.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource returns a Source for the given endpoint URL.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Check performs the GET and decodes the compliance flag.
func (s *HTTPSource) Check(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return false, fmt.Errorf("compliance source request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("compliance source unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("compliance source status %d", resp.StatusCode)
	}

	var body struct {
		Compliant bool `json:"compliant"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("compliance source parse: %w", err)
	}
	return body.Compliant, nil
}

// StaticSource always reports a fixed result. Used for local runs
// without a compliance endpoint and in tests.
type StaticSource struct {
	Compliant bool
}

func (s StaticSource) Check(context.Context) (bool, error) {
	return s.Compliant, nil
}

// Enforcer polls a Source and applies its verdict to the shared State.
type Enforcer struct {
	state  *State
	source Source
	log    *logging.Logger
}

// NewEnforcer wires a Source to the shared State. A nil logger falls
// back to the default.
func NewEnforcer(state *State, source Source, log *logging.Logger) *Enforcer {
	if log == nil {
		log = logging.Default()
	}
	return &Enforcer{state: state, source: source, log: log.With("component", "enforcer")}
}

// Enforce queries the source and, on a non-compliant result, performs
// the terminal halt transition. Transport and parse failures are
// surfaced to the caller and leave the state untouched; they do not by
// themselves halt the system.
func (e *Enforcer) Enforce(ctx context.Context) error {
	compliant, err := e.source.Check(ctx)
	if err != nil {
		return err
	}
	if !compliant {
		e.state.Halt()
		e.log.Warn("external integration halted: ecosystem non-compliant")
	}
	return nil
}
