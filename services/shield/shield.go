// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package shield implements the isolation layer that sits between raw
// payloads and the rest of the system. Every payload first passes the
// compliance gate, then a pattern-based volatility scan; payloads that
// accumulate too much volatility are quarantined and recorded, the rest
// are sealed for downstream consumption.
package shield

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/picore-systems/supercore/pkg/logging"
	"github.com/picore-systems/supercore/pkg/sealing"
	"github.com/picore-systems/supercore/services/compliance"
	"github.com/picore-systems/supercore/services/shield/enforcement"
)

// QuarantineThreshold is the accumulated volatility score above which a
// payload is quarantined instead of sealed.
const QuarantineThreshold = 0.3

// Result is the outcome of isolating a single payload in a batch.
// Exactly one of Sealed and Err is set.
type Result struct {
	Sealed string
	Err    error
}

// Shield screens payloads and seals the ones that pass. It is safe for
// concurrent use.
type Shield struct {
	gate       *compliance.Gate
	sealer     *sealing.Sealer
	categories []Category
	log        *logging.Logger

	// OnQuarantine, when set, is invoked once per quarantined payload.
	// It must be set before the shield processes any payload.
	OnQuarantine func()

	mu      sync.Mutex
	records []QuarantineRecord
}

// New builds a Shield from the embedded volatility pattern pack.
// A nil logger falls back to the default.
func New(gate *compliance.Gate, sealer *sealing.Sealer, log *logging.Logger) (*Shield, error) {
	if log == nil {
		log = logging.Default()
	}
	var file PatternFile
	if err := yaml.Unmarshal(enforcement.VolatilityPatterns, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the embedded pattern file: %w", err)
	}
	if err := file.Compile(); err != nil {
		return nil, err
	}
	file.SortByPriority()

	return &Shield{
		gate:       gate,
		sealer:     sealer,
		categories: file.Categories,
		log:        log.With("component", "shield"),
	}, nil
}

// scan accumulates the volatility increments of every matching pattern
// and returns the total alongside the names of the matching categories.
func (s *Shield) scan(payload string) (score float64, categories []string) {
	data := []byte(payload)
	for _, category := range s.categories {
		hit := false
		for _, pattern := range category.Patterns {
			if pattern.compiled.Match(data) {
				score += pattern.Increment
				hit = true
			}
		}
		if hit {
			categories = append(categories, category.Name)
		}
	}
	return score, categories
}

// Process screens a single payload. The gate runs first and its
// rejection is returned unchanged; a payload the gate accepts is then
// scanned, and either quarantined (recorded, counted, rejected with a
// *QuarantineError) or sealed. The seal wraps the payload as
// submitted, so Verify hands back exactly what the producer sent.
func (s *Shield) Process(payload string) (string, error) {
	if _, _, err := s.gate.Classify(payload); err != nil {
		return "", err
	}

	score, categories := s.scan(payload)
	if score > QuarantineThreshold {
		record := QuarantineRecord{
			ID:              uuid.NewString(),
			Categories:      categories,
			VolatilityScore: score,
			Quarantined:     true,
			Timestamp:       time.Now().UTC(),
		}
		s.mu.Lock()
		s.records = append(s.records, record)
		s.mu.Unlock()

		if s.OnQuarantine != nil {
			s.OnQuarantine()
		}
		s.log.Warn("payload quarantined",
			"record_id", record.ID,
			"score", score,
			"categories", categories)
		return "", &QuarantineError{Score: score, Categories: categories}
	}

	return s.sealer.Seal(payload), nil
}

// BulkIsolate processes a batch of payloads concurrently. The returned
// slice is index-aligned with the input; a failed payload carries its
// error in place without affecting its neighbors.
func (s *Shield) BulkIsolate(ctx context.Context, payloads []string) []Result {
	results := make([]Result, len(payloads))
	g, _ := errgroup.WithContext(ctx)
	for i, payload := range payloads {
		i, payload := i, payload
		g.Go(func() error {
			sealed, err := s.Process(payload)
			results[i] = Result{Sealed: sealed, Err: err}
			return nil
		})
	}
	g.Wait()
	return results
}

// Records returns a snapshot of the quarantine log in insertion order.
func (s *Shield) Records() []QuarantineRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]QuarantineRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Verify checks a sealed payload and returns the original content.
func (s *Shield) Verify(sealed string) (string, bool) {
	return s.sealer.Verify(sealed)
}
