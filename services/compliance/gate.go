// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package compliance implements the single-entry volatility classifier
// every other supercore subsystem consults before mutating state, plus
// the process-wide compliance flags and their enforcement against the
// external compliance source.
package compliance

import (
	"strings"

	"github.com/picore-systems/supercore/pkg/logging"
)

// AcceptThreshold is the maximum volatility score the gate accepts.
const AcceptThreshold = 0.5

// densityWeight scales foreign-keyword density into the [0,1] score
// range. Below 1.0 so that a payload must be majority-flagged before the
// density alone rejects it.
const densityWeight = 0.9

// volatileLexicon is the fixed set of foreign-technology and
// market-volatility keywords the scorer counts.
var volatileLexicon = map[string]struct{}{
	"bitcoin":     {},
	"btc":         {},
	"ethereum":    {},
	"eth":         {},
	"crypto":      {},
	"token":       {},
	"blockchain":  {},
	"finance":     {},
	"volatile":    {},
	"speculative": {},
}

// Gate classifies arbitrary text payloads. It is stateless apart from
// its logger and safe for concurrent use; classification is idempotent
// for a fixed payload.
type Gate struct {
	log *logging.Logger
}

// NewGate returns a Gate. A nil logger falls back to the default.
func NewGate(log *logging.Logger) *Gate {
	if log == nil {
		log = logging.Default()
	}
	return &Gate{log: log.With("component", "gate")}
}

// Score computes the deterministic volatility score of a payload:
// the fraction of words drawn from the volatile lexicon, weighted and
// clamped to [0,1]. It is monotonic in foreign-keyword density.
func (g *Gate) Score(payload string) float64 {
	words := strings.Fields(payload)
	if len(words) == 0 {
		return 0
	}
	hits := 0
	for _, w := range words {
		w = strings.ToLower(strings.Trim(w, ".,;:!?\"'()[]{}"))
		if _, ok := volatileLexicon[w]; ok {
			hits++
		}
	}
	score := densityWeight * float64(hits) / float64(len(words))
	if score > 1 {
		score = 1
	}
	return score
}

// Classify scores a payload and either rejects it with a
// *RejectionError or returns the sanitized payload. Sanitization
// rewrites the marker word "volatile" to "isolated" so downstream
// consumers can tell a payload passed the gate.
func (g *Gate) Classify(payload string) (sanitized string, score float64, err error) {
	score = g.Score(payload)
	if score > AcceptThreshold {
		g.log.Debug("payload rejected", "score", score)
		return "", score, &RejectionError{Score: score}
	}
	return strings.ReplaceAll(payload, "volatile", "isolated"), score, nil
}
