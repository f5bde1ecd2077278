// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package shield

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/picore-systems/supercore/pkg/sealing"
	"github.com/picore-systems/supercore/services/compliance"
)

func newTestShield(t *testing.T) *Shield {
	t.Helper()
	s, err := New(compliance.NewGate(nil), sealing.New("test-seal-key"), nil)
	require.NoError(t, err)
	return s
}

func TestEmbeddedPatternPackLoads(t *testing.T) {
	s := newTestShield(t)
	require.NotEmpty(t, s.categories)
	for i := 1; i < len(s.categories); i++ {
		require.GreaterOrEqual(t, s.categories[i-1].Priority, s.categories[i].Priority,
			"categories must be sorted from highest to lowest priority")
	}
}

func TestProcessSealsStablePayload(t *testing.T) {
	s := newTestShield(t)

	sealed, err := s.Process("routine maintenance window announcement")
	require.NoError(t, err)

	payload, ok := s.Verify(sealed)
	require.True(t, ok)
	require.Equal(t, "routine maintenance window announcement", payload)
	require.Empty(t, s.Records())
}

func TestProcessQuarantinesAccumulatedVolatility(t *testing.T) {
	s := newTestShield(t)
	var quarantines atomic.Int64
	s.OnQuarantine = func() { quarantines.Add(1) }

	// Each reference scores below the gate's reject threshold on its
	// own, but the increments accumulate past the quarantine line.
	_, err := s.Process("mentions bitcoin and ethereum")

	var qe *QuarantineError
	require.ErrorAs(t, err, &qe)
	require.InDelta(t, 0.4, qe.Score, 1e-9)
	require.Contains(t, qe.Categories, "external-chains")

	records := s.Records()
	require.Len(t, records, 1)
	require.True(t, records[0].Quarantined)
	require.InDelta(t, 0.4, records[0].VolatilityScore, 1e-9)
	require.NotEmpty(t, records[0].ID)
	require.False(t, records[0].Timestamp.IsZero())
	require.Equal(t, int64(1), quarantines.Load())
}

func TestProcessSinglePatternBelowThreshold(t *testing.T) {
	s := newTestShield(t)

	// One matching pattern contributes 0.2, which is under the line.
	sealed, err := s.Process("btc price feed offline")
	require.NoError(t, err)
	require.NotEmpty(t, sealed)
	require.Empty(t, s.Records())
}

func TestProcessPropagatesGateRejection(t *testing.T) {
	s := newTestShield(t)

	_, err := s.Process("bitcoin ethereum crypto blockchain")

	var rej *compliance.RejectionError
	require.ErrorAs(t, err, &rej)
	require.Empty(t, s.Records(), "gate rejections are not quarantine events")
}

func TestProcessSealsPayloadVerbatim(t *testing.T) {
	s := newTestShield(t)

	// The gate's sanitization marker does not leak into the seal; the
	// envelope carries the payload exactly as submitted.
	sealed, err := s.Process("process volatile data stream now")
	require.NoError(t, err)

	payload, ok := s.Verify(sealed)
	require.True(t, ok)
	require.Equal(t, "process volatile data stream now", payload)
}

func TestBulkIsolate(t *testing.T) {
	s := newTestShield(t)

	payloads := []string{
		"routine maintenance window announcement",
		"bitcoin and ethereum futures update",
		"node health report for shard seven",
		"speculative token market chatter",
		"scheduled upgrade of storage tier",
	}

	results := s.BulkIsolate(context.Background(), payloads)
	require.Len(t, results, len(payloads))

	var sealedCount, quarantined int
	for i, res := range results {
		if res.Err != nil {
			var qe *QuarantineError
			require.True(t, errors.As(res.Err, &qe), "payload %d: %v", i, res.Err)
			quarantined++
			continue
		}
		payload, ok := s.Verify(res.Sealed)
		require.True(t, ok)
		require.Equal(t, payloads[i], payload)
		sealedCount++
	}
	require.Equal(t, 3, sealedCount)
	require.Equal(t, 2, quarantined)
	require.Len(t, s.Records(), 2)
}

func TestStreamPreservesArrivalOrder(t *testing.T) {
	s := newTestShield(t)
	stream := s.NewStream()

	payloads := []string{
		"first scheduled report",
		"second scheduled report",
		"mentions bitcoin and ethereum", // dropped by quarantine
		"third scheduled report",
	}
	for _, p := range payloads {
		require.NoError(t, stream.Enqueue(p))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var delivered []string
	stream.Run(ctx, func(sealed string) {
		payload, ok := s.Verify(sealed)
		require.True(t, ok)
		delivered = append(delivered, payload)
	})

	require.Equal(t, []string{
		"first scheduled report",
		"second scheduled report",
		"third scheduled report",
	}, delivered)
	require.Len(t, s.Records(), 1)
}

func TestStreamEnqueueAfterShutdown(t *testing.T) {
	s := newTestShield(t)
	stream := s.NewStream()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stream.Run(ctx, nil)

	require.Error(t, stream.Enqueue("late arrival"))
}

func TestQuarantineErrorMessage(t *testing.T) {
	err := &QuarantineError{Score: 0.4, Categories: []string{"external-chains"}}
	require.Contains(t, err.Error(), "0.40")
	require.Contains(t, err.Error(), "external-chains")
}

func TestPatternFileCompileRejectsBadRegex(t *testing.T) {
	file := PatternFile{Categories: []Category{{
		Name:     "broken",
		Patterns: []Pattern{{Id: "BAD", Regex: "([unclosed", Increment: 0.2}},
	}}}
	require.Error(t, file.Compile())
}

func TestPatternFileCompileRejectsNonPositiveIncrement(t *testing.T) {
	file := PatternFile{Categories: []Category{{
		Name:     "broken",
		Patterns: []Pattern{{Id: "ZERO", Regex: "x", Increment: 0}},
	}}}
	require.Error(t, file.Compile())
}

func TestScoreFindsAllCategories(t *testing.T) {
	s := newTestShield(t)
	score, categories := s.scan("bitcoin token speculation digest")
	require.InDelta(t, 0.6, score, 1e-9)
	require.ElementsMatch(t, []string{"external-chains", "market-volatility"}, categories)
}
