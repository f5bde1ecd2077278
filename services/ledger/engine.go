// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ledger implements the transaction processor: submissions are
// screened, validated and queued, then committed one at a time by a
// single consumer so the committed log reflects admission order.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/picore-systems/supercore/pkg/logging"
	"github.com/picore-systems/supercore/pkg/sealing"
	"github.com/picore-systems/supercore/pkg/syncqueue"
	"github.com/picore-systems/supercore/services/compliance"
)

// Engine admits, orders and commits transactions. Submissions may come
// from any goroutine; commits happen on the single Run loop.
type Engine struct {
	gate    *compliance.Gate
	sealer  *sealing.Sealer
	archive *Store
	queue   *syncqueue.Queue[Transaction]
	log     *logging.Logger

	// OnCommit, when set, is invoked once per committed transaction.
	// It must be set before the engine admits any transaction.
	OnCommit func()

	mu        sync.Mutex
	committed []Transaction
	seq       uint64
}

// NewEngine wires the admission gate, the proof sealer and an optional
// archive. A nil archive keeps the committed log in memory only; a nil
// logger falls back to the default.
func NewEngine(gate *compliance.Gate, sealer *sealing.Sealer, archive *Store, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.Default()
	}
	return &Engine{
		gate:    gate,
		sealer:  sealer,
		archive: archive,
		queue:   syncqueue.New[Transaction](),
		log:     log.With("component", "ledger"),
	}
}

// SourceProof derives the proof a submission must carry for the given
// kind and sender. Proofs are keyed, so only holders of the seal key
// can mint them.
func (e *Engine) SourceProof(kind Kind, sender string) string {
	return e.sealer.Hash(string(kind), sender)
}

// Submit screens and validates a transaction and admits it to the
// commit queue. Validation order, first failure wins: gate
// classification, kind, amount bounds, proof. The returned transaction
// is the admitted form, with ID and timestamp filled in.
func (e *Engine) Submit(tx Transaction) (Transaction, error) {
	description := fmt.Sprintf("%s %s %s", tx.Kind, tx.Sender, tx.Receiver)
	if _, _, err := e.gate.Classify(description); err != nil {
		return Transaction{}, err
	}

	if _, err := ParseKind(string(tx.Kind)); err != nil {
		return Transaction{}, err
	}

	if tx.Amount <= 0 || tx.Amount > StableValueCeiling {
		return Transaction{}, fmt.Errorf("%w: %v", ErrInvalidAmount, tx.Amount)
	}

	if tx.SourceProof != e.SourceProof(tx.Kind, tx.Sender) {
		return Transaction{}, ErrInvalidProof
	}

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}
	tx.internalAmount = tx.Amount * dualValueMultiplier

	if err := e.queue.Push(tx); err != nil {
		return Transaction{}, fmt.Errorf("ledger shut down: %w", err)
	}
	e.log.Debug("transaction admitted", "tx_id", tx.ID, "kind", tx.Kind, "amount", tx.Amount)
	return tx, nil
}

// Run commits admitted transactions until ctx is cancelled. Admitted
// transactions are still drained after cancellation, so every accepted
// submission commits exactly once.
func (e *Engine) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		e.queue.Close()
	}()

	for {
		tx, ok := e.queue.Pop()
		if !ok {
			return
		}
		e.commit(tx)
	}
}

func (e *Engine) commit(tx Transaction) {
	e.mu.Lock()
	e.seq++
	seq := e.seq
	e.committed = append(e.committed, tx)
	e.mu.Unlock()

	if e.archive != nil {
		if err := e.archive.Commit(seq, tx); err != nil {
			e.log.Error("archive write failed", "tx_id", tx.ID, "error", err)
		}
	}
	if e.OnCommit != nil {
		e.OnCommit()
	}
	e.log.Info("transaction committed", "tx_id", tx.ID, "seq", seq)
}

// History returns the committed log in commit order.
func (e *Engine) History() []Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Transaction, len(e.committed))
	copy(out, e.committed)
	return out
}

// Committed returns the number of committed transactions.
func (e *Engine) Committed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.committed)
}
