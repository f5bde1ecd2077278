// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ledger

import (
	"errors"
	"fmt"
	"time"
)

// StableValueCeiling is the maximum amount a single transaction may
// carry. Submissions above the ceiling are rejected before admission.
const StableValueCeiling = 314159.0

// dualValueMultiplier converts a public amount into the internal
// settlement value. The internal value never leaves the ledger: it is
// not serialized, not exposed over the API, and not part of History.
const dualValueMultiplier = 3.14159

var (
	// ErrInvalidAmount reports an amount outside (0, StableValueCeiling].
	ErrInvalidAmount = errors.New("transaction amount outside the stable value range")

	// ErrInvalidProof reports a source proof that does not match the
	// transaction's kind and sender.
	ErrInvalidProof = errors.New("transaction source proof mismatch")
)

// Kind is the transaction category.
type Kind string

const (
	MiningReward       Kind = "mining_reward"
	ContributionReward Kind = "contribution_reward"
	P2PTransfer        Kind = "p2p_transfer"
)

// ParseKind validates a wire-format kind string.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case MiningReward, ContributionReward, P2PTransfer:
		return k, nil
	default:
		return "", fmt.Errorf("unknown transaction kind %q", s)
	}
}

// Transaction is a single ledger entry. The public Amount is what
// callers see; the internal settlement value is derived at admission
// and kept private to the package.
type Transaction struct {
	ID          string    `json:"id"`
	Sender      string    `json:"sender"`
	Receiver    string    `json:"receiver"`
	Amount      float64   `json:"amount"`
	Kind        Kind      `json:"kind"`
	SourceProof string    `json:"source_proof"`
	Timestamp   time.Time `json:"timestamp"`

	internalAmount float64
}

// InternalAmount exposes the settlement value to ledger-internal
// consumers. It returns zero for transactions not yet admitted.
func (t Transaction) InternalAmount() float64 {
	return t.internalAmount
}
