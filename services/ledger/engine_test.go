// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/picore-systems/supercore/pkg/sealing"
	"github.com/picore-systems/supercore/services/compliance"
)

func newTestEngine(t *testing.T, archive *Store) *Engine {
	t.Helper()
	return NewEngine(compliance.NewGate(nil), sealing.New("test-seal-key"), archive, nil)
}

// runEngine starts the commit loop and returns a stop function that
// cancels it and waits for the drain to finish.
func runEngine(t *testing.T, e *Engine) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

func validTransaction(e *Engine, sender, receiver string, amount float64, kind Kind) Transaction {
	return Transaction{
		Sender:      sender,
		Receiver:    receiver,
		Amount:      amount,
		Kind:        kind,
		SourceProof: e.SourceProof(kind, sender),
	}
}

func TestSubmitAndCommit(t *testing.T) {
	e := newTestEngine(t, nil)
	stop := runEngine(t, e)

	admitted, err := e.Submit(validTransaction(e, "treasury", "alice", 500, MiningReward))
	require.NoError(t, err)
	require.NotEmpty(t, admitted.ID)
	require.False(t, admitted.Timestamp.IsZero())
	require.Equal(t, 500.0, admitted.Amount)
	require.InDelta(t, 500*3.14159, admitted.InternalAmount(), 1e-6)

	stop()

	history := e.History()
	require.Len(t, history, 1)
	require.Equal(t, admitted.ID, history[0].ID)
	require.Equal(t, MiningReward, history[0].Kind)
}

func TestSubmitValidation(t *testing.T) {
	e := newTestEngine(t, nil)

	tests := []struct {
		name    string
		mutate  func(tx *Transaction)
		wantErr error
	}{
		{
			name:    "zero amount",
			mutate:  func(tx *Transaction) { tx.Amount = 0 },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			mutate:  func(tx *Transaction) { tx.Amount = -10 },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "amount above ceiling",
			mutate:  func(tx *Transaction) { tx.Amount = StableValueCeiling + 1 },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "forged proof",
			mutate:  func(tx *Transaction) { tx.SourceProof = "forged" },
			wantErr: ErrInvalidProof,
		},
		{
			name: "proof minted for another sender",
			mutate: func(tx *Transaction) {
				tx.SourceProof = e.SourceProof(tx.Kind, "mallory")
			},
			wantErr: ErrInvalidProof,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tx := validTransaction(e, "treasury", "alice", 500, MiningReward)
			tc.mutate(&tx)
			_, err := e.Submit(tx)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}

	require.Zero(t, e.Committed(), "rejected submissions must not reach the log")
}

func TestSubmitUnknownKind(t *testing.T) {
	e := newTestEngine(t, nil)
	tx := validTransaction(e, "treasury", "alice", 500, MiningReward)
	tx.Kind = "airdrop"
	_, err := e.Submit(tx)
	require.Error(t, err)
}

func TestSubmitScreensParties(t *testing.T) {
	e := newTestEngine(t, nil)
	tx := validTransaction(e, "btc", "eth", 500, P2PTransfer)
	_, err := e.Submit(tx)

	var rej *compliance.RejectionError
	require.ErrorAs(t, err, &rej)
}

func TestSubmitScreensBeforeKindValidation(t *testing.T) {
	e := newTestEngine(t, nil)
	tx := validTransaction(e, "btc", "eth", 500, P2PTransfer)
	tx.Kind = "airdrop"

	// The classification verdict wins over the unknown kind.
	_, err := e.Submit(tx)
	var rej *compliance.RejectionError
	require.ErrorAs(t, err, &rej)
}

func TestParseKind(t *testing.T) {
	for _, valid := range []string{"mining_reward", "contribution_reward", "p2p_transfer"} {
		k, err := ParseKind(valid)
		require.NoError(t, err)
		require.Equal(t, Kind(valid), k)
	}
	_, err := ParseKind("tip")
	require.Error(t, err)
}

func TestCommitOrderMatchesAdmissionOrder(t *testing.T) {
	e := newTestEngine(t, nil)
	stop := runEngine(t, e)

	var ids []string
	for i := 0; i < 20; i++ {
		tx, err := e.Submit(validTransaction(e, "treasury", fmt.Sprintf("node-%d", i), 100, ContributionReward))
		require.NoError(t, err)
		ids = append(ids, tx.ID)
	}
	stop()

	history := e.History()
	require.Len(t, history, len(ids))
	for i, tx := range history {
		require.Equal(t, ids[i], tx.ID)
	}
}

func TestConcurrentSubmittersPreservePerSenderOrder(t *testing.T) {
	e := newTestEngine(t, nil)
	stop := runEngine(t, e)

	const senders = 4
	const perSender = 25

	var wg sync.WaitGroup
	for s := 0; s < senders; s++ {
		wg.Add(1)
		go func(sender string) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				tx := validTransaction(e, sender, "sink", float64(i+1), P2PTransfer)
				if _, err := e.Submit(tx); err != nil {
					t.Errorf("submit for %s: %v", sender, err)
					return
				}
			}
		}(fmt.Sprintf("sender-%d", s))
	}
	wg.Wait()
	stop()

	history := e.History()
	require.Len(t, history, senders*perSender)

	// Within each sender, amounts were submitted in increasing order
	// and must commit in that order.
	last := map[string]float64{}
	for _, tx := range history {
		require.Greater(t, tx.Amount, last[tx.Sender])
		last[tx.Sender] = tx.Amount
	}
}

func TestSubmitAfterShutdown(t *testing.T) {
	e := newTestEngine(t, nil)
	stop := runEngine(t, e)
	stop()

	_, err := e.Submit(validTransaction(e, "treasury", "alice", 500, MiningReward))
	require.Error(t, err)
}

func TestArchiveReplaysCommitOrder(t *testing.T) {
	store, err := OpenStore(StoreConfig{InMemory: true})
	require.NoError(t, err)
	defer store.Close()

	e := newTestEngine(t, store)
	stop := runEngine(t, e)

	var ids []string
	for i := 0; i < 5; i++ {
		tx, err := e.Submit(validTransaction(e, "treasury", fmt.Sprintf("node-%d", i), 50, MiningReward))
		require.NoError(t, err)
		ids = append(ids, tx.ID)
	}
	stop()

	count, err := store.Count()
	require.NoError(t, err)
	require.Equal(t, len(ids), count)

	var replayed []string
	require.NoError(t, store.Replay(func(tx Transaction) error {
		replayed = append(replayed, tx.ID)
		return nil
	}))
	require.Equal(t, ids, replayed)
}

func TestArchivedTransactionOmitsInternalAmount(t *testing.T) {
	store, err := OpenStore(StoreConfig{InMemory: true})
	require.NoError(t, err)
	defer store.Close()

	e := newTestEngine(t, store)
	stop := runEngine(t, e)

	_, err = e.Submit(validTransaction(e, "treasury", "alice", 500, MiningReward))
	require.NoError(t, err)
	stop()

	require.NoError(t, store.Replay(func(tx Transaction) error {
		require.Equal(t, 500.0, tx.Amount)
		require.Zero(t, tx.InternalAmount(), "settlement value must not survive serialization")
		return nil
	}))
}

func TestOnCommitHook(t *testing.T) {
	e := newTestEngine(t, nil)
	var commits int
	var mu sync.Mutex
	e.OnCommit = func() {
		mu.Lock()
		commits++
		mu.Unlock()
	}
	stop := runEngine(t, e)

	for i := 0; i < 3; i++ {
		_, err := e.Submit(validTransaction(e, "treasury", "alice", 10, P2PTransfer))
		require.NoError(t, err)
	}
	stop()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 3, commits)
}

func TestOpenStoreRequiresPath(t *testing.T) {
	_, err := OpenStore(StoreConfig{})
	require.Error(t, err)
}

func TestPersistentStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()

	store, err := OpenStore(StoreConfig{Path: dir, SyncWrites: true})
	require.NoError(t, err)

	tx := Transaction{ID: "tx-1", Sender: "a", Receiver: "b", Amount: 1, Kind: P2PTransfer, Timestamp: time.Now().UTC()}
	require.NoError(t, store.Commit(1, tx))
	require.NoError(t, store.Close())

	reopened, err := OpenStore(StoreConfig{Path: dir})
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count()
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
