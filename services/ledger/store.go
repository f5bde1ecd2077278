// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// StoreConfig holds configuration for the transaction archive.
type StoreConfig struct {
	// Path is the directory for BadgerDB files.
	// Required unless InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool
}

// Store archives committed transactions in an embedded BadgerDB.
// Keys are sequence-prefixed so a prefix scan replays commit order.
type Store struct {
	db *badger.DB
}

// OpenStore opens the archive at the configured path, or in memory.
// The caller must Close the store when done.
func OpenStore(cfg StoreConfig) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent archive")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create archive directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open transaction archive: %w", err)
	}
	return &Store{db: db}, nil
}

// archiveKey builds the key for a committed transaction. The zero-padded
// sequence number keeps lexicographic key order equal to commit order.
func archiveKey(seq uint64, id string) []byte {
	return []byte(fmt.Sprintf("tx/%020d/%s", seq, id))
}

// Commit persists one committed transaction under its sequence number.
func (s *Store) Commit(seq uint64, tx Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("marshal transaction %s: %w", tx.ID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(archiveKey(seq, tx.ID), data)
	})
	if err != nil {
		return fmt.Errorf("archive transaction %s: %w", tx.ID, err)
	}
	return nil
}

// Replay iterates the archive in commit order, decoding each entry.
func (s *Store) Replay(fn func(tx Transaction) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("tx/")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var tx Transaction
				if err := json.Unmarshal(val, &tx); err != nil {
					return fmt.Errorf("decode archived transaction: %w", err)
				}
				return fn(tx)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of archived transactions.
func (s *Store) Count() (int, error) {
	count := 0
	err := s.Replay(func(Transaction) error {
		count++
		return nil
	})
	return count, err
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
