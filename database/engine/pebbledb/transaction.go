// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pebbledb

import (
	"github.com/cockroachdb/pebble"

	"github.com/btcsuite/btcscript/database/engine"
)

// NewTransaction wraps a fresh pebble batch.
func NewTransaction(batch *pebble.Batch) engine.Transaction {
	return &Transaction{Batch: batch}
}

// Transaction collects the prevout additions and spends of one connected
// transaction or block in a pebble batch.  Nothing reaches the database
// until Commit, which applies the batch atomically and syncs it, so a crash
// never leaves a block half connected.
type Transaction struct {
	*pebble.Batch
	released bool
}

// Put stages a serialized prevout under its outpoint key.
func (t *Transaction) Put(key, value []byte) error {
	if t.released {
		return ErrTxClosed
	}
	return t.Batch.Set(key, value, pebble.NoSync)
}

// Delete stages the removal of a spent prevout.
func (t *Transaction) Delete(key []byte) error {
	if t.released {
		return ErrTxClosed
	}
	return t.Batch.Delete(key, pebble.NoSync)
}

// Discard closes the batch without applying it.  Calling it more than once,
// or after Commit, is safe.
func (t *Transaction) Discard() {
	if t.released {
		return
	}
	t.released = true
	t.Batch.Close()
}

// Commit applies the batch with a sync write and releases it.  Committing a
// discarded batch fails with ErrTxClosed.
func (t *Transaction) Commit() error {
	if t.released {
		return ErrTxClosed
	}
	defer t.Discard()

	return t.Batch.Commit(pebble.Sync)
}
