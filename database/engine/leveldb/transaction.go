// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package leveldb

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/btcsuite/btcscript/database/engine"
)

// NewTransaction wraps an open leveldb transaction.
func NewTransaction(tx *leveldb.Transaction) engine.Transaction {
	return &Transaction{Transaction: tx}
}

// Transaction stages prevout writes and spends until Commit.  The prevout
// store connects a transaction or a whole block through a single
// Transaction, so either every output it adds and every spend it removes
// becomes visible, or none do.
//
// leveldb only allows one open transaction per database, so callers must
// Commit or Discard before starting the next update.
type Transaction struct {
	*leveldb.Transaction
}

// Put stages a serialized prevout under its outpoint key.
func (t *Transaction) Put(key, value []byte) error {
	return t.Transaction.Put(key, value, nil)
}

// Delete stages the removal of a spent prevout.
func (t *Transaction) Delete(key []byte) error {
	return t.Transaction.Delete(key, nil)
}

// Discard drops every staged change.  It is a no-op after Commit, which lets
// the store defer it unconditionally.
func (t *Transaction) Discard() {
	t.Transaction.Discard()
}

// Commit atomically applies the staged changes.  Committing a discarded or
// already committed transaction fails.
func (t *Transaction) Commit() error {
	if err := t.Transaction.Commit(); err != nil {
		return fmt.Errorf("leveldb: commit prevout update: %w", err)
	}
	return nil
}
