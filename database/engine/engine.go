// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package engine

import (
	"errors"
)

var (
	// ErrNotFound is returned by Snapshot.Get when the key does not exist.
	ErrNotFound = errors.New("engine: key not found")

	// ErrIterReleased is returned by Iterator.Error once the iterator has
	// been released.
	ErrIterReleased = errors.New("engine: iterator released")

	// ErrDbUnknownType is returned when no driver is registered for a
	// database type.
	ErrDbUnknownType = errors.New("engine: unknown database type")
)

// Engine is an ordered key/value store.  Writes are grouped in transactions
// and reads are served from point-in-time snapshots.
type Engine interface {
	// Transaction starts a new write transaction.
	Transaction() (Transaction, error)

	// Snapshot returns a consistent read-only view of the store.
	Snapshot() (Snapshot, error)

	// Close releases the store.  Closing an already closed engine returns
	// an error.
	Close() error
}

// Transaction is an atomic group of writes.  Nothing written is visible to
// snapshots until Commit returns.
type Transaction interface {
	Put(key, value []byte) error
	Delete(key []byte) error

	// Commit atomically applies the writes of the transaction.
	Commit() error

	// Discard abandons the transaction.  It is safe to call more than
	// once, and after Commit.
	Discard()
}

// Snapshot is a read-only view of the store at the time it was taken.
type Snapshot interface {
	// Get returns a copy of the value of key, or ErrNotFound.
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)

	// NewIterator returns an iterator over the keys within r in
	// ascending order.
	NewIterator(r *Range) Iterator
	Releaser
}

// Releaser is the interface that wraps the basic Release method.  Release is
// safe to call more than once.
type Releaser interface {
	Release()
}
