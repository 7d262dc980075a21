// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pebbledb

import (
	"github.com/cockroachdb/pebble"

	"github.com/btcsuite/btcscript/database/engine"
)

// NewIterator wraps a pebble iterator positioned before the first key of its
// range.
func NewIterator(iter *pebble.Iterator) engine.Iterator {
	return &Iterator{Iterator: iter}
}

// Iterator walks the outpoint keys of a snapshot in key order.  The prevout
// store uses it to list every stored prevout under its bucket prefix.  Key
// and Value return nil once the iterator is exhausted, and the returned
// slices are only valid until the next move.
type Iterator struct {
	*pebble.Iterator
	released bool
}

// Seek moves to the first key at or after key.
func (i *Iterator) Seek(key []byte) bool {
	return i.Iterator.SeekGE(key)
}

// Key returns the current outpoint key.
func (i *Iterator) Key() []byte {
	if !i.Iterator.Valid() {
		return nil
	}
	return i.Iterator.Key()
}

// Value returns the current serialized prevout.
func (i *Iterator) Value() []byte {
	if !i.Iterator.Valid() {
		return nil
	}
	return i.Iterator.Value()
}

// Release closes the underlying iterator.  It may be called more than once.
func (i *Iterator) Release() {
	if i.released {
		return
	}
	i.released = true
	i.Iterator.Close()
}

// Error reports engine.ErrIterReleased after Release, and otherwise any
// error pebble hit while iterating.
func (i *Iterator) Error() error {
	if i.released {
		return engine.ErrIterReleased
	}
	return i.Iterator.Error()
}
