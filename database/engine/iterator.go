// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package engine

// Iterator iterates over the key/value pairs of a Snapshot in key order.
type Iterator interface {
	// First moves the iterator to the first key/value pair. If the iterator
	// only contains one key/value pair then First and Last would moves
	// to the same key/value pair.
	// It returns whether such pair exist.
	First() bool

	// Last moves the iterator to the last key/value pair. If the iterator
	// only contains one key/value pair then First and Last would moves
	// to the same key/value pair.
	// It returns whether such pair exist.
	Last() bool

	// Seek moves the iterator to the first key/value pair whose key is greater
	// than or equal to the given key.
	// It returns whether such pair exist.
	//
	// It is safe to modify the contents of the argument after Seek returns.
	Seek(key []byte) bool

	// Next moves the iterator to the next key/value pair.  A fresh
	// iterator is moved to the first pair.
	// It returns false if the iterator is exhausted.
	Next() bool

	// Prev moves the iterator to the previous key/value pair.
	// It returns false if the iterator is exhausted.
	Prev() bool

	// Valid returns whether the iterator is positioned at a key/value pair.
	Valid() bool

	// Error returns any accumulated error. Exhausting all the key/value pairs
	// is not considered to be an error.
	Error() error

	// Key returns the key of the current key/value pair, or nil if done.
	// The caller should not modify the contents of the returned slice, and
	// its contents may change on the next call to any 'seeks method'.
	Key() []byte

	// Value returns the value of the current key/value pair, or nil if done.
	// The caller should not modify the contents of the returned slice, and
	// its contents may change on the next call to any 'seeks method'.
	Value() []byte

	Releaser
}

// Range is a key range.
type Range struct {
	// Start of the key range, include in the range.
	Start []byte

	// Limit of the key range, not include in the range.
	Limit []byte
}

// BytesPrefix returns key range that satisfy the given prefix.
func BytesPrefix(prefix []byte) *Range {
	var limit []byte
	for i := len(prefix) - 1; i >= 0; i-- {
		c := prefix[i]
		if c < 0xff {
			limit = make([]byte, i+1)
			copy(limit, prefix)
			limit[i] = c + 1
			break
		}
	}
	return &Range{prefix, limit}
}

// emptyIterator is an Iterator without any key/value pair.
type emptyIterator struct {
	err      error
	released bool
}

// NewEmptyIterator returns an iterator over nothing whose Error method returns
// err.  It is returned by snapshots which cannot be iterated.
func NewEmptyIterator(err error) Iterator {
	return &emptyIterator{err: err}
}

func (*emptyIterator) First() bool      { return false }
func (*emptyIterator) Last() bool       { return false }
func (*emptyIterator) Seek([]byte) bool { return false }
func (*emptyIterator) Next() bool       { return false }
func (*emptyIterator) Prev() bool       { return false }
func (*emptyIterator) Valid() bool      { return false }
func (*emptyIterator) Key() []byte      { return nil }
func (*emptyIterator) Value() []byte    { return nil }

func (i *emptyIterator) Error() error {
	if i.released {
		return ErrIterReleased
	}
	return i.err
}

func (i *emptyIterator) Release() {
	i.released = true
}
