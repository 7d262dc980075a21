// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSuiteEngine runs the behavior every Engine implementation must provide
// against engines returned by newEngine.  Each call to newEngine must return
// a new, empty engine.
func TestSuiteEngine(t *testing.T, newEngine func(t *testing.T) Engine) {
	t.Run("TransactionSnapshot", func(t *testing.T) {
		engine := newEngine(t)
		defer engine.Close()

		tx, err := engine.Transaction()
		require.NoError(t, err, "failed to create transaction")

		key := []byte("key1")
		value := []byte("value1")
		require.NoError(t, tx.Put(key, value))

		// Uncommitted writes are not visible.
		snapshot, err := engine.Snapshot()
		require.NoError(t, err, "failed to create snapshot")

		has, err := snapshot.Has(key)
		require.NoError(t, err)
		require.False(t, has, "uncommitted key found in snapshot")

		gotValue, err := snapshot.Get(key)
		require.ErrorIs(t, err, ErrNotFound)
		require.Nil(t, gotValue)

		require.NoError(t, tx.Commit(), "failed to commit transaction")
		tx.Discard()

		// Snapshots are not affected by later commits.
		has, err = snapshot.Has(key)
		require.NoError(t, err)
		require.False(t, has, "snapshot observed a later commit")
		snapshot.Release()

		snapshot, err = engine.Snapshot()
		require.NoError(t, err, "failed to create snapshot")
		gotValue, err = snapshot.Get(key)
		require.NoError(t, err)
		require.Equal(t, value, gotValue)

		// The returned value is a copy.
		gotValue[0] ^= 0xff
		gotValue, err = snapshot.Get(key)
		require.NoError(t, err)
		require.Equal(t, value, gotValue)
		snapshot.Release()
	})

	t.Run("TransactionDelete", func(t *testing.T) {
		engine := newEngine(t)
		defer engine.Close()

		tx, err := engine.Transaction()
		require.NoError(t, err)
		require.NoError(t, tx.Put([]byte("a"), []byte("1")))
		require.NoError(t, tx.Put([]byte("b"), []byte("2")))
		require.NoError(t, tx.Commit())

		tx, err = engine.Transaction()
		require.NoError(t, err)
		require.NoError(t, tx.Delete([]byte("a")))
		require.NoError(t, tx.Delete([]byte("missing")))
		require.NoError(t, tx.Commit())

		// Discarded writes are never applied.
		tx, err = engine.Transaction()
		require.NoError(t, err)
		require.NoError(t, tx.Delete([]byte("b")))
		require.NoError(t, tx.Put([]byte("c"), []byte("3")))
		tx.Discard()

		snapshot, err := engine.Snapshot()
		require.NoError(t, err)
		defer snapshot.Release()

		for key, want := range map[string]bool{"a": false, "b": true,
			"c": false} {

			has, err := snapshot.Has([]byte(key))
			require.NoError(t, err)
			require.Equal(t, want, has, "key %s", key)
		}
		_, err = snapshot.Get([]byte("a"))
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("TransactionIterator", func(t *testing.T) {
		for _, test := range []struct {
			kvs       map[string]string // random order of key-value pairs
			ranges    *Range
			expectkvs [][2]string
		}{
			{
				kvs:       map[string]string{"key1": "value1", "key2": "value2", "key3": "value3"},
				ranges:    &Range{Start: []byte("key0"), Limit: []byte("key1")},
				expectkvs: nil,
			},
			{
				kvs:       map[string]string{"key1": "value1", "key2": "value2", "key3": "value3"},
				ranges:    &Range{Start: []byte("key0"), Limit: []byte("key2")},
				expectkvs: [][2]string{{"key1", "value1"}},
			},
			{
				kvs:       map[string]string{"key1": "value1", "key2": "value2", "key3": "value3"},
				ranges:    &Range{Start: []byte("key1"), Limit: []byte("key3")},
				expectkvs: [][2]string{{"key1", "value1"}, {"key2", "value2"}},
			},
			{
				kvs:       map[string]string{"key1": "value1", "key2": "value2", "key3": "value3"},
				ranges:    &Range{Start: []byte("key10"), Limit: []byte("key30")},
				expectkvs: [][2]string{{"key2", "value2"}, {"key3", "value3"}},
			},
			{
				kvs:       map[string]string{"key1": "value1", "key2": "value2", "key3": "value3"},
				ranges:    &Range{Start: []byte("key2"), Limit: []byte("key2")},
				expectkvs: nil,
			},
			{
				kvs:       map[string]string{"key10": "value10", "key11": "value11", "key20": "value20", "key21": "value21"},
				ranges:    BytesPrefix([]byte("key1")),
				expectkvs: [][2]string{{"key10", "value10"}, {"key11", "value11"}},
			},
		} {
			engine := newEngine(t)

			tx, err := engine.Transaction()
			require.NoError(t, err, "failed to create transaction")
			for k, v := range test.kvs {
				err = tx.Put([]byte(k), []byte(v))
				require.NoError(t, err, "failed to put data")
			}
			require.NoError(t, tx.Commit(), "failed to commit")

			snapshot, err := engine.Snapshot()
			require.NoError(t, err, "failed to create snapshot")

			iter := snapshot.NewIterator(test.ranges)
			var idx int
			for iter.Next() {
				if idx >= len(test.expectkvs) {
					require.FailNowf(t, "unexpected key-value pair",
						"key: %s, value: %s", iter.Key(),
						iter.Value())
				}

				require.Equal(t, []byte(test.expectkvs[idx][0]), iter.Key())
				require.Equal(t, []byte(test.expectkvs[idx][1]), iter.Value())
				idx++
			}
			require.Equal(t, len(test.expectkvs), idx, "pair count mismatch")
			require.NoError(t, iter.Error())

			// Walking backwards visits the same pairs.
			if len(test.expectkvs) > 0 {
				require.True(t, iter.Last())
				for i := len(test.expectkvs) - 1; i >= 0; i-- {
					require.True(t, iter.Valid())
					require.Equal(t, []byte(test.expectkvs[i][0]), iter.Key())
					iter.Prev()
				}
				require.False(t, iter.Valid())

				require.True(t, iter.Seek([]byte(test.expectkvs[0][0])))
				require.Equal(t, []byte(test.expectkvs[0][0]), iter.Key())
				require.True(t, iter.First())
				require.Equal(t, []byte(test.expectkvs[0][0]), iter.Key())
			}

			iter.Release()
			snapshot.Release()
			require.NoError(t, engine.Close())
		}
	})

	t.Run("DbClose", func(t *testing.T) {
		engine := newEngine(t)

		transaction, err := engine.Transaction()
		require.NoError(t, err, "failed to create transaction")

		transaction.Discard()
		transaction.Discard() // multiple calls to discard should be safe
		err = transaction.Commit()
		require.Error(t, err, "committed a discarded transaction")

		snapshot, err := engine.Snapshot()
		require.NoError(t, err, "failed to create snapshot")

		iterator := snapshot.NewIterator(&Range{})
		require.NoError(t, iterator.Error(), "failed to create iterator")
		iterator.Release()
		iterator.Release() // multiple calls to release should be safe

		snapshot.Release()
		snapshot.Release() // multiple calls to release should be safe
		_, err = snapshot.Get([]byte("key"))
		require.Error(t, err, "read from a released snapshot")

		require.NoError(t, engine.Close(), "failed to close engine")
		require.Error(t, engine.Close(), "closed a closed engine")

		_, err = engine.Transaction()
		require.Error(t, err, "created a transaction on a closed engine")

		_, err = engine.Snapshot()
		require.Error(t, err, "created a snapshot on a closed engine")
	})
}
