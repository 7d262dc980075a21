// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pebbledb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/btcsuite/btcscript/database/engine"
)

func TestSuitePebbleDB(t *testing.T) {
	engine.TestSuiteEngine(t, func(t *testing.T) engine.Engine {
		dbPath := filepath.Join(t.TempDir(), "pebbledb-testsuite")

		pebbledb, err := NewDB(dbPath, true, 0, 0)
		require.NoErrorf(t, err, "failed to create pebbledb")
		return pebbledb
	})
}

// TestDriver ensures the driver is registered and honors the create and open
// semantics.
func TestDriver(t *testing.T) {
	require.Contains(t, engine.SupportedDrivers(), DbType)

	dbPath := filepath.Join(t.TempDir(), "pebble-driver")
	_, err := engine.Open(DbType, dbPath)
	require.Error(t, err, "opened a missing database")

	db, err := engine.Create(DbType, dbPath)
	require.NoError(t, err)

	tx, err := db.Transaction()
	require.NoError(t, err)
	require.NoError(t, tx.Put([]byte("key"), []byte("value")))
	require.NoError(t, tx.Commit())
	tx.Discard()
	require.ErrorIs(t, tx.Commit(), ErrTxClosed)
	require.NoError(t, db.Close())

	_, err = engine.Create(DbType, dbPath)
	require.Error(t, err, "created an existing database")

	db, err = engine.Open(DbType, dbPath)
	require.NoError(t, err)

	snapshot, err := db.Snapshot()
	require.NoError(t, err)
	value, err := snapshot.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), value)

	snapshot.Release()
	iter := snapshot.NewIterator(&engine.Range{})
	require.False(t, iter.Next())
	require.ErrorIs(t, iter.Error(), ErrSnapshotReleased)
	iter.Release()

	require.NoError(t, db.Close())
	require.ErrorIs(t, db.Close(), ErrDbClosed)
}

// TestTransactionAndIteratorRelease ensures a discarded batch is never
// applied and rejects writes, and a released iterator reports it.
func TestTransactionAndIteratorRelease(t *testing.T) {
	db, err := NewDB(filepath.Join(t.TempDir(), "pebble-tx"), true, 0, 0)
	require.NoError(t, err)
	defer db.Close()

	tx, err := db.Transaction()
	require.NoError(t, err)
	require.NoError(t, tx.Put([]byte("a"), []byte("1")))
	require.NoError(t, tx.Put([]byte("b"), []byte("2")))
	require.NoError(t, tx.Commit())

	tx, err = db.Transaction()
	require.NoError(t, err)
	require.NoError(t, tx.Delete([]byte("a")))
	tx.Discard()
	require.ErrorIs(t, tx.Put([]byte("c"), nil), ErrTxClosed)
	require.ErrorIs(t, tx.Delete([]byte("b")), ErrTxClosed)

	snapshot, err := db.Snapshot()
	require.NoError(t, err)
	defer snapshot.Release()

	iter := snapshot.NewIterator(&engine.Range{})
	var keys []string
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	require.Equal(t, []string{"a", "b"}, keys)
	require.Nil(t, iter.Key())
	require.Nil(t, iter.Value())
	require.NoError(t, iter.Error())

	iter.Release()
	require.ErrorIs(t, iter.Error(), engine.ErrIterReleased)
}
