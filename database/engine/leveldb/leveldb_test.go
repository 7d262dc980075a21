// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package leveldb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/btcsuite/btcscript/database/engine"
)

func TestSuiteLevelDB(t *testing.T) {
	engine.TestSuiteEngine(t, func(t *testing.T) engine.Engine {
		dbPath := filepath.Join(t.TempDir(), "leveldb-testsuite")

		db, err := NewDB(dbPath, true)
		require.NoError(t, err, "failed to create leveldb")
		return db
	})
}

// TestDriver ensures the driver is registered and honors the create and open
// semantics.
func TestDriver(t *testing.T) {
	require.Contains(t, engine.SupportedDrivers(), DbType)

	dbPath := filepath.Join(t.TempDir(), "leveldb-driver")
	_, err := engine.Open(DbType, dbPath)
	require.Error(t, err, "opened a missing database")

	db, err := engine.Create(DbType, dbPath)
	require.NoError(t, err)

	tx, err := db.Transaction()
	require.NoError(t, err)
	require.NoError(t, tx.Put([]byte("key"), []byte("value")))
	require.NoError(t, tx.Commit())
	require.NoError(t, db.Close())

	_, err = engine.Create(DbType, dbPath)
	require.Error(t, err, "created an existing database")

	db, err = engine.Open(DbType, dbPath)
	require.NoError(t, err)
	defer db.Close()

	snapshot, err := db.Snapshot()
	require.NoError(t, err)
	defer snapshot.Release()
	value, err := snapshot.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), value)

	_, err = engine.Open("bogus", dbPath)
	require.ErrorIs(t, err, engine.ErrDbUnknownType)
}

// TestTransactionLifecycle ensures a committed update is visible, a
// discarded one is not, and a closed transaction rejects further use.
func TestTransactionLifecycle(t *testing.T) {
	db, err := NewDB(filepath.Join(t.TempDir(), "leveldb-tx"), true)
	require.NoError(t, err)
	defer db.Close()

	tx, err := db.Transaction()
	require.NoError(t, err)
	require.NoError(t, tx.Put([]byte("spent"), []byte("txout")))
	require.NoError(t, tx.Put([]byte("kept"), []byte("txout")))
	require.NoError(t, tx.Commit())
	tx.Discard()
	require.Error(t, tx.Commit(), "committed twice")
	require.Error(t, tx.Put([]byte("late"), nil), "wrote after commit")

	tx, err = db.Transaction()
	require.NoError(t, err)
	require.NoError(t, tx.Delete([]byte("spent")))
	require.NoError(t, tx.Put([]byte("added"), []byte("txout")))
	tx.Discard()
	require.Error(t, tx.Commit(), "committed a discarded transaction")

	snapshot, err := db.Snapshot()
	require.NoError(t, err)
	defer snapshot.Release()

	_, err = snapshot.Get([]byte("spent"))
	require.NoError(t, err)
	_, err = snapshot.Get([]byte("added"))
	require.ErrorIs(t, err, engine.ErrNotFound)
}
