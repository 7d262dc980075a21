// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package leveldb

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/btcsuite/btcscript/database/engine"
)

const (
	// DbType is the name the driver is registered under.
	DbType = "leveldb"
)

// NewDB opens the leveldb database at dbPath.  When create is set the
// database must not exist yet.
func NewDB(dbPath string, create bool) (engine.Engine, error) {
	opts := opt.Options{
		ErrorIfExist:   create,
		ErrorIfMissing: !create,
		Strict:         opt.DefaultStrict,
		Compression:    opt.NoCompression,
		Filter:         filter.NewBloomFilter(10),
	}
	ldb, err := leveldb.OpenFile(dbPath, &opts)
	if err != nil {
		return nil, fmt.Errorf("unable to open leveldb at %s: %w",
			dbPath, err)
	}
	return &DB{DB: ldb}, nil
}

// DB is an engine.Engine backed by goleveldb.
type DB struct {
	*leveldb.DB
}

// Transaction opens a leveldb transaction.  Only one transaction can be open
// at a time; opening another one blocks until it is committed or discarded.
func (d *DB) Transaction() (engine.Transaction, error) {
	tx, err := d.DB.OpenTransaction()
	if err != nil {
		return nil, err
	}
	return NewTransaction(tx), nil
}

// Snapshot returns a snapshot of the current state of the database.
func (d *DB) Snapshot() (engine.Snapshot, error) {
	snapshot, err := d.DB.GetSnapshot()
	if err != nil {
		return nil, err
	}
	return NewSnapshot(snapshot), nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.DB.Close()
}

func init() {
	driver := engine.Driver{
		DbType: DbType,
		Create: func(dbPath string) (engine.Engine, error) {
			return NewDB(dbPath, true)
		},
		Open: func(dbPath string) (engine.Engine, error) {
			return NewDB(dbPath, false)
		},
	}
	if err := engine.RegisterDriver(driver); err != nil {
		panic(fmt.Sprintf("Failed to register database driver '%s': %v",
			DbType, err))
	}
}
