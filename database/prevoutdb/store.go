// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package prevoutdb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/btcsuite/btcscript/blockchain"
	"github.com/btcsuite/btcscript/database/engine"
	"github.com/btcsuite/btcscript/wire"
)

var (
	// ErrNotFound is returned by Fetch when no prevout is stored for an
	// outpoint.
	ErrNotFound = errors.New("prevoutdb: prevout not found")

	// prevoutBucketName is the key prefix of every stored prevout.
	prevoutBucketName = []byte("prevoutv1")
)

const (
	// prevoutMetaSize is the size of the metadata following the
	// serialized output: height, median time past and the flags byte.
	prevoutMetaSize = 4 + 8 + 1

	// prevoutFlagCoinbase is set in the flags byte of coinbase outputs.
	prevoutFlagCoinbase = 0x01
)

// Store persists the outputs available for spending together with the chain
// metadata of the blocks that confirmed them.  It implements
// blockchain.PrevoutFetcher.
type Store struct {
	db engine.Engine
}

// Ensure Store implements the blockchain.PrevoutFetcher interface.
var _ blockchain.PrevoutFetcher = (*Store)(nil)

// New returns a store on top of the passed engine.  The store takes
// ownership of the engine and closes it on Close.
func New(db engine.Engine) *Store {
	return &Store{db: db}
}

// Close closes the underlying engine.
func (s *Store) Close() error {
	return s.db.Close()
}

// prevoutKey returns the database key of an outpoint: the bucket name
// followed by the transaction hash and the little-endian output index.
func prevoutKey(op wire.OutPoint) []byte {
	key := make([]byte, len(prevoutBucketName)+chainhash.HashSize+4)
	n := copy(key, prevoutBucketName)
	n += copy(key[n:], op.Hash[:])
	binary.LittleEndian.PutUint32(key[n:], op.Index)
	return key
}

// serializePrevout encodes the output in the wire format followed by the
// metadata of the block that confirmed it.
func serializePrevout(prevout *wire.Prevout) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(prevout.TxOut.SerializeSize() + prevoutMetaSize)
	if err := wire.WriteTxOut(&buf, &prevout.TxOut); err != nil {
		return nil, err
	}

	var meta [prevoutMetaSize]byte
	binary.LittleEndian.PutUint32(meta[0:4], uint32(prevout.Height))
	binary.LittleEndian.PutUint64(meta[4:12], uint64(prevout.MedianTimePast))
	if prevout.Coinbase {
		meta[12] |= prevoutFlagCoinbase
	}
	buf.Write(meta[:])
	return buf.Bytes(), nil
}

// deserializePrevout decodes a value written by serializePrevout.
func deserializePrevout(serialized []byte) (*wire.Prevout, error) {
	r := bytes.NewReader(serialized)

	var prevout wire.Prevout
	if err := wire.ReadTxOut(r, &prevout.TxOut); err != nil {
		return nil, fmt.Errorf("unable to decode output: %w", err)
	}

	var meta [prevoutMetaSize]byte
	if n, _ := r.Read(meta[:]); n != prevoutMetaSize || r.Len() != 0 {
		return nil, fmt.Errorf("malformed prevout metadata: %d bytes "+
			"remaining", r.Len()+n)
	}
	prevout.Height = int32(binary.LittleEndian.Uint32(meta[0:4]))
	prevout.MedianTimePast = int64(binary.LittleEndian.Uint64(meta[4:12]))
	prevout.Coinbase = meta[12]&prevoutFlagCoinbase != 0
	return &prevout, nil
}

// update runs fn inside a transaction and commits it when fn succeeds.
func (s *Store) update(fn func(tx engine.Transaction) error) error {
	tx, err := s.db.Transaction()
	if err != nil {
		return err
	}
	defer tx.Discard()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// putPrevout stores a single prevout as part of tx.
func putPrevout(tx engine.Transaction, op wire.OutPoint,
	prevout *wire.Prevout) error {

	serialized, err := serializePrevout(prevout)
	if err != nil {
		return err
	}
	return tx.Put(prevoutKey(op), serialized)
}

// addTxOuts stores every output of msgTx as part of tx.
func addTxOuts(tx engine.Transaction, msgTx *wire.MsgTx, height int32,
	medianTimePast int64) error {

	prevOut := wire.OutPoint{Hash: msgTx.TxHash()}
	isCoinbase := msgTx.IsCoinBase()
	for i, txOut := range msgTx.TxOut {
		prevOut.Index = uint32(i)
		err := putPrevout(tx, prevOut, &wire.Prevout{
			TxOut:          *txOut,
			Height:         height,
			MedianTimePast: medianTimePast,
			Coinbase:       isCoinbase,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Put stores the prevout spendable by op, replacing any existing one.
func (s *Store) Put(op wire.OutPoint, prevout *wire.Prevout) error {
	return s.update(func(tx engine.Transaction) error {
		return putPrevout(tx, op, prevout)
	})
}

// AddTxOuts stores every output of tx as spendable, recording the height and
// median time past of the block that confirmed it.
func (s *Store) AddTxOuts(tx *wire.MsgTx, height int32,
	medianTimePast int64) error {

	return s.update(func(dbTx engine.Transaction) error {
		return addTxOuts(dbTx, tx, height, medianTimePast)
	})
}

// Spend removes the prevout of op.  Removing an unknown outpoint is not an
// error.
func (s *Store) Spend(op wire.OutPoint) error {
	return s.update(func(tx engine.Transaction) error {
		return tx.Delete(prevoutKey(op))
	})
}

// connectTransaction removes the outputs spent by msgTx and stores its own
// outputs as part of tx.
func connectTransaction(tx engine.Transaction, msgTx *wire.MsgTx,
	height int32, medianTimePast int64) error {

	if !msgTx.IsCoinBase() {
		for _, txIn := range msgTx.TxIn {
			key := prevoutKey(txIn.PreviousOutPoint)
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
	}
	return addTxOuts(tx, msgTx, height, medianTimePast)
}

// ConnectTransaction atomically removes the outputs spent by tx and stores
// its own outputs.
func (s *Store) ConnectTransaction(tx *wire.MsgTx, height int32,
	medianTimePast int64) error {

	return s.ConnectTransactions([]*wire.MsgTx{tx}, height, medianTimePast)
}

// ConnectTransactions connects the passed transactions in order as a single
// atomic update.  Later transactions may spend the outputs of earlier ones.
func (s *Store) ConnectTransactions(txs []*wire.MsgTx, height int32,
	medianTimePast int64) error {

	var numInputs, numOutputs int
	err := s.update(func(dbTx engine.Transaction) error {
		for _, tx := range txs {
			err := connectTransaction(dbTx, tx, height,
				medianTimePast)
			if err != nil {
				return fmt.Errorf("unable to connect "+
					"transaction %v: %w", tx.TxHash(), err)
			}
			numInputs += len(tx.TxIn)
			numOutputs += len(tx.TxOut)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Debugf("Connected %d transactions at height %d (%d inputs, %d "+
		"outputs)", len(txs), height, numInputs, numOutputs)
	return nil
}

// Fetch returns the prevout spendable by op, or ErrNotFound.
func (s *Store) Fetch(op wire.OutPoint) (*wire.Prevout, error) {
	snapshot, err := s.db.Snapshot()
	if err != nil {
		return nil, err
	}
	defer snapshot.Release()

	serialized, err := snapshot.Get(prevoutKey(op))
	if errors.Is(err, engine.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	prevout, err := deserializePrevout(serialized)
	if err != nil {
		return nil, fmt.Errorf("corrupt prevout %v: %w", op, err)
	}
	return prevout, nil
}

// FetchPrevout returns the prevout spendable by op, or nil when there is
// none.
//
// This is part of the blockchain.PrevoutFetcher interface.
func (s *Store) FetchPrevout(op wire.OutPoint) (*wire.Prevout, error) {
	prevout, err := s.Fetch(op)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return prevout, err
}

// ForEach calls fn for every stored prevout in key order.  Iteration stops
// at the first error returned by fn.
func (s *Store) ForEach(fn func(op wire.OutPoint, prevout *wire.Prevout) error) error {
	snapshot, err := s.db.Snapshot()
	if err != nil {
		return err
	}
	defer snapshot.Release()

	iter := snapshot.NewIterator(engine.BytesPrefix(prevoutBucketName))
	defer iter.Release()

	for iter.Next() {
		key := iter.Key()[len(prevoutBucketName):]
		if len(key) != chainhash.HashSize+4 {
			return fmt.Errorf("malformed prevout key %x", iter.Key())
		}

		var op wire.OutPoint
		copy(op.Hash[:], key[:chainhash.HashSize])
		op.Index = binary.LittleEndian.Uint32(key[chainhash.HashSize:])

		prevout, err := deserializePrevout(iter.Value())
		if err != nil {
			return fmt.Errorf("corrupt prevout %v: %w", op, err)
		}
		if err := fn(op, prevout); err != nil {
			return err
		}
	}
	return iter.Error()
}
