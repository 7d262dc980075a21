// Copyright (c) 2015-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/btcsuite/btcscript/wire"
)

// PrevoutFetcher provides the outputs spent by transaction inputs along with
// the chain metadata of the blocks that created them.
type PrevoutFetcher interface {
	// FetchPrevout returns the unspent output referenced by the passed
	// outpoint.  A nil prevout and error are returned when the output does
	// not exist or has already been spent.
	FetchPrevout(op wire.OutPoint) (*wire.Prevout, error)
}

// PrevoutMap is an in-memory PrevoutFetcher.
type PrevoutMap map[wire.OutPoint]*wire.Prevout

// FetchPrevout returns the prevout stored for the outpoint, if any.
//
// NOTE: This is part of the PrevoutFetcher interface.
func (m PrevoutMap) FetchPrevout(op wire.OutPoint) (*wire.Prevout, error) {
	return m[op], nil
}

// AddTxOuts adds every output of the passed transaction to the map as created
// at the passed height and median time past.
func (m PrevoutMap) AddTxOuts(tx *wire.MsgTx, height int32,
	medianTimePast int64) {

	txHash := tx.TxHash()
	isCoinBase := tx.IsCoinBase()
	for txOutIdx, txOut := range tx.TxOut {
		op := wire.OutPoint{Hash: txHash, Index: uint32(txOutIdx)}
		m[op] = &wire.Prevout{
			TxOut:          *txOut,
			Height:         height,
			MedianTimePast: medianTimePast,
			Coinbase:       isCoinBase,
		}
	}
}

// A compile-time assertion to ensure that PrevoutMap matches the
// PrevoutFetcher interface.
var _ PrevoutFetcher = PrevoutMap(nil)

// PopulatePrevouts attaches the prevout of every input of the passed
// transaction using the fetcher.  Coinbase transactions spend nothing and are
// left untouched.  A rule error with ErrMissingTxOut is returned for the first
// input whose output is unknown to the fetcher, in which case no input is
// modified.
func PopulatePrevouts(tx *wire.MsgTx, fetcher PrevoutFetcher) error {
	if tx.IsCoinBase() {
		return nil
	}

	prevouts := make([]*wire.Prevout, len(tx.TxIn))
	for txInIdx, txIn := range tx.TxIn {
		prevout, err := fetcher.FetchPrevout(txIn.PreviousOutPoint)
		if err != nil {
			return fmt.Errorf("unable to fetch prevout %v: %w",
				txIn.PreviousOutPoint, err)
		}
		if prevout == nil {
			str := fmt.Sprintf("output %v referenced from "+
				"transaction %s:%d either does not exist or "+
				"has already been spent", txIn.PreviousOutPoint,
				tx.TxHash(), txInIdx)
			return ruleError(ErrMissingTxOut, str)
		}
		prevouts[txInIdx] = prevout
	}

	for txInIdx, txIn := range tx.TxIn {
		txIn.Prevout = prevouts[txInIdx]
	}

	log.Tracef("Populated %d prevouts of transaction %v", len(prevouts),
		tx.TxHash())
	return nil
}
