// Copyright (c) 2017-2018 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"math"

	"github.com/btcsuite/btcscript/txscript"
	"github.com/btcsuite/btcscript/wire"
)

const (
	// UnminedHeight is the height used for the prevouts of outputs which are
	// not yet included in a block, such as those created by other
	// transactions of the same package.
	UnminedHeight = math.MaxInt32
)

// SequenceLock represents the converted relative lock-time in seconds, and
// absolute block-height for a transaction input's relative lock-times.
// According to SequenceLock, after the referenced input has been confirmed
// within a block, a transaction spending that input can be included into a
// block either after 'seconds' (according to past median time), or once the
// 'BlockHeight' has been reached.  Each field may be -1 if none of the input
// sequence numbers require a specific relative lock time for the respective
// type.
type SequenceLock struct {
	Seconds     int64
	BlockHeight int32
}

// CalcSequenceLock computes the relative lock-times for the passed transaction
// from the point of view of the block described by ctx.  The prevouts of the
// inputs must be populated.  Inputs whose prevout is at UnminedHeight are
// treated as if they were included in that block.
//
// Sequence locks are only enforced when csvActive is set and the transaction
// version is at least 2.  Coinbase transactions are never locked.
func CalcSequenceLock(tx *wire.MsgTx, ctx *txscript.HeightContext,
	csvActive bool) (*SequenceLock, error) {

	// A value of -1 for each relative lock type represents a relative time
	// lock value that will allow a transaction to be included in a block
	// at any given height or time.
	sequenceLock := &SequenceLock{Seconds: -1, BlockHeight: -1}

	// Sequence locks don't apply to coinbase transactions.  Therefore, we
	// return sequence lock values of -1 indicating that this transaction
	// can be included within a block at any given height or time.
	enforce := csvActive && uint32(tx.Version) >= 2
	if !enforce || tx.IsCoinBase() {
		return sequenceLock, nil
	}

	for txInIndex, txIn := range tx.TxIn {
		// If the input has the disable flag set, then its relative
		// lock-time doesn't apply.
		sequenceNum := txIn.Sequence
		if sequenceNum&wire.SequenceLockTimeDisabled != 0 {
			continue
		}

		prevout := txIn.Prevout
		if prevout == nil {
			str := fmt.Sprintf("output %v referenced from "+
				"transaction %s:%d either does not exist or "+
				"has already been spent", txIn.PreviousOutPoint,
				tx.TxHash(), txInIndex)
			return sequenceLock, ruleError(ErrMissingTxOut, str)
		}

		// If the input height is set to the unmined height, this
		// indicates that the input was created by a transaction of the
		// block being validated, so use that block's position instead.
		inputHeight := prevout.Height
		inputTime := prevout.MedianTimePast
		if inputHeight == UnminedHeight {
			inputHeight = ctx.Height
			inputTime = ctx.MedianTimePast
		}

		// Given a sequence number, we apply the relative time lock
		// mask in order to obtain the time lock delta required before
		// this input can be spent.
		relativeLock := int64(sequenceNum & wire.SequenceLockTimeMask)

		switch {
		case sequenceNum&wire.SequenceLockTimeIsSeconds != 0:
			// This input requires a relative time lock expressed
			// in seconds before it can be spent.  Time based locks
			// are relative to the past median time of the block
			// prior to the one which included the spent output.
			// Since time based relative locks have a granularity
			// associated with them, shift left accordingly and
			// subtract one to maintain the original lock time
			// semantics.
			timeLockSeconds := (relativeLock << wire.SequenceLockTimeGranularity) - 1
			timeLock := inputTime + timeLockSeconds
			if timeLock > sequenceLock.Seconds {
				sequenceLock.Seconds = timeLock
			}
		default:
			// The relative lock-time for this input is expressed
			// in blocks so we calculate the relative offset from
			// the input's height as its converted absolute
			// lock-time.  We subtract one from the relative lock in
			// order to maintain the original lockTime semantics.
			blockHeight := inputHeight + int32(relativeLock-1)
			if blockHeight > sequenceLock.BlockHeight {
				sequenceLock.BlockHeight = blockHeight
			}
		}
	}

	return sequenceLock, nil
}

// SequenceLockActive determines if a transaction's sequence locks have been
// met, meaning that all the inputs of a given transaction have reached a
// height or time sufficient for their relative lock-time maturity.
func SequenceLockActive(sequenceLock *SequenceLock, blockHeight int32,
	medianTimePast int64) bool {

	// If either the seconds, or height relative-lock time has not yet
	// reached, then the transaction is not yet mature according to its
	// sequence locks.
	if sequenceLock.Seconds >= medianTimePast ||
		sequenceLock.BlockHeight >= blockHeight {
		return false
	}

	return true
}

// LockTimeToSequence converts the passed relative locktime to a sequence
// number in accordance to BIP-68.
func LockTimeToSequence(isSeconds bool, locktime uint32) uint32 {
	// If we're expressing the relative lock time in blocks, then the
	// corresponding sequence number is simply the desired input age.
	if !isSeconds {
		return locktime
	}

	// Set the 22nd bit which indicates the lock time is in seconds, then
	// shift the locktime over by 9 since the time granularity is in
	// 512-second intervals (2^9).  This results in a max lock-time of
	// 33,554,431 seconds, or 1.06 years.
	return wire.SequenceLockTimeIsSeconds |
		locktime>>wire.SequenceLockTimeGranularity
}
