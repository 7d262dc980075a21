// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"runtime"
	"time"

	"github.com/btcsuite/btcscript/txscript"
	"github.com/btcsuite/btcscript/wire"
)

// txValidateItem holds a transaction along with which input to validate.
type txValidateItem struct {
	txInIndex int
	txIn      *wire.TxIn
	tx        *wire.MsgTx
	sigHashes *txscript.TxSigHashes
}

// txValidator provides a type which asynchronously validates transaction
// inputs.  It provides several channels for communication and a processing
// function that is intended to be in run multiple goroutines.
type txValidator struct {
	validateChan chan *txValidateItem
	quitChan     chan struct{}
	resultChan   chan error
	ctx          *txscript.HeightContext
	flags        txscript.ScriptFlags
	sigCache     *txscript.SigCache
}

// sendResult sends the result of a script pair validation on the internal
// result channel while respecting the quit channel.  This allows orderly
// shutdown when the validation process is aborted early due to a validation
// error in one of the other goroutines.
func (v *txValidator) sendResult(result error) {
	select {
	case v.resultChan <- result:
	case <-v.quitChan:
	}
}

// validateHandler consumes items to validate from the internal validate channel
// and returns the result of the validation on the internal result channel. It
// must be run as a goroutine.
func (v *txValidator) validateHandler() {
out:
	for {
		select {
		case txVI := <-v.validateChan:
			// Ensure the referenced input utxo is available.
			txIn := txVI.txIn
			if txIn.Prevout == nil {
				str := fmt.Sprintf("unable to find unspent "+
					"output %v referenced from "+
					"transaction %s:%d",
					txIn.PreviousOutPoint, txVI.tx.TxHash(),
					txVI.txInIndex)
				err := ruleError(ErrMissingTxOut, str)
				v.sendResult(err)
				break out
			}

			// Connect the input to the output it spends.
			witness := txIn.Witness
			sigScript := txIn.SignatureScript
			pkScript := txIn.Prevout.PkScript
			err := txscript.Connect(v.flags, v.ctx, txVI.tx,
				txVI.txInIndex,
				txscript.WithConnectSigCache(v.sigCache),
				txscript.WithConnectTxSigHashes(txVI.sigHashes))
			if err != nil {
				str := fmt.Sprintf("failed to validate input "+
					"%s:%d which references output %v - "+
					"%v (input witness %x, input script "+
					"bytes %x, prev output script bytes %x)",
					txVI.tx.TxHash(), txVI.txInIndex,
					txIn.PreviousOutPoint, err, witness,
					sigScript, pkScript)
				rerr := ruleError(ErrScriptValidation, str)
				rerr.Err = err
				v.sendResult(rerr)
				break out
			}

			// Validation succeeded.
			v.sendResult(nil)

		case <-v.quitChan:
			break out
		}
	}
}

// Validate validates the scripts for all of the passed transaction inputs using
// multiple goroutines.
func (v *txValidator) Validate(items []*txValidateItem) error {
	if len(items) == 0 {
		return nil
	}

	// Limit the number of goroutines to do script validation based on the
	// number of processor cores.  This helps ensure the system stays
	// reasonably responsive under heavy load.
	maxGoRoutines := runtime.NumCPU() * 3
	if maxGoRoutines <= 0 {
		maxGoRoutines = 1
	}
	if maxGoRoutines > len(items) {
		maxGoRoutines = len(items)
	}

	// Start up validation handlers that are used to asynchronously
	// validate each transaction input.
	for i := 0; i < maxGoRoutines; i++ {
		go v.validateHandler()
	}

	// Validate each of the inputs.  The quit channel is closed when any
	// errors occur so all processing goroutines exit regardless of which
	// input had the validation error.
	numInputs := len(items)
	currentItem := 0
	processedItems := 0
	for processedItems < numInputs {
		// Only send items while there are still items that need to
		// be processed.  The select statement will never select a nil
		// channel.
		var validateChan chan *txValidateItem
		var item *txValidateItem
		if currentItem < numInputs {
			validateChan = v.validateChan
			item = items[currentItem]
		}

		select {
		case validateChan <- item:
			currentItem++

		case err := <-v.resultChan:
			processedItems++
			if err != nil {
				close(v.quitChan)
				return err
			}
		}
	}

	close(v.quitChan)
	return nil
}

// newTxValidator returns a new instance of txValidator to be used for
// validating transaction scripts asynchronously.
func newTxValidator(ctx *txscript.HeightContext, flags txscript.ScriptFlags,
	sigCache *txscript.SigCache) *txValidator {

	return &txValidator{
		validateChan: make(chan *txValidateItem),
		quitChan:     make(chan struct{}),
		resultChan:   make(chan error),
		ctx:          ctx,
		sigCache:     sigCache,
		flags:        flags,
	}
}

// txSigHashes returns the sighash midstate of the passed transaction, reusing
// the entry of the hash cache when there is one.  The prevouts of the
// transaction must be populated.
func txSigHashes(tx *wire.MsgTx, hashCache *txscript.HashCache) *txscript.TxSigHashes {
	fetcher := txscript.NewTxPrevOutFetcher(tx)
	if hashCache == nil {
		return txscript.NewTxSigHashes(tx, fetcher)
	}

	txHash := tx.TxHash()
	cachedHashes, ok := hashCache.GetSigHashes(&txHash)
	if !ok {
		cachedHashes = hashCache.AddSigHashes(tx, fetcher)
	}
	return cachedHashes
}

// appendValidateItems appends an item for every input of the passed
// transaction.  Coinbase transactions spend nothing and are skipped.
func appendValidateItems(items []*txValidateItem, tx *wire.MsgTx,
	hashCache *txscript.HashCache) []*txValidateItem {

	if tx.IsCoinBase() {
		return items
	}

	// The sighash midstate is computed once up front and shared by every
	// input of the transaction.
	sigHashes := txSigHashes(tx, hashCache)
	for txInIdx, txIn := range tx.TxIn {
		items = append(items, &txValidateItem{
			txInIndex: txInIdx,
			txIn:      txIn,
			tx:        tx,
			sigHashes: sigHashes,
		})
	}
	return items
}

// ValidateTransactionScripts validates the scripts for the passed transaction
// using multiple goroutines.  The prevouts of its inputs must be populated.
// The first failing input is reported as a RuleError wrapping the script
// error.
func ValidateTransactionScripts(tx *wire.MsgTx, ctx *txscript.HeightContext,
	flags txscript.ScriptFlags, sigCache *txscript.SigCache,
	hashCache *txscript.HashCache) error {

	// Collect all of the transaction inputs and required information for
	// validation.
	txValItems := appendValidateItems(nil, tx, hashCache)

	// Validate all of the inputs.
	validator := newTxValidator(ctx, flags, sigCache)
	return validator.Validate(txValItems)
}

// ValidateBlockScripts executes and validates the scripts for all transactions
// of a block at the position described by ctx.  The inputs of every
// transaction are validated by a single pool of goroutines, and the hash
// cache entries of the transactions are purged once done.
func ValidateBlockScripts(txs []*wire.MsgTx, ctx *txscript.HeightContext,
	flags txscript.ScriptFlags, sigCache *txscript.SigCache,
	hashCache *txscript.HashCache) error {

	// Collect all of the transaction inputs and required information for
	// validation for all transactions in the block into a single slice.
	numInputs := 0
	for _, tx := range txs {
		numInputs += len(tx.TxIn)
	}
	txValItems := make([]*txValidateItem, 0, numInputs)
	for _, tx := range txs {
		txValItems = appendValidateItems(txValItems, tx, hashCache)
	}

	// Validate all of the inputs.
	validator := newTxValidator(ctx, flags, sigCache)
	start := time.Now()
	if err := validator.Validate(txValItems); err != nil {
		return err
	}
	elapsed := time.Since(start)

	log.Tracef("Scripts of %d transactions took %v to verify", len(txs),
		elapsed)

	// If the hash cache is populated, then we'll remove the entries of
	// the block's transactions as they're no longer needed.
	if hashCache != nil {
		for _, tx := range txs {
			if tx.IsCoinBase() {
				continue
			}
			txHash := tx.TxHash()
			hashCache.PurgeSigHashes(&txHash)
		}
	}

	return nil
}
