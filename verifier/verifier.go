// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package verifier

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcscript/blockchain"
	"github.com/btcsuite/btcscript/database/engine"
	"github.com/btcsuite/btcscript/database/prevoutdb"
	blog "github.com/btcsuite/btcscript/internal/log"
	"github.com/btcsuite/btcscript/txscript"
	"github.com/btcsuite/btcscript/wire"
)

// Verifier checks transactions against the prevouts of its store and
// connects the ones that pass.
type Verifier struct {
	store     *prevoutdb.Store
	sigCache  *txscript.SigCache
	hashCache *txscript.HashCache
	flags     txscript.ScriptFlags
	csvActive bool
}

// openStore opens the prevout database of the configured type in the data
// directory, creating it when it does not exist yet.
func openStore(cfg *Config) (*prevoutdb.Store, error) {
	dbPath := filepath.Join(cfg.DataDir, "prevouts_"+cfg.DbType)

	var (
		db  engine.Engine
		err error
	)
	if _, statErr := os.Stat(dbPath); os.IsNotExist(statErr) {
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, err
		}
		log.Infof("Creating %s prevout database in %s", cfg.DbType,
			dbPath)
		db, err = engine.Create(cfg.DbType, dbPath)
	} else {
		log.Infof("Loading %s prevout database from %s", cfg.DbType,
			dbPath)
		db, err = engine.Open(cfg.DbType, dbPath)
	}
	if err != nil {
		return nil, err
	}

	return prevoutdb.New(db), nil
}

// New returns a verifier using the store, caches and script rules described
// by cfg.
func New(cfg *Config) (*Verifier, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to open prevout store: %w", err)
	}

	var hashCache *txscript.HashCache
	if cfg.HashCacheMaxSize > 0 {
		hashCache = txscript.NewHashCache(cfg.HashCacheMaxSize)
	}

	log.Infof("Verifying scripts with rules %v", cfg.scriptFlags)
	return &Verifier{
		store:     store,
		sigCache:  txscript.NewSigCache(cfg.SigCacheMaxSize),
		hashCache: hashCache,
		flags:     cfg.scriptFlags,
		csvActive: !cfg.NoSequenceLocks,
	}, nil
}

// Store returns the prevout store of the verifier.
func (v *Verifier) Store() *prevoutdb.Store {
	return v.store
}

// Close closes the prevout store.
func (v *Verifier) Close() error {
	return v.store.Close()
}

// checkContext runs every check of a non-coinbase transaction that does not
// execute scripts and returns its fee.  The prevouts must be populated.
func (v *Verifier) checkContext(tx *wire.MsgTx,
	ctx *txscript.HeightContext) (int64, error) {

	if err := blockchain.CheckTransactionFinality(tx, ctx); err != nil {
		return 0, err
	}
	fee, err := blockchain.CheckTransactionInputs(tx, ctx.Height)
	if err != nil {
		return 0, err
	}
	err = blockchain.CheckTransactionSequenceLocks(tx, ctx, v.csvActive)
	if err != nil {
		return 0, err
	}
	return fee, nil
}

// CheckTransaction validates tx as if it was included in a block at ctx,
// spending outputs of the store, and returns its fee.  The prevouts of the
// inputs are populated from the store.
func (v *Verifier) CheckTransaction(tx *wire.MsgTx,
	ctx *txscript.HeightContext) (int64, error) {

	if err := blockchain.CheckTransactionSanity(tx); err != nil {
		return 0, err
	}
	if tx.IsCoinBase() {
		return 0, nil
	}

	if err := blockchain.PopulatePrevouts(tx, v.store); err != nil {
		return 0, err
	}
	fee, err := v.checkContext(tx, ctx)
	if err != nil {
		return 0, err
	}

	err = blockchain.ValidateTransactionScripts(tx, ctx, v.flags,
		v.sigCache, v.hashCache)
	if err != nil {
		return 0, err
	}

	log.Debugf("Verified transaction %v (%d %s, fee %d)", tx.TxHash(),
		len(tx.TxIn), blog.PickNoun(uint64(len(tx.TxIn)), "input",
			"inputs"), fee)
	return fee, nil
}

// ConnectTransaction validates tx like CheckTransaction and then replaces
// the outputs it spends with its own in the store.
func (v *Verifier) ConnectTransaction(tx *wire.MsgTx,
	ctx *txscript.HeightContext) (int64, error) {

	fee, err := v.CheckTransaction(tx, ctx)
	if err != nil {
		return 0, err
	}
	err = v.store.ConnectTransaction(tx, ctx.Height, ctx.MedianTimePast)
	if err != nil {
		return 0, err
	}
	return fee, nil
}

// blockView is a prevout fetcher that overlays the outputs created and spent
// by the transactions of a block on the store.
type blockView struct {
	store *prevoutdb.Store
	added blockchain.PrevoutMap
	spent map[wire.OutPoint]struct{}
}

// FetchPrevout returns the prevout of op as seen after the transactions
// applied to the view so far.
//
// This is part of the blockchain.PrevoutFetcher interface.
func (view *blockView) FetchPrevout(op wire.OutPoint) (*wire.Prevout, error) {
	if _, ok := view.spent[op]; ok {
		return nil, nil
	}
	if prevout, ok := view.added[op]; ok {
		return prevout, nil
	}
	return view.store.FetchPrevout(op)
}

// connect marks the outputs spent by tx and adds its outputs.
func (view *blockView) connect(tx *wire.MsgTx, ctx *txscript.HeightContext) {
	if !tx.IsCoinBase() {
		for _, txIn := range tx.TxIn {
			view.spent[txIn.PreviousOutPoint] = struct{}{}
		}
	}
	view.added.AddTxOuts(tx, ctx.Height, ctx.MedianTimePast)
}

// ConnectBlock validates the transactions of a block at ctx in order and
// connects all of them to the store as a single update.  Transactions may
// spend the outputs of earlier transactions of the block.  The scripts of
// every transaction are validated together.  It returns the total fees.
func (v *Verifier) ConnectBlock(txs []*wire.MsgTx,
	ctx *txscript.HeightContext) (int64, error) {

	view := &blockView{
		store: v.store,
		added: make(blockchain.PrevoutMap),
		spent: make(map[wire.OutPoint]struct{}),
	}

	var totalFees int64
	for _, tx := range txs {
		if err := blockchain.CheckTransactionSanity(tx); err != nil {
			return 0, err
		}
		if !tx.IsCoinBase() {
			err := blockchain.PopulatePrevouts(tx, view)
			if err != nil {
				return 0, err
			}
			fee, err := v.checkContext(tx, ctx)
			if err != nil {
				return 0, err
			}
			totalFees += fee
		}
		view.connect(tx, ctx)
	}

	err := blockchain.ValidateBlockScripts(txs, ctx, v.flags, v.sigCache,
		v.hashCache)
	if err != nil {
		return 0, err
	}

	err = v.store.ConnectTransactions(txs, ctx.Height, ctx.MedianTimePast)
	if err != nil {
		return 0, err
	}

	log.Infof("Connected %d %s at height %d", len(txs),
		blog.PickNoun(uint64(len(txs)), "transaction", "transactions"),
		ctx.Height)
	return totalFees, nil
}
