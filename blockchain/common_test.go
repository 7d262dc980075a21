// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/btcsuite/btcscript/txscript"
	"github.com/btcsuite/btcscript/wire"
)

// spendKind identifies the kind of output spent by a test input.
type spendKind int

const (
	spendP2PKH spendKind = iota
	spendP2WPKH
	spendP2TR
)

const (
	// testOutputValue is the value of every funding output.
	testOutputValue = 100000

	// testFee is the fee paid by every test transaction.
	testFee = 1000

	// testPrevoutHeight and testPrevoutTime describe the block that
	// confirmed the funding outputs.
	testPrevoutHeight = 1000
	testPrevoutTime   = 1600000000
)

// testCtx is the chain position test transactions are validated at.
var testCtx = &txscript.HeightContext{
	Height:         testPrevoutHeight + 200,
	MedianTimePast: testPrevoutTime + 200*600,
}

// testKey returns a deterministic private key derived from the passed seed.
func testKey(seed byte) *btcec.PrivateKey {
	key, _ := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{seed}, 32))
	return key
}

// fundingOutPoint returns a distinct outpoint for the i-th funding output.
func fundingOutPoint(i int) wire.OutPoint {
	hash := chainhash.DoubleHashH([]byte{byte(i), 0xfd})
	return wire.OutPoint{Hash: hash, Index: uint32(i)}
}

// outputScript returns the output script of the given kind paying to key.
func outputScript(t testing.TB, kind spendKind, key *btcec.PrivateKey) []byte {
	t.Helper()

	pubKeyHash := btcutil.Hash160(key.PubKey().SerializeCompressed())

	var (
		pkScript []byte
		err      error
	)
	switch kind {
	case spendP2PKH:
		pkScript, err = txscript.PayToPubKeyHashScript(pubKeyHash)
	case spendP2WPKH:
		pkScript, err = txscript.PayToWitnessPubKeyHashScript(pubKeyHash)
	case spendP2TR:
		pkScript, err = txscript.PayToTaprootScript(
			txscript.ComputeTaprootKeyNoScript(key.PubKey()),
		)
	}
	require.NoError(t, err)
	return pkScript
}

// newTestTx returns an unsigned version 2 transaction with one input per
// passed kind, each spending a distinct funding output of testOutputValue,
// along with a map holding the funding outputs.  The prevouts of the inputs
// are not populated.
func newTestTx(t testing.TB, kinds ...spendKind) (*wire.MsgTx, PrevoutMap) {
	t.Helper()

	prevouts := make(PrevoutMap)
	tx := wire.NewMsgTx(2)
	for i, kind := range kinds {
		op := fundingOutPoint(i)
		prevouts[op] = &wire.Prevout{
			TxOut: wire.TxOut{
				Value:    testOutputValue,
				PkScript: outputScript(t, kind, testKey(byte(i+1))),
			},
			Height:         testPrevoutHeight,
			MedianTimePast: testPrevoutTime,
		}
		tx.AddTxIn(wire.NewTxIn(&op, nil, nil))
	}
	tx.AddTxOut(wire.NewTxOut(
		int64(len(kinds))*testOutputValue-testFee, []byte{txscript.OP_TRUE},
	))
	return tx, prevouts
}

// signTestTx signs every input of a transaction created by newTestTx.  The
// prevouts of the inputs must be populated.
func signTestTx(t testing.TB, tx *wire.MsgTx) {
	t.Helper()

	fetcher := txscript.NewTxPrevOutFetcher(tx)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)
	for i, txIn := range tx.TxIn {
		key := testKey(byte(i + 1))
		prevout := txIn.Prevout
		pkScript := prevout.PkScript

		switch txscript.GetScriptClass(pkScript) {
		case txscript.PubKeyHashTy:
			sigScript, err := txscript.SignatureScript(tx, i, pkScript,
				txscript.SigHashAll, key, true)
			require.NoError(t, err)
			txIn.SignatureScript = sigScript

		case txscript.WitnessV0PubKeyHashTy:
			scriptCode, err := txscript.PayToPubKeyHashScript(
				btcutil.Hash160(key.PubKey().SerializeCompressed()),
			)
			require.NoError(t, err)
			witness, err := txscript.WitnessSignature(tx, sigHashes, i,
				prevout.Value, scriptCode, txscript.SigHashAll, key,
				true)
			require.NoError(t, err)
			txIn.Witness = witness

		case txscript.WitnessV1TaprootTy:
			sig, err := txscript.RawTxInTaprootSignature(tx, sigHashes,
				i, fetcher, nil, txscript.SigHashDefault, key)
			require.NoError(t, err)
			txIn.Witness = wire.TxWitness{sig}

		default:
			t.Fatalf("unexpected output script %x", pkScript)
		}
	}
}

// newSignedTx returns a populated and fully signed transaction spending one
// output of each passed kind along with the funding outputs.
func newSignedTx(t testing.TB, kinds ...spendKind) (*wire.MsgTx, PrevoutMap) {
	t.Helper()

	tx, prevouts := newTestTx(t, kinds...)
	require.NoError(t, PopulatePrevouts(tx, prevouts))
	signTestTx(t, tx)
	return tx, prevouts
}

// newCoinbaseTx returns a coinbase transaction paying value to pkScript.
func newCoinbaseTx(value int64, pkScript []byte) *wire.MsgTx {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(
		wire.NewOutPoint(&chainhash.Hash{}, wire.MaxPrevOutIndex),
		[]byte{0x51, 0x51}, nil,
	))
	tx.AddTxOut(wire.NewTxOut(value, pkScript))
	return tx
}

// requireRuleError fails the test unless err is a rule error with the passed
// code.
func requireRuleError(t testing.TB, err error, code ErrorCode) {
	t.Helper()

	require.Error(t, err)
	require.Truef(t, IsErrorCode(err, code), "want %v, got %v", code, err)
}
