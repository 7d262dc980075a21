// Copyright (c) 2013-2022 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/btcsuite/btcscript/wire"
)

// hexToBytes converts the passed hex string into bytes and will panic if there
// is an error.  This is only provided for the hard-coded constants so errors in
// the source code can be detected.  It will only (and must only) be called with
// hard-coded values.
func hexToBytes(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic("invalid hex in source file: " + s)
	}
	return b
}

var (
	shortFormOnce sync.Once
	shortFormOps  map[string]byte
)

// parseShortForm parses a string as used in the script test vectors into a
// script.  Opcodes may be written with or without the OP_ prefix, plain
// numbers are pushed as script numbers, 0x prefixed hex is copied raw and
// single quoted text is pushed as data.
//
// For example, "DUP HASH160 0x14 0x<20 bytes> EQUALVERIFY CHECKSIG".
func parseShortForm(script string) ([]byte, error) {
	shortFormOnce.Do(func() {
		shortFormOps = make(map[string]byte)
		for name, code := range OpcodeByName {
			if strings.Contains(name, "OP_UNKNOWN") {
				continue
			}
			shortFormOps[name] = code
			shortFormOps[strings.TrimPrefix(name, "OP_")] = code
		}
	})

	var buf bytes.Buffer
	for _, tok := range strings.Fields(script) {
		if num, err := strconv.ParseInt(tok, 10, 64); err == nil {
			pushed, err := NewScriptBuilder().AddInt64(num).Script()
			if err != nil {
				return nil, err
			}
			buf.Write(pushed)
			continue
		}

		if len(tok) > 2 && strings.HasPrefix(tok, "0x") {
			raw, err := hex.DecodeString(tok[2:])
			if err != nil {
				return nil, fmt.Errorf("bad hex token %q: %w", tok, err)
			}
			buf.Write(raw)
			continue
		}

		if len(tok) >= 2 && tok[0] == '\'' && tok[len(tok)-1] == '\'' {
			buf.Write(serializePush([]byte(tok[1 : len(tok)-1])))
			continue
		}

		code, ok := shortFormOps[tok]
		if !ok {
			return nil, fmt.Errorf("bad token %q", tok)
		}
		buf.WriteByte(code)
	}
	return buf.Bytes(), nil
}

// mustParseShortForm parses the passed short form script and fails the test
// when it is malformed.
func mustParseShortForm(t *testing.T, script string) []byte {
	t.Helper()

	s, err := parseShortForm(script)
	require.NoError(t, err, "invalid short form %q", script)
	return s
}

// testKey returns a deterministic private key derived from the passed seed.
func testKey(seed byte) *btcec.PrivateKey {
	key, _ := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{seed}, 32))
	return key
}

// newSpendTx returns a version 2 transaction with a single input spending an
// output of the passed amount paying to pkScript.  The spent output is
// attached to the input as its prevout.
func newSpendTx(sigScript []byte, witness wire.TxWitness, pkScript []byte,
	amount int64) *wire.MsgTx {

	fundingHash := chainhash.DoubleHashH([]byte("funding transaction"))

	tx := wire.NewMsgTx(2)
	txIn := wire.NewTxIn(wire.NewOutPoint(&fundingHash, 0), sigScript, witness)
	txIn.Prevout = &wire.Prevout{
		TxOut: wire.TxOut{Value: amount, PkScript: pkScript},
	}
	tx.AddTxIn(txIn)
	tx.AddTxOut(wire.NewTxOut(amount-1000, []byte{OP_TRUE}))
	return tx
}

// decodeTx decodes a hex encoded, possibly witness bearing, transaction.
func decodeTx(t *testing.T, txHex string) *wire.MsgTx {
	t.Helper()

	var tx wire.MsgTx
	err := tx.Deserialize(bytes.NewReader(hexToBytes(txHex)))
	require.NoError(t, err)
	return &tx
}

// requireErrorCode fails the test unless err carries the passed code, or is
// nil when the code is -1.
func requireErrorCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()

	if code == noError {
		require.NoError(t, err)
		return
	}
	require.Error(t, err)
	require.Truef(t, IsErrorCode(err, code), "want %v, got %v (%v)",
		code, errorCodeOf(err), err)
}

// noError marks a test case that is expected to succeed.
const noError ErrorCode = -1

// errorCodeOf returns the code carried by err, if any.
func errorCodeOf(err error) ErrorCode {
	for code := ErrorCode(0); code < numErrorCodes; code++ {
		if IsErrorCode(err, code) {
			return code
		}
	}
	return noError
}
