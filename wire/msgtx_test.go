// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

// testTx returns a transaction with two inputs and two outputs.  The first
// input optionally carries witness data.
func testTx(withWitness bool) *MsgTx {
	tx := NewMsgTx(2)
	prevHash := chainhash.HashH([]byte("prev"))
	tx.AddTxIn(&TxIn{
		PreviousOutPoint: OutPoint{Hash: prevHash, Index: 1},
		SignatureScript:  []byte{0x51},
		Sequence:         0xfffffffe,
	})
	tx.AddTxIn(&TxIn{
		PreviousOutPoint: OutPoint{Hash: prevHash, Index: 7},
		Sequence:         MaxTxInSequenceNum,
	})
	tx.AddTxOut(NewTxOut(5000, []byte{0x76, 0xa9}))
	tx.AddTxOut(NewTxOut(0, []byte{0x6a}))
	tx.LockTime = 500
	if withWitness {
		tx.TxIn[0].Witness = TxWitness{{0x01, 0x02}, {}}
	}
	return tx
}

// TestTxSerializeRoundTrip ensures transactions survive an encode/decode
// cycle in both encodings.
func TestTxSerializeRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		witness bool
		enc     MessageEncoding
	}{
		{"legacy", false, BaseEncoding},
		{"legacy in witness encoding", false, WitnessEncoding},
		{"witness", true, WitnessEncoding},
	}

	for _, test := range tests {
		tx := testTx(test.witness)

		var buf bytes.Buffer
		require.NoError(t, tx.BtcEncode(&buf, test.enc), test.name)

		if test.witness {
			require.Equal(t, tx.SerializeSize(), buf.Len(), test.name)
			require.Equal(t, []byte{TxFlagMarker, WitnessFlag},
				buf.Bytes()[4:6], test.name)
		} else {
			require.Equal(t, tx.SerializeSizeStripped(), buf.Len(),
				test.name)
		}

		var decoded MsgTx
		err := decoded.BtcDecode(bytes.NewReader(buf.Bytes()), test.enc)
		require.NoError(t, err, test.name)
		require.Equal(t, tx.TxHash(), decoded.TxHash(), spew.Sdump(decoded))
		require.Equal(t, tx.WitnessHash(), decoded.WitnessHash(), test.name)
	}
}

// TestTxHashIgnoresWitness ensures the txid commits only to the stripped
// encoding while the wtxid covers the witness.
func TestTxHashIgnoresWitness(t *testing.T) {
	t.Parallel()

	stripped := testTx(false)
	witness := testTx(true)

	require.Equal(t, stripped.TxHash(), witness.TxHash())
	require.NotEqual(t, witness.TxHash(), witness.WitnessHash())
	require.Equal(t, stripped.TxHash(), stripped.WitnessHash())
}

// TestTxCopy ensures copies are deep except for the shared prevout.
func TestTxCopy(t *testing.T) {
	t.Parallel()

	tx := testTx(true)
	tx.TxIn[0].Prevout = &Prevout{TxOut: TxOut{Value: 10}, Height: 5}

	cp := tx.Copy()
	require.Equal(t, tx.TxHash(), cp.TxHash())
	require.Same(t, tx.TxIn[0].Prevout, cp.TxIn[0].Prevout)

	cp.TxIn[0].SignatureScript[0] = 0x00
	cp.TxIn[0].Witness[0][0] = 0xff
	cp.TxOut[0].PkScript[0] = 0x00
	require.Equal(t, byte(0x51), tx.TxIn[0].SignatureScript[0])
	require.Equal(t, byte(0x01), tx.TxIn[0].Witness[0][0])
	require.Equal(t, byte(0x76), tx.TxOut[0].PkScript[0])
}

// TestVarInt ensures variable length integers use the expected encodings and
// that non-canonical encodings are rejected.
func TestVarInt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		val uint64
		buf []byte
	}{
		{0, []byte{0x00}},
		{0xfc, []byte{0xfc}},
		{0xfd, []byte{0xfd, 0xfd, 0x00}},
		{0xffff, []byte{0xfd, 0xff, 0xff}},
		{0x10000, []byte{0xfe, 0x00, 0x00, 0x01, 0x00}},
		{0xffffffff, []byte{0xfe, 0xff, 0xff, 0xff, 0xff}},
		{0x100000000, []byte{0xff, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}},
	}

	for _, test := range tests {
		var buf bytes.Buffer
		require.NoError(t, WriteVarInt(&buf, test.val))
		require.Equal(t, test.buf, buf.Bytes())
		require.Equal(t, len(test.buf), VarIntSerializeSize(test.val))

		val, err := ReadVarInt(bytes.NewReader(test.buf))
		require.NoError(t, err)
		require.Equal(t, test.val, val)
	}

	nonCanonical := [][]byte{
		{0xfd, 0xfc, 0x00},
		{0xfe, 0xff, 0xff, 0x00, 0x00},
		{0xff, 0xff, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x00},
	}
	for _, buf := range nonCanonical {
		_, err := ReadVarInt(bytes.NewReader(buf))
		require.Error(t, err)
		require.IsType(t, &MessageError{}, err)
	}
}

// TestWitnessSerializeSize ensures the witness size accounts for the count
// and length prefixes.
func TestWitnessSerializeSize(t *testing.T) {
	t.Parallel()

	wit := TxWitness{make([]byte, 0x20), {}, make([]byte, 0xfd)}
	require.Equal(t, 1+(1+0x20)+1+(3+0xfd), wit.SerializeSize())
	require.Equal(t, []string{"", "01"}, TxWitness{{}, {0x01}}.ToHexStrings())
}

// TestIsCoinBase ensures coinbase detection requires a single null outpoint.
func TestIsCoinBase(t *testing.T) {
	t.Parallel()

	tx := NewMsgTx(1)
	tx.AddTxIn(NewTxIn(&OutPoint{Index: MaxPrevOutIndex}, nil, nil))
	require.True(t, tx.IsCoinBase())

	tx.AddTxIn(NewTxIn(&OutPoint{Index: MaxPrevOutIndex}, nil, nil))
	require.False(t, tx.IsCoinBase())

	require.False(t, testTx(false).IsCoinBase())
}
