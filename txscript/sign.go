// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"github.com/btcsuite/btcscript/wire"
)

// RawTxInSignature returns the endorsement of input idx of the given
// transaction over the legacy sighash of subScript.
func RawTxInSignature(tx *wire.MsgTx, idx int, subScript []byte,
	hashType SigHashType, key *btcec.PrivateKey) ([]byte, error) {

	hash, err := CalcSignatureHash(subScript, hashType, tx, idx)
	if err != nil {
		return nil, err
	}

	return NewEndorsement(ecdsa.Sign(key, hash), hashType), nil
}

// RawTxInWitnessSignature returns the endorsement of input idx of the given
// transaction over the BIP143 sighash of subScript spending amt.
func RawTxInWitnessSignature(tx *wire.MsgTx, sigHashes *TxSigHashes, idx int,
	amt int64, subScript []byte, hashType SigHashType,
	key *btcec.PrivateKey) ([]byte, error) {

	hash, err := CalcWitnessSigHash(subScript, sigHashes, hashType, tx,
		idx, amt)
	if err != nil {
		return nil, err
	}

	return NewEndorsement(ecdsa.Sign(key, hash), hashType), nil
}

// RawTxInTaprootSignature returns a BIP 340 signature of input idx for a key
// path spend.  The key is tweaked with scriptRoot, which is empty for an
// output without a script tree.  The hash type is appended unless it is
// SigHashDefault.
func RawTxInTaprootSignature(tx *wire.MsgTx, sigHashes *TxSigHashes, idx int,
	prevOuts PrevOutputFetcher, scriptRoot []byte, hashType SigHashType,
	key *btcec.PrivateKey) ([]byte, error) {

	hash, err := CalcTaprootSignatureHash(sigHashes, hashType, tx, idx,
		prevOuts)
	if err != nil {
		return nil, err
	}

	return signSchnorr(TweakTaprootPrivKey(key, scriptRoot), hash, hashType)
}

// RawTxInTapscriptSignature returns a BIP 340 signature of input idx for a
// script path spend of leaf with no executed OP_CODESEPARATOR.  The hash type
// is appended unless it is SigHashDefault.
func RawTxInTapscriptSignature(tx *wire.MsgTx, sigHashes *TxSigHashes, idx int,
	prevOuts PrevOutputFetcher, leaf TapLeaf, hashType SigHashType,
	key *btcec.PrivateKey, sigHashOpts ...TaprootSigHashOption) ([]byte, error) {

	hash, err := CalcTapscriptSignaturehash(sigHashes, hashType, tx, idx,
		prevOuts, leaf, blankCodeSepValue, sigHashOpts...)
	if err != nil {
		return nil, err
	}

	return signSchnorr(key, hash, hashType)
}

func signSchnorr(key *btcec.PrivateKey, hash []byte,
	hashType SigHashType) ([]byte, error) {

	sig, err := schnorr.Sign(key, hash)
	if err != nil {
		return nil, fmt.Errorf("cannot sign tx input: %w", err)
	}

	rawSig := sig.Serialize()
	if hashType != SigHashDefault {
		rawSig = append(rawSig, byte(hashType))
	}
	return rawSig, nil
}

// SignatureScript returns the input script spending a pay-to-pubkey-hash
// output of privKey: the endorsement followed by the public key, serialized
// compressed or uncompressed as requested.
func SignatureScript(tx *wire.MsgTx, idx int, subscript []byte,
	hashType SigHashType, privKey *btcec.PrivateKey,
	compress bool) ([]byte, error) {

	sig, err := RawTxInSignature(tx, idx, subscript, hashType, privKey)
	if err != nil {
		return nil, err
	}

	pk := privKey.PubKey()
	var pkData []byte
	if compress {
		pkData = pk.SerializeCompressed()
	} else {
		pkData = pk.SerializeUncompressed()
	}

	return NewScriptBuilder().AddData(sig).AddData(pkData).Script()
}

// WitnessSignature returns the witness spending a pay-to-witness-pubkey-hash
// output of privKey.
func WitnessSignature(tx *wire.MsgTx, sigHashes *TxSigHashes, idx int,
	amt int64, subscript []byte, hashType SigHashType,
	privKey *btcec.PrivateKey, compress bool) (wire.TxWitness, error) {

	sig, err := RawTxInWitnessSignature(tx, sigHashes, idx, amt, subscript,
		hashType, privKey)
	if err != nil {
		return nil, err
	}

	pk := privKey.PubKey()
	var pkData []byte
	if compress {
		pkData = pk.SerializeCompressed()
	} else {
		pkData = pk.SerializeUncompressed()
	}

	return wire.TxWitness{sig, pkData}, nil
}
