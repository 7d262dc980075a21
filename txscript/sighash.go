// Copyright (c) 2013-2022 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/btcsuite/btcscript/wire"
)

// SigHashType represents hash type bits at the end of a signature.
type SigHashType uint32

// Hash type bits from the end of a signature.
const (
	SigHashDefault      SigHashType = 0x00
	SigHashOld          SigHashType = 0x0
	SigHashAll          SigHashType = 0x1
	SigHashNone         SigHashType = 0x2
	SigHashSingle       SigHashType = 0x3
	SigHashAnyOneCanPay SigHashType = 0x80

	// sigHashMask defines the number of bits of the hash type which is used
	// to identify which outputs are signed.
	sigHashMask = 0x1f

	// taprootSigHashMask selects the output mode of a taproot hash type.
	taprootSigHashMask = 0x03
)

// SigVersion identifies the signature hashing algorithm, and with it the
// script rules, that apply to a script execution.
type SigVersion uint8

const (
	// SigVersionBase is used for scripts executed outside any witness
	// program.
	SigVersionBase SigVersion = iota

	// SigVersionWitnessV0 is used for version 0 witness programs.
	SigVersionWitnessV0

	// SigVersionTaproot is used for taproot key path spends.
	SigVersionTaproot

	// SigVersionTapscript is used for taproot script path spends with the
	// base leaf version.
	SigVersionTapscript
)

// String returns the SigVersion as a human-readable name.
func (v SigVersion) String() string {
	switch v {
	case SigVersionBase:
		return "base"
	case SigVersionWitnessV0:
		return "witness_v0"
	case SigVersionTaproot:
		return "taproot"
	case SigVersionTapscript:
		return "tapscript"
	}
	return fmt.Sprintf("Unknown SigVersion (%d)", uint8(v))
}

// oneHash is the digest a legacy signature commits to when the input index
// or, for SigHashSingle, the matching output does not exist.
var oneHash = [32]byte{0x01}

// writeLegacyInput serializes an input for the legacy sighash with the passed
// script and sequence in place of its own.
func writeLegacyInput(w *bytes.Buffer, txIn *wire.TxIn, script []byte,
	sequence uint32) {

	_ = wire.WriteOutPoint(w, &txIn.PreviousOutPoint)
	_ = wire.WriteVarBytes(w, script)

	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], sequence)
	w.Write(buf[:])
}

// calcSignatureHash computes the signature hash for the specified input of
// the target transaction observing the desired signature hash type.  The
// script is the subscript being signed and must already have the signature
// removed.  Any OP_CODESEPARATOR it contains is dropped before hashing.
func calcSignatureHash(script []byte, hashType SigHashType, tx *wire.MsgTx,
	idx int) []byte {

	// The SigHashSingle signature type signs only the corresponding input
	// and output (the output with the same index number as the input).
	//
	// Since transactions can have more inputs than outputs, this means it
	// is improper to use SigHashSingle on input indices that don't have a
	// corresponding output.
	//
	// A bug in the original Satoshi client implementation means specifying
	// an index that is out of range results in a signature hash of 1 (as a
	// uint256 little endian).  The original intent appeared to be to
	// indicate failure, but unfortunately, it was never checked and thus is
	// treated as the actual signature hash.  This buggy behavior is now
	// part of the consensus and a hard fork would be required to fix it.
	if idx >= len(tx.TxIn) ||
		(hashType&sigHashMask == SigHashSingle && idx >= len(tx.TxOut)) {

		return oneHash[:]
	}

	scriptCode := ParseScript(script).removeCodeSeparators(0)
	anyoneCanPay := hashType&SigHashAnyOneCanPay != 0
	baseType := hashType & sigHashMask

	var b bytes.Buffer
	b.Grow(tx.SerializeSizeStripped() + len(scriptCode) + 4)

	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[:4], uint32(tx.Version))
	b.Write(buf[:4])

	// Only the input being signed is committed to with SigHashAnyOneCanPay.
	// Otherwise all inputs are committed to with an empty script, and the
	// sequence of the other inputs is zeroed for SigHashNone and
	// SigHashSingle so they can be updated independently.
	if anyoneCanPay {
		_ = wire.WriteVarInt(&b, 1)
		txIn := tx.TxIn[idx]
		writeLegacyInput(&b, txIn, scriptCode, txIn.Sequence)
	} else {
		_ = wire.WriteVarInt(&b, uint64(len(tx.TxIn)))
		for i, txIn := range tx.TxIn {
			if i == idx {
				writeLegacyInput(&b, txIn, scriptCode, txIn.Sequence)
				continue
			}

			sequence := txIn.Sequence
			if baseType == SigHashNone || baseType == SigHashSingle {
				sequence = 0
			}
			writeLegacyInput(&b, txIn, nil, sequence)
		}
	}

	switch baseType {
	case SigHashNone:
		_ = wire.WriteVarInt(&b, 0)

	case SigHashSingle:
		// Outputs before the signed one are committed to as a value of
		// -1 with an empty script.
		_ = wire.WriteVarInt(&b, uint64(idx+1))
		for i := 0; i < idx; i++ {
			_ = wire.WriteTxOut(&b, &wire.TxOut{Value: -1})
		}
		_ = wire.WriteTxOut(&b, tx.TxOut[idx])

	default:
		_ = wire.WriteVarInt(&b, uint64(len(tx.TxOut)))
		for _, txOut := range tx.TxOut {
			_ = wire.WriteTxOut(&b, txOut)
		}
	}

	binary.LittleEndian.PutUint32(buf[:4], tx.LockTime)
	b.Write(buf[:4])
	binary.LittleEndian.PutUint32(buf[:4], uint32(hashType))
	b.Write(buf[:4])

	return chainhash.DoubleHashB(b.Bytes())
}

// CalcSignatureHash computes the legacy signature hash for the specified
// input of the target transaction observing the desired signature hash type.
// The script is the subscript being signed: the signature must already be
// removed from it, while any OP_CODESEPARATOR is removed here.
func CalcSignatureHash(script []byte, hashType SigHashType, tx *wire.MsgTx,
	idx int) ([]byte, error) {

	if idx < 0 || idx >= len(tx.TxIn) {
		str := fmt.Sprintf("transaction input index %d is negative or "+
			">= %d", idx, len(tx.TxIn))
		return nil, scriptError(ErrInvalidIndex, str)
	}

	return calcSignatureHash(script, hashType, tx, idx), nil
}

// calcWitnessSignatureHashRaw computes the sighash digest of a transaction's
// segwit input using the new, optimized digest calculation algorithm defined
// in BIP0143: https://github.com/bitcoin/bips/blob/master/bip-0143.mediawiki.
// This function makes use of pre-calculated sighash fragments stored within
// the passed HashCache to eliminate duplicate hashing computations when
// calculating the final digest, reducing the complexity from O(N^2) to O(N).
// Additionally, signatures now cover the input value of the referenced
// unspent output. This allows offline, or hardware wallets to compute the
// exact amount being spent, in addition to the final transaction fee. In the
// case the wallet if fed an invalid input amount, the real sighash will
// differ causing the produced signature to be invalid.
func calcWitnessSignatureHashRaw(subScript []byte, sigHashes *TxSigHashes,
	hashType SigHashType, tx *wire.MsgTx, idx int, amt int64) ([]byte, error) {

	// As a sanity check, ensure the passed input index for the transaction
	// is valid.
	if idx < 0 || idx > len(tx.TxIn)-1 {
		str := fmt.Sprintf("idx %d but %d txins", idx, len(tx.TxIn))
		return nil, scriptError(ErrInvalidIndex, str)
	}

	// We'll utilize this buffer throughout to incrementally calculate
	// the signature hash for this transaction.
	var sigHash bytes.Buffer
	sigHash.Grow(156 + len(subScript) + wire.VarIntSerializeSize(
		uint64(len(subScript))))

	// First write out, then encode the transaction's version number.
	var bVersion [4]byte
	binary.LittleEndian.PutUint32(bVersion[:], uint32(tx.Version))
	sigHash.Write(bVersion[:])

	// Next write out the possibly pre-calculated hashes for the sequence
	// numbers of all inputs, and the hashes of the previous outs for all
	// outputs.
	var zeroHash chainhash.Hash

	// If anyone can pay isn't active, then we can use the cached
	// hashPrevOuts, otherwise we just write zeroes for the prev outs.
	if hashType&SigHashAnyOneCanPay == 0 {
		sigHash.Write(sigHashes.HashPrevOutsV0[:])
	} else {
		sigHash.Write(zeroHash[:])
	}

	// If the sighash isn't anyone can pay, single, or none, the use the
	// cached hash sequences, otherwise write all zeroes for the
	// hashSequence.
	if hashType&SigHashAnyOneCanPay == 0 &&
		hashType&sigHashMask != SigHashSingle &&
		hashType&sigHashMask != SigHashNone {

		sigHash.Write(sigHashes.HashSequenceV0[:])
	} else {
		sigHash.Write(zeroHash[:])
	}

	txIn := tx.TxIn[idx]

	// Next, write the outpoint being spent.
	sigHash.Write(txIn.PreviousOutPoint.Hash[:])
	var bIndex [4]byte
	binary.LittleEndian.PutUint32(bIndex[:], txIn.PreviousOutPoint.Index)
	sigHash.Write(bIndex[:])

	// The script code is the executed script from the most recent
	// OP_CODESEPARATOR onward.  Unlike the legacy algorithm the separators
	// themselves are kept.
	_ = wire.WriteVarBytes(&sigHash, subScript)

	// Next, add the input amount, and sequence number of the input being
	// signed.
	var bAmount [8]byte
	binary.LittleEndian.PutUint64(bAmount[:], uint64(amt))
	sigHash.Write(bAmount[:])
	var bSequence [4]byte
	binary.LittleEndian.PutUint32(bSequence[:], txIn.Sequence)
	sigHash.Write(bSequence[:])

	// If the current signature mode isn't single, or none, then we can
	// re-use the pre-generated hashoutputs sighash fragment. Otherwise,
	// we'll serialize and add only the target output index to the signature
	// pre-image.
	if hashType&sigHashMask != SigHashSingle &&
		hashType&sigHashMask != SigHashNone {

		sigHash.Write(sigHashes.HashOutputsV0[:])
	} else if hashType&sigHashMask == SigHashSingle &&
		idx < len(tx.TxOut) {

		var b bytes.Buffer
		_ = wire.WriteTxOut(&b, tx.TxOut[idx])
		sigHash.Write(chainhash.DoubleHashB(b.Bytes()))
	} else {
		sigHash.Write(zeroHash[:])
	}

	// Finally, write out the transaction's locktime, and the sig hash
	// type.
	var bLockTime [4]byte
	binary.LittleEndian.PutUint32(bLockTime[:], tx.LockTime)
	sigHash.Write(bLockTime[:])
	var bHashType [4]byte
	binary.LittleEndian.PutUint32(bHashType[:], uint32(hashType))
	sigHash.Write(bHashType[:])

	return chainhash.DoubleHashB(sigHash.Bytes()), nil
}

// CalcWitnessSigHash computes the sighash digest for the specified input of
// the target transaction observing the desired sig hash type.
func CalcWitnessSigHash(script []byte, sigHashes *TxSigHashes,
	hType SigHashType, tx *wire.MsgTx, idx int, amt int64) ([]byte, error) {

	return calcWitnessSignatureHashRaw(script, sigHashes, hType, tx, idx,
		amt)
}

// taprootSigHashOptions houses a set of functional options that may optionally
// be passed when computing a taproot sighash.
type taprootSigHashOptions struct {
	// extFlag denotes the current message digest extension being used.
	// For top-level script spends use a value of zero, while each tapscript
	// version can use its own extension flag.
	extFlag byte

	// annexHash is the sha256 hash of the annex with a compact size length
	// prefix: sha256(sizeof(annex) || annex).
	annexHash []byte

	// tapLeafHash is the hash of the tapscript leaf as defined in BIP 341.
	// This should be h_tapleaf(version || compactSizeOf(script) || script).
	tapLeafHash []byte

	// keyVersion is the key version as defined in BIP 341. This is always
	// 0x00 for all currently defined leaf versions.
	keyVersion byte

	// codeSepPos is the op code position of the last code separator. This
	// is used for the BIP 342 sighash message extension.
	codeSepPos uint32
}

// writeDigestExtensions writes out the sighash message extension defined by
// the current active extFlags.
func (t *taprootSigHashOptions) writeDigestExtensions(w *bytes.Buffer) {
	switch t.extFlag {
	// The base extension, used for tapscript keypath spends doesn't modify
	// the digest at all.
	case 0:
		return

	// The tapscript base leaf version extension adds the leaf hash, key
	// version, and code separator position to the final digest.
	case 1:
		w.Write(t.tapLeafHash)
		w.WriteByte(t.keyVersion)

		var bPos [4]byte
		binary.LittleEndian.PutUint32(bPos[:], t.codeSepPos)
		w.Write(bPos[:])
	}
}

// defaultTaprootSighashOptions returns the set of default sighash options for
// taproot execution.
func defaultTaprootSighashOptions() *taprootSigHashOptions {
	return &taprootSigHashOptions{}
}

// TaprootSigHashOption defines a set of functional param options that can be
// used to modify the base sighash message with optional extensions.
type TaprootSigHashOption func(*taprootSigHashOptions)

// WithAnnex is a functional option that allows the caller to specify the
// existence of an annex in the final witness stack for the taproot/tapscript
// spends.
func WithAnnex(annex []byte) TaprootSigHashOption {
	return func(o *taprootSigHashOptions) {
		// It's just a bytes.Buffer which never returns an error on
		// write.
		var b bytes.Buffer
		_ = wire.WriteVarBytes(&b, annex)

		o.annexHash = chainhash.HashB(b.Bytes())
	}
}

// WithBaseTapscriptVersion is a functional option that specifies that the
// sighash digest should include the extra information included as part of the
// base tapscript version.
func WithBaseTapscriptVersion(codeSepPos uint32,
	tapLeafHash []byte) TaprootSigHashOption {

	return func(o *taprootSigHashOptions) {
		o.extFlag = 1
		o.tapLeafHash = tapLeafHash
		o.keyVersion = 0
		o.codeSepPos = codeSepPos
	}
}

// isValidTaprootSigHash returns true if the passed sighash is a valid taproot
// sighash.
func isValidTaprootSigHash(hashType SigHashType) bool {
	switch hashType {
	case SigHashDefault, SigHashAll, SigHashNone, SigHashSingle:
		fallthrough
	case 0x81, 0x82, 0x83:
		return true

	default:
		return false
	}
}

// calcTaprootSignatureHashRaw computes the sighash as specified in BIP 143.
// If an invalid sighash type is passed in, an error is returned.
func calcTaprootSignatureHashRaw(sigHashes *TxSigHashes, hType SigHashType,
	tx *wire.MsgTx, idx int,
	prevOutFetcher PrevOutputFetcher,
	sigHashOpts ...TaprootSigHashOption) ([]byte, error) {

	opts := defaultTaprootSighashOptions()
	for _, sigHashOpt := range sigHashOpts {
		sigHashOpt(opts)
	}

	// If a valid sighash type isn't passed in, then we'll exit early.
	if !isValidTaprootSigHash(hType) {
		str := fmt.Sprintf("invalid taproot sighash type: %v", hType)
		return nil, scriptError(ErrInvalidSigHashType, str)
	}

	// As a sanity check, ensure the passed input index for the transaction
	// is valid.
	if idx < 0 || idx > len(tx.TxIn)-1 {
		str := fmt.Sprintf("idx %d but %d txins", idx, len(tx.TxIn))
		return nil, scriptError(ErrInvalidIndex, str)
	}

	// We'll utilize this buffer throughout to incrementally calculate
	// the signature hash for this transaction.
	var sigMsg bytes.Buffer

	// The final sighash always has a value of 0x00 prepended to it, which
	// is called the sighash epoch.
	sigMsg.WriteByte(0x00)

	// First, we write the hash type encoded as a single byte.
	if err := sigMsg.WriteByte(byte(hType)); err != nil {
		return nil, err
	}

	// Next we'll write out the transaction specific data which binds the
	// outer context of the sighash.
	err := binary.Write(&sigMsg, binary.LittleEndian, tx.Version)
	if err != nil {
		return nil, err
	}
	err = binary.Write(&sigMsg, binary.LittleEndian, tx.LockTime)
	if err != nil {
		return nil, err
	}

	// If sighash isn't anyone can pay, then we'll include all the
	// pre-computed midstate digests in the sighash.
	if hType&SigHashAnyOneCanPay != SigHashAnyOneCanPay {
		sigMsg.Write(sigHashes.HashPrevOutsV1[:])
		sigMsg.Write(sigHashes.HashInputAmountsV1[:])
		sigMsg.Write(sigHashes.HashInputScriptsV1[:])
		sigMsg.Write(sigHashes.HashSequenceV1[:])
	}

	// If this is sighash all, or its taproot alias (sighash default),
	// then we'll also include the pre-computed digest of all the outputs
	// of the transaction.
	if hType&taprootSigHashMask != SigHashSingle &&
		hType&taprootSigHashMask != SigHashNone {

		sigMsg.Write(sigHashes.HashOutputsV1[:])
	}

	// Next, we'll write out the relevant information for this specific
	// input.
	//
	// The spend type is computed as the (ext_flag*2) + annex_present. We
	// use this to bind the extension flag (that BIP 342 uses), as well as
	// the annex if its present.
	input := tx.TxIn[idx]
	witnessHasAnnex := opts.annexHash != nil
	spendType := byte(opts.extFlag) * 2
	if witnessHasAnnex {
		spendType++
	}

	if err := sigMsg.WriteByte(spendType); err != nil {
		return nil, err
	}

	// If anyone can pay is active, then we'll write out just the specific
	// information about this input, given we skipped writing all the
	// information of all the inputs above.
	if hType&SigHashAnyOneCanPay == SigHashAnyOneCanPay {
		// We'll start out with writing this input specific information by
		// first writing the entire previous output.
		err = wire.WriteOutPoint(&sigMsg, &input.PreviousOutPoint)
		if err != nil {
			return nil, err
		}

		// Next, we'll write out the previous output (amt+script) being
		// spent itself.
		prevOut := prevOutFetcher.FetchPrevOutput(input.PreviousOutPoint)
		if prevOut == nil {
			str := fmt.Sprintf("missing previous output %v",
				input.PreviousOutPoint)
			return nil, scriptError(ErrMissingPrevOut, str)
		}
		if err := wire.WriteTxOut(&sigMsg, prevOut); err != nil {
			return nil, err
		}

		// Finally, we'll write out the input sequence itself.
		err = binary.Write(&sigMsg, binary.LittleEndian, input.Sequence)
		if err != nil {
			return nil, err
		}
	} else {
		err := binary.Write(&sigMsg, binary.LittleEndian, uint32(idx))
		if err != nil {
			return nil, err
		}
	}

	// Now that we have the input specific information written, we'll
	// include the anex, if we have it.
	if witnessHasAnnex {
		sigMsg.Write(opts.annexHash)
	}

	// Finally, if this is sighash single, then we'll write out the
	// information for this given output.
	if hType&taprootSigHashMask == SigHashSingle {
		// If this output doesn't exist, then we'll return with an error
		// here as this is an invalid sighash type for this input.
		if idx >= len(tx.TxOut) {
			str := fmt.Sprintf("idx %d but %d txos", idx,
				len(tx.TxOut))
			return nil, scriptError(ErrInvalidSigHashType, str)
		}

		// Now that we know this is a valid sighash input index, we'll
		// write out the information for this output.
		var b bytes.Buffer
		if err := wire.WriteTxOut(&b, tx.TxOut[idx]); err != nil {
			return nil, err
		}

		sigMsg.Write(chainhash.HashB(b.Bytes()))
	}

	// Now that we've written out all the base information, we'll write any
	// message extensions (if they exist).
	opts.writeDigestExtensions(&sigMsg)

	// The final sighash is computed as: hash_TagSigHash(0x00 || sigMsg).
	// We wrote the 0x00 above so we don't need to append here and incur
	// extra allocations.
	sigHash := chainhash.TaggedHash(chainhash.TagTapSighash, sigMsg.Bytes())
	return sigHash[:], nil
}

// CalcTaprootSignatureHash computes the sighash digest of a transaction's
// taproot-spending input using the new sighash digest algorithm described in
// BIP 341. As the new digest algoriths may require the digest to commit to the
// entire prev output, a PrevOutputFetcher argument is required to obtain the
// needed information.
func CalcTaprootSignatureHash(sigHashes *TxSigHashes, hType SigHashType,
	tx *wire.MsgTx, inputIndex int,
	prevOutFetcher PrevOutputFetcher) ([]byte, error) {

	return calcTaprootSignatureHashRaw(
		sigHashes, hType, tx, inputIndex, prevOutFetcher,
	)
}

// CalcTapscriptSignaturehash computes the sighash digest of a transaction's
// tapscript-spending input using the new sighash digest algorithm described
// in BIP 341. The leaf passed in is the tapscript leaf being spent and the
// code separator position is the opcode index of the last executed
// OP_CODESEPARATOR, or blankCodeSepValue when none was executed.
func CalcTapscriptSignaturehash(sigHashes *TxSigHashes, hType SigHashType,
	tx *wire.MsgTx, inputIndex int, prevOutFetcher PrevOutputFetcher,
	tapLeaf TapLeaf, codeSepPos uint32,
	sigHashOpts ...TaprootSigHashOption) ([]byte, error) {

	tapLeafHash := tapLeaf.TapHash()
	opts := append([]TaprootSigHashOption{
		WithBaseTapscriptVersion(codeSepPos, tapLeafHash[:]),
	}, sigHashOpts...)

	return calcTaprootSignatureHashRaw(
		sigHashes, hType, tx, inputIndex, prevOutFetcher, opts...,
	)
}
