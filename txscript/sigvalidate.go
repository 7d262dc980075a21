// Copyright (c) 2013-2022 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/btcsuite/btcscript/wire"
)

// isCompressedPubKey returns whether the passed bytes have the size and
// prefix of a compressed public key.
func isCompressedPubKey(pubKey []byte) bool {
	return len(pubKey) == 33 && (pubKey[0] == 0x02 || pubKey[0] == 0x03)
}

// checkPubKeyEncoding returns an error if the public key does not satisfy the
// encoding rules selected by the flags of the program.
func (p *Program) checkPubKeyEncoding(pubKey []byte) error {
	if p.hasFlag(ScriptVerifyStrictEncoding) &&
		!isStrictPubKeyEncoding(pubKey) {

		return scriptError(ErrPubKeyType, "unsupported public key type")
	}

	if p.sigVersion == SigVersionWitnessV0 &&
		p.hasFlag(ScriptVerifyWitnessPubKeyType) &&
		!isCompressedPubKey(pubKey) {

		str := "only compressed keys are accepted post-segwit"
		return scriptError(ErrWitnessPubKeyType, str)
	}

	return nil
}

// checkSigEncodings returns an error if the endorsement or public key break
// the encoding rules selected by the flags of the program.  An empty
// endorsement passes the signature rules since it is an explicit failure.
func (p *Program) checkSigEncodings(fullSig, pubKey []byte) error {
	if len(fullSig) > 0 {
		sig := fullSig[:len(fullSig)-1]
		hashType := SigHashType(fullSig[len(fullSig)-1])

		if p.hasFlag(ScriptVerifyDERSignatures) ||
			p.hasFlag(ScriptVerifyLowS) ||
			p.hasFlag(ScriptVerifyStrictEncoding) {

			err := checkSignatureEncoding(sig, p.hasFlag(ScriptVerifyLowS))
			if err != nil {
				return err
			}
		}
		if p.hasFlag(ScriptVerifyStrictEncoding) {
			if err := checkHashTypeEncoding(hashType); err != nil {
				return err
			}
		}
	}

	return p.checkPubKeyEncoding(pubKey)
}

// verifyECDSA returns whether the endorsement is a valid signature of the
// input by the public key, with script as the signed subscript.  Keys and
// signatures that fail to parse are simply invalid.
func (p *Program) verifyECDSA(fullSig, pkBytes, script []byte) bool {
	if len(fullSig) == 0 {
		return false
	}
	hashType := SigHashType(fullSig[len(fullSig)-1])
	sigBytes := fullSig[:len(fullSig)-1]

	pubKey, err := btcec.ParsePubKey(pkBytes)
	if err != nil {
		return false
	}

	var sig *ecdsa.Signature
	if p.hasFlag(ScriptVerifyStrictEncoding) ||
		p.hasFlag(ScriptVerifyDERSignatures) {

		sig, err = ecdsa.ParseDERSignature(sigBytes)
	} else {
		sig, err = ecdsa.ParseSignature(sigBytes)
	}
	if err != nil {
		return false
	}

	var hash []byte
	if p.sigVersion == SigVersionWitnessV0 {
		hash, err = calcWitnessSignatureHashRaw(script, p.hashCache,
			hashType, p.tx, p.txIdx, p.inputAmount)
		if err != nil {
			return false
		}
	} else {
		hash = calcSignatureHash(script, hashType, p.tx, p.txIdx)
	}

	var sigHash chainhash.Hash
	copy(sigHash[:], hash)
	if p.sigCache != nil && p.sigCache.Exists(sigHash, sigBytes, pkBytes) {
		return true
	}
	if !sig.Verify(hash, pubKey) {
		return false
	}
	if p.sigCache != nil {
		p.sigCache.Add(sigHash, sigBytes, pkBytes)
	}
	return true
}

// checkECDSASig evaluates an OP_CHECKSIG of a legacy or witness v0 script.
// Encoding violations are errors, while a signature that does not verify
// yields false unless ScriptVerifyNullFail requires it to be empty.
func (p *Program) checkECDSASig(fullSig, pkBytes []byte) (bool, error) {
	if err := p.checkSigEncodings(fullSig, pkBytes); err != nil {
		return false, err
	}

	// No signature can sign itself, so it is removed from a legacy
	// subscript.
	script := p.subScript()
	if p.sigVersion == SigVersionBase {
		script = findAndDelete(script, fullSig)
	}

	valid := p.verifyECDSA(fullSig, pkBytes, script)
	if !valid && len(fullSig) > 0 && p.hasFlag(ScriptVerifyNullFail) {
		str := "signature not empty on failed checksig"
		return false, scriptError(ErrNullFail, str)
	}
	return valid, nil
}

// checkTapscriptSig evaluates the signature check shared by OP_CHECKSIG,
// OP_CHECKSIGVERIFY and OP_CHECKSIGADD in tapscript.  It returns whether the
// signature counts as a success: a non-empty signature must be valid for a
// 32-byte key, while keys of unknown size accept any non-empty signature.
func (p *Program) checkTapscriptSig(sig, pkBytes []byte) (bool, error) {
	success := len(sig) > 0
	if success {
		if err := p.taprootCtx.tallysigOp(); err != nil {
			return false, err
		}
	}

	switch {
	case len(pkBytes) == 0:
		return false, scriptError(ErrTaprootPubkeyIsEmpty,
			"empty public key in tapscript signature check")

	case len(pkBytes) == schnorr.PubKeyBytesLen:
		if !success {
			return false, nil
		}
		verifier, err := newTaprootSigVerifier(pkBytes, sig, p.tx,
			p.txIdx, p.prevOutFetcher, p.sigCache, p.hashCache)
		if err != nil {
			return false, err
		}

		opts := []TaprootSigHashOption{WithBaseTapscriptVersion(
			p.taprootCtx.codeSepPos, p.taprootCtx.tapLeafHash[:],
		)}
		if p.taprootCtx.annex != nil {
			opts = append(opts, WithAnnex(p.taprootCtx.annex))
		}
		if err := verifier.verify(opts...); err != nil {
			return false, err
		}

	case p.hasFlag(ScriptVerifyDiscourageUpgradeablePubkeyType):
		str := fmt.Sprintf("pubkey of length %v was used", len(pkBytes))
		return false, scriptError(ErrDiscourageUpgradeablePubKeyType, str)
	}

	return success, nil
}

// taprootSigVerifier verifies BIP 340 signatures of taproot key path spends
// and tapscript signature checks.
type taprootSigVerifier struct {
	pubKey  *btcec.PublicKey
	pkBytes []byte

	fullSigBytes []byte
	sig          *schnorr.Signature
	hashType     SigHashType

	sigCache  *SigCache
	hashCache *TxSigHashes

	tx         *wire.MsgTx
	inputIndex int
	prevOuts   PrevOutputFetcher
}

// newTaprootSigVerifier parses an x-only public key and a 64 or 65 byte
// signature.  A 65 byte signature carries an explicit hash type which must
// not be SigHashDefault.
func newTaprootSigVerifier(pkBytes, rawSig []byte, tx *wire.MsgTx,
	inputIndex int, prevOuts PrevOutputFetcher, sigCache *SigCache,
	hashCache *TxSigHashes) (*taprootSigVerifier, error) {

	hashType := SigHashDefault
	sigBytes := rawSig
	switch len(rawSig) {
	case schnorr.SignatureSize:
	case schnorr.SignatureSize + 1:
		hashType = SigHashType(rawSig[schnorr.SignatureSize])
		if hashType == SigHashDefault {
			return nil, scriptError(ErrInvalidSigHashType,
				"explicit default hash type in taproot signature")
		}
		sigBytes = rawSig[:schnorr.SignatureSize]
	default:
		str := fmt.Sprintf("invalid sig len: %v", len(rawSig))
		return nil, scriptError(ErrInvalidTaprootSigLen, str)
	}

	// Keys off the curve and out of range signature values can never
	// verify.
	pubKey, err := schnorr.ParsePubKey(pkBytes)
	if err != nil {
		str := fmt.Sprintf("invalid taproot public key: %v", err)
		return nil, scriptError(ErrTaprootSigInvalid, str)
	}
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		str := fmt.Sprintf("invalid schnorr signature: %v", err)
		return nil, scriptError(ErrTaprootSigInvalid, str)
	}

	return &taprootSigVerifier{
		pubKey:       pubKey,
		pkBytes:      pkBytes,
		fullSigBytes: rawSig,
		sig:          sig,
		hashType:     hashType,
		sigCache:     sigCache,
		hashCache:    hashCache,
		tx:           tx,
		inputIndex:   inputIndex,
		prevOuts:     prevOuts,
	}, nil
}

// verify computes the taproot sighash with the passed message extensions and
// returns an error unless the signature is valid for it.
func (t *taprootSigVerifier) verify(opts ...TaprootSigHashOption) error {
	sigHash, err := calcTaprootSignatureHashRaw(t.hashCache, t.hashType,
		t.tx, t.inputIndex, t.prevOuts, opts...)
	if err != nil {
		return err
	}

	var cacheKey chainhash.Hash
	copy(cacheKey[:], sigHash)
	if t.sigCache != nil &&
		t.sigCache.Exists(cacheKey, t.fullSigBytes, t.pkBytes) {

		return nil
	}

	if !t.sig.Verify(sigHash, t.pubKey) {
		str := fmt.Sprintf("invalid schnorr signature for input %d",
			t.inputIndex)
		return scriptError(ErrTaprootSigInvalid, str)
	}

	if t.sigCache != nil {
		t.sigCache.Add(cacheKey, t.fullSigBytes, t.pkBytes)
	}
	return nil
}
