// Copyright (c) 2013-2022 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcscript/wire"
)

// HeightContext is the chain position a transaction is validated at.
type HeightContext struct {
	// Height is the height of the block containing the transaction.
	Height int32

	// MedianTimePast is the median time past of the previous block as a
	// unix timestamp.
	MedianTimePast int64
}

// connectOptions houses the shared state of every program run by a single
// Connect call.
type connectOptions struct {
	sigCache  *SigCache
	hashCache *TxSigHashes
	fetcher   PrevOutputFetcher
	debug     bool
}

// ConnectOption customizes a Connect call.
type ConnectOption func(*connectOptions)

// WithConnectSigCache sets the signature cache shared by the scripts of the
// input.
func WithConnectSigCache(sigCache *SigCache) ConnectOption {
	return func(o *connectOptions) {
		o.sigCache = sigCache
	}
}

// WithConnectTxSigHashes sets the precomputed sighash midstate of the
// transaction, typically shared by every input of it.
func WithConnectTxSigHashes(hashCache *TxSigHashes) ConnectOption {
	return func(o *connectOptions) {
		o.hashCache = hashCache
	}
}

// WithConnectPrevOutFetcher sets the source of the outputs spent by the
// transaction.  It defaults to the populated prevouts of its inputs.
func WithConnectPrevOutFetcher(fetcher PrevOutputFetcher) ConnectOption {
	return func(o *connectOptions) {
		o.fetcher = fetcher
	}
}

// WithConnectScriptDebug traces every step of every program run.
func WithConnectScriptDebug() ConnectOption {
	return func(o *connectOptions) {
		o.debug = true
	}
}

// run executes script as input idx of tx seeded with stack.
func (o *connectOptions) run(script []byte, tx *wire.MsgTx, idx int,
	flags ScriptFlags, sigVersion SigVersion,
	stack [][]byte) (*Program, error) {

	opts := []ProgramOption{
		WithStack(stack),
		WithSigCache(o.sigCache),
		WithTxSigHashes(o.hashCache),
		WithPrevOutFetcher(o.fetcher),
	}
	if o.debug {
		opts = append(opts, WithScriptDebug())
	}

	p, err := NewProgram(script, tx, idx, flags, sigVersion, opts...)
	if err != nil {
		return nil, err
	}
	if err := Run(p); err != nil {
		return nil, err
	}
	return p, nil
}

// checkFlags returns an error for flag combinations that cannot be
// validated.
func checkFlags(flags ScriptFlags) error {
	if flags.hasFlag(ScriptVerifyCleanStack) &&
		!(flags.hasFlag(ScriptBip16) && flags.hasFlag(ScriptVerifyWitness)) {

		return scriptError(ErrInvalidFlags, "invalid scriptflag "+
			"combination: clean stack requires bip16 and witness")
	}
	if flags.hasFlag(ScriptVerifyWitness) && !flags.hasFlag(ScriptBip16) {
		return scriptError(ErrInvalidFlags, "invalid scriptflag "+
			"combination: witness requires bip16")
	}
	return nil
}

// Connect fully validates input idx of tx against the output it spends under
// the passed flags.  The prevout of the input must be populated, as must the
// prevouts of every input when the input spends a taproot output.
//
// The input script runs first and its stack seeds the output script, which
// must leave a true top item.  A pay-to-script-hash output then runs the
// redeem script popped from the input stack, and a witness program (either
// the output itself or the redeem script) runs the script committed to by
// the witness on a fresh stack that must end clean.
func Connect(flags ScriptFlags, ctx *HeightContext, tx *wire.MsgTx, idx int,
	opts ...ConnectOption) error {

	err := connect(flags, tx, idx, opts...)
	if err != nil && ctx != nil {
		log.Debugf("Input %d of %v failed at height %d (median time %d): %v",
			idx, tx.TxHash(), ctx.Height, ctx.MedianTimePast, err)
	}
	return err
}

func connect(flags ScriptFlags, tx *wire.MsgTx, idx int,
	opts ...ConnectOption) error {

	if err := checkFlags(flags); err != nil {
		return err
	}
	if tx == nil || idx < 0 || idx >= len(tx.TxIn) {
		str := fmt.Sprintf("transaction input index %d is negative or "+
			"out of range", idx)
		return scriptError(ErrInvalidIndex, str)
	}
	txIn := tx.TxIn[idx]
	if txIn.Prevout == nil {
		str := fmt.Sprintf("prevout %v of input %d is not populated",
			txIn.PreviousOutPoint, idx)
		return scriptError(ErrMissingPrevOut, str)
	}

	o := &connectOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.fetcher == nil {
		o.fetcher = NewTxPrevOutFetcher(tx)
	}
	if o.hashCache == nil {
		o.hashCache = NewTxSigHashes(tx, o.fetcher)
	}

	sigScript := ParseScript(txIn.SignatureScript)
	pkScript := txIn.Prevout.PkScript
	isP2SH := flags.hasFlag(ScriptBip16) && isScriptHashScript(pkScript)

	if flags.hasFlag(ScriptVerifySigPushOnly) && !sigScript.IsPushOnly() {
		return scriptError(ErrNotPushOnly,
			"signature script is not push only")
	}

	// The input script runs alone and its stack seeds the output script.
	p, err := o.run(txIn.SignatureScript, tx, idx, flags, SigVersionBase, nil)
	if err != nil {
		return err
	}
	sigStack := p.Stack()

	p, err = o.run(pkScript, tx, idx, flags, SigVersionBase, sigStack)
	if err != nil {
		return err
	}
	if err := p.checkFinalStack(false); err != nil {
		return err
	}
	finalDepth := p.dstack.Depth()

	witnessUsed := false
	if flags.hasFlag(ScriptVerifyWitness) {
		if version, program, ok := extractWitnessProgramInfo(pkScript); ok {
			witnessUsed = true

			// The witness carries every spend item, so anything in the
			// input script is malleable.
			if len(txIn.SignatureScript) != 0 {
				return scriptError(ErrWitnessMalleated,
					"native witness program cannot also have a "+
						"signature script")
			}
			err := o.verifyWitnessProgram(tx, idx, flags, version,
				program, false)
			if err != nil {
				return err
			}
			finalDepth = 1
		}
	}

	if isP2SH {
		if !sigScript.IsPushOnly() {
			return scriptError(ErrNotPushOnly,
				"pay to script hash is not push only")
		}

		// The redeem script is the last item pushed by the input
		// script, and the rest of that stack seeds it.
		if len(sigStack) == 0 {
			return scriptError(ErrEvalFalse,
				"pay to script hash spend without a redeem script")
		}
		redeemScript := sigStack[len(sigStack)-1]
		p, err = o.run(redeemScript, tx, idx, flags, SigVersionBase,
			sigStack[:len(sigStack)-1])
		if err != nil {
			return err
		}
		if err := p.checkFinalStack(false); err != nil {
			return err
		}
		finalDepth = p.dstack.Depth()

		if flags.hasFlag(ScriptVerifyWitness) {
			version, program, ok := extractWitnessProgramInfo(redeemScript)
			if ok {
				witnessUsed = true

				// The input script must be exactly the canonical
				// push of the redeem script.
				expected := serializePush(redeemScript)
				if !bytes.Equal(txIn.SignatureScript, expected) {
					return scriptError(ErrWitnessMalleatedP2SH,
						"signature script for witness nested "+
							"p2sh is not canonical")
				}
				err := o.verifyWitnessProgram(tx, idx, flags,
					version, program, true)
				if err != nil {
					return err
				}
				finalDepth = 1
			}
		}
	}

	if flags.hasFlag(ScriptVerifyCleanStack) && finalDepth != 1 {
		str := fmt.Sprintf("stack must contain exactly one item "+
			"(contains %d)", finalDepth)
		return scriptError(ErrCleanStack, str)
	}

	if flags.hasFlag(ScriptVerifyWitness) && !witnessUsed &&
		len(txIn.Witness) != 0 {

		str := "non-witness inputs cannot have a witness"
		return scriptError(ErrWitnessUnexpected, str)
	}

	return nil
}

// verifyWitnessProgram validates the witness of input idx against a witness
// program of the passed version.
func (o *connectOptions) verifyWitnessProgram(tx *wire.MsgTx, idx int,
	flags ScriptFlags, version int, program []byte, isP2SH bool) error {

	witness := tx.TxIn[idx].Witness
	spend, err := extractScriptAndStack(witness, version, program, isP2SH,
		flags)
	if err != nil {
		return err
	}
	if spend.unconditional {
		return nil
	}

	if spend.sigVersion == SigVersionTaproot ||
		spend.sigVersion == SigVersionTapscript {

		// Taproot signatures commit to every spent output.
		for i, txIn := range tx.TxIn {
			if o.fetcher.FetchPrevOutput(txIn.PreviousOutPoint) == nil {
				str := fmt.Sprintf("prevout %v of input %d is "+
					"required by taproot but not available",
					txIn.PreviousOutPoint, i)
				return scriptError(ErrMissingPrevOut, str)
			}
		}
	}

	if spend.sigVersion == SigVersionTaproot {
		return VerifyTaprootKeySpend(program, spend.keySpendSig, tx, idx,
			o.fetcher, o.hashCache, o.sigCache)
	}

	if spend.sigVersion == SigVersionTapscript {
		// Any OP_SUCCESS reachable by the parser makes the spend
		// succeed unconditionally.
		leaf := ParseScript(spend.script)
		for i := range leaf.ops {
			op := &leaf.ops[i]
			if op.malformed {
				str := fmt.Sprintf("tapscript leaf has a truncated "+
					"push at offset %d", op.offset)
				return scriptError(ErrMalformedPush, str)
			}
			if !isOpSuccess(op.code) {
				continue
			}
			if flags.hasFlag(ScriptVerifyDiscourageOpSuccess) {
				str := fmt.Sprintf("OP_SUCCESS%d is discouraged",
					op.code)
				return scriptError(ErrDiscourageOpSuccess, str)
			}
			return nil
		}

		if len(spend.stack) > MaxStackSize {
			str := fmt.Sprintf("tapscript initial stack of %d items "+
				"exceeds max allowed %d", len(spend.stack),
				MaxStackSize)
			return scriptError(ErrStackOverflow, str)
		}
	}

	for _, item := range spend.stack {
		if len(item) > MaxScriptElementSize {
			str := fmt.Sprintf("witness stack item of %d bytes "+
				"exceeds max allowed size %d", len(item),
				MaxScriptElementSize)
			return scriptError(ErrElementTooBig, str)
		}
	}

	p, err := o.run(spend.script, tx, idx, flags, spend.sigVersion,
		spend.stack)
	if err != nil {
		return err
	}
	return p.checkFinalStack(true)
}
