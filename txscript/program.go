// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"

	"github.com/btcsuite/btcscript/wire"
)

// Program is the state of a single script evaluation: the parsed script, the
// data and alternate stacks, the conditional stack and the transaction
// context the script is evaluated in.  A Program is consumed by exactly one
// call to Run.  The transaction and everything reachable from it is only
// read.
type Program struct {
	script     *Script
	tx         *wire.MsgTx
	txIdx      int
	flags      ScriptFlags
	sigVersion SigVersion

	inputAmount    int64
	sigCache       *SigCache
	hashCache      *TxSigHashes
	prevOutFetcher PrevOutputFetcher

	// taprootCtx is only set for tapscript executions.
	taprootCtx *taprootExecutionCtx

	debug bool
	seed  [][]byte

	dstack stack // data stack
	astack stack // alt stack

	// condStack tracks the conditional execution state with support for
	// multiple nested conditional execution opcodes.
	condStack []int

	// opIdx is the index of the operation being executed and lastCodeSep
	// is the byte offset just past the last executed OP_CODESEPARATOR.
	opIdx       int
	lastCodeSep int

	numOps int
	done   bool
}

// ProgramOption customizes a Program created by NewProgram.
type ProgramOption func(*Program)

// WithStack seeds the data stack of the program.  The last item becomes the
// top of the stack.
func WithStack(items [][]byte) ProgramOption {
	return func(p *Program) {
		p.seed = items
	}
}

// WithInputAmount sets the amount of the output spent by the input.  It
// defaults to the value of the populated prevout.
func WithInputAmount(amount int64) ProgramOption {
	return func(p *Program) {
		p.inputAmount = amount
	}
}

// WithSigCache sets the signature cache consulted before verifying a
// signature.
func WithSigCache(sigCache *SigCache) ProgramOption {
	return func(p *Program) {
		p.sigCache = sigCache
	}
}

// WithTxSigHashes sets the precomputed sighash midstate of the transaction.
// When absent it is computed for witness executions.
func WithTxSigHashes(hashCache *TxSigHashes) ProgramOption {
	return func(p *Program) {
		p.hashCache = hashCache
	}
}

// WithPrevOutFetcher sets the source of the outputs spent by the transaction
// for taproot signature hashes.  It defaults to the populated prevouts of the
// transaction inputs.
func WithPrevOutFetcher(fetcher PrevOutputFetcher) ProgramOption {
	return func(p *Program) {
		p.prevOutFetcher = fetcher
	}
}

// WithScriptDebug logs every stack mutation of the program at the trace
// level.
func WithScriptDebug() ProgramOption {
	return func(p *Program) {
		p.debug = true
	}
}

// NewProgram returns a program evaluating script as input txIdx of tx under
// the rules of sigVersion.  Tapscript programs derive the leaf hash, annex and
// sig op budget from the input witness.
func NewProgram(script []byte, tx *wire.MsgTx, txIdx int, flags ScriptFlags,
	sigVersion SigVersion, opts ...ProgramOption) (*Program, error) {

	if tx == nil || txIdx < 0 || txIdx >= len(tx.TxIn) {
		str := fmt.Sprintf("transaction input index %d is negative or "+
			"out of range", txIdx)
		return nil, scriptError(ErrInvalidIndex, str)
	}

	p := &Program{
		script:     ParseScript(script),
		tx:         tx,
		txIdx:      txIdx,
		flags:      flags,
		sigVersion: sigVersion,
	}
	txIn := tx.TxIn[txIdx]
	if txIn.Prevout != nil {
		p.inputAmount = txIn.Prevout.Value
	}
	for _, opt := range opts {
		opt(p)
	}

	switch sigVersion {
	case SigVersionBase:
	case SigVersionWitnessV0:
	case SigVersionTapscript:
		p.taprootCtx = newTaprootExecutionCtx(txIn.Witness, script)
	default:
		str := fmt.Sprintf("programs can't be executed as %v", sigVersion)
		return nil, scriptError(ErrInternal, str)
	}

	if p.prevOutFetcher == nil {
		p.prevOutFetcher = NewTxPrevOutFetcher(tx)
	}
	if p.hashCache == nil && sigVersion != SigVersionBase {
		p.hashCache = NewTxSigHashes(tx, p.prevOutFetcher)
	}

	// OP_ROLL removes from the middle of the stack, which the linked list
	// storage does in constant time.
	rollHeavy := p.script.hasOpcode(OP_ROLL)
	verifyMinimal := p.hasFlag(ScriptVerifyMinimalData)
	p.dstack = newStack(newStackStore(rollHeavy, p.debug, "dstack"),
		verifyMinimal)
	p.astack = newStack(newStackStore(rollHeavy, p.debug, "astack"),
		verifyMinimal)
	for _, item := range p.seed {
		p.dstack.PushByteArray(item)
	}

	return p, nil
}

// hasFlag returns whether the program has the passed flag set.
func (p *Program) hasFlag(flag ScriptFlags) bool {
	return p.flags&flag == flag
}

// isBranchExecuting returns whether or not the current conditional branch is
// actively executing.  For example, when the data stack has an OP_FALSE on it
// and an OP_IF is encountered, the branch is inactive until an OP_ELSE or
// OP_ENDIF is encountered.  It properly handles nested conditionals.
func (p *Program) isBranchExecuting() bool {
	if len(p.condStack) == 0 {
		return true
	}
	return p.condStack[len(p.condStack)-1] == OpCondTrue
}

// isWitnessVersionActive returns true if a witness program was actively
// executed with the passed signature rules.
func (p *Program) isWitnessVersionActive(sigVersion SigVersion) bool {
	return p.sigVersion == sigVersion
}

// subScript returns the script bytes following the last executed
// OP_CODESEPARATOR.
func (p *Program) subScript() []byte {
	return p.script.Bytes()[p.lastCodeSep:]
}

// Script returns the script the program evaluates.
func (p *Program) Script() *Script {
	return p.script
}

// SigVersion returns the signature rules the program evaluates under.
func (p *Program) SigVersion() SigVersion {
	return p.sigVersion
}

// Stack returns the contents of the primary stack as an array, where the last
// item in the array is the top of the stack.
func (p *Program) Stack() [][]byte {
	return p.dstack.items()
}

// AltStack returns the contents of the alternate stack as an array, where the
// last item in the array is the top of the stack.
func (p *Program) AltStack() [][]byte {
	return p.astack.items()
}

// checkFinalStack returns an error unless the data stack left by the program
// has a true top element.  When cleanStack is set, the top element must also
// be the only one.
func (p *Program) checkFinalStack(cleanStack bool) error {
	if cleanStack && p.dstack.Depth() != 1 {
		str := fmt.Sprintf("stack must contain exactly one item (contains "+
			"%d)", p.dstack.Depth())
		return scriptError(ErrCleanStack, str)
	}
	if p.dstack.Depth() < 1 {
		return scriptError(ErrEmptyStack,
			"stack empty at end of script execution")
	}

	v, err := p.dstack.PeekBool(0)
	if err != nil {
		return err
	}
	if !v {
		log.Tracef("%v", newLogClosure(func() string {
			return fmt.Sprintf("script %v evaluated to false for "+
				"input %d of %v", p.script, p.txIdx, p.tx.TxHash())
		}))
		return scriptError(ErrEvalFalse,
			"false stack entry at end of script execution")
	}
	return nil
}
