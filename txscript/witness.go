// Copyright (c) 2013-2022 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/btcsuite/btcscript/wire"
)

const (
	// TaprootAnnexTag is the tag for an annex. This value is used to
	// identify the annex during tapscript spends. If there're at least two
	// elements in the taproot witness stack, and the first byte of the
	// last element matches this tag, then we'll extract this as a
	// distinct item.
	TaprootAnnexTag = 0x50

	// BaseSegwitWitnessVersion is the original witness version that
	// defines the initial set of segwit validation logic.
	BaseSegwitWitnessVersion = 0

	// TaprootWitnessVersion is the witness version that defines the new
	// taproot verification logic.
	TaprootWitnessVersion = 1
)

// isAnnexedWitness returns true if the passed witness has a final push
// that is a witness annex.
func isAnnexedWitness(witness wire.TxWitness) bool {
	if len(witness) < 2 {
		return false
	}

	lastElement := witness[len(witness)-1]
	return len(lastElement) > 0 && lastElement[0] == TaprootAnnexTag
}

// extractAnnex attempts to extract the annex from the passed witness. If the
// witness doesn't contain an annex, then an error is returned.
func extractAnnex(witness wire.TxWitness) ([]byte, error) {
	if !isAnnexedWitness(witness) {
		return nil, scriptError(ErrWitnessHasNoAnnex, "")
	}

	lastElement := witness[len(witness)-1]
	return lastElement, nil
}

// witnessSpend is the result of resolving a witness program against the
// witness of the spending input.
type witnessSpend struct {
	// script is the script to execute and stack its initial data stack.
	script []byte
	stack  [][]byte

	// sigVersion selects the signature rules of the execution.
	sigVersion SigVersion

	// keySpendSig is set for a taproot key path spend, in which case no
	// script is executed.
	keySpendSig []byte

	// unconditional is set when the spend succeeds without execution
	// under the current rules.
	unconditional bool
}

// p2wpkhScript returns the script executed for a version 0 pay-to-pubkey-hash
// program: DUP HASH160 <program> EQUALVERIFY CHECKSIG.
func p2wpkhScript(pubKeyHash []byte) []byte {
	script := make([]byte, 0, 25)
	script = append(script, OP_DUP, OP_HASH160, OP_DATA_20)
	script = append(script, pubKeyHash...)
	return append(script, OP_EQUALVERIFY, OP_CHECKSIG)
}

// extractScriptAndStack resolves the script and initial stack a witness
// program commits to.  The witness is never modified.
func extractScriptAndStack(witness wire.TxWitness, version int,
	program []byte, isP2SH bool, flags ScriptFlags) (*witnessSpend, error) {

	switch {
	case version == BaseSegwitWitnessVersion &&
		len(program) == witnessV0PubKeyHashLen:

		if len(witness) != 2 {
			str := fmt.Sprintf("should have exactly two items in "+
				"witness, instead have %d", len(witness))
			return nil, scriptError(ErrWitnessProgramMismatch, str)
		}
		return &witnessSpend{
			script:     p2wpkhScript(program),
			stack:      witness,
			sigVersion: SigVersionWitnessV0,
		}, nil

	case version == BaseSegwitWitnessVersion &&
		len(program) == witnessV0ScriptHashLen:

		if len(witness) == 0 {
			return nil, scriptError(ErrWitnessProgramEmpty,
				"witness program empty passed empty witness")
		}

		// The witness script is the last element of the witness stack
		// and must hash to the program.
		witnessScript := witness[len(witness)-1]
		witnessHash := sha256.Sum256(witnessScript)
		if !bytes.Equal(witnessHash[:], program) {
			return nil, scriptError(ErrWitnessProgramMismatch,
				"witness program hash mismatch")
		}
		return &witnessSpend{
			script:     witnessScript,
			stack:      witness[:len(witness)-1],
			sigVersion: SigVersionWitnessV0,
		}, nil

	case version == BaseSegwitWitnessVersion:
		str := fmt.Sprintf("length of witness program must either be "+
			"%v or %v bytes, instead is %v bytes",
			witnessV0PubKeyHashLen, witnessV0ScriptHashLen,
			len(program))
		return nil, scriptError(ErrWitnessProgramWrongLength, str)

	case version == TaprootWitnessVersion &&
		len(program) == witnessV1TaprootLen && !isP2SH &&
		flags.hasFlag(ScriptVerifyTaproot):

		return extractTaprootSpend(witness, program, flags)
	}

	// Anything else is reserved for future soft forks and succeeds.  This
	// includes a 32-byte version 1 program while taproot is not active,
	// which Bitcoin Core also treats as upgradable, so the discourage flag
	// rejects it as policy only.
	if flags.hasFlag(ScriptVerifyDiscourageUpgradeableWitnessProgram) {
		str := fmt.Sprintf("new witness program versions invalid: %v",
			version)
		return nil, scriptError(ErrDiscourageUpgradableWitnessProgram, str)
	}
	return &witnessSpend{unconditional: true}, nil
}

// extractTaprootSpend resolves a version 1 witness program.  A single item
// left after removing the annex is a key path signature.  Otherwise the last
// two items are the control block and the revealed leaf script.
func extractTaprootSpend(witness wire.TxWitness, program []byte,
	flags ScriptFlags) (*witnessSpend, error) {

	if len(witness) == 0 {
		return nil, scriptError(ErrWitnessProgramEmpty,
			"witness program empty passed empty witness")
	}

	stack := witness
	if isAnnexedWitness(stack) {
		stack = stack[:len(stack)-1]
	}

	if len(stack) == 1 {
		return &witnessSpend{
			keySpendSig: stack[0],
			sigVersion:  SigVersionTaproot,
		}, nil
	}

	controlBlock := stack[len(stack)-1]
	leafScript := stack[len(stack)-2]
	ctrlBlock, err := ParseControlBlock(controlBlock)
	if err != nil {
		return nil, err
	}
	err = VerifyTaprootLeafCommitment(ctrlBlock, program, leafScript)
	if err != nil {
		return nil, err
	}

	if ctrlBlock.LeafVersion != BaseLeafVersion {
		if flags.hasFlag(ScriptVerifyDiscourageUpgradeableTaprootVersion) {
			str := fmt.Sprintf("tapscript leaf version %x is "+
				"discouraged", ctrlBlock.LeafVersion)
			return nil, scriptError(
				ErrDiscourageUpgradeableTaprootVersion, str,
			)
		}
		return &witnessSpend{unconditional: true}, nil
	}

	return &witnessSpend{
		script:     leafScript,
		stack:      stack[:len(stack)-2],
		sigVersion: SigVersionTapscript,
	}, nil
}

// taprootExecutionCtx houses the special context-specific information we
// need to validate a tapscript leaf.
type taprootExecutionCtx struct {
	annex []byte

	// codeSepPos is the opcode position of the last executed
	// OP_CODESEPARATOR, or blankCodeSepValue when none has run.
	codeSepPos uint32

	tapLeafHash chainhash.Hash

	sigOpsBudget int32
}

const (
	// sigOpsDelta is both the starting budget for sig ops for tapscript
	// verification, as well as the decrease in the total budget when we
	// encounter a signature.
	sigOpsDelta = 50

	// blankCodeSepValue is the value of the code separator position in
	// the tapscript sighash when no code separator was found in the
	// script.
	blankCodeSepValue = 0xffffffff
)

// tallysigOp attempts to decrease the current sig ops budget by sigOpsDelta.
// An error is returned if after subtracting the delta, the budget is below
// zero.
func (t *taprootExecutionCtx) tallysigOp() error {
	t.sigOpsBudget -= sigOpsDelta

	if t.sigOpsBudget < 0 {
		return scriptError(ErrTaprootMaxSigOps, "")
	}

	return nil
}

// newTaprootExecutionCtx returns the execution context for running leafScript
// as the base leaf version spent by the passed witness.  The sig op budget is
// the serialized size of the whole witness plus sigOpsDelta.
func newTaprootExecutionCtx(witness wire.TxWitness,
	leafScript []byte) *taprootExecutionCtx {

	ctx := &taprootExecutionCtx{
		codeSepPos:   blankCodeSepValue,
		tapLeafHash:  NewBaseTapLeaf(leafScript).TapHash(),
		sigOpsBudget: sigOpsDelta + int32(witness.SerializeSize()),
	}
	if isAnnexedWitness(witness) {
		ctx.annex, _ = extractAnnex(witness)
	}
	return ctx
}
