// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"
	"sort"
	"strings"
)

// ScriptFlags is a bitmask defining additional operations or tests that will
// be done when executing a script pair.  Each rule occupies its own bit.
type ScriptFlags uint32

const (
	// ScriptBip16 defines whether the bip16 threshold has passed and thus
	// pay-to-script hash transactions will be fully validated.
	ScriptBip16 ScriptFlags = 1 << iota

	// ScriptStrictMultiSig defines whether to verify the stack item
	// used by CHECKMULTISIG is zero length (bip147).
	ScriptStrictMultiSig

	// ScriptDiscourageUpgradableNops defines whether to verify that
	// NOP1 through NOP10 are reserved for future soft-fork upgrades.  This
	// flag must not be used for consensus critical code nor applied to
	// blocks as this flag is only for stricter standard transaction
	// checks.  This flag is only applied when the above opcodes are
	// executed.
	ScriptDiscourageUpgradableNops

	// ScriptVerifyCheckLockTimeVerify defines whether to verify that
	// a transaction output is spendable based on the locktime (bip65).
	ScriptVerifyCheckLockTimeVerify

	// ScriptVerifyCheckSequenceVerify defines whether to allow execution
	// pathways of a script to be restricted based on the age of the output
	// being spent (bip112).
	ScriptVerifyCheckSequenceVerify

	// ScriptVerifyCleanStack defines that the stack must contain only
	// one stack element after evaluation and that the element must be
	// true if interpreted as a boolean.  This is rule 6 of BIP0062.
	// This flag should never be used without the ScriptBip16 flag nor the
	// ScriptVerifyWitness flag.
	ScriptVerifyCleanStack

	// ScriptVerifyDERSignatures defines that signatures are required
	// to comply with the DER format (bip66).
	ScriptVerifyDERSignatures

	// ScriptVerifyLowS defines that signatures are required to comply with
	// the DER format and whose S value is <= order / 2.  This is rule 5
	// of BIP0062.
	ScriptVerifyLowS

	// ScriptVerifyMinimalData defines that signatures must use the smallest
	// push operator. This is both rules 3 and 4 of BIP0062.
	ScriptVerifyMinimalData

	// ScriptVerifyNullFail defines that signatures must be empty if
	// a CHECKSIG or CHECKMULTISIG operation fails.
	ScriptVerifyNullFail

	// ScriptVerifySigPushOnly defines that signature scripts must contain
	// only pushed data.  This is rule 2 of BIP0062.
	ScriptVerifySigPushOnly

	// ScriptVerifyStrictEncoding defines that signature scripts and
	// public keys must follow the strict encoding requirements.
	ScriptVerifyStrictEncoding

	// ScriptVerifyWitness defines whether or not to verify a transaction
	// output using a witness program template (bip141, bip143).
	ScriptVerifyWitness

	// ScriptVerifyDiscourageUpgradeableWitnessProgram makes witness
	// program with versions 2-16 non-standard.
	ScriptVerifyDiscourageUpgradeableWitnessProgram

	// ScriptVerifyMinimalIf makes a script with an OP_IF/OP_NOTIF whose
	// operand is anything other than empty vector or [0x01] non-standard.
	ScriptVerifyMinimalIf

	// ScriptVerifyWitnessPubKeyType makes a script within a check-sig
	// operation whose public key isn't serialized in a compressed format
	// non-standard.
	ScriptVerifyWitnessPubKeyType

	// ScriptVerifyTaproot defines whether or not to verify a transaction
	// output using the new taproot validation rules (bip341, bip342).
	ScriptVerifyTaproot

	// ScriptVerifyDiscourageUpgradeableTaprootVersion defines whether or
	// not to consider any new/unknown taproot leaf versions as
	// non-standard.
	ScriptVerifyDiscourageUpgradeableTaprootVersion

	// ScriptVerifyDiscourageOpSuccess defines whether or not to consider
	// usage of OP_SUCCESS op codes during tapscript execution as
	// non-standard.
	ScriptVerifyDiscourageOpSuccess

	// ScriptVerifyDiscourageUpgradeablePubkeyType defines if unknown
	// public key versions (during tapscript execution) is non-standard.
	ScriptVerifyDiscourageUpgradeablePubkeyType

	// numScriptFlags is the number of defined flag bits.
	numScriptFlags = iota
)

const (
	// ConsensusVerifyFlags are the flags every block on the main chain is
	// validated with once all deployments are active.
	ConsensusVerifyFlags = ScriptBip16 |
		ScriptStrictMultiSig |
		ScriptVerifyCheckLockTimeVerify |
		ScriptVerifyCheckSequenceVerify |
		ScriptVerifyDERSignatures |
		ScriptVerifyWitness |
		ScriptVerifyTaproot

	// StandardVerifyFlags are the script flags which are used when
	// executing transaction scripts to enforce additional checks which
	// are required for the script to be considered standard.  These checks
	// help reduce issues related to transaction malleability as well as
	// allow pay-to-script hash transactions.  Note these flags are
	// different than what is required for the consensus rules in that they
	// are more strict.
	StandardVerifyFlags = ConsensusVerifyFlags |
		ScriptDiscourageUpgradableNops |
		ScriptVerifyCleanStack |
		ScriptVerifyLowS |
		ScriptVerifyMinimalData |
		ScriptVerifyNullFail |
		ScriptVerifyStrictEncoding |
		ScriptVerifyDiscourageUpgradeableWitnessProgram |
		ScriptVerifyMinimalIf |
		ScriptVerifyWitnessPubKeyType |
		ScriptVerifyDiscourageUpgradeableTaprootVersion |
		ScriptVerifyDiscourageOpSuccess |
		ScriptVerifyDiscourageUpgradeablePubkeyType
)

// scriptFlagNames maps the conventional rule names used by script test
// vectors and configuration files to their flag.
var scriptFlagNames = map[string]ScriptFlags{
	"P2SH":                                  ScriptBip16,
	"NULLDUMMY":                             ScriptStrictMultiSig,
	"DISCOURAGE_UPGRADABLE_NOPS":            ScriptDiscourageUpgradableNops,
	"CHECKLOCKTIMEVERIFY":                   ScriptVerifyCheckLockTimeVerify,
	"CHECKSEQUENCEVERIFY":                   ScriptVerifyCheckSequenceVerify,
	"CLEANSTACK":                            ScriptVerifyCleanStack,
	"DERSIG":                                ScriptVerifyDERSignatures,
	"LOW_S":                                 ScriptVerifyLowS,
	"MINIMALDATA":                           ScriptVerifyMinimalData,
	"NULLFAIL":                              ScriptVerifyNullFail,
	"SIGPUSHONLY":                           ScriptVerifySigPushOnly,
	"STRICTENC":                             ScriptVerifyStrictEncoding,
	"WITNESS":                               ScriptVerifyWitness,
	"DISCOURAGE_UPGRADABLE_WITNESS_PROGRAM": ScriptVerifyDiscourageUpgradeableWitnessProgram,
	"MINIMALIF":                             ScriptVerifyMinimalIf,
	"WITNESS_PUBKEYTYPE":                    ScriptVerifyWitnessPubKeyType,
	"TAPROOT":                               ScriptVerifyTaproot,
	"DISCOURAGE_UPGRADABLE_TAPROOT_VERSION": ScriptVerifyDiscourageUpgradeableTaprootVersion,
	"DISCOURAGE_OP_SUCCESS":                 ScriptVerifyDiscourageOpSuccess,
	"DISCOURAGE_UPGRADABLE_PUBKEYTYPE":      ScriptVerifyDiscourageUpgradeablePubkeyType,
	"CONSENSUS":                             ConsensusVerifyFlags,
	"STANDARD":                              StandardVerifyFlags,
}

// ParseScriptFlags parses a comma separated list of rule names such as
// "P2SH,WITNESS,TAPROOT" into the corresponding flags.  The names "NONE" and
// the empty string contribute no flags.
func ParseScriptFlags(flagStr string) (ScriptFlags, error) {
	var flags ScriptFlags
	for _, name := range strings.Split(flagStr, ",") {
		name = strings.ToUpper(strings.TrimSpace(name))
		switch name {
		case "", "NONE":
			continue
		}

		flag, ok := scriptFlagNames[name]
		if !ok {
			return 0, fmt.Errorf("invalid script flag: %s", name)
		}
		flags |= flag
	}
	return flags, nil
}

// String returns the flags as a comma separated list of rule names in bit
// order.
func (flags ScriptFlags) String() string {
	if flags == 0 {
		return "NONE"
	}

	names := make([]string, 0, numScriptFlags)
	for name, flag := range scriptFlagNames {
		// Skip aggregate names.
		if flag&(flag-1) != 0 {
			continue
		}
		if flags&flag == flag {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return scriptFlagNames[names[i]] < scriptFlagNames[names[j]]
	})
	return strings.Join(names, ",")
}

// hasFlag returns whether the flag is set in the bitmask.
func (flags ScriptFlags) hasFlag(flag ScriptFlags) bool {
	return flags&flag == flag
}
