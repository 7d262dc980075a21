// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

const (
	// MaxDataCarrierSize is the maximum number of bytes allowed in pushed
	// data to be considered a standard nulldata script.
	MaxDataCarrierSize = 80

	// minWitnessProgramSize and maxWitnessProgramSize bound the size of the
	// data push holding a witness program.
	minWitnessProgramSize = 2
	maxWitnessProgramSize = 40

	// witnessV0PubKeyHashLen and witnessV0ScriptHashLen are the program
	// lengths with defined meaning under witness version 0.
	witnessV0PubKeyHashLen = 20
	witnessV0ScriptHashLen = 32

	// witnessV1TaprootLen is the program length of a taproot output.
	witnessV1TaprootLen = 32
)

// ScriptClass is an enumeration for the list of standard types of script.
type ScriptClass byte

// Classes of script payment known about in the blockchain.
const (
	NonStandardTy         ScriptClass = iota // None of the recognized forms.
	PubKeyTy                                 // Pay pubkey.
	PubKeyHashTy                             // Pay pubkey hash.
	WitnessV0PubKeyHashTy                    // Pay witness pubkey hash.
	ScriptHashTy                             // Pay to script hash.
	WitnessV0ScriptHashTy                    // Pay to witness script hash.
	MultiSigTy                               // Multi signature.
	NullDataTy                               // Empty data-only (provably prunable).
	WitnessV1TaprootTy                       // Taproot output.
	WitnessUnknownTy                         // Witness unknown.
)

// scriptClassToName houses the human-readable strings which describe each
// script class.
var scriptClassToName = []string{
	NonStandardTy:         "nonstandard",
	PubKeyTy:              "pubkey",
	PubKeyHashTy:          "pubkeyhash",
	WitnessV0PubKeyHashTy: "witness_v0_keyhash",
	ScriptHashTy:          "scripthash",
	WitnessV0ScriptHashTy: "witness_v0_scripthash",
	MultiSigTy:            "multisig",
	NullDataTy:            "nulldata",
	WitnessV1TaprootTy:    "witness_v1_taproot",
	WitnessUnknownTy:      "witness_unknown",
}

// String implements the Stringer interface by returning the name of
// the enum script class. If the enum is invalid then "Invalid" will be
// returned.
func (t ScriptClass) String() string {
	if int(t) >= len(scriptClassToName) {
		return "Invalid"
	}
	return scriptClassToName[t]
}

// isSmallInt returns whether or not the opcode is considered a small integer,
// which is an OP_0, or OP_1 through OP_16.
func isSmallInt(op byte) bool {
	return op == OP_0 || (op >= OP_1 && op <= OP_16)
}

// asSmallInt returns the passed opcode, which must be true according to
// isSmallInt(), as an integer.
func asSmallInt(op byte) int {
	if op == OP_0 {
		return 0
	}

	return int(op - (OP_1 - 1))
}

// isStrictPubKeyEncoding returns whether the passed bytes have the size and
// prefix of a compressed or uncompressed public key.
func isStrictPubKeyEncoding(pubKey []byte) bool {
	if len(pubKey) == 33 && (pubKey[0] == 0x02 || pubKey[0] == 0x03) {
		return true
	}
	return len(pubKey) == 65 && pubKey[0] == 0x04
}

// isPubKeyScript returns whether the script is of the form
// <pubkey> OP_CHECKSIG with a strictly encoded key.
func isPubKeyScript(script []byte) bool {
	switch len(script) {
	case 35:
		return script[0] == OP_DATA_33 &&
			script[34] == OP_CHECKSIG &&
			isStrictPubKeyEncoding(script[1:34])
	case 67:
		return script[0] == OP_DATA_65 &&
			script[66] == OP_CHECKSIG &&
			isStrictPubKeyEncoding(script[1:66])
	}
	return false
}

// isPubKeyHashScript returns whether or not the passed script is a standard
// pay-to-pubkey-hash script.
func isPubKeyHashScript(script []byte) bool {
	// A pay-to-pubkey-hash script is of the form:
	//  OP_DUP OP_HASH160 <20-byte hash> OP_EQUALVERIFY OP_CHECKSIG
	return len(script) == 25 &&
		script[0] == OP_DUP &&
		script[1] == OP_HASH160 &&
		script[2] == OP_DATA_20 &&
		script[23] == OP_EQUALVERIFY &&
		script[24] == OP_CHECKSIG
}

// isScriptHashScript returns whether or not the passed script is a standard
// pay-to-script-hash script.
func isScriptHashScript(script []byte) bool {
	// A pay-to-script-hash script is of the form:
	//  OP_HASH160 <20-byte scripthash> OP_EQUAL
	return len(script) == 23 &&
		script[0] == OP_HASH160 &&
		script[1] == OP_DATA_20 &&
		script[22] == OP_EQUAL
}

// extractWitnessProgramInfo returns the version and program if the passed
// script constitutes a witness program.  A witness program is a small integer
// version opcode followed by a single direct push of 2 to 40 bytes.
func extractWitnessProgramInfo(script []byte) (int, []byte, bool) {
	if len(script) < minWitnessProgramSize+2 ||
		len(script) > maxWitnessProgramSize+2 {

		return 0, nil, false
	}
	if !isSmallInt(script[0]) {
		return 0, nil, false
	}
	if int(script[1])+2 != len(script) {
		return 0, nil, false
	}
	return asSmallInt(script[0]), script[2:], true
}

// isMultisigScript returns whether the script is a standard bare multisig
// script and, if so, the number of required signatures and public keys.
func isMultisigScript(s *Script) (int, int, bool) {
	ops := s.ops
	if s.invalid || len(ops) < 4 {
		return 0, 0, false
	}

	// A multi-signature script is of the form:
	//  NUM_SIGS PUBKEY PUBKEY PUBKEY ... NUM_PUBKEYS OP_CHECKMULTISIG
	if ops[len(ops)-1].code != OP_CHECKMULTISIG {
		return 0, 0, false
	}
	first, last := ops[0].code, ops[len(ops)-2].code
	if first == OP_0 || !isSmallInt(first) || last == OP_0 ||
		!isSmallInt(last) {

		return 0, 0, false
	}
	numSigs, numPubKeys := asSmallInt(first), asSmallInt(last)
	if numPubKeys != len(ops)-3 || numSigs > numPubKeys {
		return 0, 0, false
	}
	for _, op := range ops[1 : len(ops)-2] {
		if len(op.data) < 33 || len(op.data) > 65 {
			return 0, 0, false
		}
	}
	return numSigs, numPubKeys, true
}

// isNullDataScript returns whether the script is an OP_RETURN followed only
// by data pushes.  Such outputs are provably unspendable.
func isNullDataScript(s *Script) bool {
	if len(s.ops) == 0 || s.ops[0].code != OP_RETURN || s.invalid {
		return false
	}
	for i := range s.ops[1:] {
		if !s.ops[i+1].isPush() {
			return false
		}
	}
	return true
}

// typeOfScript returns the type of the script being inspected from the known
// standard types.
func typeOfScript(s *Script) ScriptClass {
	raw := s.raw
	switch {
	case isPubKeyHashScript(raw):
		return PubKeyHashTy
	case isScriptHashScript(raw):
		return ScriptHashTy
	case isPubKeyScript(raw):
		return PubKeyTy
	}

	if version, program, ok := extractWitnessProgramInfo(raw); ok {
		switch {
		case version == 0 && len(program) == witnessV0PubKeyHashLen:
			return WitnessV0PubKeyHashTy
		case version == 0 && len(program) == witnessV0ScriptHashLen:
			return WitnessV0ScriptHashTy
		case version == 1 && len(program) == witnessV1TaprootLen:
			return WitnessV1TaprootTy
		case version != 0:
			return WitnessUnknownTy
		}
		return NonStandardTy
	}

	if _, _, ok := isMultisigScript(s); ok {
		return MultiSigTy
	}
	if isNullDataScript(s) {
		return NullDataTy
	}
	return NonStandardTy
}

// GetScriptClass returns the class of the script passed.
//
// NonStandardTy will be returned when the script does not parse.
func GetScriptClass(script []byte) ScriptClass {
	return ParseScript(script).Class()
}

// IsPayToPubKeyHash returns true if the script is in the standard
// pay-to-pubkey-hash (P2PKH) format, false otherwise.
func IsPayToPubKeyHash(script []byte) bool {
	return isPubKeyHashScript(script)
}

// IsPayToScriptHash returns true if the script is in the standard
// pay-to-script-hash (P2SH) format, false otherwise.
func IsPayToScriptHash(script []byte) bool {
	return isScriptHashScript(script)
}

// IsPayToWitnessPubKeyHash returns true if the script is in the standard
// pay-to-witness-pubkey-hash (P2WKH) format, false otherwise.
func IsPayToWitnessPubKeyHash(script []byte) bool {
	version, program, ok := extractWitnessProgramInfo(script)
	return ok && version == 0 && len(program) == witnessV0PubKeyHashLen
}

// IsPayToWitnessScriptHash returns true if the script is in the standard
// pay-to-witness-script-hash (P2WSH) format, false otherwise.
func IsPayToWitnessScriptHash(script []byte) bool {
	version, program, ok := extractWitnessProgramInfo(script)
	return ok && version == 0 && len(program) == witnessV0ScriptHashLen
}

// IsPayToTaproot returns true if if the passed script is a standard
// pay-to-taproot (PTTR) scripts, false otherwise.
func IsPayToTaproot(script []byte) bool {
	version, program, ok := extractWitnessProgramInfo(script)
	return ok && version == 1 && len(program) == witnessV1TaprootLen
}

// IsWitnessProgram returns true if the passed script is a witness program,
// false otherwise.
func IsWitnessProgram(script []byte) bool {
	_, _, ok := extractWitnessProgramInfo(script)
	return ok
}

// ExtractWitnessProgramInfo attempts to extract the witness program version,
// as well as the witness program itself from the passed script.
func ExtractWitnessProgramInfo(script []byte) (int, []byte, error) {
	version, program, ok := extractWitnessProgramInfo(script)
	if !ok {
		return 0, nil, scriptError(ErrWitnessProgramWrongLength,
			"script is not a witness program, unable to extract "+
				"version or witness program")
	}
	return version, program, nil
}

// IsMultisigScript returns whether or not the passed script is a standard
// multisignature script.
func IsMultisigScript(script []byte) bool {
	_, _, ok := isMultisigScript(ParseScript(script))
	return ok
}

// CalcMultiSigStats returns the number of public keys and signatures from
// a multi-signature transaction script.
func CalcMultiSigStats(script []byte) (int, int, error) {
	numSigs, numPubKeys, ok := isMultisigScript(ParseScript(script))
	if !ok {
		str := "script is not a standard multisig script"
		return 0, 0, scriptError(ErrNotMultisigScript, str)
	}
	return numPubKeys, numSigs, nil
}

// IsNullData returns true if the passed script is a null data script, false
// otherwise.
func IsNullData(script []byte) bool {
	return isNullDataScript(ParseScript(script))
}

// IsPushOnlyScript returns whether or not the passed script only pushes data
// according to the consensus definition of pushing data.
//
// WARNING: This function always treats the passed script as version 0.  Great
// care must be taken if introducing a new script version because it is used
// in consensus which, unfortunately as of the time of this writing, does not
// check script versions before checking if it is a push only script which
// means nodes on existing rules will treat new version scripts as if they were
// version 0.
func IsPushOnlyScript(script []byte) bool {
	return ParseScript(script).IsPushOnly()
}

// PushedData returns an array of byte slices containing any pushed data found
// in the passed script.  This includes OP_0, but not OP_1 - OP_16.
func PushedData(script []byte) ([][]byte, error) {
	s := ParseScript(script)
	if s.invalid {
		return nil, scriptError(ErrMalformedPush,
			"script ends with a truncated push")
	}

	var data [][]byte
	for _, op := range s.ops {
		if op.data != nil {
			data = append(data, op.data)
		} else if op.code == OP_0 {
			data = append(data, nil)
		}
	}
	return data, nil
}

// payToPubKeyHashScript creates a new script to pay a transaction
// output to a 20-byte pubkey hash. It is expected that the input is a valid
// hash.
func payToPubKeyHashScript(pubKeyHash []byte) ([]byte, error) {
	return NewScriptBuilder().AddOp(OP_DUP).AddOp(OP_HASH160).
		AddData(pubKeyHash).AddOp(OP_EQUALVERIFY).AddOp(OP_CHECKSIG).
		Script()
}

// PayToPubKeyHashScript creates a new pay-to-pubkey-hash script for the
// passed 20-byte hash.
func PayToPubKeyHashScript(pubKeyHash []byte) ([]byte, error) {
	if len(pubKeyHash) != 20 {
		str := fmt.Sprintf("pubkey hash is %d bytes instead of 20",
			len(pubKeyHash))
		return nil, ErrScriptNotCanonical(str)
	}
	return payToPubKeyHashScript(pubKeyHash)
}

// PayToWitnessPubKeyHashScript creates a new script to pay to a version 0
// pubkey hash witness program. The passed hash is expected to be valid.
func PayToWitnessPubKeyHashScript(pubKeyHash []byte) ([]byte, error) {
	if len(pubKeyHash) != witnessV0PubKeyHashLen {
		str := fmt.Sprintf("witness pubkey hash is %d bytes instead "+
			"of %d", len(pubKeyHash), witnessV0PubKeyHashLen)
		return nil, ErrScriptNotCanonical(str)
	}
	return NewScriptBuilder().AddOp(OP_0).AddData(pubKeyHash).Script()
}

// PayToScriptHashScript creates a new script to pay a transaction output to a
// script hash. It is expected that the input is a valid hash.
func PayToScriptHashScript(scriptHash []byte) ([]byte, error) {
	if len(scriptHash) != 20 {
		str := fmt.Sprintf("script hash is %d bytes instead of 20",
			len(scriptHash))
		return nil, ErrScriptNotCanonical(str)
	}
	return NewScriptBuilder().AddOp(OP_HASH160).AddData(scriptHash).
		AddOp(OP_EQUAL).Script()
}

// PayToWitnessScriptHashScript creates a new script to pay to a version 0
// script hash witness program. The passed hash is expected to be valid.
func PayToWitnessScriptHashScript(scriptHash []byte) ([]byte, error) {
	if len(scriptHash) != witnessV0ScriptHashLen {
		str := fmt.Sprintf("witness script hash is %d bytes instead "+
			"of %d", len(scriptHash), witnessV0ScriptHashLen)
		return nil, ErrScriptNotCanonical(str)
	}
	return NewScriptBuilder().AddOp(OP_0).AddData(scriptHash).Script()
}

// PayToTaprootScript creates a pk script for a pay-to-taproot output key.
func PayToTaprootScript(taprootKey *btcec.PublicKey) ([]byte, error) {
	return NewScriptBuilder().
		AddOp(OP_1).
		AddData(schnorr.SerializePubKey(taprootKey)).
		Script()
}

// PayToPubKeyScript creates a new script to pay a transaction output to the
// passed serialized public key.
func PayToPubKeyScript(serializedPubKey []byte) ([]byte, error) {
	if !isStrictPubKeyEncoding(serializedPubKey) {
		return nil, ErrScriptNotCanonical("public key is not a strictly " +
			"encoded compressed or uncompressed key")
	}
	return NewScriptBuilder().AddData(serializedPubKey).
		AddOp(OP_CHECKSIG).Script()
}

// MultiSigScript returns a valid script for a multisignature redemption where
// nrequired of the keys in pubkeys are required to have signed the transaction
// for success.  An Error with the error code ErrTooManyRequiredSigs will be
// returned if nrequired is larger than the number of keys provided.
func MultiSigScript(pubKeys [][]byte, nrequired int) ([]byte, error) {
	if len(pubKeys) < nrequired {
		str := fmt.Sprintf("unable to generate multisig script with "+
			"%d required signatures when there are only %d public "+
			"keys available", nrequired, len(pubKeys))
		return nil, scriptError(ErrTooManyRequiredSigs, str)
	}
	if len(pubKeys) > MaxPubKeysPerMultiSig {
		str := fmt.Sprintf("unable to generate multisig script with "+
			"%d public keys, the maximum is %d", len(pubKeys),
			MaxPubKeysPerMultiSig)
		return nil, scriptError(ErrInvalidPubKeyCount, str)
	}

	builder := NewScriptBuilder().AddInt64(int64(nrequired))
	for _, key := range pubKeys {
		builder.AddData(key)
	}
	builder.AddInt64(int64(len(pubKeys)))
	builder.AddOp(OP_CHECKMULTISIG)

	return builder.Script()
}

// NullDataScript creates a provably-prunable script containing OP_RETURN
// followed by the passed data.  An Error with the error code ErrTooMuchNullData
// will be returned if the length of the passed data exceeds MaxDataCarrierSize.
func NullDataScript(data []byte) ([]byte, error) {
	if len(data) > MaxDataCarrierSize {
		str := fmt.Sprintf("data size %d is larger than max "+
			"allowed size %d", len(data), MaxDataCarrierSize)
		return nil, scriptError(ErrTooMuchNullData, str)
	}

	return NewScriptBuilder().AddOp(OP_RETURN).AddData(data).Script()
}
