// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package txscript implements the bitcoin transaction script language and the
consensus rules that decide whether a transaction input may spend the output
it references.

# Script Overview

Bitcoin transaction scripts are written in a stack-base, FORTH-like language.

The bitcoin script language consists of a number of opcodes which fall into
several categories such pushing and popping data to and from the stack,
performing basic and bitwise arithmetic, conditional branching, comparing
hashes, and checking cryptographic signatures.  Scripts are processed from left
to right and intentionally do not provide loops.

Scripts are parsed once into a Script, which never fails to parse: a
truncated push is kept as a trailing malformed operation that only fails once
it is executed.  A Program pairs a Script with the transaction input it is
evaluated for, and Run executes it.

# Connecting Inputs

Connect performs the full validation of one input: the input script, the
script of the spent output, an embedded pay-to-script-hash script and the
version 0 witness or taproot program, each under the rules selected by the
ScriptFlags.  The spent output must be attached to the input beforehand as
its Prevout.

Signature hashes for the legacy, BIP0143 and BIP0341 schemes are computed by
CalcSignatureHash, CalcWitnessSigHash and CalcTaprootSignatureHash.  The
per-transaction midstates are computed once by NewTxSigHashes and can be
shared by every input of a transaction.

# Errors

Errors returned by this package are of type txscript.Error and carry an
ErrorCode identifying the rule that failed.  IsErrorCode reports whether an
error carries a given code.
*/
package txscript
