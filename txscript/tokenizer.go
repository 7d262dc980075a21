// Copyright (c) 2019 The Decred developers
// Copyright (c) 2019-2022 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"encoding/binary"
	"fmt"
)

// scriptTokenizer walks a raw script one opcode at a time without allocating.
// Next returns false once the script is exhausted or a malformed push is
// found, in which case Err reports the failure and ByteIndex points at the
// offending opcode.
type scriptTokenizer struct {
	script []byte
	offset int32
	opIdx  int32
	op     *opcode
	data   []byte
	err    error
}

// makeScriptTokenizer returns a tokenizer positioned at the start of script.
func makeScriptTokenizer(script []byte) scriptTokenizer {
	return scriptTokenizer{script: script, opIdx: -1}
}

// Done returns true when either all opcodes have been exhausted or a parse
// failure was encountered and therefore the state has an associated error.
func (t *scriptTokenizer) Done() bool {
	return t.err != nil || t.offset >= int32(len(t.script))
}

// Next attempts to parse the next opcode and returns whether or not it was
// successful.  On success the opcode and data are available through Opcode
// and Data and the offset points at the next opcode.  On failure the offset
// still points at the opcode that could not be parsed.
func (t *scriptTokenizer) Next() bool {
	if t.Done() {
		return false
	}

	op := &opcodeArray[t.script[t.offset]]
	switch {
	// No additional data.  Note that some of the opcodes, notably OP_1NEGATE,
	// OP_0, and OP_[1-16] represent the data themselves.
	case op.length == 1:
		t.offset++
		t.opIdx++
		t.op = op
		t.data = nil
		return true

	// Data pushes of specific lengths -- OP_DATA_[1-75].
	case op.length > 1:
		script := t.script[t.offset:]
		if len(script) < op.length {
			str := fmt.Sprintf("opcode %s requires %d bytes, but script only "+
				"has %d remaining", op.name, op.length, len(script))
			t.err = scriptError(ErrMalformedPush, str)
			return false
		}

		t.offset += int32(op.length)
		t.opIdx++
		t.op = op
		t.data = script[1:op.length]
		return true

	// Data pushes with parsed lengths -- OP_PUSHDATA{1,2,4}.
	case op.length < 0:
		script := t.script[t.offset+1:]
		if len(script) < -op.length {
			str := fmt.Sprintf("opcode %s requires %d bytes, but script only "+
				"has %d remaining", op.name, -op.length, len(script))
			t.err = scriptError(ErrMalformedPush, str)
			return false
		}

		// Next -length bytes are little endian length of data.
		var dataLen int64
		switch op.length {
		case -1:
			dataLen = int64(script[0])
		case -2:
			dataLen = int64(binary.LittleEndian.Uint16(script[:2]))
		case -4:
			dataLen = int64(binary.LittleEndian.Uint32(script[:4]))
		}

		script = script[-op.length:]
		if dataLen > int64(len(script)) {
			str := fmt.Sprintf("opcode %s pushes %d bytes, but script only "+
				"has %d remaining", op.name, dataLen, len(script))
			t.err = scriptError(ErrMalformedPush, str)
			return false
		}

		t.offset += 1 + int32(-op.length) + int32(dataLen)
		t.opIdx++
		t.op = op
		t.data = script[:dataLen]
		return true
	}

	// The only remaining case is an opcode with length zero which is
	// impossible.
	panic("unreachable")
}

// ByteIndex returns the current offset into the full script that will be
// parsed next.
func (t *scriptTokenizer) ByteIndex() int32 {
	return t.offset
}

// OpcodePosition returns the index of the most recently parsed opcode.
func (t *scriptTokenizer) OpcodePosition() int32 {
	return t.opIdx
}

// Opcode returns the current opcode associated with the tokenizer.
func (t *scriptTokenizer) Opcode() byte {
	return t.op.value
}

// Data returns the data associated with the most recently successfully parsed
// opcode.
func (t *scriptTokenizer) Data() []byte {
	return t.data
}

// Err returns any errors currently associated with the tokenizer.
func (t *scriptTokenizer) Err() error {
	return t.err
}
