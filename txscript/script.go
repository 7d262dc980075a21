// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// These are the constants specified for maximums in individual scripts.
const (
	MaxOpsPerScript       = 201 // Max number of non-push operations.
	MaxPubKeysPerMultiSig = 20  // Multisig can't have more sigs than this.
	MaxScriptElementSize  = 520 // Max bytes pushable to the stack.

	// MaxScriptSize is the maximum allowed length of a raw script executed
	// under the legacy or witness v0 rules.
	MaxScriptSize = 10000

	// MaxStackSize is the maximum combined height of stack and alt stack
	// during execution.
	MaxStackSize = 1000

	// LockTimeThreshold is the number below which a lock time is
	// interpreted to be a block number.  Since an average of one block
	// is generated per 10 minutes, this allows blocks for about 9,512
	// years.
	LockTimeThreshold = 5e8 // Tue Nov 5 00:53:20 1985 UTC
)

// Operation is a single parsed script element: an opcode together with the
// data it pushes, if any.
type Operation struct {
	code   byte
	data   []byte
	offset int

	// size is the number of raw script bytes the operation occupies.
	size int

	// malformed is set on the trailing operation of a script whose final
	// push is truncated.  Its data holds the raw remaining bytes.
	malformed bool
}

// Opcode returns the opcode value of the operation.
func (o *Operation) Opcode() byte {
	return o.code
}

// Data returns the data pushed by the operation.
func (o *Operation) Data() []byte {
	return o.data
}

// Malformed returns whether the operation is a truncated push.
func (o *Operation) Malformed() bool {
	return o.malformed
}

// Name returns the human-readable opcode name.
func (o *Operation) Name() string {
	return opcodeArray[o.code].name
}

func (o *Operation) opcode() *opcode {
	return &opcodeArray[o.code]
}

// isPush returns whether the operation counts as a push for the push-only
// rule.  OP_RESERVED is considered a push since it sits below OP_16.
func (o *Operation) isPush() bool {
	return !o.malformed && o.code <= OP_16
}

// Script is an immutable parsed script.  Parsing never fails: a truncated
// push marks the script as invalid and is kept as a trailing malformed
// operation so the raw bytes are preserved exactly.
type Script struct {
	raw      []byte
	ops      []Operation
	invalid  bool
	pushOnly bool
	class    ScriptClass
}

// ParseScript parses raw into a Script.  The bytes are copied, so the caller
// is free to reuse raw afterward.
func ParseScript(raw []byte) *Script {
	s := &Script{raw: make([]byte, len(raw))}
	copy(s.raw, raw)

	var prevOffset int32
	tokenizer := makeScriptTokenizer(s.raw)
	for tokenizer.Next() {
		s.ops = append(s.ops, Operation{
			code:   tokenizer.Opcode(),
			data:   tokenizer.Data(),
			offset: int(prevOffset),
			size:   int(tokenizer.ByteIndex() - prevOffset),
		})
		prevOffset = tokenizer.ByteIndex()
	}
	if tokenizer.Err() != nil {
		s.invalid = true
		s.ops = append(s.ops, Operation{
			code:      s.raw[prevOffset],
			data:      s.raw[prevOffset+1:],
			offset:    int(prevOffset),
			size:      len(s.raw) - int(prevOffset),
			malformed: true,
		})
	}

	s.pushOnly = true
	for i := range s.ops {
		if !s.ops[i].isPush() {
			s.pushOnly = false
			break
		}
	}
	s.class = typeOfScript(s)

	return s
}

// Bytes returns the serialized script.  The returned slice must not be
// modified.
func (s *Script) Bytes() []byte {
	return s.raw
}

// Ops returns the parsed operations.  The returned slice must not be
// modified.
func (s *Script) Ops() []Operation {
	return s.ops
}

// Invalid returns whether the script contains a truncated push.
func (s *Script) Invalid() bool {
	return s.invalid
}

// IsPushOnly returns whether the script only pushes data.  An invalid script
// is never push only.
func (s *Script) IsPushOnly() bool {
	return s.pushOnly
}

// Class returns the standard script class of the script.
func (s *Script) Class() ScriptClass {
	return s.class
}

// SerializeSize returns the number of bytes the script occupies.
func (s *Script) SerializeSize() int {
	return len(s.raw)
}

// hasOpcode returns whether any operation of the script uses code.
func (s *Script) hasOpcode(code byte) bool {
	for i := range s.ops {
		if s.ops[i].code == code {
			return true
		}
	}
	return false
}

// String returns the one-line disassembly of the script.
func (s *Script) String() string {
	var buf strings.Builder
	for i := range s.ops {
		if i > 0 {
			buf.WriteByte(' ')
		}
		op := &s.ops[i]
		if op.malformed {
			buf.WriteString("[error]")
			break
		}
		disasmOpcode(&buf, op.opcode(), op.data, true)
	}
	return buf.String()
}

// DisasmString formats a disassembled script for one line printing.  When the
// script fails to parse, the returned string will contain the disassembled
// script up to the point the failure occurred along with the string '[error]'
// appended.  In addition, the reason the script failed to parse is returned
// if the caller wants more information about the failure.
func DisasmString(script []byte) (string, error) {
	s := ParseScript(script)
	if s.invalid {
		return s.String(), scriptError(ErrMalformedPush,
			"script ends with a truncated push")
	}
	return s.String(), nil
}

// checkMinimalDataPush returns whether or not the provided opcode is the
// smallest possible way to represent the given data.  For example, the value
// 15 could be pushed with OP_DATA_1 15 (among other variations); however,
// OP_15 is a single opcode that represents the same value and is only a
// single byte versus two bytes.
func checkMinimalDataPush(op *opcode, data []byte) error {
	opcodeVal := op.value
	dataLen := len(data)
	switch {
	case dataLen == 0 && opcodeVal != OP_0:
		str := fmt.Sprintf("zero length data push is encoded with opcode %s "+
			"instead of OP_0", op.name)
		return scriptError(ErrMinimalData, str)
	case dataLen == 1 && data[0] >= 1 && data[0] <= 16:
		if opcodeVal != OP_1+data[0]-1 {
			// Should have used OP_1 .. OP_16
			str := fmt.Sprintf("data push of the value %d encoded with opcode "+
				"%s instead of OP_%d", data[0], op.name, data[0])
			return scriptError(ErrMinimalData, str)
		}
	case dataLen == 1 && data[0] == 0x81:
		if opcodeVal != OP_1NEGATE {
			str := fmt.Sprintf("data push of the value -1 encoded with opcode "+
				"%s instead of OP_1NEGATE", op.name)
			return scriptError(ErrMinimalData, str)
		}
	case dataLen <= 75:
		if int(opcodeVal) != dataLen {
			// Should have used a direct push
			str := fmt.Sprintf("data push of %d bytes encoded with opcode %s "+
				"instead of OP_DATA_%d", dataLen, op.name, dataLen)
			return scriptError(ErrMinimalData, str)
		}
	case dataLen <= 255:
		if opcodeVal != OP_PUSHDATA1 {
			str := fmt.Sprintf("data push of %d bytes encoded with opcode %s "+
				"instead of OP_PUSHDATA1", dataLen, op.name)
			return scriptError(ErrMinimalData, str)
		}
	case dataLen <= 65535:
		if opcodeVal != OP_PUSHDATA2 {
			str := fmt.Sprintf("data push of %d bytes encoded with opcode %s "+
				"instead of OP_PUSHDATA2", dataLen, op.name)
			return scriptError(ErrMinimalData, str)
		}
	}
	return nil
}

// serializePush returns the push encoding of data the way the reference
// client serializes a byte vector into a script.  Unlike canonical pushes,
// small values are never replaced with OP_N.
func serializePush(data []byte) []byte {
	dataLen := len(data)
	var prefix []byte
	switch {
	case dataLen < OP_PUSHDATA1:
		prefix = []byte{byte(dataLen)}
	case dataLen <= 0xff:
		prefix = []byte{OP_PUSHDATA1, byte(dataLen)}
	case dataLen <= 0xffff:
		prefix = make([]byte, 3)
		prefix[0] = OP_PUSHDATA2
		binary.LittleEndian.PutUint16(prefix[1:], uint16(dataLen))
	default:
		prefix = make([]byte, 5)
		prefix[0] = OP_PUSHDATA4
		binary.LittleEndian.PutUint32(prefix[1:], uint32(dataLen))
	}
	return append(prefix, data...)
}

// findAndDelete removes every occurrence of the serialized push of sig from
// script.  Matches are only considered at operation boundaries and a match
// may repeat at the same boundary once the preceding one is removed.  A
// truncated tail is copied through untouched.
func findAndDelete(script []byte, sig []byte) []byte {
	if len(script) == 0 || len(sig) == 0 {
		return script
	}
	pattern := serializePush(sig)

	var result []byte
	var prevOffset int32
	found := false
	tokenizer := makeScriptTokenizer(script)
	for {
		// Consume every copy of the pattern at this boundary.
		for bytes.HasPrefix(script[prevOffset:], pattern) {
			if !found {
				result = make([]byte, 0, len(script))
				result = append(result, script[:prevOffset]...)
				found = true
			}
			prevOffset += int32(len(pattern))
			tokenizer = makeScriptTokenizer(script)
			tokenizer.offset = prevOffset
		}
		if !tokenizer.Next() {
			break
		}
		if found {
			result = append(result, script[prevOffset:tokenizer.ByteIndex()]...)
		}
		prevOffset = tokenizer.ByteIndex()
	}
	if !found {
		return script
	}
	return append(result, script[prevOffset:]...)
}

// removeCodeSeparators returns the script bytes starting at offset with all
// OP_CODESEPARATOR opcodes removed.
func (s *Script) removeCodeSeparators(offset int) []byte {
	result := make([]byte, 0, len(s.raw)-offset)
	for i := range s.ops {
		op := &s.ops[i]
		if op.offset < offset {
			continue
		}
		if op.code == OP_CODESEPARATOR && !op.malformed {
			continue
		}
		result = append(result, s.raw[op.offset:op.offset+op.size]...)
	}
	return result
}
