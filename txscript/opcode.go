// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/crypto/ripemd160"

	"github.com/btcsuite/btcscript/wire"
)

// An opcode defines the information related to a txscript opcode.  length is
// the total encoded size of a fixed length push, or the negated size of the
// length prefix for the OP_PUSHDATA family.  opfunc is the handler invoked
// when the opcode is executed.
type opcode struct {
	value  byte
	name   string
	length int
	opfunc func(*opcode, []byte, *Program) error
}

// These constants are the values of the official opcodes used on the btc wiki,
// in bitcoin core and in most if not all other references and software related
// to handling BTC scripts.
const (
	OP_0                   = 0x00
	OP_FALSE               = 0x00
	OP_DATA_1              = 0x01
	OP_DATA_2              = 0x02
	OP_DATA_3              = 0x03
	OP_DATA_4              = 0x04
	OP_DATA_5              = 0x05
	OP_DATA_6              = 0x06
	OP_DATA_7              = 0x07
	OP_DATA_8              = 0x08
	OP_DATA_9              = 0x09
	OP_DATA_10             = 0x0a
	OP_DATA_11             = 0x0b
	OP_DATA_12             = 0x0c
	OP_DATA_13             = 0x0d
	OP_DATA_14             = 0x0e
	OP_DATA_15             = 0x0f
	OP_DATA_16             = 0x10
	OP_DATA_17             = 0x11
	OP_DATA_18             = 0x12
	OP_DATA_19             = 0x13
	OP_DATA_20             = 0x14
	OP_DATA_21             = 0x15
	OP_DATA_22             = 0x16
	OP_DATA_23             = 0x17
	OP_DATA_24             = 0x18
	OP_DATA_25             = 0x19
	OP_DATA_26             = 0x1a
	OP_DATA_27             = 0x1b
	OP_DATA_28             = 0x1c
	OP_DATA_29             = 0x1d
	OP_DATA_30             = 0x1e
	OP_DATA_31             = 0x1f
	OP_DATA_32             = 0x20
	OP_DATA_33             = 0x21
	OP_DATA_34             = 0x22
	OP_DATA_35             = 0x23
	OP_DATA_36             = 0x24
	OP_DATA_37             = 0x25
	OP_DATA_38             = 0x26
	OP_DATA_39             = 0x27
	OP_DATA_40             = 0x28
	OP_DATA_41             = 0x29
	OP_DATA_42             = 0x2a
	OP_DATA_43             = 0x2b
	OP_DATA_44             = 0x2c
	OP_DATA_45             = 0x2d
	OP_DATA_46             = 0x2e
	OP_DATA_47             = 0x2f
	OP_DATA_48             = 0x30
	OP_DATA_49             = 0x31
	OP_DATA_50             = 0x32
	OP_DATA_51             = 0x33
	OP_DATA_52             = 0x34
	OP_DATA_53             = 0x35
	OP_DATA_54             = 0x36
	OP_DATA_55             = 0x37
	OP_DATA_56             = 0x38
	OP_DATA_57             = 0x39
	OP_DATA_58             = 0x3a
	OP_DATA_59             = 0x3b
	OP_DATA_60             = 0x3c
	OP_DATA_61             = 0x3d
	OP_DATA_62             = 0x3e
	OP_DATA_63             = 0x3f
	OP_DATA_64             = 0x40
	OP_DATA_65             = 0x41
	OP_DATA_66             = 0x42
	OP_DATA_67             = 0x43
	OP_DATA_68             = 0x44
	OP_DATA_69             = 0x45
	OP_DATA_70             = 0x46
	OP_DATA_71             = 0x47
	OP_DATA_72             = 0x48
	OP_DATA_73             = 0x49
	OP_DATA_74             = 0x4a
	OP_DATA_75             = 0x4b
	OP_PUSHDATA1           = 0x4c
	OP_PUSHDATA2           = 0x4d
	OP_PUSHDATA4           = 0x4e
	OP_1NEGATE             = 0x4f
	OP_RESERVED            = 0x50
	OP_1                   = 0x51
	OP_TRUE                = 0x51
	OP_2                   = 0x52
	OP_3                   = 0x53
	OP_4                   = 0x54
	OP_5                   = 0x55
	OP_6                   = 0x56
	OP_7                   = 0x57
	OP_8                   = 0x58
	OP_9                   = 0x59
	OP_10                  = 0x5a
	OP_11                  = 0x5b
	OP_12                  = 0x5c
	OP_13                  = 0x5d
	OP_14                  = 0x5e
	OP_15                  = 0x5f
	OP_16                  = 0x60
	OP_NOP                 = 0x61
	OP_VER                 = 0x62
	OP_IF                  = 0x63
	OP_NOTIF               = 0x64
	OP_VERIF               = 0x65
	OP_VERNOTIF            = 0x66
	OP_ELSE                = 0x67
	OP_ENDIF               = 0x68
	OP_VERIFY              = 0x69
	OP_RETURN              = 0x6a
	OP_TOALTSTACK          = 0x6b
	OP_FROMALTSTACK        = 0x6c
	OP_2DROP               = 0x6d
	OP_2DUP                = 0x6e
	OP_3DUP                = 0x6f
	OP_2OVER               = 0x70
	OP_2ROT                = 0x71
	OP_2SWAP               = 0x72
	OP_IFDUP               = 0x73
	OP_DEPTH               = 0x74
	OP_DROP                = 0x75
	OP_DUP                 = 0x76
	OP_NIP                 = 0x77
	OP_OVER                = 0x78
	OP_PICK                = 0x79
	OP_ROLL                = 0x7a
	OP_ROT                 = 0x7b
	OP_SWAP                = 0x7c
	OP_TUCK                = 0x7d
	OP_CAT                 = 0x7e
	OP_SUBSTR              = 0x7f
	OP_LEFT                = 0x80
	OP_RIGHT               = 0x81
	OP_SIZE                = 0x82
	OP_INVERT              = 0x83
	OP_AND                 = 0x84
	OP_OR                  = 0x85
	OP_XOR                 = 0x86
	OP_EQUAL               = 0x87
	OP_EQUALVERIFY         = 0x88
	OP_RESERVED1           = 0x89
	OP_RESERVED2           = 0x8a
	OP_1ADD                = 0x8b
	OP_1SUB                = 0x8c
	OP_2MUL                = 0x8d
	OP_2DIV                = 0x8e
	OP_NEGATE              = 0x8f
	OP_ABS                 = 0x90
	OP_NOT                 = 0x91
	OP_0NOTEQUAL           = 0x92
	OP_ADD                 = 0x93
	OP_SUB                 = 0x94
	OP_MUL                 = 0x95
	OP_DIV                 = 0x96
	OP_MOD                 = 0x97
	OP_LSHIFT              = 0x98
	OP_RSHIFT              = 0x99
	OP_BOOLAND             = 0x9a
	OP_BOOLOR              = 0x9b
	OP_NUMEQUAL            = 0x9c
	OP_NUMEQUALVERIFY      = 0x9d
	OP_NUMNOTEQUAL         = 0x9e
	OP_LESSTHAN            = 0x9f
	OP_GREATERTHAN         = 0xa0
	OP_LESSTHANOREQUAL     = 0xa1
	OP_GREATERTHANOREQUAL  = 0xa2
	OP_MIN                 = 0xa3
	OP_MAX                 = 0xa4
	OP_WITHIN              = 0xa5
	OP_RIPEMD160           = 0xa6
	OP_SHA1                = 0xa7
	OP_SHA256              = 0xa8
	OP_HASH160             = 0xa9
	OP_HASH256             = 0xaa
	OP_CODESEPARATOR       = 0xab
	OP_CHECKSIG            = 0xac
	OP_CHECKSIGVERIFY      = 0xad
	OP_CHECKMULTISIG       = 0xae
	OP_CHECKMULTISIGVERIFY = 0xaf
	OP_NOP1                = 0xb0
	OP_NOP2                = 0xb1
	OP_CHECKLOCKTIMEVERIFY = 0xb1
	OP_NOP3                = 0xb2
	OP_CHECKSEQUENCEVERIFY = 0xb2
	OP_NOP4                = 0xb3
	OP_NOP5                = 0xb4
	OP_NOP6                = 0xb5
	OP_NOP7                = 0xb6
	OP_NOP8                = 0xb7
	OP_NOP9                = 0xb8
	OP_NOP10               = 0xb9
	OP_CHECKSIGADD         = 0xba
	OP_UNKNOWN187          = 0xbb
	OP_UNKNOWN188          = 0xbc
	OP_UNKNOWN189          = 0xbd
	OP_UNKNOWN190          = 0xbe
	OP_UNKNOWN191          = 0xbf
	OP_UNKNOWN192          = 0xc0
	OP_UNKNOWN193          = 0xc1
	OP_UNKNOWN194          = 0xc2
	OP_UNKNOWN195          = 0xc3
	OP_UNKNOWN196          = 0xc4
	OP_UNKNOWN197          = 0xc5
	OP_UNKNOWN198          = 0xc6
	OP_UNKNOWN199          = 0xc7
	OP_UNKNOWN200          = 0xc8
	OP_UNKNOWN201          = 0xc9
	OP_UNKNOWN202          = 0xca
	OP_UNKNOWN203          = 0xcb
	OP_UNKNOWN204          = 0xcc
	OP_UNKNOWN205          = 0xcd
	OP_UNKNOWN206          = 0xce
	OP_UNKNOWN207          = 0xcf
	OP_UNKNOWN208          = 0xd0
	OP_UNKNOWN209          = 0xd1
	OP_UNKNOWN210          = 0xd2
	OP_UNKNOWN211          = 0xd3
	OP_UNKNOWN212          = 0xd4
	OP_UNKNOWN213          = 0xd5
	OP_UNKNOWN214          = 0xd6
	OP_UNKNOWN215          = 0xd7
	OP_UNKNOWN216          = 0xd8
	OP_UNKNOWN217          = 0xd9
	OP_UNKNOWN218          = 0xda
	OP_UNKNOWN219          = 0xdb
	OP_UNKNOWN220          = 0xdc
	OP_UNKNOWN221          = 0xdd
	OP_UNKNOWN222          = 0xde
	OP_UNKNOWN223          = 0xdf
	OP_UNKNOWN224          = 0xe0
	OP_UNKNOWN225          = 0xe1
	OP_UNKNOWN226          = 0xe2
	OP_UNKNOWN227          = 0xe3
	OP_UNKNOWN228          = 0xe4
	OP_UNKNOWN229          = 0xe5
	OP_UNKNOWN230          = 0xe6
	OP_UNKNOWN231          = 0xe7
	OP_UNKNOWN232          = 0xe8
	OP_UNKNOWN233          = 0xe9
	OP_UNKNOWN234          = 0xea
	OP_UNKNOWN235          = 0xeb
	OP_UNKNOWN236          = 0xec
	OP_UNKNOWN237          = 0xed
	OP_UNKNOWN238          = 0xee
	OP_UNKNOWN239          = 0xef
	OP_UNKNOWN240          = 0xf0
	OP_UNKNOWN241          = 0xf1
	OP_UNKNOWN242          = 0xf2
	OP_UNKNOWN243          = 0xf3
	OP_UNKNOWN244          = 0xf4
	OP_UNKNOWN245          = 0xf5
	OP_UNKNOWN246          = 0xf6
	OP_UNKNOWN247          = 0xf7
	OP_UNKNOWN248          = 0xf8
	OP_UNKNOWN249          = 0xf9
	OP_SMALLINTEGER        = 0xfa
	OP_PUBKEYS             = 0xfb
	OP_UNKNOWN252          = 0xfc
	OP_PUBKEYHASH          = 0xfd
	OP_PUBKEY              = 0xfe
	OP_INVALIDOPCODE       = 0xff
)

// Conditional execution constants.
const (
	OpCondFalse = 0
	OpCondTrue  = 1
	OpCondSkip  = 2
)

// opcodeArray is the dispatch table of every possible opcode.  It is filled
// in by init since the data push and small integer entries are generated.
var opcodeArray [256]opcode

// namedOpcodes lists every opcode that is neither a direct data push, a small
// integer nor unassigned.
var namedOpcodes = []opcode{
	{OP_0, "OP_0", 1, opcodeFalse},
	{OP_PUSHDATA1, "OP_PUSHDATA1", -1, opcodePushData},
	{OP_PUSHDATA2, "OP_PUSHDATA2", -2, opcodePushData},
	{OP_PUSHDATA4, "OP_PUSHDATA4", -4, opcodePushData},
	{OP_1NEGATE, "OP_1NEGATE", 1, opcode1Negate},
	{OP_RESERVED, "OP_RESERVED", 1, opcodeReserved},

	// Control opcodes.
	{OP_NOP, "OP_NOP", 1, opcodeNop},
	{OP_VER, "OP_VER", 1, opcodeReserved},
	{OP_IF, "OP_IF", 1, opcodeIf},
	{OP_NOTIF, "OP_NOTIF", 1, opcodeNotIf},
	{OP_VERIF, "OP_VERIF", 1, opcodeReserved},
	{OP_VERNOTIF, "OP_VERNOTIF", 1, opcodeReserved},
	{OP_ELSE, "OP_ELSE", 1, opcodeElse},
	{OP_ENDIF, "OP_ENDIF", 1, opcodeEndif},
	{OP_VERIFY, "OP_VERIFY", 1, opcodeVerify},
	{OP_RETURN, "OP_RETURN", 1, opcodeReturn},

	// Stack opcodes.
	{OP_TOALTSTACK, "OP_TOALTSTACK", 1, opcodeToAltStack},
	{OP_FROMALTSTACK, "OP_FROMALTSTACK", 1, opcodeFromAltStack},
	{OP_2DROP, "OP_2DROP", 1, opcodeStackN},
	{OP_2DUP, "OP_2DUP", 1, opcodeStackN},
	{OP_3DUP, "OP_3DUP", 1, opcodeStackN},
	{OP_2OVER, "OP_2OVER", 1, opcodeStackN},
	{OP_2ROT, "OP_2ROT", 1, opcodeStackN},
	{OP_2SWAP, "OP_2SWAP", 1, opcodeStackN},
	{OP_IFDUP, "OP_IFDUP", 1, opcodeIfDup},
	{OP_DEPTH, "OP_DEPTH", 1, opcodeDepth},
	{OP_DROP, "OP_DROP", 1, opcodeStackN},
	{OP_DUP, "OP_DUP", 1, opcodeStackN},
	{OP_NIP, "OP_NIP", 1, opcodeStackN},
	{OP_OVER, "OP_OVER", 1, opcodeStackN},
	{OP_PICK, "OP_PICK", 1, opcodePickRoll},
	{OP_ROLL, "OP_ROLL", 1, opcodePickRoll},
	{OP_ROT, "OP_ROT", 1, opcodeStackN},
	{OP_SWAP, "OP_SWAP", 1, opcodeStackN},
	{OP_TUCK, "OP_TUCK", 1, opcodeStackN},

	// Splice opcodes.
	{OP_CAT, "OP_CAT", 1, opcodeDisabled},
	{OP_SUBSTR, "OP_SUBSTR", 1, opcodeDisabled},
	{OP_LEFT, "OP_LEFT", 1, opcodeDisabled},
	{OP_RIGHT, "OP_RIGHT", 1, opcodeDisabled},
	{OP_SIZE, "OP_SIZE", 1, opcodeSize},

	// Bitwise logic opcodes.
	{OP_INVERT, "OP_INVERT", 1, opcodeDisabled},
	{OP_AND, "OP_AND", 1, opcodeDisabled},
	{OP_OR, "OP_OR", 1, opcodeDisabled},
	{OP_XOR, "OP_XOR", 1, opcodeDisabled},
	{OP_EQUAL, "OP_EQUAL", 1, opcodeEqual},
	{OP_EQUALVERIFY, "OP_EQUALVERIFY", 1, opcodeEqual},
	{OP_RESERVED1, "OP_RESERVED1", 1, opcodeReserved},
	{OP_RESERVED2, "OP_RESERVED2", 1, opcodeReserved},

	// Numeric related opcodes.
	{OP_1ADD, "OP_1ADD", 1, opcodeUnaryNum},
	{OP_1SUB, "OP_1SUB", 1, opcodeUnaryNum},
	{OP_2MUL, "OP_2MUL", 1, opcodeDisabled},
	{OP_2DIV, "OP_2DIV", 1, opcodeDisabled},
	{OP_NEGATE, "OP_NEGATE", 1, opcodeUnaryNum},
	{OP_ABS, "OP_ABS", 1, opcodeUnaryNum},
	{OP_NOT, "OP_NOT", 1, opcodeUnaryNum},
	{OP_0NOTEQUAL, "OP_0NOTEQUAL", 1, opcodeUnaryNum},
	{OP_ADD, "OP_ADD", 1, opcodeBinaryNum},
	{OP_SUB, "OP_SUB", 1, opcodeBinaryNum},
	{OP_MUL, "OP_MUL", 1, opcodeDisabled},
	{OP_DIV, "OP_DIV", 1, opcodeDisabled},
	{OP_MOD, "OP_MOD", 1, opcodeDisabled},
	{OP_LSHIFT, "OP_LSHIFT", 1, opcodeDisabled},
	{OP_RSHIFT, "OP_RSHIFT", 1, opcodeDisabled},
	{OP_BOOLAND, "OP_BOOLAND", 1, opcodeBinaryNum},
	{OP_BOOLOR, "OP_BOOLOR", 1, opcodeBinaryNum},
	{OP_NUMEQUAL, "OP_NUMEQUAL", 1, opcodeBinaryNum},
	{OP_NUMEQUALVERIFY, "OP_NUMEQUALVERIFY", 1, opcodeBinaryNum},
	{OP_NUMNOTEQUAL, "OP_NUMNOTEQUAL", 1, opcodeBinaryNum},
	{OP_LESSTHAN, "OP_LESSTHAN", 1, opcodeBinaryNum},
	{OP_GREATERTHAN, "OP_GREATERTHAN", 1, opcodeBinaryNum},
	{OP_LESSTHANOREQUAL, "OP_LESSTHANOREQUAL", 1, opcodeBinaryNum},
	{OP_GREATERTHANOREQUAL, "OP_GREATERTHANOREQUAL", 1, opcodeBinaryNum},
	{OP_MIN, "OP_MIN", 1, opcodeBinaryNum},
	{OP_MAX, "OP_MAX", 1, opcodeBinaryNum},
	{OP_WITHIN, "OP_WITHIN", 1, opcodeWithin},

	// Crypto opcodes.
	{OP_RIPEMD160, "OP_RIPEMD160", 1, opcodeHash},
	{OP_SHA1, "OP_SHA1", 1, opcodeHash},
	{OP_SHA256, "OP_SHA256", 1, opcodeHash},
	{OP_HASH160, "OP_HASH160", 1, opcodeHash},
	{OP_HASH256, "OP_HASH256", 1, opcodeHash},
	{OP_CODESEPARATOR, "OP_CODESEPARATOR", 1, opcodeCodeSeparator},
	{OP_CHECKSIG, "OP_CHECKSIG", 1, opcodeCheckSig},
	{OP_CHECKSIGVERIFY, "OP_CHECKSIGVERIFY", 1, opcodeCheckSig},
	{OP_CHECKMULTISIG, "OP_CHECKMULTISIG", 1, opcodeCheckMultiSig},
	{OP_CHECKMULTISIGVERIFY, "OP_CHECKMULTISIGVERIFY", 1, opcodeCheckMultiSig},

	// Reserved opcodes.
	{OP_NOP1, "OP_NOP1", 1, opcodeNop},
	{OP_CHECKLOCKTIMEVERIFY, "OP_CHECKLOCKTIMEVERIFY", 1, opcodeCheckLockTimeVerify},
	{OP_CHECKSEQUENCEVERIFY, "OP_CHECKSEQUENCEVERIFY", 1, opcodeCheckSequenceVerify},
	{OP_NOP4, "OP_NOP4", 1, opcodeNop},
	{OP_NOP5, "OP_NOP5", 1, opcodeNop},
	{OP_NOP6, "OP_NOP6", 1, opcodeNop},
	{OP_NOP7, "OP_NOP7", 1, opcodeNop},
	{OP_NOP8, "OP_NOP8", 1, opcodeNop},
	{OP_NOP9, "OP_NOP9", 1, opcodeNop},
	{OP_NOP10, "OP_NOP10", 1, opcodeNop},

	// Tapscript signature aggregation.
	{OP_CHECKSIGADD, "OP_CHECKSIGADD", 1, opcodeCheckSigAdd},

	// Template matching opcodes of the reference client.
	{OP_SMALLINTEGER, "OP_SMALLINTEGER", 1, opcodeInvalid},
	{OP_PUBKEYS, "OP_PUBKEYS", 1, opcodeInvalid},
	{OP_PUBKEYHASH, "OP_PUBKEYHASH", 1, opcodeInvalid},
	{OP_PUBKEY, "OP_PUBKEY", 1, opcodeInvalid},
	{OP_INVALIDOPCODE, "OP_INVALIDOPCODE", 1, opcodeInvalid},
}

// OpcodeByName is a map that can be used to lookup an opcode by its
// human-readable name (OP_CHECKMULTISIG, OP_CHECKSIG, etc).
var OpcodeByName = make(map[string]byte)

func init() {
	for i := range opcodeArray {
		opcodeArray[i] = opcode{
			value:  byte(i),
			name:   fmt.Sprintf("OP_UNKNOWN%d", i),
			length: 1,
			opfunc: opcodeInvalid,
		}
	}
	for v := OP_DATA_1; v <= OP_DATA_75; v++ {
		opcodeArray[v] = opcode{
			value:  byte(v),
			name:   fmt.Sprintf("OP_DATA_%d", v),
			length: v + 1,
			opfunc: opcodePushData,
		}
	}
	for v := OP_1; v <= OP_16; v++ {
		opcodeArray[v] = opcode{
			value:  byte(v),
			name:   fmt.Sprintf("OP_%d", v-(OP_1-1)),
			length: 1,
			opfunc: opcodeN,
		}
	}
	for _, op := range namedOpcodes {
		opcodeArray[op.value] = op
	}

	// OP_FALSE, OP_TRUE, OP_NOP2 and OP_NOP3 are aliases for OP_0, OP_1,
	// OP_CHECKLOCKTIMEVERIFY and OP_CHECKSEQUENCEVERIFY.
	for i := range opcodeArray {
		OpcodeByName[opcodeArray[i].name] = opcodeArray[i].value
	}
	OpcodeByName["OP_FALSE"] = OP_FALSE
	OpcodeByName["OP_TRUE"] = OP_TRUE
	OpcodeByName["OP_NOP2"] = OP_CHECKLOCKTIMEVERIFY
	OpcodeByName["OP_NOP3"] = OP_CHECKSEQUENCEVERIFY
}

// disasmOpcode writes a human-readable disassembly of the provided opcode and
// data into the provided buffer.  The compact flag prints the small integer
// opcodes as their numeric value and data pushes as the bare hex of the data.
func disasmOpcode(buf *strings.Builder, op *opcode, data []byte, compact bool) {
	if compact {
		switch {
		case op.value == OP_0:
			buf.WriteString("0")
		case op.value == OP_1NEGATE:
			buf.WriteString("-1")
		case isSmallInt(op.value):
			fmt.Fprintf(buf, "%d", asSmallInt(op.value))
		case op.length == 1:
			buf.WriteString(op.name)
		default:
			buf.WriteString(hex.EncodeToString(data))
		}
		return
	}

	buf.WriteString(op.name)
	switch op.length {
	case 1:
		return
	case -1:
		fmt.Fprintf(buf, " 0x%02x", len(data))
	case -2:
		fmt.Fprintf(buf, " 0x%04x", len(data))
	case -4:
		fmt.Fprintf(buf, " 0x%08x", len(data))
	}
	fmt.Fprintf(buf, " 0x%02x", data)
}

// *******************************************
// Opcode implementation functions start here.
// *******************************************

// opcodeDisabled is the handler of the disabled opcodes.  Execution never
// reaches it since disabled opcodes fail as soon as the program counter
// passes over them.
func opcodeDisabled(op *opcode, data []byte, p *Program) error {
	str := fmt.Sprintf("attempt to execute disabled opcode %s", op.name)
	return scriptError(ErrDisabledOpcode, str)
}

// opcodeReserved is a common handler for all reserved opcodes.
func opcodeReserved(op *opcode, data []byte, p *Program) error {
	str := fmt.Sprintf("attempt to execute reserved opcode %s", op.name)
	return scriptError(ErrReservedOpcode, str)
}

// opcodeInvalid is a common handler for all unassigned opcodes.
func opcodeInvalid(op *opcode, data []byte, p *Program) error {
	str := fmt.Sprintf("attempt to execute invalid opcode %s", op.name)
	return scriptError(ErrReservedOpcode, str)
}

// opcodeFalse pushes an empty array, the encoding of both zero and false.
func opcodeFalse(op *opcode, data []byte, p *Program) error {
	p.dstack.PushByteArray(nil)
	return nil
}

// opcodePushData pushes the data carried by the opcode.
func opcodePushData(op *opcode, data []byte, p *Program) error {
	p.dstack.PushByteArray(data)
	return nil
}

// opcode1Negate pushes -1, encoded as a number, to the data stack.
func opcode1Negate(op *opcode, data []byte, p *Program) error {
	p.dstack.PushInt(scriptNum(-1))
	return nil
}

// opcodeN pushes the small integer 1 through 16 the opcode represents.
func opcodeN(op *opcode, data []byte, p *Program) error {
	p.dstack.PushInt(scriptNum(asSmallInt(op.value)))
	return nil
}

// opcodeNop does nothing unless the opcode is reserved for a soft fork and
// upgradable nops are discouraged.
func opcodeNop(op *opcode, data []byte, p *Program) error {
	if op.value != OP_NOP && p.hasFlag(ScriptDiscourageUpgradableNops) {
		str := fmt.Sprintf("%v reserved for soft-fork upgrades", op.name)
		return scriptError(ErrDiscourageUpgradableNOPs, str)
	}
	return nil
}

// popIfBool pops the argument of OP_IF or OP_NOTIF.  Tapscript always, and
// witness v0 under ScriptVerifyMinimalIf, require the argument to be either
// empty or exactly [0x01].
func popIfBool(p *Program) (bool, error) {
	minimalIf := p.sigVersion == SigVersionTapscript ||
		(p.sigVersion == SigVersionWitnessV0 &&
			p.hasFlag(ScriptVerifyMinimalIf))
	if !minimalIf {
		return p.dstack.PopBool()
	}

	so, err := p.dstack.PopByteArray()
	if err != nil {
		return false, err
	}
	if len(so) > 1 || (len(so) == 1 && so[0] != 0x01) {
		str := fmt.Sprintf("minimal if is active, argument must be empty "+
			"or 0x01, is instead %x", so)
		return false, scriptError(ErrMinimalIf, str)
	}
	return len(so) == 1, nil
}

// opcodeIf pushes the conditional execution state selected by the top stack
// item.  Inside a branch that is not executing the new state is OpCondSkip and
// nothing is popped, so nesting is still tracked.
//
// Data stack transformation: [... bool] -> [...]
// Conditional stack transformation: [...] -> [... OpCondValue]
func opcodeIf(op *opcode, data []byte, p *Program) error {
	return pushCondition(p, true)
}

// opcodeNotIf is opcodeIf with the branch selection inverted.
func opcodeNotIf(op *opcode, data []byte, p *Program) error {
	return pushCondition(p, false)
}

func pushCondition(p *Program, executeWhen bool) error {
	condVal := OpCondSkip
	if p.isBranchExecuting() {
		ok, err := popIfBool(p)
		if err != nil {
			return err
		}
		condVal = OpCondFalse
		if ok == executeWhen {
			condVal = OpCondTrue
		}
	}
	p.condStack = append(p.condStack, condVal)
	return nil
}

// opcodeElse inverts conditional execution for other half of if/else/endif.
//
// Conditional stack transformation: [... OpCondValue] -> [... !OpCondValue]
func opcodeElse(op *opcode, data []byte, p *Program) error {
	if len(p.condStack) == 0 {
		str := fmt.Sprintf("encountered opcode %s with no matching "+
			"opcode to begin conditional execution", op.name)
		return scriptError(ErrUnbalancedConditional, str)
	}

	top := len(p.condStack) - 1
	switch p.condStack[top] {
	case OpCondTrue:
		p.condStack[top] = OpCondFalse
	case OpCondFalse:
		p.condStack[top] = OpCondTrue
	}
	return nil
}

// opcodeEndif terminates a conditional block.
//
// Conditional stack transformation: [... OpCondValue] -> [...]
func opcodeEndif(op *opcode, data []byte, p *Program) error {
	if len(p.condStack) == 0 {
		str := fmt.Sprintf("encountered opcode %s with no matching "+
			"opcode to begin conditional execution", op.name)
		return scriptError(ErrUnbalancedConditional, str)
	}

	p.condStack = p.condStack[:len(p.condStack)-1]
	return nil
}

// abstractVerify pops the top item and fails with the passed error code when
// it is false.
func abstractVerify(op *opcode, p *Program, c ErrorCode) error {
	verified, err := p.dstack.PopBool()
	if err != nil {
		return err
	}

	if !verified {
		str := fmt.Sprintf("%s failed", op.name)
		return scriptError(c, str)
	}
	return nil
}

func opcodeVerify(op *opcode, data []byte, p *Program) error {
	return abstractVerify(op, p, ErrVerify)
}

func opcodeReturn(op *opcode, data []byte, p *Program) error {
	return scriptError(ErrEarlyReturn, "script returned early")
}

// verifyLockTime fails unless lockTime and txLockTime are on the same side of
// threshold and lockTime does not exceed txLockTime.
func verifyLockTime(txLockTime, threshold, lockTime int64) error {
	if (txLockTime < threshold) != (lockTime < threshold) {
		str := fmt.Sprintf("mismatched locktime types -- tx locktime "+
			"%d, stack locktime %d", txLockTime, lockTime)
		return scriptError(ErrUnsatisfiedLockTime, str)
	}

	if lockTime > txLockTime {
		str := fmt.Sprintf("locktime requirement not satisfied -- "+
			"locktime is greater than the transaction locktime: "+
			"%d > %d", lockTime, txLockTime)
		return scriptError(ErrUnsatisfiedLockTime, str)
	}

	return nil
}

// peekLockTime returns the top stack item as a non-negative 5-byte number
// without removing it.  Five bytes are needed to express every uint32 lock
// time and sequence.
func peekLockTime(p *Program) (int64, error) {
	so, err := p.dstack.PeekByteArray(0)
	if err != nil {
		return 0, err
	}
	n, err := makeScriptNum(so, p.dstack.verifyMinimalData,
		cltvMaxScriptNumLen)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		str := fmt.Sprintf("negative lock time: %d", n)
		return 0, scriptError(ErrNegativeLockTime, str)
	}
	return int64(n), nil
}

// opcodeCheckLockTimeVerify fails unless the transaction lock time has
// reached the top stack item (bip65).  Without
// ScriptVerifyCheckLockTimeVerify it behaves as OP_NOP2.
func opcodeCheckLockTimeVerify(op *opcode, data []byte, p *Program) error {
	if !p.hasFlag(ScriptVerifyCheckLockTimeVerify) {
		if p.hasFlag(ScriptDiscourageUpgradableNops) {
			return scriptError(ErrDiscourageUpgradableNOPs,
				"OP_NOP2 reserved for soft-fork upgrades")
		}
		return nil
	}

	lockTime, err := peekLockTime(p)
	if err != nil {
		return err
	}
	err = verifyLockTime(int64(p.tx.LockTime), LockTimeThreshold, lockTime)
	if err != nil {
		return err
	}

	// A final input disables the transaction lock time, which would make
	// the opcode ineffective.
	if p.tx.TxIn[p.txIdx].Sequence == wire.MaxTxInSequenceNum {
		return scriptError(ErrUnsatisfiedLockTime,
			"transaction input is finalized")
	}

	return nil
}

// opcodeCheckSequenceVerify fails unless the relative lock time of the input
// has reached the top stack item (bip112).  Without
// ScriptVerifyCheckSequenceVerify it behaves as OP_NOP3.
func opcodeCheckSequenceVerify(op *opcode, data []byte, p *Program) error {
	if !p.hasFlag(ScriptVerifyCheckSequenceVerify) {
		if p.hasFlag(ScriptDiscourageUpgradableNops) {
			return scriptError(ErrDiscourageUpgradableNOPs,
				"OP_NOP3 reserved for soft-fork upgrades")
		}
		return nil
	}

	sequence, err := peekLockTime(p)
	if err != nil {
		return err
	}

	// The disable bit on the operand leaves room for soft forks.
	if sequence&int64(wire.SequenceLockTimeDisabled) != 0 {
		return nil
	}

	if uint32(p.tx.Version) < 2 {
		str := fmt.Sprintf("invalid transaction version: %d",
			p.tx.Version)
		return scriptError(ErrUnsatisfiedLockTime, str)
	}

	txSequence := int64(p.tx.TxIn[p.txIdx].Sequence)
	if txSequence&int64(wire.SequenceLockTimeDisabled) != 0 {
		str := fmt.Sprintf("transaction sequence has sequence "+
			"locktime disabled bit set: 0x%x", txSequence)
		return scriptError(ErrUnsatisfiedLockTime, str)
	}

	lockTimeMask := int64(wire.SequenceLockTimeIsSeconds |
		wire.SequenceLockTimeMask)
	return verifyLockTime(txSequence&lockTimeMask,
		wire.SequenceLockTimeIsSeconds, sequence&lockTimeMask)
}

// opcodeToAltStack moves the top item of the data stack to the alt stack.
func opcodeToAltStack(op *opcode, data []byte, p *Program) error {
	so, err := p.dstack.PopByteArray()
	if err != nil {
		return err
	}
	p.astack.PushByteArray(so)
	return nil
}

// opcodeFromAltStack moves the top item of the alt stack to the data stack.
func opcodeFromAltStack(op *opcode, data []byte, p *Program) error {
	so, err := p.astack.PopByteArray()
	if err != nil {
		return err
	}
	p.dstack.PushByteArray(so)
	return nil
}

// opcodeStackN performs the fixed shape stack manipulations.
func opcodeStackN(op *opcode, data []byte, p *Program) error {
	switch op.value {
	case OP_2DROP:
		return p.dstack.DropN(2)
	case OP_2DUP:
		return p.dstack.DupN(2)
	case OP_3DUP:
		return p.dstack.DupN(3)
	case OP_2OVER:
		return p.dstack.OverN(2)
	case OP_2ROT:
		return p.dstack.RotN(2)
	case OP_2SWAP:
		return p.dstack.SwapN(2)
	case OP_DROP:
		return p.dstack.DropN(1)
	case OP_DUP:
		return p.dstack.DupN(1)
	case OP_NIP:
		return p.dstack.NipN(1)
	case OP_OVER:
		return p.dstack.OverN(1)
	case OP_ROT:
		return p.dstack.RotN(1)
	case OP_SWAP:
		return p.dstack.SwapN(1)
	case OP_TUCK:
		return p.dstack.Tuck()
	}
	str := fmt.Sprintf("%s is not a stack opcode", op.name)
	return scriptError(ErrInternal, str)
}

// opcodeIfDup duplicates the top item when it is true.
//
// Stack transformation (x1==0): [... x1] -> [... x1]
// Stack transformation (x1!=0): [... x1] -> [... x1 x1]
func opcodeIfDup(op *opcode, data []byte, p *Program) error {
	so, err := p.dstack.PeekByteArray(0)
	if err != nil {
		return err
	}
	if asBool(so) {
		p.dstack.PushByteArray(so)
	}
	return nil
}

// opcodeDepth pushes the depth of the data stack prior to executing this
// opcode.
func opcodeDepth(op *opcode, data []byte, p *Program) error {
	p.dstack.PushInt(scriptNum(p.dstack.Depth()))
	return nil
}

// opcodePickRoll copies (OP_PICK) or moves (OP_ROLL) the item n back in the
// stack to the top, where n is popped first.
//
// Stack transformation: [xn ... x2 x1 x0 n] -> [xn ... x2 x1 x0 xn]
func opcodePickRoll(op *opcode, data []byte, p *Program) error {
	n, err := p.dstack.PopInt()
	if err != nil {
		return err
	}
	if op.value == OP_ROLL {
		return p.dstack.RollN(n.Int32())
	}
	return p.dstack.PickN(n.Int32())
}

// opcodeSize pushes the size of the top item without removing it.
func opcodeSize(op *opcode, data []byte, p *Program) error {
	so, err := p.dstack.PeekByteArray(0)
	if err != nil {
		return err
	}
	p.dstack.PushInt(scriptNum(len(so)))
	return nil
}

// opcodeEqual replaces the top two items with whether they are byte-wise
// equal.  OP_EQUALVERIFY additionally verifies the result.
//
// Stack transformation: [... x1 x2] -> [... bool]
func opcodeEqual(op *opcode, data []byte, p *Program) error {
	a, err := p.dstack.PopByteArray()
	if err != nil {
		return err
	}
	b, err := p.dstack.PopByteArray()
	if err != nil {
		return err
	}
	p.dstack.PushBool(bytes.Equal(a, b))

	if op.value == OP_EQUALVERIFY {
		return abstractVerify(op, p, ErrEqualVerify)
	}
	return nil
}

func boolNum(v bool) scriptNum {
	if v {
		return 1
	}
	return 0
}

// opcodeUnaryNum replaces the top item, interpreted as a number, with the
// result of the unary numeric opcode.
//
// Stack transformation: [... x1] -> [... f(x1)]
func opcodeUnaryNum(op *opcode, data []byte, p *Program) error {
	m, err := p.dstack.PopInt()
	if err != nil {
		return err
	}

	switch op.value {
	case OP_1ADD:
		m++
	case OP_1SUB:
		m--
	case OP_NEGATE:
		m = -m
	case OP_ABS:
		if m < 0 {
			m = -m
		}
	case OP_NOT:
		m = boolNum(m == 0)
	case OP_0NOTEQUAL:
		m = boolNum(m != 0)
	}

	p.dstack.PushInt(m)
	return nil
}

// opcodeBinaryNum replaces the top two items, interpreted as numbers, with
// the result of the binary numeric opcode.  x1 is the left operand.
//
// Stack transformation: [... x1 x2] -> [... f(x1, x2)]
func opcodeBinaryNum(op *opcode, data []byte, p *Program) error {
	b, err := p.dstack.PopInt()
	if err != nil {
		return err
	}
	a, err := p.dstack.PopInt()
	if err != nil {
		return err
	}

	var n scriptNum
	switch op.value {
	case OP_ADD:
		n = a + b
	case OP_SUB:
		n = a - b
	case OP_BOOLAND:
		n = boolNum(a != 0 && b != 0)
	case OP_BOOLOR:
		n = boolNum(a != 0 || b != 0)
	case OP_NUMEQUAL, OP_NUMEQUALVERIFY:
		n = boolNum(a == b)
	case OP_NUMNOTEQUAL:
		n = boolNum(a != b)
	case OP_LESSTHAN:
		n = boolNum(a < b)
	case OP_GREATERTHAN:
		n = boolNum(a > b)
	case OP_LESSTHANOREQUAL:
		n = boolNum(a <= b)
	case OP_GREATERTHANOREQUAL:
		n = boolNum(a >= b)
	case OP_MIN:
		n = min(a, b)
	case OP_MAX:
		n = max(a, b)
	}
	p.dstack.PushInt(n)

	if op.value == OP_NUMEQUALVERIFY {
		return abstractVerify(op, p, ErrNumEqualVerify)
	}
	return nil
}

// opcodeWithin pushes whether x lies in the half open range [min, max).
//
// Stack transformation: [... x min max] -> [... bool]
func opcodeWithin(op *opcode, data []byte, p *Program) error {
	maxVal, err := p.dstack.PopInt()
	if err != nil {
		return err
	}
	minVal, err := p.dstack.PopInt()
	if err != nil {
		return err
	}
	x, err := p.dstack.PopInt()
	if err != nil {
		return err
	}

	p.dstack.PushBool(x >= minVal && x < maxVal)
	return nil
}

// opcodeHash replaces the top item with its digest under the hash function
// of the opcode.
//
// Stack transformation: [... x1] -> [... hash(x1)]
func opcodeHash(op *opcode, data []byte, p *Program) error {
	buf, err := p.dstack.PopByteArray()
	if err != nil {
		return err
	}

	var digest []byte
	switch op.value {
	case OP_RIPEMD160:
		h := ripemd160.New()
		h.Write(buf)
		digest = h.Sum(nil)
	case OP_SHA1:
		sum := sha1.Sum(buf)
		digest = sum[:]
	case OP_SHA256:
		sum := sha256.Sum256(buf)
		digest = sum[:]
	case OP_HASH160:
		digest = btcutil.Hash160(buf)
	case OP_HASH256:
		digest = chainhash.DoubleHashB(buf)
	}

	p.dstack.PushByteArray(digest)
	return nil
}

// opcodeCodeSeparator records the position of the most recently executed
// OP_CODESEPARATOR: the byte offset after it for the legacy and witness v0
// subscript, and its opcode index for the tapscript sighash.
func opcodeCodeSeparator(op *opcode, data []byte, p *Program) error {
	o := &p.script.ops[p.opIdx]
	p.lastCodeSep = o.offset + o.size

	if p.taprootCtx != nil {
		p.taprootCtx.codeSepPos = uint32(p.opIdx)
	}
	return nil
}

// opcodeCheckSig replaces a signature and public key with whether the
// signature is valid for the transaction.  OP_CHECKSIGVERIFY additionally
// verifies the result.  Tapscript pushes the empty vector rather than false
// for an empty signature.
//
// Stack transformation: [... signature pubkey] -> [... bool]
func opcodeCheckSig(op *opcode, data []byte, p *Program) error {
	pkBytes, err := p.dstack.PopByteArray()
	if err != nil {
		return err
	}
	sigBytes, err := p.dstack.PopByteArray()
	if err != nil {
		return err
	}

	var valid bool
	if p.taprootCtx != nil {
		valid, err = p.checkTapscriptSig(sigBytes, pkBytes)
		if err != nil {
			return err
		}
	} else {
		valid, err = p.checkECDSASig(sigBytes, pkBytes)
		if err != nil {
			return err
		}
	}
	p.dstack.PushBool(valid)

	if op.value == OP_CHECKSIGVERIFY {
		return abstractVerify(op, p, ErrCheckSigVerify)
	}
	return nil
}

// opcodeCheckSigAdd implements the tapscript OP_CHECKSIGADD.  It is an
// invalid opcode outside tapscript.
//
// Stack transformation: [... signature n pubkey] -> [... n | n+1]
func opcodeCheckSigAdd(op *opcode, data []byte, p *Program) error {
	if p.taprootCtx == nil {
		return opcodeInvalid(op, data, p)
	}

	pkBytes, err := p.dstack.PopByteArray()
	if err != nil {
		return err
	}
	n, err := p.dstack.PopInt()
	if err != nil {
		return err
	}
	sigBytes, err := p.dstack.PopByteArray()
	if err != nil {
		return err
	}

	valid, err := p.checkTapscriptSig(sigBytes, pkBytes)
	if err != nil {
		return err
	}
	if valid {
		n++
	}
	p.dstack.PushInt(n)
	return nil
}

// opcodeCheckMultiSig verifies an ordered subset of signatures against an
// ordered list of public keys.  Each signature is matched against the
// remaining keys in order and a key that fails is skipped for good, so the
// signatures must appear in the same order as their keys.  An extra unused
// item is popped after the signatures, which must be empty under
// ScriptStrictMultiSig.  OP_CHECKMULTISIGVERIFY additionally verifies the
// result.
//
// Stack transformation:
// [... dummy [sig ...] numsigs [pubkey ...] numpubkeys] -> [... bool]
func opcodeCheckMultiSig(op *opcode, data []byte, p *Program) error {
	if p.taprootCtx != nil {
		str := fmt.Sprintf("%s is disabled during tapscript execution",
			op.name)
		return scriptError(ErrTapscriptCheckMultisig, str)
	}

	numKeys, err := p.dstack.PopInt()
	if err != nil {
		return err
	}
	numPubKeys := int(numKeys.Int32())
	if numPubKeys < 0 || numPubKeys > MaxPubKeysPerMultiSig {
		str := fmt.Sprintf("number of pubkeys %d is outside [0, %d]",
			numPubKeys, MaxPubKeysPerMultiSig)
		return scriptError(ErrInvalidPubKeyCount, str)
	}
	p.numOps += numPubKeys
	if p.numOps > MaxOpsPerScript {
		str := fmt.Sprintf("exceeded max operation limit of %d",
			MaxOpsPerScript)
		return scriptError(ErrTooManyOperations, str)
	}

	pubKeys := make([][]byte, 0, numPubKeys)
	for i := 0; i < numPubKeys; i++ {
		pubKey, err := p.dstack.PopByteArray()
		if err != nil {
			return err
		}
		pubKeys = append(pubKeys, pubKey)
	}

	numSigs, err := p.dstack.PopInt()
	if err != nil {
		return err
	}
	numSignatures := int(numSigs.Int32())
	if numSignatures < 0 || numSignatures > numPubKeys {
		str := fmt.Sprintf("number of signatures %d is outside [0, %d]",
			numSignatures, numPubKeys)
		return scriptError(ErrInvalidSignatureCount, str)
	}

	signatures := make([][]byte, 0, numSignatures)
	for i := 0; i < numSignatures; i++ {
		signature, err := p.dstack.PopByteArray()
		if err != nil {
			return err
		}
		signatures = append(signatures, signature)
	}

	dummy, err := p.dstack.PopByteArray()
	if err != nil {
		return err
	}

	// No signature can sign itself, so every one of them is removed from
	// a legacy subscript.
	script := p.subScript()
	if p.sigVersion == SigVersionBase {
		for _, sig := range signatures {
			script = findAndDelete(script, sig)
		}
	}

	success := true
	keyIdx, sigIdx := 0, 0
	for success && sigIdx < len(signatures) {
		sig, pubKey := signatures[sigIdx], pubKeys[keyIdx]
		if err := p.checkSigEncodings(sig, pubKey); err != nil {
			return err
		}

		if p.verifyECDSA(sig, pubKey, script) {
			sigIdx++
		}
		keyIdx++

		// Fail early once more signatures remain than keys.
		if len(signatures)-sigIdx > len(pubKeys)-keyIdx {
			success = false
		}
	}

	if !success && p.hasFlag(ScriptVerifyNullFail) {
		for _, sig := range signatures {
			if len(sig) > 0 {
				str := "not all signatures empty on failed " +
					"checkmultisig"
				return scriptError(ErrNullFail, str)
			}
		}
	}
	if p.hasFlag(ScriptStrictMultiSig) && len(dummy) != 0 {
		str := fmt.Sprintf("multisig dummy argument has length %d "+
			"instead of 0", len(dummy))
		return scriptError(ErrSigNullDummy, str)
	}

	p.dstack.PushBool(success)

	if op.value == OP_CHECKMULTISIGVERIFY {
		return abstractVerify(op, p, ErrCheckMultiSigVerify)
	}
	return nil
}
