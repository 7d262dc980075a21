// Copyright (c) 2013-2018 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"
	"strings"
)

// isOpSuccess returns true if the passed opcode is an OP_SUCCESSx opcode as
// defined by BIP 342: 80, 98, 126-129, 131-134, 137-138, 141-142, 149-153
// and 187-254.
func isOpSuccess(opCode byte) bool {
	switch {
	case opCode == 80 || opCode == 98:
		return true
	case opCode >= 126 && opCode <= 129:
		return true
	case opCode >= 131 && opCode <= 134:
		return true
	case opCode >= 137 && opCode <= 138:
		return true
	case opCode >= 141 && opCode <= 142:
		return true
	case opCode >= 149 && opCode <= 153:
		return true
	case opCode >= 187 && opCode <= 254:
		return true
	}
	return false
}

// isDisabled returns whether or not the opcode is disabled and thus is always
// bad to see in the instruction stream (even if turned off by a conditional).
func (op *opcode) isDisabled() bool {
	switch op.value {
	case OP_CAT, OP_SUBSTR, OP_LEFT, OP_RIGHT, OP_INVERT, OP_AND, OP_OR,
		OP_XOR, OP_2MUL, OP_2DIV, OP_MUL, OP_DIV, OP_MOD, OP_LSHIFT,
		OP_RSHIFT:

		return true
	}
	return false
}

// alwaysIllegal returns whether or not the opcode is always illegal when
// passed over by the program counter even if in a non-executed branch (it
// isn't a coincidence that they are conditionals).
func (op *opcode) alwaysIllegal() bool {
	return op.value == OP_VERIF || op.value == OP_VERNOTIF
}

// isConditional returns whether or not the opcode is a conditional opcode
// which changes the conditional execution stack when executed.
func (op *opcode) isConditional() bool {
	switch op.value {
	case OP_IF, OP_NOTIF, OP_ELSE, OP_ENDIF:
		return true
	}
	return false
}

// executeOpcode performs execution on the passed operation.  It takes into
// account whether or not it is hidden by conditionals, but some rules still
// must be tested in this case.
func (p *Program) executeOpcode(o *Operation) error {
	// A truncated push fails once the program counter reaches it, even in
	// a branch that is not executed.
	if o.malformed {
		str := fmt.Sprintf("opcode %s at offset %d pushes past the end "+
			"of the script", o.Name(), o.offset)
		return scriptError(ErrMalformedPush, str)
	}

	op := o.opcode()
	data := o.data

	// Disabled opcodes are fail on program counter.
	if op.isDisabled() {
		str := fmt.Sprintf("attempt to execute disabled opcode %s", op.name)
		return scriptError(ErrDisabledOpcode, str)
	}

	// Always-illegal opcodes are fail on program counter.
	if op.alwaysIllegal() {
		str := fmt.Sprintf("attempt to execute reserved opcode %s", op.name)
		return scriptError(ErrReservedOpcode, str)
	}

	// Note that this includes OP_RESERVED which counts as a push operation.
	if len(data) > MaxScriptElementSize {
		str := fmt.Sprintf("element size %d exceeds max allowed size %d",
			len(data), MaxScriptElementSize)
		return scriptError(ErrElementTooBig, str)
	}
	if p.taprootCtx == nil && op.value > OP_16 {
		p.numOps++
		if p.numOps > MaxOpsPerScript {
			str := fmt.Sprintf("exceeded max operation limit of %d",
				MaxOpsPerScript)
			return scriptError(ErrTooManyOperations, str)
		}
	}

	// Nothing left to do when this is not a conditional opcode and it is
	// not in an executing branch.
	if !p.isBranchExecuting() && !op.isConditional() {
		return nil
	}

	// Ensure all executed data push opcodes use the minimal encoding when
	// the minimal data verification flag is set.
	if p.dstack.verifyMinimalData && p.isBranchExecuting() &&
		op.value <= OP_PUSHDATA4 {

		if err := checkMinimalDataPush(op, data); err != nil {
			return err
		}
	}

	return op.opfunc(op, data, p)
}

// disasm returns the disassembly of the operation at the passed index
// prefixed by its position.
func (p *Program) disasm(idx int) string {
	var buf strings.Builder
	o := &p.script.ops[idx]
	fmt.Fprintf(&buf, "%04x: ", o.offset)
	if o.malformed {
		buf.WriteString("[error]")
		return buf.String()
	}
	disasmOpcode(&buf, o.opcode(), o.data, false)
	return buf.String()
}

// Run executes the program and returns nil when every operation executed
// successfully.  The outcome of the script is left on the data stack for the
// caller to interpret.  A program can only be run once.
func Run(p *Program) error {
	if p.done {
		return scriptError(ErrInternal, "program has already been run")
	}
	p.done = true

	// Legacy and witness v0 scripts are limited in size, tapscript leaves
	// are only bounded by the witness.
	if p.taprootCtx == nil && p.script.SerializeSize() > MaxScriptSize {
		str := fmt.Sprintf("script size %d is larger than max allowed "+
			"size %d", p.script.SerializeSize(), MaxScriptSize)
		return scriptError(ErrScriptTooBig, str)
	}

	ops := p.script.Ops()
	for i := range ops {
		p.opIdx = i

		log.Tracef("%v", newLogClosure(func() string {
			return fmt.Sprintf("stepping %v", p.disasm(i))
		}))

		if err := p.executeOpcode(&ops[i]); err != nil {
			return err
		}

		// The number of elements in the combination of the data and alt
		// stacks must not exceed the maximum number of stack elements
		// allowed.
		combinedStackSize := p.dstack.Depth() + p.astack.Depth()
		if combinedStackSize > MaxStackSize {
			str := fmt.Sprintf("combined stack size %d > max allowed %d",
				combinedStackSize, MaxStackSize)
			return scriptError(ErrStackOverflow, str)
		}

		log.Tracef("%v", newLogClosure(func() string {
			var dstr, astr string
			if p.dstack.Depth() != 0 {
				dstr = "Stack:\n" + p.dstack.String()
			}
			if p.astack.Depth() != 0 {
				astr = "AltStack:\n" + p.astack.String()
			}
			return dstr + astr
		}))
	}

	// Illegal to have an `if' that straddles two scripts.
	if len(p.condStack) != 0 {
		return scriptError(ErrUnbalancedConditional,
			"end of script reached in conditional execution")
	}

	return nil
}
