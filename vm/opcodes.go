// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

// Opcode is a 16-bit tag selecting one handler from the VM's opcode
// table. Entries below NumReserved are the fixed built-ins enumerated in
// this file; entries at or above it are appended at module-registration
// time by host packages (see RegisterHandlerOpcode), one per registered
// free function or member function.
type Opcode uint16

const (
	OpPushNull Opcode = iota
	OpPushFalse
	OpPushTrue
	OpPushString
	OpPushConstant
	OpPushLargeConstant
	OpPushLocalVariable
	OpPopToLocalVariable
	OpPushMemberVariable
	OpPopToMemberVariable
	OpPushSelf
	OpDuplicate
	OpDuplicateInsert
	OpDiscard

	OpLocalVariableDeclare
	OpLocalVariableDeclareAssign
	OpContractVariableDeclareAssign

	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpJumpIfFalseOrPop
	OpJumpIfTrueOrPop
	OpBreak
	OpContinue
	OpDestruct
	OpReturn
	OpReturnValue

	OpForRangeInit
	OpForRangeIterate
	OpForRangeTerminate

	OpLocalVariablePrefixInc
	OpLocalVariablePrefixDec
	OpLocalVariablePostfixInc
	OpLocalVariablePostfixDec
	OpMemberVariablePrefixInc
	OpMemberVariablePrefixDec
	OpMemberVariablePostfixInc
	OpMemberVariablePostfixDec
	OpInc
	OpDec

	OpNot
	OpPrimitiveNegate
	OpObjectNegate

	OpPrimitiveAdd
	OpPrimitiveSubtract
	OpPrimitiveMultiply
	OpPrimitiveDivide
	OpPrimitiveModulo

	OpObjectAdd
	OpObjectSubtract
	OpObjectMultiply
	OpObjectDivide

	OpObjectLeftAdd
	OpObjectLeftSubtract
	OpObjectLeftMultiply
	OpObjectLeftDivide

	OpObjectRightAdd
	OpObjectRightSubtract
	OpObjectRightMultiply
	OpObjectRightDivide

	OpInplaceLocalAdd
	OpInplaceLocalSubtract
	OpInplaceLocalMultiply
	OpInplaceLocalDivide
	OpInplaceLocalModulo

	OpInplaceMemberAdd
	OpInplaceMemberSubtract
	OpInplaceMemberMultiply
	OpInplaceMemberDivide
	OpInplaceMemberModulo

	OpPrimitiveEqual
	OpPrimitiveNotEqual
	OpPrimitiveLessThan
	OpPrimitiveLessThanOrEqual
	OpPrimitiveGreaterThan
	OpPrimitiveGreaterThanOrEqual

	OpObjectEqual
	OpObjectNotEqual
	OpObjectLessThan
	OpObjectLessThanOrEqual
	OpObjectGreaterThan
	OpObjectGreaterThanOrEqual

	OpInitialiseArray
	OpInvokeUserDefinedConstructor
	OpInvokeUserDefinedMemberFunction
	OpInvokeUserDefinedFreeFunction
	OpInvokeContractFunction

	// NumReserved is the first opcode value available to dynamically
	// registered handler opcodes.
	NumReserved
)

// Handler is the function signature every opcode table entry dispatches
// through: a single indexed call per instruction.
type Handler func(v *VM, instr Instruction) error

// OpcodeInfo is one opcode table entry: a unique qualified name (used for
// diagnostics and update_charges lookups), the handler, and the static
// charge attributed to every invocation before the handler runs.
type OpcodeInfo struct {
	Name         string
	Handler      Handler
	StaticCharge ChargeAmount
}

// OpcodeTable is the dense, opcode-indexed dispatch table. Built-ins
// occupy [0, NumReserved); RegisterHandlerOpcode appends entries above
// that boundary the way stdlib packages register host free/member
// functions.
type OpcodeTable struct {
	entries []OpcodeInfo
}

// NewOpcodeTable returns a table pre-populated with every built-in
// opcode's handler and a conservative default static charge.
func NewOpcodeTable() *OpcodeTable {
	t := &OpcodeTable{entries: make([]OpcodeInfo, NumReserved)}
	for op, def := range builtinOpcodeDefs {
		t.entries[op] = def
	}
	return t
}

// RegisterHandlerOpcode appends a new opcode entry above NumReserved,
// used by module setup to wire a host free function or method. Returns
// the opcode assigned.
func (t *OpcodeTable) RegisterHandlerOpcode(name string, h Handler, staticCharge ChargeAmount) Opcode {
	op := Opcode(len(t.entries))
	t.entries = append(t.entries, OpcodeInfo{Name: name, Handler: h, StaticCharge: staticCharge})
	return op
}

// Lookup returns the OpcodeInfo for op, or false if op is unregistered
// (ErrUnknownOpcode territory).
func (t *OpcodeTable) Lookup(op Opcode) (OpcodeInfo, bool) {
	if int(op) >= len(t.entries) || t.entries[op].Handler == nil {
		return OpcodeInfo{}, false
	}
	return t.entries[op], true
}

// UpdateCharge lets the embedder reprice a named opcode at runtime, so
// charge schedules can be versioned without rebuilding the table.
func (t *OpcodeTable) UpdateCharge(name string, amount ChargeAmount) bool {
	for i := range t.entries {
		if t.entries[i].Name == name {
			t.entries[i].StaticCharge = amount
			return true
		}
	}
	return false
}

// builtinOpcodeDefs is populated by init() in vm_handlers_primitive.go and
// vm_handlers_object.go (each owns the opcodes it implements) to keep a
// single opcode enum here while handler bodies live with their related
// logic.
var builtinOpcodeDefs = map[Opcode]OpcodeInfo{}

func defOpcode(op Opcode, name string, charge ChargeAmount, h Handler) {
	builtinOpcodeDefs[op] = OpcodeInfo{Name: name, Handler: h, StaticCharge: charge}
}
