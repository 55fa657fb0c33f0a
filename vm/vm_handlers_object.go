// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

func init() {
	registerStackAndVariableOpcodes()
	registerDeclarationOpcodes()
	registerControlFlowOpcodes()
	registerLoopOpcodes()
	registerIncDecOpcodes()
	registerObjectNegateOpcode()
	registerObjectArithmeticOpcodes()
	registerObjectRelationalOpcodes()
	registerConstructionOpcodes()
}

// --- stack & variable opcodes ------------

func registerStackAndVariableOpcodes() {
	defOpcode(OpPushNull, "PushNull", 1, func(v *VM, instr Instruction) error {
		return v.push(NullVariant(instr.TypeID))
	})
	defOpcode(OpPushFalse, "PushFalse", 1, func(v *VM, instr Instruction) error {
		return v.push(boolVariant(false))
	})
	defOpcode(OpPushTrue, "PushTrue", 1, func(v *VM, instr Instruction) error {
		return v.push(boolVariant(true))
	})
	defOpcode(OpPushString, "PushString", 1, func(v *VM, instr Instruction) error {
		return v.push(ConstructObject(TypeString, v.resolveString(instr.Index)))
	})
	defOpcode(OpPushConstant, "PushConstant", 1, func(v *VM, instr Instruction) error {
		if int(instr.Index) >= len(v.exec.Constants) {
			return ErrIndexOutOfBounds
		}
		return v.push(v.exec.Constants[instr.Index])
	})
	defOpcode(OpPushLargeConstant, "PushLargeConstant", 1, func(v *VM, instr Instruction) error {
		if int(instr.Index) >= len(v.exec.LargeConstants) {
			return ErrIndexOutOfBounds
		}
		return v.push(v.exec.LargeConstants[instr.Index])
	})
	defOpcode(OpPushLocalVariable, "PushLocalVariable", 1, func(v *VM, instr Instruction) error {
		return v.push(*v.atRef(v.bsp + int(instr.Index)))
	})
	defOpcode(OpPopToLocalVariable, "PopToLocalVariable", 1, func(v *VM, instr Instruction) error {
		val, err := v.pop()
		if err != nil {
			return err
		}
		v.atRef(v.bsp + int(instr.Index)).Assign(val)
		return nil
	})
	defOpcode(OpPushMemberVariable, "PushMemberVariable", 1, func(v *VM, instr Instruction) error {
		self, err := v.selfObject()
		if err != nil {
			return err
		}
		if int(instr.Index) >= len(self.Members) {
			return ErrIndexOutOfBounds
		}
		return v.push(self.Members[instr.Index])
	})
	defOpcode(OpPopToMemberVariable, "PopToMemberVariable", 1, func(v *VM, instr Instruction) error {
		val, err := v.pop()
		if err != nil {
			return err
		}
		self, err := v.selfObject()
		if err != nil {
			return err
		}
		if int(instr.Index) >= len(self.Members) {
			return ErrIndexOutOfBounds
		}
		self.Members[instr.Index].Assign(val)
		return nil
	})
	defOpcode(OpPushSelf, "PushSelf", 1, func(v *VM, instr Instruction) error {
		return v.push(v.self)
	})
	defOpcode(OpDuplicate, "Duplicate", 1, func(v *VM, instr Instruction) error {
		return v.push(*v.atRef(v.sp - int(instr.Data)))
	})
	defOpcode(OpDuplicateInsert, "DuplicateInsert", 1, func(v *VM, instr Instruction) error {
		dup := *v.topRef()
		insertAt := v.sp - int(instr.Data)
		if err := v.push(Variant{}); err != nil {
			return err
		}
		for i := v.sp; i > insertAt+1; i-- {
			*v.atRef(i) = *v.atRef(i - 1)
		}
		*v.atRef(insertAt + 1) = dup
		return nil
	})
	defOpcode(OpDiscard, "Discard", 1, func(v *VM, instr Instruction) error {
		val, err := v.pop()
		if err != nil {
			return err
		}
		val.Reset()
		return nil
	})
}

// selfObject returns the current self Variant's UserDefinedObject,
// failing with ErrNullReference if self isn't bound (free function, or
// null receiver).
func (v *VM) selfObject() (*UserDefinedObject, error) {
	if v.self.IsNull() || v.self.Object() == nil {
		return nil, ErrNullReference
	}
	obj, ok := v.self.Object().(*UserDefinedObject)
	if !ok {
		return nil, ErrTypeMismatch
	}
	return obj, nil
}

// --- declaration opcodes -------------------------------------------------

func registerDeclarationOpcodes() {
	defOpcode(OpLocalVariableDeclare, "LocalVariableDeclare", 1, func(v *VM, instr Instruction) error {
		if instr.TypeID > PrimitiveMaxId {
			*v.atRef(v.bsp + int(instr.Index)) = NullVariant(instr.TypeID)
		} else {
			*v.atRef(v.bsp + int(instr.Index)) = ConstructPrimitive(instr.TypeID, 0)
		}
		return nil
	})
	defOpcode(OpLocalVariableDeclareAssign, "LocalVariableDeclareAssign", 1, func(v *VM, instr Instruction) error {
		val, err := v.pop()
		if err != nil {
			return err
		}
		slot := int(instr.Index)
		v.atRef(v.bsp + slot).Assign(val)
		if instr.TypeID > PrimitiveMaxId {
			v.trackLiveObject(slot, int(instr.Data))
		}
		return nil
	})
	defOpcode(OpContractVariableDeclareAssign, "ContractVariableDeclareAssign", 1, func(v *VM, instr Instruction) error {
		// A contract variable is a lightweight handle (the contract's
		// index into the executable's contract table), not an owning
		// object -- so it is stored as a plain Uint16 primitive and needs
		// no live-object tracking or destruction.
		slot := int(instr.Index)
		contractID := instr.TypeID
		v.atRef(v.bsp + slot).Assign(ConstructPrimitive(TypeUint16, primFromU64(uint64(contractID))))
		return nil
	})
}

// --- control flow opcodes -----------------------------------------------

func registerControlFlowOpcodes() {
	defOpcode(OpJump, "Jump", 1, func(v *VM, instr Instruction) error {
		v.pc = int(instr.Index)
		return nil
	})
	defOpcode(OpJumpIfFalse, "JumpIfFalse", 1, func(v *VM, instr Instruction) error {
		val, err := v.pop()
		if err != nil {
			return err
		}
		if !val.Primitive().asBool() {
			v.pc = int(instr.Index)
		}
		return nil
	})
	defOpcode(OpJumpIfTrue, "JumpIfTrue", 1, func(v *VM, instr Instruction) error {
		val, err := v.pop()
		if err != nil {
			return err
		}
		if val.Primitive().asBool() {
			v.pc = int(instr.Index)
		}
		return nil
	})
	defOpcode(OpJumpIfFalseOrPop, "JumpIfFalseOrPop", 1, func(v *VM, instr Instruction) error {
		if !v.topRef().Primitive().asBool() {
			v.pc = int(instr.Index)
			return nil
		}
		_, err := v.pop()
		return err
	})
	defOpcode(OpJumpIfTrueOrPop, "JumpIfTrueOrPop", 1, func(v *VM, instr Instruction) error {
		if v.topRef().Primitive().asBool() {
			v.pc = int(instr.Index)
			return nil
		}
		_, err := v.pop()
		return err
	})
	defOpcode(OpBreak, "Break", 1, func(v *VM, instr Instruction) error {
		v.destructScope(int(instr.Data))
		v.pc = int(instr.Index)
		return nil
	})
	defOpcode(OpContinue, "Continue", 1, func(v *VM, instr Instruction) error {
		v.destructScope(int(instr.Data))
		v.pc = int(instr.Index)
		return nil
	})
	defOpcode(OpDestruct, "Destruct", 1, func(v *VM, instr Instruction) error {
		v.destructScope(int(instr.Data))
		return nil
	})
	defOpcode(OpReturn, "Return", 1, func(v *VM, instr Instruction) error {
		return v.doReturn(false)
	})
	defOpcode(OpReturnValue, "ReturnValue", 1, func(v *VM, instr Instruction) error {
		return v.doReturn(true)
	})
}

// doReturn implements the shared Return/ReturnValue calling convention:
// sp==bsp-1 (free) / bsp-2 (member) on plain Return, or the return value
// left alone at the vacated slot on ReturnValue. A constructor's Return
// stores the constructed self where the first argument was.
func (v *VM) doReturn(hasValue bool) error {
	v.destructFrame()

	var retVal Variant
	switch {
	case hasValue:
		rv, err := v.pop()
		if err != nil {
			return err
		}
		retVal = rv
	case v.function.Kind == FnConstructor:
		retVal = v.self
		hasValue = true
	}

	isMember := v.function.Kind == FnMember
	frame, ok := v.popFrame()
	if !ok {
		if hasValue {
			v.returnValue = retVal
		} else {
			v.returnValue = VoidVariant()
		}
		v.stop = true
		return nil
	}

	lowSlot := v.bsp
	if isMember {
		lowSlot = v.bsp - 1
	}
	for i := lowSlot; i <= v.sp; i++ {
		v.atRef(i).Reset()
	}
	if hasValue {
		*v.atRef(lowSlot) = retVal
		v.sp = lowSlot
	} else {
		v.sp = lowSlot - 1
	}

	v.function = frame.Function
	v.pc = frame.SavedPC
	v.bsp = frame.Bsp
	v.self = frame.SavedSelf
	return nil
}

// --- for-range loop opcodes ----------------------------------------------

func registerLoopOpcodes() {
	defOpcode(OpForRangeInit, "ForRangeInit", 1, func(v *VM, instr Instruction) error {
		hasDelta := instr.Data != 0
		var delta Primitive = primFromI64(1)
		if hasDelta {
			d, err := v.pop()
			if err != nil {
				return err
			}
			delta = d.Primitive()
		}
		target, err := v.pop()
		if err != nil {
			return err
		}
		start, err := v.pop()
		if err != nil {
			return err
		}
		slot := int(instr.Index)
		v.atRef(v.bsp + slot).Assign(ConstructPrimitive(instr.TypeID, start.Primitive()))
		return v.pushForRange(ForRangeLoop{
			VariableIndex: slot,
			Current:       start.Primitive(),
			Target:        target.Primitive(),
			Delta:         delta,
			HasDelta:      hasDelta,
			VariableType:  instr.TypeID,
		})
	})
	defOpcode(OpForRangeIterate, "ForRangeIterate", 1, func(v *VM, instr Instruction) error {
		loop := v.topForRange()
		if loop == nil {
			return ErrForStackOverflow
		}
		if primCompare(loop.VariableType, loop.Current, loop.Target) >= 0 {
			v.pc = int(instr.Index)
			return nil
		}
		v.atRef(v.bsp + loop.VariableIndex).Assign(ConstructPrimitive(loop.VariableType, loop.Current))
		next, err := primAdd(loop.VariableType, loop.Current, loop.Delta)
		if err != nil {
			return err
		}
		loop.Current = next
		return nil
	})
	defOpcode(OpForRangeTerminate, "ForRangeTerminate", 1, func(v *VM, instr Instruction) error {
		v.popForRange()
		return nil
	})
}

// --- prefix/postfix increment/decrement ---------------------------------

func registerIncDecOpcodes() {
	defOpcode(OpLocalVariablePrefixInc, "LocalVariablePrefixInc", 1, localIncDec(1, true))
	defOpcode(OpLocalVariablePrefixDec, "LocalVariablePrefixDec", 1, localIncDec(-1, true))
	defOpcode(OpLocalVariablePostfixInc, "LocalVariablePostfixInc", 1, localIncDec(1, false))
	defOpcode(OpLocalVariablePostfixDec, "LocalVariablePostfixDec", 1, localIncDec(-1, false))
	defOpcode(OpMemberVariablePrefixInc, "MemberVariablePrefixInc", 1, memberIncDec(1, true))
	defOpcode(OpMemberVariablePrefixDec, "MemberVariablePrefixDec", 1, memberIncDec(-1, true))
	defOpcode(OpMemberVariablePostfixInc, "MemberVariablePostfixInc", 1, memberIncDec(1, false))
	defOpcode(OpMemberVariablePostfixDec, "MemberVariablePostfixDec", 1, memberIncDec(-1, false))
}

func localIncDec(delta int64, prefix bool) Handler {
	return func(v *VM, instr Instruction) error {
		ref := v.atRef(v.bsp + int(instr.Index))
		old := *ref
		next, err := primAdd(instr.TypeID, old.Primitive(), primFromI64(delta))
		if err != nil {
			return err
		}
		*ref = ConstructPrimitive(instr.TypeID, next)
		if prefix {
			return v.push(*ref)
		}
		return v.push(old)
	}
}

func memberIncDec(delta int64, prefix bool) Handler {
	return func(v *VM, instr Instruction) error {
		self, err := v.selfObject()
		if err != nil {
			return err
		}
		if int(instr.Index) >= len(self.Members) {
			return ErrIndexOutOfBounds
		}
		ref := &self.Members[instr.Index]
		old := *ref
		next, err := primAdd(instr.TypeID, old.Primitive(), primFromI64(delta))
		if err != nil {
			return err
		}
		*ref = ConstructPrimitive(instr.TypeID, next)
		if prefix {
			return v.push(*ref)
		}
		return v.push(old)
	}
}

// --- unary object negate -------------------------------------------------

func registerObjectNegateOpcode() {
	defOpcode(OpObjectNegate, "ObjectNegate", 1, func(v *VM, instr Instruction) error {
		a, err := v.pop()
		if err != nil {
			return err
		}
		if a.IsNull() {
			return ErrNullReference
		}
		res, err := a.Object().Negate()
		if err != nil {
			return err
		}
		return v.push(res)
	})
}

// --- object arithmetic: object/object-left/object-right/inplace --------

type objBinaryMethod func(o Object, other Variant) (Variant, error)
type objBinaryLeftMethod func(o Object, other Variant) (Variant, error)
type objInplaceMethod func(o Object, other Variant) error

func registerObjectArithmeticOpcodes() {
	registerObjectBinaryFamily(OpObjectAdd, "ObjectAdd", Object.Add, Object.AddChargeEstimator)
	registerObjectBinaryFamily(OpObjectSubtract, "ObjectSubtract", Object.Subtract, Object.SubtractChargeEstimator)
	registerObjectBinaryFamily(OpObjectMultiply, "ObjectMultiply", Object.Multiply, Object.MultiplyChargeEstimator)
	registerObjectBinaryFamily(OpObjectDivide, "ObjectDivide", Object.Divide, Object.DivideChargeEstimator)

	registerObjectLeftFamily(OpObjectLeftAdd, "ObjectLeftAdd", Object.RightAdd)
	registerObjectLeftFamily(OpObjectLeftSubtract, "ObjectLeftSubtract", Object.RightSubtract)
	registerObjectLeftFamily(OpObjectLeftMultiply, "ObjectLeftMultiply", Object.RightMultiply)
	registerObjectLeftFamily(OpObjectLeftDivide, "ObjectLeftDivide", Object.RightDivide)

	registerObjectRightFamily(OpObjectRightAdd, "ObjectRightAdd", Object.LeftAdd)
	registerObjectRightFamily(OpObjectRightSubtract, "ObjectRightSubtract", Object.LeftSubtract)
	registerObjectRightFamily(OpObjectRightMultiply, "ObjectRightMultiply", Object.LeftMultiply)
	registerObjectRightFamily(OpObjectRightDivide, "ObjectRightDivide", Object.LeftDivide)

	registerInplaceLocalFamily(OpInplaceLocalAdd, "InplaceLocalAdd", Object.InplaceAdd, Object.InplaceRightAdd, primAdd)
	registerInplaceLocalFamily(OpInplaceLocalSubtract, "InplaceLocalSubtract", Object.InplaceSubtract, Object.InplaceRightSubtract, primSub)
	registerInplaceLocalFamily(OpInplaceLocalMultiply, "InplaceLocalMultiply", Object.InplaceMultiply, Object.InplaceRightMultiply, primMul)
	registerInplaceLocalFamily(OpInplaceLocalDivide, "InplaceLocalDivide", Object.InplaceDivide, Object.InplaceRightDivide, primDiv)

	registerInplaceMemberFamily(OpInplaceMemberAdd, "InplaceMemberAdd", Object.InplaceAdd, Object.InplaceRightAdd, primAdd)
	registerInplaceMemberFamily(OpInplaceMemberSubtract, "InplaceMemberSubtract", Object.InplaceSubtract, Object.InplaceRightSubtract, primSub)
	registerInplaceMemberFamily(OpInplaceMemberMultiply, "InplaceMemberMultiply", Object.InplaceMultiply, Object.InplaceRightMultiply, primMul)
	registerInplaceMemberFamily(OpInplaceMemberDivide, "InplaceMemberDivide", Object.InplaceDivide, Object.InplaceRightDivide, primDiv)

	// No object type exposes a Modulo hook, so the object branch here
	// always reports operator-not-implemented.
	registerInplaceLocalFamily(OpInplaceLocalModulo, "InplaceLocalModulo", nil, nil, primMod)
	registerInplaceMemberFamily(OpInplaceMemberModulo, "InplaceMemberModulo", nil, nil, primMod)
}

func estimateAndCharge(v *VM, estimate func() ChargeAmount) error {
	if v.charge.Add(estimate()) {
		return ErrChargeLimitReached
	}
	return nil
}

type objChargeEstimator func(o Object, other Variant) ChargeAmount

func registerObjectBinaryFamily(op Opcode, name string, method objBinaryMethod, estimator objChargeEstimator) {
	defOpcode(op, name, 1, func(v *VM, instr Instruction) error {
		b, err := v.pop()
		if err != nil {
			return err
		}
		a, err := v.pop()
		if err != nil {
			return err
		}
		if a.IsNull() {
			return ErrNullReference
		}
		if b.IsObject() && b.IsNull() {
			return ErrNullReference
		}
		if err := estimateAndCharge(v, func() ChargeAmount { return estimator(a.Object(), b) }); err != nil {
			return err
		}
		res, err := method(a.Object(), b)
		if err != nil {
			return err
		}
		return v.push(res)
	})
}

// registerObjectLeftFamily: the object is the left operand, a primitive
// is the right operand.
func registerObjectLeftFamily(op Opcode, name string, method objBinaryLeftMethod) {
	defOpcode(op, name, 1, func(v *VM, instr Instruction) error {
		b, err := v.pop() // primitive
		if err != nil {
			return err
		}
		a, err := v.pop() // object
		if err != nil {
			return err
		}
		if a.IsNull() {
			return ErrNullReference
		}
		res, err := method(a.Object(), b)
		if err != nil {
			return err
		}
		return v.push(res)
	})
}

// registerObjectRightFamily: a primitive is the left operand, the object
// is the right operand (the "object-right" shape).
func registerObjectRightFamily(op Opcode, name string, method objBinaryLeftMethod) {
	defOpcode(op, name, 1, func(v *VM, instr Instruction) error {
		b, err := v.pop() // object
		if err != nil {
			return err
		}
		a, err := v.pop() // primitive
		if err != nil {
			return err
		}
		if b.IsNull() {
			return ErrNullReference
		}
		res, err := method(b.Object(), a)
		if err != nil {
			return err
		}
		return v.push(res)
	})
}

// inplaceApply mutates ref (a local or member variable slot) by other,
// dispatching on ref's own storage kind rather than assuming it is always
// an Object: a single Inplace* opcode covers both a primitive target
// (primOp branch) and an object target. primOp may be nil when ref is
// known to be an object; method/rightMethod may be nil for operators
// with no object-contract hook (modulo).
//
// Within the object branch the opcode further splits on other's kind:
// a primitive other calls the paired InplaceRight* hook, an object other
// calls the plain Inplace* hook.
func inplaceApply(ref *Variant, instr Instruction, other Variant, primOp primBinOp, method, rightMethod objInplaceMethod) error {
	if ref.IsPrimitive() {
		res, err := primOp(instr.TypeID, ref.Primitive(), other.Primitive())
		if err != nil {
			return err
		}
		*ref = ConstructPrimitive(instr.TypeID, res)
		return nil
	}
	if ref.IsNull() {
		return ErrNullReference
	}
	if other.IsPrimitive() {
		if rightMethod == nil {
			return ErrOperatorNotImplemented
		}
		return rightMethod(ref.Object(), other)
	}
	if other.IsNull() {
		return ErrNullReference
	}
	if method == nil {
		return ErrOperatorNotImplemented
	}
	return method(ref.Object(), other)
}

func registerInplaceLocalFamily(op Opcode, name string, method, rightMethod objInplaceMethod, primOp primBinOp) {
	defOpcode(op, name, 1, func(v *VM, instr Instruction) error {
		other, err := v.pop()
		if err != nil {
			return err
		}
		ref := v.atRef(v.bsp + int(instr.Index))
		return inplaceApply(ref, instr, other, primOp, method, rightMethod)
	})
}

func registerInplaceMemberFamily(op Opcode, name string, method, rightMethod objInplaceMethod, primOp primBinOp) {
	defOpcode(op, name, 1, func(v *VM, instr Instruction) error {
		other, err := v.pop()
		if err != nil {
			return err
		}
		self, err := v.selfObject()
		if err != nil {
			return err
		}
		if int(instr.Index) >= len(self.Members) {
			return ErrIndexOutOfBounds
		}
		ref := &self.Members[instr.Index]
		return inplaceApply(ref, instr, other, primOp, method, rightMethod)
	})
}

// --- object relational ops, null-safe policy ------------------

func registerObjectRelationalOpcodes() {
	defOpcode(OpObjectEqual, "ObjectEqual", 1, objRelational(func(o Object, other Variant) (bool, error) { return o.IsEqual(other) }, true))
	defOpcode(OpObjectNotEqual, "ObjectNotEqual", 1, objRelational(func(o Object, other Variant) (bool, error) { return o.IsNotEqual(other) }, true))
	defOpcode(OpObjectLessThan, "ObjectLessThan", 1, objRelational(func(o Object, other Variant) (bool, error) { return o.IsLessThan(other) }, false))
	defOpcode(OpObjectLessThanOrEqual, "ObjectLessThanOrEqual", 1, objRelational(func(o Object, other Variant) (bool, error) { return o.IsLessThanOrEqual(other) }, false))
	defOpcode(OpObjectGreaterThan, "ObjectGreaterThan", 1, objRelational(func(o Object, other Variant) (bool, error) { return o.IsGreaterThan(other) }, false))
	defOpcode(OpObjectGreaterThanOrEqual, "ObjectGreaterThanOrEqual", 1, objRelational(func(o Object, other Variant) (bool, error) { return o.IsGreaterThanOrEqual(other) }, false))
}

// objRelational wraps a relational hook with the null policy:
// null==null is true (eq-family only), null vs non-null compares
// false/true without invoking user code; any other null left operand on
// an ordering op is a null_reference error.
func objRelational(call func(o Object, other Variant) (bool, error), eqFamily bool) Handler {
	return func(v *VM, instr Instruction) error {
		b, err := v.pop()
		if err != nil {
			return err
		}
		a, err := v.pop()
		if err != nil {
			return err
		}
		aNull, bNull := a.IsNull(), b.IsNull()
		if eqFamily && (aNull || bNull) {
			isEqual := aNull && bNull
			if instr.Opcode == OpObjectEqual {
				return v.push(boolVariant(isEqual))
			}
			return v.push(boolVariant(!isEqual))
		}
		if aNull {
			return ErrNullReference
		}
		res, err := call(a.Object(), b)
		if err != nil {
			return err
		}
		return v.push(boolVariant(res))
	}
}

// --- construction & invocation opcodes -----------------------------------

func registerConstructionOpcodes() {
	defOpcode(OpInitialiseArray, "InitialiseArray", 1, func(v *VM, instr Instruction) error {
		n := int(instr.Index)
		elems := make([]Variant, n)
		for i := n - 1; i >= 0; i-- {
			val, err := v.pop()
			if err != nil {
				return err
			}
			elems[i] = val
		}
		info, err := v.Types.GetTypeInfo(instr.TypeID)
		if err != nil {
			return err
		}
		elemType := TypeUnknown
		if len(info.TemplateParams) > 0 {
			elemType = info.TemplateParams[0]
		}
		return v.push(ConstructObject(instr.TypeID, NewArrayObject(v, instr.TypeID, elemType, elems)))
	})

	defOpcode(OpInvokeUserDefinedConstructor, "InvokeUserDefinedConstructor", 1, func(v *VM, instr Instruction) error {
		ut, ok := v.udtByID[instr.TypeID]
		if !ok {
			return ErrUnknownType
		}
		if int(instr.Index) >= len(ut.MemberFunctions) {
			return ErrIndexOutOfBounds
		}
		return v.callFunction(ut.MemberFunctions[instr.Index], true)
	})
	defOpcode(OpInvokeUserDefinedMemberFunction, "InvokeUserDefinedMemberFunction", 1, func(v *VM, instr Instruction) error {
		ut, ok := v.udtByID[instr.TypeID]
		if !ok {
			return ErrUnknownType
		}
		if int(instr.Index) >= len(ut.MemberFunctions) {
			return ErrIndexOutOfBounds
		}
		return v.callFunction(ut.MemberFunctions[instr.Index], false)
	})
	defOpcode(OpInvokeUserDefinedFreeFunction, "InvokeUserDefinedFreeFunction", 1, func(v *VM, instr Instruction) error {
		return v.callFunction(int(instr.Index), false)
	})
	defOpcode(OpInvokeContractFunction, "InvokeContractFunction", 1, func(v *VM, instr Instruction) error {
		if v.Invoker == nil {
			return ErrOperatorNotImplemented
		}
		if int(instr.Index) >= len(v.exec.Contracts) {
			return ErrIndexOutOfBounds
		}
		contract := &v.exec.Contracts[instr.Index]
		if int(instr.Data) >= len(contract.Functions) {
			return ErrIndexOutOfBounds
		}
		fn := &contract.Functions[instr.Data]
		params := make([]Variant, len(fn.ParamTypes))
		for i := len(params) - 1; i >= 0; i-- {
			val, err := v.pop()
			if err != nil {
				return err
			}
			params[i] = val
		}
		res, err := v.Invoker(contract.Name, fn.Name, params)
		if err != nil {
			return ErrUserRuntimeError
		}
		if fn.ReturnType == TypeVoid {
			return nil
		}
		return v.push(res)
	})
}

// callFunction implements the calling convention for a
// call issued by one of the Invoke* opcodes: parameters (and, for member
// calls, the receiver first) are already on the operand stack.
func (v *VM) callFunction(fnIndex int, isConstructor bool) error {
	if fnIndex < 0 || fnIndex >= len(v.exec.Functions) {
		return ErrEntrypointNotFound
	}
	fn := &v.exec.Functions[fnIndex]
	newBsp := v.sp - fn.NumParameters + 1
	if err := v.pushFrame(); err != nil {
		return err
	}
	for i := fn.NumParameters; i < fn.NumLocals; i++ {
		if err := v.push(Variant{}); err != nil {
			return err
		}
	}
	v.function = fn
	v.pc = 0
	v.bsp = newBsp

	switch {
	case isConstructor:
		self, err := v.newUserDefinedObject(fn.ReturnType)
		if err != nil {
			return err
		}
		v.self = ConstructObject(fn.ReturnType, self)
	case fn.Kind == FnMember:
		v.self = *v.atRef(newBsp - 1)
	default:
		v.self = Variant{}
	}
	return nil
}
