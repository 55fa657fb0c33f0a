// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import "testing"

// Tests for the Inplace{Local,Member}{Add,Subtract,Multiply,Divide,Modulo}
// opcode family, covering both shapes a target slot can hold:
// a primitive (handled directly by inplaceApply's primOp branch) and an
// object (handled by the Object Contract's Inplace*/InplaceRight* hooks,
// dispatched on whether the popped operand is itself a primitive or an
// object). testBufferType is an arbitrary object type id above
// PrimitiveMaxId standing in for a compiler-assigned Buffer type.

const testBufferType TypeID = TypeFixed128 + 1

// ---- local variable, primitive target --------------------------------

func TestInplaceLocalAddPrimitive(t *testing.T) {
	main := fn("main", FnFree, TypeInt32, 1, 2, []TypeID{TypeInt32, TypeInt32},
		in(OpPushConstant, TypeInt32, 0, 0),
		in(OpLocalVariableDeclareAssign, TypeInt32, 1, 0),
		in(OpPushLocalVariable, TypeUnknown, 0, 0),
		in(OpInplaceLocalAdd, TypeInt32, 1, 0),
		in(OpPushLocalVariable, TypeUnknown, 1, 0),
		in(OpReturnValue, TypeUnknown, 0, 0),
	)
	types := NewTypeRegistry()
	ops := NewOpcodeTable()
	v := New(types, ops, 1_000_000)
	exec := &Executable{
		Functions: []Function{main},
		Constants: []Variant{ConstructPrimitive(TypeInt32, primFromI64(5))},
	}
	if err := v.Load(exec); err != nil {
		t.Fatal(err)
	}

	params := NewParameterPack()
	params.PushInt32(3)
	out := runOK(t, v, "main", params)
	if out.Primitive().asI32() != 8 {
		t.Fatalf("got %d, want 8", out.Primitive().asI32())
	}
}

func TestInplaceLocalModuloPrimitive(t *testing.T) {
	main := fn("main", FnFree, TypeInt32, 1, 2, []TypeID{TypeInt32, TypeInt32},
		in(OpPushConstant, TypeInt32, 0, 0),
		in(OpLocalVariableDeclareAssign, TypeInt32, 1, 0),
		in(OpPushLocalVariable, TypeUnknown, 0, 0),
		in(OpInplaceLocalModulo, TypeInt32, 1, 0),
		in(OpPushLocalVariable, TypeUnknown, 1, 0),
		in(OpReturnValue, TypeUnknown, 0, 0),
	)
	types := NewTypeRegistry()
	ops := NewOpcodeTable()
	v := New(types, ops, 1_000_000)
	exec := &Executable{
		Functions: []Function{main},
		Constants: []Variant{ConstructPrimitive(TypeInt32, primFromI64(7))},
	}
	if err := v.Load(exec); err != nil {
		t.Fatal(err)
	}

	params := NewParameterPack()
	params.PushInt32(3)
	out := runOK(t, v, "main", params)
	if out.Primitive().asI32() != 1 {
		t.Fatalf("got %d, want 1 (7 %% 3)", out.Primitive().asI32())
	}
}

// ---- local variable, object target -------------------------------------

func TestInplaceLocalAddObjectRHS(t *testing.T) {
	main := fn("main", FnFree, testBufferType, 0, 1, []TypeID{testBufferType},
		in(OpPushConstant, TypeUnknown, 0, 0),
		in(OpLocalVariableDeclareAssign, testBufferType, 0, 0),
		in(OpPushConstant, TypeUnknown, 1, 0),
		in(OpInplaceLocalAdd, TypeUnknown, 0, 0),
		in(OpPushLocalVariable, TypeUnknown, 0, 0),
		in(OpReturnValue, TypeUnknown, 0, 0),
	)
	types := NewTypeRegistry()
	ops := NewOpcodeTable()
	v := New(types, ops, 1_000_000)
	exec := &Executable{
		Functions: []Function{main},
		Constants: []Variant{
			ConstructObject(testBufferType, NewBufferObject(testBufferType, []byte{1, 2})),
			ConstructObject(testBufferType, NewBufferObject(testBufferType, []byte{9})),
		},
	}
	if err := v.Load(exec); err != nil {
		t.Fatal(err)
	}

	out := runOK(t, v, "main", NewParameterPack())
	buf, ok := out.Object().(*BufferObject)
	if !ok {
		t.Fatalf("got %T, want *BufferObject", out.Object())
	}
	want := []byte{1, 2, 9}
	if string(buf.Data) != string(want) {
		t.Fatalf("got %v, want %v", buf.Data, want)
	}
}

func TestInplaceLocalAddObjectPrimitiveRHS(t *testing.T) {
	main := fn("main", FnFree, testBufferType, 1, 2, []TypeID{TypeUint8, testBufferType},
		in(OpPushConstant, TypeUnknown, 0, 0),
		in(OpLocalVariableDeclareAssign, testBufferType, 1, 0),
		in(OpPushLocalVariable, TypeUnknown, 0, 0),
		in(OpInplaceLocalAdd, TypeUnknown, 1, 0),
		in(OpPushLocalVariable, TypeUnknown, 1, 0),
		in(OpReturnValue, TypeUnknown, 0, 0),
	)
	types := NewTypeRegistry()
	ops := NewOpcodeTable()
	v := New(types, ops, 1_000_000)
	exec := &Executable{
		Functions: []Function{main},
		Constants: []Variant{
			ConstructObject(testBufferType, NewBufferObject(testBufferType, []byte{1, 2})),
		},
	}
	if err := v.Load(exec); err != nil {
		t.Fatal(err)
	}

	params := NewParameterPack()
	params.PushVariant(ConstructPrimitive(TypeUint8, primFromU64(9)))
	out := runOK(t, v, "main", params)
	buf, ok := out.Object().(*BufferObject)
	if !ok {
		t.Fatalf("got %T, want *BufferObject", out.Object())
	}
	want := []byte{1, 2, 9}
	if string(buf.Data) != string(want) {
		t.Fatalf("got %v, want %v (InplaceRightAdd dispatch)", buf.Data, want)
	}
}

// InplaceLocalModulo has no object-contract hook: an object target must report operator-not-
// implemented rather than panicking, whether the popped operand is an
// object or a primitive.
func TestInplaceLocalModuloObjectNotImplemented(t *testing.T) {
	main := fn("main", FnFree, testBufferType, 0, 1, []TypeID{testBufferType},
		in(OpPushConstant, TypeUnknown, 0, 0),
		in(OpLocalVariableDeclareAssign, testBufferType, 0, 0),
		in(OpPushConstant, TypeUnknown, 1, 0),
		in(OpInplaceLocalModulo, TypeInt32, 0, 0),
		in(OpReturnValue, TypeUnknown, 0, 0),
	)
	types := NewTypeRegistry()
	ops := NewOpcodeTable()
	v := New(types, ops, 1_000_000)
	exec := &Executable{
		Functions: []Function{main},
		Constants: []Variant{
			ConstructObject(testBufferType, NewBufferObject(testBufferType, []byte{1})),
			ConstructPrimitive(TypeInt32, primFromI64(3)),
		},
	}
	if err := v.Load(exec); err != nil {
		t.Fatal(err)
	}

	_, err := v.Run("main", NewParameterPack())
	if err == nil {
		t.Fatalf("expected operator_not_implemented error")
	}
	re, ok := err.(*RunError)
	if !ok || re.Unwrap() != ErrOperatorNotImplemented {
		t.Fatalf("got %v, want ErrOperatorNotImplemented (no panic)", err)
	}
}

// ---- member variable, primitive target ---------------------------------

func TestInplaceMemberAddPrimitive(t *testing.T) {
	ctorType := TypeID(TypeFixed128 + 1)
	ctor := fn("Counter", FnConstructor, ctorType, 1, 1, []TypeID{TypeInt32},
		in(OpPushConstant, TypeInt32, 0, 0),
		in(OpPopToMemberVariable, TypeUnknown, 0, 0),
		in(OpPushLocalVariable, TypeUnknown, 0, 0),
		in(OpInplaceMemberAdd, TypeInt32, 0, 0),
		in(OpPushMemberVariable, TypeUnknown, 0, 0),
		in(OpReturnValue, TypeUnknown, 0, 0),
	)
	types := NewTypeRegistry()
	ops := NewOpcodeTable()
	v := New(types, ops, 1_000_000)
	exec := &Executable{
		Functions: []Function{ctor},
		Constants: []Variant{ConstructPrimitive(TypeInt32, primFromI64(4))},
		Types: []UserDefinedType{{
			Name:            "Counter",
			Members:         []MemberVariable{{Name: "v", Type: TypeInt32}},
			MemberFunctions: []int{0},
		}},
	}
	if err := v.Load(exec); err != nil {
		t.Fatal(err)
	}

	params := NewParameterPack()
	params.PushInt32(3)
	out := runOK(t, v, "Counter", params)
	if out.Primitive().asI32() != 7 {
		t.Fatalf("got %d, want 7", out.Primitive().asI32())
	}
}

// ---- member variable, object target -------------------------------------

func TestInplaceMemberAddObjectRHS(t *testing.T) {
	ctorType := TypeID(TypeFixed128 + 1)
	ctor := fn("Box", FnConstructor, ctorType, 0, 0, nil,
		in(OpPushConstant, TypeUnknown, 0, 0),
		in(OpPopToMemberVariable, TypeUnknown, 0, 0),
		in(OpPushConstant, TypeUnknown, 1, 0),
		in(OpInplaceMemberAdd, TypeUnknown, 0, 0),
		in(OpPushMemberVariable, TypeUnknown, 0, 0),
		in(OpReturnValue, TypeUnknown, 0, 0),
	)
	types := NewTypeRegistry()
	ops := NewOpcodeTable()
	v := New(types, ops, 1_000_000)
	exec := &Executable{
		Functions: []Function{ctor},
		Constants: []Variant{
			ConstructObject(testBufferType, NewBufferObject(testBufferType, []byte{1})),
			ConstructObject(testBufferType, NewBufferObject(testBufferType, []byte{2, 3})),
		},
		Types: []UserDefinedType{{
			Name:            "Box",
			Members:         []MemberVariable{{Name: "buf", Type: testBufferType}},
			MemberFunctions: []int{0},
		}},
	}
	if err := v.Load(exec); err != nil {
		t.Fatal(err)
	}

	out := runOK(t, v, "Box", NewParameterPack())
	buf, ok := out.Object().(*BufferObject)
	if !ok {
		t.Fatalf("got %T, want *BufferObject", out.Object())
	}
	want := []byte{1, 2, 3}
	if string(buf.Data) != string(want) {
		t.Fatalf("got %v, want %v", buf.Data, want)
	}
}

func TestInplaceMemberModuloObjectNotImplemented(t *testing.T) {
	ctorType := TypeID(TypeFixed128 + 1)
	ctor := fn("Box", FnConstructor, ctorType, 0, 0, nil,
		in(OpPushConstant, TypeUnknown, 0, 0),
		in(OpPopToMemberVariable, TypeUnknown, 0, 0),
		in(OpPushConstant, TypeUnknown, 1, 0),
		in(OpInplaceMemberModulo, TypeInt32, 0, 0),
		in(OpReturnValue, TypeUnknown, 0, 0),
	)
	types := NewTypeRegistry()
	ops := NewOpcodeTable()
	v := New(types, ops, 1_000_000)
	exec := &Executable{
		Functions: []Function{ctor},
		Constants: []Variant{
			ConstructObject(testBufferType, NewBufferObject(testBufferType, []byte{1})),
			ConstructPrimitive(TypeInt32, primFromI64(3)),
		},
		Types: []UserDefinedType{{
			Name:            "Box",
			Members:         []MemberVariable{{Name: "buf", Type: testBufferType}},
			MemberFunctions: []int{0},
		}},
	}
	if err := v.Load(exec); err != nil {
		t.Fatal(err)
	}

	_, err := v.Run("Box", NewParameterPack())
	if err == nil {
		t.Fatalf("expected operator_not_implemented error")
	}
	re, ok := err.(*RunError)
	if !ok || re.Unwrap() != ErrOperatorNotImplemented {
		t.Fatalf("got %v, want ErrOperatorNotImplemented (no panic)", err)
	}
}
