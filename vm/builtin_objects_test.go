// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import (
	"testing"

	"github.com/holiman/uint256"
)

func serializeBytes(t *testing.T, obj Object) []byte {
	t.Helper()
	buf := NewSerializeBuffer()
	if err := obj.SerializeTo(buf); err != nil {
		t.Fatalf("SerializeTo: %v", err)
	}
	return buf.(*msgpackBuffer).Bytes()
}

// roundTrip serializes obj, deserializes into fresh, and requires value
// equality through the contract's IsEqual hook.
func roundTrip(t *testing.T, obj, fresh Object) {
	t.Helper()
	data := serializeBytes(t, obj)
	if err := fresh.DeserializeFrom(NewDeserializeBuffer(data)); err != nil {
		t.Fatalf("DeserializeFrom: %v", err)
	}
	eq, err := obj.IsEqual(ConstructObject(obj.TypeID(), fresh))
	if err != nil {
		t.Fatalf("IsEqual after round-trip: %v", err)
	}
	if !eq {
		t.Fatalf("round-trip changed the value: %#v -> %#v", obj, fresh)
	}
}

// ---- String -----------------------------------------------------------------

func TestStringRoundTrip(t *testing.T) {
	roundTrip(t, NewStringObject("hello world"), NewStringObject(""))
}

func TestStringConcatAndCompare(t *testing.T) {
	a := NewStringObject("foo")
	b := ConstructObject(TypeString, NewStringObject("bar"))
	res, err := a.Add(b)
	if err != nil {
		t.Fatal(err)
	}
	if res.Object().(*StringObject).Value != "foobar" {
		t.Fatalf("got %q, want foobar", res.Object().(*StringObject).Value)
	}

	lt, err := NewStringObject("abc").IsLessThan(ConstructObject(TypeString, NewStringObject("abd")))
	if err != nil || !lt {
		t.Fatalf("abc < abd should hold, got (%v, %v)", lt, err)
	}
}

func TestStringIndexErrors(t *testing.T) {
	s := NewStringObject("ab")
	if _, err := s.GetIndexedValue(ConstructPrimitive(TypeInt32, primFromI64(-1))); err != ErrNegativeIndex {
		t.Fatalf("got %v, want ErrNegativeIndex", err)
	}
	if _, err := s.GetIndexedValue(ConstructPrimitive(TypeInt32, primFromI64(2))); err != ErrIndexOutOfBounds {
		t.Fatalf("got %v, want ErrIndexOutOfBounds", err)
	}
}

// ---- Address ----------------------------------------------------------------

func TestAddressRoundTripAndOrdering(t *testing.T) {
	var lo, hi [AddressLength]byte
	lo[31] = 1
	hi[0] = 1
	a := NewAddressObject(lo)
	roundTrip(t, a, NewAddressObject([AddressLength]byte{}))

	lt, err := a.IsLessThan(ConstructObject(TypeAddress, NewAddressObject(hi)))
	if err != nil || !lt {
		t.Fatalf("byte-ordered comparison failed: (%v, %v)", lt, err)
	}
}

func TestAddressHexFormat(t *testing.T) {
	var b [AddressLength]byte
	b[0] = 0xAB
	if got := NewAddressObject(b).Hex(); got[:4] != "0xab" || len(got) != 2+2*AddressLength {
		t.Fatalf("unexpected hex rendering %q", got)
	}
}

// ---- Buffer -----------------------------------------------------------------

func TestBufferRoundTripAndOps(t *testing.T) {
	const bufType = TypeID(TypeFixed128 + 1)
	b := NewBufferObject(bufType, []byte{1, 2, 3})
	roundTrip(t, b, NewBufferObject(bufType, nil))

	if err := b.InplaceRightAdd(ConstructPrimitive(TypeUint8, primFromU64(4))); err != nil {
		t.Fatal(err)
	}
	got, err := b.GetIndexedValue(ConstructPrimitive(TypeInt32, primFromI64(3)))
	if err != nil || got.Primitive().asU8() != 4 {
		t.Fatalf("appended byte readback: (%v, %v)", got, err)
	}

	other := NewBufferObject(bufType, []byte{9})
	sum, err := b.Add(ConstructObject(bufType, other))
	if err != nil {
		t.Fatal(err)
	}
	if n := len(sum.Object().(*BufferObject).Data); n != 5 {
		t.Fatalf("concatenated length %d, want 5", n)
	}
}

// ---- Fixed128 ---------------------------------------------------------------

func TestFixed128RoundTrip(t *testing.T) {
	f := NewFixed128(uint256.NewInt(123456789), true, 6)
	fresh := &Fixed128Object{BaseObject: NewBaseObject(TypeFixed128)}
	roundTrip(t, f, fresh)
	if fresh.Scale != 6 || !fresh.Negative {
		t.Fatalf("scale/sign lost in round-trip: %+v", fresh)
	}
}

func TestFixed128Arithmetic(t *testing.T) {
	// 1.5 (scale 1) + 0.25 (scale 2) = 1.75 at the common scale 2.
	a := NewFixed128(uint256.NewInt(15), false, 1)
	b := NewFixed128(uint256.NewInt(25), false, 2)
	sum, err := a.Add(ConstructObject(TypeFixed128, b))
	if err != nil {
		t.Fatal(err)
	}
	s := sum.Object().(*Fixed128Object)
	if s.Scale != 2 || s.Unscaled.Uint64() != 175 || s.Negative {
		t.Fatalf("1.5 + 0.25: got %+v, want 175 @ scale 2", s)
	}

	diff, err := b.Subtract(ConstructObject(TypeFixed128, a))
	if err != nil {
		t.Fatal(err)
	}
	d := diff.Object().(*Fixed128Object)
	if d.Unscaled.Uint64() != 125 || !d.Negative {
		t.Fatalf("0.25 - 1.5: got %+v, want -1.25", d)
	}

	prod, err := a.Multiply(ConstructObject(TypeFixed128, b))
	if err != nil {
		t.Fatal(err)
	}
	p := prod.Object().(*Fixed128Object)
	// 1.50 * 0.25 = 0.375, truncated to 0.37 at scale 2.
	if p.Unscaled.Uint64() != 37 {
		t.Fatalf("1.5 * 0.25 truncated: got %v, want 37 @ scale 2", p.Unscaled)
	}

	if _, err := a.Divide(ConstructObject(TypeFixed128, NewFixed128(uint256.NewInt(0), false, 0))); err != ErrDivisionByZero {
		t.Fatalf("fixed128 divide by zero: got %v, want ErrDivisionByZero", err)
	}
}

func TestFixed128Compare(t *testing.T) {
	neg := NewFixed128(uint256.NewInt(10), true, 1)  // -1.0
	pos := NewFixed128(uint256.NewInt(5), false, 1)  // 0.5
	lt, err := neg.IsLessThan(ConstructObject(TypeFixed128, pos))
	if err != nil || !lt {
		t.Fatalf("-1.0 < 0.5 should hold, got (%v, %v)", lt, err)
	}
	gt, err := pos.IsGreaterThan(ConstructObject(TypeFixed128, neg))
	if err != nil || !gt {
		t.Fatalf("0.5 > -1.0 should hold, got (%v, %v)", gt, err)
	}
}

// ---- Array ------------------------------------------------------------------

func TestArrayRoundTripStructuralEquality(t *testing.T) {
	const arrType = TypeID(TypeFixed128 + 2)
	a := NewArrayObject(nil, arrType, TypeInt64, []Variant{
		ConstructPrimitive(TypeInt64, primFromI64(1)),
		ConstructPrimitive(TypeInt64, primFromI64(2)),
		ConstructPrimitive(TypeInt64, primFromI64(3)),
	})
	roundTrip(t, a, NewArrayObject(nil, arrType, TypeInt64, nil))
}

func TestArrayIndexing(t *testing.T) {
	const arrType = TypeID(TypeFixed128 + 2)
	a := NewArrayObject(nil, arrType, TypeInt64, []Variant{
		ConstructPrimitive(TypeInt64, primFromI64(10)),
		ConstructPrimitive(TypeInt64, primFromI64(20)),
	})
	got, err := a.GetIndexedValue(ConstructPrimitive(TypeInt32, primFromI64(1)))
	if err != nil || got.Primitive().asI64() != 20 {
		t.Fatalf("a[1]: (%v, %v)", got, err)
	}
	if err := a.SetIndexedValue([]Variant{ConstructPrimitive(TypeInt32, primFromI64(0))}, ConstructPrimitive(TypeInt64, primFromI64(99))); err != nil {
		t.Fatal(err)
	}
	got, _ = a.GetIndexedValue(ConstructPrimitive(TypeInt32, primFromI64(0)))
	if got.Primitive().asI64() != 99 {
		t.Fatalf("a[0] after set: %d, want 99", got.Primitive().asI64())
	}
	if _, err := a.GetIndexedValue(ConstructPrimitive(TypeInt32, primFromI64(-1))); err != ErrNegativeIndex {
		t.Fatalf("got %v, want ErrNegativeIndex", err)
	}
	if _, err := a.GetIndexedValue(ConstructPrimitive(TypeInt32, primFromI64(5))); err != ErrIndexOutOfBounds {
		t.Fatalf("got %v, want ErrIndexOutOfBounds", err)
	}
}

// Structural, not reference, equality for containers: distinct backing
// slices with equal elements compare equal.
func TestArrayStructuralNotReferenceEquality(t *testing.T) {
	const arrType = TypeID(TypeFixed128 + 2)
	mk := func() *ArrayObject {
		return NewArrayObject(nil, arrType, TypeInt32, []Variant{
			ConstructPrimitive(TypeInt32, primFromI64(7)),
		})
	}
	eq, err := mk().IsEqual(ConstructObject(arrType, mk()))
	if err != nil || !eq {
		t.Fatalf("equal-valued arrays should compare equal, got (%v, %v)", eq, err)
	}

	shorter := NewArrayObject(nil, arrType, TypeInt32, nil)
	eq, err = mk().IsEqual(ConstructObject(arrType, shorter))
	if err != nil || eq {
		t.Fatalf("different lengths must not compare equal, got (%v, %v)", eq, err)
	}
}

func TestInitialiseArrayOpcode(t *testing.T) {
	types := NewTypeRegistry()
	arrType := types.RegisterType("Array<Int32>", KindTemplateInstantiation, TypeUnknown, []TypeID{TypeInt32})
	ops := NewOpcodeTable()
	v := New(types, ops, 1_000_000)

	main := fn("main", FnFree, arrType, 0, 0, nil,
		in(OpPushConstant, TypeInt32, 0, 0),
		in(OpPushConstant, TypeInt32, 1, 0),
		in(OpInitialiseArray, arrType, 2, 0),
		in(OpReturnValue, TypeUnknown, 0, 0),
	)
	exec := &Executable{
		Functions: []Function{main},
		Constants: []Variant{
			ConstructPrimitive(TypeInt32, primFromI64(4)),
			ConstructPrimitive(TypeInt32, primFromI64(5)),
		},
	}
	if err := v.Load(exec); err != nil {
		t.Fatal(err)
	}

	out := runOK(t, v, "main", NewParameterPack())
	arr, ok := out.Object().(*ArrayObject)
	if !ok {
		t.Fatalf("got %+v, want an ArrayObject", out)
	}
	if len(arr.Elements) != 2 || arr.Elements[0].Primitive().asI32() != 4 || arr.Elements[1].Primitive().asI32() != 5 {
		t.Fatalf("array contents wrong: %+v", arr.Elements)
	}
	if arr.ElementType != TypeInt32 {
		t.Fatalf("element type %d, want Int32 from the template parameter", arr.ElementType)
	}
}

// ---- Map --------------------------------------------------------------------

func TestMapRoundTripAndLookup(t *testing.T) {
	const mapType = TypeID(TypeFixed128 + 3)
	m := NewMapObject(nil, mapType, TypeString, TypeInt64)
	for i, k := range []string{"a", "b", "c"} {
		key := ConstructObject(TypeString, NewStringObject(k))
		val := ConstructPrimitive(TypeInt64, primFromI64(int64(i)))
		if err := m.SetIndexedValue([]Variant{key}, val); err != nil {
			t.Fatal(err)
		}
	}
	if m.Len() != 3 {
		t.Fatalf("len %d, want 3", m.Len())
	}

	got, err := m.GetIndexedValue(ConstructObject(TypeString, NewStringObject("b")))
	if err != nil || got.Primitive().asI64() != 1 {
		t.Fatalf("m[b]: (%v, %v)", got, err)
	}

	// Missing key yields NullVariant of the value type; for the primitive
	// Int64 value type that is a non-null Int64 zero.
	got, err = m.GetIndexedValue(ConstructObject(TypeString, NewStringObject("zz")))
	if err != nil {
		t.Fatal(err)
	}
	if got.IsNull() || got.TypeID != TypeInt64 || got.Primitive().asI64() != 0 {
		t.Fatalf("missing key should yield Int64 zero, got %+v", got)
	}

	roundTrip(t, m, NewMapObject(nil, mapType, TypeString, TypeInt64))
}

func TestMapOverwriteKeepsKeyUnique(t *testing.T) {
	const mapType = TypeID(TypeFixed128 + 3)
	m := NewMapObject(nil, mapType, TypeInt32, TypeInt32)
	key := ConstructPrimitive(TypeInt32, primFromI64(1))
	if err := m.SetIndexedValue([]Variant{key}, ConstructPrimitive(TypeInt32, primFromI64(10))); err != nil {
		t.Fatal(err)
	}
	if err := m.SetIndexedValue([]Variant{key}, ConstructPrimitive(TypeInt32, primFromI64(20))); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 1 {
		t.Fatalf("overwrite must not duplicate the key, len = %d", m.Len())
	}
	got, _ := m.GetIndexedValue(key)
	if got.Primitive().asI32() != 20 {
		t.Fatalf("got %d, want the overwritten value 20", got.Primitive().asI32())
	}
}

// ---- user-defined object ----------------------------------------------------

func TestUserDefinedObjectRoundTrip(t *testing.T) {
	const udtID = TypeID(TypeFixed128 + 4)
	def := &UserDefinedType{
		Name: "Pair",
		Members: []MemberVariable{
			{Name: "n", Type: TypeInt64},
			{Name: "s", Type: TypeString},
		},
	}
	obj := NewUserDefinedObject(nil, udtID, def)
	obj.Members[0] = ConstructPrimitive(TypeInt64, primFromI64(5))
	obj.Members[1] = ConstructObject(TypeString, NewStringObject("x"))

	data := serializeBytes(t, obj)
	fresh := NewUserDefinedObject(nil, udtID, def)
	if err := fresh.DeserializeFrom(NewDeserializeBuffer(data)); err != nil {
		t.Fatal(err)
	}
	if fresh.Members[0].Primitive().asI64() != 5 {
		t.Fatalf("member 0 lost: %+v", fresh.Members[0])
	}
	if fresh.Members[1].Object().(*StringObject).Value != "x" {
		t.Fatalf("member 1 lost: %+v", fresh.Members[1])
	}
}

// A contract hook nothing implements surfaces as operator_not_implemented
// rather than silently succeeding.
func TestBaseObjectDefaultsRaise(t *testing.T) {
	obj := NewAddressObject([AddressLength]byte{})
	if _, err := obj.Add(ConstructObject(TypeAddress, NewAddressObject([AddressLength]byte{}))); err != ErrOperatorNotImplemented {
		t.Fatalf("got %v, want ErrOperatorNotImplemented", err)
	}
	if _, err := obj.Negate(); err != ErrOperatorNotImplemented {
		t.Fatalf("got %v, want ErrOperatorNotImplemented", err)
	}
}

// ---- tagged variant stream --------------------------------------------------

func TestSerializeVariantRoundTrip(t *testing.T) {
	cases := []Variant{
		ConstructPrimitive(TypeInt32, primFromI64(-7)),
		ConstructPrimitive(TypeBool, primFromBool(true)),
		ConstructPrimitive(TypeFloat64, primFromF64(2.5)),
		NullVariant(TypeString),
		ConstructObject(TypeString, NewStringObject("tagged")),
	}
	for _, want := range cases {
		buf := NewSerializeBuffer()
		if err := serializeVariant(buf, want); err != nil {
			t.Fatalf("serializeVariant(%+v): %v", want, err)
		}
		got, err := deserializeVariantTyped(NewDeserializeBuffer(buf.(*msgpackBuffer).Bytes()), want.TypeID)
		if err != nil {
			t.Fatalf("deserializeVariantTyped(%+v): %v", want, err)
		}
		eq, err := variantEqual(want, got)
		if err != nil || !eq {
			t.Fatalf("round-trip mismatch for %+v: got %+v (%v)", want, got, err)
		}
	}
}

// ---- nested object containers ----------------------------------------------

// Containers owned by a VM resolve object-typed elements through the
// type registry, so Array<Buffer> and Map<String, Array<Int32>> survive
// a serialize/deserialize round trip, not just containers of primitives.
func TestArrayOfBuffersRoundTrip(t *testing.T) {
	types := NewTypeRegistry()
	bufType := types.RegisterType("Buffer", KindObject, TypeUnknown, nil)
	types.RegisterDeserializeConstructor(bufType, func(v *VM) Object {
		return NewBufferObject(bufType, nil)
	})
	arrType := types.RegisterType("Array<Buffer>", KindTemplateInstantiation, TypeUnknown, []TypeID{bufType})
	types.RegisterDeserializeConstructor(arrType, func(v *VM) Object {
		return NewArrayObject(v, arrType, bufType, nil)
	})
	v := New(types, NewOpcodeTable(), 0)

	a := NewArrayObject(v, arrType, bufType, []Variant{
		ConstructObject(bufType, NewBufferObject(bufType, []byte{1, 2})),
		ConstructObject(bufType, NewBufferObject(bufType, []byte{3})),
		NullVariant(bufType),
	})
	roundTrip(t, a, NewArrayObject(v, arrType, bufType, nil))
}

func TestMapOfArraysRoundTrip(t *testing.T) {
	types := NewTypeRegistry()
	arrType := types.RegisterType("Array<Int32>", KindTemplateInstantiation, TypeUnknown, []TypeID{TypeInt32})
	types.RegisterDeserializeConstructor(arrType, func(v *VM) Object {
		return NewArrayObject(v, arrType, TypeInt32, nil)
	})
	mapType := types.RegisterType("Map<String,Array<Int32>>", KindTemplateInstantiation, TypeUnknown, []TypeID{TypeString, arrType})
	types.RegisterDeserializeConstructor(mapType, func(v *VM) Object {
		return NewMapObject(v, mapType, TypeString, arrType)
	})
	v := New(types, NewOpcodeTable(), 0)

	ints := func(vals ...int64) Variant {
		elems := make([]Variant, len(vals))
		for i, n := range vals {
			elems[i] = ConstructPrimitive(TypeInt32, primFromI64(n))
		}
		return ConstructObject(arrType, NewArrayObject(v, arrType, TypeInt32, elems))
	}
	m := NewMapObject(v, mapType, TypeString, arrType)
	for key, val := range map[string]Variant{
		"a": ints(1, 2, 3),
		"b": ints(),
		"c": ints(42),
	} {
		if err := m.SetIndexedValue([]Variant{ConstructObject(TypeString, NewStringObject(key))}, val); err != nil {
			t.Fatal(err)
		}
	}
	roundTrip(t, m, NewMapObject(v, mapType, TypeString, arrType))
}

// A container with no owning VM still handles primitives and the
// reserved built-in object types, but cannot rebuild registry types.
func TestOwnerlessContainerRejectsRegistryElements(t *testing.T) {
	types := NewTypeRegistry()
	bufType := types.RegisterType("Buffer", KindObject, TypeUnknown, nil)
	arrType := types.RegisterType("Array<Buffer>", KindTemplateInstantiation, TypeUnknown, []TypeID{bufType})
	v := New(types, NewOpcodeTable(), 0)

	a := NewArrayObject(v, arrType, bufType, []Variant{
		ConstructObject(bufType, NewBufferObject(bufType, []byte{7})),
	})
	data := serializeBytes(t, a)
	orphan := NewArrayObject(nil, arrType, bufType, nil)
	if err := orphan.DeserializeFrom(NewDeserializeBuffer(data)); err != ErrUnknownType {
		t.Fatalf("got %v, want ErrUnknownType without a registry to resolve Buffer", err)
	}
}
