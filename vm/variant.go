// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import "math"

// TypeID is a 16-bit type tag. Values <= PrimitiveMaxId name a primitive
// kind; values above name an object type registered in a TypeRegistry.
type TypeID uint16

// Built-in type IDs. The reserved low range enumerates primitives;
// PrimitiveMaxId is the boundary below (and at) which a Variant's storage
// is a Primitive rather than an Object reference.
const (
	TypeUnknown TypeID = iota
	TypeNull
	TypeVoid
	TypeBool
	TypeInt8
	TypeUint8
	TypeInt16
	TypeUint16
	TypeInt32
	TypeUint32
	TypeInt64
	TypeUint64
	TypeFloat32
	TypeFloat64
	TypeFixed32
	TypeFixed64
	TypeString
	TypeAddress
	TypeFixed128

	// PrimitiveMaxId is the last primitive-kind ID: the boundary below
	// (and at) which a Variant's storage is a Primitive word. String,
	// Address and Fixed128 are reserved built-ins but carry object
	// storage, so they sit above it; host-registered types start above
	// TypeFixed128.
	PrimitiveMaxId = TypeFixed64
)

// Primitive is the fixed-width 64-bit union backing every non-object
// Variant. It is stored as a raw bit pattern and reinterpreted according
// to the Variant's TypeID; no implicit conversions happen here.
type Primitive uint64

func primFromBool(b bool) Primitive {
	if b {
		return 1
	}
	return 0
}

func (p Primitive) asBool() bool   { return p != 0 }
func (p Primitive) asI8() int8     { return int8(p) }
func (p Primitive) asU8() uint8    { return uint8(p) }
func (p Primitive) asI16() int16   { return int16(p) }
func (p Primitive) asU16() uint16  { return uint16(p) }
func (p Primitive) asI32() int32   { return int32(p) }
func (p Primitive) asU32() uint32  { return uint32(p) }
func (p Primitive) asI64() int64   { return int64(p) }
func (p Primitive) asU64() uint64  { return uint64(p) }
func (p Primitive) asF32() float32 { return math.Float32frombits(uint32(p)) }
func (p Primitive) asF64() float64 { return math.Float64frombits(uint64(p)) }

// AsInt64, AsUint64, AsFloat64, and AsBool are the exported primitive
// readback accessors host code (handler opcodes, the engine façade,
// tests) uses on a Variant.Primitive() result; the unexported asXxx
// family above stays internal to opcode handler bodies.
func (p Primitive) AsInt64() int64     { return p.asI64() }
func (p Primitive) AsUint64() uint64   { return p.asU64() }
func (p Primitive) AsFloat64() float64 { return p.asF64() }
func (p Primitive) AsBool() bool       { return p.asBool() }

func primFromI64(v int64) Primitive   { return Primitive(uint64(v)) }
func primFromU64(v uint64) Primitive  { return Primitive(v) }
func primFromF32(v float32) Primitive { return Primitive(math.Float32bits(v)) }
func primFromF64(v float64) Primitive { return Primitive(math.Float64bits(v)) }

// Variant is a tagged value: either a primitive word or an owning
// reference to an Object. The invariant from the data model holds by
// construction: TypeID <= PrimitiveMaxId implies obj == nil.
type Variant struct {
	TypeID TypeID
	prim   Primitive
	obj    Object
}

// NullVariant returns a typed null of the given object type id. For a
// primitive type id it returns that type's zero value, which is not null.
func NullVariant(t TypeID) Variant { return Variant{TypeID: t} }

// VoidVariant is the canonical void value returned by void functions.
func VoidVariant() Variant { return Variant{TypeID: TypeVoid} }

// ConstructPrimitive builds a Variant holding a raw primitive word tagged
// with t. t must be <= PrimitiveMaxId; callers (the opcode handlers and
// marshalling code) are responsible for that invariant.
func ConstructPrimitive(t TypeID, p Primitive) Variant {
	return Variant{TypeID: t, prim: p}
}

// ConstructObject builds a Variant owning a reference to obj (obj may be
// nil, representing a typed null).
func ConstructObject(t TypeID, obj Object) Variant {
	return Variant{TypeID: t, obj: obj}
}

// IsPrimitive reports whether v's storage is a Primitive rather than an
// Object reference.
func (v Variant) IsPrimitive() bool { return v.TypeID <= PrimitiveMaxId }

// IsObject reports the complement of IsPrimitive.
func (v Variant) IsObject() bool { return v.TypeID > PrimitiveMaxId }

// IsNull reports whether v is an object-typed Variant with no backing
// object.
func (v Variant) IsNull() bool { return v.IsObject() && v.obj == nil }

// Object returns the backing Object, or nil for a primitive or null Variant.
func (v Variant) Object() Object { return v.obj }

// Primitive returns the backing Primitive word; meaningless for object Variants.
func (v Variant) Primitive() Primitive { return v.prim }

// Assign resets v to zero value then takes other's contents.
func (v *Variant) Assign(other Variant) {
	v.Reset()
	*v = other
}

// Move transfers other's contents into v and clears other to Unknown,
// leaving no duplicate live reference behind.
func (v *Variant) Move(other *Variant) {
	v.Reset()
	*v = *other
	*other = Variant{}
}

// Reset drops any object reference, zeroes the primitive word, and sets
// the type to Unknown.
func (v *Variant) Reset() {
	v.TypeID = TypeUnknown
	v.prim = 0
	v.obj = nil
}

func boolVariant(b bool) Variant {
	return ConstructPrimitive(TypeBool, primFromBool(b))
}
