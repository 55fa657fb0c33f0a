// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

// ChargeAmount is the unitless cost a dynamic estimator attributes to one
// invocation of an operator or library entry point. Estimators must
// return >= 1; returning 0 is a programmer error.
type ChargeAmount uint64

// Buffer is the tagged binary stream objects serialize to and from. The
// VM does not interpret its contents; see serialize.go for the concrete
// MsgPack-backed implementation.
type Buffer interface {
	WriteInt(v int64)
	WriteUint(v uint64)
	WriteFloat(v float64)
	WriteBool(v bool)
	WriteString(v string)
	WriteBytes(v []byte)
	WriteArrayHeader(n int)
	WriteMapHeader(n int)

	ReadInt() (int64, error)
	ReadUint() (uint64, error)
	ReadFloat() (float64, error)
	ReadBool() (bool, error)
	ReadString() (string, error)
	ReadBytes() ([]byte, error)
	ReadArrayHeader() (int, error)
	ReadMapHeader() (int, error)
}

// Object is the contract every host-registered object type implements.
// Defaults on BaseObject raise ErrOperatorNotImplemented so a missing
// hook is a visible runtime error rather than a silent no-op. VM-facing
// code only ever talks to Objects through this interface; concrete types
// live in vm/builtin_*.go.
type Object interface {
	TypeID() TypeID

	// Algebraic. "Left"/"Right" let a primitive be the other operand of a
	// mixed op; "Inplace" mutates the receiver.
	Negate() (Variant, error)
	Add(other Variant) (Variant, error)
	LeftAdd(other Variant) (Variant, error)
	RightAdd(other Variant) (Variant, error)
	InplaceAdd(other Variant) error
	InplaceRightAdd(other Variant) error
	Subtract(other Variant) (Variant, error)
	LeftSubtract(other Variant) (Variant, error)
	RightSubtract(other Variant) (Variant, error)
	InplaceSubtract(other Variant) error
	InplaceRightSubtract(other Variant) error
	Multiply(other Variant) (Variant, error)
	LeftMultiply(other Variant) (Variant, error)
	RightMultiply(other Variant) (Variant, error)
	InplaceMultiply(other Variant) error
	InplaceRightMultiply(other Variant) error
	Divide(other Variant) (Variant, error)
	LeftDivide(other Variant) (Variant, error)
	RightDivide(other Variant) (Variant, error)
	InplaceDivide(other Variant) error
	InplaceRightDivide(other Variant) error

	// Relational.
	IsEqual(other Variant) (bool, error)
	IsNotEqual(other Variant) (bool, error)
	IsLessThan(other Variant) (bool, error)
	IsLessThanOrEqual(other Variant) (bool, error)
	IsGreaterThan(other Variant) (bool, error)
	IsGreaterThanOrEqual(other Variant) (bool, error)

	// Indexing, used by Array and Map.
	GetIndexedValue(keys ...Variant) (Variant, error)
	SetIndexedValue(keys []Variant, value Variant) error

	// Serialization.
	SerializeTo(buf Buffer) error
	DeserializeFrom(buf Buffer) error

	// Hashing, for use as map keys.
	HashCode() (uint64, error)

	// Charge estimators, one per binary-operator family, called before
	// the corresponding op executes.
	AddChargeEstimator(other Variant) ChargeAmount
	SubtractChargeEstimator(other Variant) ChargeAmount
	MultiplyChargeEstimator(other Variant) ChargeAmount
	DivideChargeEstimator(other Variant) ChargeAmount
	IndexChargeEstimator() ChargeAmount
	SerializeChargeEstimator() ChargeAmount
}

// BaseObject supplies ErrOperatorNotImplemented for every hook, keeping
// concrete object types small: they embed BaseObject and override only
// the hooks they support.
type BaseObject struct {
	typeID TypeID
}

func NewBaseObject(t TypeID) BaseObject { return BaseObject{typeID: t} }

func (b BaseObject) TypeID() TypeID { return b.typeID }

func (b BaseObject) Negate() (Variant, error)              { return Variant{}, ErrOperatorNotImplemented }
func (b BaseObject) Add(Variant) (Variant, error)           { return Variant{}, ErrOperatorNotImplemented }
func (b BaseObject) LeftAdd(Variant) (Variant, error)       { return Variant{}, ErrOperatorNotImplemented }
func (b BaseObject) RightAdd(Variant) (Variant, error)      { return Variant{}, ErrOperatorNotImplemented }
func (b BaseObject) InplaceAdd(Variant) error               { return ErrOperatorNotImplemented }
func (b BaseObject) InplaceRightAdd(Variant) error          { return ErrOperatorNotImplemented }
func (b BaseObject) Subtract(Variant) (Variant, error)      { return Variant{}, ErrOperatorNotImplemented }
func (b BaseObject) LeftSubtract(Variant) (Variant, error)  { return Variant{}, ErrOperatorNotImplemented }
func (b BaseObject) RightSubtract(Variant) (Variant, error) { return Variant{}, ErrOperatorNotImplemented }
func (b BaseObject) InplaceSubtract(Variant) error          { return ErrOperatorNotImplemented }
func (b BaseObject) InplaceRightSubtract(Variant) error     { return ErrOperatorNotImplemented }
func (b BaseObject) Multiply(Variant) (Variant, error)      { return Variant{}, ErrOperatorNotImplemented }
func (b BaseObject) LeftMultiply(Variant) (Variant, error)  { return Variant{}, ErrOperatorNotImplemented }
func (b BaseObject) RightMultiply(Variant) (Variant, error) { return Variant{}, ErrOperatorNotImplemented }
func (b BaseObject) InplaceMultiply(Variant) error          { return ErrOperatorNotImplemented }
func (b BaseObject) InplaceRightMultiply(Variant) error     { return ErrOperatorNotImplemented }
func (b BaseObject) Divide(Variant) (Variant, error)        { return Variant{}, ErrOperatorNotImplemented }
func (b BaseObject) LeftDivide(Variant) (Variant, error)    { return Variant{}, ErrOperatorNotImplemented }
func (b BaseObject) RightDivide(Variant) (Variant, error)   { return Variant{}, ErrOperatorNotImplemented }
func (b BaseObject) InplaceDivide(Variant) error            { return ErrOperatorNotImplemented }
func (b BaseObject) InplaceRightDivide(Variant) error       { return ErrOperatorNotImplemented }

func (b BaseObject) IsEqual(Variant) (bool, error)    { return false, ErrOperatorNotImplemented }
func (b BaseObject) IsNotEqual(Variant) (bool, error) { return false, ErrOperatorNotImplemented }
func (b BaseObject) IsLessThan(Variant) (bool, error) { return false, ErrOperatorNotImplemented }
func (b BaseObject) IsLessThanOrEqual(Variant) (bool, error) {
	return false, ErrOperatorNotImplemented
}
func (b BaseObject) IsGreaterThan(Variant) (bool, error) { return false, ErrOperatorNotImplemented }
func (b BaseObject) IsGreaterThanOrEqual(Variant) (bool, error) {
	return false, ErrOperatorNotImplemented
}

func (b BaseObject) GetIndexedValue(...Variant) (Variant, error) {
	return Variant{}, ErrOperatorNotImplemented
}
func (b BaseObject) SetIndexedValue([]Variant, Variant) error { return ErrOperatorNotImplemented }

func (b BaseObject) SerializeTo(Buffer) error   { return ErrOperatorNotImplemented }
func (b BaseObject) DeserializeFrom(Buffer) error { return ErrOperatorNotImplemented }

func (b BaseObject) HashCode() (uint64, error) { return 0, ErrOperatorNotImplemented }

func (b BaseObject) AddChargeEstimator(Variant) ChargeAmount      { return 1 }
func (b BaseObject) SubtractChargeEstimator(Variant) ChargeAmount { return 1 }
func (b BaseObject) MultiplyChargeEstimator(Variant) ChargeAmount { return 1 }
func (b BaseObject) DivideChargeEstimator(Variant) ChargeAmount   { return 1 }
func (b BaseObject) IndexChargeEstimator() ChargeAmount           { return 1 }
func (b BaseObject) SerializeChargeEstimator() ChargeAmount       { return 1 }
