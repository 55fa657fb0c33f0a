// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

// UserDefinedObject is the runtime instance of a compiled struct type
// (an Executable's UserDefinedType entry). PushMemberVariable/
// PopToMemberVariable index directly into Members; operator overloads
// are not auto-derived -- a program that applies an algebraic or
// relational opcode to a struct without the compiler having wired an
// operator overload gets ErrOperatorNotImplemented from the embedded
// BaseObject's defaults, so failure to implement is visible rather than
// silent.
type UserDefinedObject struct {
	BaseObject
	Def     *UserDefinedType
	Members []Variant

	vm *VM
}

// NewUserDefinedObject allocates a zero-valued instance owned by owner:
// every member slot starts as an untyped Variant{} until the
// constructor's body (or deserialization) assigns it. The owner is what
// lets DeserializeFrom rebuild object-typed members through the type
// registry.
func NewUserDefinedObject(owner *VM, t TypeID, def *UserDefinedType) *UserDefinedObject {
	return &UserDefinedObject{
		BaseObject: NewBaseObject(t),
		Def:        def,
		Members:    make([]Variant, len(def.Members)),
		vm:         owner,
	}
}

// SerializeTo writes every member in declaration order -- a generic,
// struct-shaped serialization that any UserDefinedType gets for free
// without the compiler needing to emit custom (de)serialize bodies.
func (u *UserDefinedObject) SerializeTo(buf Buffer) error {
	buf.WriteArrayHeader(len(u.Members))
	for _, m := range u.Members {
		if err := serializeVariant(buf, m); err != nil {
			return err
		}
	}
	return nil
}

func (u *UserDefinedObject) DeserializeFrom(buf Buffer) error {
	n, err := buf.ReadArrayHeader()
	if err != nil {
		return ErrSerializationFailed
	}
	u.Members = make([]Variant, n)
	for i := 0; i < n; i++ {
		var expected TypeID
		if i < len(u.Def.Members) {
			expected = u.Def.Members[i].Type
		}
		v, err := readElement(u.vm, buf, expected)
		if err != nil {
			return err
		}
		u.Members[i] = v
	}
	return nil
}

func (u *UserDefinedObject) SerializeChargeEstimator() ChargeAmount {
	return ChargeAmount(len(u.Members)) + 1
}
