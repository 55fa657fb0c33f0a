// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

// ParameterPack accumulates host values, together with their inferred
// type IDs, before a call crosses the host/guest boundary. It holds only
// Variants: by the time a value reaches the pack it has already gone
// through one of the constructors below, which is where primitive Go
// types map to their canonical type IDs, Variants pass through as-is,
// and external host values copy-construct into owning objects.
type ParameterPack struct {
	values []Variant
}

// NewParameterPack returns an empty pack.
func NewParameterPack() *ParameterPack { return &ParameterPack{} }

// PushVariant appends an already-typed Variant unchanged.
func (p *ParameterPack) PushVariant(v Variant) { p.values = append(p.values, v) }

// PushPrimitive appends a primitive value under the given type id.
func (p *ParameterPack) PushPrimitive(t TypeID, prim Primitive) {
	p.values = append(p.values, ConstructPrimitive(t, prim))
}

// PushInt32/PushInt64/PushBool/PushFloat64 are convenience wrappers over
// PushPrimitive for the primitive C-type inference path.
func (p *ParameterPack) PushInt32(v int32) { p.PushPrimitive(TypeInt32, primFromI64(int64(v))) }
func (p *ParameterPack) PushInt64(v int64) { p.PushPrimitive(TypeInt64, primFromI64(v)) }
func (p *ParameterPack) PushBool(v bool)   { p.PushPrimitive(TypeBool, primFromBool(v)) }
func (p *ParameterPack) PushFloat64(v float64) {
	p.PushPrimitive(TypeFloat64, primFromF64(v))
}

// PushHostValue copy-constructs an owning object from an opt-in external
// host value via the type registry's registered copy constructor.
func (p *ParameterPack) PushHostValue(v *VM, t TypeID, host interface{}) error {
	ctor := v.Types.CopyConstructorFor(t)
	if ctor == nil {
		return ErrTypeMismatch
	}
	obj, err := ctor(v, host)
	if err != nil {
		return err
	}
	p.values = append(p.values, ConstructObject(t, obj))
	return nil
}

// Len reports the number of parameters accumulated so far.
func (p *ParameterPack) Len() int { return len(p.values) }

// checkAgainst verifies pack.size()==fn.NumParameters and each
// pack[i].TypeID==fn.VariableTypes[i] This runs before any
// bytecode executes; a mismatch leaks no parameters.
func (p *ParameterPack) checkAgainst(fn *Function) error {
	if len(p.values) != fn.NumParameters {
		return ErrMismatchedParameters
	}
	for i, v := range p.values {
		if v.TypeID != fn.VariableTypes[i] {
			return ErrTypeMismatch
		}
	}
	return nil
}
