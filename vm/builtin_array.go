// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

// ArrayObject is the built-in Array<T> template instantiation: a
// dynamically sized ordered sequence whose element type is fixed at
// registration time.
//
// Equality is structural: two arrays are equal when same length and
// every element compares equal through its own contract hook, not when
// they share a backing slice. Persisted snapshots must compare equal
// after a serialize/deserialize round trip, which reference equality
// cannot provide.
type ArrayObject struct {
	BaseObject
	ElementType TypeID
	Elements    []Variant

	vm *VM
}

// NewArrayObject builds an Array<T> instance owned by owner. The owner is
// what lets DeserializeFrom rebuild object-typed elements through the
// type registry; a nil owner restricts elements to primitives and the
// reserved built-in object types.
func NewArrayObject(owner *VM, id TypeID, elementType TypeID, elements []Variant) *ArrayObject {
	return &ArrayObject{BaseObject: NewBaseObject(id), ElementType: elementType, Elements: elements, vm: owner}
}

func (a *ArrayObject) GetIndexedValue(keys ...Variant) (Variant, error) {
	if len(keys) != 1 {
		return Variant{}, ErrMismatchedParameters
	}
	idx := keys[0].Primitive().asI64()
	if idx < 0 {
		return Variant{}, ErrNegativeIndex
	}
	if int(idx) >= len(a.Elements) {
		return Variant{}, ErrIndexOutOfBounds
	}
	return a.Elements[idx], nil
}

func (a *ArrayObject) SetIndexedValue(keys []Variant, value Variant) error {
	if len(keys) != 1 {
		return ErrMismatchedParameters
	}
	idx := keys[0].Primitive().asI64()
	if idx < 0 {
		return ErrNegativeIndex
	}
	if int(idx) >= len(a.Elements) {
		return ErrIndexOutOfBounds
	}
	a.Elements[idx] = value
	return nil
}

func (a *ArrayObject) IsEqual(other Variant) (bool, error) {
	if other.IsNull() {
		return false, nil
	}
	o, ok := other.Object().(*ArrayObject)
	if !ok {
		return false, ErrTypeMismatch
	}
	if len(a.Elements) != len(o.Elements) {
		return false, nil
	}
	for i := range a.Elements {
		eq, err := variantEqual(a.Elements[i], o.Elements[i])
		if err != nil {
			return false, err
		}
		if !eq {
			return false, nil
		}
	}
	return true, nil
}

func (a *ArrayObject) IsNotEqual(other Variant) (bool, error) {
	eq, err := a.IsEqual(other)
	return !eq, err
}

func (a *ArrayObject) SerializeTo(buf Buffer) error {
	buf.WriteArrayHeader(len(a.Elements))
	for _, e := range a.Elements {
		if err := serializeVariant(buf, e); err != nil {
			return err
		}
	}
	return nil
}

func (a *ArrayObject) DeserializeFrom(buf Buffer) error {
	n, err := buf.ReadArrayHeader()
	if err != nil {
		return ErrSerializationFailed
	}
	a.Elements = make([]Variant, n)
	for i := 0; i < n; i++ {
		v, err := readElement(a.vm, buf, a.ElementType)
		if err != nil {
			return err
		}
		a.Elements[i] = v
	}
	return nil
}

func (a *ArrayObject) IndexChargeEstimator() ChargeAmount {
	return ChargeAmount(1)
}

func (a *ArrayObject) SerializeChargeEstimator() ChargeAmount {
	return ChargeAmount(len(a.Elements)) + 1
}

// variantEqual compares two Variants using their contract's IsEqual hook
// for objects, and raw value comparison for primitives; it is the
// building block for every container type's structural equality.
func variantEqual(a, b Variant) (bool, error) {
	if a.IsPrimitive() != b.IsPrimitive() {
		return false, nil
	}
	if a.IsPrimitive() {
		return a.TypeID == b.TypeID && a.Primitive() == b.Primitive(), nil
	}
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull(), nil
	}
	return a.Object().IsEqual(b)
}
