// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import (
	"bytes"
	"hash/fnv"
)

// BufferObject is the built-in byte-array object type.
type BufferObject struct {
	BaseObject
	Data []byte
}

func NewBufferObject(id TypeID, data []byte) *BufferObject {
	return &BufferObject{BaseObject: NewBaseObject(id), Data: data}
}

func (b *BufferObject) Add(other Variant) (Variant, error) {
	o, ok := other.Object().(*BufferObject)
	if other.IsNull() || !ok {
		return Variant{}, ErrNullReference
	}
	out := make([]byte, 0, len(b.Data)+len(o.Data))
	out = append(out, b.Data...)
	out = append(out, o.Data...)
	return ConstructObject(b.TypeID(), NewBufferObject(b.TypeID(), out)), nil
}

// InplaceAdd appends another buffer's bytes onto b in place, the inplace
// counterpart of Add (which allocates a new BufferObject instead).
func (b *BufferObject) InplaceAdd(other Variant) error {
	o, ok := other.Object().(*BufferObject)
	if other.IsNull() || !ok {
		return ErrNullReference
	}
	b.Data = append(b.Data, o.Data...)
	return nil
}

// InplaceRightAdd appends a single Uint8 primitive onto b in place, the
// mixed-operand shape of InplaceAdd, matching the element type
// GetIndexedValue/SetIndexedValue already use for single buffer bytes.
func (b *BufferObject) InplaceRightAdd(other Variant) error {
	if !other.IsPrimitive() {
		return ErrTypeMismatch
	}
	b.Data = append(b.Data, other.Primitive().asU8())
	return nil
}

func (b *BufferObject) IsEqual(other Variant) (bool, error) {
	if other.IsNull() {
		return false, nil
	}
	o, ok := other.Object().(*BufferObject)
	if !ok {
		return false, ErrTypeMismatch
	}
	return bytes.Equal(b.Data, o.Data), nil
}

func (b *BufferObject) IsNotEqual(other Variant) (bool, error) {
	eq, err := b.IsEqual(other)
	return !eq, err
}

func (b *BufferObject) GetIndexedValue(keys ...Variant) (Variant, error) {
	if len(keys) != 1 {
		return Variant{}, ErrMismatchedParameters
	}
	idx := keys[0].Primitive().asI64()
	if idx < 0 {
		return Variant{}, ErrNegativeIndex
	}
	if int(idx) >= len(b.Data) {
		return Variant{}, ErrIndexOutOfBounds
	}
	return ConstructPrimitive(TypeUint8, primFromU64(uint64(b.Data[idx]))), nil
}

func (b *BufferObject) SetIndexedValue(keys []Variant, value Variant) error {
	if len(keys) != 1 {
		return ErrMismatchedParameters
	}
	idx := keys[0].Primitive().asI64()
	if idx < 0 {
		return ErrNegativeIndex
	}
	if int(idx) >= len(b.Data) {
		return ErrIndexOutOfBounds
	}
	b.Data[idx] = value.Primitive().asU8()
	return nil
}

func (b *BufferObject) SerializeTo(buf Buffer) error {
	buf.WriteBytes(b.Data)
	return nil
}

func (b *BufferObject) DeserializeFrom(buf Buffer) error {
	d, err := buf.ReadBytes()
	if err != nil {
		return ErrSerializationFailed
	}
	b.Data = d
	return nil
}

func (b *BufferObject) HashCode() (uint64, error) {
	h := fnv.New64a()
	_, _ = h.Write(b.Data)
	return h.Sum64(), nil
}

func (b *BufferObject) IndexChargeEstimator() ChargeAmount { return 1 }
