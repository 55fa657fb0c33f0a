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
	"encoding/hex"
	"hash/fnv"
)

// AddressLength is the byte width of an Address: a 32-byte opaque
// identity with ordered comparison.
const AddressLength = 32

// AddressObject is the built-in Address object type: an opaque 32-byte
// identity ordered by byte comparison.
type AddressObject struct {
	BaseObject
	Bytes [AddressLength]byte
}

func NewAddressObject(b [AddressLength]byte) *AddressObject {
	return &AddressObject{BaseObject: NewBaseObject(TypeAddress), Bytes: b}
}

// Hex renders the address as a 0x-prefixed hex string.
func (a *AddressObject) Hex() string { return "0x" + hex.EncodeToString(a.Bytes[:]) }

func (a *AddressObject) String() string { return a.Hex() }

func (a *AddressObject) IsEqual(other Variant) (bool, error) {
	if other.IsNull() {
		return false, nil
	}
	o, ok := other.Object().(*AddressObject)
	if !ok {
		return false, ErrTypeMismatch
	}
	return a.Bytes == o.Bytes, nil
}

func (a *AddressObject) IsNotEqual(other Variant) (bool, error) {
	eq, err := a.IsEqual(other)
	return !eq, err
}

func (a *AddressObject) IsLessThan(other Variant) (bool, error) {
	o, ok := other.Object().(*AddressObject)
	if other.IsNull() || !ok {
		return false, ErrNullReference
	}
	return bytes.Compare(a.Bytes[:], o.Bytes[:]) < 0, nil
}

func (a *AddressObject) IsLessThanOrEqual(other Variant) (bool, error) {
	o, ok := other.Object().(*AddressObject)
	if other.IsNull() || !ok {
		return false, ErrNullReference
	}
	return bytes.Compare(a.Bytes[:], o.Bytes[:]) <= 0, nil
}

func (a *AddressObject) IsGreaterThan(other Variant) (bool, error) {
	le, err := a.IsLessThanOrEqual(other)
	return !le, err
}

func (a *AddressObject) IsGreaterThanOrEqual(other Variant) (bool, error) {
	lt, err := a.IsLessThan(other)
	return !lt, err
}

func (a *AddressObject) SerializeTo(buf Buffer) error {
	buf.WriteBytes(a.Bytes[:])
	return nil
}

func (a *AddressObject) DeserializeFrom(buf Buffer) error {
	b, err := buf.ReadBytes()
	if err != nil || len(b) != AddressLength {
		return ErrSerializationFailed
	}
	copy(a.Bytes[:], b)
	return nil
}

func (a *AddressObject) HashCode() (uint64, error) {
	h := fnv.New64a()
	_, _ = h.Write(a.Bytes[:])
	return h.Sum64(), nil
}
