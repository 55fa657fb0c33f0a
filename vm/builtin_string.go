// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import "hash/fnv"

// StringObject is the built-in String object type. Instances interned
// during executable load (see VM.Load) share a single object per pool
// entry.
type StringObject struct {
	BaseObject
	Value string
}

func NewStringObject(v string) *StringObject {
	return &StringObject{BaseObject: NewBaseObject(TypeString), Value: v}
}

func (s *StringObject) Add(other Variant) (Variant, error) {
	o, ok := other.Object().(*StringObject)
	if other.IsNull() || !ok {
		return Variant{}, ErrNullReference
	}
	return ConstructObject(TypeString, NewStringObject(s.Value+o.Value)), nil
}

func (s *StringObject) IsEqual(other Variant) (bool, error) {
	if other.IsNull() {
		return false, nil
	}
	o, ok := other.Object().(*StringObject)
	if !ok {
		return false, ErrTypeMismatch
	}
	return s.Value == o.Value, nil
}

func (s *StringObject) IsNotEqual(other Variant) (bool, error) {
	eq, err := s.IsEqual(other)
	return !eq, err
}

func (s *StringObject) IsLessThan(other Variant) (bool, error) {
	o, ok := other.Object().(*StringObject)
	if other.IsNull() || !ok {
		return false, ErrNullReference
	}
	return s.Value < o.Value, nil
}

func (s *StringObject) IsLessThanOrEqual(other Variant) (bool, error) {
	lt, err := s.IsLessThan(other)
	if err != nil {
		return false, err
	}
	eq, err := s.IsEqual(other)
	return lt || eq, err
}

func (s *StringObject) IsGreaterThan(other Variant) (bool, error) {
	le, err := s.IsLessThanOrEqual(other)
	return !le, err
}

func (s *StringObject) IsGreaterThanOrEqual(other Variant) (bool, error) {
	lt, err := s.IsLessThan(other)
	return !lt, err
}

func (s *StringObject) GetIndexedValue(keys ...Variant) (Variant, error) {
	if len(keys) != 1 {
		return Variant{}, ErrMismatchedParameters
	}
	idx := int64(keys[0].Primitive().asI64())
	if idx < 0 {
		return Variant{}, ErrNegativeIndex
	}
	if idx >= int64(len(s.Value)) {
		return Variant{}, ErrIndexOutOfBounds
	}
	return ConstructObject(TypeString, NewStringObject(string(s.Value[idx]))), nil
}

func (s *StringObject) SerializeTo(buf Buffer) error {
	buf.WriteString(s.Value)
	return nil
}

func (s *StringObject) DeserializeFrom(buf Buffer) error {
	v, err := buf.ReadString()
	if err != nil {
		return ErrSerializationFailed
	}
	s.Value = v
	return nil
}

func (s *StringObject) HashCode() (uint64, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s.Value))
	return h.Sum64(), nil
}
