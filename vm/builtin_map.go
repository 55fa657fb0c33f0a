// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

// mapEntry is one key/value pair in a MapObject's bucket.
type mapEntry struct {
	key, value Variant
}

// MapObject is the built-in Map<K,V> template instantiation: an
// unordered mapping with unique keys, hash-bucketed via each key's
// HashCode contract hook (primitives hash by raw bit pattern) with
// IsEqual used to resolve collisions within a bucket.
type MapObject struct {
	BaseObject
	KeyType   TypeID
	ValueType TypeID
	buckets   map[uint64][]mapEntry

	vm *VM
}

// NewMapObject builds a Map<K,V> instance owned by owner. The owner is
// what lets DeserializeFrom rebuild object-typed keys and values through
// the type registry; a nil owner restricts them to primitives and the
// reserved built-in object types.
func NewMapObject(owner *VM, id TypeID, keyType, valueType TypeID) *MapObject {
	return &MapObject{
		BaseObject: NewBaseObject(id),
		KeyType:    keyType,
		ValueType:  valueType,
		buckets:    make(map[uint64][]mapEntry),
		vm:         owner,
	}
}

func variantHash(v Variant) (uint64, error) {
	if v.IsPrimitive() {
		return uint64(v.Primitive()) ^ uint64(v.TypeID)<<48, nil
	}
	if v.IsNull() {
		return 0, nil
	}
	return v.Object().HashCode()
}

func (m *MapObject) find(key Variant) (bucket uint64, idx int, found bool, err error) {
	bucket, err = variantHash(key)
	if err != nil {
		return 0, -1, false, err
	}
	for i, e := range m.buckets[bucket] {
		eq, err := variantEqual(e.key, key)
		if err != nil {
			return bucket, -1, false, err
		}
		if eq {
			return bucket, i, true, nil
		}
	}
	return bucket, -1, false, nil
}

func (m *MapObject) GetIndexedValue(keys ...Variant) (Variant, error) {
	if len(keys) != 1 {
		return Variant{}, ErrMismatchedParameters
	}
	bucket, idx, found, err := m.find(keys[0])
	if err != nil {
		return Variant{}, err
	}
	if !found {
		return NullVariant(m.ValueType), nil
	}
	return m.buckets[bucket][idx].value, nil
}

func (m *MapObject) SetIndexedValue(keys []Variant, value Variant) error {
	if len(keys) != 1 {
		return ErrMismatchedParameters
	}
	bucket, idx, found, err := m.find(keys[0])
	if err != nil {
		return err
	}
	if found {
		m.buckets[bucket][idx].value = value
		return nil
	}
	m.buckets[bucket] = append(m.buckets[bucket], mapEntry{key: keys[0], value: value})
	return nil
}

// Len reports the number of entries, used by host library wrappers (e.g.
// StateLibraryType) layered on top of Map.
func (m *MapObject) Len() int {
	n := 0
	for _, b := range m.buckets {
		n += len(b)
	}
	return n
}

func (m *MapObject) IsEqual(other Variant) (bool, error) {
	if other.IsNull() {
		return false, nil
	}
	o, ok := other.Object().(*MapObject)
	if !ok {
		return false, ErrTypeMismatch
	}
	if m.Len() != o.Len() {
		return false, nil
	}
	for _, bucket := range m.buckets {
		for _, e := range bucket {
			_, _, found, err := o.find(e.key)
			if err != nil {
				return false, err
			}
			if !found {
				return false, nil
			}
			ov, err := o.GetIndexedValue(e.key)
			if err != nil {
				return false, err
			}
			eq, err := variantEqual(e.value, ov)
			if err != nil || !eq {
				return false, err
			}
		}
	}
	return true, nil
}

func (m *MapObject) IsNotEqual(other Variant) (bool, error) {
	eq, err := m.IsEqual(other)
	return !eq, err
}

func (m *MapObject) SerializeTo(buf Buffer) error {
	buf.WriteMapHeader(m.Len())
	for _, bucket := range m.buckets {
		for _, e := range bucket {
			if err := serializeVariant(buf, e.key); err != nil {
				return err
			}
			if err := serializeVariant(buf, e.value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *MapObject) DeserializeFrom(buf Buffer) error {
	n, err := buf.ReadMapHeader()
	if err != nil {
		return ErrSerializationFailed
	}
	m.buckets = make(map[uint64][]mapEntry, n)
	for i := 0; i < n; i++ {
		k, err := readElement(m.vm, buf, m.KeyType)
		if err != nil {
			return err
		}
		v, err := readElement(m.vm, buf, m.ValueType)
		if err != nil {
			return err
		}
		if err := m.SetIndexedValue([]Variant{k}, v); err != nil {
			return err
		}
	}
	return nil
}

func (m *MapObject) IndexChargeEstimator() ChargeAmount     { return 1 }
func (m *MapObject) SerializeChargeEstimator() ChargeAmount { return ChargeAmount(m.Len()) + 1 }
