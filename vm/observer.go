// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

// ObserverStatus is the result of a StateObserver operation.
type ObserverStatus int

const (
	ObserverOK ObserverStatus = iota
	ObserverBufferTooSmall
	ObserverPermissionDenied
	ObserverError
)

// StateObserver is the host-provided persistent key/value interface the
// VM calls from the built-in State<T>/ShardedState<T> library types. The
// VM does not retry a failed call; a PermissionDenied on Read is treated
// as "key not present" by the wrapper types below.
type StateObserver interface {
	Read(key string) (data []byte, status ObserverStatus)
	Write(key string, data []byte) ObserverStatus
	Exists(key string) ObserverStatus
}

// StateLibraryType is the built-in object wrapping a StateObserver for a
// single key, exposed to guest code as `State<T>`. Get/Set charge
// estimators return a flat charge of 1; they do not depend on the
// serialized size of T.
type StateLibraryType struct {
	BaseObject
	observer StateObserver
	key      string
	elemType TypeID
	vm       *VM
}

func NewStateLibraryType(id TypeID, observer StateObserver, key string, elemType TypeID, owner *VM) *StateLibraryType {
	return &StateLibraryType{BaseObject: NewBaseObject(id), observer: observer, key: key, elemType: elemType, vm: owner}
}

// Get reads and deserializes the value at the wrapped key; a missing key
// (including PermissionDenied) yields defaultValue.
func (s *StateLibraryType) Get(defaultValue Variant) (Variant, error) {
	data, status := s.observer.Read(s.key)
	if status == ObserverPermissionDenied || status == ObserverError {
		return defaultValue, nil
	}
	if status != ObserverOK {
		return Variant{}, ErrSerializationFailed
	}
	if s.elemType <= PrimitiveMaxId {
		if len(data) != 8 {
			return Variant{}, ErrSerializationFailed
		}
		var u uint64
		for i := 0; i < 8; i++ {
			u |= uint64(data[i]) << (8 * i)
		}
		return ConstructPrimitive(s.elemType, Primitive(u)), nil
	}
	buf := NewDeserializeBuffer(data)
	return s.vm.deserializeVariant(buf, s.elemType)
}

// Set serializes value and writes it at the wrapped key.
func (s *StateLibraryType) Set(value Variant) error {
	if value.IsPrimitive() {
		u := uint64(value.Primitive())
		data := make([]byte, 8)
		for i := 0; i < 8; i++ {
			data[i] = byte(u >> (8 * i))
		}
		if s.observer.Write(s.key, data) != ObserverOK {
			return ErrSerializationFailed
		}
		return nil
	}
	buf := NewSerializeBuffer()
	if err := serializeVariant(buf, value); err != nil {
		return err
	}
	if mb, ok := buf.(*msgpackBuffer); ok {
		if s.observer.Write(s.key, mb.Bytes()) != ObserverOK {
			return ErrSerializationFailed
		}
		return nil
	}
	return ErrSerializationFailed
}

// Exists reports whether the wrapped key currently has a value.
func (s *StateLibraryType) Exists() bool {
	return s.observer.Exists(s.key) == ObserverOK
}

func (s *StateLibraryType) SetChargeEstimator() ChargeAmount { return 1 }
func (s *StateLibraryType) GetChargeEstimator() ChargeAmount { return 1 }

// ShardedStateLibraryType is State<T> sharded by an additional Address
// key component, exposed to guest code as `ShardedState<T>`.
type ShardedStateLibraryType struct {
	BaseObject
	observer StateObserver
	prefix   string
	elemType TypeID
	vm       *VM
}

func NewShardedStateLibraryType(id TypeID, observer StateObserver, prefix string, elemType TypeID, owner *VM) *ShardedStateLibraryType {
	return &ShardedStateLibraryType{BaseObject: NewBaseObject(id), observer: observer, prefix: prefix, elemType: elemType, vm: owner}
}

func (s *ShardedStateLibraryType) shardKey(shard *AddressObject) string {
	return s.prefix + "/" + shard.Hex()
}

func (s *ShardedStateLibraryType) GetShard(shard *AddressObject, defaultValue Variant) (Variant, error) {
	inner := NewStateLibraryType(s.TypeID(), s.observer, s.shardKey(shard), s.elemType, s.vm)
	return inner.Get(defaultValue)
}

func (s *ShardedStateLibraryType) SetShard(shard *AddressObject, value Variant) error {
	inner := NewStateLibraryType(s.TypeID(), s.observer, s.shardKey(shard), s.elemType, s.vm)
	return inner.Set(value)
}
