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

	"github.com/vmihailenco/msgpack/v5"
)

// msgpackBuffer is the concrete Buffer implementation backing every
// object's SerializeTo/DeserializeFrom pair. It is a thin, ordered
// wrapper around a msgpack.Encoder/Decoder pair, so the wire format is a
// MsgPack-family tagged value stream.
type msgpackBuffer struct {
	buf *bytes.Buffer
	enc *msgpack.Encoder
	dec *msgpack.Decoder
}

// NewSerializeBuffer returns a Buffer ready for writing (SerializeTo).
func NewSerializeBuffer() Buffer {
	buf := &bytes.Buffer{}
	return &msgpackBuffer{buf: buf, enc: msgpack.NewEncoder(buf)}
}

// NewDeserializeBuffer returns a Buffer positioned at the start of data,
// ready for reading (DeserializeFrom).
func NewDeserializeBuffer(data []byte) Buffer {
	buf := bytes.NewBuffer(data)
	return &msgpackBuffer{buf: buf, dec: msgpack.NewDecoder(buf)}
}

// Bytes returns the accumulated wire bytes after a sequence of writes.
func (m *msgpackBuffer) Bytes() []byte { return m.buf.Bytes() }

func (m *msgpackBuffer) WriteInt(v int64)     { _ = m.enc.EncodeInt64(v) }
func (m *msgpackBuffer) WriteUint(v uint64)   { _ = m.enc.EncodeUint64(v) }
func (m *msgpackBuffer) WriteFloat(v float64) { _ = m.enc.EncodeFloat64(v) }
func (m *msgpackBuffer) WriteBool(v bool)     { _ = m.enc.EncodeBool(v) }
func (m *msgpackBuffer) WriteString(v string) { _ = m.enc.EncodeString(v) }
func (m *msgpackBuffer) WriteBytes(v []byte)  { _ = m.enc.EncodeBytes(v) }
func (m *msgpackBuffer) WriteArrayHeader(n int) { _ = m.enc.EncodeArrayLen(n) }
func (m *msgpackBuffer) WriteMapHeader(n int)   { _ = m.enc.EncodeMapLen(n) }

func (m *msgpackBuffer) ReadInt() (int64, error)     { return m.dec.DecodeInt64() }
func (m *msgpackBuffer) ReadUint() (uint64, error)   { return m.dec.DecodeUint64() }
func (m *msgpackBuffer) ReadFloat() (float64, error) { return m.dec.DecodeFloat64() }
func (m *msgpackBuffer) ReadBool() (bool, error)     { return m.dec.DecodeBool() }
func (m *msgpackBuffer) ReadString() (string, error) { return m.dec.DecodeString() }
func (m *msgpackBuffer) ReadBytes() ([]byte, error)  { return m.dec.DecodeBytes() }
func (m *msgpackBuffer) ReadArrayHeader() (int, error) { return m.dec.DecodeArrayLen() }
func (m *msgpackBuffer) ReadMapHeader() (int, error)   { return m.dec.DecodeMapLen() }

// serializeVariant writes a self-describing (type-id tagged) variant:
// used when a container serializes elements whose concrete type isn't
// already implied by the container's declared element type (e.g. Map
// values of object type, or Array<T> for object T).
func serializeVariant(buf Buffer, v Variant) error {
	buf.WriteUint(uint64(v.TypeID))
	if v.IsPrimitive() {
		buf.WriteUint(uint64(v.Primitive()))
		return nil
	}
	if v.IsNull() {
		buf.WriteBool(true)
		return nil
	}
	buf.WriteBool(false)
	return v.Object().SerializeTo(buf)
}

// deserializeVariantTyped reads back a variant written by serializeVariant
// without consulting any type registry: primitives and the reserved
// built-in object types only. Registry-resolved reconstruction is
// VM.deserializeVariant; readElement below picks between the two.
func deserializeVariantTyped(buf Buffer, expectedType TypeID) (Variant, error) {
	tid, err := buf.ReadUint()
	if err != nil {
		return Variant{}, ErrSerializationFailed
	}
	t := TypeID(tid)
	if t <= PrimitiveMaxId {
		p, err := buf.ReadUint()
		if err != nil {
			return Variant{}, ErrSerializationFailed
		}
		return ConstructPrimitive(t, Primitive(p)), nil
	}
	isNull, err := buf.ReadBool()
	if err != nil {
		return Variant{}, ErrSerializationFailed
	}
	if isNull {
		return NullVariant(t), nil
	}
	obj, err := newBuiltinOrZeroObject(t)
	if err != nil {
		return Variant{}, err
	}
	if err := obj.DeserializeFrom(buf); err != nil {
		return Variant{}, err
	}
	return ConstructObject(t, obj), nil
}

// newBuiltinOrZeroObject constructs a zero-value instance of the given
// built-in object type so DeserializeFrom has somewhere to write into.
// Non-built-in (template/user-defined) types need a registry lookup; see
// VM.deserializeVariant.
func newBuiltinOrZeroObject(t TypeID) (Object, error) {
	switch t {
	case TypeString:
		return NewStringObject(""), nil
	case TypeAddress:
		return NewAddressObject([AddressLength]byte{}), nil
	case TypeFixed128:
		return &Fixed128Object{BaseObject: NewBaseObject(TypeFixed128)}, nil
	default:
		return nil, ErrUnknownType
	}
}

// readElement reconstructs one tagged variant from buf on behalf of a
// container's DeserializeFrom: through the owning VM's type registry
// when the container has one, or the registry-blind built-in path when
// it does not (owner == nil).
func readElement(owner *VM, buf Buffer, expectedType TypeID) (Variant, error) {
	if owner != nil {
		return owner.deserializeVariant(buf, expectedType)
	}
	return deserializeVariantTyped(buf, expectedType)
}
