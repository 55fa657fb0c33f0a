// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import (
	"github.com/holiman/uint256"
)

// Fixed128DefaultScale is the decimal scale (number of fractional digits)
// used when a Fixed128 is constructed without an explicit one.
const Fixed128DefaultScale = 18

// Fixed128Object is the >=128-bit fixed-point built-in, stored as an
// unscaled uint256 magnitude plus an explicit decimal scale. Large
// fixed-point constants live in the executable's large-constant pool and
// are loaded with PushLargeConstant to keep the ordinary constant pool
// primitive-sized.
type Fixed128Object struct {
	BaseObject
	Unscaled *uint256.Int
	Negative bool
	Scale    uint8
}

func NewFixed128(unscaled *uint256.Int, negative bool, scale uint8) *Fixed128Object {
	return &Fixed128Object{
		BaseObject: NewBaseObject(TypeFixed128),
		Unscaled:   unscaled,
		Negative:   negative,
		Scale:      scale,
	}
}

func (f *Fixed128Object) rescaledTo(scale uint8) *uint256.Int {
	v := new(uint256.Int).Set(f.Unscaled)
	if scale > f.Scale {
		factor := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(scale-f.Scale)))
		v.Mul(v, factor)
	} else if scale < f.Scale {
		factor := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(f.Scale-scale)))
		v.Div(v, factor)
	}
	return v
}

func commonScale(a, b *Fixed128Object) uint8 {
	if a.Scale > b.Scale {
		return a.Scale
	}
	return b.Scale
}

func (f *Fixed128Object) Add(other Variant) (Variant, error) {
	o, ok := other.Object().(*Fixed128Object)
	if other.IsNull() || !ok {
		return Variant{}, ErrNullReference
	}
	scale := commonScale(f, o)
	av, bv := f.rescaledTo(scale), o.rescaledTo(scale)
	var sum uint256.Int
	var neg bool
	if f.Negative == o.Negative {
		sum.Add(av, bv)
		neg = f.Negative
	} else if av.Cmp(bv) >= 0 {
		sum.Sub(av, bv)
		neg = f.Negative
	} else {
		sum.Sub(bv, av)
		neg = o.Negative
	}
	if sum.IsZero() {
		neg = false
	}
	return ConstructObject(TypeFixed128, NewFixed128(&sum, neg, scale)), nil
}

func (f *Fixed128Object) Subtract(other Variant) (Variant, error) {
	o, ok := other.Object().(*Fixed128Object)
	if other.IsNull() || !ok {
		return Variant{}, ErrNullReference
	}
	flipped := *o
	flipped.Negative = !o.Negative
	return f.Add(ConstructObject(TypeFixed128, &flipped))
}

func (f *Fixed128Object) Multiply(other Variant) (Variant, error) {
	o, ok := other.Object().(*Fixed128Object)
	if other.IsNull() || !ok {
		return Variant{}, ErrNullReference
	}
	scale := commonScale(f, o)
	av, bv := f.rescaledTo(scale), o.rescaledTo(scale)
	var prod uint256.Int
	prod.Mul(av, bv)
	factor := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(scale)))
	prod.Div(&prod, factor)
	neg := f.Negative != o.Negative && !prod.IsZero()
	return ConstructObject(TypeFixed128, NewFixed128(&prod, neg, scale)), nil
}

func (f *Fixed128Object) Divide(other Variant) (Variant, error) {
	o, ok := other.Object().(*Fixed128Object)
	if other.IsNull() || !ok {
		return Variant{}, ErrNullReference
	}
	if o.Unscaled.IsZero() {
		return Variant{}, ErrDivisionByZero
	}
	scale := commonScale(f, o)
	av, bv := f.rescaledTo(scale), o.rescaledTo(scale)
	factor := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(scale)))
	var num uint256.Int
	num.Mul(av, factor)
	var quot uint256.Int
	quot.Div(&num, bv)
	neg := f.Negative != o.Negative && !quot.IsZero()
	return ConstructObject(TypeFixed128, NewFixed128(&quot, neg, scale)), nil
}

func (f *Fixed128Object) Negate() (Variant, error) {
	return ConstructObject(TypeFixed128, NewFixed128(new(uint256.Int).Set(f.Unscaled), !f.Negative && !f.Unscaled.IsZero(), f.Scale)), nil
}

func (f *Fixed128Object) IsEqual(other Variant) (bool, error) {
	if other.IsNull() {
		return false, nil
	}
	o, ok := other.Object().(*Fixed128Object)
	if !ok {
		return false, ErrTypeMismatch
	}
	scale := commonScale(f, o)
	return f.rescaledTo(scale).Cmp(o.rescaledTo(scale)) == 0 && f.Negative == o.Negative, nil
}

func (f *Fixed128Object) IsNotEqual(other Variant) (bool, error) {
	eq, err := f.IsEqual(other)
	return !eq, err
}

func (f *Fixed128Object) cmp(other Variant) (int, error) {
	o, ok := other.Object().(*Fixed128Object)
	if other.IsNull() || !ok {
		return 0, ErrNullReference
	}
	scale := commonScale(f, o)
	c := f.rescaledTo(scale).Cmp(o.rescaledTo(scale))
	if f.Negative && !o.Negative {
		return -1, nil
	}
	if !f.Negative && o.Negative {
		return 1, nil
	}
	if f.Negative {
		return -c, nil
	}
	return c, nil
}

func (f *Fixed128Object) IsLessThan(other Variant) (bool, error) {
	c, err := f.cmp(other)
	return c < 0, err
}
func (f *Fixed128Object) IsLessThanOrEqual(other Variant) (bool, error) {
	c, err := f.cmp(other)
	return c <= 0, err
}
func (f *Fixed128Object) IsGreaterThan(other Variant) (bool, error) {
	c, err := f.cmp(other)
	return c > 0, err
}
func (f *Fixed128Object) IsGreaterThanOrEqual(other Variant) (bool, error) {
	c, err := f.cmp(other)
	return c >= 0, err
}

func (f *Fixed128Object) SerializeTo(buf Buffer) error {
	buf.WriteBool(f.Negative)
	buf.WriteUint(uint64(f.Scale))
	b := f.Unscaled.Bytes32()
	buf.WriteBytes(b[:])
	return nil
}

func (f *Fixed128Object) DeserializeFrom(buf Buffer) error {
	neg, err := buf.ReadBool()
	if err != nil {
		return ErrSerializationFailed
	}
	scale, err := buf.ReadUint()
	if err != nil {
		return ErrSerializationFailed
	}
	raw, err := buf.ReadBytes()
	if err != nil || len(raw) != 32 {
		return ErrSerializationFailed
	}
	f.Negative = neg
	f.Scale = uint8(scale)
	f.Unscaled = new(uint256.Int).SetBytes(raw)
	return nil
}

func (f *Fixed128Object) HashCode() (uint64, error) {
	return f.Unscaled.Uint64(), nil
}
