// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import "math/big"

// Fixed-point formats: Fixed32 is Q16.16, Fixed64 is Q32.32, both stored
// as a sign-extended integer in the 64-bit primitive word. The scale is
// fixed per type rather than carried in the Variant, unlike Fixed128's
// explicit runtime scale.
const (
	fixed32FracBits = 16
	fixed64FracBits = 32
)

func init() {
	registerPrimitiveOpcodes()
}

func registerPrimitiveOpcodes() {
	defOpcode(OpPrimitiveAdd, "PrimitiveAdd", 1, handlePrimitiveBinary(primAdd))
	defOpcode(OpPrimitiveSubtract, "PrimitiveSubtract", 1, handlePrimitiveBinary(primSub))
	defOpcode(OpPrimitiveMultiply, "PrimitiveMultiply", 1, handlePrimitiveBinary(primMul))
	defOpcode(OpPrimitiveDivide, "PrimitiveDivide", 1, handlePrimitiveBinary(primDiv))
	defOpcode(OpPrimitiveModulo, "PrimitiveModulo", 1, handlePrimitiveBinary(primMod))

	defOpcode(OpPrimitiveEqual, "PrimitiveEqual", 1, handlePrimitiveCompare(func(c int) bool { return c == 0 }))
	defOpcode(OpPrimitiveNotEqual, "PrimitiveNotEqual", 1, handlePrimitiveCompare(func(c int) bool { return c != 0 }))
	defOpcode(OpPrimitiveLessThan, "PrimitiveLessThan", 1, handlePrimitiveCompare(func(c int) bool { return c < 0 }))
	defOpcode(OpPrimitiveLessThanOrEqual, "PrimitiveLessThanOrEqual", 1, handlePrimitiveCompare(func(c int) bool { return c <= 0 }))
	defOpcode(OpPrimitiveGreaterThan, "PrimitiveGreaterThan", 1, handlePrimitiveCompare(func(c int) bool { return c > 0 }))
	defOpcode(OpPrimitiveGreaterThanOrEqual, "PrimitiveGreaterThanOrEqual", 1, handlePrimitiveCompare(func(c int) bool { return c >= 0 }))

	defOpcode(OpNot, "Not", 1, handleNot)
	defOpcode(OpPrimitiveNegate, "PrimitiveNegate", 1, handlePrimitiveNegate)

	defOpcode(OpInc, "Inc", 1, handleIncDec(1))
	defOpcode(OpDec, "Dec", 1, handleIncDec(-1))
}

func isFloat(t TypeID) bool  { return t == TypeFloat32 || t == TypeFloat64 }
func isFixed(t TypeID) bool  { return t == TypeFixed32 || t == TypeFixed64 }
func isSigned(t TypeID) bool {
	switch t {
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64, TypeFixed32, TypeFixed64:
		return true
	}
	return false
}

func fracBits(t TypeID) uint {
	if t == TypeFixed32 {
		return fixed32FracBits
	}
	return fixed64FracBits
}

type primBinOp func(t TypeID, a, b Primitive) (Primitive, error)

func handlePrimitiveBinary(op primBinOp) Handler {
	return func(v *VM, instr Instruction) error {
		b, err := v.pop()
		if err != nil {
			return err
		}
		a, err := v.pop()
		if err != nil {
			return err
		}
		res, err := op(instr.TypeID, a.Primitive(), b.Primitive())
		if err != nil {
			return err
		}
		return v.push(ConstructPrimitive(instr.TypeID, res))
	}
}

func primAdd(t TypeID, a, b Primitive) (Primitive, error) {
	switch {
	case isFloat(t):
		return floatOp(t, a, b, func(x, y float64) float64 { return x + y }), nil
	case isFixed(t):
		return Primitive(uint64(int64(a) + int64(b))), nil
	case isSigned(t):
		return primFromI64(int64(a) + int64(b)), nil
	default:
		return primFromU64(uint64(a) + uint64(b)), nil
	}
}

func primSub(t TypeID, a, b Primitive) (Primitive, error) {
	switch {
	case isFloat(t):
		return floatOp(t, a, b, func(x, y float64) float64 { return x - y }), nil
	case isFixed(t):
		return Primitive(uint64(int64(a) - int64(b))), nil
	case isSigned(t):
		return primFromI64(int64(a) - int64(b)), nil
	default:
		return primFromU64(uint64(a) - uint64(b)), nil
	}
}

func primMul(t TypeID, a, b Primitive) (Primitive, error) {
	switch {
	case isFloat(t):
		return floatOp(t, a, b, func(x, y float64) float64 { return x * y }), nil
	case isFixed(t):
		av := big.NewInt(int64(a))
		bv := big.NewInt(int64(b))
		av.Mul(av, bv)
		av.Rsh(av, fracBits(t))
		return Primitive(uint64(av.Int64())), nil
	case isSigned(t):
		return primFromI64(int64(a) * int64(b)), nil
	default:
		return primFromU64(uint64(a) * uint64(b)), nil
	}
}

func primDiv(t TypeID, a, b Primitive) (Primitive, error) {
	switch {
	case isFloat(t):
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		return floatOp(t, a, b, func(x, y float64) float64 { return x / y }), nil
	case isFixed(t):
		if int64(b) == 0 {
			return 0, ErrDivisionByZero
		}
		av := big.NewInt(int64(a))
		av.Lsh(av, fracBits(t))
		bv := big.NewInt(int64(b))
		av.Quo(av, bv)
		return Primitive(uint64(av.Int64())), nil
	case isSigned(t):
		if int64(b) == 0 {
			return 0, ErrDivisionByZero
		}
		return primFromI64(int64(a) / int64(b)), nil
	default:
		if uint64(b) == 0 {
			return 0, ErrDivisionByZero
		}
		return primFromU64(uint64(a) / uint64(b)), nil
	}
}

func primMod(t TypeID, a, b Primitive) (Primitive, error) {
	if isFloat(t) {
		return 0, ErrOperatorNotImplemented
	}
	// Fixed-point values are sign-extended scaled integers, so the signed
	// remainder below is already in the right scale.
	if isSigned(t) {
		if int64(b) == 0 {
			return 0, ErrDivisionByZero
		}
		return primFromI64(int64(a) % int64(b)), nil
	}
	if uint64(b) == 0 {
		return 0, ErrDivisionByZero
	}
	return primFromU64(uint64(a) % uint64(b)), nil
}

func floatOp(t TypeID, a, b Primitive, f func(x, y float64) float64) Primitive {
	if t == TypeFloat32 {
		return primFromF32(float32(f(float64(a.asF32()), float64(b.asF32()))))
	}
	return primFromF64(f(a.asF64(), b.asF64()))
}

func primCompare(t TypeID, a, b Primitive) int {
	switch {
	case isFloat(t):
		af, bf := a.asF64(), b.asF64()
		if t == TypeFloat32 {
			af, bf = float64(a.asF32()), float64(b.asF32())
		}
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	case isSigned(t):
		ai, bi := int64(a), int64(b)
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	case t == TypeBool:
		switch {
		case a == b:
			return 0
		case a.asBool():
			return 1
		default:
			return -1
		}
	default:
		au, bu := uint64(a), uint64(b)
		switch {
		case au < bu:
			return -1
		case au > bu:
			return 1
		default:
			return 0
		}
	}
}

func handlePrimitiveCompare(test func(c int) bool) Handler {
	return func(v *VM, instr Instruction) error {
		b, err := v.pop()
		if err != nil {
			return err
		}
		a, err := v.pop()
		if err != nil {
			return err
		}
		c := primCompare(instr.TypeID, a.Primitive(), b.Primitive())
		return v.push(boolVariant(test(c)))
	}
}

func handleNot(v *VM, instr Instruction) error {
	a, err := v.pop()
	if err != nil {
		return err
	}
	return v.push(boolVariant(!a.Primitive().asBool()))
}

func handlePrimitiveNegate(v *VM, instr Instruction) error {
	a, err := v.pop()
	if err != nil {
		return err
	}
	var res Primitive
	switch {
	case isFloat(instr.TypeID) || isFixed(instr.TypeID):
		if instr.TypeID == TypeFloat32 {
			res = primFromF32(-a.Primitive().asF32())
		} else if instr.TypeID == TypeFloat64 {
			res = primFromF64(-a.Primitive().asF64())
		} else {
			res = Primitive(uint64(-int64(a.Primitive())))
		}
	default:
		res = primFromI64(-int64(a.Primitive()))
	}
	return v.push(ConstructPrimitive(instr.TypeID, res))
}

func handleIncDec(delta int64) Handler {
	return func(v *VM, instr Instruction) error {
		a, err := v.pop()
		if err != nil {
			return err
		}
		res, err := primAdd(instr.TypeID, a.Primitive(), primFromI64(delta))
		if err != nil {
			return err
		}
		return v.push(ConstructPrimitive(instr.TypeID, res))
	}
}
