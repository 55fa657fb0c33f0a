// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package mathlib provides array-math handler opcodes over the VM's
// Array<UInt64> instantiation (vm.ArrayObject). A guest program has no
// way to pass a callback across the VM boundary, so the arithmetic each
// reduce/map/zip step performs (+, *) is fixed per opcode instead of
// parameterized by a closure.
package mathlib

import "github.com/probeum/contractvm/vm"

// Module registers the Array<UInt64> instantiation and four handler
// opcodes: iota (monadic generator), sum (dyadic reduce +), scale
// (monadic map *k), and zip_add (dyadic zip +) -- the fixed-operator
// counterparts of U64Array's Iota/Reduce/Map/Zip.
type Module struct {
	arrayType vm.TypeID

	IotaOp   vm.Opcode
	SumOp    vm.Opcode
	ScaleOp  vm.Opcode
	ZipAddOp vm.Opcode
}

func New() *Module { return &Module{} }

func (m *Module) Register(types *vm.TypeRegistry, opcodes *vm.OpcodeTable) {
	m.arrayType = types.RegisterType("Array<UInt64>", vm.KindTemplateInstantiation, 0, []vm.TypeID{vm.TypeUint64})
	types.RegisterDeserializeConstructor(m.arrayType, func(v *vm.VM) vm.Object {
		return vm.NewArrayObject(v, m.arrayType, vm.TypeUint64, nil)
	})

	m.IotaOp = opcodes.RegisterHandlerOpcode("math.iota", m.handleIota, 5)
	m.SumOp = opcodes.RegisterHandlerOpcode("math.sum", m.handleSum, 5)
	m.ScaleOp = opcodes.RegisterHandlerOpcode("math.scale", m.handleScale, 5)
	m.ZipAddOp = opcodes.RegisterHandlerOpcode("math.zip_add", m.handleZipAdd, 5)
}

func (m *Module) newArray(v *vm.VM, elems []vm.Variant) vm.Variant {
	return vm.ConstructObject(m.arrayType, vm.NewArrayObject(v, m.arrayType, vm.TypeUint64, elems))
}

func arrayElements(val vm.Variant) ([]vm.Variant, error) {
	a, ok := val.Object().(*vm.ArrayObject)
	if val.IsNull() || !ok {
		return nil, vm.ErrTypeMismatch
	}
	return a.Elements, nil
}

func uint64Elem(u uint64) vm.Variant {
	return vm.ConstructPrimitive(vm.TypeUint64, vm.Primitive(u))
}

// handleIota pops a count (UInt64) and pushes Array<UInt64>[0, 1, ..., count-1].
func (m *Module) handleIota(v *vm.VM, _ vm.Instruction) error {
	countArg, err := v.Pop()
	if err != nil {
		return err
	}
	n := countArg.Primitive().AsUint64()
	elems := make([]vm.Variant, n)
	for i := range elems {
		elems[i] = uint64Elem(uint64(i))
	}
	return v.Push(m.newArray(v, elems))
}

// handleSum pops an Array<UInt64> and pushes the UInt64 sum of its
// elements (dyadic reduce +, seeded at zero).
func (m *Module) handleSum(v *vm.VM, _ vm.Instruction) error {
	arrArg, err := v.Pop()
	if err != nil {
		return err
	}
	elems, err := arrayElements(arrArg)
	if err != nil {
		return err
	}
	var sum uint64
	for _, e := range elems {
		sum += e.Primitive().AsUint64()
	}
	return v.Push(uint64Elem(sum))
}

// handleScale pops (factor UInt64, array Array<UInt64>) and pushes a new
// array with every element multiplied by factor (monadic map).
func (m *Module) handleScale(v *vm.VM, _ vm.Instruction) error {
	factorArg, err := v.Pop()
	if err != nil {
		return err
	}
	arrArg, err := v.Pop()
	if err != nil {
		return err
	}
	elems, err := arrayElements(arrArg)
	if err != nil {
		return err
	}
	factor := factorArg.Primitive().AsUint64()
	out := make([]vm.Variant, len(elems))
	for i, e := range elems {
		out[i] = uint64Elem(e.Primitive().AsUint64() * factor)
	}
	return v.Push(m.newArray(v, out))
}

// handleZipAdd pops two Array<UInt64> operands and pushes their
// element-wise sum, truncated to the shorter length (dyadic zip +).
func (m *Module) handleZipAdd(v *vm.VM, _ vm.Instruction) error {
	bArg, err := v.Pop()
	if err != nil {
		return err
	}
	aArg, err := v.Pop()
	if err != nil {
		return err
	}
	aElems, err := arrayElements(aArg)
	if err != nil {
		return err
	}
	bElems, err := arrayElements(bArg)
	if err != nil {
		return err
	}
	n := len(aElems)
	if len(bElems) < n {
		n = len(bElems)
	}
	out := make([]vm.Variant, n)
	for i := 0; i < n; i++ {
		out[i] = uint64Elem(aElems[i].Primitive().AsUint64() + bElems[i].Primitive().AsUint64())
	}
	return v.Push(m.newArray(v, out))
}
