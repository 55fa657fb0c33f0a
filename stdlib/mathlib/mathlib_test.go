// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package mathlib

import (
	"testing"

	"github.com/probeum/contractvm/vm"
)

func newTestVM(t *testing.T) (*vm.VM, *Module) {
	t.Helper()
	types := vm.NewTypeRegistry()
	opcodes := vm.NewOpcodeTable()
	m := New()
	m.Register(types, opcodes)
	v := vm.New(types, opcodes, 1_000_000)
	return v, m
}

func callHandler(t *testing.T, v *vm.VM, op vm.Opcode) {
	t.Helper()
	info, ok := v.Opcodes.Lookup(op)
	if !ok {
		t.Fatalf("opcode %d not registered", op)
	}
	if err := info.Handler(v, vm.Instruction{Opcode: op}); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
}

func sumOf(t *testing.T, val vm.Variant) uint64 {
	t.Helper()
	elems, err := arrayElements(val)
	if err != nil {
		t.Fatal(err)
	}
	var s uint64
	for _, e := range elems {
		s += e.Primitive().AsUint64()
	}
	return s
}

func TestIotaAndSum(t *testing.T) {
	v, m := newTestVM(t)

	if err := v.Push(uint64Elem(5)); err != nil {
		t.Fatal(err)
	}
	callHandler(t, v, m.IotaOp)
	arr, err := v.Pop()
	if err != nil {
		t.Fatal(err)
	}
	if sumOf(t, arr) != 0+1+2+3+4 {
		t.Fatalf("iota(5) sum = %d, want 10", sumOf(t, arr))
	}

	if err := v.Push(arr); err != nil {
		t.Fatal(err)
	}
	callHandler(t, v, m.SumOp)
	sum, err := v.Pop()
	if err != nil {
		t.Fatal(err)
	}
	if sum.Primitive().AsUint64() != 10 {
		t.Fatalf("got %d, want 10", sum.Primitive().AsUint64())
	}
}

func TestScale(t *testing.T) {
	v, m := newTestVM(t)

	if err := v.Push(uint64Elem(4)); err != nil {
		t.Fatal(err)
	}
	callHandler(t, v, m.IotaOp) // [0,1,2,3]
	arr, _ := v.Pop()

	if err := v.Push(arr); err != nil {
		t.Fatal(err)
	}
	if err := v.Push(uint64Elem(10)); err != nil {
		t.Fatal(err)
	}
	callHandler(t, v, m.ScaleOp)
	scaled, err := v.Pop()
	if err != nil {
		t.Fatal(err)
	}
	elems, err := arrayElements(scaled)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint64{0, 10, 20, 30}
	for i, e := range elems {
		if e.Primitive().AsUint64() != want[i] {
			t.Fatalf("elems[%d] = %d, want %d", i, e.Primitive().AsUint64(), want[i])
		}
	}
}

func TestZipAdd(t *testing.T) {
	v, m := newTestVM(t)

	if err := v.Push(uint64Elem(3)); err != nil {
		t.Fatal(err)
	}
	callHandler(t, v, m.IotaOp) // a = [0,1,2]
	a, _ := v.Pop()

	if err := v.Push(uint64Elem(3)); err != nil {
		t.Fatal(err)
	}
	callHandler(t, v, m.IotaOp) // b = [0,1,2]
	b, _ := v.Pop()

	if err := v.Push(a); err != nil {
		t.Fatal(err)
	}
	if err := v.Push(b); err != nil {
		t.Fatal(err)
	}
	callHandler(t, v, m.ZipAddOp)
	sum, err := v.Pop()
	if err != nil {
		t.Fatal(err)
	}
	elems, err := arrayElements(sum)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint64{0, 2, 4}
	for i, e := range elems {
		if e.Primitive().AsUint64() != want[i] {
			t.Fatalf("elems[%d] = %d, want %d", i, e.Primitive().AsUint64(), want[i])
		}
	}
}
