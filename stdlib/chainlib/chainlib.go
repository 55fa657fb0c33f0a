// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package chainlib exposes chain context to guest programs: an
// in-memory ledger reachable through Balance/Transfer/Caller/BlockNum/
// BlockTime/Emit handler opcodes, keyed by the VM's 32-byte Address
// type.
package chainlib

import (
	"sync"

	"github.com/probeum/contractvm/vm"
)

// Log is one emitted event: the emitting address, a topic, and opaque
// payload bytes.
type Log struct {
	Address vm.AddressObject
	Topic   string
	Data    []byte
}

// Ledger is the in-memory chain context a Module binds its opcodes
// against: account balances, the fixed call context (caller/block
// number/block time) for the run, and the accumulated emitted logs.
// Safe for concurrent use since an Engine may run several VMs against
// independent Ledgers concurrently, even though a single VM never shares
// one across goroutines mid-run.
type Ledger struct {
	mu        sync.Mutex
	balances  map[[vm.AddressLength]byte]uint64
	caller    [vm.AddressLength]byte
	blockNum  uint64
	blockTime uint64
	logs      []Log
}

// NewLedger builds a Ledger fixed to a single run's call context.
func NewLedger(caller [vm.AddressLength]byte, blockNum, blockTime uint64) *Ledger {
	return &Ledger{
		balances:  make(map[[vm.AddressLength]byte]uint64),
		caller:    caller,
		blockNum:  blockNum,
		blockTime: blockTime,
	}
}

// SetBalance seeds an account's starting balance (test/engine setup
// hook, not guest-callable).
func (l *Ledger) SetBalance(addr [vm.AddressLength]byte, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[addr] = amount
}

func (l *Ledger) balance(addr [vm.AddressLength]byte) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[addr]
}

// transfer moves amount from l.caller to to, failing on insufficient
// balance -- the caller is always the run's fixed context account, there
// is no arbitrary-source transfer.
func (l *Ledger) transfer(to [vm.AddressLength]byte, amount uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[l.caller] < amount {
		return false
	}
	l.balances[l.caller] -= amount
	l.balances[to] += amount
	return true
}

func (l *Ledger) emit(topic string, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, Log{Address: vm.AddressObject{Bytes: l.caller}, Topic: topic, Data: data})
}

// Logs returns the logs emitted so far, in emission order.
func (l *Ledger) Logs() []Log {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Log, len(l.logs))
	copy(out, l.logs)
	return out
}

// Module binds six handler opcodes against a *Ledger captured at
// construction time. Unlike cryptolib/mathlib, a chainlib Module is
// stateful (the ledger holds balances). Its opcodes are registered once
// against the shared vm.OpcodeTable, same as any other module, so every
// run through that table reads and writes the one Ledger the Module was
// built with.
type Module struct {
	ledger *Ledger

	BalanceOp   vm.Opcode
	TransferOp  vm.Opcode
	CallerOp    vm.Opcode
	BlockNumOp  vm.Opcode
	BlockTimeOp vm.Opcode
	EmitOp      vm.Opcode
}

func New(ledger *Ledger) *Module { return &Module{ledger: ledger} }

func (m *Module) Register(types *vm.TypeRegistry, opcodes *vm.OpcodeTable) {
	m.BalanceOp = opcodes.RegisterHandlerOpcode("chain.balance", m.handleBalance, 5)
	m.TransferOp = opcodes.RegisterHandlerOpcode("chain.transfer", m.handleTransfer, 20)
	m.CallerOp = opcodes.RegisterHandlerOpcode("chain.caller", m.handleCaller, 1)
	m.BlockNumOp = opcodes.RegisterHandlerOpcode("chain.blocknum", m.handleBlockNum, 1)
	m.BlockTimeOp = opcodes.RegisterHandlerOpcode("chain.blocktime", m.handleBlockTime, 1)
	m.EmitOp = opcodes.RegisterHandlerOpcode("chain.emit", m.handleEmit, 10)
}

func addressArg(val vm.Variant) ([vm.AddressLength]byte, error) {
	a, ok := val.Object().(*vm.AddressObject)
	if val.IsNull() || !ok {
		return [vm.AddressLength]byte{}, vm.ErrTypeMismatch
	}
	return a.Bytes, nil
}

func addressVariant(b [vm.AddressLength]byte) vm.Variant {
	return vm.ConstructObject(vm.TypeAddress, vm.NewAddressObject(b))
}

func uint64Variant(u uint64) vm.Variant {
	return vm.ConstructPrimitive(vm.TypeUint64, vm.Primitive(u))
}

func boolVariant(b bool) vm.Variant {
	var word uint64
	if b {
		word = 1
	}
	return vm.ConstructPrimitive(vm.TypeBool, vm.Primitive(word))
}

// handleBalance pops an Address and pushes its Uint64 balance.
func (m *Module) handleBalance(v *vm.VM, _ vm.Instruction) error {
	addrArg, err := v.Pop()
	if err != nil {
		return err
	}
	addr, err := addressArg(addrArg)
	if err != nil {
		return err
	}
	return v.Push(uint64Variant(m.ledger.balance(addr)))
}

// handleTransfer pops (amount Uint64, to Address) and pushes a Bool
// success flag; the source account is always the run's caller.
func (m *Module) handleTransfer(v *vm.VM, _ vm.Instruction) error {
	amountArg, err := v.Pop()
	if err != nil {
		return err
	}
	toArg, err := v.Pop()
	if err != nil {
		return err
	}
	to, err := addressArg(toArg)
	if err != nil {
		return err
	}
	ok := m.ledger.transfer(to, amountArg.Primitive().AsUint64())
	return v.Push(boolVariant(ok))
}

// handleCaller pushes the run's fixed caller Address.
func (m *Module) handleCaller(v *vm.VM, _ vm.Instruction) error {
	return v.Push(addressVariant(m.ledger.caller))
}

// handleBlockNum pushes the run's fixed block number.
func (m *Module) handleBlockNum(v *vm.VM, _ vm.Instruction) error {
	return v.Push(uint64Variant(m.ledger.blockNum))
}

// handleBlockTime pushes the run's fixed block timestamp.
func (m *Module) handleBlockTime(v *vm.VM, _ vm.Instruction) error {
	return v.Push(uint64Variant(m.ledger.blockTime))
}

// handleEmit pops (data String, topic String) and records a Log against
// the caller address. Emit only accepts the built-in String object; the
// payload is stored as its UTF-8 bytes.
func (m *Module) handleEmit(v *vm.VM, _ vm.Instruction) error {
	dataArg, err := v.Pop()
	if err != nil {
		return err
	}
	topicArg, err := v.Pop()
	if err != nil {
		return err
	}
	topicObj, ok := topicArg.Object().(*vm.StringObject)
	if topicArg.IsNull() || !ok {
		return vm.ErrTypeMismatch
	}
	dataObj, ok := dataArg.Object().(*vm.StringObject)
	if dataArg.IsNull() || !ok {
		return vm.ErrTypeMismatch
	}
	m.ledger.emit(topicObj.Value, []byte(dataObj.Value))
	return nil
}
