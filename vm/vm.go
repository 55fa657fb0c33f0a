// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package vm implements the sandboxed stack-based bytecode interpreter:
// tagged variants, a type registry, the object contract, the opcode
// table and fetch/decode/dispatch loop, charge metering, parameter
// marshalling, and the state-observer interface. It has no knowledge of
// how an Executable was produced or how it will be reused across runs;
// that is the execution engine's job (package engine).
package vm

import "io"

// ContractInvoker is the synchronous host callback InvokeContractFunction
// dispatches through. The VM never recurses into another VM instance for
// a cross-contract call; it calls out to host code and waits.
type ContractInvoker func(contractName, fnName string, params []Variant) (Variant, error)

// VM is one interpreter instance. A fresh VM is constructed per run by
// the execution engine, so no instance is ever reused across two
// different state containers.
type VM struct {
	Types   *TypeRegistry
	Opcodes *OpcodeTable

	exec    *Executable
	udtByID map[TypeID]*UserDefinedType
	strings []*StringObject

	operand    []Variant
	sp         int
	maxOperand int

	frames     []Frame
	maxFrames  int
	frameDepth int

	function *Function
	pc       int
	bsp      int
	self     Variant

	forStack    []ForRangeLoop
	maxForStack int

	liveObjects []LiveObjectInfo

	charge *ChargeMeter
	stop   bool
	err    error

	returnValue Variant

	Stdout   io.Writer
	Observer StateObserver
	Invoker  ContractInvoker

	devices map[string]io.Writer
}

// StdoutDevice is the conventional name of the standard output device.
const StdoutDevice = "STDOUT"

// AttachOutputDevice binds a writer to a named output device for the
// duration of a run; the host detaches it afterwards. Attaching STDOUT
// also sets Stdout.
func (v *VM) AttachOutputDevice(name string, w io.Writer) {
	if v.devices == nil {
		v.devices = make(map[string]io.Writer)
	}
	v.devices[name] = w
	if name == StdoutDevice {
		v.Stdout = w
	}
}

// DetachOutputDevice removes a named output device.
func (v *VM) DetachOutputDevice(name string) {
	delete(v.devices, name)
	if name == StdoutDevice {
		v.Stdout = nil
	}
}

// OutputDevice returns the writer attached under name; STDOUT falls back
// to the Stdout field so embedders that only set the field still work.
func (v *VM) OutputDevice(name string) io.Writer {
	if w, ok := v.devices[name]; ok {
		return w
	}
	if name == StdoutDevice {
		return v.Stdout
	}
	return nil
}

// New constructs a VM against the given (shared, long-lived) type
// registry and opcode table, with the given charge limit (0 = unbounded).
func New(types *TypeRegistry, opcodes *OpcodeTable, chargeLimit uint64) *VM {
	return &VM{
		Types:       types,
		Opcodes:     opcodes,
		maxOperand:  DefaultOperandStackDepth,
		maxFrames:   DefaultFrameStackDepth,
		maxForStack: DefaultForStackDepth,
		sp:          -1,
		charge:      NewChargeMeter(chargeLimit),
	}
}

// ChargeTotal returns the cumulative charge consumed so far by this VM
// instance (valid after Run, whether it succeeded or failed).
func (v *VM) ChargeTotal() uint64 { return v.charge.Total() }

// Load attaches an immutable executable to the VM, interning its string
// pool and appending its user-defined types to the live type registry.
// A VM may have at most one executable loaded; loading twice without an
// intervening Unload is a programmer error.
func (v *VM) Load(exec *Executable) error {
	if v.exec != nil {
		return ErrAlreadyLoaded
	}
	v.exec = exec
	v.strings = make([]*StringObject, len(exec.Strings))
	interned := make(map[string]*StringObject, len(exec.Strings))
	for i, s := range exec.Strings {
		obj, ok := interned[s]
		if !ok {
			obj = NewStringObject(s)
			interned[s] = obj
		}
		v.strings[i] = obj
	}
	v.udtByID = make(map[TypeID]*UserDefinedType, len(exec.Types))
	for i := range exec.Types {
		def := &exec.Types[i]
		id := v.Types.RegisterType(def.Name, KindUserDefined, TypeUnknown, nil)
		v.udtByID[id] = def
		v.Types.RegisterDeserializeConstructor(id, func(vv *VM) Object {
			return NewUserDefinedObject(vv, id, def)
		})
	}
	return nil
}

// Unload reverses Load: it drops the interned string pool and removes
// the executable's user-defined types from the registry.
func (v *VM) Unload() {
	if v.exec == nil {
		return
	}
	for id := range v.udtByID {
		v.Types.UnregisterType(id)
	}
	v.exec = nil
	v.strings = nil
	v.udtByID = nil
}

// Run invokes entry with params and returns its return value. A fresh
// machine state is established for each call: operand/frame/for-range/
// live-object stacks are cleared, the charge meter is NOT reset (the
// caller constructs a fresh VM, and therefore a fresh meter, per run).
func (v *VM) Run(entry string, params *ParameterPack) (Variant, error) {
	if v.exec == nil {
		return Variant{}, ErrNotLoaded
	}
	idx := v.exec.FindFunction(entry)
	if idx < 0 {
		return Variant{}, ErrEntrypointNotFound
	}
	fn := &v.exec.Functions[idx]
	if err := params.checkAgainst(fn); err != nil {
		return Variant{}, err
	}

	v.sp = -1
	v.frames = v.frames[:0]
	v.frameDepth = 0
	v.forStack = v.forStack[:0]
	v.liveObjects = v.liveObjects[:0]
	v.stop = false
	v.err = nil
	v.returnValue = Variant{}
	v.operand = make([]Variant, 0, fn.NumLocals)

	for _, p := range params.values {
		if err := v.push(p); err != nil {
			return Variant{}, err
		}
	}
	for i := fn.NumParameters; i < fn.NumLocals; i++ {
		if err := v.push(Variant{}); err != nil {
			return Variant{}, err
		}
	}

	v.function = fn
	v.pc = 0
	v.bsp = 0
	v.self = Variant{}

	if fn.Kind == FnConstructor {
		self, err := v.newUserDefinedObject(fn.ReturnType)
		if err != nil {
			return Variant{}, err
		}
		v.self = ConstructObject(fn.ReturnType, self)
	}

	for !v.stop {
		if err := v.Step(); err != nil {
			return Variant{}, err
		}
	}
	if v.err != nil {
		return Variant{}, v.err
	}
	return v.returnValue, nil
}

// Step executes exactly one instruction of the currently running
// function: fetch, look up opcode info, charge, invoke handler.
func (v *VM) Step() error {
	instrPC := v.pc
	if instrPC >= len(v.function.Instructions) {
		v.stop = true
		return nil
	}
	instr := v.function.Instructions[instrPC]
	v.pc++

	info, ok := v.Opcodes.Lookup(instr.Opcode)
	if !ok {
		return v.fail(ErrUnknownOpcode, instrPC)
	}
	if v.charge.Add(info.StaticCharge) {
		return v.fail(ErrChargeLimitReached, instrPC)
	}
	if err := info.Handler(v, instr); err != nil {
		return v.fail(err, instrPC)
	}
	return nil
}

// fail records a runtime error, halts the loop, and unwinds every stack,
// resetting every stack slot and every frame's saved self. Partial
// observer writes already issued are not rolled back; that is the
// engine's concern.
func (v *VM) fail(err error, pc int) error {
	line := 0
	if v.function != nil {
		line = v.function.lineFor(pc)
	}
	v.err = newRunError(err, line)
	v.stop = true
	for i := range v.operand {
		v.operand[i] = Variant{}
	}
	for i := range v.frames {
		v.frames[i].SavedSelf = Variant{}
	}
	v.frames = v.frames[:0]
	v.frameDepth = 0
	v.forStack = v.forStack[:0]
	v.liveObjects = v.liveObjects[:0]
	v.self = Variant{}
	return v.err
}

// --- operand stack -----------------------------------------------------

func (v *VM) push(val Variant) error {
	if v.sp+1 >= v.maxOperand {
		return ErrStackOverflow
	}
	v.sp++
	if v.sp < len(v.operand) {
		v.operand[v.sp] = val
	} else {
		v.operand = append(v.operand, val)
	}
	return nil
}

func (v *VM) pop() (Variant, error) {
	if v.sp < 0 {
		return Variant{}, ErrStackOverflow
	}
	val := v.operand[v.sp]
	v.operand[v.sp] = Variant{}
	v.sp--
	return val, nil
}

func (v *VM) topRef() *Variant { return &v.operand[v.sp] }

func (v *VM) atRef(absoluteIndex int) *Variant { return &v.operand[absoluteIndex] }

// Push and Pop are the exported operand-stack surface host-registered
// handler opcodes use.
// A handler body reads its call's arguments with Pop (in reverse push
// order, matching every built-in binary-op handler's a,b := pop,pop
// convention) and returns its result with Push, exactly like the
// built-in handlers in vm_handlers_*.go that call the unexported
// push/pop directly.
func (v *VM) Push(val Variant) error { return v.push(val) }
func (v *VM) Pop() (Variant, error)  { return v.pop() }

// Self returns the current frame's self variant, valid inside a member
// or constructor function's handler.
func (v *VM) Self() Variant { return v.self }

// --- frame stack --------------------------------------------------------

func (v *VM) pushFrame() error {
	if len(v.frames) >= v.maxFrames {
		return ErrFrameStackOverflow
	}
	v.frames = append(v.frames, Frame{Function: v.function, Bsp: v.bsp, SavedPC: v.pc, SavedSelf: v.self})
	v.frameDepth++
	return nil
}

func (v *VM) popFrame() (Frame, bool) {
	if len(v.frames) == 0 {
		return Frame{}, false
	}
	f := v.frames[len(v.frames)-1]
	v.frames = v.frames[:len(v.frames)-1]
	v.frameDepth--
	return f, true
}

// --- for-range stack ------------------------------------------------------

func (v *VM) pushForRange(loop ForRangeLoop) error {
	if len(v.forStack) >= v.maxForStack {
		return ErrForStackOverflow
	}
	v.forStack = append(v.forStack, loop)
	return nil
}

func (v *VM) topForRange() *ForRangeLoop {
	if len(v.forStack) == 0 {
		return nil
	}
	return &v.forStack[len(v.forStack)-1]
}

func (v *VM) popForRange() {
	if len(v.forStack) == 0 {
		return
	}
	v.forStack = v.forStack[:len(v.forStack)-1]
}

// --- live-object bookkeeping & scope destruction ------------------------

// trackLiveObject records an object-typed local/member variable that
// needs deterministic destruction at a future scope boundary or return.
func (v *VM) trackLiveObject(variableIndex, scopeNumber int) {
	v.liveObjects = append(v.liveObjects, LiveObjectInfo{
		FrameSP:       v.frameDepth,
		VariableIndex: variableIndex,
		ScopeNumber:   scopeNumber,
	})
}

// destructScope drops (LIFO) every live-object entry belonging to the
// current frame with scope_number >= targetScope.
func (v *VM) destructScope(targetScope int) {
	for len(v.liveObjects) > 0 {
		top := v.liveObjects[len(v.liveObjects)-1]
		if top.FrameSP != v.frameDepth || top.ScopeNumber < targetScope {
			break
		}
		v.atRef(v.bsp + top.VariableIndex).Reset()
		v.liveObjects = v.liveObjects[:len(v.liveObjects)-1]
	}
}

// destructFrame drops every live-object entry belonging to the current
// frame, regardless of scope number; called at Return/ReturnValue.
func (v *VM) destructFrame() {
	v.destructScope(0)
}

// --- construction helpers ------------------------------------------------

// newUserDefinedObject allocates a zero-valued UserDefinedObject for the
// given type id, used both by constructor calls and by deserialization.
func (v *VM) newUserDefinedObject(t TypeID) (*UserDefinedObject, error) {
	ut, ok := v.udtByID[t]
	if !ok {
		return nil, ErrUnknownType
	}
	return NewUserDefinedObject(v, t, ut), nil
}

// deserializeVariant rebuilds one tagged variant from buf, resolving the
// wire's type id through the built-in object constructors first and then
// through RegisterDeserializeConstructor registrations (user-defined
// types get one automatically from Load; template instantiations
// register their own). expectedType is the declared element/value type
// and serves only as documentation of intent at the call site; the wire
// tag written by serializeVariant is authoritative, so a slot holding an
// unassigned (Unknown) value round-trips as written. Used by the state
// library types and by container DeserializeFrom for nested objects.
func (v *VM) deserializeVariant(buf Buffer, expectedType TypeID) (Variant, error) {
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
		ctor := v.Types.DeserializeConstructorFor(t)
		if ctor == nil {
			return Variant{}, ErrUnknownType
		}
		obj = ctor(v)
	}
	if err := obj.DeserializeFrom(buf); err != nil {
		return Variant{}, err
	}
	return ConstructObject(t, obj), nil
}

// resolveString returns the interned String object for a string-pool index.
func (v *VM) resolveString(idx uint16) *StringObject {
	if int(idx) >= len(v.strings) {
		return NewStringObject("")
	}
	return v.strings[idx]
}
