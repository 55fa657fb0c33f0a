// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package engine

import (
	"bytes"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/probeum/contractvm/vm"
)

// Compiler is the external collaborator that turns source text into an
// Executable. The façade depends on this interface, not a concrete
// compiler package, so the core stays decoupled from the front end.
type Compiler interface {
	Compile(sources []string) (*vm.Executable, error)
}

// Module registers a host package's types and handler opcodes against
// the engine's shared registry and opcode table at construction time,
// the way stdlib/* packages plug into vm.TypeRegistry / vm.OpcodeTable
// in this repo.
type Module interface {
	Register(types *vm.TypeRegistry, opcodes *vm.OpcodeTable)
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithChargeLimit sets the default per-run charge limit (0 = unbounded).
func WithChargeLimit(limit uint64) Option {
	return func(e *Engine) { e.chargeLimit = limit }
}

// WithCompiler attaches the external compiler used by CreateExecutable.
func WithCompiler(c Compiler) Option {
	return func(e *Engine) { e.compiler = c }
}

// WithModules registers additional host modules (stdlib packages) beyond
// the built-in type/opcode tables.
func WithModules(mods ...Module) Option {
	return func(e *Engine) { e.modules = append(e.modules, mods...) }
}

// Engine owns named compiled executables and named state containers; it
// runs any (executable, entrypoint, state, parameters) tuple, guaranteeing
// stateful isolation between concurrent runs. A fresh
// vm.VM is constructed per Run so no operand/frame state leaks across
// runs, even against the same named state.
type Engine struct {
	mu sync.RWMutex

	types   *vm.TypeRegistry
	opcodes *vm.OpcodeTable
	modules []Module

	executables map[string]*vm.Executable
	states      map[string]*State

	compiler    Compiler
	chargeLimit uint64
	cache       *executableCache
}

// New constructs an Engine with a fresh shared type registry and opcode
// table, applying any modules and options given.
func New(opts ...Option) *Engine {
	e := &Engine{
		types:       vm.NewTypeRegistry(),
		opcodes:     vm.NewOpcodeTable(),
		executables: make(map[string]*vm.Executable),
		states:      make(map[string]*State),
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, m := range e.modules {
		m.Register(e.types, e.opcodes)
	}
	return e
}

// CreateExecutable compiles sources via the attached external compiler
// and stores the result under name. Recompiling an existing name is a
// BAD_EXECUTABLE error.
func (e *Engine) CreateExecutable(name string, sources []string) ExecutionResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.executables[name]; exists {
		return ExecutionResult{Status: errStatus(StageEngine, CodeBadExecutable, "executable already exists: "+name)}
	}
	if e.compiler == nil {
		return ExecutionResult{Status: errStatus(StageCompile, CodeCompilationError, "no compiler configured")}
	}
	if e.cache != nil {
		if cached, hit := e.cache.get(sources); hit {
			e.executables[name] = cached
			return ExecutionResult{Status: ok()}
		}
	}
	exec, err := e.compiler.Compile(sources)
	if err != nil {
		return ExecutionResult{Status: errStatus(StageCompile, CodeCompilationError, err.Error())}
	}
	if e.cache != nil {
		e.cache.put(sources, exec)
	}
	e.executables[name] = exec
	return ExecutionResult{Status: ok()}
}

// LoadExecutable stores a pre-built Executable under name directly,
// bypassing the compiler -- used by embedders (and this repo's own
// tests) that hand-assemble an Executable. Subject to the same
// "recompilation of an existing name is an error" rule as
// CreateExecutable.
func (e *Engine) LoadExecutable(name string, exec *vm.Executable) ExecutionResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.executables[name]; exists {
		return ExecutionResult{Status: errStatus(StageEngine, CodeBadExecutable, "executable already exists: "+name)}
	}
	e.executables[name] = exec
	return ExecutionResult{Status: ok()}
}

// DeleteExecutable removes a named executable. Absent name is
// BAD_EXECUTABLE.
func (e *Engine) DeleteExecutable(name string) ExecutionResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.executables[name]; !exists {
		return ExecutionResult{Status: errStatus(StageEngine, CodeBadExecutable, "no such executable: "+name)}
	}
	delete(e.executables, name)
	return ExecutionResult{Status: ok()}
}

// CreateState creates a new, empty named state container. Duplicate name
// is BAD_STATE.
func (e *Engine) CreateState(name string) ExecutionResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.states[name]; exists {
		return ExecutionResult{Status: errStatus(StageEngine, CodeBadState, "state already exists: "+name)}
	}
	e.states[name] = NewState()
	return ExecutionResult{Status: ok()}
}

// CopyState deep-copies src into a new state named dst. BAD_STATE if src
// is missing, BAD_DESTINATION if dst already exists. Subsequent
// mutations to dst must not be observable from src.
func (e *Engine) CopyState(src, dst string) ExecutionResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, srcExists := e.states[src]
	if !srcExists {
		return ExecutionResult{Status: errStatus(StageEngine, CodeBadState, "no such state: "+src)}
	}
	if _, exists := e.states[dst]; exists {
		return ExecutionResult{Status: errStatus(StageEngine, CodeBadDestination, "destination state already exists: "+dst)}
	}
	e.states[dst] = s.Copy()
	return ExecutionResult{Status: ok()}
}

// DeleteState removes a named state. Absent name is BAD_STATE.
func (e *Engine) DeleteState(name string) ExecutionResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.states[name]; !exists {
		return ExecutionResult{Status: errStatus(StageEngine, CodeBadState, "no such state: "+name)}
	}
	delete(e.states, name)
	return ExecutionResult{Status: ok()}
}

// RunOption configures a single Run call.
type RunOption func(*runConfig)

type runConfig struct {
	chargeLimit    uint64
	chargeLimitSet bool
	invoker        vm.ContractInvoker
}

// WithRunChargeLimit overrides the engine's default charge limit for a
// single run.
func WithRunChargeLimit(limit uint64) RunOption {
	return func(c *runConfig) { c.chargeLimit, c.chargeLimitSet = limit, true }
}

// WithContractInvoker attaches the synchronous host callback used by
// InvokeContractFunction for this run.
func WithContractInvoker(inv vm.ContractInvoker) RunOption {
	return func(c *runConfig) { c.invoker = inv }
}

// Run looks up execName and stateName, constructs a fresh vm.VM bound to
// the engine's shared type registry and opcode table, and invokes
// entrypoint with params. BAD_EXECUTABLE/BAD_STATE on lookup failure,
// RUNTIME_ERROR if the entrypoint is missing or parameters mismatch. The
// state object bound for the run is the engine-owned state: the VM
// mutates it in place, and a failed run's partial mutations are not
// rolled back -- callers wanting transactional semantics call
// CopyState first and run against the copy.
func (e *Engine) Run(execName, stateName, entrypoint string, params *vm.ParameterPack, opts ...RunOption) ExecutionResult {
	e.mu.RLock()
	exec, okExec := e.executables[execName]
	state, okState := e.states[stateName]
	e.mu.RUnlock()

	if !okExec {
		return ExecutionResult{Status: errStatus(StageEngine, CodeBadExecutable, "no such executable: "+execName)}
	}
	if !okState {
		return ExecutionResult{Status: errStatus(StageEngine, CodeBadState, "no such state: "+stateName)}
	}

	cfg := runConfig{chargeLimit: e.chargeLimit}
	for _, opt := range opts {
		opt(&cfg)
	}

	runID := NewRunID()
	machine := vm.New(e.types, e.opcodes, cfg.chargeLimit)
	var stdout bytes.Buffer
	machine.AttachOutputDevice(vm.StdoutDevice, &stdout)
	defer machine.DetachOutputDevice(vm.StdoutDevice)
	machine.Observer = state
	if cfg.invoker != nil {
		machine.Invoker = cfg.invoker
	}

	if err := machine.Load(exec); err != nil {
		return ExecutionResult{
			Status: errStatus(StageEngine, CodeBadExecutable, err.Error()),
			RunID:  runID,
		}
	}
	defer machine.Unload()

	out, err := machine.Run(entrypoint, params)
	total := machine.ChargeTotal()
	if err != nil {
		// Parameter-checking and entrypoint lookup fail before any
		// bytecode runs, so they surface at stage ENGINE, distinct from a
		// mid-execution RunError at stage RUNNING.
		stage := StageRunning
		var runErr *vm.RunError
		if !errors.As(err, &runErr) && (errors.Is(err, vm.ErrMismatchedParameters) || errors.Is(err, vm.ErrTypeMismatch) ||
			errors.Is(err, vm.ErrEntrypointNotFound) || errors.Is(err, vm.ErrNotLoaded)) {
			stage = StageEngine
		}
		return ExecutionResult{
			Status:      errStatus(stage, CodeRuntimeError, err.Error()),
			Stdout:      stdout.String(),
			ChargeTotal: total,
			RunID:       runID,
		}
	}
	return ExecutionResult{
		Output:      out,
		Status:      ok(),
		Stdout:      stdout.String(),
		ChargeTotal: total,
		RunID:       runID,
	}
}

// NewRunID mints the opaque identifier Run attaches to each
// ExecutionResult for log correlation.
func NewRunID() string {
	return uuid.NewString()
}
