// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package engine implements the execution engine façade: it owns named
// compiled executables and named persistent state containers and runs
// any (executable, entrypoint, state, parameters) tuple, guaranteeing
// stateful isolation between concurrent runs.
package engine

import "github.com/probeum/contractvm/vm"

// Stage names the phase of the pipeline a result's status pertains to.
// Stage and Code values are stable strings a host may log.
type Stage string

const (
	StageCompile Stage = "COMPILE"
	StageEngine  Stage = "ENGINE"
	StageRunning Stage = "RUNNING"
)

// Code is the stable result code a host may log
type Code string

const (
	CodeSuccess           Code = "SUCCESS"
	CodeCompilationError  Code = "COMPILATION_ERROR"
	CodeRuntimeError      Code = "RUNTIME_ERROR"
	CodeSerializationError Code = "SERIALIZATION_ERROR"
	CodeBadExecutable     Code = "BAD_EXECUTABLE"
	CodeBadState          Code = "BAD_STATE"
	CodeBadDestination    Code = "BAD_DESTINATION"
)

// Status is the (stage, code, message) triple every engine operation
// reports, shared between the engine and the VM so callers see one
// uniform result shape.
type Status struct {
	Stage   Stage
	Code    Code
	Message string
}

func ok() Status { return Status{Stage: StageRunning, Code: CodeSuccess} }

func errStatus(stage Stage, code Code, msg string) Status {
	return Status{Stage: stage, Code: code, Message: msg}
}

// ExecutionResult is returned by every façade operation. Output and
// ChargeTotal are only meaningful for Run; ChargeTotal is reported back
// to the host after every run, succeeded or failed. RunID is an opaque
// identifier minted per Run for log correlation; lifecycle operations
// leave it empty.
type ExecutionResult struct {
	Output      vm.Variant
	Status      Status
	Stdout      string
	ChargeTotal uint64
	RunID       string
}

func (r ExecutionResult) Success() bool { return r.Status.Code == CodeSuccess }
