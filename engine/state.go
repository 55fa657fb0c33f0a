// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package engine

import (
	"sync"

	"github.com/probeum/contractvm/vm"
)

// State is the engine-owned persistent key->bytes container bound to a
// run. It implements vm.StateObserver
// directly so the façade can hand it straight to a fresh vm.VM without
// an adapter. Keys are tracked in insertion order so Copy produces a
// reproducible key ordering.
type State struct {
	mu     sync.Mutex
	data   map[string][]byte
	order  []string
}

// NewState returns an empty state container.
func NewState() *State {
	return &State{data: make(map[string][]byte)}
}

// Read implements vm.StateObserver. A missing key is reported as
// PermissionDenied, which the state library wrappers treat as "key not
// present".
func (s *State) Read(key string) ([]byte, vm.ObserverStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, vm.ObserverPermissionDenied
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, vm.ObserverOK
}

// Write implements vm.StateObserver.
func (s *State) Write(key string, data []byte) vm.ObserverStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; !exists {
		s.order = append(s.order, key)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.data[key] = cp
	return vm.ObserverOK
}

// Exists implements vm.StateObserver.
func (s *State) Exists(key string) vm.ObserverStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return vm.ObserverOK
	}
	return vm.ObserverError
}

// Copy returns a deep copy of s: mutations to the copy must not reflect
// in s and vice versa.
func (s *State) Copy() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := &State{
		data:  make(map[string][]byte, len(s.data)),
		order: append([]string(nil), s.order...),
	}
	for k, v := range s.data {
		buf := make([]byte, len(v))
		copy(buf, v)
		cp.data[k] = buf
	}
	return cp
}

// Keys returns the tracked insertion-order key list; used by tests and
// diagnostics, not by the VM.
func (s *State) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}
