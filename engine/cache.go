// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/probeum/contractvm/vm"
)

// executableCache memoizes compiled executables by source-hash, so
// the expensive recomputation -- a full Compiler.Compile call -- is
// skipped for sources already seen. CreateExecutable consults the cache
// before invoking the compiler and populates it after a successful
// compile.
type executableCache struct {
	mu    sync.Mutex
	cache *lru.Cache
}

// newExecutableCache builds a bounded LRU cache of compiled executables.
// size <= 0 disables caching (entries are never looked up or stored).
func newExecutableCache(size int) *executableCache {
	if size <= 0 {
		return &executableCache{}
	}
	c, err := lru.New(size)
	if err != nil {
		// Only returned for a non-positive size, already excluded above.
		panic(err)
	}
	return &executableCache{cache: c}
}

// key hashes the source text only, so the same sources stored under a
// fresh name still hit the cache.
func (c *executableCache) key(sources []string) string {
	h := sha256.New()
	for _, s := range sources {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *executableCache) get(sources []string) (*vm.Executable, bool) {
	if c.cache == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.cache.Get(c.key(sources))
	if !ok {
		return nil, false
	}
	return v.(*vm.Executable), true
}

func (c *executableCache) put(sources []string, exec *vm.Executable) {
	if c.cache == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(c.key(sources), exec)
}

// WithExecutableCache enables a bounded LRU cache of compiled executables
// keyed by source text, so re-creating an executable with
// identical sources under a fresh name skips a redundant Compiler.Compile
// call. size must be positive.
func WithExecutableCache(size int) Option {
	return func(e *Engine) { e.cache = newExecutableCache(size) }
}
