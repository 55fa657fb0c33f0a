// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package engine

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/probeum/contractvm/vm"
)

// LevelDBState is a vm.StateObserver backed by a goleveldb database,
// opened against storage.NewMemStorage or an on-disk path. Unlike the
// plain in-memory State, it survives process restarts when opened
// against a directory path.
//
// Every key this engine writes is namespaced under a per-state prefix so
// a single LevelDB handle can back many named states without collision.
type LevelDBState struct {
	db     *leveldb.DB
	prefix string
}

// OpenLevelDBState opens (creating if absent) a goleveldb database at
// path and returns a state namespaced under name. path == "" opens an
// in-memory database, useful for tests that want LevelDB's exact byte
// encoding without touching disk.
func OpenLevelDBState(path, name string) (*LevelDBState, error) {
	var (
		db  *leveldb.DB
		err error
	)
	if path == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, err
	}
	return &LevelDBState{db: db, prefix: name + "/"}, nil
}

func (s *LevelDBState) namespaced(key string) []byte {
	return append([]byte(s.prefix), key...)
}

// Read implements vm.StateObserver.
func (s *LevelDBState) Read(key string) ([]byte, vm.ObserverStatus) {
	data, err := s.db.Get(s.namespaced(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, vm.ObserverPermissionDenied
	}
	if err != nil {
		return nil, vm.ObserverError
	}
	return data, vm.ObserverOK
}

// Write implements vm.StateObserver.
func (s *LevelDBState) Write(key string, data []byte) vm.ObserverStatus {
	if err := s.db.Put(s.namespaced(key), data, nil); err != nil {
		return vm.ObserverError
	}
	return vm.ObserverOK
}

// Exists implements vm.StateObserver.
func (s *LevelDBState) Exists(key string) vm.ObserverStatus {
	ok, err := s.db.Has(s.namespaced(key), nil)
	if err != nil || !ok {
		return vm.ObserverError
	}
	return vm.ObserverOK
}

// Copy deep-copies every key under s's prefix into a state namespaced
// under dstName sharing the same underlying database handle, satisfying
// the same "mutations to dst must not reflect in src" property as
// State.Copy without needing a
// second database.
func (s *LevelDBState) Copy(dstName string) (*LevelDBState, error) {
	dst := &LevelDBState{db: s.db, prefix: dstName + "/"}
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()
	batch := new(leveldb.Batch)
	for iter.Next() {
		key := iter.Key()
		if len(key) < len(s.prefix) || string(key[:len(s.prefix)]) != s.prefix {
			continue
		}
		suffix := key[len(s.prefix):]
		val := append([]byte(nil), iter.Value()...)
		batch.Put(append([]byte(dst.prefix), suffix...), val)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	if err := s.db.Write(batch, nil); err != nil {
		return nil, err
	}
	return dst, nil
}

// Close releases the underlying database handle.
func (s *LevelDBState) Close() error {
	return s.db.Close()
}
