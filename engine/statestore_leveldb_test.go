// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/probeum/contractvm/vm"
)

func TestLevelDBStateReadWriteExists(t *testing.T) {
	s, err := OpenLevelDBState("", "acct")
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, vm.ObserverError, s.Exists("balance"))
	_, status := s.Read("balance")
	require.Equal(t, vm.ObserverPermissionDenied, status)

	require.Equal(t, vm.ObserverOK, s.Write("balance", []byte{1, 2, 3}))
	require.Equal(t, vm.ObserverOK, s.Exists("balance"))

	data, status := s.Read("balance")
	require.Equal(t, vm.ObserverOK, status)
	require.Equal(t, []byte{1, 2, 3}, data)
}

func TestLevelDBStateCopyIsolation(t *testing.T) {
	src, err := OpenLevelDBState("", "A")
	if err != nil {
		t.Fatalf("OpenLevelDBState: %v", err)
	}
	defer src.Close()

	if status := src.Write("tick", []byte{0}); status != vm.ObserverOK {
		t.Fatalf("Write = %v", status)
	}
	dst, err := src.Copy("B")
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if status := dst.Write("tick", []byte{1}); status != vm.ObserverOK {
		t.Fatalf("Write on dst = %v", status)
	}

	srcData, _ := src.Read("tick")
	if len(srcData) != 1 || srcData[0] != 0 {
		t.Fatalf("src mutated by dst write: got %v, want [0]", srcData)
	}
	dstData, _ := dst.Read("tick")
	if len(dstData) != 1 || dstData[0] != 1 {
		t.Fatalf("dst = %v, want [1]", dstData)
	}
}
