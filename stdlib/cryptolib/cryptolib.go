// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package cryptolib exposes hash, ECDSA-recovery and post-quantum
// signature primitives to guest programs as handler opcodes registered
// against a vm.OpcodeTable: x/crypto/sha3 for hashing, btcec for
// secp256k1 recovery, and circl for the PQC verifiers.
package cryptolib

import (
	"golang.org/x/crypto/sha3"

	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/cloudflare/circl/sign/dilithium/mode2"
	"github.com/cloudflare/circl/sign/schemes"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/probeum/contractvm/vm"
)

// slhdsaScheme is resolved once via circl's generic Scheme registry
// (sign/schemes.ByName) rather than a mode-specific sub-package.
var slhdsaScheme = schemes.ByName("SLH-DSA-SHA2-128s")

// Module registers the Buffer byte-string object type and five handler
// opcodes: hash, variable-length hash, ECDSA public-key recovery, and two
// post-quantum signature verifiers. Every opcode operates on
// vm.BufferObject operands -- the guest-visible byte-string type -- and
// is grounded on the VM's handler-opcode contract: pop
// operands in reverse push order, push exactly one result, never touch
// frames directly.
type Module struct {
	bufferType TypeID

	Sha3_256Op         vm.Opcode
	Shake256Op         vm.Opcode
	Secp256k1RecoverOp vm.Opcode
	DilithiumVerifyOp  vm.Opcode
	SLHDSAVerifyOp     vm.Opcode
}

// TypeID is a local alias kept for readability in this file; it is
// exactly vm.TypeID.
type TypeID = vm.TypeID

func New() *Module { return &Module{} }

func (m *Module) Register(types *vm.TypeRegistry, opcodes *vm.OpcodeTable) {
	m.bufferType = types.RegisterType("Buffer", vm.KindObject, 0, nil)
	types.RegisterDeserializeConstructor(m.bufferType, func(v *vm.VM) vm.Object {
		return vm.NewBufferObject(m.bufferType, nil)
	})

	m.Sha3_256Op = opcodes.RegisterHandlerOpcode("crypto.sha3_256", m.handleSha3_256, 10)
	m.Shake256Op = opcodes.RegisterHandlerOpcode("crypto.shake256", m.handleShake256, 10)
	m.Secp256k1RecoverOp = opcodes.RegisterHandlerOpcode("crypto.secp256k1_recover", m.handleSecp256k1Recover, 50)
	m.DilithiumVerifyOp = opcodes.RegisterHandlerOpcode("crypto.dilithium_verify", m.handleDilithiumVerify, 200)
	m.SLHDSAVerifyOp = opcodes.RegisterHandlerOpcode("crypto.slhdsa_verify", m.handleSLHDSAVerify, 400)
}

func (m *Module) buffer(data []byte) vm.Variant {
	return vm.ConstructObject(m.bufferType, vm.NewBufferObject(m.bufferType, data))
}

func bufferBytes(val vm.Variant) ([]byte, error) {
	b, ok := val.Object().(*vm.BufferObject)
	if val.IsNull() || !ok {
		return nil, vm.ErrTypeMismatch
	}
	return b.Data, nil
}

func boolVariant(b bool) vm.Variant {
	var word uint64
	if b {
		word = 1
	}
	return vm.ConstructPrimitive(vm.TypeBool, vm.Primitive(word))
}

// handleSha3_256 pops one Buffer and pushes its 32-byte SHA3-256 digest,
// also as a Buffer (not an Address -- the digest is not necessarily an
// identity, and forcing the width match would conflate two concepts that
// only happen to share a length).
func (m *Module) handleSha3_256(v *vm.VM, _ vm.Instruction) error {
	arg, err := v.Pop()
	if err != nil {
		return err
	}
	data, err := bufferBytes(arg)
	if err != nil {
		return err
	}
	digest := sha3.Sum256(data)
	return v.Push(m.buffer(digest[:]))
}

// handleShake256 pops (outputLength Int32, data Buffer) and pushes an
// outputLength-byte SHAKE256 digest.
func (m *Module) handleShake256(v *vm.VM, _ vm.Instruction) error {
	outLenArg, err := v.Pop()
	if err != nil {
		return err
	}
	dataArg, err := v.Pop()
	if err != nil {
		return err
	}
	data, err := bufferBytes(dataArg)
	if err != nil {
		return err
	}
	outLen := int(outLenArg.Primitive().AsInt64())
	if outLen < 0 {
		return vm.ErrNegativeIndex
	}
	out := make([]byte, outLen)
	sha3.ShakeSum256(out, data)
	return v.Push(m.buffer(out))
}

// handleSecp256k1Recover pops (signature Buffer [65 bytes, recovery id in
// the first byte], digest Buffer [32 bytes]) and pushes the recovered
// public key's uncompressed-encoding Buffer.
func (m *Module) handleSecp256k1Recover(v *vm.VM, _ vm.Instruction) error {
	sigArg, err := v.Pop()
	if err != nil {
		return err
	}
	digestArg, err := v.Pop()
	if err != nil {
		return err
	}
	sig, err := bufferBytes(sigArg)
	if err != nil {
		return err
	}
	digest, err := bufferBytes(digestArg)
	if err != nil {
		return err
	}
	pub, _, err := btcecdsa.RecoverCompact(sig, digest)
	if err != nil {
		return vm.ErrOperatorNotImplemented
	}
	return v.Push(m.buffer(pub.SerializeUncompressed()))
}

// ValidatePublicKey reports whether data is a well-formed secp256k1
// public key encoding, using the decred secp256k1 package directly
// (rather than through btcec's re-export) for the parse step; btcec/v2
// is built on top of this package, so this is the same validation it
// performs internally.
func ValidatePublicKey(data []byte) bool {
	_, err := secp256k1.ParsePubKey(data)
	return err == nil
}

// handleDilithiumVerify pops (pubkey Buffer, signature Buffer, message
// Buffer) and pushes a Bool via mode2.Verify.
func (m *Module) handleDilithiumVerify(v *vm.VM, _ vm.Instruction) error {
	pubArg, err := v.Pop()
	if err != nil {
		return err
	}
	sigArg, err := v.Pop()
	if err != nil {
		return err
	}
	msgArg, err := v.Pop()
	if err != nil {
		return err
	}
	pubBytes, err := bufferBytes(pubArg)
	if err != nil {
		return err
	}
	sig, err := bufferBytes(sigArg)
	if err != nil {
		return err
	}
	msg, err := bufferBytes(msgArg)
	if err != nil {
		return err
	}
	if len(pubBytes) != mode2.PublicKeySize || len(sig) != mode2.SignatureSize {
		return v.Push(boolVariant(false))
	}
	var buf [mode2.PublicKeySize]byte
	copy(buf[:], pubBytes)
	pk := new(mode2.PublicKey)
	pk.Unpack(&buf)
	return v.Push(boolVariant(mode2.Verify(pk, msg, sig)))
}

// handleSLHDSAVerify pops (pubkey Buffer, signature Buffer, message
// Buffer) and pushes a Bool via circl's generic sign.Scheme interface
// (resolved once as slhdsaScheme).
func (m *Module) handleSLHDSAVerify(v *vm.VM, _ vm.Instruction) error {
	pubArg, err := v.Pop()
	if err != nil {
		return err
	}
	sigArg, err := v.Pop()
	if err != nil {
		return err
	}
	msgArg, err := v.Pop()
	if err != nil {
		return err
	}
	pubBytes, err := bufferBytes(pubArg)
	if err != nil {
		return err
	}
	sig, err := bufferBytes(sigArg)
	if err != nil {
		return err
	}
	msg, err := bufferBytes(msgArg)
	if err != nil {
		return err
	}
	if slhdsaScheme == nil {
		return v.Push(boolVariant(false))
	}
	pk, err := slhdsaScheme.UnmarshalBinaryPublicKey(pubBytes)
	if err != nil {
		return v.Push(boolVariant(false))
	}
	return v.Push(boolVariant(slhdsaScheme.Verify(pk, msg, sig, nil)))
}
