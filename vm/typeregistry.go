// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

// TypeKind classifies a registered TypeInfo entry.
type TypeKind int

const (
	KindPrimitive TypeKind = iota
	KindObject
	KindTemplateInstantiation
	KindUserDefined
)

// DeserializeConstructor rebuilds an object of the owning type from a
// serialized buffer (see Object.DeserializeFrom). CopyConstructor builds a
// fresh owning object from a host-side value during parameter marshalling.
type DeserializeConstructor func(v *VM) Object
type CopyConstructor func(v *VM, host interface{}) (Object, error)

// TypeInfo describes one registered type: its printable name, its kind,
// the template parent (if it is a template instantiation) and template
// parameters, and the function IDs of any operator/method handlers
// attached to it by the module system.
type TypeInfo struct {
	ID             TypeID
	Name           string
	Kind           TypeKind
	TemplateParent TypeID
	TemplateParams []TypeID
	HandlerFnIDs   []int

	deserialize DeserializeConstructor
	copyCtor    CopyConstructor
}

// TypeRegistry maps type IDs <-> names <-> descriptors, indexed by a
// dense array keyed by the small integer ID, the same shape as the
// opcode table.
type TypeRegistry struct {
	infos   []TypeInfo // index 0 unused-ish; infos[id] is valid when id < len and infos[id].Name != ""
	byName  map[string]TypeID
	nextID  TypeID
}

// NewTypeRegistry returns a registry pre-seeded with entries for every
// built-in primitive type ID.
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{
		infos:  make([]TypeInfo, TypeFixed128+1),
		byName: make(map[string]TypeID),
		nextID: TypeFixed128 + 1,
	}
	builtinNames := map[TypeID]string{
		TypeUnknown:  "Unknown",
		TypeNull:     "Null",
		TypeVoid:     "Void",
		TypeBool:     "Bool",
		TypeInt8:     "Int8",
		TypeUint8:    "UInt8",
		TypeInt16:    "Int16",
		TypeUint16:   "UInt16",
		TypeInt32:    "Int32",
		TypeUint32:   "UInt32",
		TypeInt64:    "Int64",
		TypeUint64:   "UInt64",
		TypeFloat32:  "Float32",
		TypeFloat64:  "Float64",
		TypeFixed32:  "Fixed32",
		TypeFixed64:  "Fixed64",
		TypeString:   "String",
		TypeAddress:  "Address",
		TypeFixed128: "Fixed128",
	}
	for id, name := range builtinNames {
		r.infos[id] = TypeInfo{ID: id, Name: name, Kind: KindPrimitive}
		r.byName[name] = id
	}
	// String/Address/Fixed128 are reserved-range built-ins with object
	// storage: they sit above PrimitiveMaxId and their registry kind says
	// so.
	for _, id := range []TypeID{TypeString, TypeAddress, TypeFixed128} {
		info := r.infos[id]
		info.Kind = KindObject
		r.infos[id] = info
	}
	return r
}

// RegisterType allocates a fresh type ID above the reserved built-in
// range and any prior registrations. Duplicate names are a programmer
// error and panic at startup rather than surfacing at runtime.
func (r *TypeRegistry) RegisterType(name string, kind TypeKind, templateParent TypeID, templateParams []TypeID) TypeID {
	if _, exists := r.byName[name]; exists {
		panic(ErrDuplicateType.Error() + ": " + name)
	}
	id := r.nextID
	r.nextID++
	info := TypeInfo{
		ID:             id,
		Name:           name,
		Kind:           kind,
		TemplateParent: templateParent,
		TemplateParams: templateParams,
	}
	r.infos = append(r.infos, info)
	r.byName[name] = id
	return id
}

// RegisterDeserializeConstructor attaches the hook the VM uses to rebuild
// an object of type id from serialized bytes. Template instantiations
// that don't register their own inherit the parent's.
func (r *TypeRegistry) RegisterDeserializeConstructor(id TypeID, fn DeserializeConstructor) {
	r.mustInfo(id).deserialize = fn
}

// RegisterCopyConstructor attaches the hook used to copy-construct an
// owning object from an opted-in host-side value during marshalling.
func (r *TypeRegistry) RegisterCopyConstructor(id TypeID, fn CopyConstructor) {
	r.mustInfo(id).copyCtor = fn
}

func (r *TypeRegistry) mustInfo(id TypeID) *TypeInfo {
	if int(id) >= len(r.infos) {
		panic(ErrUnknownType.Error())
	}
	return &r.infos[id]
}

// UnregisterType removes a previously-registered type's name entry so its
// name can be reused by a subsequent load. Used by VM.Unload to reverse
// the type-table append from Load.
func (r *TypeRegistry) UnregisterType(id TypeID) {
	if int(id) >= len(r.infos) {
		return
	}
	name := r.infos[id].Name
	delete(r.byName, name)
	r.infos[id] = TypeInfo{}
}

// GetTypeID looks up a previously registered type by name.
func (r *TypeRegistry) GetTypeID(name string) (TypeID, bool) {
	id, ok := r.byName[name]
	return id, ok
}

// GetTypeInfo returns the TypeInfo for id, or an error if unregistered.
func (r *TypeRegistry) GetTypeInfo(id TypeID) (TypeInfo, error) {
	if int(id) >= len(r.infos) || (r.infos[id].Name == "" && id != TypeUnknown) {
		return TypeInfo{}, ErrUnknownType
	}
	return r.infos[id], nil
}

// DeserializeConstructorFor walks up the template-parent chain to find an
// inherited deserialize constructor when id itself registered none.
func (r *TypeRegistry) DeserializeConstructorFor(id TypeID) DeserializeConstructor {
	for int(id) < len(r.infos) {
		info := r.infos[id]
		if info.deserialize != nil {
			return info.deserialize
		}
		if info.TemplateParent == TypeUnknown || info.TemplateParent == id {
			break
		}
		id = info.TemplateParent
	}
	return nil
}

// CopyConstructorFor returns the registered copy constructor for id, if any.
func (r *TypeRegistry) CopyConstructorFor(id TypeID) CopyConstructor {
	if int(id) >= len(r.infos) {
		return nil
	}
	return r.infos[id].copyCtor
}
