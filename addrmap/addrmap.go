// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package addrmap describes the correspondence between WebAssembly function
// bodies and the native code generated for them.
package addrmap

import (
	"sort"

	"golang.org/x/xerrors"
)

// Mapping of a WebAssembly instruction to native code.  WasmOffset is relative
// to the start of the function body (the byte following the body size).
type Mapping struct {
	WasmOffset uint32
	NativeAddr uint64
}

// Func describes the native code of a WebAssembly function.  Offsets are in
// ascending WasmOffset order.
type Func struct {
	Index        uint32 // Function index space (including imports).
	NativeStart  uint64
	NativeLength uint32
	Offsets      []Mapping
}

// NativeEnd is the address following the function's native code.
func (f *Func) NativeEnd() uint64 {
	return f.NativeStart + uint64(f.NativeLength)
}

func (f *Func) contains(addr uint64) bool {
	return addr >= f.NativeStart && addr <= f.NativeEnd()
}

// Provider of function mappings, supplied by a code generator.
type Provider interface {
	// Func returns false if the function wasn't compiled.
	Func(index uint32) (*Func, bool)

	// Indexes of compiled functions in ascending order.
	Indexes() []uint32
}

// Map implements Provider.  It is sorted by function index.
type Map []Func

// NewMap sorts a copy of funcs by index.
func NewMap(funcs ...Func) Map {
	m := append(Map(nil), funcs...)
	sort.SliceStable(m, func(i, j int) bool { return m[i].Index < m[j].Index })
	return m
}

func (m Map) Func(index uint32) (*Func, bool) {
	i := sort.Search(len(m), func(i int) bool {
		return m[i].Index >= index
	})
	if i < len(m) && m[i].Index == index {
		return &m[i], true
	}
	return nil, false
}

func (m Map) Indexes() []uint32 {
	indexes := make([]uint32, len(m))
	for i := range m {
		indexes[i] = m[i].Index
	}
	return indexes
}

// Validate checks that functions are unique, offsets are in order, and every
// native address lies within its function's native code.
func (m Map) Validate() error {
	for i := range m {
		f := &m[i]

		if i > 0 && m[i-1].Index >= f.Index {
			return xerrors.Errorf("function %d: duplicate or unsorted index", f.Index)
		}

		for j, x := range f.Offsets {
			if j > 0 && x.WasmOffset < f.Offsets[j-1].WasmOffset {
				return xerrors.Errorf("function %d: offset 0x%x is out of order", f.Index, x.WasmOffset)
			}
			if !f.contains(x.NativeAddr) {
				return xerrors.Errorf("function %d: offset 0x%x maps to 0x%x outside native range [0x%x,0x%x]", f.Index, x.WasmOffset, x.NativeAddr, f.NativeStart, f.NativeEnd())
			}
		}
	}

	return nil
}
