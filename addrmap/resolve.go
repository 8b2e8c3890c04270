// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package addrmap

import (
	"sort"

	"golang.org/x/xerrors"
)

// Kind of resolution.
type Kind uint8

const (
	NoCode  Kind = iota // Offset has no native code.
	Exact               // Offset is mapped.
	Inexact             // Offset falls between mappings.
)

func (k Kind) String() string {
	switch k {
	case NoCode:
		return "no code"
	case Exact:
		return "exact"
	case Inexact:
		return "inexact"
	default:
		return "invalid"
	}
}

// Body is a function body's position in the code section payload.  End is
// exclusive.
type Body struct {
	Start uint32
	End   uint32
}

// Location is a resolved offset.  Addr and Func are zero if Kind is NoCode.
type Location struct {
	Addr uint64
	Kind Kind
	Func uint32 // Owning function index.
}

// Resolver translates code section offsets (the WebAssembly DWARF address
// space) to native addresses.  It is safe for concurrent use.
type Resolver struct {
	bodies     []Body
	numImports uint32
	funcs      Provider
}

// NewResolver for a module's function bodies, which must be in ascending
// order.  Body i belongs to function numImportFuncs+i.
func NewResolver(bodies []Body, numImportFuncs uint32, funcs Provider) *Resolver {
	return &Resolver{bodies, numImportFuncs, funcs}
}

// Owner finds the function body which contains the offset.
func (r *Resolver) Owner(offset uint64) (index uint32, body Body, found bool) {
	i := sort.Search(len(r.bodies), func(i int) bool {
		return uint64(r.bodies[i].End) > offset
	})
	if i < len(r.bodies) && uint64(r.bodies[i].Start) <= offset {
		return r.numImports + uint32(i), r.bodies[i], true
	}
	return
}

// endOwner finds the function body which contains or ends at the offset.
func (r *Resolver) endOwner(offset uint64) (index uint32, body Body, found bool) {
	i := sort.Search(len(r.bodies), func(i int) bool {
		return uint64(r.bodies[i].End) >= offset
	})
	if i < len(r.bodies) && uint64(r.bodies[i].Start) <= offset {
		return r.numImports + uint32(i), r.bodies[i], true
	}
	return
}

// Func looks up a compiled function with native code.
func (r *Resolver) Func(index uint32) (*Func, bool) {
	f, found := r.funcs.Func(index)
	if !found || f.NativeLength == 0 {
		return nil, false
	}
	return f, true
}

func (r *Resolver) lookup(index uint32, body Body) (*Func, error) {
	f, found := r.Func(index)
	if !found {
		return nil, nil
	}

	if n := len(f.Offsets); n > 0 && f.Offsets[n-1].WasmOffset > body.End-body.Start {
		return nil, xerrors.Errorf("function %d: offset 0x%x exceeds body length 0x%x", index, f.Offsets[n-1].WasmOffset, body.End-body.Start)
	}

	return f, nil
}

func checkAddr(f *Func, x Mapping) (uint64, error) {
	if !f.contains(x.NativeAddr) {
		return 0, xerrors.Errorf("function %d: offset 0x%x maps to 0x%x outside native range [0x%x,0x%x]", f.Index, x.WasmOffset, x.NativeAddr, f.NativeStart, f.NativeEnd())
	}
	return x.NativeAddr, nil
}

// Resolve a start offset.  An offset between mappings resolves to the nearest
// lower mapping; an offset before the first mapping resolves to the start of
// the function.  Both are inexact.
func (r *Resolver) Resolve(offset uint64) (loc Location, err error) {
	index, body, found := r.Owner(offset)
	if !found {
		return
	}

	f, err := r.lookup(index, body)
	if f == nil {
		return
	}

	rel := uint32(offset - uint64(body.Start))
	m := f.Offsets

	i := sort.Search(len(m), func(i int) bool {
		return m[i].WasmOffset > rel
	})
	if i == 0 {
		loc = Location{f.NativeStart, Inexact, index}
		return
	}

	lower := m[i-1].WasmOffset
	i = sort.Search(i, func(i int) bool {
		return m[i].WasmOffset >= lower
	})

	addr, err := checkAddr(f, m[i])
	if err != nil {
		return
	}

	kind := Inexact
	if lower == rel {
		kind = Exact
	}

	loc = Location{addr, kind, index}
	return
}

// ResolveEnd resolves an exclusive end offset.  The end of a body resolves to
// the end of the function's native code.  An offset between mappings resolves
// to the nearest upper mapping, or to the end of the native code if there is
// none.
func (r *Resolver) ResolveEnd(offset uint64) (loc Location, err error) {
	index, body, found := r.endOwner(offset)
	if !found {
		return
	}

	f, err := r.lookup(index, body)
	if f == nil {
		return
	}

	if offset == uint64(body.End) {
		loc = Location{f.NativeEnd(), Exact, index}
		return
	}

	rel := uint32(offset - uint64(body.Start))
	m := f.Offsets

	i := sort.Search(len(m), func(i int) bool {
		return m[i].WasmOffset >= rel
	})
	if i == len(m) {
		loc = Location{f.NativeEnd(), Inexact, index}
		return
	}

	addr, err := checkAddr(f, m[i])
	if err != nil {
		return
	}

	kind := Inexact
	if m[i].WasmOffset == rel {
		kind = Exact
	}

	loc = Location{addr, kind, index}
	return
}

// ResolveRange translates the half-open range [low, high) into the smallest
// native range which covers the native code of every function body it
// intersects.  False is returned if no native code is covered.
func (r *Resolver) ResolveRange(low, high uint64) (nativeLow, nativeHigh uint64, ok bool, err error) {
	if high <= low {
		return
	}

	i := sort.Search(len(r.bodies), func(i int) bool {
		return uint64(r.bodies[i].End) > low
	})

	for ; i < len(r.bodies) && uint64(r.bodies[i].Start) < high; i++ {
		body := r.bodies[i]
		index := r.numImports + uint32(i)

		var f *Func
		f, err = r.lookup(index, body)
		if err != nil {
			return
		}
		if f == nil {
			continue
		}

		lo := f.NativeStart
		if low > uint64(body.Start) {
			var loc Location
			if loc, err = r.Resolve(low); err != nil {
				return
			}
			lo = loc.Addr
		}

		hi := f.NativeEnd()
		if high < uint64(body.End) {
			var loc Location
			if loc, err = r.ResolveEnd(high); err != nil {
				return
			}
			hi = loc.Addr
		}

		if hi < lo {
			hi = lo
		}

		if !ok || lo < nativeLow {
			nativeLow = lo
		}
		if !ok || hi > nativeHigh {
			nativeHigh = hi
		}
		ok = true
	}

	return
}
