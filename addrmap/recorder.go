// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package addrmap

// Recorder gathers a Map from a code generator's callbacks.  Functions must
// be put in index order, one at a time: PutFuncAddr, any number of
// PutInsnAddr calls, and PutFuncEnd.
type Recorder struct {
	Map Map

	next    uint32
	current int
}

func (r *Recorder) InitObjectMap(numImportFuncs, numOtherFuncs int) {
	r.Map = make(Map, 0, numOtherFuncs)
	r.next = uint32(numImportFuncs)
	r.current = -1
}

// PutFuncAddr starts the next function.
func (r *Recorder) PutFuncAddr(addr uint64) {
	r.Map = append(r.Map, Func{
		Index:       r.next,
		NativeStart: addr,
	})
	r.next++
	r.current = len(r.Map) - 1
}

// PutInsnAddr maps a body-relative WebAssembly offset to the native address
// of the instruction generated for it.  Consecutive offsets may share an
// address if no machine code was generated in between; each of them stays
// exactly mapped.
func (r *Recorder) PutInsnAddr(wasmOffset uint32, addr uint64) {
	f := &r.Map[r.current]
	f.Offsets = append(f.Offsets, Mapping{wasmOffset, addr})
}

// PutFuncEnd finishes the current function.
func (r *Recorder) PutFuncEnd(addr uint64) {
	f := &r.Map[r.current]
	f.NativeLength = uint32(addr - f.NativeStart)
	r.current = -1
}
