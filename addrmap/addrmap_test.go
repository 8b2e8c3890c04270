// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package addrmap

import (
	"reflect"
	"testing"
)

// Function 0 has a 7-byte body at code offset 2; function 1 has a 2-byte body
// at offset 10 but is not compiled.
var (
	testBodies = []Body{{2, 9}, {10, 12}}

	testMap = NewMap(Func{
		Index:        0,
		NativeStart:  0x1000,
		NativeLength: 0x20,
		Offsets: []Mapping{
			{0, 0x1000},
			{2, 0x1004},
			{5, 0x100c},
		},
	})
)

func TestResolve(t *testing.T) {
	r := NewResolver(testBodies, 0, testMap)

	for _, c := range []struct {
		offset uint64
		loc    Location
	}{
		{2, Location{0x1000, Exact, 0}},
		{3, Location{0x1000, Inexact, 0}},
		{4, Location{0x1004, Exact, 0}},
		{6, Location{0x1004, Inexact, 0}},
		{7, Location{0x100c, Exact, 0}},
		{8, Location{0x100c, Inexact, 0}},
		{0, Location{}},
		{1, Location{}},
		{9, Location{}},
		{10, Location{}},
		{11, Location{}},
		{0xffffffff, Location{}},
	} {
		loc, err := r.Resolve(c.offset)
		if err != nil {
			t.Errorf("0x%x: %v", c.offset, err)
		} else if loc != c.loc {
			t.Errorf("0x%x: %#v (%v)", c.offset, loc, loc.Kind)
		}
	}
}

func TestResolveEnd(t *testing.T) {
	r := NewResolver(testBodies, 0, testMap)

	for _, c := range []struct {
		offset uint64
		loc    Location
	}{
		{9, Location{0x1020, Exact, 0}},
		{4, Location{0x1004, Exact, 0}},
		{5, Location{0x100c, Inexact, 0}},
		{8, Location{0x1020, Inexact, 0}},
		{12, Location{}},
		{100, Location{}},
	} {
		loc, err := r.ResolveEnd(c.offset)
		if err != nil {
			t.Errorf("0x%x: %v", c.offset, err)
		} else if loc != c.loc {
			t.Errorf("0x%x: %#v", c.offset, loc)
		}
	}
}

func TestResolveRange(t *testing.T) {
	r := NewResolver(testBodies, 0, testMap)

	for _, c := range []struct {
		low, high uint64
		nativeLow uint64
		nativeHi  uint64
		ok        bool
	}{
		{2, 9, 0x1000, 0x1020, true},
		{4, 7, 0x1004, 0x100c, true},
		{0, 100, 0x1000, 0x1020, true},
		{3, 12, 0x1000, 0x1020, true},
		{10, 12, 0, 0, false},
		{5, 5, 0, 0, false},
		{9, 10, 0, 0, false},
	} {
		lo, hi, ok, err := r.ResolveRange(c.low, c.high)
		if err != nil {
			t.Errorf("[0x%x,0x%x): %v", c.low, c.high, err)
			continue
		}
		if ok != c.ok || lo != c.nativeLow || hi != c.nativeHi {
			t.Errorf("[0x%x,0x%x): 0x%x 0x%x %v", c.low, c.high, lo, hi, ok)
		}
	}
}

func TestResolveImports(t *testing.T) {
	m := NewMap(Func{Index: 3, NativeStart: 0x100, NativeLength: 4, Offsets: []Mapping{{1, 0x102}}})
	r := NewResolver(testBodies[:1], 3, m)

	loc, err := r.Resolve(2)
	if err != nil {
		t.Fatal(err)
	}
	if loc != (Location{0x100, Inexact, 3}) {
		t.Errorf("%#v", loc)
	}

	index, body, found := r.Owner(8)
	if !found || index != 3 || body != testBodies[0] {
		t.Error(index, body, found)
	}
}

func TestResolveZeroLength(t *testing.T) {
	m := NewMap(Func{Index: 0, NativeStart: 0x1000})
	r := NewResolver(testBodies, 0, m)

	loc, err := r.Resolve(4)
	if err != nil {
		t.Fatal(err)
	}
	if loc.Kind != NoCode {
		t.Error(loc)
	}
}

func TestResolveInconsistent(t *testing.T) {
	for name, f := range map[string]Func{
		"addr": {
			NativeStart:  0x1000,
			NativeLength: 0x10,
			Offsets:      []Mapping{{0, 0x1000}, {3, 0x2000}},
		},
		"offset": {
			NativeStart:  0x1000,
			NativeLength: 0x10,
			Offsets:      []Mapping{{0, 0x1000}, {100, 0x1008}},
		},
	} {
		t.Run(name, func(t *testing.T) {
			r := NewResolver(testBodies, 0, NewMap(f))

			if _, err := r.Resolve(6); err == nil {
				t.Error("Resolve succeeded")
			} else {
				t.Log(err)
			}
			if _, _, _, err := r.ResolveRange(2, 9); name == "offset" && err == nil {
				t.Error("ResolveRange succeeded")
			}
			if err := NewMap(f).Validate(); name == "addr" && err == nil {
				t.Error("Validate succeeded")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	if err := testMap.Validate(); err != nil {
		t.Error(err)
	}

	unsorted := NewMap(Func{Index: 0, NativeLength: 8, Offsets: []Mapping{{4, 4}, {2, 2}}})
	if err := unsorted.Validate(); err == nil {
		t.Error("unsorted offsets")
	}

	duplicate := Map{{Index: 1}, {Index: 1}}
	if err := duplicate.Validate(); err == nil {
		t.Error("duplicate index")
	}
}

func TestMap(t *testing.T) {
	m := NewMap(Func{Index: 5}, Func{Index: 2}, Func{Index: 9})

	if !reflect.DeepEqual(m.Indexes(), []uint32{2, 5, 9}) {
		t.Error(m.Indexes())
	}

	if f, found := m.Func(5); !found || f.Index != 5 {
		t.Error(f, found)
	}
	if _, found := m.Func(3); found {
		t.Error("found 3")
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder

	r.InitObjectMap(1, 2)

	r.PutFuncAddr(0x1000)
	r.PutInsnAddr(0, 0x1000)
	r.PutInsnAddr(1, 0x1000)
	r.PutInsnAddr(3, 0x1004)
	r.PutFuncEnd(0x1010)

	r.PutFuncAddr(0x1010)
	r.PutFuncEnd(0x1010)

	expect := Map{
		{
			Index:        1,
			NativeStart:  0x1000,
			NativeLength: 0x10,
			Offsets:      []Mapping{{0, 0x1000}, {1, 0x1000}, {3, 0x1004}},
		},
		{
			Index:       2,
			NativeStart: 0x1010,
		},
	}

	if !reflect.DeepEqual(r.Map, expect) {
		t.Errorf("%#v", r.Map)
	}

	if err := r.Map.Validate(); err != nil {
		t.Error(err)
	}
}

func TestRecorderSharedAddr(t *testing.T) {
	var r Recorder

	r.InitObjectMap(0, 1)
	r.PutFuncAddr(0x1000)
	r.PutInsnAddr(0, 0x1000)
	r.PutInsnAddr(2, 0x1004)
	r.PutInsnAddr(3, 0x1004)
	r.PutInsnAddr(5, 0x100c)
	r.PutFuncEnd(0x1020)

	if err := r.Map.Validate(); err != nil {
		t.Fatal(err)
	}

	res := NewResolver(testBodies[:1], 0, r.Map)

	for _, x := range []struct {
		offset uint64
		addr   uint64
		kind   Kind
	}{
		{2 + 2, 0x1004, Exact},
		{2 + 3, 0x1004, Exact},
		{2 + 4, 0x1004, Inexact},
		{2 + 5, 0x100c, Exact},
	} {
		loc, err := res.Resolve(x.offset)
		if err != nil {
			t.Fatal(err)
		}
		if loc.Addr != x.addr || loc.Kind != x.kind {
			t.Errorf("offset %d: %#x %s", x.offset, loc.Addr, loc.Kind)
		}
	}
}
