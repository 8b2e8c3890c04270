// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wasmtest assembles WebAssembly modules and wasm32 DWARF sections
// for tests.
package wasmtest

import (
	"encoding/binary"
	"sort"

	wbinary "github.com/tsavola/wasmdwarf/binary"
)

// Custom section.
type Custom struct {
	Name string
	Data []byte
}

// Module assembles a module with functions of type [] -> [].
type Module struct {
	Imports []string          // Imported function names (module "env").
	Bodies  [][]byte          // Function bodies including local declarations.
	Exports map[string]uint32 // Function exports.
	Names   map[uint32]string // Function names for the name section.
	Custom  []Custom
}

// Body of n bytes: no locals, nops, end.
func Body(n int) []byte {
	b := make([]byte, n)
	for i := 1; i < n-1; i++ {
		b[i] = 0x01
	}
	b[n-1] = 0x0b
	return b
}

func (m *Module) Bytes() []byte {
	b := []byte("\x00asm")
	b = binary.LittleEndian.AppendUint32(b, 1)

	b = appendSection(b, 1, []byte{1, 0x60, 0, 0})

	if len(m.Imports) > 0 {
		p := uleb(nil, uint64(len(m.Imports)))
		for _, field := range m.Imports {
			p = appendName(p, "env")
			p = appendName(p, field)
			p = append(p, 0, 0)
		}
		b = appendSection(b, 2, p)
	}

	p := uleb(nil, uint64(len(m.Bodies)))
	for range m.Bodies {
		p = append(p, 0)
	}
	b = appendSection(b, 3, p)

	if len(m.Exports) > 0 {
		var names []string
		for name := range m.Exports {
			names = append(names, name)
		}
		sort.Strings(names)

		p := uleb(nil, uint64(len(names)))
		for _, name := range names {
			p = appendName(p, name)
			p = append(p, 0)
			p = uleb(p, uint64(m.Exports[name]))
		}
		b = appendSection(b, 7, p)
	}

	b = appendSection(b, 10, m.code())

	if len(m.Names) > 0 {
		var indexes []uint32
		for i := range m.Names {
			indexes = append(indexes, i)
		}
		sort.Slice(indexes, func(i, j int) bool { return indexes[i] < indexes[j] })

		sub := uleb(nil, uint64(len(indexes)))
		for _, i := range indexes {
			sub = uleb(sub, uint64(i))
			sub = appendName(sub, m.Names[i])
		}

		p := []byte{1}
		p = uleb(p, uint64(len(sub)))
		p = append(p, sub...)
		b = appendCustom(b, "name", p)
	}

	for _, c := range m.Custom {
		b = appendCustom(b, c.Name, c.Data)
	}

	return b
}

func (m *Module) code() []byte {
	p := uleb(nil, uint64(len(m.Bodies)))
	for _, body := range m.Bodies {
		p = uleb(p, uint64(len(body)))
		p = append(p, body...)
	}
	return p
}

// BodyStarts returns function body offsets relative to the code section
// payload.
func (m *Module) BodyStarts() []uint32 {
	var starts []uint32

	pos := wbinary.Uleb128Len(uint64(len(m.Bodies)))
	for _, body := range m.Bodies {
		pos += wbinary.Uleb128Len(uint64(len(body)))
		starts = append(starts, uint32(pos))
		pos += len(body)
	}

	return starts
}

func appendSection(b []byte, id byte, payload []byte) []byte {
	b = append(b, id)
	b = uleb(b, uint64(len(payload)))
	return append(b, payload...)
}

func appendCustom(b []byte, name string, data []byte) []byte {
	p := appendName(nil, name)
	p = append(p, data...)
	return appendSection(b, 0, p)
}

func appendName(b []byte, s string) []byte {
	b = uleb(b, uint64(len(s)))
	return append(b, s...)
}

func uleb(b []byte, x uint64) []byte {
	return wbinary.AppendUleb128(b, x)
}

func sleb(b []byte, x int64) []byte {
	return wbinary.AppendSleb128(b, x)
}
