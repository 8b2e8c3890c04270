// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package symtab builds function symbols for native code.
package symtab

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/tsavola/wasmdwarf/addrmap"
	"github.com/tsavola/wasmdwarf/section"
)

type Binding uint8

const (
	Local Binding = iota
	Global
)

func (b Binding) String() string {
	switch b {
	case Local:
		return "local"
	case Global:
		return "global"
	default:
		return "binding(" + strconv.Itoa(int(b)) + ")"
	}
}

// Symbol of a function's native code.
type Symbol struct {
	Name    string
	Addr    uint64
	Size    uint32
	Binding Binding
	Func    uint32 // Function index.
}

// End address (exclusive).
func (s *Symbol) End() uint64 {
	return s.Addr + uint64(s.Size)
}

// Build a symbol for every function with native code.  Names come from the
// name section, then from debug information (subprogram names keyed by body
// offset), and finally they are synthesized.  Exported functions are global.
// Symbols are sorted by address and their names are unique.
func Build(mod *section.Module, funcs addrmap.Provider, debugNames map[uint32]string) []Symbol {
	var (
		nameSection map[uint32]string
		exports     map[uint32]string
		bodyNames   map[uint32]string
	)

	if mod != nil {
		nameSection = mod.FuncNames
		exports = mod.ExportNames

		if len(debugNames) > 0 {
			bodyNames = make(map[uint32]string)
			for i, body := range mod.FuncBodies {
				if name, found := debugNames[uint32(body.Offset)]; found {
					bodyNames[mod.FuncIndex(i)] = name
				}
			}
		}
	}

	var symbols []Symbol

	for _, index := range funcs.Indexes() {
		f, found := funcs.Func(index)
		if !found || f.NativeLength == 0 {
			continue
		}

		name := nameSection[index]
		if name == "" {
			name = bodyNames[index]
		}
		if name == "" {
			name = fmt.Sprintf("func_%d", index)
		}

		binding := Local
		if _, found := exports[index]; found {
			binding = Global
		}

		symbols = append(symbols, Symbol{
			Name:    name,
			Addr:    f.NativeStart,
			Size:    f.NativeLength,
			Binding: binding,
			Func:    index,
		})
	}

	sort.Slice(symbols, func(i, j int) bool {
		if symbols[i].Addr != symbols[j].Addr {
			return symbols[i].Addr < symbols[j].Addr
		}
		return symbols[i].Func < symbols[j].Func
	})

	uniquify(symbols)
	return symbols
}

// uniquify renames the later of colliding symbols by appending the function
// index.
func uniquify(symbols []Symbol) {
	taken := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		taken[s.Name] = struct{}{}
	}

	seen := make(map[string]struct{}, len(symbols))

	for i := range symbols {
		s := &symbols[i]

		if _, dup := seen[s.Name]; dup {
			name := s.Name + "." + strconv.FormatUint(uint64(s.Func), 10)
			for {
				if _, found := taken[name]; !found {
					break
				}
				name += "." + strconv.FormatUint(uint64(s.Func), 10)
			}
			s.Name = name
			taken[name] = struct{}{}
		}

		seen[s.Name] = struct{}{}
	}
}

// Lookup finds the symbol which contains the address.  Symbols must be sorted.
func Lookup(symbols []Symbol, addr uint64) (*Symbol, bool) {
	i := sort.Search(len(symbols), func(i int) bool {
		return symbols[i].End() > addr
	})
	if i < len(symbols) && symbols[i].Addr <= addr {
		return &symbols[i], true
	}
	return nil, false
}
