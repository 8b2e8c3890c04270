// Copyright (c) 2016 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package section extracts debug-relevant information from WebAssembly binary
// modules.
package section

import (
	"bytes"
	"io"

	"github.com/tsavola/wasmdwarf/internal"
	"github.com/tsavola/wasmdwarf/internal/errors"
	"github.com/tsavola/wasmdwarf/internal/loader"
	"github.com/tsavola/wasmdwarf/internal/pan"
	"golang.org/x/xerrors"
)

const (
	maxImports = 100000
	maxExports = 100000
	maxFuncs   = 1000000
)

// DebugPrefix is the name prefix of custom sections which carry DWARF data.
const DebugPrefix = ".debug_"

const (
	importKindFunc byte = iota
	importKindTable
	importKindMemory
	importKindGlobal
	importKindTag
)

// Module is the information extracted from a WebAssembly module.  It is not
// modified after Extract returns.
type Module struct {
	Map

	// Debug custom sections by name (e.g. ".debug_info").  Empty if the
	// module has no debug information.
	Debug map[string][]byte

	NumImportFuncs uint32

	// Function body positions relative to the code section payload, which
	// is also the address space of WebAssembly DWARF.  A body begins after
	// its size prefix.  Indexed by defined function index.
	FuncBodies []ByteRange

	ModuleName  string
	FuncNames   map[uint32]string // From name section.
	ExportNames map[uint32]string // First export name of each exported function.
}

// Extract parses WebAssembly module structure and collects debug sections.
// Content of debug sections is not validated.  A malformed name section is
// ignored.  ModuleError is returned if the module itself is malformed.
func Extract(module []byte) (m *Module, err error) {
	load := loader.New(bytes.NewReader(module), 0)

	if internal.DontPanic() {
		defer func() {
			if x := pan.Error(recover()); x != nil {
				m, err = nil, x

				var e *errors.ModuleError
				if !xerrors.As(err, &e) {
					err = errors.WrapModuleError(load.Tell(), err)
				}
			}
		}()
	}

	m = new(Module)
	m.load(load, module)
	return
}

func (m *Module) load(load *loader.L, module []byte) {
	if len(module) < headerSize {
		pan.Panic(errors.WrapModuleError(0, io.ErrUnexpectedEOF))
	}
	if string(load.Bytes(4)) != moduleMagic {
		pan.Panic(errors.ModuleErrorf(0, "not a WebAssembly module"))
	}
	if v := load.Uint32(); v != moduleVersion {
		pan.Panic(errors.ModuleErrorf(4, "unsupported module version: %d", v))
	}

	var (
		debug CustomSections
		names NameSection
	)

	custom := CustomLoaders{
		DebugPrefix + "*": debug.Load,
		CustomName:        names.Load,
	}

	for {
		sectionOffset := load.Tell()

		b, err := load.ReadByte()
		if err == io.EOF {
			break
		}
		pan.Check(err)

		id := ID(b)
		if id >= NumSections {
			pan.Panic(errors.ModuleErrorf(sectionOffset, "unknown section id: %d", b))
		}

		payloadSize := load.Varuint32()
		payloadOffset := load.Tell()
		if int64(payloadSize) > int64(len(module))-payloadOffset {
			pan.Panic(errors.ModuleErrorf(sectionOffset, "%s section size exceeds module size", id))
		}

		payload := module[payloadOffset : payloadOffset+int64(payloadSize)]
		load.Discard(payloadSize)

		m.Sections[id] = ByteRange{payloadOffset, int64(payloadSize)}

		sub := loader.New(bytes.NewReader(payload), payloadOffset)

		switch id {
		case Custom:
			m.loadCustom(sub, payload, custom)
			continue

		case Import:
			m.loadImports(sub)

		case Export:
			m.loadExports(sub)

		case Code:
			m.loadCode(sub, payloadOffset)

		default:
			continue
		}

		if n := sub.Tell() - payloadOffset; n != int64(payloadSize) {
			pan.Panic(errors.ModuleErrorf(sectionOffset, "%s section size is %d but %d bytes was read", id, payloadSize, n))
		}
	}

	m.Debug = debug.Sections
	if m.Debug == nil {
		m.Debug = make(map[string][]byte)
	}
	m.ModuleName = names.ModuleName
	m.FuncNames = names.FuncNames
}

func (m *Module) loadCustom(load *loader.L, payload []byte, loaders CustomLoaders) {
	begin := load.Tell()
	name := load.Name("custom section name")
	content := payload[load.Tell()-begin:]

	if f := loaders.lookup(name); f != nil {
		if err := f(name, content); err != nil {
			debugf("custom section %q: %v", name, err)
		}
	}
}

func (m *Module) loadImports(load *loader.L) {
	for range load.Count(maxImports, "import") {
		load.Name("import module name")
		load.Name("import field name")

		pos := load.Tell()

		switch kind := load.Byte(); kind {
		case importKindFunc:
			load.Varuint32() // Type index.
			m.NumImportFuncs++

		case importKindTable:
			load.Byte() // Element type.
			loadLimits(load)

		case importKindMemory:
			loadLimits(load)

		case importKindGlobal:
			load.Byte() // Value type.
			load.Byte() // Mutability.

		case importKindTag:
			load.Byte() // Attribute.
			load.Varuint32()

		default:
			pan.Panic(errors.ModuleErrorf(pos, "unknown import kind: 0x%x", kind))
		}
	}
}

func loadLimits(load *loader.L) {
	flags := load.Byte()
	load.Varuint64()
	if flags&1 != 0 {
		load.Varuint64()
	}
}

func (m *Module) loadExports(load *loader.L) {
	for range load.Count(maxExports, "export") {
		name := load.Name("export name")
		kind := load.Byte()
		index := load.Varuint32()

		if kind == importKindFunc {
			if m.ExportNames == nil {
				m.ExportNames = make(map[uint32]string)
			}
			if _, found := m.ExportNames[index]; !found {
				m.ExportNames[index] = name
			}
		}
	}
}

func (m *Module) loadCode(load *loader.L, payloadOffset int64) {
	count := load.Count(maxFuncs, "function body")
	m.FuncBodies = make([]ByteRange, 0, len(count))

	for range count {
		size := load.Varuint32()
		m.FuncBodies = append(m.FuncBodies, ByteRange{load.Tell() - payloadOffset, int64(size)})
		load.Discard(size)
	}
}

// FuncIndex converts a defined function index to the module's function index
// space (which includes imported functions).
func (m *Module) FuncIndex(definedIndex int) uint32 {
	return m.NumImportFuncs + uint32(definedIndex)
}
