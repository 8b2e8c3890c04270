// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wasmdwarf_test

import (
	"bytes"
	"debug/elf"
	"debug/macho"
	"encoding/binary"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsavola/wasmdwarf"
	"github.com/tsavola/wasmdwarf/addrmap"
	"github.com/tsavola/wasmdwarf/dwarf"
	"github.com/tsavola/wasmdwarf/errors"
	"github.com/tsavola/wasmdwarf/internal/wasmtest"
	"github.com/tsavola/wasmdwarf/object"
	"github.com/tsavola/wasmdwarf/symtab"
	"golang.org/x/xerrors"
)

var testMap = addrmap.NewMap(
	addrmap.Func{
		Index:        0,
		NativeStart:  0x1000,
		NativeLength: 0x20,
		Offsets: []addrmap.Mapping{
			{WasmOffset: 0, NativeAddr: 0x1000},
			{WasmOffset: 2, NativeAddr: 0x1004},
			{WasmOffset: 5, NativeAddr: 0x100c},
		},
	},
	addrmap.Func{
		Index:        1,
		NativeStart:  0x1020,
		NativeLength: 0x10,
		Offsets:      []addrmap.Mapping{{WasmOffset: 0, NativeAddr: 0x1020}},
	},
)

var testCode = wasmdwarf.CodeMap{
	0: bytes.Repeat([]byte{0x90}, 0x20),
	1: bytes.Repeat([]byte{0xc3}, 0x10),
}

func testDWARF(version uint16) *wasmtest.DWARF {
	return &wasmtest.DWARF{
		Version: version,
		Units: []wasmtest.Unit{{
			Name:    "main.c",
			CompDir: "/src",
			Low:     2,
			High:    9,
			Files:   []string{"main.c"},
			Funcs:   []wasmtest.Func{{Name: "f", Low: 2, High: 9}},
			Lines: []wasmtest.Sequence{{
				Rows: []wasmtest.Row{
					{Addr: 2, File: 1, Line: 10},
					{Addr: 4, File: 1, Line: 11},
					{Addr: 7, File: 1, Line: 12},
				},
				End: 9,
			}},
		}},
	}
}

func testModule(custom []wasmtest.Custom) []byte {
	m := &wasmtest.Module{
		Bodies:  [][]byte{wasmtest.Body(7), wasmtest.Body(2)},
		Exports: map[string]uint32{"main": 0},
		Names:   map[uint32]string{1: "g"},
		Custom:  custom,
	}
	return m.Bytes()
}

var elfTarget = object.Target{Arch: object.ArchAMD64, Format: object.FormatELF}

func build(t *testing.T, config *wasmdwarf.Config, module []byte) *wasmdwarf.Result {
	t.Helper()

	result, err := wasmdwarf.Build(config, module, testMap, testCode)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Object)
	return result
}

func TestBuild(t *testing.T) {
	var warnings []error

	config := &wasmdwarf.Config{
		Target: elfTarget,
		Warn:   func(err error) { warnings = append(warnings, err) },
	}

	result := build(t, config, testModule(testDWARF(4).Custom()))
	assert.Empty(t, result.Warnings)
	assert.Empty(t, warnings)

	assert.Equal(t, []symtab.Symbol{
		{Name: "f", Addr: 0x1000, Size: 0x20, Binding: symtab.Global, Func: 0},
		{Name: "g", Addr: 0x1020, Size: 0x10, Binding: symtab.Local, Func: 1},
	}, result.Symbols)

	rows, err := dwarf.LineRows(result.Debug)
	require.NoError(t, err)
	assert.Equal(t, []dwarf.LineRow{
		{Addr: 0x1000, File: "/src/main.c", Line: 10, IsStmt: true},
		{Addr: 0x1004, File: "/src/main.c", Line: 11, IsStmt: true},
		{Addr: 0x100c, File: "/src/main.c", Line: 12, IsStmt: true},
		{Addr: 0x1020, File: "/src/main.c", Line: 12, IsStmt: true, EndSequence: true},
	}, rows)

	f, err := elf.NewFile(bytes.NewReader(result.Object))
	require.NoError(t, err)
	defer f.Close()

	text := f.Section(".text")
	require.NotNil(t, text)
	assert.Equal(t, uint64(0x1000), text.Addr)
	assert.Equal(t, uint64(0x30), text.Size)

	symbols, err := f.Symbols()
	require.NoError(t, err)
	require.Len(t, symbols, 2)

	// Local symbols come first.
	assert.Equal(t, "g", symbols[0].Name)
	assert.Equal(t, "f", symbols[1].Name)
	assert.Equal(t, uint64(0x1000), symbols[1].Value)

	d, err := f.DWARF()
	require.NoError(t, err)

	r := d.Reader()
	cu, err := r.Next()
	require.NoError(t, err)
	require.NotNil(t, cu)
	assert.Equal(t, "main.c", cu.Val(0x03)) // DW_AT_name
	assert.Equal(t, uint64(0x1000), cu.Val(0x11))

	for name := range result.Debug {
		assert.NotNil(t, f.Section(name), name)
	}
}

func TestBuildMachO(t *testing.T) {
	config := &wasmdwarf.Config{
		Target: object.Target{Arch: object.ArchARM64, Format: object.FormatMachO},
	}

	result := build(t, config, testModule(testDWARF(3).Custom()))
	assert.Empty(t, result.Warnings)

	f, err := macho.NewFile(bytes.NewReader(result.Object))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, macho.CpuArm64, f.Cpu)
	assert.NotNil(t, f.Section("__text"))
	assert.NotNil(t, f.Section("__debug_info"))
	assert.NotNil(t, f.Section("__debug_line"))

	d, err := f.DWARF()
	require.NoError(t, err)

	r := d.Reader()
	cu, err := r.Next()
	require.NoError(t, err)
	require.NotNil(t, cu)

	lr, err := d.LineReader(cu)
	require.NoError(t, err)
	require.NotNil(t, lr)

	require.NotNil(t, f.Symtab)
	assert.Len(t, f.Symtab.Syms, 2)
}

func TestBuildNoDebug(t *testing.T) {
	result := build(t, &wasmdwarf.Config{Target: elfTarget}, testModule(nil))
	assert.Empty(t, result.Warnings)
	assert.Empty(t, result.Debug)

	assert.Equal(t, "func_0", result.Symbols[0].Name)
	assert.Equal(t, "g", result.Symbols[1].Name)

	f, err := elf.NewFile(bytes.NewReader(result.Object))
	require.NoError(t, err)
	defer f.Close()

	assert.Nil(t, f.Section(".debug_info"))
	assert.NotNil(t, f.Section(".text"))
}

func corruptCustom(t *testing.T, version uint16, corrupt func(sections map[string][]byte)) []wasmtest.Custom {
	t.Helper()

	d := testDWARF(version)
	sections := d.Sections()
	corrupt(sections)

	var custom []wasmtest.Custom
	for _, c := range d.Custom() {
		custom = append(custom, wasmtest.Custom{Name: c.Name, Data: sections[c.Name]})
	}
	return custom
}

func TestBuildCorruptDebug(t *testing.T) {
	custom := corruptCustom(t, 4, func(s map[string][]byte) {
		s[dwarf.SectionInfo][11] = 0x7f // Abbreviation code of the first entry.
	})

	var warned int
	config := &wasmdwarf.Config{
		Target: elfTarget,
		Warn:   func(error) { warned++ },
	}

	result := build(t, config, testModule(custom))
	require.Len(t, result.Warnings, 1, spew.Sdump(result.Warnings))
	assert.Equal(t, 1, warned)

	var e *errors.TranscodeError
	assert.True(t, xerrors.As(result.Warnings[0], &e))
	assert.Equal(t, 0, e.Unit)

	assert.Empty(t, result.Debug)
	assert.Len(t, result.Symbols, 2)
	assert.Equal(t, "func_0", result.Symbols[0].Name)

	f, err := elf.NewFile(bytes.NewReader(result.Object))
	require.NoError(t, err)
	defer f.Close()
	assert.Nil(t, f.Section(".debug_info"))
}

func TestBuildUnsupportedVersion(t *testing.T) {
	custom := corruptCustom(t, 4, func(s map[string][]byte) {
		binary.LittleEndian.PutUint16(s[dwarf.SectionInfo][4:], 5)
	})

	result := build(t, &wasmdwarf.Config{Target: elfTarget}, testModule(custom))
	require.Len(t, result.Warnings, 1)

	var e *errors.UnsupportedVersionError
	assert.True(t, xerrors.As(result.Warnings[0], &e))
	assert.Equal(t, uint16(5), e.Version)
	assert.Empty(t, result.Debug)
}

func TestBuildVersionPolicy(t *testing.T) {
	config := &wasmdwarf.Config{
		Target:        elfTarget,
		DWARFVersions: ">= 4",
	}

	result := build(t, config, testModule(testDWARF(3).Custom()))
	require.Len(t, result.Warnings, 1)

	var e *errors.UnsupportedVersionError
	assert.True(t, xerrors.As(result.Warnings[0], &e))

	config.DWARFVersions = "not a constraint"
	_, err := wasmdwarf.Build(config, testModule(nil), testMap, testCode)
	assert.Error(t, err)
}

func TestBuildMalformedModule(t *testing.T) {
	module := testModule(testDWARF(4).Custom())

	result := build(t, &wasmdwarf.Config{Target: elfTarget}, module[:len(module)/2])
	require.Len(t, result.Warnings, 1)

	var e *errors.ModuleError
	assert.True(t, xerrors.As(result.Warnings[0], &e))
	assert.Nil(t, result.Module)
	assert.Empty(t, result.Debug)

	assert.Equal(t, "func_0", result.Symbols[0].Name)
	assert.Equal(t, "func_1", result.Symbols[1].Name)
}

func TestBuildSizeLimit(t *testing.T) {
	config := &wasmdwarf.Config{
		Target:       elfTarget,
		MaxDebugSize: 16,
	}

	result := build(t, config, testModule(testDWARF(4).Custom()))
	require.Len(t, result.Warnings, 1)
	assert.Empty(t, result.Debug)
}

func TestBuildEmitError(t *testing.T) {
	code := wasmdwarf.CodeMap{0: testCode[0]}

	_, err := wasmdwarf.Build(&wasmdwarf.Config{Target: elfTarget}, testModule(nil), testMap, code)
	require.Error(t, err)

	var e *errors.EmitError
	assert.True(t, xerrors.As(err, &e))
	assert.Equal(t, "elf", e.Format)

	config := &wasmdwarf.Config{Target: object.Target{Arch: object.ArchAMD64, Format: object.Format(99)}}
	_, err = wasmdwarf.Build(config, testModule(nil), testMap, testCode)
	assert.True(t, xerrors.As(err, &e))
}

func TestBuildInvalidArguments(t *testing.T) {
	_, err := wasmdwarf.Build(nil, testModule(nil), nil, testCode)
	assert.Error(t, err)

	_, err = wasmdwarf.Build(nil, testModule(nil), testMap, nil)
	assert.Error(t, err)
}

func TestTextCode(t *testing.T) {
	text := append(append([]byte{}, testCode[0]...), testCode[1]...)
	code := &wasmdwarf.TextCode{Addr: 0x1000, Text: text, Funcs: testMap}

	b, found := code.FuncCode(1)
	require.True(t, found)
	assert.Equal(t, testCode[1], b)

	_, found = code.FuncCode(2)
	assert.False(t, found)

	result := build(t, &wasmdwarf.Config{Target: elfTarget}, testModule(nil))
	result2, err := wasmdwarf.Build(&wasmdwarf.Config{Target: elfTarget}, testModule(nil), testMap, code)
	require.NoError(t, err)
	assert.Equal(t, result.Object, result2.Object)
}
