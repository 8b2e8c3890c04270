// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wasmtest

import (
	"encoding/binary"
	"sort"
)

// DWARF describes wasm32 debug information (address size 4).  Addresses are
// code section payload offsets.
type DWARF struct {
	Version uint16 // 2, 3 or 4 (default).
	Units   []Unit
}

type Unit struct {
	Name    string
	CompDir string
	Ranges  bool // Describe the unit with DW_AT_ranges listing Funcs.
	Low     uint32
	High    uint32
	Files   []string
	Funcs   []Func
	Lines   []Sequence
}

type Func struct {
	Name string
	Low  uint32
	High uint32
	Vars []Var
}

// Var is a variable located at a linear memory address.  If Loc is non-empty,
// the location is a location list with an entry per range.
type Var struct {
	Name    string
	Addr    uint32
	Loc     [][2]uint32
	TypeRef bool // Refer to the first unit's base type via DW_FORM_ref_addr.
}

type Sequence struct {
	Rows []Row
	End  uint32
}

type Row struct {
	Addr   uint32
	File   uint32 // 1-based.
	Line   uint32
	Column uint32
}

// Abbreviation codes used by the builder.
const (
	AbbrevUnit = 1 + iota
	AbbrevUnitRanges
	AbbrevSubprogram
	AbbrevBaseType
	AbbrevVar
	AbbrevVarRefAddr
	AbbrevVarLoc
	AbbrevVarLocRefAddr
)

const (
	tagBaseType    = 0x24
	tagCompileUnit = 0x11
	tagSubprogram  = 0x2e
	tagVariable    = 0x34

	atName     = 0x03
	atByteSize = 0x0b
	atStmtList = 0x10
	atLowPC    = 0x11
	atHighPC   = 0x12
	atLanguage = 0x13
	atCompDir  = 0x1b
	atEncoding = 0x3e
	atLocation = 0x02
	atType     = 0x49
	atRanges   = 0x55

	formAddr      = 0x01
	formData2     = 0x05
	formData4     = 0x06
	formString    = 0x08
	formBlock1    = 0x0a
	formData1     = 0x0b
	formStrp      = 0x0e
	formRefAddr   = 0x10
	formRef4      = 0x13
	formSecOffset = 0x17
	formExprloc   = 0x18

	opAddr = 0x03

	langC11 = 0x1d
)

// Sections of the debug information, keyed by custom section name.
func (d *DWARF) Sections() map[string][]byte {
	version := d.version()

	var (
		info   []byte
		str    []byte
		line   []byte
		ranges []byte
		loc    []byte
	)

	var firstBaseType uint32

	for i, u := range d.Units {
		unitStart := len(info)

		b := binary.LittleEndian.AppendUint32(nil, 0) // Length placeholder.
		b = binary.LittleEndian.AppendUint16(b, version)
		b = binary.LittleEndian.AppendUint32(b, 0)
		b = append(b, 4)

		var base uint32

		if u.Ranges {
			b = uleb(b, AbbrevUnitRanges)
		} else {
			b = uleb(b, AbbrevUnit)
			base = u.Low
		}

		b = binary.LittleEndian.AppendUint32(b, uint32(len(str)))
		str = append(append(str, u.Name...), 0)
		b = append(append(b, u.CompDir...), 0)
		b = binary.LittleEndian.AppendUint16(b, langC11)
		b = binary.LittleEndian.AppendUint32(b, uint32(len(line)))
		line = appendLineProgram(line, version, u.Files, u.Lines)

		if u.Ranges {
			b = binary.LittleEndian.AppendUint32(b, 0)
			b = binary.LittleEndian.AppendUint32(b, uint32(len(ranges)))
			for _, f := range u.Funcs {
				ranges = binary.LittleEndian.AppendUint32(ranges, f.Low)
				ranges = binary.LittleEndian.AppendUint32(ranges, f.High)
			}
			ranges = binary.LittleEndian.AppendUint64(ranges, 0)
		} else {
			b = binary.LittleEndian.AppendUint32(b, u.Low)
			b = appendHighPC(b, version, u.Low, u.High)
		}

		baseType := uint32(len(b))
		if i == 0 {
			firstBaseType = baseType
		}
		b = uleb(b, AbbrevBaseType)
		b = append(b, "int\x00"...)
		b = append(b, 0x05, 4)

		for _, f := range u.Funcs {
			b = uleb(b, AbbrevSubprogram)
			b = binary.LittleEndian.AppendUint32(b, uint32(len(str)))
			str = append(append(str, f.Name...), 0)
			b = binary.LittleEndian.AppendUint32(b, f.Low)
			b = appendHighPC(b, version, f.Low, f.High)

			for _, v := range f.Vars {
				code := AbbrevVar
				if len(v.Loc) > 0 {
					code = AbbrevVarLoc
				}
				if v.TypeRef {
					code++
				}

				b = uleb(b, uint64(code))
				b = append(append(b, v.Name...), 0)
				if v.TypeRef {
					b = binary.LittleEndian.AppendUint32(b, firstBaseType)
				} else {
					b = binary.LittleEndian.AppendUint32(b, baseType)
				}

				expr := binary.LittleEndian.AppendUint32([]byte{opAddr}, v.Addr)

				if len(v.Loc) > 0 {
					b = binary.LittleEndian.AppendUint32(b, uint32(len(loc)))
					for _, r := range v.Loc {
						loc = binary.LittleEndian.AppendUint32(loc, r[0]-base)
						loc = binary.LittleEndian.AppendUint32(loc, r[1]-base)
						loc = binary.LittleEndian.AppendUint16(loc, uint16(len(expr)))
						loc = append(loc, expr...)
					}
					loc = binary.LittleEndian.AppendUint64(loc, 0)
				} else {
					if version >= 4 {
						b = uleb(b, uint64(len(expr)))
					} else {
						b = append(b, byte(len(expr)))
					}
					b = append(b, expr...)
				}
			}

			b = append(b, 0)
		}

		b = append(b, 0)
		binary.LittleEndian.PutUint32(b, uint32(len(b)-4))

		if i == 0 {
			firstBaseType += uint32(unitStart)
		}
		info = append(info, b...)
	}

	m := map[string][]byte{
		".debug_abbrev": d.Abbrev(),
		".debug_info":   info,
		".debug_line":   line,
		".debug_str":    str,
	}
	if len(ranges) > 0 {
		m[".debug_ranges"] = ranges
	}
	if len(loc) > 0 {
		m[".debug_loc"] = loc
	}
	return m
}

// Custom sections in name order.
func (d *DWARF) Custom() []Custom {
	sections := d.Sections()

	var names []string
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)

	var cs []Custom
	for _, name := range names {
		cs = append(cs, Custom{name, sections[name]})
	}
	return cs
}

func (d *DWARF) version() uint16 {
	if d.Version == 0 {
		return 4
	}
	return d.Version
}

// Abbrev returns the single abbreviation table shared by all units.
func (d *DWARF) Abbrev() []byte {
	version := d.version()

	highPC := byte(formAddr)
	secOffset := byte(formData4)
	exprloc := byte(formBlock1)
	if version >= 4 {
		highPC = formData4
		secOffset = formSecOffset
		exprloc = formExprloc
	}

	var b []byte
	decl := func(code, tag int, children bool, attrs ...byte) {
		b = uleb(b, uint64(code))
		b = uleb(b, uint64(tag))
		if children {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
		b = append(b, attrs...)
		b = append(b, 0, 0)
	}

	decl(AbbrevUnit, tagCompileUnit, true,
		atName, formStrp,
		atCompDir, formString,
		atLanguage, formData2,
		atStmtList, secOffset,
		atLowPC, formAddr,
		atHighPC, highPC)
	decl(AbbrevUnitRanges, tagCompileUnit, true,
		atName, formStrp,
		atCompDir, formString,
		atLanguage, formData2,
		atStmtList, secOffset,
		atLowPC, formAddr,
		atRanges, secOffset)
	decl(AbbrevSubprogram, tagSubprogram, true,
		atName, formStrp,
		atLowPC, formAddr,
		atHighPC, highPC)
	decl(AbbrevBaseType, tagBaseType, false,
		atName, formString,
		atEncoding, formData1,
		atByteSize, formData1)
	decl(AbbrevVar, tagVariable, false,
		atName, formString,
		atType, formRef4,
		atLocation, exprloc)
	decl(AbbrevVarRefAddr, tagVariable, false,
		atName, formString,
		atType, formRefAddr,
		atLocation, exprloc)
	decl(AbbrevVarLoc, tagVariable, false,
		atName, formString,
		atType, formRef4,
		atLocation, secOffset)
	decl(AbbrevVarLocRefAddr, tagVariable, false,
		atName, formString,
		atType, formRefAddr,
		atLocation, secOffset)

	return append(b, 0)
}

func appendHighPC(b []byte, version uint16, low, high uint32) []byte {
	if version >= 4 {
		return binary.LittleEndian.AppendUint32(b, high-low)
	}
	return binary.LittleEndian.AppendUint32(b, high)
}

const (
	lineBase   = -5
	lineRange  = 14
	opcodeBase = 13

	lnsCopy        = 1
	lnsAdvancePC   = 2
	lnsAdvanceLine = 3
	lnsSetFile     = 4
	lnsSetColumn   = 5

	lneEndSequence = 1
	lneSetAddress  = 2
)

var standardOpcodeLengths = []byte{0, 1, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1}

func appendLineProgram(b []byte, version uint16, files []string, seqs []Sequence) []byte {
	start := len(b)

	b = binary.LittleEndian.AppendUint32(b, 0)
	b = binary.LittleEndian.AppendUint16(b, version)
	headerLengthPos := len(b)
	b = binary.LittleEndian.AppendUint32(b, 0)
	headerStart := len(b)

	b = append(b, 1) // Minimum instruction length.
	if version >= 4 {
		b = append(b, 1) // Maximum operations per instruction.
	}
	b = append(b, 1) // Default is_stmt.
	b = append(b, 256+lineBase, lineRange, opcodeBase)
	b = append(b, standardOpcodeLengths...)
	b = append(b, 0) // No include directories.
	for _, name := range files {
		b = append(append(b, name...), 0)
		b = append(b, 0, 0, 0)
	}
	b = append(b, 0)

	binary.LittleEndian.PutUint32(b[headerLengthPos:], uint32(len(b)-headerStart))

	for _, seq := range seqs {
		var addr uint32
		if len(seq.Rows) > 0 {
			addr = seq.Rows[0].Addr
		} else {
			addr = seq.End
		}

		b = append(b, 0, 5, lneSetAddress)
		b = binary.LittleEndian.AppendUint32(b, addr)

		var (
			file   uint32 = 1
			line   uint32 = 1
			column uint32
		)

		for _, r := range seq.Rows {
			if r.File != file {
				b = append(b, lnsSetFile)
				b = uleb(b, uint64(r.File))
				file = r.File
			}
			if r.Column != column {
				b = append(b, lnsSetColumn)
				b = uleb(b, uint64(r.Column))
				column = r.Column
			}
			if r.Line != line {
				b = append(b, lnsAdvanceLine)
				b = sleb(b, int64(r.Line)-int64(line))
				line = r.Line
			}
			if r.Addr != addr {
				b = append(b, lnsAdvancePC)
				b = uleb(b, uint64(r.Addr-addr))
				addr = r.Addr
			}
			b = append(b, lnsCopy)
		}

		if seq.End > addr {
			b = append(b, lnsAdvancePC)
			b = uleb(b, uint64(seq.End-addr))
		}
		b = append(b, 0, 1, lneEndSequence)
	}

	binary.LittleEndian.PutUint32(b[start:], uint32(len(b)-start-4))
	return b
}
