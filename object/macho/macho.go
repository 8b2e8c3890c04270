// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package macho writes 64-bit Mach-O object files.
package macho

import (
	"bytes"
	"debug/macho"
	"encoding/binary"
	"strings"

	"github.com/tsavola/wasmdwarf/object"
	"github.com/tsavola/wasmdwarf/symtab"
	"golang.org/x/xerrors"
)

const (
	fileHeaderSize = 32
	segmentSize    = 72
	sectionSize    = 80
	symtabCmdSize  = 24
	nlistSize      = 16
	textAlignLog2  = 4
	maxNameLen     = 16
)

// Section flags.
const (
	sRegular              = 0x0
	sAttrPureInstructions = 0x80000000
	sAttrSomeInstructions = 0x00000400
	sAttrDebug            = 0x02000000
)

const subsectionsViaSymbols = 0x2000 // File header flag.

// Symbol types.
const (
	nSect = 0x0e
	nExt  = 0x01
)

const (
	vmProtRead    = 1
	vmProtExecute = 4
)

// Emitter of Mach-O objects.  Symbol names are not mangled.
type Emitter struct{}

func (Emitter) Emit(o *object.Object) (data []byte, err error) {
	data, err = emit(o)
	if err != nil {
		err = object.EmitError(object.FormatMachO, err)
	}
	return
}

func cpu(a object.Arch) (macho.Cpu, uint32, error) {
	switch a {
	case object.ArchAMD64:
		return macho.CpuAmd64, 3, nil // CPU_SUBTYPE_X86_64_ALL
	case object.ArchARM64:
		return macho.CpuArm64, 0, nil // CPU_SUBTYPE_ARM64_ALL
	default:
		return 0, 0, xerrors.Errorf("unsupported architecture: %s", a)
	}
}

// sectionName converts ".debug_info" to "__debug_info".
func sectionName(name string) (string, error) {
	name = "__" + strings.TrimPrefix(name, ".")
	if len(name) > maxNameLen {
		return "", xerrors.Errorf("section name is too long: %s", name)
	}
	return name, nil
}

func setName(dst *[maxNameLen]byte, name string) {
	copy(dst[:], name)
}

type section struct {
	header macho.Section64
	data   []byte
	align  int
}

func emit(o *object.Object) ([]byte, error) {
	cpuType, subCPU, err := cpu(o.Arch)
	if err != nil {
		return nil, err
	}

	text, err := o.Text()
	if err != nil {
		return nil, err
	}

	sections := []section{{
		data:  text.Data,
		align: 1 << textAlignLog2,
	}}
	setName(&sections[0].header.Name, "__text")
	setName(&sections[0].header.Seg, "__TEXT")
	sections[0].header.Addr = text.Addr
	sections[0].header.Align = textAlignLog2
	sections[0].header.Flags = sAttrPureInstructions | sAttrSomeInstructions

	for _, s := range o.Sections {
		name, err := sectionName(s.Name)
		if err != nil {
			return nil, err
		}

		x := section{
			data:  s.Data,
			align: 1,
		}
		setName(&x.header.Name, name)
		setName(&x.header.Seg, "__DWARF")
		x.header.Flags = sRegular | sAttrDebug
		sections = append(sections, x)
	}

	const numCmds = 2

	var (
		segmentCmdSize = segmentSize + sectionSize*len(sections)
		cmdsSize       = segmentCmdSize + symtabCmdSize
	)

	var b bytes.Buffer
	b.Write(make([]byte, fileHeaderSize+cmdsSize))

	segmentOffset := b.Len()

	for i := range sections {
		s := &sections[i]
		align(&b, s.align)
		s.header.Offset = uint32(b.Len())
		s.header.Size = uint64(len(s.data))
		b.Write(s.data)
	}

	segmentFilesize := b.Len() - segmentOffset

	var strtab object.StringTable
	symbols := symbolTable(o.Symbols, &strtab)

	align(&b, 8)
	symoff := b.Len()
	b.Write(symbols)
	stroff := b.Len()
	b.Write(strtab.Bytes())

	var h bytes.Buffer

	binary.Write(&h, binary.LittleEndian, macho.FileHeader{
		Magic:  macho.Magic64,
		Cpu:    cpuType,
		SubCpu: subCPU,
		Type:   macho.TypeObj,
		Ncmd:   numCmds,
		Cmdsz:  uint32(cmdsSize),
		Flags:  subsectionsViaSymbols,
	})
	binary.Write(&h, binary.LittleEndian, uint32(0)) // Reserved.

	// MH_OBJECT files have a single unnamed segment.
	binary.Write(&h, binary.LittleEndian, macho.Segment64{
		Cmd:     macho.LoadCmdSegment64,
		Len:     uint32(segmentCmdSize),
		Addr:    text.Addr,
		Memsz:   uint64(len(text.Data)),
		Offset:  uint64(segmentOffset),
		Filesz:  uint64(segmentFilesize),
		Maxprot: vmProtRead | vmProtExecute,
		Prot:    vmProtRead | vmProtExecute,
		Nsect:   uint32(len(sections)),
	})

	for _, s := range sections {
		binary.Write(&h, binary.LittleEndian, s.header)
	}

	binary.Write(&h, binary.LittleEndian, macho.SymtabCmd{
		Cmd:     macho.LoadCmdSymtab,
		Len:     symtabCmdSize,
		Symoff:  uint32(symoff),
		Nsyms:   uint32(len(symbols) / nlistSize),
		Stroff:  uint32(stroff),
		Strsize: uint32(len(strtab.Bytes())),
	})

	data := b.Bytes()
	copy(data, h.Bytes())
	return data, nil
}

// symbolTable encodes local symbols before external symbols.  All symbols
// are in the first section.
func symbolTable(symbols []symtab.Symbol, strtab *object.StringTable) []byte {
	var b bytes.Buffer

	for _, binding := range []symtab.Binding{symtab.Local, symtab.Global} {
		typ := uint8(nSect)
		if binding == symtab.Global {
			typ |= nExt
		}

		for _, s := range symbols {
			if s.Binding == binding {
				binary.Write(&b, binary.LittleEndian, macho.Nlist64{
					Name:  strtab.Add(s.Name),
					Type:  typ,
					Sect:  1,
					Value: s.Addr,
				})
			}
		}
	}

	return b.Bytes()
}

func align(b *bytes.Buffer, alignment int) {
	for b.Len()%alignment != 0 {
		b.WriteByte(0)
	}
}
