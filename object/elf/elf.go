// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package elf writes 64-bit little-endian relocatable ELF objects.
package elf

import (
	"bytes"
	"debug/elf"
	"encoding/binary"

	"github.com/tsavola/wasmdwarf/object"
	"github.com/tsavola/wasmdwarf/symtab"
	"golang.org/x/xerrors"
)

const (
	headerSize   = 64
	sectionSize  = 64
	symbolSize   = 24
	textAlign    = 16
	symtabAlign  = 8
	sectionAlign = 8
)

// Emitter of ELF objects.  The text section is placed at its absolute
// address, and symbol values are absolute addresses.
type Emitter struct{}

func (Emitter) Emit(o *object.Object) (data []byte, err error) {
	data, err = emit(o)
	if err != nil {
		err = object.EmitError(object.FormatELF, err)
	}
	return
}

func machine(a object.Arch) (elf.Machine, error) {
	switch a {
	case object.ArchAMD64:
		return elf.EM_X86_64, nil
	case object.ArchARM64:
		return elf.EM_AARCH64, nil
	default:
		return elf.EM_NONE, xerrors.Errorf("unsupported architecture: %s", a)
	}
}

type section struct {
	header elf.Section64
	data   []byte
	align  int
}

func emit(o *object.Object) ([]byte, error) {
	mach, err := machine(o.Arch)
	if err != nil {
		return nil, err
	}

	text, err := o.Text()
	if err != nil {
		return nil, err
	}

	var (
		shstrtab object.StringTable
		strtab   object.StringTable
		sections = []section{{}} // Null section.
	)

	const textIndex = 1

	sections = append(sections, section{
		header: elf.Section64{
			Name:      shstrtab.Add(".text"),
			Type:      uint32(elf.SHT_PROGBITS),
			Flags:     uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR),
			Addr:      text.Addr,
			Addralign: textAlign,
		},
		data:  text.Data,
		align: textAlign,
	})

	for _, s := range o.Sections {
		sections = append(sections, section{
			header: elf.Section64{
				Name:      shstrtab.Add(s.Name),
				Type:      uint32(elf.SHT_PROGBITS),
				Addralign: 1,
			},
			data:  s.Data,
			align: 1,
		})
	}

	symbols, firstGlobal := symbolTable(o.Symbols, &strtab, textIndex)

	symtabIndex := len(sections)
	strtabIndex := symtabIndex + 1

	sections = append(sections,
		section{
			header: elf.Section64{
				Name:      shstrtab.Add(".symtab"),
				Type:      uint32(elf.SHT_SYMTAB),
				Link:      uint32(strtabIndex),
				Info:      uint32(firstGlobal),
				Addralign: symtabAlign,
				Entsize:   symbolSize,
			},
			data:  symbols,
			align: symtabAlign,
		},
		section{
			header: elf.Section64{
				Name:      shstrtab.Add(".strtab"),
				Type:      uint32(elf.SHT_STRTAB),
				Addralign: 1,
			},
			data:  strtab.Bytes(),
			align: 1,
		},
	)

	shstrndx := len(sections)
	shstrtabName := shstrtab.Add(".shstrtab")

	sections = append(sections, section{
		header: elf.Section64{
			Name:      shstrtabName,
			Type:      uint32(elf.SHT_STRTAB),
			Addralign: 1,
		},
		data:  shstrtab.Bytes(),
		align: 1,
	})

	var b bytes.Buffer

	b.Write(make([]byte, headerSize))

	for i := 1; i < len(sections); i++ {
		s := &sections[i]
		align(&b, s.align)
		s.header.Off = uint64(b.Len())
		s.header.Size = uint64(len(s.data))
		b.Write(s.data)
	}

	align(&b, sectionAlign)
	shoff := b.Len()

	for _, s := range sections {
		binary.Write(&b, binary.LittleEndian, s.header)
	}

	header := elf.Header64{
		Ident: [elf.EI_NIDENT]byte{
			0:              0x7f,
			1:              'E',
			2:              'L',
			3:              'F',
			elf.EI_CLASS:   byte(elf.ELFCLASS64),
			elf.EI_DATA:    byte(elf.ELFDATA2LSB),
			elf.EI_VERSION: byte(elf.EV_CURRENT),
		},
		Type:      uint16(elf.ET_REL),
		Machine:   uint16(mach),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     uint64(shoff),
		Ehsize:    headerSize,
		Shentsize: sectionSize,
		Shnum:     uint16(len(sections)),
		Shstrndx:  uint16(shstrndx),
	}

	var h bytes.Buffer
	binary.Write(&h, binary.LittleEndian, header)

	data := b.Bytes()
	copy(data, h.Bytes())
	return data, nil
}

// symbolTable encodes local symbols before global symbols.
func symbolTable(symbols []symtab.Symbol, strtab *object.StringTable, textIndex int) (data []byte, firstGlobal int) {
	var b bytes.Buffer

	binary.Write(&b, binary.LittleEndian, elf.Sym64{}) // Null symbol.
	count := 1

	for _, binding := range []symtab.Binding{symtab.Local, symtab.Global} {
		if binding == symtab.Global {
			firstGlobal = count
		}

		bind := elf.STB_LOCAL
		if binding == symtab.Global {
			bind = elf.STB_GLOBAL
		}

		for _, s := range symbols {
			if s.Binding != binding {
				continue
			}

			binary.Write(&b, binary.LittleEndian, elf.Sym64{
				Name:  strtab.Add(s.Name),
				Info:  elf.ST_INFO(bind, elf.STT_FUNC),
				Shndx: uint16(textIndex),
				Value: s.Addr,
				Size:  uint64(s.Size),
			})
			count++
		}
	}

	data = b.Bytes()
	return
}

func align(b *bytes.Buffer, alignment int) {
	l := roundSize(b.Len(), alignment)
	for b.Len() < l {
		b.WriteByte(0)
	}
}

func roundSize(value, alignment int) int {
	return (value + alignment - 1) &^ (alignment - 1)
}
